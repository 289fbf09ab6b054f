package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/duebot/duebot/internal/assignment"
	"github.com/duebot/duebot/internal/ingest"
	"github.com/duebot/duebot/internal/query"
	"github.com/duebot/duebot/internal/store"
)

const maxUploadBodySize = 10 << 20 // 10MB

// CalendarQueue enqueues a calendar sweep for the background worker.
type CalendarQueue interface {
	EnqueueCalendarSync() error
}

type AppDeps struct {
	Store    store.Store
	Queries  *query.Engine
	Ingestor *ingest.Pipeline
	Calendar CalendarQueue // optional; if nil, POST /calendar/sync returns 503
	Token    string
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/upload", handleUpload(deps))
		r.Get("/assignments", handleAssignments(deps))
		r.Get("/assignments/due-today", handleDueToday(deps))
		r.Get("/assignments/due-this-week", handleDueThisWeek(deps))
		r.Get("/assignments/due-on", handleDueOn(deps))
		r.Get("/assignments/remaining", handleRemaining(deps))
		r.Get("/assignments/weekly-todo", handleWeeklyTodo(deps))
		r.Get("/courses/{course}/assignments", handleCourseAssignments(deps))
		r.Get("/courses/{course}/exams", handleCourseExams(deps))
		r.Get("/courses/{course}/grade", handleCourseGrade(deps))
		r.Post("/calendar/sync", handleCalendarSync(deps))
	})

	return r
}

func handleUpload(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBodySize)
		defer r.Body.Close()

		rows, err := ingest.ReadRows(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading csv: %v", err)
			return
		}
		if len(rows) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "empty csv upload")
			return
		}

		report, err := deps.Ingestor.Ingest(r.Context(), rows)
		if err != nil {
			storeError(w, err, "ingest failed: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, report)
	}
}

func handleAssignments(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, ok := loadSnapshot(deps, w, r)
		if !ok {
			return
		}
		writeAssignments(w, snapshot)
	}
}

func handleDueToday(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, ok := loadSnapshot(deps, w, r)
		if !ok {
			return
		}
		writeAssignments(w, deps.Queries.DueToday(snapshot))
	}
}

func handleDueThisWeek(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, ok := loadSnapshot(deps, w, r)
		if !ok {
			return
		}
		writeAssignments(w, deps.Queries.DueThisWeek(snapshot))
	}
}

func handleDueOn(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("date")
		if raw == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "date query parameter is required")
			return
		}
		date, err := assignment.ParseDate(raw)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid date %q: %v", raw, err)
			return
		}

		snapshot, ok := loadSnapshot(deps, w, r)
		if !ok {
			return
		}
		writeAssignments(w, deps.Queries.DueOn(snapshot, date))
	}
}

func handleRemaining(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, ok := loadSnapshot(deps, w, r)
		if !ok {
			return
		}
		writeAssignments(w, deps.Queries.Remaining(snapshot))
	}
}

func handleWeeklyTodo(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, ok := loadSnapshot(deps, w, r)
		if !ok {
			return
		}
		days := deps.Queries.WeeklyTodo(snapshot)
		if days == nil {
			days = []query.Day{}
		}
		writeJSON(w, http.StatusOK, days)
	}
}

func handleCourseAssignments(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, ok := loadSnapshot(deps, w, r)
		if !ok {
			return
		}
		writeAssignments(w, deps.Queries.DueInCourse(snapshot, chi.URLParam(r, "course")))
	}
}

func handleCourseExams(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, ok := loadSnapshot(deps, w, r)
		if !ok {
			return
		}
		writeAssignments(w, deps.Queries.ExamsInCourse(snapshot, chi.URLParam(r, "course")))
	}
}

func handleCourseGrade(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, ok := loadSnapshot(deps, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, deps.Queries.CourseGrade(snapshot, chi.URLParam(r, "course")))
	}
}

func handleCalendarSync(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Calendar == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "calendar sync is not configured")
			return
		}
		if err := deps.Calendar.EnqueueCalendarSync(); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "enqueueing calendar sync: %v", err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":    "queued",
			"queued_at": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func loadSnapshot(deps AppDeps, w http.ResponseWriter, r *http.Request) ([]assignment.Assignment, bool) {
	snapshot, err := deps.Store.All(r.Context())
	if err != nil {
		storeError(w, err, "fetching assignments: %v", err)
		return nil, false
	}
	return snapshot, true
}

func storeError(w http.ResponseWriter, err error, format string, args ...any) {
	code := http.StatusInternalServerError
	if errors.Is(err, store.ErrUnavailable) {
		code = http.StatusBadGateway
	}
	httpError(w, code, "api_error", format, args...)
}

func writeAssignments(w http.ResponseWriter, list []assignment.Assignment) {
	if list == nil {
		list = []assignment.Assignment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
