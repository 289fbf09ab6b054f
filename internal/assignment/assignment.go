// Package assignment holds the domain model for tracked coursework:
// the Assignment record, its status lifecycle, due-date parsing, the
// natural key used for de-duplication, and weekly recurrence expansion.
package assignment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidDate is returned when a date string matches neither accepted
// format or does not name a real calendar date.
var ErrInvalidDate = errors.New("invalid date format")

// Status is the completion state of an assignment. Transitions
// (Not Started -> In Progress -> Completed) happen in the external store;
// this code only reads the value.
type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// NormalizeStatus maps free-form status text onto one of the three known
// states. Unknown values default to Not Started, matching upload behavior.
func NormalizeStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in progress", "in_progress":
		return StatusInProgress
	case "completed", "complete", "done":
		return StatusCompleted
	default:
		return StatusNotStarted
	}
}

// Assignment is one trackable task. Dates are kept as the text they arrived
// in (either accepted format, optionally with a time suffix) and parsed on
// use, so a snapshot can still carry a record whose date the store mangled.
type Assignment struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name" validate:"required"`
	Courses   []string `json:"courses" validate:"required,min=1,dive,required"`
	StartDate string   `json:"start_date,omitempty"`
	DueDate   string   `json:"due_date" validate:"required"`
	Status    Status   `json:"status"`
	Grade     *float64 `json:"grade,omitempty" validate:"omitempty,gte=0,lte=100"`
	Weightage *float64 `json:"weightage,omitempty" validate:"omitempty,gte=0,lte=100"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Course returns the primary course tag, or "" for a record with none.
func (a Assignment) Course() string {
	if len(a.Courses) == 0 {
		return ""
	}
	return a.Courses[0]
}

// InCourse reports whether any of the record's course tags matches the
// given course name case-insensitively.
func (a Assignment) InCourse(course string) bool {
	for _, c := range a.Courses {
		if strings.EqualFold(c, course) {
			return true
		}
	}
	return false
}

// Due parses the record's due date.
func (a Assignment) Due() (time.Time, error) {
	return ParseDate(a.DueDate)
}

var validate = validator.New()

// Validate checks the structural invariants: non-empty name, course and
// due date, grade/weightage within [0, 100] when present. It deliberately
// does not parse the due date — a record whose date text the store mangled
// still belongs in a snapshot, and date-based filters exclude it there.
func (a Assignment) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("invalid assignment %q: %w", a.Name, err)
	}
	return nil
}

// ParseDate parses a due-date string. Any time-of-day suffix (after a
// literal "T" or a space) is ignored; the date component must be
// YYYY-MM-DD or DD-MM-YYYY and name a real calendar date. The returned
// time is midnight UTC of that date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	for _, layout := range []string{"2006-01-02", "02-01-2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q (want YYYY-MM-DD or DD-MM-YYYY)", ErrInvalidDate, s)
}

// FormatDate renders a date in the canonical YYYY-MM-DD form.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
