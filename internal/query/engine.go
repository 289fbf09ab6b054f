// Package query answers filter and aggregation questions over an
// in-memory snapshot of assignment records. It never talks to the store;
// callers fetch a snapshot first and pass it in.
package query

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/duebot/duebot/internal/assignment"
)

// Engine evaluates queries against snapshots. The clock is injectable so
// "today" and "this week" are testable.
type Engine struct {
	now    func() time.Time
	logger *slog.Logger
}

// New creates an Engine using the wall clock.
func New() *Engine {
	return &Engine{now: time.Now, logger: slog.Default()}
}

// NewWithClock creates an Engine with a fixed clock, for tests and
// deterministic rendering.
func NewWithClock(now func() time.Time) *Engine {
	return &Engine{now: now, logger: slog.Default()}
}

// today returns the current calendar date at midnight UTC, matching what
// assignment.ParseDate produces.
func (e *Engine) today() time.Time {
	t := e.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dueMatching filters the snapshot by parsed due date. Records whose due
// date text doesn't parse are excluded from date-based queries, counted,
// and logged; they are not an error.
func (e *Engine) dueMatching(snapshot []assignment.Assignment, keep func(due time.Time) bool) []assignment.Assignment {
	var out []assignment.Assignment
	skipped := 0
	for _, a := range snapshot {
		due, err := a.Due()
		if err != nil {
			skipped++
			continue
		}
		if keep(due) {
			out = append(out, a)
		}
	}
	if skipped > 0 {
		e.logger.Debug("records excluded from date filter", "count", skipped)
	}
	return out
}

// DueOn returns records due on exactly the given calendar date.
func (e *Engine) DueOn(snapshot []assignment.Assignment, date time.Time) []assignment.Assignment {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return e.dueMatching(snapshot, func(due time.Time) bool { return due.Equal(day) })
}

// DueToday returns records due on the current date.
func (e *Engine) DueToday(snapshot []assignment.Assignment) []assignment.Assignment {
	return e.DueOn(snapshot, e.today())
}

// WeekBounds returns Monday and Sunday of the week containing today
// (ISO convention, week starts Monday).
func (e *Engine) WeekBounds() (monday, sunday time.Time) {
	today := e.today()
	offset := int(today.Weekday()) - 1
	if offset < 0 {
		offset = 6 // Sunday belongs to the week that started six days earlier
	}
	monday = today.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}

// DueThisWeek returns records whose due date falls within [Monday, Sunday]
// of the current week.
func (e *Engine) DueThisWeek(snapshot []assignment.Assignment) []assignment.Assignment {
	monday, sunday := e.WeekBounds()
	return e.dueMatching(snapshot, func(due time.Time) bool {
		return !due.Before(monday) && !due.After(sunday)
	})
}

// DueInCourse returns records carrying the course tag, matched
// case-insensitively across all of a record's tags.
func (e *Engine) DueInCourse(snapshot []assignment.Assignment, course string) []assignment.Assignment {
	var out []assignment.Assignment
	for _, a := range snapshot {
		if a.InCourse(course) {
			out = append(out, a)
		}
	}
	return out
}

// ExamsInCourse returns the course's records whose name mentions an exam.
func (e *Engine) ExamsInCourse(snapshot []assignment.Assignment, course string) []assignment.Assignment {
	var out []assignment.Assignment
	for _, a := range e.DueInCourse(snapshot, course) {
		if strings.Contains(strings.ToLower(a.Name), "exam") {
			out = append(out, a)
		}
	}
	return out
}

// Remaining returns every record not marked Completed. Unknown or
// malformed status values count as incomplete.
func (e *Engine) Remaining(snapshot []assignment.Assignment) []assignment.Assignment {
	var out []assignment.Assignment
	for _, a := range snapshot {
		if a.Status != assignment.StatusCompleted {
			out = append(out, a)
		}
	}
	return out
}

// Day is one calendar day of the weekly to-do list.
type Day struct {
	Date        time.Time               `json:"date"`
	Assignments []assignment.Assignment `json:"assignments"`
}

// WeeklyTodo returns this week's records sorted by due date ascending,
// ties broken by descending weightage (absent weightage sorts as 0),
// grouped by calendar day.
func (e *Engine) WeeklyTodo(snapshot []assignment.Assignment) []Day {
	week := e.DueThisWeek(snapshot)
	sort.SliceStable(week, func(i, j int) bool {
		di, _ := week[i].Due()
		dj, _ := week[j].Due()
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return weightageOrZero(week[i]) > weightageOrZero(week[j])
	})

	var days []Day
	for _, a := range week {
		due, _ := a.Due()
		if n := len(days); n > 0 && days[n-1].Date.Equal(due) {
			days[n-1].Assignments = append(days[n-1].Assignments, a)
			continue
		}
		days = append(days, Day{Date: due, Assignments: []assignment.Assignment{a}})
	}
	return days
}

func weightageOrZero(a assignment.Assignment) float64 {
	if a.Weightage == nil {
		return 0
	}
	return *a.Weightage
}

// GradeLine is one assignment's contribution to a course grade.
type GradeLine struct {
	Name      string  `json:"name"`
	Grade     float64 `json:"grade"`
	Weightage float64 `json:"weightage"`
	Reflected float64 `json:"reflected"`
}

// GradeReport is the weighted grade breakdown for one course.
type GradeReport struct {
	Course string      `json:"course"`
	Lines  []GradeLine `json:"lines"`
	// Ungraded lists course records missing a grade or weightage; they
	// don't contribute to the final score.
	Ungraded []string `json:"ungraded,omitempty"`
	// Final is the summed reflected score. Weightage is interpreted as a
	// percentage of the final grade, so reflected = grade * weightage / 100
	// and the final score needs no further normalization.
	Final float64 `json:"final"`
	// Graded is false when no record carried both grade and weightage.
	Graded bool `json:"graded"`
}

// CourseGrade aggregates the weighted course grade over records that carry
// both a grade and a weightage.
func (e *Engine) CourseGrade(snapshot []assignment.Assignment, course string) GradeReport {
	report := GradeReport{Course: course}
	for _, a := range e.DueInCourse(snapshot, course) {
		if a.Grade == nil || a.Weightage == nil {
			report.Ungraded = append(report.Ungraded, a.Name)
			continue
		}
		line := GradeLine{
			Name:      a.Name,
			Grade:     *a.Grade,
			Weightage: *a.Weightage,
			Reflected: *a.Grade * *a.Weightage / 100,
		}
		report.Lines = append(report.Lines, line)
		report.Final += line.Reflected
		report.Graded = true
	}
	return report
}
