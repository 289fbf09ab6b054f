package assignment

import (
	"fmt"
	"strconv"
	"time"
)

// Expand generates the weekly copies of a recurring template. Copy i
// (0-based) shifts both start and due date by 7*i days and is named
// "<name><i+1>" so every copy carries a distinct key. Generated copies
// always start life as Not Started with a grade of 0 — the template's own
// status and grade apply only to itself, never to future weeks — while
// weightage is carried through unchanged. A repeat of 1 returns the
// template as-is, untouched.
func Expand(tmpl Assignment, repeat int) ([]Assignment, error) {
	if repeat < 1 {
		return nil, fmt.Errorf("repeat count must be >= 1, got %d", repeat)
	}
	if repeat == 1 {
		return []Assignment{tmpl}, nil
	}

	due, err := ParseDate(tmpl.DueDate)
	if err != nil {
		return nil, fmt.Errorf("expanding %q: %w", tmpl.Name, err)
	}
	var start time.Time
	if tmpl.StartDate != "" {
		if start, err = ParseDate(tmpl.StartDate); err != nil {
			return nil, fmt.Errorf("expanding %q: %w", tmpl.Name, err)
		}
	}

	out := make([]Assignment, 0, repeat)
	for i := 0; i < repeat; i++ {
		zero := 0.0
		c := tmpl
		c.Name = tmpl.Name + strconv.Itoa(i+1)
		c.DueDate = FormatDate(due.AddDate(0, 0, 7*i))
		if tmpl.StartDate != "" {
			c.StartDate = FormatDate(start.AddDate(0, 0, 7*i))
		}
		c.Status = StatusNotStarted
		c.Grade = &zero
		out = append(out, c)
	}
	return out, nil
}
