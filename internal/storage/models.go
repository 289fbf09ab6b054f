package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with the natural-key
// uniqueness constraint on (name, course, due date).
var ErrDuplicate = errors.New("duplicate assignment")

// Job is a queued delivery task (outbound notification or calendar sync)
// processed asynchronously by the notify worker.
type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}

// Job types handled by the notify worker.
const (
	JobNotifyUpload = "notify_upload"
	JobCalendarSync = "calendar_sync"
)
