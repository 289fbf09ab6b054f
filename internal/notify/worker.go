package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/duebot/duebot/internal/storage"
)

// JobStore abstracts the delivery job queue.
type JobStore interface {
	EnqueueJob(job storage.Job) error
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
}

// Sender delivers one notification message.
type Sender interface {
	Notify(ctx context.Context, message string) error
}

// EventSyncer mirrors store due dates into the calendar collaborator.
type EventSyncer interface {
	Sync(ctx context.Context) (created int, err error)
}

// Queue is a Notifier that defers delivery to the job queue instead of
// posting inline. The ingestion pipeline stays fast and a webhook outage
// degrades to retries rather than lost messages.
type Queue struct {
	jobs JobStore
}

// NewQueue wraps a job store as a queueing notifier.
func NewQueue(jobs JobStore) *Queue {
	return &Queue{jobs: jobs}
}

type notifyPayload struct {
	Message string `json:"message"`
}

// Notify enqueues a notify_upload job carrying the message.
func (q *Queue) Notify(ctx context.Context, message string) error {
	payload, err := json.Marshal(notifyPayload{Message: message})
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}
	job := storage.Job{
		ID:          uuid.New().String(),
		Type:        storage.JobNotifyUpload,
		PayloadJSON: string(payload),
	}
	if err := q.jobs.EnqueueJob(job); err != nil {
		return fmt.Errorf("queueing notification: %w", err)
	}
	return nil
}

// EnqueueCalendarSync queues a calendar_sync job.
func (q *Queue) EnqueueCalendarSync() error {
	job := storage.Job{
		ID:          uuid.New().String(),
		Type:        storage.JobCalendarSync,
		PayloadJSON: "{}",
	}
	if err := q.jobs.EnqueueJob(job); err != nil {
		return fmt.Errorf("queueing calendar sync: %w", err)
	}
	return nil
}

// Worker drains notify_upload and calendar_sync jobs from the queue.
type Worker struct {
	jobs     JobStore
	sender   Sender
	calendar EventSyncer // optional; nil fails calendar_sync jobs
	poll     time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(jobs JobStore, sender Sender, calendar EventSyncer, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		jobs:     jobs,
		sender:   sender,
		calendar: calendar,
		poll:     pollInterval,
		logger:   slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single job. Returns true if a job was
// processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.jobs.ClaimNextJob([]string{storage.JobNotifyUpload, storage.JobCalendarSync})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "type", job.Type, "error", err)
		if failErr := w.jobs.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.jobs.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	switch job.Type {
	case storage.JobNotifyUpload:
		if w.sender == nil {
			return fmt.Errorf("no notification sender configured")
		}
		var payload notifyPayload
		if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
			return fmt.Errorf("parsing payload: %w", err)
		}
		if err := w.sender.Notify(ctx, payload.Message); err != nil {
			return fmt.Errorf("sending notification: %w", err)
		}
		return nil

	case storage.JobCalendarSync:
		if w.calendar == nil {
			return fmt.Errorf("calendar sync is not configured")
		}
		created, err := w.calendar.Sync(ctx)
		if err != nil {
			return fmt.Errorf("syncing calendar: %w", err)
		}
		w.logger.Info("calendar sync complete", "events_created", created)
		return nil

	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}
