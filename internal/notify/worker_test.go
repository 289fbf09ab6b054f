package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/duebot/duebot/internal/storage"
)

// fakeJobs is an in-memory JobStore double.
type fakeJobs struct {
	queue     []storage.Job
	completed []string
	failed    map[string]string
}

func (f *fakeJobs) EnqueueJob(job storage.Job) error {
	f.queue = append(f.queue, job)
	return nil
}

func (f *fakeJobs) ClaimNextJob(types []string) (*storage.Job, error) {
	for i, j := range f.queue {
		for _, t := range types {
			if j.Type == t {
				f.queue = append(f.queue[:i], f.queue[i+1:]...)
				return &j, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeJobs) CompleteJob(id string) error {
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeJobs) FailJob(id string, errMsg string) error {
	if f.failed == nil {
		f.failed = make(map[string]string)
	}
	f.failed[id] = errMsg
	return nil
}

type fakeSender struct {
	messages []string
	err      error
}

func (s *fakeSender) Notify(ctx context.Context, message string) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, message)
	return nil
}

type fakeSyncer struct {
	created int
	err     error
	calls   int
}

func (s *fakeSyncer) Sync(ctx context.Context) (int, error) {
	s.calls++
	return s.created, s.err
}

func TestQueueNotifyEnqueuesJob(t *testing.T) {
	jobs := &fakeJobs{}
	q := NewQueue(jobs)

	if err := q.Notify(context.Background(), "hello"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(jobs.queue) != 1 {
		t.Fatalf("queue length = %d, want 1", len(jobs.queue))
	}
	if jobs.queue[0].Type != storage.JobNotifyUpload {
		t.Errorf("job type = %q", jobs.queue[0].Type)
	}
	if jobs.queue[0].ID == "" {
		t.Error("job ID not assigned")
	}
}

func TestWorkerDeliversNotification(t *testing.T) {
	jobs := &fakeJobs{}
	sender := &fakeSender{}
	q := NewQueue(jobs)
	if err := q.Notify(context.Background(), "HW1 uploaded"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	w := NewWorker(jobs, sender, nil, 0)
	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !done {
		t.Fatal("RunOnce = false, want a processed job")
	}
	if len(sender.messages) != 1 || sender.messages[0] != "HW1 uploaded" {
		t.Errorf("messages = %v", sender.messages)
	}
	if len(jobs.completed) != 1 {
		t.Errorf("completed = %v", jobs.completed)
	}
}

func TestWorkerMarksFailedDelivery(t *testing.T) {
	jobs := &fakeJobs{}
	q := NewQueue(jobs)
	if err := q.Notify(context.Background(), "HW1 uploaded"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	w := NewWorker(jobs, &fakeSender{err: errors.New("webhook 500")}, nil, 0)
	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !done {
		t.Fatal("RunOnce = false, want true (failure still counts as processed)")
	}
	if len(jobs.failed) != 1 {
		t.Errorf("failed = %v, want the delivery marked failed", jobs.failed)
	}
	if len(jobs.completed) != 0 {
		t.Errorf("completed = %v, want none", jobs.completed)
	}
}

func TestWorkerRunsCalendarSync(t *testing.T) {
	jobs := &fakeJobs{}
	syncer := &fakeSyncer{created: 3}
	q := NewQueue(jobs)
	if err := q.EnqueueCalendarSync(); err != nil {
		t.Fatalf("EnqueueCalendarSync: %v", err)
	}

	w := NewWorker(jobs, &fakeSender{}, syncer, 0)
	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if syncer.calls != 1 {
		t.Errorf("Sync calls = %d, want 1", syncer.calls)
	}
	if len(jobs.completed) != 1 {
		t.Errorf("completed = %v", jobs.completed)
	}
}

func TestWorkerCalendarSyncWithoutSyncerFails(t *testing.T) {
	jobs := &fakeJobs{}
	q := NewQueue(jobs)
	if err := q.EnqueueCalendarSync(); err != nil {
		t.Fatalf("EnqueueCalendarSync: %v", err)
	}

	w := NewWorker(jobs, &fakeSender{}, nil, 0)
	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(jobs.failed) != 1 {
		t.Errorf("failed = %v, want the job failed", jobs.failed)
	}
}

func TestWorkerIdleQueue(t *testing.T) {
	w := NewWorker(&fakeJobs{}, &fakeSender{}, nil, 0)
	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if done {
		t.Error("RunOnce = true on an empty queue")
	}
}
