// Package ingest turns raw CSV rows into store records: parse, expand
// weekly recurrences, de-duplicate against the store's existing keys, and
// upload only what isn't there yet.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/duebot/duebot/internal/assignment"
	"github.com/duebot/duebot/internal/store"
)

// Notifier delivers a human-readable message about an uploaded record.
// Delivery failures are logged, never propagated.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// OutcomeKind classifies what happened to one candidate record.
type OutcomeKind string

const (
	// Uploaded: the candidate was absent and its create call succeeded.
	Uploaded OutcomeKind = "uploaded"
	// Skipped: a record with the same natural key already exists. Not an
	// error; no network call is made.
	Skipped OutcomeKind = "skipped"
	// Failed: the create call failed (store unreachable, auth, ...).
	Failed OutcomeKind = "failed"
	// Rejected: the row never produced a valid candidate (wrong column
	// count, empty required field, unparseable date).
	Rejected OutcomeKind = "rejected"
)

// Outcome records the fate of one candidate (or one unusable row).
type Outcome struct {
	Line   int             `json:"line"`
	Name   string          `json:"name,omitempty"`
	Course string          `json:"course,omitempty"`
	Kind   OutcomeKind     `json:"kind"`
	Key    *assignment.Key `json:"key,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

// Report is the complete result of one batch. Partial failures coexist
// with successes; a batch never aborts on a row-level problem.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
	Uploaded int       `json:"uploaded"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
	Rejected int       `json:"rejected"`
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Kind {
	case Uploaded:
		r.Uploaded++
	case Skipped:
		r.Skipped++
	case Failed:
		r.Failed++
	case Rejected:
		r.Rejected++
	}
}

// Summary renders the counts the way the batch result is reported to users.
func (r Report) Summary() string {
	return fmt.Sprintf("%d uploaded, %d skipped, %d failed, %d rejected", r.Uploaded, r.Skipped, r.Failed, r.Rejected)
}

// Pipeline ingests row batches into a store.
type Pipeline struct {
	store    store.Store
	notifier Notifier // optional
	logger   *slog.Logger
}

// New creates a Pipeline. notifier may be nil to disable upload
// notifications.
func New(s store.Store, notifier Notifier) *Pipeline {
	return &Pipeline{store: s, notifier: notifier, logger: slog.Default()}
}

// Ingest processes rows in order. The store's key set is fetched once up
// front and extended in memory as uploads succeed, so recurring siblings
// and repeated rows inside one batch dedup against each other without
// re-querying per row. Concurrent external writers can still race past
// the check; the store's own uniqueness constraint (where the backend has
// one) is the backstop, and duplicates degrade to at-least-once, never to
// a lost record.
func (p *Pipeline) Ingest(ctx context.Context, rows []Row) (Report, error) {
	existing, err := p.store.Keys(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("fetching existing keys: %w", err)
	}

	var report Report
	for _, row := range rows {
		tmpl, repeat, err := row.template()
		if err != nil {
			p.logger.Warn("rejecting row", "line", row.Line, "error", err)
			report.add(Outcome{Line: row.Line, Name: row.Name, Course: row.Course, Kind: Rejected, Reason: err.Error()})
			continue
		}

		candidates, err := assignment.Expand(tmpl, repeat)
		if err != nil {
			p.logger.Warn("rejecting row", "line", row.Line, "error", err)
			report.add(Outcome{Line: row.Line, Name: row.Name, Course: row.Course, Kind: Rejected, Reason: err.Error()})
			continue
		}

		for _, candidate := range candidates {
			key := assignment.KeyOf(candidate)
			outcome := Outcome{Line: row.Line, Name: candidate.Name, Course: key.Course, Key: &key}

			if _, ok := existing[key]; ok {
				p.logger.Info("skipping duplicate", "name", key.Name, "course", key.Course, "due", key.DueDate)
				outcome.Kind = Skipped
				report.add(outcome)
				continue
			}

			if err := p.store.Create(ctx, candidate); err != nil {
				p.logger.Warn("upload failed", "name", candidate.Name, "error", err)
				outcome.Kind = Failed
				outcome.Reason = err.Error()
				report.add(outcome)
				continue
			}

			existing[key] = struct{}{}
			outcome.Kind = Uploaded
			report.add(outcome)
			p.logger.Info("uploaded", "name", candidate.Name, "course", key.Course, "due", key.DueDate)
			p.notifyUpload(ctx, candidate)
		}
	}
	return report, nil
}

func (p *Pipeline) notifyUpload(ctx context.Context, a assignment.Assignment) {
	if p.notifier == nil {
		return
	}
	msg := fmt.Sprintf("Assignment uploaded: %s - %s, due %s", a.Name, a.Course(), a.DueDate)
	if a.Grade != nil {
		msg += fmt.Sprintf(", grade %.4g", *a.Grade)
	}
	if a.Weightage != nil {
		msg += fmt.Sprintf(", weightage %.4g", *a.Weightage)
	}
	if err := p.notifier.Notify(ctx, msg); err != nil {
		p.logger.Warn("upload notification failed", "name", a.Name, "error", err)
	}
}
