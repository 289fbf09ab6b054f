// Package calendar mirrors assignment due dates into an external calendar
// service over its JSON HTTP API. Event de-duplication is an existence
// check by title inside the event's time window, performed by the service;
// this package only asks the question before creating.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/duebot/duebot/internal/store"
)

// Event is one calendar entry.
type Event struct {
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Timezone    string    `json:"timezone"`
	Description string    `json:"description,omitempty"`
}

// Client talks to the calendar service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a Client for the given calendar API.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// exists asks the service for events with the same title inside the window.
func (c *Client) exists(ctx context.Context, e Event) (bool, error) {
	q := url.Values{}
	q.Set("title", e.Title)
	q.Set("from", e.Start.Format(time.RFC3339))
	q.Set("to", e.End.Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("querying events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("event query returned status %d", resp.StatusCode)
	}

	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return false, fmt.Errorf("decoding events: %w", err)
	}
	return len(events) > 0, nil
}

// Upsert creates the event unless one with the same title already sits in
// its time window. Returns true when a new event was created.
func (c *Client) Upsert(ctx context.Context, e Event) (bool, error) {
	ok, err := c.exists(ctx, e)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}

	body, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("encoding event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("creating event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return false, fmt.Errorf("event create returned status %d", resp.StatusCode)
	}
	return true, nil
}

// Syncer mirrors the store's due dates into the calendar.
type Syncer struct {
	store    store.Store
	client   *Client
	timezone string
	logger   *slog.Logger
}

// NewSyncer creates a Syncer. timezone is the IANA name stamped onto
// created events.
func NewSyncer(s store.Store, c *Client, timezone string) *Syncer {
	return &Syncer{store: s, client: c, timezone: timezone, logger: slog.Default()}
}

// Sync fetches a snapshot and upserts one all-day event per record with a
// parseable due date. Individual upsert failures don't stop the sweep;
// they are collected and returned after the full pass.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	records, err := s.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching snapshot: %w", err)
	}

	created := 0
	var errs []error
	for _, a := range records {
		due, err := a.Due()
		if err != nil {
			s.logger.Warn("skipping record with unparseable due date", "name", a.Name)
			continue
		}

		e := Event{
			Title:       fmt.Sprintf("%s (%s)", a.Name, a.Course()),
			Start:       due,
			End:         due.AddDate(0, 0, 1),
			Timezone:    s.timezone,
			Description: fmt.Sprintf("Status: %s", a.Status),
		}
		ok, err := s.client.Upsert(ctx, e)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Name, err))
			continue
		}
		if ok {
			created++
		}
	}
	return created, errors.Join(errs...)
}
