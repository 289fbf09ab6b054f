// Package notion implements the assignment store against the Notion API:
// each assignment is a page in a configured database, with Assignment
// (title), Course (multi_select), Due Date (date), Complete (status),
// Grade and Weightage (number) properties.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/duebot/duebot/internal/assignment"
	"github.com/duebot/duebot/internal/store"
)

const apiVersion = "2022-06-28"

// Notion's status property uses slightly different spellings than the CSV
// status column.
var statusToNotion = map[assignment.Status]string{
	assignment.StatusNotStarted: "Not started",
	assignment.StatusInProgress: "In progress",
	assignment.StatusCompleted:  "Complete",
}

// Client talks to the Notion API for a single assignment database.
type Client struct {
	baseURL    string
	token      string
	databaseID string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client for the given database. baseURL is usually
// https://api.notion.com; tests point it at a local server.
func New(baseURL, token, databaseID string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		databaseID: databaseID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.Default(),
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&e); decodeErr == nil && e.Message != "" {
			return fmt.Errorf("%w: %s %s: %s (%s)", store.ErrUnavailable, method, path, e.Message, e.Code)
		}
		return fmt.Errorf("%w: %s %s: status %d", store.ErrUnavailable, method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// property payload shapes, kept to the subset of the page schema we use.

type titleProp struct {
	Title []richText `json:"title"`
}

type richText struct {
	Text textContent `json:"text"`
}

type textContent struct {
	Content string `json:"content"`
}

type multiSelectProp struct {
	MultiSelect []selectOption `json:"multi_select"`
}

type selectOption struct {
	Name string `json:"name"`
}

type dateProp struct {
	Date *dateValue `json:"date"`
}

type dateValue struct {
	Start string `json:"start"`
}

type statusProp struct {
	Status selectOption `json:"status"`
}

type numberProp struct {
	Number *float64 `json:"number"`
}

type pageProperties struct {
	Assignment titleProp       `json:"Assignment"`
	Course     multiSelectProp `json:"Course"`
	DueDate    *dateProp       `json:"Due Date,omitempty"`
	Complete   statusProp      `json:"Complete"`
	Grade      *numberProp     `json:"Grade,omitempty"`
	Weightage  *numberProp     `json:"Weightage,omitempty"`
}

type createPageRequest struct {
	Parent     pageParent     `json:"parent"`
	Properties pageProperties `json:"properties"`
}

type pageParent struct {
	DatabaseID string `json:"database_id"`
}

// Create uploads one assignment as a new page.
func (c *Client) Create(ctx context.Context, a assignment.Assignment) error {
	notionStatus, ok := statusToNotion[a.Status]
	if !ok {
		notionStatus = statusToNotion[assignment.StatusNotStarted]
	}

	courses := make([]selectOption, len(a.Courses))
	for i, course := range a.Courses {
		courses[i] = selectOption{Name: course}
	}

	req := createPageRequest{
		Parent: pageParent{DatabaseID: c.databaseID},
		Properties: pageProperties{
			Assignment: titleProp{Title: []richText{{Text: textContent{Content: a.Name}}}},
			Course:     multiSelectProp{MultiSelect: courses},
			Complete:   statusProp{Status: selectOption{Name: notionStatus}},
		},
	}
	if a.DueDate != "" {
		req.Properties.DueDate = &dateProp{Date: &dateValue{Start: a.DueDate}}
	}
	if a.Grade != nil {
		req.Properties.Grade = &numberProp{Number: a.Grade}
	}
	if a.Weightage != nil {
		req.Properties.Weightage = &numberProp{Number: a.Weightage}
	}

	if err := c.do(ctx, http.MethodPost, "/v1/pages", req, nil); err != nil {
		return fmt.Errorf("creating page for %q: %w", a.Name, err)
	}
	return nil
}

type queryRequest struct {
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

type queryResponse struct {
	Results    []page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

type page struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"created_time"`
	Properties pageProperties `json:"properties"`
}

// All fetches every page in the database, following pagination. Pages that
// don't decode into a valid assignment (deleted titles, hand-edited rows)
// are logged and skipped rather than failing the snapshot.
func (c *Client) All(ctx context.Context) ([]assignment.Assignment, error) {
	var records []assignment.Assignment
	cursor := ""
	for {
		req := queryRequest{StartCursor: cursor, PageSize: 100}
		var resp queryResponse
		if err := c.do(ctx, http.MethodPost, "/v1/databases/"+c.databaseID+"/query", req, &resp); err != nil {
			return nil, fmt.Errorf("querying database: %w", err)
		}

		for _, p := range resp.Results {
			a, err := pageToAssignment(p)
			if err != nil {
				c.logger.Warn("skipping malformed page", "page_id", p.ID, "error", err)
				continue
			}
			records = append(records, a)
		}

		if !resp.HasMore || resp.NextCursor == nil {
			return records, nil
		}
		cursor = *resp.NextCursor
	}
}

// Keys derives the dedup key set from a full fetch. The Notion API has no
// cheaper projection for this.
func (c *Client) Keys(ctx context.Context) (map[assignment.Key]struct{}, error) {
	records, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	return store.KeySet(records), nil
}

func pageToAssignment(p page) (assignment.Assignment, error) {
	if len(p.Properties.Assignment.Title) == 0 {
		return assignment.Assignment{}, fmt.Errorf("page has no title")
	}

	a := assignment.Assignment{
		ID:        p.ID,
		Name:      p.Properties.Assignment.Title[0].Text.Content,
		Status:    assignment.NormalizeStatus(p.Properties.Complete.Status.Name),
		CreatedAt: p.CreatedAt,
	}
	for _, opt := range p.Properties.Course.MultiSelect {
		a.Courses = append(a.Courses, opt.Name)
	}
	if p.Properties.DueDate != nil && p.Properties.DueDate.Date != nil {
		a.DueDate = p.Properties.DueDate.Date.Start
	}
	if p.Properties.Grade != nil {
		a.Grade = p.Properties.Grade.Number
	}
	if p.Properties.Weightage != nil {
		a.Weightage = p.Properties.Weightage.Number
	}

	if err := a.Validate(); err != nil {
		return assignment.Assignment{}, err
	}
	return a, nil
}
