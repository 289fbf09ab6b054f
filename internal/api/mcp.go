package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/duebot/duebot/internal/assignment"
	"github.com/duebot/duebot/internal/ingest"
	"github.com/duebot/duebot/internal/query"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    snapshotStore
	Queries  *query.Engine
	Ingestor *ingest.Pipeline
	Calendar CalendarQueue // optional; if nil, sync_calendar returns an error
}

// snapshotStore is the slice of the store the MCP layer needs.
type snapshotStore interface {
	All(ctx context.Context) ([]assignment.Assignment, error)
}

// NewMCPServer creates an MCP server with all duebot tools and resources
// registered. A chat frontend drives assignment queries and uploads through
// these tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"duebot",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("duebot — assignment tracker: query due dates, grades, and weekly plans, and upload assignment CSVs."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("due_today",
			mcp.WithDescription("List assignments due today."),
		),
		mcpSnapshotTool(deps, func(d MCPDeps, snap []assignment.Assignment) any {
			return d.Queries.DueToday(snap)
		}),
	)

	s.AddTool(
		mcp.NewTool("due_this_week",
			mcp.WithDescription("List assignments due in the current Monday-to-Sunday week."),
		),
		mcpSnapshotTool(deps, func(d MCPDeps, snap []assignment.Assignment) any {
			return d.Queries.DueThisWeek(snap)
		}),
	)

	s.AddTool(
		mcp.NewTool("due_on",
			mcp.WithDescription("List assignments due on a specific date."),
			mcp.WithString("date", mcp.Description("Date in YYYY-MM-DD or DD-MM-YYYY form"), mcp.Required()),
		),
		mcpDueOn(deps),
	)

	s.AddTool(
		mcp.NewTool("due_in",
			mcp.WithDescription("List assignments for a course."),
			mcp.WithString("course", mcp.Description("Course name, e.g. CS101"), mcp.Required()),
		),
		mcpCourseTool(deps, func(d MCPDeps, snap []assignment.Assignment, course string) any {
			return d.Queries.DueInCourse(snap, course)
		}),
	)

	s.AddTool(
		mcp.NewTool("exam_in",
			mcp.WithDescription("List exams for a course (assignments whose name mentions an exam)."),
			mcp.WithString("course", mcp.Description("Course name"), mcp.Required()),
		),
		mcpCourseTool(deps, func(d MCPDeps, snap []assignment.Assignment, course string) any {
			return d.Queries.ExamsInCourse(snap, course)
		}),
	)

	s.AddTool(
		mcp.NewTool("remaining",
			mcp.WithDescription("List assignments not yet completed."),
		),
		mcpSnapshotTool(deps, func(d MCPDeps, snap []assignment.Assignment) any {
			return d.Queries.Remaining(snap)
		}),
	)

	s.AddTool(
		mcp.NewTool("course_grade",
			mcp.WithDescription("Weighted grade breakdown for a course."),
			mcp.WithString("course", mcp.Description("Course name"), mcp.Required()),
		),
		mcpCourseTool(deps, func(d MCPDeps, snap []assignment.Assignment, course string) any {
			return d.Queries.CourseGrade(snap, course)
		}),
	)

	s.AddTool(
		mcp.NewTool("weekly_todo",
			mcp.WithDescription("This week's assignments grouped by day, heaviest weightage first within a day."),
		),
		mcpSnapshotTool(deps, func(d MCPDeps, snap []assignment.Assignment) any {
			return d.Queries.WeeklyTodo(snap)
		}),
	)

	s.AddTool(
		mcp.NewTool("upload_csv",
			mcp.WithDescription("Upload assignments from CSV text (name, course, start_date, due_date, status, grade, weightage, repeat, repeat_count). Duplicate rows are skipped; row errors are reported, not fatal."),
			mcp.WithString("csv", mcp.Description("CSV content"), mcp.Required()),
		),
		mcpUploadCSV(deps),
	)

	s.AddTool(
		mcp.NewTool("sync_calendar",
			mcp.WithDescription("Queue a sweep that mirrors every due date into the calendar service."),
		),
		mcpSyncCalendar(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"assignments://all",
			"All Assignments",
			mcp.WithResourceDescription("Every tracked assignment as JSON, ordered by due date"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceAssignments(deps),
	)

	return s
}

func mcpSnapshotTool(deps MCPDeps, fn func(MCPDeps, []assignment.Assignment) any) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap, err := deps.Store.All(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("fetching assignments: %v", err)), nil
		}
		return mcpJSON(fn(deps, snap))
	}
}

func mcpCourseTool(deps MCPDeps, fn func(MCPDeps, []assignment.Assignment, string) any) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		course, err := req.RequireString("course")
		if err != nil {
			return mcpError("course is required"), nil
		}
		snap, err := deps.Store.All(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("fetching assignments: %v", err)), nil
		}
		return mcpJSON(fn(deps, snap, course))
	}
}

func mcpDueOn(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("date")
		if err != nil {
			return mcpError("date is required"), nil
		}
		date, err := assignment.ParseDate(raw)
		if err != nil {
			return mcpError(fmt.Sprintf("invalid date %q: %v", raw, err)), nil
		}
		snap, err := deps.Store.All(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("fetching assignments: %v", err)), nil
		}
		return mcpJSON(deps.Queries.DueOn(snap, date))
	}
}

func mcpUploadCSV(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		csvText, err := req.RequireString("csv")
		if err != nil {
			return mcpError("csv is required"), nil
		}
		rows, err := ingest.ReadRows(strings.NewReader(csvText))
		if err != nil {
			return mcpError(fmt.Sprintf("reading csv: %v", err)), nil
		}
		if len(rows) == 0 {
			return mcpError("empty csv upload"), nil
		}

		report, err := deps.Ingestor.Ingest(ctx, rows)
		if err != nil {
			return mcpError(fmt.Sprintf("ingest failed: %v", err)), nil
		}

		b, err := json.Marshal(report)
		if err != nil {
			return mcpError(fmt.Sprintf("marshalling report: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("%s\n%s", report.Summary(), b)), nil
	}
}

func mcpSyncCalendar(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Calendar == nil {
			return mcpError("calendar sync is not configured"), nil
		}
		if err := deps.Calendar.EnqueueCalendarSync(); err != nil {
			return mcpError(fmt.Sprintf("enqueueing calendar sync: %v", err)), nil
		}
		return mcpText("calendar sync queued"), nil
	}
}

func mcpResourceAssignments(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		snap, err := deps.Store.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetching assignments: %w", err)
		}
		if snap == nil {
			snap = []assignment.Assignment{}
		}

		b, err := json.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("marshalling assignments: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("marshalling result: %v", err)), nil
	}
	if string(b) == "null" {
		b = []byte("[]")
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
