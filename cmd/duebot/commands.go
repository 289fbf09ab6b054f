package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/duebot/duebot/internal/assignment"
	"github.com/duebot/duebot/internal/config"
	"github.com/duebot/duebot/internal/ingest"
	"github.com/duebot/duebot/internal/query"
)

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file.csv>",
	Short: "Upload assignments from a CSV file",
	Long: `Upload assignments from a CSV file.

Expected columns:
  name, course, start_date, due_date, status, grade, weightage, repeat, repeat_count

Dates accept YYYY-MM-DD or DD-MM-YYYY, optionally with a time suffix.
Rows already present (same name, course, and due date) are skipped; broken
rows are reported without aborting the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.postCSV(cmd.Context(), "/upload", data)
		if err != nil {
			return err
		}

		var report ingest.Report
		if err := decodeJSON(resp, &report); err != nil {
			return err
		}

		printSuccess("%s", report.Summary())
		for _, o := range report.Outcomes {
			switch o.Kind {
			case ingest.Failed:
				printError("line %d (%s): %s", o.Line, o.Name, o.Reason)
			case ingest.Rejected:
				printWarning("line %d: %s", o.Line, o.Reason)
			}
		}
		return nil
	},
}

// --- due ---

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "Query assignments by due date",
}

var dueTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "Assignments due today",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listAssignments(cmd, "/assignments/due-today", "Nothing due today.")
	},
}

var dueWeekCmd = &cobra.Command{
	Use:   "week",
	Short: "Assignments due this week (Monday through Sunday)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listAssignments(cmd, "/assignments/due-this-week", "Nothing due this week.")
	},
}

var dueOnCmd = &cobra.Command{
	Use:   "on <date>",
	Short: "Assignments due on a date (YYYY-MM-DD or DD-MM-YYYY)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/assignments/due-on?date=" + url.QueryEscape(args[0])
		return listAssignments(cmd, path, "Nothing due on "+args[0]+".")
	},
}

var dueInCmd = &cobra.Command{
	Use:   "in <course>",
	Short: "Assignments for a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/courses/" + url.PathEscape(args[0]) + "/assignments"
		return listAssignments(cmd, path, "No assignments for "+args[0]+".")
	},
}

func init() {
	dueCmd.AddCommand(dueTodayCmd)
	dueCmd.AddCommand(dueWeekCmd)
	dueCmd.AddCommand(dueOnCmd)
	dueCmd.AddCommand(dueInCmd)
}

// --- exams ---

var examsCmd = &cobra.Command{
	Use:   "exams <course>",
	Short: "Exams for a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/courses/" + url.PathEscape(args[0]) + "/exams"
		return listAssignments(cmd, path, "No exams found for "+args[0]+".")
	},
}

// --- remaining ---

var remainingCmd = &cobra.Command{
	Use:   "remaining",
	Short: "Assignments not yet completed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listAssignments(cmd, "/assignments/remaining", "All caught up.")
	},
}

// --- grade ---

var gradeCmd = &cobra.Command{
	Use:   "grade <course>",
	Short: "Weighted grade breakdown for a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/courses/"+url.PathEscape(args[0])+"/grade")
		if err != nil {
			return err
		}

		var report query.GradeReport
		if err := decodeJSON(resp, &report); err != nil {
			return err
		}

		if !report.Graded {
			fmt.Printf("No graded assignments for %s yet.\n", args[0])
			return nil
		}

		fmt.Printf("%s\n", colorize(colorBold, report.Course))
		for _, l := range report.Lines {
			fmt.Printf("  %-30s %6.2f × %5.2f%% = %6.2f\n", l.Name, l.Grade, l.Weightage, l.Reflected)
		}
		if len(report.Ungraded) > 0 {
			fmt.Printf("  ungraded: %s\n", strings.Join(report.Ungraded, ", "))
		}
		fmt.Printf("  %s %.2f\n", colorize(colorBold, "final:"), report.Final)
		return nil
	},
}

// --- todo ---

var todoCmd = &cobra.Command{
	Use:   "todo",
	Short: "This week's assignments grouped by day",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/assignments/weekly-todo")
		if err != nil {
			return err
		}

		var days []query.Day
		if err := decodeJSON(resp, &days); err != nil {
			return err
		}

		if len(days) == 0 {
			fmt.Println("Nothing planned this week.")
			return nil
		}

		for _, d := range days {
			fmt.Printf("%s\n", colorize(colorBold, d.Date.Format("Monday, 2 January")))
			for _, a := range d.Assignments {
				fmt.Printf("  %s\n", assignmentLine(a))
			}
		}
		return nil
	},
}

// --- calendar ---

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Calendar integration",
}

var calendarSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror every due date into the calendar service",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/calendar/sync")
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Calendar sync queued")
		return nil
	},
}

func init() {
	calendarCmd.AddCommand(calendarSyncCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// --- shared rendering ---

func listAssignments(cmd *cobra.Command, path, emptyMsg string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	resp, err := client.get(cmd.Context(), path)
	if err != nil {
		return err
	}

	var list []assignment.Assignment
	if err := decodeJSON(resp, &list); err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Println(emptyMsg)
		return nil
	}
	for _, a := range list {
		fmt.Println(assignmentLine(a))
	}
	return nil
}

func assignmentLine(a assignment.Assignment) string {
	line := fmt.Sprintf("%-12s %-10s %-30s [%s]", a.DueDate, a.Course(), a.Name, a.Status)
	if a.Grade != nil {
		line += fmt.Sprintf(" %.1f", *a.Grade)
		if a.Weightage != nil {
			line += fmt.Sprintf(" (%.1f%%)", *a.Weightage)
		}
	}
	return line
}
