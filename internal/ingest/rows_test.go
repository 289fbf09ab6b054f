package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/duebot/duebot/internal/assignment"
)

func TestReadRows(t *testing.T) {
	csv := `name,course,start_date,due_date,status,grade,weightage,repeat,repeat_count
HW1, CS101 ,2024-03-01,2024-03-05,Not Started,90,30,false,
Quiz,CS357,2024-03-01,2024-03-05,,,5,true,3
`
	rows, err := ReadRows(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2 (header skipped)", len(rows))
	}

	if rows[0].Course != "CS101" {
		t.Errorf("Course = %q, want trimmed CS101", rows[0].Course)
	}
	if rows[1].Repeat != "true" || rows[1].RepeatCount != "3" {
		t.Errorf("repeat fields = %q/%q", rows[1].Repeat, rows[1].RepeatCount)
	}
}

func TestReadRows_WrongColumnCountIsMalformedNotFatal(t *testing.T) {
	csv := `HW1,CS101,2024-03-05
HW2,CS101,2024-03-01,2024-03-12,Not Started,,,false,
`
	rows, err := ReadRows(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].Malformed == "" {
		t.Error("three-column row should be marked malformed")
	}
	if rows[1].Malformed != "" || rows[1].Name != "HW2" {
		t.Errorf("second row = %+v", rows[1])
	}
}

func TestRowTemplate(t *testing.T) {
	tests := []struct {
		name    string
		row     Row
		wantErr error
	}{
		{"valid", Row{Name: "HW1", Course: "CS101", DueDate: "2024-03-05"}, nil},
		{"missing name", Row{Course: "CS101", DueDate: "2024-03-05"}, ErrMalformedRow},
		{"missing course", Row{Name: "HW1", DueDate: "2024-03-05"}, ErrMalformedRow},
		{"bad due date", Row{Name: "HW1", Course: "CS101", DueDate: "someday"}, assignment.ErrInvalidDate},
		{"bad grade", Row{Name: "HW1", Course: "CS101", DueDate: "2024-03-05", Grade: "A+"}, ErrMalformedRow},
		{"bad repeat count", Row{Name: "HW1", Course: "CS101", DueDate: "2024-03-05", Repeat: "true", RepeatCount: "weekly"}, ErrMalformedRow},
		{"zero repeat count", Row{Name: "HW1", Course: "CS101", DueDate: "2024-03-05", Repeat: "1", RepeatCount: "0"}, ErrMalformedRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.row.template()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("template: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRowTemplate_Fields(t *testing.T) {
	r := Row{
		Name:        "Quiz",
		Course:      "CS357",
		StartDate:   "2024-03-01",
		DueDate:     "2024-03-05",
		Status:      "in progress",
		Grade:       "87.5",
		Weightage:   "10",
		Repeat:      "yes",
		RepeatCount: "4",
	}
	a, repeat, err := r.template()
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if repeat != 4 {
		t.Errorf("repeat = %d, want 4", repeat)
	}
	if a.Status != assignment.StatusInProgress {
		t.Errorf("Status = %q", a.Status)
	}
	if a.Grade == nil || *a.Grade != 87.5 {
		t.Errorf("Grade = %v", a.Grade)
	}
	if a.Weightage == nil || *a.Weightage != 10 {
		t.Errorf("Weightage = %v", a.Weightage)
	}
}
