package assignment

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate_BothFormats(t *testing.T) {
	want := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   string
	}{
		{"iso", "2024-03-05"},
		{"european", "05-03-2024"},
		{"iso with T suffix", "2024-03-05T13:45:00"},
		{"iso with space suffix", "2024-03-05 00:00:00"},
		{"leading whitespace", "  2024-03-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if err != nil {
				t.Fatalf("ParseDate(%q): %v", tt.in, err)
			}
			if !got.Equal(want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, want)
			}
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	tests := []string{
		"",
		"March 5, 2024",
		"2024/03/05",
		"2024-13-01", // no 13th month
		"2024-02-31", // February has no 31st
		"32-01-2024", // no 32nd day
		"05-03-24",
	}
	for _, in := range tests {
		if _, err := ParseDate(in); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) error = %v, want ErrInvalidDate", in, err)
		}
	}
}

func TestKeyOf_NormalizesDateFormats(t *testing.T) {
	a := Assignment{Name: "HW1", Courses: []string{"CS101"}, DueDate: "2024-03-05"}
	b := Assignment{Name: "HW1", Courses: []string{"CS101"}, DueDate: "05-03-2024"}

	if KeyOf(a) != KeyOf(b) {
		t.Errorf("keys differ for the same date in two formats: %+v vs %+v", KeyOf(a), KeyOf(b))
	}
}

func TestKeyOf_FirstCourseTagOnly(t *testing.T) {
	a := Assignment{Name: "HW1", Courses: []string{"CS101", "CS598"}, DueDate: "2024-03-05"}

	k := KeyOf(a)
	if k.Course != "CS101" {
		t.Errorf("Key.Course = %q, want first tag CS101", k.Course)
	}
}

func TestKeyOf_MalformedDateKeptVerbatim(t *testing.T) {
	a := Assignment{Name: "HW1", Courses: []string{"CS101"}, DueDate: "someday"}
	b := Assignment{Name: "HW1", Courses: []string{"CS101"}, DueDate: "someday"}

	if KeyOf(a) != KeyOf(b) {
		t.Error("equally-malformed due dates should still produce equal keys")
	}
	if KeyOf(a).DueDate != "someday" {
		t.Errorf("Key.DueDate = %q, want verbatim text", KeyOf(a).DueDate)
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"Not Started", StatusNotStarted},
		{"In Progress", StatusInProgress},
		{"in_progress", StatusInProgress},
		{"Completed", StatusCompleted},
		{"complete", StatusCompleted},
		{"DONE", StatusCompleted},
		{"", StatusNotStarted},
		{"garbage", StatusNotStarted},
	}
	for _, tt := range tests {
		if got := NormalizeStatus(tt.in); got != tt.want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	g := 85.0
	w := 120.0

	tests := []struct {
		name    string
		a       Assignment
		wantErr bool
	}{
		{"valid", Assignment{Name: "HW1", Courses: []string{"CS101"}, DueDate: "2024-03-05", Grade: &g}, false},
		{"missing name", Assignment{Courses: []string{"CS101"}, DueDate: "2024-03-05"}, true},
		{"missing course", Assignment{Name: "HW1", DueDate: "2024-03-05"}, true},
		{"empty course tag", Assignment{Name: "HW1", Courses: []string{""}, DueDate: "2024-03-05"}, true},
		{"missing due date", Assignment{Name: "HW1", Courses: []string{"CS101"}}, true},
		{"unparseable due date kept", Assignment{Name: "HW1", Courses: []string{"CS101"}, DueDate: "soon"}, false},
		{"weightage over 100", Assignment{Name: "HW1", Courses: []string{"CS101"}, DueDate: "2024-03-05", Weightage: &w}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.a.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInCourse_CaseInsensitive(t *testing.T) {
	a := Assignment{Name: "HW1", Courses: []string{"CS101", "PLPA"}, DueDate: "2024-03-05"}

	if !a.InCourse("cs101") {
		t.Error("InCourse(cs101) = false, want true")
	}
	if !a.InCourse("plpa") {
		t.Error("InCourse(plpa) = false, want true (secondary tag)")
	}
	if a.InCourse("CS598") {
		t.Error("InCourse(CS598) = true, want false")
	}
}
