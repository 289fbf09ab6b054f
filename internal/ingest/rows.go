package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/duebot/duebot/internal/assignment"
)

// ErrMalformedRow is returned for a row with the wrong column count or an
// empty required field. The row is reported and skipped; the batch
// continues.
var ErrMalformedRow = errors.New("malformed row")

// rowColumns is the fixed CSV schema:
// name, course, start_date, due_date, status, grade, weightage, repeat, repeat_count
const rowColumns = 9

// Row is one raw CSV line, fields trimmed but otherwise unparsed.
type Row struct {
	Line        int
	Name        string
	Course      string
	StartDate   string
	DueDate     string
	Status      string
	Grade       string
	Weightage   string
	Repeat      string
	RepeatCount string

	// Malformed holds the reason a structurally broken line couldn't be
	// turned into fields. Such rows flow through the pipeline so the
	// outcome report stays complete.
	Malformed string
}

// ReadRows parses CSV input into rows. A header line (first field reading
// "name" or "assignment") is skipped. Lines with the wrong column count
// become malformed rows rather than aborting the read.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // column count checked per row
	cr.TrimLeadingSpace = true

	var rows []Row
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, fmt.Errorf("reading csv: %w", err)
		}
		line++

		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}

		if line == 1 && len(record) > 0 {
			switch strings.ToLower(record[0]) {
			case "name", "assignment":
				continue
			}
		}

		if len(record) != rowColumns {
			rows = append(rows, Row{
				Line:      line,
				Malformed: fmt.Sprintf("expected %d columns, got %d", rowColumns, len(record)),
			})
			continue
		}

		rows = append(rows, Row{
			Line:        line,
			Name:        record[0],
			Course:      record[1],
			StartDate:   record[2],
			DueDate:     record[3],
			Status:      record[4],
			Grade:       record[5],
			Weightage:   record[6],
			Repeat:      record[7],
			RepeatCount: record[8],
		})
	}
}

// template converts the row into the candidate record plus its repeat
// count (1 for non-recurring rows).
func (r Row) template() (assignment.Assignment, int, error) {
	if r.Malformed != "" {
		return assignment.Assignment{}, 0, fmt.Errorf("%w: %s", ErrMalformedRow, r.Malformed)
	}
	if r.Name == "" || r.Course == "" {
		return assignment.Assignment{}, 0, fmt.Errorf("%w: name and course are required", ErrMalformedRow)
	}
	if _, err := assignment.ParseDate(r.DueDate); err != nil {
		return assignment.Assignment{}, 0, err
	}

	a := assignment.Assignment{
		Name:      r.Name,
		Courses:   []string{r.Course},
		StartDate: r.StartDate,
		DueDate:   r.DueDate,
		Status:    assignment.NormalizeStatus(r.Status),
	}
	if r.Grade != "" {
		g, err := strconv.ParseFloat(r.Grade, 64)
		if err != nil {
			return assignment.Assignment{}, 0, fmt.Errorf("%w: grade %q is not a number", ErrMalformedRow, r.Grade)
		}
		a.Grade = &g
	}
	if r.Weightage != "" {
		w, err := strconv.ParseFloat(r.Weightage, 64)
		if err != nil {
			return assignment.Assignment{}, 0, fmt.Errorf("%w: weightage %q is not a number", ErrMalformedRow, r.Weightage)
		}
		a.Weightage = &w
	}
	if err := a.Validate(); err != nil {
		return assignment.Assignment{}, 0, err
	}

	repeat := 1
	if truthy(r.Repeat) {
		n, err := strconv.Atoi(r.RepeatCount)
		if err != nil || n < 1 {
			return assignment.Assignment{}, 0, fmt.Errorf("%w: repeat count %q must be a positive integer", ErrMalformedRow, r.RepeatCount)
		}
		repeat = n
	}
	return a, repeat, nil
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
