package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"shiftbuk/pkg/schema"
)

// BlankColumnPrefix labels grid columns whose header cell is empty.
const BlankColumnPrefix = "_blank_"

// DateLabelLayout is the rendering of every date-parseable header.
const DateLabelLayout = "02-01-2006"

// Excel serials below this are treated as plain numbers (e.g. a day-of-month
// header "15"), not dates. 10000 is 1927-05-18.
const minDateSerial = 10000

// maxDateSerial is 9999-12-31.
const maxDateSerial = 2958465

// headerDateLayouts are tried in order. Day-first layouts precede any
// month-first reading of the same text.
var headerDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"02-01-06",
	"2-1-06",
	"02/01/06",
	"2/1/06",
	"02/01/2006 15:04:05",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// ReshapeOptions locates the header and person label inside the grid.
type ReshapeOptions struct {
	// HeaderRow is the 0-indexed row holding the date labels. Person rows
	// start on the next row.
	HeaderRow int
	// PersonColumn is the 0-indexed column holding person labels.
	PersonColumn int
}

// Column describes one non-person column of the grid.
type Column struct {
	Index   int    `json:"index"`
	Raw     string `json:"raw"`
	Label   string `json:"label"`
	IsDate  bool   `json:"isDate"`
	Skipped bool   `json:"skipped"`
	HasData bool   `json:"hasData"`
}

// Reshaped is the grid in long format: one cell per (person, date column).
type Reshaped struct {
	Table   string                 `json:"table"`
	Columns []Column               `json:"columns"`
	Cells   []schema.ShiftGridCell `json:"cells"`
	Persons []string               `json:"persons"`
}

// DateLabels returns the labels of all shift columns in sheet order.
func (r *Reshaped) DateLabels() []string {
	labels := make([]string, 0, len(r.Columns))
	for _, c := range r.Columns {
		if !c.Skipped {
			labels = append(labels, c.Label)
		}
	}
	return labels
}

// SkippedColumns returns the columns excluded for having a blank header.
func (r *Reshaped) SkippedColumns() []Column {
	var out []Column
	for _, c := range r.Columns {
		if c.Skipped {
			out = append(out, c)
		}
	}
	return out
}

// Reshape converts a "one row per person, one column per date" grid into
// long-format cells. Rows with a blank person label are dropped; every other
// row yields one cell per shift column, empty cells included.
func Reshape(t schema.Table, opts ReshapeOptions) (*Reshaped, error) {
	if opts.HeaderRow < 0 || opts.HeaderRow >= len(t.Rows) {
		return nil, schema.Structuralf(t.Name, "header row %d out of range (grid has %d rows)", opts.HeaderRow, len(t.Rows))
	}

	width := 0
	for _, row := range t.Rows[opts.HeaderRow:] {
		if len(row) > width {
			width = len(row)
		}
	}
	if opts.PersonColumn < 0 || opts.PersonColumn >= width {
		return nil, schema.Structuralf(t.Name, "person column %d out of range (grid has %d columns)", opts.PersonColumn, width)
	}

	header := t.Rows[opts.HeaderRow]
	used := make(map[string]bool, width)
	next := make(map[string]int, width)
	result := &Reshaped{Table: t.Name}

	for col := 0; col < width; col++ {
		if col == opts.PersonColumn {
			continue
		}
		raw := cellText(header, col)
		c := Column{Index: col, Raw: raw}

		if raw == "" {
			c.Label = fmt.Sprintf("%s%d", BlankColumnPrefix, col)
			c.Skipped = true
			for _, row := range t.Rows[opts.HeaderRow+1:] {
				if cellText(row, col) != "" {
					c.HasData = true
					break
				}
			}
		} else {
			label, isDate := FormatDateLabel(raw)
			c.Label = uniqueLabel(label, used, next)
			c.IsDate = isDate
		}
		used[c.Label] = true
		result.Columns = append(result.Columns, c)
	}

	if len(result.DateLabels()) == 0 {
		return nil, schema.Structuralf(t.Name, "header row %d has no date columns", opts.HeaderRow)
	}

	seen := make(map[string]bool)
	for i := opts.HeaderRow + 1; i < len(t.Rows); i++ {
		row := t.Rows[i]
		person := cellText(row, opts.PersonColumn)
		if person == "" {
			continue
		}
		if !seen[person] {
			seen[person] = true
			result.Persons = append(result.Persons, person)
		}
		for _, c := range result.Columns {
			if c.Skipped {
				continue
			}
			result.Cells = append(result.Cells, schema.ShiftGridCell{
				PersonLabel: person,
				DateLabel:   c.Label,
				RawValue:    cellText(row, c.Index),
				Row:         i + 1,
				Column:      c.Index,
			})
		}
	}

	return result, nil
}

// FormatDateLabel renders a header cell as DD-MM-YYYY when it holds a date
// (an Excel serial or a recognized textual layout). Otherwise the trimmed
// original text is returned with false.
func FormatDateLabel(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial >= minDateSerial && serial <= maxDateSerial {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return t.Format(DateLabelLayout), true
			}
		}
		return s, false
	}

	for _, layout := range headerDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLabelLayout), true
		}
	}
	return s, false
}

// uniqueLabel appends ".1", ".2", ... to repeated labels, skipping any
// suffix that collides with a label already in use.
func uniqueLabel(label string, used map[string]bool, next map[string]int) string {
	if !used[label] {
		return label
	}
	n := next[label]
	for {
		n++
		candidate := fmt.Sprintf("%s.%d", label, n)
		if !used[candidate] {
			next[label] = n
			return candidate
		}
	}
}

func cellText(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
