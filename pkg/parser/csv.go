package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"shiftbuk/pkg/schema"
)

// ParseWarning represents a non-fatal issue encountered during CSV parsing.
type ParseWarning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// sniffLines is how many non-empty lines sniffDelimiter inspects.
const sniffLines = 5

// ReadCSVGrid parses CSV bytes into a raw rectangular table. No row is
// treated as a header here: the grid's header offset is only known to the
// reshaper. Rows are padded to the widest row; unreadable rows become warnings.
func ReadCSVGrid(name string, data []byte) (schema.Table, []ParseWarning, error) {
	decoded, _, err := DetectAndDecode(data)
	if err != nil {
		return schema.Table{}, nil, fmt.Errorf("encoding detection failed: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = sniffDelimiter(decoded)
	// Allow variable number of fields per record — we handle padding ourselves.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	var warnings []ParseWarning
	width := 0
	rowNum := 0

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			warnings = append(warnings, ParseWarning{
				Row:     rowNum,
				Message: fmt.Sprintf("parse error: %v", err),
			})
			// Keep row positions stable so header offsets stay meaningful.
			rows = append(rows, nil)
			continue
		}
		if len(row) > width {
			width = len(row)
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return schema.Table{}, warnings, schema.Structuralf(name, "empty file")
	}

	for i, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			rows[i] = padded
		}
	}

	return schema.Table{Name: name, Rows: rows}, warnings, nil
}

// sniffDelimiter picks ';' when the first few non-empty lines hold more
// semicolons than commas, as produced by spreadsheet exports in comma-decimal
// locales. A title row without delimiters ("Enero 2024") does not decide.
func sniffDelimiter(data []byte) rune {
	semis, commas := 0, 0
	lines := 0
	for rest := data; len(rest) > 0 && lines < sniffLines; {
		line := rest
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line, rest = rest[:i], rest[i+1:]
		} else {
			rest = nil
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		semis += bytes.Count(line, []byte{';'})
		commas += bytes.Count(line, []byte{','})
		lines++
	}
	if semis > commas {
		return ';'
	}
	return ','
}
