package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the output sheet name expected by the payroll bulk upload.
const DefaultSheet = "Carga BUK"

// WorkbookOptions names the sheets written by WriteWorkbook. An empty
// TriageSheet writes the upload sheet only.
type WorkbookOptions struct {
	Sheet       string
	TriageSheet string
}

// WriteWorkbook writes the wide table as an unstyled xlsx workbook, one
// string cell per value so identifiers and codes keep their exact text.
func WriteWorkbook(w io.Writer, r *ShiftReport, opts WorkbookOptions) error {
	if opts.Sheet == "" {
		opts.Sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), opts.Sheet); err != nil {
		return fmt.Errorf("failed to name output sheet: %w", err)
	}
	if err := writeSheetRows(f, opts.Sheet, r.Records()); err != nil {
		return err
	}

	if opts.TriageSheet != "" {
		if _, err := f.NewSheet(opts.TriageSheet); err != nil {
			return fmt.Errorf("failed to create triage sheet: %w", err)
		}
		if err := writeSheetRows(f, opts.TriageSheet, r.TriageRecords()); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheetRows(f *excelize.File, sheet string, records [][]string) error {
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i+1, sheet, err)
		}
	}
	return nil
}

// WriteCSV writes the wide table as comma-separated UTF-8.
func WriteCSV(w io.Writer, r *ShiftReport) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(r.Records()); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// TriageRecords flattens the triage into one table for spreadsheet review.
func (r *ShiftReport) TriageRecords() [][]string {
	out := [][]string{{"Severity", "Category", "Subject", "Date", "Detail", "Rows"}}

	for _, is := range r.Triage.IdentityIssues {
		detail := string(is.Kind)
		if len(is.Candidates) > 0 {
			detail += ": " + strings.Join(is.Candidates, " | ")
		}
		out = append(out, []string{string(is.Severity), "identity", is.Label, "", detail, joinInts(is.Rows)})
	}
	for _, rc := range r.Triage.ReviewCells {
		out = append(out, []string{string(rc.Severity), "shift", rc.Person, rc.Date, fmt.Sprintf("%q -> %s", rc.Raw, rc.Canonical), strconv.Itoa(rc.Row)})
	}
	for _, cc := range r.Triage.CellConflicts {
		detail := fmt.Sprintf("kept %s (%s), dropped %s (%s)", cc.KeptCode, cc.KeptLabel, cc.DroppedCode, cc.DroppedLabel)
		out = append(out, []string{string(cc.Severity), "cell_conflict", cc.Identifier, cc.Date, detail, strconv.Itoa(cc.Row)})
	}
	for _, ci := range r.Triage.CatalogIssues {
		out = append(out, []string{string(SeverityLow), "catalog", ci.Entry.Code, "", ci.String(), strconv.Itoa(ci.Entry.SourceRow)})
	}
	for _, fc := range r.Triage.DuplicateIdentities {
		detail := fmt.Sprintf("%s: kept %q, dropped %q", fc.Field, fc.KeptValue, fc.DroppedValue)
		out = append(out, []string{string(SeverityLow), "duplicate_identity", fc.ExternalID, "", detail, strconv.Itoa(fc.DroppedRow)})
	}
	for _, c := range r.Triage.SkippedColumns {
		out = append(out, []string{string(SeverityLow), "skipped_column", c.Label, "", fmt.Sprintf("blank header over data in column %d", c.Index+1), ""})
	}
	for _, w := range r.Triage.RowWarnings {
		out = append(out, []string{string(SeverityLow), "input_row", w.Table, "", w.Message, strconv.Itoa(w.Row)})
	}
	return out
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
