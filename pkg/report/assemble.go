package report

import (
	"shiftbuk/pkg/engine"
	"shiftbuk/pkg/parser"
	"shiftbuk/pkg/schema"
	"shiftbuk/pkg/shift"
)

// Identifier column markers for labels that did not resolve.
const (
	DefaultAmbiguousMarker = "ERROR: MULTIPLE MATCHES"
	DefaultNotFoundMarker  = "ERROR: NO MATCH"
)

// Headers names the fixed output columns.
type Headers struct {
	Identifier string `yaml:"identifier" json:"identifier"`
	Name       string `yaml:"name" json:"name"`
	Department string `yaml:"department" json:"department"`
	Manager    string `yaml:"manager" json:"manager"`
}

// DefaultHeaders matches the payroll bulk-upload layout.
var DefaultHeaders = Headers{
	Identifier: "RUT",
	Name:       "Nombre",
	Department: "Departamento",
	Manager:    "Jefatura",
}

// AssembleOptions configures the wide output table.
type AssembleOptions struct {
	Headers           Headers
	IncludeAttributes bool
	AmbiguousMarker   string
	NotFoundMarker    string
}

func (o *AssembleOptions) withDefaults() {
	if o.Headers.Identifier == "" {
		o.Headers.Identifier = DefaultHeaders.Identifier
	}
	if o.Headers.Name == "" {
		o.Headers.Name = DefaultHeaders.Name
	}
	if o.Headers.Department == "" {
		o.Headers.Department = DefaultHeaders.Department
	}
	if o.Headers.Manager == "" {
		o.Headers.Manager = DefaultHeaders.Manager
	}
	if o.AmbiguousMarker == "" {
		o.AmbiguousMarker = DefaultAmbiguousMarker
	}
	if o.NotFoundMarker == "" {
		o.NotFoundMarker = DefaultNotFoundMarker
	}
}

// Input is everything the assembler joins.
type Input struct {
	Grid              *parser.Reshaped
	Resolutions       map[string]engine.Resolution
	Codes             *shift.CodeTable
	CatalogIssues     []shift.CatalogIssue
	IdentityConflicts []engine.FieldConflict
	RowWarnings       []schema.RowWarning
}

// WideRow is one output row: one identity (or unresolved label) with a code
// per date.
type WideRow struct {
	Identifier string            `json:"identifier"`
	Name       string            `json:"name"`
	Department string            `json:"department"`
	Manager    string            `json:"manager"`
	MatchKind  engine.MatchKind  `json:"matchKind"`
	Labels     []string          `json:"labels"`
	Codes      map[string]string `json:"codes"`
}

// WideTable is the pivoted result, dates in first-encountered order.
type WideTable struct {
	Dates []string  `json:"dates"`
	Rows  []WideRow `json:"rows"`
}

// Stats contains aggregate statistics about one run.
type Stats struct {
	Persons        int `json:"persons"`
	OutputRows     int `json:"outputRows"`
	ResolvedRows   int `json:"resolvedRows"`
	DateColumns    int `json:"dateColumns"`
	SkippedColumns int `json:"skippedColumns"`
	Cells          int `json:"cells"`
	CodedCells     int `json:"codedCells"`
	RestCells      int `json:"restCells"`
	ReviewCells    int `json:"reviewCells"`
	IdentityMisses int `json:"identityMisses"`
	CellConflicts  int `json:"cellConflicts"`
	CatalogCodes   int `json:"catalogCodes"`
}

// ShiftReport is the final artifact: the wide table plus triage.
type ShiftReport struct {
	RunID   string          `json:"runId"`
	Table   WideTable       `json:"table"`
	Triage  Triage          `json:"triage"`
	Stats   Stats           `json:"stats"`
	Options AssembleOptions `json:"-"`
}

// Assemble translates every grid cell, joins identity resolutions and pivots
// the long records into one row per distinct resolved identity. Labels that
// did not resolve keep their own row with a marker identifier. Every grid
// cell ends up either in the table or in Triage.CellConflicts.
func Assemble(in Input, opts AssembleOptions) *ShiftReport {
	opts.withDefaults()

	report := &ShiftReport{
		Table:   WideTable{Dates: in.Grid.DateLabels()},
		Options: opts,
	}
	report.Triage.CatalogIssues = in.CatalogIssues
	report.Triage.DuplicateIdentities = in.IdentityConflicts
	report.Triage.RowWarnings = in.RowWarnings

	rowIndex := make(map[string]int)
	cellLabel := make(map[string]map[string]string) // row key -> date -> label
	labelRows := make(map[string][]int)

	for _, cell := range in.Grid.Cells {
		res, ok := in.Resolutions[cell.PersonLabel]
		if !ok {
			res = engine.Resolution{Label: cell.PersonLabel, Kind: engine.MatchNotFound}
		}

		if rows := labelRows[cell.PersonLabel]; len(rows) == 0 || rows[len(rows)-1] != cell.Row {
			labelRows[cell.PersonLabel] = append(rows, cell.Row)
		}

		key := rowKey(res, cell.PersonLabel)
		idx, exists := rowIndex[key]
		if !exists {
			idx = len(report.Table.Rows)
			rowIndex[key] = idx
			cellLabel[key] = make(map[string]string)
			report.Table.Rows = append(report.Table.Rows, newRow(res, cell.PersonLabel, opts))
		}
		row := &report.Table.Rows[idx]
		if !containsString(row.Labels, cell.PersonLabel) {
			row.Labels = append(row.Labels, cell.PersonLabel)
		}

		tr := in.Codes.Translate(cell.RawValue)
		report.Stats.Cells++

		if kept, taken := row.Codes[cell.DateLabel]; taken {
			report.Triage.CellConflicts = append(report.Triage.CellConflicts, CellConflict{
				Identifier:   row.Identifier,
				Date:         cell.DateLabel,
				KeptLabel:    cellLabel[key][cell.DateLabel],
				KeptCode:     kept,
				DroppedLabel: cell.PersonLabel,
				DroppedCode:  tr.Code,
				Row:          cell.Row,
				Severity:     SeverityMedium,
			})
			continue
		}
		row.Codes[cell.DateLabel] = tr.Code
		cellLabel[key][cell.DateLabel] = cell.PersonLabel

		switch {
		case !tr.Hit:
			report.Stats.ReviewCells++
			report.Triage.ReviewCells = append(report.Triage.ReviewCells, ReviewCell{
				Person:     cell.PersonLabel,
				Identifier: row.Identifier,
				Date:       cell.DateLabel,
				Raw:        cell.RawValue,
				Canonical:  tr.Range.ReviewText(),
				Marker:     tr.Code,
				Row:        cell.Row,
				Severity:   reviewSeverity(tr.Range),
			})
		case tr.Range.Kind == shift.KindRest:
			report.Stats.RestCells++
		default:
			report.Stats.CodedCells++
		}
	}

	for _, label := range in.Grid.Persons {
		res, ok := in.Resolutions[label]
		if !ok {
			res = engine.Resolution{Label: label, Normalized: schema.NormalizeName(label), Kind: engine.MatchNotFound}
		}
		if res.Resolved() {
			continue
		}
		report.Triage.IdentityIssues = append(report.Triage.IdentityIssues, IdentityIssue{
			Label:      label,
			Normalized: res.Normalized,
			Kind:       res.Kind,
			Candidates: res.Candidates,
			Score:      res.Score,
			Rows:       labelRows[label],
			Severity:   identitySeverity(res.Kind),
		})
	}

	for _, c := range in.Grid.SkippedColumns() {
		if c.HasData {
			report.Triage.SkippedColumns = append(report.Triage.SkippedColumns, c)
		}
	}

	for _, row := range report.Table.Rows {
		if row.MatchKind == engine.MatchExactSubset || row.MatchKind == engine.MatchFuzzy {
			report.Stats.ResolvedRows++
		}
	}
	report.Stats.Persons = len(in.Grid.Persons)
	report.Stats.OutputRows = len(report.Table.Rows)
	report.Stats.DateColumns = len(report.Table.Dates)
	report.Stats.SkippedColumns = len(in.Grid.SkippedColumns())
	report.Stats.IdentityMisses = len(report.Triage.IdentityIssues)
	report.Stats.CellConflicts = len(report.Triage.CellConflicts)
	report.Stats.CatalogCodes = in.Codes.Len()

	report.Triage.summarize()
	return report
}

// Records renders the wide table as a header row followed by data rows.
func (r *ShiftReport) Records() [][]string {
	h := r.Options.Headers
	header := []string{h.Identifier, h.Name}
	if r.Options.IncludeAttributes {
		header = append(header, h.Department, h.Manager)
	}
	header = append(header, r.Table.Dates...)

	out := make([][]string, 0, len(r.Table.Rows)+1)
	out = append(out, header)
	for _, row := range r.Table.Rows {
		rec := []string{row.Identifier, row.Name}
		if r.Options.IncludeAttributes {
			rec = append(rec, row.Department, row.Manager)
		}
		for _, d := range r.Table.Dates {
			rec = append(rec, row.Codes[d])
		}
		out = append(out, rec)
	}
	return out
}

// rowKey groups resolved labels by identity and keeps unresolved labels apart.
func rowKey(res engine.Resolution, label string) string {
	if res.Resolved() {
		return "id\x00" + res.Record.ExternalID
	}
	return "label\x00" + label
}

func newRow(res engine.Resolution, label string, opts AssembleOptions) WideRow {
	row := WideRow{
		Name:      label,
		MatchKind: res.Kind,
		Codes:     make(map[string]string),
	}
	switch {
	case res.Resolved():
		row.Identifier = res.Record.ExternalID
		row.Name = res.Record.FullName
		row.Department = res.Record.Department
		row.Manager = res.Record.Manager
	case res.Kind == engine.MatchAmbiguous:
		row.Identifier = opts.AmbiguousMarker
	default:
		row.Identifier = opts.NotFoundMarker
	}
	return row
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
