package report

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"shiftbuk/pkg/engine"
	"shiftbuk/pkg/parser"
	"shiftbuk/pkg/schema"
	"shiftbuk/pkg/shift"
)

func fixtureInput(t *testing.T) Input {
	t.Helper()

	grid := schema.Table{Name: "grid", Rows: [][]string{
		{"Nombre", "01-03-2025", "02-03-2025", ""},
		{"Genesis Olivero", "9:00 - 20:00", "Libre", ""},
		{"Juan Perez", "09:00-20:00", "", ""},
		{"Nadie Existe", "raro", "8:00 a 17:00", "x"},
		{"Olivero Melean", "20:00-8:00"},
	}}
	reshaped, err := parser.Reshape(grid, parser.ReshapeOptions{HeaderRow: 0})
	require.NoError(t, err)

	index := engine.BuildIdentityIndex([]schema.IdentityRecord{
		{ExternalID: "1", FullName: "GENESIS VICTORIA OLIVERO MELEAN", Department: "Sala", Manager: "Ana Soto"},
		{ExternalID: "2", FullName: "JUAN PEREZ LOPEZ"},
		{ExternalID: "3", FullName: "JUAN PEREZ GOMEZ"},
	})
	resolutions, _ := engine.NewResolver(index, nil, 0).ResolveAll(reshaped.Persons)

	codes, issues := shift.BuildCodeTable([]schema.ShiftCatalogEntry{
		{Code: "D1", Descriptor: "9:00 - 20:00", SourceRow: 2},
		{Code: "N1", Descriptor: "20:00 - 08:00", SourceRow: 3},
	}, shift.DefaultNormalizer(), shift.CodeTableOptions{})
	require.Empty(t, issues)

	return Input{
		Grid:              reshaped,
		Resolutions:       resolutions,
		Codes:             codes,
		CatalogIssues:     issues,
		IdentityConflicts: index.Conflicts,
	}
}

func TestAssemble_WideTable(t *testing.T) {
	r := Assemble(fixtureInput(t), AssembleOptions{})

	want := [][]string{
		{"RUT", "Nombre", "01-03-2025", "02-03-2025"},
		{"1", "GENESIS VICTORIA OLIVERO MELEAN", "D1", "L"},
		{"ERROR: MULTIPLE MATCHES", "Juan Perez", "D1", "L"},
		{"ERROR: NO MATCH", "Nadie Existe", "REVIEW: RARO", "REVIEW: 08:00-17:00"},
	}
	if diff := cmp.Diff(want, r.Records()); diff != "" {
		t.Errorf("Records() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"Genesis Olivero", "Olivero Melean"}, r.Table.Rows[0].Labels)
	assert.Equal(t, engine.MatchExactSubset, r.Table.Rows[0].MatchKind)

	assert.Equal(t, Stats{
		Persons:        4,
		OutputRows:     3,
		ResolvedRows:   1,
		DateColumns:    2,
		SkippedColumns: 1,
		Cells:          8,
		CodedCells:     2,
		RestCells:      2,
		ReviewCells:    2,
		IdentityMisses: 2,
		CellConflicts:  2,
		CatalogCodes:   3,
	}, r.Stats)
}

func TestAssemble_Triage(t *testing.T) {
	r := Assemble(fixtureInput(t), AssembleOptions{})
	tr := r.Triage

	require.Len(t, tr.IdentityIssues, 2)
	assert.Equal(t, "Juan Perez", tr.IdentityIssues[0].Label)
	assert.Equal(t, engine.MatchAmbiguous, tr.IdentityIssues[0].Kind)
	assert.Len(t, tr.IdentityIssues[0].Candidates, 2)
	assert.Equal(t, []int{3}, tr.IdentityIssues[0].Rows)
	assert.Equal(t, "Nadie Existe", tr.IdentityIssues[1].Label)
	assert.Equal(t, engine.MatchNotFound, tr.IdentityIssues[1].Kind)
	assert.Equal(t, SeverityHigh, tr.IdentityIssues[1].Severity)

	require.Len(t, tr.ReviewCells, 2)
	assert.Equal(t, ReviewCell{
		Person:     "Nadie Existe",
		Identifier: DefaultNotFoundMarker,
		Date:       "01-03-2025",
		Raw:        "raro",
		Canonical:  "RARO",
		Marker:     "REVIEW: RARO",
		Row:        4,
		Severity:   SeverityMedium,
	}, tr.ReviewCells[0])
	assert.Equal(t, SeverityHigh, tr.ReviewCells[1].Severity)

	require.Len(t, tr.CellConflicts, 2)
	assert.Equal(t, CellConflict{
		Identifier:   "1",
		Date:         "01-03-2025",
		KeptLabel:    "Genesis Olivero",
		KeptCode:     "D1",
		DroppedLabel: "Olivero Melean",
		DroppedCode:  "N1",
		Row:          5,
		Severity:     SeverityMedium,
	}, tr.CellConflicts[0])

	require.Len(t, tr.SkippedColumns, 1)
	assert.Equal(t, 3, tr.SkippedColumns[0].Index)

	assert.Equal(t, SeveritySummary{High: 3, Medium: 3, Low: 1}, tr.Summary)
	assert.False(t, tr.Empty())
}

func TestAssemble_NoSilentDrops(t *testing.T) {
	r := Assemble(fixtureInput(t), AssembleOptions{})

	placed := 0
	for _, row := range r.Table.Rows {
		placed += len(row.Codes)
	}
	assert.Equal(t, r.Stats.Cells, placed+len(r.Triage.CellConflicts))
	assert.Equal(t, r.Stats.Cells, r.Stats.CodedCells+r.Stats.RestCells+r.Stats.ReviewCells+r.Stats.CellConflicts)
}

func TestAssemble_CustomOptions(t *testing.T) {
	r := Assemble(fixtureInput(t), AssembleOptions{
		Headers:           Headers{Identifier: "ID", Name: "Name", Department: "Dept", Manager: "Boss"},
		IncludeAttributes: true,
		AmbiguousMarker:   "??",
		NotFoundMarker:    "--",
	})
	records := r.Records()
	assert.Equal(t, []string{"ID", "Name", "Dept", "Boss", "01-03-2025", "02-03-2025"}, records[0])
	assert.Equal(t, []string{"1", "GENESIS VICTORIA OLIVERO MELEAN", "Sala", "Ana Soto", "D1", "L"}, records[1])
	assert.Equal(t, "??", records[2][0])
	assert.Equal(t, "--", records[3][0])
}

func TestWriteWorkbook(t *testing.T) {
	r := Assemble(fixtureInput(t), AssembleOptions{})

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, r, WorkbookOptions{TriageSheet: "Revision"}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{DefaultSheet, "Revision"}, f.GetSheetList())
	rows, err := f.GetRows(DefaultSheet)
	require.NoError(t, err)
	if diff := cmp.Diff(r.Records(), rows); diff != "" {
		t.Errorf("sheet mismatch (-want +got):\n%s", diff)
	}

	triage, err := f.GetRows("Revision")
	require.NoError(t, err)
	// header + 2 identity + 2 review + 2 conflicts + 1 skipped column
	assert.Len(t, triage, 8)
}

func TestWriteCSV(t *testing.T) {
	r := Assemble(fixtureInput(t), AssembleOptions{})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, r))

	got, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, r.Records(), got)
}

func TestJSONRoundTrip(t *testing.T) {
	r := Assemble(fixtureInput(t), AssembleOptions{IncludeAttributes: true, NotFoundMarker: "--"})
	r.RunID = "run-1"

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, r))

	back, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, "run-1", back.RunID)
	assert.Equal(t, r.Stats, back.Stats)
	assert.Equal(t, r.Triage.Summary, back.Triage.Summary)
	assert.Equal(t, r.Records(), back.Records())
}

func TestReadJSON_Invalid(t *testing.T) {
	_, err := ReadJSON(bytes.NewBufferString("{"))
	assert.Error(t, err)
}
