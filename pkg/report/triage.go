package report

import (
	"shiftbuk/pkg/engine"
	"shiftbuk/pkg/parser"
	"shiftbuk/pkg/schema"
	"shiftbuk/pkg/shift"
)

// Severity ranks triage findings for the person fixing the input.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// IdentityIssue is a grid label that did not resolve to exactly one identity.
type IdentityIssue struct {
	Label      string           `json:"label"`
	Normalized string           `json:"normalized"`
	Kind       engine.MatchKind `json:"kind"`
	Candidates []string         `json:"candidates,omitempty"`
	Score      float64          `json:"score,omitempty"`
	Rows       []int            `json:"rows"`
	Severity   Severity         `json:"severity"`
}

// ReviewCell is a grid cell whose shift could not be translated to a code.
type ReviewCell struct {
	Person     string   `json:"person"`
	Identifier string   `json:"identifier"`
	Date       string   `json:"date"`
	Raw        string   `json:"raw"`
	Canonical  string   `json:"canonical"`
	Marker     string   `json:"marker"`
	Row        int      `json:"row"`
	Severity   Severity `json:"severity"`
}

// CellConflict is a second value for an (identity, date) cell that already
// had one, e.g. two grid rows resolving to the same person. The first value
// is kept.
type CellConflict struct {
	Identifier   string   `json:"identifier"`
	Date         string   `json:"date"`
	KeptLabel    string   `json:"keptLabel"`
	KeptCode     string   `json:"keptCode"`
	DroppedLabel string   `json:"droppedLabel"`
	DroppedCode  string   `json:"droppedCode"`
	Row          int      `json:"row"`
	Severity     Severity `json:"severity"`
}

// SeveritySummary contains counts of findings at each severity.
type SeveritySummary struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Triage enumerates everything a human should look at after a run.
type Triage struct {
	IdentityIssues      []IdentityIssue        `json:"identityIssues"`
	ReviewCells         []ReviewCell           `json:"reviewCells"`
	CellConflicts       []CellConflict         `json:"cellConflicts"`
	CatalogIssues       []shift.CatalogIssue   `json:"catalogIssues"`
	DuplicateIdentities []engine.FieldConflict `json:"duplicateIdentities"`
	SkippedColumns      []parser.Column        `json:"skippedColumns"`
	RowWarnings         []schema.RowWarning    `json:"rowWarnings"`
	Summary             SeveritySummary        `json:"summary"`
}

// Empty reports whether the run needs no human attention.
func (t *Triage) Empty() bool {
	return t.Summary == SeveritySummary{}
}

// identitySeverity: an unresolved person leaves a whole row without a
// payroll identifier.
func identitySeverity(kind engine.MatchKind) Severity {
	switch kind {
	case engine.MatchAmbiguous, engine.MatchNotFound:
		return SeverityHigh
	default:
		return SeverityLow
	}
}

// reviewSeverity: a well-formed range missing from the catalog usually means
// the catalog needs a new entry; free text needs a person to read it.
func reviewSeverity(tr shift.TimeRange) Severity {
	if tr.Kind == shift.KindUnparseable {
		return SeverityMedium
	}
	return SeverityHigh
}

// summarize recounts the severity summary from every finding list.
// Catalog issues, duplicate identities, skipped data columns and input row
// warnings are LOW.
func (t *Triage) summarize() {
	var s SeveritySummary
	add := func(level Severity) {
		switch level {
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		case SeverityLow:
			s.Low++
		}
	}

	for _, is := range t.IdentityIssues {
		add(is.Severity)
	}
	for _, rc := range t.ReviewCells {
		add(rc.Severity)
	}
	for _, cc := range t.CellConflicts {
		add(cc.Severity)
	}
	s.Low += len(t.CatalogIssues) + len(t.DuplicateIdentities) + len(t.SkippedColumns) + len(t.RowWarnings)

	t.Summary = s
}
