// Package pipeline wires the reshaper, normalizer, resolver and assembler
// into one conversion run.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shiftbuk/pkg/config"
	"shiftbuk/pkg/engine"
	"shiftbuk/pkg/parser"
	"shiftbuk/pkg/report"
	"shiftbuk/pkg/schema"
	"shiftbuk/pkg/shift"
)

// CSVInputs holds the three logical tables exported as CSV files.
type CSVInputs struct {
	Grid       []byte
	Identities []byte
	Catalog    []byte
}

// ReadWorkbook reads the supervisor workbook using the configured sheet names.
func ReadWorkbook(r io.Reader, cfg *config.Config) (*schema.Workbook, error) {
	return parser.ReadWorkbook(r, cfg.Workbook)
}

// ReadCSV decodes three CSV exports into a workbook. Unreadable CSV rows are
// kept as workbook warnings so they reach the triage.
func ReadCSV(in CSVInputs) (*schema.Workbook, error) {
	var warnings []schema.RowWarning
	read := func(name string, data []byte) (schema.Table, error) {
		t, ws, err := parser.ReadCSVGrid(name, data)
		for _, w := range ws {
			warnings = append(warnings, schema.RowWarning{Table: name, Row: w.Row, Message: w.Message})
		}
		return t, err
	}

	grid, err := read("grid", in.Grid)
	if err != nil {
		return nil, err
	}
	identities, err := read("identities", in.Identities)
	if err != nil {
		return nil, err
	}
	catalog, err := read("catalog", in.Catalog)
	if err != nil {
		return nil, err
	}
	return &schema.Workbook{Grid: grid, Identities: identities, Catalog: catalog, Warnings: warnings}, nil
}

// Transform runs one conversion: reshape the grid, load both catalogs,
// resolve every person label, translate every cell and assemble the wide
// table. Structural problems abort the run; everything else lands in the
// report's triage. All lookup structures are built per call.
func Transform(ctx context.Context, wb *schema.Workbook, cfg *config.Config, logger *zap.Logger) (*report.ShiftReport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	normalizer, err := cfg.NewNormalizer()
	if err != nil {
		return nil, err
	}
	order, err := cfg.CatalogOrder()
	if err != nil {
		return nil, err
	}
	scorer, err := engine.NewScorer(cfg.Matching.Scorer)
	if err != nil {
		return nil, err
	}

	// Stage 1: grid
	reshaped, err := parser.Reshape(wb.Grid, cfg.ReshapeOptions())
	if err != nil {
		return nil, fmt.Errorf("reshape grid: %w", err)
	}
	logger.Info("grid reshaped",
		zap.String("sheet", wb.Grid.Name),
		zap.Int("persons", len(reshaped.Persons)),
		zap.Int("dates", len(reshaped.DateLabels())),
		zap.Int("cells", len(reshaped.Cells)))
	for _, c := range reshaped.SkippedColumns() {
		if c.HasData {
			logger.Warn("blank header over data, column skipped", zap.Int("column", c.Index+1))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: identities
	records, rowWarnings, err := schema.LoadIdentities(wb.Identities, cfg.Identities.HeaderRow, cfg.ColumnMapping())
	if err != nil {
		return nil, fmt.Errorf("load identities: %w", err)
	}
	warnings := append(append([]schema.RowWarning(nil), wb.Warnings...), rowWarnings...)
	index := engine.BuildIdentityIndex(records)
	logger.Info("identity index built",
		zap.Int("rows", index.Stats.SourceRows),
		zap.Int("unique_ids", index.Stats.UniqueIDs),
		zap.Int("duplicate_rows", index.Stats.DuplicateRows),
		zap.Int("shared_names", len(index.SharedNames)))
	for _, c := range index.Conflicts {
		logger.Debug("duplicate identity disagrees",
			zap.String("external_id", c.ExternalID),
			zap.String("field", c.Field),
			zap.String("kept", c.KeptValue),
			zap.String("dropped", c.DroppedValue))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3: shift-code catalog
	entries, err := schema.LoadCatalog(wb.Catalog, cfg.Catalog.HeaderRow, order)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	codes, issues := shift.BuildCodeTable(entries, normalizer, cfg.CodeTableOptions())
	logger.Info("code table built",
		zap.Int("entries", len(entries)),
		zap.Int("codes", codes.Len()),
		zap.Int("issues", len(issues)))
	for _, is := range issues {
		logger.Debug("catalog entry skipped", zap.String("issue", is.String()))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 4: identity resolution
	resolver := engine.NewResolver(index, scorer, cfg.Matching.Threshold)
	resolutions, stats := resolver.ResolveAll(reshaped.Persons)
	logger.Info("labels resolved",
		zap.Int("labels", stats.Labels),
		zap.Int("exact_subset", stats.ExactSubset),
		zap.Int("fuzzy", stats.Fuzzy),
		zap.Int("ambiguous", stats.Ambiguous),
		zap.Int("not_found", stats.NotFound),
		zap.Float64("threshold", resolver.Threshold()))
	for _, label := range reshaped.Persons {
		res := resolutions[label]
		if res.Resolved() {
			continue
		}
		logger.Debug("label unresolved",
			zap.String("label", label),
			zap.String("kind", string(res.Kind)),
			zap.Strings("candidates", res.Candidates),
			zap.Float64("score", res.Score))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 5: translate and assemble
	out := report.Assemble(report.Input{
		Grid:              reshaped,
		Resolutions:       resolutions,
		Codes:             codes,
		CatalogIssues:     issues,
		IdentityConflicts: index.Conflicts,
		RowWarnings:       warnings,
	}, cfg.AssembleOptions())
	out.RunID = runID

	logger.Info("report assembled",
		zap.Int("rows", out.Stats.OutputRows),
		zap.Int("coded", out.Stats.CodedCells),
		zap.Int("rest", out.Stats.RestCells),
		zap.Int("review", out.Stats.ReviewCells),
		zap.Int("cell_conflicts", out.Stats.CellConflicts),
		zap.Int("high", out.Triage.Summary.High),
		zap.Int("medium", out.Triage.Summary.Medium),
		zap.Int("low", out.Triage.Summary.Low))
	for _, rc := range out.Triage.ReviewCells {
		logger.Debug("cell needs review",
			zap.String("person", rc.Person),
			zap.String("date", rc.Date),
			zap.String("raw", rc.Raw),
			zap.String("marker", rc.Marker))
	}

	return out, nil
}
