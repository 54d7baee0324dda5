package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shiftbuk/pkg/pipeline"
	"shiftbuk/pkg/report"
	"shiftbuk/pkg/schema"
)

var (
	inputPath      string
	gridPath       string
	identitiesPath string
	catalogPath    string
	outputPath     string
	reportPath     string
	strict         bool
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a supervisor workbook into the payroll upload sheet",
	Long: `Reads the three input tables from one workbook (--in) or three CSV
exports (--grid, --identities, --catalog) and writes the wide upload table.

The output format follows the --out extension: .csv writes CSV, anything
else writes an xlsx workbook with the upload sheet and a triage sheet.
Nothing is written when the input is structurally unusable.

Example:
  shiftbuk convert --in turnos.xlsx --out carga.xlsx --report triage.json`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&inputPath, "in", "i", "", "Supervisor workbook (.xlsx)")
	convertCmd.Flags().StringVar(&gridPath, "grid", "", "Shift grid CSV")
	convertCmd.Flags().StringVar(&identitiesPath, "identities", "", "Identity catalog CSV")
	convertCmd.Flags().StringVar(&catalogPath, "catalog", "", "Shift-code catalog CSV")
	convertCmd.Flags().StringVarP(&outputPath, "out", "o", "carga_buk.xlsx", "Output file (.xlsx or .csv)")
	convertCmd.Flags().StringVar(&reportPath, "report", "", "Write the triage report as JSON (- for stdout)")
	convertCmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when high-severity findings remain")
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wb, err := loadInputs()
	if err != nil {
		return err
	}

	rep, err := pipeline.Transform(ctx, wb, cfg, logger)
	if err != nil {
		return err
	}

	if err := writeOutput(outputPath, rep); err != nil {
		return err
	}
	logger.Info("output written", zap.String("run_id", rep.RunID), zap.String("path", outputPath))

	if reportPath != "" {
		if err := writeReport(cmd.OutOrStdout(), reportPath, rep); err != nil {
			return err
		}
	}

	printSummary(cmd.ErrOrStderr(), rep)

	if strict && rep.Triage.Summary.High > 0 {
		return fmt.Errorf("%d high-severity findings need review", rep.Triage.Summary.High)
	}
	return nil
}

// loadInputs reads either the workbook or the three CSV exports.
func loadInputs() (*schema.Workbook, error) {
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		return pipeline.ReadWorkbook(f, cfg)
	}

	if gridPath == "" || identitiesPath == "" || catalogPath == "" {
		return nil, fmt.Errorf("either --in or all of --grid, --identities and --catalog are required")
	}
	var in pipeline.CSVInputs
	for _, src := range []struct {
		path string
		dst  *[]byte
	}{
		{gridPath, &in.Grid},
		{identitiesPath, &in.Identities},
		{catalogPath, &in.Catalog},
	} {
		data, err := os.ReadFile(src.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", src.path, err)
		}
		*src.dst = data
	}
	return pipeline.ReadCSV(in)
}

func writeOutput(path string, rep *report.ShiftReport) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		err = report.WriteCSV(f, rep)
	} else {
		err = report.WriteWorkbook(f, rep, cfg.WorkbookOptions())
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func writeReport(stdout io.Writer, path string, rep *report.ShiftReport) error {
	if path == "-" {
		return report.WriteJSON(stdout, rep)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	err = report.WriteJSON(f, rep)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func printSummary(w io.Writer, rep *report.ShiftReport) {
	s := rep.Stats
	fmt.Fprintf(w, "run %s: %d rows, %d dates, %d cells (%d coded, %d rest, %d review)\n",
		rep.RunID, s.OutputRows, s.DateColumns, s.Cells, s.CodedCells, s.RestCells, s.ReviewCells)
	if rep.Triage.Empty() {
		fmt.Fprintln(w, "nothing to review")
		return
	}
	sum := rep.Triage.Summary
	fmt.Fprintf(w, "findings: %d high, %d medium, %d low\n", sum.High, sum.Medium, sum.Low)
	for _, is := range rep.Triage.IdentityIssues {
		fmt.Fprintf(w, "  [%s] %s: %s", is.Severity, is.Label, is.Kind)
		if len(is.Candidates) > 0 {
			fmt.Fprintf(w, " (%s)", strings.Join(is.Candidates, " | "))
		}
		fmt.Fprintln(w)
	}
	for _, rc := range rep.Triage.ReviewCells {
		fmt.Fprintf(w, "  [%s] %s %s: %q -> %s\n", rc.Severity, rc.Person, rc.Date, rc.Raw, rc.Marker)
	}
}
