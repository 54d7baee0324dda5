package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"shiftbuk/pkg/engine"
	"shiftbuk/pkg/parser"
	"shiftbuk/pkg/pipeline"
	"shiftbuk/pkg/schema"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [label...]",
	Short: "Show how person labels resolve against the identity catalog",
	Long: `Resolves each label against the identity catalog of a workbook (--in)
or an identity CSV (--identities) and prints the match kind, identifier,
full name and score.

Example:
  shiftbuk resolve --in turnos.xlsx "Genesis Olivero" "Juan Perez"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&inputPath, "in", "i", "", "Supervisor workbook (.xlsx)")
	resolveCmd.Flags().StringVar(&identitiesPath, "identities", "", "Identity catalog CSV")
}

func runResolve(cmd *cobra.Command, args []string) error {
	table, err := loadIdentityTable()
	if err != nil {
		return err
	}
	records, _, err := schema.LoadIdentities(table, cfg.Identities.HeaderRow, cfg.ColumnMapping())
	if err != nil {
		return err
	}
	scorer, err := engine.NewScorer(cfg.Matching.Scorer)
	if err != nil {
		return err
	}
	resolver := engine.NewResolver(engine.BuildIdentityIndex(records), scorer, cfg.Matching.Threshold)

	out := cmd.OutOrStdout()
	for _, label := range args {
		res := resolver.Resolve(label)
		switch {
		case res.Resolved():
			fmt.Fprintf(out, "%q\t%s\t%s\t%s\t%.1f\n", label, res.Kind, res.Record.ExternalID, res.Record.FullName, res.Score)
		default:
			fmt.Fprintf(out, "%q\t%s\t\t%s\t%.1f\n", label, res.Kind, strings.Join(res.Candidates, " | "), res.Score)
		}
	}
	return nil
}

func loadIdentityTable() (schema.Table, error) {
	switch {
	case inputPath != "":
		f, err := os.Open(inputPath)
		if err != nil {
			return schema.Table{}, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		wb, err := pipeline.ReadWorkbook(f, cfg)
		if err != nil {
			return schema.Table{}, err
		}
		return wb.Identities, nil
	case identitiesPath != "":
		data, err := os.ReadFile(identitiesPath)
		if err != nil {
			return schema.Table{}, fmt.Errorf("failed to read %s: %w", identitiesPath, err)
		}
		t, _, err := parser.ReadCSVGrid("identities", data)
		return t, err
	default:
		return schema.Table{}, fmt.Errorf("--in or --identities is required")
	}
}
