package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [descriptor...]",
	Short: "Show the canonical time range of shift descriptors",
	Long: `Prints the canonical form of each descriptor using the configured
normalizer. Reads one descriptor per line from stdin when no arguments
are given. Useful when authoring the shift-code catalog.

Example:
  shiftbuk normalize "9:00 - 20:00 hrs" "Libre" "turno noche"`,
	RunE: runNormalize,
}

func runNormalize(cmd *cobra.Command, args []string) error {
	n, err := cfg.NewNormalizer()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	emit := func(raw string) {
		fmt.Fprintf(out, "%q\t%s\n", raw, n.Canonical(raw))
	}

	if len(args) > 0 {
		for _, a := range args {
			emit(a)
		}
		return nil
	}

	sc := bufio.NewScanner(cmd.InOrStdin())
	for sc.Scan() {
		emit(sc.Text())
	}
	return sc.Err()
}
