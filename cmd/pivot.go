package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wildrank/wrscout/internal/report"
)

var (
	pivotFocus int
	pivotKeys  bool
)

var pivotCmd = &cobra.Command{
	Use:   "pivot <key>[:<stat>]...",
	Short: "Compare every team on one or more statistics",
	Long: `Print one row per team with the requested statistics, sorted by the first
column, followed by an event-wide row. The stat defaults to the key's own
default (mean for numbers, mode for options).

Examples:
  wrscout pivot smart.tele_pieces result.match_climb:mode
  wrscout pivot fms.rank:min smart.fouls --focus 254
  wrscout pivot --keys`,
	RunE: runPivot,
}

func init() {
	pivotCmd.Flags().IntVar(&pivotFocus, "focus", 0, "mark this team's row")
	pivotCmd.Flags().BoolVar(&pivotKeys, "keys", false, "list the available keys and exit")
}

func runPivot(cmd *cobra.Command, args []string) error {
	db, d, err := openEvent(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	if pivotKeys {
		report.PrintKeyTable(os.Stdout, d.Config())
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("name at least one key, or use --keys to list them")
	}

	cols := make([]report.Column, 0, len(args))
	for _, a := range args {
		key, m, err := d.ParseStatKey(a)
		if err != nil {
			return err
		}
		def, err := d.Config().ResultFromKey(key)
		if err != nil {
			return err
		}
		cols = append(cols, report.Column{Def: def, Method: m})
	}
	report.PrintEventSummary(os.Stdout, d)
	report.PrintPivotTable(os.Stdout, d, cols, pivotFocus)
	return nil
}
