package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wildrank/wrscout/internal/report"
)

var (
	matchesQuals bool
	matchesTeam  int
)

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "Show the match schedule of the selected event",
	Long: `Show every match in play order with alliances, score and how many of
the teams in it have been scouted.

Examples:
  wrscout matches --quals
  wrscout matches --team 254`,
	Args: cobra.NoArgs,
	RunE: runMatches,
}

func init() {
	matchesCmd.Flags().BoolVar(&matchesQuals, "quals", false, "qualification matches only")
	matchesCmd.Flags().IntVar(&matchesTeam, "team", 0, "only matches this team plays in")
}

func runMatches(cmd *cobra.Command, _ []string) error {
	db, d, err := openEvent(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	keys := d.MatchKeys(!matchesQuals)
	if matchesTeam != 0 {
		t := d.Teams[matchesTeam]
		if t == nil {
			return fmt.Errorf("team %d is not at %s", matchesTeam, d.EventID)
		}
		keep := make(map[string]bool, len(t.Matches))
		for _, k := range t.Matches {
			keep[k] = true
		}
		filtered := keys[:0]
		for _, k := range keys {
			if keep[k] {
				filtered = append(filtered, k)
			}
		}
		keys = filtered
	}
	if len(keys) == 0 {
		fmt.Fprintln(os.Stdout, "No matches.")
		return nil
	}
	report.PrintMatchTable(os.Stdout, d, keys)
	fmt.Fprintf(os.Stdout, "\n(%d matches)\n", len(keys))
	return nil
}
