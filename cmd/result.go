package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wildrank/wrscout/internal/dal"
	"github.com/wildrank/wrscout/internal/report"
)

var resultCmd = &cobra.Command{
	Use:   "result <match> <team> | <team>",
	Short: "Show the scouted values of a team in a match, or of a team",
	Long: `Show every value resolvable for a team in one match, together with the
submissions it came from. With a single argument the team's pit and
ranking values are shown instead.

The match may be a full key (2024mibkn_qm12) or the part after the
underscore (qm12, sf3m1).

Examples:
  wrscout result qm12 254
  wrscout result 254
  wrscout result ignore result-0190c2a4-...`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runResult,
}

var resultIgnoreCmd = &cobra.Command{
	Use:   "ignore <source-id>",
	Short: "Exclude a submission from every statistic",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runSetIgnore(cmd, args[0], true) },
}

var resultUnignoreCmd = &cobra.Command{
	Use:   "unignore <source-id>",
	Short: "Include a previously ignored submission again",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runSetIgnore(cmd, args[0], false) },
}

func init() {
	resultCmd.AddCommand(resultIgnoreCmd)
	resultCmd.AddCommand(resultUnignoreCmd)
}

func runResult(cmd *cobra.Command, args []string) error {
	db, d, err := openEvent(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	teams, err := dal.ParseTeams(args[len(args)-1:])
	if err != nil {
		return err
	}
	team := teams[0]

	if len(args) == 1 {
		t := d.GetTeamResult(team)
		if t == nil {
			return fmt.Errorf("team %d is not at %s", team, d.EventID)
		}
		report.PrintTeamResult(os.Stdout, d, t)
		return nil
	}

	key := fullMatchKey(d.EventID, args[0])
	if d.Matches[key] == nil {
		return fmt.Errorf("no match %s", key)
	}
	mr := d.GetMatchResult(key, team)
	if mr == nil {
		return fmt.Errorf("team %d does not play in %s", team, key)
	}
	report.PrintResult(os.Stdout, d, mr)
	return nil
}

// fullMatchKey prefixes short match keys ("qm12") with the event.
func fullMatchKey(event, s string) string {
	if strings.Contains(s, "_") {
		return s
	}
	return event + "_" + s
}

func runSetIgnore(cmd *cobra.Command, sourceID string, ignore bool) error {
	ctx := cmd.Context()
	db, d, err := openEvent(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := d.SetIgnore(ctx, sourceID, ignore); err != nil {
		return err
	}
	state := "included"
	if ignore {
		state = "ignored"
	}
	fmt.Fprintf(os.Stdout, "%s is now %s.\n", sourceID, state)
	return nil
}
