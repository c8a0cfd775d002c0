package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/wildrank/wrscout/internal/report"
)

var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "List the teams at the selected event",
	Args:  cobra.NoArgs,
	RunE:  runTeams,
}

func runTeams(cmd *cobra.Command, _ []string) error {
	db, d, err := openEvent(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	report.PrintEventSummary(os.Stdout, d)
	report.PrintTeamTable(os.Stdout, d)
	return nil
}
