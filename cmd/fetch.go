package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wildrank/wrscout/internal/report"
	"github.com/wildrank/wrscout/internal/tba"
)

var (
	fetchAPIKey  string
	fetchBaseURL string
)

// fetchCmd copies an event's official data from The Blue Alliance.
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download event, teams, matches and rankings from The Blue Alliance",
	Long: `Fetch the selected event from The Blue Alliance API v3 and store the raw
responses. Existing scouting submissions are left untouched.

Examples:
  WRSCOUT_TBA_KEY=... wrscout fetch --event 2024mibkn`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchAPIKey, "tba-key", "", "TBA read key (falls back to $WRSCOUT_TBA_KEY)")
	fetchCmd.Flags().StringVar(&fetchBaseURL, "base-url", tba.DefaultBaseURL, "TBA API root")
	_ = viper.BindPFlag("tba_key", fetchCmd.Flags().Lookup("tba-key"))
}

func runFetch(cmd *cobra.Command, _ []string) error {
	if err := requireEvent(); err != nil {
		return err
	}
	key := viper.GetString("tba_key")
	if key == "" {
		return fmt.Errorf("no TBA key: set WRSCOUT_TBA_KEY or use --tba-key")
	}

	ctx := cmd.Context()
	res, err := syncEvent(cmd, key)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Fetched %s (%s): %d teams, %d matches, %d rankings, %s\n",
		eventID, res.Name, res.Teams, res.Matches, res.Rankings, humanize.Bytes(uint64(res.Bytes)))
	if res.Rankings == 0 {
		fmt.Fprintln(os.Stderr, "No rankings published yet.")
	}

	db, d, err := openEvent(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	report.PrintEventSummary(os.Stdout, d)
	return nil
}

func syncEvent(cmd *cobra.Command, key string) (*tba.SyncResult, error) {
	db, err := openStore()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	client := tba.NewClient(key).WithBaseURL(fetchBaseURL)
	return tba.Sync(cmd.Context(), client, db, eventID)
}
