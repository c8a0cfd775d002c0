package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/wildrank/wrscout/internal/report"
)

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display what the database holds: key counts and sizes per key prefix,
how much of it is compressed and when it last changed. With --event the
event's teams and match schedule are summarised too.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runSummary(cmd, args); err != nil || eventID == "" {
			return err
		}
		return summaryEvent(cmd)
	},
}

func runSummary(cmd *cobra.Command, _ []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ov, err := db.GetOverview(cmd.Context())
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.TotalKeys == 0 {
		fmt.Fprintln(os.Stdout, "Nothing stored yet. Run 'wrscout fetch --event <key>' to add an event.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "\n=== Database Summary ===\n\n")
	fmt.Fprintf(os.Stdout, "  Keys stored   : %s\n", humanize.Comma(int64(ov.TotalKeys)))
	fmt.Fprintf(os.Stdout, "  Data size     : %s (%s on disk)\n", humanize.Bytes(uint64(ov.TotalSize)), humanize.Bytes(uint64(ov.StoredSize)))
	fmt.Fprintf(os.Stdout, "  Compressed    : %d values\n", ov.Compressed)
	fmt.Fprintf(os.Stdout, "  Last change   : %s\n", humanize.Time(ov.LastUpdated))

	fmt.Fprintf(os.Stdout, "\n--- Prefixes ---\n\n")
	t := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
	t.Header("PREFIX", "KEYS", "SIZE", "ON DISK")
	for _, p := range ov.Prefixes {
		t.Append(
			p.Prefix,
			humanize.Comma(int64(p.Keys)),
			humanize.Bytes(uint64(p.Size)),
			humanize.Bytes(uint64(p.StoredSize)),
		)
	}
	t.Render()

	return nil
}

func summaryEvent(cmd *cobra.Command) error {
	db, d, err := openEvent(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()
	report.PrintEventSummary(os.Stdout, d)
	return nil
}
