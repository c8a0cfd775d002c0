package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/wildrank/wrscout/internal/storage"
)

var (
	sqlDecode bool
	sqlWidth  int
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the database",
	Long: `Run an arbitrary SQL query against the database and print results as a table.

Schema overview:
  kv(key TEXT PRIMARY KEY, value BLOB, encoding TEXT, size INTEGER, updated_at INTEGER)

Keys are event-<event>, teams-<event>, matches-<event>, rankings-<event>,
picklists-<event> and result-<id> for scouting submissions. Values with
encoding 'zstd' are compressed; with --decode a JSON column is added
holding the decompressed value of every selected key.

Example:
  wrscout sql --decode "SELECT key, size FROM kv WHERE key LIKE 'result-%' ORDER BY updated_at DESC LIMIT 10"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func init() {
	sqlCmd.Flags().BoolVar(&sqlDecode, "decode", false, "add the decoded value of the selected 'key' column")
	sqlCmd.Flags().IntVar(&sqlWidth, "width", 80, "truncate decoded values to this many characters (0 keeps all)")
}

func runSQL(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "(no rows)")
		return nil
	}
	if sqlDecode {
		if cols, rows, err = decodeKeyColumn(cmd.Context(), db, cols, rows, sqlWidth); err != nil {
			return err
		}
	}
	printRows(os.Stdout, cols, rows)
	return nil
}

// decodeKeyColumn appends a JSON column holding the stored value of each
// row's key, read through the store so compressed values come back plain.
func decodeKeyColumn(ctx context.Context, db *storage.DB, cols []string, rows [][]string, width int) ([]string, [][]string, error) {
	keyCol := -1
	for i, c := range cols {
		if strings.EqualFold(c, "key") {
			keyCol = i
		}
	}
	if keyCol < 0 {
		return nil, nil, fmt.Errorf("--decode needs a column named key in the result")
	}
	for i, row := range rows {
		cell := ""
		b, err := db.Get(ctx, row[keyCol])
		switch {
		case errors.Is(err, storage.ErrNotFound):
			cell = "NULL"
		case err != nil:
			return nil, nil, fmt.Errorf("decode %s: %w", row[keyCol], err)
		default:
			cell = fmt.Sprintf("(%d bytes, not JSON)", len(b))
			if gjson.ValidBytes(b) {
				cell = gjson.GetBytes(b, "@ugly").Raw
			}
		}
		if width > 0 && len(cell) > width {
			cell = cell[:width] + "…"
		}
		rows[i] = append(row, cell)
	}
	return append(cols, "json"), rows, nil
}

func printRows(w io.Writer, cols []string, rows [][]string) {
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	table.Header(header...)
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		table.Append(cells...)
	}
	table.Render()
	fmt.Fprintf(w, "\n(%d rows)\n", len(rows))
}
