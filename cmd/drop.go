package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/wildrank/wrscout/internal/dal"
	"github.com/wildrank/wrscout/internal/storage"
)

var dropForce bool

// dropCmd deletes the database file, or one event's keys when --event is set.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the database, or one event from it",
	Long: `Permanently delete the SQLite database. All stored events and scouting
submissions will be lost.

With --event only that event's TBA data, pick lists and submissions are
removed.`,
	Args: cobra.NoArgs,
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
}

func runDrop(cmd *cobra.Command, args []string) error {
	target := dbPath
	if eventID != "" {
		target = fmt.Sprintf("event %s in %s", eventID, dbPath)
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", target)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if eventID != "" {
		return dropEvent(cmd.Context())
	}
	if err := os.Remove(dbPath); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
			return nil
		}
		return fmt.Errorf("remove database: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(dbPath + suffix)
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", dbPath)
	return nil
}

func dropEvent(ctx context.Context) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	keys, err := eventKeys(ctx, db, eventID)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := db.Delete(ctx, k); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	fmt.Fprintf(os.Stdout, "Deleted %d keys of %s.\n", len(keys), eventID)
	return nil
}

// eventKeys lists the stored keys that belong to event, including the
// submissions whose metadata names it.
func eventKeys(ctx context.Context, db *storage.DB, event string) ([]string, error) {
	var out []string
	for _, k := range []string{
		dal.EventKey(event), dal.TeamsKey(event), dal.MatchesKey(event),
		dal.RankingsKey(event), dal.PicklistsKey(event),
	} {
		if _, err := db.Get(ctx, k); err == nil {
			out = append(out, k)
		}
	}
	results, err := db.Keys(ctx, dal.ResultPrefix)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	for _, k := range results {
		b, err := db.Get(ctx, k)
		if err != nil {
			continue
		}
		if gjson.GetBytes(b, "meta.result.event_id").String() == event {
			out = append(out, k)
		}
	}
	return out, nil
}
