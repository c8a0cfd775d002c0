package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wildrank/wrscout/internal/dal"
	"github.com/wildrank/wrscout/internal/report"
)

var (
	picklistStat string
	picklistAt   int
)

var picklistCmd = &cobra.Command{
	Use:   "picklist",
	Short: "Manage alliance selection pick lists",
}

var picklistListCmd = &cobra.Command{
	Use:   "list [name]",
	Short: "Show all pick lists, or one list in order",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPicklistList,
}

var picklistAddCmd = &cobra.Command{
	Use:   "add <name> <team>",
	Short: "Add a team to a pick list, or move it",
	Args:  cobra.ExactArgs(2),
	RunE:  runPicklistAdd,
}

var picklistRemoveCmd = &cobra.Command{
	Use:   "remove <name> <team>",
	Short: "Remove a team from a pick list",
	Args:  cobra.ExactArgs(2),
	RunE:  runPicklistRemove,
}

var picklistDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a pick list",
	Args:  cobra.ExactArgs(1),
	RunE:  runPicklistDelete,
}

func init() {
	picklistListCmd.Flags().StringVar(&picklistStat, "stat", "", "extra column, e.g. smart.contribution:mean")
	picklistAddCmd.Flags().IntVar(&picklistAt, "at", 0, "1-based position; appends when 0 or past the end")

	picklistCmd.AddCommand(picklistListCmd)
	picklistCmd.AddCommand(picklistAddCmd)
	picklistCmd.AddCommand(picklistRemoveCmd)
	picklistCmd.AddCommand(picklistDeleteCmd)
}

func runPicklistList(cmd *cobra.Command, args []string) error {
	db, d, err := openEvent(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) == 0 {
		names := d.PicklistNames()
		if len(names) == 0 {
			fmt.Fprintln(os.Stdout, "No pick lists yet. Run 'wrscout picklist add <name> <team>' to start one.")
			return nil
		}
		for _, name := range names {
			fmt.Fprintf(os.Stdout, "  %-20s %d teams\n", name, len(d.Picklists[name]))
		}
		return nil
	}

	name := args[0]
	if _, ok := d.Picklists[name]; !ok {
		return fmt.Errorf("no picklist %q", name)
	}
	var col *report.Column
	if picklistStat != "" {
		key, m, err := d.ParseStatKey(picklistStat)
		if err != nil {
			return err
		}
		def, err := d.Config().ResultFromKey(key)
		if err != nil {
			return err
		}
		col = &report.Column{Def: def, Method: m}
	}
	report.PrintPicklist(os.Stdout, d, name, col)
	return nil
}

func picklistTeam(cmd *cobra.Command, args []string) (*dal.Data, func() error, int, error) {
	db, d, err := openEvent(cmd.Context())
	if err != nil {
		return nil, nil, 0, err
	}
	teams, err := dal.ParseTeams(args[1:2])
	if err != nil {
		db.Close()
		return nil, nil, 0, err
	}
	return d, db.Close, teams[0], nil
}

func runPicklistAdd(cmd *cobra.Command, args []string) error {
	d, closeDB, team, err := picklistTeam(cmd, args)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := d.AddToPicklist(cmd.Context(), args[0], team, picklistAt-1); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s: %v\n", args[0], d.Picklists[args[0]])
	return nil
}

func runPicklistRemove(cmd *cobra.Command, args []string) error {
	d, closeDB, team, err := picklistTeam(cmd, args)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := d.RemoveFromPicklist(cmd.Context(), args[0], team); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s: %v\n", args[0], d.Picklists[args[0]])
	return nil
}

func runPicklistDelete(cmd *cobra.Command, args []string) error {
	db, d, err := openEvent(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := d.DeletePicklist(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Deleted picklist %q.\n", args[0])
	return nil
}
