package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wildrank/wrscout/internal/dal"
	"github.com/wildrank/wrscout/internal/report"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the selected event. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	db, d, err := openEvent(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	cGreeting.Printf("wrscout shell  %s\n", d.EventID)
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print(d.EventID)
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		name, args := tokens[0], tokens[1:]

		switch name {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "reload":
			if err := d.LoadData(ctx); err != nil {
				shellErr(err)
				continue
			}
			report.PrintEventSummary(os.Stdout, d)
		case "teams":
			report.PrintTeamTable(os.Stdout, d)
		case "matches":
			report.PrintMatchTable(os.Stdout, d, d.MatchKeys(!(len(args) > 0 && args[0] == "quals")))
		case "keys":
			report.PrintKeyTable(os.Stdout, d.Config())
		case "team":
			if len(args) != 1 {
				cError.Fprintln(os.Stderr, "usage: team <team>")
				continue
			}
			shellTeam(d, args[0])
		case "result":
			if len(args) != 2 {
				cError.Fprintln(os.Stderr, "usage: result <match> <team>")
				continue
			}
			shellResult(d, args[0], args[1])
		case "pivot":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: pivot <key>[:<stat>]... [--focus <team>]")
				continue
			}
			shellPivot(d, args)
		case "picklist":
			shellPicklist(ctx, d, args)
		case "ignore", "unignore":
			if len(args) != 1 {
				cError.Fprintf(os.Stderr, "usage: %s <source-id>\n", name)
				continue
			}
			if err := d.SetIgnore(ctx, args[0], name == "ignore"); err != nil {
				shellErr(err)
				continue
			}
			cMuted.Printf("%s %sd\n", args[0], name)
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", name)
		}
	}
	return nil
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"teams", "list teams with rank and scouting coverage"},
		{"matches [quals]", "show the match schedule"},
		{"team <team>", "show a team's pit and ranking values"},
		{"result <match> <team>", "show a team's values in one match"},
		{"keys", "list statistic keys"},
		{"pivot <key>[:<stat>]...", "compare every team"},
		{"pivot ... --focus <team>", "same, marking one team"},
		{"picklist [name]", "show pick lists"},
		{"picklist add|remove <name> <team>", "edit a pick list"},
		{"ignore / unignore <source-id>", "exclude or restore a submission"},
		{"reload", "reload the event from the database"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-38s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func shellErr(err error) {
	cError.Fprintf(os.Stderr, "error: %v\n", err)
}

func shellTeamNumber(s string) (int, bool) {
	teams, err := dal.ParseTeams([]string{s})
	if err != nil {
		shellErr(err)
		return 0, false
	}
	return teams[0], true
}

func shellTeam(d *dal.Data, arg string) {
	team, ok := shellTeamNumber(arg)
	if !ok {
		return
	}
	t := d.GetTeamResult(team)
	if t == nil {
		cWarn.Fprintf(os.Stderr, "team %d is not at %s\n", team, d.EventID)
		return
	}
	report.PrintTeamResult(os.Stdout, d, t)
}

func shellResult(d *dal.Data, match, teamArg string) {
	team, ok := shellTeamNumber(teamArg)
	if !ok {
		return
	}
	key := fullMatchKey(d.EventID, match)
	mr := d.GetMatchResult(key, team)
	if mr == nil {
		cWarn.Fprintf(os.Stderr, "team %d does not play in %s\n", team, key)
		return
	}
	report.PrintResult(os.Stdout, d, mr)
}

func shellPivot(d *dal.Data, args []string) {
	var (
		cols  []report.Column
		focus int
	)
	for i := 0; i < len(args); i++ {
		if args[i] == "--focus" && i+1 < len(args) {
			focus, _ = strconv.Atoi(strings.TrimPrefix(args[i+1], "frc"))
			i++
			continue
		}
		key, m, err := d.ParseStatKey(args[i])
		if err != nil {
			shellErr(err)
			return
		}
		def, err := d.Config().ResultFromKey(key)
		if err != nil {
			shellErr(err)
			return
		}
		cols = append(cols, report.Column{Def: def, Method: m})
	}
	report.PrintPivotTable(os.Stdout, d, cols, focus)
}

func shellPicklist(ctx context.Context, d *dal.Data, args []string) {
	switch {
	case len(args) == 0:
		for _, name := range d.PicklistNames() {
			fmt.Printf("  %-20s %d teams\n", name, len(d.Picklists[name]))
		}
	case len(args) == 1:
		report.PrintPicklist(os.Stdout, d, args[0], nil)
	case len(args) == 3 && (args[0] == "add" || args[0] == "remove"):
		team, ok := shellTeamNumber(args[2])
		if !ok {
			return
		}
		var err error
		if args[0] == "add" {
			err = d.AddToPicklist(ctx, args[1], team, -1)
		} else {
			err = d.RemoveFromPicklist(ctx, args[1], team)
		}
		if err != nil {
			shellErr(err)
			return
		}
		report.PrintPicklist(os.Stdout, d, args[1], nil)
	default:
		cError.Fprintln(os.Stderr, "usage: picklist [name] | picklist add|remove <name> <team>")
	}
}
