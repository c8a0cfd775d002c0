// Package report renders event data as terminal tables.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/wildrank/wrscout/internal/config"
	"github.com/wildrank/wrscout/internal/dal"
	"github.com/wildrank/wrscout/internal/model"
	"github.com/wildrank/wrscout/internal/result"
	"github.com/wildrank/wrscout/internal/stats"
)

var (
	best  = color.New(color.FgGreen, color.Bold).SprintFunc()
	worst = color.New(color.FgRed).SprintFunc()
	dim   = color.New(color.Faint).SprintFunc()
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// PrintEventSummary prints a one-line header for the loaded event.
func PrintEventSummary(w io.Writer, d *dal.Data) {
	format := "standard"
	if d.DoubleElim {
		format = "double elimination"
	}
	fmt.Fprintf(w, "\nEvent: %s (%s)  |  Teams: %d  |  Matches: %d  |  Playoffs: %s\n\n",
		d.Name, d.EventID, len(d.Teams), len(d.Matches), format)
}

// PrintTeamTable lists every team with its rank and scouting coverage.
func PrintTeamTable(w io.Writer, d *dal.Data) {
	table := newTable(w)
	table.Header("TEAM", "NAME", "LOCATION", "RANK", "MATCHES", "SCOUTED", "PIT")

	rank := model.FMSKey("rank")
	modes := teamModes(d.Config())
	for _, num := range d.TeamNumbers() {
		t := d.Teams[num]
		scouted := 0
		for _, k := range t.Matches {
			if mr := d.GetMatchResult(k, num); mr != nil && len(mr.Modes()) > 0 {
				scouted++
			}
		}
		pit := "No"
		for _, m := range modes {
			if t.IsScouted(m) {
				pit = "Yes"
			}
		}
		location := strings.Join(nonEmpty(t.City, t.StateProv, t.Country), ", ")
		table.Append(
			strconv.Itoa(num),
			orDash(t.Name),
			orDash(location),
			orDash(stats.Clean(t.Value(rank), stats.TypeNumber, nil)),
			strconv.Itoa(len(t.Matches)),
			fmt.Sprintf("%d/%d", scouted, len(t.Matches)),
			pit,
		)
	}
	table.Render()
}

func teamModes(cfg *config.Provider) []string {
	var out []string
	for _, m := range cfg.Modes() {
		if m.Type == config.ModeTeam {
			out = append(out, m.ID)
		}
	}
	return out
}

func nonEmpty(ss ...string) []string {
	var out []string
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// PrintMatchTable lists the given matches with alliances, score and how many
// of the six teams were scouted.
func PrintMatchTable(w io.Writer, d *dal.Data, keys []string) {
	table := newTable(w)
	table.Header("MATCH", "TIME", "RED", "BLUE", "SCORE", "SCOUTED")

	for _, k := range keys {
		m := d.Matches[k]
		if m == nil {
			continue
		}
		scouted := 0
		for _, mr := range m.Results {
			if len(mr.Modes()) > 0 {
				scouted++
			}
		}
		when := "—"
		if m.Time > 0 {
			when = time.Unix(m.Time, 0).Format("Mon 15:04")
		}
		score := dim("upcoming")
		if m.Complete {
			score = fmt.Sprintf("%d-%d", m.RedScore, m.BlueScore)
		}
		table.Append(
			m.Name,
			when,
			joinTeams(m.Red),
			joinTeams(m.Blue),
			score,
			fmt.Sprintf("%d/%d", scouted, len(m.Results)),
		)
	}
	table.Render()
}

func joinTeams(teams []int) string {
	parts := make([]string, len(teams))
	for i, t := range teams {
		parts[i] = strconv.Itoa(t)
	}
	return strings.Join(parts, " ")
}

// PrintKeyTable lists every statistic key the configuration offers.
func PrintKeyTable(w io.Writer, cfg *config.Provider) {
	table := newTable(w)
	table.Header("KEY", "NAME", "TYPE", "SCOPE", "STATS")
	add := func(keys []model.Key, scope string) {
		for _, k := range keys {
			def, err := cfg.ResultFromKey(k)
			if err != nil {
				continue
			}
			methods := make([]string, 0, len(def.AvailableStats()))
			for _, m := range def.AvailableStats() {
				name := string(m)
				if m == def.DefaultStat() {
					name = best(name)
				}
				methods = append(methods, name)
			}
			table.Append(k.String(), def.Name, string(def.Type), scope, strings.Join(methods, " "))
		}
	}
	add(cfg.MatchKeys(), "match")
	add(cfg.TeamKeys(), "team")
	table.Render()
}

// Column is one statistic of a pivot table.
type Column struct {
	Def    *config.Result
	Method stats.Method
}

// Header returns the column title, e.g. "TOTAL PIECES (MEAN)".
func (c Column) Header() string {
	return strings.ToUpper(fmt.Sprintf("%s (%s)", c.Def.Name, c.Method))
}

// PivotRow is one team's values in a pivot table.
type PivotRow struct {
	Team   int
	Values []any
}

// Pivot computes one row per team for cols, sorted by the first column
// (best first, honouring the column's negative flag). Teams without a
// value sort last.
func Pivot(d *dal.Data, teams []int, cols []Column) []PivotRow {
	rows := make([]PivotRow, 0, len(teams))
	for _, num := range teams {
		row := PivotRow{Team: num, Values: make([]any, len(cols))}
		for i, c := range cols {
			row.Values[i] = d.ComputeTeamStat(c.Def.Key, num, c.Method)
		}
		rows = append(rows, row)
	}
	if len(cols) == 0 {
		return rows
	}
	negative := cols[0].Def.Negative
	sort.SliceStable(rows, func(i, j int) bool {
		a, aok := number(rows[i].Values[0])
		b, bok := number(rows[j].Values[0])
		switch {
		case !aok || !bok:
			return aok && !bok
		case negative:
			return a < b
		default:
			return a > b
		}
	})
	return rows
}

func number(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch v.(type) {
	case bool, stats.Counts:
		return 0, false
	}
	return stats.ToFloat(v)
}

// PrintPivotTable prints a per-team pivot table followed by an event-wide
// row. The best and worst value of each numeric column are highlighted and
// focus, when set, is marked with ">".
func PrintPivotTable(w io.Writer, d *dal.Data, cols []Column, focus int) {
	rows := Pivot(d, d.TeamNumbers(), cols)

	header := []any{" ", "TEAM", "NAME"}
	for _, c := range cols {
		header = append(header, c.Header())
	}
	table := newTable(w)
	table.Header(header...)

	hi, lo := extremes(rows, cols)
	for _, r := range rows {
		marker := " "
		if r.Team == focus {
			marker = ">"
		}
		cells := []any{marker, strconv.Itoa(r.Team), orDash(d.Teams[r.Team].Name)}
		for i, c := range cols {
			s := orDash(c.Def.Clean(r.Values[i]))
			if f, ok := number(r.Values[i]); ok && hi[i] != lo[i] {
				switch f {
				case hi[i]:
					s = best(s)
				case lo[i]:
					s = worst(s)
				}
			}
			cells = append(cells, s)
		}
		table.Append(cells...)
	}

	event := []any{" ", "ALL", "event"}
	for _, c := range cols {
		event = append(event, orDash(c.Def.Clean(d.ComputeStat(c.Def.Key, nil, c.Method))))
	}
	table.Append(event...)
	table.Render()
}

// extremes returns the best and worst numeric value per column, with best
// meaning lowest for negative statistics.
func extremes(rows []PivotRow, cols []Column) (hi, lo []float64) {
	hi, lo = make([]float64, len(cols)), make([]float64, len(cols))
	for i, c := range cols {
		if c.Def.Type.Categorical() {
			continue
		}
		seen := false
		for _, r := range rows {
			f, ok := number(r.Values[i])
			if !ok {
				continue
			}
			better, worse := f > hi[i], f < lo[i]
			if c.Def.Negative {
				better, worse = f < hi[i], f > lo[i]
			}
			if !seen || better {
				hi[i] = f
			}
			if !seen || worse {
				lo[i] = f
			}
			seen = true
		}
	}
	return hi, lo
}

// PrintResult prints every value resolvable for a team in a match, then the
// submissions behind them.
func PrintResult(w io.Writer, d *dal.Data, mr *result.MatchResult) {
	cfg := d.Config()
	fmt.Fprintf(w, "\nTeam %d  |  %s  |  %s %d\n\n", mr.Number, mr.MatchKey, mr.Alliance, mr.Index+1)

	table := newTable(w)
	table.Header("KEY", "NAME", "VALUE")
	keys := append(cfg.MatchKeys(), cfg.TeamKeys()...)
	for _, k := range keys {
		v := mr.Value(k)
		if v == nil {
			continue
		}
		def, err := cfg.ResultFromKey(k)
		if err != nil {
			continue
		}
		s := def.Clean(v)
		if def.Negative {
			s = worst(s)
		}
		table.Append(k.String(), def.Name, s)
	}
	table.Render()

	PrintSubmissions(w, &mr.Base)
	if mr.TeamResult != nil {
		PrintSubmissions(w, &mr.TeamResult.Base)
	}
}

// PrintTeamResult prints a team's team-scoped values and the submissions
// behind them.
func PrintTeamResult(w io.Writer, d *dal.Data, t *result.TeamResult) {
	cfg := d.Config()
	fmt.Fprintf(w, "\nTeam %d  |  %s  |  %d matches\n\n", t.Number, orDash(t.Name), len(t.Matches))

	table := newTable(w)
	table.Header("KEY", "NAME", "VALUE")
	for _, k := range cfg.TeamKeys() {
		v := t.Value(k)
		if v == nil {
			continue
		}
		def, err := cfg.ResultFromKey(k)
		if err != nil {
			continue
		}
		table.Append(k.String(), def.Name, def.Clean(v))
	}
	table.Render()
	PrintSubmissions(w, &t.Base)
}

// PrintSubmissions lists the stored submissions of a result.
func PrintSubmissions(w io.Writer, b *result.Base) {
	modes := b.Modes()
	if len(modes) == 0 {
		return
	}
	fmt.Fprintln(w)
	table := newTable(w)
	table.Header("SOURCE", "MODE", "SCOUTER", "UNSURE", "IGNORED", "USED")
	for _, mode := range modes {
		chosen := b.Best(mode)
		for _, s := range b.Submissions(mode) {
			used := ""
			if chosen != nil && chosen.SourceID == s.SourceID {
				used = best("*")
			}
			unsure := yesNo(s.Meta.Status.Unsure)
			if s.Meta.Status.UnsureReason != "" {
				unsure += " (" + s.Meta.Status.UnsureReason + ")"
			}
			table.Append(
				s.SourceID,
				mode,
				strconv.Itoa(s.Meta.Scouter.UserID),
				unsure,
				yesNo(s.Meta.Status.Ignore),
				used,
			)
		}
	}
	table.Render()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// PrintPicklist prints one pick list in order.
func PrintPicklist(w io.Writer, d *dal.Data, name string, col *Column) {
	header := []any{"#", "TEAM", "NAME", "RANK"}
	if col != nil {
		header = append(header, col.Header())
	}
	table := newTable(w)
	table.Header(header...)

	rank := model.FMSKey("rank")
	for i, num := range d.Picklists[name] {
		cells := []any{strconv.Itoa(i + 1), strconv.Itoa(num), "—", "—"}
		if t := d.Teams[num]; t != nil {
			cells[2] = orDash(t.Name)
			cells[3] = orDash(stats.Clean(t.Value(rank), stats.TypeNumber, nil))
		}
		if col != nil {
			cells = append(cells, orDash(col.Def.Clean(d.ComputeTeamStat(col.Def.Key, num, col.Method))))
		}
		table.Append(cells...)
	}
	table.Render()
}
