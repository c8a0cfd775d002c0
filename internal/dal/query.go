package dal

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wildrank/wrscout/internal/model"
	"github.com/wildrank/wrscout/internal/result"
	"github.com/wildrank/wrscout/internal/stats"
)

// TeamNumbers returns every team number, ascending.
func (d *Data) TeamNumbers() []int {
	out := make([]int, 0, len(d.Teams))
	for n := range d.Teams {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func (d *Data) matchLess(a, b *Match) bool {
	if a == nil || b == nil {
		return b != nil
	}
	if a.Level != b.Level {
		return a.Level.Order() < b.Level.Order()
	}
	if a.Set != b.Set {
		return a.Set < b.Set
	}
	return a.Number < b.Number
}

// MatchKeys returns match keys ordered by competition level (cm, qm, qf,
// sf, f), then set number, then match number. Without elims only
// qualification and custom matches are returned.
func (d *Data) MatchKeys(includeElims bool) []string {
	out := make([]string, 0, len(d.Matches))
	for k, m := range d.Matches {
		if includeElims || !m.Level.IsElim() {
			out = append(out, k)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := d.Matches[out[i]], d.Matches[out[j]]
		if a.Level == b.Level && a.Set == b.Set && a.Number == b.Number {
			return out[i] < out[j]
		}
		return d.matchLess(a, b)
	})
	return out
}

// MatchTeam returns the team at position (0-2 red, 3-5 blue), or 0.
func (d *Data) MatchTeam(matchKey string, position int) int {
	alliance := d.MatchAlliance(matchKey, position)
	i := position % 3
	if i >= len(alliance) {
		return 0
	}
	return alliance[i]
}

// MatchAlliance returns the alliance position belongs to.
func (d *Data) MatchAlliance(matchKey string, position int) []int {
	m, ok := d.Matches[matchKey]
	if !ok || position < 0 || position > 5 {
		return nil
	}
	if position < 3 {
		return m.Red
	}
	return m.Blue
}

// GetMatchResult returns team's result in matchKey, or nil.
func (d *Data) GetMatchResult(matchKey string, team int) *result.MatchResult {
	m, ok := d.Matches[matchKey]
	if !ok {
		return nil
	}
	return m.Results[team]
}

// GetTeamResult returns team's result, or nil.
func (d *Data) GetTeamResult(team int) *result.TeamResult {
	return d.Teams[team]
}

// IsMatchScouted reports whether team has a live submission for mode in
// matchKey. This is stricter than a plain existence check: ignored
// submissions do not count, so a match whose only submissions are ignored
// reads as not scouted.
func (d *Data) IsMatchScouted(matchKey string, team int, mode string) bool {
	mr := d.GetMatchResult(matchKey, team)
	return mr != nil && mr.IsScouted(mode)
}

// IsTeamScouted reports whether team has a live submission for mode.
// Ignored submissions do not count, as for IsMatchScouted.
func (d *Data) IsTeamScouted(team int, mode string) bool {
	t := d.GetTeamResult(team)
	return t != nil && t.IsScouted(mode)
}

// MatchValue resolves key for team in matchKey.
func (d *Data) MatchValue(matchKey string, team int, key model.Key) any {
	mr := d.GetMatchResult(matchKey, team)
	if mr == nil {
		return nil
	}
	return mr.Value(key)
}

// TeamValue resolves key for team.
func (d *Data) TeamValue(team int, key model.Key) any {
	t := d.GetTeamResult(team)
	if t == nil {
		return nil
	}
	return t.Value(key)
}

// resolveTeams expands a nil team list to every team.
func (d *Data) resolveTeams(teams []int) []int {
	if teams == nil {
		return d.TeamNumbers()
	}
	return teams
}

// teamMatchResults returns team's match results in match order.
func (d *Data) teamMatchResults(team int) []*result.MatchResult {
	t := d.Teams[team]
	if t == nil {
		return nil
	}
	out := make([]*result.MatchResult, 0, len(t.Matches))
	for _, k := range t.Matches {
		if mr := d.GetMatchResult(k, team); mr != nil {
			out = append(out, mr)
		}
	}
	return out
}

func stripNil(vals []any, filterNull bool) []any {
	if !filterNull {
		return vals
	}
	out := vals[:0]
	for _, v := range vals {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

// GetMatchResults gathers key across every match played by teams (nil for
// all teams).
func (d *Data) GetMatchResults(key model.Key, teams []int, filterNull bool) []any {
	var vals []any
	for _, team := range d.resolveTeams(teams) {
		for _, mr := range d.teamMatchResults(team) {
			vals = append(vals, mr.Value(key))
		}
	}
	return stripNil(vals, filterNull)
}

// GetTeamResults gathers key across teams (nil for all teams).
func (d *Data) GetTeamResults(key model.Key, teams []int, filterNull bool) []any {
	var vals []any
	for _, team := range d.resolveTeams(teams) {
		if t := d.Teams[team]; t != nil {
			vals = append(vals, t.Value(key))
		}
	}
	return stripNil(vals, filterNull)
}

// entities returns the results key is evaluated on for teams.
func (d *Data) entities(key model.Key, teams []int) []stats.Entity {
	var out []stats.Entity
	for _, team := range teams {
		if d.cfg.IsTeamKey(key) {
			if t := d.Teams[team]; t != nil {
				out = append(out, t)
			}
			continue
		}
		for _, mr := range d.teamMatchResults(team) {
			out = append(out, mr)
		}
	}
	return out
}

func cacheKey(key model.Key, m stats.Method) string {
	return key.String() + ":" + string(m)
}

// ComputeTeamStat aggregates key over one team's entities with method m.
// Results are cached until the next load.
func (d *Data) ComputeTeamStat(key model.Key, team int, m stats.Method) any {
	ck := cacheKey(key, m)
	byTeam, ok := d.cache[ck]
	if !ok {
		byTeam = make(map[int]any)
		d.cache[ck] = byTeam
	}
	if v, ok := byTeam[team]; ok {
		return v
	}
	v := d.computeStat(key, []int{team}, m)
	byTeam[team] = v
	return v
}

// ComputeStat aggregates key over teams (nil for all teams) with method m.
// Multi-team aggregates are never cached.
func (d *Data) ComputeStat(key model.Key, teams []int, m stats.Method) any {
	return d.computeStat(key, d.resolveTeams(teams), m)
}

func (d *Data) computeStat(key model.Key, teams []int, m stats.Method) any {
	def, err := d.cfg.ResultFromKey(key)
	if err != nil {
		d.log.Warn("cannot compute stat", "key", key.String(), "err", err)
		return nil
	}
	if def.Smart != nil && def.Smart.Recompute() {
		return def.Smart.Aggregate(d.entities(key, teams), d, m)
	}
	var vals []any
	if d.cfg.IsTeamKey(key) {
		vals = d.GetTeamResults(key, teams, true)
	} else {
		vals = d.GetMatchResults(key, teams, true)
	}
	return def.ComputeStat(vals, m)
}

// TeamStat implements stats.Env.
func (d *Data) TeamStat(k model.Key, team int, m stats.Method) any {
	return d.ComputeTeamStat(k, team, m)
}

// ParseStatKey parses "<key>[:<method>]", defaulting the method to the key's
// default statistic.
func (d *Data) ParseStatKey(s string) (model.Key, stats.Method, error) {
	ks, ms := s, ""
	if i := strings.LastIndex(s, ":"); i >= 0 {
		ks, ms = s[:i], s[i+1:]
	}
	def, err := d.cfg.Lookup(ks)
	if err != nil {
		return model.Key{}, "", err
	}
	if ms == "" {
		return def.Key, def.DefaultStat(), nil
	}
	m, err := stats.ParseMethod(ms)
	if err != nil {
		return model.Key{}, "", fmt.Errorf("%s: %w", s, err)
	}
	return def.Key, m, nil
}

// ParseTeams converts team arguments ("254", "frc254") into numbers.
func ParseTeams(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		n, err := model.ParseTeamKey(a)
		if err != nil {
			return nil, fmt.Errorf("team %q: %w", a, err)
		}
		out = append(out, n)
	}
	return out, nil
}

var _ stats.Env = (*Data)(nil)