package result

import (
	"log/slog"

	"github.com/wildrank/wrscout/internal/config"
	"github.com/wildrank/wrscout/internal/model"
	"github.com/wildrank/wrscout/internal/stats"
)

// TeamResult holds a team's pit submissions, rankings and team-level
// derived statistics.
type TeamResult struct {
	Base

	Number    int
	Name      string
	City      string
	StateProv string
	Country   string
	// Matches lists the keys of the matches the team plays, in load order.
	Matches []string
}

// NewTeamResult returns an empty result for team number.
func NewTeamResult(schema Schema, log *slog.Logger, number int) *TeamResult {
	return &TeamResult{Base: newBase(schema, log), Number: number}
}

// Team implements stats.Entity.
func (t *TeamResult) Team() int { return t.Number }

// ComputeSmartResult evaluates one team-scoped statistic and stores it.
func (t *TeamResult) ComputeSmartResult(def *config.Result, env stats.Env) {
	t.computeSmart(t, def, env)
}

// ComputeSmartResults evaluates every team-scoped statistic in dependency
// order.
func (t *TeamResult) ComputeSmartResults(env stats.Env) {
	for _, def := range t.schema.SmartStats() {
		if t.schema.IsTeamKey(def.Key) {
			t.ComputeSmartResult(def, env)
		}
	}
}

// MatchResult holds what was scouted for one team in one match. Team-scoped
// keys resolve against the team's TeamResult.
type MatchResult struct {
	Base

	MatchKey string
	Number   int
	Alliance string // "red" or "blue"
	// Index is the team's slot within its alliance (0-2); Position counts
	// red then blue (0-5).
	Index    int
	Position int

	TeamResult *TeamResult
}

// NewMatchResult returns an empty result for the team at position (0-5) of
// matchKey.
func NewMatchResult(schema Schema, log *slog.Logger, matchKey string, position int, team *TeamResult) *MatchResult {
	m := &MatchResult{
		Base:       newBase(schema, log),
		MatchKey:   matchKey,
		Alliance:   "red",
		Index:      position % 3,
		Position:   position,
		TeamResult: team,
	}
	if position >= 3 {
		m.Alliance = "blue"
	}
	if team != nil {
		m.Number = team.Number
	}
	return m
}

// Team implements stats.Entity.
func (m *MatchResult) Team() int { return m.Number }

// Value resolves k, delegating team-scoped keys to the team's result.
func (m *MatchResult) Value(k model.Key) any {
	if m.TeamResult != nil && m.schema.IsTeamKey(k) {
		return m.TeamResult.Value(k)
	}
	return m.Base.Value(k)
}

// IsScouted reports whether mode was scouted for this match or, for team
// modes, for the team.
func (m *MatchResult) IsScouted(mode string) bool {
	if m.Base.IsScouted(mode) {
		return true
	}
	return m.TeamResult != nil && m.TeamResult.IsScouted(mode)
}

// AddFMSResult merges the alliance's score breakdown, resolving per-robot
// fields for this team's slot.
func (m *MatchResult) AddFMSResult(raw map[string]any) {
	m.mergeFMS(raw, m.Index)
}

// ComputeSmartResult evaluates one match-scoped statistic and stores it.
func (m *MatchResult) ComputeSmartResult(def *config.Result, env stats.Env) {
	m.computeSmart(m, def, env)
}

// ComputeSmartResults evaluates every match-scoped statistic in dependency
// order.
func (m *MatchResult) ComputeSmartResults(env stats.Env) {
	for _, def := range m.schema.SmartStats() {
		if !m.schema.IsTeamKey(def.Key) {
			m.ComputeSmartResult(def, env)
		}
	}
}
