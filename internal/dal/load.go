package dal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/wildrank/wrscout/internal/config"
	"github.com/wildrank/wrscout/internal/model"
	"github.com/wildrank/wrscout/internal/result"
	"github.com/wildrank/wrscout/internal/storage"
)

// ResultPrefix starts the key of every stored scouting submission.
const ResultPrefix = "result-"

// Stored blob keys for an event.
func EventKey(event string) string     { return "event-" + event }
func TeamsKey(event string) string     { return "teams-" + event }
func MatchesKey(event string) string   { return "matches-" + event }
func RankingsKey(event string) string  { return "rankings-" + event }
func PicklistsKey(event string) string { return "picklists-" + event }

// LoadData rebuilds the whole event from the store. Missing or unreadable
// blobs are logged and leave their part of the event empty; only store
// failures are returned.
func (d *Data) LoadData(ctx context.Context) error {
	if !d.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer d.busy.Store(false)

	d.loaded = false
	d.cache = make(map[string]map[int]any)
	d.Name, d.DoubleElim, d.AllianceSize = d.EventID, false, 0
	d.Teams = make(map[int]*result.TeamResult)
	d.Matches = make(map[string]*Match)
	d.Picklists = make(map[string][]int)

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"event", d.loadEvent},
		{"teams", d.loadTeams},
		{"rankings", d.loadRankings},
		{"matches", d.loadMatches},
		{"results", d.loadResults},
		{"smart results", d.computeSmartResults},
		{"picklists", d.loadPicklists},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("load %s: %w", s.name, err)
		}
	}

	d.generation++
	d.loaded = true
	d.log.Debug("event loaded", "teams", len(d.Teams), "matches", len(d.Matches), "generation", d.generation)
	return nil
}

// readBlob fetches key. A missing key is logged and reported as !ok.
func (d *Data) readBlob(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := d.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		d.log.Warn("no stored data", "key", key)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (d *Data) readJSON(ctx context.Context, key string, v any) (bool, error) {
	b, ok, err := d.readBlob(ctx, key)
	if !ok || err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		d.log.Warn("unreadable stored data", "key", key, "err", err)
		return false, nil
	}
	return true, nil
}

func (d *Data) loadEvent(ctx context.Context) error {
	var ev model.EventRecord
	ok, err := d.readJSON(ctx, EventKey(d.EventID), &ev)
	if !ok || err != nil {
		return err
	}
	if ev.Name != "" {
		d.Name = ev.Name
	}
	d.DoubleElim = ev.PlayoffType == model.PlayoffDoubleElim
	return nil
}

func (d *Data) loadTeams(ctx context.Context) error {
	var recs []model.TeamRecord
	ok, err := d.readJSON(ctx, TeamsKey(d.EventID), &recs)
	if !ok || err != nil {
		return err
	}
	for _, rec := range recs {
		num := rec.TeamNumber
		if num == 0 {
			if num, err = model.ParseTeamKey(rec.Key); err != nil {
				d.log.Warn("team without number", "key", rec.Key)
				continue
			}
		}
		t := result.NewTeamResult(d.cfg, d.log, num)
		t.Name = rec.Nickname
		if t.Name == "" {
			t.Name = rec.Name
		}
		t.City, t.StateProv, t.Country = rec.City, rec.StateProv, rec.Country
		d.Teams[num] = t
	}
	return nil
}

// loadRankings merges each team's ranking entry into its official values.
// Both the full rankings response and a bare list of entries are accepted.
func (d *Data) loadRankings(ctx context.Context) error {
	b, ok, err := d.readBlob(ctx, RankingsKey(d.EventID))
	if !ok || err != nil {
		return err
	}
	if !gjson.ValidBytes(b) {
		d.log.Warn("unreadable stored data", "key", RankingsKey(d.EventID))
		return nil
	}
	list := gjson.GetBytes(b, "rankings")
	if !list.Exists() {
		list = gjson.ParseBytes(b)
	}
	list.ForEach(func(_, entry gjson.Result) bool {
		teamKey := entry.Get("team_key").String()
		num, err := model.ParseTeamKey(teamKey)
		if err != nil {
			d.log.Warn("ranking without team", "team_key", teamKey)
			return true
		}
		t, found := d.Teams[num]
		if !found {
			d.log.Warn("ranked team not in team list", "team", num)
			return true
		}
		if raw, ok := entry.Value().(map[string]any); ok {
			t.AddFMSResult(raw)
		}
		return true
	})
	return nil
}

func (d *Data) loadMatches(ctx context.Context) error {
	var recs []model.MatchRecord
	ok, err := d.readJSON(ctx, MatchesKey(d.EventID), &recs)
	if !ok || err != nil {
		return err
	}
	sizeFrom := 0
	for i := range recs {
		rec := &recs[i]
		key := rec.Key
		if key == "" {
			key = model.MatchKey(d.EventID, rec.CompLevel, rec.SetNumber, rec.MatchNumber)
		}
		name, short := model.MatchName(rec.CompLevel, rec.SetNumber, rec.MatchNumber, d.DoubleElim)
		m := &Match{
			Key:       key,
			Level:     rec.CompLevel,
			Set:       rec.SetNumber,
			Number:    rec.MatchNumber,
			Name:      name,
			ShortName: short,
			Time:      rec.BestTime(),
			Complete:  rec.Complete(),
			Red:       d.teamNumbers(key, rec.Alliances.Red.TeamKeys),
			Blue:      d.teamNumbers(key, rec.Alliances.Blue.TeamKeys),
			RedScore:  rec.Alliances.Red.Score,
			BlueScore: rec.Alliances.Blue.Score,
			Breakdown: rec.ScoreBreakdown,
			Results:   make(map[int]*result.MatchResult),
		}
		// alliance size comes from the first qualification match played
		if m.Level == model.LevelQual && (sizeFrom == 0 || m.Number < sizeFrom) {
			d.AllianceSize, sizeFrom = len(m.Red), m.Number
		}
		for i, num := range m.Red {
			d.addMatchTeam(m, i, num)
		}
		for i, num := range m.Blue {
			d.addMatchTeam(m, 3+i, num)
		}
		d.Matches[key] = m
	}
	for _, t := range d.Teams {
		sort.Slice(t.Matches, func(i, j int) bool {
			return d.matchLess(d.Matches[t.Matches[i]], d.Matches[t.Matches[j]])
		})
	}
	return nil
}

func (d *Data) teamNumbers(matchKey string, keys []string) []int {
	out := make([]int, 0, len(keys))
	for _, k := range keys {
		n, err := model.ParseTeamKey(k)
		if err != nil {
			d.log.Warn("bad team key in match", "match", matchKey, "team_key", k)
			continue
		}
		out = append(out, n)
	}
	return out
}

// addMatchTeam creates the result for the team at position of m. Teams
// missing from the team list are added so every match keeps its six results.
func (d *Data) addMatchTeam(m *Match, position, num int) {
	t, ok := d.Teams[num]
	if !ok {
		d.log.Warn("match team not in team list", "match", m.Key, "team", num)
		t = result.NewTeamResult(d.cfg, d.log, num)
		d.Teams[num] = t
	}
	mr := result.NewMatchResult(d.cfg, d.log, m.Key, position, t)
	if bd := m.Breakdown[mr.Alliance]; bd != nil {
		mr.AddFMSResult(bd)
	}
	m.Results[num] = mr
	t.Matches = append(t.Matches, m.Key)
}

func (d *Data) loadResults(ctx context.Context) error {
	keys, err := d.store.Keys(ctx, ResultPrefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := d.store.Get(ctx, k)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		raw, err := model.DecodeRawResult(b)
		if err != nil {
			d.log.Warn("dropping unreadable submission", "key", k, "err", err)
			continue
		}
		if raw.Meta.Result.EventID != d.EventID {
			continue
		}
		d.routeResult(k, raw)
	}
	return nil
}

// routeResult attaches a submission to the entities its mode and metadata
// point at. Submissions whose match or team is unknown are dropped.
func (d *Data) routeResult(sourceID string, raw *model.RawResult) {
	meta := raw.Meta.Result
	team := int(meta.TeamNum)
	mode, ok := d.cfg.ScoutConfig(meta.ScoutMode)
	if !ok {
		d.log.Warn("dropping submission for unknown mode", "key", sourceID, "mode", meta.ScoutMode)
		return
	}

	if mode.Type == config.ModeTeam {
		t, ok := d.Teams[team]
		if !ok {
			d.log.Warn("dropping submission for unknown team", "key", sourceID, "team", team)
			return
		}
		t.AddResult(sourceID, raw)
		return
	}

	matchKey := meta.MatchKey
	if matchKey == "" && meta.MatchNumber > 0 {
		matchKey = fmt.Sprintf("%s_qm%d", d.EventID, meta.MatchNumber)
	}
	m, ok := d.Matches[matchKey]
	if !ok {
		d.log.Warn("dropping submission for unknown match", "key", sourceID, "match", matchKey)
		return
	}

	if mode.Type == config.ModeMatchTeam {
		mr, ok := m.Results[team]
		if !ok {
			d.log.Warn("dropping submission for team not in match", "key", sourceID, "match", matchKey, "team", team)
			return
		}
		mr.AddResult(sourceID, raw)
		return
	}

	alliance := meta.Alliance
	if alliance == "" {
		if mr, ok := m.Results[team]; ok {
			alliance = mr.Alliance
		}
	}
	var teams []int
	switch alliance {
	case "red":
		teams = m.Red
	case "blue":
		teams = m.Blue
	default:
		d.log.Warn("dropping alliance submission without alliance", "key", sourceID, "match", matchKey)
		return
	}
	for _, t := range teams {
		m.Results[t].AddResult(sourceID, raw)
	}
}

// computeSmartResults evaluates every derived statistic one definition at a
// time, so a statistic sees the final values of everything it depends on.
func (d *Data) computeSmartResults(context.Context) error {
	teams := d.TeamNumbers()
	matchKeys := d.MatchKeys(true)
	for _, def := range d.cfg.SmartStats() {
		if d.cfg.IsTeamKey(def.Key) {
			for _, num := range teams {
				d.Teams[num].ComputeSmartResult(def, d)
			}
			continue
		}
		for _, k := range matchKeys {
			m := d.Matches[k]
			for _, num := range m.Teams() {
				m.Results[num].ComputeSmartResult(def, d)
			}
		}
	}
	return nil
}

func (d *Data) loadPicklists(ctx context.Context) error {
	b, err := d.store.Get(ctx, PicklistsKey(d.EventID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, &d.Picklists); err != nil {
		d.log.Warn("unreadable stored data", "key", PicklistsKey(d.EventID), "err", err)
		d.Picklists = make(map[string][]int)
	}
	return nil
}
