package dal

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/wildrank/wrscout/internal/config"
	"github.com/wildrank/wrscout/internal/model"
	"github.com/wildrank/wrscout/internal/stats"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func mustKey(t *testing.T, d *Data, s string) model.Key {
	t.Helper()
	def, err := d.Config().Lookup(s)
	if err != nil {
		t.Fatalf("lookup %s: %v", s, err)
	}
	return def.Key
}

func TestLoadEventAndTeams(t *testing.T) {
	d, _ := loadFixture(t)

	if d.Name != "FIM District Belleville Event" || !d.DoubleElim {
		t.Errorf("event = %q double elim %v", d.Name, d.DoubleElim)
	}
	if d.AllianceSize != 3 {
		t.Errorf("alliance size = %d, want 3", d.AllianceSize)
	}
	if got := d.TeamNumbers(); !reflect.DeepEqual(got, []int{33, 67, 118, 254, 1678, 2056}) {
		t.Errorf("TeamNumbers = %v", got)
	}
	if d.Teams[118].Name != "Team 118" || d.Teams[118].Country != "USA" {
		t.Errorf("team 118 metadata = %+v", d.Teams[118])
	}
	if !d.Loaded() || d.Generation() != 1 {
		t.Errorf("loaded %v generation %d", d.Loaded(), d.Generation())
	}
}

func TestLoadMatches(t *testing.T) {
	d, _ := loadFixture(t)

	tests := []struct {
		key, name, short string
		complete         bool
		time             int64
	}{
		{testEvent + "_qm1", "Qual 1", "1", true, 1100},
		{testEvent + "_qm2", "Qual 2", "2", false, 2050},
		{testEvent + "_sf3m1", "Round 1 Match 3", "M3", false, 1000},
		{testEvent + "_f1m1", "Final 1", "F1", false, 1000},
	}
	for _, tt := range tests {
		m, ok := d.Matches[tt.key]
		if !ok {
			t.Errorf("%s not loaded", tt.key)
			continue
		}
		if m.Name != tt.name || m.ShortName != tt.short {
			t.Errorf("%s named %q/%q, want %q/%q", tt.key, m.Name, m.ShortName, tt.name, tt.short)
		}
		if m.Complete != tt.complete || m.Time != tt.time {
			t.Errorf("%s complete %v time %d", tt.key, m.Complete, m.Time)
		}
		if len(m.Results) != 6 {
			t.Errorf("%s has %d results, want 6", tt.key, len(m.Results))
		}
	}

	if got := d.Teams[118].Matches; !reflect.DeepEqual(got, d.MatchKeys(true)) {
		t.Errorf("team 118 matches = %v", got)
	}
}

func TestMatchNamingStableAcrossLoads(t *testing.T) {
	d, _ := loadFixture(t)
	before := map[string]string{}
	for k, m := range d.Matches {
		before[k] = m.Name + "|" + m.ShortName
	}
	if err := d.LoadData(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	for k, m := range d.Matches {
		if got := m.Name + "|" + m.ShortName; got != before[k] {
			t.Errorf("%s renamed from %s to %s", k, before[k], got)
		}
	}
}

func TestMatchKeysOrder(t *testing.T) {
	d, _ := loadFixture(t)
	want := []string{testEvent + "_qm1", testEvent + "_qm2", testEvent + "_sf3m1", testEvent + "_f1m1"}
	if got := d.MatchKeys(true); !reflect.DeepEqual(got, want) {
		t.Errorf("MatchKeys(true) = %v, want %v", got, want)
	}
	if got := d.MatchKeys(false); !reflect.DeepEqual(got, want[:2]) {
		t.Errorf("MatchKeys(false) = %v", got)
	}
}

func TestMatchPositions(t *testing.T) {
	d, _ := loadFixture(t)
	qm2 := testEvent + "_qm2"
	tests := []struct {
		pos, team int
	}{
		{0, 2056}, {1, 118}, {2, 33}, {3, 254}, {4, 67}, {5, 1678}, {6, 0},
	}
	for _, tt := range tests {
		if got := d.MatchTeam(qm2, tt.pos); got != tt.team {
			t.Errorf("position %d = %d, want %d", tt.pos, got, tt.team)
		}
	}
	if got := d.MatchAlliance(qm2, 4); !reflect.DeepEqual(got, []int{254, 67, 1678}) {
		t.Errorf("blue alliance = %v", got)
	}
	if got := d.MatchAlliance("nope", 0); got != nil {
		t.Errorf("unknown match alliance = %v", got)
	}
}

func TestResultRouting(t *testing.T) {
	d, _ := loadFixture(t)
	qm1, qm2 := testEvent+"_qm1", testEvent+"_qm2"
	speaker := mustKey(t, d, "result.match_tele_speaker")

	if got := d.MatchValue(qm1, 118, speaker); got != 5.0 {
		t.Errorf("118 qm1 speaker = %v", got)
	}
	if got := d.MatchValue(qm2, 254, speaker); got != 6.0 {
		t.Errorf("submission without match key not routed to qm2: %v", got)
	}
	if !d.IsMatchScouted(qm1, 118, "match") || d.IsMatchScouted(qm1, 1678, "match") {
		t.Error("unexpected match scouted state")
	}

	coop := mustKey(t, d, "result.note_coop")
	for _, team := range []int{118, 254, 1678} {
		if got := d.MatchValue(qm1, team, coop); got != true {
			t.Errorf("alliance note missing for %d: %v", team, got)
		}
	}
	if got := d.MatchValue(qm1, 2056, coop); got != nil {
		t.Errorf("red alliance note reached blue team: %v", got)
	}

	weight := mustKey(t, d, "result.pit_weight")
	if got := d.TeamValue(118, weight); got != 120.0 {
		t.Errorf("pit weight = %v", got)
	}
	if got := d.MatchValue(qm2, 118, weight); got != 120.0 {
		t.Errorf("pit weight through match = %v", got)
	}
	if !d.IsTeamScouted(118, "pit") || d.IsTeamScouted(254, "pit") {
		t.Error("unexpected pit scouted state")
	}

	// orphaned, foreign and unreadable submissions are dropped
	if got := d.GetMatchResults(speaker, []int{118}, true); !reflect.DeepEqual(got, []any{5.0, 3.0}) {
		t.Errorf("118 speaker values = %v", got)
	}
}

func TestFMSValues(t *testing.T) {
	d, _ := loadFixture(t)
	qm1 := testEvent + "_qm1"
	leave := mustKey(t, d, "fms.auto_line_robot")
	endgame := mustKey(t, d, "fms.end_game_robot")

	tests := []struct {
		team    int
		leave   any
		endgame any
	}{
		{118, true, "StageLeft"},
		{254, false, "Parked"},
		{1678, true, "None"},
		{2056, false, nil},
		{67, true, nil},
	}
	for _, tt := range tests {
		if got := d.MatchValue(qm1, tt.team, leave); got != tt.leave {
			t.Errorf("%d auto_line_robot = %v, want %v", tt.team, got, tt.leave)
		}
		if got := d.MatchValue(qm1, tt.team, endgame); got != tt.endgame {
			t.Errorf("%d end_game_robot = %v, want %v", tt.team, got, tt.endgame)
		}
	}
	if got := d.MatchValue(qm1, 33, mustKey(t, d, "fms.total_points")); got != 45.0 {
		t.Errorf("blue total points = %v", got)
	}

	if got := d.TeamValue(118, mustKey(t, d, "fms.rank")); got != 1.0 {
		t.Errorf("118 rank = %v", got)
	}
	if got := d.TeamValue(254, mustKey(t, d, "fms.record_losses")); got != 1.0 {
		t.Errorf("254 losses = %v", got)
	}
}

func TestSmartResults(t *testing.T) {
	d, _ := loadFixture(t)
	qm1 := testEvent + "_qm1"

	match := map[string]float64{
		"smart.auto_pieces":   2,
		"smart.tele_pieces":   6,
		"smart.total_pieces":  8,
		"smart.climb_points":  3,
		"smart.contribution":  19,
		"smart.ground_scored": 1,
	}
	for k, want := range match {
		got, ok := d.MatchValue(qm1, 118, mustKey(t, d, k)).(float64)
		if !ok || !approx(got, want) {
			t.Errorf("%s = %v, want %v", k, d.MatchValue(qm1, 118, mustKey(t, d, k)), want)
		}
	}

	if got, _ := d.TeamValue(118, mustKey(t, d, "smart.weight_per_rp")).(float64); !approx(got, 10) {
		t.Errorf("weight_per_rp = %v, want 10", got)
	}

	rank := mustKey(t, d, "smart.speaker_rank")
	if got := d.TeamValue(254, rank); got != 1.0 {
		t.Errorf("254 speaker rank = %v, want 1", got)
	}
	if got := d.TeamValue(118, rank); got != 0.0 {
		t.Errorf("118 speaker rank = %v, want 0", got)
	}
	if got := d.TeamValue(33, rank); got != nil {
		t.Errorf("unscouted team rank = %v, want nil", got)
	}
}

func TestComputeStat(t *testing.T) {
	d, _ := loadFixture(t)
	speaker := mustKey(t, d, "result.match_tele_speaker")

	if got := d.ComputeTeamStat(speaker, 118, stats.Mean); got != 4.0 {
		t.Errorf("118 mean speaker = %v, want 4", got)
	}
	if got := d.ComputeTeamStat(speaker, 118, stats.Max); got != 5.0 {
		t.Errorf("118 max speaker = %v, want 5", got)
	}
	if got := d.ComputeStat(speaker, []int{118, 254}, stats.Mean); got != 5.5 {
		t.Errorf("118+254 mean speaker = %v, want 5.5", got)
	}
	if got := d.ComputeStat(speaker, nil, stats.Total); got != 22.0 {
		t.Errorf("event total speaker = %v, want 22", got)
	}

	// accuracy recomputes from summed counters: 8 / (8 + 4)
	accuracy := mustKey(t, d, "smart.accuracy")
	if got, _ := d.ComputeTeamStat(accuracy, 118, stats.Mean).(float64); !approx(got, 8.0/12.0) {
		t.Errorf("118 accuracy = %v", got)
	}

	groundAcc := mustKey(t, d, "smart.ground_accuracy")
	if got, _ := d.ComputeTeamStat(groundAcc, 118, stats.Mean).(float64); !approx(got, 1.0/3.0) {
		t.Errorf("118 ground accuracy = %v", got)
	}

	climb := mustKey(t, d, "result.match_climb")
	if got := d.ComputeTeamStat(climb, 118, stats.Mode); got != 2 {
		t.Errorf("118 climb mode = %v, want option 2", got)
	}

	unknown := model.SmartKey("nope")
	if got := d.ComputeStat(unknown, nil, stats.Mean); got != nil {
		t.Errorf("unknown key = %v", got)
	}
}

// countingStat is a recomputed definition that counts its aggregations.
type countingStat struct {
	stats.Info
	calls int
}

func (c *countingStat) Kind() stats.Kind { return stats.KindSum }
func (c *countingStat) Recompute() bool { return true }
func (c *countingStat) Dependencies() []model.Key { return nil }
func (c *countingStat) Evaluate(stats.Entity, stats.Env) any { return nil }

func (c *countingStat) Aggregate(es []stats.Entity, _ stats.Env, _ stats.Method) any {
	c.calls++
	return float64(len(es))
}

func TestComputeStatCache(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	counted := &countingStat{Info: stats.Info{ID: "counted", Name: "Counted"}}
	key := model.SmartKey("counted")
	cfg.AddResult(&config.Result{Key: key, Name: "Counted", Type: stats.TypeNumber, Smart: counted}, false)

	db := openMemDB(t)
	seedEvent(t, db)
	d := New(testEvent, cfg, db, WithLogger(quietLogger()))
	if err := d.LoadData(context.Background()); err != nil {
		t.Fatal(err)
	}

	first := d.ComputeTeamStat(key, 118, stats.Mean)
	second := d.ComputeTeamStat(key, 118, stats.Mean)
	if first != second || first != 4.0 {
		t.Errorf("cached value changed: %v then %v", first, second)
	}
	if counted.calls != 1 {
		t.Fatalf("single team aggregated %d times, want 1", counted.calls)
	}

	d.ComputeStat(key, []int{118}, stats.Mean)
	d.ComputeStat(key, []int{118, 254}, stats.Mean)
	d.ComputeStat(key, []int{118, 254}, stats.Mean)
	if counted.calls != 4 {
		t.Errorf("multi team aggregates served from cache: %d calls, want 4", counted.calls)
	}

	if err := d.LoadData(context.Background()); err != nil {
		t.Fatal(err)
	}
	d.ComputeTeamStat(key, 118, stats.Mean)
	if counted.calls != 5 {
		t.Errorf("cache survived reload: %d calls, want 5", counted.calls)
	}
}

func TestGetResultsFilterNull(t *testing.T) {
	d, _ := loadFixture(t)
	speaker := mustKey(t, d, "result.match_tele_speaker")

	all := d.GetMatchResults(speaker, []int{1678}, false)
	if len(all) != 4 {
		t.Errorf("unfiltered results = %v, want 4 entries", all)
	}
	if got := d.GetMatchResults(speaker, []int{1678}, true); len(got) != 0 {
		t.Errorf("filtered results = %v", got)
	}
	weight := mustKey(t, d, "result.pit_weight")
	if got := d.GetTeamResults(weight, nil, true); !reflect.DeepEqual(got, []any{120.0}) {
		t.Errorf("team results = %v", got)
	}
}

func TestSetIgnore(t *testing.T) {
	d, db := loadFixture(t)
	ctx := context.Background()
	qm1 := testEvent + "_qm1"
	speaker := mustKey(t, d, "result.match_tele_speaker")

	before := d.ComputeTeamStat(speaker, 118, stats.Mean)
	if err := d.SetIgnore(ctx, "result-01", true); err != nil {
		t.Fatalf("SetIgnore: %v", err)
	}
	if got := d.MatchValue(qm1, 118, speaker); got != nil {
		t.Errorf("ignored submission still read: %v", got)
	}
	if after := d.ComputeTeamStat(speaker, 118, stats.Mean); after == before || after != 3.0 {
		t.Errorf("mean after ignore = %v (before %v)", after, before)
	}
	if d.Generation() != 2 {
		t.Errorf("generation = %d, want 2", d.Generation())
	}

	b, err := db.Get(ctx, "result-01")
	if err != nil {
		t.Fatal(err)
	}
	if !gjson.GetBytes(b, "meta.status.ignore").Bool() {
		t.Error("ignore flag not persisted")
	}
	if got := gjson.GetBytes(b, "result.match_tele_speaker").Float(); got != 5 {
		t.Errorf("patch changed result values: %v", got)
	}

	if err := d.SetIgnore(ctx, "result-nope", true); err == nil {
		t.Error("expected error for unknown submission")
	}

	teams, err := db.Get(ctx, TeamsKey(testEvent))
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{TeamsKey(testEvent), PicklistsKey(testEvent), EventKey(testEvent)} {
		if err := d.SetIgnore(ctx, k, true); err == nil {
			t.Errorf("SetIgnore(%s): want error for a non-submission key", k)
		}
	}
	after, err := db.Get(ctx, TeamsKey(testEvent))
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != string(teams) {
		t.Error("teams blob was patched")
	}
}

func TestIgnoredSubmissionsDoNotCountAsScouted(t *testing.T) {
	d, _ := loadFixture(t)
	ctx := context.Background()
	qm1 := testEvent + "_qm1"

	if !d.IsMatchScouted(qm1, 254, "match") || !d.IsTeamScouted(118, "pit") {
		t.Fatal("fixture submissions should count as scouted")
	}
	if err := d.SetIgnore(ctx, "result-03", true); err != nil {
		t.Fatal(err)
	}
	if err := d.SetIgnore(ctx, "result-04", true); err != nil {
		t.Fatal(err)
	}
	if d.IsMatchScouted(qm1, 254, "match") {
		t.Error("254 in qm1 has only an ignored submission but reads as scouted")
	}
	if d.IsTeamScouted(118, "pit") {
		t.Error("118 has only an ignored pit submission but reads as scouted")
	}
}

func TestAllianceSizeFromFirstQual(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	db := openMemDB(t)
	// qm2 is listed first and plays two-team alliances
	put(t, db, MatchesKey(testEvent), []model.MatchRecord{
		matchRecord(model.LevelQual, 1, 2, []int{118, 254}, []int{33, 67}),
		matchRecord(model.LevelSemi, 1, 1, []int{118}, []int{33}),
		matchRecord(model.LevelQual, 1, 1, []int{118, 254, 1678}, []int{2056, 33, 67}),
	})
	d := New(testEvent, cfg, db, WithLogger(quietLogger()))
	if err := d.LoadData(context.Background()); err != nil {
		t.Fatal(err)
	}
	if d.AllianceSize != 3 {
		t.Errorf("alliance size = %d, want 3 from qm1", d.AllianceSize)
	}
}

func TestSaveSubmission(t *testing.T) {
	d, _ := loadFixture(t)
	ctx := context.Background()

	key, err := d.SaveSubmission(ctx, submission("pit", "", 254, map[string]any{"pit_weight": 115.0}))
	if err != nil {
		t.Fatalf("SaveSubmission: %v", err)
	}
	if !strings.HasPrefix(key, ResultPrefix) {
		t.Errorf("key %q", key)
	}
	if got := d.TeamValue(254, mustKey(t, d, "result.pit_weight")); got != 115.0 {
		t.Errorf("saved pit weight = %v", got)
	}

	bad := submission("bogus", "", 254, nil)
	if _, err := d.SaveSubmission(ctx, bad); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestPicklists(t *testing.T) {
	d, db := loadFixture(t)
	ctx := context.Background()

	for _, team := range []int{254, 118, 1678} {
		if err := d.AddToPicklist(ctx, "first pick", team, -1); err != nil {
			t.Fatalf("AddToPicklist: %v", err)
		}
	}
	if err := d.AddToPicklist(ctx, "first pick", 1678, 0); err != nil {
		t.Fatal(err)
	}
	if err := d.RemoveFromPicklist(ctx, "first pick", 254); err != nil {
		t.Fatal(err)
	}
	if err := d.AddToPicklist(ctx, "dnp", 9999, 0); err == nil {
		t.Error("expected error for team not at event")
	}

	reloaded := New(testEvent, d.Config(), db, WithLogger(quietLogger()))
	if err := reloaded.LoadData(ctx); err != nil {
		t.Fatal(err)
	}
	if got := reloaded.Picklists["first pick"]; !reflect.DeepEqual(got, []int{1678, 118}) {
		t.Errorf("persisted picklist = %v", got)
	}
	if got := reloaded.PicklistNames(); !reflect.DeepEqual(got, []string{"first pick"}) {
		t.Errorf("names = %v", got)
	}
	if err := reloaded.DeletePicklist(ctx, "first pick"); err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Picklists) != 0 {
		t.Errorf("picklists after delete = %v", reloaded.Picklists)
	}
}

func TestLoadEmptyStore(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	d := New(testEvent, cfg, openMemDB(t), WithLogger(quietLogger()))
	if err := d.LoadData(context.Background()); err != nil {
		t.Fatalf("LoadData on empty store: %v", err)
	}
	if len(d.Teams) != 0 || len(d.Matches) != 0 || d.Name != testEvent {
		t.Errorf("empty store produced teams %d matches %d name %q", len(d.Teams), len(d.Matches), d.Name)
	}
	if got := d.ComputeStat(model.ResultKey("match", "match_tele_speaker"), nil, stats.Mean); got != nil {
		t.Errorf("stat over no teams = %v", got)
	}
}

func TestGuards(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	d := New(testEvent, cfg, openMemDB(t), WithLogger(quietLogger()))

	if err := d.SetIgnore(ctx, "result-01", true); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("SetIgnore before load: %v", err)
	}
	if err := d.AddToPicklist(ctx, "x", 118, 0); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("AddToPicklist before load: %v", err)
	}

	d.busy.Store(true)
	if err := d.LoadData(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("LoadData while busy: %v", err)
	}
	d.busy.Store(false)
	if err := d.LoadData(ctx); err != nil {
		t.Errorf("LoadData after busy cleared: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := d.LoadData(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("LoadData with cancelled context: %v", err)
	}
}

func TestParseStatKey(t *testing.T) {
	d, _ := loadFixture(t)
	tests := []struct {
		in     string
		key    string
		method stats.Method
		err    bool
	}{
		{"result.match_tele_speaker", "result.match_tele_speaker", stats.Mean, false},
		{"result.match_climb", "result.match_climb", stats.Mode, false},
		{"smart.total_pieces:max", "smart.total_pieces", stats.Max, false},
		{"smart.total_pieces:bogus", "", "", true},
		{"smart.nope", "", "", true},
	}
	for _, tt := range tests {
		k, m, err := d.ParseStatKey(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("%s: err = %v", tt.in, err)
			continue
		}
		if !tt.err && (k.String() != tt.key || m != tt.method) {
			t.Errorf("%s: got %s %s", tt.in, k, m)
		}
	}

	teams, err := ParseTeams([]string{"254", "frc118"})
	if err != nil || !reflect.DeepEqual(teams, []int{254, 118}) {
		t.Errorf("ParseTeams = %v, %v", teams, err)
	}
	if _, err := ParseTeams([]string{"abc"}); err == nil {
		t.Error("expected error for bad team")
	}
}
