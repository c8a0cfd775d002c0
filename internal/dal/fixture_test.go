package dal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/wildrank/wrscout/internal/config"
	"github.com/wildrank/wrscout/internal/model"
	"github.com/wildrank/wrscout/internal/storage"
)

const testEvent = "2024mibkn"

func openMemDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func put(t *testing.T, db *storage.DB, key string, v any) {
	t.Helper()
	var b []byte
	switch s := v.(type) {
	case string:
		b = []byte(s)
	default:
		var err error
		if b, err = json.Marshal(v); err != nil {
			t.Fatalf("marshal %s: %v", key, err)
		}
	}
	if err := db.Set(context.Background(), key, b); err != nil {
		t.Fatalf("set %s: %v", key, err)
	}
}

func matchRecord(level model.CompLevel, set, number int, red, blue []int) model.MatchRecord {
	var m model.MatchRecord
	m.Key = model.MatchKey(testEvent, level, set, number)
	m.CompLevel, m.SetNumber, m.MatchNumber = level, set, number
	m.Time = 1000 * int64(number)
	for _, n := range red {
		m.Alliances.Red.TeamKeys = append(m.Alliances.Red.TeamKeys, fmt.Sprintf("frc%d", n))
	}
	for _, n := range blue {
		m.Alliances.Blue.TeamKeys = append(m.Alliances.Blue.TeamKeys, fmt.Sprintf("frc%d", n))
	}
	m.Alliances.Red.Score, m.Alliances.Blue.Score = -1, -1
	return m
}

func submission(mode, matchKey string, team int, values map[string]any) *model.RawResult {
	r := &model.RawResult{Result: values}
	r.Meta.Result.ScoutMode = mode
	r.Meta.Result.EventID = testEvent
	r.Meta.Result.MatchKey = matchKey
	r.Meta.Result.TeamNum = model.TeamNumber(team)
	r.Meta.Scouter.ConfigVersion = "2024.1"
	return r
}

// seedEvent writes a small double elimination event: two quals, one
// playoff match and one final, stored out of order.
func seedEvent(t *testing.T, db *storage.DB) {
	t.Helper()
	put(t, db, EventKey(testEvent), model.EventRecord{
		Key: testEvent, Name: "FIM District Belleville Event", Year: 2024, PlayoffType: model.PlayoffDoubleElim,
	})

	var teams []model.TeamRecord
	for _, n := range []int{33, 67, 118, 254, 1678, 2056} {
		teams = append(teams, model.TeamRecord{
			Key: fmt.Sprintf("frc%d", n), TeamNumber: n, Nickname: fmt.Sprintf("Team %d", n), Country: "USA",
		})
	}
	put(t, db, TeamsKey(testEvent), teams)

	put(t, db, RankingsKey(testEvent), `{"rankings": [
		{"team_key": "frc118", "rank": 1, "record": {"wins": 2, "losses": 0, "ties": 0},
		 "extra_stats": [12], "sort_orders": [2.5, 100], "matches_played": 2},
		{"team_key": "frc254", "rank": 2, "record": {"wins": 1, "losses": 1, "ties": 0},
		 "extra_stats": [6], "sort_orders": [1.5, 80], "matches_played": 2},
		{"team_key": "frc9999", "rank": 40}
	]}`)

	qm1 := matchRecord(model.LevelQual, 1, 1, []int{118, 254, 1678}, []int{2056, 33, 67})
	qm1.ActualTime, qm1.PostResultTime = 1100, 1300
	qm1.Alliances.Red.Score, qm1.Alliances.Blue.Score = 60, 45
	qm1.ScoreBreakdown = map[string]map[string]any{
		"red": {
			"autoLineRobot1": "Yes", "autoLineRobot2": "No", "autoLineRobot3": "Yes",
			"endGameRobot1": "StageLeft", "endGameRobot2": "Parked", "endGameRobot3": "None",
			"totalPoints": 60.0, "foulPoints": 5.0,
		},
		"blue": {
			"autoLineRobot1": "No", "autoLineRobot2": "No", "autoLineRobot3": "Yes",
			"totalPoints": 45.0, "foulPoints": 0.0,
		},
	}
	qm2 := matchRecord(model.LevelQual, 1, 2, []int{2056, 118, 33}, []int{254, 67, 1678})
	qm2.PredictedTime = 2050
	sf := matchRecord(model.LevelSemi, 3, 1, []int{118, 254, 1678}, []int{2056, 33, 67})
	final := matchRecord(model.LevelFinal, 1, 1, []int{118, 254, 1678}, []int{2056, 33, 67})
	put(t, db, MatchesKey(testEvent), []model.MatchRecord{qm2, final, qm1, sf})

	qm1Key, qm2Key := qm1.Key, qm2.Key
	put(t, db, "result-01", submission("match", qm1Key, 118, map[string]any{
		"match_auto_speaker": 2, "match_auto_amp": 0, "match_tele_speaker": 5, "match_tele_amp": 1,
		"match_tele_missed": 1, "match_climb": "Onstage", "match_defense": 0,
		"match_cycles": []any{
			map[string]any{"match_cycle_source": "Ground", "match_cycle_scored": 1, "match_cycle_attempts": 1},
			map[string]any{"match_cycle_source": "Source", "match_cycle_scored": 1, "match_cycle_attempts": 2},
		},
	}))
	put(t, db, "result-02", submission("match", qm2Key, 118, map[string]any{
		"match_auto_speaker": 1, "match_tele_speaker": 3, "match_tele_amp": 0,
		"match_tele_missed": 3, "match_climb": "Park", "match_defense": 2,
	}))
	put(t, db, "result-03", submission("match", qm1Key, 254, map[string]any{
		"match_tele_speaker": 8, "match_tele_amp": 2, "match_climb": "Trap",
	}))
	put(t, db, "result-04", submission("pit", "", 118, map[string]any{
		"pit_drivetrain": "Swerve", "pit_weight": 120, "pit_intake_ground": true,
	}))
	note := submission("note", qm1Key, 118, map[string]any{"note_coop": true, "note_strategy": "feed 254"})
	note.Meta.Result.Alliance = "red"
	put(t, db, "result-05", note)
	put(t, db, "result-06", submission("match", testEvent+"_qm99", 118, map[string]any{"match_tele_speaker": 40}))
	other := submission("match", "2024miket_qm1", 118, map[string]any{"match_tele_speaker": 50})
	other.Meta.Result.EventID = "2024miket"
	put(t, db, "result-07", other)
	legacy := submission("match", "", 254, map[string]any{"match_tele_speaker": 6})
	legacy.Meta.Result.MatchNumber = 2
	put(t, db, "result-08", legacy)
	put(t, db, "result-09", `{"meta": {"result": `)
}

func loadFixture(t *testing.T) (*Data, *storage.DB) {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("config.Default: %v", err)
	}
	db := openMemDB(t)
	seedEvent(t, db)
	d := New(testEvent, cfg, db, WithLogger(quietLogger()))
	if err := d.LoadData(context.Background()); err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	return d, db
}
