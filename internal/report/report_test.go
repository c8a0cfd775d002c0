package report

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/wildrank/wrscout/internal/config"
	"github.com/wildrank/wrscout/internal/dal"
	"github.com/wildrank/wrscout/internal/stats"
	"github.com/wildrank/wrscout/internal/storage"
)

func init() {
	color.NoColor = true
}

func loadEvent(t *testing.T) *dal.Data {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	blobs := map[string]string{
		dal.EventKey("2024mibkn"): `{"key": "2024mibkn", "name": "Belleville"}`,
		dal.TeamsKey("2024mibkn"): `[
			{"key": "frc118", "team_number": 118, "nickname": "Robonauts", "city": "League City", "country": "USA"},
			{"key": "frc254", "team_number": 254, "nickname": "The Cheesy Poofs"},
			{"key": "frc1678", "team_number": 1678, "nickname": "Citrus Circuits"}]`,
		dal.MatchesKey("2024mibkn"): `[{"key": "2024mibkn_qm1", "comp_level": "qm", "set_number": 1, "match_number": 1,
			"post_result_time": 5, "alliances": {
				"red": {"team_keys": ["frc118", "frc254", "frc1678"], "score": 71},
				"blue": {"team_keys": [], "score": 40}}}]`,
		"result-a": `{"meta": {"result": {"scout_mode": "match", "event_id": "2024mibkn", "match_key": "2024mibkn_qm1", "team_num": 118},
			"status": {"unsure": true, "unsure_reason": "blocked view"}},
			"result": {"match_tele_speaker": 4, "match_tele_amp": 1, "match_fouls_major": 2}}`,
		"result-b": `{"meta": {"result": {"scout_mode": "match", "event_id": "2024mibkn", "match_key": "2024mibkn_qm1", "team_num": 254}},
			"result": {"match_tele_speaker": 9, "match_tele_amp": 0}}`,
	}
	for k, v := range blobs {
		if err := db.Set(ctx, k, []byte(v)); err != nil {
			t.Fatal(err)
		}
	}

	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	d := dal.New("2024mibkn", cfg, db, dal.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err := d.LoadData(ctx); err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	return d
}

func column(t *testing.T, d *dal.Data, key string, m stats.Method) Column {
	t.Helper()
	def, err := d.Config().Lookup(key)
	if err != nil {
		t.Fatal(err)
	}
	return Column{Def: def, Method: m}
}

func TestPivotOrder(t *testing.T) {
	d := loadEvent(t)

	rows := Pivot(d, d.TeamNumbers(), []Column{column(t, d, "smart.tele_pieces", stats.Mean)})
	var order []int
	for _, r := range rows {
		order = append(order, r.Team)
	}
	if len(order) != 3 || order[0] != 254 || order[1] != 118 || order[2] != 1678 {
		t.Errorf("descending order = %v, want [254 118 1678]", order)
	}

	// fouls is negative: fewer is better
	rows = Pivot(d, d.TeamNumbers(), []Column{column(t, d, "smart.fouls", stats.Mean)})
	if rows[0].Team != 254 || rows[2].Team != 1678 {
		t.Errorf("negative column order = %+v", rows)
	}
}

func TestPrintPivotTable(t *testing.T) {
	d := loadEvent(t)
	var buf bytes.Buffer
	PrintPivotTable(&buf, d, []Column{
		column(t, d, "smart.tele_pieces", stats.Mean),
		column(t, d, "result.match_climb", stats.Mode),
	}, 118)
	out := buf.String()

	for _, want := range []string{"TELEOP PIECES (MEAN)", "The Cheesy Poofs", "ALL"} {
		if !strings.Contains(out, want) {
			t.Errorf("pivot output missing %q:\n%s", want, out)
		}
	}
	// event row mean of 5 and 9
	if !strings.Contains(out, "7") {
		t.Errorf("event mean missing:\n%s", out)
	}
}

func TestPrintTablesSmoke(t *testing.T) {
	d := loadEvent(t)
	var buf bytes.Buffer

	PrintEventSummary(&buf, d)
	PrintTeamTable(&buf, d)
	PrintMatchTable(&buf, d, d.MatchKeys(true))
	PrintResult(&buf, d, d.GetMatchResult("2024mibkn_qm1", 118))
	PrintTeamResult(&buf, d, d.GetTeamResult(254))
	PrintKeyTable(&buf, d.Config())

	out := buf.String()
	for _, want := range []string{
		"Belleville", "Robonauts", "League City, USA", "Qual 1", "71-40", "118 254 1678",
		"result-a", "blocked view", "result.match_tele_speaker",
		"Team 254", "smart.contribution",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestPrintPicklist(t *testing.T) {
	d := loadEvent(t)
	ctx := context.Background()
	d.AddToPicklist(ctx, "first", 254, -1)
	d.AddToPicklist(ctx, "first", 118, -1)

	var buf bytes.Buffer
	col := column(t, d, "result.match_tele_speaker", stats.Max)
	PrintPicklist(&buf, d, "first", &col)
	out := buf.String()
	if strings.Index(out, "254") > strings.Index(out, "118") {
		t.Errorf("picklist order lost:\n%s", out)
	}
	if !strings.Contains(out, "SPEAKER (MAX)") {
		t.Errorf("column header missing:\n%s", out)
	}
}
