package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/wildrank/wrscout/internal/config"
	"github.com/wildrank/wrscout/internal/dal"
	"github.com/wildrank/wrscout/internal/storage"
)

func TestFullMatchKey(t *testing.T) {
	cases := []struct{ in, want string }{
		{"qm12", "2024mibkn_qm12"},
		{"sf3m1", "2024mibkn_sf3m1"},
		{"2024miket_qm1", "2024miket_qm1"},
	}
	for _, c := range cases {
		if got := fullMatchKey("2024mibkn", c.in); got != c.want {
			t.Errorf("fullMatchKey(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestImportFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, b []byte) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("teams-2024mibkn.json", []byte(`[{"team_number": 254}]`))
	write("notes.txt", []byte("skip me"))
	write("broken.json", []byte(`{"meta": `))

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	write("matches-2024mibkn.json.zst", enc.EncodeAll([]byte(`[]`), nil))
	enc.Close()

	files, err := importFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("importFiles = %v, want 3 json files", files)
	}

	got := map[string]string{}
	for _, f := range files {
		b, err := readJSONFile(f)
		if err != nil {
			got[blobKey(f)] = "error"
			continue
		}
		got[blobKey(f)] = string(b)
	}
	want := map[string]string{
		"teams-2024mibkn":   `[{"team_number": 254}]`,
		"matches-2024mibkn": `[]`,
		"broken":            "error",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestTextValues(t *testing.T) {
	got := textValues(map[string]any{
		"match_comments": "  tipped in auto ",
		"note_strategy":  "feed 254",
		"pit_notes":      "",
		"pit_drivetrain": "Swerve",
		"match_climb":    2,
	})
	if len(got) != 2 || got[0] != "tipped in auto" || got[1] != "feed 254" {
		t.Errorf("textValues = %q", got)
	}
}

func TestBuildTeamBrief(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	blobs := map[string]string{
		dal.TeamsKey("2024mibkn"): `[{"key": "frc254", "team_number": 254, "nickname": "The Cheesy Poofs", "city": "San Jose"},
			{"key": "frc118", "team_number": 118}]`,
		dal.MatchesKey("2024mibkn"): `[{"key": "2024mibkn_qm1", "comp_level": "qm", "set_number": 1, "match_number": 1,
			"alliances": {"red": {"team_keys": ["frc254"], "score": -1}, "blue": {"team_keys": ["frc118"], "score": -1}}}]`,
		"result-a": `{"meta": {"result": {"scout_mode": "match", "event_id": "2024mibkn", "match_key": "2024mibkn_qm1", "team_num": 254}},
			"result": {"match_tele_speaker": 6, "match_tele_amp": 2, "match_comments": "fast cycles"}}`,
		"result-b": `{"meta": {"result": {"scout_mode": "match", "event_id": "2024mibkn", "match_key": "2024mibkn_qm1", "team_num": 118}},
			"result": {"match_tele_speaker": 2}}`,
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
		t.Fatal(err)
	}

	brief, err := buildTeamBrief(d, 254)
	if err != nil {
		t.Fatal(err)
	}
	if brief.Name != "The Cheesy Poofs" || brief.Location != "San Jose" {
		t.Errorf("team info = %q / %q", brief.Name, brief.Location)
	}
	if brief.Matches != 1 || brief.Scouted != 1 || len(brief.PerMatch) != 1 {
		t.Errorf("matches = %d scouted = %d per match = %d", brief.Matches, brief.Scouted, len(brief.PerMatch))
	}
	if len(brief.Notes) != 1 || brief.Notes[0] != "Qual 1: fast cycles" {
		t.Errorf("notes = %q", brief.Notes)
	}

	var speaker *statLine
	for i := range brief.Stats {
		if brief.Stats[i].Key == "result.match_tele_speaker" {
			speaker = &brief.Stats[i]
		}
	}
	if speaker == nil {
		t.Fatalf("speaker stat missing from %+v", brief.Stats)
	}
	if speaker.Team != "6" || speaker.Event != "4" {
		t.Errorf("speaker team/event = %q/%q, want 6/4", speaker.Team, speaker.Event)
	}

	if _, err := buildTeamBrief(d, 9999); err == nil {
		t.Error("unknown team: want error")
	}
}

func TestDecodeKeyColumn(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	big := `{"teams": [` + strings.Repeat(`{"team_number": 254}, `, 60) + `{"team_number": 118}]}`
	for k, v := range map[string]string{"event-2024mibkn": `{ "name": "Belleville" }`, "teams-2024mibkn": big} {
		if err := db.Set(ctx, k, []byte(v)); err != nil {
			t.Fatal(err)
		}
	}

	cols, rows, err := db.QueryRaw("SELECT key, encoding FROM kv ORDER BY key")
	if err != nil {
		t.Fatal(err)
	}
	cols, rows, err = decodeKeyColumn(ctx, db, cols, rows, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 3 || cols[2] != "json" {
		t.Fatalf("cols = %v", cols)
	}
	if rows[0][2] != `{"name":"Belleville"}` {
		t.Errorf("event value = %q", rows[0][2])
	}
	if rows[1][1] != "zstd" || !strings.HasSuffix(rows[1][2], `{"team_number":118}]}`) {
		t.Errorf("compressed value not decoded: %v", rows[1])
	}

	_, rows, err = db.QueryRaw("SELECT key FROM kv WHERE key = 'event-2024mibkn'")
	if err != nil {
		t.Fatal(err)
	}
	_, rows, _ = decodeKeyColumn(ctx, db, []string{"key"}, rows, 8)
	if rows[0][1] != `{"name":…` {
		t.Errorf("truncated = %q", rows[0][1])
	}

	if _, _, err := decodeKeyColumn(ctx, db, []string{"size"}, [][]string{{"3"}}, 0); err == nil {
		t.Error("no key column: want error")
	}
}
