package tba

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/wildrank/wrscout/internal/dal"
)

// Writer is the part of the store Sync writes to.
type Writer interface {
	Set(ctx context.Context, key string, value []byte) error
}

// SyncResult counts what Sync stored.
type SyncResult struct {
	Name     string
	Teams    int
	Matches  int
	Rankings int
	Bytes    int
}

// Sync downloads an event's metadata, teams, matches and rankings and stores
// each response verbatim under the event's keys. Rankings are skipped when
// TBA has none yet.
func Sync(ctx context.Context, c *Client, w Writer, event string) (*SyncResult, error) {
	res := &SyncResult{}
	steps := []struct {
		name  string
		key   string
		fetch func(context.Context, string) ([]byte, error)
		count func([]byte)
	}{
		{"event", dal.EventKey(event), c.Event, func(b []byte) { res.Name = gjson.GetBytes(b, "name").String() }},
		{"teams", dal.TeamsKey(event), c.Teams, func(b []byte) { res.Teams = int(gjson.GetBytes(b, "#").Int()) }},
		{"matches", dal.MatchesKey(event), c.Matches, func(b []byte) { res.Matches = int(gjson.GetBytes(b, "#").Int()) }},
		{"rankings", dal.RankingsKey(event), c.Rankings, func(b []byte) { res.Rankings = int(gjson.GetBytes(b, "rankings.#").Int()) }},
	}
	for _, s := range steps {
		body, err := s.fetch(ctx, event)
		if err != nil {
			return res, fmt.Errorf("fetch %s: %w", s.name, err)
		}
		if s.name == "rankings" && !gjson.GetBytes(body, "rankings").IsArray() {
			continue
		}
		if err := w.Set(ctx, s.key, body); err != nil {
			return res, fmt.Errorf("store %s: %w", s.name, err)
		}
		s.count(body)
		res.Bytes += len(body)
	}
	return res, nil
}
