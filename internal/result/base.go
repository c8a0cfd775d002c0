// Package result holds the per-entity view of an event: the submissions
// scouted for a match-team pairing or a team, the official values merged
// from the event API, and the derived statistics computed from both.
package result

import (
	"log/slog"
	"sort"

	"github.com/wildrank/wrscout/internal/config"
	"github.com/wildrank/wrscout/internal/model"
	"github.com/wildrank/wrscout/internal/stats"
)

// Schema is the part of the configuration a result needs.
type Schema interface {
	ResultFromKey(k model.Key) (*config.Result, error)
	FMSKeys() []model.Key
	SmartStats() []*config.Result
	IsTeamKey(k model.Key) bool
}

// Base is the state shared by match and team results.
type Base struct {
	submissions map[string][]model.Submission
	fms         map[string]any
	smart       map[string]any

	schema Schema
	log    *slog.Logger
}

func newBase(schema Schema, log *slog.Logger) Base {
	if log == nil {
		log = slog.Default()
	}
	return Base{
		submissions: make(map[string][]model.Submission),
		fms:         make(map[string]any),
		smart:       make(map[string]any),
		schema:      schema,
		log:         log,
	}
}

// AddResult appends a submission under its declared scouting mode. Several
// submissions for the same mode coexist; GetValue picks between them.
func (b *Base) AddResult(sourceID string, raw *model.RawResult) {
	mode := raw.Meta.Result.ScoutMode
	b.submissions[mode] = append(b.submissions[mode], model.Submission{
		SourceID: sourceID,
		Meta:     raw.Meta,
		Values:   raw.Result,
	})
}

// Submissions returns the submissions stored for mode, in arrival order.
func (b *Base) Submissions(mode string) []model.Submission {
	return b.submissions[mode]
}

// Modes lists the modes that have at least one submission, sorted.
func (b *Base) Modes() []string {
	out := make([]string, 0, len(b.submissions))
	for m, subs := range b.submissions {
		if len(subs) > 0 {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

// IsScouted reports whether mode has a submission that is not ignored.
func (b *Base) IsScouted(mode string) bool {
	for _, s := range b.submissions[mode] {
		if !s.Meta.Status.Ignore {
			return true
		}
	}
	return false
}

// Best returns the submission GetValue reads for mode: the first one not
// ignored, replaced only by a later sure one when it is unsure.
func (b *Base) Best(mode string) *model.Submission {
	var best *model.Submission
	subs := b.submissions[mode]
	for i := range subs {
		s := &subs[i]
		if s.Meta.Status.Ignore {
			continue
		}
		if best == nil || (!s.Meta.Status.Unsure && best.Meta.Status.Unsure) {
			best = s
		}
	}
	return best
}

// Value resolves a key against this result alone.
func (b *Base) Value(k model.Key) any {
	switch k.Namespace {
	case model.NamespaceResult:
		s := b.Best(k.Mode)
		if s == nil {
			return nil
		}
		return s.Values[k.Field]
	case model.NamespaceFMS:
		v, ok := b.fms[k.Field]
		if !ok {
			return nil
		}
		if r, err := b.schema.ResultFromKey(k); err == nil && r.Type == stats.TypeBoolean {
			if s, ok := v.(string); ok {
				return s == "Yes"
			}
		}
		return v
	case model.NamespaceSmart:
		return b.smart[k.Field]
	}
	b.log.Warn("unknown key namespace", "key", k.String())
	return nil
}

// Unsure reports whether some mode has only unsure submissions. Ignored
// submissions are not considered.
func (b *Base) Unsure() bool {
	for _, subs := range b.submissions {
		seen, sure := false, false
		for _, s := range subs {
			if s.Meta.Status.Ignore {
				continue
			}
			seen = true
			if !s.Meta.Status.Unsure {
				sure = true
				break
			}
		}
		if seen && !sure {
			return true
		}
	}
	return false
}

// SetIgnore changes the ignore flag of the submission read from sourceID. It
// reports whether such a submission exists.
func (b *Base) SetIgnore(sourceID string, ignore bool) bool {
	found := false
	for _, subs := range b.submissions {
		for i := range subs {
			if subs[i].SourceID == sourceID {
				subs[i].Meta.Status.Ignore = ignore
				found = true
			}
		}
	}
	return found
}

// FMS returns the merged official values.
func (b *Base) FMS() map[string]any { return b.fms }

// SmartResults returns the computed derived statistics.
func (b *Base) SmartResults() map[string]any { return b.smart }

// SetSmart stores a derived statistic.
func (b *Base) SetSmart(id string, v any) { b.smart[id] = v }

func (b *Base) computeSmart(e stats.Entity, def *config.Result, env stats.Env) {
	b.smart[def.ID()] = def.ComputeSmartResult(e, env)
}
