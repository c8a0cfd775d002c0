package dal

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	"github.com/wildrank/wrscout/internal/model"
)

// SetIgnore flips the ignore flag of the stored submission sourceID and
// reloads the event. Only result keys are accepted.
func (d *Data) SetIgnore(ctx context.Context, sourceID string, ignore bool) error {
	if !d.loaded {
		return ErrNotLoaded
	}
	if !strings.HasPrefix(sourceID, ResultPrefix) {
		return fmt.Errorf("%s is not a submission key", sourceID)
	}
	b, err := d.store.Get(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("read submission: %w", err)
	}
	patched, err := sjson.SetBytes(b, "meta.status.ignore", ignore)
	if err != nil {
		return fmt.Errorf("patch submission %s: %w", sourceID, err)
	}
	if err := d.store.Set(ctx, sourceID, patched); err != nil {
		return fmt.Errorf("write submission: %w", err)
	}
	return d.LoadData(ctx)
}

// SaveSubmission stores raw as a new submission of this event and reloads.
// It returns the key the submission was stored under. Keys are time ordered
// so stored order is arrival order.
func (d *Data) SaveSubmission(ctx context.Context, raw *model.RawResult) (string, error) {
	if !d.loaded {
		return "", ErrNotLoaded
	}
	if raw.Meta.Result.EventID == "" {
		raw.Meta.Result.EventID = d.EventID
	}
	if raw.Meta.Result.EventID != d.EventID {
		return "", fmt.Errorf("submission for event %s saved to %s", raw.Meta.Result.EventID, d.EventID)
	}
	if _, ok := d.cfg.ScoutConfig(raw.Meta.Result.ScoutMode); !ok {
		return "", fmt.Errorf("unknown scouting mode %q", raw.Meta.Result.ScoutMode)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("submission id: %w", err)
	}
	key := ResultPrefix + id.String()
	b, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("encode submission: %w", err)
	}
	if err := d.store.Set(ctx, key, b); err != nil {
		return "", fmt.Errorf("write submission: %w", err)
	}
	return key, d.LoadData(ctx)
}

// PicklistNames returns the pick list names, sorted.
func (d *Data) PicklistNames() []string {
	out := make([]string, 0, len(d.Picklists))
	for name := range d.Picklists {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SavePicklists persists every pick list.
func (d *Data) SavePicklists(ctx context.Context) error {
	b, err := json.Marshal(d.Picklists)
	if err != nil {
		return fmt.Errorf("encode picklists: %w", err)
	}
	if err := d.store.Set(ctx, PicklistsKey(d.EventID), b); err != nil {
		return fmt.Errorf("write picklists: %w", err)
	}
	return nil
}

// AddToPicklist inserts team into list name at position, creating the list
// if needed. A team already on the list is moved. Out of range positions
// append.
func (d *Data) AddToPicklist(ctx context.Context, name string, team, position int) error {
	if !d.loaded {
		return ErrNotLoaded
	}
	if _, ok := d.Teams[team]; !ok {
		return fmt.Errorf("team %d is not at %s", team, d.EventID)
	}
	list := slices.DeleteFunc(slices.Clone(d.Picklists[name]), func(t int) bool { return t == team })
	if position < 0 || position > len(list) {
		position = len(list)
	}
	d.Picklists[name] = slices.Insert(list, position, team)
	return d.SavePicklists(ctx)
}

// RemoveFromPicklist removes team from list name.
func (d *Data) RemoveFromPicklist(ctx context.Context, name string, team int) error {
	if !d.loaded {
		return ErrNotLoaded
	}
	list, ok := d.Picklists[name]
	if !ok {
		return fmt.Errorf("no picklist %q", name)
	}
	d.Picklists[name] = slices.DeleteFunc(list, func(t int) bool { return t == team })
	return d.SavePicklists(ctx)
}

// DeletePicklist removes list name.
func (d *Data) DeletePicklist(ctx context.Context, name string) error {
	if !d.loaded {
		return ErrNotLoaded
	}
	if _, ok := d.Picklists[name]; !ok {
		return fmt.Errorf("no picklist %q", name)
	}
	delete(d.Picklists, name)
	return d.SavePicklists(ctx)
}
