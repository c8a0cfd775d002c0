package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wildrank/wrscout/internal/model"
	"github.com/wildrank/wrscout/internal/stats"
)

// ErrUnknownKey is returned when a key is not defined by the configuration.
var ErrUnknownKey = errors.New("unknown key")

// rankingFields are registered for every configuration; the rankings blob is
// merged into team results under these names.
var rankingFields = []FMSField{
	{ID: "rank", Name: "Rank", Type: "number", Negative: true},
	{ID: "record_wins", Name: "Wins", Type: "number"},
	{ID: "record_losses", Name: "Losses", Type: "number", Negative: true},
	{ID: "record_ties", Name: "Ties", Type: "number"},
	{ID: "matches_played", Name: "Matches Played", Type: "number"},
	{ID: "dq", Name: "Disqualifications", Type: "number", Negative: true},
	{ID: "extra_stats_0", Name: "Ranking Points", Type: "number"},
	{ID: "sort_orders_0", Name: "Ranking Score", Type: "number"},
	{ID: "sort_orders_1", Name: "Tie Breaker", Type: "number"},
}

// Provider answers questions about configured keys.
type Provider struct {
	Version string

	modes    []Mode
	modeIDs  []string
	results  map[string]*Result
	order    []model.Key
	teamKeys map[model.Key]bool
	smart    []*Result
}

// New validates doc and indexes every key it defines.
func New(doc *Document) (*Provider, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	p := &Provider{
		Version:  doc.Version,
		modes:    doc.Modes,
		results:  make(map[string]*Result),
		teamKeys: make(map[model.Key]bool),
	}
	for _, m := range doc.Modes {
		p.modeIDs = append(p.modeIDs, m.ID)
	}
	for _, m := range doc.Modes {
		p.registerMode(m)
	}
	for _, f := range doc.FMS {
		p.registerFMS(f, f.Scope == "team")
	}
	for _, f := range rankingFields {
		if _, ok := p.results[model.FMSKey(f.ID).String()]; !ok {
			p.registerFMS(f, true)
		}
	}
	if err := p.buildSmartStats(doc.SmartStats); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) registerMode(m Mode) {
	team := m.Type == ModeTeam
	for _, page := range m.Pages {
		for _, col := range page.Columns {
			parent := ""
			if col.Cycle {
				p.AddResult(&Result{
					Key:       model.ResultKey(m.ID, col.ID),
					Name:      col.Name,
					InputType: "cycle",
					Type:      stats.TypeCycle,
				}, team)
				parent = col.ID
			}
			for _, in := range col.Inputs {
				for _, r := range expandInput(m.ID, in) {
					r.Cycle = parent
					p.AddResult(r, team)
				}
			}
		}
	}
}

// expandInput turns one form input into the keys it stores. Multicounters
// and multiselects store one value per option under "<id>_<option>".
func expandInput(mode string, in Input) []*Result {
	switch in.Type {
	case "multicounter", "multiselect":
		vt, counter := stats.TypeNumber, true
		if in.Type == "multiselect" {
			vt, counter = stats.TypeBoolean, false
		}
		out := make([]*Result, 0, len(in.Options))
		for i, opt := range in.Options {
			out = append(out, &Result{
				Key:       model.ResultKey(mode, in.ID+"_"+strings.ToLower(opt)),
				Name:      in.Name + " " + opt,
				InputType: in.Type,
				Type:      vt,
				Negative:  in.negativeAt(i),
				Counter:   counter,
			})
		}
		return out
	}
	r := &Result{
		Key:       model.ResultKey(mode, in.ID),
		Name:      in.Name,
		InputType: in.Type,
		Negative:  in.negativeAt(0),
	}
	switch in.Type {
	case "checkbox":
		r.Type = stats.TypeBoolean
	case "select", "dropdown":
		r.Type = stats.TypeOption
		r.Options = in.Options
	case "string", "text":
		r.Type = stats.TypeString
	case "counter":
		r.Type = stats.TypeNumber
		r.Counter = true
	default:
		r.Type = stats.TypeNumber
	}
	return []*Result{r}
}

func (p *Provider) registerFMS(f FMSField, team bool) {
	r := &Result{
		Key:       model.FMSKey(f.ID),
		Name:      f.Name,
		InputType: f.Type,
		Negative:  f.Negative,
	}
	switch f.Type {
	case "boolean":
		r.Type = stats.TypeBoolean
	case "string":
		r.Type = stats.TypeString
	default:
		r.Type = stats.TypeNumber
	}
	p.AddResult(r, team)
}

// AddResult registers r. Test code uses it to install doubles.
func (p *Provider) AddResult(r *Result, team bool) {
	s := r.Key.String()
	if _, ok := p.results[s]; !ok {
		p.order = append(p.order, r.Key)
	}
	p.results[s] = r
	p.teamKeys[r.Key] = team
	if r.Smart != nil {
		for i, prev := range p.smart {
			if prev.Key == r.Key {
				p.smart[i] = r
				return
			}
		}
		p.smart = append(p.smart, r)
	}
}

// ParseKey parses "<namespace>.<field>" using the configured mode ids.
func (p *Provider) ParseKey(s string) model.Key {
	return model.ParseKey(s, p.modeIDs)
}

// Lookup resolves a key string.
func (p *Provider) Lookup(s string) (*Result, error) {
	return p.ResultFromKey(p.ParseKey(s))
}

// ResultFromKey returns the definition of k.
func (p *Provider) ResultFromKey(k model.Key) (*Result, error) {
	r, ok := p.results[k.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, k)
	}
	return r, nil
}

// IsTeamKey reports whether k is stored on team results rather than
// match-team results.
func (p *Provider) IsTeamKey(k model.Key) bool {
	return p.teamKeys[k]
}

// keys returns registered keys in registration order, skipping values that
// only exist inside cycles.
func (p *Provider) keys(team bool) []model.Key {
	var out []model.Key
	for _, k := range p.order {
		r := p.results[k.String()]
		if r.Cycle != "" || p.teamKeys[k] != team {
			continue
		}
		out = append(out, k)
	}
	return out
}

// MatchKeys lists the keys resolved against match-team results.
func (p *Provider) MatchKeys() []model.Key { return p.keys(false) }

// TeamKeys lists the keys resolved against team results.
func (p *Provider) TeamKeys() []model.Key { return p.keys(true) }

// FMSKeys lists every official key.
func (p *Provider) FMSKeys() []model.Key {
	var out []model.Key
	for _, k := range p.order {
		if k.Namespace == model.NamespaceFMS {
			out = append(out, k)
		}
	}
	return out
}

// CycleFields lists the keys recorded inside the given cycle column.
func (p *Provider) CycleFields(cycle model.Key) []*Result {
	var out []*Result
	for _, k := range p.order {
		r := p.results[k.String()]
		if r.Cycle == cycle.Field && k.Mode == cycle.Mode {
			out = append(out, r)
		}
	}
	return out
}

// ScoutConfig returns the form of a scouting mode.
func (p *Provider) ScoutConfig(mode string) (Mode, bool) {
	for _, m := range p.modes {
		if m.ID == mode {
			return m, true
		}
	}
	return Mode{}, false
}

// Modes returns every scouting mode in configuration order.
func (p *Provider) Modes() []Mode { return p.modes }

// ModeIDs returns the ids of every scouting mode.
func (p *Provider) ModeIDs() []string { return p.modeIDs }

// SmartStats returns the derived statistics, ordered so that every
// statistic follows the statistics it reads.
func (p *Provider) SmartStats() []*Result { return p.smart }
