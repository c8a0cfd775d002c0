package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/wildrank/wrscout/internal/model"
	"github.com/wildrank/wrscout/internal/stats"
)

var smartRefPattern = regexp.MustCompile(`\bsmart\.([a-z0-9_]+)\b`)

// refs lists every key string a spec reads.
func (s StatSpec) refs() []string {
	var out []string
	out = append(out, s.Keys...)
	for _, r := range []string{s.Numerator, s.Key, s.Filter, s.Stat} {
		if r != "" {
			out = append(out, r)
		}
	}
	if s.Type == "ratio" || s.Type == "percent" {
		out = append(out, s.Denominator)
	}
	if s.Cycle != "" {
		out = append(out, s.Cycle)
	}
	for _, m := range smartRefPattern.FindAllString(s.Math, -1) {
		out = append(out, m)
	}
	return out
}

// orderStats sorts specs so that each follows the smart statistics it reads,
// keeping configuration order otherwise. A dependency cycle is an error.
func orderStats(specs []StatSpec) ([]StatSpec, error) {
	index := make(map[string]int, len(specs))
	for i, s := range specs {
		index[s.ID] = i
	}
	deps := func(s StatSpec) []int {
		var out []int
		for _, r := range s.refs() {
			id := strings.TrimPrefix(r, "smart.")
			if strings.Contains(id, ".") {
				continue
			}
			if j, ok := index[id]; ok {
				out = append(out, j)
			}
		}
		return out
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(specs))
	out := make([]StatSpec, 0, len(specs))
	var visit func(i int, path []string) error
	visit = func(i int, path []string) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("smart stat %s: dependency cycle %s", specs[i].ID, strings.Join(append(path, specs[i].ID), " -> "))
		}
		state[i] = visiting
		for _, j := range deps(specs[i]) {
			if err := visit(j, append(path, specs[i].ID)); err != nil {
				return err
			}
		}
		state[i] = done
		out = append(out, specs[i])
		return nil
	}
	for i := range specs {
		if err := visit(i, nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// resolveRef maps a reference from a stat spec to a key. Bare names refer to
// a smart statistic when one exists with that id, otherwise to a scouted
// input.
func (p *Provider) resolveRef(ref string) model.Key {
	if strings.Contains(ref, ".") {
		return p.ParseKey(ref)
	}
	if r, ok := p.results[model.SmartKey(ref).String()]; ok && r.Smart != nil {
		return r.Key
	}
	return p.ParseKey("result." + ref)
}

func (p *Provider) lookupRef(id, field, ref string) (*Result, error) {
	r, err := p.ResultFromKey(p.resolveRef(ref))
	if err != nil {
		return nil, fmt.Errorf("smart stat %s: %s %q: %w", id, field, ref, err)
	}
	return r, nil
}

func (p *Provider) numericRef(id, field, ref string) (stats.Operand, error) {
	r, err := p.lookupRef(id, field, ref)
	if err != nil {
		return stats.Operand{}, err
	}
	if !r.Numeric() {
		return stats.Operand{}, fmt.Errorf("smart stat %s: %s %q is not numeric", id, field, ref)
	}
	return r.Operand(), nil
}

func (p *Provider) numericRefs(id, field string, refs []string) ([]stats.Operand, error) {
	out := make([]stats.Operand, 0, len(refs))
	for _, ref := range refs {
		op, err := p.numericRef(id, field, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, nil
}

func (p *Provider) buildSmartStats(specs []StatSpec) error {
	ordered, err := orderStats(specs)
	if err != nil {
		return err
	}
	for _, s := range ordered {
		def, err := p.buildStat(s)
		if err != nil {
			return err
		}
		info := def.Describe()
		p.AddResult(&Result{
			Key:       model.SmartKey(s.ID),
			Name:      s.Name,
			InputType: s.Type,
			Type:      stats.TypeNumber,
			Negative:  s.Negative,
			Smart:     def,
		}, info.TeamScoped)
	}
	return nil
}

// teamScoped reports whether every key is a team key.
func (p *Provider) teamScoped(keys []model.Key) bool {
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if !p.IsTeamKey(k) {
			return false
		}
	}
	return true
}

func (p *Provider) buildStat(s StatSpec) (stats.Definition, error) {
	info := stats.Info{ID: s.ID, Name: s.Name, Negative: s.Negative}
	switch stats.Kind(s.Type) {
	case stats.KindSum, stats.KindMin, stats.KindMax:
		ops, err := p.numericRefs(s.ID, "keys", s.Keys)
		if err != nil {
			return nil, err
		}
		info.TeamScoped = p.teamScoped(operandKeys(ops))
		if s.Type == string(stats.KindSum) {
			return &stats.Sum{Info: info, Keys: ops}, nil
		}
		return &stats.MinMax{Info: info, Keys: ops, Max: s.Type == string(stats.KindMax)}, nil

	case stats.KindRatio, stats.KindPercent:
		num, err := p.numericRef(s.ID, "numerator", s.Numerator)
		if err != nil {
			return nil, err
		}
		den, err := p.numericRef(s.ID, "denominator", s.Denominator)
		if err != nil {
			return nil, err
		}
		info.TeamScoped = p.teamScoped([]model.Key{num.Key, den.Key})
		return &stats.Ratio{Info: info, Numerator: num, Denominator: den, Percent: s.Type == string(stats.KindPercent)}, nil

	case stats.KindWRank:
		op, err := p.numericRef(s.ID, "stat", s.Stat)
		if err != nil {
			return nil, err
		}
		info.TeamScoped = true
		return &stats.WeightedRank{Info: info, Stat: op.Key}, nil

	case stats.KindMap:
		r, err := p.lookupRef(s.ID, "stat", s.Stat)
		if err != nil {
			return nil, err
		}
		if !r.Type.Categorical() {
			return nil, fmt.Errorf("smart stat %s: stat %q is not a select or checkbox", s.ID, s.Stat)
		}
		info.TeamScoped = p.teamScoped([]model.Key{r.Key})
		return &stats.Map{
			Info:    info,
			Stat:    r.Operand(),
			Boolean: r.Type == stats.TypeBoolean,
			Options: r.Options,
			Values:  s.Values,
		}, nil

	case stats.KindFilter:
		return p.buildFilter(info, s)

	case stats.KindWhere:
		return p.buildWhere(info, s)

	case stats.KindMath:
		m, err := stats.CompileMath(info, s.Math, func(ref string) (stats.Operand, error) {
			r, err := p.lookupRef(s.ID, "math", ref)
			if err != nil {
				return stats.Operand{}, err
			}
			return r.Operand(), nil
		})
		if err != nil {
			return nil, err
		}
		m.TeamScoped = p.teamScoped(m.Dependencies())
		return m, nil
	}
	return nil, fmt.Errorf("smart stat %s: unknown type %q", s.ID, s.Type)
}

func operandKeys(ops []stats.Operand) []model.Key {
	out := make([]model.Key, len(ops))
	for i, o := range ops {
		out[i] = o.Key
	}
	return out
}

func (p *Provider) buildFilter(info stats.Info, s StatSpec) (stats.Definition, error) {
	primary, err := p.numericRef(s.ID, "key", s.Key)
	if err != nil {
		return nil, err
	}
	fr, err := p.lookupRef(s.ID, "filter", s.Filter)
	if err != nil {
		return nil, err
	}
	if fr.Type != stats.TypeNumber && !fr.Type.Categorical() {
		return nil, fmt.Errorf("smart stat %s: filter %q cannot be compared", s.ID, s.Filter)
	}
	cmp, err := parseCompareType(s.CompareType)
	if err != nil {
		return nil, fmt.Errorf("smart stat %s: %w", s.ID, err)
	}
	f := &stats.Filter{
		Info:    info,
		Primary: primary,
		Filter:  fr.Operand(),
		Compare: cmp,
	}
	var ok bool
	switch fr.Type {
	case stats.TypeOption:
		f.FilterOptions = fr.Options
		var i int
		i, ok = stats.OptionIndex(s.Value, fr.Options)
		f.Value = float64(i)
	case stats.TypeBoolean:
		var b bool
		if b, ok = stats.ToBool(s.Value); b {
			f.Value = 1
		}
	default:
		f.Value, ok = stats.ToFloat(s.Value)
	}
	if !ok {
		return nil, fmt.Errorf("smart stat %s: invalid filter value %v", s.ID, s.Value)
	}
	f.TeamScoped = p.teamScoped(f.Dependencies())
	return f, nil
}

func parseCompareType(v any) (stats.Comparator, error) {
	if s, ok := v.(string); ok {
		return stats.ParseComparator(s)
	}
	f, ok := stats.ToFloat(v)
	if !ok || f < 0 || f > float64(stats.CompareLT) || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid compare_type %v", v)
	}
	return stats.Comparator(int(f)), nil
}

func (p *Provider) buildWhere(info stats.Info, s StatSpec) (stats.Definition, error) {
	cycle, err := p.lookupRef(s.ID, "cycle", s.Cycle)
	if err != nil {
		return nil, err
	}
	if cycle.Type != stats.TypeCycle {
		return nil, fmt.Errorf("smart stat %s: cycle %q for where does not exist", s.ID, s.Cycle)
	}
	fields := make(map[string]*Result)
	for _, r := range p.CycleFields(cycle.Key) {
		fields[r.Key.Field] = r
	}

	w := &stats.Where{Info: info, Cycle: cycle.Key, Sum: s.Sum, Denominator: s.Denominator}
	for _, field := range sortedKeys(s.Conditions) {
		r, ok := fields[field]
		if !ok || !r.Type.Categorical() {
			return nil, fmt.Errorf("smart stat %s: condition %s for where does not exist", s.ID, field)
		}
		want := s.Conditions[field]
		cond := stats.Condition{Field: field, Options: r.Options}
		if r.Type == stats.TypeBoolean {
			cond.Options = nil
			b, ok := stats.ToBool(want)
			if !ok {
				return nil, fmt.Errorf("smart stat %s: condition %s does not have option %v", s.ID, field, want)
			}
			if b {
				cond.Want = 1
			}
		} else {
			_, isLabel := want.(string)
			i, ok := stats.OptionIndex(want, r.Options)
			if !ok || !isLabel {
				return nil, fmt.Errorf("smart stat %s: condition %s does not have option %v", s.ID, field, want)
			}
			cond.Want = i
		}
		w.Conditions = append(w.Conditions, cond)
	}
	for name, field := range map[string]string{"sum": s.Sum, "denominator": s.Denominator} {
		if field == "" {
			continue
		}
		if r, ok := fields[field]; !ok || !r.Counter {
			return nil, fmt.Errorf("smart stat %s: unexpected value %q in %s", s.ID, field, name)
		}
	}
	w.TeamScoped = p.IsTeamKey(cycle.Key)
	return w, nil
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
