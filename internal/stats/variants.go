package stats

import (
	"math"

	"github.com/wildrank/wrscout/internal/model"
)

// divide returns num/den, or num when den is zero.
func divide(num, den float64) float64 {
	if den == 0 {
		return num
	}
	return num / den
}

// share returns num/(num+den), or 0 when both are zero.
func share(num, den float64) float64 {
	r := num / (num + den)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// Sum adds the values of several keys.
type Sum struct {
	Info
	Keys []Operand
}

func (s *Sum) Kind() Kind { return KindSum }
func (s *Sum) Recompute() bool { return false }
func (s *Sum) Dependencies() []model.Key { return keysOf(s.Keys) }

func (s *Sum) Evaluate(e Entity, _ Env) any {
	total, found := 0.0, false
	for _, k := range s.Keys {
		if f, ok := k.Number(e); ok {
			total += f
			found = true
		}
	}
	if !found {
		return nil
	}
	return total
}

func (s *Sum) Aggregate(es []Entity, env Env, m Method) any {
	return reduceEach(s, es, env, m)
}

// Ratio divides one key by another. Across a population the sums are
// divided rather than the per-entity ratios averaged.
type Ratio struct {
	Info
	Numerator   Operand
	Denominator Operand
	// Percent selects num/(num+den).
	Percent bool
}

func (r *Ratio) Kind() Kind {
	if r.Percent {
		return KindPercent
	}
	return KindRatio
}

func (r *Ratio) Recompute() bool { return true }

func (r *Ratio) Dependencies() []model.Key {
	return []model.Key{r.Numerator.Key, r.Denominator.Key}
}

func (r *Ratio) combine(num, den float64) float64 {
	if r.Percent {
		return share(num, den)
	}
	return divide(num, den)
}

func (r *Ratio) Evaluate(e Entity, _ Env) any {
	num, ok := r.Numerator.Number(e)
	if !ok {
		return nil
	}
	den, ok := r.Denominator.Number(e)
	if !ok {
		return nil
	}
	return r.combine(num, den)
}

func (r *Ratio) Aggregate(es []Entity, _ Env, _ Method) any {
	var num, den float64
	found := false
	for _, e := range es {
		n, ok := r.Numerator.Number(e)
		if !ok {
			continue
		}
		d, ok := r.Denominator.Number(e)
		if !ok {
			continue
		}
		num += n
		den += d
		found = true
	}
	if !found {
		return nil
	}
	return r.combine(num, den)
}

// MinMax picks the smallest or largest of several keys.
type MinMax struct {
	Info
	Max  bool
	Keys []Operand
}

func (mm *MinMax) Kind() Kind {
	if mm.Max {
		return KindMax
	}
	return KindMin
}

func (mm *MinMax) Recompute() bool { return false }
func (mm *MinMax) Dependencies() []model.Key { return keysOf(mm.Keys) }

func (mm *MinMax) Evaluate(e Entity, _ Env) any {
	var (
		best  float64
		found bool
	)
	for _, k := range mm.Keys {
		f, ok := k.Number(e)
		if !ok {
			continue
		}
		if !found || (mm.Max && f > best) || (!mm.Max && f < best) {
			best = f
			found = true
		}
	}
	if !found {
		return nil
	}
	return best
}

func (mm *MinMax) Aggregate(es []Entity, env Env, m Method) any {
	return reduceEach(mm, es, env, m)
}

// WeightedRank places a team within the event for the mean of Stat. The
// result is 1 for the best team and 0 for the worst; tied teams share the
// better position. When Negative is set lower means are better.
type WeightedRank struct {
	Info
	Stat model.Key
}

func (w *WeightedRank) Kind() Kind { return KindWRank }
func (w *WeightedRank) Recompute() bool { return false }
func (w *WeightedRank) Dependencies() []model.Key { return []model.Key{w.Stat} }

func (w *WeightedRank) Evaluate(e Entity, env Env) any {
	if env == nil {
		return nil
	}
	own, ok := toNumber(env.TeamStat(w.Stat, e.Team(), Mean))
	if !ok {
		return nil
	}
	n, better := 0, 0
	for _, t := range env.TeamNumbers() {
		v, ok := toNumber(env.TeamStat(w.Stat, t, Mean))
		if !ok {
			continue
		}
		n++
		if (!w.Negative && v > own) || (w.Negative && v < own) {
			better++
		}
	}
	if n <= 1 {
		return 1.0
	}
	return float64(n-1-better) / float64(n-1)
}

func (w *WeightedRank) Aggregate(es []Entity, env Env, m Method) any {
	return reduceEach(w, es, env, m)
}

func toNumber(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return ToFloat(v)
}

// Map substitutes a number for each option of a categorical key.
type Map struct {
	Info
	Stat    Operand
	Boolean bool
	Options []string
	Values  []float64
}

func (mp *Map) Kind() Kind { return KindMap }
func (mp *Map) Recompute() bool { return false }
func (mp *Map) Dependencies() []model.Key { return []model.Key{mp.Stat.Key} }

func (mp *Map) Evaluate(e Entity, _ Env) any {
	v := mp.Stat.Resolve(e)
	if v == nil {
		return nil
	}
	var (
		idx int
		ok  bool
	)
	if mp.Boolean {
		var b bool
		if b, ok = ToBool(v); b {
			idx = 1
		}
	} else {
		idx, ok = OptionIndex(v, mp.Options)
	}
	if !ok || idx >= len(mp.Values) {
		return nil
	}
	return mp.Values[idx]
}

func (mp *Map) Aggregate(es []Entity, env Env, m Method) any {
	return reduceEach(mp, es, env, m)
}

// Filter reports Primary only for entities whose Filter value satisfies the
// comparison. FilterOptions is set when the filter key is categorical, in
// which case values compare by option index.
type Filter struct {
	Info
	Primary       Operand
	Filter        Operand
	FilterOptions []string
	Compare       Comparator
	Value         float64
}

func (f *Filter) Kind() Kind { return KindFilter }
func (f *Filter) Recompute() bool { return true }

func (f *Filter) Dependencies() []model.Key {
	return []model.Key{f.Primary.Key, f.Filter.Key}
}

func (f *Filter) passes(e Entity) bool {
	v := f.Filter.Resolve(e)
	if v == nil {
		return false
	}
	var (
		x  float64
		ok bool
	)
	if f.FilterOptions != nil {
		var i int
		i, ok = OptionIndex(v, f.FilterOptions)
		x = float64(i)
	} else {
		x, ok = ToFloat(v)
	}
	return ok && f.Compare.Match(x, f.Value)
}

func (f *Filter) Evaluate(e Entity, _ Env) any {
	if !f.passes(e) {
		return nil
	}
	v, ok := f.Primary.Number(e)
	if !ok {
		return nil
	}
	return v
}

func (f *Filter) Aggregate(es []Entity, env Env, m Method) any {
	return reduceEach(f, es, env, m)
}

// Condition requires a cycle field to hold a particular option.
type Condition struct {
	Field   string
	Options []string // nil for yes/no fields
	Want    int
}

func (c Condition) matches(cycle map[string]any) bool {
	v, ok := cycle[c.Field]
	if !ok || v == nil {
		return false
	}
	var idx int
	if c.Options == nil {
		b, ok := ToBool(v)
		if !ok {
			return false
		}
		if b {
			idx = 1
		}
	} else if idx, ok = OptionIndex(v, c.Options); !ok {
		return false
	}
	return idx == c.Want
}

// Where aggregates the cycles of one submission. Cycles meeting every
// condition are counted, or their Sum field totalled. With a Denominator the
// result is divided by that field totalled over all cycles.
type Where struct {
	Info
	Cycle       model.Key
	Conditions  []Condition
	Sum         string
	Denominator string
}

func (w *Where) Kind() Kind { return KindWhere }
func (w *Where) Recompute() bool { return w.Denominator != "" }
func (w *Where) Dependencies() []model.Key { return []model.Key{w.Cycle} }

func (w *Where) cycles(e Entity) ([]map[string]any, bool) {
	raw := e.Value(w.Cycle)
	list, ok := raw.([]any)
	if !ok {
		return nil, raw == nil && e.IsScouted(w.Cycle.Mode)
	}
	out := make([]map[string]any, 0, len(list))
	for _, c := range list {
		if m, ok := c.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, true
}

func (w *Where) tally(cycles []map[string]any) any {
	var num, den float64
	for _, c := range cycles {
		if w.Denominator != "" {
			if d, ok := toNumber(c[w.Denominator]); ok {
				den += d
			}
		}
		if !w.keep(c) {
			continue
		}
		if w.Sum == "" {
			num++
		} else if s, ok := toNumber(c[w.Sum]); ok {
			num += s
		}
	}
	if w.Denominator == "" {
		return num
	}
	return divide(num, den)
}

func (w *Where) keep(c map[string]any) bool {
	for _, cond := range w.Conditions {
		if !cond.matches(c) {
			return false
		}
	}
	return true
}

func (w *Where) Evaluate(e Entity, _ Env) any {
	cycles, ok := w.cycles(e)
	if !ok {
		return nil
	}
	return w.tally(cycles)
}

func (w *Where) Aggregate(es []Entity, env Env, m Method) any {
	if !w.Recompute() {
		return reduceEach(w, es, env, m)
	}
	var all []map[string]any
	found := false
	for _, e := range es {
		cycles, ok := w.cycles(e)
		if !ok {
			continue
		}
		all = append(all, cycles...)
		found = true
	}
	if !found {
		return nil
	}
	return w.tally(all)
}
