package config

import (
	"github.com/wildrank/wrscout/internal/model"
	"github.com/wildrank/wrscout/internal/stats"
)

// Result describes one resolvable key: a scouted input, an official field or
// a derived statistic.
type Result struct {
	Key       model.Key
	Name      string
	InputType string
	Type      stats.ValueType
	Options   []string
	Negative  bool
	Counter   bool
	// Cycle is the field of the cycle list holding this value, if any.
	Cycle string
	// Smart is set for derived statistics.
	Smart stats.Definition
}

// ID returns the key's field name.
func (r *Result) ID() string { return r.Key.Field }

// AvailableStats lists the reducers offered for this key.
func (r *Result) AvailableStats() []stats.Method {
	return stats.AvailableMethods(r.Type)
}

// DefaultStat is the reducer used when a caller does not name one.
func (r *Result) DefaultStat() stats.Method {
	if r.Type.Categorical() {
		return stats.Mode
	}
	return stats.Mean
}

// ComputeStat reduces values of this key.
func (r *Result) ComputeStat(values []any, m stats.Method) any {
	return stats.Reduce(values, m, r.Type, r.Options)
}

// ComputeSmartResult evaluates a derived statistic for one entity. It is nil
// for keys that are not derived.
func (r *Result) ComputeSmartResult(e stats.Entity, env stats.Env) any {
	if r.Smart == nil {
		return nil
	}
	return r.Smart.Evaluate(e, env)
}

// Clean formats a value of this key for display.
func (r *Result) Clean(v any) string {
	return stats.Clean(v, r.Type, r.Options)
}

// Operand is the key as read by a statistic definition.
func (r *Result) Operand() stats.Operand {
	return stats.Operand{Key: r.Key, Counter: r.Counter}
}

// Numeric reports whether the key holds plain numbers.
func (r *Result) Numeric() bool {
	return r.Type == stats.TypeNumber
}
