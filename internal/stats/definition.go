package stats

import (
	"fmt"
	"strings"

	"github.com/wildrank/wrscout/internal/model"
)

// Kind names a statistic variant as written in configuration.
type Kind string

const (
	KindSum     Kind = "sum"
	KindRatio   Kind = "ratio"
	KindPercent Kind = "percent"
	KindMin     Kind = "min"
	KindMax     Kind = "max"
	KindWRank   Kind = "wrank"
	KindMap     Kind = "map"
	KindFilter  Kind = "filter"
	KindWhere   Kind = "where"
	KindMath    Kind = "math"
)

// Entity is anything a statistic can be evaluated against: a single
// match-team result or a team result.
type Entity interface {
	Value(k model.Key) any
	IsScouted(mode string) bool
	Team() int
}

// Env gives definitions access to the whole event, which population-relative
// statistics need.
type Env interface {
	TeamNumbers() []int
	TeamStat(k model.Key, team int, m Method) any
}

// Info is the descriptive part shared by every definition.
type Info struct {
	ID         string
	Name       string
	Negative   bool // higher values are worse
	TeamScoped bool // evaluated on team results rather than match results
}

// Describe returns the definition's Info.
func (i Info) Describe() Info { return i }

// Definition is one configured derived statistic.
type Definition interface {
	Describe() Info
	Kind() Kind
	// Recompute reports whether an aggregate must be derived from the raw
	// entities rather than by reducing per-entity values.
	Recompute() bool
	// Dependencies lists every key the definition reads.
	Dependencies() []model.Key
	// Evaluate computes the value for one entity, or nil.
	Evaluate(e Entity, env Env) any
	// Aggregate computes the value across a population of entities.
	Aggregate(es []Entity, env Env, m Method) any
}

// Operand is a key read by a definition. Counter operands count as zero when
// the entity was scouted in the operand's mode but the value is absent.
type Operand struct {
	Key     model.Key
	Counter bool
}

// Resolve returns the operand's value for e.
func (o Operand) Resolve(e Entity) any {
	v := e.Value(o.Key)
	if v == nil && o.Counter && o.Key.Namespace == model.NamespaceResult && e.IsScouted(o.Key.Mode) {
		return 0.0
	}
	return v
}

// Number resolves the operand as a number.
func (o Operand) Number(e Entity) (float64, bool) {
	v := o.Resolve(e)
	if v == nil {
		return 0, false
	}
	return ToFloat(v)
}

func keysOf(ops []Operand) []model.Key {
	out := make([]model.Key, len(ops))
	for i, o := range ops {
		out[i] = o.Key
	}
	return out
}

// reduceEach evaluates d on each entity and reduces the numeric results.
func reduceEach(d Definition, es []Entity, env Env, m Method) any {
	vals := make([]any, 0, len(es))
	for _, e := range es {
		vals = append(vals, d.Evaluate(e, env))
	}
	return Reduce(vals, m, TypeNumber, nil)
}

// Comparator is a filter comparison. The numeric values match the indices
// used by stored configurations.
type Comparator int

const (
	CompareGT Comparator = iota
	CompareGE
	CompareEQ
	CompareNE
	CompareLE
	CompareLT
)

var comparatorSymbols = []string{">", "≥", "=", "≠", "≤", "<"}

func (c Comparator) String() string {
	if c < 0 || int(c) >= len(comparatorSymbols) {
		return "?"
	}
	return comparatorSymbols[c]
}

// ParseComparator accepts either a symbol or its ASCII spelling.
func ParseComparator(s string) (Comparator, error) {
	switch strings.TrimSpace(s) {
	case ">":
		return CompareGT, nil
	case "≥", ">=":
		return CompareGE, nil
	case "=", "==":
		return CompareEQ, nil
	case "≠", "!=":
		return CompareNE, nil
	case "≤", "<=":
		return CompareLE, nil
	case "<":
		return CompareLT, nil
	}
	return 0, fmt.Errorf("unknown comparator %q", s)
}

// Match applies the comparison a <op> b.
func (c Comparator) Match(a, b float64) bool {
	switch c {
	case CompareGT:
		return a > b
	case CompareGE:
		return a >= b
	case CompareEQ:
		return a == b
	case CompareNE:
		return a != b
	case CompareLE:
		return a <= b
	case CompareLT:
		return a < b
	}
	return false
}
