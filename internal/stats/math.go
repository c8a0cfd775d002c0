package stats

import (
	"fmt"
	"math"
	"regexp"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/wildrank/wrscout/internal/model"
)

var mathRefPattern = regexp.MustCompile(`\b(result|fms|smart)\.([a-z0-9_]+)\b`)

// Math evaluates a free-form arithmetic expression whose variables are keys,
// e.g. "result.match_auto_high * 6 + sqrt(fms.rank)".
type Math struct {
	Info
	Source string
	Refs   []Operand

	program *vm.Program
}

// CompileMath parses src. resolve maps each referenced key string, such as
// "result.match_auto_high", to an operand.
func CompileMath(info Info, src string, resolve func(string) (Operand, error)) (*Math, error) {
	m := &Math{Info: info, Source: src}
	seen := make(map[string]bool)
	for _, ref := range mathRefPattern.FindAllString(src, -1) {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		op, err := resolve(ref)
		if err != nil {
			return nil, fmt.Errorf("math %s: %w", info.ID, err)
		}
		m.Refs = append(m.Refs, op)
	}
	prog, err := expr.Compile(src,
		expr.Function("sqrt", func(params ...any) (any, error) {
			x, err := floatArgs(params, 1)
			if err != nil {
				return nil, err
			}
			return math.Sqrt(x[0]), nil
		}),
		expr.Function("pow", func(params ...any) (any, error) {
			x, err := floatArgs(params, 2)
			if err != nil {
				return nil, err
			}
			return math.Pow(x[0], x[1]), nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("math %s: compile: %w", info.ID, err)
	}
	m.program = prog
	return m, nil
}

func (m *Math) Kind() Kind { return KindMath }
func (m *Math) Recompute() bool { return false }
func (m *Math) Dependencies() []model.Key { return keysOf(m.Refs) }

// Evaluate returns nil when any referenced key is missing or the expression
// does not produce a finite number.
func (m *Math) Evaluate(e Entity, _ Env) any {
	env := map[string]any{
		"result": map[string]any{},
		"fms":    map[string]any{},
		"smart":  map[string]any{},
	}
	for _, ref := range m.Refs {
		f, ok := ref.Number(e)
		if !ok {
			return nil
		}
		env[ref.Key.Namespace.String()].(map[string]any)[ref.Key.Field] = f
	}
	out, err := expr.Run(m.program, env)
	if err != nil {
		return nil
	}
	f, ok := ToFloat(out)
	if !ok || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func (m *Math) Aggregate(es []Entity, env Env, method Method) any {
	return reduceEach(m, es, env, method)
}

func floatArgs(params []any, n int) ([]float64, error) {
	if len(params) != n {
		return nil, fmt.Errorf("want %d arguments, got %d", n, len(params))
	}
	out := make([]float64, n)
	for i, p := range params {
		f, ok := ToFloat(p)
		if !ok {
			return nil, fmt.Errorf("argument %d is not a number", i+1)
		}
		out[i] = f
	}
	return out, nil
}
