package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// OptionCount is the number of times one option was observed.
type OptionCount struct {
	Label string
	Count int
}

// Counts is the result of the Total reducer on categorical values.
type Counts []OptionCount

func (c Counts) String() string {
	parts := make([]string, len(c))
	for i, oc := range c {
		parts[i] = fmt.Sprintf("%s: %d", oc.Label, oc.Count)
	}
	return strings.Join(parts, ", ")
}

// Reduce summarises values with the given method. Nil entries are ignored;
// an input with no usable values reduces to nil.
func Reduce(values []any, m Method, t ValueType, options []string) any {
	switch t {
	case TypeBoolean, TypeOption:
		return reduceCategorical(values, m, t, options)
	case TypeString, TypeCycle:
		return nil
	default:
		return reduceNumbers(numbers(values), m)
	}
}

func numbers(values []any) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		if f, ok := ToFloat(v); ok {
			out = append(out, f)
		}
	}
	return out
}

func reduceNumbers(vals []float64, m Method) any {
	if len(vals) == 0 {
		return nil
	}
	switch m {
	case Median:
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		return sorted[len(sorted)/2]
	case Mode:
		return mode(vals)
	case Min:
		lo := vals[0]
		for _, v := range vals[1:] {
			lo = math.Min(lo, v)
		}
		return lo
	case Max:
		hi := vals[0]
		for _, v := range vals[1:] {
			hi = math.Max(hi, v)
		}
		return hi
	case Total:
		return sum(vals)
	case StdDev:
		return stdDev(vals)
	default:
		return mean(vals)
	}
}

func sum(vals []float64) float64 {
	total := 0.0
	for _, v := range vals {
		total += v
	}
	return total
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return sum(vals) / float64(len(vals))
}

func stdDev(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	avg := mean(vals)
	acc := 0.0
	for _, v := range vals {
		acc += (v - avg) * (v - avg)
	}
	return math.Sqrt(acc / float64(len(vals)))
}

// mode returns the most frequent value; on equal counts the value seen
// first wins.
func mode[T comparable](vals []T) T {
	counts := make(map[T]int, len(vals))
	best := vals[0]
	for _, v := range vals {
		counts[v]++
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}

func reduceCategorical(values []any, m Method, t ValueType, options []string) any {
	labels := options
	if t == TypeBoolean {
		labels = []string{"No", "Yes"}
	}
	var idx []int
	for _, v := range values {
		if v == nil {
			continue
		}
		var (
			i  int
			ok bool
		)
		if t == TypeBoolean {
			var b bool
			b, ok = ToBool(v)
			if b {
				i = 1
			}
		} else {
			i, ok = OptionIndex(v, options)
		}
		if ok {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil
	}

	counts := make([]int, len(labels))
	for _, i := range idx {
		if i < len(counts) {
			counts[i]++
		}
	}

	var pick int
	switch m {
	case Median:
		sorted := append([]int(nil), idx...)
		sort.Ints(sorted)
		pick = sorted[len(sorted)/2]
	case Min, Max:
		for i := range counts {
			if m == Min && counts[i] < counts[pick] || m == Max && counts[i] > counts[pick] {
				pick = i
			}
		}
	case Total:
		out := make(Counts, len(labels))
		for i, l := range labels {
			out[i] = OptionCount{Label: l, Count: counts[i]}
		}
		return out
	default:
		pick = mode(idx)
	}
	if t == TypeBoolean {
		return pick == 1
	}
	return pick
}

// Clean formats a value for display: option indices become labels, booleans
// become Yes/No and numbers keep two decimals.
func Clean(v any, t ValueType, options []string) string {
	if v == nil {
		return ""
	}
	switch x := v.(type) {
	case Counts:
		return x.String()
	case string:
		return x
	}
	switch t {
	case TypeBoolean:
		if b, ok := ToBool(v); ok {
			if b {
				return "Yes"
			}
			return "No"
		}
	case TypeOption:
		if i, ok := OptionIndex(v, options); ok && i < len(options) {
			return options[i]
		}
	}
	if f, ok := ToFloat(v); ok {
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%.2f", f)
	}
	return fmt.Sprint(v)
}
