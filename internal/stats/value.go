// Package stats implements the data-driven statistic definitions and the
// reducers used to summarise a set of values.
package stats

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueType describes how values of a key are interpreted when reduced.
type ValueType string

const (
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
	TypeOption  ValueType = "int-option"
	TypeString  ValueType = "string"
	TypeCycle   ValueType = "cycle"
)

// Categorical reports whether values of the type are option-like.
func (t ValueType) Categorical() bool {
	return t == TypeBoolean || t == TypeOption
}

// Method selects a reducer.
type Method string

const (
	Mean   Method = "mean"
	Median Method = "median"
	Mode   Method = "mode"
	Min    Method = "min"
	Max    Method = "max"
	StdDev Method = "stddev"
	Total  Method = "total"
)

// ParseMethod maps a user supplied name onto a Method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case Mean, Median, Mode, Min, Max, StdDev, Total:
		return m, nil
	case "":
		return Mean, nil
	}
	return "", fmt.Errorf("unknown stat method %q", s)
}

// AvailableMethods lists the reducers that make sense for a value type.
func AvailableMethods(t ValueType) []Method {
	switch t {
	case TypeNumber:
		return []Method{Mean, Median, Mode, Min, Max, StdDev, Total}
	case TypeBoolean, TypeOption:
		return []Method{Mean, Median, Mode, Min, Max, Total}
	default:
		return nil
	}
}

// ToFloat converts a resolved value to a number. Booleans count as 0/1.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// OptionIndex converts a categorical value into its position within options.
// Values may be stored as labels or as indices.
func OptionIndex(v any, options []string) (int, bool) {
	switch x := v.(type) {
	case string:
		for i, o := range options {
			if o == x || strings.EqualFold(o, x) {
				return i, true
			}
		}
		return 0, false
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	f, ok := ToFloat(v)
	if !ok || f < 0 || f != math.Trunc(f) {
		return 0, false
	}
	i := int(f)
	if len(options) > 0 && i >= len(options) {
		return 0, false
	}
	return i, true
}

// ToBool interprets a boolean-like value. The official API reports yes/no
// fields as "Yes"/"No".
func ToBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		return b == "Yes" || strings.EqualFold(b, "true"), true
	}
	f, ok := ToFloat(v)
	if !ok {
		return false, false
	}
	return f != 0, true
}
