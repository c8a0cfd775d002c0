package config

import (
	"fmt"
	"strings"

	"github.com/wildrank/wrscout/internal/stats"
)

var inputTypes = map[string]bool{
	"checkbox": true, "counter": true, "multicounter": true, "number": true,
	"slider": true, "select": true, "dropdown": true, "multiselect": true,
	"string": true, "text": true,
}

// Validate checks the structure of a configuration and reports the first
// problem found.
func Validate(doc *Document) error {
	if len(doc.Modes) == 0 {
		return fmt.Errorf("config: no scouting modes")
	}
	seenModes := make(map[string]bool)
	for _, m := range doc.Modes {
		if m.ID == "" || m.Name == "" {
			return fmt.Errorf("mode %q: missing id or name", m.ID)
		}
		if seenModes[m.ID] {
			return fmt.Errorf("mode %s: repeat id", m.ID)
		}
		seenModes[m.ID] = true
		switch m.Type {
		case ModeMatchTeam, ModeMatchAlliance, ModeTeam:
		default:
			return fmt.Errorf("mode %s: unknown type %q", m.ID, m.Type)
		}
		if err := validateMode(m); err != nil {
			return fmt.Errorf("mode %s: %w", m.ID, err)
		}
	}
	for _, f := range doc.FMS {
		if f.ID == "" {
			return fmt.Errorf("fms: missing id")
		}
		switch f.Type {
		case "number", "boolean", "string":
		default:
			return fmt.Errorf("fms %s: unknown type %q", f.ID, f.Type)
		}
		if f.Scope != "" && f.Scope != "match" && f.Scope != "team" {
			return fmt.Errorf("fms %s: unknown scope %q", f.ID, f.Scope)
		}
	}
	return validateSmartStats(doc.SmartStats)
}

func validateMode(m Mode) error {
	ids := make(map[string]bool)
	claim := func(id string) error {
		if ids[id] {
			return fmt.Errorf("repeat id %q", id)
		}
		ids[id] = true
		return nil
	}
	prefix := m.ID + "_"
	for _, page := range m.Pages {
		if page.ID == "" || page.Name == "" {
			return fmt.Errorf("page %q: missing id or name", page.ID)
		}
		if len(page.Columns) == 0 {
			return fmt.Errorf("page %s: no columns", page.ID)
		}
		for _, col := range page.Columns {
			if col.ID == "" || col.Name == "" {
				return fmt.Errorf("column %q: missing id or name", col.ID)
			}
			if len(col.Inputs) == 0 {
				return fmt.Errorf("column %s: no inputs", col.ID)
			}
			if col.Cycle {
				if !strings.HasPrefix(col.ID, prefix) {
					return fmt.Errorf("cycle %s: id must start with %q", col.ID, prefix)
				}
				if err := claim(col.ID); err != nil {
					return err
				}
			}
			for _, in := range col.Inputs {
				if err := validateInput(in, prefix, claim); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateInput(in Input, prefix string, claim func(string) error) error {
	if in.ID == "" || in.Name == "" || in.Type == "" {
		return fmt.Errorf("input %q: missing id, name or type", in.ID)
	}
	if !strings.HasPrefix(in.ID, prefix) {
		return fmt.Errorf("input %s: id must start with %q", in.ID, prefix)
	}
	if !inputTypes[in.Type] {
		return fmt.Errorf("input %s: unknown type %q", in.ID, in.Type)
	}
	if err := claim(in.ID); err != nil {
		return err
	}

	switch in.Type {
	case "select", "dropdown", "multiselect", "multicounter":
		if len(in.Options) == 0 {
			return fmt.Errorf("input %s: missing options", in.ID)
		}
		for _, opt := range in.Options {
			if err := claim(in.ID + "_" + strings.ToLower(opt)); err != nil {
				return err
			}
		}
	}

	switch in.Type {
	case "select", "dropdown":
		def, ok := in.Default.(string)
		if !ok {
			return fmt.Errorf("input %s: default should be a string", in.ID)
		}
		if _, ok := stats.OptionIndex(def, in.Options); !ok {
			return fmt.Errorf("input %s: default %q not found in options", in.ID, def)
		}
	case "multiselect":
		defs, ok := in.Default.([]any)
		if !ok || len(defs) != len(in.Options) {
			return fmt.Errorf("input %s: default should list one boolean per option", in.ID)
		}
	case "multicounter":
		if neg, ok := in.Negative.([]any); ok && len(neg) != len(in.Options) {
			return fmt.Errorf("input %s: negative should list one boolean per option", in.ID)
		}
	case "checkbox":
		if _, ok := in.Default.(bool); !ok && in.Default != nil {
			return fmt.Errorf("input %s: default should be a boolean", in.ID)
		}
	case "number", "slider":
		return validateRange(in)
	}
	return nil
}

func validateRange(in Input) error {
	if len(in.Options) == 0 {
		return nil
	}
	bounds := make([]float64, len(in.Options))
	for i, o := range in.Options {
		f, ok := stats.ToFloat(o)
		if !ok {
			return fmt.Errorf("input %s: option %q is not a number", in.ID, o)
		}
		bounds[i] = f
	}
	if len(bounds) < 2 {
		return fmt.Errorf("input %s: options should be [min, max]", in.ID)
	}
	if bounds[1] < bounds[0] {
		return fmt.Errorf("input %s: maximum may not be less than minimum", in.ID)
	}
	if in.Type == "slider" && len(bounds) == 3 {
		if bounds[2] <= 0 {
			return fmt.Errorf("input %s: increment must be positive", in.ID)
		}
		if bounds[2] > bounds[1]-bounds[0] {
			return fmt.Errorf("input %s: increment may not be greater than the gap between minimum and maximum", in.ID)
		}
	}
	return nil
}

func validateSmartStats(specs []StatSpec) error {
	seen := make(map[string]bool)
	for _, s := range specs {
		if s.ID == "" || s.Name == "" || s.Type == "" {
			return fmt.Errorf("smart stat %q: missing id, name or type", s.ID)
		}
		if seen[s.ID] {
			return fmt.Errorf("smart stat %s: repeat id", s.ID)
		}
		seen[s.ID] = true

		var missing string
		switch stats.Kind(s.Type) {
		case stats.KindSum, stats.KindMin, stats.KindMax:
			if len(s.Keys) == 0 {
				missing = "keys"
			}
		case stats.KindRatio, stats.KindPercent:
			switch {
			case s.Numerator == "":
				missing = "numerator"
			case s.Denominator == "":
				missing = "denominator"
			}
		case stats.KindWhere:
			if s.Cycle == "" {
				missing = "cycle"
			}
		case stats.KindMath:
			if s.Math == "" {
				missing = "math"
			}
		case stats.KindFilter:
			switch {
			case s.Key == "":
				missing = "key"
			case s.Filter == "":
				missing = "filter"
			case s.CompareType == nil:
				missing = "compare_type"
			case s.Value == nil:
				missing = "value"
			}
		case stats.KindWRank:
			if s.Stat == "" {
				missing = "stat"
			}
		case stats.KindMap:
			switch {
			case s.Stat == "":
				missing = "stat"
			case len(s.Values) == 0:
				missing = "values"
			}
		default:
			return fmt.Errorf("smart stat %s: unknown type %q", s.ID, s.Type)
		}
		if missing != "" {
			return fmt.Errorf("smart stat %s: missing property %s", s.ID, missing)
		}
	}
	return nil
}
