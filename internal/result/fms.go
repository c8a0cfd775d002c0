package result

import (
	"strconv"
	"strings"
	"unicode"
)

// AddFMSResult copies the official values whose names are configured FMS
// keys. Keys are matched as given and in snake_case; nested objects and
// arrays are probed as "<key>_<sub>" and "<key>_<i>".
func (b *Base) AddFMSResult(raw map[string]any) {
	b.mergeFMS(raw, -1)
}

// mergeFMS merges raw. When index is a robot slot (0-2), a field ending in
// index+1 also fills the configured key without that digit, and configured
// keys ending in a digit match on their stem. The slot rule never overrides
// a configured key that some field matched directly, and array positions
// are not robot slots.
func (b *Base) mergeFMS(raw map[string]any, index int) {
	known := make(map[string]bool)
	stems := make(map[string][]string)
	for _, k := range b.schema.FMSKeys() {
		known[k.Field] = true
		if stem, _, ok := trailingDigit(k.Field); ok {
			stems[stem] = append(stems[stem], k.Field)
		}
	}

	m := fmsMerge{known: known, index: index, direct: map[string]any{}, slot: map[string]any{}}
	for key, v := range raw {
		m.probe(key, v, true)
	}
	for k, v := range m.direct {
		b.fms[k] = v
	}
	for stem, v := range m.slot {
		if _, ok := m.direct[stem]; !ok && known[stem] {
			b.fms[stem] = v
		}
		for _, k := range stems[stem] {
			if _, ok := m.direct[k]; !ok {
				b.fms[k] = v
			}
		}
	}
}

// fmsMerge collects the values of one breakdown before they are applied.
type fmsMerge struct {
	known  map[string]bool
	index  int
	direct map[string]any // configured key -> value of the field named so
	slot   map[string]any // stem -> value of the field ending in index+1
}

func (m *fmsMerge) probe(key string, v any, slotted bool) {
	name := snakeCase(key)
	if m.known[key] {
		m.direct[key] = v
	}
	if m.known[name] {
		m.direct[name] = v
	}
	if slotted && m.index >= 0 {
		if stem, d, ok := trailingDigit(name); ok && d == m.index+1 {
			m.slot[stem] = v
		}
	}

	switch x := v.(type) {
	case map[string]any:
		for sub, sv := range x {
			m.probe(name+"_"+snakeCase(sub), sv, slotted)
		}
	case []any:
		for i, sv := range x {
			m.probe(name+"_"+strconv.Itoa(i), sv, false)
		}
	}
}

// snakeCase converts "autoLineRobot1" to "auto_line_robot1".
func snakeCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && s[i-1] != '_' {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// trailingDigit splits a single trailing digit off name.
func trailingDigit(name string) (stem string, digit int, ok bool) {
	if len(name) < 2 {
		return "", 0, false
	}
	last := name[len(name)-1]
	if last < '0' || last > '9' {
		return "", 0, false
	}
	stem = strings.TrimSuffix(name[:len(name)-1], "_")
	return stem, int(last - '0'), true
}
