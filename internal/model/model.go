// Package model holds the value types shared by the scouting data layer:
// namespaced result keys, competition levels, and raw submission records.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Namespace identifies which store of an entity a key is resolved against.
type Namespace int

const (
	NamespaceUnknown Namespace = iota
	NamespaceResult            // human scouted values
	NamespaceFMS               // official score breakdown / rankings
	NamespaceSmart             // derived statistics
)

func (n Namespace) String() string {
	switch n {
	case NamespaceResult:
		return "result"
	case NamespaceFMS:
		return "fms"
	case NamespaceSmart:
		return "smart"
	default:
		return "?"
	}
}

// ParseNamespace maps a key prefix to its Namespace.
func ParseNamespace(s string) Namespace {
	switch s {
	case "result":
		return NamespaceResult
	case "fms":
		return NamespaceFMS
	case "smart":
		return NamespaceSmart
	default:
		return NamespaceUnknown
	}
}

// Key is a fully resolved result key. Mode is only set for result keys and
// names the scouting mode whose submissions hold Field.
type Key struct {
	Namespace Namespace
	Mode      string
	Field     string
}

// String returns the "<namespace>.<field>" form used in configuration files.
func (k Key) String() string {
	return k.Namespace.String() + "." + k.Field
}

// Valid reports whether the key has a known namespace and a field.
func (k Key) Valid() bool {
	return k.Namespace != NamespaceUnknown && k.Field != ""
}

// ResultKey builds a result key for a field collected by mode.
func ResultKey(mode, field string) Key {
	return Key{Namespace: NamespaceResult, Mode: mode, Field: field}
}

// FMSKey builds an official-data key.
func FMSKey(field string) Key {
	return Key{Namespace: NamespaceFMS, Field: field}
}

// SmartKey builds a derived-statistic key.
func SmartKey(id string) Key {
	return Key{Namespace: NamespaceSmart, Field: id}
}

// ParseKey splits "<namespace>.<field>". For result keys the mode is the
// longest entry of modes that prefixes the field followed by "_"; when none
// matches, the text before the first underscore is used.
func ParseKey(s string, modes []string) Key {
	ns, field, ok := strings.Cut(s, ".")
	if !ok {
		return Key{Field: s}
	}
	k := Key{Namespace: ParseNamespace(ns), Field: field}
	if k.Namespace != NamespaceResult {
		return k
	}
	for _, m := range modes {
		if strings.HasPrefix(field, m+"_") && len(m) > len(k.Mode) {
			k.Mode = m
		}
	}
	if k.Mode == "" {
		k.Mode, _, _ = strings.Cut(field, "_")
	}
	return k
}

// TeamNumber is a team number that decodes from either a JSON number or a
// numeric string ("254"), since both appear in stored blobs.
type TeamNumber int

// UnmarshalJSON implements json.Unmarshaler.
func (t *TeamNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*t = 0
		return nil
	}
	s = strings.TrimPrefix(s, "frc")
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("team number %s: %w", b, err)
	}
	*t = TeamNumber(n)
	return nil
}

// ParseTeamKey converts a TBA team key ("frc254") into a team number.
func ParseTeamKey(key string) (int, error) {
	return strconv.Atoi(strings.TrimPrefix(key, "frc"))
}

// ---- Submissions ----

// ResultMeta locates a submission within an event.
type ResultMeta struct {
	ScoutMode   string     `json:"scout_mode"`
	EventID     string     `json:"event_id"`
	MatchKey    string     `json:"match_key,omitempty"`
	MatchNumber int        `json:"match_number,omitempty"`
	TeamNum     TeamNumber `json:"team_num,omitempty"`
	Alliance    string     `json:"alliance,omitempty"` // "red" or "blue" for alliance-wide modes
}

// ScouterMeta describes who produced a submission and with which app.
type ScouterMeta struct {
	UserID        int    `json:"user_id"`
	Position      int    `json:"position"`
	StartTime     int64  `json:"start_time"`
	Duration      int64  `json:"duration"`
	ConfigVersion string `json:"config_version"`
	AppVersion    string `json:"app_version"`
}

// StatusMeta carries the reviewer-facing flags of a submission.
type StatusMeta struct {
	Unsure       bool   `json:"unsure"`
	UnsureReason string `json:"unsure_reason"`
	Ignore       bool   `json:"ignore"`
}

// SubmissionMeta is the "meta" block of a persisted result blob.
type SubmissionMeta struct {
	Result  ResultMeta  `json:"result"`
	Scouter ScouterMeta `json:"scouter"`
	Status  StatusMeta  `json:"status"`
}

// RawResult is the JSON document stored under a "result-" key.
type RawResult struct {
	Meta   SubmissionMeta `json:"meta"`
	Result map[string]any `json:"result"`
}

// Submission is one stored scouting result attached to an entity.
// SourceID is the persisted key it was read from.
type Submission struct {
	SourceID string
	Meta     SubmissionMeta
	Values   map[string]any
}

// DecodeRawResult parses a stored result blob.
func DecodeRawResult(b []byte) (*RawResult, error) {
	var r RawResult
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if r.Result == nil {
		r.Result = make(map[string]any)
	}
	return &r, nil
}
