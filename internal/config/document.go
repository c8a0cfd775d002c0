// Package config loads the scouting configuration: the forms each scouting
// mode collects, the official fields copied from the event API, and the
// derived statistics computed from both.
package config

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// ModeType says which entity a scouting mode's submissions attach to.
type ModeType string

const (
	ModeMatchTeam     ModeType = "match-team"
	ModeMatchAlliance ModeType = "match-alliance"
	ModeTeam          ModeType = "team"
)

// Document is the on-disk configuration. JSON documents decode as well.
type Document struct {
	Version    string     `yaml:"version"`
	Modes      []Mode     `yaml:"modes"`
	FMS        []FMSField `yaml:"fms"`
	SmartStats []StatSpec `yaml:"smart_stats"`
}

// Mode is one scouting form.
type Mode struct {
	ID    string   `yaml:"id"`
	Name  string   `yaml:"name"`
	Type  ModeType `yaml:"type"`
	Pages []Page   `yaml:"pages"`
}

type Page struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Columns []Column `yaml:"columns"`
}

// Column groups inputs. Inputs of a cycle column are recorded repeatedly and
// stored as a list under the column id.
type Column struct {
	ID     string  `yaml:"id"`
	Name   string  `yaml:"name"`
	Cycle  bool    `yaml:"cycle"`
	Inputs []Input `yaml:"inputs"`
}

// Input is one form field. Negative is a bool, or a list of bools for
// multicounters.
type Input struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Options  []string `yaml:"options"`
	Default  any      `yaml:"default"`
	Negative any      `yaml:"negative"`
}

func (in Input) negativeAt(i int) bool {
	switch n := in.Negative.(type) {
	case bool:
		return n
	case []any:
		if i >= 0 && i < len(n) {
			b, _ := n[i].(bool)
			return b
		}
	}
	return false
}

// FMSField is an official value copied from match score breakdowns or
// rankings.
type FMSField struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`  // number, boolean or string
	Scope    string `yaml:"scope"` // match (default) or team
	Negative bool   `yaml:"negative"`
}

// StatSpec is a derived statistic as written in configuration. Which
// fields are used depends on Type.
type StatSpec struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Negative bool   `yaml:"negative"`

	Keys        []string       `yaml:"keys"`        // sum, min, max
	Numerator   string         `yaml:"numerator"`   // ratio, percent
	Denominator string         `yaml:"denominator"` // ratio, percent, where
	Cycle       string         `yaml:"cycle"`       // where
	Conditions  map[string]any `yaml:"conditions"`  // where
	Sum         string         `yaml:"sum"`         // where
	Math        string         `yaml:"math"`        // math
	Key         string         `yaml:"key"`         // filter
	Filter      string         `yaml:"filter"`      // filter
	CompareType any            `yaml:"compare_type"`
	Value       any            `yaml:"value"`
	Stat        string         `yaml:"stat"`   // wrank, map
	Values      []float64      `yaml:"values"` // map
	Pit         bool           `yaml:"pit"`
}

// Decode reads a Document from r.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &doc, nil
}

// Load decodes, validates and indexes a configuration.
func Load(r io.Reader) (*Provider, error) {
	doc, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return New(doc)
}

// LoadFile loads the configuration stored at path.
func LoadFile(path string) (*Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the built-in configuration.
func Default() (*Provider, error) {
	var doc Document
	if err := yaml.Unmarshal(defaultYAML, &doc); err != nil {
		return nil, fmt.Errorf("decode default config: %w", err)
	}
	return New(&doc)
}
