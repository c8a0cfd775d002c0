// Package dal joins everything stored for one event (official event data,
// scouting submissions, derived statistics) into an in-memory graph of
// teams and matches, and serves queries and aggregates over it.
package dal

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/wildrank/wrscout/internal/config"
	"github.com/wildrank/wrscout/internal/model"
	"github.com/wildrank/wrscout/internal/result"
)

var (
	// ErrBusy is returned when LoadData is called while a load is running.
	ErrBusy = errors.New("load already in progress")
	// ErrNotLoaded is returned by mutations issued before the first load.
	ErrNotLoaded = errors.New("event data not loaded")
)

// Store is the persisted key-value store the event is read from.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Match is one official match and the per-team results scouted in it.
type Match struct {
	Key       string
	Level     model.CompLevel
	Set       int
	Number    int
	Name      string
	ShortName string
	// Time is the actual start time, else the predicted, else the scheduled
	// one, in unix seconds.
	Time     int64
	Complete bool

	Red, Blue           []int
	RedScore, BlueScore int
	// Breakdown is the official score breakdown keyed by alliance colour.
	Breakdown map[string]map[string]any

	Results map[int]*result.MatchResult
}

// Teams returns the red then blue team numbers.
func (m *Match) Teams() []int {
	out := make([]int, 0, len(m.Red)+len(m.Blue))
	out = append(out, m.Red...)
	return append(out, m.Blue...)
}

// Data is the loaded state of one event.
type Data struct {
	EventID      string
	Name         string
	DoubleElim   bool
	AllianceSize int

	Teams     map[int]*result.TeamResult
	Matches   map[string]*Match
	Picklists map[string][]int

	cfg   *config.Provider
	store Store
	log   *slog.Logger

	cache      map[string]map[int]any
	generation uint64
	loaded     bool
	busy       atomic.Bool
}

// Option configures a Data.
type Option func(*Data)

// WithLogger sets the logger diagnostics are written to.
func WithLogger(l *slog.Logger) Option {
	return func(d *Data) { d.log = l }
}

// New returns an empty Data for eventID. Call LoadData before querying.
func New(eventID string, cfg *config.Provider, store Store, opts ...Option) *Data {
	d := &Data{
		EventID:   eventID,
		cfg:       cfg,
		store:     store,
		log:       slog.Default(),
		Teams:     make(map[int]*result.TeamResult),
		Matches:   make(map[string]*Match),
		Picklists: make(map[string][]int),
		cache:     make(map[string]map[int]any),
	}
	for _, o := range opts {
		o(d)
	}
	d.log = d.log.With("event", eventID)
	return d
}

// Config returns the configuration the data was built with.
func (d *Data) Config() *config.Provider { return d.cfg }

// Loaded reports whether a load has completed.
func (d *Data) Loaded() bool { return d.loaded }

// Generation counts completed loads. Values derived from the data are only
// valid for the generation they were read in.
func (d *Data) Generation() uint64 { return d.generation }
