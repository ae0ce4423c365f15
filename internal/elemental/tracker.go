package elemental

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Entry is one recorded observation in an entity's rolling history.
type Entry struct {
	Entity    string    `json:"entity"`
	Profile   Profile   `json:"-"`
	Weight    float64   `json:"weight"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

// EntitySnapshot is the merged, ranked view of one entity's rolling history
// plus the derived composite indices. Snapshots are immutable once built.
type EntitySnapshot struct {
	Entity      string               `json:"entity"`
	Aggregates  []ArchetypeAggregate `json:"aggregates"`
	Dominant    ArchetypeAggregate   `json:"dominant"`
	Readiness   float64              `json:"readiness"`
	Caution     float64              `json:"caution"`
	Recovery    float64              `json:"recovery"`
	Stability   float64              `json:"stability"`
	Samples     int                  `json:"samples"`
	LastSample  time.Time            `json:"last_sample"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// TrackerOption configures a Tracker.
type TrackerOption func(*trackerConfig)

type trackerConfig struct {
	window []WindowOption
}

// TrackerMaxSamples caps each entity's history at n entries.
func TrackerMaxSamples(n int) TrackerOption {
	return func(c *trackerConfig) { c.window = append(c.window, WithMaxSize(n)) }
}

// TrackerMaxAge evicts entries older than d relative to the newest sample.
func TrackerMaxAge(d time.Duration) TrackerOption {
	return func(c *trackerConfig) { c.window = append(c.window, WithMaxAge(d)) }
}

// Tracker maintains one rolling window of scored observations per entity and
// derives readiness/caution/recovery/stability composites on demand.
// Mutation is serialized per entity; snapshots of different entities can run
// concurrently.
type Tracker struct {
	mu       sync.RWMutex
	entities map[string]*entityHistory
	cfg      trackerConfig
}

type entityHistory struct {
	mu     sync.Mutex
	win    *Window[Entry]
	dirty  bool
	cached *EntitySnapshot
}

// NewTracker builds a Tracker. Window parameters are validated eagerly so a
// misconfigured cap fails construction, not the first record.
func NewTracker(opts ...TrackerOption) (*Tracker, error) {
	var cfg trackerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	// validate window options once up front
	if _, err := NewWindow[Entry](cfg.window...); err != nil {
		return nil, err
	}
	return &Tracker{entities: make(map[string]*entityHistory), cfg: cfg}, nil
}

// Record appends one observation for entity. The input resolves to a profile
// exactly once; weight may be any finite value (non-positive weights count as
// 1.0 at aggregation time); a zero timestamp defaults to now and all
// timestamps are coerced to UTC.
func (t *Tracker) Record(entity string, in Input, weight float64, at time.Time, notes string) (Entry, error) {
	if entity == "" {
		return Entry{}, fmt.Errorf("%w: entity key required", ErrInvalidInput)
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return Entry{}, fmt.Errorf("%w: weight must be finite, got %v", ErrInvalidInput, weight)
	}
	profile, err := in.resolve()
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		Entity:    entity,
		Profile:   profile,
		Weight:    weight,
		Timestamp: normalizeTime(at),
		Notes:     notes,
	}

	h := t.history(entity)
	h.mu.Lock()
	h.win.Append(entry, entry.Timestamp)
	h.dirty = true
	h.mu.Unlock()

	return entry, nil
}

// Snapshot merges the entity's retained history into a ranked snapshot.
// Results are cached until the next record or eviction changes the history.
func (t *Tracker) Snapshot(entity string) (EntitySnapshot, error) {
	t.mu.RLock()
	h, ok := t.entities[entity]
	t.mu.RUnlock()
	if !ok {
		return EntitySnapshot{}, fmt.Errorf("%w: entity %q", ErrEmptyState, entity)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.win.Evict() > 0 {
		h.dirty = true
	}
	entries := h.win.Values()
	if len(entries) == 0 {
		return EntitySnapshot{}, fmt.Errorf("%w: entity %q", ErrEmptyState, entity)
	}
	if !h.dirty && h.cached != nil {
		return *h.cached, nil
	}

	snap := buildEntitySnapshot(entity, entries)
	h.cached = &snap
	h.dirty = false
	return snap, nil
}

// Entities returns the tracked entity keys that still hold history.
func (t *Tracker) Entities() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.entities))
	for k, h := range t.entities {
		h.mu.Lock()
		n := h.win.Len()
		h.mu.Unlock()
		if n > 0 {
			keys = append(keys, k)
		}
	}
	return keys
}

// Clear drops one entity's history.
func (t *Tracker) Clear(entity string) {
	t.mu.Lock()
	delete(t.entities, entity)
	t.mu.Unlock()
}

// Reset drops all tracked history.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.entities = make(map[string]*entityHistory)
	t.mu.Unlock()
}

func (t *Tracker) history(entity string) *entityHistory {
	t.mu.RLock()
	h, ok := t.entities[entity]
	t.mu.RUnlock()
	if ok {
		return h
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if h, ok = t.entities[entity]; ok {
		return h
	}
	// options were validated at construction time
	win, _ := NewWindow[Entry](t.cfg.window...)
	h = &entityHistory{win: win, dirty: true}
	t.entities[entity] = h
	return h
}

func buildEntitySnapshot(entity string, entries []Entry) EntitySnapshot {
	set := newAccumSet()
	var last time.Time
	for _, e := range entries {
		w := e.Weight
		if w <= 0 {
			w = 1.0
		}
		set.add(e.Profile, w)
		if e.Timestamp.After(last) {
			last = e.Timestamp
		}
	}
	aggs := set.aggregates()

	readiness := round2((scoreOf(aggs, Earth) + scoreOf(aggs, Light)) / 2)
	caution := round2((scoreOf(aggs, Fire) + scoreOf(aggs, Water) +
		scoreOf(aggs, Wind) + scoreOf(aggs, Lightning)) / 4)
	recovery := scoreOf(aggs, Darkness)

	return EntitySnapshot{
		Entity:      entity,
		Aggregates:  aggs,
		Dominant:    aggs[0],
		Readiness:   readiness,
		Caution:     caution,
		Recovery:    recovery,
		Stability:   round2(readiness - caution),
		Samples:     len(entries),
		LastSample:  last,
		GeneratedAt: time.Now().UTC(),
	}
}
