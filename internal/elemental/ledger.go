package elemental

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// Contribution is one raw elemental reading: no rule scoring involved, just
// an archetype, a score in [0, 10], a positive weight, and provenance.
type Contribution struct {
	Archetype Archetype         `json:"archetype"`
	Score     float64           `json:"score"`
	Weight    float64           `json:"weight"`
	Source    string            `json:"source,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Summary is one archetype's aggregate over its retained contributions.
// A zero-valued Summary (Samples == 0) is the documented empty default, not
// an error, so the holistic snapshot stays computable.
type Summary struct {
	Archetype    Archetype `json:"archetype"`
	Samples      int       `json:"samples"`
	TotalWeight  float64   `json:"total_weight"`
	AverageScore float64   `json:"average_score"`
	Level        Level     `json:"level"`
	Momentum     float64   `json:"momentum"`
	TopSources   []string  `json:"top_sources,omitempty"`
	LastSeen     time.Time `json:"last_seen"`
}

// LedgerSnapshot is the holistic view across all seven archetypes.
type LedgerSnapshot struct {
	Summaries   []Summary `json:"summaries"`
	Dominant    Summary   `json:"dominant"`
	Readiness   float64   `json:"readiness"`
	Caution     float64   `json:"caution"`
	Recovery    float64   `json:"recovery"`
	Dispersion  float64   `json:"dispersion"`
	Samples     int       `json:"samples"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ContributionOption decorates a recorded contribution.
type ContributionOption func(*Contribution)

// WithWeight overrides the default weight of 1.0. Must be positive.
func WithWeight(w float64) ContributionOption {
	return func(c *Contribution) { c.Weight = w }
}

// WithSource labels the contribution's origin.
func WithSource(source string) ContributionOption {
	return func(c *Contribution) { c.Source = source }
}

// WithTimestamp pins the contribution time; defaults to now (UTC).
func WithTimestamp(at time.Time) ContributionOption {
	return func(c *Contribution) { c.Timestamp = at }
}

// WithMetadata attaches free-form metadata.
func WithMetadata(md map[string]string) ContributionOption {
	return func(c *Contribution) { c.Metadata = md }
}

// LedgerOption configures a Ledger.
type LedgerOption func(*ledgerConfig)

type ledgerConfig struct {
	window []WindowOption
}

// LedgerMaxSamples caps each archetype's history at n contributions.
func LedgerMaxSamples(n int) LedgerOption {
	return func(c *ledgerConfig) { c.window = append(c.window, WithMaxSize(n)) }
}

// LedgerMaxAge evicts contributions older than d relative to the newest one
// for the same archetype.
func LedgerMaxAge(d time.Duration) LedgerOption {
	return func(c *ledgerConfig) { c.window = append(c.window, WithMaxAge(d)) }
}

// Ledger tracks raw weighted contributions per archetype, for callers that
// only have coarse elemental telemetry rather than full rule-scored
// profiles. It bypasses the scorer entirely.
type Ledger struct {
	mu      sync.Mutex
	windows map[Archetype]*Window[Contribution]
	dirty   bool
	cached  *LedgerSnapshot
	cfg     ledgerConfig
}

// NewLedger builds a Ledger; window parameters are validated eagerly.
func NewLedger(opts ...LedgerOption) (*Ledger, error) {
	var cfg ledgerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	windows := make(map[Archetype]*Window[Contribution], len(Archetypes))
	for _, a := range Archetypes {
		win, err := NewWindow[Contribution](cfg.window...)
		if err != nil {
			return nil, err
		}
		windows[a] = win
	}
	return &Ledger{windows: windows, dirty: true, cfg: cfg}, nil
}

// Record appends one contribution. Score must lie in [0, 10]; weight
// defaults to 1.0 and must be positive when supplied.
func (l *Ledger) Record(a Archetype, score float64, opts ...ContributionOption) (Contribution, error) {
	if !a.IsValid() {
		return Contribution{}, fmt.Errorf("%w: unknown archetype %q", ErrInvalidInput, a)
	}
	if math.IsNaN(score) || score < 0 || score > maxScore {
		return Contribution{}, fmt.Errorf("%w: score %v outside [0, %v]", ErrInvalidInput, score, maxScore)
	}

	c := Contribution{Archetype: a, Score: score, Weight: 1.0}
	for _, opt := range opts {
		opt(&c)
	}
	if math.IsNaN(c.Weight) || c.Weight <= 0 {
		return Contribution{}, fmt.Errorf("%w: weight must be positive, got %v", ErrInvalidInput, c.Weight)
	}
	c.Timestamp = normalizeTime(c.Timestamp)

	l.mu.Lock()
	l.windows[a].Append(c, c.Timestamp)
	l.dirty = true
	l.mu.Unlock()
	return c, nil
}

// Summary aggregates one archetype's retained contributions. An archetype
// with no history yields the zero-valued Summary rather than an error.
func (l *Ledger) Summary(a Archetype) (Summary, error) {
	if !a.IsValid() {
		return Summary{}, fmt.Errorf("%w: unknown archetype %q", ErrInvalidInput, a)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.summaryLocked(a), nil
}

// Snapshot merges all seven archetype summaries into the holistic view with
// the readiness/caution/recovery composites and score dispersion. It is
// cached until the next record or eviction.
func (l *Ledger) Snapshot() LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, win := range l.windows {
		if win.Evict() > 0 {
			l.dirty = true
		}
	}
	if !l.dirty && l.cached != nil {
		return *l.cached
	}

	summaries := make([]Summary, 0, len(Archetypes))
	totalSamples := 0
	for _, a := range Archetypes {
		s := l.summaryLocked(a)
		summaries = append(summaries, s)
		totalSamples += s.Samples
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.AverageScore != b.AverageScore {
			return a.AverageScore > b.AverageScore
		}
		return a.Archetype.rank() < b.Archetype.rank()
	})

	snap := LedgerSnapshot{
		Summaries:   summaries,
		Dominant:    summaries[0],
		Readiness:   sampledMean(summaries, Earth, Light),
		Caution:     sampledMean(summaries, Fire, Water, Wind, Lightning),
		Recovery:    sampledMean(summaries, Darkness),
		Dispersion:  dispersion(summaries),
		Samples:     totalSamples,
		GeneratedAt: time.Now().UTC(),
	}
	l.cached = &snap
	l.dirty = false
	return snap
}

// Clear drops one archetype's history.
func (l *Ledger) Clear(a Archetype) error {
	if !a.IsValid() {
		return fmt.Errorf("%w: unknown archetype %q", ErrInvalidInput, a)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	win, err := NewWindow[Contribution](l.cfg.window...)
	if err != nil {
		return err
	}
	l.windows[a] = win
	l.dirty = true
	return nil
}

// Reset drops all history.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range Archetypes {
		win, _ := NewWindow[Contribution](l.cfg.window...)
		l.windows[a] = win
	}
	l.dirty = true
}

func (l *Ledger) summaryLocked(a Archetype) Summary {
	entries := l.windows[a].Values()
	if len(entries) == 0 {
		return Summary{Archetype: a, Level: ledgerLevelFor(a, 0)}
	}

	var (
		weightedSum  float64
		totalWeight  float64
		priorSum     float64
		priorWeight  float64
		last         time.Time
		sourceWeight = make(map[string]float64)
	)
	for i, c := range entries {
		weightedSum += c.Score * c.Weight
		totalWeight += c.Weight
		if i < len(entries)-1 {
			priorSum += c.Score * c.Weight
			priorWeight += c.Weight
		}
		if c.Timestamp.After(last) {
			last = c.Timestamp
		}
		if c.Source != "" {
			sourceWeight[c.Source] += c.Weight
		}
	}

	avg := round2(weightedSum / totalWeight)
	momentum := 0.0
	if len(entries) >= 2 {
		momentum = round2(entries[len(entries)-1].Score - priorSum/priorWeight)
	}

	return Summary{
		Archetype:    a,
		Samples:      len(entries),
		TotalWeight:  round2(totalWeight),
		AverageScore: avg,
		Level:        ledgerLevelFor(a, avg),
		Momentum:     momentum,
		TopSources:   topSources(sourceWeight, 3),
		LastSeen:     last,
	}
}

// topSources ranks distinct sources by accumulated weight (name ascending on
// ties) and keeps the heaviest n.
func topSources(weights map[string]float64, n int) []string {
	if len(weights) == 0 {
		return nil
	}
	names := make([]string, 0, len(weights))
	for s := range weights {
		names = append(names, s)
	}
	sort.SliceStable(names, func(i, j int) bool {
		if weights[names[i]] != weights[names[j]] {
			return weights[names[i]] > weights[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

// sampledMean averages the given archetypes' scores over those that hold at
// least one sample; archetypes with empty history are excluded from the
// mean, not counted as zero members.
func sampledMean(summaries []Summary, archetypes ...Archetype) float64 {
	want := make(map[Archetype]bool, len(archetypes))
	for _, a := range archetypes {
		want[a] = true
	}
	sum, n := 0.0, 0
	for _, s := range summaries {
		if want[s.Archetype] && s.Samples > 0 {
			sum += s.AverageScore
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n))
}

// dispersion is the population standard deviation of the seven weighted
// averages (empty archetypes average 0).
func dispersion(summaries []Summary) float64 {
	mean := 0.0
	for _, s := range summaries {
		mean += s.AverageScore
	}
	mean /= float64(len(summaries))

	variance := 0.0
	for _, s := range summaries {
		d := s.AverageScore - mean
		variance += d * d
	}
	variance /= float64(len(summaries))
	return round2(math.Sqrt(variance))
}
