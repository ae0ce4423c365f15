package elemental

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Signal is one archetype's scored reading: score clamped to [0, 10], a
// qualitative level, and the reasons/recommendations of every rule that
// fired, deduplicated in first-seen order. Signals are immutable once built.
type Signal struct {
	Archetype       Archetype `json:"archetype"`
	Score           float64   `json:"score"`
	Level           Level     `json:"level"`
	Reasons         []string  `json:"reasons,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
}

// Profile is the complete ranked set of all seven archetype Signals produced
// by one scoring call, sorted descending by score with canonical archetype
// order breaking ties.
type Profile struct {
	signals []Signal
}

// NewProfile builds a Profile from exactly seven signals, one per archetype.
// Scores are clamped to [0, 10] and the set is ranked deterministically.
func NewProfile(signals []Signal) (Profile, error) {
	if len(signals) != len(Archetypes) {
		return Profile{}, fmt.Errorf("%w: profile needs %d signals, got %d",
			ErrInvalidInput, len(Archetypes), len(signals))
	}
	seen := make(map[Archetype]bool, len(signals))
	ranked := make([]Signal, len(signals))
	for i, s := range signals {
		if !s.Archetype.IsValid() {
			return Profile{}, fmt.Errorf("%w: unknown archetype %q", ErrInvalidInput, s.Archetype)
		}
		if seen[s.Archetype] {
			return Profile{}, fmt.Errorf("%w: duplicate archetype %q", ErrInvalidInput, s.Archetype)
		}
		seen[s.Archetype] = true
		s.Score = clampScore(s.Score)
		s.Reasons = dedupe(s.Reasons)
		s.Recommendations = dedupe(s.Recommendations)
		ranked[i] = s
	}
	sortSignals(ranked)
	return Profile{signals: ranked}, nil
}

// Signals returns the ranked signals as a copy; the profile itself never
// leaks internal state.
func (p Profile) Signals() []Signal {
	out := make([]Signal, len(p.signals))
	copy(out, p.signals)
	return out
}

// Dominant returns the top-ranked signal.
func (p Profile) Dominant() Signal {
	return p.signals[0]
}

// Signal returns the signal for one archetype.
func (p Profile) Signal(a Archetype) (Signal, bool) {
	for _, s := range p.signals {
		if s.Archetype == a {
			return s, true
		}
	}
	return Signal{}, false
}

// Len reports how many signals the profile holds (always seven once built).
func (p Profile) Len() int { return len(p.signals) }

// MarshalJSON emits the ranked signals and the dominant entry. The backing
// slice is unexported, so without this a profile serializes as an empty
// object.
func (p Profile) MarshalJSON() ([]byte, error) {
	view := struct {
		Signals  []Signal `json:"signals"`
		Dominant *Signal  `json:"dominant,omitempty"`
	}{Signals: p.Signals()}
	if len(p.signals) > 0 {
		d := p.signals[0]
		view.Dominant = &d
	}
	return json.Marshal(view)
}

func sortSignals(signals []Signal) {
	sort.SliceStable(signals, func(i, j int) bool {
		a, b := signals[i], signals[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Archetype.rank() < b.Archetype.rank()
	})
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > maxScore {
		return maxScore
	}
	return v
}

// dedupe removes repeated strings preserving first-occurrence order.
func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
