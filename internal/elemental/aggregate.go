package elemental

import (
	"math"
	"sort"
)

// ArchetypeAggregate is one archetype's merged view across many weighted
// profiles: weighted-average score, voted level, and the union of reasons and
// recommendations in first-seen order.
type ArchetypeAggregate struct {
	Archetype       Archetype `json:"archetype"`
	Score           float64   `json:"score"`
	Level           Level     `json:"level"`
	Reasons         []string  `json:"reasons,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
	Samples         int       `json:"samples"`
	Weight          float64   `json:"weight"`
}

// accumSet folds weighted profiles into per-archetype running sums. It backs
// both the per-entity tracker and the cross-entity consensus engine so the
// two merge identically.
type accumSet map[Archetype]*archAccum

type archAccum struct {
	weightedSum float64
	weight      float64
	samples     int
	votes       map[Level]levelVote
	reasons     []string
	recs        []string
}

func newAccumSet() accumSet {
	s := make(accumSet, len(Archetypes))
	for _, a := range Archetypes {
		s[a] = &archAccum{votes: make(map[Level]levelVote)}
	}
	return s
}

// add folds one profile in with the given effective weight (already
// defaulted/floored by the caller).
func (s accumSet) add(p Profile, weight float64) {
	for _, sig := range p.signals {
		acc := s[sig.Archetype]
		acc.weightedSum += sig.Score * weight
		acc.weight += weight
		acc.samples++
		v := acc.votes[sig.Level]
		v.weight += weight
		v.count++
		acc.votes[sig.Level] = v
		acc.reasons = append(acc.reasons, sig.Reasons...)
		acc.recs = append(acc.recs, sig.Recommendations...)
	}
}

// aggregates materializes the ranked per-archetype view: weighted averages,
// voted levels, deduplicated text, sorted by (score desc, canonical order).
func (s accumSet) aggregates() []ArchetypeAggregate {
	out := make([]ArchetypeAggregate, 0, len(Archetypes))
	for _, a := range Archetypes {
		acc := s[a]
		avg := 0.0
		if acc.weight > 0 {
			avg = round2(acc.weightedSum / acc.weight)
		}
		out = append(out, ArchetypeAggregate{
			Archetype:       a,
			Score:           avg,
			Level:           winningLevel(acc.votes),
			Reasons:         dedupe(acc.reasons),
			Recommendations: dedupe(acc.recs),
			Samples:         acc.samples,
			Weight:          round2(acc.weight),
		})
	}
	sortAggregates(out)
	return out
}

func sortAggregates(aggs []ArchetypeAggregate) {
	sort.SliceStable(aggs, func(i, j int) bool {
		return aggregateLess(aggs[i], aggs[j])
	})
}

// aggregateLess orders by score descending, canonical archetype order as the
// tie-break.
func aggregateLess(a, b ArchetypeAggregate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Archetype.rank() < b.Archetype.rank()
}

// scoreOf finds one archetype's aggregate in a ranked list.
func scoreOf(aggs []ArchetypeAggregate, a Archetype) float64 {
	for _, agg := range aggs {
		if agg.Archetype == a {
			return agg.Score
		}
	}
	return 0
}

// round2 applies the fixed-point-like rounding used for human-readable
// reporting.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
