package elemental

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// WeightedSample wraps one contributor's view of a subject: a profile (or
// telemetry resolved on demand), a non-negative weight, a timestamp, and an
// optional source label.
type WeightedSample struct {
	Subject   string    `json:"subject"`
	Input     Input     `json:"-"`
	Weight    float64   `json:"weight"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
}

// ConsensusSnapshot merges a cohort of weighted samples for one subject into
// a ranked per-archetype view with confidence metrics.
type ConsensusSnapshot struct {
	Subject        string               `json:"subject"`
	Entries        []ArchetypeAggregate `json:"entries"`
	Dominant       ArchetypeAggregate   `json:"dominant"`
	ConsensusRatio float64              `json:"consensus_ratio"`
	ConfidenceGap  float64              `json:"confidence_gap"`
	Cohort         int                  `json:"cohort"`
	CreatedAt      time.Time            `json:"created_at"`
}

// RunConsensus groups samples by subject and merges each group into one
// snapshot. Results are sorted by dominant score descending, then confidence
// gap descending, then subject key ascending. Weights at or below zero fall
// back to 1.0 per sample when the whole cohort carries no positive weight,
// and are floored at zero otherwise.
func RunConsensus(samples []WeightedSample) ([]ConsensusSnapshot, error) {
	groups := make(map[string][]WeightedSample)
	order := make([]string, 0)
	for i, s := range samples {
		if s.Subject == "" {
			return nil, fmt.Errorf("%w: sample %d has no subject key", ErrInvalidInput, i)
		}
		if math.IsNaN(s.Weight) || math.IsInf(s.Weight, 0) {
			return nil, fmt.Errorf("%w: sample %d weight must be finite", ErrInvalidInput, i)
		}
		if _, ok := groups[s.Subject]; !ok {
			order = append(order, s.Subject)
		}
		groups[s.Subject] = append(groups[s.Subject], s)
	}

	out := make([]ConsensusSnapshot, 0, len(groups))
	for _, subject := range order {
		snap, err := mergeCohort(subject, groups[subject])
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Dominant.Score != b.Dominant.Score {
			return a.Dominant.Score > b.Dominant.Score
		}
		if a.ConfidenceGap != b.ConfidenceGap {
			return a.ConfidenceGap > b.ConfidenceGap
		}
		return a.Subject < b.Subject
	})
	return out, nil
}

func mergeCohort(subject string, cohort []WeightedSample) (ConsensusSnapshot, error) {
	allNonPositive := true
	for _, s := range cohort {
		if s.Weight > 0 {
			allNonPositive = false
			break
		}
	}

	set := newAccumSet()
	for _, s := range cohort {
		profile, err := s.Input.resolve()
		if err != nil {
			return ConsensusSnapshot{}, fmt.Errorf("subject %q: %w", subject, err)
		}
		w := s.Weight
		if allNonPositive {
			w = 1.0
		} else if w < 0 {
			w = 0
		}
		set.add(profile, w)
	}
	entries := set.aggregates()

	dominant := entries[0]
	total := 0.0
	for _, e := range entries {
		if e.Score > 0 {
			total += e.Score
		}
	}
	ratio := 0.0
	if total > 0 {
		ratio = dominant.Score / total
	}

	return ConsensusSnapshot{
		Subject:        subject,
		Entries:        entries,
		Dominant:       dominant,
		ConsensusRatio: round2(ratio),
		ConfidenceGap:  round2(dominant.Score - entries[1].Score),
		Cohort:         len(cohort),
		CreatedAt:      time.Now().UTC(),
	}, nil
}
