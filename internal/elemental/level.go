package elemental

// Level buckets a numeric score into three qualitative tiers. The vocabulary
// depends on the archetype family: volatile archetypes use
// critical/elevated/stable, restorative ones use peak/building/nascent, and
// darkness switches to surging/stabilising/recovering inside the ledger where
// it carries recovery semantics.
type Level string

const (
	LevelCritical Level = "critical"
	LevelElevated Level = "elevated"
	LevelStable   Level = "stable"

	LevelPeak     Level = "peak"
	LevelBuilding Level = "building"
	LevelNascent  Level = "nascent"

	LevelSurging     Level = "surging"
	LevelStabilising Level = "stabilising"
	LevelRecovering  Level = "recovering"
)

const (
	levelHighAt = 7.0
	levelMidAt  = 4.0
)

// levelPriority is the fixed tie-break table for weighted level votes.
// Same-tier labels from different vocabularies share a priority.
var levelPriority = map[Level]int{
	LevelCritical:    6,
	LevelPeak:        6,
	LevelSurging:     6,
	LevelElevated:    5,
	LevelStabilising: 5,
	LevelBuilding:    4,
	LevelStable:      3,
	LevelRecovering:  3,
	LevelNascent:     2,
}

// LevelFor maps a score to the scoring-time vocabulary: restorative
// thresholds for earth and light, volatile thresholds for everything else
// including darkness.
func LevelFor(a Archetype, score float64) Level {
	if a.Restorative() {
		switch {
		case score >= levelHighAt:
			return LevelPeak
		case score >= levelMidAt:
			return LevelBuilding
		default:
			return LevelNascent
		}
	}
	switch {
	case score >= levelHighAt:
		return LevelCritical
	case score >= levelMidAt:
		return LevelElevated
	default:
		return LevelStable
	}
}

// ledgerLevelFor maps a score to the ledger vocabulary. It matches LevelFor
// except for darkness, which speaks the recovery vocabulary here. The two
// mappings intentionally diverge per call site; do not unify them.
func ledgerLevelFor(a Archetype, score float64) Level {
	if a == Darkness {
		switch {
		case score >= levelHighAt:
			return LevelSurging
		case score >= levelMidAt:
			return LevelStabilising
		default:
			return LevelRecovering
		}
	}
	return LevelFor(a, score)
}

// levelVote accumulates a weighted ballot for one level.
type levelVote struct {
	weight float64
	count  int
}

// winningLevel picks the level with the highest total weight; ties fall back
// to the priority table, then vote count, then the label itself so the result
// is fully deterministic.
func winningLevel(votes map[Level]levelVote) Level {
	var (
		best    Level
		bestV   levelVote
		haveAny bool
	)
	for lvl, v := range votes {
		if !haveAny {
			best, bestV, haveAny = lvl, v, true
			continue
		}
		switch {
		case v.weight > bestV.weight:
			best, bestV = lvl, v
		case v.weight == bestV.weight:
			bp, cp := levelPriority[best], levelPriority[lvl]
			if cp > bp ||
				(cp == bp && v.count > bestV.count) ||
				(cp == bp && v.count == bestV.count && lvl < best) {
				best, bestV = lvl, v
			}
		}
	}
	return best
}
