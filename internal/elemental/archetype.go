package elemental

import "fmt"

// Archetype is one of the seven fixed behavioral/regime categories.
type Archetype string

const (
	Fire      Archetype = "fire"
	Water     Archetype = "water"
	Wind      Archetype = "wind"
	Earth     Archetype = "earth"
	Lightning Archetype = "lightning"
	Light     Archetype = "light"
	Darkness  Archetype = "darkness"
)

// Archetypes lists all seven archetypes in canonical declaration order.
// The order is significant: it is the deterministic tie-break key whenever
// scores are equal, so every component ranks with this table instead of
// relying on map iteration order.
var Archetypes = [7]Archetype{Fire, Water, Wind, Earth, Lightning, Light, Darkness}

var archetypeRank = map[Archetype]int{
	Fire:      0,
	Water:     1,
	Wind:      2,
	Earth:     3,
	Lightning: 4,
	Light:     5,
	Darkness:  6,
}

// IsValid reports whether a is one of the seven archetypes.
func (a Archetype) IsValid() bool {
	_, ok := archetypeRank[a]
	return ok
}

// Restorative reports whether a belongs to the restorative family
// (earth, light). All others, including darkness, score on the volatile
// thresholds.
func (a Archetype) Restorative() bool {
	return a == Earth || a == Light
}

// rank returns the canonical position of a, used as the sorting tie-break.
func (a Archetype) rank() int {
	if r, ok := archetypeRank[a]; ok {
		return r
	}
	return len(Archetypes)
}

// ParseArchetype converts raw user/wire input to an Archetype.
func ParseArchetype(s string) (Archetype, error) {
	a := Archetype(s)
	if !a.IsValid() {
		return "", fmt.Errorf("%w: unknown archetype %q", ErrInvalidInput, s)
	}
	return a, nil
}
