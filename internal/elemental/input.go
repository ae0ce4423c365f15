package elemental

import (
	"fmt"
	"time"
)

// Input is the tagged union accepted at the aggregator boundary: either raw
// telemetry (scored on demand) or an already-scored profile. It replaces
// runtime type inspection with one explicit resolution step.
type Input struct {
	telemetry *Telemetry
	profile   *Profile
}

// TelemetryInput wraps raw telemetry; it is scored when the input resolves.
func TelemetryInput(t Telemetry) Input {
	return Input{telemetry: &t}
}

// ProfileInput wraps an already-scored profile.
func ProfileInput(p Profile) Input {
	return Input{profile: &p}
}

// resolve turns the union into a Profile exactly once.
func (in Input) resolve() (Profile, error) {
	switch {
	case in.profile != nil:
		if in.profile.Len() == 0 {
			return Profile{}, fmt.Errorf("%w: empty profile", ErrInvalidInput)
		}
		return *in.profile, nil
	case in.telemetry != nil:
		return Score(*in.telemetry), nil
	default:
		return Profile{}, fmt.Errorf("%w: input carries neither telemetry nor profile", ErrInvalidInput)
	}
}

// normalizeTime coerces timestamps entering the core to UTC. The zero time
// defaults to now; anything else keeps its instant and drops the location.
func normalizeTime(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at.UTC()
}
