package elemental

import "fmt"

// maxScore caps every archetype score regardless of how many rules fire.
const maxScore = 10.0

// Score evaluates the fixed rule tables against t and returns the ranked
// seven-signal profile. It is pure and deterministic: same telemetry in, same
// profile out. Rules only ever add score; missing telemetry fields fail their
// guards silently.
func Score(t Telemetry) Profile {
	signals := make([]Signal, 0, len(Archetypes))
	for _, a := range Archetypes {
		h := scoreArchetype(a, t)
		signals = append(signals, Signal{
			Archetype:       a,
			Score:           clampScore(h.score),
			Level:           LevelFor(a, clampScore(h.score)),
			Reasons:         h.reasons,
			Recommendations: h.recs,
		})
	}
	p, err := NewProfile(signals)
	if err != nil {
		// unreachable: the loop above emits one signal per archetype
		panic(err)
	}
	return p
}

// hits accumulates the additive score and the reason/recommendation pair of
// each rule that fired.
type hits struct {
	score   float64
	reasons []string
	recs    []string
}

func (h *hits) add(points float64, reason, rec string) {
	if points <= 0 {
		return
	}
	h.score += points
	h.reasons = append(h.reasons, reason)
	h.recs = append(h.recs, rec)
}

func scoreArchetype(a Archetype, t Telemetry) hits {
	switch a {
	case Fire:
		return scoreFire(t)
	case Water:
		return scoreWater(t)
	case Wind:
		return scoreWind(t)
	case Earth:
		return scoreEarth(t)
	case Lightning:
		return scoreLightning(t)
	case Light:
		return scoreLight(t)
	case Darkness:
		return scoreDarkness(t)
	}
	return hits{}
}

// scoreFire flags overheated risk-taking: hot momentum, overtrading against
// plan, deep drawdown, bleeding balance, loss streaks.
func scoreFire(t Telemetry) hits {
	var h hits
	if m := t.MomentumIndicator; m != nil {
		switch {
		case *m >= 80:
			h.add(2.5,
				fmt.Sprintf("momentum indicator running hot at %.0f", *m),
				"halve position size until momentum cools below 70")
		case *m >= 70:
			h.add(1.5,
				fmt.Sprintf("momentum indicator elevated at %.0f", *m),
				"tighten entries while momentum stays above 70")
		}
	}
	if t.PlannedActions != nil && t.ExecutedActions != nil && *t.PlannedActions > 0 {
		ratio := float64(*t.ExecutedActions) / float64(*t.PlannedActions)
		if ratio > 1.5 {
			h.add(capAt(2.5, (ratio-1.5)*2.0),
				fmt.Sprintf("executed %d actions against %d planned", *t.ExecutedActions, *t.PlannedActions),
				"stop taking unplanned entries for the rest of the session")
		}
	}
	if dd := t.DrawdownPct; dd != nil && *dd >= 5 {
		h.add(1.0+capAt(2.0, (*dd-5.0)*0.2),
			fmt.Sprintf("drawdown at %.1f%% of equity", *dd),
			"cut risk per trade until the drawdown recovers")
	}
	if d := t.BalanceDeltaPct; d != nil && *d < 0 {
		h.add(capAt(2.0, -*d*0.4),
			fmt.Sprintf("balance down %.1f%% on the period", -*d),
			"pause and review losing positions before adding risk")
	}
	if l := t.ConsecutiveLosses; l != nil && *l >= 3 {
		h.add(1.0,
			fmt.Sprintf("%d consecutive losses", *l),
			"step away from the screen after three straight losses")
	}
	return h
}

// scoreWater flags emotional volatility: stress, mood swings, tilted focus
// after losses, euphoria during win streaks.
func scoreWater(t Telemetry) hits {
	var h hits
	if s := t.StressIndex; s != nil && *s > 0.6 {
		h.add(*s*3.0,
			fmt.Sprintf("stress index at %.2f", *s),
			"take a structured break before the next decision")
	}
	if v := t.EmotionalVolatility; v != nil && *v > 0.5 {
		h.add(*v*3.5,
			fmt.Sprintf("emotional volatility at %.2f", *v),
			"reduce exposure until mood settles")
	}
	if t.ConsecutiveLosses != nil && *t.ConsecutiveLosses > 0 &&
		t.FocusIndex != nil && *t.FocusIndex < 0.5 {
		h.add(1.0,
			"recent losses with degraded focus",
			"re-run the pre-trade checklist before every entry")
	}
	if t.ConsecutiveWins != nil && *t.ConsecutiveWins > 2 &&
		t.EmotionalVolatility != nil && *t.EmotionalVolatility > 0.4 {
		h.add(0.8,
			"win streak riding on a volatile mood",
			"bank profits mentally; do not raise size on euphoria")
	}
	return h
}

// scoreWind flags drift and indecision: choppy external tape, weak
// conviction, plans that never convert into executions.
func scoreWind(t Telemetry) hits {
	var h hits
	if v := t.ExternalVolatility; v != nil && *v > 0.6 {
		h.add(*v*2.5,
			fmt.Sprintf("external volatility at %.2f", *v),
			"wait for the tape to settle before committing")
	}
	if c := t.ConvictionIndex; c != nil && *c < 0.4 {
		h.add((0.4-*c)*5.0,
			fmt.Sprintf("conviction index low at %.2f", *c),
			"trade only A-grade setups until conviction returns")
	}
	if t.ExecutedActions != nil && *t.ExecutedActions == 0 &&
		t.PlannedActions != nil && *t.PlannedActions > 0 &&
		t.FocusIndex != nil && *t.FocusIndex < 0.5 {
		h.add(0.8,
			"planned actions never executed while focus was low",
			"commit to the first planned setup or close the book")
	}
	return h
}

// scoreEarth rewards discipline and grounding (restorative family): process
// adherence, journaling, controlled equity curve, sustained focus.
func scoreEarth(t Telemetry) hits {
	var h hits
	if d := t.DisciplineIndex; d != nil && *d >= 0.6 {
		h.add(*d*4.0,
			fmt.Sprintf("discipline index at %.2f", *d),
			"keep the current routine; it is working")
	}
	if j := t.JournalingRate; j != nil && *j >= 0.7 {
		h.add(*j*3.0,
			fmt.Sprintf("journaling rate at %.2f", *j),
			"carry the journal habit into the review session")
	}
	if t.BalanceDeltaPct != nil && *t.BalanceDeltaPct > 0 &&
		t.DrawdownPct != nil && *t.DrawdownPct < 5 {
		h.add(1.0,
			"positive balance with drawdown contained",
			"maintain current position sizing")
	}
	if f := t.FocusIndex; f != nil && *f >= 0.6 {
		h.add(*f*2.0,
			fmt.Sprintf("focus index at %.2f", *f),
			"protect the environment that keeps focus this high")
	}
	return h
}

// scoreLightning flags shock and impulse: news jolts, violent external tape,
// impulsive overexecution under a volatile mood.
func scoreLightning(t Telemetry) hits {
	var h hits
	if ns := t.NewsShock; ns != nil && *ns {
		h.add(2.0,
			"news shock in effect",
			"stand aside until the headline impact is priced")
	}
	if v := t.ExternalVolatility; v != nil && *v > 0.7 {
		h.add(*v*3.0,
			fmt.Sprintf("external volatility spiking at %.2f", *v),
			"widen stops or stay flat through the spike")
	}
	if t.ExecutedActions != nil && t.PlannedActions != nil &&
		*t.ExecutedActions > *t.PlannedActions &&
		t.EmotionalVolatility != nil && *t.EmotionalVolatility > 0.5 {
		h.add(1.0,
			"impulsive executions beyond plan under a volatile mood",
			"re-commit to the written plan before the next order")
	}
	return h
}

// scoreLight rewards clarity and confidence (restorative family): clean
// gains with discipline, composed win streaks, conviction, rested focus.
func scoreLight(t Telemetry) hits {
	var h hits
	if t.BalanceDeltaPct != nil && *t.BalanceDeltaPct > 1.0 &&
		t.DisciplineIndex != nil && *t.DisciplineIndex > 0.6 {
		h.add(2.5,
			"balance growing on disciplined execution",
			"document what is working while it is fresh")
	}
	if t.ConsecutiveWins != nil && *t.ConsecutiveWins >= 3 &&
		t.EmotionalVolatility != nil && *t.EmotionalVolatility < 0.4 {
		h.add(1.5,
			"composed win streak",
			"keep size steady; let the edge compound")
	}
	if c := t.ConvictionIndex; c != nil && *c >= 0.6 {
		h.add(*c*3.0,
			fmt.Sprintf("conviction index at %.2f", *c),
			"act decisively on the prepared setups")
	}
	if t.FocusIndex != nil && *t.FocusIndex >= 0.7 &&
		t.FatigueIndex != nil && *t.FatigueIndex < 0.4 {
		h.add(1.0,
			"sharp focus on a rested mind",
			"schedule the hardest decisions for this window")
	}
	return h
}

// scoreDarkness flags fatigue and burnout: exhaustion, collapsed discipline,
// grinding losses, compounding stress.
func scoreDarkness(t Telemetry) hits {
	var h hits
	if f := t.FatigueIndex; f != nil && *f > 0.6 {
		h.add(*f*3.0,
			fmt.Sprintf("fatigue index at %.2f", *f),
			"end the session early and recover")
	}
	if d := t.DisciplineIndex; d != nil && *d < 0.3 {
		h.add((0.3-*d)*5.0,
			fmt.Sprintf("discipline collapsed to %.2f", *d),
			"return to a minimal one-setup routine")
	}
	if d := t.BalanceDeltaPct; d != nil && *d < -2.0 {
		h.add(capAt(2.5, (-*d-2.0)*0.5),
			fmt.Sprintf("balance bleeding %.1f%% on the period", -*d),
			"reduce to observation-only until losses stop compounding")
	}
	if t.StressIndex != nil && *t.StressIndex > 0.7 &&
		t.EmotionalVolatility != nil && *t.EmotionalVolatility > 0.5 {
		h.add(1.0,
			"high stress compounding a volatile mood",
			"take at least one full day away from the market")
	}
	return h
}

func capAt(limit, v float64) float64 {
	if v > limit {
		return limit
	}
	if v < 0 {
		return 0
	}
	return v
}
