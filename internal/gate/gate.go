package gate

import "fmt"

// #region gate

// Gate decides, per decoding step, whether this is an acceptable moment to
// release a non-default-vocabulary token. It trades responsiveness for
// stability: hysteresis means a single spike never emits, and the cooldown
// keeps emissions from clustering.
type Gate struct {
	config Config
}

// NewGate creates a gate with the given configuration.
func NewGate(config Config) *Gate {
	return &Gate{config: config}
}

// Config returns the gate's active configuration.
func (g *Gate) Config() Config {
	return g.config
}

// #endregion gate

// #region evaluate

// Evaluate advances the state machine by one step and returns the new state
// with the decision. The emitting transition is the only path to
// ActionEmitCandidate; every other path emits the decoder's native best.
//
//	IDLE     --qualified--------------------> ARMED  (no emission yet)
//	ARMED    --qualified again--------------> emit + COOLDOWN
//	ARMED    --below ResonanceMin-delta-----> IDLE   (treated as noise)
//	COOLDOWN --budget elapsed---------------> IDLE   (re-evaluated same step)
func (g *Gate) Evaluate(st State, in StepInput) (State, Decision) {
	next := st
	next.EntropyWindow = appendEntropy(st.EntropyWindow, in.Entropy)
	qualified := g.coreCondition(in)

	if next.Phase == PhaseCooldown {
		if !g.cooldownElapsed(next, in) {
			next.AboveBand = false
			return next, Decision{
				Action:    ActionEmitDefault,
				Reason:    "cooldown active",
				Qualified: qualified,
			}
		}
		next.Phase = PhaseIdle
	}

	switch next.Phase {
	case PhaseIdle:
		if qualified {
			next.Phase = PhaseArmed
			next.AboveBand = true
			return next, Decision{
				Action:    ActionEmitDefault,
				Reason:    "armed: awaiting hysteresis confirmation",
				Qualified: true,
			}
		}
		next.AboveBand = false
		return next, Decision{
			Action: ActionEmitDefault,
			Reason: g.disqualifyReason(in),
		}

	case PhaseArmed:
		if qualified {
			next.Phase = PhaseCooldown
			next.LastEmitStep = in.StepIndex
			next.LastEmitAt = in.Timestamp
			next.AboveBand = true
			return next, Decision{
				Action:    ActionEmitCandidate,
				Reason:    fmt.Sprintf("sustained signal: resonance=%.4f norm_base=%.4f entropy=%.4f", in.Resonance, in.NormBase, in.Entropy),
				Qualified: true,
			}
		}
		if in.Resonance < g.config.ResonanceMin-g.config.HysteresisDelta || !in.HasCandidate {
			next.Phase = PhaseIdle
			next.AboveBand = false
			return next, Decision{
				Action: ActionEmitDefault,
				Reason: "signal dropped below hysteresis band: treated as noise",
			}
		}
		// Inside the band: stay armed without emitting.
		next.AboveBand = true
		return next, Decision{
			Action: ActionEmitDefault,
			Reason: "holding within hysteresis band",
		}
	}

	// Unreachable with a valid phase; fail safe to the default token.
	next.Phase = PhaseIdle
	next.AboveBand = false
	return next, Decision{Action: ActionEmitDefault, Reason: "invalid phase reset"}
}

// #endregion evaluate

// #region conditions

// coreCondition is the base qualifying check, without hysteresis.
func (g *Gate) coreCondition(in StepInput) bool {
	if !in.HasCandidate {
		return false
	}
	if in.Resonance < g.config.ResonanceMin {
		return false
	}
	if in.NormBase > g.config.NormLogitMax {
		return false
	}
	if g.config.EntropyGate && in.Entropy < g.config.EntropyMin {
		return false
	}
	return true
}

// disqualifyReason names the first failing condition, for the audit trail.
func (g *Gate) disqualifyReason(in StepInput) string {
	switch {
	case !in.HasCandidate:
		return "no non-default candidate"
	case in.Resonance < g.config.ResonanceMin:
		return fmt.Sprintf("resonance %.4f below %.4f", in.Resonance, g.config.ResonanceMin)
	case in.NormBase > g.config.NormLogitMax:
		return fmt.Sprintf("norm base %.4f above %.4f", in.NormBase, g.config.NormLogitMax)
	case g.config.EntropyGate && in.Entropy < g.config.EntropyMin:
		return fmt.Sprintf("entropy %.4f below %.4f", in.Entropy, g.config.EntropyMin)
	default:
		return "not qualified"
	}
}

// cooldownElapsed checks the refractory budget. A step-count budget is
// authoritative when configured; otherwise wall clock measured against the
// step timestamp, which keeps replay deterministic.
func (g *Gate) cooldownElapsed(st State, in StepInput) bool {
	if st.LastEmitStep < 0 {
		return true
	}
	if g.config.CooldownSteps > 0 {
		return in.StepIndex-st.LastEmitStep >= int64(g.config.CooldownSteps)
	}
	return in.Timestamp.Sub(st.LastEmitAt).Seconds() >= g.config.CooldownSeconds
}

// #endregion conditions

// #region tolerance

// ApplyTolerance returns a config adjusted by the per-user symbolic
// tolerance in [-1,1]: positive tolerance (repeated non-complaint emissions)
// lowers ResonanceMin, negative (suppression events) raises it. The
// adaptation reads from resonance memory but is applied here; policy lives
// in the gate, not in the store.
func ApplyTolerance(cfg Config, tolerance float64) Config {
	if tolerance > 1 {
		tolerance = 1
	} else if tolerance < -1 {
		tolerance = -1
	}
	out := cfg
	out.ResonanceMin = cfg.ResonanceMin - cfg.ToleranceGain*tolerance
	if out.ResonanceMin < 0 {
		out.ResonanceMin = 0
	} else if out.ResonanceMin > 1 {
		out.ResonanceMin = 1
	}
	return out
}

// #endregion tolerance

// #region helpers

// appendEntropy pushes a value into a bounded copy of the window, preserving
// the value semantics of State.
func appendEntropy(window []float64, v float64) []float64 {
	out := make([]float64, 0, entropyWindowCap)
	start := 0
	if len(window) >= entropyWindowCap {
		start = len(window) - entropyWindowCap + 1
	}
	out = append(out, window[start:]...)
	out = append(out, v)
	return out
}

// #endregion helpers
