package gate

import "time"

// #region phase

// Phase enumerates the gate's states.
type Phase string

const (
	// PhaseIdle: no recent emission, not in cooldown.
	PhaseIdle Phase = "idle"
	// PhaseArmed: the signal crossed the high threshold once but is not yet
	// confirmed by hysteresis.
	PhaseArmed Phase = "armed"
	// PhaseCooldown: an emission just occurred; further emissions are
	// suppressed for the configured budget.
	PhaseCooldown Phase = "cooldown"
)

// #endregion phase

// #region config

// Config holds the gate thresholds. Tunable per deployment profile.
type Config struct {
	ResonanceMin    float64 // emit only when resonance is at least this
	NormLogitMax    float64 // ... and normalized base score is at most this
	EntropyGate     bool    // enable the entropy/strain condition
	EntropyMin      float64 // minimum entropy when EntropyGate is set
	HysteresisDelta float64 // ARMED falls back to IDLE below ResonanceMin - delta
	CooldownSteps   int     // step-count budget; authoritative when > 0
	CooldownSeconds float64 // wall-clock budget against the step timestamp
	ToleranceGain   float64 // threshold shift per unit of symbolic tolerance
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		ResonanceMin:    0.70,
		NormLogitMax:    0.30,
		EntropyGate:     true,
		EntropyMin:      1.5,
		HysteresisDelta: 0.05,
		CooldownSteps:   0,
		CooldownSeconds: 1.0,
		ToleranceGain:   0.05,
	}
}

// #endregion config

// #region state

// entropyWindowCap bounds the retained entropy history.
const entropyWindowCap = 8

// State is the per-session gate state. It is an explicit value passed into
// and returned from every evaluation, never process-wide, and is owned
// exclusively by the gate. Reset at session boundaries with NewState.
type State struct {
	Phase         Phase     `json:"phase"`
	LastEmitStep  int64     `json:"last_emit_step"` // -1 when no emission yet
	LastEmitAt    time.Time `json:"last_emit_at"`
	AboveBand     bool      `json:"above_band"` // hysteresis band membership
	EntropyWindow []float64 `json:"entropy_window"`
}

// NewState returns the initial gate state for a fresh session.
func NewState() State {
	return State{
		Phase:        PhaseIdle,
		LastEmitStep: -1,
	}
}

// #endregion state

// #region step-input

// StepInput bundles the per-step signals the gate evaluates.
type StepInput struct {
	StepIndex    int64
	Timestamp    time.Time
	Resonance    float64 // top candidate's blended resonance score
	NormBase     float64 // top candidate's normalized base score
	Entropy      float64 // entropy/strain at this step
	HasCandidate bool    // a non-default candidate exists this step
}

// #endregion step-input

// #region decision

// Action is the gate's output for one step.
type Action string

const (
	ActionEmitCandidate Action = "emit_candidate"
	ActionEmitDefault   Action = "emit_default"
)

// Decision is the outcome of one gate evaluation.
type Decision struct {
	Action    Action
	Reason    string
	Qualified bool // the core condition held this step
}

// #endregion decision
