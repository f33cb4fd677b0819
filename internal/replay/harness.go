package replay

import (
	"github.com/sirenlabs/siren/go-pipeline/internal/gate"
	"github.com/sirenlabs/siren/go-pipeline/internal/memory"
	"github.com/sirenlabs/siren/go-pipeline/internal/resonance"
)

// #region types

// Step is a single recorded gate evaluation for replay.
type Step struct {
	Input gate.StepInput
	Token string
	Vocab string
}

// ReplayConfig bundles the gate and alpha configs for a replay run.
type ReplayConfig struct {
	GateConfig  gate.Config
	AlphaConfig resonance.AlphaConfig
}

// DefaultReplayConfig returns the reference gate and alpha profile.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		GateConfig:  gate.DefaultConfig(),
		AlphaConfig: resonance.DefaultAlphaConfig(),
	}
}

// ReplayResult captures the gate outcome of replaying one step.
type ReplayResult struct {
	StepIndex int64
	Action    string // "emit_candidate" | "suppressed_candidate" | "emit_default"
	Reason    string
	Token     string
	Vocab     string
	Resonance float64
	Alpha     float64
	GateState gate.State
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSteps int
	Emitted    int
	Suppressed int
	Defaults   int
	FinalState gate.State
}

// #endregion types

// #region replay

// Replay runs the kairos gate over recorded steps, entirely in-memory and
// clock-independent: cooldown timing comes from the recorded timestamps.
// With identical inputs and config the result sequence is deterministic.
func Replay(steps []Step, config ReplayConfig) []ReplayResult {
	g := gate.NewGate(config.GateConfig)
	st := gate.NewState()
	results := make([]ReplayResult, 0, len(steps))

	for _, step := range steps {
		var decision gate.Decision
		st, decision = g.Evaluate(st, step.Input)

		r := ReplayResult{
			StepIndex: step.Input.StepIndex,
			Reason:    decision.Reason,
			Resonance: step.Input.Resonance,
			Alpha:     resonance.KairosAlpha(config.AlphaConfig, step.Input.Entropy),
			GateState: st,
		}
		switch {
		case decision.Action == gate.ActionEmitCandidate:
			r.Action = memory.ActionEmitCandidate
			r.Token = step.Token
			r.Vocab = step.Vocab
		case step.Input.HasCandidate && decision.Qualified:
			r.Action = memory.ActionSuppressedCandidate
		default:
			r.Action = memory.ActionEmitDefault
		}
		results = append(results, r)
	}

	return results
}

// FromRecords reconstructs replay steps from stored emission records. The
// gate inputs come from the persisted per-step fields, so transitions replay
// exactly even for compacted records; the candidate snapshot only supplies
// the token and vocab shown for emitting steps.
func FromRecords(records []memory.EmissionRecord) []Step {
	steps := make([]Step, 0, len(records))
	for _, rec := range records {
		s := Step{
			Input: gate.StepInput{
				StepIndex:    rec.StepIndex,
				Timestamp:    rec.CreatedAt,
				Entropy:      rec.Entropy,
				HasCandidate: rec.HasCandidate,
				NormBase:     rec.NormBase,
			},
		}
		if rec.HasCandidate {
			s.Input.Resonance = rec.Resonance
		}
		if len(rec.TopK) > 0 {
			top := rec.TopK[0]
			s.Token = top.Token
			s.Vocab = top.Vocab
		}
		steps = append(steps, s)
	}
	return steps
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalSteps: len(results)}
	for _, r := range results {
		switch r.Action {
		case memory.ActionEmitCandidate:
			s.Emitted++
		case memory.ActionSuppressedCandidate:
			s.Suppressed++
		default:
			s.Defaults++
		}
	}
	if len(results) > 0 {
		s.FinalState = results[len(results)-1].GateState
	}
	return s
}

// #endregion replay
