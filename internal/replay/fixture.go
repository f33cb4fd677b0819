package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirenlabs/siren/go-pipeline/internal/gate"
	"github.com/sirenlabs/siren/go-pipeline/internal/resonance"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Steps           []FixtureStep           `json:"steps"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureStep mirrors replay.Step with JSON tags. Timestamps are unix
// seconds so fixtures stay readable and replay is clock-independent.
type FixtureStep struct {
	StepIndex     int64   `json:"step_index"`
	TimestampUnix int64   `json:"timestamp_unix"`
	Resonance     float64 `json:"resonance"`
	NormBase      float64 `json:"norm_base"`
	Entropy       float64 `json:"entropy"`
	HasCandidate  bool    `json:"has_candidate"`
	Token         string  `json:"token"`
	Vocab         string  `json:"vocab"`
}

// FixtureExpectedResult captures the expected gate action per step.
type FixtureExpectedResult struct {
	StepIndex int64  `json:"step_index"`
	Action    string `json:"action"`
}

// FixtureConfig bundles the gate and alpha configs for a replay run.
type FixtureConfig struct {
	GateConfig  FixtureGateConfig  `json:"gate_config"`
	AlphaConfig FixtureAlphaConfig `json:"alpha_config"`
}

// FixtureGateConfig mirrors gate.Config with JSON tags.
type FixtureGateConfig struct {
	ResonanceMin    float64 `json:"resonance_min"`
	NormLogitMax    float64 `json:"norm_logit_max"`
	EntropyGate     bool    `json:"entropy_gate"`
	EntropyMin      float64 `json:"entropy_min"`
	HysteresisDelta float64 `json:"hysteresis_delta"`
	CooldownSteps   int     `json:"cooldown_steps"`
	CooldownSeconds float64 `json:"cooldown_seconds"`
	ToleranceGain   float64 `json:"tolerance_gain"`
}

// FixtureAlphaConfig mirrors resonance.AlphaConfig with JSON tags.
type FixtureAlphaConfig struct {
	Enabled  bool    `json:"enabled"`
	Base     float64 `json:"base"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mapping  string  `json:"mapping"`
	Pivot    float64 `json:"pivot"`
	Slope    float64 `json:"slope"`
	MaxShift float64 `json:"max_shift"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToStep converts a FixtureStep to a domain Step.
func (fs *FixtureStep) ToStep() Step {
	return Step{
		Input: gate.StepInput{
			StepIndex:    fs.StepIndex,
			Timestamp:    time.Unix(fs.TimestampUnix, 0).UTC(),
			Resonance:    fs.Resonance,
			NormBase:     fs.NormBase,
			Entropy:      fs.Entropy,
			HasCandidate: fs.HasCandidate,
		},
		Token: fs.Token,
		Vocab: fs.Vocab,
	}
}

// ToReplayConfig converts a FixtureConfig to a domain ReplayConfig.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	return ReplayConfig{
		GateConfig: gate.Config{
			ResonanceMin:    fc.GateConfig.ResonanceMin,
			NormLogitMax:    fc.GateConfig.NormLogitMax,
			EntropyGate:     fc.GateConfig.EntropyGate,
			EntropyMin:      fc.GateConfig.EntropyMin,
			HysteresisDelta: fc.GateConfig.HysteresisDelta,
			CooldownSteps:   fc.GateConfig.CooldownSteps,
			CooldownSeconds: fc.GateConfig.CooldownSeconds,
			ToleranceGain:   fc.GateConfig.ToleranceGain,
		},
		AlphaConfig: resonance.AlphaConfig{
			Enabled:  fc.AlphaConfig.Enabled,
			Base:     fc.AlphaConfig.Base,
			Min:      fc.AlphaConfig.Min,
			Max:      fc.AlphaConfig.Max,
			Mapping:  resonance.AlphaMapping(fc.AlphaConfig.Mapping),
			Pivot:    fc.AlphaConfig.Pivot,
			Slope:    fc.AlphaConfig.Slope,
			MaxShift: fc.AlphaConfig.MaxShift,
		},
	}
}

// #endregion fixture-loader
