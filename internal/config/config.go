package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sirenlabs/siren/go-pipeline/internal/candidate"
	"github.com/sirenlabs/siren/go-pipeline/internal/gate"
	"github.com/sirenlabs/siren/go-pipeline/internal/intent"
	"github.com/sirenlabs/siren/go-pipeline/internal/pipeline"
	"github.com/sirenlabs/siren/go-pipeline/internal/resonance"
	"github.com/sirenlabs/siren/go-pipeline/internal/tolerance"
)

// #region config

// Config is the full deployment profile. Every threshold the pipeline
// recognizes is settable here; defaults are reference points, not
// requirements.
type Config struct {
	Scoring    ScoringConfig    `yaml:"scoring"`
	Gate       GateConfig       `yaml:"gate"`
	Candidates CandidatesConfig `yaml:"candidates"`
	Intent     IntentConfig     `yaml:"intent"`
	Memory     MemoryConfig     `yaml:"memory"`
	Tolerance  ToleranceConfig  `yaml:"tolerance"`
	Decoder    DecoderConfig    `yaml:"decoder"`
	Vocab      VocabConfig      `yaml:"vocab"`
}

// ScoringConfig tunes resonance blending.
type ScoringConfig struct {
	BlendWeight float64     `yaml:"blend_weight"`
	KairosAlpha AlphaConfig `yaml:"kairos_alpha"`
}

// AlphaConfig mirrors resonance.AlphaConfig with YAML tags.
type AlphaConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Min      float64 `yaml:"min"`
	Max      float64 `yaml:"max"`
	Mapping  string  `yaml:"mapping"` // "linear" or "sigmoid"
	Pivot    float64 `yaml:"pivot"`
	Slope    float64 `yaml:"slope"`
	MaxShift float64 `yaml:"max_shift"`
}

// GateConfig mirrors gate.Config with YAML tags.
type GateConfig struct {
	ResonanceMin    float64  `yaml:"resonance_min"`
	NormLogitMax    float64  `yaml:"norm_logit_max"`
	EntropyMin      *float64 `yaml:"entropy_min"` // nil disables entropy gating
	HysteresisDelta float64  `yaml:"hysteresis_delta"`
	CooldownSteps   int      `yaml:"cooldown_steps"`
	CooldownSeconds float64  `yaml:"cooldown_seconds"`
	ToleranceGain   float64  `yaml:"tolerance_gain"`
}

// CandidatesConfig mirrors candidate.GeneratorConfig with YAML tags.
type CandidatesConfig struct {
	MaxSet         int     `yaml:"max_set"`
	AuxTopK        int     `yaml:"aux_top_k"`
	IndexTimeoutMS int     `yaml:"index_timeout_ms"`
	AuxBaseLogit   float64 `yaml:"aux_base_logit"`
}

// IntentConfig selects the intent construction method.
type IntentConfig struct {
	Method string  `yaml:"method"` // mean, sif, suppression_aware
	Window int     `yaml:"window"`
	Stride int     `yaml:"stride"` // rebuild every N steps; <=1 means every step
	SIFA   float64 `yaml:"sif_a"`
	Boost  float64 `yaml:"suppression_boost"`
}

// MemoryConfig configures the resonance memory store.
type MemoryConfig struct {
	Path   string `yaml:"path"`
	Buffer int    `yaml:"buffer"`
}

// ToleranceConfig mirrors tolerance.Config with YAML tags.
type ToleranceConfig struct {
	MinSamples     int64   `yaml:"min_samples"`
	EmitWeight     float64 `yaml:"emit_weight"`
	SuppressWeight float64 `yaml:"suppress_weight"`
	MaxAbs         float64 `yaml:"max_abs"`
}

// DecoderConfig locates the decoder sidecar.
type DecoderConfig struct {
	Addr           string `yaml:"addr"`
	TopK           int    `yaml:"top_k"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// VocabConfig locates the auxiliary vocabulary index.
type VocabConfig struct {
	Path string `yaml:"path"`
}

// #endregion config

// #region defaults

// Default returns the reference profile.
func Default() Config {
	entropyMin := 1.5
	return Config{
		Scoring: ScoringConfig{
			BlendWeight: 0.5,
			KairosAlpha: AlphaConfig{
				Enabled:  true,
				Min:      0.0,
				Max:      1.0,
				Mapping:  string(resonance.AlphaLinear),
				Pivot:    1.5,
				Slope:    0.1,
				MaxShift: 0.25,
			},
		},
		Gate: GateConfig{
			ResonanceMin:    0.70,
			NormLogitMax:    0.30,
			EntropyMin:      &entropyMin,
			HysteresisDelta: 0.05,
			CooldownSteps:   0,
			CooldownSeconds: 1.0,
			ToleranceGain:   0.05,
		},
		Candidates: CandidatesConfig{
			MaxSet:         32,
			AuxTopK:        10,
			IndexTimeoutMS: 200,
			AuxBaseLogit:   -4.0,
		},
		Intent: IntentConfig{
			Method: string(intent.MethodMean),
			Window: 8,
			Stride: 1,
			SIFA:   1e-3,
			Boost:  1.5,
		},
		Memory: MemoryConfig{
			Path:   "siren_memory.db",
			Buffer: 256,
		},
		Tolerance: ToleranceConfig{
			MinSamples:     5,
			EmitWeight:     1.0,
			SuppressWeight: 2.0,
			MaxAbs:         0.5,
		},
		Decoder: DecoderConfig{
			Addr:           "localhost:8741",
			TopK:           8,
			TimeoutSeconds: 30,
		},
		Vocab: VocabConfig{
			Path: "siren_vocab.db",
		},
	}
}

// #endregion defaults

// #region load

// Load reads a YAML profile over the defaults, then applies env overrides
// (SIREN_DB, SIREN_VOCAB_DB, DECODER_ADDR). An empty path loads defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if v := os.Getenv("SIREN_DB"); v != "" {
		cfg.Memory.Path = v
	}
	if v := os.Getenv("SIREN_VOCAB_DB"); v != "" {
		cfg.Vocab.Path = v
	}
	if v := os.Getenv("DECODER_ADDR"); v != "" {
		cfg.Decoder.Addr = v
	}
	return cfg, nil
}

// #endregion load

// #region conversions

// GateConfig converts to the domain gate configuration.
func (c Config) GateConfig() gate.Config {
	g := gate.Config{
		ResonanceMin:    c.Gate.ResonanceMin,
		NormLogitMax:    c.Gate.NormLogitMax,
		HysteresisDelta: c.Gate.HysteresisDelta,
		CooldownSteps:   c.Gate.CooldownSteps,
		CooldownSeconds: c.Gate.CooldownSeconds,
		ToleranceGain:   c.Gate.ToleranceGain,
	}
	if c.Gate.EntropyMin != nil {
		g.EntropyGate = true
		g.EntropyMin = *c.Gate.EntropyMin
	}
	return g
}

// AlphaConfig converts to the domain alpha configuration.
func (c Config) AlphaConfig() resonance.AlphaConfig {
	a := c.Scoring.KairosAlpha
	return resonance.AlphaConfig{
		Enabled:  a.Enabled,
		Base:     c.Scoring.BlendWeight,
		Min:      a.Min,
		Max:      a.Max,
		Mapping:  resonance.AlphaMapping(a.Mapping),
		Pivot:    a.Pivot,
		Slope:    a.Slope,
		MaxShift: a.MaxShift,
	}
}

// GeneratorConfig converts to the domain candidate generator configuration.
func (c Config) GeneratorConfig() candidate.GeneratorConfig {
	return candidate.GeneratorConfig{
		MaxSet:       c.Candidates.MaxSet,
		AuxTopK:      c.Candidates.AuxTopK,
		IndexTimeout: time.Duration(c.Candidates.IndexTimeoutMS) * time.Millisecond,
		AuxBaseLogit: c.Candidates.AuxBaseLogit,
	}
}

// ToleranceConfig converts to the domain tolerance configuration.
func (c Config) ToleranceConfig() tolerance.Config {
	return tolerance.Config{
		MinSamples:     c.Tolerance.MinSamples,
		EmitWeight:     c.Tolerance.EmitWeight,
		SuppressWeight: c.Tolerance.SuppressWeight,
		MaxAbs:         c.Tolerance.MaxAbs,
	}
}

// IntentMethod returns the configured intent construction method.
func (c Config) IntentMethod() intent.Method {
	switch intent.Method(c.Intent.Method) {
	case intent.MethodSIF:
		return intent.MethodSIF
	case intent.MethodSuppressionAware:
		return intent.MethodSuppressionAware
	default:
		return intent.MethodMean
	}
}

// DecoderTimeout returns the sidecar request timeout.
func (c Config) DecoderTimeout() time.Duration {
	return time.Duration(c.Decoder.TimeoutSeconds) * time.Second
}

// PipelineOptions bundles all the domain conversions for the step pipeline.
func (c Config) PipelineOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Gate = c.GateConfig()
	opts.Alpha = c.AlphaConfig()
	opts.Generator = c.GeneratorConfig()
	opts.IntentStyle = pipeline.IntentStyle{
		Method: c.IntentMethod(),
		Window: c.Intent.Window,
		Stride: c.Intent.Stride,
		SIFA:   c.Intent.SIFA,
		Boost:  c.Intent.Boost,
	}
	return opts
}

// #endregion conversions
