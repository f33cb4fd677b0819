package tolerance

import (
	"fmt"

	"github.com/sirenlabs/siren/go-pipeline/internal/memory"
)

// Package tolerance derives the per-user "symbolic tolerance" signal from
// recorded decision history: repeated emissions without pushback raise it,
// suppression events lower it. It only reads from resonance memory; the
// kairos gate is the one that applies the adjustment.

// #region config

// Config tunes the tolerance derivation.
type Config struct {
	MinSamples     int64   // below this many emit/suppress events, stay neutral
	EmitWeight     float64 // contribution of each emission
	SuppressWeight float64 // contribution of each suppression (subtracted)
	MaxAbs         float64 // clamp on the final signal
}

// DefaultConfig returns conservative defaults: slow to loosen, quick to
// tighten.
func DefaultConfig() Config {
	return Config{
		MinSamples:     5,
		EmitWeight:     1.0,
		SuppressWeight: 2.0,
		MaxAbs:         0.5,
	}
}

// #endregion config

// #region evaluator

// Metric is one named component of a tolerance evaluation.
type Metric struct {
	Name  string
	Value float64
}

// Result is the outcome of a tolerance evaluation.
type Result struct {
	Tolerance float64 // in [-MaxAbs, MaxAbs]
	Reason    string
	Metrics   []Metric
}

// Evaluator computes the tolerance signal from session statistics.
type Evaluator struct {
	config Config
}

// NewEvaluator creates an evaluator with the given configuration.
func NewEvaluator(config Config) *Evaluator {
	return &Evaluator{config: config}
}

// Run derives the tolerance from one session's aggregated history.
func (e *Evaluator) Run(stats memory.SessionStats) Result {
	samples := stats.Emitted + stats.Suppressed
	metrics := []Metric{
		{Name: "emitted", Value: float64(stats.Emitted)},
		{Name: "suppressed", Value: float64(stats.Suppressed)},
		{Name: "samples", Value: float64(samples)},
	}

	if samples < e.config.MinSamples {
		return Result{
			Tolerance: 0,
			Reason:    fmt.Sprintf("neutral: %d samples below minimum %d", samples, e.config.MinSamples),
			Metrics:   metrics,
		}
	}

	raw := (float64(stats.Emitted)*e.config.EmitWeight - float64(stats.Suppressed)*e.config.SuppressWeight) / float64(samples)
	tol := raw
	if tol > e.config.MaxAbs {
		tol = e.config.MaxAbs
	} else if tol < -e.config.MaxAbs {
		tol = -e.config.MaxAbs
	}
	metrics = append(metrics, Metric{Name: "raw", Value: raw})

	return Result{
		Tolerance: tol,
		Reason:    fmt.Sprintf("tolerance %.4f from %d emissions, %d suppressions", tol, stats.Emitted, stats.Suppressed),
		Metrics:   metrics,
	}
}

// #endregion evaluator
