package metrics

import (
	"os"
	"sync"
)

// Package metrics provides a minimal instrumentation surface with a no-op
// default and an optional Prometheus-backed implementation enabled via env.
// Every degraded mode in the pipeline is counted here even when it is not
// surfaced to the user.

// #region recorder

// Recorder is the metrics surface used across the pipeline.
type Recorder interface {
	// IncDecision counts a gate decision by action
	// ("emit_candidate", "emit_default", "suppressed_candidate").
	IncDecision(action string)
	// IncDegradation counts a degraded-mode event by kind
	// ("index_unavailable", "malformed_candidate", "empty_context",
	// "record_dropped", "sink_unavailable").
	IncDegradation(kind string)
	// ObserveLookupSeconds times an external lookup by source.
	ObserveLookupSeconds(source string, seconds float64)
	// ObserveStepSeconds times one full decode-step evaluation.
	ObserveStepSeconds(seconds float64)
}

// noopRecorder implements Recorder with no-ops.
type noopRecorder struct{}

func (noopRecorder) IncDecision(string)                   {}
func (noopRecorder) IncDegradation(string)                {}
func (noopRecorder) ObserveLookupSeconds(string, float64) {}
func (noopRecorder) ObserveStepSeconds(float64)           {}

var (
	recMu    sync.RWMutex
	recorder Recorder = noopRecorder{}
)

// Default returns the current recorder.
func Default() Recorder {
	recMu.RLock()
	defer recMu.RUnlock()
	return recorder
}

// SetRecorder swaps the global recorder implementation.
func SetRecorder(r Recorder) {
	recMu.Lock()
	defer recMu.Unlock()
	recorder = r
}

// #endregion recorder

// #region init-from-env

// InitFromEnv enables the Prometheus exporter when METRICS_PROMETHEUS is set.
// A small HTTP server on METRICS_ADDR (default :9090) serves /metrics and
// /healthz. On failure the no-op recorder stays installed.
func InitFromEnv() {
	if os.Getenv("METRICS_PROMETHEUS") == "" {
		return
	}
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		addr = ":9090"
	}
	_ = enablePrometheus(addr)
}

// #endregion init-from-env
