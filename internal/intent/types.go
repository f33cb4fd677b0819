package intent

import (
	"errors"

	"github.com/sirenlabs/siren/go-pipeline/internal/embedding"
)

// #region errors

// ErrEmptyContext is returned when a builder has zero usable context
// positions. Recoverable: the caller substitutes a zero intent or skips
// scoring for the step.
var ErrEmptyContext = errors.New("intent: empty context window")

// #endregion errors

// #region method

// Method identifies how an intent vector was constructed.
type Method string

const (
	MethodMean             Method = "mean"
	MethodSIF              Method = "sif"
	MethodProbe            Method = "probe"
	MethodSuppressionAware Method = "suppression_aware"
)

// #endregion method

// #region context-item

// ContextItem is one position of the recent-context window, most-recent-last.
type ContextItem struct {
	Token      string
	Embedding  embedding.Vector
	Suppressed bool // position was redacted/blocked by a guardrail
}

// #endregion context-item

// #region intent-vector

// Vector is a single embedding summarizing what the ongoing generation is
// conceptually about, plus construction metadata. Instances are never
// mutated; each step builds a fresh one.
type Vector struct {
	Embedding  embedding.Vector
	Method     Method
	WindowSize int     // number of context positions that contributed
	Confidence float64 // stability estimate in [0,1]
}

// #endregion intent-vector
