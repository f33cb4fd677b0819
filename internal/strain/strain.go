package strain

import "math"

// Package strain computes the per-step entropy/strain scalar that feeds
// kairos gating and dynamic alpha. The decoder sidecar usually supplies it
// directly; when it does not, it is derived here from the step's
// distribution with a tiered fallback.

// #region value

// Source names where the strain value came from.
type Source string

const (
	SourceDecoder  Source = "decoder"
	SourceProbs    Source = "probs"
	SourceLogits   Source = "logits"
	SourceVariance Source = "logit_variance"
	SourceNone     Source = "none"
)

// Value is the resolved strain scalar with its provenance.
type Value struct {
	Entropy float64
	Source  Source
}

// #endregion value

// #region entropy

// FromProbs computes Shannon entropy (nats) of a probability distribution.
// Non-positive entries are skipped; an empty slice yields 0.
func FromProbs(probs []float64) float64 {
	var h float64
	for _, p := range probs {
		if p <= 0 {
			continue
		}
		h -= p * math.Log(p)
	}
	return h
}

// FromLogits computes Shannon entropy of softmax(logits), using the max
// subtraction trick for numerical stability.
func FromLogits(logits []float64) float64 {
	if len(logits) == 0 {
		return 0
	}
	maxL := logits[0]
	for _, l := range logits[1:] {
		if l > maxL {
			maxL = l
		}
	}
	var z float64
	for _, l := range logits {
		z += math.Exp(l - maxL)
	}
	probs := make([]float64, len(logits))
	for i, l := range logits {
		probs[i] = math.Exp(l-maxL) / z
	}
	return FromProbs(probs)
}

// LogitVariance is the last-resort strain proxy for logit sets that cannot
// be softmaxed: the variance of the finite entries squashed through tanh to
// a bounded range. Non-finite entries (masked-vocabulary -Inf, NaN) are
// skipped.
func LogitVariance(logits []float64) float64 {
	var sum float64
	n := 0
	for _, v := range logits {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	var variance float64
	for _, v := range logits {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)
	return math.Tanh(variance)
}

// #endregion entropy

// #region resolve

// Resolve picks the strain value with a tiered fallback:
// explicit decoder value -> entropy from probs -> entropy from logits ->
// logit-variance proxy when the logits cannot be softmaxed.
func Resolve(explicit float64, hasExplicit bool, probs, logits []float64) Value {
	if hasExplicit {
		return Value{Entropy: explicit, Source: SourceDecoder}
	}
	if len(probs) > 0 {
		return Value{Entropy: FromProbs(probs), Source: SourceProbs}
	}
	if len(logits) > 0 {
		if h := FromLogits(logits); !math.IsNaN(h) && !math.IsInf(h, 0) {
			return Value{Entropy: h, Source: SourceLogits}
		}
		return Value{Entropy: LogitVariance(logits), Source: SourceVariance}
	}
	return Value{Source: SourceNone}
}

// #endregion resolve
