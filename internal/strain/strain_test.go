package strain

import (
	"math"
	"testing"
)

func TestFromProbsUniformIsLogN(t *testing.T) {
	probs := []float64{0.25, 0.25, 0.25, 0.25}
	want := math.Log(4)
	if got := FromProbs(probs); math.Abs(got-want) > 1e-9 {
		t.Fatalf("uniform entropy %.6f, want %.6f", got, want)
	}
}

func TestFromProbsDegenerateIsZero(t *testing.T) {
	if got := FromProbs([]float64{1, 0, 0}); got != 0 {
		t.Fatalf("one-hot entropy %.6f, want 0", got)
	}
	if got := FromProbs(nil); got != 0 {
		t.Fatalf("empty entropy %.6f, want 0", got)
	}
}

func TestFromLogitsMatchesSoftmaxEntropy(t *testing.T) {
	// Equal logits softmax to uniform.
	if got := FromLogits([]float64{3, 3, 3}); math.Abs(got-math.Log(3)) > 1e-9 {
		t.Fatalf("equal logits entropy %.6f, want %.6f", got, math.Log(3))
	}

	// Large offsets must not overflow.
	got := FromLogits([]float64{1000, 1000})
	if math.IsNaN(got) || math.Abs(got-math.Log(2)) > 1e-9 {
		t.Fatalf("large-logit entropy %.6f, want %.6f", got, math.Log(2))
	}

	// A peaked distribution has lower entropy than a flat one.
	peaked := FromLogits([]float64{10, 0, 0})
	flat := FromLogits([]float64{0, 0, 0})
	if peaked >= flat {
		t.Fatalf("peaked %.4f should be below flat %.4f", peaked, flat)
	}
}

func TestLogitVarianceBounded(t *testing.T) {
	if got := LogitVariance(nil); got != 0 {
		t.Fatalf("empty variance %.4f, want 0", got)
	}
	got := LogitVariance([]float64{-100, 100})
	if got < 0 || got > 1 {
		t.Fatalf("variance proxy %.4f outside [0,1]", got)
	}
}

func TestLogitVarianceSkipsNonFinite(t *testing.T) {
	masked := LogitVariance([]float64{math.Inf(-1), -100, math.NaN(), 100})
	clean := LogitVariance([]float64{-100, 100})
	if masked != clean {
		t.Fatalf("non-finite entries must not contribute: %.6f vs %.6f", masked, clean)
	}
	if got := LogitVariance([]float64{math.Inf(-1), math.NaN()}); got != 0 {
		t.Fatalf("all-non-finite variance %.4f, want 0", got)
	}
}

func TestResolveTiers(t *testing.T) {
	probs := []float64{0.5, 0.5}
	logits := []float64{1, 2}

	v := Resolve(2.7, true, probs, logits)
	if v.Source != SourceDecoder || v.Entropy != 2.7 {
		t.Fatalf("explicit value must win: %+v", v)
	}

	v = Resolve(0, false, probs, logits)
	if v.Source != SourceProbs {
		t.Fatalf("probs outrank logits: %+v", v)
	}

	v = Resolve(0, false, nil, logits)
	if v.Source != SourceLogits {
		t.Fatalf("logits are the third tier: %+v", v)
	}

	v = Resolve(0, false, nil, nil)
	if v.Source != SourceNone || v.Entropy != 0 {
		t.Fatalf("nothing available resolves to none: %+v", v)
	}
}

func TestResolveVarianceProxyForUnsoftmaxableLogits(t *testing.T) {
	// A NaN entry poisons softmax entropy; the variance of the finite
	// entries {1, 3} is 1.
	v := Resolve(0, false, nil, []float64{math.NaN(), 1, 3})
	if v.Source != SourceVariance {
		t.Fatalf("expected variance proxy, got %s", v.Source)
	}
	if want := math.Tanh(1); math.Abs(v.Entropy-want) > 1e-9 {
		t.Fatalf("variance proxy %.6f, want %.6f", v.Entropy, want)
	}
}
