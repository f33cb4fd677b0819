package tolerance

import (
	"testing"

	"github.com/sirenlabs/siren/go-pipeline/internal/memory"
)

func TestNeutralBelowMinSamples(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	res := e.Run(memory.SessionStats{Emitted: 2, Suppressed: 1, Defaults: 50})
	if res.Tolerance != 0 {
		t.Fatalf("expected neutral tolerance, got %.4f", res.Tolerance)
	}
}

func TestEmissionsRaiseTolerance(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	res := e.Run(memory.SessionStats{Emitted: 10, Suppressed: 0})
	if res.Tolerance <= 0 {
		t.Fatalf("clean emissions should raise tolerance, got %.4f", res.Tolerance)
	}
	if res.Tolerance > DefaultConfig().MaxAbs {
		t.Fatalf("tolerance exceeded clamp: %.4f", res.Tolerance)
	}
}

func TestSuppressionsLowerTolerance(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	res := e.Run(memory.SessionStats{Emitted: 2, Suppressed: 8})
	if res.Tolerance >= 0 {
		t.Fatalf("suppressions should lower tolerance, got %.4f", res.Tolerance)
	}
	if res.Tolerance < -DefaultConfig().MaxAbs {
		t.Fatalf("tolerance exceeded negative clamp: %.4f", res.Tolerance)
	}
}

func TestSuppressionsWeighHeavier(t *testing.T) {
	// Equal counts: the doubled suppression weight must pull negative.
	e := NewEvaluator(DefaultConfig())
	res := e.Run(memory.SessionStats{Emitted: 5, Suppressed: 5})
	if res.Tolerance >= 0 {
		t.Fatalf("equal counts should tighten, got %.4f", res.Tolerance)
	}
}

func TestDefaultsDoNotCount(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	a := e.Run(memory.SessionStats{Emitted: 10, Suppressed: 2, Defaults: 0})
	b := e.Run(memory.SessionStats{Emitted: 10, Suppressed: 2, Defaults: 1000})
	if a.Tolerance != b.Tolerance {
		t.Fatalf("default emissions must not affect tolerance: %.4f vs %.4f", a.Tolerance, b.Tolerance)
	}
}
