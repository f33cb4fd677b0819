package embedding

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	a := Vector{1, 0}
	b := Vector{0, 1}
	if got := Cosine(a, a); math.Abs(got-1) > 1e-6 {
		t.Fatalf("cos(a,a) = %.6f, want 1", got)
	}
	if got := Cosine(a, b); math.Abs(got) > 1e-6 {
		t.Fatalf("cos(orthogonal) = %.6f, want 0", got)
	}
	if got := Cosine(a, Vector{-1, 0}); math.Abs(got+1) > 1e-6 {
		t.Fatalf("cos(opposite) = %.6f, want -1", got)
	}
}

func TestCosineDegenerateInputs(t *testing.T) {
	if got := Cosine(Vector{1, 0}, Vector{0, 0}); got != 0 {
		t.Fatalf("zero vector cosine = %.6f, want 0", got)
	}
	if got := Cosine(Vector{1, 0}, Vector{1, 0, 0}); got != 0 {
		t.Fatalf("dimension mismatch cosine = %.6f, want 0", got)
	}
	if got := Cosine(nil, nil); got != 0 {
		t.Fatalf("nil cosine = %.6f, want 0", got)
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize(Vector{3, 4})
	if math.Abs(Norm(v)-1) > 1e-6 {
		t.Fatalf("normalized norm = %.6f, want 1", Norm(v))
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 {
		t.Fatalf("unexpected direction: %v", v)
	}

	z := Normalize(Vector{0, 0})
	if !z.IsZero() {
		t.Fatalf("zero vector must normalize to itself: %v", z)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := Vector{1, 2}
	b := a.Clone()
	b[0] = 9
	if a[0] != 1 {
		t.Fatal("clone aliases the original")
	}
}

func TestSub(t *testing.T) {
	d := Sub(Vector{3, 5}, Vector{1, 2})
	if d[0] != 2 || d[1] != 3 {
		t.Fatalf("unexpected difference: %v", d)
	}
}
