package resonance

import (
	"math"
	"testing"
)

func TestKairosAlphaBelowPivot(t *testing.T) {
	cfg := DefaultAlphaConfig()
	for _, e := range []float64{0, 0.5, 1.0, 1.5} {
		if got := KairosAlpha(cfg, e); got != cfg.Base {
			t.Fatalf("entropy %.2f: alpha %.4f, want base %.4f", e, got, cfg.Base)
		}
	}
}

func TestKairosAlphaLinearShift(t *testing.T) {
	cfg := DefaultAlphaConfig()

	// 0.1 per entropy unit beyond the pivot.
	if got := KairosAlpha(cfg, 2.5); math.Abs(got-0.4) > 1e-12 {
		t.Fatalf("entropy 2.5: alpha %.4f, want 0.4", got)
	}

	// Shift caps at MaxShift no matter how high entropy climbs.
	capped := cfg.Base - cfg.MaxShift
	if got := KairosAlpha(cfg, 100); math.Abs(got-capped) > 1e-12 {
		t.Fatalf("entropy 100: alpha %.4f, want capped %.4f", got, capped)
	}
}

func TestKairosAlphaMonotoneNonIncreasing(t *testing.T) {
	cfg := DefaultAlphaConfig()
	prev := math.Inf(1)
	for e := 0.0; e <= 6.0; e += 0.25 {
		got := KairosAlpha(cfg, e)
		if got > prev {
			t.Fatalf("alpha rose with entropy at %.2f: %.4f > %.4f", e, got, prev)
		}
		prev = got
	}
}

func TestKairosAlphaSigmoidMapping(t *testing.T) {
	cfg := DefaultAlphaConfig()
	cfg.Mapping = AlphaSigmoid

	if got := KairosAlpha(cfg, cfg.Pivot); got != cfg.Base {
		t.Fatalf("sigmoid mapping must keep the baseline at the pivot, got %.4f", got)
	}

	shifted := KairosAlpha(cfg, cfg.Pivot+2)
	if shifted >= cfg.Base {
		t.Fatalf("sigmoid mapping must shift down above the pivot, got %.4f", shifted)
	}
	if floor := cfg.Base - cfg.MaxShift; shifted < floor {
		t.Fatalf("sigmoid shift exceeded MaxShift: %.4f < %.4f", shifted, floor)
	}
}

func TestKairosAlphaDisabled(t *testing.T) {
	cfg := DefaultAlphaConfig()
	cfg.Enabled = false
	if got := KairosAlpha(cfg, 10); got != cfg.Base {
		t.Fatalf("disabled mapping must return base alpha, got %.4f", got)
	}
}

func TestKairosAlphaClampsToRange(t *testing.T) {
	cfg := DefaultAlphaConfig()
	cfg.Min = 0.35
	if got := KairosAlpha(cfg, 100); got != 0.35 {
		t.Fatalf("alpha must clamp to Min, got %.4f", got)
	}
}
