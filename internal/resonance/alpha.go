package resonance

import "math"

// #region alpha-config

// AlphaMapping selects how entropy maps to an alpha shift.
type AlphaMapping string

const (
	AlphaLinear  AlphaMapping = "linear"
	AlphaSigmoid AlphaMapping = "sigmoid"
)

// AlphaConfig tunes the dynamic blend weight. Higher entropy lowers alpha,
// shifting weight toward semantic fidelity at moments of conceptual strain.
type AlphaConfig struct {
	Enabled  bool
	Base     float64      // alpha when entropy is at or below Pivot
	Min      float64      // clamp floor
	Max      float64      // clamp ceiling
	Mapping  AlphaMapping // linear or sigmoid
	Pivot    float64      // entropy at which shifting begins / is centered
	Slope    float64      // shift per entropy unit (linear) or steepness (sigmoid)
	MaxShift float64      // bound on the total downward shift
}

// DefaultAlphaConfig matches the reference behavior: bounded linear shift
// beyond an entropy pivot of 1.5, at 0.1 alpha per entropy unit, capped at
// 0.25. Documented as a reference point, not a requirement.
func DefaultAlphaConfig() AlphaConfig {
	return AlphaConfig{
		Enabled:  true,
		Base:     0.5,
		Min:      0.0,
		Max:      1.0,
		Mapping:  AlphaLinear,
		Pivot:    1.5,
		Slope:    0.1,
		MaxShift: 0.25,
	}
}

// #endregion alpha-config

// #region kairos-alpha

// KairosAlpha derives the effective blend weight from the entropy/strain
// signal. Pure function: kept separate from the stateful gate so it stays
// independently testable. Disabled config returns the clamped base alpha.
func KairosAlpha(cfg AlphaConfig, entropy float64) float64 {
	lo, hi := cfg.Min, cfg.Max
	if hi <= 0 && lo <= 0 {
		lo, hi = 0, 1
	}
	base := clampRange(cfg.Base, lo, hi)
	if !cfg.Enabled {
		return base
	}

	var shift float64
	switch cfg.Mapping {
	case AlphaSigmoid:
		// Smooth shift centered on the pivot; saturates at MaxShift.
		shift = cfg.MaxShift * Sigmoid(cfg.Slope*(entropy-cfg.Pivot)*4)
		if entropy <= cfg.Pivot {
			// Keep the baseline exact at and below the pivot.
			shift = 0
		}
	default: // linear
		if entropy <= cfg.Pivot {
			return base
		}
		shift = (entropy - cfg.Pivot) * cfg.Slope
		if shift > cfg.MaxShift {
			shift = cfg.MaxShift
		}
	}

	return clampRange(base-shift, lo, hi)
}

func clampRange(v, lo, hi float64) float64 {
	v = math.Max(v, lo)
	v = math.Min(v, hi)
	return clamp01(v)
}

// #endregion kairos-alpha
