package resonance

import (
	"math"
	"sort"

	"github.com/sirenlabs/siren/go-pipeline/internal/candidate"
	"github.com/sirenlabs/siren/go-pipeline/internal/embedding"
	"github.com/sirenlabs/siren/go-pipeline/internal/intent"
)

// All functions here are pure and side-effect free; ranking is a strict
// total order so identical inputs always produce identical output.

// #region normalize

// Sigmoid squashes a real value to (0,1). Reference normalization for logits.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// NormalizeBase maps a base decoder score to [0,1]: logistic squash for raw
// logits, clamp for values already expressed as probabilities.
func NormalizeBase(baseScore float64, baseIsLogit bool) float64 {
	if baseIsLogit {
		return Sigmoid(baseScore)
	}
	return clamp01(baseScore)
}

// Fidelity is the rescaled cosine similarity between a candidate embedding
// and the intent vector, mapped from [-1,1] to [0,1].
func Fidelity(candEmb embedding.Vector, iv intent.Vector) float64 {
	cos := embedding.Cosine(candEmb, iv.Embedding)
	if cos < -1 {
		cos = -1
	} else if cos > 1 {
		cos = 1
	}
	return 0.5 * (cos + 1)
}

// #endregion normalize

// #region score

// Score blends decoder confidence with semantic fidelity:
//
//	alpha*normalizedBase + (1-alpha)*fidelity
//
// alpha=1 reduces to pure probability ranking; alpha=0 to pure fidelity.
// The result is always in [0,1] and monotone non-decreasing in each term
// while the other is held fixed.
func Score(baseScore float64, candEmb embedding.Vector, iv intent.Vector, alpha float64, baseIsLogit bool) float64 {
	a := clamp01(alpha)
	conf := NormalizeBase(baseScore, baseIsLogit)
	fid := Fidelity(candEmb, iv)
	return a*conf + (1-a)*fid
}

// #endregion score

// #region rank

// Scored pairs one candidate with its resonance score for one intent vector.
type Scored struct {
	Candidate candidate.Candidate
	Resonance float64
	NormBase  float64
	Fidelity  float64
}

// Rank scores every candidate against the intent and sorts by resonance
// descending. Ties break by normalized base score descending, then by token
// identifier ascending, guaranteeing deterministic output.
func Rank(cands []candidate.Candidate, iv intent.Vector, alpha float64) []Scored {
	a := clamp01(alpha)
	out := make([]Scored, 0, len(cands))
	for _, c := range cands {
		conf := NormalizeBase(c.BaseScore, c.BaseIsLogit)
		fid := Fidelity(c.Embedding, iv)
		out = append(out, Scored{
			Candidate: c,
			Resonance: a*conf + (1-a)*fid,
			NormBase:  conf,
			Fidelity:  fid,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Resonance != out[j].Resonance {
			return out[i].Resonance > out[j].Resonance
		}
		if out[i].NormBase != out[j].NormBase {
			return out[i].NormBase > out[j].NormBase
		}
		return out[i].Candidate.Token < out[j].Candidate.Token
	})
	return out
}

// #endregion rank

// #region helpers

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
