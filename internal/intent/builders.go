package intent

import (
	"github.com/sirenlabs/siren/go-pipeline/internal/embedding"
)

// All builders are pure functions of their inputs and deterministic for
// identical input. They return an L2-normalized intent embedding.

// #region mean

// Mean builds the intent as the arithmetic mean of the last `window` context
// embeddings (window <= 0 uses the whole slice).
func Mean(items []ContextItem, window int) (Vector, error) {
	items = tail(items, window)
	if len(items) == 0 {
		return Vector{}, ErrEmptyContext
	}
	embs := make([]embedding.Vector, len(items))
	for i, it := range items {
		embs[i] = it.Embedding
	}
	iv := weightedMean(embs, nil)
	return finish(iv, embs, MethodMean, len(items)), nil
}

// #endregion mean

// #region sif

// SIF builds a smoothed-inverse-frequency weighted intent: each position is
// weighted a/(a+p) with p approximated as 1/IDF, then the dominant shared
// direction across the window is removed. More sensitive to distinctive,
// topic-bearing context than plain Mean.
func SIF(items []ContextItem, window int, idf map[string]float64, a float64) (Vector, error) {
	items = tail(items, window)
	if len(items) == 0 {
		return Vector{}, ErrEmptyContext
	}
	if a <= 0 {
		a = 1e-3
	}

	embs := make([]embedding.Vector, len(items))
	weights := make([]float64, len(items))
	for i, it := range items {
		embs[i] = it.Embedding
		w := 1.0
		if idf != nil {
			f := idf[it.Token]
			if f < 1 {
				f = 1
			}
			p := 1.0 / f
			w = a / (a + p)
		}
		weights[i] = w
	}

	iv := weightedMean(embs, weights)
	iv = removeDominantDirection(iv, embs)
	return finish(iv, embs, MethodSIF, len(items)), nil
}

// #endregion sif

// #region probe

// Probe builds the intent directly from explicit seed-term embeddings
// (an analyst-specified concept cluster). Used for targeted forensic
// queries rather than online decoding.
func Probe(terms []embedding.Vector) (Vector, error) {
	if len(terms) == 0 {
		return Vector{}, ErrEmptyContext
	}
	iv := weightedMean(terms, nil)
	return finish(iv, terms, MethodProbe, len(terms)), nil
}

// #endregion probe

// #region suppression-aware

// SuppressionAware builds the intent with suppressed positions excluded from
// the window and their unsuppressed in-window neighbors up-weighted by
// `boost`, approximating what the intent looks like with the gap removed.
// Suppressed positions never contribute to the average.
func SuppressionAware(items []ContextItem, window int, boost float64) (Vector, error) {
	items = tail(items, window)
	if boost <= 0 {
		boost = 1.5
	}

	weights := make([]float64, len(items))
	for i, it := range items {
		if it.Suppressed {
			continue
		}
		weights[i] = 1.0
	}
	for i, it := range items {
		if !it.Suppressed {
			continue
		}
		if i-1 >= 0 && weights[i-1] > 0 {
			weights[i-1] *= boost
		}
		if i+1 < len(items) && weights[i+1] > 0 {
			weights[i+1] *= boost
		}
	}

	var embs []embedding.Vector
	var ws []float64
	for i, it := range items {
		if weights[i] == 0 {
			continue
		}
		embs = append(embs, it.Embedding)
		ws = append(ws, weights[i])
	}
	if len(embs) == 0 {
		return Vector{}, ErrEmptyContext
	}

	iv := weightedMean(embs, ws)
	return finish(iv, embs, MethodSuppressionAware, len(embs)), nil
}

// #endregion suppression-aware

// #region helpers

// tail returns the last n items (n <= 0 returns all).
func tail(items []ContextItem, n int) []ContextItem {
	if n > 0 && len(items) > n {
		return items[len(items)-n:]
	}
	return items
}

// weightedMean computes the (optionally weighted) mean of the embeddings.
// A nil weights slice means equal weights.
func weightedMean(embs []embedding.Vector, weights []float64) embedding.Vector {
	if len(embs) == 0 {
		return nil
	}
	dim := embs[0].Dim()
	acc := make([]float64, dim)
	var wsum float64
	for i, e := range embs {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		wsum += w
		for j := 0; j < dim && j < e.Dim(); j++ {
			acc[j] += w * float64(e[j])
		}
	}
	if wsum == 0 {
		wsum = 1
	}
	out := make(embedding.Vector, dim)
	for j := range acc {
		out[j] = float32(acc[j] / wsum)
	}
	return out
}

// removeDominantDirection subtracts the projection of v onto the dominant
// shared direction of the window, estimated by a fixed-round power
// iteration seeded from the normalized mean (deterministic).
func removeDominantDirection(v embedding.Vector, embs []embedding.Vector) embedding.Vector {
	if len(embs) < 2 {
		return v
	}
	dir := embedding.Normalize(weightedMean(embs, nil))
	if dir.IsZero() {
		return v
	}
	for iter := 0; iter < 4; iter++ {
		next := make([]float64, len(dir))
		for _, e := range embs {
			d := embedding.Dot(e, dir)
			for j := 0; j < len(next) && j < e.Dim(); j++ {
				next[j] += d * float64(e[j])
			}
		}
		cand := make(embedding.Vector, len(next))
		for j, x := range next {
			cand[j] = float32(x)
		}
		cand = embedding.Normalize(cand)
		if cand.IsZero() {
			break
		}
		dir = cand
	}
	proj := embedding.Dot(v, dir)
	out := v.Clone()
	for j := range out {
		out[j] -= float32(proj * float64(dir[j]))
	}
	return out
}

// finish normalizes the intent and attaches metadata. Confidence is the mean
// cosine of the contributing embeddings to the final intent: a coherent
// window produces a stable, high-confidence intent.
func finish(iv embedding.Vector, embs []embedding.Vector, m Method, window int) Vector {
	norm := embedding.Normalize(iv)
	var conf float64
	if !norm.IsZero() {
		for _, e := range embs {
			c := embedding.Cosine(e, norm)
			conf += (c + 1) / 2
		}
		conf /= float64(len(embs))
	}
	return Vector{
		Embedding:  norm,
		Method:     m,
		WindowSize: window,
		Confidence: conf,
	}
}

// #endregion helpers
