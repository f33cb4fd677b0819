package candidate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sirenlabs/siren/go-pipeline/internal/intent"
	"github.com/sirenlabs/siren/go-pipeline/internal/metrics"
)

// #region generator

// Generator merges the decoder's native top-K with auxiliary-index neighbors
// of the intent vector into one bounded, de-duplicated candidate set.
type Generator struct {
	searcher Searcher // nil disables the auxiliary index
	config   GeneratorConfig
}

// NewGenerator creates a Generator. searcher may be nil (native-only mode).
func NewGenerator(searcher Searcher, config GeneratorConfig) *Generator {
	return &Generator{searcher: searcher, config: config}
}

// #endregion generator

// #region result

// Result carries the merged set plus degradation bookkeeping for auditing.
type Result struct {
	Candidates []Candidate
	Dropped    int    // malformed candidates removed
	Degraded   bool   // auxiliary index skipped or failed
	Reason     string // non-empty when Degraded or Dropped > 0
}

// #endregion result

// #region generate

// Generate produces the candidate set for one decoding step.
// Native candidates always survive the merge; a token present in both
// sources keeps its native decoder score (the decoder is authoritative for
// probability). Index failure or timeout degrades to native-only and never
// blocks decoding.
func (g *Generator) Generate(ctx context.Context, native []Candidate, iv intent.Vector) Result {
	res := Result{}
	seen := make(map[string]bool, len(native))

	for _, c := range native {
		if err := c.Validate(); err != nil {
			res.Dropped++
			metrics.Default().IncDegradation("malformed_candidate")
			continue
		}
		if seen[c.Token] {
			continue
		}
		seen[c.Token] = true
		res.Candidates = append(res.Candidates, c)
	}

	hits, err := g.auxSearch(ctx, iv)
	if err != nil {
		res.Degraded = true
		res.Reason = fmt.Sprintf("index unavailable: %v", err)
		metrics.Default().IncDegradation("index_unavailable")
		log.Printf("[CAND] degraded to native-only: %v", err)
	} else {
		for _, h := range hits {
			if len(res.Candidates) >= g.config.MaxSet {
				break
			}
			c := Candidate{
				Token:       h.Token,
				Vocab:       h.Vocab,
				Embedding:   h.Embedding,
				BaseScore:   g.config.AuxBaseLogit,
				BaseIsLogit: true,
			}
			if err := c.Validate(); err != nil {
				res.Dropped++
				metrics.Default().IncDegradation("malformed_candidate")
				continue
			}
			if seen[c.Token] {
				continue // native score is authoritative
			}
			seen[c.Token] = true
			res.Candidates = append(res.Candidates, c)
		}
	}

	if len(res.Candidates) > g.config.MaxSet {
		res.Candidates = res.Candidates[:g.config.MaxSet]
	}
	if res.Dropped > 0 && res.Reason == "" {
		res.Reason = fmt.Sprintf("dropped %d malformed candidates", res.Dropped)
	}
	return res
}

// auxSearch runs the bounded auxiliary lookup. A nil searcher or zero intent
// is a quiet skip, not a degradation.
func (g *Generator) auxSearch(ctx context.Context, iv intent.Vector) ([]Hit, error) {
	if g.searcher == nil || g.config.AuxTopK <= 0 || iv.Embedding.IsZero() {
		return nil, nil
	}
	if g.config.IndexTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.IndexTimeout)
		defer cancel()
	}
	start := time.Now()
	hits, err := g.searcher.Search(ctx, iv.Embedding, g.config.AuxTopK)
	metrics.Default().ObserveLookupSeconds("aux_index", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// #endregion generate
