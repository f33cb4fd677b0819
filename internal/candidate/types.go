package candidate

import (
	"context"
	"errors"
	"time"

	"github.com/sirenlabs/siren/go-pipeline/internal/embedding"
)

// #region errors

// ErrMalformed marks a candidate missing its embedding or score. Malformed
// candidates are dropped individually; a step is never aborted for one.
var ErrMalformed = errors.New("candidate: missing embedding or score")

// #endregion errors

// #region candidate

// Candidate is one cross-vocabulary token proposal for the current decoding
// step. Immutable once produced for a step.
type Candidate struct {
	Token       string           // token identifier
	Vocab       string           // source vocabulary tag (e.g. "native", "el", "my")
	Embedding   embedding.Vector // pre-aligned embedding
	BaseScore   float64          // raw logit or probability from the decoder
	BaseIsLogit bool             // true when BaseScore is a raw logit
}

// Validate reports whether the candidate carries everything scoring needs.
func (c Candidate) Validate() error {
	if c.Token == "" || len(c.Embedding) == 0 {
		return ErrMalformed
	}
	return nil
}

// #endregion candidate

// #region searcher

// Hit is one auxiliary-index neighbor of the intent vector.
type Hit struct {
	Token      string
	Vocab      string
	Embedding  embedding.Vector
	Similarity float64
}

// Searcher abstracts the auxiliary multilingual index. Approximate results
// are acceptable; exact nearest-neighbor correctness is not required.
type Searcher interface {
	Search(ctx context.Context, query embedding.Vector, k int) ([]Hit, error)
}

// #endregion searcher

// #region config

// GeneratorConfig bounds and tunes candidate generation.
type GeneratorConfig struct {
	MaxSet       int           // M: hard cap on the merged candidate set
	AuxTopK      int           // K': auxiliary neighbors fetched per step
	IndexTimeout time.Duration // bound on the auxiliary index lookup
	AuxBaseLogit float64       // base logit assigned to index-only candidates
}

// DefaultGeneratorConfig returns sensible defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		MaxSet:       32,
		AuxTopK:      10,
		IndexTimeout: 200 * time.Millisecond,
		AuxBaseLogit: -4.0,
	}
}

// #endregion config
