package vocab

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirenlabs/siren/go-pipeline/internal/candidate"
	"github.com/sirenlabs/siren/go-pipeline/internal/embedding"
)

// #region errors

// ErrIndexUnavailable marks a failed or timed-out auxiliary lookup.
// Recoverable: the candidate generator degrades to native-only.
var ErrIndexUnavailable = errors.New("vocab: auxiliary index unavailable")

// #endregion errors

// #region index

// Index is an immutable in-memory snapshot of the auxiliary vocabulary,
// searched by brute-force cosine scan. Approximate ordering is acceptable
// for the pipeline; this implementation happens to be exact, which satisfies
// the bounded-approximation-error requirement trivially.
type Index struct {
	entries []Entry
}

// NewIndex builds an index over the given entries.
func NewIndex(entries []Entry) *Index {
	return &Index{entries: entries}
}

// OpenIndex loads a full index snapshot from a vocabulary store file.
func OpenIndex(dbPath string) (*Index, error) {
	store, err := NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	defer store.Close()

	entries, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	return NewIndex(entries), nil
}

// Len returns the number of indexed tokens.
func (ix *Index) Len() int { return len(ix.entries) }

// #endregion index

// #region search

// checkEvery bounds how many entries are scanned between context checks.
const checkEvery = 4096

// Search returns the k nearest entries to the query by cosine similarity,
// most similar first; ties break by (vocab, token) for determinism. A
// cancelled or expired context aborts with ErrIndexUnavailable.
func (ix *Index) Search(ctx context.Context, query embedding.Vector, k int) ([]candidate.Hit, error) {
	if k <= 0 || len(ix.entries) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	hits := make([]candidate.Hit, 0, len(ix.entries))
	for i, e := range ix.entries {
		if i%checkEvery == 0 && i > 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
			}
		}
		hits = append(hits, candidate.Hit{
			Token:      e.Token,
			Vocab:      e.Vocab,
			Embedding:  e.Embedding,
			Similarity: embedding.Cosine(query, e.Embedding),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		if hits[i].Vocab != hits[j].Vocab {
			return hits[i].Vocab < hits[j].Vocab
		}
		return hits[i].Token < hits[j].Token
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// #endregion search
