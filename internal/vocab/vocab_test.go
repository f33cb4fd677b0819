package vocab

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sirenlabs/siren/go-pipeline/internal/embedding"
)

func testEntries() []Entry {
	return []Entry{
		{Token: "παρθένος", Vocab: "grc", Embedding: embedding.Vector{0.9, 0.1, 0}},
		{Token: "δίκη", Vocab: "grc", Embedding: embedding.Vector{0.1, 0.9, 0}},
		{Token: "တရား", Vocab: "mya", Embedding: embedding.Vector{0.1, 0.9, 0}},
		{Token: "noise", Vocab: "grc", Embedding: embedding.Vector{0, 0, 1}},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.db")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if err := store.Add(testEntries()); err != nil {
		t.Fatalf("add: %v", err)
	}
	n, err := store.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 entries, got %d", n)
	}

	entries, err := store.LoadAll()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 loaded entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Token == "παρθένος" {
			if len(e.Embedding) != 3 || e.Embedding[0] != 0.9 {
				t.Fatalf("embedding round-trip failed: %v", e.Embedding)
			}
		}
	}
	store.Close()

	// Reopen through the index loader.
	ix, err := OpenIndex(path)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	if ix.Len() != 4 {
		t.Fatalf("expected 4 indexed entries, got %d", ix.Len())
	}
}

func TestStoreUpsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.db")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	e := Entry{Token: "δίκη", Vocab: "grc", Embedding: embedding.Vector{1, 0}}
	if err := store.Add([]Entry{e}); err != nil {
		t.Fatalf("add: %v", err)
	}
	e.Embedding = embedding.Vector{0, 1}
	if err := store.Add([]Entry{e}); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	n, err := store.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("re-adding the same (vocab, token) must upsert, got %d rows", n)
	}

	entries, err := store.LoadAll()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if entries[0].Embedding[1] != 1 {
		t.Fatalf("upsert did not replace the embedding: %v", entries[0].Embedding)
	}
}

func TestSearchOrdersBySimilarity(t *testing.T) {
	ix := NewIndex(testEntries())

	hits, err := ix.Search(context.Background(), embedding.Vector{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Token != "παρθένος" {
		t.Fatalf("expected παρθένος nearest, got %s", hits[0].Token)
	}
	if hits[0].Similarity < hits[1].Similarity {
		t.Fatal("hits out of similarity order")
	}
}

func TestSearchTieBreaksDeterministically(t *testing.T) {
	// δίκη (grc) and တရား (mya) have identical embeddings; grc sorts first.
	ix := NewIndex(testEntries())
	hits, err := ix.Search(context.Background(), embedding.Vector{0, 1, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if hits[0].Vocab != "grc" || hits[1].Vocab != "mya" {
		t.Fatalf("tie must break by vocab ascending: %s, %s", hits[0].Vocab, hits[1].Vocab)
	}
}

func TestSearchHonorsCancelledContext(t *testing.T) {
	ix := NewIndex(testEntries())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ix.Search(ctx, embedding.Vector{1, 0, 0}, 2)
	if !errors.Is(err, ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	ix := NewIndex(nil)
	hits, err := ix.Search(context.Background(), embedding.Vector{1, 0}, 5)
	if err != nil || hits != nil {
		t.Fatalf("empty index should return nothing: %v, %v", hits, err)
	}
}
