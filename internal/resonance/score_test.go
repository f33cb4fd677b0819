package resonance

import (
	"math"
	"testing"

	"github.com/sirenlabs/siren/go-pipeline/internal/candidate"
	"github.com/sirenlabs/siren/go-pipeline/internal/embedding"
	"github.com/sirenlabs/siren/go-pipeline/internal/intent"
)

func probeIntent(t *testing.T, terms ...embedding.Vector) intent.Vector {
	t.Helper()
	iv, err := intent.Probe(terms)
	if err != nil {
		t.Fatalf("probe intent: %v", err)
	}
	return iv
}

func TestScoreStaysInUnitInterval(t *testing.T) {
	iv := probeIntent(t, embedding.Vector{1, 0, 0})
	cases := []struct {
		base    float64
		isLogit bool
		emb     embedding.Vector
		alpha   float64
	}{
		{12.0, true, embedding.Vector{1, 0, 0}, 0.5},
		{-12.0, true, embedding.Vector{-1, 0, 0}, 0.5},
		{0.5, false, embedding.Vector{0, 1, 0}, 0.0},
		{1.5, false, embedding.Vector{0, 0, 1}, 1.0},
		{0.2, false, nil, 2.0}, // alpha out of range clamps
	}
	for i, c := range cases {
		s := Score(c.base, c.emb, iv, c.alpha, c.isLogit)
		if s < 0 || s > 1 {
			t.Fatalf("case %d: score %.4f outside [0,1]", i, s)
		}
	}
}

func TestScoreMonotoneInEachTerm(t *testing.T) {
	iv := probeIntent(t, embedding.Vector{1, 0})

	// Fixed fidelity, rising base score.
	emb := embedding.Vector{1, 0}
	low := Score(-1.0, emb, iv, 0.5, true)
	high := Score(2.0, emb, iv, 0.5, true)
	if high <= low {
		t.Fatalf("score must rise with base score: %.4f <= %.4f", high, low)
	}

	// Fixed base, rising fidelity.
	far := Score(0.0, embedding.Vector{-1, 0}, iv, 0.5, true)
	near := Score(0.0, embedding.Vector{1, 0}, iv, 0.5, true)
	if near <= far {
		t.Fatalf("score must rise with fidelity: %.4f <= %.4f", near, far)
	}
}

func TestAlphaOneIsPureBaseRanking(t *testing.T) {
	iv := probeIntent(t, embedding.Vector{1, 0})
	cands := []candidate.Candidate{
		{Token: "close", Vocab: "aux", Embedding: embedding.Vector{1, 0}, BaseScore: -2.0, BaseIsLogit: true},
		{Token: "far", Vocab: "native", Embedding: embedding.Vector{-1, 0}, BaseScore: 2.0, BaseIsLogit: true},
	}

	ranked := Rank(cands, iv, 1.0)
	if ranked[0].Candidate.Token != "far" {
		t.Fatalf("alpha=1 must rank by base score alone, got %s first", ranked[0].Candidate.Token)
	}

	ranked = Rank(cands, iv, 0.0)
	if ranked[0].Candidate.Token != "close" {
		t.Fatalf("alpha=0 must rank by fidelity alone, got %s first", ranked[0].Candidate.Token)
	}
}

func TestRankIsDeterministicOnTies(t *testing.T) {
	iv := probeIntent(t, embedding.Vector{1, 0})
	cands := []candidate.Candidate{
		{Token: "beta", Vocab: "aux", Embedding: embedding.Vector{1, 0}, BaseScore: 0.5},
		{Token: "alpha", Vocab: "aux", Embedding: embedding.Vector{1, 0}, BaseScore: 0.5},
	}
	for range [10]struct{}{} {
		ranked := Rank(cands, iv, 0.5)
		if ranked[0].Candidate.Token != "alpha" {
			t.Fatalf("tie must break by token ascending, got %s", ranked[0].Candidate.Token)
		}
	}
}

// A probe intent over two concept terms lets low-probability tokens from
// other vocabularies outrank the decoder's native best when the blend leans
// toward fidelity.
func TestCrossVocabularyProbeScenario(t *testing.T) {
	maiden := embedding.Vector{1, 0, 0, 0}
	justice := embedding.Vector{0, 1, 0, 0}
	iv := probeIntent(t, maiden, justice)

	cands := []candidate.Candidate{
		{Token: "abduction", Vocab: "native", Embedding: embedding.Vector{0, 0, 1, 0}, BaseScore: 1.2, BaseIsLogit: true},
		{Token: "παρθένος", Vocab: "grc", Embedding: embedding.Vector{0.9, 0.1, 0, 0}, BaseScore: -1.5, BaseIsLogit: true},
		{Token: "တရား", Vocab: "mya", Embedding: embedding.Vector{0.1, 0.9, 0, 0}, BaseScore: -1.7, BaseIsLogit: true},
	}

	ranked := Rank(cands, iv, 0.2)
	if ranked[0].Candidate.Token != "παρθένος" {
		t.Fatalf("expected παρθένος first at alpha=0.2, got %s", ranked[0].Candidate.Token)
	}
	if ranked[1].Candidate.Token != "တရား" {
		t.Fatalf("expected တရား second at alpha=0.2, got %s", ranked[1].Candidate.Token)
	}

	// The same candidates under pure probability ranking keep the native
	// token on top.
	ranked = Rank(cands, iv, 1.0)
	if ranked[0].Candidate.Token != "abduction" {
		t.Fatalf("expected abduction first at alpha=1, got %s", ranked[0].Candidate.Token)
	}
}

func TestNormalizeBase(t *testing.T) {
	if got := NormalizeBase(0, true); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("sigmoid(0) = %.6f, want 0.5", got)
	}
	if got := NormalizeBase(1.7, false); got != 1 {
		t.Fatalf("probability input must clamp to 1, got %.4f", got)
	}
	if got := NormalizeBase(-0.3, false); got != 0 {
		t.Fatalf("probability input must clamp to 0, got %.4f", got)
	}
}

func TestFidelityHandlesZeroVectors(t *testing.T) {
	iv := probeIntent(t, embedding.Vector{1, 0})
	if got := Fidelity(nil, iv); got != 0.5 {
		t.Fatalf("missing embedding should score neutral fidelity, got %.4f", got)
	}
	if got := Fidelity(embedding.Vector{0, 0}, iv); got != 0.5 {
		t.Fatalf("zero embedding should score neutral fidelity, got %.4f", got)
	}
}
