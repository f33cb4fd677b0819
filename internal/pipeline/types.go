package pipeline

// #region imports
import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/sirenlabs/siren/go-pipeline/internal/candidate"
	"github.com/sirenlabs/siren/go-pipeline/internal/embedding"
	"github.com/sirenlabs/siren/go-pipeline/internal/gate"
	"github.com/sirenlabs/siren/go-pipeline/internal/intent"
	"github.com/sirenlabs/siren/go-pipeline/internal/memory"
	"github.com/sirenlabs/siren/go-pipeline/internal/resonance"
	"github.com/sirenlabs/siren/go-pipeline/internal/strain"
)

// #endregion imports

// #region interfaces

// Embedder abstracts the embedding service so the pipeline can be tested
// without HTTP.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([]embedding.Vector, error)
}

// #endregion interfaces

// #region session

// Session holds everything scoped to one conversation: the gate state, the
// step counter, and the rolling context window. Decoding is strictly
// sequential per session; the mutex enforces that two steps of the same
// session never run concurrently. Nothing here is shared across sessions.
type Session struct {
	ID        string
	StepIndex int64
	GateState gate.State

	window     []intent.ContextItem
	lastIntent intent.Vector
	tolerance  float64
	tolAge     int64 // steps since the tolerance signal was refreshed

	mu sync.Mutex
}

// NewSession creates a fresh session with reset gate state.
func NewSession(id string) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	return &Session{
		ID:        id,
		GateState: gate.NewState(),
	}
}

// #endregion session

// #region step-io

// StepInput is one decoding step's raw material: the decoder's native top-K
// (token + logit), the recent context tokens, and the entropy signal.
type StepInput struct {
	ContextTokens []string // most-recent-last
	Suppressed    []bool   // optional per-position suppression flags
	Native        []NativeToken
	Probs         []float64 // optional decoder probabilities, entropy fallback
	Entropy       float64
	HasEntropy    bool
	TimestampUnix int64 // step wall clock, injectable for replay determinism
}

// NativeToken is one native-vocabulary proposal from the decoder.
type NativeToken struct {
	Token string
	Logit float64
}

// StepOutcome is the pipeline's per-step emission decision.
type StepOutcome struct {
	SessionID string
	StepIndex int64
	Action    string // memory.Action* value
	Token     string // the token to surface
	Vocab     string
	Resonance float64
	Alpha     float64
	Entropy   strain.Value
	Intent    intent.Vector
	Ranked    []resonance.Scored
	Gate      gate.Decision
	GateState gate.State
	Degraded  []string // degradation kinds hit during this step
}

// #endregion step-io

// #region config

// Options bundles the pipeline's sub-configurations.
type Options struct {
	Gate           gate.Config
	Alpha          resonance.AlphaConfig
	Generator      candidate.GeneratorConfig
	IntentStyle    IntentStyle
	RecordTopK     int   // scored candidates kept per emission record
	ToleranceEvery int64 // refresh the tolerance signal every N steps
}

// IntentStyle selects and tunes the online intent builder.
type IntentStyle struct {
	Method intent.Method
	Window int
	Stride int
	SIFA   float64
	IDF    map[string]float64
	Boost  float64
}

// DefaultOptions returns the reference pipeline options.
func DefaultOptions() Options {
	return Options{
		Gate:      gate.DefaultConfig(),
		Alpha:     resonance.DefaultAlphaConfig(),
		Generator: candidate.DefaultGeneratorConfig(),
		IntentStyle: IntentStyle{
			Method: intent.MethodMean,
			Window: 8,
			Stride: 1,
			SIFA:   1e-3,
			Boost:  1.5,
		},
		RecordTopK:     5,
		ToleranceEvery: 16,
	}
}

// #endregion config

// #region recorder-interface

// RecordSink receives one emission record per step, fire-and-forget.
// *memory.Recorder satisfies it; tests use an in-memory sink.
type RecordSink interface {
	Record(rec memory.EmissionRecord) bool
}

// StatsSource reads a session's aggregated history for the tolerance signal.
// *memory.Store satisfies it.
type StatsSource interface {
	SessionStats(sessionID string) (memory.SessionStats, error)
}

// #endregion recorder-interface
