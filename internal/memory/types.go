package memory

import (
	"errors"
	"time"

	"github.com/sirenlabs/siren/go-pipeline/internal/gate"
)

// #region errors

// ErrSinkUnavailable marks a failed write to the record store. Recoverable:
// records are buffered or dropped per policy and decoding is never affected.
var ErrSinkUnavailable = errors.New("memory: record sink unavailable")

// #endregion errors

// #region scored-candidate

// ScoredCandidate is the per-candidate slice of a record's top-K payload.
type ScoredCandidate struct {
	Token     string  `json:"token"`
	Vocab     string  `json:"vocab"`
	BaseScore float64 `json:"base_score"`
	NormBase  float64 `json:"norm_base"`
	Fidelity  float64 `json:"fidelity"`
	Resonance float64 `json:"resonance"`
}

// #endregion scored-candidate

// #region emission-record

// Record actions. EmitDefault covers ordinary steps; SuppressedCandidate
// marks steps where a qualifying candidate existed but the gate held it
// back (hysteresis or cooldown).
const (
	ActionEmitCandidate       = string(gate.ActionEmitCandidate)
	ActionEmitDefault         = string(gate.ActionEmitDefault)
	ActionSuppressedCandidate = "suppressed_candidate"
)

// EmissionRecord is one immutable log entry: the complete forensic trail of
// a single decode-step decision. Appended exactly once per step, whether the
// step emitted or not; never edited or deleted, only appended and optionally
// compacted.
type EmissionRecord struct {
	SessionID string
	Seq       int64 // session-scoped sequence number; authoritative for order
	StepIndex int64
	CreatedAt time.Time
	Action    string
	Token     string // the token surfaced this step
	Vocab     string
	Resonance float64
	Entropy   float64

	// Gate inputs exactly as evaluated this step, persisted so replay never
	// has to infer them from the candidate snapshot.
	HasCandidate bool    // a non-default contender was in play
	NormBase     float64 // the contender's normalized base confidence

	TopK      []ScoredCandidate // may be nil after compaction
	GateState gate.State        // snapshot after the evaluation
}

// #endregion emission-record

// #region session-stats

// SessionStats aggregates one session's decision history for the symbolic
// tolerance signal.
type SessionStats struct {
	SessionID  string
	Emitted    int64 // emit_candidate records
	Suppressed int64 // suppressed_candidate records
	Defaults   int64 // emit_default records
}

// #endregion session-stats
