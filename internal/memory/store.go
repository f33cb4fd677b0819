package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirenlabs/siren/go-pipeline/internal/gate"
	_ "modernc.org/sqlite"
)

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS emission_records (
	session_id  TEXT    NOT NULL,
	seq         INTEGER NOT NULL,
	step_index  INTEGER NOT NULL,
	created_at  TEXT    NOT NULL,
	action      TEXT    NOT NULL,
	token       TEXT,
	vocab       TEXT,
	resonance   REAL    NOT NULL,
	entropy     REAL    NOT NULL,
	has_cand    INTEGER NOT NULL DEFAULT 0,
	norm_base   REAL    NOT NULL DEFAULT 0,
	top_k_json  TEXT,
	gate_json   TEXT    NOT NULL,
	PRIMARY KEY (session_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_emission_token   ON emission_records(token);
CREATE INDEX IF NOT EXISTS idx_emission_created ON emission_records(created_at);
`

// #endregion schema

// #region store

// Store is the append-only emission record store. Records are never updated
// or deleted; Compact only trims old top-K payloads.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by inspection tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store

// #region append

// Append writes one record, assigning the next session-scoped sequence
// number inside the transaction. Sequence numbers, not wall-clock time, are
// authoritative for per-session order, so appends stay monotonic even when
// multiple processes share one store.
func (s *Store) Append(rec EmissionRecord) (int64, error) {
	gateJSON, err := json.Marshal(rec.GateState)
	if err != nil {
		return 0, fmt.Errorf("marshal gate state: %w", err)
	}

	var topKPtr interface{}
	if len(rec.TopK) > 0 {
		b, err := json.Marshal(rec.TopK)
		if err != nil {
			return 0, fmt.Errorf("marshal top-k: %w", err)
		}
		topKPtr = string(b)
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRow(
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM emission_records WHERE session_id = ?`,
		rec.SessionID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO emission_records
		 (session_id, seq, step_index, created_at, action, token, vocab, resonance, entropy, has_cand, norm_base, top_k_json, gate_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, seq, rec.StepIndex,
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.Action, nullIfEmpty(rec.Token), nullIfEmpty(rec.Vocab),
		rec.Resonance, rec.Entropy, boolToInt(rec.HasCandidate), rec.NormBase,
		topKPtr, string(gateJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return seq, nil
}

// #endregion append

// #region queries

const selectCols = `session_id, seq, step_index, created_at, action, token, vocab, resonance, entropy, has_cand, norm_base, top_k_json, gate_json`

// QueryBySession returns a session's records in sequence order.
func (s *Store) QueryBySession(sessionID string) ([]EmissionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+selectCols+` FROM emission_records WHERE session_id = ? ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query by session: %w", err)
	}
	return scanRecords(rows)
}

// QueryByToken returns every record whose chosen token matches, in
// (session, sequence) order.
func (s *Store) QueryByToken(token string) ([]EmissionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+selectCols+` FROM emission_records WHERE token = ? ORDER BY session_id ASC, seq ASC`,
		token,
	)
	if err != nil {
		return nil, fmt.Errorf("query by token: %w", err)
	}
	return scanRecords(rows)
}

// QueryByTimeRange returns records created in [from, to), in
// (session, sequence) order.
func (s *Store) QueryByTimeRange(from, to time.Time) ([]EmissionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+selectCols+` FROM emission_records
		 WHERE created_at >= ? AND created_at < ?
		 ORDER BY session_id ASC, seq ASC`,
		from.UTC().Format(time.RFC3339Nano), to.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	return scanRecords(rows)
}

// SessionStats aggregates a session's decision counts.
func (s *Store) SessionStats(sessionID string) (SessionStats, error) {
	stats := SessionStats{SessionID: sessionID}
	rows, err := s.db.Query(
		`SELECT action, COUNT(*) FROM emission_records WHERE session_id = ? GROUP BY action`,
		sessionID,
	)
	if err != nil {
		return stats, fmt.Errorf("session stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var action string
		var n int64
		if err := rows.Scan(&action, &n); err != nil {
			return stats, fmt.Errorf("scan stats: %w", err)
		}
		switch action {
		case ActionEmitCandidate:
			stats.Emitted = n
		case ActionSuppressedCandidate:
			stats.Suppressed = n
		case ActionEmitDefault:
			stats.Defaults = n
		}
	}
	return stats, rows.Err()
}

// #endregion queries

// #region compact

// Compact trims the top-K payloads of records created before the cutoff.
// Decision fields are never touched; this is the only permitted mutation of
// stored records.
func (s *Store) Compact(before time.Time) (int64, error) {
	res, err := s.db.Exec(
		`UPDATE emission_records SET top_k_json = NULL
		 WHERE created_at < ? AND top_k_json IS NOT NULL`,
		before.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("compact: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// #endregion compact

// #region scan

func scanRecords(rows *sql.Rows) ([]EmissionRecord, error) {
	defer rows.Close()

	var records []EmissionRecord
	for rows.Next() {
		var rec EmissionRecord
		var token, vocab, topKJSON sql.NullString
		var createdStr, gateJSON string
		var hasCand int64

		if err := rows.Scan(
			&rec.SessionID, &rec.Seq, &rec.StepIndex, &createdStr, &rec.Action,
			&token, &vocab, &rec.Resonance, &rec.Entropy, &hasCand, &rec.NormBase,
			&topKJSON, &gateJSON,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		rec.HasCandidate = hasCand != 0
		if token.Valid {
			rec.Token = token.String
		}
		if vocab.Valid {
			rec.Vocab = vocab.String
		}
		if topKJSON.Valid {
			if err := json.Unmarshal([]byte(topKJSON.String), &rec.TopK); err != nil {
				return nil, fmt.Errorf("unmarshal top-k: %w", err)
			}
		}
		var st gate.State
		if err := json.Unmarshal([]byte(gateJSON), &st); err != nil {
			return nil, fmt.Errorf("unmarshal gate state: %w", err)
		}
		rec.GateState = st
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion scan
