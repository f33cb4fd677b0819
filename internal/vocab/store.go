package vocab

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/sirenlabs/siren/go-pipeline/internal/embedding"
	_ "modernc.org/sqlite"
)

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS vocab_tokens (
	vocab     TEXT NOT NULL,
	token     TEXT NOT NULL,
	embedding BLOB NOT NULL,
	PRIMARY KEY (vocab, token)
);
`

// #endregion schema

// #region entry

// Entry is one auxiliary-vocabulary token with its pre-aligned embedding.
type Entry struct {
	Token     string
	Vocab     string
	Embedding embedding.Vector
}

// #endregion entry

// #region store

// Store persists auxiliary vocabulary embeddings in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open vocab db: %w", err)
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

// Add upserts a batch of entries in one transaction.
func (s *Store) Add(entries []Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO vocab_tokens (vocab, token, embedding) VALUES (?, ?, ?)
		 ON CONFLICT(vocab, token) DO UPDATE SET embedding = excluded.embedding`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Vocab, e.Token, encodeVector(e.Embedding)); err != nil {
			return fmt.Errorf("insert token %q: %w", e.Token, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of stored tokens.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM vocab_tokens`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// LoadAll reads every entry, ordered by (vocab, token) for determinism.
func (s *Store) LoadAll() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT vocab, token, embedding FROM vocab_tokens ORDER BY vocab ASC, token ASC`)
	if err != nil {
		return nil, fmt.Errorf("load vocab: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var blob []byte
		if err := rows.Scan(&e.Vocab, &e.Token, &blob); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Embedding = decodeVector(blob)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion store

// #region vector-encoding

func encodeVector(v embedding.Vector) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) embedding.Vector {
	v := make(embedding.Vector, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// #endregion vector-encoding
