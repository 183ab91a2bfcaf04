package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
  id         TEXT PRIMARY KEY,
  docset_id  TEXT NOT NULL,
  source     TEXT NOT NULL,
  ordinal    INTEGER NOT NULL,
  text       TEXT NOT NULL,
  embedding  BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS chunks_docset_idx ON chunks (docset_id, source, ordinal);`

// SQLiteStore persists the index in a single SQLite file. Similarity is
// computed in Go over the docset's rows.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) dir/index.db.
func OpenSQLiteStore(ctx context.Context, dir string) (*SQLiteStore, error) {
	dsn := "file:" + filepath.Join(dir, "index.db") + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite index: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (id, docset_id, source, ordinal, text, embedding)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
  source = excluded.source,
  ordinal = excluded.ordinal,
  text = excluded.text,
  embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, r.DocsetID, r.Source, r.Ordinal, r.Text, encodeVector(r.Embedding)); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, docsetID string, vec []float32, topK int) ([]Match, error) {
	records, err := s.All(ctx, docsetID, 0)
	if err != nil {
		return nil, err
	}
	return rankByDistance(records, vec, topK), nil
}

func (s *SQLiteStore) All(ctx context.Context, docsetID string, limit int) ([]Record, error) {
	q := `SELECT id, docset_id, source, ordinal, text, embedding FROM chunks WHERE docset_id = ? ORDER BY source, ordinal`
	args := []any{docsetID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 64)
	for rows.Next() {
		var (
			r    Record
			blob []byte
		)
		if err := rows.Scan(&r.ID, &r.DocsetID, &r.Source, &r.Ordinal, &r.Text, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		r.Embedding = decodeVector(blob)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Count(ctx context.Context, docsetID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE docset_id = ?`, docsetID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) DeleteDocset(ctx context.Context, docsetID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE docset_id = ?`, docsetID); err != nil {
		return fmt.Errorf("delete docset %s: %w", docsetID, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func encodeVector(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(x))
	}
	return b
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
