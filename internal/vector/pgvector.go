package vector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"quizforge/internal/storage"
)

// PGStore keeps chunks in Postgres with a pgvector column and lets the
// database order by cosine distance.
type PGStore struct {
	db  *storage.DB
	dim int
}

func NewPGStore(db *storage.DB, dim int) *PGStore {
	return &PGStore{db: db, dim: dim}
}

// EnsureSchema creates the extension, table and indexes when missing.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS quiz_chunks (
  chunk_id   TEXT PRIMARY KEY,
  docset_id  TEXT NOT NULL,
  source     TEXT NOT NULL,
  ordinal    INT NOT NULL,
  text       TEXT NOT NULL,
  embedding  vector(%d) NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.dim),
		`CREATE INDEX IF NOT EXISTS quiz_chunks_docset_idx ON quiz_chunks (docset_id, source, ordinal)`,
	}
	for _, q := range stmts {
		if _, err := s.db.Pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("ensure pgvector schema: %w", err)
		}
	}
	return nil
}

func (s *PGStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx upsert chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	for _, r := range records {
		_, err := tx.Exec(ctx, `
INSERT INTO quiz_chunks (chunk_id, docset_id, source, ordinal, text, embedding)
VALUES ($1, $2, $3, $4, $5, $6::vector)
ON CONFLICT (chunk_id)
DO UPDATE SET
  source = EXCLUDED.source,
  ordinal = EXCLUDED.ordinal,
  text = EXCLUDED.text,
  embedding = EXCLUDED.embedding`,
			r.ID, r.DocsetID, r.Source, r.Ordinal, r.Text, ToLiteral(r.Embedding),
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

func (s *PGStore) Query(ctx context.Context, docsetID string, vec []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}
	rows, err := s.db.Pool.Query(ctx, `
SELECT chunk_id, docset_id, source, ordinal, text, embedding <=> $2::vector AS distance
FROM quiz_chunks
WHERE docset_id = $1
ORDER BY embedding <=> $2::vector
LIMIT $3`, docsetID, ToLiteral(vec), topK)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	out := make([]Match, 0, topK)
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.DocsetID, &m.Source, &m.Ordinal, &m.Text, &m.Distance); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return out, nil
}

func (s *PGStore) All(ctx context.Context, docsetID string, limit int) ([]Record, error) {
	q := `SELECT chunk_id, docset_id, source, ordinal, text FROM quiz_chunks WHERE docset_id = $1 ORDER BY source, ordinal`
	args := []any{docsetID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 64)
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.DocsetID, &r.Source, &r.Ordinal, &r.Text); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func (s *PGStore) Count(ctx context.Context, docsetID string) (int, error) {
	var n int
	if err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM quiz_chunks WHERE docset_id = $1`, docsetID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func (s *PGStore) DeleteDocset(ctx context.Context, docsetID string) error {
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM quiz_chunks WHERE docset_id = $1`, docsetID); err != nil {
		return fmt.Errorf("delete docset %s: %w", docsetID, err)
	}
	return nil
}

func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}

// ToLiteral renders v in pgvector's text input format.
func ToLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// DB exposes the connection so other tables can share it.
func (s *PGStore) DB() *storage.DB { return s.db }
