package storage

import (
	"context"
	"fmt"
)

type LLMCallRecord struct {
	Operation    string
	ProviderName string
	Model        string
	Status       string
	ErrorType    string
	LatencyMS    int64
}

// LLMAuditRepo appends generator calls to quiz_llm_calls.
type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS quiz_llm_calls (
  call_id       UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  operation     TEXT NOT NULL,
  provider_name TEXT NOT NULL,
  model         TEXT NOT NULL,
  status        TEXT NOT NULL,
  error_type    TEXT,
  latency_ms    BIGINT NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("ensure llm audit schema: %w", err)
	}
	return nil
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec LLMCallRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO quiz_llm_calls(operation, provider_name, model, status, error_type, latency_ms)
VALUES ($1, $2, $3, $4, NULLIF($5,''), $6)`,
		rec.Operation, rec.ProviderName, rec.Model, rec.Status, rec.ErrorType, rec.LatencyMS)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}
