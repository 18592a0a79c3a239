package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/danfe-xml-api/internal/domain/entity"
	"github.com/jhoicas/danfe-xml-api/internal/domain/repository"
)

var _ repository.RetrievalLogRepository = (*RetrievalLogRepo)(nil)

const retrievalLogSchema = `
	CREATE TABLE IF NOT EXISTS retrieval_log (
		id           UUID PRIMARY KEY,
		chave_masked TEXT        NOT NULL,
		source       TEXT        NOT NULL DEFAULT '',
		code         TEXT        NOT NULL,
		file_name    TEXT        NOT NULL DEFAULT '',
		attempts     INTEGER     NOT NULL DEFAULT 0,
		duration_ms  BIGINT      NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_retrieval_log_created_at ON retrieval_log (created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_retrieval_log_code ON retrieval_log (code)`

// RetrievalLogRepo implementación de RetrievalLogRepository (usable con pool o tx).
type RetrievalLogRepo struct {
	q Querier
}

// NewRetrievalLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRetrievalLogRepository(q Querier) *RetrievalLogRepo {
	return &RetrievalLogRepo{q: q}
}

// EnsureSchema crea la tabla e índices si no existen.
func (r *RetrievalLogRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, retrievalLogSchema); err != nil {
		return fmt.Errorf("criar tabela retrieval_log: %w", err)
	}
	return nil
}

// Record inserta una fila. Un id repetido se ignora.
func (r *RetrievalLogRepo) Record(ctx context.Context, l *entity.RetrievalLog) error {
	query := `
		INSERT INTO retrieval_log (id, chave_masked, source, code, file_name, attempts, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.ChaveMasked, l.Source, l.Code, l.FileName, l.Attempts, l.DurationMs, l.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("inserir retrieval_log: %w", err)
	}
	return nil
}
