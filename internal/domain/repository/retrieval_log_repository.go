package repository

import (
	"context"

	"github.com/jhoicas/danfe-xml-api/internal/domain/entity"
)

// RetrievalLogRepository persistencia de la auditoría de recuperaciones.
type RetrievalLogRepository interface {
	Record(ctx context.Context, log *entity.RetrievalLog) error
}
