package danfe

import (
	"context"
	"time"

	"github.com/jhoicas/danfe-xml-api/internal/domain/entity"
)

// DocumentRetriever obtiene el XML de una NF-e desde el portal.
// Devuelve *domain.Failure clasificado; el archivo de Path pertenece al llamador.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, key string) (*entity.RawPayload, error)
}

// DocumentParser valida y normaliza XML de NF-e.
type DocumentParser interface {
	Validate(data []byte) error
	Parse(data []byte) (*entity.FiscalRecord, error)
}

// PDFRenderer genera el resumen DANFE en PDF.
type PDFRenderer interface {
	Render(rec *entity.FiscalRecord) ([]byte, error)
}

// Metrics recibe el resultado de cada operación. code es "OK" o el código del error.
type Metrics interface {
	RetrievalStarted()
	RetrievalFinished(code string, attempts int, d time.Duration)
	ParseFinished(code string, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RetrievalStarted()                            {}
func (nopMetrics) RetrievalFinished(string, int, time.Duration) {}
func (nopMetrics) ParseFinished(string, time.Duration)          {}
