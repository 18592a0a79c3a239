package entity

import "time"

// RetrievalLog registro de auditoría de una recuperación. Nunca guarda el documento
// ni la chave completa.
type RetrievalLog struct {
	ID          string
	ChaveMasked string
	Source      string // http, mcp, stdio, cli
	Code        string // OK o el código del error
	FileName    string
	Attempts    int
	DurationMs  int64
	CreatedAt   time.Time
}
