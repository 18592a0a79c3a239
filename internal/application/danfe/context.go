package danfe

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	sourceKey
)

// Orígenes de una petición, usados en logs y auditoría.
const (
	SourceHTTP  = "http"
	SourceMCP   = "mcp"
	SourceStdio = "stdio"
	SourceCLI   = "cli"
)

// WithRequestID adjunta el id de petición que se devuelve en el envoltorio.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom devuelve el id de petición o "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithSource indica por qué entrada llegó la petición.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey, source)
}

// SourceFrom devuelve el origen o "".
func SourceFrom(ctx context.Context) string {
	s, _ := ctx.Value(sourceKey).(string)
	return s
}
