package domain

import "context"

// ProgressFunc recibe cada etapa que alcanza una operación larga.
type ProgressFunc func(stage string)

type progressKey struct{}

// WithProgress adjunta fn al contexto; las capas inferiores la invocan con ProgressFrom.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// ProgressFrom devuelve la función del contexto o una que no hace nada.
func ProgressFrom(ctx context.Context) ProgressFunc {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok && fn != nil {
		return fn
	}
	return func(string) {}
}
