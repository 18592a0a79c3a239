// Package poll implementa la espera acotada por sondeo: un predicado se evalúa
// hasta maxAttempts veces separado por interval.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted se devuelve cuando se agotan los intentos sin que el predicado se cumpla.
var ErrExhausted = errors.New("poll: tentativas esgotadas")

// Func devuelve done=true para terminar con éxito o un error para abortar.
// attempt empieza en 1.
type Func func(ctx context.Context, attempt int) (done bool, err error)

// Until evalúa fn hasta que devuelva done, un error, se agoten los intentos o se cancele ctx.
// El primer intento es inmediato; entre intentos espera interval.
func Until(ctx context.Context, interval time.Duration, maxAttempts int, fn Func) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		done, err := fn(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		if err := Sleep(ctx, interval); err != nil {
			return err
		}
	}
	return ErrExhausted
}

// Sleep espera d o hasta que ctx se cancele.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
