// Package ratelimit limita peticiones por cliente. Memory vale para una sola instancia;
// Redis comparte el cupo entre instancias y cae a Memory si Redis no responde.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter lo cumplen Memory y Redis.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// Memory token bucket por cliente (golang.org/x/time/rate): max peticiones de ráfaga
// que se reponen a lo largo de window.
type Memory struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	window  time.Duration
	swept   time.Time
	now     func() time.Time
}

type client struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewMemory construye el limitador. max < 1 se trata como 1.
func NewMemory(window time.Duration, max int) *Memory {
	window, max = normalize(window, max)
	return &Memory{
		clients: make(map[string]*client),
		limit:   rate.Every(window / time.Duration(max)),
		burst:   max,
		window:  window,
		swept:   time.Now(),
		now:     time.Now,
	}
}

// Allow consume un token del cliente. Si no hay, devuelve la espera sugerida.
func (l *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > l.window {
		for k, cl := range l.clients {
			if now.Sub(cl.lastSeen) > l.window {
				delete(l.clients, k)
			}
		}
		l.swept = now
	}
	cl, ok := l.clients[key]
	if !ok {
		cl = &client{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = cl
	}
	cl.lastSeen = now

	r := cl.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

func normalize(window time.Duration, max int) (time.Duration, int) {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return window, max
}
