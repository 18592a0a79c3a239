package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/danfe-xml-api/pkg/logger"
)

const keyPrefix = "danfe:rl:"

// counter subconjunto de *redis.Client que usa el limitador.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	PExpire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

// Redis ventana fija compartida entre instancias: INCR por cliente y expiración = window.
// Si Redis falla, decide el limitador en memoria de la instancia.
type Redis struct {
	client   counter
	window   time.Duration
	max      int64
	fallback *Memory
	log      *logger.Logger
}

// NewRedis construye el limitador sobre un cliente ya conectado.
func NewRedis(client counter, window time.Duration, max int, log *logger.Logger) *Redis {
	window, max = normalize(window, max)
	if log == nil {
		log = logger.Nop()
	}
	return &Redis{
		client:   client,
		window:   window,
		max:      int64(max),
		fallback: NewMemory(window, max),
		log:      log.Named("ratelimit"),
	}
}

// Allow cuenta la petición en la ventana actual del cliente.
func (l *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := keyPrefix + key
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		l.log.Warn().Err(err).Msg("redis indisponível, usando limite local")
		return l.fallback.Allow(ctx, key)
	}
	if n == 1 {
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			l.log.Warn().Err(err).Msg("não foi possível definir expiração da janela")
		}
	}
	if n <= l.max {
		return true, 0, nil
	}

	wait, err := l.client.PTTL(ctx, k).Result()
	if err != nil || wait <= 0 {
		// Clave sin expiración (p. ej. PExpire falló): se corrige aquí.
		_ = l.client.PExpire(ctx, k, l.window).Err()
		wait = l.window
	}
	return false, wait, nil
}

// NewRedisClient conecta con REDIS_URL y verifica con PING.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: URL do Redis inválida: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ratelimit: ping no Redis: %w", err)
	}
	return client, nil
}
