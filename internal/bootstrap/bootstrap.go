// Package bootstrap arma las dependencias compartidas por los binarios de cmd/.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/danfe-xml-api/internal/application/danfe"
	"github.com/jhoicas/danfe-xml-api/internal/domain/repository"
	"github.com/jhoicas/danfe-xml-api/internal/infrastructure/browser"
	"github.com/jhoicas/danfe-xml-api/internal/infrastructure/meudanfe"
	"github.com/jhoicas/danfe-xml-api/internal/infrastructure/metrics"
	"github.com/jhoicas/danfe-xml-api/internal/infrastructure/nfexml"
	"github.com/jhoicas/danfe-xml-api/internal/infrastructure/pdf"
	"github.com/jhoicas/danfe-xml-api/internal/infrastructure/postgres"
	"github.com/jhoicas/danfe-xml-api/internal/infrastructure/ratelimit"
	"github.com/jhoicas/danfe-xml-api/pkg/config"
	"github.com/jhoicas/danfe-xml-api/pkg/logger"
)

// Version versión anunciada en /health y en initialize.
const Version = "1.0.0"

// App dependencias construidas a partir de la configuración.
type App struct {
	UseCase *danfe.UseCase
	Metrics *metrics.Metrics
	pool    *pgxpool.Pool
}

// Build construye navegador, lector, PDF, auditoría opcional, métricas y caso de uso.
// reg puede ser nil; en ese caso las métricas usan un registro propio.
func Build(ctx context.Context, cfg *config.Config, reg *prometheus.Registry, log *logger.Logger) (*App, error) {
	launcher := browser.NewChromeLauncher(browser.ChromeOptions{
		Headless:  cfg.Browser.Headless,
		ExecPath:  cfg.Browser.ExecPath,
		UserAgent: cfg.Browser.UserAgent,
		NoSandbox: cfg.Browser.NoSandbox,
	}, log)
	retrieverCfg := meudanfe.ConfigFrom(cfg.Browser)
	retriever := meudanfe.NewRetriever(launcher, retrieverCfg, log)

	reader := nfexml.NewReader()
	reader.MinPayloadBytes = retrieverCfg.MinPayloadBytes
	reader.MaxPayloadBytes = retrieverCfg.MaxPayloadBytes

	app := &App{Metrics: metrics.New(reg)}

	// Auditoría opcional: sin base configurada no se registra nada.
	var audit repository.RetrievalLogRepository
	if cfg.DB.Enabled() {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: conexão com PostgreSQL: %w", err)
		}
		repo := postgres.NewRetrievalLogRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("bootstrap: esquema de auditoria: %w", err)
		}
		app.pool = pool
		audit = repo
		log.Info().Msg("auditoria de consultas habilitada")
	}

	app.UseCase = danfe.NewUseCase(retriever, reader, pdf.NewDanfeGenerator(), audit, app.Metrics, log, danfe.Options{
		MaxConcurrent:     cfg.Browser.MaxConcurrent,
		RetrievalAttempts: cfg.Browser.RetrievalAttempts,
		RetryBackoff:      cfg.Browser.RetryBackoff,
	})
	return app, nil
}

// NewLimiter construye el límite de peticiones: nil si está deshabilitado, Redis si hay
// REDIS_URL, memoria en otro caso. closeFn libera la conexión y nunca es nil.
func NewLimiter(ctx context.Context, cfg *config.Config, log *logger.Logger) (ratelimit.Limiter, func(), error) {
	noop := func() {}
	if !cfg.RateLimit.Enabled {
		return nil, noop, nil
	}
	if cfg.Redis.URL == "" {
		return ratelimit.NewMemory(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests), noop, nil
	}
	client, err := ratelimit.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, noop, fmt.Errorf("bootstrap: %w", err)
	}
	log.Info().Msg("limite de requisições compartilhado via Redis")
	limiter := ratelimit.NewRedis(client, cfg.RateLimit.Window, cfg.RateLimit.MaxRequests, log)
	return limiter, func() { _ = client.Close() }, nil
}

// Close libera la conexión a la base, si la hay.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
