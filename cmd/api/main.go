package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/danfe-xml-api/internal/bootstrap"
	httpRouter "github.com/jhoicas/danfe-xml-api/internal/interfaces/http"
	"github.com/jhoicas/danfe-xml-api/internal/interfaces/mcp"
	"github.com/jhoicas/danfe-xml-api/pkg/config"
	"github.com/jhoicas/danfe-xml-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("carregar configuração: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("portal", cfg.Browser.PortalURL).
		Bool("headless", cfg.Browser.Headless).
		Msg("iniciando aplicação")
	if !cfg.Browser.Headless && os.Getenv("DISPLAY") == "" {
		log.Warn().Msg("navegador visível sem DISPLAY: execute com xvfb-run ou defina BROWSER_HEADLESS=true")
	}

	ctx := context.Background()
	deps, err := bootstrap.Build(ctx, cfg, nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicialização")
	}
	defer deps.Close()

	limiter, closeLimiter, err := bootstrap.NewLimiter(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("limite de requisições")
	}
	defer closeLimiter()

	sessions := mcp.NewSessionManager(mcp.SessionOptions{
		TTL:      cfg.HTTP.SessionTTL,
		OnChange: deps.Metrics.SetActiveSessions,
	}, log)
	defer sessions.Close()

	// WriteTimeout cubre una descarga completa con reintentos.
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Minute * 10,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    (cfg.Browser.MaxFileSizeMB + 1) << 20,
		ErrorHandler: httpRouter.ErrorHandler(log),
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Danfe:          deps.UseCase,
		MCPServer:      mcp.NewServer(deps.UseCase, mcp.ServerInfo{Name: "danfe-downloader", Version: bootstrap.Version}, log),
		Sessions:       sessions,
		HTTPMetrics:    deps.Metrics,
		MetricsHandler: deps.Metrics.Handler(),
		Log:            log.Named("http"),
		Service:        cfg.App.Name,
		Version:        bootstrap.Version,
		JWTSecret:      cfg.JWT.Secret,
		JWTIssuer:      cfg.JWT.Issuer,
		Limiter:        limiter,
		AllowedHosts:   cfg.HTTP.AllowedHosts,
		HostProtection: cfg.HTTP.DNSRebindingProtection,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("sinal de desligamento recebido, encerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("desligamento do servidor")
	}

	log.Info().Msg("aplicação encerrada")
}
