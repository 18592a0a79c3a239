package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/danfe-xml-api/internal/bootstrap"
	"github.com/jhoicas/danfe-xml-api/internal/interfaces/mcp"
	"github.com/jhoicas/danfe-xml-api/pkg/config"
	"github.com/jhoicas/danfe-xml-api/pkg/logger"
)

// stdout transporta el protocolo; todo log va a stderr.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("carregar configuração: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Env:    cfg.App.Env,
		Level:  cfg.App.LogLevel,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.Build(ctx, cfg, nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicialização")
	}
	defer deps.Close()

	server := mcp.NewServer(deps.UseCase, mcp.ServerInfo{Name: "danfe-downloader", Version: bootstrap.Version}, log)
	log.Info().Str("portal", cfg.Browser.PortalURL).Msg("servidor stdio pronto")

	if err := server.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("servidor stdio finalizado com erro")
		return
	}
	log.Info().Msg("servidor stdio finalizado")
}
