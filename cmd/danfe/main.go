package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jhoicas/danfe-xml-api/internal/application/danfe"
	"github.com/jhoicas/danfe-xml-api/internal/application/dto"
	"github.com/jhoicas/danfe-xml-api/internal/bootstrap"
	"github.com/jhoicas/danfe-xml-api/pkg/config"
	"github.com/jhoicas/danfe-xml-api/pkg/logger"
)

func main() {
	var (
		key     = flag.String("chave", "", "chave de acesso (44 dígitos) a baixar do portal")
		file    = flag.String("file", "", "XML local a interpretar em vez de baixar")
		pdfOut  = flag.String("pdf", "", "grava também o resumo DANFE em PDF neste caminho")
		verbose = flag.Bool("v", false, "log em nível debug")
	)
	flag.Parse()
	if (*key == "") == (*file == "") {
		fmt.Fprintln(os.Stderr, "uso: danfe -chave <44 dígitos> | -file <nota.xml> [-pdf saida.pdf]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "carregar configuração:", err)
		os.Exit(1)
	}
	level := cfg.App.LogLevel
	if *verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Env: "development", Level: level, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = danfe.WithSource(ctx, danfe.SourceCLI)

	deps, err := bootstrap.Build(ctx, cfg, nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicialização")
	}

	code := run(ctx, deps.UseCase, *key, *file, *pdfOut, log)
	deps.Close()
	stop()
	os.Exit(code)
}

func run(ctx context.Context, uc *danfe.UseCase, key, file, pdfOut string, log *logger.Logger) int {
	var (
		res *dto.ToolResult
		err error
	)
	if file != "" {
		data, rerr := os.ReadFile(file)
		if rerr != nil {
			log.Error().Err(rerr).Str("arquivo", file).Msg("não foi possível ler o XML")
			return 1
		}
		res, err = uc.ParseUpload(ctx, data, filepath.Base(file))
	} else {
		res, err = uc.Download(ctx, key)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if eerr := enc.Encode(res); eerr != nil {
		log.Error().Err(eerr).Msg("não foi possível escrever o resultado")
		return 1
	}
	if err != nil {
		return 1
	}

	if pdfOut != "" {
		pdf, _, perr := uc.RenderPDF(ctx, res.Data)
		if perr != nil {
			log.Error().Err(perr).Msg("não foi possível gerar o PDF")
			return 1
		}
		if werr := os.WriteFile(pdfOut, pdf, 0o644); werr != nil {
			log.Error().Err(werr).Str("arquivo", pdfOut).Msg("não foi possível gravar o PDF")
			return 1
		}
		log.Info().Str("arquivo", pdfOut).Msg("PDF gravado")
	}
	return 0
}
