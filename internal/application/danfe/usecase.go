// Package danfe orquesta la recuperación del XML, su normalización y la limpieza del
// archivo transitorio. Es el único punto que usan las entradas HTTP, MCP y CLI.
package danfe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/jhoicas/danfe-xml-api/internal/application/dto"
	"github.com/jhoicas/danfe-xml-api/internal/domain"
	"github.com/jhoicas/danfe-xml-api/internal/domain/entity"
	"github.com/jhoicas/danfe-xml-api/internal/domain/repository"
	"github.com/jhoicas/danfe-xml-api/pkg/logger"
	"github.com/jhoicas/danfe-xml-api/pkg/nfe"
	"github.com/jhoicas/danfe-xml-api/pkg/poll"
)

// CodeOK código registrado en métricas y auditoría cuando la operación termina bien.
const CodeOK = "OK"

const auditTimeout = 3 * time.Second

// Options política de concurrencia y reintentos.
type Options struct {
	MaxConcurrent     int           // sesiones de navegador simultáneas
	RetrievalAttempts int           // intentos ante fallos reintentables
	RetryBackoff      time.Duration // espera base entre intentos (lineal)
}

// UseCase caso de uso de descarga, lectura y PDF de NF-e.
type UseCase struct {
	retriever DocumentRetriever
	parser    DocumentParser
	renderer  PDFRenderer
	audit     repository.RetrievalLogRepository
	metrics   Metrics
	log       *logger.Logger
	sem       *semaphore.Weighted
	opts      Options
	now       func() time.Time
}

// NewUseCase construye el caso de uso. audit, renderer y metrics pueden ser nil.
func NewUseCase(
	retriever DocumentRetriever,
	parser DocumentParser,
	renderer PDFRenderer,
	audit repository.RetrievalLogRepository,
	metrics Metrics,
	log *logger.Logger,
	opts Options,
) *UseCase {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.RetrievalAttempts < 1 {
		opts.RetrievalAttempts = 1
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		retriever: retriever,
		parser:    parser,
		renderer:  renderer,
		audit:     audit,
		metrics:   metrics,
		log:       log.Named("danfe"),
		sem:       semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		opts:      opts,
		now:       time.Now,
	}
}

// Download valida la chave, recupera el XML del portal, lo normaliza y borra el archivo.
// Siempre devuelve el envoltorio; err no es nil cuando Success es false.
func (uc *UseCase) Download(ctx context.Context, key string) (*dto.ToolResult, error) {
	started := uc.now()
	key = strings.TrimSpace(key)
	log := uc.log.WithField("chave", nfe.MaskAccessKey(key))
	if id := RequestIDFrom(ctx); id != "" {
		log = log.WithField("request_id", id)
	}

	rec, fileName, attempts, err := uc.download(ctx, log, key)
	elapsed := uc.now().Sub(started)

	code := CodeOK
	if err != nil {
		code = domain.Code(err)
		log.Warn().Err(err).Str("code", code).Int("tentativas", attempts).Dur("duracao", elapsed).Msg("download falhou")
	} else {
		log.Info().Str("arquivo", fileName).Int("itens", len(rec.Produtos)).Dur("duracao", elapsed).Msg("NF-e processada")
	}
	uc.metrics.RetrievalFinished(code, attempts, elapsed)
	uc.record(ctx, log, &entity.RetrievalLog{
		ChaveMasked: nfe.MaskAccessKey(key),
		Code:        code,
		FileName:    fileName,
		Attempts:    attempts,
		DurationMs:  elapsed.Milliseconds(),
	})

	res := uc.envelope(ctx, key, fileName, started, err)
	res.Data = rec
	return res, err
}

func (uc *UseCase) download(ctx context.Context, log *logger.Logger, key string) (*entity.FiscalRecord, string, int, error) {
	if err := nfe.ValidateAccessKey(key); err != nil {
		return nil, "", 0, err
	}

	if err := uc.sem.Acquire(ctx, 1); err != nil {
		return nil, "", 0, domain.NewFailure(domain.ErrAutomation, "Queued", 0, err)
	}
	defer uc.sem.Release(1)
	uc.metrics.RetrievalStarted()

	payload, attempts, err := uc.retrieve(ctx, log, key)
	if err != nil {
		return nil, "", attempts, err
	}
	defer uc.cleanup(log, payload)

	rec, err := uc.parser.Parse(payload.Data)
	if err != nil {
		return nil, payload.FileName, attempts, err
	}
	if rec.NFe.ChaveAcesso != key {
		return nil, payload.FileName, attempts, fmt.Errorf("%w: XML pertence à chave %s",
			domain.ErrPayloadInvalid, nfe.MaskAccessKey(rec.NFe.ChaveAcesso))
	}
	return rec, payload.FileName, attempts, nil
}

// retrieve reintenta solo los fallos reintentables, con espera lineal entre intentos.
func (uc *UseCase) retrieve(ctx context.Context, log *logger.Logger, key string) (*entity.RawPayload, int, error) {
	var lastErr error
	for attempt := 1; attempt <= uc.opts.RetrievalAttempts; attempt++ {
		payload, err := uc.retriever.Retrieve(ctx, key)
		if err == nil {
			return payload, attempt, nil
		}
		lastErr = err
		if !domain.Retryable(err) || attempt == uc.opts.RetrievalAttempts {
			return nil, attempt, err
		}
		log.Warn().Err(err).Int("tentativa", attempt).Msg("falha reintentável, tentando de novo")
		if serr := poll.Sleep(ctx, time.Duration(attempt)*uc.opts.RetryBackoff); serr != nil {
			return nil, attempt, lastErr
		}
	}
	return nil, uc.opts.RetrievalAttempts, lastErr
}

// cleanup borra el XML transitorio; un fallo solo se registra.
func (uc *UseCase) cleanup(log *logger.Logger, p *entity.RawPayload) {
	if p.Path == "" {
		return
	}
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("arquivo", p.FileName).Msg("não foi possível remover o XML temporário")
	}
}

// ParseUpload normaliza un XML entregado por el cliente, sin pasar por el portal.
func (uc *UseCase) ParseUpload(ctx context.Context, data []byte, fileName string) (*dto.ToolResult, error) {
	started := uc.now()
	rec, err := uc.parse(data)
	elapsed := uc.now().Sub(started)

	code := CodeOK
	if err != nil {
		code = domain.Code(err)
		uc.log.Debug().Err(err).Str("arquivo", fileName).Msg("XML enviado rejeitado")
	}
	uc.metrics.ParseFinished(code, elapsed)

	key := ""
	if rec != nil {
		key = rec.NFe.ChaveAcesso
	}
	res := uc.envelope(ctx, key, fileName, started, err)
	res.Data = rec
	return res, err
}

func (uc *UseCase) parse(data []byte) (*entity.FiscalRecord, error) {
	if err := uc.parser.Validate(data); err != nil {
		return nil, err
	}
	return uc.parser.Parse(data)
}

// RenderPDF genera el resumen DANFE del registro. Devuelve los bytes y el nombre sugerido.
func (uc *UseCase) RenderPDF(ctx context.Context, rec *entity.FiscalRecord) ([]byte, string, error) {
	if uc.renderer == nil {
		return nil, "", errors.New("danfe: gerador de PDF não configurado")
	}
	if rec == nil {
		return nil, "", fmt.Errorf("%w: registro vazio", domain.ErrInvalidInput)
	}
	pdf, err := uc.renderer.Render(rec)
	if err != nil {
		return nil, "", fmt.Errorf("danfe: gerar PDF: %w", err)
	}
	return pdf, "DANFE-" + rec.NFe.ChaveAcesso + ".pdf", nil
}

// PDFFromXML valida y normaliza el XML y genera su PDF.
func (uc *UseCase) PDFFromXML(ctx context.Context, data []byte) ([]byte, string, error) {
	rec, err := uc.parse(data)
	if err != nil {
		return nil, "", err
	}
	return uc.RenderPDF(ctx, rec)
}

// ── Soporte ───────────────────────────────────────────────────────────────────

func (uc *UseCase) envelope(ctx context.Context, key, fileName string, started time.Time, err error) *dto.ToolResult {
	now := uc.now()
	res := &dto.ToolResult{
		Success:     err == nil,
		ChaveAcesso: key,
		FileName:    fileName,
		Timestamp:   now.UTC().Format(dto.TimestampLayout),
		RequestID:   RequestIDFrom(ctx),
		DurationMs:  now.Sub(started).Milliseconds(),
	}
	if err != nil {
		res.Error = domain.PublicMessage(err)
		res.Code = domain.Code(err)
		res.Retryable = domain.Retryable(err)
	}
	return res
}

// record guarda la auditoría sin bloquear ni fallar la respuesta.
func (uc *UseCase) record(ctx context.Context, log *logger.Logger, entry *entity.RetrievalLog) {
	if uc.audit == nil {
		return
	}
	entry.ID = uuid.NewString()
	entry.Source = SourceFrom(ctx)
	entry.CreatedAt = uc.now().UTC()

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := uc.audit.Record(actx, entry); err != nil {
		log.Warn().Err(err).Msg("não foi possível gravar auditoria")
	}
}
