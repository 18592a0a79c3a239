package meudanfe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jhoicas/danfe-xml-api/internal/domain"
	"github.com/jhoicas/danfe-xml-api/internal/domain/entity"
	"github.com/jhoicas/danfe-xml-api/internal/infrastructure/browser"
	"github.com/jhoicas/danfe-xml-api/internal/infrastructure/nfexml"
	"github.com/jhoicas/danfe-xml-api/pkg/logger"
	"github.com/jhoicas/danfe-xml-api/pkg/nfe"
	"github.com/jhoicas/danfe-xml-api/pkg/poll"
)

// State estado de la máquina de recuperación.
type State string

const (
	StateIdle             State = "Idle"
	StateLaunched         State = "Launched"
	StateNavigated        State = "Navigated"
	StateSubmitted        State = "Submitted"
	StateNotFound         State = "NotFound"
	StateResultsReady     State = "ResultsReady"
	StateTriggerVisible   State = "TriggerVisible"
	StateActivated        State = "Activated"
	StateDownloadCaptured State = "DownloadCaptured"
	StateValidated        State = "Validated"
	StateDone             State = "Done"
)

var errNotFound = errors.New("portal informou documento inexistente")

// Retriever ejecuta la recuperación completa de un XML. Cada llamada abre su propia
// sesión de navegador y la cierra al terminar, con éxito o con error.
type Retriever struct {
	launcher browser.Launcher
	cfg      Config
	log      *logger.Logger
}

// NewRetriever construye el Retriever.
func NewRetriever(launcher browser.Launcher, cfg Config, log *logger.Logger) *Retriever {
	if log == nil {
		log = logger.Nop()
	}
	return &Retriever{launcher: launcher, cfg: cfg, log: log.Named("meudanfe")}
}

// retrieval estado de una ejecución.
type retrieval struct {
	cfg     Config
	key     string
	log     *logger.Logger
	started time.Time
	state   State
	session browser.Session
	notify  domain.ProgressFunc
}

// Retrieve descarga el XML de la chave indicada y lo deja en DownloadsDir con el nombre
// sugerido por el portal. El llamador es dueño del archivo y debe borrarlo.
// Los errores son *domain.Failure con el estado en que ocurrieron.
func (r *Retriever) Retrieve(ctx context.Context, key string) (*entity.RawPayload, error) {
	run := &retrieval{
		cfg:     r.cfg,
		key:     key,
		log:     r.log.WithField("chave", nfe.MaskAccessKey(key)),
		started: time.Now(),
		state:   StateIdle,
		notify:  domain.ProgressFrom(ctx),
	}
	if len(key) != nfe.AccessKeyLength || strings.Trim(key, "0123456789") != "" {
		return nil, run.fail(domain.ErrInvalidInput, fmt.Errorf("chave deve ter %d dígitos", nfe.AccessKeyLength))
	}
	defer run.teardown()

	payload, err := run.execute(ctx, r.launcher)
	if err != nil {
		run.log.Warn().Err(err).Str("estado", string(run.state)).Msg("recuperação falhou")
		return nil, err
	}
	run.log.Info().
		Str("arquivo", payload.FileName).
		Int("bytes", payload.Size()).
		Dur("duracao", time.Since(run.started)).
		Msg("XML recuperado")
	return payload, nil
}

func (r *retrieval) execute(ctx context.Context, launcher browser.Launcher) (*entity.RawPayload, error) {
	session, err := launcher.Launch(ctx)
	if err != nil {
		return nil, r.fail(domain.ErrAutomation, err)
	}
	r.session = session
	r.transition(StateLaunched)

	if err := r.navigate(ctx); err != nil {
		return nil, err
	}
	if err := r.submit(ctx); err != nil {
		return nil, err
	}
	if err := r.awaitResults(ctx); err != nil {
		return nil, err
	}
	if err := r.stabilizeTrigger(ctx); err != nil {
		return nil, err
	}

	workDir, err := r.workDir()
	if err != nil {
		return nil, r.fail(domain.ErrAutomation, err)
	}
	defer os.RemoveAll(workDir)

	// La escucha de la descarga se registra antes del click.
	waiter, err := r.session.ExpectDownload(ctx, workDir)
	if err != nil {
		return nil, r.fail(domain.ErrAutomation, err)
	}
	if err := r.activate(ctx); err != nil {
		return nil, err
	}
	download, err := r.capture(ctx, waiter)
	if err != nil {
		return nil, err
	}
	payload, err := r.persist(download)
	if err != nil {
		return nil, err
	}
	if err := nfexml.ValidatePayload(payload.Data, r.cfg.MinPayloadBytes, r.cfg.MaxPayloadBytes); err != nil {
		_ = os.Remove(payload.Path)
		return nil, r.fail(domain.ErrPayloadInvalid, err)
	}
	r.transition(StateValidated)
	r.transition(StateDone)
	return payload, nil
}

// ── Etapas ────────────────────────────────────────────────────────────────────

func (r *retrieval) navigate(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(ctx, r.cfg.NavigationTimeout)
	defer cancel()
	if err := r.session.Navigate(navCtx, r.cfg.PortalURL, r.cfg.NavigationTimeout); err != nil {
		return r.fail(domain.ErrAutomation, err)
	}
	// Espera pasiva para que el desafío anti-bot se resuelva.
	if err := poll.Sleep(ctx, r.cfg.SettleDelay); err != nil {
		return r.fail(domain.ErrAutomation, err)
	}
	r.transition(StateNavigated)
	return nil
}

func (r *retrieval) submit(ctx context.Context) error {
	inCtx, cancel := context.WithTimeout(ctx, r.cfg.InputTimeout)
	defer cancel()
	if err := r.session.Fill(inCtx, r.cfg.SearchInputSelector, r.key); err != nil {
		return r.fail(domain.ErrAutomation, fmt.Errorf("campo de busca: %w", err))
	}
	if err := r.session.Click(inCtx, r.cfg.SearchButtonSelector); err != nil {
		return r.fail(domain.ErrAutomation, fmt.Errorf("botão de busca: %w", err))
	}
	r.transition(StateSubmitted)
	return nil
}

func (r *retrieval) awaitResults(ctx context.Context) error {
	var message string
	err := poll.Until(ctx, r.cfg.ResultPollInterval, r.cfg.ResultPollAttempts, func(ctx context.Context, attempt int) (bool, error) {
		html, err := r.session.HTML(ctx)
		if err != nil {
			// La página puede estar a mitad de un render; se reintenta.
			r.log.Debug().Err(err).Int("tentativa", attempt).Msg("snapshot indisponível")
			return false, nil
		}
		visible, err := r.session.VisibleText(ctx)
		if err != nil {
			visible = ""
		}
		c := ClassifyPage(html, visible, r.cfg)
		switch c.Outcome {
		case OutcomeNotFound:
			message = c.Message
			return false, errNotFound
		case OutcomeResultsReady:
			return true, nil
		}
		return false, nil
	})
	switch {
	case err == nil:
		r.transition(StateResultsReady)
		return nil
	case errors.Is(err, errNotFound):
		r.transition(StateNotFound)
		return r.fail(domain.ErrDocumentNotFound, fmt.Errorf("%w: %q", errNotFound, message))
	case errors.Is(err, poll.ErrExhausted):
		return r.fail(domain.ErrTriggerTimeout, fmt.Errorf("sem resultado após %d tentativas", r.cfg.ResultPollAttempts))
	default:
		return r.fail(domain.ErrAutomation, err)
	}
}

func (r *retrieval) stabilizeTrigger(ctx context.Context) error {
	var last browser.ElementState
	err := poll.Until(ctx, r.cfg.TriggerPollInterval, r.cfg.TriggerPollAttempts, func(ctx context.Context, _ int) (bool, error) {
		st, err := r.session.ElementState(ctx, r.cfg.DownloadSelector)
		if err != nil {
			return false, nil
		}
		last = st
		return st.Ready(), nil
	})
	if errors.Is(err, poll.ErrExhausted) {
		return r.fail(domain.ErrTriggerTimeout, fmt.Errorf("botão de download: exists=%t visible=%t enabled=%t",
			last.Exists, last.Visible, last.Enabled))
	}
	if err != nil {
		return r.fail(domain.ErrAutomation, err)
	}

	if err := r.session.ScrollIntoView(ctx, r.cfg.DownloadSelector); err != nil {
		r.log.Debug().Err(err).Msg("scroll até o botão falhou")
	}
	if err := poll.Sleep(ctx, r.cfg.TriggerSettleDelay); err != nil {
		return r.fail(domain.ErrAutomation, err)
	}
	r.transition(StateTriggerVisible)
	return nil
}

func (r *retrieval) activate(ctx context.Context) error {
	attempts := r.cfg.ClickAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = r.click(ctx)
		if lastErr == nil {
			r.transition(StateActivated)
			return nil
		}
		r.log.Debug().Err(lastErr).Int("tentativa", attempt).Msg("click no botão de download falhou")
		if attempt < attempts {
			if err := poll.Sleep(ctx, time.Duration(attempt)*r.cfg.ClickBackoff); err != nil {
				return r.fail(domain.ErrAutomation, err)
			}
		}
	}

	// Último recurso: click por JavaScript, ignora sobreposições.
	if err := r.session.ForceClick(ctx, r.cfg.DownloadSelector); err != nil {
		return r.fail(domain.ErrAutomation, errors.Join(lastErr, err))
	}
	r.log.Debug().Msg("click forçado aplicado")
	r.transition(StateActivated)
	return nil
}

// click confirma que el botón sigue listo antes de pulsarlo.
func (r *retrieval) click(ctx context.Context) error {
	st, err := r.session.ElementState(ctx, r.cfg.DownloadSelector)
	if err != nil {
		return err
	}
	if !st.Ready() {
		return fmt.Errorf("botão mudou de estado: exists=%t visible=%t enabled=%t", st.Exists, st.Visible, st.Enabled)
	}
	return r.session.Click(ctx, r.cfg.DownloadSelector)
}

func (r *retrieval) capture(ctx context.Context, waiter browser.DownloadWaiter) (browser.Download, error) {
	dlCtx, cancel := context.WithTimeout(ctx, r.cfg.DownloadTimeout)
	defer cancel()
	d, err := waiter.Wait(dlCtx)
	switch {
	case err == nil:
		r.transition(StateDownloadCaptured)
		return d, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return d, r.fail(domain.ErrDownloadTimeout, fmt.Errorf("nenhum download em %s", r.cfg.DownloadTimeout))
	default:
		return d, r.fail(domain.ErrAutomation, err)
	}
}

// persist mueve el archivo descargado a DownloadsDir con el nombre sugerido.
func (r *retrieval) persist(d browser.Download) (*entity.RawPayload, error) {
	name := fileName(d.SuggestedFilename, r.key)
	dest := filepath.Join(r.cfg.DownloadsDir, name)
	if err := os.Rename(d.Path, dest); err != nil {
		return nil, r.fail(domain.ErrAutomation, fmt.Errorf("mover download: %w", err))
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		_ = os.Remove(dest)
		return nil, r.fail(domain.ErrAutomation, fmt.Errorf("ler download: %w", err))
	}
	return &entity.RawPayload{FileName: name, Path: dest, Data: data}, nil
}

// workDir crea un directorio propio para la descarga dentro de DownloadsDir.
// Chrome necesita una ruta absoluta.
func (r *retrieval) workDir() (string, error) {
	if err := os.MkdirAll(r.cfg.DownloadsDir, 0o755); err != nil {
		return "", fmt.Errorf("criar diretório de downloads: %w", err)
	}
	dir, err := os.MkdirTemp(r.cfg.DownloadsDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("criar diretório temporário: %w", err)
	}
	return filepath.Abs(dir)
}

// ── Soporte ───────────────────────────────────────────────────────────────────

func (r *retrieval) transition(to State) {
	r.log.Debug().
		Str("de", string(r.state)).
		Str("para", string(to)).
		Dur("decorrido", time.Since(r.started)).
		Msg("transição")
	r.state = to
	r.notify(string(to))
}

func (r *retrieval) fail(kind error, err error) error {
	return domain.NewFailure(kind, string(r.state), time.Since(r.started), err)
}

// teardown cierra la sesión siempre; su error solo se registra.
func (r *retrieval) teardown() {
	if r.session == nil {
		return
	}
	if err := r.session.Close(); err != nil {
		r.log.Warn().Err(err).Msg("erro ao fechar sessão do navegador")
	}
}

// fileName limpia el nombre sugerido; sin nombre usa <chave>.xml.
func fileName(suggested, key string) string {
	name := filepath.Base(strings.ReplaceAll(suggested, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, strings.ContainsRune(`<>:"|?*`, r):
			return '_'
		}
		return r
	}, name)
	name = strings.TrimLeft(strings.TrimSpace(name), ".")
	if name == "" || name == "/" {
		return key + ".xml"
	}
	return name
}
