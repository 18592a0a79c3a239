package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/jhoicas/danfe-xml-api/pkg/logger"
)

// DefaultUserAgent UA de un Chrome de escritorio en Linux.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36"

// oculta navigator.webdriver antes de que corra cualquier script de la página.
const stealthScript = `Object.defineProperty(navigator, 'webdriver', { get: () => false });`

// ChromeOptions opciones de lanzamiento.
type ChromeOptions struct {
	Headless       bool
	ExecPath       string
	UserAgent      string
	NoSandbox      bool
	ViewportWidth  int64
	ViewportHeight int64
}

// ChromeLauncher lanza un Chrome nuevo por sesión con las marcas de automatización ocultas.
type ChromeLauncher struct {
	opts ChromeOptions
	log  *logger.Logger
}

// NewChromeLauncher construye el launcher aplicando valores por defecto.
func NewChromeLauncher(opts ChromeOptions, log *logger.Logger) *ChromeLauncher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.ViewportWidth == 0 || opts.ViewportHeight == 0 {
		opts.ViewportWidth, opts.ViewportHeight = 1366, 768
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ChromeLauncher{opts: opts, log: log.Named("chromedp")}
}

func (l *ChromeLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(l.opts.UserAgent),
		chromedp.WindowSize(int(l.opts.ViewportWidth), int(l.opts.ViewportHeight)),
	)
	if l.opts.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}
	return opts
}

// Launch arranca el navegador, inyecta el script anti-detección y habilita los eventos
// de ciclo de vida. Si ctx vence durante el arranque el navegador se cierra.
func (l *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), l.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		l.log.Trace().Msgf(format, args...)
	}))

	s := &chromeSession{ctx: tabCtx, cancel: tabCancel, allocCancel: allocCancel}
	chromedp.ListenTarget(tabCtx, s.onEvent)

	// El primer Run asigna el navegador: debe usar el contexto de la pestaña sin timeout.
	errc := make(chan error, 1)
	go func() {
		errc <- chromedp.Run(tabCtx,
			chromedp.ActionFunc(func(ctx context.Context) error {
				_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
				return err
			}),
			page.SetLifecycleEventsEnabled(true),
			chromedp.EmulateViewport(l.opts.ViewportWidth, l.opts.ViewportHeight),
		)
	}()

	select {
	case err := <-errc:
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("browser: iniciar o Chrome: %w", err)
		}
		return s, nil
	case <-ctx.Done():
		_ = s.Close()
		return nil, fmt.Errorf("browser: iniciar o Chrome: %w", ctx.Err())
	}
}

// ── Sesión ────────────────────────────────────────────────────────────────────

type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	mu       sync.Mutex
	idle     chan struct{}
	download *downloadWaiter
	closed   bool
}

func (s *chromeSession) onEvent(ev interface{}) {
	switch e := ev.(type) {
	case *page.EventLifecycleEvent:
		if e.Name != "networkIdle" {
			return
		}
		s.mu.Lock()
		if s.idle != nil {
			close(s.idle)
			s.idle = nil
		}
		s.mu.Unlock()
	case *cdpbrowser.EventDownloadWillBegin:
		if w := s.currentDownload(); w != nil {
			w.begin(e.GUID, e.SuggestedFilename)
		}
	case *cdpbrowser.EventDownloadProgress:
		if w := s.currentDownload(); w != nil {
			w.progress(e.GUID, e.State)
		}
	}
}

func (s *chromeSession) currentDownload() *downloadWaiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.download
}

// run ejecuta acciones en la pestaña respetando cancelación y deadline de ctx.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		var cancelDL context.CancelFunc
		runCtx, cancelDL = context.WithDeadline(runCtx, dl)
		defer cancelDL()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string, idleTimeout time.Duration) error {
	idle := make(chan struct{})
	s.mu.Lock()
	s.idle = idle
	s.mu.Unlock()

	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navegar para %s: %w", url, err)
	}

	t := time.NewTimer(idleTimeout)
	defer t.Stop()
	select {
	case <-idle:
		return nil
	case <-t.C:
		return fmt.Errorf("navegar para %s: rede não ficou ociosa em %s", url, idleTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *chromeSession) Fill(ctx context.Context, selector, value string) error {
	return s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (s *chromeSession) ForceClick(ctx context.Context, selector string) error {
	var clicked bool
	if err := s.run(ctx, chromedp.Evaluate(forceClickScript(selector), &clicked)); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("clique forçado: elemento %s não encontrado", selector)
	}
	return nil
}

func (s *chromeSession) ScrollIntoView(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.ScrollIntoView(selector, chromedp.ByQuery))
}

func (s *chromeSession) ElementState(ctx context.Context, selector string) (ElementState, error) {
	var st ElementState
	err := s.run(ctx, chromedp.Evaluate(stateScript(selector), &st))
	return st, err
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *chromeSession) VisibleText(ctx context.Context) (string, error) {
	var text string
	err := s.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text))
	return text, err
}

func (s *chromeSession) ExpectDownload(ctx context.Context, dir string) (DownloadWaiter, error) {
	w := newDownloadWaiter(dir)
	s.mu.Lock()
	s.download = w
	s.mu.Unlock()

	err := s.run(ctx, cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllowAndName).
		WithDownloadPath(dir).
		WithEventsEnabled(true))
	if err != nil {
		return nil, fmt.Errorf("configurar downloads: %w", err)
	}
	return w, nil
}

// Close cierra la pestaña y el proceso del navegador. Es idempotente.
func (s *chromeSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := chromedp.Cancel(s.ctx)
	s.cancel()
	s.allocCancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ── Scripts ───────────────────────────────────────────────────────────────────

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func stateScript(selector string) string {
	return `(function(sel){
  const el = document.querySelector(sel);
  if (!el) return {exists: false, visible: false, enabled: false};
  const st = window.getComputedStyle(el);
  const r = el.getBoundingClientRect();
  const visible = st.display !== 'none' && st.visibility !== 'hidden' &&
    parseFloat(st.opacity || '1') > 0 && r.width > 0 && r.height > 0;
  const enabled = !el.disabled && el.getAttribute('aria-disabled') !== 'true' && st.pointerEvents !== 'none';
  return {exists: true, visible: visible, enabled: enabled};
})(` + jsString(selector) + `)`
}

func forceClickScript(selector string) string {
	return `(function(sel){
  const el = document.querySelector(sel);
  if (!el) return false;
  el.click();
  return true;
})(` + jsString(selector) + `)`
}
