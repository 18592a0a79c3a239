package meudanfe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jhoicas/danfe-xml-api/internal/infrastructure/browser"
)

// fakeSession simula el portal: cada snapshot de HTML sale de pages (el último se repite),
// triggerStates igual para ElementState; la descarga escribe payload en el dir indicado.
type fakeSession struct {
	mu sync.Mutex

	navigateErr   error
	fillErr       error
	pages         []string
	visibleTexts  []string
	triggerStates []browser.ElementState
	clickErrs     []error
	forceClickErr error
	payload       []byte
	suggested     string
	noDownload    bool
	closeErr      error

	calls        []string
	clicks       int
	forceClicks  int
	armedBefore  bool
	downloadDir  string
	closed       int
	htmlCalls    int
	stateCalls   int
	waiter       *fakeWaiter
	expectCalled bool
}

func (s *fakeSession) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *fakeSession) Navigate(ctx context.Context, url string, _ time.Duration) error {
	s.record("navigate")
	return s.navigateErr
}

func (s *fakeSession) Fill(ctx context.Context, selector, value string) error {
	s.record("fill " + selector + "=" + value)
	return s.fillErr
}

func (s *fakeSession) Click(ctx context.Context, selector string) error {
	s.record("click " + selector)
	if selector != "#downloadXmlBtn" {
		return nil
	}
	s.clicks++
	if s.clicks == 1 {
		s.armedBefore = s.expectCalled
	}
	if s.clicks <= len(s.clickErrs) && s.clickErrs[s.clicks-1] != nil {
		return s.clickErrs[s.clicks-1]
	}
	s.fire()
	return nil
}

func (s *fakeSession) ForceClick(ctx context.Context, selector string) error {
	s.record("forceclick " + selector)
	s.forceClicks++
	if s.forceClickErr != nil {
		return s.forceClickErr
	}
	s.fire()
	return nil
}

func (s *fakeSession) ScrollIntoView(ctx context.Context, selector string) error {
	s.record("scroll " + selector)
	return nil
}

func (s *fakeSession) ElementState(ctx context.Context, selector string) (browser.ElementState, error) {
	s.stateCalls++
	if len(s.triggerStates) == 0 {
		return browser.ElementState{Exists: true, Visible: true, Enabled: true}, nil
	}
	i := s.stateCalls - 1
	if i >= len(s.triggerStates) {
		i = len(s.triggerStates) - 1
	}
	return s.triggerStates[i], nil
}

func (s *fakeSession) HTML(ctx context.Context) (string, error) {
	s.htmlCalls++
	i := s.htmlCalls - 1
	if i >= len(s.pages) {
		i = len(s.pages) - 1
	}
	return s.pages[i], nil
}

// VisibleText acompaña al último snapshot de HTML; sin visibleTexts devuelve "".
func (s *fakeSession) VisibleText(ctx context.Context) (string, error) {
	if len(s.visibleTexts) == 0 {
		return "", nil
	}
	i := s.htmlCalls - 1
	if i >= len(s.visibleTexts) {
		i = len(s.visibleTexts) - 1
	}
	if i < 0 {
		i = 0
	}
	return s.visibleTexts[i], nil
}

func (s *fakeSession) ExpectDownload(ctx context.Context, dir string) (browser.DownloadWaiter, error) {
	s.record("expect")
	s.expectCalled = true
	s.downloadDir = dir
	s.waiter = &fakeWaiter{ch: make(chan browser.Download, 1)}
	return s.waiter, nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return s.closeErr
}

// fire simula el navegador guardando el archivo como dir/GUID.
func (s *fakeSession) fire() {
	if s.noDownload || s.waiter == nil {
		return
	}
	guid := "2f1c6c1e-guid"
	path := filepath.Join(s.downloadDir, guid)
	if err := os.WriteFile(path, s.payload, 0o644); err != nil {
		panic(err)
	}
	select {
	case s.waiter.ch <- browser.Download{GUID: guid, SuggestedFilename: s.suggested, Path: path}:
	default:
	}
}

type fakeWaiter struct {
	ch chan browser.Download
}

func (w *fakeWaiter) Wait(ctx context.Context) (browser.Download, error) {
	select {
	case d := <-w.ch:
		return d, nil
	case <-ctx.Done():
		return browser.Download{}, ctx.Err()
	}
}

type fakeLauncher struct {
	session  *fakeSession
	err      error
	launches int
}

func (l *fakeLauncher) Launch(ctx context.Context) (browser.Session, error) {
	l.launches++
	if l.err != nil {
		return nil, l.err
	}
	return l.session, nil
}

var errBoom = errors.New("boom")
