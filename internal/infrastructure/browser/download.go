package browser

import (
	"context"
	"path/filepath"
	"sync"

	cdpbrowser "github.com/chromedp/cdproto/browser"
)

type downloadResult struct {
	d   Download
	err error
}

// downloadWaiter entrega la primera descarga que termina; eventos posteriores se ignoran.
type downloadWaiter struct {
	dir    string
	mu     sync.Mutex
	names  map[string]string // GUID → nombre sugerido
	result chan downloadResult
	once   sync.Once
}

func newDownloadWaiter(dir string) *downloadWaiter {
	return &downloadWaiter{
		dir:    dir,
		names:  make(map[string]string),
		result: make(chan downloadResult, 1),
	}
}

func (w *downloadWaiter) begin(guid, suggested string) {
	w.mu.Lock()
	w.names[guid] = suggested
	w.mu.Unlock()
}

func (w *downloadWaiter) progress(guid string, state cdpbrowser.DownloadProgressState) {
	switch state {
	case cdpbrowser.DownloadProgressStateCompleted:
		w.mu.Lock()
		name := w.names[guid]
		w.mu.Unlock()
		w.once.Do(func() {
			w.result <- downloadResult{d: Download{
				GUID:              guid,
				SuggestedFilename: name,
				Path:              filepath.Join(w.dir, guid),
			}}
		})
	case cdpbrowser.DownloadProgressStateCanceled:
		w.once.Do(func() {
			w.result <- downloadResult{err: ErrDownloadCanceled}
		})
	}
}

// Wait bloquea hasta la descarga o hasta que ctx venza.
func (w *downloadWaiter) Wait(ctx context.Context) (Download, error) {
	select {
	case r := <-w.result:
		return r.d, r.err
	case <-ctx.Done():
		return Download{}, ctx.Err()
	}
}
