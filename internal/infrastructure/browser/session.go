// Package browser define el puerto de automatización de navegador usado por la
// máquina de estados de recuperación y su implementación con chromedp.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrDownloadCanceled el navegador canceló la descarga.
var ErrDownloadCanceled = errors.New("browser: download cancelado")

// ElementState estado observable de un elemento; cada dimensión se consulta por separado.
type ElementState struct {
	Exists  bool `json:"exists"`
	Visible bool `json:"visible"`
	Enabled bool `json:"enabled"`
}

// Ready indica que el elemento puede recibir un click.
func (s ElementState) Ready() bool { return s.Exists && s.Visible && s.Enabled }

// Download archivo completado por el navegador.
type Download struct {
	GUID              string
	SuggestedFilename string
	Path              string // ruta donde el navegador dejó el archivo
}

// DownloadWaiter espera una única descarga. Debe crearse antes de la acción que la dispara.
type DownloadWaiter interface {
	Wait(ctx context.Context) (Download, error)
}

// Session sesión aislada de navegador (perfil y cookies propios).
// Toda operación respeta el deadline de ctx.
type Session interface {
	Navigate(ctx context.Context, url string, idleTimeout time.Duration) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	ForceClick(ctx context.Context, selector string) error
	ScrollIntoView(ctx context.Context, selector string) error
	ElementState(ctx context.Context, selector string) (ElementState, error)
	HTML(ctx context.Context) (string, error)
	// VisibleText devuelve el texto que el usuario ve (innerText del body).
	VisibleText(ctx context.Context) (string, error)
	ExpectDownload(ctx context.Context, dir string) (DownloadWaiter, error)
	Close() error
}

// Launcher crea sesiones nuevas. Cada llamada devuelve una sesión independiente.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}
