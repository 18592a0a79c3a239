// Package meudanfe implementa la recuperación del XML de una NF-e desde meudanfe.com.br
// mediante una máquina de estados sobre un navegador automatizado.
package meudanfe

import (
	"time"

	"github.com/jhoicas/danfe-xml-api/internal/infrastructure/nfexml"
	"github.com/jhoicas/danfe-xml-api/pkg/config"
)

// DefaultPortalURL página raíz del portal.
const DefaultPortalURL = "https://meudanfe.com.br/"

// Config selectores, frases y límites de la interacción con el portal.
type Config struct {
	PortalURL string

	SearchInputSelector  string
	SearchButtonSelector string
	DownloadSelector     string
	ErrorSelectors       []string
	NotFoundPhrases      []string

	NavigationTimeout   time.Duration
	SettleDelay         time.Duration
	InputTimeout        time.Duration
	ResultPollInterval  time.Duration
	ResultPollAttempts  int
	TriggerPollInterval time.Duration
	TriggerPollAttempts int
	TriggerSettleDelay  time.Duration
	ClickAttempts       int
	ClickBackoff        time.Duration
	DownloadTimeout     time.Duration

	DownloadsDir    string
	MinPayloadBytes int
	MaxPayloadBytes int
}

// DefaultConfig valores observados como estables contra el portal.
func DefaultConfig() Config {
	return Config{
		PortalURL:            DefaultPortalURL,
		SearchInputSelector:  "#searchTxt",
		SearchButtonSelector: "#searchBtn",
		DownloadSelector:     "#downloadXmlBtn",
		ErrorSelectors: []string{
			".alert-danger",
			".alert-warning",
			".error-message",
			".toast-error",
			".swal2-html-container",
			"[role=alert]",
		},
		NotFoundPhrases: []string{
			"nao encontrada",
			"nao encontrado",
			"nenhum resultado",
			"nenhuma nota",
			"chave invalida",
			"chave de acesso invalida",
			"not found",
		},
		NavigationTimeout:   60 * time.Second,
		SettleDelay:         5 * time.Second,
		InputTimeout:        10 * time.Second,
		ResultPollInterval:  500 * time.Millisecond,
		ResultPollAttempts:  120,
		TriggerPollInterval: 250 * time.Millisecond,
		TriggerPollAttempts: 40,
		TriggerSettleDelay:  3 * time.Second,
		ClickAttempts:       3,
		ClickBackoff:        500 * time.Millisecond,
		DownloadTimeout:     120 * time.Second,
		DownloadsDir:        "downloads",
		MinPayloadBytes:     nfexml.DefaultMinPayloadBytes,
		MaxPayloadBytes:     10 << 20,
	}
}

// ConfigFrom aplica la configuración de entorno sobre DefaultConfig.
// Los valores cero de b conservan el valor por defecto.
func ConfigFrom(b config.BrowserConfig) Config {
	c := DefaultConfig()
	if b.PortalURL != "" {
		c.PortalURL = b.PortalURL
	}
	setDuration(&c.NavigationTimeout, b.NavigationTimeout)
	setDuration(&c.SettleDelay, b.SettleDelay)
	setDuration(&c.ResultPollInterval, b.ResultPollInterval)
	setInt(&c.ResultPollAttempts, b.ResultPollAttempts)
	setDuration(&c.TriggerPollInterval, b.TriggerPollInterval)
	setInt(&c.TriggerPollAttempts, b.TriggerPollAttempts)
	setInt(&c.ClickAttempts, b.ClickAttempts)
	setDuration(&c.ClickBackoff, b.ClickBackoff)
	setDuration(&c.DownloadTimeout, b.DownloadTimeout)
	if b.DownloadsDir != "" {
		c.DownloadsDir = b.DownloadsDir
	}
	setInt(&c.MinPayloadBytes, b.MinPayloadBytes)
	if b.MaxFileSizeMB > 0 {
		c.MaxPayloadBytes = b.MaxFileSizeMB << 20
	}
	return c
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
