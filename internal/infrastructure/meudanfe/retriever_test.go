package meudanfe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/danfe-xml-api/internal/domain"
	"github.com/jhoicas/danfe-xml-api/internal/infrastructure/browser"
	"github.com/jhoicas/danfe-xml-api/internal/infrastructure/meudanfe"
)

const chave = "35241145070190000232550010006198721341979067"

const (
	paginaCargando  = `<html><body><div class="spinner">Carregando...</div></body></html>`
	paginaResultado = `<html><body><div class="result"><button id="downloadXmlBtn">Baixar XML</button></div></body></html>`
	paginaNoExiste  = `<html><body><div class="msg">Nota Fiscal NÃO ENCONTRADA para a chave informada</div></body></html>`
)

func fixtureXML(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "nfexml", "testdata", "nfeproc_autorizada.xml"))
	require.NoError(t, err)
	return data
}

// testConfig usa intervalos mínimos para que los tests corran rápido.
func testConfig(t *testing.T) meudanfe.Config {
	cfg := meudanfe.DefaultConfig()
	cfg.PortalURL = "https://portal.test/"
	cfg.NavigationTimeout = time.Second
	cfg.SettleDelay = 0
	cfg.InputTimeout = time.Second
	cfg.ResultPollInterval = time.Millisecond
	cfg.ResultPollAttempts = 5
	cfg.TriggerPollInterval = time.Millisecond
	cfg.TriggerPollAttempts = 5
	cfg.TriggerSettleDelay = 0
	cfg.ClickBackoff = time.Millisecond
	cfg.DownloadTimeout = 50 * time.Millisecond
	cfg.DownloadsDir = t.TempDir()
	return cfg
}

func assertFailure(t *testing.T, err error, kind error, step meudanfe.State) {
	t.Helper()
	require.Error(t, err)
	var f *domain.Failure
	require.True(t, errors.As(err, &f), "se esperaba *domain.Failure, llegó %T", err)
	assert.ErrorIs(t, err, kind)
	assert.Equal(t, string(step), f.Step)
}

// ── Flujo feliz ───────────────────────────────────────────────────────────────

func TestRetrieve_DescargaYRenombra(t *testing.T) {
	cfg := testConfig(t)
	s := &fakeSession{
		pages:     []string{paginaCargando, paginaCargando, paginaResultado},
		payload:   fixtureXML(t),
		suggested: "NFe" + chave + ".xml",
	}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	p, err := r.Retrieve(context.Background(), chave)
	require.NoError(t, err)

	assert.Equal(t, "NFe"+chave+".xml", p.FileName)
	assert.Equal(t, filepath.Join(cfg.DownloadsDir, p.FileName), p.Path)
	assert.Equal(t, fixtureXML(t), p.Data)
	assert.FileExists(t, p.Path)

	assert.True(t, s.armedBefore, "la descarga se espera antes del click")
	assert.Equal(t, 1, s.closed, "la sesión se cierra siempre")
	assert.Equal(t, 3, s.htmlCalls)
	assert.Contains(t, s.calls, "fill #searchTxt="+chave)
	assert.Contains(t, s.calls, "click #searchBtn")

	entries, err := os.ReadDir(cfg.DownloadsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "el directorio temporario de la descarga se elimina")
}

func TestRetrieve_InformaEtapas(t *testing.T) {
	cfg := testConfig(t)
	s := &fakeSession{pages: []string{paginaResultado}, payload: fixtureXML(t)}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	var stages []string
	ctx := domain.WithProgress(context.Background(), func(stage string) { stages = append(stages, stage) })
	_, err := r.Retrieve(ctx, chave)
	require.NoError(t, err)

	require.NotEmpty(t, stages)
	assert.Equal(t, string(meudanfe.StateLaunched), stages[0])
	assert.Contains(t, stages, string(meudanfe.StateResultsReady))
	assert.Contains(t, stages, string(meudanfe.StateDownloadCaptured))
	assert.Equal(t, string(meudanfe.StateDone), stages[len(stages)-1])
}

func TestRetrieve_NombreSugeridoVacio(t *testing.T) {
	cfg := testConfig(t)
	s := &fakeSession{pages: []string{paginaResultado}, payload: fixtureXML(t)}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	p, err := r.Retrieve(context.Background(), chave)
	require.NoError(t, err)
	assert.Equal(t, chave+".xml", p.FileName)
}

func TestRetrieve_NombreSugeridoConRuta(t *testing.T) {
	cfg := testConfig(t)
	s := &fakeSession{pages: []string{paginaResultado}, payload: fixtureXML(t), suggested: `..\..\etc\nota.xml`}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	p, err := r.Retrieve(context.Background(), chave)
	require.NoError(t, err)
	assert.Equal(t, "nota.xml", p.FileName)
	assert.Equal(t, cfg.DownloadsDir, filepath.Dir(p.Path))
}

// ── Activación ────────────────────────────────────────────────────────────────

func TestRetrieve_ReintentaClickYUsaForzado(t *testing.T) {
	cfg := testConfig(t)
	s := &fakeSession{
		pages:     []string{paginaResultado},
		payload:   fixtureXML(t),
		clickErrs: []error{errBoom, errBoom, errBoom},
	}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	_, err := r.Retrieve(context.Background(), chave)
	require.NoError(t, err)
	assert.Equal(t, cfg.ClickAttempts, s.clicks)
	assert.Equal(t, 1, s.forceClicks)
}

func TestRetrieve_SegundoClickFunciona(t *testing.T) {
	cfg := testConfig(t)
	s := &fakeSession{
		pages:     []string{paginaResultado},
		payload:   fixtureXML(t),
		clickErrs: []error{errBoom},
	}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	_, err := r.Retrieve(context.Background(), chave)
	require.NoError(t, err)
	assert.Equal(t, 2, s.clicks)
	assert.Zero(t, s.forceClicks)
}

func TestRetrieve_ClickForzadoFalla(t *testing.T) {
	cfg := testConfig(t)
	s := &fakeSession{
		pages:         []string{paginaResultado},
		payload:       fixtureXML(t),
		clickErrs:     []error{errBoom, errBoom, errBoom},
		forceClickErr: errBoom,
	}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	_, err := r.Retrieve(context.Background(), chave)
	assertFailure(t, err, domain.ErrAutomation, meudanfe.StateTriggerVisible)
	assert.True(t, domain.Retryable(err))
	assert.Equal(t, 1, s.closed)
}

// ── Fallos clasificados ───────────────────────────────────────────────────────

func TestRetrieve_NoEncontrado(t *testing.T) {
	cfg := testConfig(t)
	s := &fakeSession{pages: []string{paginaCargando, paginaNoExiste}}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	_, err := r.Retrieve(context.Background(), chave)
	assertFailure(t, err, domain.ErrDocumentNotFound, meudanfe.StateNotFound)
	assert.False(t, domain.Retryable(err), "no encontrado es terminal")
	assert.Equal(t, 2, s.htmlCalls, "corta en cuanto detecta el error")
	assert.Equal(t, 1, s.closed)
}

func TestRetrieve_PlantillaOcultaNoEsNoEncontrado(t *testing.T) {
	cfg := testConfig(t)
	plantilla := `<html><body><div class="tpl-vazio">Nota não encontrada</div>` +
		`<div class="spinner">Carregando...</div></body></html>`
	resultado := `<html><body><div hidden>Nota não encontrada</div>` +
		`<button id="downloadXmlBtn">Baixar XML</button></body></html>`
	s := &fakeSession{
		pages:        []string{plantilla, resultado},
		visibleTexts: []string{"Carregando...", "Baixar XML"},
		payload:      fixtureXML(t),
	}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	p, err := r.Retrieve(context.Background(), chave)
	require.NoError(t, err, "el texto oculto no decide el resultado")
	assert.Equal(t, fixtureXML(t), p.Data)
	assert.Equal(t, 2, s.htmlCalls)
}

func TestRetrieve_CargandoSinFinEsTriggerTimeout(t *testing.T) {
	cfg := testConfig(t)
	s := &fakeSession{pages: []string{paginaCargando}}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	_, err := r.Retrieve(context.Background(), chave)
	assertFailure(t, err, domain.ErrTriggerTimeout, meudanfe.StateSubmitted)
	assert.True(t, domain.Retryable(err))
	assert.Equal(t, cfg.ResultPollAttempts, s.htmlCalls)
}

func TestRetrieve_BotonNuncaVisible(t *testing.T) {
	cfg := testConfig(t)
	s := &fakeSession{
		pages:         []string{paginaResultado},
		triggerStates: []browser.ElementState{{Exists: true}},
	}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	_, err := r.Retrieve(context.Background(), chave)
	assertFailure(t, err, domain.ErrTriggerTimeout, meudanfe.StateResultsReady)
	assert.Equal(t, cfg.TriggerPollAttempts, s.stateCalls)
}

func TestRetrieve_BotonSeHabilitaTarde(t *testing.T) {
	cfg := testConfig(t)
	s := &fakeSession{
		pages:   []string{paginaResultado},
		payload: fixtureXML(t),
		triggerStates: []browser.ElementState{
			{Exists: true},
			{Exists: true, Visible: true},
			{Exists: true, Visible: true, Enabled: true},
		},
	}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	_, err := r.Retrieve(context.Background(), chave)
	require.NoError(t, err)
	assert.Contains(t, s.calls, "scroll #downloadXmlBtn")
}

func TestRetrieve_SinDescargaEsDownloadTimeout(t *testing.T) {
	cfg := testConfig(t)
	s := &fakeSession{pages: []string{paginaResultado}, noDownload: true}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	_, err := r.Retrieve(context.Background(), chave)
	assertFailure(t, err, domain.ErrDownloadTimeout, meudanfe.StateActivated)
	assert.True(t, domain.Retryable(err))
}

func TestRetrieve_PayloadDemasiadoChico(t *testing.T) {
	cfg := testConfig(t)
	s := &fakeSession{pages: []string{paginaResultado}, payload: []byte(`<?xml version="1.0"?><NFe/>`)}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	_, err := r.Retrieve(context.Background(), chave)
	assertFailure(t, err, domain.ErrPayloadInvalid, meudanfe.StateDownloadCaptured)

	entries, err := os.ReadDir(cfg.DownloadsDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "el archivo inválido no queda en disco")
}

func TestRetrieve_PaginaHTMLGuardadaComoXML(t *testing.T) {
	cfg := testConfig(t)
	html := []byte("<!DOCTYPE html><html><body>" + string(make([]byte, 200)) + "</body></html>")
	s := &fakeSession{pages: []string{paginaResultado}, payload: html}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	_, err := r.Retrieve(context.Background(), chave)
	assertFailure(t, err, domain.ErrPayloadInvalid, meudanfe.StateDownloadCaptured)
}

func TestRetrieve_FalloAlLanzar(t *testing.T) {
	cfg := testConfig(t)
	l := &fakeLauncher{err: errBoom}
	r := meudanfe.NewRetriever(l, cfg, nil)

	_, err := r.Retrieve(context.Background(), chave)
	assertFailure(t, err, domain.ErrAutomation, meudanfe.StateIdle)
	assert.ErrorIs(t, err, errBoom, "la causa queda disponible para logs")
}

func TestRetrieve_FalloAlNavegar(t *testing.T) {
	cfg := testConfig(t)
	s := &fakeSession{navigateErr: errBoom}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	_, err := r.Retrieve(context.Background(), chave)
	assertFailure(t, err, domain.ErrAutomation, meudanfe.StateLaunched)
	assert.Equal(t, 1, s.closed)
}

func TestRetrieve_CampoDeBusquedaAusente(t *testing.T) {
	cfg := testConfig(t)
	s := &fakeSession{fillErr: errBoom}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	_, err := r.Retrieve(context.Background(), chave)
	assertFailure(t, err, domain.ErrAutomation, meudanfe.StateNavigated)
}

func TestRetrieve_ErrorDeCierreNoOcultaElPrincipal(t *testing.T) {
	cfg := testConfig(t)
	s := &fakeSession{pages: []string{paginaNoExiste}, closeErr: errors.New("close falló")}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	_, err := r.Retrieve(context.Background(), chave)
	assertFailure(t, err, domain.ErrDocumentNotFound, meudanfe.StateNotFound)
	assert.NotContains(t, err.Error(), "close falló")
}

func TestRetrieve_ChaveConFormatoInvalido(t *testing.T) {
	cfg := testConfig(t)
	l := &fakeLauncher{session: &fakeSession{}}
	r := meudanfe.NewRetriever(l, cfg, nil)

	_, err := r.Retrieve(context.Background(), "123")
	assertFailure(t, err, domain.ErrInvalidInput, meudanfe.StateIdle)
	assert.Zero(t, l.launches, "no se abre navegador para una chave mal formada")
}

func TestRetrieve_ContextoCancelado(t *testing.T) {
	cfg := testConfig(t)
	cfg.ResultPollInterval = 50 * time.Millisecond
	cfg.ResultPollAttempts = 100
	s := &fakeSession{pages: []string{paginaCargando}}
	r := meudanfe.NewRetriever(&fakeLauncher{session: s}, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Retrieve(ctx, chave)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, s.closed)
}
