package mcp_test

import (
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/danfe-xml-api/internal/domain"
	"github.com/jhoicas/danfe-xml-api/internal/interfaces/mcp"
)

func TestSessionManager_CicloDeVida(t *testing.T) {
	var size atomic.Int64
	m := mcp.NewSessionManager(mcp.SessionOptions{
		TTL:      time.Minute,
		OnChange: func(n int) { size.Store(int64(n)) },
	}, nil)
	defer m.Close()

	s := m.Create()
	require.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, int64(1), size.Load())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	require.NoError(t, m.Touch(s.ID))

	assert.True(t, m.Delete(s.ID))
	assert.False(t, m.Delete(s.ID), "borrar dos veces no falla")
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, int64(0), size.Load())

	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, m.Touch(s.ID), domain.ErrSessionNotFound)
}

func TestSession_SendYCierre(t *testing.T) {
	m := mcp.NewSessionManager(mcp.SessionOptions{TTL: time.Minute}, nil)
	defer m.Close()

	s := m.Create()
	assert.True(t, s.Send([]byte(`{"jsonrpc":"2.0","method":"ping"}`)))
	assert.Equal(t, `{"jsonrpc":"2.0","method":"ping"}`, string(<-s.Outbound()))

	m.Delete(s.ID)
	_, open := <-s.Outbound()
	assert.False(t, open, "el canal se cierra al terminar la sesión")
	assert.False(t, s.Send([]byte("x")), "no se envía a una sesión cerrada")
}

func TestSession_ProgressNotifierEnviaEtapas(t *testing.T) {
	m := mcp.NewSessionManager(mcp.SessionOptions{TTL: time.Minute}, nil)
	defer m.Close()

	s, err := m.Resume(m.Create().ID)
	require.NoError(t, err)

	notify := s.ProgressNotifier(json.RawMessage(`"req-7"`))
	notify("Submitted")
	notify("ResultsReady")

	for _, stage := range []string{"Submitted", "ResultsReady"} {
		var n struct {
			JSONRPC string `json:"jsonrpc"`
			Method  string `json:"method"`
			Params  struct {
				Level string `json:"level"`
				Data  struct {
					Stage     string `json:"stage"`
					RequestID string `json:"requestId"`
				} `json:"data"`
			} `json:"params"`
		}
		require.NoError(t, json.Unmarshal(<-s.Outbound(), &n))
		assert.Equal(t, "2.0", n.JSONRPC)
		assert.Equal(t, mcp.MethodLogMessage, n.Method)
		assert.Equal(t, "info", n.Params.Level)
		assert.Equal(t, stage, n.Params.Data.Stage)
		assert.Equal(t, "req-7", n.Params.Data.RequestID)
	}

	m.Delete(s.ID)
	assert.NotPanics(t, func() { notify("Done") }, "una sesión cerrada descarta el aviso")
}

func TestSessionManager_ResumeSesionDesconocida(t *testing.T) {
	m := mcp.NewSessionManager(mcp.SessionOptions{TTL: time.Minute}, nil)
	defer m.Close()

	_, err := m.Resume("no-existe")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSession_SendNoBloqueaConBufferLleno(t *testing.T) {
	m := mcp.NewSessionManager(mcp.SessionOptions{TTL: time.Minute}, nil)
	defer m.Close()

	s := m.Create()
	sent := 0
	for i := 0; i < 100; i++ {
		if s.Send([]byte("x")) {
			sent++
		}
	}
	assert.Less(t, sent, 100, "los mensajes que no caben se descartan")
	assert.Greater(t, sent, 0)
}

func TestSessionManager_ExpiraPorInactividad(t *testing.T) {
	m := mcp.NewSessionManager(mcp.SessionOptions{TTL: 30 * time.Millisecond, SweepInterval: time.Hour}, nil)
	defer m.Close()

	s := m.Create()
	time.Sleep(60 * time.Millisecond)

	_, err := m.Get(s.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Get no devuelve sesiones expiradas")
	assert.Equal(t, 0, m.Len())
}

func TestSessionManager_Sweep(t *testing.T) {
	m := mcp.NewSessionManager(mcp.SessionOptions{TTL: 30 * time.Millisecond, SweepInterval: time.Hour}, nil)
	defer m.Close()

	vieja := m.Create()
	time.Sleep(60 * time.Millisecond)
	nueva := m.Create()

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())
	_, err := m.Get(nueva.ID)
	assert.NoError(t, err)
	_, open := <-vieja.Outbound()
	assert.False(t, open)
}

func TestSessionManager_JanitorBarreSolo(t *testing.T) {
	m := mcp.NewSessionManager(mcp.SessionOptions{TTL: 20 * time.Millisecond, SweepInterval: 10 * time.Millisecond}, nil)
	defer m.Close()

	m.Create()
	assert.Eventually(t, func() bool { return m.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSessionManager_CloseTerminaTodo(t *testing.T) {
	m := mcp.NewSessionManager(mcp.SessionOptions{TTL: time.Minute}, nil)
	a, b := m.Create(), m.Create()

	m.Close()
	m.Close()

	assert.Equal(t, 0, m.Len())
	_, openA := <-a.Outbound()
	_, openB := <-b.Outbound()
	assert.False(t, openA)
	assert.False(t, openB)
}
