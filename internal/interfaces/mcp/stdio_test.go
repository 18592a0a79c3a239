package mcp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeStdio_RespondeCadaPeticion(t *testing.T) {
	s, _ := newServer()
	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"download_danfe_xml","arguments":{"chaveAcesso":"` + chave + `"}}}`,
		`{roto`,
	}, "\n") + "\n")
	var out bytes.Buffer

	require.NoError(t, s.ServeStdio(context.Background(), in, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4, "una línea por petición con id más el error de parseo")

	byID := map[string]map[string]any{}
	for _, line := range lines {
		var resp map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &resp), "cada línea es un JSON completo")
		key := "null"
		if id, ok := resp["id"].(float64); ok {
			key = string(rune('0' + int(id)))
		}
		byID[key] = resp
	}
	assert.Contains(t, byID["1"], "result")
	assert.Contains(t, byID["2"], "result")
	assert.Contains(t, byID["3"], "result")
	assert.Equal(t, float64(-32700), byID["null"]["error"].(map[string]any)["code"])
}

func TestServeStdio_TerminaAlCancelar(t *testing.T) {
	s, _ := newServer()
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeStdio(ctx, pr, io.Discard) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("ServeStdio no terminó tras cancelar el contexto")
	}
}
