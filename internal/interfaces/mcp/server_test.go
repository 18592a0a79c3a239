package mcp_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/danfe-xml-api/internal/application/dto"
	"github.com/jhoicas/danfe-xml-api/internal/domain"
	"github.com/jhoicas/danfe-xml-api/internal/interfaces/mcp"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const chave = "35241145070190000232550010006198721341979067"

type fakeTools struct {
	mu        sync.Mutex
	downloads []string
	uploads   []string
}

func (f *fakeTools) Download(_ context.Context, key string) (*dto.ToolResult, error) {
	f.mu.Lock()
	f.downloads = append(f.downloads, key)
	f.mu.Unlock()
	if key != chave {
		return &dto.ToolResult{
			Success:     false,
			ChaveAcesso: key,
			Error:       domain.PublicMessage(domain.ErrInvalidInput),
			Code:        domain.Code(domain.ErrInvalidInput),
		}, domain.ErrInvalidInput
	}
	return &dto.ToolResult{Success: true, ChaveAcesso: key, FileName: key + ".xml"}, nil
}

func (f *fakeTools) ParseUpload(_ context.Context, data []byte, fileName string) (*dto.ToolResult, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, string(data))
	f.mu.Unlock()
	return &dto.ToolResult{Success: true, FileName: fileName}, nil
}

func newServer() (*mcp.Server, *fakeTools) {
	tools := &fakeTools{}
	return mcp.NewServer(tools, mcp.ServerInfo{Name: "danfe-downloader", Version: "test"}, nil), tools
}

func handle(t *testing.T, s *mcp.Server, msg string) map[string]any {
	t.Helper()
	out := s.Handle(context.Background(), []byte(msg))
	require.NotNil(t, out, "se esperaba una respuesta")
	var resp map[string]any
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, "2.0", resp["jsonrpc"])
	return resp
}

func errorCode(t *testing.T, resp map[string]any) int {
	t.Helper()
	e, ok := resp["error"].(map[string]any)
	require.True(t, ok, "la respuesta debe traer error: %v", resp)
	return int(e["code"].(float64))
}

// toolEnvelope extrae el envoltorio JSON del primer bloque de texto.
func toolEnvelope(t *testing.T, resp map[string]any) (map[string]any, bool) {
	t.Helper()
	result, ok := resp["result"].(map[string]any)
	require.True(t, ok, "la respuesta debe traer result: %v", resp)
	content := result["content"].([]any)
	require.Len(t, content, 1)
	block := content[0].(map[string]any)
	assert.Equal(t, "text", block["type"])

	var env map[string]any
	require.NoError(t, json.Unmarshal([]byte(block["text"].(string)), &env))
	isError, _ := result["isError"].(bool)
	return env, isError
}

// ──────────────────────────────────────────────────────────────────────────────
// Ciclo de vida
// ──────────────────────────────────────────────────────────────────────────────

func TestHandle_Initialize(t *testing.T) {
	s, _ := newServer()
	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`)

	assert.Equal(t, float64(1), resp["id"])
	result := resp["result"].(map[string]any)
	assert.Equal(t, mcp.ProtocolVersion, result["protocolVersion"])
	assert.Contains(t, result["capabilities"], "tools")
	assert.Equal(t, "danfe-downloader", result["serverInfo"].(map[string]any)["name"])
}

func TestHandle_NotificacionSinRespuesta(t *testing.T) {
	s, _ := newServer()
	assert.Nil(t, s.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)))
	assert.Nil(t, s.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"metodo/desconocido"}`)),
		"una notificación desconocida tampoco se responde")
	assert.Nil(t, s.Handle(context.Background(), []byte("   ")))
}

func TestHandle_Ping(t *testing.T) {
	s, _ := newServer()
	resp := handle(t, s, `{"jsonrpc":"2.0","id":"abc","method":"ping"}`)
	assert.Equal(t, "abc", resp["id"])
	assert.Equal(t, map[string]any{}, resp["result"])
}

func TestHandle_ToolsList(t *testing.T) {
	s, _ := newServer()
	resp := handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)

	tools := resp["result"].(map[string]any)["tools"].([]any)
	require.Len(t, tools, 2)
	download := tools[0].(map[string]any)
	assert.Equal(t, mcp.ToolDownload, download["name"])
	schema := download["inputSchema"].(map[string]any)
	assert.Equal(t, []any{"chaveAcesso"}, schema["required"])
	prop := schema["properties"].(map[string]any)["chaveAcesso"].(map[string]any)
	assert.Equal(t, "^[0-9]{44}$", prop["pattern"])
}

// ──────────────────────────────────────────────────────────────────────────────
// tools/call
// ──────────────────────────────────────────────────────────────────────────────

func TestToolsCall_DownloadExitoso(t *testing.T) {
	s, tools := newServer()
	resp := handle(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"download_danfe_xml","arguments":{"chaveAcesso":"`+chave+`"}}}`)

	env, isError := toolEnvelope(t, resp)
	assert.False(t, isError)
	assert.Equal(t, true, env["success"])
	assert.Equal(t, chave, env["chaveAcesso"])
	assert.Equal(t, []string{chave}, tools.downloads)
}

func TestToolsCall_ChaveInvalidaEsErrorDeHerramienta(t *testing.T) {
	s, _ := newServer()
	resp := handle(t, s, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"download_danfe_xml","arguments":{"chaveAcesso":"123"}}}`)

	assert.Nil(t, resp["error"], "la validación de la chave se informa dentro del resultado")
	env, isError := toolEnvelope(t, resp)
	assert.True(t, isError)
	assert.Equal(t, false, env["success"])
	assert.Equal(t, "CHAVE_INVALIDA", env["code"])
}

func TestToolsCall_SinArgumentos(t *testing.T) {
	s, tools := newServer()
	resp := handle(t, s, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"download_danfe_xml"}}`)

	_, isError := toolEnvelope(t, resp)
	assert.True(t, isError)
	assert.Equal(t, []string{""}, tools.downloads)
}

func TestToolsCall_ReadXML(t *testing.T) {
	s, tools := newServer()
	resp := handle(t, s, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"read_danfe_xml","arguments":{"xml":"<nfeProc/>","fileName":"nota.xml"}}}`)

	env, isError := toolEnvelope(t, resp)
	assert.False(t, isError)
	assert.Equal(t, "nota.xml", env["fileName"])
	assert.Equal(t, []string{"<nfeProc/>"}, tools.uploads)
}

func TestToolsCall_ErroresDeProtocolo(t *testing.T) {
	s, _ := newServer()
	tests := []struct {
		name string
		msg  string
		code int
	}{
		{"herramienta desconocida", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"borrar_todo"}}`, mcp.CodeInvalidParams},
		{"params no es objeto", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":[1,2]}`, mcp.CodeInvalidParams},
		{"argumentos no son objeto", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"download_danfe_xml","arguments":"x"}}`, mcp.CodeInvalidParams},
		{"método desconocido", `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`, mcp.CodeMethodNotFound},
		{"JSON inválido", `{"jsonrpc":"2.0",`, mcp.CodeParseError},
		{"versión incorrecta", `{"jsonrpc":"1.0","id":1,"method":"ping"}`, mcp.CodeInvalidRequest},
		{"lote", `[{"jsonrpc":"2.0","id":1,"method":"ping"}]`, mcp.CodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := handle(t, s, tt.msg)
			assert.Equal(t, tt.code, errorCode(t, resp))
		})
	}
}

func TestHandle_ParseErrorConIDNulo(t *testing.T) {
	s, _ := newServer()
	resp := handle(t, s, `no es json`)
	v, present := resp["id"]
	assert.True(t, present, "el id debe estar presente")
	assert.Nil(t, v, "el id debe ser null")
}
