// Package mcp implementa el protocolo de herramientas (JSON-RPC 2.0) que exponen el
// servidor stdio y el transporte HTTP por sesiones.
package mcp

import "encoding/json"

// ProtocolVersion versión del protocolo anunciada en initialize.
const ProtocolVersion = "2024-11-05"

// Códigos de error JSON-RPC 2.0.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request mensaje entrante. ID vacío = notificación (sin respuesta).
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification indica si el mensaje no espera respuesta.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// Response mensaje de salida; exactamente uno de Result y Error está presente.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError error JSON-RPC.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

// Tool descripción de una herramienta en tools/list.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema JSON Schema (subconjunto) de los argumentos.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Property propiedad de un InputSchema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Pattern     string `json:"pattern,omitempty"`
}

// Content bloque de contenido del resultado de una herramienta.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult resultado de tools/call.
type CallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// MethodLogMessage notificación de log del servidor hacia el cliente.
const MethodLogMessage = "notifications/message"

// Notification mensaje JSON-RPC sin id; no espera respuesta.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// LogMessageParams parámetros de notifications/message.
type LogMessageParams struct {
	Level  string `json:"level"`
	Logger string `json:"logger,omitempty"`
	Data   any    `json:"data"`
}

type progressData struct {
	Stage     string          `json:"stage"`
	RequestID json.RawMessage `json:"requestId,omitempty"`
}

// ServerInfo nombre y versión anunciados al cliente.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type downloadArgs struct {
	ChaveAcesso string `json:"chaveAcesso"`
}

type readArgs struct {
	XML      string `json:"xml"`
	FileName string `json:"fileName"`
}
