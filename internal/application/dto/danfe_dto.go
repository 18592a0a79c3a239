package dto

import "github.com/jhoicas/danfe-xml-api/internal/domain/entity"

// TimestampLayout ISO-8601 con milisegundos en UTC.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DownloadRequest cuerpo de POST /api/danfe/download y argumentos de la herramienta.
type DownloadRequest struct {
	ChaveAcesso string `json:"chaveAcesso"`
}

// ToolResult envoltorio común de las tres entradas (HTTP, sesión MCP y stdio).
// En éxito lleva data; en fallo error, code y retryable. Los campos de eco van siempre.
type ToolResult struct {
	Success     bool                 `json:"success"`
	Data        *entity.FiscalRecord `json:"data,omitempty"`
	ChaveAcesso string               `json:"chaveAcesso"`
	FileName    string               `json:"fileName,omitempty"`
	Timestamp   string               `json:"timestamp"`
	RequestID   string               `json:"requestId,omitempty"`
	Error       string               `json:"error,omitempty"`
	Code        string               `json:"code,omitempty"`
	Retryable   bool                 `json:"retryable,omitempty"`
	DurationMs  int64                `json:"durationMs"`
}

// HealthResponse cuerpo de GET /health.
type HealthResponse struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	Version        string `json:"version"`
	Timestamp      string `json:"timestamp"`
	ActiveSessions int    `json:"activeSessions"`
}
