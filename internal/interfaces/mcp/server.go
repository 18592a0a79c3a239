package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/jhoicas/danfe-xml-api/internal/application/dto"
	"github.com/jhoicas/danfe-xml-api/pkg/logger"
)

// Nombres de las herramientas expuestas.
const (
	ToolDownload = "download_danfe_xml"
	ToolRead     = "read_danfe_xml"
)

// Toolset operaciones que respaldan las herramientas. Ambas devuelven siempre el envoltorio.
type Toolset interface {
	Download(ctx context.Context, key string) (*dto.ToolResult, error)
	ParseUpload(ctx context.Context, data []byte, fileName string) (*dto.ToolResult, error)
}

// Server despacha mensajes JSON-RPC hacia el Toolset. No guarda estado por conexión.
type Server struct {
	tools Toolset
	info  ServerInfo
	log   *logger.Logger
}

// NewServer construye el despachador.
func NewServer(tools Toolset, info ServerInfo, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{tools: tools, info: info, log: log.Named("mcp")}
}

// Tools devuelve la lista de herramientas de tools/list.
func (s *Server) Tools() []Tool {
	return []Tool{
		{
			Name: ToolDownload,
			Description: "Baixa o XML de uma DANFE do site meudanfe.com.br e retorna os dados estruturados do XML. " +
				"A chave de acesso deve ter exatamente 44 dígitos numéricos.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"chaveAcesso": {
						Type:        "string",
						Description: "Chave de acesso da DANFE com 44 dígitos numéricos",
						Pattern:     "^[0-9]{44}$",
					},
				},
				Required: []string{"chaveAcesso"},
			},
		},
		{
			Name:        ToolRead,
			Description: "Lê um XML de NF-e (nfeProc ou NFe) já disponível e retorna os dados estruturados.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"xml":      {Type: "string", Description: "Conteúdo completo do XML da NF-e"},
					"fileName": {Type: "string", Description: "Nome do arquivo de origem (opcional)"},
				},
				Required: []string{"xml"},
			},
		},
	}
}

// Handle procesa un mensaje crudo. Devuelve nil cuando no hay respuesta (notificaciones).
func (s *Server) Handle(ctx context.Context, raw []byte) []byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '[' {
		return s.encode(errorResponse(nil, CodeInvalidRequest, "lotes não são suportados"))
	}
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return s.encode(errorResponse(nil, CodeParseError, "JSON inválido"))
	}
	resp := s.Dispatch(ctx, &req)
	if resp == nil {
		return nil
	}
	return s.encode(resp)
}

// Dispatch ejecuta una petición ya decodificada. Devuelve nil para notificaciones.
func (s *Server) Dispatch(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != "2.0" || req.Method == "" {
		if req.IsNotification() {
			return nil
		}
		return errorResponse(req.ID, CodeInvalidRequest, "requisição JSON-RPC inválida")
	}
	s.log.Debug().Str("method", req.Method).Msg("mensagem recebida")

	result, rpcErr := s.call(ctx, req)
	if req.IsNotification() {
		return nil
	}
	if rpcErr != nil {
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) call(ctx context.Context, req *Request) (any, *RPCError) {
	switch req.Method {
	case "initialize":
		return initializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo:      s.info,
		}, nil
	case "notifications/initialized", "notifications/cancelled":
		return nil, nil
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return map[string]any{"tools": s.Tools()}, nil
	case "tools/call":
		return s.callTool(ctx, req.Params)
	default:
		return nil, &RPCError{Code: CodeMethodNotFound, Message: "método não encontrado: " + req.Method}
	}
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (any, *RPCError) {
	var p callParams
	if err := json.Unmarshal(params, &p); err != nil || p.Name == "" {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "parâmetros inválidos para tools/call"}
	}

	var (
		res *dto.ToolResult
		err error
	)
	switch p.Name {
	case ToolDownload:
		var args downloadArgs
		if err := decodeArgs(p.Arguments, &args); err != nil {
			return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
		}
		res, err = s.tools.Download(ctx, args.ChaveAcesso)
	case ToolRead:
		var args readArgs
		if err := decodeArgs(p.Arguments, &args); err != nil {
			return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
		}
		res, err = s.tools.ParseUpload(ctx, []byte(args.XML), args.FileName)
	default:
		return nil, &RPCError{Code: CodeInvalidParams, Message: "ferramenta desconhecida: " + p.Name}
	}
	if res == nil {
		return nil, &RPCError{Code: CodeInternalError, Message: "erro interno"}
	}
	if err != nil {
		s.log.Debug().Str("tool", p.Name).Str("code", res.Code).Msg("ferramenta retornou erro")
	}

	text, merr := json.MarshalIndent(res, "", "  ")
	if merr != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: "erro interno"}
	}
	return CallResult{
		Content: []Content{{Type: "text", Text: string(text)}},
		IsError: !res.Success,
	}, nil
}

func decodeArgs(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.New("argumentos inválidos: esperado um objeto")
	}
	return nil
}

func errorResponse(id json.RawMessage, code int, msg string) *Response {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: msg}}
}

func (s *Server) encode(resp *Response) []byte {
	b, err := json.Marshal(resp)
	if err != nil {
		s.log.Error().Err(err).Msg("não foi possível serializar a resposta")
		b, _ = json.Marshal(errorResponse(resp.ID, CodeInternalError, "erro interno"))
	}
	return b
}
