package http

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/jhoicas/danfe-xml-api/internal/application/danfe"
	"github.com/jhoicas/danfe-xml-api/internal/domain"
	"github.com/jhoicas/danfe-xml-api/internal/interfaces/mcp"
	"github.com/jhoicas/danfe-xml-api/pkg/logger"
)

// HeaderSessionID header del transporte por sesiones.
const HeaderSessionID = "Mcp-Session-Id"

const sseKeepAlive = 15 * time.Second

// MCPHandler transporte HTTP del protocolo de herramientas: POST para mensajes,
// GET para el stream SSE de la sesión y DELETE para terminarla.
type MCPHandler struct {
	server   *mcp.Server
	sessions *mcp.SessionManager
	log      *logger.Logger
}

// NewMCPHandler construye el handler.
func NewMCPHandler(server *mcp.Server, sessions *mcp.SessionManager, log *logger.Logger) *MCPHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &MCPHandler{server: server, sessions: sessions, log: log.Named("mcp-http")}
}

// Tools lista las herramientas sin abrir sesión.
// GET /mcp/tools
func (h *MCPHandler) Tools(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"tools": h.server.Tools()})
}

// Post recibe un mensaje JSON-RPC. initialize sin sesión crea una nueva.
// POST /mcp
func (h *MCPHandler) Post(c *fiber.Ctx) error {
	var req mcp.Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(rpcError(nil, mcp.CodeParseError, "JSON inválido"))
	}

	id := c.Get(HeaderSessionID)
	var s *mcp.Session
	switch {
	case id == "" && req.Method == "initialize":
		s = h.sessions.Create()
		id = s.ID
		c.Set(HeaderSessionID, id)
	case id == "":
		return c.Status(fiber.StatusBadRequest).JSON(rpcError(req.ID, -32000, "header "+HeaderSessionID+" obrigatório"))
	default:
		var err error
		if s, err = h.sessions.Resume(id); err != nil {
			return c.Status(domain.HTTPStatus(err)).JSON(rpcError(req.ID, -32000, domain.PublicMessage(err)))
		}
	}

	// Las etapas de la recuperación salen por el stream SSE de la sesión.
	ctx := danfe.WithSource(c.UserContext(), danfe.SourceMCP)
	ctx = domain.WithProgress(ctx, s.ProgressNotifier(req.ID))
	h.log.Debug().Str("session_id", id).Str("method", req.Method).Str("request_id", GetRequestID(c)).Msg("mensagem recebida")

	resp := h.server.Dispatch(ctx, &req)
	if resp == nil {
		return c.SendStatus(fiber.StatusAccepted)
	}
	return c.JSON(resp)
}

// Stream abre el stream SSE por el que el servidor envía mensajes a la sesión.
// GET /mcp
func (h *MCPHandler) Stream(c *fiber.Ctx) error {
	s, err := h.sessions.Get(c.Get(HeaderSessionID))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set(HeaderSessionID, s.ID)

	log := h.log.WithField("session_id", s.ID)
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		log.Debug().Msg("stream SSE aberto")
		defer log.Debug().Msg("stream SSE encerrado")

		if _, err := fmt.Fprint(w, ": conectado\n\n"); err != nil || w.Flush() != nil {
			return
		}
		ticker := time.NewTicker(sseKeepAlive)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-s.Outbound():
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			case <-ticker.C:
				fmt.Fprint(w, ": keep-alive\n\n")
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}

// Delete termina la sesión.
// DELETE /mcp
func (h *MCPHandler) Delete(c *fiber.Ctx) error {
	id := c.Get(HeaderSessionID)
	if id == "" || !h.sessions.Delete(id) {
		return writeError(c, domain.ErrSessionNotFound)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func rpcError(id json.RawMessage, code int, msg string) *mcp.Response {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return &mcp.Response{JSONRPC: "2.0", ID: id, Error: &mcp.RPCError{Code: code, Message: msg}}
}
