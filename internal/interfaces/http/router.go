package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/danfe-xml-api/internal/interfaces/mcp"
	"github.com/jhoicas/danfe-xml-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Danfe          DanfeService
	MCPServer      *mcp.Server
	Sessions       *mcp.SessionManager
	HTTPMetrics    HTTPMetrics
	MetricsHandler nethttp.Handler
	Log            *logger.Logger
	Service        string
	Version        string
	JWTSecret      string
	JWTIssuer      string
	Limiter        Limiter // nil = sin límite
	AllowedHosts   []string
	HostProtection bool
}

// Router registra middlewares y rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Use(RequestID())
	app.Use(Observe(deps.HTTPMetrics, deps.Log))

	// Públicas
	var activeSessions func() int
	if deps.Sessions != nil {
		activeSessions = deps.Sessions.Len
	}
	app.Get("/health", NewHealthHandler(deps.Service, deps.Version, activeSessions).Get)
	if deps.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.MetricsHandler))
	}

	// Protegidas (Bearer opcional + límite por cliente)
	guards := []fiber.Handler{AuthMiddleware(deps.JWTSecret, deps.JWTIssuer)}
	if deps.Limiter != nil {
		guards = append(guards, RateLimit(deps.Limiter, deps.Log))
	}

	api := app.Group("/api/danfe", guards...)
	danfeHandler := NewDanfeHandler(deps.Danfe)
	api.Post("/download", danfeHandler.Download)
	api.Post("/parse", danfeHandler.Parse)
	api.Post("/pdf", danfeHandler.PDF)

	if deps.MCPServer == nil || deps.Sessions == nil {
		return
	}
	mcpGuards := append([]fiber.Handler{AllowedHosts(deps.AllowedHosts, deps.HostProtection)}, guards...)
	mcpGroup := app.Group("/mcp", mcpGuards...)
	mcpHandler := NewMCPHandler(deps.MCPServer, deps.Sessions, deps.Log)
	mcpGroup.Get("/tools", mcpHandler.Tools)
	mcpGroup.Post("/", mcpHandler.Post)
	mcpGroup.Get("/", mcpHandler.Stream)
	mcpGroup.Delete("/", mcpHandler.Delete)
}
