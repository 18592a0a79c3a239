package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/danfe-xml-api/internal/application/dto"
)

// HealthHandler responde el estado del servicio.
type HealthHandler struct {
	service  string
	version  string
	sessions func() int
}

// NewHealthHandler construye el handler. sessions puede ser nil.
func NewHealthHandler(service, version string, sessions func() int) *HealthHandler {
	return &HealthHandler{service: service, version: version, sessions: sessions}
}

// Get GET /health
func (h *HealthHandler) Get(c *fiber.Ctx) error {
	active := 0
	if h.sessions != nil {
		active = h.sessions()
	}
	return c.JSON(dto.HealthResponse{
		Status:         "healthy",
		Service:        h.service,
		Version:        h.version,
		Timestamp:      time.Now().UTC().Format(dto.TimestampLayout),
		ActiveSessions: active,
	})
}
