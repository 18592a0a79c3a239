package http

import (
	"context"
	"errors"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jhoicas/danfe-xml-api/internal/application/danfe"
	"github.com/jhoicas/danfe-xml-api/internal/application/dto"
	"github.com/jhoicas/danfe-xml-api/internal/domain"
	"github.com/jhoicas/danfe-xml-api/pkg/logger"
)

// HeaderRequestID header de correlación aceptado y devuelto.
const HeaderRequestID = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID asigna un id por petición (o respeta el del cliente) y lo deja en el contexto
// del caso de uso junto con el origen "http".
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(HeaderRequestID))
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Locals(LocalRequestID, id)
		c.Set(HeaderRequestID, id)
		ctx := danfe.WithRequestID(c.UserContext(), id)
		c.SetUserContext(danfe.WithSource(ctx, danfe.SourceHTTP))
		return c.Next()
	}
}

// HTTPMetrics recibe una observación por petición atendida.
type HTTPMetrics interface {
	HTTPRequest(method, route string, status int, d time.Duration)
}

// Observe registra métricas y una línea de log por petición.
func Observe(m HTTPMetrics, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		route := c.Route().Path
		if m != nil {
			m.HTTPRequest(c.Method(), route, status, elapsed)
		}
		if log != nil {
			ev := log.Info()
			if status >= fiber.StatusInternalServerError {
				ev = log.Warn()
			}
			ev.Str("request_id", GetRequestID(c)).
				Str("method", c.Method()).
				Str("route", route).
				Int("status", status).
				Dur("duracao", elapsed).
				Msg("requisição atendida")
		}
		return err
	}
}

// AllowedHosts rechaza peticiones cuyo Host no esté en la lista (protección contra DNS rebinding).
// Cada entrada puede incluir puerto ("localhost:3000") o no ("localhost").
func AllowedHosts(hosts []string, enabled bool) fiber.Handler {
	allowed := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allowed[h] = struct{}{}
		}
	}
	return func(c *fiber.Ctx) error {
		if !enabled {
			return c.Next()
		}
		host := strings.ToLower(string(c.Request().Host()))
		if _, ok := allowed[host]; ok {
			return c.Next()
		}
		if name, _, err := net.SplitHostPort(host); err == nil {
			if _, ok := allowed[strings.Trim(name, "[]")]; ok {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "HOST_NOT_ALLOWED", Message: "host não permitido"})
	}
}

// Limiter decide si el cliente key puede hacer otra petición y, si no, cuánto esperar.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RateLimit responde 429 con Retry-After al agotar el cupo. La clave es el cliente del
// token o, sin autenticación, la IP. Un error del limitador deja pasar la petición.
func RateLimit(l Limiter, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := GetClientID(c)
		if key == "" {
			key = c.IP()
		}
		ok, wait, err := l.Allow(c.UserContext(), key)
		if err != nil {
			if log != nil {
				log.Warn().Err(err).Msg("limitador indisponível")
			}
			return c.Next()
		}
		if ok {
			return c.Next()
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		return writeError(c, domain.ErrRateLimited)
	}
}
