package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/danfe-xml-api/internal/application/dto"
	"github.com/jhoicas/danfe-xml-api/pkg/jwt"
)

// Locals keys fijadas por los middlewares.
const (
	LocalClientID  = "client_id"
	LocalScope     = "scope"
	LocalRequestID = "request_id"
)

// AuthMiddleware valida el Bearer Token JWT y guarda el cliente en c.Locals.
// Con secret vacío la API queda abierta y el middleware solo continúa.
func AuthMiddleware(secret, issuer string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "header Authorization obrigatório"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vazio"})
		}
		clientID, scope, err := jwt.Parse(secret, issuer, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido ou expirado"})
		}
		c.Locals(LocalClientID, clientID)
		c.Locals(LocalScope, scope)
		return c.Next()
	}
}

// GetClientID devuelve el cliente autenticado o "" si la API está abierta.
func GetClientID(c *fiber.Ctx) string {
	v := c.Locals(LocalClientID)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetRequestID devuelve el id de petición asignado por RequestID.
func GetRequestID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalRequestID).(string)
	return s
}
