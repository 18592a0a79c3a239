package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/danfe-xml-api/internal/application/dto"
	"github.com/jhoicas/danfe-xml-api/internal/domain"
	"github.com/jhoicas/danfe-xml-api/pkg/logger"
)

// writeError responde con el envoltorio {code, message, retryable} y el status del dominio.
func writeError(c *fiber.Ctx, err error) error {
	return c.Status(domain.HTTPStatus(err)).JSON(dto.ErrorResponse{
		Code:      domain.Code(err),
		Message:   domain.PublicMessage(err),
		Retryable: domain.Retryable(err),
	})
}

// ErrorHandler convierte los errores que llegan a Fiber en el mismo envoltorio.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := "HTTP_ERROR"
			switch fe.Code {
			case fiber.StatusNotFound:
				code = "NOT_FOUND"
			case fiber.StatusMethodNotAllowed:
				code = "METHOD_NOT_ALLOWED"
			case fiber.StatusRequestEntityTooLarge:
				code = "PAYLOAD_TOO_LARGE"
			}
			return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: code, Message: fe.Message})
		}
		if log != nil {
			log.Error().Err(err).Str("request_id", GetRequestID(c)).Str("path", c.Path()).Msg("erro não tratado")
		}
		return writeError(c, err)
	}
}
