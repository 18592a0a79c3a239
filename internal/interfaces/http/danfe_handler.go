package http

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/danfe-xml-api/internal/application/dto"
	"github.com/jhoicas/danfe-xml-api/internal/domain"
)

// DanfeService operaciones del caso de uso que expone la API REST.
type DanfeService interface {
	Download(ctx context.Context, key string) (*dto.ToolResult, error)
	ParseUpload(ctx context.Context, data []byte, fileName string) (*dto.ToolResult, error)
	PDFFromXML(ctx context.Context, data []byte) ([]byte, string, error)
}

// DanfeHandler maneja las peticiones de descarga, lectura y PDF.
type DanfeHandler struct {
	svc DanfeService
}

// NewDanfeHandler construye el handler.
func NewDanfeHandler(svc DanfeService) *DanfeHandler {
	return &DanfeHandler{svc: svc}
}

// Download baja el XML del portal y devuelve los datos normalizados.
// POST /api/danfe/download
func (h *DanfeHandler) Download(c *fiber.Ctx) error {
	var in dto.DownloadRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido: esperado {\"chaveAcesso\": \"...\"}"})
	}
	res, err := h.svc.Download(c.UserContext(), in.ChaveAcesso)
	return h.result(c, res, err)
}

// Parse normaliza un XML enviado en el cuerpo.
// POST /api/danfe/parse?fileName=nota.xml
func (h *DanfeHandler) Parse(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return writeError(c, domain.ErrInvalidInput)
	}
	res, err := h.svc.ParseUpload(c.UserContext(), body, c.Query("fileName"))
	return h.result(c, res, err)
}

// PDF genera el resumen DANFE de un XML enviado en el cuerpo.
// POST /api/danfe/pdf
func (h *DanfeHandler) PDF(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return writeError(c, domain.ErrInvalidInput)
	}
	pdf, name, err := h.svc.PDFFromXML(c.UserContext(), body)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
	return c.Status(fiber.StatusOK).Send(pdf)
}

// result responde con el envoltorio; el status sigue al error del dominio.
func (h *DanfeHandler) result(c *fiber.Ctx, res *dto.ToolResult, err error) error {
	if res == nil {
		if err == nil {
			err = domain.ErrAutomation
		}
		return writeError(c, err)
	}
	status := fiber.StatusOK
	if err != nil {
		status = domain.HTTPStatus(err)
	}
	return c.Status(status).JSON(res)
}
