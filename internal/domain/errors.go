package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrInvalidInput     = errors.New("entrada inválida")
	ErrDocumentNotFound = errors.New("documento não encontrado no portal")
	ErrTriggerTimeout   = errors.New("botão de download não ficou disponível a tempo")
	ErrDownloadTimeout  = errors.New("download do XML não concluído a tempo")
	ErrAutomation       = errors.New("falha na automação do navegador")
	ErrPayloadInvalid   = errors.New("arquivo baixado não é um XML de NF-e válido")
	ErrParse            = errors.New("não foi possível interpretar o XML da NF-e")
	ErrRateLimited      = errors.New("limite de requisições excedido")
	ErrSessionNotFound  = errors.New("sessão não encontrada ou expirada")
	ErrUnauthorized     = errors.New("não autorizado")
)

// Failure es un fallo clasificado de la recuperación o la normalización.
// Kind es uno de los sentinels de arriba; Err es la causa técnica (solo para logs).
type Failure struct {
	Kind    error
	Step    string
	Elapsed time.Duration
	Err     error
}

// NewFailure construye un Failure. err puede ser nil.
func NewFailure(kind error, step string, elapsed time.Duration, err error) *Failure {
	return &Failure{Kind: kind, Step: step, Elapsed: elapsed, Err: err}
}

func (f *Failure) Error() string {
	msg := f.Public()
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

// Unwrap expone tanto el tipo de fallo como la causa a errors.Is / errors.As.
func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Err}
}

// Public devuelve el mensaje apto para el cliente: tipo, etapa y duración, sin detalles internos.
// Sin etapa solo queda el texto del tipo.
func (f *Failure) Public() string {
	if f.Step == "" {
		return f.Kind.Error()
	}
	return fmt.Sprintf("%s (etapa %s, %s)", f.Kind, f.Step, f.Elapsed.Round(time.Millisecond))
}

type errorInfo struct {
	code      string
	status    int
	retryable bool
}

// El orden importa: un Failure puede envolver un sentinel como causa.
var catalogue = []struct {
	kind error
	info errorInfo
}{
	{ErrDocumentNotFound, errorInfo{"DOCUMENT_NOT_FOUND", http.StatusNotFound, false}},
	{ErrTriggerTimeout, errorInfo{"TRIGGER_TIMEOUT", http.StatusGatewayTimeout, true}},
	{ErrDownloadTimeout, errorInfo{"DOWNLOAD_TIMEOUT", http.StatusGatewayTimeout, true}},
	{ErrAutomation, errorInfo{"AUTOMATION_FAILURE", http.StatusServiceUnavailable, true}},
	{ErrPayloadInvalid, errorInfo{"PAYLOAD_INVALID", http.StatusUnprocessableEntity, false}},
	{ErrParse, errorInfo{"XML_PARSE_ERROR", http.StatusUnprocessableEntity, false}},
	{ErrInvalidInput, errorInfo{"CHAVE_INVALIDA", http.StatusBadRequest, false}},
	{ErrRateLimited, errorInfo{"RATE_LIMIT_EXCEEDED", http.StatusTooManyRequests, true}},
	{ErrSessionNotFound, errorInfo{"SESSION_NOT_FOUND", http.StatusBadRequest, false}},
	{ErrUnauthorized, errorInfo{"UNAUTHORIZED", http.StatusUnauthorized, false}},
}

func lookup(err error) (errorInfo, bool) {
	var f *Failure
	if errors.As(err, &f) {
		err = f.Kind
	}
	for _, c := range catalogue {
		if errors.Is(err, c.kind) {
			return c.info, true
		}
	}
	return errorInfo{"INTERNAL", http.StatusInternalServerError, false}, false
}

// Code devuelve el código estable del error (DOCUMENT_NOT_FOUND, TRIGGER_TIMEOUT...).
func Code(err error) string {
	info, _ := lookup(err)
	return info.code
}

// HTTPStatus devuelve el status HTTP asociado al error.
func HTTPStatus(err error) int {
	info, _ := lookup(err)
	return info.status
}

// Retryable indica si el llamador puede reintentar la operación.
func Retryable(err error) bool {
	info, _ := lookup(err)
	return info.retryable
}

// PublicMessage devuelve un mensaje seguro para exponer al cliente.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Public()
	}
	if _, known := lookup(err); known {
		return err.Error()
	}
	return "erro interno"
}
