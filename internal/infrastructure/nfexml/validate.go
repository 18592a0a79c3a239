package nfexml

import (
	"bytes"
	"fmt"

	"github.com/jhoicas/danfe-xml-api/internal/domain"
)

// DefaultMinPayloadBytes tamaño mínimo de un XML de NF-e aceptable.
const DefaultMinPayloadBytes = 100

// ValidatePayload comprueba que el contenido parece un XML de NF-e:
// declaración <?xml al inicio, marcador <NFe o <nfeProc y tamaño entre minBytes y maxBytes.
// maxBytes <= 0 desactiva el límite superior.
func ValidatePayload(data []byte, minBytes, maxBytes int) error {
	if minBytes <= 0 {
		minBytes = DefaultMinPayloadBytes
	}
	if len(data) < minBytes {
		return fmt.Errorf("%w: arquivo com %d bytes (mínimo %d)", domain.ErrPayloadInvalid, len(data), minBytes)
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return fmt.Errorf("%w: arquivo com %d bytes (máximo %d)", domain.ErrPayloadInvalid, len(data), maxBytes)
	}
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if !bytes.HasPrefix(trimmed, []byte("<?xml")) {
		return fmt.Errorf("%w: conteúdo não começa com declaração XML", domain.ErrPayloadInvalid)
	}
	if !bytes.Contains(trimmed, []byte("<NFe")) && !bytes.Contains(trimmed, []byte("<nfeProc")) {
		return fmt.Errorf("%w: elemento NFe/nfeProc ausente", domain.ErrPayloadInvalid)
	}
	return nil
}
