package nfexml_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/danfe-xml-api/internal/domain"
	"github.com/jhoicas/danfe-xml-api/internal/infrastructure/nfexml"
)

func TestValidatePayload_Aceptados(t *testing.T) {
	assert.NoError(t, nfexml.ValidatePayload(readFixture(t), 100, 0))
	assert.NoError(t, nfexml.ValidatePayload([]byte(minimalNFe), 100, 10<<20))

	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte("\n  "+minimalNFe)...)
	assert.NoError(t, nfexml.ValidatePayload(withBOM, 100, 0), "BOM y espacios iniciales se toleran")
}

func TestValidatePayload_Rechazados(t *testing.T) {
	html := "<!DOCTYPE html><html><body>" + strings.Repeat("Cloudflare challenge ", 20) + "</body></html>"
	cte := `<?xml version="1.0"?><cteProc>` + strings.Repeat("<x/>", 40) + `</cteProc>`

	cases := map[string]struct {
		data     []byte
		min, max int
		mensaje  string
	}{
		"página HTML":       {[]byte(html), 100, 0, "declaração XML"},
		"otro documento":    {[]byte(cte), 100, 0, "NFe/nfeProc"},
		"demasiado pequeño": {[]byte(`<?xml version="1.0"?><NFe/>`), 100, 0, "mínimo"},
		"excede el máximo":  {[]byte(minimalNFe), 100, 200, "máximo"},
		"vacío":             {nil, 0, 0, "mínimo 100"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := nfexml.ValidatePayload(tc.data, tc.min, tc.max)
			assert.ErrorIs(t, err, domain.ErrPayloadInvalid)
			assert.Contains(t, err.Error(), tc.mensaje)
		})
	}
}

func TestReaderValidate_UsaSusLimites(t *testing.T) {
	r := nfexml.NewReader()
	assert.NoError(t, r.Validate([]byte(minimalNFe)))

	r.MaxPayloadBytes = 150
	assert.ErrorIs(t, r.Validate([]byte(minimalNFe)), domain.ErrPayloadInvalid)
}
