package entity

// RawPayload XML descargado del portal, persistido de forma transitoria.
// El llamador es responsable de borrar Path una vez procesado.
type RawPayload struct {
	FileName string // nombre sugerido por el portal
	Path     string // ruta en el directorio de descargas
	Data     []byte
}

// Size devuelve el tamaño en bytes.
func (p *RawPayload) Size() int { return len(p.Data) }
