package meudanfe

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Outcome resultado de clasificar una instantánea de la página tras la búsqueda.
type Outcome int

const (
	// OutcomePending la página sigue cargando o aún no muestra nada concluyente.
	OutcomePending Outcome = iota
	// OutcomeNotFound el portal informó que la nota no existe.
	OutcomeNotFound
	// OutcomeResultsReady el botón de descarga está en el DOM.
	OutcomeResultsReady
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNotFound:
		return "not_found"
	case OutcomeResultsReady:
		return "results_ready"
	default:
		return "pending"
	}
}

// Classification resultado y, si lo hay, el texto de error mostrado por el portal.
type Classification struct {
	Outcome Outcome
	Message string
}

// ClassifyPage decide el estado de la página a partir de su HTML y del texto visible
// (innerText del navegador). Con visibleText vacío se usa el texto del HTML sin los
// nodos ocultos.
//
// Orden: frase de "não encontrado" dentro de una alerta visible, botón de descarga,
// frase en el texto visible, alerta visible con cualquier texto.
func ClassifyPage(html, visibleText string, cfg Config) Classification {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Classification{Outcome: OutcomePending}
	}
	doc.Find("script, style, noscript, template").Remove()
	pruneHidden(doc)

	var alert string
	for _, sel := range cfg.ErrorSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			msg := strings.Join(strings.Fields(s.Text()), " ")
			if msg == "" {
				return
			}
			if alert == "" {
				alert = msg
			}
		})
		if alert != "" {
			break
		}
	}
	if alert != "" {
		if phrase, ok := matchPhrase(alert, cfg.NotFoundPhrases); ok {
			return Classification{Outcome: OutcomeNotFound, Message: phrase}
		}
	}

	if cfg.DownloadSelector != "" && doc.Find(cfg.DownloadSelector).Length() > 0 {
		return Classification{Outcome: OutcomeResultsReady}
	}

	text := visibleText
	if strings.TrimSpace(text) == "" {
		text = doc.Find("body").Text()
	}
	if phrase, ok := matchPhrase(text, cfg.NotFoundPhrases); ok {
		return Classification{Outcome: OutcomeNotFound, Message: phrase}
	}

	if alert != "" {
		return Classification{Outcome: OutcomeNotFound, Message: alert}
	}
	return Classification{Outcome: OutcomePending}
}

func matchPhrase(text string, phrases []string) (string, bool) {
	folded := foldText(text)
	for _, phrase := range phrases {
		if p := foldText(phrase); p != "" && strings.Contains(folded, p) {
			return phrase, true
		}
	}
	return "", false
}

// pruneHidden quita del documento los elementos ocultos y todo su contenido.
func pruneHidden(doc *goquery.Document) {
	doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
		if hidden(s) {
			s.Remove()
		}
	})
}

// hidden detecta un elemento oculto por atributo, estilo en línea o clase utilitaria;
// lo que oculte una hoja de estilos solo se ve en el texto visible del navegador.
func hidden(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	if v, _ := s.Attr("aria-hidden"); v == "true" {
		return true
	}
	style, _ := s.Attr("style")
	style = strings.ReplaceAll(strings.ToLower(style), " ", "")
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return true
	}
	for _, class := range []string{"d-none", "hidden", "invisible"} {
		if s.HasClass(class) {
			return true
		}
	}
	return false
}

// foldText pasa a minúsculas, quita acentos y colapsa espacios.
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}
