// Package pdf genera un resumen DANFE (Documento Auxiliar da NF-e) a partir del
// registro normalizado. No sustituye al DANFE oficial; sirve para conferencia.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Emitente + CNPJ     │  DANFE / Nº / Série / Data    │
//	│  CHAVE: código de barras + chave en grupos de 4              │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DESTINATÁRIO: Nome + CPF/CNPJ + endereço                    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABELA: Cód | Descrição | NCM | CFOP | Qtd | V.Unit | Total  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAIS: Produtos / ICMS / IPI / Frete / Desconto / NOTA     │
//	│  FOOTER: Protocolo de autorização + informações adicionais   │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/danfe-xml-api/internal/domain/entity"
	"github.com/jhoicas/danfe-xml-api/pkg/nfe"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// DanfeGenerator implementa danfe.PDFRenderer usando Maroto v2.
type DanfeGenerator struct{}

// NewDanfeGenerator construye el generador.
func NewDanfeGenerator() *DanfeGenerator { return &DanfeGenerator{} }

// Render genera el PDF y devuelve sus bytes.
func (g *DanfeGenerator) Render(rec *entity.FiscalRecord) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("DANFE "+rec.NFe.ChaveAcesso, true).
		WithAuthor(rec.Emitente.RazaoSocial, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(rec))
	m.AddRows(keyRows(rec.NFe.ChaveAcesso)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(recipientRow(rec.Destinatario))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(itemRows(rec.Produtos)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(rec.Totais))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRows(rec)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: gerar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: emitente (izq) y número/série/fecha (der).
func headerRow(rec *entity.FiscalRecord) core.Row {
	e := rec.Emitente
	h := rec.NFe
	return row.New(22).Add(
		col.New(7).Add(
			text.New(e.RazaoSocial, props.Text{
				Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 1,
			}),
			text.New("CNPJ: "+formatCNPJ(e.CNPJ)+"   IE: "+nonEmpty(e.InscricaoEstadual, "—"), props.Text{
				Size: 8, Top: 8, Color: colorGray,
			}),
			text.New(formatAddress(e.Endereco), props.Text{
				Size: 7, Top: 13, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("DANFE", props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("%s   Nº %s   Série %s", nfe.DescribeOperationType(h.TipoNF), h.Numero, h.Serie), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 8,
			}),
			text.New("Emissão: "+formatDate(h.DataEmissao), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// keyRows: código de barras Code128 de la chave y la chave legible.
func keyRows(key string) []core.Row {
	return []core.Row{
		row.New(14).Add(col.New(12).Add(code.NewBar(key, props.Barcode{
			Percent:    90,
			Proportion: props.Proportion{Width: 20, Height: 3},
			Center:     true,
		}))),
		row.New(6).Add(col.New(12).Add(
			text.New("CHAVE DE ACESSO  "+groupKey(key), props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Center, Top: 1,
			}),
		)),
	}
}

// recipientRow: destinatário.
func recipientRow(d entity.Recipient) core.Row {
	return row.New(16).Add(
		col.New(12).Add(
			text.New("DESTINATÁRIO / REMETENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(d.Nome, "—"), props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("CPF/CNPJ: %s   |   IE: %s   |   %s",
				nonEmpty(formatCNPJ(d.CpfCnpj), "—"),
				nonEmpty(d.InscricaoEstadual, "—"),
				formatAddress(d.Endereco),
			), props.Text{Size: 7, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de productos.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 7, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Código", 1, align.Left),
		h("Descrição", 4, align.Left),
		h("NCM", 1, align.Center),
		h("CFOP", 1, align.Center),
		h("Qtd.", 1, align.Right),
		h("Un.", 1, align.Center),
		h("V. Unit.", 1, align.Right),
		h("V. Total", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// itemRows: una fila por produto.
func itemRows(items []entity.Item) []core.Row {
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 7, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		result = append(result, row.New(7).Add(
			cell(it.Codigo, 1, align.Left),
			cell(it.Descricao, 4, align.Left),
			cell(it.NCM, 1, align.Center),
			cell(it.CFOP, 1, align.Center),
			cell(formatQuantity(it.Quantidade), 1, align.Right),
			cell(it.Unidade, 1, align.Center),
			cell(nfe.FormatBRL(it.ValorUnitario), 1, align.Right),
			cell(nfe.FormatBRL(it.ValorTotal), 2, align.Right),
		))
	}
	return result
}

// totalsRow: bloque de totales tal como vienen en el XML, alineado a la derecha.
func totalsRow(t entity.Totals) core.Row {
	entries := []struct{ label, value string }{
		{"Produtos:", t.ValorProdutos},
		{"ICMS:", t.ValorICMS},
		{"IPI:", t.ValorIPI},
		{"Frete:", t.ValorFrete},
		{"Desconto:", t.ValorDesconto},
	}
	var labels, values []core.Component
	for i, e := range entries {
		top := float64(i * 5)
		labels = append(labels, text.New(e.label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: align.Right, Right: 2, Top: top,
		}))
		values = append(values, text.New("R$ "+nfe.FormatBRL(e.value), props.Text{
			Size: 8, Align: align.Right, Right: 1, Top: top,
		}))
	}
	grandTop := float64(len(entries) * 5)
	labels = append(labels, text.New("VALOR DA NOTA:", props.Text{
		Style: fontstyle.Bold, Size: 10, Align: align.Right,
		Color: colorPrimary, Right: 2, Top: grandTop,
	}))
	values = append(values, text.New("R$ "+nfe.FormatBRL(t.ValorNota), props.Text{
		Style: fontstyle.Bold, Size: 10, Align: align.Right,
		Color: colorPrimary, Right: 1, Top: grandTop,
	}))

	return row.New(34).Add(
		col.New(6), // espacio izquierdo
		col.New(3).Add(labels...),
		col.New(3).Add(values...),
	)
}

// footerRows: protocolo de autorización e informaciones complementarias.
func footerRows(rec *entity.FiscalRecord) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("DADOS ADICIONAIS", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}

	if p := rec.Protocolo; p != nil {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New(fmt.Sprintf("Protocolo de autorização: %s   %s   (%s %s)",
				p.Numero, formatDate(p.DataRecebimento), p.CodigoStatus, p.Motivo,
			), props.Text{Size: 7, Top: 1}),
		)))
	} else {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New("NF-e sem protocolo de autorização anexado", props.Text{
				Style: fontstyle.Bold, Size: 7, Top: 1,
			}),
		)))
	}

	if info := rec.InformacoesAdicionais; info != nil && info.InformacoesComplementares != "" {
		for _, chunk := range splitEvery(info.InformacoesComplementares, 130) {
			rows = append(rows, row.New(4).Add(col.New(12).Add(
				text.New(chunk, props.Text{Size: 6.5, Color: colorGray, Top: 0.5, Left: 2}),
			)))
		}
	}

	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Resumo gerado a partir do XML da NF-e para conferência. "+
				"Não substitui o DANFE emitido pelo contribuinte.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// groupKey separa la chave en grupos de 4 dígitos.
func groupKey(key string) string {
	return strings.Join(splitEvery(key, 4), " ")
}

// formatCNPJ aplica la máscara de CNPJ (14 dígitos) o CPF (11); otro largo se devuelve igual.
func formatCNPJ(doc string) string {
	switch len(doc) {
	case 14:
		return doc[:2] + "." + doc[2:5] + "." + doc[5:8] + "/" + doc[8:12] + "-" + doc[12:]
	case 11:
		return doc[:3] + "." + doc[3:6] + "." + doc[6:9] + "-" + doc[9:]
	default:
		return doc
	}
}

func formatAddress(a entity.Address) string {
	var parts []string
	if a.Logradouro != "" {
		street := a.Logradouro
		if a.Numero != "" {
			street += ", " + a.Numero
		}
		parts = append(parts, street)
	}
	for _, p := range []string{a.Bairro, a.Municipio, a.UF} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if a.CEP != "" {
		parts = append(parts, "CEP "+a.CEP)
	}
	if len(parts) == 0 {
		return "—"
	}
	return strings.Join(parts, " - ")
}

// formatDate muestra fechas ISO (con o sin hora) como dd/mm/aaaa hh:mm.
func formatDate(s string) string {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("02/01/2006 15:04")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("02/01/2006")
	}
	return nonEmpty(s, "—")
}

// formatQuantity quita ceros decimales sobrantes: "10.0000" → "10".
func formatQuantity(s string) string {
	if s == "" {
		return ""
	}
	return strings.ReplaceAll(nfe.ParseAmount(s).String(), ".", ",")
}

// splitEvery divide s en trozos de max n caracteres.
func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
