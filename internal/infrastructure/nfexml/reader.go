package nfexml

import (
	"fmt"
	"os"
	"strings"

	"github.com/jhoicas/danfe-xml-api/internal/domain"
	"github.com/jhoicas/danfe-xml-api/internal/domain/entity"
)

const semGTIN = "SEM GTIN"

// Reader convierte XML de NF-e en entity.FiscalRecord. No guarda estado entre llamadas.
// Los límites solo aplican a Validate; cero usa el mínimo por defecto y ningún máximo.
type Reader struct {
	MinPayloadBytes int
	MaxPayloadBytes int
}

// NewReader construye el lector con los límites por defecto.
func NewReader() *Reader { return &Reader{MinPayloadBytes: DefaultMinPayloadBytes} }

// Validate aplica ValidatePayload con los límites del lector.
func (r *Reader) Validate(data []byte) error {
	return ValidatePayload(data, r.MinPayloadBytes, r.MaxPayloadBytes)
}

// ParseFile lee el archivo y delega en Parse.
func (r *Reader) ParseFile(path string) (*entity.FiscalRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewFailure(domain.ErrParse, "", 0, err)
	}
	return r.Parse(data)
}

// Parse normaliza el XML. Acepta la NF-e autorizada (nfeProc) o la NF-e sola.
// Solo falla si el XML es ilegible, falta infNFe, no hay chave o no hay itens.
func (r *Reader) Parse(data []byte) (*entity.FiscalRecord, error) {
	// El detalle del parser queda en la causa, fuera del mensaje público.
	doc, err := Load(data)
	if err != nil {
		return nil, domain.NewFailure(domain.ErrParse, "", 0, err)
	}

	proc := doc.Child("nfeProc")
	if proc == nil {
		proc = doc
	}
	nfeNode := proc.Child("NFe")
	if nfeNode == nil {
		nfeNode = proc
	}
	inf := nfeNode.Child("infNFe")
	if inf == nil {
		return nil, fmt.Errorf("%w: elemento infNFe não encontrado", domain.ErrParse)
	}

	key := accessKey(inf, proc)
	if key == "" {
		return nil, fmt.Errorf("%w: chave de acesso ausente", domain.ErrParse)
	}

	dets := inf.Seq("det")
	if len(dets) == 0 {
		return nil, fmt.Errorf("%w: NF-e sem itens (det)", domain.ErrParse)
	}

	rec := &entity.FiscalRecord{
		NFe:          header(key, inf),
		Emitente:     issuer(inf.Child("emit")),
		Destinatario: recipient(inf.Child("dest")),
		Entrega:      delivery(inf.Child("entrega")),
		Produtos:     make([]entity.Item, 0, len(dets)),
		Totais:       totals(inf.Child("total").Child("ICMSTot")),
		Transporte:   shipping(inf.Child("transp")),
		Cobranca:     billing(inf.Child("cobr")),
		Pagamento:    payments(inf.Child("pag")),
		Protocolo:    protocol(proc.Child("protNFe").Child("infProt")),
	}
	for _, det := range dets {
		rec.Produtos = append(rec.Produtos, item(det))
	}
	if adic := inf.Child("infAdic"); adic != nil {
		rec.InformacoesAdicionais = &entity.AdditionalInfo{
			InformacoesComplementares: adic.Str("infCpl"),
			InformacoesFisco:          adic.Str("infAdFisco"),
		}
	}
	return rec, nil
}

// accessKey toma el primer valor de Id (atributo o elemento) sin el prefijo NFe;
// si falta, usa chNFe del protocolo.
func accessKey(inf, proc *Node) string {
	for _, id := range inf.Seq("Id") {
		if v := id.Text(); v != "" {
			return strings.TrimPrefix(v, "NFe")
		}
	}
	return proc.Str("protNFe", "infProt", "chNFe")
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func header(key string, inf *Node) entity.Header {
	ide := inf.Child("ide")
	return entity.Header{
		ChaveAcesso:       key,
		Numero:            ide.Str("nNF"),
		Serie:             ide.Str("serie"),
		DataEmissao:       firstNonEmpty(ide.Str("dhEmi"), ide.Str("dEmi")),
		ValorTotal:        inf.Str("total", "ICMSTot", "vNF"),
		NaturezaOperacao:  ide.Str("natOp"),
		TipoNF:            ide.Str("tpNF"),
		Ambiente:          ide.Str("tpAmb"),
		Finalidade:        ide.Str("finNFe"),
		CodigoNumerico:    ide.Str("cNF"),
		DigitoVerificador: ide.Str("cDV"),
		Modelo:            ide.Str("mod"),
		IndicadorPresenca: ide.Str("indPres"),
		IndicadorFinal:    ide.Str("indFinal"),
		IndicadorDestino:  ide.Str("idDest"),
		TipoEmissao:       ide.Str("tpEmis"),
		CodigoMunicipioFG: ide.Str("cMunFG"),
		DataSaidaEntrada:  firstNonEmpty(ide.Str("dhSaiEnt"), ide.Str("dSaiEnt")),
	}
}

func address(n *Node) entity.Address {
	return entity.Address{
		Logradouro:      n.Str("xLgr"),
		Numero:          n.Str("nro"),
		Complemento:     n.Str("xCpl"),
		Bairro:          n.Str("xBairro"),
		Municipio:       n.Str("xMun"),
		UF:              n.Str("UF"),
		CEP:             n.Str("CEP"),
		Telefone:        n.Str("fone"),
		CodigoMunicipio: n.Str("cMun"),
		CodigoPais:      n.Str("cPais"),
		NomePais:        n.Str("xPais"),
	}
}

func issuer(emit *Node) entity.Issuer {
	return entity.Issuer{
		CNPJ:                   firstNonEmpty(emit.Str("CNPJ"), emit.Str("CPF")),
		RazaoSocial:            emit.Str("xNome"),
		NomeFantasia:           emit.Str("xFant"),
		Endereco:               address(emit.Child("enderEmit")),
		InscricaoEstadual:      emit.Str("IE"),
		CodigoRegimeTributario: emit.Str("CRT"),
	}
}

func recipient(dest *Node) entity.Recipient {
	return entity.Recipient{
		CpfCnpj:           firstNonEmpty(dest.Str("CPF"), dest.Str("CNPJ"), dest.Str("idEstrangeiro")),
		Nome:              dest.Str("xNome"),
		Endereco:          address(dest.Child("enderDest")),
		InscricaoEstadual: dest.Str("IE"),
		IndicadorIE:       dest.Str("indIEDest"),
		Email:             dest.Str("email"),
	}
}

func delivery(n *Node) *entity.Delivery {
	if n == nil {
		return nil
	}
	return &entity.Delivery{
		Nome:              n.Str("xNome"),
		CpfCnpj:           firstNonEmpty(n.Str("CNPJ"), n.Str("CPF")),
		Endereco:          address(n),
		InscricaoEstadual: n.Str("IE"),
		Email:             n.Str("email"),
	}
}

func item(det *Node) entity.Item {
	prod := det.Child("prod")
	imp := det.Child("imposto")
	return entity.Item{
		NumeroItem:              det.Str("nItem"),
		Codigo:                  prod.Str("cProd"),
		Descricao:               prod.Str("xProd"),
		Quantidade:              prod.Str("qCom"),
		Unidade:                 prod.Str("uCom"),
		ValorUnitario:           prod.Str("vUnCom"),
		ValorTotal:              prod.Str("vProd"),
		NCM:                     prod.Str("NCM"),
		CFOP:                    prod.Str("CFOP"),
		CEST:                    prod.Str("CEST"),
		CodigoEAN:               gtin(prod.Str("cEAN")),
		CodigoEANTributavel:     gtin(prod.Str("cEANTrib")),
		UnidadeTributavel:       prod.Str("uTrib"),
		QuantidadeTributavel:    prod.Str("qTrib"),
		ValorUnitarioTributavel: prod.Str("vUnTrib"),
		IndicadorTotal:          prod.Str("indTot"),
		ValorDesconto:           prod.Str("vDesc"),
		ValorFrete:              prod.Str("vFrete"),
		InformacoesAdicionais:   det.Str("infAdProd"),
		Impostos:                itemTaxes(imp),
	}
}

func itemTaxes(imp *Node) entity.ItemTaxes {
	icms := imp.Child("ICMS").Group("ICMS")
	taxes := entity.ItemTaxes{
		ICMS: entity.ICMS{
			Origem:       icms.Str("orig"),
			CST:          firstNonEmpty(icms.Str("CST"), icms.Str("CSOSN")),
			ModalidadeBC: icms.Str("modBC"),
			BaseCalculo:  icms.Str("vBC"),
			Aliquota:     icms.Str("pICMS"),
			Valor:        icms.Str("vICMS"),
		},
		ValorTributos: imp.Str("vTotTrib"),
	}
	if icms != nil {
		taxes.ICMS.Grupo = icms.Name
	}

	ipiNode := imp.Child("IPI")
	if g := ipiNode.Group("IPI"); g != nil {
		taxes.IPI = &entity.IPI{
			Grupo:               g.Name,
			CST:                 g.Str("CST"),
			CodigoEnquadramento: ipiNode.Str("cEnq"),
			BaseCalculo:         g.Str("vBC"),
			Aliquota:            g.Str("pIPI"),
			Valor:               g.Str("vIPI"),
		}
	}
	if g := imp.Child("PIS").Group("PIS"); g != nil {
		taxes.PIS = &entity.PIS{
			Grupo:       g.Name,
			CST:         g.Str("CST"),
			BaseCalculo: g.Str("vBC"),
			Aliquota:    g.Str("pPIS"),
			Valor:       g.Str("vPIS"),
		}
	}
	if g := imp.Child("COFINS").Group("COFINS"); g != nil {
		taxes.COFINS = &entity.COFINS{
			Grupo:       g.Name,
			CST:         g.Str("CST"),
			BaseCalculo: g.Str("vBC"),
			Aliquota:    g.Str("pCOFINS"),
			Valor:       g.Str("vCOFINS"),
		}
	}
	return taxes
}

func totals(t *Node) entity.Totals {
	return entity.Totals{
		ValorProdutos:       t.Str("vProd"),
		ValorNota:           t.Str("vNF"),
		ValorICMS:           t.Str("vICMS"),
		ValorIPI:            t.Str("vIPI"),
		ValorPIS:            t.Str("vPIS"),
		ValorCOFINS:         t.Str("vCOFINS"),
		ValorTributos:       t.Str("vTotTrib"),
		BaseCalculoICMS:     t.Str("vBC"),
		BaseCalculoST:       t.Str("vBCST"),
		ValorST:             t.Str("vST"),
		ValorFrete:          t.Str("vFrete"),
		ValorSeguro:         t.Str("vSeg"),
		ValorDesconto:       t.Str("vDesc"),
		ValorOutros:         t.Str("vOutro"),
		ValorII:             t.Str("vII"),
		ValorICMSDesonerado: t.Str("vICMSDeson"),
		ValorFCP:            t.Str("vFCP"),
		ValorFCPST:          t.Str("vFCPST"),
		ValorFCPSTRet:       t.Str("vFCPSTRet"),
		ValorIPIDevolvido:   t.Str("vIPIDevol"),
	}
}

func shipping(transp *Node) entity.Shipping {
	s := entity.Shipping{ModalidadeFrete: transp.Str("modFrete")}
	if tr := transp.Child("transporta"); tr != nil {
		s.Transportadora = &entity.Carrier{
			Nome:              tr.Str("xNome"),
			CNPJ:              firstNonEmpty(tr.Str("CNPJ"), tr.Str("CPF")),
			InscricaoEstadual: tr.Str("IE"),
			Endereco:          tr.Str("xEnder"),
			Municipio:         tr.Str("xMun"),
			UF:                tr.Str("UF"),
		}
	}
	for _, v := range transp.Seq("vol") {
		s.Volumes = append(s.Volumes, entity.Volume{
			Quantidade:  v.Str("qVol"),
			Especie:     v.Str("esp"),
			PesoLiquido: v.Str("pesoL"),
			PesoBruto:   v.Str("pesoB"),
			Marca:       v.Str("marca"),
			Numeracao:   v.Str("nVol"),
		})
	}
	return s
}

func billing(cobr *Node) *entity.Billing {
	if cobr == nil {
		return nil
	}
	b := &entity.Billing{}
	if fat := cobr.Child("fat"); fat != nil {
		b.Fatura = &entity.Invoice{
			Numero:        fat.Str("nFat"),
			ValorOriginal: fat.Str("vOrig"),
			ValorDesconto: fat.Str("vDesc"),
			ValorLiquido:  fat.Str("vLiq"),
		}
	}
	for _, d := range cobr.Seq("dup") {
		b.Duplicatas = append(b.Duplicatas, entity.Installment{
			Numero:         d.Str("nDup"),
			DataVencimento: d.Str("dVenc"),
			Valor:          d.Str("vDup"),
		})
	}
	return b
}

func payments(pag *Node) []entity.Payment {
	var out []entity.Payment
	for _, d := range pag.Seq("detPag") {
		out = append(out, entity.Payment{
			Forma:              d.Str("tPag"),
			Valor:              d.Str("vPag"),
			IndicadorPagamento: d.Str("indPag"),
		})
	}
	return out
}

func protocol(inf *Node) *entity.Protocol {
	if inf == nil {
		return nil
	}
	return &entity.Protocol{
		Numero:          inf.Str("nProt"),
		DataRecebimento: inf.Str("dhRecbto"),
		Motivo:          inf.Str("xMotivo"),
		CodigoStatus:    inf.Str("cStat"),
		DigestValue:     inf.Str("digVal"),
		ChaveNFe:        inf.Str("chNFe"),
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func gtin(s string) string {
	if strings.EqualFold(s, semGTIN) {
		return ""
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
