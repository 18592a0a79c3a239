package nfe

// =============================================================================
// tpNF - Tipo de operação
// =============================================================================

const (
	OperationInbound  = "0" // Entrada
	OperationOutbound = "1" // Saída
)

// IsInbound indica nota de entrada (tpNF = 0).
func IsInbound(tpNF string) bool { return tpNF == OperationInbound }

// IsOutbound indica nota de saída (tpNF = 1).
func IsOutbound(tpNF string) bool { return tpNF == OperationOutbound }

// DescribeOperationType devuelve ENTRADA, SAÍDA o DESCONHECIDO.
func DescribeOperationType(tpNF string) string {
	switch tpNF {
	case OperationInbound:
		return "ENTRADA"
	case OperationOutbound:
		return "SAÍDA"
	default:
		return "DESCONHECIDO"
	}
}

// =============================================================================
// tpAmb - Ambiente
// =============================================================================

var environments = map[string]string{
	"1": "Produção",
	"2": "Homologação",
}

// DescribeEnvironment descripción del ambiente de emisión.
func DescribeEnvironment(tpAmb string) string { return describe(environments, tpAmb) }

// =============================================================================
// finNFe - Finalidade de emissão
// =============================================================================

var purposes = map[string]string{
	"1": "NF-e normal",
	"2": "NF-e complementar",
	"3": "NF-e de ajuste",
	"4": "Devolução de mercadoria",
}

// DescribePurpose descripción de la finalidad.
func DescribePurpose(finNFe string) string { return describe(purposes, finNFe) }

// =============================================================================
// modFrete - Modalidade do frete
// =============================================================================

var freightModes = map[string]string{
	"0": "Contratação do Frete por conta do Remetente (CIF)",
	"1": "Contratação do Frete por conta do Destinatário (FOB)",
	"2": "Contratação do Frete por conta de Terceiros",
	"3": "Transporte Próprio por conta do Remetente",
	"4": "Transporte Próprio por conta do Destinatário",
	"9": "Sem Ocorrência de Transporte",
}

// DescribeFreightMode descripción de la modalidad de flete.
func DescribeFreightMode(modFrete string) string { return describe(freightModes, modFrete) }

// =============================================================================
// tPag - Meio de pagamento
// =============================================================================

var paymentForms = map[string]string{
	"01": "Dinheiro",
	"02": "Cheque",
	"03": "Cartão de Crédito",
	"04": "Cartão de Débito",
	"05": "Crédito Loja",
	"10": "Vale Alimentação",
	"11": "Vale Refeição",
	"12": "Vale Presente",
	"13": "Vale Combustível",
	"14": "Duplicata Mercantil",
	"15": "Boleto Bancário",
	"16": "Depósito Bancário",
	"17": "Pagamento Instantâneo (PIX)",
	"18": "Transferência bancária, Carteira Digital",
	"19": "Programa de fidelidade, Cashback, Crédito Virtual",
	"90": "Sem pagamento",
	"99": "Outros",
}

// DescribePaymentForm descripción del medio de pago.
func DescribePaymentForm(tPag string) string { return describe(paymentForms, tPag) }

func describe(table map[string]string, code string) string {
	if d, ok := table[code]; ok {
		return d
	}
	if code == "" {
		return "Não informado"
	}
	return "Código " + code
}
