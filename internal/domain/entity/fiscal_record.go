package entity

// FiscalRecord es la representación normalizada de una NF-e (layout 4.00).
// Todos los campos obligatorios son string y valen "" cuando la tag falta en el XML;
// los subárboles opcionales son nil cuando el documento no los trae.
type FiscalRecord struct {
	NFe                   Header          `json:"nfe"`
	Emitente              Issuer          `json:"emitente"`
	Destinatario          Recipient       `json:"destinatario"`
	Entrega               *Delivery       `json:"entrega,omitempty"`
	Produtos              []Item          `json:"produtos"`
	Totais                Totals          `json:"totais"`
	Transporte            Shipping        `json:"transporte"`
	Cobranca              *Billing        `json:"cobranca,omitempty"`
	Pagamento             []Payment       `json:"pagamento,omitempty"`
	InformacoesAdicionais *AdditionalInfo `json:"informacoesAdicionais,omitempty"`
	Protocolo             *Protocol       `json:"protocolo,omitempty"`
}

// Header datos de identificación (ide + chave).
type Header struct {
	ChaveAcesso       string `json:"chaveAcesso"`
	Numero            string `json:"numero"`
	Serie             string `json:"serie"`
	DataEmissao       string `json:"dataEmissao"`
	ValorTotal        string `json:"valorTotal"`
	NaturezaOperacao  string `json:"naturezaOperacao"`
	TipoNF            string `json:"tipoNF"`
	Ambiente          string `json:"ambiente"`
	Finalidade        string `json:"finalidade"`
	CodigoNumerico    string `json:"codigoNumerico"`
	DigitoVerificador string `json:"digitoVerificador"`
	Modelo            string `json:"modelo"`
	IndicadorPresenca string `json:"indicadorPresenca"`
	IndicadorFinal    string `json:"indicadorFinal"`
	IndicadorDestino  string `json:"indicadorDestino"`
	TipoEmissao       string `json:"tipoEmissao"`
	CodigoMunicipioFG string `json:"codigoMunicipioFatoGerador"`
	DataSaidaEntrada  string `json:"dataSaidaEntrada,omitempty"`
}

// Address endereço (enderEmit, enderDest, entrega).
type Address struct {
	Logradouro      string `json:"logradouro"`
	Numero          string `json:"numero"`
	Complemento     string `json:"complemento,omitempty"`
	Bairro          string `json:"bairro"`
	Municipio       string `json:"municipio"`
	UF              string `json:"uf"`
	CEP             string `json:"cep"`
	Telefone        string `json:"telefone"`
	CodigoMunicipio string `json:"codigoMunicipio"`
	CodigoPais      string `json:"codigoPais"`
	NomePais        string `json:"nomePais"`
}

// Issuer emitente.
type Issuer struct {
	CNPJ                   string  `json:"cnpj"`
	RazaoSocial            string  `json:"razaoSocial"`
	NomeFantasia           string  `json:"nomeFantasia,omitempty"`
	Endereco               Address `json:"endereco"`
	InscricaoEstadual      string  `json:"inscricaoEstadual"`
	CodigoRegimeTributario string  `json:"codigoRegimeTributario"`
}

// Recipient destinatário. CpfCnpj toma CPF o CNPJ, el que venga.
type Recipient struct {
	CpfCnpj           string  `json:"cpfCnpj"`
	Nome              string  `json:"nome"`
	Endereco          Address `json:"endereco"`
	InscricaoEstadual string  `json:"inscricaoEstadual"`
	IndicadorIE       string  `json:"indicadorIE"`
	Email             string  `json:"email,omitempty"`
}

// Delivery local de entrega.
type Delivery struct {
	Nome              string  `json:"nome"`
	CpfCnpj           string  `json:"cpfCnpj"`
	Endereco          Address `json:"endereco"`
	InscricaoEstadual string  `json:"inscricaoEstadual"`
	Email             string  `json:"email"`
}

// Item linha de produto (det).
type Item struct {
	NumeroItem              string    `json:"numeroItem"`
	Codigo                  string    `json:"codigo"`
	Descricao               string    `json:"descricao"`
	Quantidade              string    `json:"quantidade"`
	Unidade                 string    `json:"unidade"`
	ValorUnitario           string    `json:"valorUnitario"`
	ValorTotal              string    `json:"valorTotal"`
	NCM                     string    `json:"ncm"`
	CFOP                    string    `json:"cfop"`
	CEST                    string    `json:"cest"`
	CodigoEAN               string    `json:"codigoEAN"`
	CodigoEANTributavel     string    `json:"codigoEANTributavel"`
	UnidadeTributavel       string    `json:"unidadeTributavel"`
	QuantidadeTributavel    string    `json:"quantidadeTributavel"`
	ValorUnitarioTributavel string    `json:"valorUnitarioTributavel"`
	IndicadorTotal          string    `json:"indicadorTotal"`
	ValorDesconto           string    `json:"valorDesconto,omitempty"`
	ValorFrete              string    `json:"valorFrete,omitempty"`
	InformacoesAdicionais   string    `json:"informacoesAdicionais"`
	Impostos                ItemTaxes `json:"impostos"`
}

// ItemTaxes impostos de la línea. ICMS siempre presente; el resto opcional.
type ItemTaxes struct {
	ICMS          ICMS    `json:"icms"`
	IPI           *IPI    `json:"ipi,omitempty"`
	PIS           *PIS    `json:"pis,omitempty"`
	COFINS        *COFINS `json:"cofins,omitempty"`
	ValorTributos string  `json:"valorTributos"`
}

// ICMS grupo de ICMS (ICMS00, ICMS20, ICMSSN102...). CST toma CSOSN en el Simples Nacional.
type ICMS struct {
	Grupo        string `json:"grupo,omitempty"`
	Origem       string `json:"origem"`
	CST          string `json:"cst"`
	ModalidadeBC string `json:"modalidadeBC"`
	BaseCalculo  string `json:"baseCalculo"`
	Aliquota     string `json:"aliquota"`
	Valor        string `json:"valor"`
}

// IPI grupo IPITrib o IPINT.
type IPI struct {
	Grupo               string `json:"grupo,omitempty"`
	CST                 string `json:"cst"`
	CodigoEnquadramento string `json:"codigoEnquadramento"`
	BaseCalculo         string `json:"baseCalculo"`
	Aliquota            string `json:"aliquota"`
	Valor               string `json:"valor"`
}

// PIS grupo PISAliq, PISQtde, PISNT o PISOutr.
type PIS struct {
	Grupo       string `json:"grupo,omitempty"`
	CST         string `json:"cst"`
	BaseCalculo string `json:"baseCalculo"`
	Aliquota    string `json:"aliquota"`
	Valor       string `json:"valor"`
}

// COFINS grupo COFINSAliq, COFINSQtde, COFINSNT o COFINSOutr.
type COFINS struct {
	Grupo       string `json:"grupo,omitempty"`
	CST         string `json:"cst"`
	BaseCalculo string `json:"baseCalculo"`
	Aliquota    string `json:"aliquota"`
	Valor       string `json:"valor"`
}

// Totals total/ICMSTot, valores tal como vienen en el XML.
type Totals struct {
	ValorProdutos       string `json:"valorProdutos"`
	ValorNota           string `json:"valorNota"`
	ValorICMS           string `json:"valorICMS"`
	ValorIPI            string `json:"valorIPI"`
	ValorPIS            string `json:"valorPIS"`
	ValorCOFINS         string `json:"valorCOFINS"`
	ValorTributos       string `json:"valorTributos"`
	BaseCalculoICMS     string `json:"baseCalculoICMS"`
	BaseCalculoST       string `json:"baseCalculoST"`
	ValorST             string `json:"valorST"`
	ValorFrete          string `json:"valorFrete"`
	ValorSeguro         string `json:"valorSeguro"`
	ValorDesconto       string `json:"valorDesconto"`
	ValorOutros         string `json:"valorOutros"`
	ValorII             string `json:"valorII"`
	ValorICMSDesonerado string `json:"valorICMSDesonerado"`
	ValorFCP            string `json:"valorFCP"`
	ValorFCPST          string `json:"valorFCPST"`
	ValorFCPSTRet       string `json:"valorFCPSTRet"`
	ValorIPIDevolvido   string `json:"valorIPIDevolvido"`
}

// Shipping transp.
type Shipping struct {
	ModalidadeFrete string   `json:"modalidadeFrete"`
	Transportadora  *Carrier `json:"transportadora,omitempty"`
	Volumes         []Volume `json:"volumes,omitempty"`
}

// Carrier transporta.
type Carrier struct {
	Nome              string `json:"nome"`
	CNPJ              string `json:"cnpj"`
	InscricaoEstadual string `json:"inscricaoEstadual"`
	Endereco          string `json:"endereco"`
	Municipio         string `json:"municipio"`
	UF                string `json:"uf"`
}

// Volume vol.
type Volume struct {
	Quantidade  string `json:"quantidade"`
	Especie     string `json:"especie"`
	PesoLiquido string `json:"pesoLiquido"`
	PesoBruto   string `json:"pesoBruto"`
	Marca       string `json:"marca"`
	Numeracao   string `json:"numeracao"`
}

// Billing cobr.
type Billing struct {
	Fatura     *Invoice      `json:"fatura,omitempty"`
	Duplicatas []Installment `json:"duplicatas,omitempty"`
}

// Invoice fat.
type Invoice struct {
	Numero        string `json:"numero"`
	ValorOriginal string `json:"valorOriginal"`
	ValorDesconto string `json:"valorDesconto"`
	ValorLiquido  string `json:"valorLiquido"`
}

// Installment dup.
type Installment struct {
	Numero         string `json:"numero"`
	DataVencimento string `json:"dataVencimento"`
	Valor          string `json:"valor"`
}

// Payment pag/detPag.
type Payment struct {
	Forma              string `json:"forma"`
	Valor              string `json:"valor"`
	IndicadorPagamento string `json:"indicadorPagamento"`
}

// AdditionalInfo infAdic.
type AdditionalInfo struct {
	InformacoesComplementares string `json:"informacoesComplementares"`
	InformacoesFisco          string `json:"informacoesFisco"`
}

// Protocol protNFe/infProt (autorización SEFAZ).
type Protocol struct {
	Numero          string `json:"numero"`
	DataRecebimento string `json:"dataRecebimento"`
	Motivo          string `json:"motivo"`
	CodigoStatus    string `json:"codigoStatus"`
	DigestValue     string `json:"digestValue"`
	ChaveNFe        string `json:"chaveNFe"`
}
