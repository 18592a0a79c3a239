package nfe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/danfe-xml-api/internal/domain"
	"github.com/jhoicas/danfe-xml-api/pkg/nfe"
)

const (
	// Chave real de una NF-e autorizada (SP, 11/2024, modelo 55).
	validKey = "35241145070190000232550010006198721341979067"
	// Misma raíz con número 1 y cNF 10000000; dígito calculado = 3.
	otherValidKey = "35241145070190000232550010000000011000000013"
)

// ──────────────────────────────────────────────────────────────────────────────
// Dígito verificador
// ──────────────────────────────────────────────────────────────────────────────

func TestCheckDigit_ChavesConocidas(t *testing.T) {
	dv, err := nfe.CheckDigit(validKey[:43])
	require.NoError(t, err)
	assert.Equal(t, byte('7'), dv)

	dv, err = nfe.CheckDigit(otherValidKey[:43])
	require.NoError(t, err)
	assert.Equal(t, byte('3'), dv)
}

func TestCheckDigit_LongitudIncorrecta(t *testing.T) {
	_, err := nfe.CheckDigit("123")
	assert.Error(t, err)
	_, err = nfe.CheckDigit(validKey[:42] + "X")
	assert.Error(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Validación de la chave
// ──────────────────────────────────────────────────────────────────────────────

func TestValidateAccessKey_Valida(t *testing.T) {
	assert.NoError(t, nfe.ValidateAccessKey(validKey))
	assert.NoError(t, nfe.ValidateAccessKey(otherValidKey))
}

func TestValidateAccessKey_Invalidas(t *testing.T) {
	cases := map[string]struct {
		key     string
		mensaje string
	}{
		"dígito verificador": {validKey[:43] + "0", "dígito verificador"},
		"longitud":           {validKey[:40], "44 dígitos"},
		"no numérica":        {validKey[:43] + "A", "44 dígitos"},
		"UF inexistente":     {"99" + validKey[2:], "UF"},
		"mes trece":          {validKey[:4] + "13" + validKey[6:], "mês"},
		"modelo 57":          {validKey[:20] + "57" + validKey[22:], "modelo"},
		"CNPJ inválido":      {validKey[:6] + "11111111111111" + validKey[20:], "CNPJ"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := nfe.ValidateAccessKey(tc.key)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Contains(t, err.Error(), tc.mensaje)
		})
	}
}

func TestParseAccessKey_Componentes(t *testing.T) {
	k, err := nfe.ParseAccessKey(validKey)
	require.NoError(t, err)

	assert.Equal(t, "35", k.UFCode)
	assert.Equal(t, "SP", k.UF)
	assert.Equal(t, "24", k.Year)
	assert.Equal(t, "11", k.Month)
	assert.Equal(t, "45070190000232", k.IssuerCNPJ)
	assert.Equal(t, nfe.ModelNFe, k.Model)
	assert.Equal(t, "001", k.Series)
	assert.Equal(t, "000619872", k.Number)
	assert.Equal(t, "1", k.EmissionType)
	assert.Equal(t, "34197906", k.NumericCode)
	assert.Equal(t, "7", k.CheckDigit)
}

func TestMaskAccessKey(t *testing.T) {
	assert.Equal(t, "3524***9067", nfe.MaskAccessKey(validKey))
	assert.Equal(t, "***", nfe.MaskAccessKey("1234"))
}

// ──────────────────────────────────────────────────────────────────────────────
// CNPJ
// ──────────────────────────────────────────────────────────────────────────────

func TestValidCNPJ(t *testing.T) {
	assert.True(t, nfe.ValidCNPJ("45070190000232"))
	assert.True(t, nfe.ValidCNPJ("45524426000182"))
	assert.False(t, nfe.ValidCNPJ("45070190000233"))
	assert.False(t, nfe.ValidCNPJ("00000000000000"))
	assert.False(t, nfe.ValidCNPJ("4507019000023"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Catálogos y valores
// ──────────────────────────────────────────────────────────────────────────────

func TestCatalogos(t *testing.T) {
	assert.Equal(t, "SAÍDA", nfe.DescribeOperationType("1"))
	assert.Equal(t, "ENTRADA", nfe.DescribeOperationType("0"))
	assert.True(t, nfe.IsOutbound("1"))
	assert.False(t, nfe.IsInbound("1"))
	assert.Equal(t, "Produção", nfe.DescribeEnvironment("1"))
	assert.Equal(t, "Devolução de mercadoria", nfe.DescribePurpose("4"))
	assert.Equal(t, "Sem Ocorrência de Transporte", nfe.DescribeFreightMode("9"))
	assert.Equal(t, "Boleto Bancário", nfe.DescribePaymentForm("15"))
	assert.Equal(t, "Código 77", nfe.DescribePaymentForm("77"))
	assert.Equal(t, "Não informado", nfe.DescribeEnvironment(""))
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "52.964,34", nfe.FormatBRL("52964.34"))
	assert.Equal(t, "1.000.000,00", nfe.FormatBRL("1000000"))
	assert.Equal(t, "0,00", nfe.FormatBRL(""))
	assert.Equal(t, "-12,50", nfe.FormatBRL("-12.5"))
	assert.Equal(t, "74,75", nfe.FormatBRL("74.7531340188"))
}

func TestParseAmount_Invalido(t *testing.T) {
	assert.True(t, nfe.ParseAmount("abc").IsZero())
	assert.Equal(t, "443.52", nfe.ParseAmount("443.5200").String())
}
