// Package nfe contiene la validación de la chave de acesso de la NF-e y los
// catálogos del layout 4.00 (Manual de Orientação do Contribuinte).
package nfe

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jhoicas/danfe-xml-api/internal/domain"
)

// AccessKeyLength longitud fija de la chave de acesso.
const AccessKeyLength = 44

// Modelos de documento aceptados.
const (
	ModelNFe  = "55"
	ModelNFCe = "65"
)

// códigos IBGE de las unidades federativas.
var ufCodes = map[string]string{
	"11": "RO", "12": "AC", "13": "AM", "14": "RR", "15": "PA", "16": "AP", "17": "TO",
	"21": "MA", "22": "PI", "23": "CE", "24": "RN", "25": "PB", "26": "PE", "27": "AL", "28": "SE", "29": "BA",
	"31": "MG", "32": "ES", "33": "RJ", "35": "SP",
	"41": "PR", "42": "SC", "43": "RS",
	"50": "MS", "51": "MT", "52": "GO", "53": "DF",
}

// AccessKey componentes posicionales de una chave de acesso.
type AccessKey struct {
	Raw          string
	UFCode       string // cUF
	UF           string // sigla, ej. SP
	Year         string // AA
	Month        string // MM
	IssuerCNPJ   string
	Model        string // 55 | 65
	Series       string
	Number       string
	EmissionType string // tpEmis
	NumericCode  string // cNF
	CheckDigit   string // cDV
}

// CheckDigit calcula el dígito verificador (módulo 11) sobre los 43 primeros dígitos.
// Los pesos van de 2 a 9 de derecha a izquierda; resto < 2 => 0.
func CheckDigit(first43 string) (byte, error) {
	if len(first43) != AccessKeyLength-1 || !allDigits(first43) {
		return 0, fmt.Errorf("nfe: são necessários 43 dígitos, recebido %q", first43)
	}
	sum, weight := 0, 2
	for i := len(first43) - 1; i >= 0; i-- {
		sum += int(first43[i]-'0') * weight
		if weight++; weight > 9 {
			weight = 2
		}
	}
	rem := sum % 11
	if rem < 2 {
		return '0', nil
	}
	return byte('0' + (11 - rem)), nil
}

// ValidateAccessKey valida formato, UF, mes, CNPJ del emisor, modelo y dígito verificador.
// Todos los errores envuelven domain.ErrInvalidInput.
func ValidateAccessKey(key string) error {
	if len(key) != AccessKeyLength || !allDigits(key) {
		return fmt.Errorf("%w: chave de acesso deve conter exatamente 44 dígitos numéricos", domain.ErrInvalidInput)
	}

	var errs []error
	if _, ok := ufCodes[key[0:2]]; !ok {
		errs = append(errs, fmt.Errorf("código de UF inválido: %s", key[0:2]))
	}
	if m, _ := strconv.Atoi(key[4:6]); m < 1 || m > 12 {
		errs = append(errs, fmt.Errorf("mês inválido: %s", key[4:6]))
	}
	if !ValidCNPJ(key[6:20]) {
		errs = append(errs, fmt.Errorf("CNPJ do emitente inválido"))
	}
	if mod := key[20:22]; mod != ModelNFe && mod != ModelNFCe {
		errs = append(errs, fmt.Errorf("modelo inválido: %s (esperado 55 ou 65)", mod))
	}
	if dv, _ := CheckDigit(key[:43]); dv != key[43] {
		errs = append(errs, fmt.Errorf("dígito verificador inválido: esperado %c, recebido %c", dv, key[43]))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// ParseAccessKey valida la chave y la descompone en sus campos.
func ParseAccessKey(key string) (AccessKey, error) {
	if err := ValidateAccessKey(key); err != nil {
		return AccessKey{}, err
	}
	return AccessKey{
		Raw:          key,
		UFCode:       key[0:2],
		UF:           ufCodes[key[0:2]],
		Year:         key[2:4],
		Month:        key[4:6],
		IssuerCNPJ:   key[6:20],
		Model:        key[20:22],
		Series:       key[22:25],
		Number:       key[25:34],
		EmissionType: key[34:35],
		NumericCode:  key[35:43],
		CheckDigit:   key[43:44],
	}, nil
}

// MaskAccessKey oculta la parte central de la chave para logs: 3524***9067.
func MaskAccessKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:4] + "***" + key[len(key)-4:]
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
