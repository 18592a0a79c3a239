package nfe

var (
	cnpjWeights1 = [12]int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = [13]int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// ValidCNPJ valida los dos dígitos verificadores de un CNPJ de 14 dígitos (sin máscara).
// Rechaza secuencias de un solo dígito repetido (00000000000000, 11111111111111...).
func ValidCNPJ(cnpj string) bool {
	if len(cnpj) != 14 || !allDigits(cnpj) {
		return false
	}
	same := true
	for i := 1; i < len(cnpj); i++ {
		if cnpj[i] != cnpj[0] {
			same = false
			break
		}
	}
	if same {
		return false
	}
	return cnpjDigit(cnpj[:12], cnpjWeights1[:]) == cnpj[12] &&
		cnpjDigit(cnpj[:13], cnpjWeights2[:]) == cnpj[13]
}

func cnpjDigit(base string, weights []int) byte {
	var sum int
	for i := 0; i < len(base); i++ {
		sum += int(base[i]-'0') * weights[i]
	}
	rem := sum % 11
	if rem < 2 {
		return '0'
	}
	return byte('0' + (11 - rem))
}
