package nfe

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount convierte un valor del XML ("52964.34") a decimal. Vacío o inválido => cero.
func ParseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatBRL formatea un valor del XML con separadores brasileños: "52964.34" → "52.964,34".
func FormatBRL(s string) string {
	d := ParseAmount(s)
	fixed := d.Abs().StringFixed(2)
	intPart, frac := fixed[:len(fixed)-3], fixed[len(fixed)-2:]

	n := len(intPart)
	buf := make([]byte, 0, n+n/3+3)
	for i := 0; i < n; i++ {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, intPart[i])
	}
	out := string(buf) + "," + frac
	if d.IsNegative() {
		return "-" + out
	}
	return out
}
