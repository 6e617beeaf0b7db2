package extract

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeAmount converts a Brazilian-formatted amount ("1.234,56") into a
// float64. It returns nil when the string cannot be parsed.
//
// A lone "." is ambiguous: it is kept as the decimal separator only when
// exactly two characters follow the last one, otherwise every "." is treated
// as a thousands separator. "12.5" therefore reads as 125.
func NormalizeAmount(s string) *float64 {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return nil
	}

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")

	switch {
	case hasDot && hasComma:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	case hasDot:
		if len(s)-strings.LastIndex(s, ".")-1 != 2 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	f, _ := d.Float64()
	return &f
}
