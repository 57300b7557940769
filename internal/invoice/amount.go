package invoice

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a monetary amount written with either '.' or ',' as decimal
// separator. When both appear, the last one is the decimal separator and the other
// one groups thousands ("1.234,50", "1,234.50"). Apostrophe grouping ("1'234.50") is
// accepted as well.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("'", "", "’", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// FormatCHF renders an amount the way it is shown on Swiss invoices, e.g. "CHF 1234,50"
func FormatCHF(d decimal.Decimal) string {
	return "CHF " + strings.Replace(d.StringFixed(2), ".", ",", 1)
}
