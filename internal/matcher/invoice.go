// Package matcher extracts invoice and payment fields from plain text using
// fixed patterns. It is the last extraction tier and is always available.
package matcher

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/invoice-check/internal/invoice"
)

var (
	numberPattern = regexp.MustCompile(`(?i)\b(?:Rechnungs?nr\.?|Rechnungs?nummer|Invoice\s?No\.?|RN)[:\s]+([A-Z0-9\-/]+)`)

	labeledDatePattern = regexp.MustCompile(`(?i)\b(?:Datum|Date|Rechnungs?datum)[:\s]+(\d{1,2}[./-]\d{1,2}[./-]\d{4})`)
	bareDatePattern    = regexp.MustCompile(`(\d{1,2}[./-]\d{1,2}[./-]\d{4})`)

	netPattern   = regexp.MustCompile(`(?i)\b(?:Netto|Subtotal|Summe\s+Netto|Net)[:\s]+([0-9]+[.,][0-9]{2})`)
	vatPattern   = regexp.MustCompile(`(?i)\b(?:MwSt|VAT|Mehrwertsteuer|Steuerbetrag|Tax)[:\s]+([0-9]+[.,][0-9]{2})`)
	grossPattern = regexp.MustCompile(`(?i)\b(?:Brutto|Total|Gesamtbetrag|Grand\s+Total|Amount\s+Due)[:\s]+([0-9]+[.,][0-9]{2})`)

	vatRatePattern = regexp.MustCompile(`(?i)\b(?:MwSt-?Satz|VAT\s+Rate|Steuersatz)[:\s]+(\d{1,2})\s*%`)

	// two-decimal tokens used for numeric-gap recovery
	numberTokenPattern = regexp.MustCompile(`\d+[.,]\d{2}`)
)

// MatchInvoice extracts invoice fields from text. It never fails: fields without
// evidence stay nil and the VAT rate falls back to the default.
func MatchInvoice(text string) *invoice.Record {
	r := invoice.NewRecord()

	if m := numberPattern.FindStringSubmatch(text); m != nil {
		r.InvoiceNumber = invoice.Ptr(strings.TrimSpace(m[1]))
	}

	if m := labeledDatePattern.FindStringSubmatch(text); m != nil {
		r.Date = invoice.Ptr(m[1])
	} else if m := bareDatePattern.FindStringSubmatch(text); m != nil {
		r.Date = invoice.Ptr(m[1])
	}

	r.NetAmount = labeledAmount(netPattern, text)
	r.VATAmount = labeledAmount(vatPattern, text)
	r.GrossAmount = labeledAmount(grossPattern, text)

	if r.NetAmount == nil || r.VATAmount == nil || r.GrossAmount == nil {
		recoverAmounts(r, text)
	}

	if m := vatRatePattern.FindStringSubmatch(text); m != nil {
		if rate, err := strconv.Atoi(m[1]); err == nil {
			r.VATRate = rate
		}
	}

	return r
}

// recoverAmounts fills still-missing amounts from the last three two-decimal
// tokens of the text: net, VAT and gross in document order. Amounts already
// matched by label are never overwritten.
func recoverAmounts(r *invoice.Record, text string) {
	tokens := numberTokens(text)
	if len(tokens) < 3 {
		return
	}
	n := len(tokens)
	if r.NetAmount == nil {
		r.NetAmount = invoice.Ptr(tokens[n-3])
	}
	if r.VATAmount == nil {
		r.VATAmount = invoice.Ptr(tokens[n-2])
	}
	if r.GrossAmount == nil {
		r.GrossAmount = invoice.Ptr(tokens[n-1])
	}
}

func numberTokens(text string) []decimal.Decimal {
	matches := numberTokenPattern.FindAllString(text, -1)
	tokens := make([]decimal.Decimal, 0, len(matches))
	for _, m := range matches {
		if d, err := decimal.NewFromString(strings.Replace(m, ",", ".", 1)); err == nil {
			tokens = append(tokens, d)
		}
	}
	return tokens
}

func labeledAmount(pattern *regexp.Regexp, text string) *decimal.Decimal {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	d, err := decimal.NewFromString(strings.Replace(m[1], ",", ".", 1))
	if err != nil {
		return nil
	}
	return &d
}
