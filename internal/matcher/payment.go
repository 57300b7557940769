package matcher

import (
	"regexp"
	"strings"

	"github.com/zombor/invoice-check/internal/invoice"
)

// Line positions inside a Swiss QR-bill payload (SPC, version 0200)
const (
	qrLineHeader    = 0
	qrLineIBAN      = 3
	qrLineCreditor  = 5
	qrLineAmount    = 18
	qrLineReference = 28
	qrLineMessage   = 29
)

var (
	// payment text candidates, most specific first
	paymentTextPatterns = []*regexp.Regexp{
		regexp.MustCompile(`SPC\r?\n\d{4}\r?\n[\s\S]*?(?:\r?\nEPD|\z)`),
		regexp.MustCompile(`SPC/[\dA-Za-z\s/.\-,]*`),
		regexp.MustCompile(`\b(?:CH|LI)\d{2}(?: ?[0-9A-Z]){17}\b`),
		regexp.MustCompile(`(?i)https?://\S+`),
	}

	ibanPattern = regexp.MustCompile(`\b(?:CH|LI)\d{2}(?: ?[0-9A-Z]){17}\b`)
)

// FindPaymentText returns the first payment-related fragment of text: a Swiss
// QR-bill payload, an IBAN or a payment link. It returns "" when none exists.
func FindPaymentText(text string) string {
	for _, p := range paymentTextPatterns {
		if m := p.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

// MatchPayment extracts payment fields from a payment text. It returns nil
// when no field could be recovered.
func MatchPayment(text string) *invoice.Payment {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	p := &invoice.Payment{}
	if lines := qrLines(text); lines != nil {
		p.IBAN = normalizeIBAN(field(lines, qrLineIBAN))
		p.Creditor = field(lines, qrLineCreditor)
		if a := field(lines, qrLineAmount); a != nil {
			if d, err := invoice.ParseAmount(*a); err == nil {
				p.Amount = &d
			}
		}
		p.Reference = field(lines, qrLineReference)
		p.Description = field(lines, qrLineMessage)
	}

	if p.IBAN == nil {
		if m := ibanPattern.FindString(text); m != "" {
			p.IBAN = normalizeIBAN(&m)
		}
	}

	if p.IsEmpty() {
		return nil
	}
	return p
}

// qrLines splits a QR-bill payload into its lines, or returns nil when text
// does not start with the SPC header.
func qrLines(text string) []string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if strings.TrimSpace(lines[qrLineHeader]) != "SPC" {
		return nil
	}
	return lines
}

func field(lines []string, i int) *string {
	if i >= len(lines) {
		return nil
	}
	v := strings.TrimSpace(lines[i])
	if v == "" {
		return nil
	}
	return &v
}

func normalizeIBAN(s *string) *string {
	if s == nil {
		return nil
	}
	iban := strings.ToUpper(strings.ReplaceAll(*s, " ", ""))
	if iban == "" {
		return nil
	}
	return &iban
}
