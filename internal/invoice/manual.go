package invoice

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ManualInput is a hand-entered invoice submitted for validation.
// Amounts may be JSON numbers or strings.
type ManualInput struct {
	InvoiceNumber string          `json:"invoiceNumber"`
	Date          string          `json:"date"`
	Supplier      string          `json:"supplier"`
	Recipient     string          `json:"recipient"`
	NetAmount     json.RawMessage `json:"netAmount"`
	VATAmount     json.RawMessage `json:"vatAmount"`
	GrossAmount   json.RawMessage `json:"grossAmount"`
	VATRate       json.RawMessage `json:"vatRate"`
}

// ToRecord converts the input into a Record. invoiceNumber, netAmount and grossAmount
// are required; vatAmount defaults to 0.
func (in ManualInput) ToRecord() (*Record, error) {
	var missing []string
	if strings.TrimSpace(in.InvoiceNumber) == "" {
		missing = append(missing, "invoiceNumber")
	}
	if isBlank(in.NetAmount) {
		missing = append(missing, "netAmount")
	}
	if isBlank(in.GrossAmount) {
		missing = append(missing, "grossAmount")
	}
	if len(missing) > 0 {
		return nil, &InputError{Fields: missing, Err: ErrMissingField}
	}

	var invalid []string
	parse := func(field string, raw json.RawMessage) *decimal.Decimal {
		if isBlank(raw) {
			return nil
		}
		d, err := parseRawAmount(raw)
		if err != nil {
			invalid = append(invalid, field)
			return nil
		}
		return &d
	}

	r := NewRecord()
	r.InvoiceNumber = optional(in.InvoiceNumber)
	r.Date = optional(in.Date)
	r.Supplier = optional(in.Supplier)
	r.Recipient = optional(in.Recipient)
	r.NetAmount = parse("netAmount", in.NetAmount)
	r.VATAmount = parse("vatAmount", in.VATAmount)
	r.GrossAmount = parse("grossAmount", in.GrossAmount)
	if len(invalid) > 0 {
		return nil, &InputError{Fields: invalid, Err: ErrInvalidAmount}
	}
	if r.VATAmount == nil {
		r.VATAmount = Ptr(decimal.Zero)
	}
	if rate, err := parseRawAmount(in.VATRate); err == nil && !rate.IsZero() {
		r.VATRate = int(rate.IntPart())
	}
	return r, nil
}

func isBlank(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	if trimmed[0] == '"' {
		s, err := strconv.Unquote(string(trimmed))
		return err == nil && strings.TrimSpace(s) == ""
	}
	return false
}

func parseRawAmount(raw json.RawMessage) (decimal.Decimal, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return decimal.Zero, ErrInvalidAmount
		}
		return ParseAmount(s)
	}
	d, err := decimal.NewFromString(string(trimmed))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
