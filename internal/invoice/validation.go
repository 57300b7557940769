package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Check statuses
const (
	StatusOK = "OK"
)

// Error and warning messages produced by Validate
const (
	MsgNumberMissing     = "invoice number not found"
	MsgDateMissing       = "invoice date not found"
	MsgAmountsIncomplete = "not all amount fields could be recognized"
	MsgNumberTooShort    = "invoice number invalid or too short"
	MsgNetExceedsGross   = "net amount must not exceed gross amount"
)

// minNumberLength is the shortest invoice number accepted as plausible
const minNumberLength = 2

// sumTolerance is the allowed absolute difference between net + VAT and gross
var sumTolerance = decimal.New(1, -2)

// Check is a passed validation step, kept for audit display
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Value  string `json:"value"`
}

// ValidationResult is the outcome of Validate
type ValidationResult struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Checks   []Check  `json:"checks"`
	IsValid  bool     `json:"isValid"`
}

// Validate checks a record for required fields and arithmetic consistency.
// Entries are appended in rule order; callers display them as-is.
func Validate(r Record) ValidationResult {
	res := ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
		Checks:   []Check{},
	}
	ok := func(name, value string) {
		res.Checks = append(res.Checks, Check{Name: name, Status: StatusOK, Value: value})
	}

	if r.InvoiceNumber == nil || *r.InvoiceNumber == "" {
		res.Errors = append(res.Errors, MsgNumberMissing)
	} else {
		ok("invoice number", *r.InvoiceNumber)
	}

	if r.Date == nil || *r.Date == "" {
		res.Errors = append(res.Errors, MsgDateMissing)
	} else {
		ok("invoice date", *r.Date)
	}

	if r.NetAmount != nil && r.VATAmount != nil && r.GrossAmount != nil {
		net, vat, gross := *r.NetAmount, *r.VATAmount, *r.GrossAmount

		ok("net amount", FormatCHF(net))
		ok("vat amount", FormatCHF(vat))
		ok("gross amount", FormatCHF(gross))
		ok("vat rate", vatRate(net, vat))

		calculated := net.Add(vat)
		difference := calculated.Sub(gross).Abs()
		if difference.GreaterThan(sumTolerance) {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"sum check failed: net (%s) + vat (%s) = %s, but gross = %s (difference: %s)",
				FormatCHF(net), FormatCHF(vat), FormatCHF(calculated), FormatCHF(gross), FormatCHF(difference),
			))
		} else {
			ok("sum check (net + vat = gross)", "correct")
		}
	} else {
		res.Warnings = append(res.Warnings, MsgAmountsIncomplete)
	}

	if r.InvoiceNumber != nil && *r.InvoiceNumber != "" && len([]rune(*r.InvoiceNumber)) < minNumberLength {
		res.Errors = append(res.Errors, MsgNumberTooShort)
	}

	if r.NetAmount != nil && r.GrossAmount != nil && r.NetAmount.GreaterThan(*r.GrossAmount) {
		res.Errors = append(res.Errors, MsgNetExceedsGross)
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

// vatRate renders vat / net as a percentage
func vatRate(net, vat decimal.Decimal) string {
	if net.IsZero() {
		return "n/a"
	}
	return vat.Div(net).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}
