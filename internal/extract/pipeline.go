package extract

import (
	"context"

	"github.com/zombor/invoice-check/internal/invoice"
	"github.com/zombor/invoice-check/internal/matcher"
)

// previewLimit is the number of characters of source text kept in a Result.
const previewLimit = 1000

// Result is the outcome of one pipeline run
type Result struct {
	Record      *invoice.Record          `json:"invoice"`
	Validation  invoice.ValidationResult `json:"validation"`
	TextPreview string                   `json:"textPreview"`
}

// Pipeline extracts payment and invoice data from text and validates the invoice
type Pipeline struct {
	extractor *Extractor
}

func NewPipeline(extractor *Extractor) *Pipeline {
	return &Pipeline{extractor: extractor}
}

// Run never fails: backend problems degrade to the deterministic tier and
// validation problems are reported in the Result.
func (p *Pipeline) Run(ctx context.Context, text string) *Result {
	paymentText := matcher.FindPaymentText(text)

	var payment *invoice.Payment
	if paymentText != "" {
		payment = p.extractor.ExtractPayment(ctx, paymentText)
	}

	rec := p.extractor.ExtractInvoice(ctx, text)
	if paymentText != "" {
		rec.PaymentText = invoice.Ptr(paymentText)
	}
	rec.Payment = payment

	return &Result{
		Record:      rec,
		Validation:  invoice.Validate(*rec),
		TextPreview: preview(text),
	}
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewLimit {
		return text
	}
	return string(r[:previewLimit])
}
