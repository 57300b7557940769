// Package extract turns free-form invoice text into structured records by
// walking an ordered chain of tiers: cloud model, local model, pattern matcher.
package extract

import (
	"context"
	"errors"
	"log/slog"

	"github.com/zombor/invoice-check/internal/invoice"
	"github.com/zombor/invoice-check/internal/llm"
)

// Extractor runs the fallback chains for invoices and payments
type Extractor struct {
	invoiceTiers []Tier[invoice.Record]
	paymentTiers []Tier[invoice.Payment]
}

// NewExtractor builds the tier chains. Either backend may be nil.
func NewExtractor(src AvailabilitySource, cloud, local llm.Backend) *Extractor {
	invoiceSchema := InvoiceSchema()
	paymentSchema := PaymentSchema()

	return NewExtractorWithTiers(
		[]Tier[invoice.Record]{
			NewCloudTier(cloud, invoiceSchema, src),
			NewLocalTier(local, invoiceSchema, src),
			NewDeterministicTier(invoiceSchema),
		},
		[]Tier[invoice.Payment]{
			NewCloudTier(cloud, paymentSchema, src),
			NewLocalTier(local, paymentSchema, src),
			NewDeterministicTier(paymentSchema),
		},
	)
}

// NewExtractorWithTiers creates an Extractor with explicit tier chains (for testing)
func NewExtractorWithTiers(invoiceTiers []Tier[invoice.Record], paymentTiers []Tier[invoice.Payment]) *Extractor {
	return &Extractor{
		invoiceTiers: invoiceTiers,
		paymentTiers: paymentTiers,
	}
}

// ExtractInvoice returns the record of the first tier that produced one. The
// result is never nil.
func (e *Extractor) ExtractInvoice(ctx context.Context, text string) *invoice.Record {
	rec := runTiers(ctx, InvoiceSchemaName, e.invoiceTiers, text)
	if rec == nil {
		return invoice.NewRecord()
	}
	return rec
}

// ExtractPayment returns the payment found in text, or nil when there is none.
func (e *Extractor) ExtractPayment(ctx context.Context, text string) *invoice.Payment {
	return runTiers(ctx, PaymentSchemaName, e.paymentTiers, text)
}

func runTiers[T any](ctx context.Context, schema string, tiers []Tier[T], text string) *T {
	for _, tier := range tiers {
		rec, err := tier.Attempt(ctx, text)
		if err != nil {
			tierErr := &TierError{Tier: tier.Name(), Schema: schema, Err: err}
			if errors.Is(err, llm.ErrBackendUnavailable) {
				slog.Debug("Skipping extraction tier", "tier", tier.Name(), "schema", schema)
			} else {
				slog.Warn("Extraction tier failed", "tier", tier.Name(), "schema", schema, "error", tierErr)
			}
			continue
		}
		if rec != nil {
			slog.Info("Extraction tier succeeded", "tier", tier.Name(), "schema", schema)
			return rec
		}
		slog.Debug("Extraction tier found nothing", "tier", tier.Name(), "schema", schema)
	}
	return nil
}
