package invoice

import "github.com/shopspring/decimal"

// DefaultVATRate is used whenever no rate can be recovered from the source
const DefaultVATRate = 19

// LineItem is a single invoice position. No extractor populates it yet.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
}

// Record contains the structured data extracted from an invoice
type Record struct {
	InvoiceNumber *string          `json:"invoiceNumber"`
	Date          *string          `json:"date"` // day.month.year as found in the text
	Supplier      *string          `json:"supplier"`
	Recipient     *string          `json:"recipient"`
	LineItems     []LineItem       `json:"lineItems"`
	NetAmount     *decimal.Decimal `json:"netAmount"`
	VATAmount     *decimal.Decimal `json:"vatAmount"`
	GrossAmount   *decimal.Decimal `json:"grossAmount"`
	VATRate       int              `json:"vatRate"`
	AIEngine      *string          `json:"aiEngine"` // nil when produced by the pattern matcher
	PaymentText   *string          `json:"paymentText,omitempty"`
	Payment       *Payment         `json:"paymentData,omitempty"`
}

// Payment contains the data of an embedded payment slip (Swiss QR code or IBAN)
type Payment struct {
	IBAN        *string          `json:"iban"`
	Amount      *decimal.Decimal `json:"amount"`
	Creditor    *string          `json:"creditor"`
	Reference   *string          `json:"reference"`
	Description *string          `json:"description"`
	AIEngine    *string          `json:"aiEngine"`
}

// NewRecord returns an empty record with the default VAT rate
func NewRecord() *Record {
	return &Record{
		LineItems: []LineItem{},
		VATRate:   DefaultVATRate,
	}
}

// IsEmpty reports whether no payment field was found
func (p *Payment) IsEmpty() bool {
	return p.IBAN == nil && p.Amount == nil && p.Creditor == nil && p.Reference == nil && p.Description == nil
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}
