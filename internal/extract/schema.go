package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/zombor/invoice-check/internal/invoice"
	"github.com/zombor/invoice-check/internal/llm"
	"github.com/zombor/invoice-check/internal/matcher"
)

const (
	// InvoiceSchemaName and PaymentSchemaName label log lines and tier errors.
	InvoiceSchemaName = "invoice"
	PaymentSchemaName = "payment"

	// paymentPromptLimit caps how much payment text is sent to a model.
	paymentPromptLimit = 1000
)

// Schema describes one extraction target: how to ask a model for it, how to
// turn the answer into a record and how to find it without a model.
type Schema[T any] struct {
	Name         string
	CloudTimeout time.Duration
	LocalTimeout time.Duration

	prompt   func(text string) string
	shape    *jsonschema.Schema
	coerce   func(data []byte) (*T, error)
	tag      func(rec *T, engine string)
	fallback func(text string) *T
}

// Prompt builds the model prompt for text.
func (s Schema[T]) Prompt(text string) string {
	return s.prompt(text)
}

// Decode pulls the JSON object out of a raw model response, checks its shape and
// coerces it into a record. A nil record without error means the model found nothing.
func (s Schema[T]) Decode(response string) (*T, error) {
	object, err := llm.ExtractJSONObject(response)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(strings.NewReader(object))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: decoding %s object: %v", llm.ErrMalformedResponse, s.Name, err)
	}
	if err := s.shape.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %s object does not match schema: %v", llm.ErrMalformedResponse, s.Name, err)
	}

	return s.coerce([]byte(object))
}

// InvoiceSchema returns the invoice extraction target.
func InvoiceSchema() Schema[invoice.Record] {
	return Schema[invoice.Record]{
		Name:         InvoiceSchemaName,
		CloudTimeout: 25 * time.Second,
		LocalTimeout: 60 * time.Second,
		prompt:       invoicePrompt,
		shape:        invoiceShape,
		coerce:       coerceInvoice,
		tag: func(rec *invoice.Record, engine string) {
			rec.AIEngine = invoice.Ptr(engine)
		},
		fallback: matcher.MatchInvoice,
	}
}

// PaymentSchema returns the payment extraction target.
func PaymentSchema() Schema[invoice.Payment] {
	return Schema[invoice.Payment]{
		Name:         PaymentSchemaName,
		CloudTimeout: 15 * time.Second,
		LocalTimeout: 60 * time.Second,
		prompt:       paymentPrompt,
		shape:        paymentShape,
		coerce:       coercePayment,
		tag: func(p *invoice.Payment, engine string) {
			p.AIEngine = invoice.Ptr(engine)
		},
		fallback: matcher.MatchPayment,
	}
}

const invoicePromptTemplate = `You are a precise invoice parser. Extract EXACTLY the following data from this invoice text as JSON.

INVOICE TEXT:
%s

Answer ONLY with valid JSON, no explanations. Use null for anything you cannot find:
{
  "invoiceNumber": "invoice number or null",
  "date": "invoice date as dd.mm.yyyy or null",
  "supplier": "name of the supplier or null",
  "recipient": "name of the recipient or null",
  "netAmount": 0.00,
  "vatAmount": 0.00,
  "grossAmount": 0.00,
  "vatRate": 19
}`

const paymentPromptTemplate = `You are an expert in Swiss QR bills and IBANs. Parse this QR code / IBAN text.

TEXT:
%s

Answer ONLY with valid JSON, no explanations. Use null for anything you cannot find:
{
  "iban": "IBAN or null",
  "amount": 0.00,
  "creditor": "name or null",
  "reference": "reference or null",
  "description": "text or null"
}`

func invoicePrompt(text string) string {
	return fmt.Sprintf(invoicePromptTemplate, text)
}

func paymentPrompt(text string) string {
	if r := []rune(text); len(r) > paymentPromptLimit {
		text = string(r[:paymentPromptLimit])
	}
	return fmt.Sprintf(paymentPromptTemplate, text)
}

var (
	invoiceShape = mustCompileShape("invoice.json", []string{
		"invoiceNumber", "date", "supplier", "recipient",
		"netAmount", "vatAmount", "grossAmount", "vatRate",
	})
	paymentShape = mustCompileShape("payment.json", []string{
		"iban", "amount", "creditor", "reference", "description",
	})
)

// mustCompileShape builds a lenient schema: an object carrying at least one of
// keys, each of which may be a string, a number or null.
func mustCompileShape(name string, keys []string) *jsonschema.Schema {
	properties := make(map[string]any, len(keys))
	anyOf := make([]any, 0, len(keys))
	for _, k := range keys {
		properties[k] = map[string]any{"type": []string{"string", "number", "null"}}
		anyOf = append(anyOf, map[string]any{"required": []string{k}})
	}
	schemaMap := map[string]any{
		"type":       "object",
		"properties": properties,
		"anyOf":      anyOf,
	}

	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("marshal %s schema: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add %s schema: %v", name, err))
	}
	return compiler.MustCompile(name)
}

type invoiceResponse struct {
	InvoiceNumber json.RawMessage `json:"invoiceNumber"`
	Date          json.RawMessage `json:"date"`
	Supplier      json.RawMessage `json:"supplier"`
	Recipient     json.RawMessage `json:"recipient"`
	NetAmount     json.RawMessage `json:"netAmount"`
	VATAmount     json.RawMessage `json:"vatAmount"`
	GrossAmount   json.RawMessage `json:"grossAmount"`
	VATRate       json.RawMessage `json:"vatRate"`
}

type paymentResponse struct {
	IBAN        json.RawMessage `json:"iban"`
	Amount      json.RawMessage `json:"amount"`
	Creditor    json.RawMessage `json:"creditor"`
	Reference   json.RawMessage `json:"reference"`
	Description json.RawMessage `json:"description"`
}

func coerceInvoice(data []byte) (*invoice.Record, error) {
	var resp invoiceResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}

	rec := invoice.NewRecord()
	rec.InvoiceNumber = coerceString(resp.InvoiceNumber)
	rec.Date = coerceString(resp.Date)
	rec.Supplier = coerceString(resp.Supplier)
	rec.Recipient = coerceString(resp.Recipient)
	rec.NetAmount = coerceAmount(resp.NetAmount)
	rec.VATAmount = coerceAmount(resp.VATAmount)
	rec.GrossAmount = coerceAmount(resp.GrossAmount)
	rec.VATRate = coerceRate(resp.VATRate)
	return rec, nil
}

func coercePayment(data []byte) (*invoice.Payment, error) {
	var resp paymentResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}

	p := &invoice.Payment{
		IBAN:        coerceString(resp.IBAN),
		Amount:      coerceAmount(resp.Amount),
		Creditor:    coerceString(resp.Creditor),
		Reference:   coerceString(resp.Reference),
		Description: coerceString(resp.Description),
	}
	if p.IsEmpty() {
		return nil, nil
	}
	return p, nil
}

// coerceString accepts a JSON string or number. Empty strings and the literal
// "null" that models like to echo from the prompt become nil.
func coerceString(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil
		}
		s = n.String()
	}

	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

// coerceAmount accepts a JSON number or a numeric string. Zero and anything
// unreadable are nil: models echo the 0.00 placeholders when no total was found.
func coerceAmount(raw json.RawMessage) *decimal.Decimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		d, err := invoice.ParseAmount(s)
		if err != nil || d.IsZero() {
			return nil
		}
		return &d
	}

	d, err := decimal.NewFromString(string(raw))
	if err != nil || d.IsZero() {
		return nil
	}
	return &d
}

// coerceRate reads a leading integer from a number or string; zero or
// unreadable input falls back to the default rate.
func coerceRate(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return invoice.DefaultVATRate
	}

	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return invoice.DefaultVATRate
		}
	}

	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && s[end] == '-') {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n == 0 {
		return invoice.DefaultVATRate
	}
	return n
}
