package extract

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/invoice-check/internal/invoice"
)

const invoiceText = "Rechnungsnummer: INV-2024-001\nDatum: 15.03.2024\nNetto: 100,00\nMwSt: 19,00\nBrutto: 119,00"

const cloudInvoiceJSON = `{"invoiceNumber": "CLOUD-1", "date": "01.02.2024", "netAmount": 10.00, "vatAmount": 1.90, "grossAmount": 11.90, "vatRate": 19}`

const localInvoiceJSON = `{"invoiceNumber": "LOCAL-1", "date": "01.02.2024", "netAmount": 10.00, "vatAmount": 1.90, "grossAmount": 11.90, "vatRate": 19}`

var _ = Describe("Extractor", func() {
	var (
		cloud        *mockBackend
		local        *mockBackend
		availability Availability
		extractor    *Extractor
	)

	BeforeEach(func() {
		cloud = newMockBackend("OpenAI gpt-4o", cloudInvoiceJSON)
		local = newMockBackend("Ollama mistral", localInvoiceJSON)
		availability = Availability{Cloud: true, Local: true}
	})

	JustBeforeEach(func() {
		extractor = NewExtractor(availability, cloud, local)
	})

	Describe("ExtractInvoice", func() {
		var record *invoice.Record

		JustBeforeEach(func() {
			record = extractor.ExtractInvoice(context.Background(), invoiceText)
		})

		When("the cloud backend answers", func() {
			It("uses the cloud record", func() {
				Expect(record.InvoiceNumber).To(HaveValue(Equal("CLOUD-1")))
				Expect(record.AIEngine).To(HaveValue(Equal("OpenAI gpt-4o")))
			})

			It("does not call the local backend", func() {
				Expect(local.calls.Load()).To(BeZero())
			})

			It("sends the text in the prompt", func() {
				Expect(cloud.prompts).To(Receive(ContainSubstring("INV-2024-001")))
			})
		})

		When("the cloud answer is malformed", func() {
			BeforeEach(func() {
				cloud.response = "I cannot help with that."
			})

			It("falls through to the local backend", func() {
				Expect(record.InvoiceNumber).To(HaveValue(Equal("LOCAL-1")))
				Expect(record.AIEngine).To(HaveValue(Equal("Ollama mistral")))
				Expect(cloud.calls.Load()).To(BeEquivalentTo(1))
			})
		})

		When("the cloud backend fails", func() {
			BeforeEach(func() {
				cloud.err = errors.New("rate limited")
			})

			It("falls through to the local backend", func() {
				Expect(record.InvoiceNumber).To(HaveValue(Equal("LOCAL-1")))
			})
		})

		When("the cloud is unavailable", func() {
			BeforeEach(func() {
				availability = Availability{Local: true}
			})

			It("never calls the cloud backend", func() {
				Expect(cloud.calls.Load()).To(BeZero())
				Expect(record.InvoiceNumber).To(HaveValue(Equal("LOCAL-1")))
			})
		})

		When("no backend is available", func() {
			BeforeEach(func() {
				availability = Availability{}
			})

			It("uses the deterministic matcher", func() {
				Expect(cloud.calls.Load()).To(BeZero())
				Expect(local.calls.Load()).To(BeZero())
				Expect(record.InvoiceNumber).To(HaveValue(Equal("INV-2024-001")))
				Expect(record.GrossAmount).To(equalAmount("119.00"))
				Expect(record.AIEngine).To(BeNil())
			})
		})

		When("both backends fail", func() {
			BeforeEach(func() {
				cloud.response = "{}"
				local.response = "not json"
			})

			It("uses the deterministic matcher", func() {
				Expect(record.InvoiceNumber).To(HaveValue(Equal("INV-2024-001")))
				Expect(record.AIEngine).To(BeNil())
			})
		})

		When("no backend was configured", func() {
			JustBeforeEach(func() {
				extractor = NewExtractor(Availability{Cloud: true, Local: true}, nil, nil)
				record = extractor.ExtractInvoice(context.Background(), "nothing to see")
			})

			It("still returns a record", func() {
				Expect(record).NotTo(BeNil())
				Expect(record.InvoiceNumber).To(BeNil())
				Expect(record.VATRate).To(Equal(invoice.DefaultVATRate))
			})
		})
	})

	Describe("timeouts", func() {
		It("abandons a slow cloud backend and uses the local one", func() {
			cloud.delay = time.Second
			schema := InvoiceSchema()
			schema.CloudTimeout = 20 * time.Millisecond

			e := NewExtractorWithTiers(
				[]Tier[invoice.Record]{
					NewCloudTier(cloud, schema, availability),
					NewLocalTier(local, schema, availability),
					NewDeterministicTier(schema),
				},
				nil,
			)

			start := time.Now()
			record := e.ExtractInvoice(context.Background(), invoiceText)
			Expect(time.Since(start)).To(BeNumerically("<", 500*time.Millisecond))
			Expect(record.InvoiceNumber).To(HaveValue(Equal("LOCAL-1")))
		})
	})

	Describe("ExtractPayment", func() {
		var payment *invoice.Payment

		BeforeEach(func() {
			availability = Availability{}
		})

		When("the payment text holds an IBAN", func() {
			JustBeforeEach(func() {
				payment = extractor.ExtractPayment(context.Background(), "CH93 0076 2011 6238 5295 7")
			})

			It("extracts it deterministically", func() {
				Expect(payment).NotTo(BeNil())
				Expect(payment.IBAN).To(HaveValue(Equal("CH9300762011623852957")))
				Expect(payment.AIEngine).To(BeNil())
			})
		})

		When("the payment text holds nothing usable", func() {
			JustBeforeEach(func() {
				payment = extractor.ExtractPayment(context.Background(), "https://pay.example.ch/i/42")
			})

			It("returns nil", func() {
				Expect(payment).To(BeNil())
			})
		})

		When("the cloud backend answers", func() {
			BeforeEach(func() {
				availability = Availability{Cloud: true}
				cloud.response = `{"iban": "CH4431999123000889012", "amount": 1949.75, "creditor": "Robert Schneider AG"}`
			})

			JustBeforeEach(func() {
				payment = extractor.ExtractPayment(context.Background(), "CH44 3199 9123 0008 8901 2")
			})

			It("tags the payment with the cloud engine", func() {
				Expect(payment.Creditor).To(HaveValue(Equal("Robert Schneider AG")))
				Expect(payment.Amount).To(equalAmount("1949.75"))
				Expect(payment.AIEngine).To(HaveValue(Equal("OpenAI gpt-4o")))
			})
		})

		When("the cloud backend finds nothing", func() {
			BeforeEach(func() {
				availability = Availability{Cloud: true}
				cloud.response = `{"iban": null, "amount": null}`
			})

			JustBeforeEach(func() {
				payment = extractor.ExtractPayment(context.Background(), "CH93 0076 2011 6238 5295 7")
			})

			It("falls through to the deterministic matcher", func() {
				Expect(payment.IBAN).To(HaveValue(Equal("CH9300762011623852957")))
				Expect(payment.AIEngine).To(BeNil())
			})
		})
	})
})

var _ = Describe("TierError", func() {
	It("unwraps to the cause", func() {
		cause := errors.New("boom")
		err := &TierError{Tier: TierCloud, Schema: InvoiceSchemaName, Err: cause}
		Expect(err).To(MatchError(cause))
		Expect(err.Error()).To(Equal("cloud tier (invoice): boom"))
	})
})
