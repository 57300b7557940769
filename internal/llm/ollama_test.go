package llm

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server  *ghttp.Server
		backend *Ollama
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		backend, err = NewOllama(server.URL()+"/", "llama3")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("NewOllama", func() {
		It("defaults the url and model", func() {
			b, err := NewOllama("", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(b.baseURL).To(Equal("http://localhost:11434"))
			Expect(b.Name()).To(Equal("Ollama mistral"))
		})
	})

	Describe("Generate", func() {
		When("the daemon answers", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodPost, "/api/generate"),
					ghttp.VerifyJSONRepresenting(ollamaGenerateRequest{Model: "llama3", Prompt: "extract", Stream: false}),
					ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaGenerateResponse{Response: `{"iban": "CH93"}`, Done: true}),
				))
			})

			It("returns the response field", func() {
				text, err := backend.Generate(context.Background(), "extract")
				Expect(err).NotTo(HaveOccurred())
				Expect(text).To(Equal(`{"iban": "CH93"}`))
			})
		})

		When("the daemon answers with an error status", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, `{"error":"model 'llama3' not found"}`))
			})

			It("returns an error including the body", func() {
				_, err := backend.Generate(context.Background(), "extract")
				Expect(err).To(MatchError(ContainSubstring("status 404")))
				Expect(err).To(MatchError(ContainSubstring("not found")))
			})
		})

		When("the response is empty", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaGenerateResponse{Done: true}))
			})

			It("returns ErrEmptyResponse", func() {
				_, err := backend.Generate(context.Background(), "extract")
				Expect(err).To(MatchError(ErrEmptyResponse))
			})
		})
	})

	Describe("Probe", func() {
		When("the tags endpoint answers 200", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodGet, "/api/tags"),
					ghttp.RespondWith(http.StatusOK, `{"models":[]}`),
				))
			})

			It("succeeds", func() {
				Expect(backend.Probe(context.Background())).To(Succeed())
			})
		})

		When("the tags endpoint fails", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, ""))
			})

			It("returns ErrBackendUnavailable", func() {
				Expect(backend.Probe(context.Background())).To(MatchError(ErrBackendUnavailable))
			})
		})

		When("the daemon is not running", func() {
			BeforeEach(func() {
				server.Close()
			})

			It("returns ErrBackendUnavailable", func() {
				Expect(backend.Probe(context.Background())).To(MatchError(ErrBackendUnavailable))
			})
		})
	})
})
