package llm

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/sashabaranov/go-openai"
)

var _ = Describe("OpenAI", func() {
	var (
		server  *ghttp.Server
		backend *OpenAI
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		backend, err = NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL() + "/v1"})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("NewOpenAI", func() {
		It("requires an api key", func() {
			_, err := NewOpenAI(OpenAIConfig{})
			Expect(err).To(HaveOccurred())
		})

		It("defaults to gpt-4o", func() {
			Expect(backend.Name()).To(Equal("OpenAI gpt-4o"))
		})
	})

	Describe("Generate", func() {
		When("the API returns a choice", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodPost, "/v1/chat/completions"),
					ghttp.VerifyHeaderKV("Authorization", "Bearer sk-test"),
					ghttp.RespondWithJSONEncoded(http.StatusOK, openai.ChatCompletionResponse{
						Choices: []openai.ChatCompletionChoice{
							{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: `{"invoiceNumber":"RE-1"}`}},
						},
					}),
				))
			})

			It("returns the message content", func() {
				text, err := backend.Generate(context.Background(), "extract")
				Expect(err).NotTo(HaveOccurred())
				Expect(text).To(Equal(`{"invoiceNumber":"RE-1"}`))
			})
		})

		When("the API returns no choices", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, openai.ChatCompletionResponse{}))
			})

			It("returns ErrEmptyResponse", func() {
				_, err := backend.Generate(context.Background(), "extract")
				Expect(err).To(MatchError(ErrEmptyResponse))
			})
		})

		When("the API returns an error", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`))
			})

			It("returns an error", func() {
				_, err := backend.Generate(context.Background(), "extract")
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Probe", func() {
		It("succeeds without a network call", func() {
			Expect(backend.Probe(context.Background())).To(Succeed())
		})
	})
})
