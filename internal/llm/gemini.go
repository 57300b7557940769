package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Backend interface using Google Gemini
type Gemini struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewGemini creates a new Gemini Backend instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &Gemini{
		client:    client,
		model:     model,
		modelName: modelName,
	}, nil
}

// Name returns the provenance tag for records produced by this backend
func (g *Gemini) Name() string {
	return "Gemini " + g.modelName
}

// Generate sends the prompt to Gemini and returns the concatenated text parts
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini: %w", ErrEmptyResponse)
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return responseText.String(), nil
}

// Probe succeeds once the client exists; the API key is checked on first use
func (g *Gemini) Probe(ctx context.Context) error {
	if g.client == nil {
		return ErrBackendUnavailable
	}
	return nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
