package llm

import (
	"context"
	"errors"
)

var (
	// ErrBackendUnavailable is returned when a backend was not configured or its probe failed.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrBackendTimeout is returned when a call exceeds its time budget.
	ErrBackendTimeout = errors.New("backend timeout")

	// ErrMalformedResponse is returned when a response holds no usable JSON object.
	ErrMalformedResponse = errors.New("malformed backend response")

	// ErrEmptyResponse is returned when a backend answers without any text.
	ErrEmptyResponse = errors.New("empty backend response")
)

// Backend defines the interface for text generation by a language model
type Backend interface {
	// Name identifies the backend and model, e.g. "OpenAI gpt-4o"
	Name() string
	// Generate sends prompt to the model and returns the raw response text
	Generate(ctx context.Context, prompt string) (string, error)
	// Probe reports whether the backend can currently serve requests
	Probe(ctx context.Context) error
	// Close releases resources held by the backend
	Close() error
}
