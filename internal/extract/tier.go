package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/zombor/invoice-check/internal/llm"
)

const (
	TierCloud         = "cloud"
	TierLocal         = "local"
	TierDeterministic = "deterministic"
)

// Tier is one step of the fallback chain. A nil record without error means the
// tier ran but found nothing, and the next tier is tried.
type Tier[T any] interface {
	Name() string
	Attempt(ctx context.Context, text string) (*T, error)
}

// TierError records why a tier produced no record.
type TierError struct {
	Tier   string
	Schema string
	Err    error
}

func (e *TierError) Error() string {
	return fmt.Sprintf("%s tier (%s): %v", e.Tier, e.Schema, e.Err)
}

func (e *TierError) Unwrap() error {
	return e.Err
}

// BackendTier asks a language model for the schema's JSON object.
type BackendTier[T any] struct {
	name      string
	backend   llm.Backend
	schema    Schema[T]
	timeout   time.Duration
	available func(Availability) bool
	src       AvailabilitySource
}

// NewCloudTier returns the tier for the cloud backend; it is skipped unless the
// snapshot from src marks the cloud available.
func NewCloudTier[T any](b llm.Backend, schema Schema[T], src AvailabilitySource) *BackendTier[T] {
	return &BackendTier[T]{
		name:      TierCloud,
		backend:   b,
		schema:    schema,
		timeout:   schema.CloudTimeout,
		available: func(a Availability) bool { return a.Cloud },
		src:       src,
	}
}

// NewLocalTier returns the tier for the local backend.
func NewLocalTier[T any](b llm.Backend, schema Schema[T], src AvailabilitySource) *BackendTier[T] {
	return &BackendTier[T]{
		name:      TierLocal,
		backend:   b,
		schema:    schema,
		timeout:   schema.LocalTimeout,
		available: func(a Availability) bool { return a.Local },
		src:       src,
	}
}

func (t *BackendTier[T]) Name() string {
	return t.name
}

func (t *BackendTier[T]) Attempt(ctx context.Context, text string) (*T, error) {
	if t.backend == nil || !t.available(t.src.Snapshot()) {
		return nil, llm.ErrBackendUnavailable
	}

	response, err := llm.Call(ctx, t.backend, t.schema.Prompt(text), t.timeout)
	if err != nil {
		return nil, err
	}

	rec, err := t.schema.Decode(response)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	t.schema.tag(rec, t.backend.Name())
	return rec, nil
}

// DeterministicTier runs the schema's pattern matcher. It never fails.
type DeterministicTier[T any] struct {
	schema Schema[T]
}

func NewDeterministicTier[T any](schema Schema[T]) *DeterministicTier[T] {
	return &DeterministicTier[T]{schema: schema}
}

func (t *DeterministicTier[T]) Name() string {
	return TierDeterministic
}

func (t *DeterministicTier[T]) Attempt(ctx context.Context, text string) (*T, error) {
	return t.schema.fallback(text), nil
}
