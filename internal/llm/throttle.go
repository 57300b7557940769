package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type throttled struct {
	Backend
	limiter *rate.Limiter
}

// Throttled wraps b so that Generate waits for a token from limiter first.
// A nil limiter returns b unchanged.
func Throttled(b Backend, limiter *rate.Limiter) Backend {
	if limiter == nil {
		return b
	}
	return &throttled{Backend: b, limiter: limiter}
}

func (t *throttled) Generate(ctx context.Context, prompt string) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		// Wait fails early with its own error when the deadline is too close
		if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
			return "", fmt.Errorf("waiting for rate limiter: %w: %w", ErrBackendTimeout, err)
		}
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return t.Backend.Generate(ctx, prompt)
}
