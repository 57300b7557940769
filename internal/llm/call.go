package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type callResult struct {
	text string
	err  error
}

// Call runs b.Generate under a hard timeout. When the timeout fires, Call returns
// ErrBackendTimeout immediately and cancels the in-flight request; a result that
// still arrives afterwards is dropped.
func Call(ctx context.Context, b Backend, prompt string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// buffered so a late Generate never blocks after we stop listening
	done := make(chan callResult, 1)
	go func() {
		text, err := b.Generate(ctx, prompt)
		done <- callResult{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) || errors.Is(r.err, ErrBackendTimeout) {
				return "", fmt.Errorf("%s after %s: %w", b.Name(), timeout, ErrBackendTimeout)
			}
			return "", fmt.Errorf("%s: %w", b.Name(), r.err)
		}
		return r.text, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s after %s: %w", b.Name(), timeout, ErrBackendTimeout)
		}
		return "", fmt.Errorf("%s: %w", b.Name(), ctx.Err())
	}
}
