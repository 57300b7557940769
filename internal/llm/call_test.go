package llm

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/time/rate"
)

var _ = Describe("Call", func() {
	var (
		backend *mockBackend
		timeout time.Duration
		text    string
		err     error
	)

	BeforeEach(func() {
		backend = newMockBackend(`{"invoiceNumber": "RE-1"}`)
		timeout = time.Second
	})

	JustBeforeEach(func() {
		text, err = Call(context.Background(), backend, "prompt", timeout)
	})

	When("the backend answers in time", func() {
		It("returns the response text", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal(`{"invoiceNumber": "RE-1"}`))
		})
	})

	When("the backend fails", func() {
		BeforeEach(func() {
			backend.err = errors.New("quota exceeded")
		})

		It("wraps the error with the backend name", func() {
			Expect(err).To(MatchError(ContainSubstring("Mock model")))
			Expect(err).To(MatchError(ContainSubstring("quota exceeded")))
		})
	})

	When("the backend exceeds the timeout", func() {
		BeforeEach(func() {
			backend.delay = 200 * time.Millisecond
			timeout = 20 * time.Millisecond
		})

		It("returns ErrBackendTimeout without waiting for the backend", func() {
			Expect(err).To(MatchError(ErrBackendTimeout))
			Expect(text).To(BeEmpty())
		})

		It("drops the late result", func() {
			Eventually(backend.finished).Should(Receive())
			Expect(text).To(BeEmpty())
		})
	})

	When("the backend returns a deadline error itself", func() {
		BeforeEach(func() {
			backend.err = context.DeadlineExceeded
		})

		It("reports a timeout", func() {
			Expect(err).To(MatchError(ErrBackendTimeout))
		})
	})
})

var _ = Describe("Throttled", func() {
	var backend *mockBackend

	BeforeEach(func() {
		backend = newMockBackend("ok")
	})

	When("the limiter is nil", func() {
		It("returns the backend unchanged", func() {
			Expect(Throttled(backend, nil)).To(BeIdenticalTo(backend))
		})
	})

	When("a token is available", func() {
		It("passes the call through", func() {
			b := Throttled(backend, rate.NewLimiter(rate.Inf, 1))
			text, err := b.Generate(context.Background(), "prompt")
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("ok"))
			Expect(b.Name()).To(Equal("Mock model"))
		})
	})

	When("the context ends before a token is available", func() {
		It("does not call the backend", func() {
			limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
			limiter.Allow()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()

			_, err := Throttled(backend, limiter).Generate(ctx, "prompt")
			Expect(err).To(MatchError(ErrBackendTimeout))
			Expect(backend.calls).To(BeZero())
		})

		It("reports a timeout through Call", func() {
			limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
			limiter.Allow()

			_, err := Call(context.Background(), Throttled(backend, limiter), "prompt", 50*time.Millisecond)
			Expect(err).To(MatchError(ErrBackendTimeout))
			Expect(backend.calls).To(BeZero())
		})
	})

	When("the context is cancelled while waiting", func() {
		It("does not report a timeout", func() {
			limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
			limiter.Allow()
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := Throttled(backend, limiter).Generate(ctx, "prompt")
			Expect(err).To(MatchError(context.Canceled))
			Expect(err).NotTo(MatchError(ErrBackendTimeout))
		})
	})
})
