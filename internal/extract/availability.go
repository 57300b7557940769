package extract

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/zombor/invoice-check/internal/llm"
)

// Mode names the tier that will be tried first for a new request.
type Mode string

const (
	ModeCloud         Mode = "cloud"
	ModeLocal         Mode = "local"
	ModeDeterministic Mode = "deterministic"
)

// Availability is an immutable snapshot of which backends passed their startup probe.
// The zero value marks every backend unavailable.
type Availability struct {
	Cloud       bool
	Local       bool
	CloudEngine string
	LocalEngine string
}

// Status is the JSON view of an Availability snapshot
type Status struct {
	Cloud                   bool   `json:"cloud"`
	Local                   bool   `json:"local"`
	CloudEngine             string `json:"cloudEngine,omitempty"`
	LocalEngine             string `json:"localEngine,omitempty"`
	FallbackAlwaysAvailable bool   `json:"fallbackAlwaysAvailable"`
	ActiveMode              Mode   `json:"activeMode"`
}

// AvailabilitySource hands out the current snapshot
type AvailabilitySource interface {
	Snapshot() Availability
}

// Snapshot lets a fixed Availability act as its own source.
func (a Availability) Snapshot() Availability {
	return a
}

// ActiveMode returns the first tier a request would try.
func (a Availability) ActiveMode() Mode {
	switch {
	case a.Cloud:
		return ModeCloud
	case a.Local:
		return ModeLocal
	default:
		return ModeDeterministic
	}
}

// Status reports the snapshot for display.
func (a Availability) Status() Status {
	s := Status{
		Cloud:                   a.Cloud,
		Local:                   a.Local,
		FallbackAlwaysAvailable: true,
		ActiveMode:              a.ActiveMode(),
	}
	if a.Cloud {
		s.CloudEngine = a.CloudEngine
	}
	if a.Local {
		s.LocalEngine = a.LocalEngine
	}
	return s
}

// Probe checks both backends concurrently, once. A nil backend is unavailable.
func Probe(ctx context.Context, cloud, local llm.Backend) Availability {
	var a Availability

	g, ctx := errgroup.WithContext(ctx)
	if cloud != nil {
		g.Go(func() error {
			if err := cloud.Probe(ctx); err != nil {
				slog.Warn("Cloud backend unavailable", "engine", cloud.Name(), "error", err)
				return nil
			}
			a.Cloud = true
			a.CloudEngine = cloud.Name()
			return nil
		})
	}
	if local != nil {
		g.Go(func() error {
			if err := local.Probe(ctx); err != nil {
				slog.Warn("Local backend unavailable", "engine", local.Name(), "error", err)
				return nil
			}
			a.Local = true
			a.LocalEngine = local.Name()
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("Backend availability resolved",
		"cloud", a.Cloud,
		"local", a.Local,
		"active_mode", a.ActiveMode(),
	)
	return a
}

// AvailabilityHolder publishes a snapshot exactly once. Until then Snapshot
// returns the zero Availability, so early requests go straight to the
// deterministic tier.
type AvailabilityHolder struct {
	p atomic.Pointer[Availability]
}

// Set stores a and reports whether it was the first call.
func (h *AvailabilityHolder) Set(a Availability) bool {
	return h.p.CompareAndSwap(nil, &a)
}

// Snapshot returns the published availability or the zero value.
func (h *AvailabilityHolder) Snapshot() Availability {
	if a := h.p.Load(); a != nil {
		return *a
	}
	return Availability{}
}

// Resolved reports whether Set has been called.
func (h *AvailabilityHolder) Resolved() bool {
	return h.p.Load() != nil
}
