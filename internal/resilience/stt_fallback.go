package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/mouthsync/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with automatic failover across multiple
// STT backends. Each backend has its own circuit breaker.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

// Compile-time interface assertions.
var (
	_ stt.Provider         = (*STTFallback)(nil)
	_ stt.ReadinessChecker = (*STTFallback)(nil)
)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional STT provider as a fallback.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe runs req against the first healthy provider. If the primary
// fails, subsequent fallbacks are tried with the same request.
func (f *STTFallback) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	return ExecuteWithResult(f.group, func(p stt.Provider) (*stt.Result, error) {
		return p.Transcribe(ctx, req)
	})
}

// Info returns the primary's metadata. It does not participate in failover.
func (f *STTFallback) Info() stt.Info {
	return f.group.Primary().Info()
}

// Ready reports ready when at least one provider with a closed or half-open
// breaker is ready. Providers that do not implement [stt.ReadinessChecker]
// count as ready.
func (f *STTFallback) Ready(ctx context.Context) error {
	var errs []error
	for _, entry := range f.group.snapshot() {
		if entry.breaker.State() == StateOpen {
			errs = append(errs, fmt.Errorf("%s: %w", entry.name, ErrCircuitOpen))
			continue
		}
		rc, ok := entry.value.(stt.ReadinessChecker)
		if !ok {
			return nil
		}
		err := rc.Ready(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", entry.name, err))
	}
	return errors.Join(append([]error{stt.ErrNotReady}, errs...)...)
}

// Status reports the breaker state of every STT backend.
func (f *STTFallback) Status() []EntryStatus {
	return f.group.Status()
}
