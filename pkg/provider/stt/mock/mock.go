// Package mock provides a test double for the stt.Provider interface.
//
// Example:
//
//	p := &mock.Provider{Result: &stt.Result{Text: "안녕하세요"}}
//	res, _ := p.Transcribe(ctx, stt.Request{PCM: pcm})
//	_ = p.Calls() // one recorded request
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/mouthsync/pkg/provider/stt"
)

var (
	_ stt.Provider         = (*Provider)(nil)
	_ stt.ReadinessChecker = (*Provider)(nil)
)

// Provider is a mock implementation of stt.Provider. The zero value returns
// an empty result.
type Provider struct {
	mu sync.Mutex

	// Result is returned by Transcribe. A nil Result yields an empty one.
	Result *stt.Result

	// Err, if non-nil, is returned by Transcribe.
	Err error

	// ReadyErr is returned by Ready.
	ReadyErr error

	// InfoValue is returned by Info.
	InfoValue stt.Info

	// TranscribeFunc, if set, overrides Result and Err.
	TranscribeFunc func(ctx context.Context, req stt.Request) (*stt.Result, error)

	calls []stt.Request
}

// Transcribe records req and returns the configured outcome.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	fn, res, err := p.TranscribeFunc, p.Result, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &stt.Result{}, nil
	}
	out := *res
	return &out, nil
}

// Info returns InfoValue, defaulting the name to "mock".
func (p *Provider) Info() stt.Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	info := p.InfoValue
	if info.Name == "" {
		info.Name = "mock"
	}
	return info
}

// Ready returns ReadyErr.
func (p *Provider) Ready(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ReadyErr
}

// Calls returns a copy of every request passed to Transcribe.
func (p *Provider) Calls() []stt.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]stt.Request, len(p.calls))
	copy(out, p.calls)
	return out
}
