// Package texttest provides a scripted textservice.Service for tests.
package texttest

import (
	"context"
	"errors"
	"sync"

	"timeline-agent/textservice"
)

// ErrScripted is returned for derivations configured to fail.
var ErrScripted = errors.New("scripted text service failure")

// Fake answers by derivation name and counts every call.
type Fake struct {
	mu sync.Mutex

	Responses map[string]string
	Failures  map[string]bool
	Vector    []float32
	FailEmbed bool

	calls    map[string]int
	requests []textservice.CompletionRequest
}

func New() *Fake {
	return &Fake{
		Responses: map[string]string{},
		Failures:  map[string]bool{},
		calls:     map[string]int{},
	}
}

func (f *Fake) Complete(ctx context.Context, req textservice.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.Derivation]++
	f.requests = append(f.requests, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Failures[req.Derivation] {
		return "", ErrScripted
	}
	return f.Responses[req.Derivation], nil
}

func (f *Fake) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["embedding"]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.FailEmbed {
		return nil, ErrScripted
	}
	return f.Vector, nil
}

// Calls returns the number of calls made for derivation.
func (f *Fake) Calls(derivation string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[derivation]
}

// TotalCalls returns the number of calls across every derivation.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// Requests returns the completion requests received so far.
func (f *Fake) Requests() []textservice.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]textservice.CompletionRequest{}, f.requests...)
}
