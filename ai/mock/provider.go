// Copyright 2026 Rui Dias
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package mock

import (
	"context"
	"sync"
)

// Provider is a test double for ai.ModelProvider.
// It allows custom behavior injection via function fields and records
// every call for assertions. Safe for concurrent use.
type Provider struct {
	// GenerateTextFunc is called by GenerateText if set.
	// If nil, GenerateText returns a fixed empty extraction JSON.
	GenerateTextFunc func(ctx context.Context, system, user string) (string, error)

	// GenerateVisionFunc is called by GenerateVision if set.
	// If nil, GenerateVision behaves like GenerateText with the image
	// size appended to the user prompt.
	GenerateVisionFunc func(ctx context.Context, system string, image []byte, mimeType string) (string, error)

	mu      sync.Mutex
	calls   []Call
	closed  bool
	nameVal string
}

// Call records one GenerateText or GenerateVision invocation.
type Call struct {
	System string
	User   string
	Vision bool
}

// NewProvider creates a mock provider with default behavior.
// Note: returns the concrete type so tests can inject behavior and
// inspect calls.
func NewProvider() *Provider {
	return &Provider{nameVal: "mock"}
}

// NewProviderWithResponse creates a mock provider that returns the given
// text for every GenerateText call.
func NewProviderWithResponse(response string) *Provider {
	p := NewProvider()
	p.GenerateTextFunc = func(context.Context, string, string) (string, error) {
		return response, nil
	}
	return p
}

// Name returns "mock".
func (p *Provider) Name() string {
	return p.nameVal
}

// GenerateText records the call and delegates to GenerateTextFunc.
// Default behavior returns a minimal valid extraction payload.
func (p *Provider) GenerateText(ctx context.Context, system, user string) (string, error) {
	p.record(Call{System: system, User: user})

	if p.GenerateTextFunc != nil {
		return p.GenerateTextFunc(ctx, system, user)
	}
	return `{"facts": [], "summary": "mock response"}`, nil
}

// GenerateVision records the call and delegates to GenerateVisionFunc.
func (p *Provider) GenerateVision(ctx context.Context, system string, image []byte, mimeType string) (string, error) {
	p.record(Call{System: system, Vision: true})

	if p.GenerateVisionFunc != nil {
		return p.GenerateVisionFunc(ctx, system, image, mimeType)
	}
	return `{"facts": [], "summary": "mock vision response"}`, nil
}

// Close marks the provider closed.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *Provider) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// CallCount returns the number of generate calls recorded so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// Calls returns a copy of the recorded calls in order.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// Reset clears recorded calls and custom functions.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
	p.closed = false
	p.GenerateTextFunc = nil
	p.GenerateVisionFunc = nil
}

func (p *Provider) record(c Call) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, c)
}
