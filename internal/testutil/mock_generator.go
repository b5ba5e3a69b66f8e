package testutil

import (
	"context"
	"sync"

	"github.com/draftcue/draftcue/internal/generate"
)

// MockGenerator is a scriptable generate.Generator for scheduler tests.
type MockGenerator struct {
	mu sync.Mutex

	// GenerateFunc, when set, scripts the outcome per call and takes
	// precedence over Err and Result.
	GenerateFunc func(req generate.Request) (*generate.Result, error)
	// Err, when set, is returned from every Generate call.
	Err error
	// Result is returned on success; a zero value yields a default result.
	Result generate.Result
	// Delay lets tests simulate slow generation via context cancellation.
	Block chan struct{}

	calls []generate.Request
}

var _ generate.Generator = (*MockGenerator)(nil)

// Name returns the backend identifier.
func (g *MockGenerator) Name() string { return "mock" }

// Generate records the request and returns the scripted outcome.
func (g *MockGenerator) Generate(ctx context.Context, req generate.Request) (*generate.Result, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()

	if g.Block != nil {
		select {
		case <-g.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.GenerateFunc != nil {
		return g.GenerateFunc(req)
	}
	if g.Err != nil {
		return nil, g.Err
	}

	res := g.Result
	if res.ID == "" {
		res.ID = "mock-1"
	}
	if res.Title == "" {
		res.Title = "Generated Title"
	}
	if res.Content == "" {
		res.Content = "generated content"
	}
	return &res, nil
}

// Calls returns a copy of all requests seen so far.
func (g *MockGenerator) Calls() []generate.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]generate.Request(nil), g.calls...)
}

// CallCount reports how many Generate calls were made.
func (g *MockGenerator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}
