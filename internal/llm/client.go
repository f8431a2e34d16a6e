// Package llm is the generation channel boundary. The pipeline only
// sees the Client interface; vendor transport, auth, and retry details
// live in the concrete clients.
package llm

import "context"

// Request is one opaque generation request: the composed prompt text
// plus the channel selector and sampling temperature.
type Request struct {
	Text        string
	Model       string
	Temperature float64
}

// Client sends a generation request and returns the raw response text.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to Client, for tests and wrappers.
type Func func(ctx context.Context, req Request) (string, error)

// Generate implements Client.
func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
