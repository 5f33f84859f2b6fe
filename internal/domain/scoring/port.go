package scoring

import "context"

// Client scores a prompt against the external engine. One attempt per call.
type Client interface {
	Score(ctx context.Context, prompt string) (Result, error)
	// Endpoint names the engine address for operator-facing messages.
	Endpoint() string
}

// Pinger is implemented by clients that can probe the engine's health.
type Pinger interface {
	Ping(ctx context.Context) error
}
