// Package llm provides clients for the model endpoints the triage
// pipeline prompts. Clients are stateless beyond connection
// configuration and safe to share across concurrent requests; every
// call is a self-contained request/response exchange.
package llm

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the model endpoint could not be reached.
var ErrUnavailable = errors.New("model endpoint unavailable")

// ErrTimeout indicates the call exceeded the configured deadline.
var ErrTimeout = errors.New("model call timed out")

// Options are per-call generation parameters.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Client sends a composed prompt to a language model and returns the raw
// response text. It never interprets the text; parsing is the response
// parser's job. No retries happen at this layer.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error)
}
