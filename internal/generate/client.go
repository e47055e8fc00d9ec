// Package generate is the boundary around the external generative provider:
// prompt assembly, the completion call, strict JSON parsing, and the error
// taxonomy the rest of the system relies on.
package generate

import (
	"context"
	"errors"
)

// Client is the completion provider contract. Implementations send a system
// directive plus user content and return raw response text. The production
// implementation is GeminiClient; tests substitute stubs.
type Client interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

// CompleteWithSystem implements Client.
func (f ClientFunc) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}

// Generation failures fall into exactly these kinds; callers classify with
// errors.Is. None of them is retried automatically - recovery is always a
// fresh user-initiated request.
var (
	// ErrConfigMissing means the provider credential is absent. Fatal.
	ErrConfigMissing = errors.New("generation provider credential missing")

	// ErrEmptyResponse means the provider returned no text.
	ErrEmptyResponse = errors.New("generation provider returned empty response")

	// ErrMalformedOutput means the provider response was not a parseable
	// JSON schema. No repair is attempted.
	ErrMalformedOutput = errors.New("generation provider returned malformed output")
)
