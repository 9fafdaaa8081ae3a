package providers

import (
	"context"
	"fmt"
)

// TokenCallback receives each streamed text fragment in arrival order.
type TokenCallback func(token string)

type StreamRequest struct {
	Model        string
	Prompt       string
	SystemPrompt string
	MaxTokens    int
}

// Streamer is the one capability the feedback pipeline needs from a model
// backend. Stream returns after the last token has been delivered, or with
// the first error; tokens delivered before an error are not retracted.
type Streamer interface {
	Stream(ctx context.Context, req StreamRequest, onToken TokenCallback) error
}

type Provider interface {
	Streamer
	Name() string
	ListModels(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

type ProviderAuthError struct {
	ProviderName string
	Msg          string
}

func (e *ProviderAuthError) Error() string {
	return e.Msg
}

// StatusError is a non-2xx reply from a provider API.
type StatusError struct {
	ProviderName string
	StatusCode   int
	Body         string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error: %s (status %d)", e.ProviderName, e.Body, e.StatusCode)
}
