// Package llm is the text generation boundary. Callers build a Request
// and receive plain text; the backend is opaque.
package llm

import (
	"context"

	apperrors "github.com/julianstephens/rehab/internal/errors"
)

var (
	// ErrEmptyCompletion is returned when the service answers with no usable text
	ErrEmptyCompletion = apperrors.New(apperrors.KindGeneration, "generator returned no text")
	// ErrRateLimited is returned when a caller exceeds its generation budget
	ErrRateLimited = apperrors.New(apperrors.KindRateLimited, "too many generation requests, try again shortly")
)

type Params struct {
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// Turn is one prior message in a conversation. Role is "user" or "assistant".
type Turn struct {
	Role    string
	Content string
}

type Request struct {
	// System is the instruction that frames the whole exchange
	System string
	// History holds earlier turns, oldest first
	History []Turn
	// Prompt is the message to answer
	Prompt string
	Params Params
	// User identifies the caller for rate limiting and abuse tracking
	User string
}

// Generator produces text for a request. Implementations do not retry.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
