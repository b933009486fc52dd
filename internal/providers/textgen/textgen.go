// Package textgen contains the text-generation backends used to expand user
// requests into image prompts.
package textgen

import (
	"context"
	"errors"
)

// ErrEmptyOutput is returned when a backend answers without any text.
var ErrEmptyOutput = errors.New("textgen: empty output")

// Request is the backend-neutral generation call.
type Request struct {
	Instruction  string
	MaxNewTokens int
	Temperature  float64
	// ReturnFullText asks the backend to echo the instruction. Callers in this
	// module always want only the continuation.
	ReturnFullText bool
}

// Response carries the generated continuation.
type Response struct {
	Text     string
	Provider string
}

// Generator is implemented by every text backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Name() string
}
