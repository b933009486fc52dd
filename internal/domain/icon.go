package domain

import (
	"strings"
	"time"
)

// PromptSource records where an EnhancedPrompt came from.
type PromptSource string

const (
	PromptSourceOverride   PromptSource = "override"
	PromptSourceResearcher PromptSource = "researcher"
	PromptSourceTemplate   PromptSource = "template"
)

// GenerationRequest is a single caller submission. Build it with
// NewGenerationRequest so the required fields are checked once.
type GenerationRequest struct {
	Text       string
	AccountKey string
	RequestID  string
	ClientIP   string
}

// NewGenerationRequest trims and validates the raw inputs.
func NewGenerationRequest(text, accountKey string) (GenerationRequest, error) {
	text = strings.TrimSpace(text)
	accountKey = strings.TrimSpace(accountKey)
	if text == "" {
		return GenerationRequest{}, &ValidationError{Field: "prompt", Reason: "is required"}
	}
	if accountKey == "" {
		return GenerationRequest{}, &ValidationError{Field: "email", Reason: "is required"}
	}
	return GenerationRequest{Text: text, AccountKey: accountKey}, nil
}

// EnhancedPrompt is the final image instruction plus the explanation shown to
// the caller. It is resolved once per request and never rewritten.
type EnhancedPrompt struct {
	ImagePrompt string
	Explanation string
	Source      PromptSource
}

// GenerationOutcome is handed back to the response layer after a successful run.
type GenerationOutcome struct {
	IconID      string
	Image       []byte
	MIME        string
	Explanation string
	Prompt      EnhancedPrompt
	Provider    string
	Balance     int
}

// Icon is an archived generation.
type Icon struct {
	ID         string
	AccountKey string
	Prompt     string
	StorageKey string
	MIME       string
	Bytes      int64
	Favorite   bool
	CreatedAt  time.Time
	Data       []byte
}
