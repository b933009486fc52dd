// Package prompt turns a short user request into a detailed image prompt.
package prompt

import (
	"context"
	"fmt"
	"strings"

	"iconforge/internal/domain"
	"iconforge/internal/infra"
	"iconforge/internal/providers/textgen"
)

const (
	defaultMaxNewTokens = 150
	defaultTemperature  = 0.3

	// DefaultExplanation is shown whenever the model gave no message.
	DefaultExplanation = "Here's a custom design based on your description."
)

// Options configures a Researcher.
type Options struct {
	Backend      textgen.Generator
	MaxNewTokens int
	Temperature  float64
	Logger       *infra.Logger
	OnFallback   func(reason string, err error)
}

// Researcher expands raw requests with a text-generation backend and falls
// back to a fixed template when the backend is unavailable.
type Researcher struct {
	backend      textgen.Generator
	maxNewTokens int
	temperature  float64
	logger       *infra.Logger
	onFallback   func(reason string, err error)
}

// NewResearcher applies defaults. A nil backend is allowed and makes every
// call use the template.
func NewResearcher(opts Options) *Researcher {
	maxTokens := opts.MaxNewTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxNewTokens
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Researcher{
		backend:      opts.Backend,
		maxNewTokens: maxTokens,
		temperature:  temperature,
		logger:       logger,
		onFallback:   opts.OnFallback,
	}
}

// Research never fails: backend errors and unusable output are absorbed by
// the template fallback.
func (r *Researcher) Research(ctx context.Context, rawText string) domain.EnhancedPrompt {
	if r.backend == nil {
		return r.fallback(rawText, "no_backend", nil)
	}
	res, err := r.backend.Generate(ctx, textgen.Request{
		Instruction:    BuildInstruction(rawText),
		MaxNewTokens:   r.maxNewTokens,
		Temperature:    r.temperature,
		ReturnFullText: false,
	})
	if err != nil {
		return r.fallback(rawText, "backend_error", err)
	}
	parsed, ok := ParseResponse(res.Text)
	if !ok {
		return r.fallback(rawText, "unusable_output", fmt.Errorf("unusable output (%d bytes)", len(res.Text)))
	}
	r.logger.Debug().
		Str("backend", res.Provider).
		Bool("has_message", parsed.Explanation != "").
		Msg("prompt researched")
	return parsed
}

func (r *Researcher) fallback(rawText, reason string, err error) domain.EnhancedPrompt {
	r.logger.Warn().Err(err).Str("reason", reason).Msg("prompt research fell back to template")
	if r.onFallback != nil {
		r.onFallback(reason, err)
	}
	return TemplatePrompt(rawText)
}

// TemplatePrompt is the deterministic prompt used when research fails.
func TemplatePrompt(rawText string) domain.EnhancedPrompt {
	text := strings.TrimSpace(rawText)
	lines := []string{
		fmt.Sprintf("Professional app icon design: %s.", text),
		"Style: Modern, clean, minimalist vector icon with smooth edges and perfect symmetry.",
		"Quality: Ultra high-definition, crisp details, professional grade.",
		"Design: Centered composition, balanced proportions, subtle depth with soft shadows.",
		"Background: Pure white (#FFFFFF) or subtle light gradient.",
		"Format: Square aspect ratio, suitable for app stores and websites.",
		"Details: Polished, premium quality, production-ready icon design.",
	}
	return domain.EnhancedPrompt{
		ImagePrompt: strings.Join(lines, "\n"),
		Explanation: DefaultExplanation,
		Source:      domain.PromptSourceTemplate,
	}
}
