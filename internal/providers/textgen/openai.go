package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	openAIProviderName = "openai"
	defaultOpenAIModel = "gpt-4o-mini"
)

var openAIModelCanonical = map[string]string{
	"gpt-3.5-turbo": "gpt-3.5-turbo",
	"gpt-4o-mini":   "gpt-4o-mini",
	"gpt-4o":        "gpt-4o",
}

var openAIModelAliases = map[string]string{
	"gpt-3.5":                "gpt-3.5-turbo",
	"gpt3.5":                 "gpt-3.5-turbo",
	"gpt-35-turbo":           "gpt-3.5-turbo",
	"gpt4o-mini":             "gpt-4o-mini",
	"gpt4omini":              "gpt-4o-mini",
	"gpt-4o-mini-2024-07-18": "gpt-4o-mini",
	"gpt4o":                  "gpt-4o",
}

// OpenAIOptions configures the langchaingo-backed OpenAI client.
type OpenAIOptions struct {
	APIKey    string
	Model     string
	BaseURL   string
	OnWarning func(reason, detail string)
	// LLM overrides the model handle, mainly for tests.
	LLM llms.Model
}

// OpenAI sends the instruction as a single prompt through langchaingo.
type OpenAI struct {
	model string
	llm   llms.Model
}

// NewOpenAI builds the client. Unknown model names fall back to the default.
func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	modelInput := strings.TrimSpace(opts.Model)
	model, reason := normalizeOpenAIModel(modelInput)
	if reason != "" && opts.OnWarning != nil {
		requested := modelInput
		if requested == "" {
			requested = defaultOpenAIModel
		}
		opts.OnWarning("model_"+reason, fmt.Sprintf("requested=%s resolved=%s", requested, model))
	}
	if opts.LLM != nil {
		return &OpenAI{model: model, llm: opts.LLM}, nil
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	clientOpts := []openai.Option{
		openai.WithToken(strings.TrimSpace(opts.APIKey)),
		openai.WithModel(model),
	}
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(base))
	}
	llm, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("openai: create client: %w", err)
	}
	return &OpenAI{model: model, llm: llm}, nil
}

// Name identifies the backend in logs.
func (o *OpenAI) Name() string {
	return openAIProviderName + ":" + o.model
}

// Generate runs one completion. Chat models only ever return the
// continuation, so ReturnFullText is ignored.
func (o *OpenAI) Generate(ctx context.Context, req Request) (*Response, error) {
	var callOpts []llms.CallOption
	if req.MaxNewTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxNewTokens))
	}
	callOpts = append(callOpts, llms.WithTemperature(req.Temperature))
	text, err := llms.GenerateFromSinglePrompt(ctx, o.llm, req.Instruction, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("openai: generate: %w", err)
	}
	text, err = nonEmpty(text)
	if err != nil {
		return nil, err
	}
	return &Response{Text: text, Provider: o.Name()}, nil
}

var _ Generator = (*OpenAI)(nil)

func normalizeOpenAIModel(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return defaultOpenAIModel, ""
	}
	normalized := strings.ToLower(trimmed)
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	if canonical, ok := openAIModelCanonical[normalized]; ok {
		return canonical, ""
	}
	if alias, ok := openAIModelAliases[normalized]; ok {
		return alias, "alias"
	}
	return defaultOpenAIModel, "defaulted"
}
