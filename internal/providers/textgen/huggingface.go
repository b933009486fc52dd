package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	huggingFaceProviderName = "huggingface"
	defaultHuggingFaceModel = "mistralai/Mistral-7B-Instruct-v0.2"
	huggingFaceTimeout      = 30 * time.Second
)

// HuggingFaceOptions configures the Inference API client.
type HuggingFaceOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// HuggingFace calls the text-generation task of the Hugging Face Inference API.
type HuggingFace struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type hfTextRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfTextParams `json:"parameters"`
}

type hfTextParams struct {
	MaxNewTokens   int     `json:"max_new_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfTextResult struct {
	GeneratedText string `json:"generated_text"`
}

type hfError struct {
	Error string `json:"error"`
}

// NewHuggingFace validates options and applies defaults.
func NewHuggingFace(opts HuggingFaceOptions) (*HuggingFace, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("huggingface api key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://router.huggingface.co/hf-inference"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultHuggingFaceModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: huggingFaceTimeout}
	}
	return &HuggingFace{
		apiKey:  strings.TrimSpace(opts.APIKey),
		baseURL: baseURL,
		model:   model,
		client:  client,
	}, nil
}

// Name identifies the backend in logs.
func (h *HuggingFace) Name() string {
	return huggingFaceProviderName + ":" + h.model
}

// Generate runs one text-generation call.
func (h *HuggingFace) Generate(ctx context.Context, req Request) (*Response, error) {
	payload := hfTextRequest{
		Inputs: req.Instruction,
		Parameters: hfTextParams{
			MaxNewTokens:   req.MaxNewTokens,
			Temperature:    req.Temperature,
			ReturnFullText: req.ReturnFullText,
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("huggingface: encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s", h.baseURL, h.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("huggingface: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("huggingface: request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("huggingface: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var apiErr hfError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("huggingface: status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("huggingface: status %d", resp.StatusCode)
	}
	text, err := decodeGeneratedText(body)
	if err != nil {
		return nil, err
	}
	return &Response{Text: text, Provider: h.Name()}, nil
}

// decodeGeneratedText accepts both the list and the single-object response
// shapes the Inference API uses.
func decodeGeneratedText(body []byte) (string, error) {
	var list []hfTextResult
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) == 0 {
			return "", ErrEmptyOutput
		}
		return nonEmpty(list[0].GeneratedText)
	}
	var single hfTextResult
	if err := json.Unmarshal(body, &single); err != nil {
		return "", fmt.Errorf("huggingface: decode response: %w", err)
	}
	return nonEmpty(single.GeneratedText)
}

func nonEmpty(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyOutput
	}
	return text, nil
}

var _ Generator = (*HuggingFace)(nil)
