package image

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHFBaseURL    = "https://router.huggingface.co/hf-inference"
	defaultHFImageModel = "stabilityai/stable-diffusion-xl-base-1.0"
)

type HuggingFaceOptions struct {
	APIKey         string
	BaseURL        string
	Model          string
	NegativePrompt string
	HTTPClient     *http.Client
}

// HuggingFace calls a text-to-image model on the Hugging Face Inference API.
// The response body is the image itself.
type HuggingFace struct {
	apiKey         string
	baseURL        string
	model          string
	negativePrompt string
	httpClient     *http.Client
}

type hfImageRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters *hfImageParameters `json:"parameters,omitempty"`
}

type hfImageParameters struct {
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

func NewHuggingFace(opts HuggingFaceOptions) (*HuggingFace, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("huggingface image: api key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultHFBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultHFImageModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HuggingFace{
		apiKey:         key,
		baseURL:        baseURL,
		model:          model,
		negativePrompt: strings.TrimSpace(opts.NegativePrompt),
		httpClient:     client,
	}, nil
}

func (h *HuggingFace) Name() string {
	return "huggingface:" + h.model
}

func (h *HuggingFace) Generate(ctx context.Context, prompt string) (*Image, error) {
	payload := hfImageRequest{Inputs: prompt}
	if h.negativePrompt != "" {
		payload.Parameters = &hfImageParameters{NegativePrompt: h.negativePrompt}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("huggingface image: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/models/"+h.model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("huggingface image: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("huggingface image: http request: %w", err)
	}
	defer resp.Body.Close()
	return readImageResponse("huggingface image", resp)
}

var _ Generator = (*HuggingFace)(nil)
