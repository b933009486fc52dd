package image

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultPollinationsBaseURL = "https://image.pollinations.ai"

type PollinationsOptions struct {
	BaseURL    string
	Width      int
	Height     int
	HTTPClient *http.Client
}

// Pollinations fetches an image with a GET request whose path is the
// URL-encoded prompt. It needs no credentials, which makes it the last resort.
type Pollinations struct {
	baseURL    string
	width      int
	height     int
	httpClient *http.Client
}

func NewPollinations(opts PollinationsOptions) *Pollinations {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultPollinationsBaseURL
	}
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 1024
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}
	return &Pollinations{baseURL: baseURL, width: width, height: height, httpClient: client}
}

func (p *Pollinations) Name() string {
	return "pollinations"
}

// URL returns the request URL for prompt.
func (p *Pollinations) URL(prompt string) string {
	q := url.Values{}
	q.Set("width", fmt.Sprint(p.width))
	q.Set("height", fmt.Sprint(p.height))
	q.Set("nologo", "true")
	return p.baseURL + "/prompt/" + url.PathEscape(prompt) + "?" + q.Encode()
}

func (p *Pollinations) Generate(ctx context.Context, prompt string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("pollinations: build request: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pollinations: http request: %w", err)
	}
	defer resp.Body.Close()
	return readImageResponse("pollinations", resp)
}

var _ Generator = (*Pollinations)(nil)
