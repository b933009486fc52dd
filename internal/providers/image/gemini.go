package image

import (
	"context"
	"errors"

	"iconforge/internal/providers/genai"
)

type geminiImageClient interface {
	GenerateImage(context.Context, genai.ImageRequest) (*genai.ImageAsset, error)
	HasCredentials() bool
	Model() string
}

// Gemini adapts the genai client to the Generator contract.
type Gemini struct {
	client geminiImageClient
}

func NewGemini(client geminiImageClient) *Gemini {
	return &Gemini{client: client}
}

func (g *Gemini) Name() string {
	if g.client == nil {
		return "gemini"
	}
	return "gemini:" + g.client.Model()
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (*Image, error) {
	if g.client == nil || !g.client.HasCredentials() {
		return nil, errors.New("gemini: missing credentials")
	}
	asset, err := g.client.GenerateImage(ctx, genai.ImageRequest{
		Prompt:    prompt,
		RequestID: RequestIDFromContext(ctx),
	})
	if err != nil {
		return nil, err
	}
	return normalizeImage(g.Name(), asset.Data)
}

var _ Generator = (*Gemini)(nil)
