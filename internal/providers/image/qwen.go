package image

import (
	"context"
	"errors"

	"iconforge/internal/providers/qwen"
)

type qwenImageClient interface {
	GenerateImage(context.Context, qwen.ImageRequest) (*qwen.ImageAsset, error)
	HasCredentials() bool
	Model() string
}

// Qwen adapts the DashScope client to the Generator contract. It is the
// layout-faithful backend used first for flag requests.
type Qwen struct {
	client         qwenImageClient
	negativePrompt string
}

func NewQwen(client qwenImageClient, negativePrompt string) *Qwen {
	return &Qwen{client: client, negativePrompt: negativePrompt}
}

func (q *Qwen) Name() string {
	if q.client == nil {
		return "qwen"
	}
	return "qwen:" + q.client.Model()
}

func (q *Qwen) Generate(ctx context.Context, prompt string) (*Image, error) {
	if q.client == nil || !q.client.HasCredentials() {
		return nil, errors.New("qwen: missing credentials")
	}
	asset, err := q.client.GenerateImage(ctx, qwen.ImageRequest{
		Prompt:         prompt,
		NegativePrompt: q.negativePrompt,
		RequestID:      RequestIDFromContext(ctx),
	})
	if err != nil {
		return nil, err
	}
	return normalizeImage(q.Name(), asset.Data)
}

var _ Generator = (*Qwen)(nil)
