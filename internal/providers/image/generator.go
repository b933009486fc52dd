// Package image holds the image-generation backends and the ordered chain that
// falls through them until one produces bytes.
package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Image is the uniform output of every provider.
type Image struct {
	Data []byte
	MIME string
}

// Generator is implemented by every image backend.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (*Image, error)
}

// maxImageBytes bounds a single provider response.
const maxImageBytes = 16 << 20

// readImageResponse turns an HTTP response into an Image, rejecting non-2xx
// statuses and bodies that are not images.
func readImageResponse(provider string, resp *http.Response) (*Image, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: status %d: %s", provider, resp.StatusCode, snippet(raw))
	}
	return normalizeImage(provider, raw)
}

// normalizeImage checks bytes returned by any backend. The MIME type is always
// sniffed from the data; upstream headers and declared formats are ignored.
func normalizeImage(provider string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: empty image body", provider)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("%s: image exceeds %d bytes", provider, maxImageBytes)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%s: unexpected content %s: %s", provider, mime, snippet(data))
	}
	return &Image{Data: data, MIME: mime}, nil
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
