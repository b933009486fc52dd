package textgen

import (
	"io"
	"strings"
)

func ioNopCloser(body string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(body))
}
