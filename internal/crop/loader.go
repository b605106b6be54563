package crop

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/starford/wayfarer/internal/blobstore"
)

// Loader fetches the raw bytes of an image source. Implementations decide
// which URL schemes they accept; the crop engine itself never touches the
// network.
type Loader interface {
	Load(ctx context.Context, url string) (io.ReadCloser, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, url string) (io.ReadCloser, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, url string) (io.ReadCloser, error) {
	return f(ctx, url)
}

// NewBlobLoader resolves temporary "blob:" handles from store and inline
// "data:" URIs.
func NewBlobLoader(store *blobstore.Store) Loader {
	return LoaderFunc(func(ctx context.Context, url string) (io.ReadCloser, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch {
		case blobstore.IsHandle(url):
			return store.Open(url)
		case strings.HasPrefix(url, "data:"):
			data, _, err := DecodeDataURI(url)
			if err != nil {
				return nil, err
			}
			return io.NopCloser(bytes.NewReader(data)), nil
		default:
			return nil, fmt.Errorf("unsupported image source scheme")
		}
	})
}

// DecodeDataURI parses a data:[<mediatype>];base64,<data> URI and returns the
// payload and its media type.
func DecodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	return data, mime, nil
}
