// Package assets stores image attachments under the storage root and
// resolves image sources (temporary handles, data URIs, stored attachments
// and remote URLs) for the crop engine.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/starford/wayfarer/internal/blobstore"
	"github.com/starford/wayfarer/internal/crop"
	"github.com/starford/wayfarer/internal/storage"
)

// URLPrefix is the public path under which attachments are served.
const URLPrefix = "/" + storage.AttachmentsDir + "/"

var (
	ErrUnsupportedScheme = errors.New("assets: unsupported image source")
	ErrUnsupportedType   = errors.New("assets: unsupported file type")
	ErrInvalidContent    = errors.New("assets: content does not match type")
	ErrTooLarge          = errors.New("assets: file too large")
	ErrBlockedHost       = errors.New("assets: blocked host")
)

// Library writes attachments to a storage provider.
type Library struct {
	store    storage.Provider
	fetcher  *Fetcher
	maxBytes int64
	logger   *slog.Logger
}

// NewLibrary returns a Library over store. A nil fetcher gets NewFetcher
// limited to maxBytes.
func NewLibrary(store storage.Provider, fetcher *Fetcher, maxBytes int64, logger *slog.Logger) *Library {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if fetcher == nil {
		fetcher = NewFetcher(WithMaxBytes(maxBytes))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{store: store, fetcher: fetcher, maxBytes: maxBytes, logger: logger}
}

// URLPath returns the public URL of the attachment called name.
func URLPath(name string) string { return URLPrefix + name }

// NameFromURL returns the attachment name a public URL refers to.
func NameFromURL(u string) (string, bool) {
	if !strings.HasPrefix(u, URLPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(u, URLPrefix)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if name == "" || strings.Contains(name, "/") || name != SanitizeFilename(name) {
		return "", false
	}
	return name, true
}

// Save validates data against the extension of name and writes it under a
// name not already taken. It returns the attachment's public URL.
func (l *Library) Save(name string, data []byte) (string, error) {
	if int64(len(data)) > l.maxBytes {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(data), l.maxBytes)
	}
	name = SanitizeFilename(name)
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: %q (allowed: png, jpg, jpeg, gif, webp, svg)", ErrUnsupportedType, ext)
	}
	if err := ValidateMagicBytes(data, ext); err != nil {
		return "", err
	}

	name = l.freeName(name)
	if err := l.store.Write(storage.AttachmentPath(name), data); err != nil {
		return "", fmt.Errorf("save attachment: %w", err)
	}
	l.logger.Info("attachment saved", slog.String("name", name), slog.Int("bytes", len(data)))
	return URLPath(name), nil
}

// freeName appends -1, -2, ... to the stem until the name is unused.
func (l *Library) freeName(name string) string {
	if !l.store.Exists(storage.AttachmentPath(name)) {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := stem + "-" + strconv.Itoa(i) + ext
		if !l.store.Exists(storage.AttachmentPath(candidate)) {
			return candidate
		}
	}
}

// Import stores the image at rawURL, which is a base64 data URI or an
// http(s) URL. An empty filename is derived from the URL.
func (l *Library) Import(ctx context.Context, rawURL, filename string) (string, error) {
	var (
		data []byte
		ext  string
		err  error
	)
	if strings.HasPrefix(rawURL, "data:") {
		var mime string
		data, mime, err = crop.DecodeDataURI(rawURL)
		if err == nil {
			if ext = ExtForMIME(mime); ext == "" {
				err = fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
			}
		}
	} else {
		data, ext, err = l.fetcher.Fetch(ctx, rawURL)
	}
	if err != nil {
		return "", err
	}
	if filename == "" {
		filename = FilenameFromURL(rawURL, ext)
	}
	return l.Save(filename, data)
}

// Upload stores a committed crop.
func (l *Library) Upload(_ context.Context, file crop.File) (string, error) {
	return l.Save(file.Name, file.Data)
}

// Read returns the bytes of a stored attachment.
func (l *Library) Read(name string) ([]byte, error) {
	return l.store.Read(storage.AttachmentPath(SanitizeFilename(name)))
}

// Loader returns a crop.Loader that resolves blob handles and data URIs
// through blobs, stored attachments through the library and anything
// else over HTTP.
func (l *Library) Loader(blobs *blobstore.Store) crop.Loader {
	inline := crop.NewBlobLoader(blobs)
	return crop.LoaderFunc(func(ctx context.Context, u string) (io.ReadCloser, error) {
		switch {
		case blobstore.IsHandle(u) || strings.HasPrefix(u, "data:"):
			return inline.Load(ctx, u)
		case strings.HasPrefix(u, URLPrefix):
			name, ok := NameFromURL(u)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u)
			}
			data, err := l.Read(name)
			if err != nil {
				return nil, err
			}
			return io.NopCloser(bytes.NewReader(data)), nil
		case strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://"):
			data, _, err := l.fetcher.Fetch(ctx, u)
			if err != nil {
				return nil, err
			}
			return io.NopCloser(bytes.NewReader(data)), nil
		default:
			return nil, ErrUnsupportedScheme
		}
	})
}
