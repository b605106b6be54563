package assets

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	allowedExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true,
		".gif": true, ".webp": true, ".svg": true,
	}

	mimeToExt = map[string]string{
		"image/png":     ".png",
		"image/jpeg":    ".jpg",
		"image/gif":     ".gif",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// ExtForMIME returns the file extension for an image media type, or "".
func ExtForMIME(mime string) string {
	return mimeToExt[strings.TrimSpace(strings.Split(mime, ";")[0])]
}

// Allowed reports whether name carries an accepted image extension.
func Allowed(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// FilenameFromURL extracts a filename from a URL, falling back to a UUID
// with fallbackExt.
func FilenameFromURL(rawURL, fallbackExt string) string {
	if !strings.HasPrefix(rawURL, "data:") {
		if parsed, err := url.Parse(rawURL); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
				return base
			}
		}
	}
	ext := fallbackExt
	if ext == "" {
		ext = ".bin"
	}
	return uuid.New().String() + ext
}

// SanitizeFilename strips path separators and unsafe characters.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = safeFilenameRe.ReplaceAllString(name, "_")
	switch {
	case name == "" || name == "." || name == "..":
		name = uuid.New().String()
	case strings.HasPrefix(name, "."):
		name = uuid.New().String() + name
	}
	return name
}

// ValidateMagicBytes verifies file content matches the declared extension.
func ValidateMagicBytes(data []byte, ext string) error {
	ext = strings.ToLower(ext)
	if ext == ".svg" {
		prefix := data
		if len(prefix) > 1024 {
			prefix = prefix[:1024]
		}
		if !bytes.Contains(prefix, []byte("<svg")) {
			return fmt.Errorf("%w: content does not appear to be SVG", ErrInvalidContent)
		}
		return nil
	}

	detected := http.DetectContentType(data)
	got := ExtForMIME(detected)

	switch ext {
	case ".jpg", ".jpeg":
		if got != ".jpg" {
			return fmt.Errorf("%w: extension %s, detected %s", ErrInvalidContent, ext, detected)
		}
	default:
		if got != ext {
			return fmt.Errorf("%w: extension %s, detected %s", ErrInvalidContent, ext, detected)
		}
	}
	return nil
}
