package crop

import (
	"errors"
	"fmt"
)

// ErrSessionClosed is returned by operations on a committed or cancelled session.
var ErrSessionClosed = errors.New("crop: session closed")

// ErrSourceTooLarge is wrapped in an ImageLoadError when a source's
// declared dimensions exceed the pixel budget.
var ErrSourceTooLarge = errors.New("image dimensions exceed pixel budget")

var (
	errEmptySurface    = errors.New("surface has no area")
	errSurfaceTooLarge = errors.New("surface exceeds pixel budget")
)

// ImageLoadError reports that an image source could not be fetched or decoded.
// The caller keeps the block in its placeholder state.
type ImageLoadError struct {
	Source string
	Err    error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("crop: load image %s: %v", redact(e.Source), e.Err)
}

func (e *ImageLoadError) Unwrap() error { return e.Err }

// RasterizationError reports that no drawing surface could be acquired for
// the crop. The session is aborted.
type RasterizationError struct {
	Width, Height int
	Err           error
}

func (e *RasterizationError) Error() string {
	return fmt.Sprintf("crop: rasterize %dx%d: %v", e.Width, e.Height, e.Err)
}

func (e *RasterizationError) Unwrap() error { return e.Err }

// redact keeps data URIs out of error messages.
func redact(source string) string {
	const max = 64
	if len(source) > max {
		return source[:max] + "..."
	}
	return source
}
