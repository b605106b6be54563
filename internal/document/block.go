// Package document implements the block document model: an ordered list of
// typed content blocks whose order in the backing slice is the document order.
package document

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// BlockType is the kind of a content block.
type BlockType string

const (
	Paragraph BlockType = "paragraph"
	Heading1  BlockType = "heading1"
	Heading2  BlockType = "heading2"
	Heading3  BlockType = "heading3"
	Quote     BlockType = "quote"
	Code      BlockType = "code"
	Image     BlockType = "image"
)

// BlockTypes lists every valid block type.
var BlockTypes = []BlockType{Paragraph, Heading1, Heading2, Heading3, Quote, Code, Image}

// Valid reports whether t is a known block type.
func (t BlockType) Valid() bool {
	for _, v := range BlockTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Alignment is the horizontal layout of a block.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Valid reports whether a is a known alignment.
func (a Alignment) Valid() bool {
	return a == AlignLeft || a == AlignCenter || a == AlignRight
}

// Run is a span of text sharing one set of inline formats.
type Run struct {
	Text   string `json:"text"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
	Link   string `json:"link,omitempty"`
}

// Validate checks that links are absolute URLs or site-relative paths.
func (r Run) Validate() error {
	if r.Link == "" || r.Link[0] == '/' {
		return nil
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Link, is.URL),
	)
}

// ValidateImageSource accepts an empty source, a site-relative path, a
// temporary blob: handle, an inline data:image/ URI or an absolute http(s)
// URL.
func ValidateImageSource(src string) error {
	switch {
	case src == "":
		return nil
	case strings.HasPrefix(src, "//"):
		return errors.New("protocol-relative image URL")
	case src[0] == '/',
		strings.HasPrefix(src, "blob:"),
		strings.HasPrefix(src, "data:image/"):
		return nil
	}
	u, err := url.Parse(src)
	if err != nil {
		return fmt.Errorf("invalid image URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("image URL %q must be http(s) or a site path", src)
	}
	return nil
}

func (r Run) sameFormat(o Run) bool {
	return r.Bold == o.Bold && r.Italic == o.Italic && r.Link == o.Link
}

// Content is a structured run-list. It replaces raw markup so documents are
// serializable, diffable, and never rendered as trusted HTML.
type Content []Run

// Text builds single-run content.
func Text(s string) Content {
	if s == "" {
		return Content{}
	}
	return Content{{Text: s}}
}

// PlainText concatenates the text of every run.
func (c Content) PlainText() string {
	n := 0
	for _, r := range c {
		n += len(r.Text)
	}
	buf := make([]byte, 0, n)
	for _, r := range c {
		buf = append(buf, r.Text...)
	}
	return string(buf)
}

// Clone returns a copy that shares no backing array with c.
func (c Content) Clone() Content {
	if c == nil {
		return Content{}
	}
	out := make(Content, len(c))
	copy(out, c)
	return out
}

// Normalize drops empty runs and merges neighbours with equal formatting.
func (c Content) Normalize() Content {
	out := make(Content, 0, len(c))
	for _, r := range c {
		if r.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].sameFormat(r) {
			out[n-1].Text += r.Text
			continue
		}
		out = append(out, r)
	}
	return out
}

// Equal reports whether c and o hold identical runs.
func (c Content) Equal(o Content) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if c[i] != o[i] {
			return false
		}
	}
	return true
}

// Validate validates every run.
func (c Content) Validate() error {
	for i, r := range c {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("run %d: %w", i, err)
		}
	}
	return nil
}

// Block is one unit of document content. ImageURL and ImageAlt are only
// meaningful for image blocks; for those, Content is the caption.
type Block struct {
	ID        string    `json:"id"`
	Type      BlockType `json:"type"`
	Content   Content   `json:"content"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	ImageAlt  string    `json:"imageAlt,omitempty"`
	Alignment Alignment `json:"alignment"`
}

// Validate checks the block shape.
func (b Block) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.ID, validation.Required),
		validation.Field(&b.Type, validation.Required, validation.By(func(any) error {
			if !b.Type.Valid() {
				return fmt.Errorf("unknown block type %q", b.Type)
			}
			return nil
		})),
		validation.Field(&b.Alignment, validation.By(func(any) error {
			if b.Alignment != "" && !b.Alignment.Valid() {
				return fmt.Errorf("unknown alignment %q", b.Alignment)
			}
			return nil
		})),
		validation.Field(&b.Content),
		validation.Field(&b.ImageURL, validation.By(func(any) error {
			return ValidateImageSource(b.ImageURL)
		})),
	)
}

// IsImage reports whether the block is an image block.
func (b Block) IsImage() bool { return b.Type == Image }

// HasImage reports whether an image block has a source set.
func (b Block) HasImage() bool { return b.Type == Image && b.ImageURL != "" }

func (b Block) clone() Block {
	b.Content = b.Content.Clone()
	return b
}

// normalize applies defaults and strips fields that do not apply to the type.
func (b Block) normalize() Block {
	if b.Alignment == "" {
		b.Alignment = AlignLeft
	}
	if b.Content == nil {
		b.Content = Content{}
	}
	if b.Type != Image {
		b.ImageURL = ""
		b.ImageAlt = ""
	}
	return b
}
