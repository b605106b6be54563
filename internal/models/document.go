// Package models defines the persisted types for Wayfarer.
package models

import (
	"time"

	"github.com/starford/wayfarer/internal/document"
)

// DocumentFile is the on-disk representation of one document.
type DocumentFile struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Blocks    []document.Block `json:"blocks"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// DisplayTitle returns the title, falling back to the text of the first
// heading and then of the first non-empty block.
func (f *DocumentFile) DisplayTitle() string {
	if f.Title != "" {
		return f.Title
	}
	first := ""
	for _, b := range f.Blocks {
		t := b.Content.PlainText()
		if t == "" {
			continue
		}
		switch b.Type {
		case document.Heading1, document.Heading2, document.Heading3:
			return t
		}
		if first == "" {
			first = t
		}
	}
	return first
}

// ImageURLs returns the non-empty image URLs of the document's image
// blocks keyed by block ID.
func (f *DocumentFile) ImageURLs() map[string]string {
	out := make(map[string]string)
	for _, b := range f.Blocks {
		if b.HasImage() {
			out[b.ID] = b.ImageURL
		}
	}
	return out
}

// PlainText joins the text of every block, one block per line.
func (f *DocumentFile) PlainText() string {
	var out []byte
	for _, b := range f.Blocks {
		t := b.Content.PlainText()
		if t == "" {
			continue
		}
		if len(out) > 0 {
			out = append(out, '\n')
		}
		out = append(out, t...)
	}
	return string(out)
}

// DocumentMetadata is a lightweight representation returned by storage
// list operations.
type DocumentMetadata struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ImageRef links an image block to the URL it displays.
type ImageRef struct {
	DocumentID string `json:"document_id"`
	BlockID    string `json:"block_id"`
	URL        string `json:"url"`
}
