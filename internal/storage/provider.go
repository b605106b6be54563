// Package storage defines the document file-system abstraction.
package storage

import (
	"path"
	"strings"

	"github.com/starford/wayfarer/internal/models"
)

// AttachmentsDir is the flat directory that holds uploaded and cropped
// images, relative to the storage root.
const AttachmentsDir = "attachments"

// DocumentExt is the file extension of stored documents.
const DocumentExt = ".json"

// Provider is the interface for document file operations. Paths are
// relative to the storage root.
type Provider interface {
	// List returns metadata for every document file in the root directory.
	List() ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
}

// DocumentPath returns the storage path of a document.
func DocumentPath(id string) string {
	return id + DocumentExt
}

// DocumentID returns the document ID stored at p, or "" when p does not
// name a top-level document file.
func DocumentID(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.Contains(p, "/") || !strings.HasSuffix(p, DocumentExt) {
		return ""
	}
	return strings.TrimSuffix(p, DocumentExt)
}

// AttachmentPath returns the storage path of an attachment.
func AttachmentPath(name string) string {
	return path.Join(AttachmentsDir, name)
}
