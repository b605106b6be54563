package api

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/wayfarer/internal/docservice"
	"github.com/starford/wayfarer/internal/document"
	"github.com/starford/wayfarer/internal/inline"
	"github.com/starford/wayfarer/internal/models"
)

var documentIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

func blockTypeRule() validation.Rule {
	types := make([]any, len(document.BlockTypes))
	for i, t := range document.BlockTypes {
		types[i] = t
	}
	return validation.In(types...).Error("unknown block type")
}

var alignmentRule = validation.In(document.AlignLeft, document.AlignCenter, document.AlignRight).
	Error("unknown alignment")

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	ID     string           `json:"id,omitempty" example:"lisbon-2024"`
	Title  string           `json:"title" example:"Lisbon"`
	Blocks []document.Block `json:"blocks,omitempty"`
}

// Validate implements validation.Validatable.
func (r *CreateDocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Length(1, 128), validation.Match(documentIDRe)),
		validation.Field(&r.Title, validation.Length(0, 200)),
	)
}

// UpdateDocumentRequest is the request body for replacing a document.
type UpdateDocumentRequest struct {
	Title  string           `json:"title" example:"Lisbon"`
	Blocks []document.Block `json:"blocks" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *UpdateDocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Length(0, 200)),
		validation.Field(&r.Blocks, validation.Required),
	)
}

// InsertBlockRequest is the request body for inserting a block. Markup,
// when set, is parsed into the block's content.
type InsertBlockRequest struct {
	After  string             `json:"after,omitempty"`
	Type   document.BlockType `json:"type,omitempty" example:"paragraph"`
	Markup string             `json:"markup,omitempty" example:"**Day one** in _Alfama_"`
}

// Validate implements validation.Validatable.
func (r *InsertBlockRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, blockTypeRule()),
	)
}

// UpdateBlockRequest lists the block fields to change.
type UpdateBlockRequest struct {
	Type      *document.BlockType `json:"type,omitempty"`
	Content   document.Content    `json:"content,omitempty"`
	Markup    *string             `json:"markup,omitempty"`
	Alignment *document.Alignment `json:"alignment,omitempty"`
	ImageURL  *string             `json:"imageUrl,omitempty"`
	ImageAlt  *string             `json:"imageAlt,omitempty"`
}

// Validate implements validation.Validatable.
func (r *UpdateBlockRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.NilOrNotEmpty, blockTypeRule()),
		validation.Field(&r.Markup, validation.When(r.Content != nil,
			validation.Nil.Error("set either content or markup"))),
		validation.Field(&r.Alignment, validation.NilOrNotEmpty, alignmentRule),
		validation.Field(&r.ImageURL, validation.When(r.ImageURL != nil,
			validation.By(func(any) error {
				return document.ValidateImageSource(*r.ImageURL)
			}))),
	)
}

// Patch converts the request into a service patch.
func (r *UpdateBlockRequest) Patch() (docservice.BlockPatch, error) {
	p := docservice.BlockPatch{
		Type:      r.Type,
		Content:   r.Content,
		Alignment: r.Alignment,
		ImageURL:  r.ImageURL,
		ImageAlt:  r.ImageAlt,
	}
	if r.Markup != nil {
		c, err := inline.Parse(*r.Markup)
		if err != nil {
			return p, err
		}
		p.Content = c
	}
	return p, nil
}

// ReorderRequest moves the block at From to position To.
type ReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Validate implements validation.Validatable.
func (r *ReorderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.From, validation.Min(0)),
		validation.Field(&r.To, validation.Min(0)),
	)
}

// DragRequest carries the index of a drag start or hover.
type DragRequest struct {
	Index int `json:"index"`
}

// Validate implements validation.Validatable.
func (r *DragRequest) Validate() error {
	return validation.ValidateStruct(r, validation.Field(&r.Index, validation.Min(0)))
}

// OpenCropRequest opens a crop on an addressable image. An empty URL
// re-crops the block's current image.
type OpenCropRequest struct {
	BlockID string `json:"blockId" validate:"required"`
	URL     string `json:"url,omitempty"`
}

// Validate implements validation.Validatable.
func (r *OpenCropRequest) Validate() error {
	return validation.ValidateStruct(r, validation.Field(&r.BlockID, validation.Required))
}

// PointerRequest is one pointer sample for the open crop.
type PointerRequest docservice.PointerEvent

// Validate implements validation.Validatable.
func (r *PointerRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required, validation.In(
			docservice.PointerDown, docservice.PointerMove,
			docservice.PointerUp, docservice.PointerLeave)),
	)
}

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = docservice.DocumentDetail

// DocumentListItem is a lightweight item in a list response (aliased from the domain layer).
type DocumentListItem = docservice.DocumentListItem

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []DocumentListItem `json:"documents" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// InsertBlockResponse returns the new block with the updated document.
type InsertBlockResponse struct {
	Block    document.Block  `json:"block"`
	Document *DocumentDetail `json:"document"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	ID      string `json:"id" example:"lisbon-2024" validate:"required"`
	Title   string `json:"title" example:"Lisbon" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// ImageUsersResponse lists the image blocks that display one URL.
type ImageUsersResponse struct {
	URL   string            `json:"url"`
	Users []models.ImageRef `json:"users"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"image.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/attachments/image.png" validate:"required"`
}
