package docservice

import (
	"context"
	"fmt"

	"github.com/starford/wayfarer/internal/apperr"
	"github.com/starford/wayfarer/internal/document"
	"github.com/starford/wayfarer/internal/editor"
)

// BlockPatch lists the block fields to change. Nil fields are left alone;
// Type is applied first so content survives a retype.
type BlockPatch struct {
	Type      *document.BlockType `json:"type,omitempty"`
	Content   document.Content    `json:"content,omitempty"`
	Alignment *document.Alignment `json:"alignment,omitempty"`
	ImageURL  *string             `json:"imageUrl,omitempty"`
	ImageAlt  *string             `json:"imageAlt,omitempty"`
}

// edit runs fn against the document's editor and saves when fn reports a
// change. ifMatch, when set, must equal the current checksum.
func (s *Service) edit(id, ifMatch string, fn func(ed *editor.Editor) (bool, error)) (*DocumentDetail, error) {
	e, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	if ifMatch != "" && ifMatch != e.checksum {
		return nil, apperr.ErrConflict
	}
	changed, err := fn(e.ed)
	if err != nil {
		return nil, err
	}
	if !changed {
		return s.detail(id, e, s.stamp(id)), nil
	}
	return s.save(id, e, EventUpdated)
}

func requireBlock(ed *editor.Editor, blockID string) (document.Block, error) {
	b, ok := ed.Document().Block(blockID)
	if !ok {
		return document.Block{}, fmt.Errorf("%w: block %q", apperr.ErrNotFound, blockID)
	}
	return b, nil
}

// InsertBlock inserts a block of type t holding content after afterID. An
// empty or unknown anchor appends. It returns the new block.
func (s *Service) InsertBlock(_ context.Context, id, ifMatch, afterID string, t document.BlockType, content document.Content) (*DocumentDetail, document.Block, error) {
	if t == "" {
		t = document.Paragraph
	}
	if !t.Valid() {
		return nil, document.Block{}, fmt.Errorf("%w: block type %q", apperr.ErrInvalid, t)
	}
	if err := content.Validate(); err != nil {
		return nil, document.Block{}, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	var nb document.Block
	d, err := s.edit(id, ifMatch, func(ed *editor.Editor) (bool, error) {
		if afterID == "" {
			blocks := ed.Blocks()
			afterID = blocks[len(blocks)-1].ID
		}
		nb = ed.InsertBlockAfter(afterID, t)
		if len(content) > 0 {
			ed.UpdateContent(nb.ID, content)
			nb, _ = ed.Document().Block(nb.ID)
		}
		return true, nil
	})
	if err != nil {
		return nil, document.Block{}, err
	}
	return d, nb, nil
}

// UpdateBlock applies p to one block.
func (s *Service) UpdateBlock(_ context.Context, id, ifMatch, blockID string, p BlockPatch) (*DocumentDetail, error) {
	if p.Type != nil && !p.Type.Valid() {
		return nil, fmt.Errorf("%w: block type %q", apperr.ErrInvalid, *p.Type)
	}
	if p.Alignment != nil && !p.Alignment.Valid() {
		return nil, fmt.Errorf("%w: alignment %q", apperr.ErrInvalid, *p.Alignment)
	}
	if p.Content != nil {
		if err := p.Content.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
		}
	}
	if p.ImageURL != nil {
		if err := document.ValidateImageSource(*p.ImageURL); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
		}
	}
	return s.edit(id, ifMatch, func(ed *editor.Editor) (bool, error) {
		if _, err := requireBlock(ed, blockID); err != nil {
			return false, err
		}
		changed := false
		if p.Type != nil {
			changed = ed.ChangeType(blockID, *p.Type) || changed
		}
		if p.Content != nil {
			changed = ed.UpdateContent(blockID, p.Content) || changed
		}
		if p.Alignment != nil {
			changed = ed.SetAlignment(blockID, *p.Alignment) || changed
		}
		if p.ImageURL != nil || p.ImageAlt != nil {
			b, _ := ed.Document().Block(blockID)
			if !b.IsImage() {
				return false, fmt.Errorf("%w: %s", editor.ErrNotImageBlock, blockID)
			}
			url, alt := b.ImageURL, b.ImageAlt
			if p.ImageURL != nil {
				url = *p.ImageURL
			}
			if p.ImageAlt != nil {
				alt = *p.ImageAlt
			}
			changed = ed.SetImage(blockID, url, alt) || changed
		}
		return changed, nil
	})
}

// DeleteBlock removes one block. The last block of a document is kept.
func (s *Service) DeleteBlock(_ context.Context, id, ifMatch, blockID string) (*DocumentDetail, error) {
	return s.edit(id, ifMatch, func(ed *editor.Editor) (bool, error) {
		if _, err := requireBlock(ed, blockID); err != nil {
			return false, err
		}
		return ed.DeleteBlock(blockID), nil
	})
}

// Reorder moves the block at from to position to.
func (s *Service) Reorder(_ context.Context, id, ifMatch string, from, to int) (*DocumentDetail, error) {
	return s.edit(id, ifMatch, func(ed *editor.Editor) (bool, error) {
		n := ed.Document().Len()
		if from < 0 || from >= n || to < 0 || to >= n {
			return false, fmt.Errorf("%w: index out of range [0,%d)", apperr.ErrInvalid, n)
		}
		return ed.Reorder(from, to), nil
	})
}

// DragStart begins a drag of the block at index.
func (s *Service) DragStart(_ context.Context, id string, idx int) (*DocumentDetail, error) {
	return s.edit(id, "", func(ed *editor.Editor) (bool, error) {
		if !ed.DragStart(idx) {
			return false, fmt.Errorf("%w: drag index %d", apperr.ErrInvalid, idx)
		}
		return false, nil
	})
}

// DragOver moves the dragged block onto hoverIndex. Every effective hover
// is saved so other clients see the live order.
func (s *Service) DragOver(_ context.Context, id string, hoverIndex int) (*DocumentDetail, error) {
	return s.edit(id, "", func(ed *editor.Editor) (bool, error) {
		return ed.DragOver(hoverIndex), nil
	})
}

// DragEnd finishes the drag.
func (s *Service) DragEnd(_ context.Context, id string) (*DocumentDetail, error) {
	return s.edit(id, "", func(ed *editor.Editor) (bool, error) {
		ed.DragEnd()
		return false, nil
	})
}
