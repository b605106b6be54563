package docservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/wayfarer/internal/apperr"
	"github.com/starford/wayfarer/internal/crop"
	"github.com/starford/wayfarer/internal/editor"
	"github.com/starford/wayfarer/internal/geometry"
)

// HandleTolerance is the grip hit radius, in display pixels, used when a
// pointer-down names no handle.
const HandleTolerance = 10

// Pointer event types accepted by CropPointer.
const (
	PointerDown  = "down"
	PointerMove  = "move"
	PointerUp    = "up"
	PointerLeave = "leave"
)

// PointerEvent is one pointer sample in container display space. Handle is
// only read on "down"; empty means hit-test the grips.
type PointerEvent struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Handle string  `json:"handle,omitempty"`
}

// CropState is a snapshot of an open crop session.
type CropState struct {
	DocumentID  string                   `json:"documentId"`
	BlockID     string                   `json:"blockId"`
	FileName    string                   `json:"fileName"`
	Natural     geometry.Size            `json:"natural"`
	Container   geometry.Size            `json:"container"`
	Geometry    geometry.DisplayGeometry `json:"geometry"`
	Area        geometry.Rect            `json:"area"`
	Committed   geometry.Rect            `json:"committed"`
	NaturalArea geometry.Rect            `json:"naturalArea"`
	Mode        string                   `json:"mode"`
	Handle      crop.Handle              `json:"handle,omitempty"`
}

// CommitResult is the outcome of CommitCrop. Result is nil when the encoder
// produced nothing; the session then stays open.
type CommitResult struct {
	Result   *crop.Result    `json:"result"`
	Document *DocumentDetail `json:"document"`
}

func cropState(docID string, ed *editor.Editor) *CropState {
	s, blockID := ed.Crop()
	if s == nil {
		return nil
	}
	in := s.Interaction()
	return &CropState{
		DocumentID:  docID,
		BlockID:     blockID,
		FileName:    s.FileName(),
		Natural:     s.NaturalSize(),
		Container:   s.Container(),
		Geometry:    s.Geometry(),
		Area:        in.Area(),
		Committed:   in.Committed(),
		NaturalArea: s.NaturalArea(),
		Mode:        in.Mode().String(),
		Handle:      in.Handle(),
	}
}

// withCrop runs fn on the locked editor without saving.
func (s *Service) withCrop(id string, fn func(ed *editor.Editor) error) (*CropState, error) {
	e, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	if err := fn(e.ed); err != nil {
		return nil, err
	}
	return cropState(id, e.ed), nil
}

// OpenCropFile opens a crop on blockID for uploaded image bytes.
func (s *Service) OpenCropFile(ctx context.Context, id, blockID, fileName string, data []byte) (*CropState, error) {
	return s.withCrop(id, func(ed *editor.Editor) error {
		if _, err := requireBlock(ed, blockID); err != nil {
			return err
		}
		_, err := ed.OpenImageFile(ctx, blockID, fileName, data)
		return err
	})
}

// OpenCropURL opens a crop on blockID for an addressable image. An empty
// url re-crops the block's current image.
func (s *Service) OpenCropURL(ctx context.Context, id, blockID, url string) (*CropState, error) {
	return s.withCrop(id, func(ed *editor.Editor) error {
		b, err := requireBlock(ed, blockID)
		if err != nil {
			return err
		}
		if url == "" {
			url = b.ImageURL
		}
		if url == "" {
			return fmt.Errorf("%w: block %q has no image", apperr.ErrInvalid, blockID)
		}
		_, err = ed.OpenImageURL(ctx, blockID, url)
		return err
	})
}

// CropState returns the open crop of a document.
func (s *Service) CropState(_ context.Context, id string) (*CropState, error) {
	st, err := s.withCrop(id, func(*editor.Editor) error { return nil })
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, editor.ErrNoCrop
	}
	return st, nil
}

// CropPointer feeds one pointer event to the open crop.
func (s *Service) CropPointer(_ context.Context, id string, ev PointerEvent) (*CropState, error) {
	return s.withCrop(id, func(ed *editor.Editor) error {
		sess, _ := ed.Crop()
		if sess == nil {
			return editor.ErrNoCrop
		}
		return applyPointer(sess.Interaction(), ev)
	})
}

func applyPointer(in *crop.Interaction, ev PointerEvent) error {
	p := crop.Point{X: ev.X, Y: ev.Y}
	switch ev.Type {
	case PointerDown:
		h := crop.ParseHandle(ev.Handle)
		if ev.Handle == "" {
			h = in.HandleAt(p, HandleTolerance)
		} else if h == crop.HandleNone {
			return fmt.Errorf("%w: handle %q", apperr.ErrInvalid, ev.Handle)
		}
		in.PointerDown(p, h)
	case PointerMove:
		in.PointerMove(p)
	case PointerUp:
		in.PointerUp(p)
	case PointerLeave:
		in.PointerLeave()
	default:
		return fmt.Errorf("%w: pointer event %q", apperr.ErrInvalid, ev.Type)
	}
	return nil
}

// CommitCrop rasterizes the open crop, stores it as an attachment and
// points the block at it.
func (s *Service) CommitCrop(ctx context.Context, id string) (*CommitResult, error) {
	e, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	res, err := e.ed.CommitCrop(ctx)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &CommitResult{Document: s.detail(id, e, s.stamp(id))}, nil
	}
	d, err := s.save(id, e, EventUpdated)
	if err != nil {
		return nil, err
	}
	return &CommitResult{Result: res, Document: d}, nil
}

// CancelCrop discards the open crop, if any.
func (s *Service) CancelCrop(_ context.Context, id string) error {
	_, err := s.withCrop(id, func(ed *editor.Editor) error {
		ed.CancelCrop()
		return nil
	})
	return err
}

// SetBlockImage imports the image at url onto blockID with the default
// crop, in one step.
func (s *Service) SetBlockImage(ctx context.Context, id, blockID, url string) (*CommitResult, error) {
	e, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	if _, err := requireBlock(e.ed, blockID); err != nil {
		return nil, err
	}
	if _, err := e.ed.OpenImageURL(ctx, blockID, url); err != nil {
		return nil, err
	}
	res, err := e.ed.CommitCrop(ctx)
	if err != nil {
		return nil, err
	}
	if res == nil {
		e.ed.CancelCrop()
		return nil, errors.New("docservice: crop produced no image")
	}
	d, err := s.save(id, e, EventUpdated)
	if err != nil {
		return nil, err
	}
	return &CommitResult{Result: res, Document: d}, nil
}
