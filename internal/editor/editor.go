// Package editor composes the block document, the drag-reorder controller
// and the image-crop engine into the surface a view layer drives.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/wayfarer/internal/blobstore"
	"github.com/starford/wayfarer/internal/crop"
	"github.com/starford/wayfarer/internal/document"
	"github.com/starford/wayfarer/internal/dragdrop"
	"github.com/starford/wayfarer/internal/geometry"
)

var (
	// ErrNotImageBlock is returned when a crop targets a non-image block.
	ErrNotImageBlock = errors.New("editor: block is not an image block")
	// ErrCropInProgress is returned when a crop is opened while another one
	// is still active.
	ErrCropInProgress = errors.New("editor: crop already in progress")
	// ErrNoCrop is returned by CommitCrop when no crop is active.
	ErrNoCrop = errors.New("editor: no active crop")
)

// Uploader persists a committed crop and returns the URL to store on the
// block.
type Uploader interface {
	Upload(ctx context.Context, file crop.File) (string, error)
}

// UploaderFunc adapts a function to Uploader.
type UploaderFunc func(ctx context.Context, file crop.File) (string, error)

// Upload calls f.
func (f UploaderFunc) Upload(ctx context.Context, file crop.File) (string, error) {
	return f(ctx, file)
}

// Config holds crop defaults for every session the editor opens.
type Config struct {
	Container geometry.Size
	MinSize   float64
	Quality   int
	MaxWidth  int
}

// DefaultConfig mirrors the inline editor's image container.
func DefaultConfig() Config {
	return Config{
		Container: geometry.Size{Width: 400, Height: 300},
		MinSize:   geometry.MinCropSize,
		Quality:   crop.DefaultQuality,
	}
}

// Editor is the editing surface over one document. It is not safe for
// concurrent use.
type Editor struct {
	doc      *document.Document
	drag     *dragdrop.Controller
	store    *blobstore.Store
	loader   crop.Loader
	uploader Uploader
	cfg      Config
	logger   *slog.Logger
	cropOpts []crop.Option

	session *crop.Session
	cropFor string
}

// Option configures an Editor.
type Option func(*Editor)

// WithStore shares a blob handle registry with other editors.
func WithStore(s *blobstore.Store) Option { return func(e *Editor) { e.store = s } }

// WithLoader sets the image source used by OpenImageURL. The default only
// understands blob: and data: URLs.
func WithLoader(l crop.Loader) Option { return func(e *Editor) { e.loader = l } }

// WithUploader sets the sink for committed crops. Without one the block
// keeps the temporary blob handle.
func WithUploader(u Uploader) Option { return func(e *Editor) { e.uploader = u } }

// WithConfig replaces the crop defaults.
func WithConfig(c Config) Option { return func(e *Editor) { e.cfg = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(e *Editor) { e.logger = l } }

// WithCropOptions appends options passed to every crop session.
func WithCropOptions(opts ...crop.Option) Option {
	return func(e *Editor) { e.cropOpts = append(e.cropOpts, opts...) }
}

// New returns an editor over doc. A nil doc starts a fresh document.
func New(doc *document.Document, opts ...Option) *Editor {
	e := &Editor{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	if doc == nil {
		doc = document.New()
	}
	if e.store == nil {
		e.store = blobstore.New()
	}
	if e.loader == nil {
		e.loader = crop.NewBlobLoader(e.store)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.cfg.MinSize <= 0 {
		e.cfg.MinSize = geometry.MinCropSize
	}
	if e.cfg.Quality <= 0 {
		e.cfg.Quality = crop.DefaultQuality
	}
	e.doc = doc
	e.drag = dragdrop.New(doc)
	return e
}

// Document returns the underlying document.
func (e *Editor) Document() *document.Document { return e.doc }

// Store returns the blob handle registry.
func (e *Editor) Store() *blobstore.Store { return e.store }

// Blocks returns the ordered block array for persistence.
func (e *Editor) Blocks() []document.Block { return e.doc.Blocks() }

// Load replaces the document with blocks. Any active crop or drag is
// abandoned.
func (e *Editor) Load(blocks []document.Block) error {
	doc, err := document.FromBlocks(blocks)
	if err != nil {
		return err
	}
	e.CancelCrop()
	e.doc = doc
	e.drag = dragdrop.New(doc)
	return nil
}

// InsertBlockAfter inserts an empty block after anchorID.
func (e *Editor) InsertBlockAfter(anchorID string, t document.BlockType) document.Block {
	return e.doc.InsertBlockAfter(anchorID, t)
}

// UpdateContent replaces a block's content.
func (e *Editor) UpdateContent(id string, c document.Content) bool {
	return e.doc.UpdateContent(id, c)
}

// ChangeType retypes a block. Leaving the image type cancels a crop open on
// that block.
func (e *Editor) ChangeType(id string, t document.BlockType) bool {
	if !e.doc.ChangeType(id, t) {
		return false
	}
	if t != document.Image && e.cropFor == id {
		e.CancelCrop()
	}
	return true
}

// SetAlignment sets a block's alignment.
func (e *Editor) SetAlignment(id string, a document.Alignment) bool {
	return e.doc.SetAlignment(id, a)
}

// SetImage sets an image block's URL and alt text directly.
func (e *Editor) SetImage(id, url, alt string) bool {
	return e.doc.SetImage(id, url, alt)
}

// DeleteBlock removes a block, cancelling a crop open on it.
func (e *Editor) DeleteBlock(id string) bool {
	if !e.doc.DeleteBlock(id) {
		return false
	}
	if e.cropFor == id {
		e.CancelCrop()
	}
	return true
}

// Reorder moves the block at from to position to.
func (e *Editor) Reorder(from, to int) bool { return e.doc.Reorder(from, to) }

// DragStart begins a drag of the block at index.
func (e *Editor) DragStart(index int) bool { return e.drag.Start(index) }

// DragOver handles the dragged block hovering over hoverIndex.
func (e *Editor) DragOver(hoverIndex int) bool { return e.drag.Over(hoverIndex) }

// DragEnd finishes the drag.
func (e *Editor) DragEnd() { e.drag.End() }

// Dragging reports whether a drag is in progress and the dragged index.
func (e *Editor) Dragging() (bool, int) { return e.drag.Active(), e.drag.Index() }

// OpenImageFile registers data as a temporary handle and opens a crop
// session for it on blockID.
func (e *Editor) OpenImageFile(ctx context.Context, blockID, fileName string, data []byte) (*crop.Session, error) {
	if err := e.checkCropTarget(blockID); err != nil {
		return nil, err
	}
	handle := e.store.Create(data, "")
	s, err := e.open(ctx, blockID, handle, fileName, crop.WithOwnedSource())
	if err != nil {
		e.store.Revoke(handle)
		return nil, err
	}
	return s, nil
}

// OpenImageURL opens a crop session for an image that is already
// addressable, for example the block's current image. The session only
// borrows url: a blob handle stays registered after commit or cancel.
func (e *Editor) OpenImageURL(ctx context.Context, blockID, url string) (*crop.Session, error) {
	if err := e.checkCropTarget(blockID); err != nil {
		return nil, err
	}
	return e.open(ctx, blockID, url, fileNameOf(url))
}

func (e *Editor) checkCropTarget(blockID string) error {
	if e.session != nil {
		return ErrCropInProgress
	}
	b, ok := e.doc.Block(blockID)
	if !ok || !b.IsImage() {
		return fmt.Errorf("%w: %s", ErrNotImageBlock, blockID)
	}
	return nil
}

func (e *Editor) open(ctx context.Context, blockID, url, fileName string, extra ...crop.Option) (*crop.Session, error) {
	opts := append([]crop.Option{
		crop.WithStore(e.store),
		crop.WithLogger(e.logger),
		crop.WithMinSize(e.cfg.MinSize),
		crop.WithQuality(e.cfg.Quality),
		crop.WithMaxWidth(e.cfg.MaxWidth),
	}, e.cropOpts...)
	opts = append(opts, extra...)

	s, err := crop.Open(ctx, e.loader, url, fileName, e.cfg.Container, opts...)
	if err != nil {
		e.logger.Warn("editor: open crop failed",
			slog.String("block", blockID),
			slog.String("error", err.Error()))
		return nil, err
	}
	e.session = s
	e.cropFor = blockID
	return s, nil
}

// Crop returns the active session and the block it belongs to.
func (e *Editor) Crop() (*crop.Session, string) { return e.session, e.cropFor }

// CommitCrop rasterizes the active crop, hands the file to the uploader and
// stores the resulting URL on the block. It returns (nil, nil) when the
// encoder produced nothing; the session then stays open. On any error the
// block is left untouched.
func (e *Editor) CommitCrop(ctx context.Context) (*crop.Result, error) {
	if e.session == nil {
		return nil, ErrNoCrop
	}
	s, blockID := e.session, e.cropFor

	res, err := s.Commit(ctx)
	if s.Closed() {
		e.session, e.cropFor = nil, ""
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}

	url := res.CroppedURL
	if e.uploader != nil {
		uploaded, err := e.uploader.Upload(ctx, res.CroppedFile)
		if err != nil {
			e.store.Revoke(res.CroppedURL)
			return nil, fmt.Errorf("editor: upload crop: %w", err)
		}
		e.store.Revoke(res.CroppedURL)
		url = uploaded
		res.CroppedURL = uploaded
	}

	b, ok := e.doc.Block(blockID)
	if !ok || !e.doc.SetImage(blockID, url, b.ImageAlt) {
		// Block vanished or was retyped between open and commit.
		e.logger.Warn("editor: crop target gone", slog.String("block", blockID))
		return res, nil
	}
	e.logger.Info("editor: crop committed",
		slog.String("block", blockID),
		slog.String("url", url))
	return res, nil
}

// CancelCrop discards the active crop, if any.
func (e *Editor) CancelCrop() {
	if e.session == nil {
		return
	}
	e.session.Cancel()
	e.session, e.cropFor = nil, ""
}

func fileNameOf(url string) string {
	if blobstore.IsHandle(url) || strings.HasPrefix(url, "data:") {
		return "image"
	}
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return path.Base(url)
}
