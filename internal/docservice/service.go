// Package docservice coordinates stored documents, the index and one live
// editor per open document.
package docservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/wayfarer/internal/apperr"
	"github.com/starford/wayfarer/internal/assets"
	"github.com/starford/wayfarer/internal/blobstore"
	"github.com/starford/wayfarer/internal/checksum"
	"github.com/starford/wayfarer/internal/document"
	"github.com/starford/wayfarer/internal/editor"
	"github.com/starford/wayfarer/internal/index"
	"github.com/starford/wayfarer/internal/models"
	"github.com/starford/wayfarer/internal/storage"
)

// Publisher receives document change notifications.
type Publisher interface {
	PublishDocumentEvent(kind, id string)
}

// Event kinds passed to Publisher.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// DocumentDetail is the full representation of a document.
type DocumentDetail struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Checksum  string           `json:"checksum"`
	Blocks    []document.Block `json:"blocks"`
	UpdatedAt time.Time        `json:"updated_at"`
	Crop      *CropState       `json:"crop,omitempty"`
	DragIndex *int             `json:"drag_index,omitempty"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Checksum   string    `json:"checksum"`
	BlockCount int       `json:"block_count"`
	ImageCount int       `json:"image_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// entry is one open document. mu serializes every editor call.
type entry struct {
	mu       sync.Mutex
	ed       *editor.Editor
	title    string
	checksum string
}

// Service coordinates storage, index and editors.
type Service struct {
	store  storage.Provider
	db     index.DocumentIndex
	lib    *assets.Library
	blobs  *blobstore.Store
	events Publisher
	cfg    editor.Config
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the change event sink.
func WithPublisher(p Publisher) Option { return func(s *Service) { s.events = p } }

// WithEditorConfig sets the crop defaults of every editor.
func WithEditorConfig(c editor.Config) Option { return func(s *Service) { s.cfg = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithClock replaces time.Now for UpdatedAt stamps.
func WithClock(fn func() time.Time) Option { return func(s *Service) { s.now = fn } }

// NewService creates a new document service.
func NewService(store storage.Provider, db index.DocumentIndex, lib *assets.Library, opts ...Option) *Service {
	s := &Service{
		store:   store,
		db:      db,
		lib:     lib,
		blobs:   blobstore.New(),
		cfg:     editor.DefaultConfig(),
		logger:  slog.Default(),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.lib == nil {
		s.lib = assets.NewLibrary(store, nil, 0, s.logger)
	}
	return s
}

// Blobs returns the temporary handle registry shared by all editors.
func (s *Service) Blobs() *blobstore.Store { return s.blobs }

// Library returns the attachment library.
func (s *Service) Library() *assets.Library { return s.lib }

// acquire returns the locked entry for id, reloaded from storage when the
// file changed underneath it. The caller must unlock e.mu.
func (s *Service) acquire(id string) (*entry, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: document id %q", apperr.ErrInvalid, id)
	}
	s.mu.Lock()
	e := s.entries[id]
	if e == nil {
		e = &entry{}
		s.entries[id] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	if err := s.refresh(id, e); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	return e, nil
}

func (s *Service) refresh(id string, e *entry) error {
	data, err := s.store.Read(storage.DocumentPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.forget(id, e)
			return apperr.ErrNotFound
		}
		return err
	}
	cs := checksum.Sum(data)
	if e.ed != nil && cs == e.checksum {
		return nil
	}

	var f models.DocumentFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("docservice: decode %s: %w", id, err)
	}
	if e.ed == nil {
		doc, err := document.FromBlocks(f.Blocks)
		if err != nil {
			return fmt.Errorf("docservice: load %s: %w", id, err)
		}
		e.ed = s.newEditor(doc)
	} else if err := e.ed.Load(f.Blocks); err != nil {
		return fmt.Errorf("docservice: reload %s: %w", id, err)
	}
	e.title = f.Title
	e.checksum = cs
	return nil
}

func (s *Service) newEditor(doc *document.Document) *editor.Editor {
	return editor.New(doc,
		editor.WithStore(s.blobs),
		editor.WithLoader(s.lib.Loader(s.blobs)),
		editor.WithUploader(s.lib),
		editor.WithConfig(s.cfg),
		editor.WithLogger(s.logger),
	)
}

// forget drops a deleted document's editor. e.mu must be held.
func (s *Service) forget(id string, e *entry) {
	if e.ed != nil {
		e.ed.CancelCrop()
		e.ed = nil
	}
	e.checksum = ""
	s.mu.Lock()
	if s.entries[id] == e {
		delete(s.entries, id)
	}
	s.mu.Unlock()
}

// save writes the editor's blocks, re-indexes and publishes kind.
func (s *Service) save(id string, e *entry, kind string) (*DocumentDetail, error) {
	f := models.DocumentFile{
		ID:        id,
		Title:     e.title,
		Blocks:    e.ed.Blocks(),
		UpdatedAt: s.now().UTC(),
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("docservice: encode %s: %w", id, err)
	}
	if err := s.store.Write(storage.DocumentPath(id), data); err != nil {
		// The edit only reached memory; the next acquire reloads from disk.
		e.checksum = ""
		s.logger.Warn("docservice: save failed", slog.String("id", id), slog.Any("error", err))
		return nil, err
	}
	e.checksum = checksum.Sum(data)
	if err := index.IndexFile(s.db, id, data); err != nil {
		return nil, err
	}
	s.publish(kind, id)
	return s.detail(id, e, f.UpdatedAt), nil
}

func (s *Service) publish(kind, id string) {
	if s.events != nil {
		s.events.PublishDocumentEvent(kind, id)
	}
}

func (s *Service) detail(id string, e *entry, updated time.Time) *DocumentDetail {
	d := &DocumentDetail{
		ID:        id,
		Title:     e.title,
		Checksum:  e.checksum,
		Blocks:    e.ed.Blocks(),
		UpdatedAt: updated,
		Crop:      cropState(id, e.ed),
	}
	if active, idx := e.ed.Dragging(); active {
		d.DragIndex = &idx
	}
	return d
}

// stamp returns the persisted UpdatedAt of a document.
func (s *Service) stamp(id string) time.Time {
	row, err := s.db.GetDocument(id)
	if err != nil {
		return time.Time{}
	}
	return row.UpdatedAt
}

// Get returns a document with any live crop or drag state.
func (s *Service) Get(_ context.Context, id string) (*DocumentDetail, error) {
	e, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	return s.detail(id, e, s.stamp(id)), nil
}

// Create writes a new document. An empty id gets a UUID; nil blocks start a
// single empty paragraph.
func (s *Service) Create(_ context.Context, id, title string, blocks []document.Block) (*DocumentDetail, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if !validID(id) {
		return nil, fmt.Errorf("%w: document id %q", apperr.ErrInvalid, id)
	}
	if s.store.Exists(storage.DocumentPath(id)) {
		return nil, apperr.ErrAlreadyExists
	}

	doc := document.New()
	if len(blocks) > 0 {
		var err error
		if doc, err = document.FromBlocks(blocks); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
		}
	}

	s.mu.Lock()
	e := s.entries[id]
	if e == nil {
		e = &entry{}
		s.entries[id] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.ed = s.newEditor(doc)
	e.title = strings.TrimSpace(title)
	return s.save(id, e, EventCreated)
}

// Update replaces the title and blocks with optimistic concurrency. An
// active crop or drag is abandoned.
func (s *Service) Update(_ context.Context, id, ifMatch, title string, blocks []document.Block) (*DocumentDetail, error) {
	e, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	if ifMatch != "" && ifMatch != e.checksum {
		return nil, apperr.ErrConflict
	}
	if err := e.ed.Load(blocks); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	e.title = strings.TrimSpace(title)
	return s.save(id, e, EventUpdated)
}

// Delete removes a document from storage and index.
func (s *Service) Delete(_ context.Context, id string) error {
	e, err := s.acquire(id)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	if err := s.store.Delete(storage.DocumentPath(id)); err != nil {
		return err
	}
	s.forget(id, e)
	if err := s.db.DeleteDocument(id); err != nil {
		return err
	}
	s.publish(EventDeleted, id)
	return nil
}

// List returns paginated documents from the index.
func (s *Service) List(_ context.Context, limit, offset int, sort string) ([]DocumentListItem, int, error) {
	rows, total, err := s.db.ListDocuments(limit, offset, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]DocumentListItem, len(rows))
	for i, r := range rows {
		items[i] = DocumentListItem{
			ID:         r.ID,
			Title:      r.Title,
			Checksum:   r.Checksum,
			BlockCount: r.BlockCount,
			ImageCount: r.ImageCount,
			UpdatedAt:  r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// ImageUsers returns the image blocks that display url.
func (s *Service) ImageUsers(_ context.Context, url string) ([]models.ImageRef, error) {
	refs, err := s.db.ImageUsers(url)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(refs), nil
}

// validID accepts ids that map onto a single top-level document file.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.HasPrefix(id, ".") &&
		storage.DocumentID(storage.DocumentPath(id)) == id
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
