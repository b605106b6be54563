package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrEmpty is returned when loading a document with no blocks.
	ErrEmpty = errors.New("document: at least one block is required")
	// ErrDuplicateID is returned when two blocks share an ID.
	ErrDuplicateID = errors.New("document: duplicate block id")
)

// Document is an ordered sequence of blocks. It always holds at least one
// block and block IDs are unique. Mutators never fail: unknown IDs and
// invalid values are ignored and reported through a false return.
//
// A Document is not safe for concurrent use.
type Document struct {
	blocks []Block
	focus  string
	newID  func() string
}

// Option configures a Document.
type Option func(*Document)

// WithIDGenerator replaces the UUID generator for new blocks.
func WithIDGenerator(fn func() string) Option {
	return func(d *Document) { d.newID = fn }
}

// New returns a document holding one empty paragraph.
func New(opts ...Option) *Document {
	d := newDocument(opts)
	d.blocks = []Block{d.emptyBlock(Paragraph)}
	d.focus = d.blocks[0].ID
	return d
}

// FromBlocks builds a document from an existing block array, validating it.
func FromBlocks(blocks []Block, opts ...Option) (*Document, error) {
	d := newDocument(opts)
	if err := d.replace(blocks); err != nil {
		return nil, err
	}
	return d, nil
}

func newDocument(opts []Option) *Document {
	d := &Document{newID: uuid.NewString}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Document) replace(blocks []Block) error {
	if len(blocks) == 0 {
		return ErrEmpty
	}
	seen := make(map[string]struct{}, len(blocks))
	out := make([]Block, 0, len(blocks))
	for i, b := range blocks {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("document: block %d: %w", i, err)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, b.ID)
		}
		seen[b.ID] = struct{}{}
		out = append(out, b.clone().normalize())
	}
	d.blocks = out
	d.focus = out[0].ID
	return nil
}

func (d *Document) emptyBlock(t BlockType) Block {
	return Block{
		ID:        d.newID(),
		Type:      t,
		Content:   Content{},
		Alignment: AlignLeft,
	}
}

// Len returns the number of blocks.
func (d *Document) Len() int { return len(d.blocks) }

// Blocks returns a deep copy of the blocks in document order. This is the
// array handed to persistence collaborators.
func (d *Document) Blocks() []Block {
	out := make([]Block, len(d.blocks))
	for i, b := range d.blocks {
		out[i] = b.clone()
	}
	return out
}

// Block returns a copy of the block with the given ID.
func (d *Document) Block(id string) (Block, bool) {
	i := d.IndexOf(id)
	if i < 0 {
		return Block{}, false
	}
	return d.blocks[i].clone(), true
}

// IndexOf returns the position of the block, or -1.
func (d *Document) IndexOf(id string) int {
	for i := range d.blocks {
		if d.blocks[i].ID == id {
			return i
		}
	}
	return -1
}

// Focus returns the ID of the block that should receive focus.
func (d *Document) Focus() string { return d.focus }

// InsertBlockAfter creates an empty block of type t right after anchorID and
// focuses it. An empty anchorID inserts at the start; an unknown anchor
// appends at the end. An invalid type falls back to paragraph.
func (d *Document) InsertBlockAfter(anchorID string, t BlockType) Block {
	if !t.Valid() {
		t = Paragraph
	}
	b := d.emptyBlock(t)

	pos := len(d.blocks)
	if anchorID == "" {
		pos = 0
	} else if i := d.IndexOf(anchorID); i >= 0 {
		pos = i + 1
	}

	d.blocks = append(d.blocks, Block{})
	copy(d.blocks[pos+1:], d.blocks[pos:])
	d.blocks[pos] = b
	d.focus = b.ID
	return b.clone()
}

// UpdateContent replaces the content of a block.
func (d *Document) UpdateContent(id string, content Content) bool {
	i := d.IndexOf(id)
	if i < 0 {
		return false
	}
	d.blocks[i].Content = content.Clone()
	return true
}

// ChangeType retypes a block in place. Content is preserved; image fields
// are cleared when leaving the image type.
func (d *Document) ChangeType(id string, t BlockType) bool {
	i := d.IndexOf(id)
	if i < 0 || !t.Valid() {
		return false
	}
	d.blocks[i].Type = t
	d.blocks[i] = d.blocks[i].normalize()
	return true
}

// SetAlignment sets the layout alignment of a block.
func (d *Document) SetAlignment(id string, a Alignment) bool {
	i := d.IndexOf(id)
	if i < 0 || !a.Valid() {
		return false
	}
	d.blocks[i].Alignment = a
	return true
}

// SetImage sets the source and alt text of an image block. A source that
// fails ValidateImageSource leaves the block unchanged.
func (d *Document) SetImage(id, url, alt string) bool {
	i := d.IndexOf(id)
	if i < 0 || d.blocks[i].Type != Image || ValidateImageSource(url) != nil {
		return false
	}
	d.blocks[i].ImageURL = url
	d.blocks[i].ImageAlt = alt
	return true
}

// DeleteBlock removes a block unless it is the last one left.
func (d *Document) DeleteBlock(id string) bool {
	i := d.IndexOf(id)
	if i < 0 || len(d.blocks) == 1 {
		return false
	}
	d.blocks = append(d.blocks[:i], d.blocks[i+1:]...)
	if d.focus == id {
		d.focus = d.blocks[max(i-1, 0)].ID
	}
	return true
}

// Reorder moves the block at from to position to, shifting the blocks in
// between. Equal or out-of-range indices leave the document unchanged.
func (d *Document) Reorder(from, to int) bool {
	n := len(d.blocks)
	if from == to || from < 0 || to < 0 || from >= n || to >= n {
		return false
	}
	b := d.blocks[from]
	if from < to {
		copy(d.blocks[from:to], d.blocks[from+1:to+1])
	} else {
		copy(d.blocks[to+1:from+1], d.blocks[to:from])
	}
	d.blocks[to] = b
	return true
}

// PlainText joins the text of every block, one block per line.
func (d *Document) PlainText() string {
	parts := make([]string, 0, len(d.blocks))
	for _, b := range d.blocks {
		if t := b.Content.PlainText(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// MarshalJSON encodes the document as its ordered block array.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.blocks)
}

// UnmarshalJSON replaces the document with a decoded block array.
func (d *Document) UnmarshalJSON(data []byte) error {
	var blocks []Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("document: decode: %w", err)
	}
	if d.newID == nil {
		d.newID = uuid.NewString
	}
	return d.replace(blocks)
}
