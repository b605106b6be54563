// Package crop implements the inline image-crop engine: a pointer-driven
// interaction over a display-space rectangle and a session that loads an
// image, lets the rectangle be adjusted, and rasterizes the natural-space
// crop into a JPEG.
package crop

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/starford/wayfarer/internal/blobstore"
	"github.com/starford/wayfarer/internal/geometry"
)

// Output format of every committed crop.
const (
	ContentType    = "image/jpeg"
	DefaultQuality = 90
	fileExt        = ".jpg"

	// defaultMaxPixels bounds the off-screen canvas, roughly what browsers
	// allow for a single canvas.
	defaultMaxPixels = 16384 * 16384

	// DefaultMaxSourcePixels bounds decoded sources. The header is checked
	// before any pixel data is read.
	DefaultMaxSourcePixels = 40_000_000
)

// SurfaceFunc acquires an off-screen canvas of the given size.
type SurfaceFunc func(width, height int) (xdraw.Image, error)

// EncodeFunc writes img to w in the session's output format.
type EncodeFunc func(w io.Writer, img image.Image, quality int) error

// Options configure a Session.
type Options struct {
	MinSize         float64
	Quality         int
	MaxWidth        int
	MaxSourcePixels int
	// OwnsSource marks the source handle as created for this session, so
	// commit and cancel revoke it. Borrowed handles are never revoked.
	OwnsSource bool
	Surface    SurfaceFunc
	Encode     EncodeFunc
	Store      *blobstore.Store
	Logger     *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithMinSize sets the minimum crop width and height in display pixels.
func WithMinSize(px float64) Option { return func(o *Options) { o.MinSize = px } }

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) Option { return func(o *Options) { o.Quality = q } }

// WithMaxWidth downsamples committed crops wider than px. Zero disables it.
func WithMaxWidth(px int) Option { return func(o *Options) { o.MaxWidth = px } }

// WithMaxSourcePixels rejects sources whose width times height exceeds n.
func WithMaxSourcePixels(n int) Option { return func(o *Options) { o.MaxSourcePixels = n } }

// WithOwnedSource hands the source handle to the session; it is revoked
// when the session commits or is cancelled.
func WithOwnedSource() Option { return func(o *Options) { o.OwnsSource = true } }

// WithSurface replaces the canvas allocator.
func WithSurface(fn SurfaceFunc) Option { return func(o *Options) { o.Surface = fn } }

// WithEncoder replaces the output encoder.
func WithEncoder(fn EncodeFunc) Option { return func(o *Options) { o.Encode = fn } }

// WithStore sets the registry that issues result handles and owns
// temporary source handles.
func WithStore(s *blobstore.Store) Option { return func(o *Options) { o.Store = s } }

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option { return func(o *Options) { o.Logger = l } }

// File is the encoded crop handed to the upload collaborator.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// Result is the outcome of a successful commit.
type Result struct {
	CroppedURL  string        `json:"croppedUrl"`
	CroppedFile File          `json:"croppedFile"`
	Natural     geometry.Rect `json:"natural"`
	Display     geometry.Rect `json:"display"`
}

// Session is one crop from image load to commit or cancel. It is not safe
// for concurrent use.
type Session struct {
	opts      Options
	source    string
	fileName  string
	img       image.Image
	natural   geometry.Size
	container geometry.Size
	geom      geometry.DisplayGeometry
	inter     *Interaction
	closed    bool
}

// Open loads sourceURL through loader, decodes it and prepares the default
// crop area for a container of the given display size.
func Open(ctx context.Context, loader Loader, sourceURL, fileName string, container geometry.Size, opts ...Option) (*Session, error) {
	o := Options{
		MinSize:         geometry.MinCropSize,
		Quality:         DefaultQuality,
		MaxSourcePixels: DefaultMaxSourcePixels,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Store == nil {
		o.Store = blobstore.New()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Surface == nil {
		o.Surface = rgbaSurface(defaultMaxPixels)
	}
	if o.Encode == nil {
		o.Encode = encodeJPEG
	}
	if container.Empty() {
		return nil, fmt.Errorf("crop: container size must be positive, got %vx%v", container.Width, container.Height)
	}

	img, err := decode(ctx, loader, sourceURL, o.MaxSourcePixels)
	if err != nil {
		return nil, &ImageLoadError{Source: sourceURL, Err: err}
	}

	b := img.Bounds()
	natural := geometry.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	if natural.Empty() {
		return nil, &ImageLoadError{Source: sourceURL, Err: fmt.Errorf("image has no pixels")}
	}

	geom := geometry.Contain(natural, container)
	initial := geometry.DefaultCrop(geom, container, o.MinSize)

	o.Logger.Debug("crop: session opened",
		slog.String("file", fileName),
		slog.Int("natural_width", b.Dx()),
		slog.Int("natural_height", b.Dy()))

	return &Session{
		opts:      o,
		source:    sourceURL,
		fileName:  fileName,
		img:       img,
		natural:   natural,
		container: container,
		geom:      geom,
		inter:     NewInteraction(container, initial, o.MinSize),
	}, nil
}

func decode(ctx context.Context, loader Loader, sourceURL string, maxPixels int) (image.Image, error) {
	rc, err := loader.Load(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Read only the header first; the bytes it consumed are replayed for
	// the full decode.
	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(rc, &head))
	if err != nil {
		return nil, err
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d", ErrSourceTooLarge, cfg.Width, cfg.Height)
	}
	return imaging.Decode(io.MultiReader(&head, rc), imaging.AutoOrientation(true))
}

// Source returns the URL the session was opened with.
func (s *Session) Source() string { return s.source }

// FileName returns the name of the source file.
func (s *Session) FileName() string { return s.fileName }

// NaturalSize returns the decoded image dimensions.
func (s *Session) NaturalSize() geometry.Size { return s.natural }

// Container returns the display container size.
func (s *Session) Container() geometry.Size { return s.container }

// Geometry returns the object-contain layout of the image.
func (s *Session) Geometry() geometry.DisplayGeometry { return s.geom }

// Interaction returns the pointer state machine for this session.
func (s *Session) Interaction() *Interaction { return s.inter }

// Area returns the current display-space crop rectangle.
func (s *Session) Area() geometry.Rect { return s.inter.Area() }

// NaturalArea maps the committed crop rectangle into natural pixels.
func (s *Session) NaturalArea() geometry.Rect {
	return geometry.MapCropToNatural(s.inter.Committed(), s.geom)
}

// Store returns the handle registry used by the session.
func (s *Session) Store() *blobstore.Store { return s.opts.Store }

// Closed reports whether the session has been committed or cancelled.
func (s *Session) Closed() bool { return s.closed }

// Commit rasterizes the natural-space crop and encodes it. When the crop
// covers no image pixels or the encoder produces no bytes, Commit returns
// (nil, nil) and the session stays open.
func (s *Session) Commit(ctx context.Context) (*Result, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	display := s.inter.Committed()
	natural := geometry.MapCropToNatural(display, s.geom)
	bounds := s.img.Bounds()
	src := natural.Image().Add(bounds.Min).Intersect(bounds)
	if src.Empty() {
		// The crop lies in a letterbox band and covers no image pixels.
		s.opts.Logger.Warn("crop: crop area covers no image pixels, dropping result",
			slog.String("file", s.fileName))
		return nil, nil
	}

	canvas, err := s.opts.Surface(src.Dx(), src.Dy())
	if err != nil {
		s.close()
		return nil, &RasterizationError{Width: src.Dx(), Height: src.Dy(), Err: err}
	}
	xdraw.Copy(canvas, image.Point{}, s.img, src, xdraw.Src, nil)

	var out image.Image = canvas
	if s.opts.MaxWidth > 0 && src.Dx() > s.opts.MaxWidth {
		out, err = s.downsample(canvas)
		if err != nil {
			s.close()
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := s.opts.Encode(&buf, out, s.opts.Quality); err != nil {
		return nil, fmt.Errorf("crop: encode: %w", err)
	}
	if buf.Len() == 0 {
		s.opts.Logger.Warn("crop: encoder produced no data, dropping result",
			slog.String("file", s.fileName))
		return nil, nil
	}

	data := buf.Bytes()
	res := &Result{
		CroppedURL: s.opts.Store.Create(data, ContentType),
		CroppedFile: File{
			Name:        croppedName(s.fileName),
			ContentType: ContentType,
			Data:        data,
		},
		Natural: natural,
		Display: display,
	}
	s.close()

	s.opts.Logger.Debug("crop: committed",
		slog.String("file", res.CroppedFile.Name),
		slog.Int("bytes", len(data)))
	return res, nil
}

func (s *Session) downsample(src xdraw.Image) (xdraw.Image, error) {
	b := src.Bounds()
	w := s.opts.MaxWidth
	h := b.Dy() * w / b.Dx()
	if h < 1 {
		h = 1
	}
	dst, err := s.opts.Surface(w, h)
	if err != nil {
		return nil, &RasterizationError{Width: w, Height: h, Err: err}
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst, nil
}

// Cancel discards the session. An owned source handle is released.
func (s *Session) Cancel() {
	if s.closed {
		return
	}
	s.close()
	s.opts.Logger.Debug("crop: cancelled", slog.String("file", s.fileName))
}

func (s *Session) close() {
	s.closed = true
	s.inter.PointerLeave()
	if s.opts.OwnsSource && blobstore.IsHandle(s.source) {
		s.opts.Store.Revoke(s.source)
	}
}

func rgbaSurface(maxPixels int) SurfaceFunc {
	return func(width, height int) (xdraw.Image, error) {
		if width <= 0 || height <= 0 {
			return nil, errEmptySurface
		}
		if width*height > maxPixels {
			return nil, errSurfaceTooLarge
		}
		return image.NewRGBA(image.Rect(0, 0, width, height)), nil
	}
}

func encodeJPEG(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

func croppedName(fileName string) string {
	base := filepath.Base(fileName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "image"
	}
	return stem + "-cropped" + fileExt
}
