package editor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/starford/wayfarer/internal/blobstore"
	"github.com/starford/wayfarer/internal/crop"
	"github.com/starford/wayfarer/internal/document"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// imageDoc returns an editor over a paragraph "p" followed by an image
// block "img".
func imageDoc(t *testing.T, opts ...Option) *Editor {
	t.Helper()
	doc, err := document.FromBlocks([]document.Block{
		{ID: "p", Type: document.Paragraph, Content: document.Text("Porto")},
		{ID: "img", Type: document.Image, ImageAlt: "bridge"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return New(doc, append([]Option{WithLogger(quiet)}, opts...)...)
}

type recordingUploader struct {
	files []crop.File
	err   error
}

func (u *recordingUploader) Upload(_ context.Context, f crop.File) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.files = append(u.files, f)
	return "/attachments/" + f.Name, nil
}

func TestOpenImageFile_RejectsNonImageBlock(t *testing.T) {
	e := imageDoc(t)
	_, err := e.OpenImageFile(context.Background(), "p", "a.png", pngBytes(t, 10, 10))
	if !errors.Is(err, ErrNotImageBlock) {
		t.Fatalf("err = %v, want ErrNotImageBlock", err)
	}
	if _, err := e.OpenImageFile(context.Background(), "missing", "a.png", nil); !errors.Is(err, ErrNotImageBlock) {
		t.Fatalf("unknown block: err = %v", err)
	}
	if e.Store().Len() != 0 {
		t.Errorf("handles leaked: %d", e.Store().Len())
	}
}

func TestCommitCrop_UploadsAndSetsImage(t *testing.T) {
	up := &recordingUploader{}
	e := imageDoc(t, WithUploader(up))
	ctx := context.Background()

	s, err := e.OpenImageFile(ctx, "img", "harbour.png", pngBytes(t, 1000, 500))
	if err != nil {
		t.Fatalf("OpenImageFile: %v", err)
	}
	if s.NaturalSize().Width != 1000 {
		t.Errorf("natural = %+v", s.NaturalSize())
	}

	res, err := e.CommitCrop(ctx)
	if err != nil {
		t.Fatalf("CommitCrop: %v", err)
	}
	if res == nil {
		t.Fatal("CommitCrop returned nil result")
	}
	if res.Natural.Width != 800 || res.Natural.Height != 300 {
		t.Errorf("natural crop = %+v, want 800x300", res.Natural)
	}
	if len(up.files) != 1 || up.files[0].Name != "harbour-cropped.jpg" || up.files[0].ContentType != "image/jpeg" {
		t.Fatalf("uploaded = %+v", up.files)
	}

	b, _ := e.Document().Block("img")
	if b.ImageURL != "/attachments/harbour-cropped.jpg" || b.ImageAlt != "bridge" {
		t.Errorf("block = %+v", b)
	}
	if res.CroppedURL != b.ImageURL {
		t.Errorf("result url = %q", res.CroppedURL)
	}
	if s, _ := e.Crop(); s != nil {
		t.Error("session still active after commit")
	}
	if e.Store().Len() != 0 {
		t.Errorf("handles leaked: %d", e.Store().Len())
	}
}

func TestCommitCrop_WithoutUploaderKeepsHandle(t *testing.T) {
	e := imageDoc(t)
	ctx := context.Background()
	if _, err := e.OpenImageFile(ctx, "img", "a.png", pngBytes(t, 400, 300)); err != nil {
		t.Fatal(err)
	}
	res, err := e.CommitCrop(ctx)
	if err != nil || res == nil {
		t.Fatalf("CommitCrop = %v, %v", res, err)
	}
	b, _ := e.Document().Block("img")
	if !blobstore.IsHandle(b.ImageURL) || b.ImageURL != res.CroppedURL {
		t.Errorf("block url = %q", b.ImageURL)
	}
	obj, ok := e.Store().Get(b.ImageURL)
	if !ok || obj.ContentType != crop.ContentType || len(obj.Data) == 0 {
		t.Errorf("cropped object = %+v, %v", obj.ContentType, ok)
	}
	if e.Store().Len() != 1 {
		t.Errorf("store holds %d handles, want only the result", e.Store().Len())
	}
}

func TestOpenImageURL_RecropKeepsBlockHandle(t *testing.T) {
	e := imageDoc(t)
	ctx := context.Background()
	if _, err := e.OpenImageFile(ctx, "img", "a.png", pngBytes(t, 400, 300)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.CommitCrop(ctx); err != nil {
		t.Fatal(err)
	}
	b, _ := e.Document().Block("img")

	if _, err := e.OpenImageURL(ctx, "img", b.ImageURL); err != nil {
		t.Fatalf("OpenImageURL: %v", err)
	}
	e.CancelCrop()
	if _, ok := e.Store().Get(b.ImageURL); !ok {
		t.Fatalf("cancel revoked the block's image %q", b.ImageURL)
	}

	if _, err := e.OpenImageURL(ctx, "img", b.ImageURL); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := e.CommitCrop(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.Store().Get(b.ImageURL); !ok {
		t.Errorf("commit revoked the borrowed source %q", b.ImageURL)
	}
}

func TestOpenImage_CropInProgress(t *testing.T) {
	e := imageDoc(t)
	ctx := context.Background()
	if _, err := e.OpenImageFile(ctx, "img", "a.png", pngBytes(t, 100, 100)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.OpenImageFile(ctx, "img", "b.png", pngBytes(t, 100, 100)); !errors.Is(err, ErrCropInProgress) {
		t.Fatalf("err = %v, want ErrCropInProgress", err)
	}
	e.CancelCrop()
	if e.Store().Len() != 0 {
		t.Errorf("handles leaked: %d", e.Store().Len())
	}
	if _, err := e.OpenImageFile(ctx, "img", "b.png", pngBytes(t, 100, 100)); err != nil {
		t.Fatalf("reopen after cancel: %v", err)
	}
}

func TestCommitCrop_UploadFailureLeavesBlock(t *testing.T) {
	e := imageDoc(t, WithUploader(&recordingUploader{err: errors.New("disk full")}))
	ctx := context.Background()
	e.SetImage("img", "/attachments/old.jpg", "bridge")

	if _, err := e.OpenImageFile(ctx, "img", "a.png", pngBytes(t, 200, 200)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.CommitCrop(ctx); err == nil {
		t.Fatal("expected upload error")
	}
	b, _ := e.Document().Block("img")
	if b.ImageURL != "/attachments/old.jpg" {
		t.Errorf("block changed on failure: %q", b.ImageURL)
	}
	if e.Store().Len() != 0 {
		t.Errorf("handles leaked: %d", e.Store().Len())
	}
}

func TestCommitCrop_EmptyEncodingIsNoop(t *testing.T) {
	silent := crop.WithEncoder(func(io.Writer, image.Image, int) error { return nil })
	e := imageDoc(t, WithCropOptions(silent))
	ctx := context.Background()

	if _, err := e.OpenImageFile(ctx, "img", "a.png", pngBytes(t, 200, 200)); err != nil {
		t.Fatal(err)
	}
	res, err := e.CommitCrop(ctx)
	if res != nil || err != nil {
		t.Fatalf("CommitCrop = %v, %v, want nil, nil", res, err)
	}
	if s, id := e.Crop(); s == nil || id != "img" {
		t.Error("session should stay open after an empty encoding")
	}
	if b, _ := e.Document().Block("img"); b.ImageURL != "" {
		t.Errorf("block changed: %q", b.ImageURL)
	}
	e.CancelCrop()
}

func TestOpenImageFile_DecodeFailure(t *testing.T) {
	e := imageDoc(t)
	_, err := e.OpenImageFile(context.Background(), "img", "a.png", []byte("not an image"))
	var loadErr *crop.ImageLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("err = %v, want ImageLoadError", err)
	}
	if s, _ := e.Crop(); s != nil {
		t.Error("session registered after load failure")
	}
	if e.Store().Len() != 0 {
		t.Errorf("handles leaked: %d", e.Store().Len())
	}
}

func TestOpenImageURL_DataURI(t *testing.T) {
	e := imageDoc(t)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 50, 40))
	s, err := e.OpenImageURL(context.Background(), "img", uri)
	if err != nil {
		t.Fatalf("OpenImageURL: %v", err)
	}
	if s.FileName() != "image" {
		t.Errorf("file name = %q", s.FileName())
	}
}

func TestDeleteBlock_CancelsCrop(t *testing.T) {
	e := imageDoc(t)
	if _, err := e.OpenImageFile(context.Background(), "img", "a.png", pngBytes(t, 80, 80)); err != nil {
		t.Fatal(err)
	}
	if !e.DeleteBlock("img") {
		t.Fatal("DeleteBlock failed")
	}
	if s, _ := e.Crop(); s != nil {
		t.Error("crop survived block deletion")
	}
	if e.Store().Len() != 0 {
		t.Errorf("handles leaked: %d", e.Store().Len())
	}
}

func TestChangeType_AwayFromImageCancelsCrop(t *testing.T) {
	e := imageDoc(t)
	if _, err := e.OpenImageFile(context.Background(), "img", "a.png", pngBytes(t, 80, 80)); err != nil {
		t.Fatal(err)
	}
	e.ChangeType("img", document.Paragraph)
	if s, _ := e.Crop(); s != nil {
		t.Error("crop survived retype")
	}
}

func TestDragThroughFacade(t *testing.T) {
	doc, _ := document.FromBlocks([]document.Block{
		{ID: "A", Type: document.Paragraph},
		{ID: "B", Type: document.Paragraph},
		{ID: "C", Type: document.Paragraph},
		{ID: "D", Type: document.Paragraph},
	})
	e := New(doc, WithLogger(quiet))
	e.DragStart(0)
	e.DragOver(1)
	e.DragOver(2)
	e.DragEnd()

	var ids []string
	for _, b := range e.Blocks() {
		ids = append(ids, b.ID)
	}
	if got := strings.Join(ids, ""); got != "BCAD" {
		t.Errorf("order = %s, want BCAD", got)
	}
	if active, idx := e.Dragging(); active || idx != -1 {
		t.Errorf("Dragging = %v, %d", active, idx)
	}
}

func TestLoad(t *testing.T) {
	e := imageDoc(t)
	if _, err := e.OpenImageFile(context.Background(), "img", "a.png", pngBytes(t, 80, 80)); err != nil {
		t.Fatal(err)
	}
	if err := e.Load(nil); !errors.Is(err, document.ErrEmpty) {
		t.Fatalf("Load(nil) err = %v", err)
	}
	if s, _ := e.Crop(); s == nil {
		t.Error("failed Load should not touch the active crop")
	}
	if err := e.Load([]document.Block{{ID: "z", Type: document.Quote}}); err != nil {
		t.Fatal(err)
	}
	if e.Document().Len() != 1 || e.Blocks()[0].ID != "z" {
		t.Errorf("blocks = %+v", e.Blocks())
	}
	if s, _ := e.Crop(); s != nil {
		t.Error("Load should cancel the active crop")
	}
}

func TestFileNameOf(t *testing.T) {
	cases := map[string]string{
		"/attachments/porto.jpg":              "porto.jpg",
		"https://cdn.example.com/a/b.png?w=1": "b.png",
		"blob:1234":                           "image",
		"data:image/png;base64,AAAA":          "image",
	}
	for in, want := range cases {
		if got := fileNameOf(in); got != want {
			t.Errorf("fileNameOf(%q) = %q, want %q", in, got, want)
		}
	}
}
