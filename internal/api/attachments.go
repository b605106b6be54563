package api

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/wayfarer/internal/assets"
)

const maxUploadBytes = 50 << 20 // 50 MB

// AttachmentHandler serves and accepts attachment files.
type AttachmentHandler struct {
	lib *assets.Library
}

// NewAttachmentHandler creates a handler over the attachment library.
func NewAttachmentHandler(lib *assets.Library) *AttachmentHandler {
	return &AttachmentHandler{lib: lib}
}

// ServeFile handles GET /attachments/{filename}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	name, ok := assets.NameFromURL(assets.URLPath(filename))
	if !ok {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}
	data, err := h.lib.Read(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		slog.Error("read attachment failed", slog.String("name", name), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
}

// Upload handles POST /api/attachments (multipart/form-data, field "file").
//
//	@Summary		Upload an image attachment
//	@Tags			attachments
//	@Accept			mpfd
//	@Produce		json
//	@Success		201	{object}	AttachmentUploadResponse
//	@Failure		400	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/attachments [post]
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	u, err := h.lib.Save(header.Filename, data)
	if err != nil {
		writeError(w, err, "upload attachment", slog.String("name", header.Filename))
		return
	}
	name, _ := assets.NameFromURL(u)
	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{
		Filename: name,
		Size:     int64(len(data)),
		URL:      u,
	})
}
