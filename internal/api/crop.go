package api

import (
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/starford/wayfarer/internal/docservice"
)

// GetCrop handles GET /api/documents/{id}/crop.
//
//	@Summary		Get the open crop session
//	@Tags			crop
//	@Produce		json
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{object}	docservice.CropState
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/crop [get]
func (h *Handler) GetCrop(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.CropState(r.Context(), docID(r))
	if err != nil {
		writeError(w, err, "get crop", slog.String("id", docID(r)))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// OpenCrop handles POST /api/documents/{id}/crop.
//
// A multipart body ("block" and "file" fields) crops an uploaded image; a
// JSON body (OpenCropRequest) crops an image that is already addressable.
//
//	@Summary		Open a crop session on an image block
//	@Tags			crop
//	@Accept			json,mpfd
//	@Produce		json
//	@Param			id	path		string	true	"Document ID"
//	@Success		201	{object}	docservice.CropState
//	@Failure		400	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/crop [post]
func (h *Handler) OpenCrop(w http.ResponseWriter, r *http.Request) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		h.openCropUpload(w, r)
		return
	}

	var req OpenCropRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.svc.OpenCropURL(r.Context(), docID(r), req.BlockID, req.URL)
	if err != nil {
		writeError(w, err, "open crop", slog.String("id", docID(r)), slog.String("block", req.BlockID))
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *Handler) openCropUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	blockID := r.FormValue("block")
	if blockID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'block' field in multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	if int64(len(data)) > h.maxUpload {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("file too large"))
		return
	}

	st, err := h.svc.OpenCropFile(r.Context(), docID(r), blockID, header.Filename, data)
	if err != nil {
		writeError(w, err, "open crop", slog.String("id", docID(r)), slog.String("block", blockID))
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// CropPointer handles POST /api/documents/{id}/crop/pointer.
//
//	@Summary		Feed one pointer event to the open crop
//	@Tags			crop
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string			true	"Document ID"
//	@Param			body	body	PointerRequest	true	"Pointer event"
//	@Success		200		{object}	docservice.CropState
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/crop/pointer [post]
func (h *Handler) CropPointer(w http.ResponseWriter, r *http.Request) {
	var req PointerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.svc.CropPointer(r.Context(), docID(r), docservice.PointerEvent(req))
	if err != nil {
		writeError(w, err, "crop pointer", slog.String("id", docID(r)))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// CommitCrop handles POST /api/documents/{id}/crop/commit.
//
// A commit whose encoder produced nothing answers 202 with a null result;
// the session stays open.
//
//	@Summary		Rasterize the crop and store it on the block
//	@Tags			crop
//	@Produce		json
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{object}	docservice.CommitResult
//	@Success		202	{object}	docservice.CommitResult
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/crop/commit [post]
func (h *Handler) CommitCrop(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CommitCrop(r.Context(), docID(r))
	if err != nil {
		writeError(w, err, "commit crop", slog.String("id", docID(r)))
		return
	}
	status := http.StatusOK
	if res.Result == nil {
		status = http.StatusAccepted
	}
	w.Header().Set("ETag", `"`+res.Document.Checksum+`"`)
	writeJSON(w, status, res)
}

// CancelCrop handles DELETE /api/documents/{id}/crop.
//
//	@Summary		Discard the open crop
//	@Tags			crop
//	@Param			id	path	string	true	"Document ID"
//	@Success		204	"Crop cancelled"
//	@Security		BearerAuth
//	@Router			/documents/{id}/crop [delete]
func (h *Handler) CancelCrop(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelCrop(r.Context(), docID(r)); err != nil {
		writeError(w, err, "cancel crop", slog.String("id", docID(r)))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
