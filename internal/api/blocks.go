package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/wayfarer/internal/inline"
)

// InsertBlock handles POST /api/documents/{id}/blocks.
//
//	@Summary		Insert a block after another one
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			id			path	string				true	"Document ID"
//	@Param			If-Match	header	string				false	"Checksum for optimistic concurrency"
//	@Param			body		body	InsertBlockRequest	true	"Block to insert"
//	@Success		201		{object}	InsertBlockResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/blocks [post]
func (h *Handler) InsertBlock(w http.ResponseWriter, r *http.Request) {
	var req InsertBlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	content, err := inline.Parse(req.Markup)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	d, b, err := h.svc.InsertBlock(r.Context(), docID(r), ifMatch(r), req.After, req.Type, content)
	if err != nil {
		writeError(w, err, "insert block", slog.String("id", docID(r)))
		return
	}
	w.Header().Set("ETag", `"`+d.Checksum+`"`)
	writeJSON(w, http.StatusCreated, InsertBlockResponse{Block: b, Document: d})
}

// UpdateBlock handles PATCH /api/documents/{id}/blocks/{blockID}.
//
//	@Summary		Change a block's type, content, alignment or image
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			id			path	string				true	"Document ID"
//	@Param			blockID		path	string				true	"Block ID"
//	@Param			If-Match	header	string				false	"Checksum for optimistic concurrency"
//	@Param			body		body	UpdateBlockRequest	true	"Fields to change"
//	@Success		200		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/blocks/{blockID} [patch]
func (h *Handler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	var req UpdateBlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch, err := req.Patch()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	blockID := chi.URLParam(r, "blockID")
	d, err := h.svc.UpdateBlock(r.Context(), docID(r), ifMatch(r), blockID, patch)
	if err != nil {
		writeError(w, err, "update block", slog.String("id", docID(r)), slog.String("block", blockID))
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// DeleteBlock handles DELETE /api/documents/{id}/blocks/{blockID}.
//
//	@Summary		Delete a block; the last block is kept
//	@Tags			blocks
//	@Produce		json
//	@Param			id		path	string	true	"Document ID"
//	@Param			blockID	path	string	true	"Block ID"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/blocks/{blockID} [delete]
func (h *Handler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	blockID := chi.URLParam(r, "blockID")
	d, err := h.svc.DeleteBlock(r.Context(), docID(r), ifMatch(r), blockID)
	if err != nil {
		writeError(w, err, "delete block", slog.String("id", docID(r)), slog.String("block", blockID))
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// Reorder handles POST /api/documents/{id}/reorder.
//
//	@Summary		Move a block to a new position
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string			true	"Document ID"
//	@Param			body	body	ReorderRequest	true	"Source and target index"
//	@Success		200		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/reorder [post]
func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.Reorder(r.Context(), docID(r), ifMatch(r), req.From, req.To)
	if err != nil {
		writeError(w, err, "reorder", slog.String("id", docID(r)))
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// DragStart handles POST /api/documents/{id}/drag/start.
func (h *Handler) DragStart(w http.ResponseWriter, r *http.Request) {
	var req DragRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.DragStart(r.Context(), docID(r), req.Index)
	if err != nil {
		writeError(w, err, "drag start", slog.String("id", docID(r)))
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// DragOver handles POST /api/documents/{id}/drag/over.
func (h *Handler) DragOver(w http.ResponseWriter, r *http.Request) {
	var req DragRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.DragOver(r.Context(), docID(r), req.Index)
	if err != nil {
		writeError(w, err, "drag over", slog.String("id", docID(r)))
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// DragEnd handles POST /api/documents/{id}/drag/end.
func (h *Handler) DragEnd(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.DragEnd(r.Context(), docID(r))
	if err != nil {
		writeError(w, err, "drag end", slog.String("id", docID(r)))
		return
	}
	writeDocument(w, http.StatusOK, d)
}
