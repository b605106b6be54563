package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/wayfarer/internal/docservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc       *docservice.Service
	maxUpload int64
}

// NewHandler creates a new Handler. maxUpload bounds multipart image
// uploads.
func NewHandler(svc *docservice.Service, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handler{svc: svc, maxUpload: maxUpload}
}

func docID(r *http.Request) string { return chi.URLParam(r, "id") }

// ifMatch reads the If-Match header, stripping ETag quotes.
func ifMatch(r *http.Request) string {
	return strings.Trim(r.Header.Get("If-Match"), `"`)
}

// writeDocument writes d with its checksum as ETag.
func writeDocument(w http.ResponseWriter, status int, d *DocumentDetail) {
	w.Header().Set("ETag", `"`+d.Checksum+`"`)
	writeJSON(w, status, d)
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents with optional pagination
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated_at, title)
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.List(r.Context(), limit, offset, q.Get("sort"))
	if err != nil {
		writeError(w, err, "list documents")
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: total})
}

// GetDocument handles GET /api/documents/{id}.
//
//	@Summary		Get a document with its live crop and drag state
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{object}	DocumentDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Get(r.Context(), docID(r))
	if err != nil {
		writeError(w, err, "get document", slog.String("id", docID(r)))
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create a new document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.Create(r.Context(), req.ID, req.Title, req.Blocks)
	if err != nil {
		writeError(w, err, "create document", slog.String("id", req.ID))
		return
	}
	writeDocument(w, http.StatusCreated, d)
}

// UpdateDocument handles PUT /api/documents/{id}.
//
//	@Summary		Replace a document with optimistic concurrency
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id			path	string					true	"Document ID"
//	@Param			If-Match	header	string					false	"Checksum for optimistic concurrency"
//	@Param			body		body	UpdateDocumentRequest	true	"New content"
//	@Success		200		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req UpdateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.Update(r.Context(), docID(r), ifMatch(r), req.Title, req.Blocks)
	if err != nil {
		writeError(w, err, "update document", slog.String("id", docID(r)))
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// DeleteDocument handles DELETE /api/documents/{id}.
//
//	@Summary		Delete a document
//	@Tags			documents
//	@Param			id	path	string	true	"Document ID"
//	@Success		204	"Document deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), docID(r)); err != nil {
		writeError(w, err, "delete document", slog.String("id", docID(r)))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err, "search", slog.String("query", q))
		return
	}
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i] = SearchResult{ID: res.ID, Title: res.Title, Snippet: res.Snippet}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: out})
}

// ImageUsers handles GET /api/images/users.
//
//	@Summary		List the image blocks that display a URL
//	@Tags			images
//	@Produce		json
//	@Param			url	query		string	true	"Image URL"
//	@Success		200	{object}	ImageUsersResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/images/users [get]
func (h *Handler) ImageUsers(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("url")
	if u == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'url' is required"))
		return
	}
	refs, err := h.svc.ImageUsers(r.Context(), u)
	if err != nil {
		writeError(w, err, "image users", slog.String("url", u))
		return
	}
	writeJSON(w, http.StatusOK, ImageUsersResponse{URL: u, Users: refs})
}
