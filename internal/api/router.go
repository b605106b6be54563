package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/wayfarer/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// maxUpload bounds images uploaded for cropping.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler, maxUpload int64) chi.Router {
	h := NewHandler(svc, maxUpload)
	ah := NewAttachmentHandler(svc.Library())

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents CRUD.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Route("/documents/{id}", func(r chi.Router) {
		r.Get("/", h.GetDocument)
		r.Put("/", h.UpdateDocument)
		r.Delete("/", h.DeleteDocument)

		// Blocks.
		r.Post("/blocks", h.InsertBlock)
		r.Patch("/blocks/{blockID}", h.UpdateBlock)
		r.Delete("/blocks/{blockID}", h.DeleteBlock)
		r.Post("/reorder", h.Reorder)
		r.Post("/drag/start", h.DragStart)
		r.Post("/drag/over", h.DragOver)
		r.Post("/drag/end", h.DragEnd)

		// Crop session.
		r.Get("/crop", h.GetCrop)
		r.Post("/crop", h.OpenCrop)
		r.Delete("/crop", h.CancelCrop)
		r.Post("/crop/pointer", h.CropPointer)
		r.Post("/crop/commit", h.CommitCrop)
		r.Get("/crop/ws", h.CropStream)
	})

	// Search.
	r.Get("/search", h.Search)
	r.Get("/images/users", h.ImageUsers)

	// Attachments upload (auth-protected).
	r.Post("/attachments", ah.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// AttachmentRoutes serves stored attachments. It is mounted outside the
// auth group so image tags can load them.
func AttachmentRoutes(svc *docservice.Service) chi.Router {
	ah := NewAttachmentHandler(svc.Library())
	r := chi.NewRouter()
	r.Get("/{filename}", ah.ServeFile)
	return r
}
