package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/wayfarer/internal/apperr"
	"github.com/starford/wayfarer/internal/assets"
	"github.com/starford/wayfarer/internal/crop"
	"github.com/starford/wayfarer/internal/editor"
)

const maxJSONBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// decodeJSON reads a JSON body into v and runs its Validate method.
// It writes the 400 response itself and reports false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v validation.Validatable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

// statusOf maps a service error onto an HTTP status and client message.
func statusOf(err error) (int, string) {
	var loadErr *crop.ImageLoadError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, apperr.ErrInvalid), errors.Is(err, editor.ErrNotImageBlock):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, "checksum mismatch"
	case errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict, "document already exists"
	case errors.Is(err, editor.ErrCropInProgress), errors.Is(err, editor.ErrNoCrop):
		return http.StatusConflict, err.Error()
	case errors.Is(err, assets.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.As(err, &loadErr),
		errors.Is(err, assets.ErrUnsupportedType),
		errors.Is(err, assets.ErrInvalidContent):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeError writes the response for err and logs server-side failures.
func writeError(w http.ResponseWriter, err error, op string, attrs ...any) {
	status, msg := statusOf(err)
	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", append(attrs, slog.String("error", err.Error()))...)
	}
	writeJSON(w, status, errorBody(msg))
}
