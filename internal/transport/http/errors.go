package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"quest-board-service/internal/domain"
)

type errorPayload struct {
	Message string `json:"message"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var validationErrs validator.ValidationErrors
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotEligible):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientPool), errors.Is(err, domain.ErrOutsideEvent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPayloadTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrUnsupportedArtifact):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, errBadRequest), errors.As(err, &validationErrs):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorPayload{Message: msg})
}
