package httpapi

import (
	"errors"
	"net/http"

	"github.com/mesabook/cuadre/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "") }
func notFound(w http.ResponseWriter) {
	writeErr(w, http.StatusNotFound, "not_found", "not_found")
}

// writeDomainErr maps service errors onto HTTP statuses: validation sentinels
// become 422, state-machine guards 409, missing ids 404, anything else is a
// store failure surfaced verbatim as 502.
func writeDomainErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrBlankReason):
		writeErr(w, http.StatusUnprocessableEntity, err.Error(), "blank_reason")
	case errors.Is(err, errs.ErrInvalidAmount):
		writeErr(w, http.StatusUnprocessableEntity, err.Error(), "invalid_amount")
	case errors.Is(err, errs.ErrInvalidKind):
		writeErr(w, http.StatusUnprocessableEntity, err.Error(), "invalid_kind")
	case errors.Is(err, errs.ErrDateMismatch):
		writeErr(w, http.StatusUnprocessableEntity, err.Error(), "date_mismatch")
	case errors.Is(err, errs.ErrNotAllowed):
		writeErr(w, http.StatusConflict, err.Error(), "not_allowed")
	case errors.Is(err, errs.ErrInvalid):
		writeErr(w, http.StatusBadRequest, err.Error(), "invalid")
	default:
		writeErr(w, http.StatusBadGateway, err.Error(), "store_error")
	}
}
