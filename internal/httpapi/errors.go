package httpapi

import (
	"errors"
	"net/http"

	"github.com/tmoreira/caixa/internal/errs"
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
func unprocessable(w http.ResponseWriter, msg, code string) {
	writeErr(w, http.StatusUnprocessableEntity, msg, code)
}

// writeDomainErr maps domain errors from mutating operations onto HTTP
// statuses. Unrecognized errors are treated as validation failures since the
// service layer wraps everything else.
func writeDomainErr(w http.ResponseWriter, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrInvalid):
		badRequest(w, msg)
	case errors.Is(err, errs.ErrImmutable):
		writeErr(w, http.StatusConflict, msg, "immutable_field")
	case errors.Is(err, errs.ErrConflict):
		writeErr(w, http.StatusConflict, msg, "conflict")
	case errors.Is(err, errs.ErrForbidden):
		writeErr(w, http.StatusForbidden, msg, "forbidden")
	case errors.Is(err, errs.ErrCardRequired):
		unprocessable(w, msg, "card_required")
	case errors.Is(err, errs.ErrInvalidMonth):
		unprocessable(w, msg, "invalid_month")
	case errors.Is(err, errs.ErrInvalidAmount):
		unprocessable(w, msg, "invalid_amount")
	default:
		unprocessable(w, msg, "validation_error")
	}
}

// writeReadErr is for read paths where anything but a missing record is a
// backend failure.
func writeReadErr(w http.ResponseWriter, err error) {
	if errors.Is(err, errs.ErrNotFound) {
		notFound(w)
		return
	}
	if errors.Is(err, errs.ErrInvalid) || errors.Is(err, errs.ErrInvalidMonth) {
		badRequest(w, err.Error())
		return
	}
	writeErr(w, http.StatusInternalServerError, "internal_error", "internal_error")
}
