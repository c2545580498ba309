package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fintrackhq/fintrack/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	toJSON(w, status, errorResponse{Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg) }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not_found") }
func unauthorized(w http.ResponseWriter)           { writeErr(w, http.StatusUnauthorized, "unauthorized") }

// respondErr maps service errors onto HTTP statuses. Anything unrecognized
// is a 500 whose detail goes to the log, never to the client.
func respondErr(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalid), errors.Is(err, errs.ErrBadCursor):
		badRequest(w, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrUnauthorized):
		unauthorized(w)
	default:
		log.Error("internal error", "err", err)
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}
