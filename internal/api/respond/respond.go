// Package respond writes JSON responses and is the single place where domain
// errors become HTTP status codes.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/isdelr/accounts-be/internal/apperrors"
	"github.com/rs/zerolog/hlog"
)

// ErrorBody is the error payload: {"detail": "..."}.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache prevents caching of sensitive responses such as tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// Detail writes an error body with the given status code.
func Detail(w http.ResponseWriter, code int, detail string) {
	JSON(w, code, ErrorBody{Detail: detail})
}

// Unauthorized writes a 401 with the bearer challenge header.
func Unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	Detail(w, http.StatusUnauthorized, "Incorrect password or email")
}

// Error maps err onto a status code and writes it. Unexpected errors are
// logged and reported without internals.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperrors.ErrAuthFailure):
		Unauthorized(w)
	case errors.Is(err, apperrors.ErrForbidden):
		Detail(w, http.StatusForbidden, "Authority failed")
	case errors.Is(err, apperrors.ErrNotFound):
		Detail(w, http.StatusNotFound, "Object does not exist")
	case errors.Is(err, apperrors.ErrValidation):
		Detail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		Detail(w, http.StatusConflict, err.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("Request failed")
		Detail(w, http.StatusInternalServerError, "Something went wrong.")
	}
}
