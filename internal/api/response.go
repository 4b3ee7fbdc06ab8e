package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"aniserve/internal/auth"
	"aniserve/internal/catalog"
	"aniserve/internal/models"
	"aniserve/internal/profile"
)

// Error responses are {"error": message} with a non-2xx status.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, message)
}

func unauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, message)
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "internal error")
}

// writeDomainError maps the error taxonomy to HTTP statuses: validation to
// 400, auth to 401, upstream to the upstream status (or 502), anything else
// to a generic 500 that leaks no internals.
func writeDomainError(w http.ResponseWriter, err error) {
	var validationErr *auth.ValidationError
	if errors.As(err, &validationErr) {
		badRequest(w, validationErr.Message)
		return
	}
	if errors.Is(err, profile.ErrUnknownList) {
		badRequest(w, "list must be favorites or pending")
		return
	}
	if errors.Is(err, models.ErrMissingAnimeID) || errors.Is(err, models.ErrMissingTitle) {
		badRequest(w, err.Error())
		return
	}

	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		unauthorized(w, authErr.Message)
		return
	}

	if errors.Is(err, catalog.ErrBadJikanPath) {
		badRequest(w, "invalid jikan path")
		return
	}

	var upstreamErr *catalog.UpstreamError
	if errors.As(err, &upstreamErr) {
		status := http.StatusBadGateway
		if upstreamErr.Status >= 400 {
			status = upstreamErr.Status
		}
		writeError(w, status, upstreamErr.Message)
		return
	}

	slog.Error("request failed", "error", err)
	internalError(w)
}
