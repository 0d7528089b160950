package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON and writeError, so the API has
// one success shape (the resource itself) and one error shape:
//
//	{"error": "not_found", "message": "leetcode handle not found with id u1", "field": "..."}
//
// writeError is the only place where domain errors become HTTP status
// codes. Services never know about HTTP.

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/auth"
	"github.com/sakif/devcompass/internal/model"
)

// maxBodyBytes bounds request bodies. A bulk import of 5000 slugs of 100
// characters fits comfortably.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; all that is left is to log it.
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError maps a domain error to its HTTP status:
//
//	ErrValidation  → 400
//	ErrForbidden   → 403
//	ErrNotFound    → 404
//	ErrCooldown    → 429 + Retry-After
//	ErrRateLimited → 503 (+ Retry-After when the provider sent one)
//	ErrUnavailable → 503
//	anything else  → 500 with a generic message
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// Raw errors can carry SQL or file paths; never echo them.
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, errorType = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrForbidden):
		status, errorType = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status, errorType = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrCooldown):
		status, errorType = http.StatusTooManyRequests, "cooldown"
	case errors.Is(err, apperror.ErrRateLimited):
		status, errorType = http.StatusServiceUnavailable, "upstream_rate_limited"
	case errors.Is(err, apperror.ErrUnavailable):
		status, errorType = http.StatusServiceUnavailable, "upstream_unavailable"
	}

	if appErr.RetryAfter > 0 {
		secs := int(math.Ceil(appErr.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// decodeJSON reads a JSON body into dst. An empty body is a validation
// error like any malformed one.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return apperror.ValidationFailed("body", "could not read request body")
	}
	if len(body) > maxBodyBytes {
		return apperror.ValidationFailed("body", "request body too large")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}

// requireUser returns the caller's id. RequireAuth guarantees it on /api
// routes; a miss here means a route was registered outside that group.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
	}
	return userID, ok
}

// platformParam parses a {platform} URL parameter.
func platformParam(value string) (model.Platform, error) {
	p, err := model.ParsePlatform(value)
	if err != nil {
		return "", apperror.ValidationFailed("platform", err.Error())
	}
	return p, nil
}
