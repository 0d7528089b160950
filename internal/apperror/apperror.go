// Package apperror defines the domain error taxonomy shared by every layer.
//
// Services return these errors; handlers translate them to HTTP status codes.
// Persistence conflicts are never surfaced: every write is an upsert or a
// conflict-skipping insert, so there is no Conflict kind.
package apperror

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation error")
	ErrForbidden   = errors.New("forbidden")
	ErrRateLimited = errors.New("rate limited")
	ErrUnavailable = errors.New("upstream unavailable")
	ErrCooldown    = errors.New("cooldown active")
)

type AppError struct {
	Err        error         // sentinel kind
	Message    string        // human-readable error message
	Field      string        // optional: field causing the error
	RetryAfter time.Duration // optional: how long until the caller may retry
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// RateLimited reports that an upstream provider kept answering 429 after the
// retry budget was spent.
func RateLimited(provider string, retryAfter time.Duration) *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Message:    fmt.Sprintf("%s is rate limiting requests", provider),
		RetryAfter: retryAfter,
	}
}

// Unavailable reports an upstream failure that will not be retried within
// the current request.
func Unavailable(provider string, cause error) *AppError {
	msg := fmt.Sprintf("%s is unavailable", provider)
	if cause != nil {
		msg = fmt.Sprintf("%s is unavailable: %v", provider, cause)
	}
	return &AppError{
		Err:     ErrUnavailable,
		Message: msg,
	}
}

// Cooldown rejects a request that arrived inside a cooldown window.
func Cooldown(retryAfter time.Duration) *AppError {
	minutes := int(retryAfter.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return &AppError{
		Err:        ErrCooldown,
		Message:    fmt.Sprintf("analysis was refreshed recently, try again in %d minute(s)", minutes),
		RetryAfter: retryAfter,
	}
}

// IsUpstream reports whether err is one of the upstream failure kinds that
// callers absorb as "data absent".
func IsUpstream(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}
