package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// ValidationError rejects bad input at the write boundary. It never
// reaches the dispatcher.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func NewValidation(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UpstreamError carries a non-2xx response from the LinkedIn API.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("linkedin %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Transient reports whether the failure is worth retrying: server-side
// errors and rate limits are, other client errors are not.
func (e *UpstreamError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// ProfileMissingError means the post's owner has no connected LinkedIn
// profile. Fails that post only, never the batch.
type ProfileMissingError struct {
	UserID int64
}

func (e *ProfileMissingError) Error() string {
	return fmt.Sprintf("no linkedin profile connected for user %d", e.UserID)
}

// ErrMissingCreateID is returned when a 2xx create-post response lacks
// the x-restli-id header carrying the created entity id.
var ErrMissingCreateID = errors.New("create response missing x-restli-id header")

// ErrPublishConflict means another writer already holds the post's
// publish claim, or the post is already published. Callers skip the
// post instead of failing it.
var ErrPublishConflict = errors.New("post publish already settled or in flight")

// IsTransient classifies an error for the per-post retry loop: upstream
// 5xx/429, timeouts and network failures qualify; everything else fails
// the post immediately.
func IsTransient(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var uerr *url.Error
	return errors.As(err, &uerr)
}
