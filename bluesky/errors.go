package bluesky

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotAuthenticated is returned when a call requiring a session is
// made before Login.
var ErrNotAuthenticated = errors.New("not authenticated: call Login first")

// APIError is a non-2xx response from the PDS.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// IsAuthFailure reports whether the error means the credentials are bad
// or the session expired. Auth failures abort the whole run, retrying
// other photos is pointless.
func IsAuthFailure(err error) bool {
	if errors.Is(err, ErrNotAuthenticated) {
		return true
	}
	var api *APIError
	if errors.As(err, &api) {
		return api.StatusCode == http.StatusUnauthorized || api.StatusCode == http.StatusForbidden
	}
	return false
}

// IsRateLimited reports whether the PDS asked us to back off.
func IsRateLimited(err error) bool {
	var api *APIError
	return errors.As(err, &api) && api.StatusCode == http.StatusTooManyRequests
}

// IsInvalid reports whether the PDS rejected the post itself. Not
// retryable, the same payload would be rejected again.
func IsInvalid(err error) bool {
	var api *APIError
	return errors.As(err, &api) && api.StatusCode == http.StatusBadRequest
}

// IsRetryable reports whether another attempt may succeed: rate limits,
// server errors and transport failures qualify, auth and validation
// failures do not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsAuthFailure(err) || IsInvalid(err) {
		return false
	}
	var api *APIError
	if errors.As(err, &api) {
		return api.StatusCode == http.StatusTooManyRequests || api.StatusCode >= 500
	}
	// transport-level failure
	return true
}
