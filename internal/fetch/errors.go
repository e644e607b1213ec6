package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned for any upstream call that did not produce a usable
// 200 response: transport failures (StatusCode 0), non-200 statuses and
// bodies that could not be decoded.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error

	// set when the request could not be built and never reached the transport
	invalid bool
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.URL, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// StatusCode extracts the upstream status from err, 0 if there is none
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether the upstream said the resource does not exist.
// Mojang answers unknown usernames with 204 No Content.
func IsNotFound(err error) bool {
	code := StatusCode(err)
	return code == http.StatusNotFound || code == http.StatusNoContent
}

// retryable reports whether another attempt could succeed
func (e *APIError) retryable() bool {
	if e.invalid {
		return false
	}
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
