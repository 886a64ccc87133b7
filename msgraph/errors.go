package msgraph

import (
	"errors"
	"net/http"
)

// Authentication flow errors
var (
	// ErrAuthenticationRequired means no usable token is available and the
	// caller cannot be prompted here; a device flow must be initiated.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrFlowInitiationFailed means the provider rejected the device-code
	// authorization request (misconfigured client id, network failure, or a
	// flow the app registration does not allow).
	ErrFlowInitiationFailed = errors.New("device flow initiation failed")
)

// IsAuthenticationRequired reports whether err means the caller must sign in
// before retrying. Graph 401s count: the token was rejected upstream.
func IsAuthenticationRequired(err error) bool {
	return errors.Is(err, ErrAuthenticationRequired) || errors.Is(err, ErrUnauthorised)
}

// Graph API errors, keyed off the response status code.
var (
	ErrUnauthorised = errors.New("graph: unauthorised")
	ErrForbidden    = errors.New("graph: forbidden")
	ErrNotFound     = errors.New("graph: not found")
	ErrRateLimited  = errors.New("graph: rate limited")
	ErrBadRequest   = errors.New("graph: bad request")
	ErrServerError  = errors.New("graph: server error")
)

// WrapError converts a Graph HTTP status code to an appropriate error.
func WrapError(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorised
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadRequest:
		return ErrBadRequest
	default:
		if statusCode >= 500 {
			return ErrServerError
		}
		return nil
	}
}
