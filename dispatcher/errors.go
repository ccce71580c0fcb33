package dispatcher

import (
	"errors"
	"fmt"
)

// Configuration errors, returned by Builder.Build before any network activity.
var (
	ErrInvalidURL    = errors.New("invalid url")
	ErrInvalidProxy  = errors.New("invalid proxy")
	ErrInvalidHeader = errors.New("invalid header value")
)

// Protocol errors derived from the response status. They are always wrapped
// in a *StatusError; match them with errors.Is.
var (
	ErrEmptyResponse        = errors.New("empty response")
	ErrBadRequest           = errors.New("bad request")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrMethodNotAllowed     = errors.New("method not allowed")
	ErrTooManyRequests      = errors.New("too many requests")
	ErrUnhandledClientError = errors.New("unhandled client error")
	ErrInternalServerError  = errors.New("internal server error")
	ErrNotImplemented       = errors.New("not implemented")
	ErrBadGateway           = errors.New("bad gateway")
	ErrServiceUnavailable   = errors.New("service unavailable")
	ErrGatewayTimeout       = errors.New("gateway timeout")
	ErrUnhandledServerError = errors.New("unhandled server error")
)

// StatusError reports a response whose status (or empty body) is a failure.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v (status %d)", e.Err, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return e.Err }

// TransportError wraps a failure to complete the HTTP exchange: DNS, TLS,
// connection, timeout or context cancellation. It is never retried.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ClassifyStatus maps a response status code to its outcome. It returns nil
// for 0-399, which continue on the success path (body must be non-empty).
// The table mirrors the server's behavior and must not be "corrected".
func ClassifyStatus(code int) error {
	var err error
	switch {
	case code >= 0 && code <= 399:
		return nil
	case code == 400:
		err = ErrBadRequest
	case code == 401:
		err = ErrUnauthorized
	case code == 402:
		err = ErrUnhandledClientError
	case code == 403:
		err = ErrForbidden
	case code == 404:
		err = ErrNotFound
	case code == 405:
		err = ErrMethodNotAllowed
	case code >= 406 && code <= 428:
		err = ErrUnhandledClientError
	case code == 429:
		err = ErrTooManyRequests
	case code >= 430 && code <= 499:
		err = ErrUnhandledClientError
	case code == 500:
		err = ErrInternalServerError
	case code == 501:
		err = ErrNotImplemented
	case code == 502:
		err = ErrBadGateway
	case code == 503:
		err = ErrServiceUnavailable
	case code == 504:
		err = ErrGatewayTimeout
	default:
		err = ErrUnhandledServerError
	}
	return &StatusError{StatusCode: code, Err: err}
}
