package port

import (
	"errors"
	"fmt"
	"net/http"
)

// Outcome kinds shared by the system of record and the transport that talks to it
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("system of record unavailable")
)

// RemoteError is a non-2xx reply from the system of record.
// It unwraps to the outcome kind matching its status code.
type RemoteError struct {
	StatusCode int
	Message    string
	kind       error
}

// NewRemoteError classifies a status code and keeps the upstream message
func NewRemoteError(statusCode int, message string) *RemoteError {
	return &RemoteError{
		StatusCode: statusCode,
		Message:    message,
		kind:       KindForStatus(statusCode),
	}
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.kind
}

// KindForStatus maps an HTTP status code to an outcome kind
func KindForStatus(statusCode int) error {
	switch statusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrUnavailable
	}
}

// StatusForKind is the inverse of KindForStatus, used when writing replies
func StatusForKind(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// MessageOf extracts the upstream message from err, falling back to fallback
func MessageOf(err error, fallback string) string {
	var remote *RemoteError
	if errors.As(err, &remote) && remote.Message != "" {
		return remote.Message
	}
	return fallback
}
