package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Storage errors
var (
	ErrKeyNotFound = errors.New("storage key not found")
)

// Session errors
var (
	ErrNoAccessToken  = errors.New("no access token available")
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrSessionExpired = errors.New("session has expired")
)

// APIError represents a request the server received and rejected.
// Status carries the HTTP status code so callers classify failures
// structurally instead of matching message text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api rejected request (%d): %s", e.Status, e.Message)
}

// TransportError represents a request that never produced a server
// response: connection failures, timeouts, malformed bodies.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure for %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StorageError represents a token store read or write failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("token store %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsAuthExpired reports whether err is a structured 401 rejection,
// the signal that the access token needs a refresh.
func IsAuthExpired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsAPIRejection reports whether the server received and rejected the
// request, returning its message when so.
func IsAPIRejection(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message, true
	}
	return "", false
}

// IsTransport reports whether err never reached the server.
func IsTransport(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// IsStorage reports whether err came from the token store.
func IsStorage(err error) bool {
	var sErr *StorageError
	return errors.As(err, &sErr)
}

// UserMessage folds any operation failure into the single string the
// session surfaces to screens.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := IsAPIRejection(err); ok && msg != "" {
		return msg
	}
	if IsTransport(err) {
		return "network request failed"
	}
	return err.Error()
}
