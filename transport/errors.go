package transport

import (
	"errors"
	"fmt"
)

// ErrUnauthorized marks a 401. By the time it is returned the session has
// been torn down; UI code usually ignores it.
var ErrUnauthorized = errors.New("transport: unauthorized")

// AuthError is returned for 401 responses.
type AuthError struct {
	Method string
	Path   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s %s: unauthorized", e.Method, e.Path)
}

func (e *AuthError) Unwrap() error { return ErrUnauthorized }

// StatusError is a non-2xx response other than 401. Message carries the
// backend envelope message when the body had one.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Body    []byte
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d", e.Method, e.Path, e.Status)
}

// NetworkError wraps a failure to reach the backend or to read its answer.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == 404
}
