package api

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks failures before an HTTP status was received.
	ErrTransport = errors.New("transport failure")
	// ErrDecode marks a 2xx response whose body was not the expected JSON.
	ErrDecode = errors.New("decode failure")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP error! status: %d", e.Method, e.Path, e.Code)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
