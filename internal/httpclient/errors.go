package httpclient

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownMethod = errors.New("unknown HTTP method")
	ErrMalformedURL  = errors.New("malformed URL")
	ErrInvalidHeader = errors.New("invalid header")
)

// BuildError reports a template that could not be turned into a request.
type BuildError struct {
	Index int
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build request #%d: %v", e.Index, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// HTTPError represents a response with status 500 or above.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("HTTP %s", e.Status)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) HTTPStatus() int { return e.StatusCode }
