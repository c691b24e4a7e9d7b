// ABOUTME: Typed errors returned by the webhook client
// ABOUTME: DecodeError for unreadable bodies, StatusError for non-2xx replies in strict mode

package gateway

import (
	"fmt"
)

// maxErrorBody caps how much of a response body is kept on an error.
const maxErrorBody = 512

// DecodeError reports a response body that could not be decoded into the expected shape.
type DecodeError struct {
	Endpoint   string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response from %s (status %d): %v", e.Endpoint, e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-2xx response when strict status checking is enabled.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.StatusCode, truncate(e.Body))
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
