// pkg/a2a/errors.go
package a2a

import "errors"

// Error kinds shared by the client and server sides of the protocol.
// Callers wrap them with context and test with errors.Is.
var (
	// ErrUnavailable: the agent card could not be fetched (refused, timed out, bad body).
	ErrUnavailable = errors.New("agent unavailable")
	// ErrBadRequest: the envelope is missing message, parts or text.
	ErrBadRequest = errors.New("bad message format")
	// ErrConnectionLost: transport failure while a task was in flight.
	ErrConnectionLost = errors.New("connection lost")
	// ErrTimeout: the dispatch did not complete within its bound.
	ErrTimeout = errors.New("dispatch timed out")
	// ErrNoReply: the response carries no usable reply.
	ErrNoReply = errors.New("no reply")
)

// ErrorResponse is the body written alongside non-200 statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}
