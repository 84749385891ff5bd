package vcr

import (
	"errors"
	"fmt"
)

// ErrNoMatchingInteraction is returned when replaying and the cassette holds
// no unconsumed interaction matching the request.
var ErrNoMatchingInteraction = errors.New("no matching interaction in cassette")

var (
	errNoTransport = errors.New("vcr: a transport is required")
	errNoPath      = errors.New("vcr: a cassette path is required")
)

func noMatch(method, url string, mode Mode) error {
	return fmt.Errorf("%w: %s %s (mode %s)", ErrNoMatchingInteraction, method, url, mode)
}

// TransportError wraps an error from the real transport, or from reading its
// response, unchanged.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("vcr transport %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
