// Package noop provides HTTP transports that refuse to reach the network,
// for use behind a recorder that must only replay.
package noop

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvoked is returned when a request reaches a noop transport.
var ErrInvoked = errors.New("noop transport invoked")

const defaultMessage = "real HTTP requests are not allowed, requests should be replayed from a cassette"

type Option func(*options)

type options struct {
	message string
}

// WithMessage replaces the explanation included in errors and panics.
func WithMessage(msg string) Option {
	return func(o *options) {
		o.message = msg
	}
}

func newOptions(opts []Option) options {
	o := options{message: defaultMessage}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Transport fails every request with an error wrapping ErrInvoked.
type Transport struct {
	message string
}

func New(opts ...Option) *Transport {
	return &Transport{message: newOptions(opts).message}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	closeBody(req)
	return nil, fmt.Errorf("%w: %s: attempted request %s", ErrInvoked, t.message, describe(req))
}

// PanickingTransport panics on every request.
type PanickingTransport struct {
	message string
}

func Panicking(opts ...Option) *PanickingTransport {
	return &PanickingTransport{message: newOptions(opts).message}
}

func (t *PanickingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	closeBody(req)
	panic(fmt.Sprintf("%s: %s: attempted request %s", ErrInvoked, t.message, describe(req)))
}

func describe(req *http.Request) string {
	if req == nil {
		return "<nil>"
	}
	u := "<nil>"
	if req.URL != nil {
		u = req.URL.String()
	}
	return req.Method + " " + u
}

// closeBody honours the RoundTripper contract of always closing the body.
func closeBody(req *http.Request) {
	if req != nil && req.Body != nil {
		_ = req.Body.Close()
	}
}
