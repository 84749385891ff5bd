package testcontext

import (
	"context"
	"io"
	"os"

	"github.com/circleci/httpvcr/log"
	"github.com/circleci/httpvcr/o11y"
)

// ctx is a global singleton, initialised at package time so every test shares one provider
var ctx = newContext()

// Background returns a context for use in tests which contains a working o11y.
// Set VCR_TEST_LOG to see the span events on stderr.
func Background() context.Context {
	return ctx
}

func newContext() context.Context {
	var w io.Writer = io.Discard
	if lvl, ok := os.LookupEnv("VCR_TEST_LOG"); ok && log.Enabled(lvl) {
		w = os.Stderr
	}
	p := log.New(log.Config{Writer: w})
	p.AddGlobalField("service", "test-service")
	return o11y.WithProvider(context.Background(), p)
}
