// Package valueonly detaches a context from its cancellation while keeping
// its values, so work that must finish, such as saving a cassette on close,
// still reports through the caller's o11y provider.
package valueonly

import (
	"context"
	"time"
)

// Context wraps another and suppresses its deadline and cancellation.
type Context struct{ context.Context }

func (Context) Deadline() (deadline time.Time, ok bool) { return }
func (Context) Done() <-chan struct{}                   { return nil }
func (Context) Err() error                              { return nil }
