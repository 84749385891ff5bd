// Package filter sanitises copies of interactions before they are stored.
//
// Filters never see the caller's data: a Chain hands each filter its own
// copy, and a filter that fails has its changes discarded and is logged as
// an o11y warning.
package filter

import (
	"context"
	"fmt"
	"sync"

	"github.com/circleci/httpvcr/cassette"
	"github.com/circleci/httpvcr/o11y"
)

// Filter edits req and res in place. Either may be a throwaway value when
// only one side of an interaction is being filtered.
type Filter interface {
	Filter(req *cassette.Request, res *cassette.Response) error
}

// Func adapts an ordinary function into a Filter.
type Func func(req *cassette.Request, res *cassette.Response) error

func (f Func) Filter(req *cassette.Request, res *cassette.Response) error {
	return f(req, res)
}

// Chain applies filters in the order they were added. The zero value and a
// nil *Chain are both empty chains.
type Chain struct {
	mu      sync.RWMutex
	filters []Filter
}

func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: append([]Filter(nil), filters...)}
}

// Add appends f and returns the chain so calls can be chained.
func (c *Chain) Add(f Filter) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = append(c.filters, f)
	return c
}

func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.filters)
}

func (c *Chain) snapshot() []Filter {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Filter(nil), c.filters...)
}

// Apply returns a filtered copy of in. It never fails and never modifies in.
func (c *Chain) Apply(ctx context.Context, in cassette.Interaction) cassette.Interaction {
	out := in.Clone()
	for i, f := range c.snapshot() {
		next := out.Clone()
		if err := run(f, &next.Request, &next.Response); err != nil {
			logFailure(ctx, i, f, err)
			continue
		}
		out = next
	}
	return out
}

// ApplyRequest filters only the request side. Filters receive a throwaway
// response.
func (c *Chain) ApplyRequest(ctx context.Context, req cassette.Request) cassette.Request {
	out := req.Clone()
	for i, f := range c.snapshot() {
		next := out.Clone()
		res := cassette.Response{Headers: map[string][]string{}}
		if err := run(f, &next, &res); err != nil {
			logFailure(ctx, i, f, err)
			continue
		}
		out = next
	}
	return out
}

// run converts a panicking filter into an error.
func run(f Filter, req *cassette.Request, res *cassette.Response) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("filter panicked: %v", r)
		}
	}()
	return f.Filter(req, res)
}

func logFailure(ctx context.Context, idx int, f Filter, err error) {
	o11y.LogError(ctx, "vcr: filter", o11y.AsWarning(err, "filter %d (%T) skipped", idx, f),
		o11y.Field("filter_index", idx),
	)
}
