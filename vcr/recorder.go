// Package vcr records HTTP interactions to a cassette and replays them.
//
// A Recorder is an http.RoundTripper that sits in front of a real transport:
//
//	rec, err := vcr.New(ctx, vcr.Config{
//		Transport: http.DefaultTransport,
//		Path:      "testdata/cassettes/users.yaml",
//		Mode:      vcr.ModeOnce,
//	})
//	client := &http.Client{Transport: rec}
//	defer rec.Close()
package vcr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/circleci/httpvcr/cassette"
	"github.com/circleci/httpvcr/closer"
	"github.com/circleci/httpvcr/filter"
	"github.com/circleci/httpvcr/matcher"
	"github.com/circleci/httpvcr/o11y"
	"github.com/circleci/httpvcr/valueonly"
)

type Config struct {
	// Transport performs real requests. Use noop.New() to forbid them.
	Transport http.RoundTripper
	// Path of the cassette. Not required in ModeNone.
	Path string
	Mode Mode
	// Format of new cassettes. Existing cassettes keep their format.
	Format cassette.Format
	// Matcher defaults to matcher.Default().
	Matcher matcher.Matcher
	// Filters are applied to recorded interactions before they are stored.
	Filters *filter.Chain
}

func (c Config) validate() error {
	if c.Transport == nil {
		return errNoTransport
	}
	if c.Path == "" && c.Mode != ModeNone {
		return errNoPath
	}
	switch c.Mode {
	case ModeReplay, ModeRecord, ModeOnce, ModeNone:
	default:
		return fmt.Errorf("vcr: invalid mode %s", c.Mode)
	}
	return nil
}

// Recorder is safe for concurrent use. Its mutex guards the cassette and the
// consumed markers, and is never held while the transport is called.
type Recorder struct {
	transport http.RoundTripper
	mode      Mode
	effective Mode
	matcher   matcher.Matcher
	filters   *filter.Chain
	// ctx carries the caller's o11y provider to Close.
	ctx context.Context

	saveMu sync.Mutex

	mu       sync.Mutex
	cassette *cassette.Cassette
	consumed []bool
	recorded int
}

// New validates cfg and loads the cassette. In ModeOnce the decision between
// recording and replaying is taken here, from whether the cassette is empty.
func New(ctx context.Context, cfg Config) (r *Recorder, err error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	r = &Recorder{
		transport: cfg.Transport,
		mode:      cfg.Mode,
		effective: cfg.Mode,
		matcher:   cfg.Matcher,
		filters:   cfg.Filters,
		ctx:       valueonly.Context{Context: ctx},
	}
	if r.matcher == nil {
		r.matcher = matcher.Default()
	}
	if r.filters == nil {
		r.filters = filter.NewChain()
	}
	if cfg.Mode == ModeNone {
		return r, nil
	}

	ctx, span := o11y.StartSpan(ctx, "vcr: load cassette")
	defer o11y.End(span, &err)
	span.AddRawField("vcr.mode", cfg.Mode.String())
	span.AddField("path", cfg.Path)

	r.cassette, err = cassette.LoadOrNew(cfg.Path, cfg.Format)
	if err != nil {
		return nil, err
	}
	r.consumed = make([]bool, r.cassette.Len())

	if cfg.Mode == ModeOnce {
		r.effective = ModeReplay
		if r.cassette.Len() == 0 {
			r.effective = ModeRecord
		}
	}
	span.AddRawField("vcr.effective_mode", r.effective.String())
	span.AddField("interactions", r.cassette.Len())
	span.AddField("format", r.cassette.Format.String())
	if r.effective == ModeReplay && r.cassette.Len() == 0 {
		o11y.Log(ctx, "vcr: replaying from an empty cassette", o11y.Field("path", cfg.Path))
	}
	return r, nil
}

// Mode returns the configured mode.
func (r *Recorder) Mode() Mode {
	return r.mode
}

// Recording reports whether misses are sent to the transport and recorded.
func (r *Recorder) Recording() bool {
	return r.effective == ModeRecord
}

// Len returns the number of interactions in the cassette, including those
// recorded in this session.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cassette == nil {
		return 0
	}
	return r.cassette.Len()
}

// Interactions returns a copy of the cassette contents.
func (r *Recorder) Interactions() []cassette.Interaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cassette == nil {
		return nil
	}
	return r.cassette.Clone().Interactions
}

func (r *Recorder) RoundTrip(req *http.Request) (res *http.Response, err error) {
	ctx, span := o11y.StartSpan(req.Context(), "vcr: "+req.Method)
	defer o11y.End(span, &err)
	span.AddRawField("vcr.mode", r.mode.String())
	span.AddRawField("http.method", req.Method)
	span.AddRawField("http.url", req.URL.String())

	result := "miss"
	defer func() {
		span.AddRawField("vcr.result", result)
		o11y.Count(ctx, "vcr.round_trip", 1, "mode:"+r.mode.String(), "result:"+result)
	}()

	if r.effective == ModeNone {
		result = "passthrough"
		res, err = r.transport.RoundTrip(req)
		if err != nil {
			return nil, &TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
		}
		return res, nil
	}

	body, err := drain(req)
	if err != nil {
		return nil, fmt.Errorf("vcr: reading request body: %w", err)
	}
	incoming := cassette.NewRequest(req, body)

	if rec, ok := r.lookup(ctx, incoming); ok {
		result = "replayed"
		return rec.HTTPResponse(req), nil
	}
	if r.effective != ModeRecord {
		return nil, noMatch(incoming.Method, incoming.URL, r.effective)
	}

	res, err = r.record(ctx, req, incoming)
	if err != nil {
		return nil, err
	}
	result = "recorded"
	return res, nil
}

// lookup marks and returns the first unconsumed interaction matching req.
func (r *Recorder) lookup(ctx context.Context, req cassette.Request) (cassette.Response, bool) {
	filtered := r.filters.ApplyRequest(ctx, req)

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, in := range r.cassette.Interactions {
		if r.consumed[i] {
			continue
		}
		// recordings are stored filtered, but may have been made without filters
		if r.matcher.Match(filtered, in.Request) || r.matcher.Match(req, in.Request) {
			r.consumed[i] = true
			return in.Response.Clone(), true
		}
	}
	return cassette.Response{}, false
}

func (r *Recorder) record(ctx context.Context, req *http.Request, incoming cassette.Request) (*http.Response, error) {
	out := req.Clone(ctx)
	setBody(out, incoming.Body)

	res, err := r.transport.RoundTrip(out)
	if err != nil {
		return nil, &TransportError{Method: incoming.Method, URL: incoming.URL, Err: err}
	}

	body, err := readAll(res.Body)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, &TransportError{Method: incoming.Method, URL: incoming.URL, Err: err}
	}

	in := cassette.Interaction{
		Request:  incoming,
		Response: cassette.NewResponse(res, body),
	}
	filtered := r.filters.Apply(ctx, in)

	r.mu.Lock()
	r.cassette.Append(filtered)
	r.consumed = append(r.consumed, true)
	r.recorded++
	r.mu.Unlock()

	res.Body = io.NopCloser(bytes.NewReader(body))
	res.ContentLength = int64(len(body))
	return res, nil
}

// Save writes the whole cassette to disk. It is a no-op in ModeNone.
func (r *Recorder) Save(ctx context.Context) (err error) {
	if r.cassette == nil {
		return nil
	}
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.mu.Lock()
	snapshot := r.cassette.Clone()
	r.mu.Unlock()

	_, span := o11y.StartSpan(ctx, "vcr: save cassette")
	defer o11y.End(span, &err)
	span.AddField("path", snapshot.Path)
	span.AddField("interactions", snapshot.Len())

	return cassette.Save(snapshot)
}

// Close saves the cassette if this session recorded anything.
func (r *Recorder) Close() error {
	r.mu.Lock()
	dirty := r.recorded > 0
	r.mu.Unlock()
	if !dirty || !r.Recording() {
		return nil
	}
	return r.Save(r.ctx)
}

// drain reads and closes the request body. The request is not modified.
func drain(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	return readAll(req.Body)
}

func readAll(rc io.ReadCloser) (b []byte, err error) {
	defer closer.ErrorHandler(rc, &err)
	return io.ReadAll(rc)
}

func setBody(req *http.Request, body []byte) {
	if len(body) == 0 {
		req.Body = http.NoBody
		req.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.ContentLength = int64(len(body))
}
