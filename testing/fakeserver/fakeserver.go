/*
Package fakeserver provides an httptest server that records every request it
receives and serves scripted responses. It is used to assert whether a real
transport was invoked, and how often.
*/
package fakeserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/circleci/httpvcr/o11y"
)

type Request struct {
	Method string
	URL    url.URL
	Header http.Header
	Body   []byte
}

func (r *Request) StringBody() string {
	return string(r.Body)
}

// Decode decodes the JSON from the request into the supplied pointer
func (r *Request) Decode(x interface{}) error {
	return json.Unmarshal(r.Body, x)
}

// Response is a scripted reply.
type Response struct {
	Status int
	Header http.Header
	Body   string
	// Drop closes the connection without replying, so the client sees a
	// transport error.
	Drop bool
}

type Server struct {
	URL string

	srv *httptest.Server

	mu        sync.RWMutex
	requests  []Request
	responses map[string]Response
}

// New starts a server that is closed when the test ends. Unscripted requests
// get a 200 whose body names the request and its hit number, so every real
// response is distinguishable.
func New(ctx context.Context, t testing.TB) *Server {
	t.Helper()
	s := &Server{
		responses: map[string]Response{},
	}
	s.srv = httptest.NewServer(s.middleware(ctx, http.HandlerFunc(s.serve)))
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)
	return s
}

// Handle scripts the response for method and path.
func (s *Server) Handle(method, path string, res Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[method+" "+path] = res
}

func (s *Server) middleware(ctx context.Context, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := s.record(r)
		if err != nil {
			o11y.LogError(ctx, "problem recording HTTP request", err)
		}
		h.ServeHTTP(w, r)
	})
}

// record stores a copy of the incoming request ensuring the body can still
// be consumed by the handler
func (s *Server) record(request *http.Request) (err error) {
	req := Request{
		Method: request.Method,
		URL:    *request.URL,
		Header: request.Header.Clone(),
	}
	req.Body, err = io.ReadAll(request.Body)
	if err != nil {
		return err
	}
	request.Body = io.NopCloser(bytes.NewReader(req.Body))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return nil
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	res, ok := s.responses[r.Method+" "+r.URL.Path]
	hits := len(s.requests)
	s.mu.RUnlock()

	if !ok {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprintf(w, "%s %s #%d", r.Method, r.URL.RequestURI(), hits)
		return
	}
	if res.Drop {
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				_ = conn.Close()
				return
			}
		}
		panic(http.ErrAbortHandler)
	}
	for k, v := range res.Header {
		w.Header()[k] = append([]string(nil), v...)
	}
	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, res.Body)
}

// Hits returns how many requests the server has received.
func (s *Server) Hits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requests)
}

func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func (s *Server) AllRequests() []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	requests := make([]Request, len(s.requests))
	copy(requests, s.requests)
	return requests
}

func (s *Server) LastRequest() *Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.requests) == 0 {
		return nil
	}
	req := s.requests[len(s.requests)-1]
	return &req
}

func (s *Server) FindRequests(method, path string) []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var requests []Request
	for _, req := range s.requests {
		if req.Method == method && req.URL.Path == path {
			requests = append(requests, req)
		}
	}
	return requests
}
