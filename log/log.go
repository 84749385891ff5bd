// Package log is an o11y.Provider that writes each finished span as a JSON
// document, intended for local development and tests.
package log

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/google/uuid"

	"github.com/circleci/httpvcr/o11y"
)

type Config struct {
	// Writer receives one JSON document per span, defaults to os.Stdout
	Writer io.Writer
	// Metrics is returned from MetricsProvider, defaults to a statsd noop client
	Metrics o11y.MetricsProvider
	// Indent pretty prints the documents
	Indent bool
}

type logKey struct{}

type Provider struct {
	mu      sync.Mutex
	w       io.Writer
	indent  bool
	metrics o11y.MetricsProvider
	global  map[string]interface{}
}

func New(cfg Config) *Provider {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &statsd.NoOpClient{}
	}
	return &Provider{
		w:       cfg.Writer,
		indent:  cfg.Indent,
		metrics: cfg.Metrics,
		global:  map[string]interface{}{},
	}
}

var _ o11y.Provider = (*Provider)(nil)

type span struct {
	p        *Provider
	name     string
	traceID  uuid.UUID
	id       uuid.UUID
	parentID uuid.UUID
	started  time.Time

	mu     sync.Mutex
	fields map[string]interface{}
}

func (s *span) AddField(key string, val interface{}) {
	s.AddRawField("app."+key, val)
}

func (s *span) AddRawField(key string, val interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := val.(error); ok {
		val = err.Error()
	}
	s.fields[key] = val
}

func (s *span) End() {
	s.mu.Lock()
	fields := make(map[string]interface{}, len(s.fields))
	for k, v := range s.fields {
		fields[k] = v
	}
	s.mu.Unlock()
	s.p.send(event{
		Name:     s.name,
		ID:       s.id,
		TraceID:  s.traceID,
		ParentID: s.parentID,
		Started:  s.started,
		Duration: time.Since(s.started),
		Fields:   fields,
	})
}

type event struct {
	Name     string                 `json:"name"`
	ID       uuid.UUID              `json:"id"`
	TraceID  uuid.UUID              `json:"trace_id"`
	ParentID uuid.UUID              `json:"parent_id"`
	Started  time.Time              `json:"started"`
	Duration time.Duration          `json:"duration"`
	Fields   map[string]interface{} `json:"fields"`
}

func (p *Provider) send(ev event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, v := range p.global {
		if _, ok := ev.Fields[k]; !ok {
			ev.Fields[k] = v
		}
	}
	e := json.NewEncoder(p.w)
	if p.indent {
		e.SetIndent("", "  ")
	}
	_ = e.Encode(ev) // who cares if we fail
}

func (p *Provider) AddGlobalField(key string, val interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.global[key] = val
}

func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, o11y.Span) {
	parent := getSpan(ctx)
	s := &span{
		p:       p,
		name:    name,
		id:      uuid.New(),
		started: time.Now(),
		fields:  map[string]interface{}{},
	}
	if parent == nil {
		s.traceID = uuid.New()
	} else {
		s.parentID = parent.id
		s.traceID = parent.traceID
	}
	return context.WithValue(ctx, logKey{}, s), s
}

func (p *Provider) GetSpan(ctx context.Context) o11y.Span {
	if s := getSpan(ctx); s != nil {
		return s
	}
	return nil
}

func getSpan(ctx context.Context) *span {
	if s, ok := ctx.Value(logKey{}).(*span); ok {
		return s
	}
	return nil
}

func (p *Provider) AddField(ctx context.Context, key string, val interface{}) {
	if s := getSpan(ctx); s != nil {
		s.AddField(key, val)
	}
}

func (p *Provider) Log(ctx context.Context, name string, fields ...o11y.Pair) {
	_, s := p.StartSpan(ctx, name)
	for _, f := range fields {
		s.AddField(f.Key, f.Value)
	}
	s.End()
}

func (p *Provider) Close(context.Context) {
	if c, ok := p.metrics.(io.Closer); ok {
		_ = c.Close()
	}
}

func (p *Provider) MetricsProvider() o11y.MetricsProvider {
	return p.metrics
}

// Enabled reports whether an env style switch turns logging on. Anything
// other than an explicit off value enables it.
func Enabled(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "off", "none", "false", "0":
		return false
	}
	return true
}
