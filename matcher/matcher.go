// Package matcher decides whether an incoming request corresponds to a
// recorded one.
package matcher

import (
	"bytes"
	"net"
	"net/http"
	"net/url"
	"strings"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"golang.org/x/net/idna"

	"github.com/circleci/httpvcr/cassette"
)

// Matcher must be safe for concurrent use and must not modify its arguments.
type Matcher interface {
	Match(incoming, recorded cassette.Request) bool
}

// Config selects the request fields compared by a field matcher.
type Config struct {
	Method bool
	URL    bool
	// URLNormalize compares URLs after lower casing scheme and host, IDNA
	// encoding the host, dropping default ports and sorting query parameters.
	URLNormalize bool
	// Headers are compared by name case-insensitively and by their ordered
	// values. A header absent from both requests matches.
	Headers []string
	Body    bool
}

type Option func(*Config)

// WithHeaders adds headers to compare.
func WithHeaders(names ...string) Option {
	return func(c *Config) {
		c.Headers = append(c.Headers, names...)
	}
}

func WithBody() Option {
	return func(c *Config) {
		c.Body = true
	}
}

func WithoutMethod() Option {
	return func(c *Config) {
		c.Method = false
	}
}

func WithoutURL() Option {
	return func(c *Config) {
		c.URL = false
	}
}

func WithNormalizedURL() Option {
	return func(c *Config) {
		c.URL = true
		c.URLNormalize = true
	}
}

// Default compares method and URL only, adjusted by opts.
func Default(opts ...Option) *Fields {
	cfg := Config{Method: true, URL: true}
	for _, o := range opts {
		o(&cfg)
	}
	return New(cfg)
}

// Fields matches the fields chosen by its Config.
type Fields struct {
	cfg         Config
	headerNames []string
	headerOpt   gocmp.Option
}

func New(cfg Config) *Fields {
	names := make([]string, 0, len(cfg.Headers))
	for _, h := range cfg.Headers {
		names = append(names, http.CanonicalHeaderKey(h))
	}
	cfg.Headers = names
	return &Fields{
		cfg:         cfg,
		headerNames: names,
		headerOpt:   onlyHeaders(names...),
	}
}

func (f *Fields) Match(incoming, recorded cassette.Request) bool {
	if f.cfg.Method && incoming.Method != recorded.Method {
		return false
	}
	if f.cfg.URL && !urlsEqual(incoming.URL, recorded.URL, f.cfg.URLNormalize) {
		return false
	}
	if len(f.headerNames) > 0 && !gocmp.Equal(canonical(incoming.Headers), canonical(recorded.Headers), f.headerOpt, cmpopts.EquateEmpty()) {
		return false
	}
	if f.cfg.Body && !bytes.Equal(incoming.Body, recorded.Body) {
		return false
	}
	return true
}

// Exact requires method, URL, every header and the body to be identical.
func Exact() Matcher {
	return exact{}
}

type exact struct{}

func (exact) Match(incoming, recorded cassette.Request) bool {
	return incoming.Method == recorded.Method &&
		incoming.URL == recorded.URL &&
		bytes.Equal(incoming.Body, recorded.Body) &&
		gocmp.Equal(canonical(incoming.Headers), canonical(recorded.Headers), cmpopts.EquateEmpty())
}

// Func adapts an ordinary function into a Matcher.
type Func func(incoming, recorded cassette.Request) bool

func (f Func) Match(incoming, recorded cassette.Request) bool {
	return f(incoming, recorded)
}

func onlyHeaders(headers ...string) gocmp.Option {
	return cmpopts.IgnoreMapEntries(func(h string, _ []string) bool {
		for _, header := range headers {
			if header == h {
				return false
			}
		}
		return true
	})
}

func canonical(h http.Header) map[string][]string {
	out := make(map[string][]string, len(h))
	for k, v := range h {
		ck := http.CanonicalHeaderKey(k)
		out[ck] = append(out[ck], v...)
	}
	return out
}

func urlsEqual(a, b string, normalize bool) bool {
	if a == b {
		return true
	}
	if !normalize {
		return false
	}
	return normalizeURL(a) == normalizeURL(b)
}

func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	// IP literals are not valid IDNA input and are kept as is.
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	switch {
	case port != "":
		host = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		host = "[" + host + "]"
	}
	u.Host = host
	if u.Path == "" {
		u.Path = "/"
	}
	u.RawPath = ""
	if u.RawQuery != "" {
		u.RawQuery = u.Query().Encode()
	}
	return u.String()
}
