package matcher

import (
	"net/http"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/circleci/httpvcr/cassette"
)

func req(method, url string, h http.Header, body string) cassette.Request {
	if h == nil {
		h = http.Header{}
	}
	r := cassette.Request{Method: method, URL: url, Headers: h}
	if body != "" {
		r.Body = []byte(body)
	}
	return r
}

func TestDefault(t *testing.T) {
	recorded := req("GET", "https://api.example.com/users?id=1", http.Header{"Authorization": {"Bearer a"}}, "x")

	tests := []struct {
		name     string
		matcher  Matcher
		incoming cassette.Request
		want     bool
	}{
		{
			name:     "same method and url",
			matcher:  Default(),
			incoming: req("GET", "https://api.example.com/users?id=1", http.Header{"Authorization": {"Bearer b"}}, "y"),
			want:     true,
		},
		{
			name:     "different method",
			matcher:  Default(),
			incoming: req("POST", "https://api.example.com/users?id=1", nil, ""),
		},
		{
			name:     "different url",
			matcher:  Default(),
			incoming: req("GET", "https://api.example.com/users?id=2", nil, ""),
		},
		{
			name:     "method ignored",
			matcher:  Default(WithoutMethod()),
			incoming: req("DELETE", "https://api.example.com/users?id=1", nil, ""),
			want:     true,
		},
		{
			name:     "url ignored",
			matcher:  Default(WithoutURL()),
			incoming: req("GET", "https://other.example.com/", nil, ""),
			want:     true,
		},
		{
			name:     "header compared case-insensitively",
			matcher:  Default(WithHeaders("authorization")),
			incoming: req("GET", "https://api.example.com/users?id=1", http.Header{"authorization": {"Bearer a"}}, ""),
			want:     true,
		},
		{
			name:     "header value differs",
			matcher:  Default(WithHeaders("Authorization")),
			incoming: req("GET", "https://api.example.com/users?id=1", http.Header{"Authorization": {"Bearer b"}}, ""),
		},
		{
			name:     "header absent on one side",
			matcher:  Default(WithHeaders("Authorization")),
			incoming: req("GET", "https://api.example.com/users?id=1", nil, ""),
		},
		{
			name:     "header absent on both sides",
			matcher:  Default(WithHeaders("Cookie")),
			incoming: req("GET", "https://api.example.com/users?id=1", nil, ""),
			want:     true,
		},
		{
			name:     "body compared",
			matcher:  Default(WithBody()),
			incoming: req("GET", "https://api.example.com/users?id=1", nil, "y"),
		},
		{
			name:     "body equal",
			matcher:  Default(WithBody()),
			incoming: req("GET", "https://api.example.com/users?id=1", nil, "x"),
			want:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matcher.Match(tt.incoming, recorded), tt.want)
		})
	}
}

func TestDefault_HeaderValueOrder(t *testing.T) {
	m := Default(WithHeaders("Accept"))
	a := req("GET", "/", http.Header{"Accept": {"a", "b"}}, "")
	b := req("GET", "/", http.Header{"Accept": {"b", "a"}}, "")
	assert.Check(t, !m.Match(a, b))
	assert.Check(t, m.Match(a, a))
}

func TestNormalizedURL(t *testing.T) {
	m := Default(WithNormalizedURL())
	tests := []struct {
		a, b string
		want bool
	}{
		{a: "HTTPS://API.example.com:443/x?b=2&a=1", b: "https://api.example.com/x?a=1&b=2", want: true},
		{a: "http://example.com:80", b: "http://example.com/", want: true},
		{a: "http://example.com:8080/", b: "http://example.com/", want: false},
		{a: "http://[::1]:80/x", b: "http://[::1]/x", want: true},
		{a: "http://example.com/X", b: "http://example.com/x", want: false},
		{a: "https://Bücher.example/", b: "https://xn--bcher-kva.example/", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.a, func(t *testing.T) {
			assert.Equal(t, m.Match(req("GET", tt.a, nil, ""), req("GET", tt.b, nil, "")), tt.want)
		})
	}

	t.Run("Raw comparison without normalisation", func(t *testing.T) {
		assert.Check(t, !Default().Match(
			req("GET", "https://api.example.com/x?b=2&a=1", nil, ""),
			req("GET", "https://api.example.com/x?a=1&b=2", nil, ""),
		))
	})
}

func TestExact(t *testing.T) {
	base := req("POST", "https://example.com/", http.Header{"A": {"1"}}, "body")
	assert.Check(t, Exact().Match(base, req("POST", "https://example.com/", http.Header{"a": {"1"}}, "body")))
	assert.Check(t, !Exact().Match(base, req("POST", "https://example.com/", http.Header{"A": {"1"}, "B": {"2"}}, "body")))
	assert.Check(t, !Exact().Match(base, req("POST", "https://example.com/", http.Header{"A": {"1"}}, "other")))
	assert.Check(t, !Exact().Match(base, req("PUT", "https://example.com/", http.Header{"A": {"1"}}, "body")))
}

func TestFunc(t *testing.T) {
	calls := 0
	m := Func(func(incoming, recorded cassette.Request) bool {
		calls++
		return incoming.URL == recorded.URL+"?ok"
	})
	assert.Check(t, m.Match(req("GET", "/a?ok", nil, ""), req("GET", "/a", nil, "")))
	assert.Check(t, !m.Match(req("GET", "/a", nil, ""), req("GET", "/a", nil, "")))
	assert.Equal(t, calls, 2)
}

func TestMatch_DoesNotModifyArguments(t *testing.T) {
	h := http.Header{"x-lower": {"v"}}
	incoming := req("GET", "/", h, "")
	Exact().Match(incoming, incoming)
	Default(WithHeaders("X-Lower")).Match(incoming, incoming)
	_, ok := h["x-lower"]
	assert.Check(t, ok)
}
