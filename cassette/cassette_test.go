package cassette

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestIsText(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		want bool
	}{
		{name: "json", body: []byte(`{"a": [1, 2]}`), want: true},
		{name: "whitespace", body: []byte("a\tb\r\nc"), want: true},
		{name: "unicode", body: []byte("héllo wörld ✓"), want: true},
		{name: "nul", body: []byte("a\x00b"), want: false},
		{name: "escape", body: []byte("\x1b[31mred"), want: false},
		{name: "invalid utf8", body: []byte{0xff, 0xfe}, want: false},
		{name: "bom", body: []byte("\xef\xbb\xbfhello"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Check(t, cmp.Equal(isText(tt.body), tt.want))
		})
	}
}

func TestEncodeBody(t *testing.T) {
	text, b64 := encodeBody(nil)
	assert.Check(t, text == nil && b64 == nil)

	text, b64 = encodeBody([]byte("plain"))
	assert.Assert(t, text != nil)
	assert.Check(t, b64 == nil)
	assert.Check(t, cmp.Equal(string(*text), "plain"))

	text, b64 = encodeBody([]byte{0, 1, 2})
	assert.Check(t, text == nil)
	assert.Assert(t, b64 != nil)
	assert.Check(t, cmp.Equal(*b64, "AAEC"))

	b, err := decodeBody(nil, b64)
	assert.Assert(t, err)
	assert.Check(t, cmp.DeepEqual(b, []byte{0, 1, 2}))
}

func TestNeedsQuotes(t *testing.T) {
	tests := map[string]bool{
		"":                 false,
		"plain":            false,
		"created\nline two": false,
		"line\n":           false,
		"\n":               true,
		"\na":              true,
		" lead":            true,
		"trail  ":          true,
		"a\n\n":            true,
		"a\r\nb":           true,
	}
	for in, want := range tests {
		assert.Check(t, cmp.Equal(needsQuotes(in), want), "%q", in)
	}
}

func TestCassette_AppendCopies(t *testing.T) {
	c := New("x.yaml", FormatFile)
	in := Interaction{
		Request:  Request{Method: "GET", URL: "http://a/", Headers: http.Header{"A": {"1"}}, Body: []byte("req")},
		Response: Response{Status: 200, Body: []byte("res")},
	}
	c.Append(in)
	in.Request.Headers.Set("A", "2")
	in.Request.Body[0] = 'X'

	assert.Check(t, cmp.Equal(c.Interactions[0].Request.Headers.Get("A"), "1"))
	assert.Check(t, cmp.Equal(string(c.Interactions[0].Request.Body), "req"))
	assert.Check(t, c.Interactions[0].Response.Headers != nil)

	clone := c.Clone()
	clone.Interactions[0].Response.Body[0] = 'X'
	assert.Check(t, cmp.Equal(string(c.Interactions[0].Response.Body), "res"))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"":          FormatAuto,
		"auto":      FormatAuto,
		"File":      FormatFile,
		"directory": FormatDirectory,
		"dir":       FormatDirectory,
	} {
		got, err := ParseFormat(in)
		assert.Check(t, err)
		assert.Check(t, cmp.Equal(got, want))
	}

	_, err := ParseFormat("tar")
	assert.Check(t, cmp.ErrorContains(err, `unknown cassette format "tar"`))

	var f Format
	assert.Check(t, f.UnmarshalText([]byte("directory")))
	assert.Check(t, cmp.Equal(f, FormatDirectory))
}

func TestNewRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "https://example.com/a?b=c", strings.NewReader("ignored"))
	r.Header.Set("Accept", "text/plain")

	req := NewRequest(r, []byte("body"))
	assert.Check(t, cmp.Equal(req.Method, "POST"))
	assert.Check(t, cmp.Equal(req.URL, "https://example.com/a?b=c"))
	assert.Check(t, cmp.Equal(req.Headers.Get("Accept"), "text/plain"))
	assert.Check(t, cmp.Equal(string(req.Body), "body"))
	assert.Check(t, cmp.Equal(req.Version, "HTTP/1.1"))

	r.Header.Set("Accept", "changed")
	assert.Check(t, cmp.Equal(req.Headers.Get("Accept"), "text/plain"))
}

func TestResponse_HTTPResponse(t *testing.T) {
	rec := Response{
		Status:  404,
		Headers: http.Header{"Content-Type": {"text/plain"}},
		Body:    []byte("not here"),
		Version: "HTTP/2.0",
	}
	req := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)

	res := rec.HTTPResponse(req)
	assert.Check(t, cmp.Equal(res.StatusCode, 404))
	assert.Check(t, cmp.Equal(res.Status, "404 Not Found"))
	assert.Check(t, cmp.Equal(res.ProtoMajor, 2))
	assert.Check(t, cmp.Equal(res.ContentLength, int64(8)))
	assert.Check(t, res.Request == req)

	b, err := io.ReadAll(res.Body)
	assert.Assert(t, err)
	assert.Check(t, cmp.Equal(string(b), "not here"))

	res.Header.Set("Content-Type", "mutated")
	assert.Check(t, cmp.Equal(rec.Headers.Get("Content-Type"), "text/plain"))

	t.Run("Unknown version", func(t *testing.T) {
		res := Response{Status: 599}.HTTPResponse(req)
		assert.Check(t, cmp.Equal(res.Proto, "HTTP/1.1"))
		assert.Check(t, cmp.Equal(res.Status, "599"))
	})

	t.Run("Non canonical header names", func(t *testing.T) {
		rec := Response{
			Status: 200,
			Headers: http.Header{
				"content-type": {"application/json"},
				"Set-Cookie":   {"a=1"},
				"set-cookie":   {"b=2"},
			},
		}
		res := rec.HTTPResponse(req)
		assert.Check(t, cmp.Equal(res.Header.Get("Content-Type"), "application/json"))
		assert.Check(t, cmp.DeepEqual(res.Header.Values("Set-Cookie"), []string{"a=1", "b=2"}))
		assert.Check(t, cmp.Len(res.Header, 2))
		assert.Check(t, cmp.DeepEqual(rec.Headers["content-type"], []string{"application/json"}))
	})
}
