// Package fieldpath addresses values inside an interaction with dotted paths
// such as request.method or response.headers.Content-Type[0].
package fieldpath

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/circleci/httpvcr/cassette"
)

var ErrNotFound = errors.New("field not found")

// Document returns the interaction as nested maps and slices, the shape the
// paths address. Bodies are strings when they are valid UTF-8 and base64
// under body_base64 otherwise.
func Document(in cassette.Interaction) map[string]interface{} {
	req := map[string]interface{}{
		"method":  in.Request.Method,
		"url":     in.Request.URL,
		"headers": headers(in.Request.Headers),
	}
	body(req, in.Request.Body)
	if in.Request.Version != "" {
		req["version"] = in.Request.Version
	}

	res := map[string]interface{}{
		"status":  in.Response.Status,
		"headers": headers(in.Response.Headers),
	}
	body(res, in.Response.Body)
	if in.Response.Version != "" {
		res["version"] = in.Response.Version
	}

	return map[string]interface{}{
		"request":  req,
		"response": res,
	}
}

func headers(h map[string][]string) map[string]interface{} {
	m := make(map[string]interface{}, len(h))
	for k, vs := range h {
		l := make([]interface{}, len(vs))
		for i, v := range vs {
			l[i] = v
		}
		m[k] = l
	}
	return m
}

func body(m map[string]interface{}, b []byte) {
	switch {
	case b == nil:
	case utf8.Valid(b):
		m["body"] = string(b)
	default:
		m["body_base64"] = base64.StdEncoding.EncodeToString(b)
	}
}

// Segment is one step of a path, either a map key or a slice index.
type Segment struct {
	Key   string
	Index int
	IsIdx bool
}

func (s Segment) String() string {
	switch {
	case s.IsIdx:
		return "[" + strconv.Itoa(s.Index) + "]"
	case needsQuotes(s.Key):
		return "[" + strconv.Quote(s.Key) + "]"
	}
	return s.Key
}

// Parse splits a path into segments. Keys are separated by dots and indexes
// follow a key in brackets, so a.b[0][1].c is valid. Keys holding dots or
// brackets are written quoted in brackets: response.headers["X.Trace"][0].
func Parse(path string) ([]Segment, error) {
	if path == "" {
		return nil, errors.New("empty field path")
	}
	bad := func(reason string) error {
		return fmt.Errorf("invalid field path %q: %s", path, reason)
	}

	var segs []Segment
	rest := path
	for first := true; rest != ""; first = false {
		switch {
		case rest[0] == '[':
			seg, n, err := bracket(rest)
			if err != nil {
				return nil, bad(err.Error())
			}
			if first && seg.IsIdx {
				return nil, bad("starts with an index")
			}
			segs = append(segs, seg)
			rest = rest[n:]
			continue
		case rest[0] == '.' && !first:
			rest = rest[1:]
		case !first:
			return nil, bad("expected . or [ after " + segs[len(segs)-1].String())
		}
		n := strings.IndexAny(rest, ".[")
		if n < 0 {
			n = len(rest)
		}
		if n == 0 {
			return nil, bad("empty key")
		}
		segs = append(segs, Segment{Key: rest[:n]})
		rest = rest[n:]
	}
	return segs, nil
}

// bracket parses a leading [N] or ["key"] and returns its length.
func bracket(s string) (Segment, int, error) {
	if strings.HasPrefix(s, `["`) {
		q, err := strconv.QuotedPrefix(s[1:])
		if err != nil {
			return Segment{}, 0, fmt.Errorf("bad quoted key in %q", s)
		}
		end := 1 + len(q)
		if end >= len(s) || s[end] != ']' {
			return Segment{}, 0, fmt.Errorf("missing ] after %s", q)
		}
		key, err := strconv.Unquote(q)
		if err != nil {
			return Segment{}, 0, fmt.Errorf("bad quoted key %s", q)
		}
		return Segment{Key: key}, end + 1, nil
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return Segment{}, 0, fmt.Errorf("bad index in %q", s)
	}
	n, err := strconv.Atoi(s[1:end])
	if err != nil || n < 0 {
		return Segment{}, 0, fmt.Errorf("bad index in %q", s[:end+1])
	}
	return Segment{Index: n, IsIdx: true}, end + 1, nil
}

func needsQuotes(key string) bool {
	return key == "" || strings.ContainsAny(key, `.[]"`)
}

// Lookup returns the value at path in doc. Map keys are matched exactly,
// then case insensitively, so header names need not be canonical.
func Lookup(doc map[string]interface{}, path string) (interface{}, error) {
	segs, err := Parse(path)
	if err != nil {
		return nil, err
	}
	var cur interface{} = doc
	for _, s := range segs {
		switch v := cur.(type) {
		case map[string]interface{}:
			if s.IsIdx {
				return nil, fmt.Errorf("field %q is not an array", path)
			}
			next, ok := lookupKey(v, s.Key)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrNotFound, s.Key)
			}
			cur = next
		case []interface{}:
			if !s.IsIdx {
				return nil, fmt.Errorf("field %q: %q is applied to an array", path, s.Key)
			}
			if s.Index >= len(v) {
				return nil, fmt.Errorf("field %q: index %d out of bounds (length %d)", path, s.Index, len(v))
			}
			cur = v[s.Index]
		default:
			return nil, fmt.Errorf("%w: %q has no field %s", ErrNotFound, path, s)
		}
	}
	return cur, nil
}

func lookupKey(m map[string]interface{}, key string) (interface{}, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// Paths lists every path in doc, containers included, in sorted order.
func Paths(doc map[string]interface{}) []string {
	var out []string
	walk("", doc, &out)
	sort.Strings(out)
	return out
}

func walk(prefix string, v interface{}, out *[]string) {
	switch v := v.(type) {
	case map[string]interface{}:
		for k, child := range v {
			var p string
			switch {
			case needsQuotes(k):
				p = prefix + Segment{Key: k}.String()
			case prefix == "":
				p = k
			default:
				p = prefix + "." + k
			}
			*out = append(*out, p)
			walk(p, child, out)
		}
	case []interface{}:
		for i, child := range v {
			p := prefix + "[" + strconv.Itoa(i) + "]"
			*out = append(*out, p)
			walk(p, child, out)
		}
	}
}
