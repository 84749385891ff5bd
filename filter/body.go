package filter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/circleci/httpvcr/cassette"
)

// SensitiveKeys are removed from JSON bodies by Body.RemoveSensitiveKeys.
var SensitiveKeys = []string{
	"password",
	"token",
	"api_key",
	"secret",
	"access_token",
	"refresh_token",
	"client_secret",
}

// Body edits request and response bodies. JSON bodies have keys removed or
// replaced at any depth. Other text bodies get the regex replacements. Binary
// bodies are left alone.
type Body struct {
	remove  []string
	replace []keyReplacement
	regexps []regexReplacement
}

type keyReplacement struct {
	key   string
	value string
}

type regexReplacement struct {
	re   *regexp.Regexp
	repl string
}

func NewBody() *Body {
	return &Body{}
}

func (b *Body) RemoveKey(keys ...string) *Body {
	b.remove = append(b.remove, keys...)
	return b
}

// ReplaceKey sets the value of every existing key to the string value.
func (b *Body) ReplaceKey(key, value string) *Body {
	b.replace = append(b.replace, keyReplacement{key: key, value: value})
	return b
}

// ReplaceRegex replaces matches of pattern in non JSON text bodies. repl may
// use the $1 expansion syntax of regexp.Regexp.ReplaceAll.
func (b *Body) ReplaceRegex(pattern, repl string) (*Body, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("body filter: %w", err)
	}
	b.regexps = append(b.regexps, regexReplacement{re: re, repl: repl})
	return b, nil
}

func (b *Body) RemoveSensitiveKeys() *Body {
	return b.RemoveKey(SensitiveKeys...)
}

func (b *Body) Filter(req *cassette.Request, res *cassette.Response) (err error) {
	req.Body, err = b.filter(req.Body)
	if err != nil {
		return fmt.Errorf("request body: %w", err)
	}
	res.Body, err = b.filter(res.Body)
	if err != nil {
		return fmt.Errorf("response body: %w", err)
	}
	return nil
}

var errInvalidJSON = errors.New("filtered body is not valid JSON")

func (b *Body) filter(body []byte) ([]byte, error) {
	if len(body) == 0 || !utf8.Valid(body) {
		return body, nil
	}

	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&v); err == nil && !dec.More() {
		if !b.editJSON(v) {
			return body, nil
		}
		return encodeJSON(v)
	}

	for _, r := range b.regexps {
		body = r.re.ReplaceAll(body, []byte(r.repl))
	}
	return body, nil
}

// editJSON applies the key edits to v in place, reporting whether anything changed.
func (b *Body) editJSON(v interface{}) (changed bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		for _, k := range b.remove {
			if _, ok := t[k]; ok {
				delete(t, k)
				changed = true
			}
		}
		for _, r := range b.replace {
			if _, ok := t[r.key]; ok {
				t[r.key] = r.value
				changed = true
			}
		}
		for _, child := range t {
			if b.editJSON(child) {
				changed = true
			}
		}
	case []interface{}:
		for _, child := range t {
			if b.editJSON(child) {
				changed = true
			}
		}
	}
	return changed
}

func encodeJSON(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	e := json.NewEncoder(buf)
	e.SetEscapeHTML(false)
	if err := e.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	if !json.Valid(out) {
		return nil, errInvalidJSON
	}
	return out, nil
}
