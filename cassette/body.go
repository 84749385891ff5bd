package cassette

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// textBody is an inline text body. Block scalars drop a leading line break
// and fold CR LF pairs, so such bodies are written double quoted.
type textBody string

func (t textBody) MarshalYAML() (interface{}, error) {
	s := string(t)
	if !needsQuotes(s) {
		return s, nil
	}
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
		Value: s,
		Style: yaml.DoubleQuotedStyle,
	}, nil
}

// needsQuotes reports whether s would not survive a block or plain scalar:
// leading or trailing whitespace other than one final line break, or any CR.
func needsQuotes(s string) bool {
	const ws = " \t\n\r"
	n := len(s)
	switch {
	case n == 0:
		return false
	case strings.ContainsRune(s, '\r'):
		return true
	case strings.IndexByte(ws, s[0]) >= 0:
		return true
	case s[n-1] == '\n':
		return n < 2 || strings.IndexByte(ws, s[n-2]) >= 0
	}
	return strings.IndexByte(ws, s[n-1]) >= 0
}

// isText reports whether b can be stored verbatim in a YAML string, that is
// valid UTF-8 with no control characters other than tab, CR and LF.
func isText(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
		case r < 0x20 || r == 0x7f:
			return false
		case r >= 0x80 && r <= 0x9f:
			return false
		case r == '\ufeff':
			return false
		}
	}
	return true
}

// encodeBody returns exactly one of text or b64 for a non-empty body.
func encodeBody(b []byte) (text *textBody, b64 *string) {
	if len(b) == 0 {
		return nil, nil
	}
	if isText(b) {
		s := textBody(b)
		return &s, nil
	}
	s := encodeBase64(b)
	return nil, &s
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decodeBody(text *textBody, b64 *string) ([]byte, error) {
	switch {
	case text != nil && b64 != nil:
		return nil, malformed("both body and body_base64 set")
	case text != nil:
		return bodyBytes([]byte(*text)), nil
	case b64 != nil:
		return decodeBase64(*b64)
	}
	return nil, nil
}

func decodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, malformed("invalid base64 body: %v", err)
	}
	return bodyBytes(b), nil
}

func bodyBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
