package cassette

import (
	"net/http"
)

// MetadataFile is the document name inside a directory format cassette.
const MetadataFile = "interactions.yaml"

// BodiesDir is the directory holding body files inside a directory format cassette.
const BodiesDir = "bodies"

// document is the YAML schema shared by both formats. Single file cassettes
// embed bodies via Body or BodyBase64, directory cassettes reference them via BodyFile.
type document struct {
	Interactions []docInteraction `yaml:"interactions"`
}

type docInteraction struct {
	Request  docRequest  `yaml:"request"`
	Response docResponse `yaml:"response"`
}

type docRequest struct {
	Method     string              `yaml:"method"`
	URL        string              `yaml:"url"`
	Headers    map[string][]string `yaml:"headers"`
	Body       *textBody           `yaml:"body,omitempty"`
	BodyBase64 *string             `yaml:"body_base64,omitempty"`
	BodyFile   string              `yaml:"body_file,omitempty"`
	Version    string              `yaml:"version"`
}

type docResponse struct {
	Status     int                 `yaml:"status"`
	Headers    map[string][]string `yaml:"headers"`
	Body       *textBody           `yaml:"body,omitempty"`
	BodyBase64 *string             `yaml:"body_base64,omitempty"`
	BodyFile   string              `yaml:"body_file,omitempty"`
	Version    string              `yaml:"version"`
}

func toDocHeaders(h http.Header) map[string][]string {
	m := make(map[string][]string, len(h))
	for k, v := range h {
		m[k] = append([]string(nil), v...)
	}
	return m
}

func fromDocHeaders(m map[string][]string) http.Header {
	h := make(http.Header, len(m))
	for k, v := range m {
		h[k] = append([]string{}, v...)
	}
	return h
}

// inline converts an interaction to its single file representation.
func inline(in Interaction) docInteraction {
	var d docInteraction
	d.Request = docRequest{
		Method:  in.Request.Method,
		URL:     in.Request.URL,
		Headers: toDocHeaders(in.Request.Headers),
		Version: in.Request.Version,
	}
	d.Request.Body, d.Request.BodyBase64 = encodeBody(in.Request.Body)
	d.Response = docResponse{
		Status:  in.Response.Status,
		Headers: toDocHeaders(in.Response.Headers),
		Version: in.Response.Version,
	}
	d.Response.Body, d.Response.BodyBase64 = encodeBody(in.Response.Body)
	return d
}

// resolve converts a decoded document entry back into an interaction, body
// file references are loaded with readFile.
func resolve(idx int, d docInteraction, readFile func(name string) ([]byte, error)) (in Interaction, err error) {
	if d.Request.Method == "" {
		return in, malformed("interaction %d: request has no method", idx+1)
	}
	if d.Response.Status < 100 || d.Response.Status > 999 {
		return in, malformed("interaction %d: response status %d out of range", idx+1, d.Response.Status)
	}

	in.Request = Request{
		Method:  d.Request.Method,
		URL:     d.Request.URL,
		Headers: fromDocHeaders(d.Request.Headers),
		Version: d.Request.Version,
	}
	in.Request.Body, err = resolveBody(d.Request.Body, d.Request.BodyBase64, d.Request.BodyFile, readFile)
	if err != nil {
		return in, err
	}

	in.Response = Response{
		Status:  d.Response.Status,
		Headers: fromDocHeaders(d.Response.Headers),
		Version: d.Response.Version,
	}
	in.Response.Body, err = resolveBody(d.Response.Body, d.Response.BodyBase64, d.Response.BodyFile, readFile)
	return in, err
}

func resolveBody(text *textBody, b64 *string, file string, readFile func(string) ([]byte, error)) ([]byte, error) {
	if file == "" {
		return decodeBody(text, b64)
	}
	if text != nil || b64 != nil {
		return nil, malformed("body_file %q set alongside an inline body", file)
	}
	if readFile == nil {
		return nil, malformed("body_file %q in a single file cassette", file)
	}
	return readFile(file)
}
