// Package cassette holds recorded HTTP interactions and persists them either as
// a single YAML document or as a directory of metadata plus body files.
package cassette

import (
	"fmt"
	"net/http"
	"strings"
)

// Request is a recorded HTTP request. A nil Body means there was no body.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
	Version string
}

// Response is a recorded HTTP response.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
	Version string
}

type Interaction struct {
	Request  Request
	Response Response
}

func (r Request) Clone() Request {
	r.Headers = cloneHeader(r.Headers)
	r.Body = cloneBody(r.Body)
	return r
}

func (r Response) Clone() Response {
	r.Headers = cloneHeader(r.Headers)
	r.Body = cloneBody(r.Body)
	return r
}

func (i Interaction) Clone() Interaction {
	return Interaction{
		Request:  i.Request.Clone(),
		Response: i.Response.Clone(),
	}
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}

func cloneBody(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

// Cassette is an ordered sequence of interactions along with where and how it
// is stored. The position of an interaction is its index in Interactions.
type Cassette struct {
	Path         string
	Format       Format
	Interactions []Interaction
}

// New returns an empty cassette that will be saved at path in format f.
func New(path string, f Format) *Cassette {
	return &Cassette{
		Path:   path,
		Format: f,
	}
}

func (c *Cassette) Len() int {
	return len(c.Interactions)
}

// Append adds a copy of i to the end of the cassette.
func (c *Cassette) Append(i Interaction) {
	c.Interactions = append(c.Interactions, i.Clone())
}

// Clone returns a deep copy of the cassette.
func (c *Cassette) Clone() *Cassette {
	out := &Cassette{
		Path:   c.Path,
		Format: c.Format,
	}
	if len(c.Interactions) > 0 {
		out.Interactions = make([]Interaction, len(c.Interactions))
		for i, in := range c.Interactions {
			out.Interactions[i] = in.Clone()
		}
	}
	return out
}

// Format is the on-disk representation of a cassette.
type Format int

const (
	// FormatAuto detects the format of existing cassettes and uses FormatFile
	// for new ones.
	FormatAuto Format = iota
	FormatFile
	FormatDirectory
)

func (f Format) String() string {
	switch f {
	case FormatFile:
		return "file"
	case FormatDirectory:
		return "directory"
	}
	return "auto"
}

// ParseFormat parses the names produced by Format.String, the empty string is FormatAuto.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "file":
		return FormatFile, nil
	case "directory", "dir":
		return FormatDirectory, nil
	}
	return FormatAuto, fmt.Errorf("unknown cassette format %q", s)
}

// MarshalText lets Format be used directly in flags and config.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Format) UnmarshalText(b []byte) error {
	v, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
