package filter

import (
	"net/http"

	"github.com/circleci/httpvcr/cassette"
)

// SensitiveHeaders are removed by Headers.RemoveSensitive.
var SensitiveHeaders = []string{
	"Authorization",
	"Cookie",
	"Set-Cookie",
	"X-Api-Key",
	"X-Auth-Token",
	"Proxy-Authorization",
}

// Headers removes or replaces headers on both the request and the response.
// Names are case-insensitive.
type Headers struct {
	remove  []string
	replace []headerReplacement
}

type headerReplacement struct {
	name  string
	value string
}

func NewHeaders() *Headers {
	return &Headers{}
}

func (h *Headers) Remove(names ...string) *Headers {
	for _, n := range names {
		h.remove = append(h.remove, http.CanonicalHeaderKey(n))
	}
	return h
}

// Replace sets every value of an existing header to value. Absent headers are
// left absent.
func (h *Headers) Replace(name, value string) *Headers {
	h.replace = append(h.replace, headerReplacement{name: http.CanonicalHeaderKey(name), value: value})
	return h
}

func (h *Headers) RemoveSensitive() *Headers {
	return h.Remove(SensitiveHeaders...)
}

func (h *Headers) Filter(req *cassette.Request, res *cassette.Response) error {
	h.apply(req.Headers)
	h.apply(res.Headers)
	return nil
}

func (h *Headers) apply(hdr http.Header) {
	if hdr == nil {
		return
	}
	for k := range hdr {
		ck := http.CanonicalHeaderKey(k)
		if contains(h.remove, ck) {
			delete(hdr, k)
			continue
		}
		for _, r := range h.replace {
			if r.name == ck {
				hdr[k] = []string{r.value}
			}
		}
	}
}

func contains(list []string, s string) bool {
	for _, l := range list {
		if l == s {
			return true
		}
	}
	return false
}
