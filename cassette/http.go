package cassette

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
)

const defaultVersion = "HTTP/1.1"

// NewRequest captures r with the already read body.
func NewRequest(r *http.Request, body []byte) Request {
	out := Request{
		Method:  r.Method,
		Headers: cloneHeader(r.Header),
		Body:    cloneBody(body),
		Version: version(r.Proto, r.ProtoMajor, r.ProtoMinor),
	}
	if out.Method == "" {
		out.Method = http.MethodGet
	}
	if r.URL != nil {
		out.URL = r.URL.String()
	}
	return out
}

// NewResponse captures r with the already read body.
func NewResponse(r *http.Response, body []byte) Response {
	return Response{
		Status:  r.StatusCode,
		Headers: cloneHeader(r.Header),
		Body:    cloneBody(body),
		Version: version(r.Proto, r.ProtoMajor, r.ProtoMinor),
	}
}

func version(proto string, major, minor int) string {
	switch {
	case proto != "":
		return proto
	case major > 0:
		return fmt.Sprintf("HTTP/%d.%d", major, minor)
	}
	return defaultVersion
}

// HTTPResponse builds a fresh response for req from the recording. Each call
// returns an independent body reader.
func (r Response) HTTPResponse(req *http.Request) *http.Response {
	proto := r.Version
	major, minor, ok := http.ParseHTTPVersion(proto)
	if !ok {
		proto = defaultVersion
		major, minor = 1, 1
	}
	body := cloneBody(r.Body)
	return &http.Response{
		Status:        statusText(r.Status),
		StatusCode:    r.Status,
		Proto:         proto,
		ProtoMajor:    major,
		ProtoMinor:    minor,
		Header:        canonicalHeader(r.Headers),
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// canonicalHeader copies h with canonical names so Header.Get works for
// cassettes written with other casing. Values of names that differ only in
// case are merged in key order.
func canonicalHeader(h http.Header) http.Header {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(http.Header, len(h))
	for _, k := range keys {
		ck := http.CanonicalHeaderKey(k)
		out[ck] = append(out[ck], h[k]...)
	}
	return out
}

func statusText(code int) string {
	if t := http.StatusText(code); t != "" {
		return strconv.Itoa(code) + " " + t
	}
	return strconv.Itoa(code)
}
