package filter

import (
	"context"
	"net/http"
	"net/url"
	"sort"

	"github.com/circleci/httpvcr/cassette"
	"github.com/circleci/httpvcr/o11y"
)

// Analysis lists interactions that still carry credentials.
type Analysis struct {
	TotalInteractions int       `json:"total_interactions"`
	Findings          []Finding `json:"findings"`
}

// Finding describes the credentials found in one interaction.
type Finding struct {
	Index           int      `json:"index"`
	Method          string   `json:"method"`
	URL             string   `json:"url"`
	FormFields      []string `json:"form_fields,omitempty"`
	QueryParams     []string `json:"query_params,omitempty"`
	RequestHeaders  []string `json:"request_headers,omitempty"`
	ResponseHeaders []string `json:"response_headers,omitempty"`
}

func (f Finding) empty() bool {
	return len(f.FormFields) == 0 && len(f.QueryParams) == 0 &&
		len(f.RequestHeaders) == 0 && len(f.ResponseHeaders) == 0
}

func Analyze(c *cassette.Cassette) Analysis {
	a := Analysis{TotalInteractions: c.Len(), Findings: []Finding{}}
	for i, in := range c.Interactions {
		f := Finding{
			Index:           i,
			Method:          in.Request.Method,
			URL:             in.Request.URL,
			QueryParams:     sensitiveParams(in.Request.URL),
			RequestHeaders:  sensitiveHeaders(in.Request.Headers),
			ResponseHeaders: sensitiveHeaders(in.Response.Headers),
		}
		if IsForm(in.Request.Headers.Get("Content-Type")) {
			if fa, err := AnalyzeForm(string(in.Request.Body)); err == nil {
				f.FormFields = fa.CredentialFields
			}
		}
		if !f.empty() {
			a.Findings = append(a.Findings, f)
		}
	}
	return a
}

func sensitiveHeaders(h http.Header) []string {
	var out []string
	for k := range h {
		if contains(SensitiveHeaders, http.CanonicalHeaderKey(k)) {
			out = append(out, http.CanonicalHeaderKey(k))
		}
	}
	sort.Strings(out)
	return out
}

func sensitiveParams(raw string) []string {
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	var out []string
	for k := range u.Query() {
		if contains(SensitiveParams, k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Sensitive returns a chain that strips the well known sensitive headers,
// query parameters and JSON keys, and scrubs credential form fields.
func Sensitive(replacement string) *Chain {
	return NewChain(
		NewHeaders().RemoveSensitive(),
		NewURL().RemoveSensitiveParams(),
		NewBody().RemoveSensitiveKeys(),
		NewForm(replacement),
	)
}

// Rewrite loads the cassette at path, filters every interaction with chain
// and saves it back in the format it was found in.
func Rewrite(ctx context.Context, path string, chain *Chain) (c *cassette.Cassette, err error) {
	ctx, span := o11y.StartSpan(ctx, "vcr: rewrite cassette")
	defer o11y.End(span, &err)
	span.AddField("path", path)

	c, err = cassette.Load(path)
	if err != nil {
		return nil, err
	}
	for i, in := range c.Interactions {
		c.Interactions[i] = chain.Apply(ctx, in)
	}
	span.AddField("interactions", c.Len())
	if err := cassette.Save(c); err != nil {
		return nil, err
	}
	return c, nil
}
