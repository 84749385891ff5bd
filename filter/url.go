package filter

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/circleci/httpvcr/cassette"
)

// SensitiveParams are removed from request URLs by URL.RemoveSensitiveParams.
var SensitiveParams = []string{
	"api_key",
	"token",
	"access_token",
	"key",
}

// URL removes or replaces query parameters of the request URL. Responses are
// not touched.
type URL struct {
	remove  []string
	replace []keyReplacement
}

func NewURL() *URL {
	return &URL{}
}

func (u *URL) RemoveParam(names ...string) *URL {
	u.remove = append(u.remove, names...)
	return u
}

// ReplaceParam sets every value of an existing parameter to value.
func (u *URL) ReplaceParam(name, value string) *URL {
	u.replace = append(u.replace, keyReplacement{key: name, value: value})
	return u
}

func (u *URL) RemoveSensitiveParams() *URL {
	return u.RemoveParam(SensitiveParams...)
}

func (u *URL) Filter(req *cassette.Request, _ *cassette.Response) error {
	if req.URL == "" {
		return nil
	}
	parsed, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("url filter: %w", err)
	}
	if parsed.RawQuery == "" {
		return nil
	}

	pairs := strings.Split(parsed.RawQuery, "&")
	kept := make([]string, 0, len(pairs))
	changed := false
	for _, pair := range pairs {
		rawKey, _, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return fmt.Errorf("url filter: query parameter %q: %w", rawKey, err)
		}
		if contains(u.remove, key) {
			changed = true
			continue
		}
		for _, r := range u.replace {
			if r.key == key {
				pair = rawKey + "=" + url.QueryEscape(r.value)
				changed = true
			}
		}
		kept = append(kept, pair)
	}
	if !changed {
		return nil
	}
	parsed.RawQuery = strings.Join(kept, "&")
	parsed.ForceQuery = false
	req.URL = parsed.String()
	return nil
}
