package filter

import (
	"mime"
	"net/url"
	"sort"
	"strings"
	"unicode"

	"github.com/circleci/httpvcr/cassette"
)

const formContentType = "application/x-www-form-urlencoded"

// credentialPatterns are matched as substrings of lower cased form field names.
var credentialPatterns = []string{
	"username", "user", "login", "email", "user_name",
	"password", "pass", "passwd", "pwd", "secret",
	"_token",
	"session", "sessionid", "sid", "auth", "authorization",
	"api_key", "apikey", "key", "client_secret", "access_token", "refresh_token",
}

// Form scrubs credentials from url-encoded form request bodies. A field is a
// credential when its name contains a credential pattern, or when its value
// looks like a token: longer than 10 characters and purely alphanumeric.
// Credential values become "<replacement>_<FIELD>".
type Form struct {
	Replacement string
}

func NewForm(replacement string) *Form {
	return &Form{Replacement: replacement}
}

func (f *Form) Filter(req *cassette.Request, _ *cassette.Response) error {
	if len(req.Body) == 0 || !IsForm(req.Headers.Get("Content-Type")) {
		return nil
	}
	values, err := url.ParseQuery(string(req.Body))
	if err != nil {
		return err
	}
	creds := credentialFields(values)
	if len(creds) == 0 {
		return nil
	}
	for _, k := range creds {
		vs := values[k]
		for i := range vs {
			vs[i] = f.Replacement + "_" + strings.ToUpper(k)
		}
	}
	req.Body = []byte(values.Encode())
	return nil
}

// IsForm reports whether contentType is a url-encoded form.
func IsForm(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == formContentType
}

// FormAnalysis describes the fields of a url-encoded form body.
type FormAnalysis struct {
	TotalFields      int        `json:"total_fields"`
	CredentialFields []string   `json:"credential_fields"`
	Fields           url.Values `json:"fields"`
}

// AnalyzeForm reports which fields of the form body data would be scrubbed by Form.
func AnalyzeForm(data string) (FormAnalysis, error) {
	values, err := url.ParseQuery(data)
	if err != nil {
		return FormAnalysis{}, err
	}
	return FormAnalysis{
		TotalFields:      len(values),
		CredentialFields: credentialFields(values),
		Fields:           values,
	}, nil
}

func credentialFields(values url.Values) []string {
	var out []string
	for k, vs := range values {
		if isCredentialName(k) || anyTokenLike(vs) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func isCredentialName(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range credentialPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func anyTokenLike(vs []string) bool {
	for _, v := range vs {
		if tokenLike(v) {
			return true
		}
	}
	return false
}

func tokenLike(v string) bool {
	if len(v) <= 10 {
		return false
	}
	for _, r := range v {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
