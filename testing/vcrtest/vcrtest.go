/*
Package vcrtest wires a recorder into a test, taking the mode and format from
the environment so the same test can record against real services or replay
offline:

	VCR_MODE    record, replay, once or none (default replay)
	VCR_FORMAT  file or directory (default file)
	VCR_RECORD  true forces record mode

Cassettes live under testdata/cassettes and are saved when the test ends.
*/
package vcrtest

import (
	"net/http"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/circleci/httpvcr/cassette"
	"github.com/circleci/httpvcr/config/env"
	"github.com/circleci/httpvcr/filter"
	"github.com/circleci/httpvcr/matcher"
	"github.com/circleci/httpvcr/noop"
	"github.com/circleci/httpvcr/testing/testcontext"
	"github.com/circleci/httpvcr/vcr"
)

// Dir is where cassettes are stored, relative to the package under test.
var Dir = filepath.Join("testdata", "cassettes")

type Settings struct {
	Mode   vcr.Mode
	Format cassette.Format
	Record bool
}

// LoadSettings reads the VCR_ variables. The returned loader lists the
// variables it read.
func LoadSettings() (Settings, *env.Loader, error) {
	s := Settings{Mode: vcr.ModeReplay, Format: cassette.FormatFile}
	l := env.NewLoader()
	l.Text(&s.Mode, "VCR_MODE")
	l.Text(&s.Format, "VCR_FORMAT")
	l.Bool(&s.Record, "VCR_RECORD")
	if s.Record {
		s.Mode = vcr.ModeRecord
	}
	return s, l, l.Err()
}

type options struct {
	transport http.RoundTripper
	matcher   matcher.Matcher
	filters   *filter.Chain
	settings  *Settings
}

type Option func(*options)

// WithTransport sets the real transport, http.DefaultTransport by default.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

func WithMatcher(m matcher.Matcher) Option {
	return func(o *options) {
		o.matcher = m
	}
}

func WithFilters(c *filter.Chain) Option {
	return func(o *options) {
		o.filters = c
	}
}

// WithSettings ignores the environment.
func WithSettings(s Settings) Option {
	return func(o *options) {
		o.settings = &s
	}
}

// New returns a recorder and a client using it for the cassette called name.
// In replay mode the real transport is replaced by one that panics, so a
// miss can never reach the network. The cassette is saved on cleanup.
func New(t testing.TB, name string, opts ...Option) (*vcr.Recorder, *http.Client) {
	t.Helper()

	o := options{
		transport: http.DefaultTransport,
		filters:   filter.Sensitive("[FILTERED]"),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.settings == nil {
		s, _, err := LoadSettings()
		if err != nil {
			t.Fatalf("vcrtest: %v", err)
		}
		o.settings = &s
	}

	if o.settings.Mode == vcr.ModeReplay {
		o.transport = noop.Panicking(noop.WithMessage("cassette " + name + " is replay only, set VCR_MODE=record to refresh it"))
	}

	rec, err := vcr.New(testcontext.Background(), vcr.Config{
		Transport: o.transport,
		Path:      Path(name, o.settings.Format),
		Mode:      o.settings.Mode,
		Format:    o.settings.Format,
		Matcher:   o.matcher,
		Filters:   o.filters,
	})
	if err != nil {
		t.Fatalf("vcrtest: %v", err)
	}
	t.Cleanup(func() {
		if err := rec.Close(); err != nil {
			t.Errorf("vcrtest: saving cassette %s: %v", name, err)
		}
	})
	return rec, &http.Client{Transport: rec}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Path returns where the cassette called name is stored in format f. Names
// are typically t.Name(), so subtest separators are made file system safe.
func Path(name string, f cassette.Format) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	if f == cassette.FormatDirectory {
		return filepath.Join(Dir, name)
	}
	return filepath.Join(Dir, name+".yaml")
}
