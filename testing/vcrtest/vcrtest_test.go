package vcrtest

import (
	"io"
	"net/http"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/httpvcr/cassette"
	"github.com/circleci/httpvcr/testing/fakeserver"
	"github.com/circleci/httpvcr/testing/testcontext"
	"github.com/circleci/httpvcr/vcr"
)

func TestLoadSettings(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("VCR_MODE", "")
		t.Setenv("VCR_FORMAT", "")
		t.Setenv("VCR_RECORD", "")
		s, l, err := LoadSettings()
		assert.Assert(t, err)
		assert.Check(t, cmp.DeepEqual(s, Settings{Mode: vcr.ModeReplay, Format: cassette.FormatFile}))
		assert.Check(t, cmp.Len(l.VarsUsed(), 3))
	})

	t.Run("From env", func(t *testing.T) {
		t.Setenv("VCR_MODE", "once")
		t.Setenv("VCR_FORMAT", "directory")
		t.Setenv("VCR_RECORD", "")
		s, _, err := LoadSettings()
		assert.Assert(t, err)
		assert.Check(t, cmp.DeepEqual(s, Settings{Mode: vcr.ModeOnce, Format: cassette.FormatDirectory}))
	})

	t.Run("Record forces record mode", func(t *testing.T) {
		t.Setenv("VCR_MODE", "replay")
		t.Setenv("VCR_FORMAT", "")
		t.Setenv("VCR_RECORD", "true")
		s, _, err := LoadSettings()
		assert.Assert(t, err)
		assert.Check(t, cmp.Equal(s.Mode, vcr.ModeRecord))
	})

	t.Run("Bad values are all reported", func(t *testing.T) {
		t.Setenv("VCR_MODE", "rewind")
		t.Setenv("VCR_FORMAT", "zip")
		t.Setenv("VCR_RECORD", "")
		_, _, err := LoadSettings()
		assert.Check(t, cmp.ErrorContains(err, "VCR_MODE"))
		assert.Check(t, cmp.ErrorContains(err, "VCR_FORMAT"))
	})
}

func TestPath(t *testing.T) {
	assert.Check(t, cmp.Equal(Path("TestA/sub case", cassette.FormatFile), filepath.Join(Dir, "TestA_sub_case.yaml")))
	assert.Check(t, cmp.Equal(Path("TestA", cassette.FormatDirectory), filepath.Join(Dir, "TestA")))
}

func TestNew(t *testing.T) {
	orig := Dir
	Dir = t.TempDir()
	t.Cleanup(func() { Dir = orig })

	srv := fakeserver.New(testcontext.Background(), t)
	get := func(t *testing.T, c *http.Client) string {
		t.Helper()
		res, err := c.Get(srv.URL + "/greeting?token=abc")
		assert.Assert(t, err)
		defer res.Body.Close()
		b, err := io.ReadAll(res.Body)
		assert.Assert(t, err)
		return string(b)
	}

	t.Run("Record", func(t *testing.T) {
		_, client := New(t, "greeting", WithSettings(Settings{Mode: vcr.ModeRecord, Format: cassette.FormatDirectory}))
		assert.Check(t, cmp.Equal(get(t, client), "GET /greeting?token=abc #1"))
	})

	t.Run("Replay", func(t *testing.T) {
		rec, client := New(t, "greeting", WithSettings(Settings{Mode: vcr.ModeReplay, Format: cassette.FormatDirectory}))
		assert.Check(t, cmp.Equal(rec.Len(), 1))
		assert.Check(t, cmp.Equal(get(t, client), "GET /greeting?token=abc #1"))
	})

	assert.Check(t, cmp.Equal(srv.Hits(), 1))

	c, err := cassette.Load(Path("greeting", cassette.FormatDirectory))
	assert.Assert(t, err)
	assert.Check(t, cmp.Equal(c.Format, cassette.FormatDirectory))
	assert.Check(t, cmp.Equal(c.Interactions[0].Request.URL, srv.URL+"/greeting"))
}
