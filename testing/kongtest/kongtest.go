// Package kongtest helps test kong command line definitions.
package kongtest

import (
	"bytes"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"
)

// Help renders the --help output of cli.
func Help(t *testing.T, cli interface{}) string {
	t.Helper()
	w := bytes.NewBuffer(nil)
	rc := -1
	app, err := kong.New(cli,
		kong.Name("test-app"),
		kong.Writers(w, w),
		kong.Exit(func(i int) {
			rc = i
		}),
	)
	assert.Check(t, err)

	_, err = app.Parse([]string{"--help"})
	assert.Check(t, err)
	assert.Check(t, cmp.Equal(0, rc))

	return w.String()
}

// Parse parses args into cli, returning the selected command.
func Parse(t *testing.T, cli interface{}, args ...string) (string, error) {
	t.Helper()
	w := bytes.NewBuffer(nil)
	app, err := kong.New(cli,
		kong.Name("test-app"),
		kong.Writers(w, w),
		kong.Exit(func(i int) {
			t.Fatalf("unexpected exit %d: %s", i, w.String())
		}),
	)
	assert.Assert(t, err)

	kctx, err := app.Parse(args)
	if err != nil {
		return "", err
	}
	return kctx.Command(), nil
}
