package kongtest

import (
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

type cli struct {
	Mode    string `default:"replay" env:"VCR_MODE" help:"How the recorder behaves."`
	Verbose bool   `help:"Write trace events."`

	List struct {
		Cassette string `arg:"" help:"Path to the cassette."`
	} `cmd:"" help:"List interactions."`
}

func TestHelp(t *testing.T) {
	c := cli{}
	s := Help(t, &c)
	assert.Check(t, cmp.Contains(s, "test-app <command>"))
	assert.Check(t, cmp.Contains(s, "--mode=\"replay\""))
	assert.Check(t, cmp.Contains(s, "list <cassette>"))
	assert.Check(t, cmp.Equal(c.Mode, "replay"))
}

func TestParse(t *testing.T) {
	c := cli{}
	cmd, err := Parse(t, &c, "--verbose", "list", "a.yaml")
	assert.Assert(t, err)
	assert.Check(t, cmp.Equal(cmd, "list <cassette>"))
	assert.Check(t, c.Verbose)
	assert.Check(t, cmp.Equal(c.List.Cassette, "a.yaml"))

	_, err = Parse(t, &cli{}, "list")
	assert.Check(t, cmp.ErrorContains(err, "expected \"<cassette>\""))
}
