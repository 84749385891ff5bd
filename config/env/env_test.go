package env

import (
	"fmt"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

type colour string

func (c colour) MarshalText() ([]byte, error) {
	return []byte(c), nil
}

func (c *colour) UnmarshalText(b []byte) error {
	switch s := string(b); s {
	case "red", "green":
		*c = colour(s)
		return nil
	default:
		return fmt.Errorf("unknown colour %q", s)
	}
}

func TestLoader_VarsUsed(t *testing.T) {
	l := NewLoader()
	defStr := "default"
	defBool := true
	defColour := colour("red")
	l.String(&defStr, "ENV_TEST_STRING")
	defStr = strings.Repeat("long string with newlines\n", 4)
	l.String(&defStr, "ENV_TEST_LONG_STRING")
	l.Bool(&defBool, "ENV_TEST_BOOL")
	l.Text(&defColour, "ENV_TEST_COLOUR")

	help := make([]string, 0, 4)
	for _, s := range l.VarsUsed() {
		help = append(help, s.String())
	}

	// N.B. Alphabetical order
	expected := []string{
		"ENV_TEST_BOOL            bool     (true)",
		"ENV_TEST_COLOUR          text     (red)",
		"ENV_TEST_LONG_STRING     string   " +
			`(long string with newlines\nlong string with newlines\nlong string with newlines\ ...)`,
		"ENV_TEST_STRING          string   (default)",
	}
	assert.Check(t, cmp.DeepEqual(help, expected))
}

func TestLoader_Values(t *testing.T) {
	t.Setenv("ENV_TEST_STRING", "set")
	t.Setenv("ENV_TEST_BOOL", "false")
	t.Setenv("ENV_TEST_COLOUR", "green")

	l := NewLoader()
	s, b, c := "default", true, colour("red")
	l.String(&s, "ENV_TEST_STRING")
	l.Bool(&b, "ENV_TEST_BOOL")
	l.Text(&c, "ENV_TEST_COLOUR")

	assert.Assert(t, l.Err())
	assert.Check(t, cmp.Equal(s, "set"))
	assert.Check(t, cmp.Equal(b, false))
	assert.Check(t, cmp.Equal(c, colour("green")))
}

func TestLoader_Errors(t *testing.T) {
	t.Setenv("ENV_TEST_BOOL", "maybe")
	t.Setenv("ENV_TEST_COLOUR", "blue")

	l := NewLoader()
	b, c := true, colour("red")
	l.Bool(&b, "ENV_TEST_BOOL")
	l.Text(&c, "ENV_TEST_COLOUR")

	err := l.Err()
	assert.Check(t, cmp.ErrorContains(err, `"ENV_TEST_BOOL"`))
	assert.Check(t, cmp.ErrorContains(err, `unknown colour "blue"`))
	assert.Check(t, cmp.Equal(b, true))
	assert.Check(t, cmp.Equal(c, colour("red")))
}

func TestLoader_Duplicate(t *testing.T) {
	l := NewLoader()
	s := ""
	l.String(&s, "ENV_TEST_DUP")
	defer func() {
		assert.Check(t, cmp.Equal(recover(), "duplicate environment variable ENV_TEST_DUP"))
	}()
	l.String(&s, "ENV_TEST_DUP")
}
