package cassette

import (
	"errors"
	"fmt"
)

// ErrStore matches every error returned by Load and Save with errors.Is.
var ErrStore = errors.New("cassette store error")

var (
	ErrNoPath      = errors.New("cassette has no path")
	ErrMalformed   = errors.New("malformed cassette")
	ErrMissingBody = errors.New("missing body file")
)

// Error describes a failed load or save of the cassette at Path.
type Error struct {
	Op   string
	Path string
	Err  error
}

var _ error = (*Error)(nil)

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("cassette %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports all store errors as ErrStore.
func (e *Error) Is(target error) bool {
	return target == ErrStore //nolint:errorlint // sentinel identity
}

func storeError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	se := &Error{}
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Path: path, Err: err}
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrMalformed}, args...)...)
}
