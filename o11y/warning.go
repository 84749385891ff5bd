package o11y

import (
	"context"
	"errors"
	"fmt"
)

// NewWarning will return a generic error that can be tested for warning.
// No two errors created with NewWarning will be tested as equal with Is.
func NewWarning(warn string) error {
	return &wrapWarnError{
		msg: warn,
		err: errWarning,
	}
}

// AsWarning marks err as a warning while keeping it in the chain, so both
// IsWarning and errors.Is(result, err) hold. A nil err stays nil.
func AsWarning(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &wrapWarnError{
		msg:   fmt.Sprintf(format, args...) + ": " + err.Error(),
		err:   errWarning,
		cause: err,
	}
}

// sentinel warning to use with errors.Is in IsWarning
var errWarning = errors.New("")

// IsWarning returns true if any error in the chain is a warning.
func IsWarning(err error) bool {
	return errors.Is(err, errWarning)
}

// IsWarningNoUnwrap returns true if err itself is a warning.
// This will not check wrapped errors. This can be used in Is in other errors
// to check if it is being directly tested for warning.
func IsWarningNoUnwrap(err error) bool {
	// nolint: errorlint // This is intentionally not unwrapping
	return err == errWarning
}

// DontErrorTrace returns true if the error chain is a warning or context canceled or context deadline errors.
func DontErrorTrace(err error) bool {
	return IsWarning(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// wrapWarnError is a wrapping error to be tested for warning.
type wrapWarnError struct {
	msg   string
	err   error
	cause error
}

func (e *wrapWarnError) Error() string {
	return e.msg
}

func (e *wrapWarnError) Unwrap() error {
	return e.err
}

// Is lets errors.Is reach the cause as well as the warning sentinel.
func (e *wrapWarnError) Is(target error) bool {
	return e.cause != nil && errors.Is(e.cause, target)
}

// As lets errors.As reach the cause.
func (e *wrapWarnError) As(target interface{}) bool {
	return e.cause != nil && errors.As(e.cause, target)
}
