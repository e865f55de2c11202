package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrConnect is matched by every dial failure.
	ErrConnect = errors.New("connect failure")
	// ErrClosed is returned by Acquire once CloseAll has run.
	ErrClosed = errors.New("pool closed")
	// ErrMustNotBeZero is returned for a non-positive capacity.
	ErrMustNotBeZero = errors.New("must be greater than zero")
)

// ConnectError records the address that could not be reached.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s: dialing %s: %v", ErrConnect, e.Addr, e.Err)
}

// Unwrap allows matching both ErrConnect and the underlying cause.
func (e *ConnectError) Unwrap() []error {
	return []error{ErrConnect, e.Err}
}
