package client

import (
	"errors"
	"fmt"

	"github.com/adamwoolhether/httpwire/header"
	"github.com/adamwoolhether/httpwire/pool"
	"github.com/adamwoolhether/httpwire/wire"
)

// maxErrBodySize caps the amount of response body kept when
// building an error for an unexpected status code.
const maxErrBodySize = 4 << 10 // 4KB

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is joined with [ErrUnexpectedStatusCode] when the server
	// responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
	// ErrTimeout is returned when a request outlives its timeout. It is
	// never matched together with ErrConnectFailure.
	ErrTimeout = errors.New("request timed out")
	// ErrUnsupportedURL is returned for URLs that are not absolute
	// http or https URLs.
	ErrUnsupportedURL = errors.New("unsupported url")

	// ErrConnectFailure is returned when no connection could be opened.
	ErrConnectFailure = pool.ErrConnect
	// ErrHeaderNotFound is returned for lookups of absent headers.
	ErrHeaderNotFound = header.ErrNotFound
	// ErrMalformedResponse is returned when the response cannot be parsed.
	ErrMalformedResponse = wire.ErrMalformed
)

// UnexpectedStatusError is returned when the HTTP response status code
// does not match the expected value.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}
