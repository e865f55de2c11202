// Package part provides request body builders.
//
// A builder accumulates fields, then renders them into a body with
// Build. Three variants exist:
//
//   - [URLEncoded] for application/x-www-form-urlencoded bodies.
//   - [FormData] for multipart/form-data text fields.
//   - [Multipart] for multipart/form-data with binary file fields.
//
// Use [Scope] to guarantee Build runs once the fields are added:
//
//	form := part.NewURLEncoded()
//	_ = part.Scope(form, func(f *part.URLEncoded) error {
//		f.AddField("key", "value")
//		return nil
//	})
package part

import (
	"errors"
)

// ErrInvalidBoundary is returned when a caller-supplied multipart
// boundary cannot be used.
var ErrInvalidBoundary = errors.New("invalid multipart boundary")

// Part is a request body builder.
type Part interface {
	// ContentType is the value sent in the content-type header.
	ContentType() string
	// Body returns the built body. It is empty until Build is called.
	Body() []byte
	// ContentLength is len(Body()).
	ContentLength() int
	// Build renders the accumulated fields into the body.
	Build()
	// Clean clears both the body and the accumulated fields.
	Clean()
}

// Scope hands p to fn and builds p on every exit path, including
// a panic raised by fn.
func Scope[P Part](p P, fn func(P) error) error {
	defer p.Build()

	return fn(p)
}
