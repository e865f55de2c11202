// Package request assembles the exact bytes of an HTTP/1.1 request.
package request

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/net/http/httpguts"

	"github.com/adamwoolhether/httpwire/header"
	"github.com/adamwoolhether/httpwire/part"
)

// UserAgent is the default user-agent value sent with every request.
const UserAgent = "httpwire/0.x"

// ErrInvalidMethod is returned when the method is not an HTTP token.
var ErrInvalidMethod = errors.New("invalid request method")

// Full is a complete request ready to be rendered. It is built per
// call and not retained after the request is sent.
type Full struct {
	Method string
	Host   string
	Path   string

	// Part is the optional body builder. Only its built body is sent.
	Part part.Part

	// Headers are request-specific and win over Defaults.
	Headers *header.Map
	// Defaults are client-wide and win over the base host/user-agent.
	Defaults *header.Map

	// UserAgent overrides the package UserAgent when non-empty.
	UserAgent string
}

// StartLine returns "<METHOD> <PATH> HTTP/1.1".
func (f *Full) StartLine() string {
	path := f.Path
	if path == "" {
		path = "/"
	}

	return f.Method + " " + path + " HTTP/1.1"
}

// Header returns the merged header block, most specific source winning:
// per-request headers over defaults over host/user-agent. The body
// headers are appended when a non-empty body is present.
func (f *Full) Header() *header.Map {
	ua := f.UserAgent
	if ua == "" {
		ua = UserAgent
	}

	base := header.New("host", f.Host, "user-agent", ua)
	merged := f.Headers.Merge(f.Defaults.Merge(base))

	if body := f.body(); len(body) > 0 {
		merged.Set("content-length", strconv.Itoa(len(body)))
		merged.Set("content-type", f.Part.ContentType())
	}

	return merged
}

// Bytes renders the request: start line, header lines, blank line,
// the body and a trailing CRLF.
func (f *Full) Bytes() ([]byte, error) {
	if f.Method == "" || !httpguts.ValidHeaderFieldName(f.Method) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, f.Method)
	}

	hdr := f.Header()
	if err := hdr.Validate(); err != nil {
		return nil, fmt.Errorf("validating headers: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(f.StartLine())
	buf.WriteString("\r\n")
	buf.Write(hdr.Encode())
	buf.WriteString("\r\n\r\n")
	buf.Write(f.body())
	buf.WriteString("\r\n")

	return buf.Bytes(), nil
}

// WriteTo writes the rendered request to w.
func (f *Full) WriteTo(w io.Writer) (int64, error) {
	b, err := f.Bytes()
	if err != nil {
		return 0, err
	}

	n, err := w.Write(b)
	return int64(n), err
}

func (f *Full) body() []byte {
	if f.Part == nil {
		return nil
	}

	return f.Part.Body()
}
