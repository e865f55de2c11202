package part

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/adamwoolhether/httpwire/header"
)

// maxBoundaryLen is the RFC 2046 upper bound on boundary length.
const maxBoundaryLen = 70

// FormData builds multipart/form-data bodies made of text fields.
// Build replaces the body on each call.
type FormData struct {
	boundary string
	chunks   [][]byte
	body     []byte
}

// NewFormData returns a FormData builder with a random 128-bit boundary.
func NewFormData() *FormData {
	return &FormData{boundary: newBoundary()}
}

// NewFormDataWithBoundary returns a FormData builder using boundary.
func NewFormDataWithBoundary(boundary string) (*FormData, error) {
	if err := validBoundary(boundary); err != nil {
		return nil, err
	}

	return &FormData{boundary: boundary}, nil
}

// Boundary returns the delimiter token separating fields.
func (f *FormData) Boundary() string { return f.boundary }

// AddField appends a text field. headers, if non-empty, are rendered
// after the content-disposition line.
func (f *FormData) AddField(name string, value []byte, headers *header.Map) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--%s\r\ncontent-disposition: form-data; name=\"%s\"", f.boundary, name)
	writeFieldTail(&buf, headers, value)

	f.chunks = append(f.chunks, buf.Bytes())
}

// Chunks returns the number of fields added so far.
func (f *FormData) Chunks() int { return len(f.chunks) }

// ContentType implements Part.
func (f *FormData) ContentType() string {
	return "multipart/form-data; boundary=" + f.boundary
}

// Body implements Part.
func (f *FormData) Body() []byte { return f.body }

// ContentLength implements Part.
func (f *FormData) ContentLength() int { return len(f.body) }

// Build joins all fields and the closing delimiter into the body.
func (f *FormData) Build() {
	var buf bytes.Buffer
	for _, c := range f.chunks {
		buf.Write(c)
	}
	fmt.Fprintf(&buf, "--%s--\r\n\r\n", f.boundary)

	f.body = buf.Bytes()
}

// Clean implements Part.
func (f *FormData) Clean() {
	f.body = nil
	f.chunks = nil
}

// writeFieldTail finishes a field chunk: optional extra headers,
// the blank line, the value and its CRLF.
func writeFieldTail(buf *bytes.Buffer, headers *header.Map, value []byte) {
	if headers.Len() > 0 {
		buf.WriteString("\r\n")
		buf.Write(headers.Encode())
	}
	buf.WriteString("\r\n\r\n")
	buf.Write(value)
	buf.WriteString("\r\n")
}

func newBoundary() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

func validBoundary(b string) error {
	if b == "" || len(b) > maxBoundaryLen {
		return fmt.Errorf("%w: length %d", ErrInvalidBoundary, len(b))
	}

	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case bytes.IndexByte([]byte("'()+_,-./:=?"), c) >= 0:
		case c == ' ' && i != len(b)-1:
		default:
			return fmt.Errorf("%w: character %q", ErrInvalidBoundary, c)
		}
	}

	return nil
}
