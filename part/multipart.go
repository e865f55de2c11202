package part

import (
	"bytes"
	"fmt"

	"github.com/adamwoolhether/httpwire/header"
)

// Multipart is a FormData builder that can also carry binary file
// fields. It shares FormData's boundary and Build behavior.
type Multipart struct {
	FormData
}

// NewMultipart returns a Multipart builder with a random boundary.
func NewMultipart() *Multipart {
	return &Multipart{FormData: FormData{boundary: newBoundary()}}
}

// NewMultipartWithBoundary returns a Multipart builder using boundary.
func NewMultipartWithBoundary(boundary string) (*Multipart, error) {
	if err := validBoundary(boundary); err != nil {
		return nil, err
	}

	return &Multipart{FormData: FormData{boundary: boundary}}, nil
}

// AddBinaryField appends a file field. An empty filename falls back
// to name.
func (m *Multipart) AddBinaryField(name string, headers *header.Map, binary []byte, filename, contentType string) {
	if filename == "" {
		filename = name
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--%s\r\ncontent-disposition: form-data; name=\"%s\"; filename=\"%s\"\r\ncontent-type: %s",
		m.boundary, name, filename, contentType)
	writeFieldTail(&buf, headers, binary)

	m.chunks = append(m.chunks, buf.Bytes())
}
