// Package response holds the Response model and the Collector that
// fills it from wire parser events.
package response

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/adamwoolhether/httpwire/header"
	"github.com/adamwoolhether/httpwire/wire"
)

var (
	// ErrMessageComplete is returned for any event delivered after
	// OnMessageComplete.
	ErrMessageComplete = errors.New("event after message complete")
	// ErrBadLength is returned when content-length is not a
	// non-negative integer.
	ErrBadLength = errors.New("invalid content-length")
)

// Response is an HTTP response filled in by a Collector, in the order
// the parser delivers events.
type Response struct {
	URL        string
	Status     string
	StatusCode int
	Headers    *header.Map
	Body       []byte
	Closed     bool

	length    int
	hasLength bool
}

// SetLen overrides the length reported by Len.
func (r *Response) SetLen(n int) {
	r.length = n
	r.hasLength = true
}

// Len returns the override set by SetLen, or else the parsed
// content-length header.
func (r *Response) Len() (int, error) {
	if r.hasLength {
		return r.length, nil
	}

	v, err := r.Headers.Get("content-length")
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadLength, v)
	}

	return n, nil
}

// Header is a shorthand for r.Headers.Get.
func (r *Response) Header(name string) (string, error) {
	return r.Headers.Get(name)
}

// String implements fmt.Stringer.
func (r *Response) String() string {
	return fmt.Sprintf("%d %s (%d bytes, closed=%t)", r.StatusCode, r.Status, len(r.Body), r.Closed)
}

// Collector is a wire.Handler assembling a single Response.
type Collector struct {
	resp *Response
}

var _ wire.Handler = (*Collector)(nil)

// NewCollector returns a Collector with a fresh Response.
func NewCollector() *Collector {
	return &Collector{resp: &Response{}}
}

// Response returns the response being assembled.
func (c *Collector) Response() *Response { return c.resp }

// OnURL records the echoed URL.
func (c *Collector) OnURL(url []byte) error {
	if c.resp.Closed {
		return ErrMessageComplete
	}
	c.resp.URL = string(url)

	return nil
}

// OnStatus records the status text.
func (c *Collector) OnStatus(status []byte) error {
	if c.resp.Closed {
		return ErrMessageComplete
	}
	c.resp.Status = string(status)

	return nil
}

// OnStatusCode records the numeric status.
func (c *Collector) OnStatusCode(code int) error {
	if c.resp.Closed {
		return ErrMessageComplete
	}
	c.resp.StatusCode = code

	return nil
}

// OnHeader inserts a header. The first header creates the map.
func (c *Collector) OnHeader(name, value []byte) error {
	if c.resp.Closed {
		return ErrMessageComplete
	}
	if c.resp.Headers == nil {
		c.resp.Headers = &header.Map{}
	}
	c.resp.Headers.Set(string(name), string(value))

	return nil
}

// OnBody sets the body, replacing any previous one.
func (c *Collector) OnBody(body []byte) error {
	if c.resp.Closed {
		return ErrMessageComplete
	}
	c.resp.Body = body

	return nil
}

// OnMessageComplete marks the response closed.
func (c *Collector) OnMessageComplete() error {
	if c.resp.Closed {
		return ErrMessageComplete
	}
	c.resp.Closed = true

	return nil
}
