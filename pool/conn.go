package pool

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
)

// MaxHeaderBytes caps ReadUntil.
const MaxHeaderBytes = 64 << 10

// ErrTooLong is returned by ReadUntil when the delimiter is not found
// within the limit.
var ErrTooLong = errors.New("delimiter not found within limit")

// Conn is a pooled stream. Reads go through a buffered reader so bytes
// read past a delimiter are kept for the next call.
type Conn struct {
	net.Conn

	id      string
	dest    Destination
	br      *bufio.Reader
	discard bool
}

func newConn(id string, dest Destination, nc net.Conn) *Conn {
	return &Conn{
		Conn: nc,
		id:   id,
		dest: dest,
		br:   bufio.NewReader(nc),
	}
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// Destination returns the endpoint the connection was dialed for.
func (c *Conn) Destination() Destination { return c.dest }

// Discard marks the connection to be closed on release instead of
// going back to the idle queue.
func (c *Conn) Discard() { c.discard = true }

// Read reads through the connection's buffer.
func (c *Conn) Read(p []byte) (int, error) {
	return c.br.Read(p)
}

// ReadUntil reads up to and including delim. It fails with ErrTooLong
// once max bytes were read without seeing delim.
func (c *Conn) ReadUntil(delim []byte, max int) ([]byte, error) {
	if len(delim) == 0 {
		return nil, errors.New("empty delimiter")
	}
	last := delim[len(delim)-1]

	var buf []byte
	for {
		chunk, err := c.br.ReadSlice(last)
		buf = append(buf, chunk...)

		switch {
		case err == nil:
			if bytes.HasSuffix(buf, delim) {
				return buf, nil
			}
		case errors.Is(err, bufio.ErrBufferFull):
		default:
			return buf, err
		}

		if len(buf) >= max {
			return buf, fmt.Errorf("%w: %d bytes", ErrTooLong, max)
		}
	}
}

// ReadExactly reads exactly n bytes.
func (c *Conn) ReadExactly(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.br, buf); err != nil {
		return nil, err
	}

	return buf, nil
}
