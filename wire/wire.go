// Package wire tokenizes HTTP/1.1 responses into parser events.
//
// A Parser is fed raw bytes in any split and reports what it finds to a
// Handler, in wire order:
//
//	OnStatusCode, OnStatus, OnHeader..., OnBody, OnMessageComplete
//
// Only Content-Length framed bodies are understood. Any input the parser
// cannot make sense of is reported as ErrMalformed and the parser stops.
package wire

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultMaxBodySize caps the Content-Length a Parser accepts unless
// WithMaxBodySize says otherwise.
const DefaultMaxBodySize = 10 << 20 // 10MB

var (
	// ErrMalformed wraps every parse failure.
	ErrMalformed = errors.New("malformed response")
	// ErrDone is returned when data is fed after the message completed.
	ErrDone = errors.New("message already complete")
)

// Handler receives parser events. A non-nil error aborts parsing.
type Handler interface {
	OnURL(url []byte) error
	OnStatus(status []byte) error
	OnStatusCode(code int) error
	OnHeader(name, value []byte) error
	OnBody(body []byte) error
	OnMessageComplete() error
}

type state int

const (
	stateStatusLine state = iota
	stateHeaders
	stateBody
	stateDone
	stateFailed
)

// Parser is an incremental response parser. It is not safe for
// concurrent use and handles exactly one message.
type Parser struct {
	h       Handler
	noBody  bool
	maxBody int64

	state         state
	buf           []byte
	statusCode    int
	contentLength int64
	body          []byte
}

// Option configures a Parser.
type Option func(*Parser)

// WithNoBody makes the parser complete right after the headers, as
// required for responses to HEAD requests.
func WithNoBody() Option {
	return func(p *Parser) {
		p.noBody = true
	}
}

// WithMaxBodySize sets the largest Content-Length the parser accepts.
// Larger bodies are rejected as ErrMalformed before any of them is read.
// Values of n <= 0 keep DefaultMaxBodySize.
func WithMaxBodySize(n int64) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxBody = n
		}
	}
}

// NewParser returns a Parser reporting to h.
func NewParser(h Handler, opts ...Option) *Parser {
	p := &Parser{h: h, contentLength: -1, maxBody: DefaultMaxBodySize}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Done reports whether the message completed.
func (p *Parser) Done() bool { return p.state == stateDone }

// StatusCode returns the parsed status code, or 0 before the status line.
func (p *Parser) StatusCode() int { return p.statusCode }

// Remaining returns how many body bytes the parser still needs, or 0
// when the body is complete or not yet framed.
func (p *Parser) Remaining() int64 {
	if p.state != stateBody {
		return 0
	}

	return p.contentLength - int64(len(p.body))
}

// Feed consumes data. It may be called any number of times until the
// message completes.
func (p *Parser) Feed(data []byte) error {
	switch p.state {
	case stateDone:
		return ErrDone
	case stateFailed:
		return fmt.Errorf("%w: parser failed earlier", ErrMalformed)
	}

	if err := p.feed(data); err != nil {
		p.state = stateFailed
		if errors.Is(err, ErrMalformed) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return nil
}

func (p *Parser) feed(data []byte) error {
	if p.state == stateBody {
		return p.feedBody(data)
	}

	p.buf = append(p.buf, data...)
	for p.state == stateStatusLine || p.state == stateHeaders {
		i := bytes.Index(p.buf, []byte("\r\n"))
		if i < 0 {
			return nil
		}
		line := p.buf[:i]
		p.buf = p.buf[i+2:]

		var err error
		if p.state == stateStatusLine {
			err = p.statusLine(line)
		} else {
			err = p.headerLine(line)
		}
		if err != nil {
			return err
		}
	}

	rest := p.buf
	p.buf = nil
	if p.state == stateBody {
		return p.feedBody(rest)
	}
	if p.state == stateDone && len(rest) > 0 {
		return fmt.Errorf("%w: %d unexpected bytes after message", ErrMalformed, len(rest))
	}

	return nil
}

func (p *Parser) statusLine(line []byte) error {
	proto, rest, _ := bytes.Cut(line, []byte(" "))
	if !bytes.HasPrefix(proto, []byte("HTTP/1.")) || len(proto) != len("HTTP/1.1") {
		return fmt.Errorf("%w: bad protocol %q", ErrMalformed, proto)
	}

	code, reason, _ := bytes.Cut(rest, []byte(" "))
	if len(code) != 3 {
		return fmt.Errorf("%w: bad status code %q", ErrMalformed, code)
	}
	n, err := strconv.Atoi(string(code))
	if err != nil || n < 100 {
		return fmt.Errorf("%w: bad status code %q", ErrMalformed, code)
	}
	p.statusCode = n

	if err := p.h.OnStatusCode(n); err != nil {
		return err
	}
	if err := p.h.OnStatus(reason); err != nil {
		return err
	}

	p.state = stateHeaders

	return nil
}

func (p *Parser) headerLine(line []byte) error {
	if len(line) == 0 {
		return p.headersComplete()
	}

	name, value, ok := bytes.Cut(line, []byte(":"))
	if !ok || len(name) == 0 {
		return fmt.Errorf("%w: header line %q", ErrMalformed, line)
	}
	if name[len(name)-1] == ' ' || name[len(name)-1] == '\t' {
		return fmt.Errorf("%w: whitespace before colon in %q", ErrMalformed, name)
	}
	value = bytes.TrimSpace(value)

	switch strings.ToLower(string(name)) {
	case "content-length":
		n, err := strconv.ParseInt(string(value), 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: content-length %q", ErrMalformed, value)
		}
		if p.contentLength >= 0 && p.contentLength != n {
			return fmt.Errorf("%w: conflicting content-length", ErrMalformed)
		}
		p.contentLength = n
	case "transfer-encoding":
		if !strings.EqualFold(string(value), "identity") {
			return fmt.Errorf("%w: unsupported transfer-encoding %q", ErrMalformed, value)
		}
	}

	return p.h.OnHeader(name, value)
}

func (p *Parser) headersComplete() error {
	bodyless := p.noBody ||
		p.statusCode < 200 ||
		p.statusCode == 204 ||
		p.statusCode == 304

	if bodyless || p.contentLength <= 0 {
		return p.complete()
	}
	if p.contentLength > p.maxBody {
		return fmt.Errorf("%w: content-length %d exceeds limit %d", ErrMalformed, p.contentLength, p.maxBody)
	}

	p.state = stateBody

	return nil
}

func (p *Parser) feedBody(data []byte) error {
	need := p.contentLength - int64(len(p.body))
	if int64(len(data)) > need {
		return fmt.Errorf("%w: %d bytes beyond content-length", ErrMalformed, int64(len(data))-need)
	}
	p.body = append(p.body, data...)

	if int64(len(p.body)) < p.contentLength {
		return nil
	}

	if err := p.h.OnBody(p.body); err != nil {
		return err
	}

	return p.complete()
}

func (p *Parser) complete() error {
	p.state = stateDone

	return p.h.OnMessageComplete()
}
