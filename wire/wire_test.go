package wire_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/httpwire/wire"
)

// recorder captures parser events in order.
type recorder struct {
	events []string
	failOn string
}

func (r *recorder) add(ev string) error {
	r.events = append(r.events, ev)
	if r.failOn != "" && ev == r.failOn {
		return errors.New("handler refused " + ev)
	}
	return nil
}

func (r *recorder) OnURL(url []byte) error       { return r.add("url:" + string(url)) }
func (r *recorder) OnStatus(status []byte) error { return r.add("status:" + string(status)) }
func (r *recorder) OnStatusCode(code int) error  { return r.add("code:" + strconv.Itoa(code)) }
func (r *recorder) OnHeader(name, value []byte) error {
	return r.add("header:" + string(name) + "=" + string(value))
}
func (r *recorder) OnBody(body []byte) error { return r.add("body:" + string(body)) }
func (r *recorder) OnMessageComplete() error { return r.add("complete") }

func TestParser_Events(t *testing.T) {
	testCases := map[string]struct {
		input  string
		opts   []wire.Option
		events []string
	}{
		"withBody": {
			input:  "HTTP/1.1 200 OK\r\nContent-Length: 5\r\nX-A: b\r\n\r\nhello",
			events: []string{"code:200", "status:OK", "header:Content-Length=5", "header:X-A=b", "body:hello", "complete"},
		},
		"noContentLength": {
			input:  "HTTP/1.1 200 OK\r\nServer: t\r\n\r\n",
			events: []string{"code:200", "status:OK", "header:Server=t", "complete"},
		},
		"noReason": {
			input:  "HTTP/1.0 404\r\nContent-Length: 0\r\n\r\n",
			events: []string{"code:404", "status:", "header:Content-Length=0", "complete"},
		},
		"multiWordReason": {
			input:  "HTTP/1.1 500 Internal Server Error\r\n\r\n",
			events: []string{"code:500", "status:Internal Server Error", "complete"},
		},
		"noContent": {
			input:  "HTTP/1.1 204 No Content\r\nContent-Length: 10\r\n\r\n",
			events: []string{"code:204", "status:No Content", "header:Content-Length=10", "complete"},
		},
		"headRequest": {
			input:  "HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\n",
			opts:   []wire.Option{wire.WithNoBody()},
			events: []string{"code:200", "status:OK", "header:Content-Length=10", "complete"},
		},
		"valueWhitespaceTrimmed": {
			input:  "HTTP/1.1 200 OK\r\nX-A:   spaced \t\r\n\r\n",
			events: []string{"code:200", "status:OK", "header:X-A=spaced", "complete"},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			var rec recorder
			p := wire.NewParser(&rec, tc.opts...)

			if err := p.Feed([]byte(tc.input)); err != nil {
				t.Fatalf("exp nil err, got: %v", err)
			}
			if !p.Done() {
				t.Error("exp parser to be done")
			}
			if diff := cmp.Diff(tc.events, rec.events); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParser_ByteAtATime(t *testing.T) {
	input := "HTTP/1.1 201 Created\r\nContent-Length: 3\r\n\r\nabc"

	var rec recorder
	p := wire.NewParser(&rec)
	for i := 0; i < len(input); i++ {
		if err := p.Feed([]byte{input[i]}); err != nil {
			t.Fatalf("byte %d: exp nil err, got: %v", i, err)
		}
	}

	exp := []string{"code:201", "status:Created", "header:Content-Length=3", "body:abc", "complete"}
	if diff := cmp.Diff(exp, rec.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestParser_Remaining(t *testing.T) {
	var rec recorder
	p := wire.NewParser(&rec)

	if err := p.Feed([]byte("HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\nab")); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	if got := p.Remaining(); got != 2 {
		t.Errorf("exp 2 remaining, got %d", got)
	}
	if err := p.Feed([]byte("cd")); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	if got := p.Remaining(); got != 0 {
		t.Errorf("exp 0 remaining, got %d", got)
	}
}

func TestParser_Malformed(t *testing.T) {
	testCases := map[string]string{
		"badProto":          "HTTX/1.1 200 OK\r\n\r\n",
		"http2":             "HTTP/2 200 OK\r\n\r\n",
		"badCode":           "HTTP/1.1 2x0 OK\r\n\r\n",
		"shortCode":         "HTTP/1.1 20 OK\r\n\r\n",
		"noColon":           "HTTP/1.1 200 OK\r\nbroken\r\n\r\n",
		"spaceBeforeColon":  "HTTP/1.1 200 OK\r\nX-A : b\r\n\r\n",
		"badLength":         "HTTP/1.1 200 OK\r\nContent-Length: -1\r\n\r\n",
		"conflictingLength": "HTTP/1.1 200 OK\r\nContent-Length: 1\r\nContent-Length: 2\r\n\r\n",
		"chunked":           "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n",
		"bodyTooLong":       "HTTP/1.1 200 OK\r\nContent-Length: 1\r\n\r\nab",
		"trailingGarbage":   "HTTP/1.1 200 OK\r\n\r\nextra",
	}

	for name, input := range testCases {
		t.Run(name, func(t *testing.T) {
			var rec recorder
			p := wire.NewParser(&rec)

			err := p.Feed([]byte(input))
			if !errors.Is(err, wire.ErrMalformed) {
				t.Fatalf("exp ErrMalformed, got: %v", err)
			}

			// A failed parser stays failed.
			if err := p.Feed([]byte("\r\n")); !errors.Is(err, wire.ErrMalformed) {
				t.Errorf("exp ErrMalformed after failure, got: %v", err)
			}
		})
	}
}

func TestParser_HandlerErrorIsMalformed(t *testing.T) {
	rec := recorder{failOn: "complete"}
	p := wire.NewParser(&rec)

	err := p.Feed([]byte("HTTP/1.1 200 OK\r\n\r\n"))
	if !errors.Is(err, wire.ErrMalformed) {
		t.Errorf("exp ErrMalformed, got: %v", err)
	}
}

func TestParser_FeedAfterDone(t *testing.T) {
	var rec recorder
	p := wire.NewParser(&rec)

	if err := p.Feed([]byte("HTTP/1.1 200 OK\r\n\r\n")); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	if err := p.Feed([]byte("x")); !errors.Is(err, wire.ErrDone) {
		t.Errorf("exp ErrDone, got: %v", err)
	}
}

func TestParser_BodyLimit(t *testing.T) {
	testCases := map[string]struct {
		input  string
		opts   []wire.Option
		expErr bool
	}{
		"maxInt64":      {input: "HTTP/1.1 200 OK\r\nContent-Length: 9223372036854775807\r\n\r\n", expErr: true},
		"overflow":      {input: "HTTP/1.1 200 OK\r\nContent-Length: 99999999999999999999\r\n\r\n", expErr: true},
		"overDefault":   {input: "HTTP/1.1 200 OK\r\nContent-Length: " + strconv.Itoa(wire.DefaultMaxBodySize+1) + "\r\n\r\n", expErr: true},
		"atDefault":     {input: "HTTP/1.1 200 OK\r\nContent-Length: " + strconv.Itoa(wire.DefaultMaxBodySize) + "\r\n\r\n"},
		"overCustom":    {input: "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\n", opts: []wire.Option{wire.WithMaxBodySize(4)}, expErr: true},
		"withinCustom":  {input: "HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\n", opts: []wire.Option{wire.WithMaxBodySize(4)}},
		"headIgnoresIt": {input: "HTTP/1.1 200 OK\r\nContent-Length: 9223372036854775807\r\n\r\n", opts: []wire.Option{wire.WithNoBody()}},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			var rec recorder
			p := wire.NewParser(&rec, tc.opts...)

			err := p.Feed([]byte(tc.input))
			if tc.expErr {
				if !errors.Is(err, wire.ErrMalformed) {
					t.Fatalf("exp ErrMalformed, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("exp nil err, got: %v", err)
			}
		})
	}
}

func TestParser_Interim(t *testing.T) {
	var rec recorder
	p := wire.NewParser(&rec)

	if err := p.Feed([]byte("HTTP/1.1 103 Early Hints\r\nLink: </a.css>\r\n\r\n")); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	if !p.Done() || p.StatusCode() != 103 {
		t.Errorf("exp interim message done with 103, got done=%t code=%d", p.Done(), p.StatusCode())
	}
}
