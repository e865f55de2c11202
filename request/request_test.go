package request_test

import (
	"bytes"
	"errors"
	"net/http"
	"testing"

	"github.com/adamwoolhether/httpwire/header"
	"github.com/adamwoolhether/httpwire/part"
	"github.com/adamwoolhether/httpwire/request"
)

func TestFull_Bytes(t *testing.T) {
	form, _ := part.NewFormDataWithBoundary("B")
	form.AddField("key", []byte("value"), nil)
	form.Build()
	formBody := "--B\r\ncontent-disposition: form-data; name=\"key\"\r\n\r\nvalue\r\n--B--\r\n\r\n"

	unbuilt := part.NewURLEncoded()
	unbuilt.AddField("a", "1")

	testCases := map[string]struct {
		full request.Full
		exp  string
	}{
		"getNoBody": {
			full: request.Full{Method: http.MethodGet, Host: "example.com", Path: "/path"},
			exp:  "GET /path HTTP/1.1\r\nhost: example.com\r\nuser-agent: " + request.UserAgent + "\r\n\r\n\r\n",
		},
		"emptyPath": {
			full: request.Full{Method: http.MethodGet, Host: "example.com"},
			exp:  "GET / HTTP/1.1\r\nhost: example.com\r\nuser-agent: " + request.UserAgent + "\r\n\r\n\r\n",
		},
		"postFormData": {
			full: request.Full{Method: http.MethodPost, Host: "h", Path: "/p", Part: form},
			exp: "POST /p HTTP/1.1\r\nhost: h\r\nuser-agent: " + request.UserAgent + "\r\n" +
				"content-length: 67\r\ncontent-type: multipart/form-data; boundary=B\r\n\r\n" +
				formBody + "\r\n",
		},
		"unbuiltPartOmitsBody": {
			full: request.Full{Method: http.MethodPost, Host: "h", Path: "/p", Part: unbuilt},
			exp:  "POST /p HTTP/1.1\r\nhost: h\r\nuser-agent: " + request.UserAgent + "\r\n\r\n\r\n",
		},
		"customUserAgent": {
			full: request.Full{Method: http.MethodGet, Host: "h", Path: "/", UserAgent: "ua/1"},
			exp:  "GET / HTTP/1.1\r\nhost: h\r\nuser-agent: ua/1\r\n\r\n\r\n",
		},
	}

	if len(formBody) != 67 {
		t.Fatalf("fixture length drifted: %d", len(formBody))
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got, err := tc.full.Bytes()
			if err != nil {
				t.Fatalf("exp nil err, got: %v", err)
			}
			if string(got) != tc.exp {
				t.Errorf("exp:\n%q\ngot:\n%q", tc.exp, got)
			}
		})
	}
}

func TestFull_HeaderPrecedence(t *testing.T) {
	full := request.Full{
		Method:   http.MethodGet,
		Host:     "example.com",
		Path:     "/",
		Defaults: header.New("User-Agent", "default-ua", "Accept", "*/*", "X-Env", "prod"),
		Headers:  header.New("x-env", "staging", "X-Call", "1"),
	}

	h := full.Header()

	testCases := map[string]string{
		"host":       "example.com",
		"user-agent": "default-ua",
		"accept":     "*/*",
		"x-env":      "staging",
		"x-call":     "1",
	}
	for k, exp := range testCases {
		got, err := h.Get(k)
		if err != nil {
			t.Errorf("%s: exp nil err, got: %v", k, err)
			continue
		}
		if got != exp {
			t.Errorf("%s: exp %q, got %q", k, exp, got)
		}
	}

	// Inputs must survive untouched.
	if v, _ := full.Defaults.Get("x-env"); v != "prod" {
		t.Errorf("defaults mutated: %v", full.Defaults)
	}
}

func TestFull_HeaderSpellingOnWire(t *testing.T) {
	full := request.Full{
		Method:   http.MethodGet,
		Host:     "example.com",
		Path:     "/",
		Defaults: header.New("X-Api-Key", "k"),
		Headers:  header.New("Accept-Encoding", "gzip"),
	}

	raw, err := full.Bytes()
	if err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}

	exp := "GET / HTTP/1.1\r\nhost: example.com\r\nuser-agent: " + request.UserAgent +
		"\r\nX-Api-Key: k\r\nAccept-Encoding: gzip\r\n\r\n\r\n"
	if string(raw) != exp {
		t.Errorf("exp %q, got %q", exp, raw)
	}
}

func TestFull_BodyHeadersOverrideCaller(t *testing.T) {
	u := part.NewURLEncoded()
	u.AddField("a", "1")
	u.Build()

	full := request.Full{
		Method:  http.MethodPost,
		Host:    "h",
		Headers: header.New("Content-Type", "text/plain"),
		Part:    u,
	}

	ct, _ := full.Header().Get("content-type")
	if ct != "application/x-www-form-urlencoded" {
		t.Errorf("exp part content type to win, got %q", ct)
	}
}

func TestFull_Invalid(t *testing.T) {
	testCases := map[string]struct {
		full   request.Full
		expErr error
	}{
		"emptyMethod": {
			full:   request.Full{Host: "h"},
			expErr: request.ErrInvalidMethod,
		},
		"spaceInMethod": {
			full:   request.Full{Method: "GE T", Host: "h"},
			expErr: request.ErrInvalidMethod,
		},
		"badHeader": {
			full:   request.Full{Method: http.MethodGet, Host: "h", Headers: header.New("X-Bad", "a\nb")},
			expErr: header.ErrInvalid,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := tc.full.Bytes()
			if !errors.Is(err, tc.expErr) {
				t.Errorf("exp err %v, got: %v", tc.expErr, err)
			}
		})
	}
}

func TestFull_WriteTo(t *testing.T) {
	full := request.Full{Method: http.MethodGet, Host: "h", Path: "/"}

	var buf bytes.Buffer
	n, err := full.WriteTo(&buf)
	if err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}

	exp, _ := full.Bytes()
	if n != int64(len(exp)) || !bytes.Equal(buf.Bytes(), exp) {
		t.Errorf("exp %q (%d), got %q (%d)", exp, len(exp), buf.Bytes(), n)
	}
}
