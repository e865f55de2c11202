package client

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/httpwire/header"
	"github.com/adamwoolhether/httpwire/part"
	"github.com/adamwoolhether/httpwire/pool"
	"github.com/adamwoolhether/httpwire/pool/throttle"
)

const (
	// DefaultTimeout bounds each request unless overridden.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxConns is the default number of concurrently busy connections.
	DefaultMaxConns = 10
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error

// options carries the assembled configuration. Exported fields are
// checked against their validate tags once every Option ran.
type options struct {
	Timeout          time.Duration    `opt:"timeout" validate:"gt=0"`
	HandshakeTimeout time.Duration    `opt:"handshake_timeout" validate:"gte=0"`
	MaxConns         int              `opt:"max_conns" validate:"gt=0"`
	MaxIdlePerDest   int              `opt:"max_idle_per_dest" validate:"gte=0"`
	MaxBodySize      int64            `opt:"max_body_size" validate:"gt=0"`
	UserAgent        string           `opt:"user_agent" validate:"omitempty,printascii"`
	Throttle         *throttle.Config `opt:"throttle" validate:"omitempty"`

	headers    *header.Map
	logger     *slog.Logger
	dialer     pool.Dialer
	tlsConfig  *tls.Config
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		c.Timeout = d
		return nil
	}
}

// WithHandshakeTimeout bounds the TLS handshake of new connections.
// It has no effect together with [WithDialer].
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("handshake timeout must not be negative")
		}
		c.HandshakeTimeout = d
		return nil
	}
}

// WithMaxConns caps the number of connections in use at once.
func WithMaxConns(n int) Option {
	return func(c *options) error {
		c.MaxConns = n
		return nil
	}
}

// WithMaxIdlePerDest caps the idle connections kept per destination.
// Zero, the default, keeps every released connection.
func WithMaxIdlePerDest(n int) Option {
	return func(c *options) error {
		c.MaxIdlePerDest = n
		return nil
	}
}

// WithMaxBodySize sets the largest response body the client accepts.
// Responses announcing a bigger Content-Length fail with
// [ErrMalformedResponse] before the body is read.
func WithMaxBodySize(n int64) Option {
	return func(c *options) error {
		c.MaxBodySize = n
		return nil
	}
}

// WithHeaders sets default headers sent with every request.
func WithHeaders(h *header.Map) Option {
	return func(c *options) error {
		c.headers = h.Clone()
		return nil
	}
}

// WithUserAgent replaces the default user-agent value.
func WithUserAgent(ua string) Option {
	return func(c *options) error {
		c.UserAgent = ua
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// WithDialer replaces the default TCP/TLS dialer.
func WithDialer(d pool.Dialer) Option {
	return func(c *options) error {
		if d == nil {
			return errors.New("dialer must not be nil")
		}
		c.dialer = d
		return nil
	}
}

// WithTLSConfig sets the TLS configuration used for https URLs.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *options) error {
		c.tlsConfig = cfg
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting of new connections
// with the given dials per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(c *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		c.Throttle = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *options) error {
		c.tracer = tracer
		return nil
	}
}

// WithPropagator sets the propagator injecting trace context into
// outgoing headers. The global otel propagator is used by default.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *options) error {
		c.propagator = p
		return nil
	}
}

// RequestOption is a functional option for [Client.Request].
type RequestOption func(opts *requestOpts) error

type requestOpts struct {
	timeout *time.Duration
	part    part.Part
	headers *header.Map
}

// WithRequestTimeout overrides the client timeout for one request.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(opts *requestOpts) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		opts.timeout = &d
		return nil
	}
}

// WithPart sets the request body. Only the part's built body is sent.
func WithPart(p part.Part) RequestOption {
	return func(opts *requestOpts) error {
		if p == nil {
			return errors.New("part must not be nil")
		}
		opts.part = p
		return nil
	}
}

// WithRequestHeaders sets headers for this request only. They win over
// the client's default headers.
func WithRequestHeaders(h *header.Map) RequestOption {
	return func(opts *requestOpts) error {
		opts.headers = h
		return nil
	}
}

// DoOption is a functional option for [Client.Do].
type DoOption func(options *doOpts) error

type doOpts struct {
	request      []RequestOption
	responseBody any
	useJSONNum   bool
}

// WithRequest passes request options through [Client.Do].
func WithRequest(opts ...RequestOption) DoOption {
	return func(o *doOpts) error {
		o.request = append(o.request, opts...)

		return nil
	}
}

// WithDestination decodes the HTTP response body into bodyTemplate.
// bodyTemplate must be a pointer.
func WithDestination[T any](bodyTemplate *T) DoOption {
	return func(opts *doOpts) error {
		opts.responseBody = bodyTemplate

		return nil
	}
}

// WithJSONNumb tells the JSON decoder to use [json.Decoder.UseNumber],
// preserving number precision as [json.Number] instead of float64.
func WithJSONNumb() DoOption {
	return func(opts *doOpts) error {
		opts.useJSONNum = true

		return nil
	}
}

// URLOption is a functional option for [URL].
type URLOption func(options *urlOpts)

type urlOpts struct {
	queryStrings map[string]string
	port         *int
}

// WithQueryStrings appends query parameters to the URL.
func WithQueryStrings(queryKV map[string]string) URLOption {
	return func(opts *urlOpts) {
		opts.queryStrings = queryKV
	}
}

// WithPort sets the port number on the URL's host.
func WithPort(port int) URLOption {
	return func(opts *urlOpts) {
		opts.port = &port
	}
}
