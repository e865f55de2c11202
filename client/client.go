package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/httpwire/client/batch"
	"github.com/adamwoolhether/httpwire/header"
	"github.com/adamwoolhether/httpwire/internal/validate"
	"github.com/adamwoolhether/httpwire/pool"
	"github.com/adamwoolhether/httpwire/pool/throttle"
	"github.com/adamwoolhether/httpwire/request"
	"github.com/adamwoolhether/httpwire/response"
	"github.com/adamwoolhether/httpwire/wire"
)

// Client sends requests over a shared connection pool. It is safe for
// concurrent use.
type Client struct {
	pool       *pool.Pool
	logger     *slog.Logger
	timeout    time.Duration
	maxBody    int64
	headers    *header.Map
	userAgent  string
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// Build returns a Client configured by optFns.
func Build(optFns ...Option) (*Client, error) {
	client := &Client{
		logger: slog.Default(),
	}

	opts := options{
		Timeout:          DefaultTimeout,
		HandshakeTimeout: pool.DefaultHandshakeTimeout,
		MaxConns:         DefaultMaxConns,
		MaxBodySize:      wire.DefaultMaxBodySize,
	}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}
	if err := validate.Check(&opts); err != nil {
		return nil, fmt.Errorf("validating client options: %w", err)
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}
	client.timeout = opts.Timeout
	client.maxBody = opts.MaxBodySize
	client.headers = opts.headers
	client.userAgent = opts.UserAgent

	client.tracer = opts.tracer
	if client.tracer == nil {
		client.tracer = noop.NewTracerProvider().Tracer("no-op tracer")
	}
	client.propagator = opts.propagator
	if client.propagator == nil {
		client.propagator = otel.GetTextMapPropagator()
	}

	dialer := opts.dialer
	if dialer == nil {
		dialer = &pool.NetDialer{
			HandshakeTimeout: opts.HandshakeTimeout,
			TLSConfig:        opts.tlsConfig,
		}
	}
	if opts.Throttle != nil {
		d, err := throttle.NewDialer(opts.Throttle.RPS, opts.Throttle.Burst, func() *slog.Logger { return client.logger }, dialer)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		dialer = d
	}

	p, err := pool.New(opts.MaxConns, dialer,
		pool.WithLogger(client.logger),
		pool.WithMaxIdlePerDest(opts.MaxIdlePerDest),
	)
	if err != nil {
		return nil, fmt.Errorf("configuring pool: %w", err)
	}
	client.pool = p

	return client, nil
}

// Request sends method to rawURL and returns the parsed response. The
// request runs under the client timeout unless WithRequestTimeout
// overrides it; the connection goes back to the pool on every path.
func (c *Client) Request(ctx context.Context, method, rawURL string, opts ...RequestOption) (resp *response.Response, err error) {
	var settings requestOpts
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, err
		}
	}

	u, dest, err := parseURL(rawURL)
	if err != nil {
		return nil, err
	}

	timeout := c.timeout
	if settings.timeout != nil {
		timeout = *settings.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "httpwire.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("server.address", dest.Host),
			attribute.Int("server.port", dest.EffectivePort()),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
		}
		span.End()
	}()

	hdrs := settings.headers.Clone()
	c.propagator.Inject(ctx, headerCarrier{m: hdrs})

	full := request.Full{
		Method:    method,
		Host:      u.Host,
		Path:      u.RequestURI(),
		Part:      settings.part,
		Headers:   hdrs,
		Defaults:  c.headers,
		UserAgent: c.userAgent,
	}
	raw, err := full.Bytes()
	if err != nil {
		return nil, fmt.Errorf("assembling request: %w", err)
	}

	err = c.pool.With(ctx, dest, func(conn *pool.Conn) error {
		var rtErr error
		resp, rtErr = c.roundTrip(ctx, conn, raw, method == http.MethodHead)
		return rtErr
	})
	if err != nil {
		return nil, c.classify(ctx, timeout, err)
	}

	c.logger.Debug("request complete", "method", method, "url", u.Redacted(), "status", resp.StatusCode)

	return resp, nil
}

// roundTrip writes raw to conn and reads one response. Once ctx is done
// every pending read or write on conn fails immediately.
func (c *Client) roundTrip(ctx context.Context, conn *pool.Conn, raw []byte, noBody bool) (*response.Response, error) {
	if dl, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(dl); err != nil {
			return nil, fmt.Errorf("setting deadline: %w", err)
		}
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})

	popts := []wire.Option{wire.WithMaxBodySize(c.maxBody)}
	if noBody {
		popts = append(popts, wire.WithNoBody())
	}

	resp, err := exchange(conn, raw, popts)

	if !stop() {
		// The deadline was poisoned; the conn must not be reused.
		if err == nil {
			err = ctx.Err()
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		return nil, fmt.Errorf("clearing deadline: %w", err)
	}

	if v, _ := resp.Header("connection"); strings.EqualFold(strings.TrimSpace(v), "close") {
		conn.Discard()
	}
	if resp.StatusCode == http.StatusSwitchingProtocols {
		conn.Discard()
	}

	return resp, nil
}

// exchange performs the strictly sequential write, read head, read body.
// Interim 1xx responses other than 101 are read and dropped.
func exchange(conn *pool.Conn, raw []byte, popts []wire.Option) (*response.Response, error) {
	if _, err := conn.Write(raw); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	for {
		resp, err := readResponse(conn, popts)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 || resp.StatusCode == http.StatusSwitchingProtocols {
			return resp, nil
		}
	}
}

// readResponse reads one message off conn.
func readResponse(conn *pool.Conn, popts []wire.Option) (*response.Response, error) {
	collector := response.NewCollector()
	parser := wire.NewParser(collector, popts...)

	head, err := conn.ReadUntil([]byte("\r\n\r\n"), pool.MaxHeaderBytes)
	if err != nil {
		return nil, fmt.Errorf("reading response head: %w", err)
	}
	if err := parser.Feed(head); err != nil {
		return nil, err
	}

	resp := collector.Response()
	if resp.Closed {
		return resp, nil
	}

	n, err := resp.Len()
	switch {
	case errors.Is(err, header.ErrNotFound):
		n = 0
	case err != nil:
		return nil, fmt.Errorf("%w: %w", wire.ErrMalformed, err)
	}

	body, err := conn.ReadExactly(n)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if err := parser.Feed(body); err != nil {
		return nil, err
	}
	if !resp.Closed {
		return nil, fmt.Errorf("%w: incomplete message", wire.ErrMalformed)
	}

	return resp, nil
}

// classify maps a failure under ctx onto the client's error kinds.
func (c *Client) classify(ctx context.Context, timeout time.Duration, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		c.logger.Debug("request timed out", "timeout", timeout.String(), "error", err)
		return fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, context.DeadlineExceeded)
	case ctx.Err() != nil:
		return fmt.Errorf("request: %w: %w", ctx.Err(), err)
	default:
		return fmt.Errorf("request: %w", err)
	}
}

// Do sends the request and checks the response status against expCode.
// On success the body is JSON decoded into the WithDestination target,
// if any.
func (c *Client) Do(ctx context.Context, method, rawURL string, expCode int, opts ...DoOption) error {
	var settings doOpts
	for _, opt := range opts {
		err := opt(&settings)
		if err != nil {
			return err
		}
	}

	resp, err := c.Request(ctx, method, rawURL, settings.request...)
	if err != nil {
		return fmt.Errorf("exec request: %w", err)
	}

	if resp.StatusCode != expCode {
		body := resp.Body
		if len(body) > maxErrBodySize {
			body = body[:maxErrBodySize]
		}

		sentinel := ErrUnexpectedStatusCode
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			sentinel = errors.Join(ErrUnexpectedStatusCode, ErrAuthFailure)
		}

		return &UnexpectedStatusError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        sentinel,
		}
	}

	if settings.responseBody != nil {
		d := json.NewDecoder(bytes.NewReader(resp.Body))

		if settings.useJSONNum {
			d.UseNumber()
		}

		if err := d.Decode(settings.responseBody); err != nil {
			return fmt.Errorf("decoding body: %w", err)
		}
	}

	return nil
}

// RequestAsync runs Request in q and returns a handle to its outcome.
// A nil q runs the request in a fresh, unlimited queue.
func (c *Client) RequestAsync(ctx context.Context, q *batch.Queue, method, rawURL string, opts ...RequestOption) *batch.Result {
	if q == nil {
		q = batch.NewQueue(0)
	}

	return q.Start(ctx, func(ctx context.Context) (*response.Response, error) {
		return c.Request(ctx, method, rawURL, opts...)
	})
}

// Stats reports the state of the connection pool.
func (c *Client) Stats() pool.Stats {
	return c.pool.Stats()
}

// Close closes every pooled connection. It is safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	return c.pool.CloseAll(ctx)
}

// URL creates a url.URL for use in Request.
// It's just a convenience method that wraps the public URL func.
func (c *Client) URL(scheme, host, path string, opts ...URLOption) *url.URL {
	return URL(scheme, host, path, opts...)
}

// URL creates a url.URL for use in Request.
func URL(scheme, host, path string, opts ...URLOption) *url.URL {
	var settings urlOpts
	for _, opt := range opts {
		opt(&settings)
	}

	if settings.port != nil {
		host = fmt.Sprintf("%s:%d", host, *settings.port)
	}

	endpoint := url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   path,
	}

	if settings.queryStrings != nil {
		queryParams := url.Values{}
		for k, v := range settings.queryStrings {
			queryParams.Add(k, v)
		}

		endpoint.RawQuery = queryParams.Encode()
	}

	return &endpoint
}

// parseURL accepts absolute http and https URLs only.
func parseURL(rawURL string) (*url.URL, pool.Destination, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, pool.Destination{}, fmt.Errorf("%w: %w", ErrUnsupportedURL, err)
	}

	var dest pool.Destination
	switch strings.ToLower(u.Scheme) {
	case "http":
	case "https":
		dest.TLS = true
	default:
		return nil, pool.Destination{}, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}

	dest.Host = u.Hostname()
	if dest.Host == "" {
		return nil, pool.Destination{}, fmt.Errorf("%w: missing host in %q", ErrUnsupportedURL, rawURL)
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			return nil, pool.Destination{}, fmt.Errorf("%w: port %q", ErrUnsupportedURL, p)
		}
		dest.Port = n
	}

	return u, dest, nil
}
