package pool

import (
	"context"
	"crypto/tls"
	"net"
	"time"
)

// DefaultHandshakeTimeout bounds the TLS handshake of a new connection.
const DefaultHandshakeTimeout = 60 * time.Second

// Dialer opens new streams for the pool.
type Dialer interface {
	Dial(ctx context.Context, dest Destination) (net.Conn, error)
}

// DialerFunc adapts a plain function to a Dialer.
type DialerFunc func(ctx context.Context, dest Destination) (net.Conn, error)

// Dial calls f(ctx, dest).
func (f DialerFunc) Dial(ctx context.Context, dest Destination) (net.Conn, error) {
	return f(ctx, dest)
}

// NetDialer dials TCP, and wraps the stream in TLS for TLS destinations.
type NetDialer struct {
	// HandshakeTimeout bounds the TLS handshake. Zero means
	// DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration
	// TLSConfig is cloned per dial. ServerName defaults to the host.
	TLSConfig *tls.Config
	// KeepAlive is passed through to net.Dialer.
	KeepAlive time.Duration
}

// Dial implements Dialer.
func (d *NetDialer) Dial(ctx context.Context, dest Destination) (net.Conn, error) {
	nd := net.Dialer{KeepAlive: d.KeepAlive}

	conn, err := nd.DialContext(ctx, "tcp", dest.Addr())
	if err != nil {
		return nil, err
	}
	if !dest.TLS {
		return conn, nil
	}

	cfg := &tls.Config{}
	if d.TLSConfig != nil {
		cfg = d.TLSConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = dest.Host
	}
	if len(cfg.NextProtos) == 0 {
		cfg.NextProtos = []string{"http/1.1"}
	}

	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(hctx); err != nil {
		conn.Close()
		return nil, err
	}

	return tlsConn, nil
}
