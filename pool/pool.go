// Package pool manages a bounded set of reusable connections.
//
// At most max connections are busy at any time across all destinations.
// Idle connections are queued per Destination and handed out FIFO. A
// queue slot may be a placeholder, standing in for a connection that was
// closed; taking a placeholder dials a fresh connection.
package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var (
	errAborted   = errors.New("scope exited without returning")
	errIdleLimit = errors.New("idle limit reached")
)

// Stats is a point-in-time view of the pool.
type Stats struct {
	Idle         int
	Placeholders int
	Busy         int
	Max          int
}

// Pool hands out connections. Its zero value is not usable; use New.
type Pool struct {
	dialer  Dialer
	logger  *slog.Logger
	max     int
	maxIdle int
	sem     *semaphore.Weighted

	mu     sync.Mutex
	idle   map[Destination][]*Conn // nil entries are placeholders
	busy   map[*Conn]struct{}
	closed bool
}

// Option configures a Pool.
type Option func(*Pool) error

// WithLogger sets the pool's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) error {
		if logger == nil {
			return errors.New("nil logger")
		}
		p.logger = logger

		return nil
	}
}

// WithMaxIdlePerDest caps how many idle connections are kept for each
// Destination. Connections released beyond the cap are closed. Zero
// means no cap.
func WithMaxIdlePerDest(n int) Option {
	return func(p *Pool) error {
		if n < 0 {
			return fmt.Errorf("max idle per destination[%d] must not be negative", n)
		}
		p.maxIdle = n

		return nil
	}
}

// New returns a Pool allowing max concurrently busy connections.
func New(max int, dialer Dialer, opts ...Option) (*Pool, error) {
	if max <= 0 {
		return nil, fmt.Errorf("max conns[%d] %w", max, ErrMustNotBeZero)
	}
	if dialer == nil {
		dialer = &NetDialer{}
	}

	p := Pool{
		dialer: dialer,
		logger: slog.Default(),
		max:    max,
		sem:    semaphore.NewWeighted(int64(max)),
		idle:   make(map[Destination][]*Conn),
		busy:   make(map[*Conn]struct{}),
	}

	for _, opt := range opts {
		if err := opt(&p); err != nil {
			return nil, err
		}
	}

	return &p, nil
}

// Acquire waits for a free slot, then returns an idle connection for
// dest or dials a new one. The caller must Release it.
func (p *Pool) Acquire(ctx context.Context, dest Destination) (*Conn, error) {
	dest = dest.normalize()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for connection slot: %w", err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return nil, ErrClosed
	}

	var conn *Conn
	if q := p.idle[dest]; len(q) > 0 {
		conn = q[0]
		q[0] = nil
		p.idle[dest] = q[1:]
	}
	if conn != nil {
		p.busy[conn] = struct{}{}
		p.mu.Unlock()

		p.logger.Debug("reusing connection", "conn", conn.id, "dest", dest.String())
		return conn, nil
	}
	p.mu.Unlock()

	nc, err := p.dialer.Dial(ctx, dest)
	if err != nil {
		p.sem.Release(1)
		return nil, &ConnectError{Addr: dest.Addr(), Err: err}
	}
	conn = newConn(uuid.NewString(), dest, nc)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		nc.Close()
		p.sem.Release(1)
		return nil, ErrClosed
	}
	p.busy[conn] = struct{}{}
	p.mu.Unlock()

	p.logger.Debug("dialed connection", "conn", conn.id, "dest", dest.String())

	return conn, nil
}

// Release hands conn back. A nil err returns it to the idle queue; a
// non-nil err, a discarded conn, a full idle queue, or a release after
// CloseAll closes it and queues a placeholder in its place.
func (p *Pool) Release(conn *Conn, err error) {
	p.mu.Lock()
	delete(p.busy, conn)
	keep := err == nil && !conn.discard && !p.closed
	if keep && p.maxIdle > 0 && p.idleCount(conn.dest) >= p.maxIdle {
		keep = false
		err = errIdleLimit
	}
	if keep {
		p.idle[conn.dest] = append(p.idle[conn.dest], conn)
	} else {
		p.idle[conn.dest] = append(p.idle[conn.dest], nil)
	}
	p.mu.Unlock()

	if !keep {
		if cerr := conn.Close(); cerr != nil && !closedErr(cerr) {
			p.logger.Error("closing connection", "conn", conn.id, "error", cerr)
		}
		p.logger.Debug("discarded connection", "conn", conn.id, "dest", conn.dest.String(), "cause", err)
	}

	p.sem.Release(1)
}

// With acquires a connection for dest, runs fn and releases the
// connection with fn's error. The release happens even if fn panics.
func (p *Pool) With(ctx context.Context, dest Destination, fn func(*Conn) error) error {
	conn, err := p.Acquire(ctx, dest)
	if err != nil {
		return err
	}

	var fnErr error = errAborted
	defer func() { p.Release(conn, fnErr) }()

	fnErr = fn(conn)

	return fnErr
}

// CloseAll closes every idle and busy connection. Idle queues keep their
// length, filled with placeholders. Calling it more than once is a no-op.
func (p *Pool) CloseAll(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	var conns []*Conn
	for dest, q := range p.idle {
		for _, c := range q {
			if c != nil {
				conns = append(conns, c)
			}
		}
		p.idle[dest] = make([]*Conn, len(q))
	}
	for c := range p.busy {
		conns = append(conns, c)
	}
	p.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, c := range conns {
		g.Go(func() error {
			if err := c.Close(); err != nil && !closedErr(err) {
				return fmt.Errorf("closing conn %s: %w", c.id, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.logger.Error("closing pool", "error", err)
		return err
	}
	p.logger.Debug("pool closed", "conns", len(conns))

	return nil
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{Busy: len(p.busy), Max: p.max}
	for _, q := range p.idle {
		for _, c := range q {
			if c == nil {
				s.Placeholders++
			} else {
				s.Idle++
			}
		}
	}

	return s
}

// idleCount returns the live connections queued for dest. The caller
// holds p.mu.
func (p *Pool) idleCount(dest Destination) int {
	n := 0
	for _, c := range p.idle[dest] {
		if c != nil {
			n++
		}
	}

	return n
}

// closedErr reports whether err only says the stream was already closed.
func closedErr(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
