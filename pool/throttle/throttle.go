package throttle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/adamwoolhether/httpwire/pool"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Config defines the throttler's
// Dials Per Second and Burst Rate
type Config struct {
	RPS   int `validate:"gt=0"`
	Burst int `validate:"gt=0"`
}

// throttle is a pool.Dialer, using the time/rate token
// bucket limiter to restrict new connections.
type throttle struct {
	limiter *rate.Limiter
	rps     int
	burst   int
	next    pool.Dialer
	logFn   func() *slog.Logger
}

// NewDialer returns a pool.Dialer that throttles new connections using a
// token bucket rate limiter. logFn lazily resolves the logger at dial time,
// making option ordering irrelevant. A nil-returning logFn disables logging.
func NewDialer(rps, burst int, logFn func() *slog.Logger, next pool.Dialer) (pool.Dialer, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
	}
	if next == nil {
		next = &pool.NetDialer{}
	}
	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	t := &throttle{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
		next:    next,
		logFn:   logFn,
	}

	return t, nil
}

func (t *throttle) Dial(ctx context.Context, dest pool.Destination) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	var waited time.Duration
	logger := t.logFn()
	if logger != nil && t.limiter.Tokens() < 1 {
		logger.Info("throttle tokens exhausted", "rate", t.rps, "burst", t.burst, "dest", dest.String())

		defer func() {
			logger.Info("throttle wait complete", "waited", waited.String(), "rate", t.rps, "burst", t.burst)
		}()
	}

	start := time.Now()

	err := t.limiter.Wait(ctx)
	waited = time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	if err := ctx.Err(); err != nil { // Check context hasn't expired again.
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return t.next.Dial(ctx, dest)
}
