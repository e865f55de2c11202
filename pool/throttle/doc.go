// Package throttle provides a [pool.Dialer] that rate-limits new
// connections using a token-bucket algorithm from
// [golang.org/x/time/rate].
//
// # Usage
//
// Wrap an existing dialer with [NewDialer]:
//
//	d, err := throttle.NewDialer(
//		10, // dials per second
//		5,  // burst capacity
//		func() *slog.Logger { return slog.Default() },
//		&pool.NetDialer{},
//	)
//	p, err := pool.New(8, d)
//
// When the rate limit is exceeded, dials block until a token becomes
// available or the context is cancelled. Reused connections are never
// throttled.
package throttle
