package pool

import (
	"net"
	"strconv"
)

// Destination identifies where a connection goes. Idle connections are
// only reused for the Destination they were dialed for.
type Destination struct {
	Host string
	Port int
	TLS  bool
}

// DefaultPort returns 443 for TLS destinations and 80 otherwise.
func (d Destination) DefaultPort() int {
	if d.TLS {
		return 443
	}

	return 80
}

// EffectivePort returns Port, or DefaultPort when Port is zero.
func (d Destination) EffectivePort() int {
	return d.normalize().Port
}

// normalize fills in the default port so equal endpoints share a queue.
func (d Destination) normalize() Destination {
	if d.Port == 0 {
		d.Port = d.DefaultPort()
	}

	return d
}

// Addr returns host:port, using the default port when Port is zero.
func (d Destination) Addr() string {
	d = d.normalize()

	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// String implements fmt.Stringer.
func (d Destination) String() string {
	if d.TLS {
		return "tls://" + d.Addr()
	}

	return "tcp://" + d.Addr()
}
