// Package httpwire exposes the client builder.
package httpwire

import (
	"github.com/adamwoolhether/httpwire/client"
)

// NewClient instantiates a new *client.Client with the provided options.
// If not specified, the client dials plain TCP or TLS with a pool of
// client.DefaultMaxConns connections.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}
