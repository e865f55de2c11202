package client

import (
	"go.opentelemetry.io/otel/propagation"

	"github.com/adamwoolhether/httpwire/header"
)

// headerCarrier lets an otel propagator write into a header.Map.
type headerCarrier struct {
	m *header.Map
}

var _ propagation.TextMapCarrier = headerCarrier{}

func (c headerCarrier) Get(key string) string {
	v, _ := c.m.Get(key)
	return v
}

func (c headerCarrier) Set(key, value string) {
	c.m.Set(key, value)
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, c.m.Len())
	for k := range c.m.All() {
		keys = append(keys, c.m.Name(k))
	}
	return keys
}
