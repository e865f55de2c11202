// Package header provides a case-insensitive HTTP header container.
//
// Keys are compared case-insensitively, so
//
//	h := header.New("Content-Type", "text/plain")
//	v, _ := h.Get("CONTENT-TYPE") // "text/plain"
//
// The spelling of a key's first insertion is kept for output, and
// entries are encoded in first-insertion order.
package header

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var (
	// ErrNotFound is returned when a requested header key is absent.
	ErrNotFound = errors.New("header not found")
	// ErrInvalid is returned by Validate for a malformed field name or value.
	ErrInvalid = errors.New("invalid header field")
)

// Key is a lower-cased header field name used for lookups.
// Only construct it through NewKey.
type Key string

// NewKey normalizes s into a Key.
func NewKey(s string) Key {
	return Key(strings.ToLower(s))
}

// String implements fmt.Stringer.
func (k Key) String() string { return string(k) }

// Map is an ordered, case-insensitive key/value container.
// The zero value is ready to use. A Map is not safe for concurrent use.
type Map struct {
	keys   []Key
	names  map[Key]string
	values map[Key]string
}

// New builds a Map from alternating key/value pairs.
// A trailing key without value is ignored.
func New(kv ...string) *Map {
	m := &Map{}
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(kv[i], kv[i+1])
	}

	return m
}

// FromMap builds a Map from a plain map. Since Go maps are unordered,
// the keys are inserted in sorted order.
func FromMap(src map[string]string) *Map {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	m := &Map{}
	for _, k := range keys {
		m.Set(k, src[k])
	}

	return m
}

// Set inserts or overwrites the value for key. Overwriting keeps the
// key's original position and spelling.
func (m *Map) Set(key, value string) {
	k := NewKey(key)
	if m.values == nil {
		m.values = make(map[Key]string)
		m.names = make(map[Key]string)
	}
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
		m.names[k] = key
	}
	m.values[k] = value
}

// Name returns the spelling k was first inserted with.
func (m *Map) Name(k Key) string {
	if m == nil {
		return string(k)
	}
	if n, ok := m.names[k]; ok {
		return n
	}

	return string(k)
}

// Get returns the value stored for key, or ErrNotFound.
func (m *Map) Get(key string) (string, error) {
	if m == nil {
		return "", fmt.Errorf("%q: %w", key, ErrNotFound)
	}

	v, ok := m.values[NewKey(key)]
	if !ok {
		return "", fmt.Errorf("%q: %w", key, ErrNotFound)
	}

	return v, nil
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.values[NewKey(key)]

	return ok
}

// Delete removes key. Deleting an absent key is a no-op.
func (m *Map) Delete(key string) {
	if m == nil {
		return
	}

	k := NewKey(key)
	if _, ok := m.values[k]; !ok {
		return
	}
	delete(m.values, k)
	delete(m.names, k)

	if i := slices.Index(m.keys, k); i >= 0 {
		m.keys = slices.Delete(m.keys, i, i+1)
	}
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}

	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []Key {
	if m == nil {
		return nil
	}

	out := make([]Key, len(m.keys))
	copy(out, m.keys)

	return out
}

// All iterates over key/value pairs in insertion order.
func (m *Map) All() iter.Seq2[Key, string] {
	return func(yield func(Key, string) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// Clone returns an independent copy of m.
func (m *Map) Clone() *Map {
	out := &Map{}
	if m == nil {
		return out
	}

	out.keys = make([]Key, len(m.keys))
	copy(out.keys, m.keys)
	out.names = maps.Clone(m.names)
	out.values = maps.Clone(m.values)

	return out
}

// Merge returns a new Map holding other's entries overridden by m's
// entries on conflicting keys. A conflicting key keeps other's position
// and spelling; keys only in m keep m's spelling. Neither m nor other
// is modified.
func (m *Map) Merge(other *Map) *Map {
	out := other.Clone()
	for k, v := range m.All() {
		out.Set(m.Name(k), v)
	}

	return out
}

// Validate reports the first field whose name or value could not be
// sent on the wire.
func (m *Map) Validate() error {
	for k, v := range m.All() {
		if !httpguts.ValidHeaderFieldName(string(k)) {
			return fmt.Errorf("%w: name %q", ErrInvalid, k)
		}
		if !httpguts.ValidHeaderFieldValue(v) {
			return fmt.Errorf("%w: value for %q", ErrInvalid, k)
		}
	}

	return nil
}

// Encode renders the map as "Name: value" lines joined by CRLF.
// There is no trailing CRLF.
func (m *Map) Encode() []byte {
	var buf bytes.Buffer
	for k, v := range m.All() {
		if buf.Len() > 0 {
			buf.WriteString("\r\n")
		}
		buf.WriteString(m.Name(k))
		buf.WriteString(": ")
		buf.WriteString(v)
	}

	return buf.Bytes()
}

// String implements fmt.Stringer.
func (m *Map) String() string {
	return string(m.Encode())
}
