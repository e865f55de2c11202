package part

import (
	"net/url"
)

// URLEncoded builds application/x-www-form-urlencoded bodies.
//
// Build appends to any existing body rather than replacing it, so the
// same builder can be filled across several scopes without a Clean.
type URLEncoded struct {
	fields url.Values
	body   []byte
}

// NewURLEncoded returns an empty URLEncoded builder.
func NewURLEncoded() *URLEncoded {
	return &URLEncoded{fields: url.Values{}}
}

// AddField inserts or overwrites name.
func (u *URLEncoded) AddField(name, value string) {
	if u.fields == nil {
		u.fields = url.Values{}
	}
	u.fields.Set(name, value)
}

// Fields returns a copy of the accumulated fields.
func (u *URLEncoded) Fields() map[string]string {
	out := make(map[string]string, len(u.fields))
	for k := range u.fields {
		out[k] = u.fields.Get(k)
	}

	return out
}

// ContentType implements Part.
func (u *URLEncoded) ContentType() string {
	return "application/x-www-form-urlencoded"
}

// Body implements Part.
func (u *URLEncoded) Body() []byte { return u.body }

// ContentLength implements Part.
func (u *URLEncoded) ContentLength() int { return len(u.body) }

// Build appends the percent-encoded fields to the body.
func (u *URLEncoded) Build() {
	u.body = append(u.body, u.fields.Encode()...)
}

// Clean implements Part.
func (u *URLEncoded) Clean() {
	u.body = nil
	clear(u.fields)
}
