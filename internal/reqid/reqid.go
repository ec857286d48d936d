// Package reqid carries a request correlation id through contexts and
// across agent hops.
package reqid

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// Header is the HTTP header used to propagate the id between agents.
const Header = "X-Request-ID"

type requestIDKey struct{}

// With stores a request id in the context.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// From retrieves the request id from the context.
// Returns empty string if no id is present.
func From(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Generate creates a new 16-char hex request id using crypto/rand.
func Generate() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
