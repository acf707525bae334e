package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Caller identifies the API key behind an authenticated request.
type Caller struct {
	KeyID     uuid.UUID
	KeyPrefix string
	Scopes    []string
}

type callerKey struct{}

// WithCaller returns a copy of ctx carrying c.
func WithCaller(ctx context.Context, c *Caller) context.Context {
	if entry := accessEntryFrom(ctx); entry != nil {
		entry.keyPrefix = c.KeyPrefix
	}
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller set by Authenticate.
func CallerFrom(ctx context.Context) (*Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(*Caller)
	return c, ok && c != nil
}

// GetKeyID returns the ID of the API key that authenticated the request.
func GetKeyID(r *http.Request) (uuid.UUID, bool) {
	c, ok := CallerFrom(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	return c.KeyID, true
}

// accessEntry collects fields the access log reads after the handler chain
// returns. Inner middleware fills it in through the context.
type accessEntry struct {
	keyPrefix string
}

type accessEntryKey struct{}

func accessEntryFrom(ctx context.Context) *accessEntry {
	e, _ := ctx.Value(accessEntryKey{}).(*accessEntry)
	return e
}
