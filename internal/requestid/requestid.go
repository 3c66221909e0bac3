// Package requestid tags each forge API call with an ID that follows it
// through logs and downstream gateway requests. The server middleware mints
// one per inbound request and echoes it back in the X-Request-ID response
// header so a failed generation can be matched to its server-side log lines.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// WithRequestID stores an already-minted ID on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the ID carried by ctx. Work that runs outside a request,
// like a background job worker, gets a fresh ID instead of an empty tag.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// New mints an ID for an inbound request and returns both the tagged context
// and the ID to echo in the response header.
func New(ctx context.Context) (context.Context, string) {
	id := uuid.New().String()
	return WithRequestID(ctx, id), id
}
