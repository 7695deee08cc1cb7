package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyIdentity  contextKey = "identity"
)

// Identity is the resolved caller identity attached by the auth middleware.
// AuthenticatedVia is either "api-token" or "session".
type Identity struct {
	Name             string   `json:"name,omitempty"`
	Username         string   `json:"username,omitempty"`
	Roles            []string `json:"roles,omitempty"`
	AuthenticatedVia string   `json:"authenticatedVia"`
}

// DisplayName resolves the audit name for createdBy fields.
func (id Identity) DisplayName() string {
	if id.Name != "" {
		return id.Name
	}
	if id.Username != "" {
		return id.Username
	}
	return "system"
}

// HasAnyRole reports whether the identity carries at least one of the roles.
func (id Identity) HasAnyRole(roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, want := range roles {
		for _, got := range id.Roles {
			if got == want {
				return true
			}
		}
	}
	return false
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithIdentity adds the resolved caller identity to the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, id)
}

// IdentityFromContext extracts the caller identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ContextKeyIdentity).(Identity)
	return id, ok
}
