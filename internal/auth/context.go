package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/models"
)

// Identity is the authenticated identity context attached to a
// request after the session gateway accepted its credential.
type Identity struct {
	ID       uuid.UUID   `json:"id"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	TenantID *uuid.UUID  `json:"tenantId,omitempty"`
}

// SameTenant reports whether the identity belongs to the given tenant
func (i Identity) SameTenant(tenantID uuid.UUID) bool {
	return i.TenantID != nil && *i.TenantID == tenantID
}

type ctxKey struct{}

// WithIdentity attaches the identity to the context
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity)
}

// IdentityFromContext extracts the identity from the context
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(ctxKey{}).(Identity)
	return identity, ok
}
