package models

import (
	"time"

	"github.com/google/uuid"
)

// Application represents an external application reachable through
// the platform.
type Application struct {
	AuditModel

	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`

	// URL is the application's redirect target. Credential attachment
	// is left to the caller.
	URL     string `json:"url" db:"url"`
	IconURL string `json:"iconUrl,omitempty" db:"icon_url"`

	// APIKey is the application's unique secret key, used by the
	// application itself to validate platform tokens.
	APIKey string `json:"apiKey,omitempty" db:"api_key"`
}

// TenantLicense is a tenant-level, optionally time-bounded grant of
// one application to one tenant. (tenantId, applicationId) is unique.
type TenantLicense struct {
	AuditModel

	TenantID      uuid.UUID `json:"tenantId" db:"tenant_id"`
	ApplicationID uuid.UUID `json:"applicationId" db:"application_id"`

	ExpiresAt *time.Time `json:"expiresAt,omitempty" db:"expires_at"`
}

// Effective reports whether the license grants anything at the given
// instant. The license is always the outer gate: an assignment whose
// license has lapsed grants nothing.
func (l *TenantLicense) Effective(now time.Time) bool {
	if !l.Active {
		return false
	}
	return l.ExpiresAt == nil || l.ExpiresAt.After(now)
}

// UserAssignment narrows a tenant's license to one individual,
// non-admin identity. (userId, applicationId) is unique.
type UserAssignment struct {
	ID            uuid.UUID `json:"id" db:"id"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	CreatedBy     uuid.UUID `json:"createdBy" db:"created_by"`

	UserID        uuid.UUID `json:"userId" db:"user_id"`
	ApplicationID uuid.UUID `json:"applicationId" db:"application_id"`

	// AppRole is the per-application role, drawn from AssignableRoles.
	AppRole Role `json:"appRole" db:"app_role"`
}
