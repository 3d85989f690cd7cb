package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated principal
type User struct {
	AuditModel

	Email    string `json:"email" db:"email"`
	FullName string `json:"fullName" db:"full_name"`
	Phone    string `json:"phone,omitempty" db:"phone"`
	AvatarURL string `json:"avatarUrl,omitempty" db:"avatar_url"`

	PasswordHash string `json:"-" db:"password_hash"`

	Role     Role       `json:"role" db:"role"`
	TenantID *uuid.UUID `json:"tenantId,omitempty" db:"tenant_id"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
}

// UserFilters narrows user listings
type UserFilters struct {
	TenantID *uuid.UUID
	Role     *Role
	Active   *bool
	Search   string
}
