package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the persisted record of an issued refresh
// credential. Only the one-way digest of the raw token is stored;
// the raw secret never touches storage.
type RefreshToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	UserID      uuid.UUID `json:"userId" db:"user_id"`
	TokenDigest string    `json:"-" db:"token_digest"`

	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
	Revoked   bool      `json:"revoked" db:"revoked"`
}

// Usable reports whether the record still backs token rotation.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}
