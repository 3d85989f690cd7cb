package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessAction identifies what an access event records
type AccessAction string

const (
	AccessActionLogin        AccessAction = "LOGIN"
	AccessActionLogout       AccessAction = "LOGOUT"
	AccessActionTokenRefresh AccessAction = "TOKEN_REFRESH"
	AccessActionAppAccess    AccessAction = "APP_ACCESS"
)

// AccessEvent is an audit record of an authentication or application
// access. Foreign ids are the source of truth; display names are a
// read-side projection, never part of the record.
type AccessEvent struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	UserID        uuid.UUID  `json:"userId" db:"user_id"`
	ApplicationID *uuid.UUID `json:"applicationId,omitempty" db:"application_id"`

	Action    AccessAction `json:"action" db:"action"`
	IPAddress string       `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent string       `json:"userAgent,omitempty" db:"user_agent"`
}

// AccessEventFilters narrows access event listings
type AccessEventFilters struct {
	UserID        *uuid.UUID
	ApplicationID *uuid.UUID
	Action        *AccessAction
	StartTime     *time.Time
	EndTime       *time.Time
}
