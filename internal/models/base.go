package models

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel contains common fields for all models
type BaseModel struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// AuditModel extends BaseModel with lifecycle and audit fields.
// Records are never hard-deleted; Active plus the deactivation
// fields carry the lifecycle state.
type AuditModel struct {
	BaseModel

	Active        bool       `json:"active" db:"active"`
	CreatedBy     *uuid.UUID `json:"createdBy,omitempty" db:"created_by"`
	UpdatedBy     *uuid.UUID `json:"updatedBy,omitempty" db:"updated_by"`
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty" db:"deactivated_at"`
	DeactivatedBy *uuid.UUID `json:"deactivatedBy,omitempty" db:"deactivated_by"`
}

// Deactivate marks the record inactive and stamps the audit fields.
func (m *AuditModel) Deactivate(by uuid.UUID, at time.Time) {
	m.Active = false
	m.DeactivatedAt = &at
	m.DeactivatedBy = &by
	m.UpdatedBy = &by
}

// Reactivate clears the deactivation state.
func (m *AuditModel) Reactivate(by uuid.UUID) {
	m.Active = true
	m.DeactivatedAt = nil
	m.DeactivatedBy = nil
	m.UpdatedBy = &by
}
