// Package entitlement computes the effective application-access set
// of an identity and enforces it on direct access requests.
//
// Access is a three-tier gate: the application must be active, the
// tenant license must be active and unexpired, and for roles that
// take individual assignments an active assignment must exist. The
// license is always the outer gate; an assignment whose license has
// lapsed grants nothing.
package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/accesshub/accesshub-server/internal/apperr"
	"github.com/accesshub/accesshub-server/internal/auth"
	"github.com/accesshub/accesshub-server/internal/models"
	"github.com/accesshub/accesshub-server/internal/storage"
)

// Directory is the directory surface the resolver needs
type Directory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	GetLicense(ctx context.Context, tenantID, applicationID uuid.UUID) (*models.TenantLicense, error)
	ListActiveApplications(ctx context.Context) ([]*models.Application, error)
	ListLicensedApplications(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]*models.Application, error)
	ListAssignedApplications(ctx context.Context, userID, tenantID uuid.UUID, now time.Time) ([]*models.Application, error)
	GetUserAssignment(ctx context.Context, userID, applicationID uuid.UUID) (*models.UserAssignment, error)
	ListUserAssignments(ctx context.Context, userID uuid.UUID) ([]*models.UserAssignment, error)
	ReplaceUserAssignments(ctx context.Context, userID uuid.UUID, assignments []*models.UserAssignment) error
}

// AuditRecorder records access audit events. Recording is
// best-effort and never fails the request being audited.
type AuditRecorder interface {
	RecordAccess(ctx context.Context, event *models.AccessEvent)
}

// AccessGrant is the result of a successful access request. The
// caller attaches credentials; this component stays transport-free.
type AccessGrant struct {
	URL             string `json:"url"`
	ApplicationName string `json:"applicationName"`
}

// AssignmentInput is one desired assignment entry
type AssignmentInput struct {
	ApplicationID uuid.UUID   `json:"applicationId"`
	Role          models.Role `json:"role"`
}

// RequestMeta carries transport metadata into the audit trail
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Resolver computes and enforces entitlements
type Resolver struct {
	dir   Directory
	audit AuditRecorder
	now   func() time.Time
}

// NewResolver creates a new resolver
func NewResolver(dir Directory, audit AuditRecorder) *Resolver {
	return &Resolver{
		dir:   dir,
		audit: audit,
		now:   time.Now,
	}
}

// AvailableApplications computes the point-in-time set of
// applications the identity may access, in name order. Filtering here
// is a normal negative result; lapsed licenses silently exclude their
// application.
func (r *Resolver) AvailableApplications(ctx context.Context, actor auth.Identity) ([]*models.Application, error) {
	now := r.now()

	switch {
	case actor.Role == models.RoleSuperAdmin:
		return r.dir.ListActiveApplications(ctx)

	case actor.Role == models.RoleTenantAdmin:
		if actor.TenantID == nil {
			return nil, nil
		}
		return r.dir.ListLicensedApplications(ctx, *actor.TenantID, now)

	case actor.Role.RequiresAssignment():
		if actor.TenantID == nil {
			return nil, nil
		}
		return r.dir.ListAssignedApplications(ctx, actor.ID, *actor.TenantID, now)

	default:
		return nil, nil
	}
}

// RequestAccessGrant re-validates the full application/license/
// assignment chain for one application and returns its redirect
// target. Unlike AvailableApplications, a failing gate here is an
// explicit NoAccess error, not silent filtering.
func (r *Resolver) RequestAccessGrant(ctx context.Context, actor auth.Identity, applicationID uuid.UUID, meta RequestMeta) (*AccessGrant, error) {
	app, err := r.dir.GetApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.ErrApplicationNotFound
		}
		return nil, err
	}
	if !app.Active {
		return nil, apperr.ErrNoAccess
	}

	if actor.Role != models.RoleSuperAdmin {
		if actor.TenantID == nil {
			return nil, apperr.ErrNoAccess
		}

		license, err := r.dir.GetLicense(ctx, *actor.TenantID, applicationID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, apperr.ErrNoAccess
			}
			return nil, err
		}
		if !license.Effective(r.now()) {
			return nil, apperr.ErrNoAccess
		}

		if actor.Role.RequiresAssignment() {
			if _, err := r.dir.GetUserAssignment(ctx, actor.ID, applicationID); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return nil, apperr.ErrNoAccess
				}
				return nil, err
			}
		}
	}

	r.audit.RecordAccess(ctx, &models.AccessEvent{
		UserID:        actor.ID,
		ApplicationID: &applicationID,
		Action:        models.AccessActionAppAccess,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
	})

	log.Debug().
		Str("user_id", actor.ID.String()).
		Str("application_id", applicationID.String()).
		Msg("Access grant issued")

	return &AccessGrant{
		URL:             app.URL,
		ApplicationName: app.Name,
	}, nil
}

// SyncAssignments replaces the target's entire assignment set with
// the desired end state. One invalid entry fails the whole call and
// leaves the prior set untouched.
func (r *Resolver) SyncAssignments(ctx context.Context, actor auth.Identity, targetID uuid.UUID, desired []AssignmentInput) ([]*models.UserAssignment, error) {
	target, err := r.dir.GetUser(ctx, targetID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, err
	}

	if target.TenantID == nil {
		return nil, apperr.ErrTargetNotAssignable
	}
	if err := auth.CheckTenantScope(actor, *target.TenantID); err != nil {
		return nil, err
	}
	if !target.Role.Assignable() {
		return nil, apperr.ErrTargetNotAssignable
	}

	now := r.now()
	seen := make(map[uuid.UUID]bool, len(desired))
	assignments := make([]*models.UserAssignment, 0, len(desired))

	for _, entry := range desired {
		if !entry.Role.Assignable() {
			return nil, apperr.ErrInvalidAppRole
		}
		if seen[entry.ApplicationID] {
			return nil, apperr.ErrInvalidApplications
		}
		seen[entry.ApplicationID] = true

		license, err := r.dir.GetLicense(ctx, *target.TenantID, entry.ApplicationID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, apperr.ErrInvalidApplications
			}
			return nil, err
		}
		if !license.Effective(now) {
			return nil, apperr.ErrInvalidApplications
		}

		assignments = append(assignments, &models.UserAssignment{
			UserID:        targetID,
			ApplicationID: entry.ApplicationID,
			AppRole:       entry.Role,
			CreatedBy:     actor.ID,
		})
	}

	if err := r.dir.ReplaceUserAssignments(ctx, targetID, assignments); err != nil {
		return nil, err
	}

	return r.dir.ListUserAssignments(ctx, targetID)
}
