package auth

import (
	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/apperr"
	"github.com/accesshub/accesshub-server/internal/models"
)

// Action names an operation guarded by the policy table
type Action string

const (
	ActionManageTenants      Action = "tenants:manage"
	ActionManageApplications Action = "applications:manage"
	ActionManageLicenses     Action = "licenses:manage"
	ActionManageUsers        Action = "users:manage"
	ActionManageTenantUsers  Action = "tenant-users:manage"
	ActionSyncAssignments    Action = "assignments:sync"
	ActionViewEvents         Action = "events:view"
)

// policy is the (role, action) decision table. Role checks go through
// this table instead of per-endpoint conditionals.
var policy = map[Action][]models.Role{
	ActionManageTenants:      {models.RoleSuperAdmin},
	ActionManageApplications: {models.RoleSuperAdmin},
	ActionManageLicenses:     {models.RoleSuperAdmin},
	ActionManageUsers:        {models.RoleSuperAdmin},
	ActionManageTenantUsers:  {models.RoleSuperAdmin, models.RoleTenantAdmin},
	ActionSyncAssignments:    {models.RoleSuperAdmin, models.RoleTenantAdmin},
	ActionViewEvents:         {models.RoleSuperAdmin},
}

// Allowed reports whether the role may perform the action
func Allowed(role models.Role, action Action) bool {
	for _, allowed := range policy[action] {
		if role == allowed {
			return true
		}
	}
	return false
}

// RequireAction checks the policy table for the actor's role
func RequireAction(actor Identity, action Action) error {
	if !Allowed(actor.Role, action) {
		return apperr.ErrForbidden
	}
	return nil
}

// CheckTenantScope verifies the actor may touch a resource of the
// given tenant. SUPER_ADMIN bypasses; every other role is confined to
// its own tenant.
func CheckTenantScope(actor Identity, tenantID uuid.UUID) error {
	if actor.Role == models.RoleSuperAdmin {
		return nil
	}
	if !actor.SameTenant(tenantID) {
		return apperr.ErrTenantScopeViolation
	}
	return nil
}

// CheckManageRole verifies the actor may create or manage an identity
// holding the target role. SUPER_ADMIN manages anyone; TENANT_ADMIN
// manages only non-admin roles; nobody else manages identities.
func CheckManageRole(actor Identity, target models.Role) error {
	switch actor.Role {
	case models.RoleSuperAdmin:
		return nil
	case models.RoleTenantAdmin:
		if target == models.RoleSuperAdmin || target == models.RoleTenantAdmin {
			return apperr.ErrCannotManageRole
		}
		return nil
	default:
		return apperr.ErrForbidden
	}
}

// CheckRoleTenant verifies the role/tenant combination of an identity
// being created or updated: SUPER_ADMIN carries no tenant, every
// other role requires one.
func CheckRoleTenant(role models.Role, tenantID *uuid.UUID) error {
	if !role.Valid() {
		return apperr.ErrInvalidRoleTenant
	}
	if role == models.RoleSuperAdmin {
		if tenantID != nil {
			return apperr.ErrInvalidRoleTenant
		}
		return nil
	}
	if tenantID == nil {
		return apperr.ErrInvalidRoleTenant
	}
	return nil
}

// CheckDeactivateUser runs the deactivation guards in fixed order:
// tenant scope, management capability, self protection, admin
// protection. tenantScoped marks the tenant-admin path, which may
// never target a TENANT_ADMIN identity.
func CheckDeactivateUser(actor Identity, target *models.User, tenantScoped bool) error {
	if target.TenantID != nil {
		if err := CheckTenantScope(actor, *target.TenantID); err != nil {
			return err
		}
	} else if actor.Role != models.RoleSuperAdmin {
		return apperr.ErrTenantScopeViolation
	}

	if err := CheckManageRole(actor, target.Role); err != nil {
		return err
	}

	if actor.ID == target.ID {
		return apperr.ErrCannotDeactivateSelf
	}

	if tenantScoped && target.Role == models.RoleTenantAdmin {
		return apperr.ErrCannotDeactivateAdmin
	}

	return nil
}
