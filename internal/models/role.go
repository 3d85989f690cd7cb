package models

// Role determines an identity's authorization scope
type Role string

const (
	RoleSuperAdmin        Role = "SUPER_ADMIN"
	RoleTenantAdmin       Role = "TENANT_ADMIN"
	RoleTenantSupervisor  Role = "TENANT_SUPERVISOR"
	RoleTenantCoordinator Role = "TENANT_COORDINATOR"
	RoleTenantOperator    Role = "TENANT_OPERATOR"
)

// AllRoles lists every valid role
var AllRoles = []Role{
	RoleSuperAdmin,
	RoleTenantAdmin,
	RoleTenantSupervisor,
	RoleTenantCoordinator,
	RoleTenantOperator,
}

// AssignableRoles lists the roles that may be granted per application
// through a user assignment. Admin roles rely on the tenant license
// alone and never appear here.
var AssignableRoles = []Role{
	RoleTenantSupervisor,
	RoleTenantCoordinator,
	RoleTenantOperator,
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// TenantScoped reports whether the role requires a tenant.
// SUPER_ADMIN is the only role without one.
func (r Role) TenantScoped() bool {
	return r.Valid() && r != RoleSuperAdmin
}

// RequiresAssignment reports whether application access additionally
// needs an individual user assignment on top of the tenant license.
func (r Role) RequiresAssignment() bool {
	switch r {
	case RoleTenantSupervisor, RoleTenantCoordinator, RoleTenantOperator:
		return true
	}
	return false
}

// Assignable reports whether the role may be carried by a user
// assignment.
func (r Role) Assignable() bool {
	return r.RequiresAssignment()
}
