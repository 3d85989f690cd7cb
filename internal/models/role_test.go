package models

import "testing"

func TestRoleValid(t *testing.T) {
	for _, role := range AllRoles {
		if !role.Valid() {
			t.Errorf("%s not valid", role)
		}
	}
	if Role("COMPANY_ADMIN").Valid() {
		t.Error("unknown role accepted")
	}
	if Role("").Valid() {
		t.Error("empty role accepted")
	}
}

func TestRoleTenantScoped(t *testing.T) {
	if RoleSuperAdmin.TenantScoped() {
		t.Error("SUPER_ADMIN is tenant scoped")
	}
	for _, role := range []Role{RoleTenantAdmin, RoleTenantSupervisor, RoleTenantCoordinator, RoleTenantOperator} {
		if !role.TenantScoped() {
			t.Errorf("%s not tenant scoped", role)
		}
	}
	if Role("BOGUS").TenantScoped() {
		t.Error("invalid role tenant scoped")
	}
}

func TestRoleRequiresAssignment(t *testing.T) {
	if RoleSuperAdmin.RequiresAssignment() || RoleTenantAdmin.RequiresAssignment() {
		t.Error("admin roles gated on assignments")
	}
	for _, role := range AssignableRoles {
		if !role.RequiresAssignment() {
			t.Errorf("%s does not require assignment", role)
		}
		if !role.Assignable() {
			t.Errorf("%s not assignable", role)
		}
	}
	if RoleTenantAdmin.Assignable() {
		t.Error("TENANT_ADMIN assignable")
	}
}
