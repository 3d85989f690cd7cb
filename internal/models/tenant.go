package models

// Tenant represents a tenant/organization. Most non-SUPER_ADMIN
// authorization is scoped to it.
type Tenant struct {
	AuditModel

	Name string `json:"name" db:"name"`

	// RegistrationNumber is the tenant's unique external identifier,
	// e.g. a company registration number.
	RegistrationNumber string `json:"registrationNumber" db:"registration_number"`

	Email string `json:"email,omitempty" db:"email"`
	Phone string `json:"phone,omitempty" db:"phone"`
}

// TenantFilters narrows tenant listings
type TenantFilters struct {
	Active *bool
	Search string
}
