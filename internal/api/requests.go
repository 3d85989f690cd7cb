package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/entitlement"
	"github.com/accesshub/accesshub-server/internal/models"
)

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// RefreshRequest is the token rotation payload
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// LogoutRequest is the logout payload
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Validate will run validation rules
func (r LogoutRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// ValidateTokenRequest is the external token validation payload
type ValidateTokenRequest struct {
	Token  string `json:"token"`
	APIKey string `json:"apiKey"`
}

// Validate will run validation rules
func (r ValidateTokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.APIKey, validation.Required),
	)
}

// ChangePasswordRequest is the password change payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Validate will run validation rules
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
	)
}

// UpdateProfileRequest is the profile update payload
type UpdateProfileRequest struct {
	FullName  string `json:"fullName"`
	Phone     string `json:"phone"`
	AvatarURL string `json:"avatarUrl"`
}

// Validate will run validation rules
func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.AvatarURL, is.URL),
	)
}

// CreateUserRequest is the user creation payload
type CreateUserRequest struct {
	Email     string      `json:"email"`
	FullName  string      `json:"fullName"`
	Password  string      `json:"password"`
	Role      models.Role `json:"role"`
	TenantID  *uuid.UUID  `json:"tenantId"`
	Phone     string      `json:"phone"`
	AvatarURL string      `json:"avatarUrl"`
}

// Validate will run validation rules
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.Role, validation.Required, validation.In(
			models.RoleSuperAdmin,
			models.RoleTenantAdmin,
			models.RoleTenantSupervisor,
			models.RoleTenantCoordinator,
			models.RoleTenantOperator,
		)),
		validation.Field(&r.AvatarURL, is.URL),
	)
}

// CreateTenantUserRequest is the tenant-scoped user creation payload.
// The tenant comes from the route; the role must be a non-admin
// tenant role.
type CreateTenantUserRequest struct {
	Email     string      `json:"email"`
	FullName  string      `json:"fullName"`
	Password  string      `json:"password"`
	Role      models.Role `json:"role"`
	Phone     string      `json:"phone"`
	AvatarURL string      `json:"avatarUrl"`
}

// Validate will run validation rules
func (r CreateTenantUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.Role, validation.Required, validation.In(
			models.RoleTenantSupervisor,
			models.RoleTenantCoordinator,
			models.RoleTenantOperator,
		)),
		validation.Field(&r.AvatarURL, is.URL),
	)
}

// UpdateUserRequest is the user update payload
type UpdateUserRequest struct {
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	Phone     string `json:"phone"`
	AvatarURL string `json:"avatarUrl"`
}

// Validate will run validation rules. Fields left empty keep the
// current value, so only set fields are checked.
func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.FullName, validation.Length(1, 200)),
		validation.Field(&r.AvatarURL, is.URL),
	)
}

// CreateTenantRequest is the tenant creation payload
type CreateTenantRequest struct {
	Name               string `json:"name"`
	RegistrationNumber string `json:"registrationNumber"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
}

// Validate will run validation rules
func (r CreateTenantRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.RegistrationNumber, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Email, is.Email),
	)
}

// UpdateTenantRequest is the tenant update payload
type UpdateTenantRequest struct {
	Name               string `json:"name"`
	RegistrationNumber string `json:"registrationNumber"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
}

// Validate will run validation rules
func (r UpdateTenantRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.RegistrationNumber, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Email, is.Email),
	)
}

// CreateApplicationRequest is the application creation payload
type CreateApplicationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	IconURL     string `json:"iconUrl"`
}

// Validate will run validation rules
func (r CreateApplicationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.URL, validation.Required, is.URL),
		validation.Field(&r.IconURL, is.URL),
	)
}

// UpdateApplicationRequest is the application update payload
type UpdateApplicationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	IconURL     string `json:"iconUrl"`
}

// Validate will run validation rules
func (r UpdateApplicationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.URL, validation.Required, is.URL),
		validation.Field(&r.IconURL, is.URL),
	)
}

// GrantLicenseRequest is the license grant payload
type GrantLicenseRequest struct {
	ApplicationID uuid.UUID  `json:"applicationId"`
	ExpiresAt     *time.Time `json:"expiresAt"`
}

// Validate will run validation rules
func (r GrantLicenseRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ApplicationID, validation.Required),
	)
}

// UpdateLicenseRequest is the license update payload
type UpdateLicenseRequest struct {
	Active    *bool      `json:"active"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// SyncAssignmentsRequest is the assignment replacement payload.
// Callers submit the desired end state, not a diff.
type SyncAssignmentsRequest struct {
	Applications []entitlement.AssignmentInput `json:"applications"`
}
