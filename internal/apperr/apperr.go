// Package apperr defines the error taxonomy shared by the token
// service, session gateway, policy engine and entitlement resolver.
// Every error carries a stable machine code and the HTTP status the
// transport layer should map it to. All of them are terminal for the
// request; none is ever auto-retried by the core.
package apperr

import "net/http"

// Error is a typed application error
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

// Error implements the error interface
func (e *Error) Error() string { return e.Message }

// New creates a typed error
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Authentication failures (401)
var (
	ErrNoToken          = New(http.StatusUnauthorized, "NO_TOKEN", "no token provided")
	ErrInvalidToken     = New(http.StatusUnauthorized, "INVALID_TOKEN", "invalid token")
	ErrInvalidTokenType = New(http.StatusUnauthorized, "INVALID_TOKEN_TYPE", "invalid token type")
	ErrTokenExpired     = New(http.StatusUnauthorized, "TOKEN_EXPIRED", "token expired")
	ErrRevokedOrUnknown = New(http.StatusUnauthorized, "REVOKED_OR_UNKNOWN", "refresh token revoked or unknown")
	ErrUserInactive     = New(http.StatusUnauthorized, "USER_INACTIVE_OR_MISSING", "user not found or inactive")

	ErrInvalidCredentials = New(http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
	ErrInvalidAPIKey      = New(http.StatusUnauthorized, "INVALID_API_KEY", "invalid api key")
)

// Authorization failures (403)
var (
	ErrForbidden             = New(http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
	ErrTenantScopeViolation  = New(http.StatusForbidden, "TENANT_SCOPE_VIOLATION", "resource belongs to another tenant")
	ErrCannotManageRole      = New(http.StatusForbidden, "CANNOT_MANAGE_ROLE", "not allowed to manage this role")
	ErrCannotDeactivateSelf  = New(http.StatusForbidden, "CANNOT_DEACTIVATE_SELF", "cannot deactivate your own user")
	ErrCannotDeactivateAdmin = New(http.StatusForbidden, "CANNOT_DEACTIVATE_ADMIN", "cannot deactivate a tenant admin")
	ErrNoAccess              = New(http.StatusForbidden, "NO_ACCESS", "no access to this application")
)

// Validation failures (400), caller-fixable
var (
	ErrInvalidApplications = New(http.StatusBadRequest, "INVALID_APPLICATIONS", "some applications are not licensed to the tenant")
	ErrInvalidAppRole      = New(http.StatusBadRequest, "INVALID_APP_ROLE", "role cannot be assigned per application")
	ErrInvalidRoleTenant   = New(http.StatusBadRequest, "INVALID_ROLE_TENANT_COMBINATION", "role and tenant combination is invalid")
	ErrTargetNotAssignable = New(http.StatusBadRequest, "TARGET_NOT_ASSIGNABLE", "user role does not take individual assignments")
	ErrEmailExists         = New(http.StatusBadRequest, "EMAIL_ALREADY_EXISTS", "email already registered")
	ErrRegistrationExists  = New(http.StatusBadRequest, "REGISTRATION_ALREADY_EXISTS", "registration number already registered")
	ErrInvalidPassword     = New(http.StatusBadRequest, "INVALID_CURRENT_PASSWORD", "current password is incorrect")
	ErrTenantInactive      = New(http.StatusBadRequest, "TENANT_NOT_FOUND", "tenant not found or inactive")
)

// Not found (404)
var (
	ErrUserNotFound        = New(http.StatusNotFound, "USER_NOT_FOUND", "user not found")
	ErrTenantNotFound      = New(http.StatusNotFound, "TENANT_NOT_FOUND", "tenant not found")
	ErrApplicationNotFound = New(http.StatusNotFound, "APPLICATION_NOT_FOUND", "application not found")
	ErrLicenseNotFound     = New(http.StatusNotFound, "LICENSE_NOT_FOUND", "license not found")
)
