package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Store defines the directory interface. All lookups and writes are
// point operations or filtered scans; no query language leaks out.
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, by uuid.UUID) error
	DeactivateUser(ctx context.Context, id, by uuid.UUID) error
	ReactivateUser(ctx context.Context, id, by uuid.UUID) error
	ListUsers(ctx context.Context, filters models.UserFilters, limit, offset int) ([]*models.User, int64, error)

	// Tenant methods
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetTenantByRegistration(ctx context.Context, registrationNumber string) (*models.Tenant, error)
	UpdateTenant(ctx context.Context, tenant *models.Tenant) error
	DeactivateTenant(ctx context.Context, id, by uuid.UUID) error
	ReactivateTenant(ctx context.Context, id, by uuid.UUID) error
	ListTenants(ctx context.Context, filters models.TenantFilters, limit, offset int) ([]*models.Tenant, int64, error)

	// Application methods
	CreateApplication(ctx context.Context, app *models.Application) error
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	GetApplicationByAPIKey(ctx context.Context, apiKey string) (*models.Application, error)
	UpdateApplication(ctx context.Context, app *models.Application) error
	UpdateApplicationAPIKey(ctx context.Context, id uuid.UUID, apiKey string, by uuid.UUID) error
	DeactivateApplication(ctx context.Context, id, by uuid.UUID) error
	ReactivateApplication(ctx context.Context, id, by uuid.UUID) error
	ListApplications(ctx context.Context, limit, offset int) ([]*models.Application, int64, error)
	ListActiveApplications(ctx context.Context) ([]*models.Application, error)

	// License methods
	CreateLicense(ctx context.Context, license *models.TenantLicense) error
	GetLicense(ctx context.Context, tenantID, applicationID uuid.UUID) (*models.TenantLicense, error)
	UpdateLicense(ctx context.Context, license *models.TenantLicense) error
	DeactivateLicense(ctx context.Context, tenantID, applicationID, by uuid.UUID) error
	ListLicenses(ctx context.Context, tenantID uuid.UUID) ([]*models.TenantLicense, error)
	ListLicensedApplications(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]*models.Application, error)
	ListAssignedApplications(ctx context.Context, userID, tenantID uuid.UUID, now time.Time) ([]*models.Application, error)

	// Assignment methods
	GetUserAssignment(ctx context.Context, userID, applicationID uuid.UUID) (*models.UserAssignment, error)
	ListUserAssignments(ctx context.Context, userID uuid.UUID) ([]*models.UserAssignment, error)
	ReplaceUserAssignments(ctx context.Context, userID uuid.UUID, assignments []*models.UserAssignment) error

	// Refresh token methods
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	GetRefreshTokenByDigest(ctx context.Context, digest string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, digest string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)

	// Access event methods
	CreateAccessEvent(ctx context.Context, event *models.AccessEvent) error
	ListAccessEvents(ctx context.Context, filters models.AccessEventFilters, limit, offset int) ([]*models.AccessEvent, int64, error)

	// Close the store
	Close() error
}
