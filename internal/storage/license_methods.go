package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/models"
)

const licenseColumns = `id, created_at, updated_at, tenant_id, application_id, expires_at,
	active, created_by, updated_by, deactivated_at, deactivated_by`

func scanLicense(row interface{ Scan(...interface{}) error }) (*models.TenantLicense, error) {
	license := &models.TenantLicense{}
	err := row.Scan(
		&license.ID, &license.CreatedAt, &license.UpdatedAt, &license.TenantID,
		&license.ApplicationID, &license.ExpiresAt, &license.Active,
		&license.CreatedBy, &license.UpdatedBy, &license.DeactivatedAt, &license.DeactivatedBy,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return license, nil
}

// CreateLicense grants an application to a tenant
func (s *PostgresStore) CreateLicense(ctx context.Context, license *models.TenantLicense) error {
	if license.ID == uuid.Nil {
		license.ID = uuid.New()
	}

	now := time.Now()
	license.CreatedAt = now
	license.UpdatedAt = now
	license.Active = true

	query := `
		INSERT INTO tenant_licenses (
			id, created_at, updated_at, tenant_id, application_id, expires_at,
			active, created_by, updated_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		license.ID, license.CreatedAt, license.UpdatedAt, license.TenantID,
		license.ApplicationID, license.ExpiresAt, license.Active,
		license.CreatedBy, license.UpdatedBy,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetLicense gets the license for a (tenant, application) pair
func (s *PostgresStore) GetLicense(ctx context.Context, tenantID, applicationID uuid.UUID) (*models.TenantLicense, error) {
	query := `SELECT ` + licenseColumns + ` FROM tenant_licenses WHERE tenant_id = $1 AND application_id = $2`
	return scanLicense(s.getDB().QueryRowContext(ctx, query, tenantID, applicationID))
}

// UpdateLicense updates a license's expiry and lifecycle state
func (s *PostgresStore) UpdateLicense(ctx context.Context, license *models.TenantLicense) error {
	license.UpdatedAt = time.Now()

	query := `
		UPDATE tenant_licenses SET
			updated_at = $2, expires_at = $3, active = $4,
			deactivated_at = $5, deactivated_by = $6, updated_by = $7
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		license.ID, license.UpdatedAt, license.ExpiresAt, license.Active,
		license.DeactivatedAt, license.DeactivatedBy, license.UpdatedBy,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeactivateLicense revokes a tenant's license for one application
func (s *PostgresStore) DeactivateLicense(ctx context.Context, tenantID, applicationID, by uuid.UUID) error {
	now := time.Now()
	query := `
		UPDATE tenant_licenses SET
			active = false, deactivated_at = $3, deactivated_by = $4,
			updated_at = $3, updated_by = $4
		WHERE tenant_id = $1 AND application_id = $2`

	result, err := s.getDB().ExecContext(ctx, query, tenantID, applicationID, now, by)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListLicenses lists all licenses of a tenant
func (s *PostgresStore) ListLicenses(ctx context.Context, tenantID uuid.UUID) ([]*models.TenantLicense, error) {
	query := `SELECT ` + licenseColumns + ` FROM tenant_licenses WHERE tenant_id = $1 ORDER BY created_at DESC`

	rows, err := s.getDB().QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var licenses []*models.TenantLicense
	for rows.Next() {
		license, err := scanLicense(rows)
		if err != nil {
			return nil, err
		}
		licenses = append(licenses, license)
	}

	return licenses, rows.Err()
}

// ListLicensedApplications lists the active applications covered by a
// tenant's active, unexpired licenses, in name order.
func (s *PostgresStore) ListLicensedApplications(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]*models.Application, error) {
	query := `
		SELECT a.id, a.created_at, a.updated_at, a.name, a.description, a.url, a.icon_url,
			a.api_key, a.active, a.created_by, a.updated_by, a.deactivated_at, a.deactivated_by
		FROM applications a
		JOIN tenant_licenses l ON l.application_id = a.id
		WHERE l.tenant_id = $1
			AND l.active = true
			AND (l.expires_at IS NULL OR l.expires_at > $2)
			AND a.active = true
		ORDER BY a.name ASC`

	rows, err := s.getDB().QueryContext(ctx, query, tenantID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}

	return apps, rows.Err()
}

// ListAssignedApplications lists the intersection of a user's
// individual assignments and the tenant's active, unexpired licenses.
// The license is always the outer gate.
func (s *PostgresStore) ListAssignedApplications(ctx context.Context, userID, tenantID uuid.UUID, now time.Time) ([]*models.Application, error) {
	query := `
		SELECT a.id, a.created_at, a.updated_at, a.name, a.description, a.url, a.icon_url,
			a.api_key, a.active, a.created_by, a.updated_by, a.deactivated_at, a.deactivated_by
		FROM applications a
		JOIN user_assignments ua ON ua.application_id = a.id AND ua.user_id = $1
		JOIN tenant_licenses l ON l.application_id = a.id AND l.tenant_id = $2
		WHERE l.active = true
			AND (l.expires_at IS NULL OR l.expires_at > $3)
			AND a.active = true
		ORDER BY a.name ASC`

	rows, err := s.getDB().QueryContext(ctx, query, userID, tenantID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}

	return apps, rows.Err()
}
