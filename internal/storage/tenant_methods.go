package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/models"
)

const tenantColumns = `id, created_at, updated_at, name, registration_number, email, phone,
	active, created_by, updated_by, deactivated_at, deactivated_by`

func scanTenant(row interface{ Scan(...interface{}) error }) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	err := row.Scan(
		&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt, &tenant.Name,
		&tenant.RegistrationNumber, &tenant.Email, &tenant.Phone, &tenant.Active,
		&tenant.CreatedBy, &tenant.UpdatedBy, &tenant.DeactivatedAt, &tenant.DeactivatedBy,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

// CreateTenant creates a new tenant
func (s *PostgresStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}

	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	tenant.Active = true

	query := `
		INSERT INTO tenants (
			id, created_at, updated_at, name, registration_number, email, phone,
			active, created_by, updated_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		tenant.ID, tenant.CreatedAt, tenant.UpdatedAt, tenant.Name,
		tenant.RegistrationNumber, tenant.Email, tenant.Phone, tenant.Active,
		tenant.CreatedBy, tenant.UpdatedBy,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetTenant gets a tenant by ID
func (s *PostgresStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(s.getDB().QueryRowContext(ctx, query, id))
}

// GetTenantByRegistration gets a tenant by its unique registration number
func (s *PostgresStore) GetTenantByRegistration(ctx context.Context, registrationNumber string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE registration_number = $1`
	return scanTenant(s.getDB().QueryRowContext(ctx, query, registrationNumber))
}

// UpdateTenant updates a tenant
func (s *PostgresStore) UpdateTenant(ctx context.Context, tenant *models.Tenant) error {
	tenant.UpdatedAt = time.Now()

	query := `
		UPDATE tenants SET
			updated_at = $2, name = $3, registration_number = $4,
			email = $5, phone = $6, updated_by = $7
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		tenant.ID, tenant.UpdatedAt, tenant.Name, tenant.RegistrationNumber,
		tenant.Email, tenant.Phone, tenant.UpdatedBy,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeactivateTenant marks a tenant inactive and deactivates every user
// in it, in one transaction. Licenses are left untouched.
func (s *PostgresStore) DeactivateTenant(ctx context.Context, id, by uuid.UUID) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	txStore := tx.(*PostgresStore)
	now := time.Now()

	result, err := txStore.getDB().ExecContext(ctx, `
		UPDATE tenants SET
			active = false, deactivated_at = $2, deactivated_by = $3,
			updated_at = $2, updated_by = $3
		WHERE id = $1`, id, now, by)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	_, err = txStore.getDB().ExecContext(ctx, `
		UPDATE users SET
			active = false, deactivated_at = $2, deactivated_by = $3,
			updated_at = $2, updated_by = $3
		WHERE tenant_id = $1 AND active = true`, id, now, by)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ReactivateTenant marks a tenant active again. Its users stay
// inactive until reactivated individually.
func (s *PostgresStore) ReactivateTenant(ctx context.Context, id, by uuid.UUID) error {
	query := `
		UPDATE tenants SET
			active = true, deactivated_at = NULL, deactivated_by = NULL,
			updated_at = $2, updated_by = $3
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query, id, time.Now(), by)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListTenants lists tenants with optional filters
func (s *PostgresStore) ListTenants(ctx context.Context, filters models.TenantFilters, limit, offset int) ([]*models.Tenant, int64, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filters.Active != nil {
		args = append(args, *filters.Active)
		where = append(where, fmt.Sprintf("active = $%d", len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR registration_number LIKE $%d)", len(args), len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM tenants WHERE ` + whereClause
	if err := s.getDB().QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(
		`SELECT `+tenantColumns+` FROM tenants WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		whereClause, len(args)-1, len(args),
	)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, 0, err
		}
		tenants = append(tenants, tenant)
	}

	return tenants, total, rows.Err()
}
