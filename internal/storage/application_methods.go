package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/models"
)

const applicationColumns = `id, created_at, updated_at, name, description, url, icon_url,
	api_key, active, created_by, updated_by, deactivated_at, deactivated_by`

func scanApplication(row interface{ Scan(...interface{}) error }) (*models.Application, error) {
	app := &models.Application{}
	err := row.Scan(
		&app.ID, &app.CreatedAt, &app.UpdatedAt, &app.Name, &app.Description,
		&app.URL, &app.IconURL, &app.APIKey, &app.Active,
		&app.CreatedBy, &app.UpdatedBy, &app.DeactivatedAt, &app.DeactivatedBy,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return app, nil
}

// CreateApplication creates a new application
func (s *PostgresStore) CreateApplication(ctx context.Context, app *models.Application) error {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}

	now := time.Now()
	app.CreatedAt = now
	app.UpdatedAt = now
	app.Active = true

	query := `
		INSERT INTO applications (
			id, created_at, updated_at, name, description, url, icon_url,
			api_key, active, created_by, updated_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		app.ID, app.CreatedAt, app.UpdatedAt, app.Name, app.Description,
		app.URL, app.IconURL, app.APIKey, app.Active, app.CreatedBy, app.UpdatedBy,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetApplication gets an application by ID
func (s *PostgresStore) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	return scanApplication(s.getDB().QueryRowContext(ctx, query, id))
}

// GetApplicationByAPIKey gets an application by its unique secret key
func (s *PostgresStore) GetApplicationByAPIKey(ctx context.Context, apiKey string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE api_key = $1`
	return scanApplication(s.getDB().QueryRowContext(ctx, query, apiKey))
}

// UpdateApplication updates an application
func (s *PostgresStore) UpdateApplication(ctx context.Context, app *models.Application) error {
	app.UpdatedAt = time.Now()

	query := `
		UPDATE applications SET
			updated_at = $2, name = $3, description = $4, url = $5,
			icon_url = $6, updated_by = $7
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		app.ID, app.UpdatedAt, app.Name, app.Description, app.URL,
		app.IconURL, app.UpdatedBy,
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

// UpdateApplicationAPIKey replaces the application's secret key
func (s *PostgresStore) UpdateApplicationAPIKey(ctx context.Context, id uuid.UUID, apiKey string, by uuid.UUID) error {
	query := `UPDATE applications SET api_key = $2, updated_at = $3, updated_by = $4 WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query, id, apiKey, time.Now(), by)
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

// DeactivateApplication marks an application inactive and deactivates
// every license referencing it, in one transaction.
func (s *PostgresStore) DeactivateApplication(ctx context.Context, id, by uuid.UUID) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	txStore := tx.(*PostgresStore)
	now := time.Now()

	result, err := txStore.getDB().ExecContext(ctx, `
		UPDATE applications SET
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
		UPDATE tenant_licenses SET
			active = false, deactivated_at = $2, deactivated_by = $3,
			updated_at = $2, updated_by = $3
		WHERE application_id = $1 AND active = true`, id, now, by)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ReactivateApplication marks an application active again. Licenses
// stay inactive until granted again.
func (s *PostgresStore) ReactivateApplication(ctx context.Context, id, by uuid.UUID) error {
	query := `
		UPDATE applications SET
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

// ListApplications lists all applications, newest first
func (s *PostgresStore) ListApplications(ctx context.Context, limit, offset int) ([]*models.Application, int64, error) {
	var total int64
	if err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM applications`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + applicationColumns + ` FROM applications ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.getDB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		apps = append(apps, app)
	}

	return apps, total, rows.Err()
}

// ListActiveApplications lists active applications in name order
func (s *PostgresStore) ListActiveApplications(ctx context.Context) ([]*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE active = true ORDER BY name ASC`

	rows, err := s.getDB().QueryContext(ctx, query)
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
