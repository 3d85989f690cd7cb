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

const userColumns = `id, created_at, updated_at, email, full_name, phone, avatar_url,
	password_hash, role, tenant_id, active, last_login_at,
	created_by, updated_by, deactivated_at, deactivated_by`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email, &user.FullName,
		&user.Phone, &user.AvatarURL, &user.PasswordHash, &user.Role, &user.TenantID,
		&user.Active, &user.LastLoginAt,
		&user.CreatedBy, &user.UpdatedBy, &user.DeactivatedAt, &user.DeactivatedBy,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser creates a new user
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Active = true

	query := `
		INSERT INTO users (
			id, created_at, updated_at, email, full_name, phone, avatar_url,
			password_hash, role, tenant_id, active, created_by, updated_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.CreatedAt, user.UpdatedAt, user.Email, user.FullName,
		user.Phone, user.AvatarURL, user.PasswordHash, user.Role, user.TenantID,
		user.Active, user.CreatedBy, user.UpdatedBy,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetUser gets a user by ID
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.getDB().QueryRowContext(ctx, query, id))
}

// GetUserByEmail gets a user by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(s.getDB().QueryRowContext(ctx, query, email))
}

// UpdateUser updates a user
func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users SET
			updated_at = $2, email = $3, full_name = $4, phone = $5,
			avatar_url = $6, role = $7, tenant_id = $8, updated_by = $9
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.UpdatedAt, user.Email, user.FullName, user.Phone,
		user.AvatarURL, user.Role, user.TenantID, user.UpdatedBy,
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

// UpdateLastLogin stamps the user's last login time
func (s *PostgresStore) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login_at = $2, updated_at = $2 WHERE id = $1`
	_, err := s.getDB().ExecContext(ctx, query, id, at)
	return err
}

// UpdatePassword replaces the user's credential hash
func (s *PostgresStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, by uuid.UUID) error {
	query := `UPDATE users SET password_hash = $2, updated_at = $3, updated_by = $4 WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query, id, passwordHash, time.Now(), by)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeactivateUser marks a user inactive
func (s *PostgresStore) DeactivateUser(ctx context.Context, id, by uuid.UUID) error {
	now := time.Now()
	query := `
		UPDATE users SET
			active = false, deactivated_at = $2, deactivated_by = $3,
			updated_at = $2, updated_by = $3
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query, id, now, by)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ReactivateUser marks a user active again
func (s *PostgresStore) ReactivateUser(ctx context.Context, id, by uuid.UUID) error {
	query := `
		UPDATE users SET
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

// ListUsers lists users with optional filters
func (s *PostgresStore) ListUsers(ctx context.Context, filters models.UserFilters, limit, offset int) ([]*models.User, int64, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filters.TenantID != nil {
		args = append(args, *filters.TenantID)
		where = append(where, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if filters.Role != nil {
		args = append(args, *filters.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if filters.Active != nil {
		args = append(args, *filters.Active)
		where = append(where, fmt.Sprintf("active = $%d", len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where = append(where, fmt.Sprintf("(email ILIKE $%d OR full_name ILIKE $%d)", len(args), len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM users WHERE ` + whereClause
	if err := s.getDB().QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(
		`SELECT `+userColumns+` FROM users WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		whereClause, len(args)-1, len(args),
	)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}

	return users, total, rows.Err()
}
