package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/models"
)

const assignmentColumns = `id, created_at, created_by, user_id, application_id, app_role`

func scanAssignment(row interface{ Scan(...interface{}) error }) (*models.UserAssignment, error) {
	assignment := &models.UserAssignment{}
	err := row.Scan(
		&assignment.ID, &assignment.CreatedAt, &assignment.CreatedBy,
		&assignment.UserID, &assignment.ApplicationID, &assignment.AppRole,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// GetUserAssignment gets the assignment for a (user, application) pair
func (s *PostgresStore) GetUserAssignment(ctx context.Context, userID, applicationID uuid.UUID) (*models.UserAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM user_assignments WHERE user_id = $1 AND application_id = $2`
	return scanAssignment(s.getDB().QueryRowContext(ctx, query, userID, applicationID))
}

// ListUserAssignments lists all assignments of a user
func (s *PostgresStore) ListUserAssignments(ctx context.Context, userID uuid.UUID) ([]*models.UserAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM user_assignments WHERE user_id = $1 ORDER BY created_at ASC`

	rows, err := s.getDB().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []*models.UserAssignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}

	return assignments, rows.Err()
}

// ReplaceUserAssignments replaces the user's entire assignment set in
// one transaction. Callers submit the desired end state, not a diff;
// a concurrent reader never observes a partially applied set.
func (s *PostgresStore) ReplaceUserAssignments(ctx context.Context, userID uuid.UUID, assignments []*models.UserAssignment) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	txStore := tx.(*PostgresStore)

	if _, err := txStore.getDB().ExecContext(ctx,
		`DELETE FROM user_assignments WHERE user_id = $1`, userID); err != nil {
		return err
	}

	now := time.Now()
	for _, assignment := range assignments {
		if assignment.ID == uuid.Nil {
			assignment.ID = uuid.New()
		}
		assignment.UserID = userID
		assignment.CreatedAt = now

		_, err := txStore.getDB().ExecContext(ctx, `
			INSERT INTO user_assignments (
				id, created_at, created_by, user_id, application_id, app_role
			) VALUES ($1, $2, $3, $4, $5, $6)`,
			assignment.ID, assignment.CreatedAt, assignment.CreatedBy,
			assignment.UserID, assignment.ApplicationID, assignment.AppRole,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
