package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/models"
)

// CreateAccessEvent appends an access audit record
func (s *PostgresStore) CreateAccessEvent(ctx context.Context, event *models.AccessEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO access_events (
			id, created_at, user_id, application_id, action, ip_address, user_agent
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.getDB().ExecContext(ctx, query,
		event.ID, event.CreatedAt, event.UserID, event.ApplicationID,
		event.Action, event.IPAddress, event.UserAgent,
	)
	return err
}

// ListAccessEvents lists access events with optional filters, newest first
func (s *PostgresStore) ListAccessEvents(ctx context.Context, filters models.AccessEventFilters, limit, offset int) ([]*models.AccessEvent, int64, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filters.UserID != nil {
		args = append(args, *filters.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filters.ApplicationID != nil {
		args = append(args, *filters.ApplicationID)
		where = append(where, fmt.Sprintf("application_id = $%d", len(args)))
	}
	if filters.Action != nil {
		args = append(args, *filters.Action)
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}
	if filters.StartTime != nil {
		args = append(args, *filters.StartTime)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filters.EndTime != nil {
		args = append(args, *filters.EndTime)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM access_events WHERE ` + whereClause
	if err := s.getDB().QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT id, created_at, user_id, application_id, action, ip_address, user_agent
		FROM access_events
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, len(args)-1, len(args))

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []*models.AccessEvent
	for rows.Next() {
		event := &models.AccessEvent{}
		err := rows.Scan(
			&event.ID, &event.CreatedAt, &event.UserID, &event.ApplicationID,
			&event.Action, &event.IPAddress, &event.UserAgent,
		)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}

	return events, total, rows.Err()
}
