package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/models"
)

// CreateRefreshToken persists a refresh token record. Only the digest
// of the raw token is stored.
func (s *PostgresStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()

	query := `
		INSERT INTO refresh_tokens (
			id, created_at, user_id, token_digest, expires_at, revoked
		) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.getDB().ExecContext(ctx, query,
		token.ID, token.CreatedAt, token.UserID, token.TokenDigest,
		token.ExpiresAt, token.Revoked,
	)
	return err
}

// GetRefreshTokenByDigest looks up a refresh token record by the
// digest of its raw token.
func (s *PostgresStore) GetRefreshTokenByDigest(ctx context.Context, digest string) (*models.RefreshToken, error) {
	query := `
		SELECT id, created_at, user_id, token_digest, expires_at, revoked
		FROM refresh_tokens
		WHERE token_digest = $1`

	token := &models.RefreshToken{}
	err := s.getDB().QueryRowContext(ctx, query, digest).Scan(
		&token.ID, &token.CreatedAt, &token.UserID, &token.TokenDigest,
		&token.ExpiresAt, &token.Revoked,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return token, nil
}

// RevokeRefreshToken marks the matching record revoked. Idempotent;
// revoking an unknown digest is a no-op.
func (s *PostgresStore) RevokeRefreshToken(ctx context.Context, digest string) error {
	query := `UPDATE refresh_tokens SET revoked = true WHERE token_digest = $1`
	_, err := s.getDB().ExecContext(ctx, query, digest)
	return err
}

// RevokeAllUserTokens marks every refresh token of a user revoked in
// a single statement, so no concurrent rotation can observe a
// half-revoked state.
func (s *PostgresStore) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1`
	_, err := s.getDB().ExecContext(ctx, query, userID)
	return err
}

// DeleteExpiredTokens removes expired and revoked records. Pure
// housekeeping; correctness never depends on it running.
func (s *PostgresStore) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at < $1 OR revoked = true`

	result, err := s.getDB().ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
