package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/apperr"
	"github.com/accesshub/accesshub-server/internal/config"
	"github.com/accesshub/accesshub-server/internal/models"
	"github.com/accesshub/accesshub-server/internal/storage"
	"github.com/accesshub/accesshub-server/pkg/crypto"
)

// TokenType distinguishes access from refresh credentials
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims represents the signed claim set. Claims stay minimal:
// subject, role, tenant and type. Display fields are resolved from
// the directory per request, never trusted from the token.
type Claims struct {
	jwt.RegisteredClaims
	Role      models.Role `json:"role,omitempty"`
	TenantID  *uuid.UUID  `json:"tenant_id,omitempty"`
	TokenType TokenType   `json:"type"`
}

// TokenStore is the directory surface the token service needs
type TokenStore interface {
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	GetRefreshTokenByDigest(ctx context.Context, digest string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, digest string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TokenService issues, rotates, validates and revokes session
// credentials.
type TokenService struct {
	config *config.JWTConfig
	store  TokenStore
	now    func() time.Time
}

// NewTokenService creates a new token service
func NewTokenService(cfg *config.JWTConfig, store TokenStore) *TokenService {
	return &TokenService{
		config: cfg,
		store:  store,
		now:    time.Now,
	}
}

// Issue generates an access/refresh token pair for the user. Only the
// refresh token's digest and expiry are persisted.
func (s *TokenService) Issue(ctx context.Context, user *models.User) (string, string, error) {
	now := s.now()

	accessClaims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
		},
		Role:      user.Role,
		TenantID:  user.TenantID,
		TokenType: TokenTypeAccess,
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).
		SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", "", err
	}

	refreshExpiry := now.Add(s.config.RefreshTokenTTL)
	refreshClaims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(refreshExpiry),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
			ID:        uuid.New().String(),
		},
		TokenType: TokenTypeRefresh,
	}

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).
		SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", "", err
	}

	record := &models.RefreshToken{
		UserID:      user.ID,
		TokenDigest: crypto.DigestToken(refreshToken),
		ExpiresAt:   refreshExpiry,
	}
	if err := s.store.CreateRefreshToken(ctx, record); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// ValidateAccess checks signature, expiry and type. No storage round
// trip; refresh-record checks belong to RotateAccess only.
func (s *TokenService) ValidateAccess(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != TokenTypeAccess {
		return nil, apperr.ErrInvalidTokenType
	}

	return claims, nil
}

// RotateAccess mints a new access token from a refresh token. The
// refresh token itself is reused until logout, password change or its
// own expiry. Claims for the new access token come from the current
// directory state, not from the old token.
func (s *TokenService) RotateAccess(ctx context.Context, refreshToken string) (string, *Claims, error) {
	claims, err := s.parse(refreshToken)
	if err != nil {
		return "", nil, err
	}

	if claims.TokenType != TokenTypeRefresh {
		return "", nil, apperr.ErrInvalidTokenType
	}

	record, err := s.store.GetRefreshTokenByDigest(ctx, crypto.DigestToken(refreshToken))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil, apperr.ErrRevokedOrUnknown
		}
		return "", nil, err
	}
	if !record.Usable(s.now()) {
		return "", nil, apperr.ErrRevokedOrUnknown
	}

	user, err := s.store.GetUser(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil, apperr.ErrUserInactive
		}
		return "", nil, err
	}
	if !user.Active {
		return "", nil, apperr.ErrUserInactive
	}

	now := s.now()
	accessClaims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
		},
		Role:      user.Role,
		TenantID:  user.TenantID,
		TokenType: TokenTypeAccess,
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).
		SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", nil, err
	}

	return accessToken, &accessClaims, nil
}

// Revoke marks the refresh token's record revoked. Idempotent.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	return s.store.RevokeRefreshToken(ctx, crypto.DigestToken(refreshToken))
}

// RevokeAll revokes every refresh token of a user in one atomic
// storage operation. A later Issue is unaffected.
func (s *TokenService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return s.store.RevokeAllUserTokens(ctx, userID)
}

// UserID returns the user id carried by the claims
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

func (s *TokenService) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.ErrInvalidToken
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.ErrTokenExpired
		}
		return nil, apperr.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperr.ErrInvalidToken
	}

	return claims, nil
}
