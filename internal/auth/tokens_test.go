package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/apperr"
	"github.com/accesshub/accesshub-server/internal/config"
	"github.com/accesshub/accesshub-server/internal/models"
	"github.com/accesshub/accesshub-server/internal/storage"
	"github.com/accesshub/accesshub-server/pkg/crypto"
)

type fakeTokenStore struct {
	tokens map[string]*models.RefreshToken
	users  map[uuid.UUID]*models.User
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{
		tokens: make(map[string]*models.RefreshToken),
		users:  make(map[uuid.UUID]*models.User),
	}
}

func (f *fakeTokenStore) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	f.tokens[token.TokenDigest] = token
	return nil
}

func (f *fakeTokenStore) GetRefreshTokenByDigest(_ context.Context, digest string) (*models.RefreshToken, error) {
	token, ok := f.tokens[digest]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return token, nil
}

func (f *fakeTokenStore) RevokeRefreshToken(_ context.Context, digest string) error {
	if token, ok := f.tokens[digest]; ok {
		token.Revoked = true
	}
	return nil
}

func (f *fakeTokenStore) RevokeAllUserTokens(_ context.Context, userID uuid.UUID) error {
	for _, token := range f.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func (f *fakeTokenStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

func testUser(role models.Role, tenantID *uuid.UUID) *models.User {
	user := &models.User{
		Email:    "op@example.com",
		FullName: "Test Operator",
		Role:     role,
		TenantID: tenantID,
	}
	user.ID = uuid.New()
	user.Active = true
	return user
}

func testService(store TokenStore) *TokenService {
	svc := NewTokenService(&config.JWTConfig{
		Secret:          "test-secret",
		Issuer:          "accesshub-test",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}, store)
	return svc
}

func TestIssueAndValidate(t *testing.T) {
	store := newFakeTokenStore()
	tenantID := uuid.New()
	user := testUser(models.RoleTenantOperator, &tenantID)
	store.users[user.ID] = user

	svc := testService(store)

	access, refresh, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("expected non-empty token pair")
	}

	claims, err := svc.ValidateAccess(access)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	userID, err := claims.UserID()
	if err != nil {
		t.Fatalf("UserID: %v", err)
	}
	if userID != user.ID {
		t.Errorf("subject = %s, want %s", userID, user.ID)
	}
	if claims.Role != models.RoleTenantOperator {
		t.Errorf("role = %s, want %s", claims.Role, models.RoleTenantOperator)
	}
	if claims.TenantID == nil || *claims.TenantID != tenantID {
		t.Errorf("tenant = %v, want %s", claims.TenantID, tenantID)
	}

	// Only the digest is persisted, never the raw token
	if _, ok := store.tokens[refresh]; ok {
		t.Error("raw refresh token stored")
	}
	if _, ok := store.tokens[crypto.DigestToken(refresh)]; !ok {
		t.Error("refresh token digest not stored")
	}
}

func TestValidateAccessRejectsRefreshToken(t *testing.T) {
	store := newFakeTokenStore()
	user := testUser(models.RoleSuperAdmin, nil)
	store.users[user.ID] = user

	svc := testService(store)

	_, refresh, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := svc.ValidateAccess(refresh); !errors.Is(err, apperr.ErrInvalidTokenType) {
		t.Errorf("err = %v, want %v", err, apperr.ErrInvalidTokenType)
	}
}

func TestValidateAccessExpired(t *testing.T) {
	store := newFakeTokenStore()
	user := testUser(models.RoleSuperAdmin, nil)
	store.users[user.ID] = user

	svc := testService(store)

	issued := time.Now()
	svc.now = func() time.Time { return issued }

	access, _, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Just inside the window
	svc.now = func() time.Time { return issued.Add(14 * time.Minute) }
	if _, err := svc.ValidateAccess(access); err != nil {
		t.Fatalf("ValidateAccess before expiry: %v", err)
	}

	// Past the window
	svc.now = func() time.Time { return issued.Add(16 * time.Minute) }
	if _, err := svc.ValidateAccess(access); !errors.Is(err, apperr.ErrTokenExpired) {
		t.Errorf("err = %v, want %v", err, apperr.ErrTokenExpired)
	}
}

func TestValidateAccessGarbage(t *testing.T) {
	svc := testService(newFakeTokenStore())

	if _, err := svc.ValidateAccess("not-a-token"); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("err = %v, want %v", err, apperr.ErrInvalidToken)
	}
}

func TestRotateAccessReusesRefreshToken(t *testing.T) {
	store := newFakeTokenStore()
	tenantID := uuid.New()
	user := testUser(models.RoleTenantAdmin, &tenantID)
	store.users[user.ID] = user

	svc := testService(store)

	_, refresh, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	access, claims, err := svc.RotateAccess(context.Background(), refresh)
	if err != nil {
		t.Fatalf("RotateAccess: %v", err)
	}
	if claims.TokenType != TokenTypeAccess {
		t.Errorf("type = %s, want %s", claims.TokenType, TokenTypeAccess)
	}
	if _, err := svc.ValidateAccess(access); err != nil {
		t.Fatalf("ValidateAccess on rotated token: %v", err)
	}

	// The same refresh token keeps working
	if _, _, err := svc.RotateAccess(context.Background(), refresh); err != nil {
		t.Fatalf("second RotateAccess: %v", err)
	}
}

func TestRotateAccessReflectsDirectoryState(t *testing.T) {
	store := newFakeTokenStore()
	tenantID := uuid.New()
	user := testUser(models.RoleTenantOperator, &tenantID)
	store.users[user.ID] = user

	svc := testService(store)

	_, refresh, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Role changed after issuance; the next access token carries the
	// new role, not the one in play at login.
	user.Role = models.RoleTenantSupervisor

	_, claims, err := svc.RotateAccess(context.Background(), refresh)
	if err != nil {
		t.Fatalf("RotateAccess: %v", err)
	}
	if claims.Role != models.RoleTenantSupervisor {
		t.Errorf("role = %s, want %s", claims.Role, models.RoleTenantSupervisor)
	}
}

func TestRotateAccessAfterRevoke(t *testing.T) {
	store := newFakeTokenStore()
	user := testUser(models.RoleSuperAdmin, nil)
	store.users[user.ID] = user

	svc := testService(store)

	_, refresh, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := svc.Revoke(context.Background(), refresh); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	// Revoking again is a no-op
	if err := svc.Revoke(context.Background(), refresh); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}

	if _, _, err := svc.RotateAccess(context.Background(), refresh); !errors.Is(err, apperr.ErrRevokedOrUnknown) {
		t.Errorf("err = %v, want %v", err, apperr.ErrRevokedOrUnknown)
	}
}

func TestRotateAccessUnknownToken(t *testing.T) {
	store := newFakeTokenStore()
	user := testUser(models.RoleSuperAdmin, nil)
	store.users[user.ID] = user

	svc := testService(store)

	_, refresh, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Same token, record gone from storage
	delete(store.tokens, crypto.DigestToken(refresh))

	if _, _, err := svc.RotateAccess(context.Background(), refresh); !errors.Is(err, apperr.ErrRevokedOrUnknown) {
		t.Errorf("err = %v, want %v", err, apperr.ErrRevokedOrUnknown)
	}
}

func TestRotateAccessInactiveUser(t *testing.T) {
	store := newFakeTokenStore()
	tenantID := uuid.New()
	user := testUser(models.RoleTenantOperator, &tenantID)
	store.users[user.ID] = user

	svc := testService(store)

	_, refresh, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	user.Active = false

	if _, _, err := svc.RotateAccess(context.Background(), refresh); !errors.Is(err, apperr.ErrUserInactive) {
		t.Errorf("err = %v, want %v", err, apperr.ErrUserInactive)
	}
}

func TestRotateAccessRejectsAccessToken(t *testing.T) {
	store := newFakeTokenStore()
	user := testUser(models.RoleSuperAdmin, nil)
	store.users[user.ID] = user

	svc := testService(store)

	access, _, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, _, err := svc.RotateAccess(context.Background(), access); !errors.Is(err, apperr.ErrInvalidTokenType) {
		t.Errorf("err = %v, want %v", err, apperr.ErrInvalidTokenType)
	}
}

func TestRevokeAllThenFreshIssue(t *testing.T) {
	store := newFakeTokenStore()
	user := testUser(models.RoleSuperAdmin, nil)
	store.users[user.ID] = user

	svc := testService(store)

	_, first, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, second, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("second Issue: %v", err)
	}

	if err := svc.RevokeAll(context.Background(), user.ID); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}

	for _, refresh := range []string{first, second} {
		if _, _, err := svc.RotateAccess(context.Background(), refresh); !errors.Is(err, apperr.ErrRevokedOrUnknown) {
			t.Errorf("err = %v, want %v", err, apperr.ErrRevokedOrUnknown)
		}
	}

	// A fresh pair issued after the purge works
	_, fresh, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue after RevokeAll: %v", err)
	}
	if _, _, err := svc.RotateAccess(context.Background(), fresh); err != nil {
		t.Fatalf("RotateAccess on fresh token: %v", err)
	}
}

func TestRotateAccessExpiredRecord(t *testing.T) {
	store := newFakeTokenStore()
	user := testUser(models.RoleSuperAdmin, nil)
	store.users[user.ID] = user

	svc := testService(store)

	issued := time.Now()
	svc.now = func() time.Time { return issued }

	_, refresh, err := svc.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Past refresh expiry the signature check fires first
	svc.now = func() time.Time { return issued.Add(8 * 24 * time.Hour) }
	if _, _, err := svc.RotateAccess(context.Background(), refresh); !errors.Is(err, apperr.ErrTokenExpired) {
		t.Errorf("err = %v, want %v", err, apperr.ErrTokenExpired)
	}
}
