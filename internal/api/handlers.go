package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/accesshub/accesshub-server/internal/apperr"
	"github.com/accesshub/accesshub-server/internal/auth"
	"github.com/accesshub/accesshub-server/internal/models"
	"github.com/accesshub/accesshub-server/internal/obs"
	"github.com/accesshub/accesshub-server/internal/storage"
	"github.com/accesshub/accesshub-server/pkg/crypto"
)

// HandleHealth returns server health
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"name":    s.config.Server.Name,
		"version": s.config.Server.Version,
	})
}

// ========== Auth handlers ==========

// HandleLogin handles user login
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		obs.CountLogin("failed")
		s.respondAppError(w, apperr.ErrInvalidCredentials)
		return
	}

	if !user.Active {
		obs.CountLogin("failed")
		s.respondAppError(w, apperr.ErrUserInactive)
		return
	}

	if !crypto.VerifyPassword(req.Password, user.PasswordHash) {
		obs.CountLogin("failed")
		s.respondAppError(w, apperr.ErrInvalidCredentials)
		return
	}

	if err := s.store.UpdateLastLogin(r.Context(), user.ID, time.Now()); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to update last login")
	}

	accessToken, refreshToken, err := s.tokens.Issue(r.Context(), user)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	s.audit.RecordAccess(r.Context(), &models.AccessEvent{
		UserID:    user.ID,
		Action:    models.AccessActionLogin,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	obs.CountLogin("ok")

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"expiresIn":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"tokenType":    "Bearer",
		"user":         s.userView(r, user),
	})
}

// HandleRefresh mints a new access token from a refresh token. The
// refresh token is reused, never rotated here.
func (s *RESTServer) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	accessToken, claims, err := s.tokens.RotateAccess(r.Context(), req.RefreshToken)
	if err != nil {
		obs.CountTokenRotation("failed")
		s.respondAppError(w, err)
		return
	}

	if userID, err := claims.UserID(); err == nil {
		s.audit.RecordAccess(r.Context(), &models.AccessEvent{
			UserID:    userID,
			Action:    models.AccessActionTokenRefresh,
			IPAddress: r.RemoteAddr,
			UserAgent: r.UserAgent(),
		})
	}
	obs.CountTokenRotation("ok")

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"accessToken": accessToken,
		"expiresIn":   int(s.config.JWT.AccessTokenTTL.Seconds()),
		"tokenType":   "Bearer",
	})
}

// HandleLogout revokes the presented refresh token. Runs behind
// optional auth so an expired access token still allows logout.
func (s *RESTServer) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.tokens.Revoke(r.Context(), req.RefreshToken); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to revoke token")
		return
	}

	if actor, ok := auth.IdentityFromContext(r.Context()); ok {
		s.audit.RecordAccess(r.Context(), &models.AccessEvent{
			UserID:    actor.ID,
			Action:    models.AccessActionLogout,
			IPAddress: r.RemoteAddr,
			UserAgent: r.UserAgent(),
		})
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// HandleGetCurrentUser returns the authenticated user's profile
func (s *RESTServer) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	user, err := s.store.GetUser(r.Context(), actor.ID)
	if err != nil {
		s.respondAppError(w, apperr.ErrUserNotFound)
		return
	}

	s.respondJSON(w, http.StatusOK, s.userView(r, user))
}

// HandleUpdateProfile updates the authenticated user's own profile
func (s *RESTServer) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.store.GetUser(r.Context(), actor.ID)
	if err != nil {
		s.respondAppError(w, apperr.ErrUserNotFound)
		return
	}

	user.FullName = req.FullName
	user.Phone = req.Phone
	user.AvatarURL = req.AvatarURL
	user.UpdatedBy = &actor.ID

	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, s.userView(r, user))
}

// HandleChangePassword changes the authenticated user's password and
// revokes every refresh token to force a fresh login.
func (s *RESTServer) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.store.GetUser(r.Context(), actor.ID)
	if err != nil {
		s.respondAppError(w, apperr.ErrUserNotFound)
		return
	}

	if !crypto.VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		s.respondAppError(w, apperr.ErrInvalidPassword)
		return
	}

	hash, err := crypto.HashPassword(req.NewPassword)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := s.store.UpdatePassword(r.Context(), user.ID, hash, actor.ID); err != nil {
		s.respondAppError(w, err)
		return
	}

	if err := s.tokens.RevokeAll(r.Context(), user.ID); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to revoke tokens")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// HandleValidateToken validates an access token on behalf of an
// external application identified by its api key. The application's
// license for the caller's tenant is checked the same way a direct
// access request would be.
func (s *RESTServer) HandleValidateToken(w http.ResponseWriter, r *http.Request) {
	var req ValidateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	app, err := s.store.GetApplicationByAPIKey(r.Context(), req.APIKey)
	if err != nil || !app.Active {
		s.respondAppError(w, apperr.ErrInvalidAPIKey)
		return
	}

	claims, err := s.tokens.ValidateAccess(req.Token)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		s.respondAppError(w, apperr.ErrInvalidToken)
		return
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil || !user.Active {
		s.respondAppError(w, apperr.ErrUserInactive)
		return
	}

	if user.TenantID != nil {
		license, err := s.store.GetLicense(r.Context(), *user.TenantID, app.ID)
		if err != nil || !license.Effective(time.Now()) {
			s.respondAppError(w, apperr.ErrNoAccess)
			return
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"user": map[string]interface{}{
			"id":       user.ID,
			"email":    user.Email,
			"name":     user.FullName,
			"role":     user.Role,
			"tenantId": user.TenantID,
		},
	})
}

// userView resolves display fields for a user response. Tenant name
// comes from the directory, never from token claims.
func (s *RESTServer) userView(r *http.Request, user *models.User) map[string]interface{} {
	view := map[string]interface{}{
		"id":          user.ID,
		"email":       user.Email,
		"fullName":    user.FullName,
		"phone":       user.Phone,
		"avatarUrl":   user.AvatarURL,
		"role":        user.Role,
		"tenantId":    user.TenantID,
		"active":      user.Active,
		"lastLoginAt": user.LastLoginAt,
		"createdAt":   user.CreatedAt,
	}

	if user.TenantID != nil {
		if tenant, err := s.store.GetTenant(r.Context(), *user.TenantID); err == nil {
			view["tenantName"] = tenant.Name
		}
	}

	return view
}

// ========== Response helpers ==========

// respondJSON writes a JSON response
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError writes an error response
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// respondAppError maps a typed error to its status and machine code
func (s *RESTServer) respondAppError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		s.respondJSON(w, appErr.Status, map[string]interface{}{
			"success": false,
			"error":   appErr.Message,
			"code":    appErr.Code,
		})
		return
	}

	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}
	if errors.Is(err, storage.ErrDuplicateKey) {
		s.respondError(w, http.StatusConflict, "already exists")
		return
	}

	log.Error().Err(err).Msg("Unhandled error")
	s.respondError(w, http.StatusInternalServerError, "internal error")
}
