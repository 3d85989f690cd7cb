package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/apperr"
	"github.com/accesshub/accesshub-server/internal/auth"
	"github.com/accesshub/accesshub-server/internal/models"
	"github.com/accesshub/accesshub-server/internal/storage"
	"github.com/accesshub/accesshub-server/pkg/crypto"
)

// parsePagination reads limit/offset query params with sane bounds
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// HandleListUsers lists users with optional filters
func (s *RESTServer) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	filters := models.UserFilters{
		Search: r.URL.Query().Get("search"),
	}
	if v := r.URL.Query().Get("tenantId"); v != "" {
		tenantID, err := uuid.Parse(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid tenant id")
			return
		}
		filters.TenantID = &tenantID
	}
	if v := r.URL.Query().Get("role"); v != "" {
		role := models.Role(v)
		if !role.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid role")
			return
		}
		filters.Role = &role
	}
	if v := r.URL.Query().Get("active"); v != "" {
		active := v == "true"
		filters.Active = &active
	}

	users, total, err := s.store.ListUsers(r.Context(), filters, limit, offset)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"users":  users,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// HandleCreateUser creates a user. The actor's role bounds which
// roles it may hand out and which tenant the new user may land in.
func (s *RESTServer) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.createUser(w, r, actor, &req)
}

// createUser runs the shared guards and persists a new user. Both the
// global and the tenant-scoped creation endpoints funnel through it.
func (s *RESTServer) createUser(w http.ResponseWriter, r *http.Request, actor auth.Identity, req *CreateUserRequest) {
	if err := auth.CheckManageRole(actor, req.Role); err != nil {
		s.respondAppError(w, err)
		return
	}
	if err := auth.CheckRoleTenant(req.Role, req.TenantID); err != nil {
		s.respondAppError(w, err)
		return
	}

	if req.TenantID != nil {
		if err := auth.CheckTenantScope(actor, *req.TenantID); err != nil {
			s.respondAppError(w, err)
			return
		}
		tenant, err := s.store.GetTenant(r.Context(), *req.TenantID)
		if err != nil {
			s.respondAppError(w, apperr.ErrTenantNotFound)
			return
		}
		if !tenant.Active {
			s.respondAppError(w, apperr.ErrTenantInactive)
			return
		}
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := &models.User{
		Email:        req.Email,
		FullName:     req.FullName,
		Phone:        req.Phone,
		AvatarURL:    req.AvatarURL,
		PasswordHash: hash,
		Role:         req.Role,
		TenantID:     req.TenantID,
	}
	user.Active = true
	user.CreatedBy = &actor.ID

	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondAppError(w, apperr.ErrEmailExists)
			return
		}
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, s.userView(r, user))
}

// HandleGetUser returns a single user. Non-managing roles may only
// read themselves.
func (s *RESTServer) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if actor.ID != id {
		if err := auth.RequireAction(actor, auth.ActionManageTenantUsers); err != nil {
			s.respondAppError(w, err)
			return
		}
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		s.respondAppError(w, apperr.ErrUserNotFound)
		return
	}

	if actor.ID != id {
		if user.TenantID != nil {
			if err := auth.CheckTenantScope(actor, *user.TenantID); err != nil {
				s.respondAppError(w, err)
				return
			}
		} else if actor.Role != models.RoleSuperAdmin {
			s.respondAppError(w, apperr.ErrTenantScopeViolation)
			return
		}
	}

	s.respondJSON(w, http.StatusOK, s.userView(r, user))
}

// HandleUpdateUser updates a user's profile fields
func (s *RESTServer) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		s.respondAppError(w, apperr.ErrUserNotFound)
		return
	}

	if err := auth.CheckManageRole(actor, user.Role); err != nil {
		s.respondAppError(w, err)
		return
	}
	if user.TenantID != nil {
		if err := auth.CheckTenantScope(actor, *user.TenantID); err != nil {
			s.respondAppError(w, err)
			return
		}
	} else if actor.Role != models.RoleSuperAdmin {
		s.respondAppError(w, apperr.ErrTenantScopeViolation)
		return
	}

	if req.Email != "" {
		user.Email = req.Email
	}
	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.AvatarURL != "" {
		user.AvatarURL = req.AvatarURL
	}
	user.UpdatedBy = &actor.ID

	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondAppError(w, apperr.ErrEmailExists)
			return
		}
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, s.userView(r, user))
}

// HandleDeactivateUser deactivates a user and revokes every session.
// The deactivation guards run before any state changes.
func (s *RESTServer) HandleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		s.respondAppError(w, apperr.ErrUserNotFound)
		return
	}

	tenantScoped := actor.Role != models.RoleSuperAdmin
	if err := auth.CheckDeactivateUser(actor, user, tenantScoped); err != nil {
		s.respondAppError(w, err)
		return
	}

	if err := s.store.DeactivateUser(r.Context(), user.ID, actor.ID); err != nil {
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

// HandleReactivateUser reactivates a previously deactivated user
func (s *RESTServer) HandleReactivateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		s.respondAppError(w, apperr.ErrUserNotFound)
		return
	}

	if err := auth.CheckManageRole(actor, user.Role); err != nil {
		s.respondAppError(w, err)
		return
	}
	if user.TenantID != nil {
		if err := auth.CheckTenantScope(actor, *user.TenantID); err != nil {
			s.respondAppError(w, err)
			return
		}
		// Reactivation into a dead tenant stays blocked until the
		// tenant itself is reactivated.
		tenant, err := s.store.GetTenant(r.Context(), *user.TenantID)
		if err != nil || !tenant.Active {
			s.respondAppError(w, apperr.ErrTenantInactive)
			return
		}
	} else if actor.Role != models.RoleSuperAdmin {
		s.respondAppError(w, apperr.ErrTenantScopeViolation)
		return
	}

	if err := s.store.ReactivateUser(r.Context(), user.ID, actor.ID); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// HandleListUserAssignments lists a user's application assignments.
// Users may read their own; managers may read within scope.
func (s *RESTServer) HandleListUserAssignments(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if actor.ID != id {
		if err := auth.RequireAction(actor, auth.ActionSyncAssignments); err != nil {
			s.respondAppError(w, err)
			return
		}
		user, err := s.store.GetUser(r.Context(), id)
		if err != nil {
			s.respondAppError(w, apperr.ErrUserNotFound)
			return
		}
		if user.TenantID != nil {
			if err := auth.CheckTenantScope(actor, *user.TenantID); err != nil {
				s.respondAppError(w, err)
				return
			}
		} else if actor.Role != models.RoleSuperAdmin {
			s.respondAppError(w, apperr.ErrTenantScopeViolation)
			return
		}
	}

	assignments, err := s.store.ListUserAssignments(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"assignments": assignments,
	})
}

// HandleSyncAssignments replaces a user's assignment set
func (s *RESTServer) HandleSyncAssignments(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req SyncAssignmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assignments, err := s.resolver.SyncAssignments(r.Context(), actor, id, req.Applications)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"assignments": assignments,
	})
}
