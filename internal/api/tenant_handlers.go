package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/apperr"
	"github.com/accesshub/accesshub-server/internal/auth"
	"github.com/accesshub/accesshub-server/internal/models"
	"github.com/accesshub/accesshub-server/internal/storage"
)

// HandleListTenants lists tenants with optional filters
func (s *RESTServer) HandleListTenants(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	filters := models.TenantFilters{
		Search: r.URL.Query().Get("search"),
	}
	if v := r.URL.Query().Get("active"); v != "" {
		active := v == "true"
		filters.Active = &active
	}

	tenants, total, err := s.store.ListTenants(r.Context(), filters, limit, offset)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// HandleCreateTenant creates a tenant
func (s *RESTServer) HandleCreateTenant(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenant := &models.Tenant{
		Name:               req.Name,
		RegistrationNumber: req.RegistrationNumber,
		Email:              req.Email,
		Phone:              req.Phone,
	}
	tenant.Active = true
	tenant.CreatedBy = &actor.ID

	if err := s.store.CreateTenant(r.Context(), tenant); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondAppError(w, apperr.ErrRegistrationExists)
			return
		}
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, tenant)
}

// HandleGetTenant returns a single tenant. Tenant members may read
// their own tenant.
func (s *RESTServer) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	if err := auth.CheckTenantScope(actor, id); err != nil {
		s.respondAppError(w, err)
		return
	}

	tenant, err := s.store.GetTenant(r.Context(), id)
	if err != nil {
		s.respondAppError(w, apperr.ErrTenantNotFound)
		return
	}

	s.respondJSON(w, http.StatusOK, tenant)
}

// HandleUpdateTenant updates a tenant
func (s *RESTServer) HandleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	var req UpdateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenant, err := s.store.GetTenant(r.Context(), id)
	if err != nil {
		s.respondAppError(w, apperr.ErrTenantNotFound)
		return
	}

	if req.Name != "" {
		tenant.Name = req.Name
	}
	if req.RegistrationNumber != "" {
		tenant.RegistrationNumber = req.RegistrationNumber
	}
	tenant.Email = req.Email
	tenant.Phone = req.Phone
	tenant.UpdatedBy = &actor.ID

	if err := s.store.UpdateTenant(r.Context(), tenant); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondAppError(w, apperr.ErrRegistrationExists)
			return
		}
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, tenant)
}

// HandleDeactivateTenant deactivates a tenant and cascades to its
// users in the same transaction.
func (s *RESTServer) HandleDeactivateTenant(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	if _, err := s.store.GetTenant(r.Context(), id); err != nil {
		s.respondAppError(w, apperr.ErrTenantNotFound)
		return
	}

	if err := s.store.DeactivateTenant(r.Context(), id, actor.ID); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// HandleReactivateTenant reactivates a tenant. Its users stay
// deactivated and are reactivated one by one.
func (s *RESTServer) HandleReactivateTenant(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	if _, err := s.store.GetTenant(r.Context(), id); err != nil {
		s.respondAppError(w, apperr.ErrTenantNotFound)
		return
	}

	if err := s.store.ReactivateTenant(r.Context(), id, actor.ID); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// HandleListTenantUsers lists the users of a tenant
func (s *RESTServer) HandleListTenantUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	if err := auth.CheckTenantScope(actor, id); err != nil {
		s.respondAppError(w, err)
		return
	}

	limit, offset := parsePagination(r)
	filters := models.UserFilters{
		TenantID: &id,
		Search:   r.URL.Query().Get("search"),
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

// HandleCreateTenantUser creates a user inside the tenant from the
// path. The tenant id in the path wins; the payload carries none.
func (s *RESTServer) HandleCreateTenantUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	var req CreateTenantUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.createUser(w, r, actor, &CreateUserRequest{
		Email:     req.Email,
		FullName:  req.FullName,
		Password:  req.Password,
		Role:      req.Role,
		TenantID:  &id,
		Phone:     req.Phone,
		AvatarURL: req.AvatarURL,
	})
}

// ========== License handlers ==========

// HandleListLicenses lists a tenant's licenses. Tenant admins may
// read their own tenant's licenses.
func (s *RESTServer) HandleListLicenses(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	if err := auth.CheckTenantScope(actor, id); err != nil {
		s.respondAppError(w, err)
		return
	}

	licenses, err := s.store.ListLicenses(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"licenses": licenses,
	})
}

// HandleGrantLicense grants a tenant a license for an application
func (s *RESTServer) HandleGrantLicense(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	tenantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	var req GrantLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenant, err := s.store.GetTenant(r.Context(), tenantID)
	if err != nil || !tenant.Active {
		s.respondAppError(w, apperr.ErrTenantInactive)
		return
	}

	app, err := s.store.GetApplication(r.Context(), req.ApplicationID)
	if err != nil {
		s.respondAppError(w, apperr.ErrApplicationNotFound)
		return
	}
	if !app.Active {
		s.respondAppError(w, apperr.ErrApplicationNotFound)
		return
	}

	license := &models.TenantLicense{
		TenantID:      tenantID,
		ApplicationID: app.ID,
		ExpiresAt:     req.ExpiresAt,
	}
	license.Active = true
	license.CreatedBy = &actor.ID

	if err := s.store.CreateLicense(r.Context(), license); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "license already exists")
			return
		}
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, license)
}

// HandleUpdateLicense updates a license's expiry or active flag
func (s *RESTServer) HandleUpdateLicense(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	tenantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	applicationID, err := uuid.Parse(chi.URLParam(r, "applicationID"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	var req UpdateLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	license, err := s.store.GetLicense(r.Context(), tenantID, applicationID)
	if err != nil {
		s.respondAppError(w, apperr.ErrLicenseNotFound)
		return
	}

	license.ExpiresAt = req.ExpiresAt
	if req.Active != nil {
		if *req.Active {
			license.Reactivate(actor.ID)
		} else {
			license.Deactivate(actor.ID, time.Now())
		}
	} else {
		license.UpdatedBy = &actor.ID
	}

	if err := s.store.UpdateLicense(r.Context(), license); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, license)
}

// HandleRevokeLicense deactivates a license. Assignments under it
// stay in place but stop granting access.
func (s *RESTServer) HandleRevokeLicense(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	tenantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	applicationID, err := uuid.Parse(chi.URLParam(r, "applicationID"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	if _, err := s.store.GetLicense(r.Context(), tenantID, applicationID); err != nil {
		s.respondAppError(w, apperr.ErrLicenseNotFound)
		return
	}

	if err := s.store.DeactivateLicense(r.Context(), tenantID, applicationID, actor.ID); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}
