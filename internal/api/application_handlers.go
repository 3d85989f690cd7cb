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
	"github.com/accesshub/accesshub-server/internal/entitlement"
	"github.com/accesshub/accesshub-server/internal/models"
	"github.com/accesshub/accesshub-server/internal/obs"
	"github.com/accesshub/accesshub-server/internal/storage"
	"github.com/accesshub/accesshub-server/pkg/crypto"
)

// HandleAvailableApplications lists the applications the caller may
// reach, resolved per role through the entitlement hierarchy.
func (s *RESTServer) HandleAvailableApplications(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	apps, err := s.resolver.AvailableApplications(r.Context(), actor)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	if apps == nil {
		apps = []*models.Application{}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"applications": apps,
	})
}

// HandleRequestAccess resolves one application access request and
// returns a grant with the launch URL.
func (s *RESTServer) HandleRequestAccess(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	grant, err := s.resolver.RequestAccessGrant(r.Context(), actor, id, entitlement.RequestMeta{
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		obs.CountAccessGrant("denied")
		s.respondAppError(w, err)
		return
	}
	obs.CountAccessGrant("granted")

	s.respondJSON(w, http.StatusOK, grant)
}

// HandleListApplications lists all applications
func (s *RESTServer) HandleListApplications(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	apps, total, err := s.store.ListApplications(r.Context(), limit, offset)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"applications": apps,
		"total":        total,
		"limit":        limit,
		"offset":       offset,
	})
}

// HandleCreateApplication registers an application and mints its api key
func (s *RESTServer) HandleCreateApplication(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	var req CreateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	apiKey, err := crypto.GenerateAPIKey()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate api key")
		return
	}

	app := &models.Application{
		Name:        req.Name,
		Description: req.Description,
		URL:         req.URL,
		IconURL:     req.IconURL,
		APIKey:      apiKey,
	}
	app.Active = true
	app.CreatedBy = &actor.ID

	if err := s.store.CreateApplication(r.Context(), app); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "application already exists")
			return
		}
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, app)
}

// HandleGetApplication returns a single application
func (s *RESTServer) HandleGetApplication(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	app, err := s.store.GetApplication(r.Context(), id)
	if err != nil {
		s.respondAppError(w, apperr.ErrApplicationNotFound)
		return
	}

	s.respondJSON(w, http.StatusOK, app)
}

// HandleUpdateApplication updates an application's metadata
func (s *RESTServer) HandleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	var req UpdateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	app, err := s.store.GetApplication(r.Context(), id)
	if err != nil {
		s.respondAppError(w, apperr.ErrApplicationNotFound)
		return
	}

	if req.Name != "" {
		app.Name = req.Name
	}
	if req.URL != "" {
		app.URL = req.URL
	}
	app.Description = req.Description
	app.IconURL = req.IconURL
	app.UpdatedBy = &actor.ID

	if err := s.store.UpdateApplication(r.Context(), app); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, app)
}

// HandleDeactivateApplication deactivates an application and cascades
// to its licenses in the same transaction.
func (s *RESTServer) HandleDeactivateApplication(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	if _, err := s.store.GetApplication(r.Context(), id); err != nil {
		s.respondAppError(w, apperr.ErrApplicationNotFound)
		return
	}

	if err := s.store.DeactivateApplication(r.Context(), id, actor.ID); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// HandleReactivateApplication reactivates an application. Licenses
// stay deactivated and are restored individually.
func (s *RESTServer) HandleReactivateApplication(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	if _, err := s.store.GetApplication(r.Context(), id); err != nil {
		s.respondAppError(w, apperr.ErrApplicationNotFound)
		return
	}

	if err := s.store.ReactivateApplication(r.Context(), id, actor.ID); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// HandleRegenerateAPIKey replaces an application's api key. The old
// key stops working immediately.
func (s *RESTServer) HandleRegenerateAPIKey(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	if _, err := s.store.GetApplication(r.Context(), id); err != nil {
		s.respondAppError(w, apperr.ErrApplicationNotFound)
		return
	}

	apiKey, err := crypto.GenerateAPIKey()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate api key")
		return
	}

	if err := s.store.UpdateApplicationAPIKey(r.Context(), id, apiKey, actor.ID); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"apiKey": apiKey,
	})
}

// HandleListAccessEvents lists audit events with optional filters
func (s *RESTServer) HandleListAccessEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	filters := models.AccessEventFilters{}
	if v := r.URL.Query().Get("userId"); v != "" {
		userID, err := uuid.Parse(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		filters.UserID = &userID
	}
	if v := r.URL.Query().Get("applicationId"); v != "" {
		applicationID, err := uuid.Parse(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid application id")
			return
		}
		filters.ApplicationID = &applicationID
	}
	if v := r.URL.Query().Get("action"); v != "" {
		action := models.AccessAction(v)
		filters.Action = &action
	}
	if v := r.URL.Query().Get("startTime"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid start time")
			return
		}
		filters.StartTime = &t
	}
	if v := r.URL.Query().Get("endTime"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid end time")
			return
		}
		filters.EndTime = &t
	}

	events, total, err := s.store.ListAccessEvents(r.Context(), filters, limit, offset)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
