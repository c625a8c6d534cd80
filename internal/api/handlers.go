package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sannu-sannu/sannu-server/internal/apperrors"
	"github.com/sannu-sannu/sannu-server/internal/service"
	"github.com/sannu-sannu/sannu-server/internal/storage"
)

// ========== Auth handlers ==========

// HandleLogin handles user login
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	user, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondErr(w, err)
		return
	}

	// Generate tokens
	pair, err := s.auth.GenerateTokenPair(user)
	if err != nil {
		s.respondErr(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": pair,
		"user":   user,
	})
}

// HandleRefresh handles token refresh
func (s *RESTServer) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	userID, err := s.auth.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil || !user.IsActive {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	pair, err := s.auth.GenerateTokenPair(user)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"tokens": pair})
}

// ========== System handlers ==========

// HandleHealth health check
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// HandleRoot root handler
func (s *RESTServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": s.config.Server.Name,
		"version": s.config.Server.Version,
		"health":  "/api/v1/health",
	})
}

// ========== Helpers ==========

// decode reads a JSON body into dst and validates it. It writes the error
// response and returns false on failure.
func (s *RESTServer) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validator.Validate(dst); err != nil {
		s.respondErr(w, err)
		return false
	}
	return true
}

// uuidParam parses a uuid URL parameter.
func (s *RESTServer) uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid "+name+" id")
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads limit and offset, defaulting limit to 20 and capping it at 100.
func pagination(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

// respondError responds with error
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"error": message,
	})
}

// respondErr maps err onto a status code and error body. Unknown errors are
// logged and reported without detail.
func (s *RESTServer) respondErr(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrImagesDisabled) {
		s.respondError(w, http.StatusNotImplemented, "image uploads are not enabled")
		return
	}
	if errors.Is(err, storage.ErrOutOfScope) {
		err = apperrors.Forbidden("")
	}

	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		log.Error().Err(err).Msg("Request failed")
		s.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	body := map[string]interface{}{
		"error": appErr.Error(),
		"kind":  appErr.Kind,
	}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	if len(appErr.Metadata) > 0 {
		body["metadata"] = appErr.Metadata
	}
	s.respondJSON(w, apperrors.HTTPStatus(err), body)
}
