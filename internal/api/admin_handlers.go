package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/policy"
	"github.com/sannu-sannu/sannu-server/internal/service"
)

// ========== Tenant handlers ==========

// HandleAssignMember grants a user a role within the tenant.
func (s *RESTServer) HandleAssignMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := tenantFrom(ctx)
	sub := subjectFrom(ctx)

	if err := s.gate.AuthorizeTenant(sub, policy.ActionAssignRole, tenant.ID); err != nil {
		s.respondErr(w, err)
		return
	}

	userID, ok := s.uuidParam(w, r, "user")
	if !ok {
		return
	}

	var req struct {
		Role models.TenantRole `json:"role" validate:"required"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	membership, err := s.tenants.AssignRole(ctx, tenant.ID, userID, req.Role, sub.UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, membership)
}

// ========== Admin handlers ==========

// HandleAdminListProjects lists projects across every tenant.
func (s *RESTServer) HandleAdminListProjects(w http.ResponseWriter, r *http.Request) {
	s.listProjects(w, r, s.projectFilters(r))
}

// HandleForceDeleteProject removes a project together with its contributions.
func (s *RESTServer) HandleForceDeleteProject(w http.ResponseWriter, r *http.Request) {
	p, ok := s.authorizedProject(w, r, policy.ActionForceDelete)
	if !ok {
		return
	}

	if err := s.projects.ForceDeleteProject(r.Context(), p.ID, subjectFrom(r.Context()).UserID); err != nil {
		s.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateTenant creates an organization.
func (s *RESTServer) HandleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTenantInput
	if !s.decode(w, r, &in) {
		return
	}

	t, err := s.tenants.CreateTenant(r.Context(), in, subjectFrom(r.Context()).UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, t)
}

// HandleSuspendTenant suspends an organization.
func (s *RESTServer) HandleSuspendTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := s.uuidParam(w, r, "id")
	if !ok {
		return
	}
	sub := subjectFrom(r.Context())
	if err := s.gate.AuthorizeTenant(sub, policy.ActionManageTenant, id); err != nil {
		s.respondErr(w, err)
		return
	}

	var req struct {
		Reason string `json:"reason" validate:"max=1000"`
	}
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}

	t, err := s.tenants.SuspendTenant(r.Context(), id, sub.UserID, req.Reason)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

// HandleReactivateTenant lifts a suspension.
func (s *RESTServer) HandleReactivateTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := s.uuidParam(w, r, "id")
	if !ok {
		return
	}
	sub := subjectFrom(r.Context())
	if err := s.gate.AuthorizeTenant(sub, policy.ActionManageTenant, id); err != nil {
		s.respondErr(w, err)
		return
	}

	t, err := s.tenants.ReactivateTenant(r.Context(), id, sub.UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

// HandleAssignSystemRole changes a user's global role.
func (s *RESTServer) HandleAssignSystemRole(w http.ResponseWriter, r *http.Request) {
	id, ok := s.uuidParam(w, r, "id")
	if !ok {
		return
	}
	sub := subjectFrom(r.Context())
	if err := s.gate.AuthorizeUser(sub, policy.ActionAssignSystemRole, id); err != nil {
		s.respondErr(w, err)
		return
	}

	var req struct {
		Role models.GlobalRole `json:"role" validate:"required"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	user, err := s.users.AssignSystemRole(r.Context(), id, req.Role, sub.UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

// HandleDeleteUser removes an account.
func (s *RESTServer) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.uuidParam(w, r, "id")
	if !ok {
		return
	}
	sub := subjectFrom(r.Context())
	if err := s.gate.AuthorizeUser(sub, policy.ActionDeleteUser, id); err != nil {
		s.respondErr(w, err)
		return
	}

	if err := s.users.DeleteUser(r.Context(), id, sub.UserID); err != nil {
		s.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCleanupImages deletes stored images no product references.
func (s *RESTServer) HandleCleanupImages(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.products.CleanupOrphanedImages(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	log.Info().Int("deleted", deleted).Msg("Orphaned images removed")
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}

// HandleSweep runs the date-driven status sweep once.
func (s *RESTServer) HandleSweep(w http.ResponseWriter, r *http.Request) {
	changed, err := s.projects.UpdateProjectStatusByDate(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"changed": changed})
}
