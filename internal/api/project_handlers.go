package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/policy"
	"github.com/sannu-sannu/sannu-server/internal/service"
	"github.com/sannu-sannu/sannu-server/internal/storage"
)

type productView struct {
	*models.Product
	ImageURL string `json:"imageUrl,omitempty"`
}

type projectView struct {
	*models.Project
	Products []productView `json:"products,omitempty"`
}

func (s *RESTServer) productViews(products []*models.Product) []productView {
	out := make([]productView, len(products))
	for i, p := range products {
		out[i] = productView{Product: p, ImageURL: s.products.ImageURL(p.ImagePath)}
	}
	return out
}

// loadProject resolves {project} by id or slug within the request scope.
func (s *RESTServer) loadProject(w http.ResponseWriter, r *http.Request) (*models.Project, bool) {
	ref := chi.URLParam(r, "project")

	var (
		p   *models.Project
		err error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		p, err = s.projects.GetProject(r.Context(), id)
	} else {
		p, err = s.projects.GetProjectBySlug(r.Context(), ref)
	}
	if err != nil {
		s.respondErr(w, err)
		return nil, false
	}
	return p, true
}

// authorizedProject loads {project} and checks action against it.
func (s *RESTServer) authorizedProject(w http.ResponseWriter, r *http.Request, action policy.Action) (*models.Project, bool) {
	p, ok := s.loadProject(w, r)
	if !ok {
		return nil, false
	}
	if err := s.gate.AuthorizeProject(r.Context(), subjectFrom(r.Context()), action, p); err != nil {
		s.respondErr(w, err)
		return nil, false
	}
	return p, true
}

// HandleListProjects lists the projects of the tenant visible to the caller.
func (s *RESTServer) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	s.listProjects(w, r, s.projectFilters(r))
}

func (s *RESTServer) projectFilters(r *http.Request) storage.ProjectFilters {
	var filters storage.ProjectFilters
	q := r.URL.Query()
	if v := models.ProjectStatus(q.Get("status")); v.Valid() {
		filters.Status = &v
	}
	if v := models.ProjectVisibility(q.Get("visibility")); v.Valid() {
		filters.Visibility = &v
	}
	if v, err := uuid.Parse(q.Get("created_by")); err == nil {
		filters.CreatedBy = &v
	}
	return filters
}

// listProjects pages through the projects the caller may see. Visibility is
// applied by the store so total and pages agree.
func (s *RESTServer) listProjects(w http.ResponseWriter, r *http.Request, filters storage.ProjectFilters) {
	ctx := r.Context()
	limit, offset := pagination(r)
	filters.VisibleTo = subjectFrom(ctx).Viewer()

	projects, total, err := s.projects.ListProjects(ctx, filters, limit, offset)
	if err != nil {
		s.respondErr(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// HandleCreateProject creates a draft project in the tenant.
func (s *RESTServer) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := tenantFrom(ctx)
	sub := subjectFrom(ctx)

	if err := s.gate.AuthorizeTenant(sub, policy.ActionCreateProject, tenant.ID); err != nil {
		s.respondErr(w, err)
		return
	}

	var in service.CreateProjectInput
	if !s.decode(w, r, &in) {
		return
	}

	p, err := s.projects.CreateProject(ctx, in, tenant.ID, sub.UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, p)
}

// HandleGetProject returns a project with its products.
func (s *RESTServer) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	p, ok := s.authorizedProject(w, r, policy.ActionView)
	if !ok {
		return
	}

	products, err := s.products.ListProducts(r.Context(), p.ID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, projectView{Project: p, Products: s.productViews(products)})
}

// HandleUpdateProject applies a partial update.
func (s *RESTServer) HandleUpdateProject(w http.ResponseWriter, r *http.Request) {
	p, ok := s.authorizedProject(w, r, policy.ActionUpdate)
	if !ok {
		return
	}

	var in service.UpdateProjectInput
	if !s.decode(w, r, &in) {
		return
	}

	updated, err := s.projects.UpdateProject(r.Context(), p.ID, in, subjectFrom(r.Context()).UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

// HandleDeleteProject deletes a project without contributions.
func (s *RESTServer) HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	p, ok := s.authorizedProject(w, r, policy.ActionDelete)
	if !ok {
		return
	}

	if err := s.projects.DeleteProject(r.Context(), p.ID, subjectFrom(r.Context()).UserID); err != nil {
		s.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transitionFunc func(ctx context.Context, projectID, actor uuid.UUID) (*models.Project, error)

// handleTransition builds the handler of a body-less lifecycle action.
func (s *RESTServer) handleTransition(action policy.Action, run transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := s.authorizedProject(w, r, action)
		if !ok {
			return
		}

		updated, err := run(r.Context(), p.ID, subjectFrom(r.Context()).UserID)
		if err != nil {
			s.respondErr(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, updated)
	}
}

// HandleCancelProject cancels a project with an optional reason.
func (s *RESTServer) HandleCancelProject(w http.ResponseWriter, r *http.Request) {
	p, ok := s.authorizedProject(w, r, policy.ActionCancel)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" validate:"max=1000"`
	}
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}

	updated, err := s.projects.CancelProject(r.Context(), p.ID, subjectFrom(r.Context()).UserID, req.Reason)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

// HandleProjectStatistics returns contribution statistics.
func (s *RESTServer) HandleProjectStatistics(w http.ResponseWriter, r *http.Request) {
	p, ok := s.authorizedProject(w, r, policy.ActionViewStatistics)
	if !ok {
		return
	}

	stats, err := s.projects.GetProjectStatistics(r.Context(), p.ID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

// HandlePledge records a contribution by the caller.
func (s *RESTServer) HandlePledge(w http.ResponseWriter, r *http.Request) {
	p, ok := s.authorizedProject(w, r, policy.ActionContribute)
	if !ok {
		return
	}

	var in service.PledgeInput
	if !s.decode(w, r, &in) {
		return
	}

	c, err := s.contributions.Pledge(r.Context(), p.ID, subjectFrom(r.Context()).UserID, in)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, c)
}

// HandleInvite invites a user to the project.
func (s *RESTServer) HandleInvite(w http.ResponseWriter, r *http.Request) {
	p, ok := s.authorizedProject(w, r, policy.ActionInvite)
	if !ok {
		return
	}

	var req struct {
		UserID uuid.UUID `json:"user_id" validate:"required"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	inv, err := s.projects.InviteUser(r.Context(), p.ID, req.UserID, subjectFrom(r.Context()).UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, inv)
}

// HandleAcceptInvitation accepts an invitation addressed to the caller.
func (s *RESTServer) HandleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.uuidParam(w, r, "invitation")
	if !ok {
		return
	}

	inv, err := s.projects.AcceptInvitation(r.Context(), id, subjectFrom(r.Context()).UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, inv)
}
