package policy

import (
	"github.com/google/uuid"

	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/storage"
)

// Subject is the acting user as seen by the policy rules.
type Subject struct {
	UserID        uuid.UUID
	Authenticated bool
	SystemAdmin   bool
	// Roles holds the active role per tenant.
	Roles map[uuid.UUID]models.TenantRole
}

// Anonymous returns an unauthenticated subject.
func Anonymous() Subject {
	return Subject{}
}

// NewSubject builds a subject from a user and its memberships. Inactive
// memberships are ignored.
func NewSubject(user *models.User, roles []*models.UserTenantRole) Subject {
	if user == nil || !user.IsActive {
		return Anonymous()
	}

	s := Subject{
		UserID:        user.ID,
		Authenticated: true,
		SystemAdmin:   user.IsSystemAdmin(),
		Roles:         make(map[uuid.UUID]models.TenantRole, len(roles)),
	}
	for _, r := range roles {
		if r.UserID == user.ID && r.IsActive {
			s.Roles[r.TenantID] = r.Role
		}
	}
	return s
}

// RoleIn returns the subject's role within tenantID.
func (s Subject) RoleIn(tenantID uuid.UUID) (models.TenantRole, bool) {
	r, ok := s.Roles[tenantID]
	return r, ok
}

// IsMemberOf reports whether the subject holds any active role in tenantID.
func (s Subject) IsMemberOf(tenantID uuid.UUID) bool {
	_, ok := s.Roles[tenantID]
	return ok
}

// Is reports whether the subject is the given user.
func (s Subject) Is(userID uuid.UUID) bool {
	return s.Authenticated && s.UserID == userID
}

// Viewer returns the listing restriction matching the view rules. System
// actors see everything and get nil.
func (s Subject) Viewer() *storage.ProjectViewer {
	if s.SystemAdmin {
		return nil
	}
	v := &storage.ProjectViewer{}
	if !s.Authenticated {
		return v
	}
	v.UserID = s.UserID
	for tenantID, role := range s.Roles {
		v.MemberOf = append(v.MemberOf, tenantID)
		if role.CanManageProjects() {
			v.ManagerOf = append(v.ManagerOf, tenantID)
		}
		if role == models.RoleTenantAdmin {
			v.AdminOf = append(v.AdminOf, tenantID)
		}
	}
	return v
}
