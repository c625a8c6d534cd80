// Package policy decides whether a subject may perform an action.
//
// Project decisions run deny-only guards first, then an ordered chain of
// grant rules where the first decisive rule wins:
//
//	system actor -> creator -> manager -> visibility -> deny
package policy

import (
	"github.com/google/uuid"

	"github.com/sannu-sannu/sannu-server/internal/models"
)

// Action names an operation subject to authorization.
type Action string

// Project actions
const (
	ActionView           Action = "view"
	ActionUpdate         Action = "update"
	ActionDelete         Action = "delete"
	ActionForceDelete    Action = "force_delete"
	ActionActivate       Action = "activate"
	ActionPause          Action = "pause"
	ActionResume         Action = "resume"
	ActionComplete       Action = "complete"
	ActionCancel         Action = "cancel"
	ActionManageProducts Action = "manage_products"
	ActionViewStatistics Action = "view_statistics"
	ActionInvite         Action = "invite"
	ActionContribute     Action = "contribute"
)

// Tenant and user actions
const (
	ActionManageTenant     Action = "manage_tenant"
	ActionCreateProject    Action = "create_project"
	ActionAssignRole       Action = "assign_role"
	ActionAssignSystemRole Action = "assign_system_role"
	ActionDeleteUser       Action = "delete_user"
)

// Decision is the outcome of a single rule.
type Decision int

const (
	Abstain Decision = iota
	Allow
	Deny
)

// ProjectFacts are the facts about a project that live outside the row.
type ProjectFacts struct {
	HasContributions   bool
	Contributors       int
	InvitationAccepted bool
}

type projectRule func(sub Subject, action Action, p *models.Project, facts ProjectFacts) Decision

// projectGuards can only deny. They run before any grant.
var projectGuards = []projectRule{
	forceDeleteGuard,
	financialGuard,
	contributeGuard,
}

// projectRules are evaluated in priority order.
var projectRules = []projectRule{
	systemActorRule,
	creatorRule,
	managerRule,
	visibilityRule,
}

// CanProject reports whether sub may perform action on p.
func CanProject(sub Subject, action Action, p *models.Project, facts ProjectFacts) bool {
	if p == nil {
		return false
	}
	for _, guard := range projectGuards {
		if guard(sub, action, p, facts) == Deny {
			return false
		}
	}
	for _, rule := range projectRules {
		switch rule(sub, action, p, facts) {
		case Allow:
			return true
		case Deny:
			return false
		}
	}
	return false
}

func forceDeleteGuard(sub Subject, action Action, _ *models.Project, _ ProjectFacts) Decision {
	if action == ActionForceDelete && !sub.SystemAdmin {
		return Deny
	}
	return Abstain
}

func financialGuard(sub Subject, action Action, _ *models.Project, facts ProjectFacts) Decision {
	switch action {
	case ActionDelete, ActionManageProducts:
		if facts.HasContributions && !sub.SystemAdmin {
			return Deny
		}
	}
	return Abstain
}

// contributeGuard applies to every subject, system actors included.
func contributeGuard(sub Subject, action Action, p *models.Project, facts ProjectFacts) Decision {
	if action != ActionContribute {
		return Abstain
	}
	if !sub.Authenticated || sub.UserID == p.CreatedBy {
		return Deny
	}
	if !p.Status.AcceptsContributions() {
		return Deny
	}
	if p.MaxContributors != nil && facts.Contributors >= *p.MaxContributors {
		return Deny
	}
	return Abstain
}

func systemActorRule(sub Subject, _ Action, _ *models.Project, _ ProjectFacts) Decision {
	if sub.SystemAdmin {
		return Allow
	}
	return Abstain
}

func creatorRule(sub Subject, action Action, p *models.Project, _ ProjectFacts) Decision {
	if !sub.Is(p.CreatedBy) {
		return Abstain
	}
	return managementDecision(action, p)
}

func managerRule(sub Subject, action Action, p *models.Project, _ ProjectFacts) Decision {
	if !sub.Authenticated {
		return Abstain
	}
	role, member := sub.RoleIn(p.TenantID)
	if !p.IsManagedBy(sub.UserID) && !(member && role.CanManageProjects()) {
		return Abstain
	}
	return managementDecision(action, p)
}

// managementDecision applies the state preconditions that bind creators and
// managers. Actions outside management abstain.
func managementDecision(action Action, p *models.Project) Decision {
	switch action {
	case ActionView, ActionUpdate, ActionDelete, ActionManageProducts,
		ActionViewStatistics, ActionInvite:
		return Allow
	case ActionActivate:
		return allowIf(p.Status == models.ProjectStatusDraft && p.Status.CanTransitionTo(models.ProjectStatusActive))
	case ActionPause:
		return allowIf(p.Status == models.ProjectStatusActive && p.Status.CanTransitionTo(models.ProjectStatusPaused))
	case ActionResume:
		return allowIf(p.Status == models.ProjectStatusPaused && p.Status.CanTransitionTo(models.ProjectStatusActive))
	case ActionComplete:
		return allowIf(p.Status.CanTransitionTo(models.ProjectStatusCompleted))
	case ActionCancel:
		return allowIf(p.Status.CanTransitionTo(models.ProjectStatusCancelled))
	}
	return Abstain
}

func allowIf(ok bool) Decision {
	if ok {
		return Allow
	}
	return Deny
}

// visibilityRule grants view access, and contribute access on top of it.
func visibilityRule(sub Subject, action Action, p *models.Project, facts ProjectFacts) Decision {
	if action != ActionView && action != ActionContribute {
		return Abstain
	}

	switch p.Visibility {
	case models.VisibilityPublic:
		return Allow
	case models.VisibilityPrivate:
		if sub.Authenticated && sub.IsMemberOf(p.TenantID) {
			return Allow
		}
	case models.VisibilityInviteOnly:
		if role, ok := sub.RoleIn(p.TenantID); ok && sub.Authenticated && role == models.RoleTenantAdmin {
			return Allow
		}
		if sub.Authenticated && facts.InvitationAccepted {
			return Allow
		}
	}
	return Deny
}

// CanTenant reports whether sub may perform a tenant-level action on tenantID.
func CanTenant(sub Subject, action Action, tenantID uuid.UUID) bool {
	if !sub.Authenticated {
		return false
	}
	switch action {
	case ActionManageTenant:
		return sub.SystemAdmin
	case ActionCreateProject:
		if sub.SystemAdmin {
			return true
		}
		role, ok := sub.RoleIn(tenantID)
		return ok && (role == models.RoleTenantAdmin || role == models.RoleProjectManager)
	case ActionAssignRole:
		if sub.SystemAdmin {
			return true
		}
		role, ok := sub.RoleIn(tenantID)
		return ok && role == models.RoleTenantAdmin
	}
	return false
}

// CanUser reports whether sub may perform a user-level action on target.
// System actors cannot elevate or delete themselves.
func CanUser(sub Subject, action Action, target uuid.UUID) bool {
	if !sub.Authenticated || !sub.SystemAdmin {
		return false
	}
	switch action {
	case ActionAssignSystemRole, ActionDeleteUser:
		return sub.UserID != target
	}
	return false
}
