package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog is an immutable record of a state-changing action.
type AuditLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	TenantID *uuid.UUID `json:"tenantId,omitempty" db:"tenant_id"`
	ActorID  *uuid.UUID `json:"actorId,omitempty" db:"actor_id"`

	Action      AuditAction `json:"action" db:"action"`
	SubjectType string      `json:"subjectType" db:"subject_type"`
	SubjectID   uuid.UUID   `json:"subjectId" db:"subject_id"`
	Description string      `json:"description" db:"description"`

	OldValues Variables `json:"oldValues,omitempty" db:"old_values"`
	NewValues Variables `json:"newValues,omitempty" db:"new_values"`
	Context   Variables `json:"context,omitempty" db:"context"`

	IPAddress string `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent string `json:"userAgent,omitempty" db:"user_agent"`
}

// AuditAction names what happened to the subject.
type AuditAction string

const (
	// Project actions
	AuditProjectCreated       AuditAction = "project.created"
	AuditProjectUpdated       AuditAction = "project.updated"
	AuditProjectDeleted       AuditAction = "project.deleted"
	AuditProjectForceDeleted  AuditAction = "project.force_deleted"
	AuditProjectStatusChanged AuditAction = "project.status_changed"

	// Product actions
	AuditProductCreated    AuditAction = "product.created"
	AuditProductUpdated    AuditAction = "product.updated"
	AuditProductDeleted    AuditAction = "product.deleted"
	AuditProductsReordered AuditAction = "product.reordered"

	// Tenant actions
	AuditTenantCreated     AuditAction = "tenant.created"
	AuditTenantSuspended   AuditAction = "tenant.suspended"
	AuditTenantReactivated AuditAction = "tenant.reactivated"

	// User actions
	AuditUserDeleted        AuditAction = "user.deleted"
	AuditSystemRoleAssigned AuditAction = "user.system_role_assigned"

	// Membership and pledges
	AuditRoleAssigned       AuditAction = "membership.role_assigned"
	AuditContributionAdded  AuditAction = "contribution.created"
	AuditInvitationSent     AuditAction = "invitation.sent"
	AuditInvitationAccepted AuditAction = "invitation.accepted"
)

// Audit subject types.
const (
	SubjectProject      = "project"
	SubjectProduct      = "product"
	SubjectTenant       = "tenant"
	SubjectUser         = "user"
	SubjectContribution = "contribution"
	SubjectInvitation   = "invitation"
)
