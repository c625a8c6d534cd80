package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantStatus represents the lifecycle state of an organization.
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusInactive  TenantStatus = "inactive"
	TenantStatusSuspended TenantStatus = "suspended"
)

// Tenant represents an organization using the platform
type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Name        string `json:"name" db:"name"`
	Slug        string `json:"slug" db:"slug"`
	Description string `json:"description" db:"description"`

	// Status
	IsActive         bool         `json:"isActive" db:"is_active"`
	Status           TenantStatus `json:"status" db:"status"`
	SuspensionReason string       `json:"suspensionReason,omitempty" db:"suspension_reason"`
	SuspendedBy      *uuid.UUID   `json:"suspendedBy,omitempty" db:"suspended_by"`
	SuspendedAt      *time.Time   `json:"suspendedAt,omitempty" db:"suspended_at"`

	// ApplicationID links the onboarding application that created the tenant.
	ApplicationID *uuid.UUID `json:"applicationId,omitempty" db:"application_id"`
}

// IsUsable reports whether the tenant may serve requests.
func (t *Tenant) IsUsable() bool {
	return t.IsActive && t.Status == TenantStatusActive
}

// TenantRole is the role a user holds inside one tenant.
type TenantRole string

const (
	RoleTenantAdmin    TenantRole = "tenant_admin"
	RoleProjectManager TenantRole = "project_manager"
	RoleContributor    TenantRole = "contributor"
)

// Valid reports whether r is a known tenant role.
func (r TenantRole) Valid() bool {
	switch r {
	case RoleTenantAdmin, RoleProjectManager, RoleContributor:
		return true
	}
	return false
}

// CanManageProjects reports whether the role grants project management rights.
func (r TenantRole) CanManageProjects() bool {
	return r == RoleTenantAdmin || r == RoleProjectManager
}

// UserTenantRole represents a user-tenant association
type UserTenantRole struct {
	UserID    uuid.UUID  `json:"userId" db:"user_id"`
	TenantID  uuid.UUID  `json:"tenantId" db:"tenant_id"`
	Role      TenantRole `json:"role" db:"role"`
	IsActive  bool       `json:"isActive" db:"is_active"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
}
