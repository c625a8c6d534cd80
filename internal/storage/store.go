package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sannu-sannu/sannu-server/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
	// ErrConflict is returned when an optimistic version check fails.
	ErrConflict = errors.New("concurrent modification")
	// ErrOutOfScope is returned when a write targets a tenant other than the scoped one.
	ErrOutOfScope = errors.New("tenant out of scope")
	// ErrNestedTx is returned by BeginTx on a store that is already a transaction.
	ErrNestedTx = errors.New("nested transaction")
)

// Store defines the storage interface.
//
// Calls on tenant-owned entities (projects, products, contributions,
// invitations) read the tenant scope from the context; see package tenancy.
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int64, error)

	// Tenant methods
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	UpdateTenant(ctx context.Context, tenant *models.Tenant) error
	ListTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error)

	// Membership methods
	SetUserTenantRole(ctx context.Context, role *models.UserTenantRole) error
	GetUserTenantRole(ctx context.Context, userID, tenantID uuid.UUID) (*models.UserTenantRole, error)
	ListUserTenantRoles(ctx context.Context, userID uuid.UUID) ([]*models.UserTenantRole, error)

	// Project methods
	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	// GetProjectForUpdate loads the project and locks its row until the transaction ends.
	GetProjectForUpdate(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetProjectBySlug(ctx context.Context, slug string) (*models.Project, error)
	// UpdateProject writes the project if its stored version equals project.Version,
	// then increments project.Version. A stale version yields ErrConflict.
	UpdateProject(ctx context.Context, project *models.Project) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
	ListProjects(ctx context.Context, filters ProjectFilters, limit, offset int) ([]*models.Project, int64, error)
	// ProjectSlugExists checks every tenant regardless of scope.
	ProjectSlugExists(ctx context.Context, slug string) (bool, error)

	// Product methods
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	DeleteProductsByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
	ListProducts(ctx context.Context, projectID uuid.UUID) ([]*models.Product, error)
	CountProducts(ctx context.Context, projectID uuid.UUID) (int, error)
	SumProductPrices(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error)
	// ListProductImagePaths returns every non-empty image path in scope.
	ListProductImagePaths(ctx context.Context) ([]string, error)

	// Contribution methods
	CreateContribution(ctx context.Context, c *models.Contribution) error
	CountContributions(ctx context.Context, projectID uuid.UUID) (int64, error)
	GetContributionStats(ctx context.Context, projectID uuid.UUID) (*models.ContributionStats, error)
	DeleteContributionsByProject(ctx context.Context, projectID uuid.UUID) (int64, error)

	// Invitation methods
	CreateProjectInvitation(ctx context.Context, inv *models.ProjectInvitation) error
	GetProjectInvitation(ctx context.Context, id uuid.UUID) (*models.ProjectInvitation, error)
	UpdateProjectInvitation(ctx context.Context, inv *models.ProjectInvitation) error
	HasAcceptedInvitation(ctx context.Context, projectID, userID uuid.UUID) (bool, error)

	// Audit log methods
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
	ListAuditLogs(ctx context.Context, filters AuditLogFilters, limit, offset int) ([]*models.AuditLog, int64, error)

	// Close the store
	Close() error
}

// ProjectFilters narrows ListProjects. Nil fields are ignored.
type ProjectFilters struct {
	Status       *models.ProjectStatus
	Visibility   *models.ProjectVisibility
	CreatedBy    *uuid.UUID
	StartsBefore *time.Time
	EndsBefore   *time.Time
	// VisibleTo restricts results to projects the viewer may see.
	VisibleTo *ProjectViewer
}

// ProjectViewer describes who is listing projects. UserID is uuid.Nil for
// anonymous callers. Tenant lists hold the tenants where the viewer has any
// role, a managing role and the tenant_admin role respectively.
type ProjectViewer struct {
	UserID    uuid.UUID
	MemberOf  []uuid.UUID
	ManagerOf []uuid.UUID
	AdminOf   []uuid.UUID
}

// Sees reports whether the viewer may see p. accepted tells whether the
// viewer accepted an invitation to p.
func (v *ProjectViewer) Sees(p *models.Project, accepted bool) bool {
	if p.Visibility == models.VisibilityPublic {
		return true
	}
	if v.UserID != uuid.Nil && (p.CreatedBy == v.UserID || p.IsManagedBy(v.UserID)) {
		return true
	}
	if containsID(v.ManagerOf, p.TenantID) {
		return true
	}
	switch p.Visibility {
	case models.VisibilityPrivate:
		return containsID(v.MemberOf, p.TenantID)
	case models.VisibilityInviteOnly:
		return containsID(v.AdminOf, p.TenantID) || (v.UserID != uuid.Nil && accepted)
	}
	return false
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// AuditLogFilters represents filters for audit logs
type AuditLogFilters struct {
	TenantID    *uuid.UUID
	ActorID     *uuid.UUID
	SubjectType *string
	SubjectID   *uuid.UUID
	Action      *models.AuditAction
	StartTime   *time.Time
	EndTime     *time.Time
}
