package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/tenancy"
)

// ErrTxDone is returned when committing a finished memory transaction.
var ErrTxDone = errors.New("transaction already finished")

type roleKey struct {
	userID, tenantID uuid.UUID
}

type memoryData struct {
	users         map[uuid.UUID]*models.User
	tenants       map[uuid.UUID]*models.Tenant
	roles         map[roleKey]*models.UserTenantRole
	projects      map[uuid.UUID]*models.Project
	products      map[uuid.UUID]*models.Product
	contributions map[uuid.UUID]*models.Contribution
	invitations   map[uuid.UUID]*models.ProjectInvitation
	auditLogs     []*models.AuditLog
}

func newMemoryData() *memoryData {
	return &memoryData{
		users:         map[uuid.UUID]*models.User{},
		tenants:       map[uuid.UUID]*models.Tenant{},
		roles:         map[roleKey]*models.UserTenantRole{},
		projects:      map[uuid.UUID]*models.Project{},
		products:      map[uuid.UUID]*models.Product{},
		contributions: map[uuid.UUID]*models.Contribution{},
		invitations:   map[uuid.UUID]*models.ProjectInvitation{},
	}
}

func (d *memoryData) clone() *memoryData {
	c := newMemoryData()
	for k, v := range d.users {
		c.users[k] = copyUser(v)
	}
	for k, v := range d.tenants {
		t := *v
		c.tenants[k] = &t
	}
	for k, v := range d.roles {
		r := *v
		c.roles[k] = &r
	}
	for k, v := range d.projects {
		c.projects[k] = v.Clone()
	}
	for k, v := range d.products {
		p := *v
		c.products[k] = &p
	}
	for k, v := range d.contributions {
		cc := *v
		c.contributions[k] = &cc
	}
	for k, v := range d.invitations {
		i := *v
		c.invitations[k] = &i
	}
	c.auditLogs = append([]*models.AuditLog(nil), d.auditLogs...)
	return c
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Settings = u.Settings.Clone()
	return &c
}

// MemoryStore implements Store in process memory. Transactions work on a
// copy of the data and hold the store lock until Commit or Rollback, so
// they are fully serialized.
type MemoryStore struct {
	mu   *sync.Mutex
	root *MemoryStore
	data *memoryData
	done bool
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mu: &sync.Mutex{}, data: newMemoryData()}
}

func (s *MemoryStore) inTx() bool {
	return s.root != nil
}

// lock guards a single call on the root store. Inside a transaction the
// lock is already held.
func (s *MemoryStore) lock() func() {
	if s.inTx() {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// BeginTx starts a new transaction
func (s *MemoryStore) BeginTx(ctx context.Context) (Store, error) {
	if s.inTx() {
		return nil, ErrNestedTx
	}
	s.mu.Lock()
	return &MemoryStore{mu: s.mu, root: s, data: s.data.clone()}, nil
}

// Commit publishes the transaction's data
func (s *MemoryStore) Commit() error {
	if !s.inTx() {
		return nil
	}
	if s.done {
		return ErrTxDone
	}
	s.root.data = s.data
	s.done = true
	s.mu.Unlock()
	return nil
}

// Rollback discards the transaction's data
func (s *MemoryStore) Rollback() error {
	if !s.inTx() || s.done {
		return nil
	}
	s.done = true
	s.mu.Unlock()
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > len(items) {
		offset = len(items)
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ========== Users ==========

// CreateUser creates a new user
func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	defer s.lock()()

	if err := prepareUser(user); err != nil {
		return err
	}
	if _, ok := s.data.users[user.ID]; ok {
		return ErrDuplicateKey
	}
	for _, u := range s.data.users {
		if u.Email == user.Email {
			return ErrDuplicateKey
		}
	}
	s.data.users[user.ID] = copyUser(user)
	return nil
}

// GetUser gets a user by ID
func (s *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer s.lock()()

	u, ok := s.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

// GetUserByEmail gets a user by email
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer s.lock()()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.data.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

// UpdateUser updates a user
func (s *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	defer s.lock()()

	if _, ok := s.data.users[user.ID]; !ok {
		return ErrNotFound
	}
	for id, u := range s.data.users {
		if id != user.ID && u.Email == user.Email {
			return ErrDuplicateKey
		}
	}
	user.UpdatedAt = time.Now()
	s.data.users[user.ID] = copyUser(user)
	return nil
}

// DeleteUser deletes a user and its memberships
func (s *MemoryStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	defer s.lock()()

	if _, ok := s.data.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.data.users, id)
	for k := range s.data.roles {
		if k.userID == id {
			delete(s.data.roles, k)
		}
	}
	return nil
}

// ListUsers lists users
func (s *MemoryStore) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int64, error) {
	defer s.lock()()

	all := make([]*models.User, 0, len(s.data.users))
	for _, u := range s.data.users {
		all = append(all, copyUser(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, limit, offset), int64(len(all)), nil
}

// ========== Tenants ==========

// CreateTenant creates a new tenant
func (s *MemoryStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	defer s.lock()()

	prepareTenant(tenant)
	for _, t := range s.data.tenants {
		if t.ID == tenant.ID || t.Slug == tenant.Slug {
			return ErrDuplicateKey
		}
	}
	t := *tenant
	s.data.tenants[t.ID] = &t
	return nil
}

// GetTenant gets a tenant by ID
func (s *MemoryStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	defer s.lock()()

	t, ok := s.data.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *t
	return &c, nil
}

// GetTenantBySlug gets a tenant by slug
func (s *MemoryStore) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	defer s.lock()()

	for _, t := range s.data.tenants {
		if t.Slug == slug {
			c := *t
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateTenant updates a tenant
func (s *MemoryStore) UpdateTenant(ctx context.Context, tenant *models.Tenant) error {
	defer s.lock()()

	if _, ok := s.data.tenants[tenant.ID]; !ok {
		return ErrNotFound
	}
	for id, t := range s.data.tenants {
		if id != tenant.ID && t.Slug == tenant.Slug {
			return ErrDuplicateKey
		}
	}
	tenant.UpdatedAt = time.Now()
	t := *tenant
	s.data.tenants[t.ID] = &t
	return nil
}

// ListTenants lists tenants
func (s *MemoryStore) ListTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error) {
	defer s.lock()()

	all := make([]*models.Tenant, 0, len(s.data.tenants))
	for _, t := range s.data.tenants {
		c := *t
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, limit, offset), int64(len(all)), nil
}

// ========== Memberships ==========

// SetUserTenantRole creates or replaces a membership
func (s *MemoryStore) SetUserTenantRole(ctx context.Context, role *models.UserTenantRole) error {
	defer s.lock()()

	now := time.Now()
	key := roleKey{role.UserID, role.TenantID}
	if existing, ok := s.data.roles[key]; ok {
		role.CreatedAt = existing.CreatedAt
	} else if role.CreatedAt.IsZero() {
		role.CreatedAt = now
	}
	role.UpdatedAt = now
	r := *role
	s.data.roles[key] = &r
	return nil
}

// GetUserTenantRole gets a membership
func (s *MemoryStore) GetUserTenantRole(ctx context.Context, userID, tenantID uuid.UUID) (*models.UserTenantRole, error) {
	defer s.lock()()

	r, ok := s.data.roles[roleKey{userID, tenantID}]
	if !ok {
		return nil, ErrNotFound
	}
	c := *r
	return &c, nil
}

// ListUserTenantRoles lists the memberships of a user
func (s *MemoryStore) ListUserTenantRoles(ctx context.Context, userID uuid.UUID) ([]*models.UserTenantRole, error) {
	defer s.lock()()

	var out []*models.UserTenantRole
	for k, r := range s.data.roles {
		if k.userID == userID {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ========== Projects ==========

// CreateProject creates a new project
func (s *MemoryStore) CreateProject(ctx context.Context, p *models.Project) error {
	if _, err := resolveTenant(ctx, &p.TenantID); err != nil {
		return err
	}
	defer s.lock()()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for _, existing := range s.data.projects {
		if existing.ID == p.ID || existing.Slug == p.Slug {
			return ErrDuplicateKey
		}
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Version = 1
	s.data.projects[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) findProject(ctx context.Context, match func(*models.Project) bool) (*models.Project, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	defer s.lock()()

	for _, p := range s.data.projects {
		if match(p) && scope.Allows(p.TenantID) {
			return p.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// GetProject gets a project by ID
func (s *MemoryStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.findProject(ctx, func(p *models.Project) bool { return p.ID == id })
}

// GetProjectForUpdate gets a project by ID. Transactions already hold the store lock.
func (s *MemoryStore) GetProjectForUpdate(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.GetProject(ctx, id)
}

// GetProjectBySlug gets a project by slug
func (s *MemoryStore) GetProjectBySlug(ctx context.Context, slug string) (*models.Project, error) {
	return s.findProject(ctx, func(p *models.Project) bool { return p.Slug == slug })
}

// UpdateProject updates a project guarded by its version
func (s *MemoryStore) UpdateProject(ctx context.Context, p *models.Project) error {
	scope, err := writeScope(ctx, p.TenantID)
	if err != nil {
		return err
	}
	defer s.lock()()

	stored, ok := s.data.projects[p.ID]
	if !ok || !scope.Allows(stored.TenantID) {
		return ErrNotFound
	}
	if stored.Version != p.Version {
		return ErrConflict
	}
	for id, other := range s.data.projects {
		if id != p.ID && other.Slug == p.Slug {
			return ErrDuplicateKey
		}
	}

	p.UpdatedAt = time.Now()
	p.Version++
	c := p.Clone()
	c.TenantID = stored.TenantID
	c.CreatedBy = stored.CreatedBy
	c.CreatedAt = stored.CreatedAt
	s.data.projects[p.ID] = c
	return nil
}

// DeleteProject deletes a project and its invitations
func (s *MemoryStore) DeleteProject(ctx context.Context, id uuid.UUID) error {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return err
	}
	defer s.lock()()

	p, ok := s.data.projects[id]
	if !ok || !scope.Allows(p.TenantID) {
		return ErrNotFound
	}
	for _, prod := range s.data.products {
		if prod.ProjectID == id {
			return ErrInvalidData
		}
	}
	for _, c := range s.data.contributions {
		if c.ProjectID == id {
			return ErrInvalidData
		}
	}
	delete(s.data.projects, id)
	for k, inv := range s.data.invitations {
		if inv.ProjectID == id {
			delete(s.data.invitations, k)
		}
	}
	return nil
}

// ListProjects lists projects with filters
func (s *MemoryStore) ListProjects(ctx context.Context, filters ProjectFilters, limit, offset int) ([]*models.Project, int64, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer s.lock()()

	var all []*models.Project
	for _, p := range s.data.projects {
		if !scope.Allows(p.TenantID) {
			continue
		}
		if filters.Status != nil && p.Status != *filters.Status {
			continue
		}
		if filters.Visibility != nil && p.Visibility != *filters.Visibility {
			continue
		}
		if filters.CreatedBy != nil && p.CreatedBy != *filters.CreatedBy {
			continue
		}
		if filters.StartsBefore != nil && p.StartDate.After(*filters.StartsBefore) {
			continue
		}
		if filters.EndsBefore != nil && !p.EndDate.Before(*filters.EndsBefore) {
			continue
		}
		if v := filters.VisibleTo; v != nil && !v.Sees(p, s.accepted(p.ID, v.UserID)) {
			continue
		}
		all = append(all, p.Clone())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, limit, offset), int64(len(all)), nil
}

// accepted reports an accepted invitation. Callers hold the lock.
func (s *MemoryStore) accepted(projectID, userID uuid.UUID) bool {
	if userID == uuid.Nil {
		return false
	}
	for _, inv := range s.data.invitations {
		if inv.ProjectID == projectID && inv.UserID == userID && inv.Status == models.InvitationAccepted {
			return true
		}
	}
	return false
}

// ProjectSlugExists reports whether any tenant already uses slug
func (s *MemoryStore) ProjectSlugExists(ctx context.Context, slug string) (bool, error) {
	defer s.lock()()

	for _, p := range s.data.projects {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

// ========== Products ==========

// CreateProduct creates a new product
func (s *MemoryStore) CreateProduct(ctx context.Context, p *models.Product) error {
	if _, err := resolveTenant(ctx, &p.TenantID); err != nil {
		return err
	}
	defer s.lock()()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, ok := s.data.products[p.ID]; ok {
		return ErrDuplicateKey
	}
	if _, ok := s.data.projects[p.ProjectID]; !ok {
		return ErrInvalidData
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	c := *p
	s.data.products[p.ID] = &c
	return nil
}

// GetProduct gets a product by ID
func (s *MemoryStore) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	defer s.lock()()

	p, ok := s.data.products[id]
	if !ok || !scope.Allows(p.TenantID) {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

// UpdateProduct updates a product
func (s *MemoryStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	scope, err := writeScope(ctx, p.TenantID)
	if err != nil {
		return err
	}
	defer s.lock()()

	stored, ok := s.data.products[p.ID]
	if !ok || !scope.Allows(stored.TenantID) {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now()
	c := *p
	c.TenantID = stored.TenantID
	c.ProjectID = stored.ProjectID
	c.CreatedAt = stored.CreatedAt
	s.data.products[p.ID] = &c
	return nil
}

// DeleteProduct deletes a product
func (s *MemoryStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return err
	}
	defer s.lock()()

	p, ok := s.data.products[id]
	if !ok || !scope.Allows(p.TenantID) {
		return ErrNotFound
	}
	delete(s.data.products, id)
	return nil
}

// DeleteProductsByProject deletes every product of a project
func (s *MemoryStore) DeleteProductsByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return 0, err
	}
	defer s.lock()()

	var n int64
	for id, p := range s.data.products {
		if p.ProjectID == projectID && scope.Allows(p.TenantID) {
			delete(s.data.products, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) projectProducts(scope tenancy.Scope, projectID uuid.UUID) []*models.Product {
	var out []*models.Product
	for _, p := range s.data.products {
		if p.ProjectID == projectID && scope.Allows(p.TenantID) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ListProducts lists the products of a project in display order
func (s *MemoryStore) ListProducts(ctx context.Context, projectID uuid.UUID) ([]*models.Product, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	defer s.lock()()

	return s.projectProducts(scope, projectID), nil
}

// CountProducts counts the products of a project
func (s *MemoryStore) CountProducts(ctx context.Context, projectID uuid.UUID) (int, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return 0, err
	}
	defer s.lock()()

	return len(s.projectProducts(scope, projectID)), nil
}

// SumProductPrices sums the current prices of a project's products
func (s *MemoryStore) SumProductPrices(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer s.lock()()

	total := decimal.Zero
	for _, p := range s.projectProducts(scope, projectID) {
		total = total.Add(p.Price)
	}
	return total, nil
}

// ListProductImagePaths lists image paths referenced by products
func (s *MemoryStore) ListProductImagePaths(ctx context.Context) ([]string, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	defer s.lock()()

	var paths []string
	for _, p := range s.data.products {
		if p.ImagePath != "" && scope.Allows(p.TenantID) {
			paths = append(paths, p.ImagePath)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// ========== Contributions ==========

// CreateContribution records a pledge
func (s *MemoryStore) CreateContribution(ctx context.Context, c *models.Contribution) error {
	if _, err := resolveTenant(ctx, &c.TenantID); err != nil {
		return err
	}
	defer s.lock()()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if _, ok := s.data.projects[c.ProjectID]; !ok {
		return ErrInvalidData
	}

	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	cc := *c
	s.data.contributions[c.ID] = &cc
	return nil
}

// CountContributions counts every contribution of a project, whatever its status
func (s *MemoryStore) CountContributions(ctx context.Context, projectID uuid.UUID) (int64, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return 0, err
	}
	defer s.lock()()

	var n int64
	for _, c := range s.data.contributions {
		if c.ProjectID == projectID && scope.Allows(c.TenantID) {
			n++
		}
	}
	return n, nil
}

// GetContributionStats aggregates the non-cancelled contributions of a project
func (s *MemoryStore) GetContributionStats(ctx context.Context, projectID uuid.UUID) (*models.ContributionStats, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	defer s.lock()()

	stats := &models.ContributionStats{TotalPaid: decimal.Zero, TotalCommitted: decimal.Zero}
	users := map[uuid.UUID]struct{}{}
	for _, c := range s.data.contributions {
		if c.ProjectID != projectID || !scope.Allows(c.TenantID) || c.Status == models.ContributionCancelled {
			continue
		}
		stats.Contributions++
		users[c.UserID] = struct{}{}
		stats.TotalPaid = stats.TotalPaid.Add(c.TotalPaid)
		stats.TotalCommitted = stats.TotalCommitted.Add(c.TotalCommitted)
	}
	stats.DistinctUsers = len(users)
	return stats, nil
}

// DeleteContributionsByProject removes every contribution of a project
func (s *MemoryStore) DeleteContributionsByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return 0, err
	}
	defer s.lock()()

	var n int64
	for id, c := range s.data.contributions {
		if c.ProjectID == projectID && scope.Allows(c.TenantID) {
			delete(s.data.contributions, id)
			n++
		}
	}
	return n, nil
}

// ========== Invitations ==========

// CreateProjectInvitation creates a new invitation
func (s *MemoryStore) CreateProjectInvitation(ctx context.Context, inv *models.ProjectInvitation) error {
	if _, err := resolveTenant(ctx, &inv.TenantID); err != nil {
		return err
	}
	defer s.lock()()

	for _, existing := range s.data.invitations {
		if existing.ProjectID == inv.ProjectID && existing.UserID == inv.UserID {
			return ErrDuplicateKey
		}
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.Status == "" {
		inv.Status = models.InvitationPending
	}

	now := time.Now()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	c := *inv
	s.data.invitations[inv.ID] = &c
	return nil
}

// GetProjectInvitation gets an invitation by ID
func (s *MemoryStore) GetProjectInvitation(ctx context.Context, id uuid.UUID) (*models.ProjectInvitation, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	defer s.lock()()

	inv, ok := s.data.invitations[id]
	if !ok || !scope.Allows(inv.TenantID) {
		return nil, ErrNotFound
	}
	c := *inv
	return &c, nil
}

// UpdateProjectInvitation updates the status of an invitation
func (s *MemoryStore) UpdateProjectInvitation(ctx context.Context, inv *models.ProjectInvitation) error {
	scope, err := writeScope(ctx, inv.TenantID)
	if err != nil {
		return err
	}
	defer s.lock()()

	stored, ok := s.data.invitations[inv.ID]
	if !ok || !scope.Allows(stored.TenantID) {
		return ErrNotFound
	}
	inv.UpdatedAt = time.Now()
	stored.Status = inv.Status
	stored.AcceptedAt = inv.AcceptedAt
	stored.UpdatedAt = inv.UpdatedAt
	return nil
}

// HasAcceptedInvitation reports whether userID accepted an invitation to the project
func (s *MemoryStore) HasAcceptedInvitation(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return false, err
	}
	defer s.lock()()

	for _, inv := range s.data.invitations {
		if inv.ProjectID == projectID && inv.UserID == userID &&
			inv.Status == models.InvitationAccepted && scope.Allows(inv.TenantID) {
			return true, nil
		}
	}
	return false, nil
}

// ========== Audit logs ==========

// CreateAuditLog appends an audit log entry
func (s *MemoryStore) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	defer s.lock()()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	c := *entry
	s.data.auditLogs = append(s.data.auditLogs, &c)
	return nil
}

// ListAuditLogs lists audit logs with filters, newest first
func (s *MemoryStore) ListAuditLogs(ctx context.Context, filters AuditLogFilters, limit, offset int) ([]*models.AuditLog, int64, error) {
	defer s.lock()()

	var all []*models.AuditLog
	for i := len(s.data.auditLogs) - 1; i >= 0; i-- {
		e := s.data.auditLogs[i]
		if filters.TenantID != nil && (e.TenantID == nil || *e.TenantID != *filters.TenantID) {
			continue
		}
		if filters.ActorID != nil && (e.ActorID == nil || *e.ActorID != *filters.ActorID) {
			continue
		}
		if filters.SubjectType != nil && e.SubjectType != *filters.SubjectType {
			continue
		}
		if filters.SubjectID != nil && e.SubjectID != *filters.SubjectID {
			continue
		}
		if filters.Action != nil && e.Action != *filters.Action {
			continue
		}
		if filters.StartTime != nil && e.CreatedAt.Before(*filters.StartTime) {
			continue
		}
		if filters.EndTime != nil && e.CreatedAt.After(*filters.EndTime) {
			continue
		}
		c := *e
		all = append(all, &c)
	}
	return paginate(all, limit, offset), int64(len(all)), nil
}
