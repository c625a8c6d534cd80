package service

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/notify"
	"github.com/sannu-sannu/sannu-server/internal/storage"
	"github.com/sannu-sannu/sannu-server/internal/tenancy"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type fakeImages struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
}

func newFakeImages() *fakeImages {
	return &fakeImages{files: map[string][]byte{}}
}

func (f *fakeImages) Put(ctx context.Context, dir string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ext := ".bin"
	if http.DetectContentType(data) == "image/png" {
		ext = ".png"
	}
	p := path.Join(dir, uuid.NewString()+ext)
	f.files[p] = data
	return p, nil
}

func (f *fakeImages) Exists(ctx context.Context, p string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[p]
	return ok, nil
}

func (f *fakeImages) Delete(ctx context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, p)
	f.deleted = append(f.deleted, p)
	return nil
}

func (f *fakeImages) URL(p string) string {
	return "https://img.test/" + p
}

func (f *fakeImages) List(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.files))
	for p := range f.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) templates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, n := range r.sent {
		out[i] = n.Template
	}
	return out
}

type mapCache struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.ProjectStatistics
}

func (c *mapCache) Get(ctx context.Context, id uuid.UUID) (*models.ProjectStatistics, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.items[id]
	return s, ok, nil
}

func (c *mapCache) Set(ctx context.Context, s *models.ProjectStatistics) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[s.ProjectID] = s
	return nil
}

func (c *mapCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	return nil
}

type testEnv struct {
	now      time.Time
	store    *storage.MemoryStore
	images   *fakeImages
	notifier *recordingNotifier
	cache    *mapCache

	projects      *ProjectService
	products      *ProductService
	contributions *ContributionService
	tenants       *TenantService
	users         *UserService

	tenant  uuid.UUID
	creator uuid.UUID
	ctx     context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	e := &testEnv{
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		store:    storage.NewMemoryStore(),
		images:   newFakeImages(),
		notifier: &recordingNotifier{},
		cache:    &mapCache{items: map[uuid.UUID]*models.ProjectStatistics{}},
	}
	opts := Options{
		Store:         e.store,
		Images:        e.images,
		Cache:         e.cache,
		Notifier:      e.notifier,
		Clock:         func() time.Time { return e.now },
		ImageMaxBytes: 1024,
	}
	e.projects = NewProjectService(opts)
	e.products = NewProductService(opts)
	e.contributions = NewContributionService(opts)
	e.tenants = NewTenantService(opts)
	e.users = NewUserService(opts)

	tenant := &models.Tenant{Name: "Lagos Cooperative", Slug: "lagos-coop"}
	require.NoError(t, e.store.CreateTenant(context.Background(), tenant))
	e.tenant = tenant.ID
	e.creator = e.newUser(t, "creator@example.com")
	e.ctx = tenancy.WithTenant(context.Background(), e.tenant)
	return e
}

func (e *testEnv) newUser(t *testing.T, email string) uuid.UUID {
	t.Helper()
	u := &models.User{
		Email:     email,
		FirstName: "Test",
		IsActive:  true,
		Settings:  models.Variables{"password": "correct horse battery"},
	}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u.ID
}

func (e *testEnv) projectInput(prices ...int64) CreateProjectInput {
	in := CreateProjectInput{
		Name:           "Community Water Project",
		Description:    "Boreholes for the north district",
		Visibility:     models.VisibilityPublic,
		PaymentOptions: []models.PaymentOption{models.PaymentFull},
		StartDate:      e.now.Add(24 * time.Hour),
		EndDate:        e.now.Add(30 * 24 * time.Hour),
	}
	for i, p := range prices {
		in.Products = append(in.Products, ProductInput{
			Name:  fmt.Sprintf("Item %c", 'A'+i),
			Price: decimal.NewFromInt(p),
		})
	}
	return in
}

func (e *testEnv) createProject(t *testing.T, prices ...int64) *models.Project {
	t.Helper()
	p, err := e.projects.CreateProject(e.ctx, e.projectInput(prices...), e.tenant, e.creator)
	require.NoError(t, err)
	return p
}

// setStatus forces a status, bypassing the lifecycle rules.
func (e *testEnv) setStatus(t *testing.T, id uuid.UUID, status models.ProjectStatus) {
	t.Helper()
	p, err := e.store.GetProject(e.ctx, id)
	require.NoError(t, err)
	p.Status = status
	require.NoError(t, e.store.UpdateProject(e.ctx, p))
}

func (e *testEnv) contribute(t *testing.T, projectID, userID uuid.UUID, paid int64, status models.ContributionStatus) {
	t.Helper()
	require.NoError(t, e.store.CreateContribution(e.ctx, &models.Contribution{
		ProjectID:      projectID,
		UserID:         userID,
		PaymentType:    models.PaymentFull,
		TotalCommitted: decimal.NewFromInt(paid),
		TotalPaid:      decimal.NewFromInt(paid),
		Status:         status,
	}))
}

func (e *testEnv) project(t *testing.T, id uuid.UUID) *models.Project {
	t.Helper()
	p, err := e.store.GetProject(e.ctx, id)
	require.NoError(t, err)
	return p
}
