package policy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sannu-sannu/sannu-server/internal/apperrors"
	"github.com/sannu-sannu/sannu-server/internal/models"
)

type fixture struct {
	tenant   uuid.UUID
	creator  Subject
	manager  Subject
	pm       Subject
	member   Subject
	admin    Subject
	system   Subject
	outsider Subject
}

func newFixture() fixture {
	tenant := uuid.New()
	user := func(roles map[uuid.UUID]models.TenantRole) Subject {
		return Subject{UserID: uuid.New(), Authenticated: true, Roles: roles}
	}
	return fixture{
		tenant:   tenant,
		creator:  user(map[uuid.UUID]models.TenantRole{tenant: models.RoleContributor}),
		manager:  user(nil),
		pm:       user(map[uuid.UUID]models.TenantRole{tenant: models.RoleProjectManager}),
		member:   user(map[uuid.UUID]models.TenantRole{tenant: models.RoleContributor}),
		admin:    user(map[uuid.UUID]models.TenantRole{tenant: models.RoleTenantAdmin}),
		system:   Subject{UserID: uuid.New(), Authenticated: true, SystemAdmin: true},
		outsider: user(map[uuid.UUID]models.TenantRole{uuid.New(): models.RoleTenantAdmin}),
	}
}

func (f fixture) project(status models.ProjectStatus, vis models.ProjectVisibility) *models.Project {
	return &models.Project{
		TenantModel: models.TenantModel{BaseModel: models.BaseModel{ID: uuid.New()}, TenantID: f.tenant},
		Status:      status,
		Visibility:  vis,
		TotalAmount: decimal.NewFromInt(1000),
		CreatedBy:   f.creator.UserID,
		ManagedBy:   []uuid.UUID{f.manager.UserID},
	}
}

func TestVisibilityRules(t *testing.T) {
	f := newFixture()

	cases := []struct {
		name  string
		vis   models.ProjectVisibility
		sub   Subject
		facts ProjectFacts
		want  bool
	}{
		{"public anonymous", models.VisibilityPublic, Anonymous(), ProjectFacts{}, true},
		{"public outsider", models.VisibilityPublic, f.outsider, ProjectFacts{}, true},
		{"private project manager", models.VisibilityPrivate, f.pm, ProjectFacts{}, true},
		{"private member", models.VisibilityPrivate, f.member, ProjectFacts{}, true},
		{"private outsider", models.VisibilityPrivate, f.outsider, ProjectFacts{}, false},
		{"private anonymous", models.VisibilityPrivate, Anonymous(), ProjectFacts{}, false},
		{"invite only tenant admin", models.VisibilityInviteOnly, f.admin, ProjectFacts{}, true},
		{"invite only member", models.VisibilityInviteOnly, f.member, ProjectFacts{}, false},
		{"invite only accepted", models.VisibilityInviteOnly, f.outsider, ProjectFacts{InvitationAccepted: true}, true},
		{"invite only managed_by", models.VisibilityInviteOnly, f.manager, ProjectFacts{}, true},
		{"invite only system", models.VisibilityInviteOnly, f.system, ProjectFacts{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := f.project(models.ProjectStatusActive, tc.vis)
			assert.Equal(t, tc.want, CanProject(tc.sub, ActionView, p, tc.facts))
		})
	}
}

func TestLifecycleStatePreconditions(t *testing.T) {
	f := newFixture()

	cases := []struct {
		action Action
		status models.ProjectStatus
		want   bool
	}{
		{ActionActivate, models.ProjectStatusDraft, true},
		{ActionActivate, models.ProjectStatusPaused, false},
		{ActionPause, models.ProjectStatusActive, true},
		{ActionPause, models.ProjectStatusDraft, false},
		{ActionResume, models.ProjectStatusPaused, true},
		{ActionResume, models.ProjectStatusActive, false},
		{ActionComplete, models.ProjectStatusActive, true},
		{ActionComplete, models.ProjectStatusPaused, true},
		{ActionComplete, models.ProjectStatusDraft, false},
		{ActionCancel, models.ProjectStatusDraft, true},
		{ActionCancel, models.ProjectStatusCompleted, false},
		{ActionCancel, models.ProjectStatusCancelled, false},
	}
	for _, tc := range cases {
		p := f.project(tc.status, models.VisibilityPublic)
		for _, sub := range []Subject{f.creator, f.manager, f.pm, f.admin} {
			assert.Equal(t, tc.want, CanProject(sub, tc.action, p, ProjectFacts{}), "%s on %s", tc.action, tc.status)
		}
		assert.False(t, CanProject(f.member, tc.action, p, ProjectFacts{}), "member %s on %s", tc.action, tc.status)
		assert.True(t, CanProject(f.system, tc.action, p, ProjectFacts{}), "system %s on %s", tc.action, tc.status)
	}
}

func TestManagerRoleIsTenantBound(t *testing.T) {
	f := newFixture()
	p := f.project(models.ProjectStatusDraft, models.VisibilityPrivate)

	assert.False(t, CanProject(f.outsider, ActionUpdate, p, ProjectFacts{}))
	assert.True(t, CanProject(f.admin, ActionUpdate, p, ProjectFacts{}))
}

func TestFinancialGuard(t *testing.T) {
	f := newFixture()
	p := f.project(models.ProjectStatusActive, models.VisibilityPublic)
	withMoney := ProjectFacts{HasContributions: true}

	for _, action := range []Action{ActionDelete, ActionManageProducts} {
		assert.True(t, CanProject(f.creator, action, p, ProjectFacts{}), action)
		assert.False(t, CanProject(f.creator, action, p, withMoney), action)
		assert.False(t, CanProject(f.pm, action, p, withMoney), action)
		assert.True(t, CanProject(f.system, action, p, withMoney), action)
	}

	assert.True(t, CanProject(f.creator, ActionUpdate, p, withMoney))
}

func TestForceDeleteSystemOnly(t *testing.T) {
	f := newFixture()
	p := f.project(models.ProjectStatusActive, models.VisibilityPublic)

	assert.False(t, CanProject(f.creator, ActionForceDelete, p, ProjectFacts{}))
	assert.False(t, CanProject(f.admin, ActionForceDelete, p, ProjectFacts{}))
	assert.True(t, CanProject(f.system, ActionForceDelete, p, ProjectFacts{HasContributions: true}))
}

func TestContributeRules(t *testing.T) {
	f := newFixture()
	active := f.project(models.ProjectStatusActive, models.VisibilityPublic)

	assert.True(t, CanProject(f.outsider, ActionContribute, active, ProjectFacts{}))
	assert.True(t, CanProject(f.manager, ActionContribute, active, ProjectFacts{}))
	assert.False(t, CanProject(Anonymous(), ActionContribute, active, ProjectFacts{}))
	assert.False(t, CanProject(f.creator, ActionContribute, active, ProjectFacts{}))

	paused := f.project(models.ProjectStatusPaused, models.VisibilityPublic)
	assert.False(t, CanProject(f.outsider, ActionContribute, paused, ProjectFacts{}))
	assert.False(t, CanProject(f.system, ActionContribute, paused, ProjectFacts{}))

	capped := f.project(models.ProjectStatusActive, models.VisibilityPublic)
	limit := 2
	capped.MaxContributors = &limit
	assert.True(t, CanProject(f.outsider, ActionContribute, capped, ProjectFacts{Contributors: 1}))
	assert.False(t, CanProject(f.outsider, ActionContribute, capped, ProjectFacts{Contributors: 2}))
	assert.False(t, CanProject(f.system, ActionContribute, capped, ProjectFacts{Contributors: 2}))

	private := f.project(models.ProjectStatusActive, models.VisibilityPrivate)
	assert.False(t, CanProject(f.outsider, ActionContribute, private, ProjectFacts{}))
	assert.True(t, CanProject(f.member, ActionContribute, private, ProjectFacts{}))
}

func TestTenantAndUserActions(t *testing.T) {
	f := newFixture()

	assert.True(t, CanTenant(f.system, ActionManageTenant, f.tenant))
	assert.False(t, CanTenant(f.admin, ActionManageTenant, f.tenant))
	assert.True(t, CanTenant(f.admin, ActionAssignRole, f.tenant))
	assert.False(t, CanTenant(f.outsider, ActionAssignRole, f.tenant))
	assert.True(t, CanTenant(f.pm, ActionCreateProject, f.tenant))
	assert.False(t, CanTenant(f.member, ActionCreateProject, f.tenant))
	assert.False(t, CanTenant(Anonymous(), ActionCreateProject, f.tenant))

	other := uuid.New()
	assert.True(t, CanUser(f.system, ActionAssignSystemRole, other))
	assert.False(t, CanUser(f.system, ActionAssignSystemRole, f.system.UserID))
	assert.True(t, CanUser(f.system, ActionDeleteUser, other))
	assert.False(t, CanUser(f.system, ActionDeleteUser, f.system.UserID))
	assert.False(t, CanUser(f.admin, ActionDeleteUser, other))
}

func TestNewSubjectSkipsInactiveRoles(t *testing.T) {
	user := &models.User{ID: uuid.New(), IsActive: true, Role: models.GlobalRoleContributor}
	active, inactive := uuid.New(), uuid.New()

	sub := NewSubject(user, []*models.UserTenantRole{
		{UserID: user.ID, TenantID: active, Role: models.RoleProjectManager, IsActive: true},
		{UserID: user.ID, TenantID: inactive, Role: models.RoleTenantAdmin, IsActive: false},
	})

	assert.True(t, sub.IsMemberOf(active))
	assert.False(t, sub.IsMemberOf(inactive))
	assert.False(t, sub.SystemAdmin)

	assert.False(t, NewSubject(&models.User{ID: uuid.New()}, nil).Authenticated)
}

type fakeFacts struct {
	contributions int64
	distinct      int
	accepted      bool
	calls         int
}

func (f *fakeFacts) CountContributions(context.Context, uuid.UUID) (int64, error) {
	f.calls++
	return f.contributions, nil
}

func (f *fakeFacts) GetContributionStats(context.Context, uuid.UUID) (*models.ContributionStats, error) {
	f.calls++
	return &models.ContributionStats{DistinctUsers: f.distinct}, nil
}

func (f *fakeFacts) HasAcceptedInvitation(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	f.calls++
	return f.accepted, nil
}

func TestGateAuthorizeProject(t *testing.T) {
	f := newFixture()
	facts := &fakeFacts{contributions: 1}
	gate := NewGate(facts)
	p := f.project(models.ProjectStatusDraft, models.VisibilityPublic)

	err := gate.AuthorizeProject(context.Background(), f.creator, ActionDelete, p)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	require.NoError(t, gate.AuthorizeProject(context.Background(), f.creator, ActionUpdate, p))
}

func TestGateLoadsOnlyNeededFacts(t *testing.T) {
	f := newFixture()
	facts := &fakeFacts{accepted: true}
	gate := NewGate(facts)

	public := f.project(models.ProjectStatusActive, models.VisibilityPublic)
	require.NoError(t, gate.AuthorizeProject(context.Background(), f.outsider, ActionView, public))
	assert.Zero(t, facts.calls)

	invite := f.project(models.ProjectStatusActive, models.VisibilityInviteOnly)
	require.NoError(t, gate.AuthorizeProject(context.Background(), f.outsider, ActionView, invite))
	assert.Equal(t, 1, facts.calls)
}

func TestViewerMatchesViewRules(t *testing.T) {
	f := newFixture()
	subjects := map[string]Subject{
		"anonymous": Anonymous(),
		"creator":   f.creator,
		"manager":   f.manager,
		"pm":        f.pm,
		"member":    f.member,
		"admin":     f.admin,
		"outsider":  f.outsider,
	}
	visibilities := []models.ProjectVisibility{
		models.VisibilityPublic, models.VisibilityPrivate, models.VisibilityInviteOnly,
	}

	for name, sub := range subjects {
		for _, vis := range visibilities {
			for _, accepted := range []bool{false, true} {
				p := f.project(models.ProjectStatusActive, vis)
				want := CanProject(sub, ActionView, p, ProjectFacts{InvitationAccepted: accepted})
				got := sub.Viewer().Sees(p, accepted)
				assert.Equal(t, want, got, "%s on %s project, invitation accepted %v", name, vis, accepted)
			}
		}
	}

	assert.Nil(t, f.system.Viewer())
}
