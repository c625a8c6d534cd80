package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sannu-sannu/sannu-server/internal/apperrors"
	"github.com/sannu-sannu/sannu-server/internal/models"
)

func full(amount, paid int64) PledgeInput {
	return PledgeInput{
		Amount:      decimal.NewFromInt(amount),
		PaymentType: models.PaymentFull,
		PaidAmount:  decimal.NewFromInt(paid),
	}
}

func TestPledge(t *testing.T) {
	e := newTestEnv(t)
	p := e.createProject(t, 600, 400)
	donor := e.newUser(t, "donor@example.com")

	_, err := e.contributions.Pledge(e.ctx, p.ID, donor, full(100, 0))
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Equal(t, "This project is not accepting contributions.", err.Error())

	_, err = e.projects.ActivateProject(e.ctx, p.ID, e.creator)
	require.NoError(t, err)

	c, err := e.contributions.Pledge(e.ctx, p.ID, donor, full(300, 100))
	require.NoError(t, err)
	assert.Equal(t, models.ContributionActive, c.Status)
	assert.Equal(t, e.tenant, c.TenantID)

	c, err = e.contributions.Pledge(e.ctx, p.ID, donor, full(200, 200))
	require.NoError(t, err)
	assert.Equal(t, models.ContributionCompleted, c.Status)

	stats, err := e.projects.GetProjectStatistics(e.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalContributors)
	assert.True(t, decimal.NewFromInt(300).Equal(stats.TotalRaised))

	// the first pledge froze the total
	total := decimal.NewFromInt(5000)
	_, err = e.projects.UpdateProject(e.ctx, p.ID, UpdateProjectInput{TotalAmount: &total}, e.creator)
	assert.True(t, apperrors.IsKind(err, apperrors.KindIntegrityGuard))
}

func TestPledgeInvalidatesCachedStatistics(t *testing.T) {
	e := newTestEnv(t)
	p := e.createProject(t, 100)
	_, err := e.projects.ActivateProject(e.ctx, p.ID, e.creator)
	require.NoError(t, err)

	before, err := e.projects.GetProjectStatistics(e.ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, before.TotalContributors)

	_, err = e.contributions.Pledge(e.ctx, p.ID, e.newUser(t, "donor@example.com"), full(50, 50))
	require.NoError(t, err)

	after, err := e.projects.GetProjectStatistics(e.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.TotalContributors)
	assert.Equal(t, "50.00", after.CompletionPercentage.StringFixed(2))
}

func TestPledgeRules(t *testing.T) {
	e := newTestEnv(t)

	in := e.projectInput(1000)
	minimum := decimal.NewFromInt(100)
	limit := 1
	deadline := e.now.Add(10 * 24 * time.Hour)
	in.MinimumContribution = &minimum
	in.MaxContributors = &limit
	in.RegistrationDeadline = &deadline
	p, err := e.projects.CreateProject(e.ctx, in, e.tenant, e.creator)
	require.NoError(t, err)
	_, err = e.projects.ActivateProject(e.ctx, p.ID, e.creator)
	require.NoError(t, err)

	alice, bob := e.newUser(t, "alice@example.com"), e.newUser(t, "bob@example.com")

	cases := []struct {
		name  string
		user  func() PledgeInput
		field string
	}{
		{"below minimum", func() PledgeInput { return full(50, 0) }, "amount"},
		{"above total", func() PledgeInput { return full(1500, 0) }, "amount"},
		{"overpaid", func() PledgeInput { return full(200, 300) }, "paid_amount"},
		{"installments not offered", func() PledgeInput {
			in := full(200, 0)
			in.PaymentType = models.PaymentInstallments
			return in
		}, "payment_type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.contributions.Pledge(e.ctx, p.ID, alice, tc.user())
			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.KindValidation, appErr.Kind)
			assert.Equal(t, tc.field, appErr.Field)
		})
	}

	_, err = e.contributions.Pledge(e.ctx, p.ID, e.creator, full(200, 0))
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	_, err = e.contributions.Pledge(e.ctx, p.ID, alice, full(200, 0))
	require.NoError(t, err)
	_, err = e.contributions.Pledge(e.ctx, p.ID, bob, full(200, 0))
	require.Error(t, err)
	assert.Equal(t, "This project has reached its maximum number of contributors.", err.Error())

	e.now = deadline.Add(time.Hour)
	_, err = e.contributions.Pledge(e.ctx, p.ID, alice, full(200, 0))
	require.Error(t, err)
	assert.Equal(t, "Registration for this project has closed.", err.Error())
}

func TestInvitations(t *testing.T) {
	e := newTestEnv(t)
	p := e.createProject(t, 100)
	guest, stranger := e.newUser(t, "guest@example.com"), e.newUser(t, "stranger@example.com")

	inv, err := e.projects.InviteUser(e.ctx, p.ID, guest, e.creator)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, inv.Status)

	accepted, err := e.store.HasAcceptedInvitation(e.ctx, p.ID, guest)
	require.NoError(t, err)
	assert.False(t, accepted)

	_, err = e.projects.AcceptInvitation(e.ctx, inv.ID, stranger)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	inv, err = e.projects.AcceptInvitation(e.ctx, inv.ID, guest)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, inv.Status)
	require.NotNil(t, inv.AcceptedAt)

	accepted, err = e.store.HasAcceptedInvitation(e.ctx, p.ID, guest)
	require.NoError(t, err)
	assert.True(t, accepted)

	_, err = e.projects.AcceptInvitation(e.ctx, inv.ID, guest)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}
