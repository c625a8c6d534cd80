package policy

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sannu-sannu/sannu-server/internal/apperrors"
	"github.com/sannu-sannu/sannu-server/internal/models"
)

// FactSource loads the facts project rules depend on. storage.Store satisfies it.
type FactSource interface {
	CountContributions(ctx context.Context, projectID uuid.UUID) (int64, error)
	GetContributionStats(ctx context.Context, projectID uuid.UUID) (*models.ContributionStats, error)
	HasAcceptedInvitation(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
}

// Gate evaluates policies and turns denials into forbidden errors.
type Gate struct {
	facts FactSource
}

// NewGate creates a gate backed by facts
func NewGate(facts FactSource) *Gate {
	return &Gate{facts: facts}
}

// ProjectFacts loads only the facts that action needs.
func (g *Gate) ProjectFacts(ctx context.Context, sub Subject, action Action, p *models.Project) (ProjectFacts, error) {
	var facts ProjectFacts

	switch action {
	case ActionDelete, ActionManageProducts:
		if !sub.SystemAdmin {
			n, err := g.facts.CountContributions(ctx, p.ID)
			if err != nil {
				return facts, fmt.Errorf("count contributions: %w", err)
			}
			facts.HasContributions = n > 0
		}
	case ActionContribute:
		if p.MaxContributors != nil {
			stats, err := g.facts.GetContributionStats(ctx, p.ID)
			if err != nil {
				return facts, fmt.Errorf("contribution stats: %w", err)
			}
			facts.Contributors = stats.DistinctUsers
		}
	}

	if (action == ActionView || action == ActionContribute) &&
		p.Visibility == models.VisibilityInviteOnly && sub.Authenticated && !sub.SystemAdmin {
		ok, err := g.facts.HasAcceptedInvitation(ctx, p.ID, sub.UserID)
		if err != nil {
			return facts, fmt.Errorf("invitation lookup: %w", err)
		}
		facts.InvitationAccepted = ok
	}

	return facts, nil
}

// AuthorizeProject returns a forbidden error unless sub may perform action on p.
func (g *Gate) AuthorizeProject(ctx context.Context, sub Subject, action Action, p *models.Project) error {
	facts, err := g.ProjectFacts(ctx, sub, action, p)
	if err != nil {
		return err
	}
	if !CanProject(sub, action, p, facts) {
		return apperrors.Forbidden("")
	}
	return nil
}

// AuthorizeTenant returns a forbidden error unless sub may act on tenantID.
func (g *Gate) AuthorizeTenant(sub Subject, action Action, tenantID uuid.UUID) error {
	if !CanTenant(sub, action, tenantID) {
		return apperrors.Forbidden("")
	}
	return nil
}

// AuthorizeUser returns a forbidden error unless sub may act on target.
func (g *Gate) AuthorizeUser(sub Subject, action Action, target uuid.UUID) error {
	if !CanUser(sub, action, target) {
		return apperrors.Forbidden("")
	}
	return nil
}
