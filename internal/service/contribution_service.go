package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sannu-sannu/sannu-server/internal/apperrors"
	"github.com/sannu-sannu/sannu-server/internal/audit"
	"github.com/sannu-sannu/sannu-server/internal/metrics"
	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/storage"
)

// PledgeInput is a contributor's commitment to a project.
type PledgeInput struct {
	Amount      decimal.Decimal      `json:"amount" validate:"gt=0"`
	PaymentType models.PaymentOption `json:"payment_type" validate:"required,oneof=full installments"`
	PaidAmount  decimal.Decimal      `json:"paid_amount" validate:"gte=0"`
}

// ContributionService records pledges. Settlement is handled elsewhere.
type ContributionService struct {
	base
}

// NewContributionService creates a contribution service
func NewContributionService(opts Options) *ContributionService {
	return &ContributionService{base: newBase(opts)}
}

// Pledge records a contribution by userID against the project.
func (s *ContributionService) Pledge(ctx context.Context, projectID, userID uuid.UUID, in PledgeInput) (*models.Contribution, error) {
	var c *models.Contribution

	err := s.withTx(ctx, func(tx storage.Store) error {
		p, err := tx.GetProjectForUpdate(ctx, projectID)
		if err != nil {
			return translate(err, "project")
		}
		if err := s.checkPledge(ctx, tx, p, userID, in); err != nil {
			return err
		}

		c = &models.Contribution{
			TenantModel:    models.TenantModel{TenantID: p.TenantID},
			ProjectID:      p.ID,
			UserID:         userID,
			PaymentType:    in.PaymentType,
			TotalCommitted: in.Amount,
			TotalPaid:      in.PaidAmount,
			Status:         models.ContributionActive,
		}
		if in.PaidAmount.Equal(in.Amount) {
			c.Status = models.ContributionCompleted
		}
		if err := tx.CreateContribution(ctx, c); err != nil {
			return translate(err, "contribution")
		}

		return audit.Record(ctx, tx, audit.Entry{
			TenantID:    p.TenantID,
			ActorID:     userID,
			Action:      models.AuditContributionAdded,
			SubjectType: models.SubjectContribution,
			SubjectID:   c.ID,
			Description: "Contribution pledged",
			NewValues: models.Variables{
				"project_id":      p.ID.String(),
				"payment_type":    string(c.PaymentType),
				"total_committed": c.TotalCommitted.String(),
				"total_paid":      c.TotalPaid.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.ContributionsCreated.Inc()
	s.invalidate(ctx, projectID)

	log.Info().
		Str("project_id", projectID.String()).
		Str("user_id", userID.String()).
		Str("amount", in.Amount.String()).
		Msg("Contribution recorded")

	return c, nil
}

func (s *ContributionService) checkPledge(ctx context.Context, tx storage.Store, p *models.Project, userID uuid.UUID, in PledgeInput) error {
	if p.CreatedBy == userID {
		return apperrors.Forbidden("Project creators cannot contribute to their own project.")
	}
	if !p.Status.AcceptsContributions() {
		return apperrors.Validation("project", "This project is not accepting contributions.")
	}
	if d := p.RegistrationDeadline; d != nil && d.Before(s.now()) {
		return apperrors.Validation("project", "Registration for this project has closed.")
	}
	if !p.HasPaymentOption(in.PaymentType) {
		return apperrors.Validation("payment_type", "The selected payment type is not available for this project.")
	}

	if !in.Amount.IsPositive() {
		return apperrors.Validation("amount", "The amount must be greater than 0.")
	}
	if m := p.MinimumContribution; m != nil && in.Amount.LessThan(*m) {
		return apperrors.Validation("amount", fmt.Sprintf("The amount must be at least %s.", m.StringFixed(2)))
	}
	if p.TotalAmount.IsPositive() && in.Amount.GreaterThan(p.TotalAmount) {
		return apperrors.Validation("amount", fmt.Sprintf("The amount may not be greater than %s.", p.TotalAmount.StringFixed(2)))
	}
	if in.PaidAmount.IsNegative() || in.PaidAmount.GreaterThan(in.Amount) {
		return apperrors.Validation("paid_amount", "The paid amount must be between 0 and the amount.")
	}

	if p.MaxContributors != nil {
		stats, err := tx.GetContributionStats(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("contribution stats: %w", err)
		}
		if stats.DistinctUsers >= *p.MaxContributors {
			return apperrors.Validation("project", "This project has reached its maximum number of contributors.")
		}
	}
	return nil
}
