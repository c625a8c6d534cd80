package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sannu-sannu/sannu-server/internal/apperrors"
	"github.com/sannu-sannu/sannu-server/internal/audit"
	"github.com/sannu-sannu/sannu-server/internal/metrics"
	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/notify"
	"github.com/sannu-sannu/sannu-server/internal/storage"
	"github.com/sannu-sannu/sannu-server/internal/tenancy"
)

// ProductInput describes a product to add to a project.
type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

// CreateProjectInput carries the fields of a new project. When Products is
// non-empty the total amount is their price sum.
type CreateProjectInput struct {
	Name                    string                       `json:"name" validate:"required,max=255"`
	Description             string                       `json:"description" validate:"max=5000"`
	Visibility              models.ProjectVisibility     `json:"visibility" validate:"required,oneof=public private invite_only"`
	TotalAmount             decimal.Decimal              `json:"total_amount" validate:"gte=0"`
	MinimumContribution     *decimal.Decimal             `json:"minimum_contribution"`
	MaxContributors         *int                         `json:"max_contributors" validate:"omitempty,min=1"`
	PaymentOptions          []models.PaymentOption       `json:"payment_options" validate:"required,min=1,dive,oneof=full installments"`
	InstallmentFrequency    *models.InstallmentFrequency `json:"installment_frequency" validate:"omitempty,oneof=monthly quarterly custom"`
	CustomInstallmentMonths *int                         `json:"custom_installment_months"`
	StartDate               time.Time                    `json:"start_date" validate:"required"`
	EndDate                 time.Time                    `json:"end_date" validate:"required"`
	RegistrationDeadline    *time.Time                   `json:"registration_deadline"`
	ManagedBy               []uuid.UUID                  `json:"managed_by"`
	Settings                models.Variables             `json:"settings"`
	Products                []ProductInput               `json:"products"`
}

// UpdateProjectInput carries optional field changes. Nil leaves a field as is.
type UpdateProjectInput struct {
	Name                    *string                      `json:"name" validate:"omitempty,max=255"`
	Description             *string                      `json:"description" validate:"omitempty,max=5000"`
	Visibility              *models.ProjectVisibility    `json:"visibility" validate:"omitempty,oneof=public private invite_only"`
	TotalAmount             *decimal.Decimal             `json:"total_amount"`
	MinimumContribution     *decimal.Decimal             `json:"minimum_contribution"`
	MaxContributors         *int                         `json:"max_contributors" validate:"omitempty,min=1"`
	PaymentOptions          []models.PaymentOption       `json:"payment_options" validate:"omitempty,min=1,dive,oneof=full installments"`
	InstallmentFrequency    *models.InstallmentFrequency `json:"installment_frequency" validate:"omitempty,oneof=monthly quarterly custom"`
	CustomInstallmentMonths *int                         `json:"custom_installment_months"`
	StartDate               *time.Time                   `json:"start_date"`
	EndDate                 *time.Time                   `json:"end_date"`
	RegistrationDeadline    *time.Time                   `json:"registration_deadline"`
	ManagedBy               []uuid.UUID                  `json:"managed_by"`
	Settings                models.Variables             `json:"settings"`
}

// ProjectService runs the project lifecycle.
type ProjectService struct {
	base
}

// NewProjectService creates a project service
func NewProjectService(opts Options) *ProjectService {
	return &ProjectService{base: newBase(opts)}
}

// GetProject loads a project within the context's tenant scope.
func (s *ProjectService) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	return p, translate(err, "project")
}

// GetProjectBySlug loads a project by slug within the context's tenant scope.
func (s *ProjectService) GetProjectBySlug(ctx context.Context, slug string) (*models.Project, error) {
	p, err := s.store.GetProjectBySlug(ctx, slug)
	return p, translate(err, "project")
}

// ListProjects lists projects within the context's tenant scope.
func (s *ProjectService) ListProjects(ctx context.Context, filters storage.ProjectFilters, limit, offset int) ([]*models.Project, int64, error) {
	projects, total, err := s.store.ListProjects(ctx, filters, limit, offset)
	return projects, total, translate(err, "project")
}

// checkReservedSettings refuses client writes to the keys CancelProject owns.
func checkReservedSettings(settings models.Variables) error {
	for _, key := range []string{models.SettingCancellationReason, models.SettingCancelledBy, models.SettingCancelledAt} {
		if _, ok := settings[key]; ok {
			return apperrors.Validation("settings", fmt.Sprintf("Setting %q is managed by the cancel action.", key))
		}
	}
	return nil
}

// CreateProject creates a draft project, and its initial products, for tenantID.
func (s *ProjectService) CreateProject(ctx context.Context, in CreateProjectInput, tenantID, creator uuid.UUID) (*models.Project, error) {
	if err := checkReservedSettings(in.Settings); err != nil {
		return nil, err
	}

	p := &models.Project{
		TenantModel:             models.TenantModel{TenantID: tenantID},
		Name:                    in.Name,
		Description:             in.Description,
		Visibility:              in.Visibility,
		Status:                  models.ProjectStatusDraft,
		TotalAmount:             in.TotalAmount,
		MinimumContribution:     in.MinimumContribution,
		MaxContributors:         in.MaxContributors,
		PaymentOptions:          in.PaymentOptions,
		InstallmentFrequency:    in.InstallmentFrequency,
		CustomInstallmentMonths: in.CustomInstallmentMonths,
		StartDate:               in.StartDate,
		EndDate:                 in.EndDate,
		RegistrationDeadline:    in.RegistrationDeadline,
		CreatedBy:               creator,
		ManagedBy:               in.ManagedBy,
		Settings:                in.Settings.Clone(),
	}
	if p.Settings == nil {
		p.Settings = models.Variables{}
	}

	if len(in.Products) > 0 {
		total := decimal.Zero
		for _, prod := range in.Products {
			if err := validateProduct(prod.Name, prod.Price); err != nil {
				return nil, err
			}
			total = total.Add(prod.Price)
		}
		p.TotalAmount = total
	}
	if err := validateProject(p); err != nil {
		return nil, err
	}

	err := s.withTx(ctx, func(tx storage.Store) error {
		slug, err := uniqueProjectSlug(ctx, tx, p.Name)
		if err != nil {
			return err
		}
		p.Slug = slug

		if err := tx.CreateProject(ctx, p); err != nil {
			return translate(err, "project")
		}

		for i, item := range in.Products {
			prod := &models.Product{
				TenantModel: models.TenantModel{TenantID: p.TenantID},
				ProjectID:   p.ID,
				Name:        item.Name,
				Description: item.Description,
				Price:       item.Price,
				SortOrder:   i + 1,
			}
			if err := tx.CreateProduct(ctx, prod); err != nil {
				return translate(err, "product")
			}
		}

		return audit.Record(ctx, tx, audit.Entry{
			TenantID:    p.TenantID,
			ActorID:     creator,
			Action:      models.AuditProjectCreated,
			SubjectType: models.SubjectProject,
			SubjectID:   p.ID,
			Description: "Project created",
			NewValues:   projectValues(p),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("project_id", p.ID.String()).
		Str("tenant_id", p.TenantID.String()).
		Str("slug", p.Slug).
		Int("products", len(in.Products)).
		Msg("Project created")

	return p, nil
}

// UpdateProject applies in to the project. Protected fields are frozen once
// the project has contributions.
func (s *ProjectService) UpdateProject(ctx context.Context, projectID uuid.UUID, in UpdateProjectInput, actor uuid.UUID) (*models.Project, error) {
	if err := checkReservedSettings(in.Settings); err != nil {
		return nil, err
	}

	var p *models.Project

	err := s.withTx(ctx, func(tx storage.Store) error {
		var err error
		p, err = tx.GetProjectForUpdate(ctx, projectID)
		if err != nil {
			return translate(err, "project")
		}
		old := p.Clone()
		applyProjectUpdate(p, in)

		if changed := changedProtectedFields(old, p); len(changed) > 0 {
			n, err := tx.CountContributions(ctx, p.ID)
			if err != nil {
				return fmt.Errorf("count contributions: %w", err)
			}
			if n > 0 {
				return protectedFieldError(changed[0])
			}
		}
		if err := validateProject(p); err != nil {
			return err
		}

		if err := tx.UpdateProject(ctx, p); err != nil {
			return translate(err, "project")
		}

		before, after := diffValues(projectValues(old), projectValues(p))
		return audit.Record(ctx, tx, audit.Entry{
			TenantID:    p.TenantID,
			ActorID:     actor,
			Action:      models.AuditProjectUpdated,
			SubjectType: models.SubjectProject,
			SubjectID:   p.ID,
			Description: "Project updated",
			OldValues:   before,
			NewValues:   after,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, p.ID)
	return p, nil
}

func applyProjectUpdate(p *models.Project, in UpdateProjectInput) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Visibility != nil {
		p.Visibility = *in.Visibility
	}
	if in.TotalAmount != nil {
		p.TotalAmount = *in.TotalAmount
	}
	if in.MinimumContribution != nil {
		v := *in.MinimumContribution
		p.MinimumContribution = &v
	}
	if in.MaxContributors != nil {
		v := *in.MaxContributors
		p.MaxContributors = &v
	}
	if in.PaymentOptions != nil {
		p.PaymentOptions = append([]models.PaymentOption(nil), in.PaymentOptions...)
	}
	if in.InstallmentFrequency != nil {
		v := *in.InstallmentFrequency
		p.InstallmentFrequency = &v
	}
	if in.CustomInstallmentMonths != nil {
		v := *in.CustomInstallmentMonths
		p.CustomInstallmentMonths = &v
	}
	if in.StartDate != nil {
		p.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		p.EndDate = *in.EndDate
	}
	if in.RegistrationDeadline != nil {
		v := *in.RegistrationDeadline
		p.RegistrationDeadline = &v
	}
	if in.ManagedBy != nil {
		p.ManagedBy = append([]uuid.UUID(nil), in.ManagedBy...)
	}
	if len(in.Settings) > 0 {
		if p.Settings == nil {
			p.Settings = models.Variables{}
		}
		for k, v := range in.Settings {
			p.Settings[k] = v
		}
	}
}

// DeleteProject removes a project without contributions, its products and
// their images. Images are deleted only after the rows are gone.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID uuid.UUID, actor uuid.UUID) error {
	return s.deleteProject(ctx, projectID, actor, false)
}

// ForceDeleteProject removes a project even when it has contributions.
// Only system actors may call it; the policy layer enforces that.
func (s *ProjectService) ForceDeleteProject(ctx context.Context, projectID uuid.UUID, actor uuid.UUID) error {
	return s.deleteProject(ctx, projectID, actor, true)
}

func (s *ProjectService) deleteProject(ctx context.Context, projectID, actor uuid.UUID, force bool) error {
	var (
		p      *models.Project
		images []string
	)

	err := s.withTx(ctx, func(tx storage.Store) error {
		var err error
		p, err = tx.GetProjectForUpdate(ctx, projectID)
		if err != nil {
			return translate(err, "project")
		}

		contributions, err := tx.CountContributions(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("count contributions: %w", err)
		}
		if contributions > 0 && !force {
			return apperrors.IntegrityGuard("project", "Cannot delete project with existing contributions")
		}

		products, err := tx.ListProducts(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		for _, prod := range products {
			if prod.ImagePath != "" {
				images = append(images, prod.ImagePath)
			}
		}

		if force && contributions > 0 {
			if _, err := tx.DeleteContributionsByProject(ctx, p.ID); err != nil {
				return fmt.Errorf("delete contributions: %w", err)
			}
		}
		if _, err := tx.DeleteProductsByProject(ctx, p.ID); err != nil {
			return fmt.Errorf("delete products: %w", err)
		}
		if err := tx.DeleteProject(ctx, p.ID); err != nil {
			return translate(err, "project")
		}

		action := models.AuditProjectDeleted
		if force {
			action = models.AuditProjectForceDeleted
		}
		return audit.Record(ctx, tx, audit.Entry{
			TenantID:    p.TenantID,
			ActorID:     actor,
			Action:      action,
			SubjectType: models.SubjectProject,
			SubjectID:   p.ID,
			Description: "Project deleted",
			OldValues:   projectValues(p),
			Context: models.Variables{
				"products":      len(products),
				"contributions": contributions,
			},
		})
	})
	if err != nil {
		return err
	}

	s.deleteImages(ctx, images)
	s.invalidate(ctx, p.ID)

	log.Info().
		Str("project_id", p.ID.String()).
		Bool("force", force).
		Int("images", len(images)).
		Msg("Project deleted")

	return nil
}

// deleteImages removes stored files, logging failures.
func (b *base) deleteImages(ctx context.Context, paths []string) {
	if b.images == nil {
		return
	}
	for _, path := range paths {
		if err := b.images.Delete(ctx, path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to delete image")
		}
	}
}

// CalculateProjectTotal sums the current prices of the project's products.
func (s *ProjectService) CalculateProjectTotal(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return decimal.Zero, translate(err, "project")
	}
	total, err := s.store.SumProductPrices(ctx, projectID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum product prices: %w", err)
	}
	return total, nil
}

// transition describes one lifecycle move.
type transition struct {
	verb  string
	from  []models.ProjectStatus
	to    models.ProjectStatus
	ready bool
}

var (
	activateTransition = transition{
		verb: "activate", from: []models.ProjectStatus{models.ProjectStatusDraft},
		to: models.ProjectStatusActive, ready: true,
	}
	pauseTransition = transition{
		verb: "pause", from: []models.ProjectStatus{models.ProjectStatusActive},
		to: models.ProjectStatusPaused,
	}
	resumeTransition = transition{
		verb: "resume", from: []models.ProjectStatus{models.ProjectStatusPaused},
		to: models.ProjectStatusActive, ready: true,
	}
	completeTransition = transition{
		verb: "complete", from: []models.ProjectStatus{models.ProjectStatusActive, models.ProjectStatusPaused},
		to: models.ProjectStatusCompleted,
	}
	cancelTransition = transition{
		verb: "cancel", from: []models.ProjectStatus{models.ProjectStatusDraft, models.ProjectStatusActive, models.ProjectStatusPaused},
		to: models.ProjectStatusCancelled,
	}
)

func (t transition) allowedFrom(status models.ProjectStatus) bool {
	for _, s := range t.from {
		if s == status {
			return true
		}
	}
	return false
}

// ActivateProject moves a ready draft project to active.
func (s *ProjectService) ActivateProject(ctx context.Context, projectID, actor uuid.UUID) (*models.Project, error) {
	return s.runTransition(ctx, projectID, actor, activateTransition, nil)
}

// PauseProject moves an active project to paused.
func (s *ProjectService) PauseProject(ctx context.Context, projectID, actor uuid.UUID) (*models.Project, error) {
	return s.runTransition(ctx, projectID, actor, pauseTransition, nil)
}

// ResumeProject moves a paused project back to active after re-checking readiness.
func (s *ProjectService) ResumeProject(ctx context.Context, projectID, actor uuid.UUID) (*models.Project, error) {
	return s.runTransition(ctx, projectID, actor, resumeTransition, nil)
}

// CompleteProject closes an active or paused project.
func (s *ProjectService) CompleteProject(ctx context.Context, projectID, actor uuid.UUID) (*models.Project, error) {
	return s.runTransition(ctx, projectID, actor, completeTransition, nil)
}

// CancelProject cancels a project that has not reached a final state and
// records who cancelled it and why.
func (s *ProjectService) CancelProject(ctx context.Context, projectID, actor uuid.UUID, reason string) (*models.Project, error) {
	return s.runTransition(ctx, projectID, actor, cancelTransition, func(p *models.Project, now time.Time) models.Variables {
		if p.Settings == nil {
			p.Settings = models.Variables{}
		}
		var cancelledBy interface{}
		if actor != uuid.Nil {
			cancelledBy = actor.String()
		}
		var r interface{}
		if reason != "" {
			r = reason
		}
		p.Settings[models.SettingCancellationReason] = r
		p.Settings[models.SettingCancelledBy] = cancelledBy
		p.Settings[models.SettingCancelledAt] = now.UTC().Format(time.RFC3339)
		return models.Variables{"reason": r}
	})
}

// runTransition loads the project for update, checks the move against both the
// method precondition and the status table, and persists it with an audit record.
func (s *ProjectService) runTransition(ctx context.Context, projectID, actor uuid.UUID, t transition,
	mutate func(p *models.Project, now time.Time) models.Variables) (*models.Project, error) {
	var (
		p    *models.Project
		from models.ProjectStatus
	)

	err := s.withTx(ctx, func(tx storage.Store) error {
		var err error
		p, err = tx.GetProjectForUpdate(ctx, projectID)
		if err != nil {
			return translate(err, "project")
		}
		from, err = s.applyTransition(ctx, tx, p, actor, t, mutate)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, p, from)
	return p, nil
}

func (s *ProjectService) applyTransition(ctx context.Context, tx storage.Store, p *models.Project, actor uuid.UUID,
	t transition, mutate func(p *models.Project, now time.Time) models.Variables) (models.ProjectStatus, error) {
	from := p.Status
	if !t.allowedFrom(from) || !from.CanTransitionTo(t.to) {
		return from, apperrors.InvalidTransition(from.Label(), t.to.Label())
	}

	now := s.now()
	if t.ready {
		if err := checkReady(ctx, tx, p, t.verb, now, true); err != nil {
			return from, err
		}
	}

	description, err := from.TransitionDescription(t.to)
	if err != nil {
		return from, err
	}

	p.Status = t.to
	var extra models.Variables
	if mutate != nil {
		extra = mutate(p, now)
	}

	if err := tx.UpdateProject(ctx, p); err != nil {
		return from, translate(err, "project")
	}

	return from, audit.Record(ctx, tx, audit.Entry{
		TenantID:    p.TenantID,
		ActorID:     actor,
		Action:      models.AuditProjectStatusChanged,
		SubjectType: models.SubjectProject,
		SubjectID:   p.ID,
		Description: description,
		OldValues:   models.Variables{"status": string(from)},
		NewValues:   models.Variables{"status": string(p.Status)},
		Context:     extra,
	})
}

// afterTransition runs the post-commit side effects of a status change.
func (s *ProjectService) afterTransition(ctx context.Context, p *models.Project, from models.ProjectStatus) {
	metrics.ProjectTransitions.WithLabelValues(string(from), string(p.Status)).Inc()
	s.invalidate(ctx, p.ID)

	var template string
	switch p.Status {
	case models.ProjectStatusActive:
		if from == models.ProjectStatusDraft {
			template = notify.TemplateProjectActivated
		}
	case models.ProjectStatusCompleted:
		template = notify.TemplateProjectCompleted
	case models.ProjectStatusCancelled:
		template = notify.TemplateProjectCancelled
	}
	if template != "" {
		notify.Send(ctx, s.notifier, template, map[string]interface{}{
			"project_id": p.ID.String(),
			"tenant_id":  p.TenantID.String(),
			"name":       p.Name,
			"slug":       p.Slug,
			"status":     string(p.Status),
		})
	}

	log.Info().
		Str("project_id", p.ID.String()).
		Str("from", string(from)).
		Str("to", string(p.Status)).
		Msg("Project status changed")
}

// GetProjectStatistics derives contribution statistics for a project.
func (s *ProjectService) GetProjectStatistics(ctx context.Context, projectID uuid.UUID) (*models.ProjectStatistics, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, translate(err, "project")
	}

	if cached, ok, err := s.cache.Get(ctx, projectID); err != nil {
		log.Warn().Err(err).Str("project_id", projectID.String()).Msg("Statistics cache read failed")
	} else if ok {
		fresh := *cached
		fresh.DaysRemaining = daysRemaining(p.EndDate, s.now())
		return &fresh, nil
	}

	contributions, err := s.store.GetContributionStats(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("contribution stats: %w", err)
	}

	stats := computeStatistics(p, contributions, s.now())
	if err := s.cache.Set(ctx, stats); err != nil {
		log.Warn().Err(err).Str("project_id", projectID.String()).Msg("Statistics cache write failed")
	}
	return stats, nil
}

var hundred = decimal.NewFromInt(100)

func computeStatistics(p *models.Project, c *models.ContributionStats, now time.Time) *models.ProjectStatistics {
	stats := &models.ProjectStatistics{
		ProjectID:            p.ID,
		TotalContributors:    c.DistinctUsers,
		TotalRaised:          c.TotalPaid,
		CompletionPercentage: decimal.Zero,
		AverageContribution:  decimal.Zero,
	}

	if p.TotalAmount.IsPositive() {
		pct := c.TotalPaid.Div(p.TotalAmount).Mul(hundred).Round(2)
		if pct.GreaterThan(hundred) {
			pct = hundred
		}
		stats.CompletionPercentage = pct
	}
	if c.DistinctUsers > 0 {
		stats.AverageContribution = c.TotalPaid.Div(decimal.NewFromInt(int64(c.DistinctUsers))).Round(2)
	}
	stats.DaysRemaining = daysRemaining(p.EndDate, now)
	return stats
}

// daysRemaining counts whole days until end; it is never negative.
func daysRemaining(end, now time.Time) int {
	if remaining := end.Sub(now); remaining > 0 {
		return int(remaining.Hours() / 24)
	}
	return 0
}

// UpdateProjectStatusByDate activates ready drafts whose start date passed,
// then completes active projects whose end date passed. Every candidate is
// re-loaded and re-checked in its own transaction. It returns how many
// projects changed.
func (s *ProjectService) UpdateProjectStatusByDate(ctx context.Context) (int, error) {
	ctx = tenancy.WithoutScope(ctx)
	changed := 0

	for _, step := range []sweepKind{sweepActivate, sweepComplete} {
		ids, err := s.sweepCandidates(ctx, step, s.now())
		if err != nil {
			return changed, err
		}
		for _, id := range ids {
			ok, err := s.sweepProject(ctx, id, step)
			if err != nil {
				log.Error().Err(err).
					Str("project_id", id.String()).
					Str("kind", string(step)).
					Msg("Sweep failed for project")
				continue
			}
			if ok {
				changed++
				metrics.SweepChanges.WithLabelValues(string(step)).Inc()
			}
		}
	}

	log.Info().Int("changed", changed).Msg("Project status sweep finished")
	return changed, nil
}

type sweepKind string

const (
	sweepActivate sweepKind = "activated"
	sweepComplete sweepKind = "completed"
)

func (s *ProjectService) sweepCandidates(ctx context.Context, kind sweepKind, now time.Time) ([]uuid.UUID, error) {
	filters := storage.ProjectFilters{}
	switch kind {
	case sweepActivate:
		status := models.ProjectStatusDraft
		filters.Status = &status
		filters.StartsBefore = &now
	case sweepComplete:
		status := models.ProjectStatusActive
		filters.Status = &status
		filters.EndsBefore = &now
	}

	projects, _, err := s.store.ListProjects(ctx, filters, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list %s candidates: %w", kind, err)
	}
	ids := make([]uuid.UUID, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	return ids, nil
}

// sweepProject re-validates one candidate against fresh state and moves it.
// It reports false when the project no longer qualifies.
func (s *ProjectService) sweepProject(ctx context.Context, projectID uuid.UUID, kind sweepKind) (bool, error) {
	var (
		p     *models.Project
		from  models.ProjectStatus
		moved bool
	)

	err := s.withTx(ctx, func(tx storage.Store) error {
		var err error
		p, err = tx.GetProjectForUpdate(ctx, projectID)
		if err != nil {
			return translate(err, "project")
		}
		now := s.now()

		var t transition
		switch kind {
		case sweepActivate:
			if p.Status != models.ProjectStatusDraft || p.StartDate.After(now) {
				return nil
			}
			// The end date is not checked here: a draft whose whole window
			// passed is still activated, and completed by the next step.
			if err := checkReady(ctx, tx, p, "activate", now, false); err != nil {
				if apperrors.IsKind(err, apperrors.KindValidation) {
					return nil
				}
				return err
			}
			t = activateTransition
			t.ready = false
		case sweepComplete:
			if p.Status != models.ProjectStatusActive || !p.HasEnded(now) {
				return nil
			}
			t = completeTransition
		default:
			return fmt.Errorf("unknown sweep kind %q", kind)
		}

		from, err = s.applyTransition(ctx, tx, p, uuid.Nil, t, nil)
		if err != nil {
			return err
		}
		moved = true
		return nil
	})
	if err != nil || !moved {
		return false, err
	}

	s.afterTransition(ctx, p, from)
	return true, nil
}
