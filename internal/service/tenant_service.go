package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sannu-sannu/sannu-server/internal/apperrors"
	"github.com/sannu-sannu/sannu-server/internal/audit"
	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/notify"
	"github.com/sannu-sannu/sannu-server/internal/storage"
)

// CreateTenantInput describes a new organization.
type CreateTenantInput struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Slug        string     `json:"slug" validate:"omitempty,slug"`
	Description string     `json:"description"`
	Application *uuid.UUID `json:"application_id"`
}

// TenantService administers organizations and their memberships.
type TenantService struct {
	base
}

// NewTenantService creates a tenant service
func NewTenantService(opts Options) *TenantService {
	return &TenantService{base: newBase(opts)}
}

// ResolveTenant returns the usable tenant with the given slug. Suspended
// tenants are forbidden and inactive ones are reported as missing.
func (s *TenantService) ResolveTenant(ctx context.Context, slug string) (*models.Tenant, error) {
	t, err := s.store.GetTenantBySlug(ctx, strings.ToLower(slug))
	if err != nil {
		return nil, translate(err, "tenant")
	}
	if t.Status == models.TenantStatusSuspended {
		return nil, apperrors.Forbidden("This organization has been suspended.")
	}
	if !t.IsUsable() {
		return nil, apperrors.NotFound("tenant")
	}
	return t, nil
}

// GetTenant loads a tenant by id
func (s *TenantService) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	t, err := s.store.GetTenant(ctx, id)
	return t, translate(err, "tenant")
}

// CreateTenant creates an active tenant. The slug defaults to the name's slug.
func (s *TenantService) CreateTenant(ctx context.Context, in CreateTenantInput, actor uuid.UUID) (*models.Tenant, error) {
	slug := in.Slug
	if slug == "" {
		slug = Slugify(in.Name)
	}
	if slug == "" {
		return nil, apperrors.Validation("slug", "The slug field is required.")
	}

	t := &models.Tenant{
		Name:          in.Name,
		Slug:          slug,
		Description:   in.Description,
		IsActive:      true,
		Status:        models.TenantStatusActive,
		ApplicationID: in.Application,
	}

	err := s.withTx(ctx, func(tx storage.Store) error {
		if err := tx.CreateTenant(ctx, t); err != nil {
			return translate(err, "tenant")
		}
		return audit.Record(ctx, tx, audit.Entry{
			TenantID:    t.ID,
			ActorID:     actor,
			Action:      models.AuditTenantCreated,
			SubjectType: models.SubjectTenant,
			SubjectID:   t.ID,
			Description: "Tenant created",
			NewValues:   models.Variables{"name": t.Name, "slug": t.Slug},
		})
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// SuspendTenant suspends a tenant and records who did it and why.
func (s *TenantService) SuspendTenant(ctx context.Context, tenantID, actor uuid.UUID, reason string) (*models.Tenant, error) {
	var t *models.Tenant

	err := s.withTx(ctx, func(tx storage.Store) error {
		var err error
		t, err = tx.GetTenant(ctx, tenantID)
		if err != nil {
			return translate(err, "tenant")
		}
		if t.Status == models.TenantStatusSuspended {
			return apperrors.Validation("status", "The organization is already suspended.")
		}

		old := string(t.Status)
		now := s.now()
		t.Status = models.TenantStatusSuspended
		t.IsActive = false
		t.SuspensionReason = reason
		t.SuspendedBy = &actor
		t.SuspendedAt = &now
		if err := tx.UpdateTenant(ctx, t); err != nil {
			return translate(err, "tenant")
		}

		return audit.Record(ctx, tx, audit.Entry{
			TenantID:    t.ID,
			ActorID:     actor,
			Action:      models.AuditTenantSuspended,
			SubjectType: models.SubjectTenant,
			SubjectID:   t.ID,
			Description: "Tenant suspended",
			OldValues:   models.Variables{"status": old},
			NewValues:   models.Variables{"status": string(t.Status), "reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}

	notify.Send(ctx, s.notifier, notify.TemplateTenantSuspended, map[string]interface{}{
		"tenant_id": t.ID.String(),
		"name":      t.Name,
		"reason":    reason,
	})
	log.Warn().Str("tenant_id", t.ID.String()).Str("reason", reason).Msg("Tenant suspended")
	return t, nil
}

// ReactivateTenant clears a suspension or inactive flag.
func (s *TenantService) ReactivateTenant(ctx context.Context, tenantID, actor uuid.UUID) (*models.Tenant, error) {
	var t *models.Tenant

	err := s.withTx(ctx, func(tx storage.Store) error {
		var err error
		t, err = tx.GetTenant(ctx, tenantID)
		if err != nil {
			return translate(err, "tenant")
		}
		if t.IsUsable() {
			return apperrors.Validation("status", "The organization is already active.")
		}

		old := string(t.Status)
		t.Status = models.TenantStatusActive
		t.IsActive = true
		t.SuspensionReason = ""
		t.SuspendedBy = nil
		t.SuspendedAt = nil
		if err := tx.UpdateTenant(ctx, t); err != nil {
			return translate(err, "tenant")
		}

		return audit.Record(ctx, tx, audit.Entry{
			TenantID:    t.ID,
			ActorID:     actor,
			Action:      models.AuditTenantReactivated,
			SubjectType: models.SubjectTenant,
			SubjectID:   t.ID,
			Description: "Tenant reactivated",
			OldValues:   models.Variables{"status": old},
			NewValues:   models.Variables{"status": string(t.Status)},
		})
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// AssignRole grants userID the given role within tenantID.
func (s *TenantService) AssignRole(ctx context.Context, tenantID, userID uuid.UUID, role models.TenantRole, actor uuid.UUID) (*models.UserTenantRole, error) {
	if !role.Valid() {
		return nil, apperrors.Validation("role", "The selected role is invalid.")
	}

	membership := &models.UserTenantRole{
		UserID:   userID,
		TenantID: tenantID,
		Role:     role,
		IsActive: true,
	}

	err := s.withTx(ctx, func(tx storage.Store) error {
		if _, err := tx.GetTenant(ctx, tenantID); err != nil {
			return translate(err, "tenant")
		}
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return translate(err, "user")
		}

		var old models.Variables
		if prev, err := tx.GetUserTenantRole(ctx, userID, tenantID); err == nil {
			old = models.Variables{"role": string(prev.Role), "is_active": prev.IsActive}
		} else if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("load membership: %w", err)
		}

		if err := tx.SetUserTenantRole(ctx, membership); err != nil {
			return translate(err, "membership")
		}

		return audit.Record(ctx, tx, audit.Entry{
			TenantID:    tenantID,
			ActorID:     actor,
			Action:      models.AuditRoleAssigned,
			SubjectType: models.SubjectUser,
			SubjectID:   userID,
			Description: "Tenant role assigned",
			OldValues:   old,
			NewValues:   models.Variables{"role": string(role), "is_active": true},
		})
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}
