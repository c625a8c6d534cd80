package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/sannu-sannu/sannu-server/internal/apperrors"
	"github.com/sannu-sannu/sannu-server/internal/audit"
	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/storage"
)

// InviteUser invites userID to the project. Accepted invitations grant
// view and contribute access to invite-only projects.
func (s *ProjectService) InviteUser(ctx context.Context, projectID, userID, invitedBy uuid.UUID) (*models.ProjectInvitation, error) {
	var inv *models.ProjectInvitation

	err := s.withTx(ctx, func(tx storage.Store) error {
		p, err := tx.GetProject(ctx, projectID)
		if err != nil {
			return translate(err, "project")
		}
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return translate(err, "user")
		}

		inv = &models.ProjectInvitation{
			TenantModel: models.TenantModel{TenantID: p.TenantID},
			ProjectID:   p.ID,
			UserID:      userID,
			InvitedBy:   invitedBy,
			Status:      models.InvitationPending,
		}
		if err := tx.CreateProjectInvitation(ctx, inv); err != nil {
			return translate(err, "invitation")
		}

		return audit.Record(ctx, tx, audit.Entry{
			TenantID:    p.TenantID,
			ActorID:     invitedBy,
			Action:      models.AuditInvitationSent,
			SubjectType: models.SubjectInvitation,
			SubjectID:   inv.ID,
			Description: "Project invitation sent",
			NewValues:   models.Variables{"project_id": p.ID.String(), "user_id": userID.String()},
		})
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// AcceptInvitation marks the invitation accepted on behalf of its invitee.
func (s *ProjectService) AcceptInvitation(ctx context.Context, invitationID, userID uuid.UUID) (*models.ProjectInvitation, error) {
	var inv *models.ProjectInvitation

	err := s.withTx(ctx, func(tx storage.Store) error {
		var err error
		inv, err = tx.GetProjectInvitation(ctx, invitationID)
		if err != nil {
			return translate(err, "invitation")
		}
		if inv.UserID != userID {
			return apperrors.Forbidden("This invitation was sent to another user.")
		}
		if inv.Status != models.InvitationPending {
			return apperrors.Validation("invitation", "This invitation is no longer pending.")
		}

		now := s.now()
		inv.Status = models.InvitationAccepted
		inv.AcceptedAt = &now
		if err := tx.UpdateProjectInvitation(ctx, inv); err != nil {
			return translate(err, "invitation")
		}

		return audit.Record(ctx, tx, audit.Entry{
			TenantID:    inv.TenantID,
			ActorID:     userID,
			Action:      models.AuditInvitationAccepted,
			SubjectType: models.SubjectInvitation,
			SubjectID:   inv.ID,
			Description: "Project invitation accepted",
		})
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}
