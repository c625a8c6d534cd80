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
	"github.com/sannu-sannu/sannu-server/internal/policy"
	"github.com/sannu-sannu/sannu-server/internal/storage"
	"github.com/sannu-sannu/sannu-server/pkg/crypto"
)

// UserService authenticates users and administers accounts.
type UserService struct {
	base
}

// NewUserService creates a user service
func NewUserService(opts Options) *UserService {
	return &UserService{base: newBase(opts)}
}

// Authenticate checks email and password and records the login time.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid credentials.")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !crypto.VerifyPassword(password, user.PasswordHash) {
		return nil, apperrors.Unauthorized("Invalid credentials.")
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized("This account has been disabled.")
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.store.UpdateUser(ctx, user); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("Failed to record login time")
	}
	return user, nil
}

// Subject builds the policy subject for userID from its memberships.
func (s *UserService) Subject(ctx context.Context, userID uuid.UUID) (policy.Subject, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return policy.Anonymous(), apperrors.Unauthorized("Unknown user.")
		}
		return policy.Anonymous(), fmt.Errorf("load user: %w", err)
	}
	roles, err := s.store.ListUserTenantRoles(ctx, userID)
	if err != nil {
		return policy.Anonymous(), fmt.Errorf("load memberships: %w", err)
	}

	sub := policy.NewSubject(user, roles)
	if !sub.Authenticated {
		return sub, apperrors.Unauthorized("This account has been disabled.")
	}
	return sub, nil
}

// AssignSystemRole changes a user's global role.
func (s *UserService) AssignSystemRole(ctx context.Context, userID uuid.UUID, role models.GlobalRole, actor uuid.UUID) (*models.User, error) {
	if role != models.GlobalRoleSystemAdmin && role != models.GlobalRoleContributor {
		return nil, apperrors.Validation("role", "The selected role is invalid.")
	}

	var user *models.User
	err := s.withTx(ctx, func(tx storage.Store) error {
		var err error
		user, err = tx.GetUser(ctx, userID)
		if err != nil {
			return translate(err, "user")
		}
		old := user.Role
		user.Role = role
		if err := tx.UpdateUser(ctx, user); err != nil {
			return translate(err, "user")
		}
		return audit.Record(ctx, tx, audit.Entry{
			ActorID:     actor,
			Action:      models.AuditSystemRoleAssigned,
			SubjectType: models.SubjectUser,
			SubjectID:   user.ID,
			Description: "System role assigned",
			OldValues:   models.Variables{"role": string(old)},
			NewValues:   models.Variables{"role": string(role)},
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account.
func (s *UserService) DeleteUser(ctx context.Context, userID, actor uuid.UUID) error {
	return s.withTx(ctx, func(tx storage.Store) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return translate(err, "user")
		}
		if err := tx.DeleteUser(ctx, userID); err != nil {
			return translate(err, "user")
		}
		return audit.Record(ctx, tx, audit.Entry{
			ActorID:     actor,
			Action:      models.AuditUserDeleted,
			SubjectType: models.SubjectUser,
			SubjectID:   userID,
			Description: "User deleted",
			OldValues:   models.Variables{"email": user.Email},
		})
	})
}
