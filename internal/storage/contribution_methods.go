package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/tenancy"
)

// CreateContribution records a pledge
func (s *PostgresStore) CreateContribution(ctx context.Context, c *models.Contribution) error {
	if _, err := resolveTenant(ctx, &c.TenantID); err != nil {
		return err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
        INSERT INTO contributions (
            id, created_at, updated_at, tenant_id, project_id, user_id,
            payment_type, total_committed, total_paid, status
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		c.ID, c.CreatedAt, c.UpdatedAt, c.TenantID, c.ProjectID, c.UserID,
		c.PaymentType, c.TotalCommitted, c.TotalPaid, c.Status,
	)
	return mapWriteError(err)
}

// CountContributions counts every contribution of a project, whatever its status
func (s *PostgresStore) CountContributions(ctx context.Context, projectID uuid.UUID) (int64, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return 0, err
	}

	clause, scopeArgs := scope.Clause("tenant_id", 2)
	var count int64
	err = s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contributions WHERE project_id = $1`+clause,
		append([]interface{}{projectID}, scopeArgs...)...,
	).Scan(&count)
	return count, err
}

// GetContributionStats aggregates the non-cancelled contributions of a project
func (s *PostgresStore) GetContributionStats(ctx context.Context, projectID uuid.UUID) (*models.ContributionStats, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	clause, scopeArgs := scope.Clause("tenant_id", 3)
	query := `
        SELECT COUNT(*), COUNT(DISTINCT user_id),
               COALESCE(SUM(total_paid), 0), COALESCE(SUM(total_committed), 0)
        FROM contributions
        WHERE project_id = $1 AND status <> $2` + clause

	stats := &models.ContributionStats{}
	err = s.getDB().QueryRowContext(ctx, query,
		append([]interface{}{projectID, models.ContributionCancelled}, scopeArgs...)...,
	).Scan(&stats.Contributions, &stats.DistinctUsers, &stats.TotalPaid, &stats.TotalCommitted)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteContributionsByProject removes every contribution of a project
func (s *PostgresStore) DeleteContributionsByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return 0, err
	}

	clause, scopeArgs := scope.Clause("tenant_id", 2)
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM contributions WHERE project_id = $1`+clause,
		append([]interface{}{projectID}, scopeArgs...)...,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ========== Invitation Methods ==========

// CreateProjectInvitation creates a new invitation
func (s *PostgresStore) CreateProjectInvitation(ctx context.Context, inv *models.ProjectInvitation) error {
	if _, err := resolveTenant(ctx, &inv.TenantID); err != nil {
		return err
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

	query := `
        INSERT INTO project_invitations (
            id, created_at, updated_at, tenant_id, project_id, user_id,
            invited_by, status, accepted_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		inv.ID, inv.CreatedAt, inv.UpdatedAt, inv.TenantID, inv.ProjectID,
		inv.UserID, inv.InvitedBy, inv.Status, inv.AcceptedAt,
	)
	return mapWriteError(err)
}

// GetProjectInvitation gets an invitation by ID
func (s *PostgresStore) GetProjectInvitation(ctx context.Context, id uuid.UUID) (*models.ProjectInvitation, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	clause, scopeArgs := scope.Clause("tenant_id", 2)
	query := `
        SELECT id, created_at, updated_at, tenant_id, project_id, user_id,
               invited_by, status, accepted_at
        FROM project_invitations
        WHERE id = $1` + clause

	inv := &models.ProjectInvitation{}
	err = s.getDB().QueryRowContext(ctx, query, append([]interface{}{id}, scopeArgs...)...).Scan(
		&inv.ID, &inv.CreatedAt, &inv.UpdatedAt, &inv.TenantID, &inv.ProjectID,
		&inv.UserID, &inv.InvitedBy, &inv.Status, &inv.AcceptedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// UpdateProjectInvitation updates the status of an invitation
func (s *PostgresStore) UpdateProjectInvitation(ctx context.Context, inv *models.ProjectInvitation) error {
	scope, err := writeScope(ctx, inv.TenantID)
	if err != nil {
		return err
	}

	inv.UpdatedAt = time.Now()
	clause, scopeArgs := scope.Clause("tenant_id", 5)

	result, err := s.getDB().ExecContext(ctx,
		`UPDATE project_invitations SET updated_at = $2, status = $3, accepted_at = $4 WHERE id = $1`+clause,
		append([]interface{}{inv.ID, inv.UpdatedAt, inv.Status, inv.AcceptedAt}, scopeArgs...)...,
	)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// HasAcceptedInvitation reports whether userID accepted an invitation to the project
func (s *PostgresStore) HasAcceptedInvitation(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return false, err
	}

	clause, scopeArgs := scope.Clause("tenant_id", 4)
	var exists bool
	err = s.getDB().QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM project_invitations
            WHERE project_id = $1 AND user_id = $2 AND status = $3`+clause+`)`,
		append([]interface{}{projectID, userID, models.InvitationAccepted}, scopeArgs...)...,
	).Scan(&exists)
	return exists, err
}
