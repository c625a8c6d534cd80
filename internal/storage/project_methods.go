package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/tenancy"
)

const projectColumns = `id, created_at, updated_at, tenant_id, name, slug, description, visibility,
               status, total_amount, minimum_contribution, max_contributors, payment_options,
               installment_frequency, custom_installment_months, start_date, end_date,
               registration_deadline, created_by, managed_by, settings, version`

func scanProject(row interface{ Scan(...interface{}) error }) (*models.Project, error) {
	p := &models.Project{}
	var (
		minimum  decimal.NullDecimal
		options  pq.StringArray
		managers pq.StringArray
	)
	err := row.Scan(
		&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.TenantID, &p.Name, &p.Slug, &p.Description,
		&p.Visibility, &p.Status, &p.TotalAmount, &minimum, &p.MaxContributors, &options,
		&p.InstallmentFrequency, &p.CustomInstallmentMonths, &p.StartDate, &p.EndDate,
		&p.RegistrationDeadline, &p.CreatedBy, &managers, &p.Settings, &p.Version,
	)
	if err != nil {
		return nil, err
	}

	if minimum.Valid {
		v := minimum.Decimal
		p.MinimumContribution = &v
	}
	p.PaymentOptions = make([]models.PaymentOption, 0, len(options))
	for _, o := range options {
		p.PaymentOptions = append(p.PaymentOptions, models.PaymentOption(o))
	}
	if p.ManagedBy, err = parseUUIDs(managers); err != nil {
		return nil, err
	}
	return p, nil
}

func paymentOptionStrings(opts []models.PaymentOption) pq.StringArray {
	out := make(pq.StringArray, 0, len(opts))
	for _, o := range opts {
		out = append(out, string(o))
	}
	return out
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

// CreateProject creates a new project in the scoped tenant
func (s *PostgresStore) CreateProject(ctx context.Context, p *models.Project) error {
	if _, err := resolveTenant(ctx, &p.TenantID); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Version = 1

	query := `
        INSERT INTO projects (
            id, created_at, updated_at, tenant_id, name, slug, description, visibility,
            status, total_amount, minimum_contribution, max_contributors, payment_options,
            installment_frequency, custom_installment_months, start_date, end_date,
            registration_deadline, created_by, managed_by, settings, version
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
            $17, $18, $19, $20, $21, $22
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		p.ID, p.CreatedAt, p.UpdatedAt, p.TenantID, p.Name, p.Slug, p.Description,
		p.Visibility, p.Status, p.TotalAmount, nullDecimal(p.MinimumContribution),
		p.MaxContributors, paymentOptionStrings(p.PaymentOptions), p.InstallmentFrequency,
		p.CustomInstallmentMonths, p.StartDate, p.EndDate, p.RegistrationDeadline,
		p.CreatedBy, uuidStrings(p.ManagedBy), p.Settings, p.Version,
	)
	return mapWriteError(err)
}

func (s *PostgresStore) getProjectWhere(ctx context.Context, column string, value interface{}, lock bool) (*models.Project, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	clause, scopeArgs := scope.Clause("tenant_id", 2)
	query := `SELECT ` + projectColumns + ` FROM projects WHERE ` + column + ` = $1` + clause
	if lock {
		query += ` FOR UPDATE`
	}

	args := append([]interface{}{value}, scopeArgs...)
	p, err := scanProject(s.getDB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject gets a project by ID
func (s *PostgresStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.getProjectWhere(ctx, "id", id, false)
}

// GetProjectForUpdate gets a project by ID and locks the row
func (s *PostgresStore) GetProjectForUpdate(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.getProjectWhere(ctx, "id", id, s.tx != nil)
}

// GetProjectBySlug gets a project by slug
func (s *PostgresStore) GetProjectBySlug(ctx context.Context, slug string) (*models.Project, error) {
	return s.getProjectWhere(ctx, "slug", slug, false)
}

// UpdateProject updates a project guarded by its version
func (s *PostgresStore) UpdateProject(ctx context.Context, p *models.Project) error {
	scope, err := writeScope(ctx, p.TenantID)
	if err != nil {
		return err
	}

	updatedAt := time.Now()
	clause, scopeArgs := scope.Clause("tenant_id", 20)

	query := `
        UPDATE projects SET
            updated_at = $3, name = $4, slug = $5, description = $6, visibility = $7,
            status = $8, total_amount = $9, minimum_contribution = $10, max_contributors = $11,
            payment_options = $12, installment_frequency = $13, custom_installment_months = $14,
            start_date = $15, end_date = $16, registration_deadline = $17, managed_by = $18,
            settings = $19, version = version + 1
        WHERE id = $1 AND version = $2` + clause

	args := append([]interface{}{
		p.ID, p.Version, updatedAt, p.Name, p.Slug, p.Description, p.Visibility,
		p.Status, p.TotalAmount, nullDecimal(p.MinimumContribution), p.MaxContributors,
		paymentOptionStrings(p.PaymentOptions), p.InstallmentFrequency,
		p.CustomInstallmentMonths, p.StartDate, p.EndDate, p.RegistrationDeadline,
		uuidStrings(p.ManagedBy), p.Settings,
	}, scopeArgs...)

	result, err := s.getDB().ExecContext(ctx, query, args...)
	if err != nil {
		return mapWriteError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return s.projectUpdateMiss(ctx, scope, p.ID)
	}

	p.UpdatedAt = updatedAt
	p.Version++
	return nil
}

// projectUpdateMiss tells a missing row from a stale version.
func (s *PostgresStore) projectUpdateMiss(ctx context.Context, scope tenancy.Scope, id uuid.UUID) error {
	clause, scopeArgs := scope.Clause("tenant_id", 2)
	var version int
	err := s.getDB().QueryRowContext(ctx,
		`SELECT version FROM projects WHERE id = $1`+clause,
		append([]interface{}{id}, scopeArgs...)...,
	).Scan(&version)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

// DeleteProject deletes a project row. Products must be removed first.
func (s *PostgresStore) DeleteProject(ctx context.Context, id uuid.UUID) error {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return err
	}

	clause, scopeArgs := scope.Clause("tenant_id", 2)
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM projects WHERE id = $1`+clause,
		append([]interface{}{id}, scopeArgs...)...,
	)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// ListProjects lists projects with filters
func (s *PostgresStore) ListProjects(ctx context.Context, filters ProjectFilters, limit, offset int) ([]*models.Project, int64, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, 0, err
	}

	where := " WHERE 1=1"
	args := []interface{}{}
	argCount := 0

	if filters.Status != nil {
		argCount++
		where += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *filters.Status)
	}

	if filters.Visibility != nil {
		argCount++
		where += fmt.Sprintf(" AND visibility = $%d", argCount)
		args = append(args, *filters.Visibility)
	}

	if filters.CreatedBy != nil {
		argCount++
		where += fmt.Sprintf(" AND created_by = $%d", argCount)
		args = append(args, *filters.CreatedBy)
	}

	if filters.StartsBefore != nil {
		argCount++
		where += fmt.Sprintf(" AND start_date <= $%d", argCount)
		args = append(args, *filters.StartsBefore)
	}

	if filters.EndsBefore != nil {
		argCount++
		where += fmt.Sprintf(" AND end_date < $%d", argCount)
		args = append(args, *filters.EndsBefore)
	}

	if filters.VisibleTo != nil {
		clause, visArgs := visibleClause(filters.VisibleTo, argCount+1)
		where += clause
		args = append(args, visArgs...)
		argCount += len(visArgs)
	}

	clause, scopeArgs := scope.Clause("tenant_id", argCount+1)
	where += clause
	args = append(args, scopeArgs...)
	argCount += len(scopeArgs)

	// Get count
	var count int64
	if err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM projects"+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	// Get rows
	query := `SELECT ` + projectColumns + ` FROM projects` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argCount+1, argCount+2)
	args = append(args, limitArg(limit), offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	return projects, count, rows.Err()
}

// ProjectSlugExists reports whether any tenant already uses slug
func (s *PostgresStore) ProjectSlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.getDB().QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM projects WHERE slug = $1)`, slug,
	).Scan(&exists)
	return exists, err
}

// visibleClause mirrors ProjectViewer.Sees in SQL. Placeholders start at next.
func visibleClause(v *ProjectViewer, next int) (string, []interface{}) {
	user, members, managers, admins := next, next+1, next+2, next+3
	clause := fmt.Sprintf(` AND (visibility = 'public'`+
		` OR (created_by = $%[1]d OR $%[1]d = ANY(managed_by))`+
		` OR tenant_id = ANY($%[3]d::uuid[])`+
		` OR (visibility = 'private' AND tenant_id = ANY($%[2]d::uuid[]))`+
		` OR (visibility = 'invite_only' AND (tenant_id = ANY($%[4]d::uuid[])`+
		` OR EXISTS (SELECT 1 FROM project_invitations i WHERE i.project_id = projects.id`+
		` AND i.user_id = $%[1]d AND i.status = 'accepted'))))`,
		user, members, managers, admins)
	return clause, []interface{}{v.UserID, uuidStrings(v.MemberOf), uuidStrings(v.ManagerOf), uuidStrings(v.AdminOf)}
}
