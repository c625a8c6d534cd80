package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sannu-sannu/sannu-server/internal/models"
)

const tenantColumns = `id, created_at, updated_at, name, slug, description, is_active, status,
               suspension_reason, suspended_by, suspended_at, application_id`

func scanTenant(row interface{ Scan(...interface{}) error }) (*models.Tenant, error) {
	t := &models.Tenant{}
	err := row.Scan(
		&t.ID, &t.CreatedAt, &t.UpdatedAt, &t.Name, &t.Slug, &t.Description,
		&t.IsActive, &t.Status, &t.SuspensionReason, &t.SuspendedBy,
		&t.SuspendedAt, &t.ApplicationID,
	)
	return t, err
}

func prepareTenant(tenant *models.Tenant) {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	if tenant.Status == "" {
		tenant.Status = models.TenantStatusActive
		tenant.IsActive = true
	}
}

// CreateTenant creates a new tenant
func (s *PostgresStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	prepareTenant(tenant)

	query := `
        INSERT INTO tenants (
            id, created_at, updated_at, name, slug, description, is_active, status,
            suspension_reason, suspended_by, suspended_at, application_id
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		tenant.ID, tenant.CreatedAt, tenant.UpdatedAt, tenant.Name, tenant.Slug,
		tenant.Description, tenant.IsActive, tenant.Status, tenant.SuspensionReason,
		tenant.SuspendedBy, tenant.SuspendedAt, tenant.ApplicationID,
	)
	return mapWriteError(err)
}

// GetTenant gets a tenant by ID
func (s *PostgresStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`

	tenant, err := scanTenant(s.getDB().QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

// GetTenantBySlug gets a tenant by its URL slug
func (s *PostgresStore) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`

	tenant, err := scanTenant(s.getDB().QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

// UpdateTenant updates a tenant
func (s *PostgresStore) UpdateTenant(ctx context.Context, tenant *models.Tenant) error {
	tenant.UpdatedAt = time.Now()

	query := `
        UPDATE tenants SET
            updated_at = $2, name = $3, slug = $4, description = $5, is_active = $6,
            status = $7, suspension_reason = $8, suspended_by = $9, suspended_at = $10,
            application_id = $11
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		tenant.ID, tenant.UpdatedAt, tenant.Name, tenant.Slug, tenant.Description,
		tenant.IsActive, tenant.Status, tenant.SuspensionReason, tenant.SuspendedBy,
		tenant.SuspendedAt, tenant.ApplicationID,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return expectAffected(result)
}

// ListTenants lists tenants
func (s *PostgresStore) ListTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error) {
	var count int64
	if err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM tenants").Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := s.getDB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, 0, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, count, rows.Err()
}
