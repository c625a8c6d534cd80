package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/pkg/crypto"
)

const userColumns = `id, created_at, updated_at, email, first_name, last_name,
               password_hash, role, is_active, last_login_at, settings`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email, &user.FirstName,
		&user.LastName, &user.PasswordHash, &user.Role, &user.IsActive,
		&user.LastLoginAt, &user.Settings,
	)
	return user, err
}

// CreateUser creates a new user. A plain "password" entry in Settings is
// hashed into PasswordHash and removed.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := prepareUser(user); err != nil {
		return err
	}

	query := `
        INSERT INTO users (
            id, created_at, updated_at, email, first_name, last_name,
            password_hash, role, is_active, last_login_at, settings
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.CreatedAt, user.UpdatedAt, user.Email, user.FirstName,
		user.LastName, user.PasswordHash, user.Role, user.IsActive,
		user.LastLoginAt, user.Settings,
	)
	return mapWriteError(err)
}

func prepareUser(user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Role == "" {
		user.Role = models.GlobalRoleContributor
	}

	if pwd, ok := user.Settings["password"].(string); ok && pwd != "" {
		hash, err := crypto.HashPassword(pwd)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
		delete(user.Settings, "password")
	}
	return nil
}

// GetUser gets a user by ID
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(s.getDB().QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail gets a user by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(s.getDB().QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser updates a user
func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	query := `
        UPDATE users SET
            updated_at = $2, email = $3, first_name = $4, last_name = $5,
            password_hash = $6, role = $7, is_active = $8, last_login_at = $9, settings = $10
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.UpdatedAt, user.Email, user.FirstName, user.LastName,
		user.PasswordHash, user.Role, user.IsActive, user.LastLoginAt, user.Settings,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return expectAffected(result)
}

// DeleteUser deletes a user
func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// ListUsers lists users
func (s *PostgresStore) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int64, error) {
	var count int64
	if err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := s.getDB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, count, rows.Err()
}

// ========== Membership Methods ==========

// SetUserTenantRole creates or replaces the role a user holds in a tenant.
func (s *PostgresStore) SetUserTenantRole(ctx context.Context, role *models.UserTenantRole) error {
	now := time.Now()
	if role.CreatedAt.IsZero() {
		role.CreatedAt = now
	}
	role.UpdatedAt = now

	query := `
        INSERT INTO user_tenant_roles (user_id, tenant_id, role, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (user_id, tenant_id)
        DO UPDATE SET role = EXCLUDED.role, is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at`

	_, err := s.getDB().ExecContext(ctx, query,
		role.UserID, role.TenantID, role.Role, role.IsActive, role.CreatedAt, role.UpdatedAt,
	)
	return mapWriteError(err)
}

// GetUserTenantRole gets the membership of a user in a tenant
func (s *PostgresStore) GetUserTenantRole(ctx context.Context, userID, tenantID uuid.UUID) (*models.UserTenantRole, error) {
	query := `
        SELECT user_id, tenant_id, role, is_active, created_at, updated_at
        FROM user_tenant_roles
        WHERE user_id = $1 AND tenant_id = $2`

	r := &models.UserTenantRole{}
	err := s.getDB().QueryRowContext(ctx, query, userID, tenantID).Scan(
		&r.UserID, &r.TenantID, &r.Role, &r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListUserTenantRoles lists every membership of a user
func (s *PostgresStore) ListUserTenantRoles(ctx context.Context, userID uuid.UUID) ([]*models.UserTenantRole, error) {
	query := `
        SELECT user_id, tenant_id, role, is_active, created_at, updated_at
        FROM user_tenant_roles
        WHERE user_id = $1
        ORDER BY created_at`

	rows, err := s.getDB().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*models.UserTenantRole
	for rows.Next() {
		r := &models.UserTenantRole{}
		if err := rows.Scan(&r.UserID, &r.TenantID, &r.Role, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}
