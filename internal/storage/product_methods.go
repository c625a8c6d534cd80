package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/tenancy"
)

const productColumns = `id, created_at, updated_at, tenant_id, project_id, name, description,
               price, image_path, sort_order`

func scanProduct(row interface{ Scan(...interface{}) error }) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(
		&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.TenantID, &p.ProjectID, &p.Name,
		&p.Description, &p.Price, &p.ImagePath, &p.SortOrder,
	)
	return p, err
}

// CreateProduct creates a new product
func (s *PostgresStore) CreateProduct(ctx context.Context, p *models.Product) error {
	if _, err := resolveTenant(ctx, &p.TenantID); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
        INSERT INTO products (
            id, created_at, updated_at, tenant_id, project_id, name, description,
            price, image_path, sort_order
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		p.ID, p.CreatedAt, p.UpdatedAt, p.TenantID, p.ProjectID, p.Name,
		p.Description, p.Price, p.ImagePath, p.SortOrder,
	)
	return mapWriteError(err)
}

// GetProduct gets a product by ID
func (s *PostgresStore) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	clause, scopeArgs := scope.Clause("tenant_id", 2)
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1` + clause

	p, err := scanProduct(s.getDB().QueryRowContext(ctx, query, append([]interface{}{id}, scopeArgs...)...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProduct updates a product
func (s *PostgresStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	scope, err := writeScope(ctx, p.TenantID)
	if err != nil {
		return err
	}

	p.UpdatedAt = time.Now()
	clause, scopeArgs := scope.Clause("tenant_id", 8)

	query := `
        UPDATE products SET
            updated_at = $2, name = $3, description = $4, price = $5,
            image_path = $6, sort_order = $7
        WHERE id = $1` + clause

	args := append([]interface{}{
		p.ID, p.UpdatedAt, p.Name, p.Description, p.Price, p.ImagePath, p.SortOrder,
	}, scopeArgs...)

	result, err := s.getDB().ExecContext(ctx, query, args...)
	if err != nil {
		return mapWriteError(err)
	}
	return expectAffected(result)
}

// DeleteProduct deletes a product
func (s *PostgresStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return err
	}

	clause, scopeArgs := scope.Clause("tenant_id", 2)
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM products WHERE id = $1`+clause,
		append([]interface{}{id}, scopeArgs...)...,
	)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// DeleteProductsByProject deletes every product of a project
func (s *PostgresStore) DeleteProductsByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return 0, err
	}

	clause, scopeArgs := scope.Clause("tenant_id", 2)
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM products WHERE project_id = $1`+clause,
		append([]interface{}{projectID}, scopeArgs...)...,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListProducts lists the products of a project in display order
func (s *PostgresStore) ListProducts(ctx context.Context, projectID uuid.UUID) ([]*models.Product, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	clause, scopeArgs := scope.Clause("tenant_id", 2)
	query := `SELECT ` + productColumns + ` FROM products WHERE project_id = $1` + clause +
		` ORDER BY sort_order, created_at`

	rows, err := s.getDB().QueryContext(ctx, query, append([]interface{}{projectID}, scopeArgs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// CountProducts counts the products of a project
func (s *PostgresStore) CountProducts(ctx context.Context, projectID uuid.UUID) (int, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return 0, err
	}

	clause, scopeArgs := scope.Clause("tenant_id", 2)
	var count int
	err = s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE project_id = $1`+clause,
		append([]interface{}{projectID}, scopeArgs...)...,
	).Scan(&count)
	return count, err
}

// SumProductPrices sums the current prices of a project's products
func (s *PostgresStore) SumProductPrices(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	clause, scopeArgs := scope.Clause("tenant_id", 2)
	var total decimal.Decimal
	err = s.getDB().QueryRowContext(ctx,
		`SELECT COALESCE(SUM(price), 0) FROM products WHERE project_id = $1`+clause,
		append([]interface{}{projectID}, scopeArgs...)...,
	).Scan(&total)
	return total, err
}

// ListProductImagePaths lists image paths referenced by products
func (s *PostgresStore) ListProductImagePaths(ctx context.Context) ([]string, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	clause, scopeArgs := scope.Clause("tenant_id", 1)
	rows, err := s.getDB().QueryContext(ctx,
		`SELECT image_path FROM products WHERE image_path <> ''`+clause,
		scopeArgs...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}
