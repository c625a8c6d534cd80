package service

import (
	"context"
	"fmt"
	"path"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sannu-sannu/sannu-server/internal/apperrors"
	"github.com/sannu-sannu/sannu-server/internal/audit"
	"github.com/sannu-sannu/sannu-server/internal/imagestore"
	"github.com/sannu-sannu/sannu-server/internal/metrics"
	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/storage"
	"github.com/sannu-sannu/sannu-server/internal/tenancy"
)

// UpdateProductInput carries optional product changes.
type UpdateProductInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

// ProductService manages the products of a project and keeps the project
// total equal to their price sum.
type ProductService struct {
	base
}

// NewProductService creates a product service
func NewProductService(opts Options) *ProductService {
	return &ProductService{base: newBase(opts)}
}

// ListProducts returns the project's products in display order.
func (s *ProductService) ListProducts(ctx context.Context, projectID uuid.UUID) ([]*models.Product, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, translate(err, "project")
	}
	products, err := s.store.ListProducts(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// GetProduct loads a product within the context's tenant scope.
func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	return p, translate(err, "product")
}

// AddProduct appends a product to the project and recomputes its total.
func (s *ProductService) AddProduct(ctx context.Context, projectID uuid.UUID, in ProductInput, actor uuid.UUID) (*models.Product, error) {
	if err := validateProduct(in.Name, in.Price); err != nil {
		return nil, err
	}

	var prod *models.Product
	err := s.withTx(ctx, func(tx storage.Store) error {
		p, err := tx.GetProjectForUpdate(ctx, projectID)
		if err != nil {
			return translate(err, "project")
		}
		if err := guardTotalChange(ctx, tx, p.ID); err != nil {
			return err
		}

		count, err := tx.CountProducts(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("count products: %w", err)
		}

		prod = &models.Product{
			TenantModel: models.TenantModel{TenantID: p.TenantID},
			ProjectID:   p.ID,
			Name:        in.Name,
			Description: in.Description,
			Price:       in.Price,
			SortOrder:   count + 1,
		}
		if err := tx.CreateProduct(ctx, prod); err != nil {
			return translate(err, "product")
		}
		if err := recomputeTotal(ctx, tx, p); err != nil {
			return err
		}

		return audit.Record(ctx, tx, audit.Entry{
			TenantID:    p.TenantID,
			ActorID:     actor,
			Action:      models.AuditProductCreated,
			SubjectType: models.SubjectProduct,
			SubjectID:   prod.ID,
			Description: "Product added",
			NewValues:   productValues(prod),
			Context:     models.Variables{"project_id": p.ID.String(), "total_amount": p.TotalAmount.String()},
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, projectID)
	return prod, nil
}

// UpdateProduct changes a product. A price change on a project with
// contributions is refused because it would move the frozen total.
func (s *ProductService) UpdateProduct(ctx context.Context, productID uuid.UUID, in UpdateProductInput, actor uuid.UUID) (*models.Product, error) {
	var prod *models.Product

	err := s.withTx(ctx, func(tx storage.Store) error {
		var err error
		prod, err = tx.GetProduct(ctx, productID)
		if err != nil {
			return translate(err, "product")
		}
		p, err := tx.GetProjectForUpdate(ctx, prod.ProjectID)
		if err != nil {
			return translate(err, "project")
		}
		old := productValues(prod)

		if in.Name != nil {
			prod.Name = *in.Name
		}
		if in.Description != nil {
			prod.Description = *in.Description
		}
		priceChanged := in.Price != nil && !in.Price.Equal(prod.Price)
		if in.Price != nil {
			prod.Price = *in.Price
		}
		if err := validateProduct(prod.Name, prod.Price); err != nil {
			return err
		}
		if priceChanged {
			if err := guardTotalChange(ctx, tx, p.ID); err != nil {
				return err
			}
		}

		if err := tx.UpdateProduct(ctx, prod); err != nil {
			return translate(err, "product")
		}
		if priceChanged {
			if err := recomputeTotal(ctx, tx, p); err != nil {
				return err
			}
		}

		before, after := diffValues(old, productValues(prod))
		return audit.Record(ctx, tx, audit.Entry{
			TenantID:    prod.TenantID,
			ActorID:     actor,
			Action:      models.AuditProductUpdated,
			SubjectType: models.SubjectProduct,
			SubjectID:   prod.ID,
			Description: "Product updated",
			OldValues:   before,
			NewValues:   after,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, prod.ProjectID)
	return prod, nil
}

// DeleteProduct removes a product from a project without contributions and
// deletes its image after commit.
func (s *ProductService) DeleteProduct(ctx context.Context, productID uuid.UUID, actor uuid.UUID) error {
	var prod *models.Product

	err := s.withTx(ctx, func(tx storage.Store) error {
		var err error
		prod, err = tx.GetProduct(ctx, productID)
		if err != nil {
			return translate(err, "product")
		}
		p, err := tx.GetProjectForUpdate(ctx, prod.ProjectID)
		if err != nil {
			return translate(err, "project")
		}

		n, err := tx.CountContributions(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("count contributions: %w", err)
		}
		if n > 0 {
			return apperrors.IntegrityGuard("product", "Cannot delete product that is referenced by existing contributions.")
		}

		if err := tx.DeleteProduct(ctx, prod.ID); err != nil {
			return translate(err, "product")
		}
		if err := compactSortOrder(ctx, tx, p.ID); err != nil {
			return err
		}
		if err := recomputeTotal(ctx, tx, p); err != nil {
			return err
		}

		return audit.Record(ctx, tx, audit.Entry{
			TenantID:    prod.TenantID,
			ActorID:     actor,
			Action:      models.AuditProductDeleted,
			SubjectType: models.SubjectProduct,
			SubjectID:   prod.ID,
			Description: "Product deleted",
			OldValues:   productValues(prod),
		})
	})
	if err != nil {
		return err
	}

	if prod.ImagePath != "" {
		s.deleteImages(ctx, []string{prod.ImagePath})
	}
	s.invalidate(ctx, prod.ProjectID)
	return nil
}

// compactSortOrder renumbers the remaining products 1..n so the next
// AddProduct position is free.
func compactSortOrder(ctx context.Context, tx storage.Store, projectID uuid.UUID) error {
	products, err := tx.ListProducts(ctx, projectID)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	for i, prod := range products {
		if prod.SortOrder == i+1 {
			continue
		}
		prod.SortOrder = i + 1
		if err := tx.UpdateProduct(ctx, prod); err != nil {
			return translate(err, "product")
		}
	}
	return nil
}

// ReorderProducts sets sort_order to the 1-based position of each id in
// orderedIDs. Ids that do not belong to the project are ignored.
func (s *ProductService) ReorderProducts(ctx context.Context, projectID uuid.UUID, orderedIDs []uuid.UUID, actor uuid.UUID) ([]*models.Product, error) {
	if len(orderedIDs) == 0 {
		return nil, apperrors.Validation("order", "Order array cannot be empty.")
	}

	var products []*models.Product
	err := s.withTx(ctx, func(tx storage.Store) error {
		p, err := tx.GetProjectForUpdate(ctx, projectID)
		if err != nil {
			return translate(err, "project")
		}

		current, err := tx.ListProducts(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		byID := make(map[uuid.UUID]*models.Product, len(current))
		for _, prod := range current {
			byID[prod.ID] = prod
		}

		order := make([]string, 0, len(orderedIDs))
		for i, id := range orderedIDs {
			prod, ok := byID[id]
			if !ok {
				continue
			}
			order = append(order, id.String())
			if prod.SortOrder == i+1 {
				continue
			}
			prod.SortOrder = i + 1
			if err := tx.UpdateProduct(ctx, prod); err != nil {
				return translate(err, "product")
			}
		}

		products, err = tx.ListProducts(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}

		return audit.Record(ctx, tx, audit.Entry{
			TenantID:    p.TenantID,
			ActorID:     actor,
			Action:      models.AuditProductsReordered,
			SubjectType: models.SubjectProject,
			SubjectID:   p.ID,
			Description: "Products reordered",
			NewValues:   models.Variables{"order": order},
		})
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// UploadProductImage stores data as the product's image. The previous image
// is deleted only after the new one is stored and the row points at it.
func (s *ProductService) UploadProductImage(ctx context.Context, productID uuid.UUID, data []byte, actor uuid.UUID) (*models.Product, error) {
	if s.images == nil {
		return nil, ErrImagesDisabled
	}
	if _, err := imagestore.Validate(data, s.imageMaxBytes); err != nil {
		return nil, err
	}

	current, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, translate(err, "product")
	}

	stored, err := s.images.Put(ctx, path.Join("products", current.ProjectID.String()), data)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	var (
		prod     *models.Product
		previous string
	)
	err = s.withTx(ctx, func(tx storage.Store) error {
		var err error
		prod, err = tx.GetProduct(ctx, productID)
		if err != nil {
			return translate(err, "product")
		}
		previous = prod.ImagePath
		prod.ImagePath = stored
		if err := tx.UpdateProduct(ctx, prod); err != nil {
			return translate(err, "product")
		}

		return audit.Record(ctx, tx, audit.Entry{
			TenantID:    prod.TenantID,
			ActorID:     actor,
			Action:      models.AuditProductUpdated,
			SubjectType: models.SubjectProduct,
			SubjectID:   prod.ID,
			Description: "Product image replaced",
			OldValues:   models.Variables{"image_path": previous},
			NewValues:   models.Variables{"image_path": stored},
		})
	})
	if err != nil {
		s.deleteImages(ctx, []string{stored})
		return nil, err
	}

	if previous != "" && previous != stored {
		s.deleteImages(ctx, []string{previous})
	}
	return prod, nil
}

// ImageURL returns the public URL of a stored image path.
func (s *ProductService) ImageURL(p string) string {
	if s.images == nil || p == "" {
		return ""
	}
	return s.images.URL(p)
}

// CleanupOrphanedImages deletes stored images that no product references.
func (s *ProductService) CleanupOrphanedImages(ctx context.Context) (int, error) {
	if s.images == nil {
		return 0, ErrImagesDisabled
	}
	ctx = tenancy.WithoutScope(ctx)

	referenced, err := s.store.ListProductImagePaths(ctx)
	if err != nil {
		return 0, fmt.Errorf("list referenced images: %w", err)
	}
	live := make(map[string]bool, len(referenced))
	for _, p := range referenced {
		live[p] = true
	}

	stored, err := s.images.List(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, p := range stored {
		if live[p] {
			continue
		}
		if err := s.images.Delete(ctx, p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("Failed to delete orphaned image")
			continue
		}
		deleted++
	}

	metrics.ImageCleanupDeleted.Add(float64(deleted))
	log.Info().
		Int("stored", len(stored)).
		Int("deleted", deleted).
		Msg("Orphaned image cleanup finished")

	return deleted, nil
}

// guardTotalChange refuses ledger changes that would move a frozen total.
func guardTotalChange(ctx context.Context, tx storage.Store, projectID uuid.UUID) error {
	n, err := tx.CountContributions(ctx, projectID)
	if err != nil {
		return fmt.Errorf("count contributions: %w", err)
	}
	if n > 0 {
		return protectedFieldError(FieldTotalAmount)
	}
	return nil
}

// recomputeTotal sets the project total to the sum of its product prices.
func recomputeTotal(ctx context.Context, tx storage.Store, p *models.Project) error {
	total, err := tx.SumProductPrices(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("sum product prices: %w", err)
	}
	if total.Equal(p.TotalAmount) {
		return nil
	}
	p.TotalAmount = total
	if err := tx.UpdateProject(ctx, p); err != nil {
		return translate(err, "project")
	}
	return nil
}

func productValues(p *models.Product) models.Variables {
	return models.Variables{
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price.String(),
		"sort_order":  p.SortOrder,
		"image_path":  p.ImagePath,
	}
}
