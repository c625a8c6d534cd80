package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sannu-sannu/sannu-server/internal/apperrors"
	"github.com/sannu-sannu/sannu-server/internal/models"
)

func TestAddProductValidation(t *testing.T) {
	e := newTestEnv(t)
	p := e.createProject(t, 100)

	_, err := e.products.AddProduct(e.ctx, p.ID, ProductInput{Name: " ", Price: decimal.NewFromInt(5)}, e.creator)
	require.Error(t, err)
	assert.Equal(t, "Product name is required.", err.Error())

	_, err = e.products.AddProduct(e.ctx, p.ID, ProductInput{Name: "Pipe", Price: decimal.Zero}, e.creator)
	require.Error(t, err)
	assert.Equal(t, "Product price must be a valid positive number.", err.Error())

	prod, err := e.products.AddProduct(e.ctx, p.ID, ProductInput{Name: "Pipe", Price: decimal.RequireFromString("49.50")}, e.creator)
	require.NoError(t, err)
	assert.Equal(t, 2, prod.SortOrder)
	assert.Equal(t, "149.50", e.project(t, p.ID).TotalAmount.StringFixed(2))
}

func TestProductChangesFrozenByContributions(t *testing.T) {
	e := newTestEnv(t)
	p := e.createProject(t, 100, 200)
	products, err := e.products.ListProducts(e.ctx, p.ID)
	require.NoError(t, err)
	e.contribute(t, p.ID, e.newUser(t, "donor@example.com"), 50, models.ContributionActive)

	_, err = e.products.AddProduct(e.ctx, p.ID, ProductInput{Name: "Extra", Price: decimal.NewFromInt(10)}, e.creator)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindIntegrityGuard))

	price := decimal.NewFromInt(150)
	_, err = e.products.UpdateProduct(e.ctx, products[0].ID, UpdateProductInput{Price: &price}, e.creator)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindIntegrityGuard))

	name := "Solar pump"
	updated, err := e.products.UpdateProduct(e.ctx, products[0].ID, UpdateProductInput{Name: &name}, e.creator)
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)

	err = e.products.DeleteProduct(e.ctx, products[1].ID, e.creator)
	require.Error(t, err)
	assert.Equal(t, "Cannot delete product that is referenced by existing contributions.", err.Error())

	assert.True(t, decimal.NewFromInt(300).Equal(e.project(t, p.ID).TotalAmount))
}

func TestUpdateAndDeleteProductRecomputeTotal(t *testing.T) {
	e := newTestEnv(t)
	p := e.createProject(t, 100, 200)
	products, err := e.products.ListProducts(e.ctx, p.ID)
	require.NoError(t, err)

	price := decimal.NewFromInt(250)
	_, err = e.products.UpdateProduct(e.ctx, products[0].ID, UpdateProductInput{Price: &price}, e.creator)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(450).Equal(e.project(t, p.ID).TotalAmount))

	require.NoError(t, e.products.DeleteProduct(e.ctx, products[1].ID, e.creator))
	assert.True(t, decimal.NewFromInt(250).Equal(e.project(t, p.ID).TotalAmount))

	_, err = e.products.GetProduct(e.ctx, products[1].ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestDeleteProductCompactsSortOrder(t *testing.T) {
	e := newTestEnv(t)
	p := e.createProject(t, 100, 200, 300)
	products, err := e.products.ListProducts(e.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, products, 3)

	require.NoError(t, e.products.DeleteProduct(e.ctx, products[0].ID, e.creator))
	added, err := e.products.AddProduct(e.ctx, p.ID, ProductInput{Name: "Item D", Price: decimal.NewFromInt(400)}, e.creator)
	require.NoError(t, err)
	assert.Equal(t, 3, added.SortOrder)

	products, err = e.products.ListProducts(e.ctx, p.ID)
	require.NoError(t, err)
	var names []string
	var orders []int
	for _, prod := range products {
		names = append(names, prod.Name)
		orders = append(orders, prod.SortOrder)
	}
	assert.Equal(t, []string{"Item B", "Item C", "Item D"}, names)
	assert.Equal(t, []int{1, 2, 3}, orders)
}

func TestReorderProducts(t *testing.T) {
	e := newTestEnv(t)
	p := e.createProject(t, 1, 2, 3)
	products, err := e.products.ListProducts(e.ctx, p.ID)
	require.NoError(t, err)
	a, b, c := products[0].ID, products[1].ID, products[2].ID

	_, err = e.products.ReorderProducts(e.ctx, p.ID, nil, e.creator)
	require.Error(t, err)
	assert.Equal(t, "Order array cannot be empty.", err.Error())

	reordered, err := e.products.ReorderProducts(e.ctx, p.ID, []uuid.UUID{c, a, uuid.New(), b}, e.creator)
	require.NoError(t, err)
	require.Len(t, reordered, 3)

	order := map[uuid.UUID]int{}
	for _, prod := range reordered {
		order[prod.ID] = prod.SortOrder
	}
	assert.Equal(t, 1, order[c])
	assert.Equal(t, 2, order[a])
	assert.Equal(t, 4, order[b])
}

func TestUploadProductImageReplacesPrevious(t *testing.T) {
	e := newTestEnv(t)
	p := e.createProject(t, 100)
	products, err := e.products.ListProducts(e.ctx, p.ID)
	require.NoError(t, err)
	id := products[0].ID

	_, err = e.products.UploadProductImage(e.ctx, id, []byte("plain text"), e.creator)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	big := append(append([]byte{}, pngBytes...), make([]byte, 2048)...)
	_, err = e.products.UploadProductImage(e.ctx, id, big, e.creator)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	first, err := e.products.UploadProductImage(e.ctx, id, pngBytes, e.creator)
	require.NoError(t, err)
	firstPath := first.ImagePath
	assert.Contains(t, firstPath, p.ID.String())
	assert.Equal(t, "https://img.test/"+firstPath, e.products.ImageURL(firstPath))

	second, err := e.products.UploadProductImage(e.ctx, id, pngBytes, e.creator)
	require.NoError(t, err)
	assert.NotEqual(t, firstPath, second.ImagePath)

	ok, _ := e.images.Exists(context.Background(), firstPath)
	assert.False(t, ok)
	ok, _ = e.images.Exists(context.Background(), second.ImagePath)
	assert.True(t, ok)
}

func TestUploadProductImageUnknownProduct(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.products.UploadProductImage(e.ctx, uuid.New(), pngBytes, e.creator)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	files, _ := e.images.List(context.Background())
	assert.Empty(t, files)
}

func TestCleanupOrphanedImages(t *testing.T) {
	e := newTestEnv(t)
	p := e.createProject(t, 100)
	products, err := e.products.ListProducts(e.ctx, p.ID)
	require.NoError(t, err)

	kept, err := e.products.UploadProductImage(e.ctx, products[0].ID, pngBytes, e.creator)
	require.NoError(t, err)
	orphan, err := e.images.Put(context.Background(), "products/stale", pngBytes)
	require.NoError(t, err)

	deleted, err := e.products.CleanupOrphanedImages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	files, _ := e.images.List(context.Background())
	assert.Equal(t, []string{kept.ImagePath}, files)
	assert.Contains(t, e.images.deleted, orphan)

	deleted, err = e.products.CleanupOrphanedImages(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestImagesDisabled(t *testing.T) {
	products := NewProductService(Options{Store: newTestEnv(t).store})

	_, err := products.CleanupOrphanedImages(context.Background())
	assert.ErrorIs(t, err, ErrImagesDisabled)
	assert.Empty(t, products.ImageURL("products/a.png"))
}
