package api

import (
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/sannu-sannu/sannu-server/internal/apperrors"
	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/policy"
	"github.com/sannu-sannu/sannu-server/internal/service"
)

// projectProduct loads {product} and checks it belongs to the project.
func (s *RESTServer) projectProduct(w http.ResponseWriter, r *http.Request, p *models.Project) (*models.Product, bool) {
	id, ok := s.uuidParam(w, r, "product")
	if !ok {
		return nil, false
	}

	product, err := s.products.GetProduct(r.Context(), id)
	if err == nil && product.ProjectID != p.ID {
		err = apperrors.NotFound("product")
	}
	if err != nil {
		s.respondErr(w, err)
		return nil, false
	}
	return product, true
}

// HandleAddProduct adds a product to a project.
func (s *RESTServer) HandleAddProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := s.authorizedProject(w, r, policy.ActionManageProducts)
	if !ok {
		return
	}

	var in service.ProductInput
	if !s.decode(w, r, &in) {
		return
	}

	product, err := s.products.AddProduct(r.Context(), p.ID, in, subjectFrom(r.Context()).UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, s.productViews([]*models.Product{product})[0])
}

// HandleUpdateProduct changes a product's name, description or price.
func (s *RESTServer) HandleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := s.authorizedProject(w, r, policy.ActionManageProducts)
	if !ok {
		return
	}
	product, ok := s.projectProduct(w, r, p)
	if !ok {
		return
	}

	var in service.UpdateProductInput
	if !s.decode(w, r, &in) {
		return
	}

	updated, err := s.products.UpdateProduct(r.Context(), product.ID, in, subjectFrom(r.Context()).UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.productViews([]*models.Product{updated})[0])
}

// HandleDeleteProduct removes a product.
func (s *RESTServer) HandleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := s.authorizedProject(w, r, policy.ActionManageProducts)
	if !ok {
		return
	}
	product, ok := s.projectProduct(w, r, p)
	if !ok {
		return
	}

	if err := s.products.DeleteProduct(r.Context(), product.ID, subjectFrom(r.Context()).UserID); err != nil {
		s.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReorderProducts applies a new display order.
func (s *RESTServer) HandleReorderProducts(w http.ResponseWriter, r *http.Request) {
	p, ok := s.authorizedProject(w, r, policy.ActionManageProducts)
	if !ok {
		return
	}

	var req struct {
		Order []uuid.UUID `json:"order" validate:"required,min=1"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	products, err := s.products.ReorderProducts(r.Context(), p.ID, req.Order, subjectFrom(r.Context()).UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"products": s.productViews(products)})
}

// HandleUploadProductImage stores the multipart "image" field as the
// product's image.
func (s *RESTServer) HandleUploadProductImage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.authorizedProject(w, r, policy.ActionManageProducts)
	if !ok {
		return
	}
	product, ok := s.projectProduct(w, r, p)
	if !ok {
		return
	}

	maxBytes := s.config.Images.MaxBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.respondErr(w, apperrors.Validation("image", "The image failed to upload."))
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		s.respondErr(w, apperrors.Validation("image", "The image field is required."))
		return
	}
	defer file.Close()

	// One extra byte lets the size check see oversized uploads.
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		s.respondErr(w, apperrors.Validation("image", "The image failed to upload."))
		return
	}

	updated, err := s.products.UploadProductImage(r.Context(), product.ID, data, subjectFrom(r.Context()).UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.productViews([]*models.Product{updated})[0])
}
