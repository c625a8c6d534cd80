package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sannu-sannu/sannu-server/internal/apperrors"
)

type productRequest struct {
	Name  string          `json:"name" validate:"required,max=255"`
	Price decimal.Decimal `json:"price" validate:"gt=0"`
}

type tenantRequest struct {
	Slug  string `json:"slug" validate:"required,slug"`
	Email string `json:"email" validate:"omitempty,email"`
}

func TestValidateOK(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&productRequest{Name: "Pipe", Price: decimal.NewFromInt(10)}))
	assert.NoError(t, v.Validate(tenantRequest{Slug: "lagos-coop-2"}))
}

func TestValidateFieldMessages(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&productRequest{Price: decimal.NewFromInt(-5)})
	require.Error(t, err)

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Equal(t, "The name field is required.", appErr.Fields["name"])
	assert.Equal(t, "The price must be greater than 0.", appErr.Fields["price"])
}

func TestValidateSlug(t *testing.T) {
	v := NewValidator()

	err := v.Validate(tenantRequest{Slug: "Not A Slug", Email: "nope"})

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields["slug"], "lowercase letters")
	assert.Equal(t, "The email must be a valid email address.", appErr.Fields["email"])
}
