package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidTransitionMessage(t *testing.T) {
	err := InvalidTransition("Draft", "Paused")

	assert.Equal(t, "Invalid transition from Draft to Paused", err.Error())
	assert.Equal(t, "Draft", err.Metadata["from"])
	assert.Equal(t, "Paused", err.Metadata["to"])
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("activate: %w", IntegrityGuard("total_amount", "locked"))

	assert.True(t, IsKind(err, KindIntegrityGuard))
	assert.Equal(t, http.StatusConflict, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{Validation("name", "Product name is required."), http.StatusUnprocessableEntity},
		{InvalidTransition("Active", "Draft"), http.StatusConflict},
		{Forbidden(""), http.StatusForbidden},
		{Unauthorized("missing token"), http.StatusUnauthorized},
		{NotFound("project"), http.StatusNotFound},
		{Conflict("stale", nil), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), "%v", tc.err)
	}
}

func TestValidationFieldsSingleMessage(t *testing.T) {
	err := ValidationFields(map[string]string{"end_date": "End date must be after start date"})

	assert.Equal(t, "End date must be after start date", err.Error())
	assert.Equal(t, KindValidation, err.Kind)
}

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NotFound("product"))

	assert.True(t, errors.Is(err, &Error{Kind: KindNotFound}))
	assert.False(t, errors.Is(err, &Error{Kind: KindConflict}))
}
