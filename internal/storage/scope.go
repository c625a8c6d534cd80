package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sannu-sannu/sannu-server/internal/tenancy"
)

// writeScope resolves the scope and checks that tenantID may be written in it.
func writeScope(ctx context.Context, tenantID uuid.UUID) (tenancy.Scope, error) {
	scope, err := tenancy.FromContext(ctx)
	if err != nil {
		return scope, err
	}
	if !scope.Allows(tenantID) {
		return scope, ErrOutOfScope
	}
	return scope, nil
}

// resolveTenant fills a missing tenant id from the scope before a write.
func resolveTenant(ctx context.Context, tenantID *uuid.UUID) (tenancy.Scope, error) {
	if *tenantID == uuid.Nil {
		if id, ok := tenancy.TenantID(ctx); ok {
			*tenantID = id
		} else {
			return tenancy.Scope{}, fmt.Errorf("%w: tenant id required", ErrInvalidData)
		}
	}
	return writeScope(ctx, *tenantID)
}
