// Package tenancy carries the acting tenant through a request context so that
// every persistence call is confined to it.
package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNoScope is returned when a tenant-owned query runs without a scope.
var ErrNoScope = errors.New("no tenant scope in context")

type scopeKey struct{}

// Scope is the tenant restriction active for a request.
type Scope struct {
	TenantID uuid.UUID
	bypass   bool
}

// WithTenant returns a context confined to tenantID. It replaces any scope
// set on a parent context.
func WithTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, scopeKey{}, Scope{TenantID: tenantID})
}

// WithoutScope returns a context that may read and write across tenants.
// Only system-level actors and background jobs should use it.
func WithoutScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, Scope{bypass: true})
}

// FromContext returns the scope set on ctx.
func FromContext(ctx context.Context) (Scope, error) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	if !ok {
		return Scope{}, ErrNoScope
	}
	return s, nil
}

// TenantID returns the scoped tenant, or false when unscoped or bypassed.
func TenantID(ctx context.Context) (uuid.UUID, bool) {
	s, err := FromContext(ctx)
	if err != nil || s.bypass {
		return uuid.Nil, false
	}
	return s.TenantID, true
}

// Bypassed reports whether the scope spans all tenants.
func (s Scope) Bypassed() bool {
	return s.bypass
}

// Allows reports whether a row owned by tenantID is visible in this scope.
func (s Scope) Allows(tenantID uuid.UUID) bool {
	return s.bypass || s.TenantID == tenantID
}

// Clause returns an SQL condition restricting column to the scoped tenant,
// using placeholder $next, along with its argument. Bypassed scopes return
// an empty clause and no args.
func (s Scope) Clause(column string, next int) (string, []interface{}) {
	if s.bypass {
		return "", nil
	}
	return fmt.Sprintf(" AND %s = $%d", column, next), []interface{}{s.TenantID}
}
