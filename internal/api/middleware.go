package api

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sannu-sannu/sannu-server/internal/apperrors"
	"github.com/sannu-sannu/sannu-server/internal/audit"
	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/policy"
	"github.com/sannu-sannu/sannu-server/internal/tenancy"
)

type ctxKey int

const (
	subjectKey ctxKey = iota
	tenantKey
)

// subjectFrom returns the acting subject, anonymous when none was set.
func subjectFrom(ctx context.Context) policy.Subject {
	if sub, ok := ctx.Value(subjectKey).(policy.Subject); ok {
		return sub
	}
	return policy.Anonymous()
}

// tenantFrom returns the tenant resolved from the URL.
func tenantFrom(ctx context.Context) *models.Tenant {
	t, _ := ctx.Value(tenantKey).(*models.Tenant)
	return t
}

// requestInfo records the caller's address and agent for audit records.
func requestInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		ctx := audit.WithRequestInfo(r.Context(), ip, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate resolves the bearer token, when present, into a subject.
// Requests without a token continue as anonymous.
func (s *RESTServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		// Parse Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.respondError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		// Validate token
		claims, err := s.auth.ValidateToken(parts[1])
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		sub, err := s.users.Subject(r.Context(), claims.UserID)
		if err != nil {
			s.respondErr(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), subjectKey, sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth rejects anonymous requests.
func (s *RESTServer) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !subjectFrom(r.Context()).Authenticated {
			s.respondErr(w, apperrors.Unauthorized("Authentication required."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// tenantScope resolves {tenant} and scopes every storage call to it.
func (s *RESTServer) tenantScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, err := s.tenants.ResolveTenant(r.Context(), chi.URLParam(r, "tenant"))
		if err != nil {
			s.respondErr(w, err)
			return
		}

		ctx := tenancy.WithTenant(r.Context(), t.ID)
		ctx = context.WithValue(ctx, tenantKey, t)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// systemOnly admits system actors and lifts tenant scoping for them.
func (s *RESTServer) systemOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !subjectFrom(r.Context()).SystemAdmin {
			s.respondErr(w, apperrors.Forbidden(""))
			return
		}
		next.ServeHTTP(w, r.WithContext(tenancy.WithoutScope(r.Context())))
	})
}
