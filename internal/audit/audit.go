// Package audit writes immutable audit log records.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sannu-sannu/sannu-server/internal/models"
	"github.com/sannu-sannu/sannu-server/internal/storage"
)

type requestInfoKey struct{}

// RequestInfo describes the client that issued the current request.
type RequestInfo struct {
	IPAddress string
	UserAgent string
}

// WithRequestInfo attaches client details that Record copies into each entry.
func WithRequestInfo(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, RequestInfo{IPAddress: ip, UserAgent: userAgent})
}

// RequestInfoFrom returns the client details stored in ctx, if any.
func RequestInfoFrom(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info
}

// Entry is what a caller knows about the change being recorded.
type Entry struct {
	TenantID    uuid.UUID
	ActorID     uuid.UUID
	Action      models.AuditAction
	SubjectType string
	SubjectID   uuid.UUID
	Description string
	OldValues   models.Variables
	NewValues   models.Variables
	Context     models.Variables
}

// Record persists e through st. Pass the transaction store so the entry
// commits or rolls back together with the change it describes.
func Record(ctx context.Context, st storage.Store, e Entry) error {
	info := RequestInfoFrom(ctx)

	log := &models.AuditLog{
		Action:      e.Action,
		SubjectType: e.SubjectType,
		SubjectID:   e.SubjectID,
		Description: e.Description,
		OldValues:   e.OldValues,
		NewValues:   e.NewValues,
		Context:     e.Context,
		IPAddress:   info.IPAddress,
		UserAgent:   info.UserAgent,
	}
	if e.TenantID != uuid.Nil {
		id := e.TenantID
		log.TenantID = &id
	}
	if e.ActorID != uuid.Nil {
		id := e.ActorID
		log.ActorID = &id
	}

	if err := st.CreateAuditLog(ctx, log); err != nil {
		return fmt.Errorf("audit %s: %w", e.Action, err)
	}
	return nil
}
