package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sannu-sannu/sannu-server/internal/models"
)

// CreateAuditLog creates an audit log entry
func (s *PostgresStore) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
        INSERT INTO audit_logs (
            id, created_at, tenant_id, actor_id, action, subject_type, subject_id,
            description, old_values, new_values, context, ip_address, user_agent
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.getDB().ExecContext(ctx, query,
		entry.ID, entry.CreatedAt, entry.TenantID, entry.ActorID, entry.Action,
		entry.SubjectType, entry.SubjectID, entry.Description, entry.OldValues,
		entry.NewValues, entry.Context, entry.IPAddress, entry.UserAgent,
	)

	return err
}

// ListAuditLogs lists audit logs with filters
func (s *PostgresStore) ListAuditLogs(ctx context.Context, filters AuditLogFilters, limit, offset int) ([]*models.AuditLog, int64, error) {
	// Build query with filters
	query := "SELECT COUNT(*) FROM audit_logs WHERE 1=1"
	args := []interface{}{}
	argCount := 0

	if filters.TenantID != nil {
		argCount++
		query += fmt.Sprintf(" AND tenant_id = $%d", argCount)
		args = append(args, *filters.TenantID)
	}

	if filters.ActorID != nil {
		argCount++
		query += fmt.Sprintf(" AND actor_id = $%d", argCount)
		args = append(args, *filters.ActorID)
	}

	if filters.SubjectType != nil {
		argCount++
		query += fmt.Sprintf(" AND subject_type = $%d", argCount)
		args = append(args, *filters.SubjectType)
	}

	if filters.SubjectID != nil {
		argCount++
		query += fmt.Sprintf(" AND subject_id = $%d", argCount)
		args = append(args, *filters.SubjectID)
	}

	if filters.Action != nil {
		argCount++
		query += fmt.Sprintf(" AND action = $%d", argCount)
		args = append(args, *filters.Action)
	}

	if filters.StartTime != nil {
		argCount++
		query += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *filters.StartTime)
	}

	if filters.EndTime != nil {
		argCount++
		query += fmt.Sprintf(" AND created_at <= $%d", argCount)
		args = append(args, *filters.EndTime)
	}

	// Get count
	var count int64
	err := s.getDB().QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	// Get rows
	selectQuery := strings.Replace(query, "SELECT COUNT(*)",
		"SELECT id, created_at, tenant_id, actor_id, action, subject_type, subject_id, description, old_values, new_values, context, ip_address, user_agent", 1)

	argCount++
	selectQuery += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argCount)
	args = append(args, limit)

	argCount++
	selectQuery += fmt.Sprintf(" OFFSET $%d", argCount)
	args = append(args, offset)

	rows, err := s.getDB().QueryContext(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*models.AuditLog
	for rows.Next() {
		entry := &models.AuditLog{}
		err := rows.Scan(
			&entry.ID, &entry.CreatedAt, &entry.TenantID, &entry.ActorID, &entry.Action,
			&entry.SubjectType, &entry.SubjectID, &entry.Description, &entry.OldValues,
			&entry.NewValues, &entry.Context, &entry.IPAddress, &entry.UserAgent,
		)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}

	return entries, count, rows.Err()
}
