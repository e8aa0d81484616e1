package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/firmkeeper/internal/model"
)

// Add appends a record to the audit trail.
// Duplicate record ids are ignored.
func (s *Store) Add(ctx context.Context, rec model.AuditRecord) error {
	details, err := marshalDoc(rec.Details)
	if err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log
		(id, tenant_id, action, actor_id, target_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.TenantID,
		rec.Action,
		rec.ActorID,
		rec.TargetID,
		details,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}

// AuditRecords returns the tenant's audit trail, oldest first.
func (s *Store) AuditRecords(ctx context.Context, tenantID string) ([]model.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, action, actor_id, target_id, details, created_at
		FROM audit_log
		WHERE tenant_id = ?
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("read audit records: %w", err)
	}
	defer rows.Close()

	var out []model.AuditRecord
	for rows.Next() {
		var (
			rec       model.AuditRecord
			details   string
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.Action, &rec.ActorID, &rec.TargetID, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("read audit records: scan: %w", err)
		}
		if rec.Details, err = unmarshalDetails(details); err != nil {
			return nil, fmt.Errorf("read audit record %s: %w", rec.ID, err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("read audit record %s: timestamp: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read audit records: %w", err)
	}
	return out, nil
}
