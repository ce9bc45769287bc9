package db

import (
	"context"
	"time"
)

const insertAuditLog = `
INSERT INTO audit_log ("id", "action", "performed_by", "target_id", "target_type", "tenant_id", "metadata", "created_at")
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8)
`

type InsertAuditLogParams struct {
	ID          string
	Action      string
	PerformedBy string
	TargetID    string
	TargetType  string
	TenantID    string
	Metadata    string
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	_, err := q.db.ExecContext(ctx, insertAuditLog,
		arg.ID,
		arg.Action,
		arg.PerformedBy,
		arg.TargetID,
		arg.TargetType,
		arg.TenantID,
		arg.Metadata,
		time.Now().Unix(),
	)
	return err
}

const listAuditLogsByAction = `
SELECT id, action, performed_by, target_id, target_type, tenant_id, metadata, created_at
FROM audit_log WHERE action = ?1 ORDER BY created_at
`

func (q *Queries) ListAuditLogsByAction(ctx context.Context, action string) ([]AuditLog, error) {
	rows, err := q.db.QueryContext(ctx, listAuditLogsByAction, action)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditLog
	for rows.Next() {
		var i AuditLog
		var createdAtUnix int64
		if err := rows.Scan(
			&i.ID,
			&i.Action,
			&i.PerformedBy,
			&i.TargetID,
			&i.TargetType,
			&i.TenantID,
			&i.Metadata,
			&createdAtUnix,
		); err != nil {
			return nil, err
		}
		i.CreatedAt = time.Unix(createdAtUnix, 0)
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
