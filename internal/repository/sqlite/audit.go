package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/gthanks/internal/model"
	"github.com/sakif/gthanks/internal/repository"
)

var _ repository.AuditRepository = (*DB)(nil)

// InsertAudit stores an audit entry. Details are kept as a JSON object.
func (db *DB) InsertAudit(ctx context.Context, entry *model.AuditEntry) error {
	entry.ID = xid.New().String()
	entry.CreatedAt = now()

	details := []byte("{}")
	if len(entry.Details) > 0 {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("sqlite: encoding audit details: %w", err)
		}
		details = b
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO audit_logs (id, actor_id, action, resource_type, resource_id, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ActorID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		string(details),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting audit entry %s: %w", entry.Action, err)
	}
	return nil
}

// DeleteAuditBefore removes audit rows created before cutoff.
func (db *DB) DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM audit_logs WHERE created_at < ?`, cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting audit entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}

// ListAudit returns the most recent audit entries, newest first.
func (db *DB) ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, actor_id, action, resource_type, resource_id, details, created_at
		 FROM audit_logs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AuditEntry, 0)
	for rows.Next() {
		var (
			e       model.AuditEntry
			details string
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.ResourceType, &e.ResourceID, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning audit row: %w", err)
		}
		if details != "" && details != "{}" {
			if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
				return nil, fmt.Errorf("sqlite: decoding audit details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating audit entries: %w", err)
	}
	return entries, nil
}
