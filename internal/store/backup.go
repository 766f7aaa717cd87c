package store

import (
	"context"
	"fmt"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

// Upsert stores op, replacing any pending operation with the same (kind, id).
// Calling it twice with the same op leaves one row.
func (s *Store) Upsert(ctx context.Context, op model.PendingOperation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backup_items (kind, id, action, snapshot, idempotency_key, queued_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			action = excluded.action,
			snapshot = excluded.snapshot,
			idempotency_key = excluded.idempotency_key,
			queued_at = excluded.queued_at
	`,
		string(op.Kind),
		op.ID,
		string(op.Action),
		string(op.Snapshot),
		op.IdempotencyKey,
		formatTime(op.QueuedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert backup %s: %w", op, err)
	}
	return nil
}

// Remove deletes the pending operation for (kind, id). Absent rows are a no-op.
func (s *Store) Remove(ctx context.Context, kind model.Kind, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM backup_items WHERE kind = ? AND id = ?", string(kind), id); err != nil {
		return fmt.Errorf("remove backup %s/%d: %w", kind, id, err)
	}
	return nil
}

// ListAll returns every pending operation ordered by id, then kind.
// Returns an empty slice (not nil) when the queue is empty.
func (s *Store) ListAll(ctx context.Context) ([]model.PendingOperation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, id, action, snapshot, idempotency_key, queued_at
		FROM backup_items
		ORDER BY id ASC, kind ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query backup items: %w", err)
	}
	defer rows.Close()

	ops := []model.PendingOperation{}
	for rows.Next() {
		var (
			op                     model.PendingOperation
			kind, action, snapshot string
			queuedAt               string
		)
		if err := rows.Scan(&kind, &op.ID, &action, &snapshot, &op.IdempotencyKey, &queuedAt); err != nil {
			return nil, fmt.Errorf("scan backup item: %w", err)
		}
		if op.Kind, err = model.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("backup item %d: %w", op.ID, err)
		}
		if op.Action, err = model.ParseAction(action); err != nil {
			return nil, fmt.Errorf("backup item %d: %w", op.ID, err)
		}
		if op.QueuedAt, err = parseTime(queuedAt); err != nil {
			return nil, fmt.Errorf("backup item %d: %w", op.ID, err)
		}
		op.Snapshot = []byte(snapshot)
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backup items: %w", err)
	}
	return ops, nil
}
