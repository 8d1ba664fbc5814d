package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clemoseitano/open-inventory-api/internal/models"
)

// PushLogStore records raw push batches for diagnostics. The sync protocol
// never reads this table; it exists so operators can inspect what a device
// actually sent when a snapshot looks wrong.
type PushLogStore struct {
	Base
}

// NewPushLogStore creates a PushLogStore.
func NewPushLogStore(base Base) *PushLogStore {
	return &PushLogStore{Base: base}
}

// RecordBatch stores one received batch verbatim.
func (s *PushLogStore) RecordBatch(ctx context.Context, tenantID, memberID int64, batch json.RawMessage) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	id, err := s.IDs.Next()
	if err != nil {
		return fmt.Errorf("allocating push log id: %w", err)
	}

	_, err = s.Pool.Exec(ctx,
		"INSERT INTO sync_push_log (id, tenant_id, member_id, batch) VALUES ($1, $2, $3, $4)",
		id, tenantID, memberID, batch,
	)
	if err != nil {
		return fmt.Errorf("recording push batch: %w", err)
	}

	return nil
}

// Query returns push log entries for a tenant, newest first.
func (s *PushLogStore) Query(ctx context.Context, tenantID int64, opts models.PushLogQueryOpts) ([]models.PushLogEntry, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if opts.Limit <= 0 || opts.Limit > 500 {
		opts.Limit = 100
	}

	query := "SELECT id, tenant_id, member_id, batch, received_at FROM sync_push_log WHERE tenant_id = $1"
	args := []any{tenantID}

	if opts.Since != nil {
		query += fmt.Sprintf(" AND received_at >= $%d", len(args)+1)
		args = append(args, *opts.Since)
	}

	query += fmt.Sprintf(" ORDER BY received_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying push log: %w", err)
	}
	defer rows.Close()

	entries := []models.PushLogEntry{}
	for rows.Next() {
		var e models.PushLogEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.MemberID, &e.Batch, &e.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scanning push log entry: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating push log: %w", err)
	}

	return entries, nil
}

// PurgeOld deletes push log entries older than the retention window, in
// batches. Returns the number of rows deleted.
func (s *PushLogStore) PurgeOld(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)

	var total int64

	for {
		ctx, cancel := withTimeout(ctx)

		tag, err := s.Pool.Exec(ctx, `
			DELETE FROM sync_push_log
			WHERE ctid IN (
				SELECT ctid FROM sync_push_log
				WHERE received_at < $1
				LIMIT $2
			)`, cutoff, purgeBatchSize)

		cancel()

		if err != nil {
			return total, fmt.Errorf("purging push log batch: %w", err)
		}

		total += tag.RowsAffected()

		if tag.RowsAffected() < purgeBatchSize {
			return total, nil
		}
	}
}
