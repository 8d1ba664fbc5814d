package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clemoseitano/open-inventory-api/internal/models"
)

// purgeBatchSize limits rows deleted per transaction during retention purge
// to keep transactions short and avoid long lock holds.
const purgeBatchSize = 5000

// JournalStore owns the per-tenant action journal and the materialized
// snapshot it drives. Journal append and snapshot mutation always happen in
// the same transaction under the tenant write lock.
type JournalStore struct {
	Base
}

// NewJournalStore creates a JournalStore.
func NewJournalStore(base Base) *JournalStore {
	return &JournalStore{Base: base}
}

// BatchResult summarizes one accepted push batch.
type BatchResult struct {
	Applied      int
	Deduplicated int
	AppliedKinds map[models.ActionKind]int
}

// ApplyBatch journals and materializes a validated batch of actions for one
// tenant. The whole batch is one transaction: either every new action is
// journaled and applied, or none are. Actions already present in the journal
// (same tenant, same action ID) are skipped without re-applying their effects.
//
// server_ts is taken per row with clock_timestamp() after the tenant lock is
// held, so acceptance order and timestamp order agree for same-tenant writes.
func (s *JournalStore) ApplyBatch(ctx context.Context, tenantID, memberID int64, actions []models.Action) (BatchResult, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result := BatchResult{AppliedKinds: make(map[models.ActionKind]int)}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("beginning batch transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockTenant(ctx, tx, tenantID); err != nil {
		return result, err
	}

	// First write for a tenant initializes its snapshot registry row.
	_, err = tx.Exec(ctx,
		"INSERT INTO snapshots (tenant_id) VALUES ($1) ON CONFLICT DO NOTHING", tenantID)
	if err != nil {
		return result, fmt.Errorf("initializing snapshot: %w", err)
	}

	for i := range actions {
		a := &actions[i]

		entryID, err := s.IDs.Next()
		if err != nil {
			return result, fmt.Errorf("allocating journal id: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO sync_journal (id, tenant_id, member_id, action_id, kind, payload, server_ts)
			VALUES ($1, $2, $3, $4, $5, $6, clock_timestamp())
			ON CONFLICT (tenant_id, action_id) DO NOTHING`,
			entryID, tenantID, memberID, a.ID, a.Kind, a.Payload,
		)
		if err != nil {
			return result, fmt.Errorf("journaling action %q: %w", a.ID, err)
		}

		// Conflict means this action ID was accepted before; its effects
		// are already in the snapshot.
		if tag.RowsAffected() == 0 {
			result.Deduplicated++

			continue
		}

		if err := materialize(ctx, tx, s.IDs, tenantID, a.Kind, a.Payload); err != nil {
			return result, fmt.Errorf("applying action %q: %w", a.ID, err)
		}

		result.Applied++
		result.AppliedKinds[a.Kind]++
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("committing batch: %w", err)
	}

	return result, nil
}

// EntriesSince returns journal entries for a tenant newer than the since
// watermark, in acceptance order, excluding entries authored by
// excludeMemberID so pollers never receive their own writes back.
//
// A nil since means "from the beginning". A non-nil since older than the
// oldest retained entry returns ErrStaleCursor: the purge horizon has moved
// past the client's watermark and incremental catch-up is no longer sound.
func (s *JournalStore) EntriesSince(ctx context.Context, tenantID int64, since *time.Time, excludeMemberID int64) ([]models.JournalEntry, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if since != nil {
		oldest, err := s.OldestTimestamp(ctx, tenantID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}

		// An empty journal cannot invalidate any cursor.
		if err == nil && since.Before(oldest) {
			return nil, models.ErrStaleCursor
		}
	}

	query := `
		SELECT id, tenant_id, member_id, action_id, kind, payload, server_ts
		FROM sync_journal
		WHERE tenant_id = $1 AND member_id <> $2`
	args := []any{tenantID, excludeMemberID}

	if since != nil {
		query += " AND server_ts > $3"
		args = append(args, *since)
	}

	query += " ORDER BY server_ts, id"

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	entries := []models.JournalEntry{}
	for rows.Next() {
		var e models.JournalEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.MemberID, &e.ActionID, &e.Kind, &e.Payload, &e.ServerTS); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}

	return entries, nil
}

// OldestTimestamp returns the server timestamp of the oldest retained journal
// entry for a tenant. Returns pgx.ErrNoRows on an empty journal.
func (s *JournalStore) OldestTimestamp(ctx context.Context, tenantID int64) (time.Time, error) {
	var ts *time.Time

	err := s.Pool.QueryRow(ctx,
		"SELECT min(server_ts) FROM sync_journal WHERE tenant_id = $1", tenantID,
	).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("querying oldest journal entry: %w", err)
	}

	if ts == nil {
		return time.Time{}, pgx.ErrNoRows
	}

	return *ts, nil
}

// LatestTimestamp returns the server timestamp of the newest journal entry
// for a tenant, or the zero time on an empty journal. It is the cursor a
// client adopts after a full snapshot download.
func (s *JournalStore) LatestTimestamp(ctx context.Context, tenantID int64) (time.Time, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var ts *time.Time

	err := s.Pool.QueryRow(ctx,
		"SELECT max(server_ts) FROM sync_journal WHERE tenant_id = $1", tenantID,
	).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("querying latest journal entry: %w", err)
	}

	if ts == nil {
		return time.Time{}, nil
	}

	return *ts, nil
}

// PurgeOld deletes journal entries older than the retention window across all
// tenants, in small batches so each delete transaction stays short. Returns
// the number of rows deleted.
//
// Snapshots already include the effects of purged entries, so purging loses
// no state; it only moves the horizon behind which clients must full-resync.
func (s *JournalStore) PurgeOld(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)

	var total int64

	for {
		ctx, cancel := withTimeout(ctx)

		tag, err := s.Pool.Exec(ctx, `
			DELETE FROM sync_journal
			WHERE ctid IN (
				SELECT ctid FROM sync_journal
				WHERE server_ts < $1
				LIMIT $2
			)`, cutoff, purgeBatchSize)

		cancel()

		if err != nil {
			return total, fmt.Errorf("purging journal batch: %w", err)
		}

		total += tag.RowsAffected()

		if tag.RowsAffected() < purgeBatchSize {
			return total, nil
		}
	}
}

// RebuildSnapshot wipes a tenant's materialized rows and refolds the retained
// journal into them, all in one transaction under the tenant lock. It is an
// operator recovery tool: the result reflects only the retained window, so it
// is meaningful when the journal is complete (or after restoring a backup).
func (s *JournalStore) RebuildSnapshot(ctx context.Context, tenantID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning rebuild transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockTenant(ctx, tx, tenantID); err != nil {
		return 0, err
	}

	for _, table := range []string{"pos_sale_items", "pos_sales", "pos_stock_lots", "pos_customers", "pos_products"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE tenant_id = $1", tenantID); err != nil {
			return 0, fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	rows, err := tx.Query(ctx, `
		SELECT kind, payload FROM sync_journal
		WHERE tenant_id = $1
		ORDER BY server_ts, id`, tenantID)
	if err != nil {
		return 0, fmt.Errorf("reading journal for rebuild: %w", err)
	}

	type pending struct {
		kind    models.ActionKind
		payload json.RawMessage
	}

	// Drain the cursor before issuing writes on the same connection.
	var replay []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.kind, &p.payload); err != nil {
			rows.Close()

			return 0, fmt.Errorf("scanning journal for rebuild: %w", err)
		}

		replay = append(replay, p)
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating journal for rebuild: %w", err)
	}

	for i, p := range replay {
		if err := materialize(ctx, tx, s.IDs, tenantID, p.kind, p.payload); err != nil {
			return 0, fmt.Errorf("replaying entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}

	return len(replay), nil
}
