// Package store provides focused, single-concern data access stores for the
// tenant sync engine.
//
// Each store owns one domain (membership, journal, snapshot, push log) and
// embeds shared helpers (Pool, ID generator, logger) via the Base struct.
// Stores never import each other; shared logic lives in this file or in
// dedicated helper files (materialize.go).
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/clemoseitano/open-inventory-api/internal/dbpool"
	"github.com/clemoseitano/open-inventory-api/internal/idgen"
)

const defaultQueryTimeout = 30 * time.Second

// Base contains shared dependencies for all stores.
// Embed this in each store struct.
type Base struct {
	Pool *dbpool.Pool
	Log  *logrus.Logger
	IDs  *idgen.Generator
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// lockTenant serializes same-tenant writers for the remainder of the
// transaction. Writers for other tenants are unaffected; readers never take
// the lock.
func lockTenant(ctx context.Context, tx pgx.Tx, tenantID int64) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", tenantID); err != nil {
		return fmt.Errorf("acquiring tenant write lock: %w", err)
	}

	return nil
}

// hashAPIKey returns the hex SHA-256 of an API key. Only hashes are stored.
func hashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))

	return hex.EncodeToString(hash[:])
}
