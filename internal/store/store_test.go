package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clemoseitano/open-inventory-api/internal/dbpool"
	"github.com/clemoseitano/open-inventory-api/internal/idgen"
	"github.com/clemoseitano/open-inventory-api/internal/models"
	"github.com/clemoseitano/open-inventory-api/internal/store"
)

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool *dbpool.Pool
	log  *logrus.Logger
	ids  *idgen.Generator
}

var sharedEnv *testEnv

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if sharedEnv != nil {
		return sharedEnv
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := dbpool.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("connecting to test DB: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	sharedEnv = &testEnv{
		pool: pool,
		log:  log,
		ids:  idgen.New(),
	}

	return sharedEnv
}

// setupTestTenant creates a Base with a fresh tenant and one member, cleaned
// up after the test.
func setupTestTenant(t *testing.T) (_ store.Base, tenant *models.Tenant, member *models.Member) {
	t.Helper()

	env := getTestEnv(t)
	ctx := context.Background()
	base := store.Base{Pool: env.pool, Log: env.log, IDs: env.ids}

	slug := "test-" + uuid.NewString()[:8]

	admin := store.NewAdminStore(base)

	tenant, err := admin.CreateTenant(ctx, models.CreateTenantRequest{Slug: slug, Name: "Test " + slug})
	if err != nil {
		t.Fatalf("creating test tenant: %v", err)
	}

	t.Cleanup(func() {
		cleanCtx := context.Background()
		for _, table := range []string{
			"pos_sale_items", "pos_sales", "pos_stock_lots", "pos_customers", "pos_products",
			"sync_journal", "sync_push_log", "snapshots", "tenant_members",
		} {
			env.pool.Exec(cleanCtx, "DELETE FROM "+table+" WHERE tenant_id = $1", tenant.ID) //nolint:errcheck // best-effort cleanup
		}
		env.pool.Exec(cleanCtx, "DELETE FROM tenants WHERE id = $1", tenant.ID) //nolint:errcheck // best-effort cleanup
	})

	member = addTestMember(t, base, slug)

	return base, tenant, member
}

// addTestMember provisions one staff member with a throwaway email. The user
// row is left behind on purpose; emails are unique per test run.
func addTestMember(t *testing.T, base store.Base, tenantSlug string) *models.Member {
	t.Helper()

	admin := store.NewAdminStore(base)

	result, err := admin.CreateMember(context.Background(), models.CreateMemberRequest{
		Tenant: tenantSlug,
		Email:  uuid.NewString() + "@test.invalid",
		Role:   models.RoleStaff,
	})
	if err != nil {
		t.Fatalf("creating test member: %v", err)
	}

	return &result.Member
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()

	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshaling payload: %v", err)
	}

	return raw
}

func productAction(t *testing.T, actionID, productID string, quantity float64) models.Action {
	t.Helper()

	return models.Action{
		ID:   actionID,
		Kind: models.KindUpsertProduct,
		Payload: mustJSON(t, models.UpsertProductPayload{Product: &models.Product{
			ID:       productID,
			Name:     "Paracetamol 500mg",
			Category: "Analgesics",
			Price:    2.50,
			Quantity: quantity,
		}}),
	}
}

func saleAction(t *testing.T, actionID, productID string, quantity float64) models.Action {
	t.Helper()

	return models.Action{
		ID:   actionID,
		Kind: models.KindRecordSale,
		Payload: mustJSON(t, models.RecordSalePayload{Cart: &models.Cart{
			Subtotal: 2.50 * quantity,
			Total:    2.50 * quantity,
			Items:    []models.CartItem{{ProductID: productID, Quantity: quantity, Price: 2.50}},
		}}),
	}
}

func productQuantity(t *testing.T, base store.Base, tenantID int64, productID string) float64 {
	t.Helper()

	var qty float64

	err := base.Pool.QueryRow(context.Background(),
		"SELECT quantity FROM pos_products WHERE tenant_id = $1 AND id = $2",
		tenantID, productID,
	).Scan(&qty)
	if err != nil {
		t.Fatalf("reading product quantity: %v", err)
	}

	return qty
}

func TestApplyBatchIdempotent(t *testing.T) {
	base, tenant, member := setupTestTenant(t)
	journal := store.NewJournalStore(base)
	ctx := context.Background()

	batch := []models.Action{
		productAction(t, "a-1", "prod-1", 10),
		saleAction(t, "a-2", "prod-1", 3),
	}

	first, err := journal.ApplyBatch(ctx, tenant.ID, member.ID, batch)
	if err != nil {
		t.Fatalf("first push: %v", err)
	}

	if first.Applied != 2 || first.Deduplicated != 0 {
		t.Errorf("first push: applied=%d deduped=%d, want 2/0", first.Applied, first.Deduplicated)
	}

	second, err := journal.ApplyBatch(ctx, tenant.ID, member.ID, batch)
	if err != nil {
		t.Fatalf("second push: %v", err)
	}

	if second.Applied != 0 || second.Deduplicated != 2 {
		t.Errorf("second push: applied=%d deduped=%d, want 0/2", second.Applied, second.Deduplicated)
	}

	// Replayed sale must not decrement stock again.
	if got := productQuantity(t, base, tenant.ID, "prod-1"); got != 7 {
		t.Errorf("quantity after duplicate push = %v, want 7", got)
	}
}

func TestApplyBatchPartialDuplicate(t *testing.T) {
	base, tenant, member := setupTestTenant(t)
	journal := store.NewJournalStore(base)
	ctx := context.Background()

	if _, err := journal.ApplyBatch(ctx, tenant.ID, member.ID, []models.Action{
		productAction(t, "a-1", "prod-1", 10),
	}); err != nil {
		t.Fatalf("first push: %v", err)
	}

	// A retried batch carrying one old and one new action applies only the new one.
	result, err := journal.ApplyBatch(ctx, tenant.ID, member.ID, []models.Action{
		productAction(t, "a-1", "prod-1", 10),
		saleAction(t, "a-2", "prod-1", 4),
	})
	if err != nil {
		t.Fatalf("retry push: %v", err)
	}

	if result.Applied != 1 || result.Deduplicated != 1 {
		t.Errorf("retry push: applied=%d deduped=%d, want 1/1", result.Applied, result.Deduplicated)
	}

	if got := productQuantity(t, base, tenant.ID, "prod-1"); got != 6 {
		t.Errorf("quantity = %v, want 6", got)
	}
}

func TestApplyBatchAllowsNegativeStock(t *testing.T) {
	base, tenant, member := setupTestTenant(t)
	journal := store.NewJournalStore(base)
	ctx := context.Background()

	_, err := journal.ApplyBatch(ctx, tenant.ID, member.ID, []models.Action{
		productAction(t, "a-1", "prod-1", 2),
		saleAction(t, "a-2", "prod-1", 5),
	})
	if err != nil {
		t.Fatalf("push: %v", err)
	}

	if got := productQuantity(t, base, tenant.ID, "prod-1"); got != -3 {
		t.Errorf("oversold quantity = %v, want -3", got)
	}
}

func TestApplyBatchTombstone(t *testing.T) {
	base, tenant, member := setupTestTenant(t)
	journal := store.NewJournalStore(base)
	ctx := context.Background()

	_, err := journal.ApplyBatch(ctx, tenant.ID, member.ID, []models.Action{
		productAction(t, "a-1", "prod-1", 5),
		{ID: "a-2", Kind: models.KindDeleteProduct, Payload: mustJSON(t, models.ProductRefPayload{ID: "prod-1"})},
	})
	if err != nil {
		t.Fatalf("push: %v", err)
	}

	var deletedAt *time.Time
	if err := base.Pool.QueryRow(ctx,
		"SELECT deleted_at FROM pos_products WHERE tenant_id = $1 AND id = $2",
		tenant.ID, "prod-1",
	).Scan(&deletedAt); err != nil {
		t.Fatalf("reading tombstone: %v", err)
	}

	if deletedAt == nil {
		t.Fatal("expected deleted_at to be set after DELETE_PRODUCT")
	}

	_, err = journal.ApplyBatch(ctx, tenant.ID, member.ID, []models.Action{
		{ID: "a-3", Kind: models.KindRestoreProduct, Payload: mustJSON(t, models.ProductRefPayload{ID: "prod-1"})},
	})
	if err != nil {
		t.Fatalf("restore push: %v", err)
	}

	if err := base.Pool.QueryRow(ctx,
		"SELECT deleted_at FROM pos_products WHERE tenant_id = $1 AND id = $2",
		tenant.ID, "prod-1",
	).Scan(&deletedAt); err != nil {
		t.Fatalf("reading tombstone after restore: %v", err)
	}

	if deletedAt != nil {
		t.Errorf("expected deleted_at cleared after RESTORE_PRODUCT, got %v", deletedAt)
	}
}

func TestEntriesSinceEchoSuppression(t *testing.T) {
	base, tenant, author := setupTestTenant(t)
	journal := store.NewJournalStore(base)
	ctx := context.Background()

	reader := addTestMember(t, base, tenant.Slug)

	if _, err := journal.ApplyBatch(ctx, tenant.ID, author.ID, []models.Action{
		productAction(t, "a-1", "prod-1", 10),
	}); err != nil {
		t.Fatalf("push: %v", err)
	}

	// The author polling for peers' changes must not see its own write.
	own, err := journal.EntriesSince(ctx, tenant.ID, nil, author.ID)
	if err != nil {
		t.Fatalf("author pull: %v", err)
	}

	if len(own) != 0 {
		t.Errorf("author pull returned %d entries, want 0", len(own))
	}

	peer, err := journal.EntriesSince(ctx, tenant.ID, nil, reader.ID)
	if err != nil {
		t.Fatalf("peer pull: %v", err)
	}

	if len(peer) != 1 {
		t.Fatalf("peer pull returned %d entries, want 1", len(peer))
	}

	if peer[0].ActionID != "a-1" || peer[0].Kind != models.KindUpsertProduct {
		t.Errorf("peer entry = %q/%q, want a-1/UPSERT_PRODUCT", peer[0].ActionID, peer[0].Kind)
	}
}

func TestEntriesSinceCursor(t *testing.T) {
	base, tenant, author := setupTestTenant(t)
	journal := store.NewJournalStore(base)
	ctx := context.Background()

	reader := addTestMember(t, base, tenant.Slug)

	if _, err := journal.ApplyBatch(ctx, tenant.ID, author.ID, []models.Action{
		productAction(t, "a-1", "prod-1", 10),
	}); err != nil {
		t.Fatalf("first push: %v", err)
	}

	cursor, err := journal.LatestTimestamp(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("reading cursor: %v", err)
	}

	if _, err := journal.ApplyBatch(ctx, tenant.ID, author.ID, []models.Action{
		saleAction(t, "a-2", "prod-1", 1),
	}); err != nil {
		t.Fatalf("second push: %v", err)
	}

	entries, err := journal.EntriesSince(ctx, tenant.ID, &cursor, reader.ID)
	if err != nil {
		t.Fatalf("pull since cursor: %v", err)
	}

	if len(entries) != 1 || entries[0].ActionID != "a-2" {
		t.Fatalf("pull since cursor = %+v, want only a-2", entries)
	}

	// A cursor at the newest entry yields nothing.
	latest, err := journal.LatestTimestamp(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("reading latest: %v", err)
	}

	entries, err = journal.EntriesSince(ctx, tenant.ID, &latest, reader.ID)
	if err != nil {
		t.Fatalf("pull at head: %v", err)
	}

	if len(entries) != 0 {
		t.Errorf("pull at head returned %d entries, want 0", len(entries))
	}
}

func TestEntriesSinceStaleCursor(t *testing.T) {
	base, tenant, author := setupTestTenant(t)
	journal := store.NewJournalStore(base)
	ctx := context.Background()

	reader := addTestMember(t, base, tenant.Slug)

	if _, err := journal.ApplyBatch(ctx, tenant.ID, author.ID, []models.Action{
		productAction(t, "a-1", "prod-1", 10),
	}); err != nil {
		t.Fatalf("push: %v", err)
	}

	// A watermark older than the oldest retained entry means purge may have
	// removed entries the client never saw.
	stale := time.Now().Add(-24 * time.Hour)

	_, err := journal.EntriesSince(ctx, tenant.ID, &stale, reader.ID)
	if !errors.Is(err, models.ErrStaleCursor) {
		t.Errorf("pull with stale cursor: err = %v, want ErrStaleCursor", err)
	}

	// An empty journal never invalidates a cursor.
	empty, emptyTenant, emptyMember := setupTestTenant(t)
	emptyJournal := store.NewJournalStore(empty)

	entries, err := emptyJournal.EntriesSince(ctx, emptyTenant.ID, &stale, emptyMember.ID)
	if err != nil {
		t.Fatalf("pull on empty journal: %v", err)
	}

	if len(entries) != 0 {
		t.Errorf("empty journal pull returned %d entries", len(entries))
	}
}

func TestPurgeOldJournal(t *testing.T) {
	base, tenant, member := setupTestTenant(t)
	journal := store.NewJournalStore(base)
	ctx := context.Background()

	if _, err := journal.ApplyBatch(ctx, tenant.ID, member.ID, []models.Action{
		productAction(t, "a-1", "prod-1", 10),
		saleAction(t, "a-2", "prod-1", 1),
	}); err != nil {
		t.Fatalf("push: %v", err)
	}

	// Backdate one entry past the retention horizon.
	if _, err := base.Pool.Exec(ctx,
		"UPDATE sync_journal SET server_ts = now() - interval '40 days' WHERE tenant_id = $1 AND action_id = $2",
		tenant.ID, "a-1",
	); err != nil {
		t.Fatalf("backdating entry: %v", err)
	}

	purged, err := journal.PurgeOld(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("purging: %v", err)
	}

	if purged < 1 {
		t.Errorf("purged = %d, want >= 1", purged)
	}

	var remaining int
	if err := base.Pool.QueryRow(ctx,
		"SELECT count(*) FROM sync_journal WHERE tenant_id = $1", tenant.ID,
	).Scan(&remaining); err != nil {
		t.Fatalf("counting journal: %v", err)
	}

	if remaining != 1 {
		t.Errorf("journal rows remaining = %d, want 1", remaining)
	}

	// The snapshot keeps the purged entry's effects.
	if got := productQuantity(t, base, tenant.ID, "prod-1"); got != 9 {
		t.Errorf("quantity after purge = %v, want 9", got)
	}
}

func TestRebuildSnapshot(t *testing.T) {
	base, tenant, member := setupTestTenant(t)
	journal := store.NewJournalStore(base)
	ctx := context.Background()

	if _, err := journal.ApplyBatch(ctx, tenant.ID, member.ID, []models.Action{
		productAction(t, "a-1", "prod-1", 10),
		saleAction(t, "a-2", "prod-1", 3),
		{ID: "a-3", Kind: models.KindUpsertCustomer, Payload: mustJSON(t, models.UpsertCustomerPayload{ID: "cust-1"})},
	}); err != nil {
		t.Fatalf("push: %v", err)
	}

	// Corrupt the snapshot out-of-band, then rebuild from the journal.
	if _, err := base.Pool.Exec(ctx,
		"UPDATE pos_products SET quantity = 999 WHERE tenant_id = $1", tenant.ID,
	); err != nil {
		t.Fatalf("corrupting snapshot: %v", err)
	}

	replayed, err := journal.RebuildSnapshot(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("rebuilding: %v", err)
	}

	if replayed != 3 {
		t.Errorf("replayed = %d, want 3", replayed)
	}

	if got := productQuantity(t, base, tenant.ID, "prod-1"); got != 7 {
		t.Errorf("quantity after rebuild = %v, want 7", got)
	}

	var customers int
	if err := base.Pool.QueryRow(ctx,
		"SELECT count(*) FROM pos_customers WHERE tenant_id = $1", tenant.ID,
	).Scan(&customers); err != nil {
		t.Fatalf("counting customers: %v", err)
	}

	if customers != 1 {
		t.Errorf("customers after rebuild = %d, want 1", customers)
	}
}

func TestSnapshotExport(t *testing.T) {
	base, tenant, member := setupTestTenant(t)
	journal := store.NewJournalStore(base)
	snapshots := store.NewSnapshotStore(base)
	ctx := context.Background()

	// Fresh tenant: no accepted push means no snapshot.
	_, err := snapshots.Export(ctx, tenant, time.Now())
	if !errors.Is(err, models.ErrSnapshotNotFound) {
		t.Errorf("export before first push: err = %v, want ErrSnapshotNotFound", err)
	}

	stockPayload := mustJSON(t, models.AddStockPayload{Stock: &models.StockLot{
		ProductID: "prod-1",
		Quantity:  20,
		UnitPrice: 1.80,
	}})

	if _, err := journal.ApplyBatch(ctx, tenant.ID, member.ID, []models.Action{
		productAction(t, "a-1", "prod-1", 0),
		{ID: "a-2", Kind: models.KindAddStock, Payload: stockPayload},
		saleAction(t, "a-3", "prod-1", 2),
	}); err != nil {
		t.Fatalf("push: %v", err)
	}

	cursor, err := journal.LatestTimestamp(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("reading cursor: %v", err)
	}

	export, err := snapshots.Export(ctx, tenant, cursor)
	if err != nil {
		t.Fatalf("exporting: %v", err)
	}

	if export.Tenant != tenant.Slug {
		t.Errorf("export tenant = %q, want %q", export.Tenant, tenant.Slug)
	}

	if !export.Cursor.Equal(cursor) {
		t.Errorf("export cursor = %v, want %v", export.Cursor, cursor)
	}

	if len(export.Products) != 1 || len(export.StockLots) != 1 || len(export.Sales) != 1 || len(export.SaleItems) != 1 {
		t.Fatalf("export sizes: products=%d lots=%d sales=%d items=%d, want 1 each",
			len(export.Products), len(export.StockLots), len(export.Sales), len(export.SaleItems))
	}

	if got := export.Products[0].Quantity; got != 18 {
		t.Errorf("exported quantity = %v, want 18", got)
	}

	if export.SaleItems[0].SaleID != export.Sales[0].ID {
		t.Errorf("sale item references sale %d, header is %d", export.SaleItems[0].SaleID, export.Sales[0].ID)
	}
}

func TestAdminStoreProvisioning(t *testing.T) {
	base, tenant, _ := setupTestTenant(t)
	admin := store.NewAdminStore(base)
	membership := store.NewMembershipStore(base)
	ctx := context.Background()

	// Duplicate slug.
	_, err := admin.CreateTenant(ctx, models.CreateTenantRequest{Slug: tenant.Slug, Name: "Again"})
	if !errors.Is(err, models.ErrDuplicateKey) {
		t.Errorf("duplicate tenant: err = %v, want ErrDuplicateKey", err)
	}

	// New member's API key must authenticate and resolve to the tenant.
	email := uuid.NewString() + "@test.invalid"

	result, err := admin.CreateMember(ctx, models.CreateMemberRequest{
		Tenant: tenant.Slug,
		Email:  email,
		Role:   models.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("creating member: %v", err)
	}

	userID, err := membership.GetUserByAPIKey(ctx, result.APIKey)
	if err != nil {
		t.Fatalf("resolving API key: %v", err)
	}

	member, resolved, err := membership.ResolveMember(ctx, userID, tenant.Slug)
	if err != nil {
		t.Fatalf("resolving member: %v", err)
	}

	if member.ID != result.Member.ID || resolved.ID != tenant.ID {
		t.Errorf("resolved member %d tenant %d, want %d/%d", member.ID, resolved.ID, result.Member.ID, tenant.ID)
	}

	if member.Role != models.RoleAdmin {
		t.Errorf("role = %q, want admin", member.Role)
	}

	// Same user joining the same tenant again.
	_, err = admin.CreateMember(ctx, models.CreateMemberRequest{Tenant: tenant.Slug, Email: email, Role: models.RoleStaff})
	if !errors.Is(err, models.ErrDuplicateKey) {
		t.Errorf("duplicate membership: err = %v, want ErrDuplicateKey", err)
	}

	// Unknown tenant.
	_, err = admin.CreateMember(ctx, models.CreateMemberRequest{Tenant: "nope-" + uuid.NewString()[:8], Email: email})
	if !errors.Is(err, models.ErrTenantNotFound) {
		t.Errorf("unknown tenant: err = %v, want ErrTenantNotFound", err)
	}

	// Wrong key.
	_, err = membership.GetUserByAPIKey(ctx, "oik_bogus")
	if !errors.Is(err, models.ErrUserNotFound) {
		t.Errorf("bogus key: err = %v, want ErrUserNotFound", err)
	}
}

func TestPushLogRoundTrip(t *testing.T) {
	base, tenant, member := setupTestTenant(t)
	pushLog := store.NewPushLogStore(base)
	ctx := context.Background()

	batch := json.RawMessage(fmt.Sprintf(`{"tenant":%q,"actions":[{"id":"a-1"}]}`, tenant.Slug))

	if err := pushLog.RecordBatch(ctx, tenant.ID, member.ID, batch); err != nil {
		t.Fatalf("recording batch: %v", err)
	}

	entries, err := pushLog.Query(ctx, tenant.ID, models.PushLogQueryOpts{})
	if err != nil {
		t.Fatalf("querying push log: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("push log entries = %d, want 1", len(entries))
	}

	if entries[0].MemberID != member.ID {
		t.Errorf("member_id = %d, want %d", entries[0].MemberID, member.ID)
	}

	// Backdate and purge.
	if _, err := base.Pool.Exec(ctx,
		"UPDATE sync_push_log SET received_at = now() - interval '2 days' WHERE tenant_id = $1", tenant.ID,
	); err != nil {
		t.Fatalf("backdating push log: %v", err)
	}

	purged, err := pushLog.PurgeOld(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("purging push log: %v", err)
	}

	if purged < 1 {
		t.Errorf("purged = %d, want >= 1", purged)
	}
}
