package client

import (
	"encoding/json"
	"time"
)

// HealthResponse is the liveness check payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	WSClients     int     `json:"ws_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Action is one client-originated mutation. ID is the idempotency key and
// must be unique within the tenant; generate it once when the action is
// recorded locally and reuse it on every retry.
type Action struct {
	ID              string          `json:"id"`
	Kind            string          `json:"kind"`
	Payload         json.RawMessage `json:"payload"`
	ClientTimestamp *time.Time      `json:"clientTimestamp,omitempty"`
}

// Action kinds accepted by the server.
const (
	KindUpsertProduct  = "UPSERT_PRODUCT"
	KindAddStock       = "ADD_STOCK"
	KindRecordSale     = "RECORD_SALE"
	KindUpsertCustomer = "UPSERT_CUSTOMER"
	KindDeleteProduct  = "DELETE_PRODUCT"
	KindRestoreProduct = "RESTORE_PRODUCT"
)

// PushResult reports how the server disposed of a pushed batch.
type PushResult struct {
	Applied      int
	Deduplicated int
}

// JournalEntry is one accepted action replayed on pull.
type JournalEntry struct {
	ActionID string          `json:"id"`
	Kind     string          `json:"kind"`
	Payload  json.RawMessage `json:"payload"`
	ServerTS time.Time       `json:"createdAt"`
}

// PullResponse is the body of a successful incremental pull.
type PullResponse struct {
	Entries []JournalEntry `json:"entries"`
}

// ProductRow is a materialized product in a snapshot export.
type ProductRow struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Category      string     `json:"category"`
	Manufacturer  *string    `json:"manufacturer"`
	Barcode       *string    `json:"barcode"`
	Price         float64    `json:"price"`
	Tax           float64    `json:"tax"`
	IsTaxFlatRate bool       `json:"isTaxFlatRate"`
	Quantity      float64    `json:"quantity"`
	ImagePath     *string    `json:"imagePath"`
	Section       *string    `json:"section"`
	Shelf         *string    `json:"shelf"`
	DeletedAt     *time.Time `json:"deletedAt"`
}

// StockLotRow is one received stock lot in a snapshot export.
type StockLotRow struct {
	ID              int64   `json:"id,string"`
	ProductID       string  `json:"productId"`
	Supplier        *string `json:"supplier"`
	SupplierContact *string `json:"supplierContact"`
	UnitPrice       float64 `json:"unitPrice"`
	PurchasePrice   float64 `json:"purchasePrice"`
	PurchaseDate    *string `json:"purchaseDate"`
	ExpiryDate      *string `json:"expiryDate"`
	Quantity        float64 `json:"quantity"`
}

// SaleRow is one sale header in a snapshot export.
type SaleRow struct {
	ID           int64   `json:"id,string"`
	CustomerID   *string `json:"customerId"`
	Subtotal     float64 `json:"subtotal"`
	Tax          float64 `json:"tax"`
	Discount     float64 `json:"discount"`
	Total        float64 `json:"total"`
	PaidAmount   float64 `json:"paidAmount"`
	ChangeAmount float64 `json:"changeAmount"`
}

// SaleItemRow is one cart line in a snapshot export.
type SaleItemRow struct {
	ID        int64   `json:"id,string"`
	SaleID    int64   `json:"saleId,string"`
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
}

// CustomerRow is a materialized customer in a snapshot export.
type CustomerRow struct {
	ID            string  `json:"id"`
	Name          *string `json:"name"`
	Contact       *string `json:"contact"`
	PaymentMethod *string `json:"paymentMethod"`
}

// SnapshotExport is the full materialized state of a tenant. Cursor is the
// watermark to adopt for subsequent incremental pulls.
type SnapshotExport struct {
	Tenant     string        `json:"tenant"`
	ExportedAt time.Time     `json:"exported_at"`
	Cursor     time.Time     `json:"cursor"`
	Products   []ProductRow  `json:"products"`
	StockLots  []StockLotRow `json:"stock_lots"`
	Sales      []SaleRow     `json:"sales"`
	SaleItems  []SaleItemRow `json:"sale_items"`
	Customers  []CustomerRow `json:"customers"`
}

// Tenant is an isolated organizational unit.
type Tenant struct {
	ID        int64     `json:"id,string"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Member binds a user to a tenant with a role.
type Member struct {
	ID       int64  `json:"id,string"`
	UserID   int64  `json:"user_id,string"`
	TenantID int64  `json:"tenant_id,string"`
	Role     string `json:"role"`
}

// CreateTenantRequest provisions a tenant.
type CreateTenantRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// CreateMemberRequest adds a member to a tenant, creating the user on first
// sight of the email.
type CreateMemberRequest struct {
	Tenant string `json:"tenant"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
}

// CreateMemberResult carries the newly minted API key. The server returns the
// plaintext key exactly once.
type CreateMemberResult struct {
	Member Member `json:"member"`
	APIKey string `json:"api_key"`
}

// PushLogEntry is one raw received batch from the diagnostics log.
type PushLogEntry struct {
	ID         int64           `json:"id,string"`
	TenantID   int64           `json:"tenant_id,string"`
	MemberID   int64           `json:"member_id,string"`
	Batch      json.RawMessage `json:"batch"`
	ReceivedAt time.Time       `json:"received_at"`
}

// PushHistoryOpts filters a push history query.
type PushHistoryOpts struct {
	Since  *time.Time
	Limit  int
	Offset int
}
