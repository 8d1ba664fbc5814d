package models

import "time"

// ProductRow is the materialized product state. Quantity is a derived
// aggregate maintained incrementally by the materializer; DeletedAt is a
// tombstone so historical stock and sale rows stay referentially valid.
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

// StockLotRow is one received stock lot.
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

// SaleRow is one sale header.
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

// SaleItemRow is one cart line of a sale.
type SaleItemRow struct {
	ID        int64   `json:"id,string"`
	SaleID    int64   `json:"saleId,string"`
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
}

// CustomerRow is the materialized customer state.
type CustomerRow struct {
	ID            string  `json:"id"`
	Name          *string `json:"name"`
	Contact       *string `json:"contact"`
	PaymentMethod *string `json:"paymentMethod"`
}

// SnapshotExport is the downloadable artifact for bootstrap and post-rebase
// recovery. Cursor is the watermark the client should adopt after loading it.
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
