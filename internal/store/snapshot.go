package store

import (
	"context"
	"fmt"
	"time"

	"github.com/clemoseitano/open-inventory-api/internal/models"
)

// SnapshotStore reads the materialized snapshot row families. All writes go
// through JournalStore; this store only answers existence checks and exports.
type SnapshotStore struct {
	Base
}

// NewSnapshotStore creates a SnapshotStore.
func NewSnapshotStore(base Base) *SnapshotStore {
	return &SnapshotStore{Base: base}
}

// Exists reports whether a tenant's snapshot has been initialized by at
// least one accepted push.
func (s *SnapshotStore) Exists(ctx context.Context, tenantID int64) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var exists bool

	err := s.Pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM snapshots WHERE tenant_id = $1)", tenantID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking snapshot existence: %w", err)
	}

	return exists, nil
}

// Export reads the full materialized state of a tenant into a downloadable
// artifact. cursor is the watermark the caller resolved before reading; it is
// embedded so the client knows where incremental pulls resume.
//
// Returns ErrSnapshotNotFound when the tenant has never accepted a push.
func (s *SnapshotStore) Export(ctx context.Context, tenant *models.Tenant, cursor time.Time) (*models.SnapshotExport, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	exists, err := s.Exists(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.ErrSnapshotNotFound
	}

	export := &models.SnapshotExport{
		Tenant:     tenant.Slug,
		ExportedAt: time.Now().UTC(),
		Cursor:     cursor,
		Products:   []models.ProductRow{},
		StockLots:  []models.StockLotRow{},
		Sales:      []models.SaleRow{},
		SaleItems:  []models.SaleItemRow{},
		Customers:  []models.CustomerRow{},
	}

	if err := s.exportProducts(ctx, tenant.ID, export); err != nil {
		return nil, err
	}
	if err := s.exportStockLots(ctx, tenant.ID, export); err != nil {
		return nil, err
	}
	if err := s.exportSales(ctx, tenant.ID, export); err != nil {
		return nil, err
	}
	if err := s.exportSaleItems(ctx, tenant.ID, export); err != nil {
		return nil, err
	}
	if err := s.exportCustomers(ctx, tenant.ID, export); err != nil {
		return nil, err
	}

	return export, nil
}

func (s *SnapshotStore) exportProducts(ctx context.Context, tenantID int64, export *models.SnapshotExport) error {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, name, category, manufacturer, barcode, price, tax, tax_is_flat_rate,
			quantity, image_path, section, shelf, deleted_at
		FROM pos_products WHERE tenant_id = $1 ORDER BY id`, tenantID)
	if err != nil {
		return fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.ProductRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Category, &r.Manufacturer, &r.Barcode,
			&r.Price, &r.Tax, &r.IsTaxFlatRate, &r.Quantity,
			&r.ImagePath, &r.Section, &r.Shelf, &r.DeletedAt); err != nil {
			return fmt.Errorf("scanning product: %w", err)
		}

		export.Products = append(export.Products, r)
	}

	return rows.Err()
}

func (s *SnapshotStore) exportStockLots(ctx context.Context, tenantID int64, export *models.SnapshotExport) error {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, product_id, supplier, supplier_contact, unit_price, purchase_price,
			purchase_date, expiry_date, quantity
		FROM pos_stock_lots WHERE tenant_id = $1 ORDER BY id`, tenantID)
	if err != nil {
		return fmt.Errorf("querying stock lots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.StockLotRow
		if err := rows.Scan(&r.ID, &r.ProductID, &r.Supplier, &r.SupplierContact,
			&r.UnitPrice, &r.PurchasePrice, &r.PurchaseDate, &r.ExpiryDate, &r.Quantity); err != nil {
			return fmt.Errorf("scanning stock lot: %w", err)
		}

		export.StockLots = append(export.StockLots, r)
	}

	return rows.Err()
}

func (s *SnapshotStore) exportSales(ctx context.Context, tenantID int64, export *models.SnapshotExport) error {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, customer_id, subtotal, tax, discount, total, paid_amount, change_amount
		FROM pos_sales WHERE tenant_id = $1 ORDER BY id`, tenantID)
	if err != nil {
		return fmt.Errorf("querying sales: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.SaleRow
		if err := rows.Scan(&r.ID, &r.CustomerID, &r.Subtotal, &r.Tax,
			&r.Discount, &r.Total, &r.PaidAmount, &r.ChangeAmount); err != nil {
			return fmt.Errorf("scanning sale: %w", err)
		}

		export.Sales = append(export.Sales, r)
	}

	return rows.Err()
}

func (s *SnapshotStore) exportSaleItems(ctx context.Context, tenantID int64, export *models.SnapshotExport) error {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, sale_id, product_id, quantity, price
		FROM pos_sale_items WHERE tenant_id = $1 ORDER BY id`, tenantID)
	if err != nil {
		return fmt.Errorf("querying sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.SaleItemRow
		if err := rows.Scan(&r.ID, &r.SaleID, &r.ProductID, &r.Quantity, &r.Price); err != nil {
			return fmt.Errorf("scanning sale item: %w", err)
		}

		export.SaleItems = append(export.SaleItems, r)
	}

	return rows.Err()
}

func (s *SnapshotStore) exportCustomers(ctx context.Context, tenantID int64, export *models.SnapshotExport) error {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, name, contact, payment_method
		FROM pos_customers WHERE tenant_id = $1 ORDER BY id`, tenantID)
	if err != nil {
		return fmt.Errorf("querying customers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.CustomerRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Contact, &r.PaymentMethod); err != nil {
			return fmt.Errorf("scanning customer: %w", err)
		}

		export.Customers = append(export.Customers, r)
	}

	return rows.Err()
}
