package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/clemoseitano/open-inventory-api/internal/idgen"
	"github.com/clemoseitano/open-inventory-api/internal/models"
)

// materialize applies one accepted action to the tenant snapshot inside the
// caller's transaction. It is the only place that knows the effect of each
// action kind, and it is deterministic: replaying the journal in order into
// an empty snapshot must reproduce the live snapshot exactly.
//
// Payloads reaching this switch have already passed batch validation, so a
// decode failure here means journal corruption and aborts the transaction.
func materialize(ctx context.Context, tx pgx.Tx, ids *idgen.Generator, tenantID int64, kind models.ActionKind, payload json.RawMessage) error {
	switch kind {
	case models.KindUpsertProduct:
		return applyUpsertProduct(ctx, tx, tenantID, payload)
	case models.KindAddStock:
		return applyAddStock(ctx, tx, ids, tenantID, payload)
	case models.KindRecordSale:
		return applyRecordSale(ctx, tx, ids, tenantID, payload)
	case models.KindUpsertCustomer:
		return applyUpsertCustomer(ctx, tx, tenantID, payload)
	case models.KindDeleteProduct:
		return applyProductTombstone(ctx, tx, tenantID, payload, true)
	case models.KindRestoreProduct:
		return applyProductTombstone(ctx, tx, tenantID, payload, false)
	}

	return fmt.Errorf("materialize: unknown action kind %q", kind)
}

// applyUpsertProduct replaces the whole product row: row-level last write
// wins, ordered by journal order.
func applyUpsertProduct(ctx context.Context, tx pgx.Tx, tenantID int64, payload json.RawMessage) error {
	var p models.UpsertProductPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decoding product payload: %w", err)
	}

	prod := p.Product

	_, err := tx.Exec(ctx, `
		INSERT INTO pos_products
			(tenant_id, id, name, category, manufacturer, barcode, price, tax, tax_is_flat_rate, quantity, image_path, section, shelf)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			manufacturer = EXCLUDED.manufacturer,
			barcode = EXCLUDED.barcode,
			price = EXCLUDED.price,
			tax = EXCLUDED.tax,
			tax_is_flat_rate = EXCLUDED.tax_is_flat_rate,
			quantity = EXCLUDED.quantity,
			image_path = EXCLUDED.image_path,
			section = EXCLUDED.section,
			shelf = EXCLUDED.shelf`,
		tenantID, prod.ID, prod.Name, prod.Category, prod.Manufacturer, prod.Barcode,
		prod.Price, prod.Tax, prod.IsTaxFlatRate, prod.Quantity, prod.ImagePath, prod.Section, prod.Shelf,
	)
	if err != nil {
		return fmt.Errorf("upserting product: %w", err)
	}

	return nil
}

// applyAddStock inserts a stock lot and increments the product quantity
// aggregate by the lot quantity.
func applyAddStock(ctx context.Context, tx pgx.Tx, ids *idgen.Generator, tenantID int64, payload json.RawMessage) error {
	var p models.AddStockPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decoding stock payload: %w", err)
	}

	lot := p.Stock

	lotID, err := ids.Next()
	if err != nil {
		return fmt.Errorf("allocating stock lot id: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO pos_stock_lots
			(tenant_id, id, product_id, supplier, supplier_contact, unit_price, purchase_price, purchase_date, expiry_date, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		tenantID, lotID, lot.ProductID, lot.Supplier, lot.SupplierContact,
		lot.UnitPrice, lot.PurchasePrice, lot.PurchaseDate, lot.ExpiryDate, lot.Quantity,
	)
	if err != nil {
		return fmt.Errorf("inserting stock lot: %w", err)
	}

	_, err = tx.Exec(ctx,
		"UPDATE pos_products SET quantity = quantity + $1 WHERE tenant_id = $2 AND id = $3",
		lot.Quantity, tenantID, lot.ProductID,
	)
	if err != nil {
		return fmt.Errorf("incrementing product quantity: %w", err)
	}

	return nil
}

// applyRecordSale inserts one sale header, one item row per cart line, and
// decrements the sold product quantities. All sub-effects commit or roll back
// together with the surrounding batch transaction.
//
// Quantities may go negative: offline writers cannot observe each other's
// stock, and rejecting or clamping here would make the accepted journal
// diverge from client-side replays. Overselling is reconciled by later
// corrective actions.
func applyRecordSale(ctx context.Context, tx pgx.Tx, ids *idgen.Generator, tenantID int64, payload json.RawMessage) error {
	var p models.RecordSalePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decoding sale payload: %w", err)
	}

	cart := p.Cart

	saleID, err := ids.Next()
	if err != nil {
		return fmt.Errorf("allocating sale id: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO pos_sales
			(tenant_id, id, customer_id, subtotal, tax, discount, total, paid_amount, change_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tenantID, saleID, p.CustomerID, cart.Subtotal, cart.Tax, cart.Discount,
		cart.Total, cart.Paid(), cart.Change(),
	)
	if err != nil {
		return fmt.Errorf("inserting sale: %w", err)
	}

	for i, item := range cart.Items {
		itemID, err := ids.Next()
		if err != nil {
			return fmt.Errorf("allocating sale item id: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO pos_sale_items (tenant_id, id, sale_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			tenantID, itemID, saleID, item.ProductID, item.Quantity, item.Price,
		)
		if err != nil {
			return fmt.Errorf("inserting sale item %d: %w", i, err)
		}

		_, err = tx.Exec(ctx,
			"UPDATE pos_products SET quantity = quantity - $1 WHERE tenant_id = $2 AND id = $3",
			item.Quantity, tenantID, item.ProductID,
		)
		if err != nil {
			return fmt.Errorf("decrementing product quantity for item %d: %w", i, err)
		}
	}

	return nil
}

func applyUpsertCustomer(ctx context.Context, tx pgx.Tx, tenantID int64, payload json.RawMessage) error {
	var p models.UpsertCustomerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decoding customer payload: %w", err)
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO pos_customers (tenant_id, id, name, contact, payment_method)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			contact = EXCLUDED.contact,
			payment_method = EXCLUDED.payment_method`,
		tenantID, p.ID, p.Name, p.Contact, p.PaymentMethod,
	)
	if err != nil {
		return fmt.Errorf("upserting customer: %w", err)
	}

	return nil
}

// applyProductTombstone sets or clears the deletion timestamp. Products are
// never physically deleted so historical stock and sale rows stay valid.
func applyProductTombstone(ctx context.Context, tx pgx.Tx, tenantID int64, payload json.RawMessage, deleted bool) error {
	var p models.ProductRefPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decoding product reference: %w", err)
	}

	query := "UPDATE pos_products SET deleted_at = NULL WHERE tenant_id = $1 AND id = $2"
	if deleted {
		query = "UPDATE pos_products SET deleted_at = now() WHERE tenant_id = $1 AND id = $2"
	}

	if _, err := tx.Exec(ctx, query, tenantID, p.ID); err != nil {
		return fmt.Errorf("updating product tombstone: %w", err)
	}

	return nil
}
