// Package models defines data types for the tenant sync engine.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActionKind identifies the effect of a client action. The set is closed:
// kinds outside this list are rejected at batch validation, never at apply
// time, so the journal can only contain kinds the materializer understands.
type ActionKind string

// All supported action kinds.
const (
	KindUpsertProduct  ActionKind = "UPSERT_PRODUCT"
	KindAddStock       ActionKind = "ADD_STOCK"
	KindRecordSale     ActionKind = "RECORD_SALE"
	KindUpsertCustomer ActionKind = "UPSERT_CUSTOMER"
	KindDeleteProduct  ActionKind = "DELETE_PRODUCT"
	KindRestoreProduct ActionKind = "RESTORE_PRODUCT"
)

// Valid reports whether k is a known action kind.
func (k ActionKind) Valid() bool {
	switch k {
	case KindUpsertProduct, KindAddStock, KindRecordSale,
		KindUpsertCustomer, KindDeleteProduct, KindRestoreProduct:
		return true
	}

	return false
}

// Action is a client-originated mutation intent. ID is chosen by the client
// and must be unique within the tenant; it is the idempotency key for push.
type Action struct {
	ID              string          `json:"id"`
	Kind            ActionKind      `json:"kind"`
	Payload         json.RawMessage `json:"payload"`
	ClientTimestamp *time.Time      `json:"clientTimestamp,omitempty"`
}

// PushRequest is the body of a sync push.
type PushRequest struct {
	Tenant  string   `json:"tenant"`
	Actions []Action `json:"actions"`
}

// FieldError describes one malformed field of one submitted action.
type FieldError struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the full set of field errors for a rejected batch.
// A single invalid action rejects the entire batch before any mutation.
type ValidationErrors []FieldError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	return fmt.Sprintf("batch validation failed: %d invalid field(s)", len(v))
}

// maxActionIDLen bounds the client-chosen idempotency token.
const maxActionIDLen = 255

// ValidateBatch checks every action in submitted order and returns all field
// errors found, or nil when the batch is acceptable.
func ValidateBatch(actions []Action) ValidationErrors {
	var errs ValidationErrors
	for i := range actions {
		errs = append(errs, validateAction(i, &actions[i])...)
	}

	return errs
}

func validateAction(idx int, a *Action) ValidationErrors {
	var errs ValidationErrors

	if a.ID == "" {
		errs = append(errs, FieldError{Index: idx, Field: "id", Message: "id is required"})
	} else if len(a.ID) > maxActionIDLen {
		errs = append(errs, FieldError{Index: idx, Field: "id", Message: fmt.Sprintf("id exceeds maximum length of %d", maxActionIDLen)})
	}

	if a.Kind == "" {
		errs = append(errs, FieldError{Index: idx, Field: "kind", Message: "kind is required"})

		return errs
	}

	if !a.Kind.Valid() {
		errs = append(errs, FieldError{Index: idx, Field: "kind", Message: fmt.Sprintf("unknown action kind %q", a.Kind)})

		return errs
	}

	if len(a.Payload) == 0 {
		errs = append(errs, FieldError{Index: idx, Field: "payload", Message: "payload is required"})

		return errs
	}

	return append(errs, validatePayload(idx, a.Kind, a.Payload)...)
}

// validatePayload decodes the payload into its kind-specific shape and checks
// the required sub-fields. Decoding here guarantees the materializer never
// sees a payload it cannot interpret.
func validatePayload(idx int, kind ActionKind, raw json.RawMessage) ValidationErrors {
	switch kind {
	case KindUpsertProduct:
		var p UpsertProductPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return ValidationErrors{{Index: idx, Field: "payload", Message: "malformed payload: " + err.Error()}}
		}

		return p.check(idx)
	case KindAddStock:
		var p AddStockPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return ValidationErrors{{Index: idx, Field: "payload", Message: "malformed payload: " + err.Error()}}
		}

		return p.check(idx)
	case KindRecordSale:
		var p RecordSalePayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return ValidationErrors{{Index: idx, Field: "payload", Message: "malformed payload: " + err.Error()}}
		}

		return p.check(idx)
	case KindUpsertCustomer:
		var p UpsertCustomerPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return ValidationErrors{{Index: idx, Field: "payload", Message: "malformed payload: " + err.Error()}}
		}

		return p.check(idx)
	case KindDeleteProduct, KindRestoreProduct:
		var p ProductRefPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return ValidationErrors{{Index: idx, Field: "payload", Message: "malformed payload: " + err.Error()}}
		}

		return p.check(idx)
	}

	return ValidationErrors{{Index: idx, Field: "kind", Message: fmt.Sprintf("unknown action kind %q", kind)}}
}

func strictUnmarshal(raw json.RawMessage, v any) error {
	return json.Unmarshal(raw, v)
}

// Product is the product row shape carried by UPSERT_PRODUCT.
type Product struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Manufacturer  *string `json:"manufacturer,omitempty"`
	Barcode       *string `json:"barcode,omitempty"`
	Price         float64 `json:"price"`
	Tax           float64 `json:"tax"`
	IsTaxFlatRate bool    `json:"isTaxFlatRate"`
	Quantity      float64 `json:"quantity"`
	ImagePath     *string `json:"imagePath,omitempty"`
	Section       *string `json:"section,omitempty"`
	Shelf         *string `json:"shelf,omitempty"`
}

// UpsertProductPayload wraps the product row for UPSERT_PRODUCT.
type UpsertProductPayload struct {
	Product *Product `json:"product"`
}

func (p *UpsertProductPayload) check(idx int) ValidationErrors {
	if p.Product == nil {
		return ValidationErrors{{Index: idx, Field: "payload.product", Message: "product is required"}}
	}

	var errs ValidationErrors
	if p.Product.ID == "" {
		errs = append(errs, FieldError{Index: idx, Field: "payload.product.id", Message: "id is required"})
	}
	if p.Product.Name == "" {
		errs = append(errs, FieldError{Index: idx, Field: "payload.product.name", Message: "name is required"})
	}

	return errs
}

// StockLot is the stock receipt shape carried by ADD_STOCK.
type StockLot struct {
	ProductID       string  `json:"productId"`
	Supplier        *string `json:"supplier,omitempty"`
	SupplierContact *string `json:"supplierContact,omitempty"`
	UnitPrice       float64 `json:"unitPrice"`
	PurchasePrice   float64 `json:"purchasePrice"`
	PurchaseDate    *string `json:"purchaseDate,omitempty"`
	ExpiryDate      *string `json:"expiryDate,omitempty"`
	Quantity        float64 `json:"quantity"`
}

// AddStockPayload wraps the stock lot for ADD_STOCK.
type AddStockPayload struct {
	Stock *StockLot `json:"stock"`
}

func (p *AddStockPayload) check(idx int) ValidationErrors {
	if p.Stock == nil {
		return ValidationErrors{{Index: idx, Field: "payload.stock", Message: "stock is required"}}
	}

	var errs ValidationErrors
	if p.Stock.ProductID == "" {
		errs = append(errs, FieldError{Index: idx, Field: "payload.stock.productId", Message: "productId is required"})
	}
	if p.Stock.Quantity == 0 {
		errs = append(errs, FieldError{Index: idx, Field: "payload.stock.quantity", Message: "quantity must be non-zero"})
	}

	return errs
}

// CartItem is a single line of a recorded sale.
type CartItem struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
}

// Cart carries the totals and lines of a sale.
type Cart struct {
	Subtotal     float64    `json:"subtotal"`
	Tax          float64    `json:"tax"`
	Discount     float64    `json:"discount"`
	Total        float64    `json:"total"`
	PaidAmount   *float64   `json:"paidAmount,omitempty"`
	ChangeAmount *float64   `json:"changeAmount,omitempty"`
	Items        []CartItem `json:"items"`
}

// RecordSalePayload is the payload of RECORD_SALE.
type RecordSalePayload struct {
	CustomerID *string `json:"customerId,omitempty"`
	Cart       *Cart   `json:"cart"`
}

func (p *RecordSalePayload) check(idx int) ValidationErrors {
	if p.Cart == nil {
		return ValidationErrors{{Index: idx, Field: "payload.cart", Message: "cart is required"}}
	}

	if len(p.Cart.Items) == 0 {
		return ValidationErrors{{Index: idx, Field: "payload.cart.items", Message: "items must not be empty"}}
	}

	var errs ValidationErrors
	for i, item := range p.Cart.Items {
		if item.ProductID == "" {
			errs = append(errs, FieldError{
				Index: idx, Field: fmt.Sprintf("payload.cart.items[%d].productId", i), Message: "productId is required",
			})
		}
		if item.Quantity <= 0 {
			errs = append(errs, FieldError{
				Index: idx, Field: fmt.Sprintf("payload.cart.items[%d].quantity", i), Message: "quantity must be positive",
			})
		}
	}

	return errs
}

// Paid returns the paid amount, defaulting to the cart total.
func (c *Cart) Paid() float64 {
	if c.PaidAmount != nil {
		return *c.PaidAmount
	}

	return c.Total
}

// Change returns the change amount, defaulting to zero.
func (c *Cart) Change() float64 {
	if c.ChangeAmount != nil {
		return *c.ChangeAmount
	}

	return 0
}

// UpsertCustomerPayload is the payload of UPSERT_CUSTOMER.
type UpsertCustomerPayload struct {
	ID            string  `json:"id"`
	Name          *string `json:"name,omitempty"`
	Contact       *string `json:"contact,omitempty"`
	PaymentMethod *string `json:"paymentMethod,omitempty"`
}

func (p *UpsertCustomerPayload) check(idx int) ValidationErrors {
	if p.ID == "" {
		return ValidationErrors{{Index: idx, Field: "payload.id", Message: "id is required"}}
	}

	return nil
}

// ProductRefPayload is the payload of DELETE_PRODUCT and RESTORE_PRODUCT.
type ProductRefPayload struct {
	ID string `json:"id"`
}

func (p *ProductRefPayload) check(idx int) ValidationErrors {
	if p.ID == "" {
		return ValidationErrors{{Index: idx, Field: "payload.id", Message: "id is required"}}
	}

	return nil
}
