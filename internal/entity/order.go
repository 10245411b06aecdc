package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one product row of a purchase order. Row order matters for
// rendering and for the content fingerprint, not for arithmetic.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// OrderRecord is the structured representation of one purchase order
// extracted from a PDF. It is built once per extraction attempt and never
// mutated afterwards; the durable copy lives in the remote store.
type OrderRecord struct {
	OrderNumber string
	OrderDate   time.Time
	Supplier    string

	// Optional header fields, present when the source document prints them.
	SupplierAddress string
	TaxID           string
	Terms           string
	Currency        string

	Items []LineItem

	// Printed totals. Subtotal and Tax may be zero when the document only
	// carries a grand total.
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ItemsTotal returns the sum of the line item subtotals.
func (r *OrderRecord) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range r.Items {
		sum = sum.Add(it.Subtotal)
	}
	return sum
}
