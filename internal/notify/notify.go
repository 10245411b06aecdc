// Package notify delivers the rendered order document to the purchasing
// group over the messaging gateway.
package notify

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Message describes one delivery. Filename defaults to
// "Orden_Compra_<number>.pdf" when empty; Destination defaults to the
// configured group.
type Message struct {
	OrderNumber string
	Supplier    string
	Total       decimal.Decimal
	Currency    string
	Filename    string
	Destination string
}

// Notifier sends the rendered PDF with a caption. Delivery is best effort:
// the pipeline records an Error but never rolls back a registered order
// because of one.
type Notifier interface {
	Send(ctx context.Context, pdf []byte, msg Message) error
}

// Error is a delivery failure at either gateway step.
type Error struct {
	Step string // "upload" or "send"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
