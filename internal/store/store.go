// Package store persists accepted orders to the remote tabular ledger and
// answers the dedup lookup that must precede every append.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/gilerojas/orden-compra-app/internal/entity"
)

// StoredOrder is what a lookup returns about a previously registered order.
type StoredOrder struct {
	OrderNumber string
	Fingerprint string
}

// Store is the two-operation contract against the order ledger. A
// successful Append is durably visible to subsequent Lookups.
//
// Lookup-then-Append is not atomic: two processes submitting the same order
// number can race between the check and the write. A single interactive
// user is assumed; multi-writer use needs a conditional append at the
// backend instead.
type Store interface {
	// Lookup returns the stored order for the number, or nil when absent.
	Lookup(ctx context.Context, orderNumber string) (*StoredOrder, error)
	// Append registers the record with its fingerprint, one ledger row per
	// line item.
	Append(ctx context.Context, rec *entity.OrderRecord, fp string) error
}

// Outcome classifies a submission against what the ledger already holds.
type Outcome int

const (
	// OutcomeNew means the order number is not registered yet.
	OutcomeNew Outcome = iota
	// OutcomeDuplicate means the exact same content is already registered;
	// no action is taken and that is not an error.
	OutcomeDuplicate
	// OutcomeModified means the order number is registered with different
	// content. The caller decides what to do; the pipeline never
	// overwrites.
	OutcomeModified
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNew:
		return "new"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeModified:
		return "modified"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Decide classifies a submission. existing is the Lookup result (nil when
// the order number is unknown), fp the fingerprint of the new extraction.
func Decide(existing *StoredOrder, fp string) Outcome {
	switch {
	case existing == nil:
		return OutcomeNew
	case existing.Fingerprint == fp:
		return OutcomeDuplicate
	default:
		return OutcomeModified
	}
}

// Error is a store failure: connectivity, permissions or an unexpected
// ledger layout. The submission is not registered when one is returned.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NormalizeOrderNumber is how backends compare order numbers: trimmed and
// upper-cased, matching how the purchasing team keys the sheet.
func NormalizeOrderNumber(n string) string {
	return strings.ToUpper(strings.TrimSpace(n))
}
