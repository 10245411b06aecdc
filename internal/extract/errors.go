package extract

import "fmt"

// Field names reported by extraction errors. Errors always name the field
// that could not be located or validated so an operator can act on them.
const (
	FieldDocument    = "document"
	FieldOrderNumber = "order_number"
	FieldOrderDate   = "order_date"
	FieldSupplier    = "supplier"
	FieldLineItems   = "line_items"
	FieldTotal       = "total"
)

// Error is a fatal extraction failure. There is no recovery path for a
// document that cannot be parsed, so these always abort the submission.
type Error struct {
	Field  string
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Field, e.Reason, e.Cause)
	}
	return fmt.Sprintf("extract %s: %s", e.Field, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func missingField(field string) *Error {
	return &Error{Field: field, Reason: "not found in document"}
}
