package constants

// OrderStatus is the canonical status for rows in the order ledger.
type OrderStatus string

// Stable values (these exact strings are stored in the sheet).
const (
	OrderStatusActive OrderStatus = "Activa"
)
