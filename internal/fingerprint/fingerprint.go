// Package fingerprint computes the content digest used for duplicate and
// modification detection of registered orders.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gilerojas/orden-compra-app/internal/entity"
)

// Size is the length of a fingerprint in hex characters.
const Size = 16

// Compute returns the deterministic digest of a canonicalized order record.
// Canonical form: header fields pipe-joined (supplier trimmed and
// case-folded, total with two fraction digits), then one line per item in
// document order with all decimals at two fraction digits. Reordering line
// items changes the fingerprint on purpose: any drift from the registered
// document counts as a modification.
func Compute(rec *entity.OrderRecord) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(rec.OrderNumber))
	b.WriteByte('|')
	b.WriteString(rec.OrderDate.Format("2006-01-02"))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(strings.TrimSpace(rec.Supplier)))
	b.WriteByte('|')
	b.WriteString(rec.Total.StringFixed(2))
	for _, it := range rec.Items {
		b.WriteByte('\n')
		b.WriteString(strings.TrimSpace(it.Description))
		b.WriteByte('|')
		b.WriteString(it.Quantity.StringFixed(2))
		b.WriteByte('|')
		b.WriteString(it.UnitPrice.StringFixed(2))
		b.WriteByte('|')
		b.WriteString(it.Subtotal.StringFixed(2))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:Size]
}
