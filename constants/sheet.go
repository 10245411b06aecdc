package constants

// Column names of the order ledger sheet. The sheet keeps the Spanish
// headers the purchasing team already works with; code-facing names are in
// English. Order: order metadata -> line item -> totals -> control fields.
const (
	ColOrderNumber     = "Numero Orden"
	ColOrderDate       = "Fecha"
	ColSupplier        = "Proveedor"
	ColSupplierAddress = "Direccion Proveedor"
	ColTaxID           = "RNC"
	ColTerms           = "Terminos"
	ColCurrency        = "Moneda"
	ColDescription     = "Descripcion"
	ColQuantity        = "Cantidad"
	ColUnitPrice       = "Precio"
	ColLineSubtotal    = "Importe"
	ColSubtotal        = "Subtotal"
	ColTax             = "Monto Impuesto"
	ColTotal           = "Total"
	ColFingerprint     = "Hash_OC"
	ColRegisteredAt    = "Fecha_Registro"
	ColStatus          = "Estado"
)

// SheetHeaders is the canonical header row of the ledger, one ledger row
// per line item.
var SheetHeaders = []string{
	ColOrderNumber,
	ColOrderDate,
	ColSupplier,
	ColSupplierAddress,
	ColTaxID,
	ColTerms,
	ColCurrency,
	ColDescription,
	ColQuantity,
	ColUnitPrice,
	ColLineSubtotal,
	ColSubtotal,
	ColTax,
	ColTotal,
	ColFingerprint,
	ColRegisteredAt,
	ColStatus,
}
