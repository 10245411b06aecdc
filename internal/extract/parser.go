package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gilerojas/orden-compra-app/internal/entity"
)

// Tolerance is the accepted rounding drift for subtotal and grand-total
// checks: one minor currency unit.
var Tolerance = decimal.New(1, -2)

// Label anchors of the known order layout. The documents come out of the
// same accounting system, so the anchors are fixed.
const (
	itemHeaderAnchor = "Itm"
	supplierAnchor   = "Solicitado a:"
	// The buyer's own name and street share header lines with the
	// supplier block; everything from these markers on is the buyer side.
	buyerNameAnchor    = "SOLUCIONES QUIMICAS"
	buyerAddressAnchor = "C/ Jatfres"
)

var (
	orderNumberRe   = regexp.MustCompile(`(?i)N[º°o]?\.?\s*Orden\s*:?\s*([A-Z0-9][A-Z0-9-]*)`)
	dateRe          = regexp.MustCompile(`(?i)Fecha\s*:?\s*(\d{2}[/-]\d{2}[/-]\d{4}|\d{4}-\d{2}-\d{2})`)
	supplierLabelRe = regexp.MustCompile(`(?i)^Proveedor\s*:\s*(.+)$`)
	taxIDRe         = regexp.MustCompile(`(?i)\bRNC\s*:?\s*(\d+)`)
	termsRe         = regexp.MustCompile(`(?i)T[ée]rminos\s*:?\s*(.+)$`)
	currencyRe      = regexp.MustCompile(`(?i)\b(USD|DOP)\b`)

	subtotalRe    = regexp.MustCompile(`(?i)\bSub\s*total\b\s*:?\s*(?:[A-Z]{3}\s+)?([\d,]+(?:\.\d+)?)`)
	taxAmountRe   = regexp.MustCompile(`(?i)\bImp(?:to|uesto)\.?\s*:?\s*(?:[A-Z]{3}\s+)?([\d,]+(?:\.\d+)?)`)
	totalSpacedRe = regexp.MustCompile(`(?i)T\s+O\s+T\s+A\s+L\s*:?\s*(?:[A-Z]{3}\s+)?([\d,]+(?:\.\d+)?)`)
	totalPlainRe  = regexp.MustCompile(`(?i)\bTOTAL\b\s*:?\s*(?:[A-Z]{3}\s+)?([\d,]+(?:\.\d+)?)`)

	subTotalWordRe = regexp.MustCompile(`(?i)\bSUB\s*TOTAL\b`)

	numberTokenRe = regexp.MustCompile(`^\d{1,3}(?:,\d{3})*(?:\.\d+)?$|^\d+(?:\.\d+)?$`)
	totalsRowRe   = regexp.MustCompile(`(?i)^\s*(SUB\s*TOTAL|T\s*O\s*T\s*A\s*L|MONTO IMPUESTO|IMP(?:TO|UESTO)|AVISO|FIRMA)`)
	indexTokenRe  = regexp.MustCompile(`^\d{1,4}$`)
)

// dateFormats accepted for the order date; the first one that parses wins.
var dateFormats = []string{"02/01/2006", "02-01-2006", "2006-01-02"}

// Parser turns extracted page text into an OrderRecord. All parsing is
// pure text segmentation so it can be tested without a PDF in the loop.
type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse extracts the order record from the document text. Header fields are
// only searched on the first page; line-item rows from all pages are
// concatenated before segmentation.
func (p *Parser) Parse(doc TextResult) (*entity.OrderRecord, error) {
	if len(doc.Pages) == 0 {
		return nil, &Error{Field: FieldDocument, Reason: "empty document"}
	}
	first := doc.Pages[0].Rows
	firstText := strings.Join(first, "\n")

	rec := &entity.OrderRecord{Currency: "USD"}

	m := orderNumberRe.FindStringSubmatch(firstText)
	if m == nil {
		return nil, missingField(FieldOrderNumber)
	}
	rec.OrderNumber = m[1]

	m = dateRe.FindStringSubmatch(firstText)
	if m == nil {
		return nil, missingField(FieldOrderDate)
	}
	date, err := parseDate(m[1])
	if err != nil {
		return nil, &Error{Field: FieldOrderDate, Reason: fmt.Sprintf("unparsable date %q", m[1])}
	}
	rec.OrderDate = date

	rec.Supplier = findSupplier(first)
	if rec.Supplier == "" {
		return nil, missingField(FieldSupplier)
	}
	rec.SupplierAddress = findSupplierAddress(first)

	if m = taxIDRe.FindStringSubmatch(firstText); m != nil {
		rec.TaxID = m[1]
	}
	for _, row := range first {
		if m = termsRe.FindStringSubmatch(row); m != nil {
			rec.Terms = cleanLabelValue(m[1])
			break
		}
	}
	if m = currencyRe.FindStringSubmatch(firstText); m != nil {
		rec.Currency = strings.ToUpper(m[1])
	}

	itemRows := collectItemRows(doc.Pages)
	if len(itemRows) == 0 {
		return nil, missingField(FieldLineItems)
	}
	items, err := parseItems(itemRows)
	if err != nil {
		return nil, err
	}
	rec.Items = items

	rec.Subtotal, rec.Tax, rec.Total = scrapeTotals(doc.Pages)
	if rec.Total.IsZero() {
		return nil, missingField(FieldTotal)
	}
	if err := validateTotals(rec); err != nil {
		return nil, err
	}

	p.logger.Info("extract.ok",
		"order_number", rec.OrderNumber,
		"supplier", rec.Supplier,
		"items", len(rec.Items),
		"total", rec.Total.StringFixed(2),
	)
	return rec, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no accepted format matches %q", s)
}

// findSupplier locates the supplier name: either an explicit label (on
// re-rendered documents) or the line following the "Solicitado a:" anchor,
// with the buyer's name split off when both share the line.
func findSupplier(rows []string) string {
	for _, row := range rows {
		if m := supplierLabelRe.FindStringSubmatch(row); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	for i, row := range rows {
		if !strings.Contains(row, supplierAnchor) {
			continue
		}
		if i+1 >= len(rows) {
			return ""
		}
		next := rows[i+1]
		if at := strings.Index(next, buyerNameAnchor); at >= 0 {
			next = next[:at]
		}
		return strings.TrimSpace(next)
	}
	return ""
}

func findSupplierAddress(rows []string) string {
	for _, row := range rows {
		if !strings.Contains(row, "AV.") && !strings.Contains(row, "C/") {
			continue
		}
		if at := strings.Index(row, buyerAddressAnchor); at >= 0 {
			row = row[:at]
		}
		return strings.TrimSpace(row)
	}
	return ""
}

func cleanLabelValue(s string) string {
	// Other labels can share the row when the source lays them out in
	// columns; cut at the next known label.
	for _, label := range []string{"Moneda", "RNC"} {
		if at := strings.Index(s, label); at >= 0 {
			s = s[:at]
		}
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), ":"))
}

// collectItemRows gathers the line-item rows of every page, between the
// "Itm" table header and the totals region. Pages that repeat the header
// restart the table; pages without it contribute continuation rows.
func collectItemRows(pages []PageText) []string {
	var out []string
	inTable := false
	for _, pg := range pages {
		if pageHasHeader(pg) {
			inTable = false
		}
		for _, row := range pg.Rows {
			fields := strings.Fields(row)
			if len(fields) > 0 && fields[0] == itemHeaderAnchor {
				inTable = true
				continue
			}
			if !inTable {
				continue
			}
			if totalsRowRe.MatchString(row) {
				return out
			}
			out = append(out, row)
		}
	}
	return out
}

func pageHasHeader(pg PageText) bool {
	for _, row := range pg.Rows {
		fields := strings.Fields(row)
		if len(fields) > 0 && fields[0] == itemHeaderAnchor {
			return true
		}
	}
	return false
}

// parseItems tokenizes table rows with the rightmost-numeric-columns
// heuristic: the last three numeric tokens of a row are quantity, unit
// price and subtotal; the leading remainder is the description. Rows
// without that numeric tail continue the previous description.
func parseItems(rows []string) ([]entity.LineItem, error) {
	var items []entity.LineItem
	for _, row := range rows {
		fields := strings.Fields(row)
		start := len(fields)
		for start > 0 && numberTokenRe.MatchString(fields[start-1]) {
			start--
		}
		run := len(fields) - start
		if run < 3 {
			if len(items) > 0 {
				items[len(items)-1].Description += " " + strings.Join(fields, " ")
			}
			continue
		}

		qty, ok1 := parseNumber(fields[len(fields)-3])
		price, ok2 := parseNumber(fields[len(fields)-2])
		sub, ok3 := parseNumber(fields[len(fields)-1])
		if !ok1 || !ok2 || !ok3 {
			return nil, &Error{Field: FieldLineItems, Reason: fmt.Sprintf("unparsable numeric columns in row %q", row)}
		}

		descFields := fields[:len(fields)-3]
		if len(descFields) > 1 && indexTokenRe.MatchString(descFields[0]) {
			descFields = descFields[1:]
		}
		desc := strings.Join(descFields, " ")
		if desc == "" {
			return nil, &Error{Field: FieldLineItems, Reason: fmt.Sprintf("row %q has no description", row)}
		}

		n := len(items) + 1
		if !qty.IsPositive() {
			return nil, &Error{Field: FieldLineItems, Reason: fmt.Sprintf("item %d (%s): quantity must be positive, found %s", n, desc, qty)}
		}
		if price.IsNegative() {
			return nil, &Error{Field: FieldLineItems, Reason: fmt.Sprintf("item %d (%s): negative unit price %s", n, desc, price)}
		}
		expected := qty.Mul(price).Round(2)
		if expected.Sub(sub).Abs().GreaterThan(Tolerance) {
			return nil, &Error{
				Field:  FieldLineItems,
				Reason: fmt.Sprintf("item %d (%s): subtotal mismatch: expected %s, found %s", n, desc, expected.StringFixed(2), sub.StringFixed(2)),
			}
		}

		items = append(items, entity.LineItem{
			Description: desc,
			Quantity:    qty,
			UnitPrice:   price,
			Subtotal:    sub,
		})
	}
	if len(items) == 0 {
		return nil, missingField(FieldLineItems)
	}
	return items, nil
}

func parseNumber(tok string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(tok, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// scrapeTotals pulls the printed subtotal, tax and grand total from the
// page text. The grand total is sometimes letter-spaced ("T O T A L");
// plain "TOTAL" is the fallback, skipping subtotal rows.
func scrapeTotals(pages []PageText) (subtotal, tax, total decimal.Decimal) {
	for _, pg := range pages {
		for _, row := range pg.Rows {
			if m := subtotalRe.FindStringSubmatch(row); m != nil && subtotal.IsZero() {
				subtotal, _ = parseNumber(m[1])
				continue
			}
			if m := taxAmountRe.FindStringSubmatch(row); m != nil && tax.IsZero() {
				tax, _ = parseNumber(m[1])
				continue
			}
			if m := totalSpacedRe.FindStringSubmatch(row); m != nil {
				total, _ = parseNumber(m[1])
				continue
			}
			// "SUB TOTAL" prints both spaced and joined; neither form may
			// reach the plain-TOTAL fallback.
			if subTotalWordRe.MatchString(row) {
				continue
			}
			if m := totalPlainRe.FindStringSubmatch(row); m != nil {
				total, _ = parseNumber(m[1])
			}
		}
	}
	return subtotal, tax, total
}

// validateTotals recomputes the totals from the line items and compares
// them against the printed values. A drift beyond tolerance signals either
// a parsing bug or a malformed document, so it fails hard instead of being
// corrected.
func validateTotals(rec *entity.OrderRecord) error {
	sum := rec.ItemsTotal()
	if !rec.Subtotal.IsZero() && sum.Sub(rec.Subtotal).Abs().GreaterThan(Tolerance) {
		return &Error{
			Field:  FieldTotal,
			Reason: fmt.Sprintf("subtotal mismatch: line items sum to %s, document prints %s", sum.StringFixed(2), rec.Subtotal.StringFixed(2)),
		}
	}
	computed := sum.Add(rec.Tax)
	if computed.Sub(rec.Total).Abs().GreaterThan(Tolerance) {
		return &Error{
			Field:  FieldTotal,
			Reason: fmt.Sprintf("totals mismatch: computed %s, document prints %s", computed.StringFixed(2), rec.Total.StringFixed(2)),
		}
	}
	return nil
}
