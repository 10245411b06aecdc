// Package render produces the standardized, branded purchase-order PDF
// from an extracted record.
package render

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/gilerojas/orden-compra-app/internal/entity"
)

// Page geometry (points, Letter).
const (
	pageWidth  = 612.0
	pageHeight = 792.0
	marginX    = 72.0
	marginTop  = 36.0

	tableWidth = pageWidth - 2*marginX // 468

	colItm   = 30.0
	colQty   = 60.0
	colPrice = 75.0
	colTotal = 87.0
	colDesc  = tableWidth - colItm - colQty - colPrice - colTotal

	lineHeight = 11.0
	cellPad    = 4.0
)

// Brand palette.
var (
	colorPrimary   = rgb{44, 95, 141}
	colorSecondary = rgb{16, 185, 129}
	colorStripe    = rgb{236, 253, 245}
	colorGrid      = rgb{204, 204, 204}
	colorMuted     = rgb{102, 102, 102}
)

type rgb struct{ r, g, b int }

// defaultCreated pins the document metadata timestamp so repeated renders
// of the same record carry identical metadata.
var defaultCreated = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Options configures rendering. The zero value renders without a logo and
// with the pinned creation date.
type Options struct {
	LogoPath  string
	CreatedAt time.Time
	Logger    *slog.Logger
}

// metaLine is one label/value pair of the header or totals block.
type metaLine struct {
	label string
	value string
}

// itemRow is one line of the product table, already formatted for print.
type itemRow struct {
	index    string
	desc     string
	qty      string
	price    string
	subtotal string
}

// document is the text content of the rendered order in reading order.
// Drawing and textRows consume the same model, so what the PDF shows is
// exactly what the text view reports.
type document struct {
	title     string
	orderRef  string
	meta      []metaLine
	tableHead []string
	items     []itemRow
	totals    []metaLine
	footer    string
	signature string
}

func buildDocument(rec *entity.OrderRecord) document {
	currency := rec.Currency
	if currency == "" {
		currency = "USD"
	}
	subtotal := rec.Subtotal
	if subtotal.IsZero() {
		subtotal = rec.ItemsTotal()
	}

	d := document{
		title:     "ORDEN DE COMPRA",
		orderRef:  fmt.Sprintf("N° Orden: %s", rec.OrderNumber),
		tableHead: []string{"Itm", "Descripcion", "Cantidad", "Precio", "Importe"},
		footer:    "Documento generado automáticamente — Soluciones Químicas MG",
		signature: "Firma / Autorizado:",
	}

	d.meta = append(d.meta, metaLine{"Proveedor:", clip(rec.Supplier, 60)})
	d.meta = append(d.meta, metaLine{"Fecha:", rec.OrderDate.Format("02/01/2006")})
	if rec.TaxID != "" {
		d.meta = append(d.meta, metaLine{"RNC:", rec.TaxID})
	}
	d.meta = append(d.meta, metaLine{"Términos:", orNA(clip(rec.Terms, 40))})
	d.meta = append(d.meta, metaLine{"Moneda:", currency})

	for i, it := range rec.Items {
		d.items = append(d.items, itemRow{
			index:    fmt.Sprintf("%d", i+1),
			desc:     it.Description,
			qty:      formatNumber(it.Quantity),
			price:    formatNumber(it.UnitPrice),
			subtotal: formatNumber(it.Subtotal),
		})
	}

	d.totals = []metaLine{
		{"Subtotal:", amount(currency, subtotal)},
		{"Impuesto:", amount(currency, rec.Tax)},
		{"TOTAL:", amount(currency, rec.Total)},
	}
	return d
}

// textRows returns the document text row by row, cells joined by single
// spaces, the way row-oriented text extraction reads a page.
func (d document) textRows() []string {
	rows := []string{d.title, d.orderRef}
	for _, m := range d.meta {
		rows = append(rows, m.label+" "+m.value)
	}
	rows = append(rows, strings.Join(d.tableHead, " "))
	for _, it := range d.items {
		rows = append(rows, strings.Join([]string{it.index, it.desc, it.qty, it.price, it.subtotal}, " "))
	}
	for _, tl := range d.totals {
		rows = append(rows, tl.label+" "+tl.value)
	}
	return append(rows, d.footer, d.signature)
}

// PDF renders the record into the standardized order document. It does not
// fail for a structurally valid record; only the final byte serialization
// can error.
//
// Rendering is deterministic in content: the same record always produces
// the same text rows, pagination and metadata timestamps. The PDF container
// may order internal objects differently between runs.
func PDF(rec *entity.OrderRecord, opts Options) ([]byte, error) {
	doc := build(rec, opts)
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

func build(rec *entity.OrderRecord, opts Options) *fpdf.Fpdf {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	created := opts.CreatedAt
	if created.IsZero() {
		created = defaultCreated
	}
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(created)
	pdf.SetTitle("Orden de Compra "+rec.OrderNumber, true)
	pdf.SetMargins(marginX, marginTop, marginX)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	d := buildDocument(rec)

	pdf.AddPage()
	drawHeader(pdf, tr, d, opts.LogoPath, logger)
	drawTableHeader(pdf, tr, d)

	for i, it := range d.items {
		lines := pdf.SplitText(tr(it.desc), colDesc-2*cellPad)
		rowH := float64(len(lines))*lineHeight + 2*cellPad
		if pdf.GetY()+rowH > pageHeight-marginX-130 {
			pdf.AddPage()
			drawTableHeader(pdf, tr, d)
		}
		drawRow(pdf, tr, i, it, lines, rowH)
	}

	drawTotals(pdf, tr, d)
	drawFooter(pdf, tr, d)
	return pdf
}

func drawHeader(pdf *fpdf.Fpdf, tr func(string) string, d document, logoPath string, logger *slog.Logger) {
	y := marginTop

	if logoPath != "" {
		if _, err := os.Stat(logoPath); err == nil {
			logoH := 47.0 // 0.65in, as the template prints it
			pdf.ImageOptions(logoPath, marginX, y, 0, logoH, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
			y += logoH + 10
		} else {
			logger.Warn("render.logo.missing", "path", logoPath)
		}
	}

	setDraw(pdf, colorPrimary)
	pdf.SetLineWidth(3)
	pdf.Line(marginX, y, pageWidth-marginX, y)
	y += 22

	pdf.SetFont("Helvetica", "B", 16)
	setText(pdf, colorPrimary)
	pdf.Text(marginX, y, tr(d.title))
	pdf.SetFont("Helvetica", "", 10)
	setText(pdf, colorMuted)
	rightText(pdf, tr, pageWidth-marginX, y, d.orderRef)
	y += 24

	for _, m := range d.meta {
		pdf.SetFont("Helvetica", "B", 10)
		setText(pdf, rgb{0, 0, 0})
		pdf.Text(marginX, y, tr(m.label))
		pdf.SetFont("Helvetica", "", 10)
		pdf.Text(marginX+60, y, tr(m.value))
		y += 14
	}
	y += 6

	setDraw(pdf, colorGrid)
	pdf.SetLineWidth(1)
	pdf.Line(marginX, y, pageWidth-marginX, y)
	pdf.SetY(y + 14)
}

func drawTableHeader(pdf *fpdf.Fpdf, tr func(string) string, d document) {
	const h = 22.0
	y := pdf.GetY()
	pdf.SetXY(marginX, y)
	pdf.SetFont("Helvetica", "B", 9)
	setFill(pdf, colorPrimary)
	setText(pdf, rgb{255, 255, 255})
	setDraw(pdf, colorGrid)
	pdf.SetLineWidth(0.5)

	widths := []float64{colItm, colDesc, colQty, colPrice, colTotal}
	aligns := []string{"C", "L", "C", "C", "R"}
	for i, label := range d.tableHead {
		pdf.CellFormat(widths[i], h, tr(label), "1", 0, aligns[i], true, 0, "")
	}

	setDraw(pdf, colorSecondary)
	pdf.SetLineWidth(2)
	pdf.Line(marginX, y+h, marginX+tableWidth, y+h)
	pdf.SetY(y + h)
}

func drawRow(pdf *fpdf.Fpdf, tr func(string) string, idx int, it itemRow, descLines []string, rowH float64) {
	y := pdf.GetY()

	if idx%2 == 1 {
		setFill(pdf, colorStripe)
		pdf.Rect(marginX, y, tableWidth, rowH, "F")
	}
	setDraw(pdf, colorGrid)
	pdf.SetLineWidth(0.5)
	x := marginX
	for _, w := range []float64{colItm, colDesc, colQty, colPrice, colTotal} {
		pdf.Rect(x, y, w, rowH, "D")
		x += w
	}

	pdf.SetFont("Helvetica", "", 9)
	setText(pdf, rgb{0, 0, 0})
	baseline := y + cellPad + 8

	pdf.SetXY(marginX, y+cellPad-2)
	pdf.CellFormat(colItm, lineHeight, it.index, "", 0, "C", false, 0, "")

	for i, line := range descLines {
		pdf.Text(marginX+colItm+cellPad, baseline+float64(i)*lineHeight, line)
	}

	numX := marginX + colItm + colDesc
	pdf.SetXY(numX, y+cellPad-2)
	pdf.CellFormat(colQty, lineHeight, it.qty, "", 0, "C", false, 0, "")
	pdf.CellFormat(colPrice, lineHeight, it.price, "", 0, "C", false, 0, "")
	pdf.CellFormat(colTotal-cellPad, lineHeight, it.subtotal, "", 0, "R", false, 0, "")

	pdf.SetY(y + rowH)
}

func drawTotals(pdf *fpdf.Fpdf, tr func(string) string, d document) {
	if pdf.GetY()+110 > pageHeight-marginTop {
		pdf.AddPage()
	}
	y := pdf.GetY() + 20

	for i, tl := range d.totals {
		size, color := 10.0, rgb{0, 0, 0}
		if i == len(d.totals)-1 {
			size, color = 11.0, colorPrimary
		}
		pdf.SetFont("Helvetica", "B", size)
		setText(pdf, color)
		pdf.Text(pageWidth-marginX-190, y, tr(tl.label))
		rightText(pdf, tr, pageWidth-marginX, y, tl.value)
		y += 14
	}

	pdf.SetY(y + 16)
}

func drawFooter(pdf *fpdf.Fpdf, tr func(string) string, d document) {
	y := pdf.GetY()

	pdf.SetFont("Helvetica", "I", 8)
	setText(pdf, colorMuted)
	pdf.Text(marginX, y, tr(d.footer))
	y += 20

	pdf.SetFont("Helvetica", "B", 10)
	setText(pdf, rgb{0, 0, 0})
	pdf.Text(marginX, y, tr(d.signature))
	setDraw(pdf, rgb{0, 0, 0})
	pdf.SetLineWidth(0.5)
	pdf.Line(marginX+95, y-2, marginX+320, y-2)
}

// amount renders a money value the way the ledger stores it: two fraction
// digits, thousands separators, currency prefix.
func amount(currency string, d decimal.Decimal) string {
	if currency == "" {
		currency = "USD"
	}
	return currency + " " + groupThousands(d.StringFixed(2))
}

func formatNumber(d decimal.Decimal) string {
	return groupThousands(d.StringFixed(2))
}

func groupThousands(s string) string {
	intPart, frac, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}
	var out []byte
	for i, ch := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, ch)
	}
	res := string(out)
	if neg {
		res = "-" + res
	}
	if frac != "" {
		res += "." + frac
	}
	return res
}

func rightText(pdf *fpdf.Fpdf, tr func(string) string, x, y float64, s string) {
	s = tr(s)
	pdf.Text(x-pdf.GetStringWidth(s), y, s)
}

// clip shortens to n runes, never cutting inside a multibyte character.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func setText(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }
func setDraw(pdf *fpdf.Fpdf, c rgb) { pdf.SetDrawColor(c.r, c.g, c.b) }
func setFill(pdf *fpdf.Fpdf, c rgb) { pdf.SetFillColor(c.r, c.g, c.b) }
