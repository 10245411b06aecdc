package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gilerojas/orden-compra-app/constants"
	"github.com/gilerojas/orden-compra-app/internal/entity"
)

// Workbook is the XLSX-backed order ledger. The file is the durable copy;
// the workbook is opened fresh for every operation so that edits made
// directly in a spreadsheet program between runs are picked up.
//
// The mutex serializes operations within this process only; see the Store
// doc for the cross-process caveat.
type Workbook struct {
	path   string
	sheet  string
	mu     sync.Mutex
	logger *slog.Logger
}

func NewWorkbook(path, sheet string, logger *slog.Logger) *Workbook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workbook{path: path, sheet: sheet, logger: logger}
}

func (w *Workbook) Lookup(ctx context.Context, orderNumber string) (*StoredOrder, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Op: "lookup", Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			w.logger.Warn("store.workbook.close_error", "error", cerr)
		}
	}()

	rows, err := f.GetRows(w.sheet)
	if err != nil {
		// A workbook without the ledger sheet holds no orders yet.
		return nil, nil
	}
	if len(rows) < 2 {
		return nil, nil
	}

	numIdx := indexOf(rows[0], constants.ColOrderNumber)
	fpIdx := indexOf(rows[0], constants.ColFingerprint)
	if numIdx < 0 || fpIdx < 0 {
		return nil, &Error{Op: "lookup", Err: fmt.Errorf("ledger is missing %q or %q column", constants.ColOrderNumber, constants.ColFingerprint)}
	}

	want := NormalizeOrderNumber(orderNumber)
	for _, row := range rows[1:] {
		if numIdx >= len(row) || NormalizeOrderNumber(row[numIdx]) != want {
			continue
		}
		fp := ""
		if fpIdx < len(row) {
			fp = strings.TrimSpace(row[fpIdx])
		}
		return &StoredOrder{OrderNumber: strings.TrimSpace(row[numIdx]), Fingerprint: fp}, nil
	}
	return nil, nil
}

func (w *Workbook) Append(ctx context.Context, rec *entity.OrderRecord, fp string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := w.open()
	if err != nil {
		return &Error{Op: "append", Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			w.logger.Warn("store.workbook.close_error", "error", cerr)
		}
	}()

	rows, err := f.GetRows(w.sheet)
	if err != nil {
		return &Error{Op: "append", Err: err}
	}
	next := len(rows) + 1

	registeredAt := time.Now().UTC().Format("2006-01-02 15:04:05")
	for _, it := range rec.Items {
		row := []interface{}{
			rec.OrderNumber,
			rec.OrderDate.Format("2006-01-02"),
			rec.Supplier,
			rec.SupplierAddress,
			rec.TaxID,
			rec.Terms,
			rec.Currency,
			it.Description,
			it.Quantity.StringFixed(2),
			it.UnitPrice.StringFixed(2),
			it.Subtotal.StringFixed(2),
			rec.Subtotal.StringFixed(2),
			rec.Tax.StringFixed(2),
			rec.Total.StringFixed(2),
			fp,
			registeredAt,
			string(constants.OrderStatusActive),
		}
		if err := f.SetSheetRow(w.sheet, fmt.Sprintf("A%d", next), &row); err != nil {
			return &Error{Op: "append", Err: err}
		}
		next++
	}

	if err := f.SaveAs(w.path); err != nil {
		return &Error{Op: "append", Err: err}
	}
	w.logger.Info("store.append.ok",
		"order_number", rec.OrderNumber,
		"rows", len(rec.Items),
		"fingerprint", fp,
		"path", w.path,
	)
	return nil
}

// open loads the workbook, creating the file, the ledger sheet and the
// header row as needed.
func (w *Workbook) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		f = excelize.NewFile()
		if w.sheet != "Sheet1" {
			if _, err := f.NewSheet(w.sheet); err != nil {
				return nil, err
			}
			if err := f.DeleteSheet("Sheet1"); err != nil {
				return nil, err
			}
		}
	}

	if idx, _ := f.GetSheetIndex(w.sheet); idx == -1 {
		if _, err := f.NewSheet(w.sheet); err != nil {
			return nil, err
		}
	}
	rows, err := f.GetRows(w.sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		header := make([]interface{}, len(constants.SheetHeaders))
		for i, h := range constants.SheetHeaders {
			header[i] = h
		}
		if err := f.SetSheetRow(w.sheet, "A1", &header); err != nil {
			return nil, err
		}
	} else if err := checkHeader(rows[0]); err != nil {
		return nil, err
	}
	return f, nil
}

// checkHeader guards positional appends: rows are written in SheetHeaders
// order, so a ledger whose columns were rearranged must be rejected rather
// than filled with misaligned rows.
func checkHeader(header []string) error {
	for i, want := range constants.SheetHeaders {
		got := ""
		if i < len(header) {
			got = strings.TrimSpace(header[i])
		}
		if got != want {
			return fmt.Errorf("ledger column %d is %q, want %q", i+1, got, want)
		}
	}
	return nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}
