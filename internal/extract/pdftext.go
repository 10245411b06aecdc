package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText extracts page text from a PDF byte stream.
type PDFText struct {
	logger *slog.Logger
}

func NewPDFText(logger *slog.Logger) *PDFText {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFText{logger: logger}
}

// Extract reads every page of the document and returns its text rows.
// A document from which no text at all can be read is an extraction error.
func (p *PDFText) Extract(ctx context.Context, pdfBytes []byte) (res TextResult, err error) {
	// The underlying reader panics on some malformed documents; surface
	// those as unreadable-document errors instead.
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Field: FieldDocument, Reason: fmt.Sprintf("unreadable pdf: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return TextResult{}, &Error{Field: FieldDocument, Reason: "unreadable pdf", Cause: err}
	}

	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return TextResult{}, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return TextResult{}, &Error{Field: FieldDocument, Reason: fmt.Sprintf("page %d text", i), Cause: err}
		}
		pt := PageText{Number: i}
		for _, row := range rows {
			var sb strings.Builder
			for j, word := range row.Content {
				if j > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(word.S)
			}
			if line := strings.TrimSpace(sb.String()); line != "" {
				pt.Rows = append(pt.Rows, line)
			}
		}
		res.Pages = append(res.Pages, pt)
	}

	if len(res.Pages) == 0 {
		return TextResult{}, &Error{Field: FieldDocument, Reason: "no readable pages"}
	}

	total := 0
	for _, pg := range res.Pages {
		total += len(pg.Rows)
	}
	p.logger.Debug("extract.text.ok", "pages", len(res.Pages), "rows", total)
	return res, nil
}
