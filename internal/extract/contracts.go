package extract

import "context"

// TextExtractor is Stage 1: PDF bytes -> per-page text rows.
type TextExtractor interface {
	Extract(ctx context.Context, pdfBytes []byte) (TextResult, error)
}

// PageText holds the text rows of one page, top to bottom.
type PageText struct {
	Number int
	Rows   []string
}

type TextResult struct {
	Pages []PageText
}
