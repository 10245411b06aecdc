// Package pipeline coordinates one order submission end to end: extract,
// parse, fingerprint, dedup decision, render, register, notify.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gilerojas/orden-compra-app/internal/entity"
	"github.com/gilerojas/orden-compra-app/internal/extract"
	"github.com/gilerojas/orden-compra-app/internal/fingerprint"
	"github.com/gilerojas/orden-compra-app/internal/notify"
	"github.com/gilerojas/orden-compra-app/internal/render"
	"github.com/gilerojas/orden-compra-app/internal/store"
)

// Processor wires the stages together. Notifier may be nil, in which case
// accepted orders are registered without a delivery.
type Processor struct {
	Logger    *slog.Logger
	Extractor extract.TextExtractor
	Parser    *extract.Parser
	Store     store.Store
	Notifier  notify.Notifier
	Render    render.Options
}

func NewProcessor(logger *slog.Logger, ex extract.TextExtractor, parser *extract.Parser, st store.Store, n notify.Notifier, ropts render.Options) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Logger:    logger,
		Extractor: ex,
		Parser:    parser,
		Store:     st,
		Notifier:  n,
		Render:    ropts,
	}
}

// Result is what one submission produced. PDF is always populated on
// success, whatever the outcome, so callers can save the standardized
// document even for an already-registered order. NotifyErr carries a
// delivery failure that did not prevent registration.
type Result struct {
	RequestID   string
	Record      *entity.OrderRecord
	Fingerprint string
	Outcome     store.Outcome
	PDF         []byte
	NotifyErr   error
}

// Process runs one PDF through the pipeline.
//
// Order of effects for a new order: render first (pure), then append (the
// durable step), then notify best-effort. A render failure therefore leaves
// the ledger untouched, and a notify failure never rolls back a registered
// order.
func (p *Processor) Process(ctx context.Context, pdfBytes []byte) (*Result, error) {
	reqID := uuid.New().String()
	start := time.Now()
	logger := p.Logger.With("req_id", reqID)

	doc, err := p.Extractor.Extract(ctx, pdfBytes)
	if err != nil {
		logger.Error("pipeline.extract.failed", "err", err)
		return nil, fmt.Errorf("extract text: %w", err)
	}

	rec, err := p.Parser.Parse(doc)
	if err != nil {
		logger.Error("pipeline.parse.failed", "err", err)
		return nil, fmt.Errorf("parse order: %w", err)
	}

	fp := fingerprint.Compute(rec)
	logger = logger.With("order_number", rec.OrderNumber, "fingerprint", fp)

	existing, err := p.Store.Lookup(ctx, rec.OrderNumber)
	if err != nil {
		logger.Error("pipeline.lookup.failed", "err", err)
		return nil, fmt.Errorf("lookup order: %w", err)
	}
	outcome := store.Decide(existing, fp)

	rendered, err := render.PDF(rec, p.Render)
	if err != nil {
		logger.Error("pipeline.render.failed", "err", err)
		return nil, fmt.Errorf("render order: %w", err)
	}

	res := &Result{
		RequestID:   reqID,
		Record:      rec,
		Fingerprint: fp,
		Outcome:     outcome,
		PDF:         rendered,
	}

	switch outcome {
	case store.OutcomeDuplicate:
		logger.Info("pipeline.duplicate", "elapsed_ms", time.Since(start).Milliseconds())
		return res, nil
	case store.OutcomeModified:
		logger.Warn("pipeline.modified",
			"stored_fingerprint", existing.Fingerprint,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return res, nil
	}

	if err := p.Store.Append(ctx, rec, fp); err != nil {
		logger.Error("pipeline.append.failed", "err", err)
		return nil, fmt.Errorf("register order: %w", err)
	}

	if p.Notifier != nil {
		msg := notify.Message{
			OrderNumber: rec.OrderNumber,
			Supplier:    rec.Supplier,
			Total:       rec.Total,
			Currency:    rec.Currency,
		}
		if err := p.Notifier.Send(ctx, rendered, msg); err != nil {
			logger.Warn("pipeline.notify.failed", "err", err)
			res.NotifyErr = err
		}
	}

	logger.Info("pipeline.ok",
		"outcome", outcome.String(),
		"items", len(rec.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
