package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/gilerojas/orden-compra-app/internal/common"
	"github.com/gilerojas/orden-compra-app/internal/extract"
	"github.com/gilerojas/orden-compra-app/internal/notify"
	"github.com/gilerojas/orden-compra-app/internal/pipeline"
	"github.com/gilerojas/orden-compra-app/internal/render"
	"github.com/gilerojas/orden-compra-app/internal/store"
)

// Exit codes. A modified order is reported distinctly so shell callers can
// route it to a human.
const (
	exitOK       = 0
	exitError    = 1
	exitModified = 3
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		pdfPath  = flag.String("pdf", "", "order PDF to process (required)")
		out      = flag.String("out", "", "where to write the standardized PDF (default: Orden_Compra_<number>.pdf next to the input)")
		noNotify = flag.Bool("no-notify", false, "skip the group notification even when configured")
	)
	flag.Parse()

	if *pdfPath == "" {
		printError("Error: --pdf is required\n")
		os.Exit(exitError)
	}

	// Local .env is optional.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(exitError)
	}

	pdfBytes, err := os.ReadFile(*pdfPath)
	if err != nil {
		logger.Error("failed to read input PDF", "path", *pdfPath, "error", err)
		os.Exit(exitError)
	}

	proc := buildProcessor(cfg, *noNotify, logger)

	res, err := proc.Process(context.Background(), pdfBytes)
	if err != nil {
		logger.Error("processing failed", "path", *pdfPath, "error", err)
		printError("Error: %v\n", err)
		os.Exit(exitError)
	}

	outPath := *out
	if outPath == "" {
		outPath = filepath.Join(filepath.Dir(*pdfPath), fmt.Sprintf("Orden_Compra_%s.pdf", res.Record.OrderNumber))
	}
	if err := os.WriteFile(outPath, res.PDF, 0644); err != nil {
		logger.Error("failed to write output file", "path", outPath, "error", err)
		os.Exit(exitError)
	}

	fmt.Printf("Orden %s: %s\n", res.Record.OrderNumber, res.Outcome)
	fmt.Printf("- Proveedor: %s\n", res.Record.Supplier)
	fmt.Printf("- Total: %s %s\n", res.Record.Currency, res.Record.Total.StringFixed(2))
	fmt.Printf("- PDF: %s\n", outPath)
	if res.NotifyErr != nil {
		fmt.Printf("- Aviso: la notificacion fallo (%v)\n", res.NotifyErr)
	}

	if res.Outcome == store.OutcomeModified {
		printError("Warning: order %s is already registered with different content; nothing was written to the ledger\n", res.Record.OrderNumber)
		os.Exit(exitModified)
	}
	os.Exit(exitOK)
}

// buildProcessor wires the pipeline from configuration.
func buildProcessor(cfg *common.Config, noNotify bool, logger *slog.Logger) *pipeline.Processor {
	var st store.Store
	switch cfg.Store.Backend {
	case common.StoreBackendSheetAPI:
		st = store.NewSheetAPI(store.SheetAPIConfig{
			BaseURL: cfg.Store.APIBaseURL,
			APIKey:  cfg.Store.APIKey,
			Timeout: cfg.Store.Timeout,
		}, logger)
	default:
		st = store.NewWorkbook(cfg.Store.WorkbookPath, cfg.Store.SheetName, logger)
	}

	var notifier notify.Notifier
	if cfg.NotifierEnabled() && !noNotify {
		notifier = notify.NewWaSender(notify.WaSenderConfig{
			APIBase: cfg.Notifier.APIBase,
			APIKey:  cfg.Notifier.APIKey,
			GroupID: cfg.Notifier.GroupID,
			Timeout: cfg.Notifier.Timeout,
		}, logger)
	} else {
		logger.Warn("notification disabled", "configured", cfg.NotifierEnabled())
	}

	return pipeline.NewProcessor(
		logger,
		extract.NewPDFText(logger),
		extract.NewParser(logger),
		st,
		notifier,
		render.Options{LogoPath: cfg.Render.LogoPath, Logger: logger},
	)
}
