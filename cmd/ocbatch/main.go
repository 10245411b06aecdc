package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gilerojas/orden-compra-app/internal/async"
	"github.com/gilerojas/orden-compra-app/internal/common"
	"github.com/gilerojas/orden-compra-app/internal/extract"
	"github.com/gilerojas/orden-compra-app/internal/ingest"
	"github.com/gilerojas/orden-compra-app/internal/notify"
	"github.com/gilerojas/orden-compra-app/internal/pipeline"
	"github.com/gilerojas/orden-compra-app/internal/render"
	"github.com/gilerojas/orden-compra-app/internal/store"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

// batchStats is shared by the watch-mode workers, hence the mutex.
type batchStats struct {
	mu         sync.Mutex
	processed  int
	registered int
	duplicates int
	modified   int
	failures   int
}

func (s *batchStats) fail() {
	s.mu.Lock()
	s.failures++
	s.mu.Unlock()
}

func (s *batchStats) outcome(o store.Outcome) {
	s.mu.Lock()
	switch o {
	case store.OutcomeNew:
		s.registered++
	case store.OutcomeDuplicate:
		s.duplicates++
	case store.OutcomeModified:
		s.modified++
	}
	s.mu.Unlock()
}

func main() {
	var (
		dir      = flag.String("dir", "", "directory to process order PDFs from (required)")
		outDir   = flag.String("outdir", "", "directory for standardized PDFs (default: next to each input)")
		watch    = flag.Bool("watch", false, "keep watching the directory for new PDFs")
		workers  = flag.Int("workers", 4, "concurrent workers in watch mode")
		noNotify = flag.Bool("no-notify", false, "skip group notifications even when configured")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0755); err != nil {
			logger.Error("failed to create output directory", "dir", *outDir, "error", err)
			os.Exit(1)
		}
	}

	proc := buildProcessor(cfg, *noNotify, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stats batchStats

	if *watch {
		runWatch(ctx, proc, *dir, *outDir, *workers, &stats, logger)
	} else {
		paths, scanStats, err := ingest.ScanDirectory(*dir, true)
		if err != nil {
			logger.Error("failed to scan directory", "dir", *dir, "error", err)
			os.Exit(1)
		}
		logger.Info("scan complete",
			"dir", *dir,
			"scanned", scanStats.Scanned,
			"matched", scanStats.Matched,
			"failed", scanStats.Failed,
		)
		for _, path := range paths {
			processOne(ctx, proc, path, *outDir, &stats, logger)
		}
	}

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files processed: %d\n", stats.processed)
	fmt.Printf("- Registered: %d\n", stats.registered)
	fmt.Printf("- Duplicates: %d\n", stats.duplicates)
	fmt.Printf("- Modified (skipped): %d\n", stats.modified)
	fmt.Printf("- Failures: %d\n", stats.failures)

	if stats.failures > 0 {
		os.Exit(1)
	}
}

func runWatch(ctx context.Context, proc *pipeline.Processor, dir, outDir string, workers int, stats *batchStats, logger *slog.Logger) {
	events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Root:        dir,
		InitialScan: true,
		Debounce:    2 * time.Second,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to start watcher", "dir", dir, "error", err)
		os.Exit(1)
	}

	queue := async.NewQueue(func(jobCtx context.Context, path string) {
		processOne(jobCtx, proc, path, outDir, stats, logger)
	}, logger, async.WithWorkers(workers))
	logger.Info("watching for order PDFs", "dir", dir, "workers", workers)

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			queue.Shutdown(drainCtx)
			cancel()
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			// Our own rendered output lands in the watched tree when no
			// -outdir is set; reprocessing it would loop forever.
			if strings.HasPrefix(filepath.Base(path), "Orden_Compra_") {
				continue
			}
			_ = queue.Enqueue(ctx, async.Job{Path: path, SubmittedAt: time.Now()})
		case werr, ok := <-errs:
			if ok && werr != nil {
				logger.Error("watcher error", "error", werr)
			}
		}
	}
}

func processOne(ctx context.Context, proc *pipeline.Processor, path, outDir string, stats *batchStats, logger *slog.Logger) {
	stats.mu.Lock()
	stats.processed++
	stats.mu.Unlock()

	pdfBytes, err := os.ReadFile(path)
	if err != nil {
		logger.Error("failed to read input PDF", "path", path, "error", err)
		stats.fail()
		return
	}

	res, err := proc.Process(ctx, pdfBytes)
	if err != nil {
		logger.Error("processing failed", "path", path, "error", err)
		stats.fail()
		return
	}
	stats.outcome(res.Outcome)

	dir := outDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	outPath := filepath.Join(dir, fmt.Sprintf("Orden_Compra_%s.pdf", res.Record.OrderNumber))
	if err := os.WriteFile(outPath, res.PDF, 0644); err != nil {
		logger.Error("failed to write output file", "path", outPath, "error", err)
		stats.fail()
	}
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
