package ingest_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilerojas/orden-compra-app/internal/ingest"
)

func TestWatchEmitsDebouncedEvent(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Root:     root,
		Debounce: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	path := filepath.Join(root, "oc-0158.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	select {
	case got := <-events:
		assert.Equal(t, path, got)
	case werr := <-errs:
		t.Fatalf("unexpected watcher error: %v", werr)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for the new file")
	}
}

func TestWatchInitialScan(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "oc-0001.pdf")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := ingest.Watch(ctx, ingest.WatchConfig{
		Root:        root,
		InitialScan: true,
	})
	require.NoError(t, err)

	select {
	case got := <-events:
		assert.Equal(t, existing, got)
	case <-time.After(2 * time.Second):
		t.Fatal("pre-existing file was not emitted")
	}
}

// Cancellation must close the event channel cleanly even while a debounce
// flush is due for a burst of files.
func TestWatchCancelDuringPendingFlush(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	events, _, err := ingest.Watch(ctx, ingest.WatchConfig{
		Root:     root,
		Debounce: time.Millisecond,
	})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		name := filepath.Join(root, fmt.Sprintf("oc-%04d.pdf", i))
		require.NoError(t, os.WriteFile(name, []byte("x"), 0644))
	}
	time.Sleep(10 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		for range events {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event channel did not close after cancellation")
	}
}

func TestWatchRequiresRoot(t *testing.T) {
	_, _, err := ingest.Watch(context.Background(), ingest.WatchConfig{})
	require.Error(t, err)
}
