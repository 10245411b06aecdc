package async_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilerojas/orden-compra-app/internal/async"
)

func TestQueueProcessesAllJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}

	q := async.NewQueue(func(_ context.Context, path string) {
		mu.Lock()
		seen[path]++
		mu.Unlock()
	}, nil, async.WithWorkers(3))

	ctx := context.Background()
	for _, p := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"} {
		require.NoError(t, q.Enqueue(ctx, async.Job{Path: p, SubmittedAt: time.Now()}))
	}
	q.Shutdown(ctx)

	assert.Len(t, seen, 4)
	for p, n := range seen {
		assert.Equal(t, 1, n, "path %s processed once", p)
	}
}

func TestQueueEnqueueAfterShutdown(t *testing.T) {
	q := async.NewQueue(func(context.Context, string) {}, nil, async.WithWorkers(1))
	ctx := context.Background()
	q.Shutdown(ctx)

	// Dropped with a warning, not a panic on the closed channel.
	require.NoError(t, q.Enqueue(ctx, async.Job{Path: "late.pdf"}))
}

func TestQueueShutdownIdempotent(t *testing.T) {
	q := async.NewQueue(func(context.Context, string) {}, nil)
	ctx := context.Background()
	q.Shutdown(ctx)
	q.Shutdown(ctx)
}

func TestQueueHandlerTimeout(t *testing.T) {
	done := make(chan struct{})
	q := async.NewQueue(func(ctx context.Context, _ string) {
		<-ctx.Done()
		close(done)
	}, nil, async.WithWorkers(1), async.WithProcessTimeout(10*time.Millisecond))

	require.NoError(t, q.Enqueue(context.Background(), async.Job{Path: "slow.pdf"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler context was never cancelled")
	}
	q.Shutdown(context.Background())
}
