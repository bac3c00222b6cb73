package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	id     int
	closed atomic.Int32
}

func (f *fakeClient) Close(ctx context.Context) error {
	f.closed.Add(1)
	return nil
}

type fakeFactory struct {
	mu      sync.Mutex
	created []*fakeClient
}

func (f *fakeFactory) new(ctx context.Context, graphID string) (Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeClient{id: len(f.created)}
	f.created = append(f.created, c)
	return c, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func newTestPool(t *testing.T, config Config) (*Pool, *fakeFactory) {
	t.Helper()
	factory := &fakeFactory{}
	p := New(config, factory.new, zerolog.Nop())
	return p, factory
}

func TestAcquireReusesReleasedClient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, factory := newTestPool(t, Config{MaxPerGraph: 5})

	conn, err := p.Acquire(ctx, "sec-filings")
	require.NoError(t, err)
	p.Release(ctx, conn)

	again, err := p.Acquire(ctx, "sec-filings")
	require.NoError(t, err)
	assert.Same(t, conn.Client(), again.Client(), "expected the released client to be reused")
	assert.Equal(t, 1, factory.count())
}

func TestBucketsAreIndependentPerGraph(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, factory := newTestPool(t, Config{MaxPerGraph: 5})

	a, err := p.Acquire(ctx, "graph-a")
	require.NoError(t, err)
	b, err := p.Acquire(ctx, "graph-b")
	require.NoError(t, err)
	assert.NotSame(t, a.Client(), b.Client())
	assert.Equal(t, 2, factory.count())

	p.Release(ctx, a)
	p.Release(ctx, b)
	assert.Equal(t, map[string]int{"graph-a": 1, "graph-b": 1}, p.Stats())
}

func TestReleaseClosesSurplusBeyondCapacity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, _ := newTestPool(t, Config{MaxPerGraph: 2})

	conns := make([]*Conn, 3)
	for i := range conns {
		c, err := p.Acquire(ctx, "g")
		require.NoError(t, err)
		conns[i] = c
	}
	for _, c := range conns {
		p.Release(ctx, c)
	}

	assert.Equal(t, map[string]int{"g": 2}, p.Stats())
	closedTotal := 0
	for _, c := range conns {
		closedTotal += int(c.Client().(*fakeClient).closed.Load())
	}
	assert.Equal(t, 1, closedTotal, "exactly the surplus client should be closed")
}

func TestDiscardClosesWithoutPooling(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, _ := newTestPool(t, Config{MaxPerGraph: 5})

	conn, err := p.Acquire(ctx, "g")
	require.NoError(t, err)
	p.Discard(ctx, conn)

	assert.Equal(t, int32(1), conn.Client().(*fakeClient).closed.Load())
	assert.Empty(t, p.Stats())
}

func TestSweepEvictsIdleEntries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, _ := newTestPool(t, Config{MaxPerGraph: 5, IdleTimeout: 5 * time.Minute})

	conn, err := p.Acquire(ctx, "g")
	require.NoError(t, err)
	p.Release(ctx, conn)

	evicted := p.SweepOnce(ctx, time.Now().Add(10*time.Minute))
	assert.Equal(t, 1, evicted)
	assert.Equal(t, int32(1), conn.Client().(*fakeClient).closed.Load())
	assert.Empty(t, p.Stats(), "empty buckets should drop their key")
}

func TestSweepEvictsOnMaxLifetimeDespiteRecentUse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, _ := newTestPool(t, Config{
		MaxPerGraph: 5,
		IdleTimeout: time.Hour,
		MaxLifetime: 30 * time.Minute,
	})

	conn, err := p.Acquire(ctx, "g")
	require.NoError(t, err)

	// Cycle the handle through several release/acquire rounds. The creation
	// timestamp must survive reuse so lifetime keeps counting from the
	// original construction.
	for i := 0; i < 3; i++ {
		p.Release(ctx, conn)
		conn, err = p.Acquire(ctx, "g")
		require.NoError(t, err)
	}
	p.Release(ctx, conn)

	evicted := p.SweepOnce(ctx, time.Now().Add(31*time.Minute))
	assert.Equal(t, 1, evicted)
}

func TestSweepKeepsFreshEntries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, _ := newTestPool(t, Config{MaxPerGraph: 5, IdleTimeout: 5 * time.Minute, MaxLifetime: 30 * time.Minute})

	conn, err := p.Acquire(ctx, "g")
	require.NoError(t, err)
	p.Release(ctx, conn)

	evicted := p.SweepOnce(ctx, time.Now().Add(time.Minute))
	assert.Zero(t, evicted)
	assert.Equal(t, map[string]int{"g": 1}, p.Stats())
}

func TestStopClosesAllPooledClients(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, _ := newTestPool(t, Config{MaxPerGraph: 5, SweepInterval: 10 * time.Millisecond})
	p.Start(ctx)

	var conns []*Conn
	for _, g := range []string{"a", "a", "b"} {
		c, err := p.Acquire(ctx, g)
		require.NoError(t, err)
		conns = append(conns, c)
	}
	for _, c := range conns {
		p.Release(ctx, c)
	}

	p.Stop(ctx)
	for _, c := range conns {
		assert.Equal(t, int32(1), c.Client().(*fakeClient).closed.Load())
	}
	assert.Empty(t, p.Stats())
}

func TestStartIsCancelledByContext(t *testing.T) {
	t.Parallel()
	p, _ := newTestPool(t, Config{MaxPerGraph: 5, SweepInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()

	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep goroutine did not exit after context cancellation")
	}
}

func TestConcurrentAcquireReleaseIsSafe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, _ := newTestPool(t, Config{MaxPerGraph: 3})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			graph := fmt.Sprintf("graph-%d", worker%2)
			for j := 0; j < 50; j++ {
				conn, err := p.Acquire(ctx, graph)
				if err != nil {
					t.Errorf("acquire: %v", err)
					return
				}
				p.Release(ctx, conn)
			}
		}(i)
	}
	wg.Wait()

	for graph, n := range p.Stats() {
		assert.LessOrEqual(t, n, 3, "bucket %s exceeded capacity", graph)
	}
}
