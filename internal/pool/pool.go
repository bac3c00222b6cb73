// Package pool maintains reusable query clients keyed by graph identifier.
//
// Each graph key owns a bucket guarded by its own lock, so operations on
// distinct graphs never contend. A background sweep closes entries that sit
// idle past the idle timeout or outlive the maximum lifetime; it is the
// sole remover of stale entries. Acquire never blocks waiting for
// capacity — when a bucket is empty a fresh client is constructed.
package pool

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Client is what the pool stores and recycles. Construction is delegated to
// a Factory so the pool stays ignorant of transport details.
type Client interface {
	Close(ctx context.Context) error
}

// Factory constructs a new client for a graph key. It may perform discovery
// I/O, so it is always invoked outside the pool's locks.
type Factory func(ctx context.Context, graphID string) (Client, error)

// Config holds pool sizing and eviction settings.
type Config struct {
	// MaxPerGraph caps how many idle clients a single graph key retains.
	// A client released into a full bucket is closed, not queued.
	MaxPerGraph int
	// IdleTimeout evicts clients not used within this window.
	IdleTimeout time.Duration
	// MaxLifetime evicts clients regardless of use after this age.
	MaxLifetime time.Duration
	// SweepInterval is how often the background sweep runs.
	SweepInterval time.Duration
}

type entry struct {
	client     Client
	createdAt  time.Time
	lastUsedAt time.Time
}

type bucket struct {
	mu      sync.Mutex
	entries []*entry
}

// Pool is a concurrency-safe registry of reusable clients. Construct it
// with New, start the sweep with Start, and bind Stop to the service's
// shutdown path — the pool has no global instance and no hidden lifecycle.
type Pool struct {
	config  Config
	factory Factory
	logger  zerolog.Logger

	// mu guards the buckets map itself, including first-touch creation of
	// a brand-new key. Bucket contents are guarded by each bucket's own
	// lock; lock order is always mu before bucket.mu.
	mu      sync.Mutex
	buckets map[string]*bucket

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Pool. The sweep does not run until Start is called.
func New(config Config, factory Factory, logger zerolog.Logger) *Pool {
	if config.MaxPerGraph <= 0 {
		config.MaxPerGraph = 5
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = 60 * time.Second
	}
	return &Pool{
		config:  config,
		factory: factory,
		logger:  logger,
		buckets: make(map[string]*bucket),
	}
}

// Start launches the background sweep. The sweep exits when the given
// context is cancelled or Stop is called.
func (p *Pool) Start(ctx context.Context) {
	sweepCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.sweepLoop(sweepCtx)
}

// Conn is an acquired client handle. It is held by exactly one caller
// between Acquire and Release/Discard.
type Conn struct {
	GraphID   string
	client    Client
	createdAt time.Time
}

// Client returns the underlying client.
func (c *Conn) Client() Client {
	return c.client
}

// Acquire returns a client for the graph key, reusing an idle one when
// available and constructing a new one otherwise. It never blocks waiting
// for capacity. The caller must hand the handle back via Release or Discard.
func (p *Pool) Acquire(ctx context.Context, graphID string) (*Conn, error) {
	b := p.bucketFor(graphID)

	b.mu.Lock()
	if n := len(b.entries); n > 0 {
		e := b.entries[n-1]
		b.entries = b.entries[:n-1]
		b.mu.Unlock()
		return &Conn{GraphID: graphID, client: e.client, createdAt: e.createdAt}, nil
	}
	b.mu.Unlock()

	client, err := p.factory(ctx, graphID)
	if err != nil {
		return nil, err
	}
	p.logger.Debug().Str("graph", graphID).Msg("created pooled client")
	return &Conn{GraphID: graphID, client: client, createdAt: time.Now()}, nil
}

// Release returns a handle to its bucket with a refreshed last-used stamp.
// When the bucket is already at capacity the client is closed instead,
// silently — capacity only ever fails at release time, never at acquire.
func (p *Pool) Release(ctx context.Context, conn *Conn) {
	b := p.bucketFor(conn.GraphID)

	b.mu.Lock()
	if len(b.entries) < p.config.MaxPerGraph {
		b.entries = append(b.entries, &entry{
			client:     conn.client,
			createdAt:  conn.createdAt,
			lastUsedAt: time.Now(),
		})
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	if err := conn.client.Close(ctx); err != nil {
		p.logger.Warn().Err(err).Str("graph", conn.GraphID).Msg("failed to close surplus client")
	}
}

// Discard closes a handle's client without returning it to the pool. Use
// after a transport failure that leaves the client in an unknown state.
func (p *Pool) Discard(ctx context.Context, conn *Conn) {
	if err := conn.client.Close(ctx); err != nil {
		p.logger.Warn().Err(err).Str("graph", conn.GraphID).Msg("failed to close discarded client")
	}
}

// Stop signals the sweep to exit, waits for it, then closes every remaining
// pooled entry across every key.
func (p *Pool) Stop(ctx context.Context) {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}

	p.mu.Lock()
	var remaining []*entry
	for key, b := range p.buckets {
		b.mu.Lock()
		remaining = append(remaining, b.entries...)
		b.entries = nil
		b.mu.Unlock()
		delete(p.buckets, key)
	}
	p.mu.Unlock()

	for _, e := range remaining {
		if err := e.client.Close(ctx); err != nil {
			p.logger.Warn().Err(err).Msg("failed to close pooled client on stop")
		}
	}
}

// Stats returns the number of idle entries per graph key.
func (p *Pool) Stats() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats := make(map[string]int, len(p.buckets))
	for key, b := range p.buckets {
		b.mu.Lock()
		stats[key] = len(b.entries)
		b.mu.Unlock()
	}
	return stats
}

// bucketFor returns the bucket for a graph key, creating it under the
// top-level lock so concurrent first-touch of a new key is safe.
func (p *Pool) bucketFor(graphID string) *bucket {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.buckets[graphID]
	if !ok {
		b = &bucket{}
		p.buckets[graphID] = b
	}
	return b
}

func (p *Pool) sweepLoop(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			evicted := p.SweepOnce(ctx, now)
			if evicted > 0 {
				p.logger.Debug().Int("evicted", evicted).Msg("pool sweep evicted stale clients")
			}
		}
	}
}

// SweepOnce partitions every bucket into keep and evict, closes the evicted
// entries, and drops keys whose buckets become empty. Returns the number of
// evicted entries. Exported so tests and operators can force a pass.
func (p *Pool) SweepOnce(ctx context.Context, now time.Time) int {
	p.mu.Lock()
	var evicted []*entry
	for key, b := range p.buckets {
		b.mu.Lock()
		keep := b.entries[:0]
		for _, e := range b.entries {
			idle := now.Sub(e.lastUsedAt)
			lifetime := now.Sub(e.createdAt)
			if (p.config.IdleTimeout > 0 && idle > p.config.IdleTimeout) ||
				(p.config.MaxLifetime > 0 && lifetime > p.config.MaxLifetime) {
				evicted = append(evicted, e)
				continue
			}
			keep = append(keep, e)
		}
		b.entries = keep
		empty := len(b.entries) == 0
		b.mu.Unlock()
		if empty {
			delete(p.buckets, key)
		}
	}
	p.mu.Unlock()

	for _, e := range evicted {
		if err := e.client.Close(ctx); err != nil {
			// Logged and self-healing: the entry is already out of the
			// bucket, the next sweep tick proceeds normally.
			p.logger.Warn().Err(err).Msg("failed to close evicted client")
		}
	}
	return len(evicted)
}
