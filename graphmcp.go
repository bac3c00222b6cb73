package graphmcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/finsight/graphmcp/internal/metrics"
	"github.com/finsight/graphmcp/internal/pool"
	"github.com/finsight/graphmcp/internal/protection"
	"github.com/finsight/graphmcp/internal/sanitize"
	"github.com/finsight/graphmcp/internal/timeout"
	"github.com/finsight/graphmcp/internal/validate"
)

// GraphMcp is the core engine providing the query, validate_query,
// get_schema, and get_graph_info tools. All exported methods are safe for
// concurrent use from multiple goroutines.
type GraphMcp struct {
	config     Config
	pool       *pool.Pool
	validator  *validate.Validator
	gate       *protection.Checker
	timeouts   *timeout.Manager
	sanitizer  *sanitize.Sanitizer
	metrics    *metrics.Metrics
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option is a functional option for New().
type Option func(*options)

type options struct {
	httpClient *http.Client
	schema     *validate.Schema
}

// WithHTTPClient overrides the HTTP client used for downstream calls.
// Mostly useful in tests; the default client carries no timeout of its own
// because every call already runs under a per-query deadline.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithSchema supplies a known graph schema, enabling the validator's
// schema-aware label and property checks.
func WithSchema(labels map[string][]string, relationshipTypes []string) Option {
	return func(o *options) {
		o.schema = &validate.Schema{Labels: labels, RelationshipTypes: relationshipTypes}
	}
}

// New creates a GraphMcp instance and starts the pool's background sweep,
// bound to ctx. Panics on invalid config. Returns an error only for runtime
// failures.
func New(ctx context.Context, config Config, logger zerolog.Logger, opts ...Option) (*GraphMcp, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	// --- Config validation (panics on invalid config) ---

	if strings.TrimSpace(config.Endpoint.BaseURL) == "" {
		panic("graphmcp: endpoint.base_url must be non-empty")
	}
	config.Endpoint.BaseURL = strings.TrimRight(config.Endpoint.BaseURL, "/")

	// Apply defaults for zero values
	if config.Query.TimeoutSeconds == 0 {
		config.Query.TimeoutSeconds = 30
	}
	if config.Query.MaxQueryLength == 0 {
		config.Query.MaxQueryLength = 10000
	}
	if config.Query.MaxResultRows == 0 {
		config.Query.MaxResultRows = 1000
	}
	if config.Query.MaxResultSizeMB == 0 {
		config.Query.MaxResultSizeMB = 10
	}
	if config.Pool.MaxConnectionsPerGraph == 0 {
		config.Pool.MaxConnectionsPerGraph = 5
	}
	if config.Query.TimeoutSeconds < 0 {
		panic("graphmcp: query.timeout_seconds must be > 0")
	}
	if config.Query.MaxQueryLength < 0 {
		panic("graphmcp: query.max_query_length must be > 0")
	}
	if config.Query.MaxResultRows < 0 {
		panic("graphmcp: query.max_result_rows must be > 0")
	}
	if config.Query.MaxResultSizeMB < 0 {
		panic("graphmcp: query.max_result_size_mb must be > 0")
	}
	if config.Pool.MaxConnectionsPerGraph < 0 {
		panic("graphmcp: pool.max_connections_per_graph must be > 0")
	}

	idleTimeout := parsePoolDuration("pool.idle_timeout", config.Pool.IdleTimeout, 5*time.Minute)
	maxLifetime := parsePoolDuration("pool.max_lifetime", config.Pool.MaxLifetime, 30*time.Minute)
	sweepInterval := parsePoolDuration("pool.sweep_interval", config.Pool.SweepInterval, 60*time.Second)

	// --- Initialize internal components ---

	timeoutRules := make([]timeout.Rule, len(config.Query.TimeoutRules))
	for i, r := range config.Query.TimeoutRules {
		if r.TimeoutSeconds <= 0 {
			panic(fmt.Sprintf("graphmcp: timeout_rule with pattern %q has timeout_seconds <= 0", r.Pattern))
		}
		timeoutRules[i] = timeout.Rule{
			Pattern: r.Pattern,
			Timeout: time.Duration(r.TimeoutSeconds) * time.Second,
		}
	}
	tmgr, err := timeout.NewManager(timeout.Config{
		DefaultTimeout: time.Duration(config.Query.TimeoutSeconds) * time.Second,
		Rules:          timeoutRules,
	})
	if err != nil {
		return nil, err
	}

	gate := protection.NewChecker(protection.Config{
		ReadOnly:       config.ReadOnly,
		MaxQueryLength: config.Query.MaxQueryLength,
	})

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	g := &GraphMcp{
		config:     config,
		validator:  validate.NewValidator(o.schema),
		gate:       gate,
		timeouts:   tmgr,
		sanitizer:  sanitize.NewSanitizer(config.Environment),
		metrics:    metrics.New("graphmcp"),
		httpClient: httpClient,
		logger:     logger,
	}

	g.pool = pool.New(pool.Config{
		MaxPerGraph:   config.Pool.MaxConnectionsPerGraph,
		IdleTimeout:   idleTimeout,
		MaxLifetime:   maxLifetime,
		SweepInterval: sweepInterval,
	}, func(ctx context.Context, graphID string) (pool.Client, error) {
		return g.newClient(graphID), nil
	}, logger)
	g.pool.Start(ctx)

	return g, nil
}

// newClient constructs the query client for one graph. Invoked by the pool
// factory on first acquire for a key.
func (g *GraphMcp) newClient(graphID string) *Client {
	return &Client{
		graphID:    graphID,
		baseURL:    g.config.Endpoint.BaseURL,
		apiKey:     g.config.Endpoint.APIKey,
		httpClient: g.httpClient,
		gate:       g.gate,
		timeouts:   g.timeouts,
		sanitizer:  g.sanitizer,
		query:      g.config.Query,
		logger:     g.logger,
	}
}

// Close stops the pool sweep and closes every pooled client.
func (g *GraphMcp) Close(ctx context.Context) {
	g.pool.Stop(ctx)
}

// MetricsHandler returns the HTTP handler serving the gateway's prometheus
// registry.
func (g *GraphMcp) MetricsHandler() http.Handler {
	return g.metrics.Handler()
}

// Ping verifies the downstream graph service is reachable for the given
// graph by running a trivial query outside the agent pipeline.
func (g *GraphMcp) Ping(ctx context.Context, graphID string) error {
	conn, err := g.pool.Acquire(ctx, graphID)
	if err != nil {
		return err
	}
	defer g.pool.Release(ctx, conn)
	_, err = conn.Client().(*Client).internalQuery(ctx, "RETURN 1 AS ok")
	return err
}

func parsePoolDuration(name, value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(fmt.Sprintf("graphmcp: invalid %s %q: %v", name, value, err))
	}
	return d
}
