package graphmcp

import (
	"context"
	"errors"
	"time"

	"github.com/finsight/graphmcp/internal/govern"
)

// Query executes the full pipeline for one query and returns only a
// QueryOutput. All failures (gate rejections, transport errors, downstream
// errors) are converted to output.Error with the taxonomy kind in
// output.ErrorKind, so callers only need to check output.Error.
func (g *GraphMcp) Query(ctx context.Context, input QueryInput) *QueryOutput {
	startTime := time.Now()

	if input.GraphID == "" {
		return g.handleError(input.GraphID, &QueryError{Kind: ErrKindValidation, Message: "graph_id is required"})
	}

	conn, err := g.pool.Acquire(ctx, input.GraphID)
	if err != nil {
		return g.handleError(input.GraphID, err)
	}
	defer func() {
		g.pool.Release(ctx, conn)
		g.updatePoolGauges()
	}()

	result, err := conn.Client().(*Client).Execute(ctx, input.Cypher, input.Parameters)
	if err != nil {
		return g.handleError(input.GraphID, err)
	}

	g.metrics.ObserveQuery(input.GraphID, "ok", time.Since(startTime))
	if result.Truncation.Kind != string(govern.KindNone) {
		g.metrics.RecordTruncation(result.Truncation.Kind)
	}

	output := &QueryOutput{
		Rows:            result.Rows,
		RowCount:        len(result.Rows),
		ExecutionTimeMs: result.ExecutionTimeMs,
	}
	if result.Truncation.Kind != string(govern.KindNone) {
		trunc := result.Truncation
		output.Truncation = &trunc
	}
	return output
}

// ValidateQuery runs static analysis without touching the network. It never
// fails; diagnostics land in the output.
func (g *GraphMcp) ValidateQuery(input ValidateInput) *ValidateOutput {
	r := g.validator.Validate(input.Cypher, input.Parameters)
	return &ValidateOutput{
		IsValid:         r.IsValid,
		Errors:          r.Errors,
		Warnings:        r.Warnings,
		Suggestions:     r.Suggestions,
		ComplexityScore: r.ComplexityScore,
		PatternTags:     r.PatternTags,
		RewrittenQuery:  r.RewrittenQuery,
	}
}

// GetSchema enumerates labels and relationship types with counts. Results
// are not cached here; any caching is the caller's responsibility.
func (g *GraphMcp) GetSchema(ctx context.Context, graphID string) (*SchemaOutput, error) {
	startTime := time.Now()

	conn, err := g.pool.Acquire(ctx, graphID)
	if err != nil {
		return nil, err
	}
	defer g.pool.Release(ctx, conn)

	entries, err := conn.Client().(*Client).GetSchema(ctx)
	if err != nil {
		return nil, err
	}

	g.logger.Info().
		Str("graph", graphID).
		Dur("duration", time.Since(startTime)).
		Int("entry_count", len(entries)).
		Msg("schema retrieved")

	return &SchemaOutput{GraphID: graphID, Entries: entries}, nil
}

// GetGraphInfo returns aggregate counts and label inventories for a graph.
func (g *GraphMcp) GetGraphInfo(ctx context.Context, graphID string) (*GraphInfoOutput, error) {
	conn, err := g.pool.Acquire(ctx, graphID)
	if err != nil {
		return nil, err
	}
	defer g.pool.Release(ctx, conn)

	return conn.Client().(*Client).GetGraphInfo(ctx)
}

// handleError converts any error into a QueryOutput. The sanitized message
// is what the caller sees; the full detail was already logged at the point
// of classification.
func (g *GraphMcp) handleError(graphID string, err error) *QueryOutput {
	var qe *QueryError
	if !errors.As(err, &qe) {
		g.logger.Error().Err(err).Str("graph", graphID).Msg("unclassified query error")
		qe = &QueryError{Kind: ErrKindUnknown, Message: genericMessages[ErrKindUnknown]}
	}

	g.metrics.ObserveQuery(graphID, "error", 0)
	g.metrics.RecordError(string(qe.Kind))

	return &QueryOutput{
		Error:             qe.Message,
		ErrorKind:         string(qe.Kind),
		RetryAfterSeconds: qe.RetryAfterSeconds,
	}
}

func (g *GraphMcp) updatePoolGauges() {
	for graph, n := range g.pool.Stats() {
		g.metrics.SetPooledConnections(graph, n)
	}
}
