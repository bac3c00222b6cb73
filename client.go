package graphmcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finsight/graphmcp/internal/govern"
	"github.com/finsight/graphmcp/internal/limit"
	"github.com/finsight/graphmcp/internal/protection"
	"github.com/finsight/graphmcp/internal/sanitize"
	"github.com/finsight/graphmcp/internal/timeout"
)

// maxErrorBodyBytes caps how much of a downstream error body is read.
const maxErrorBodyBytes = 64 * 1024

// Client executes queries against one graph over the downstream HTTP
// transport. Instances are created by the pool factory, reused across many
// calls, and safe for concurrent use. All pipeline stages except the
// network call itself run to completion without yielding.
type Client struct {
	graphID    string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	gate       *protection.Checker
	timeouts   *timeout.Manager
	sanitizer  *sanitize.Sanitizer
	query      QueryConfig
	logger     zerolog.Logger
}

type wireRequest struct {
	Cypher     string         `json:"cypher"`
	Parameters map[string]any `json:"parameters"`
}

type wireResponse struct {
	Data            []map[string]any `json:"data"`
	ExecutionTimeMs float64          `json:"execution_time_ms"`
}

type wireError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Execute runs the full pipeline for one query: length gate, read-only
// gate, auto-limit injection, the bounded network call, and result shaping.
// A deadline expiry never yields a partial result, and no retry is
// attempted in this layer.
func (c *Client) Execute(ctx context.Context, cypher string, params map[string]any) (*ExecutionResult, error) {
	if err := c.gate.CheckLength(cypher); err != nil {
		return nil, &QueryError{Kind: ErrKindComplexity, Message: err.Error()}
	}
	if err := c.gate.Check(cypher); err != nil {
		return nil, &QueryError{Kind: ErrKindValidation, Message: err.Error()}
	}

	hadExplicitLimit := limit.HasLimit(cypher)
	query := cypher
	if c.query.AutoLimitEnabled && !hadExplicitLimit && !limit.HasAggregation(cypher) {
		query = limit.Inject(cypher, c.query.MaxResultRows)
	}

	deadline, rule := c.timeouts.GetTimeoutWithPattern(query)
	queryCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	resp, err := c.doRequest(queryCtx, query, params)
	if err != nil {
		return nil, err
	}

	rows, trunc := govern.Apply(resp.Data, c.query.MaxResultRows, c.query.MaxResultSizeMB*1024*1024, hadExplicitLimit)

	logEvent := c.logger.Info().
		Str("graph", c.graphID).
		Str("cypher", truncateForLog(cypher, 200)).
		Float64("execution_time_ms", resp.ExecutionTimeMs).
		Int("row_count", len(rows))
	if rule != "" {
		logEvent = logEvent.Str("timeout_rule", rule)
	}
	if trunc.Kind != govern.KindNone {
		logEvent = logEvent.Str("truncation", string(trunc.Kind))
	}
	logEvent.Msg("query executed")

	return &ExecutionResult{
		Rows:            rows,
		ExecutionTimeMs: resp.ExecutionTimeMs,
		Truncation: TruncationInfo{
			Kind:          string(trunc.Kind),
			Note:          trunc.Note,
			ReportedCount: trunc.ReportedCount,
		},
	}, nil
}

// doRequest performs one bounded POST to the query endpoint and classifies
// every failure into the taxonomy. The queries it sends are assumed to have
// already passed the gates.
func (c *Client) doRequest(ctx context.Context, cypher string, params map[string]any) (*wireResponse, error) {
	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(wireRequest{Cypher: cypher, Parameters: params})
	if err != nil {
		return nil, &QueryError{Kind: ErrKindValidation, Message: fmt.Sprintf("parameters are not serializable: %v", err)}
	}

	endpoint := c.baseURL + "/graphs/" + url.PathEscape(c.graphID) + "/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &QueryError{Kind: ErrKindConnection, Message: genericMessages[ErrKindConnection]}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			c.logger.Error().Err(err).Str("graph", c.graphID).Msg("query deadline exceeded")
			return nil, &QueryError{Kind: ErrKindTimeout, Message: genericMessages[ErrKindTimeout]}
		}
		c.logger.Error().Err(err).Str("graph", c.graphID).Msg("graph service unreachable")
		return nil, &QueryError{Kind: ErrKindConnection, Message: genericMessages[ErrKindConnection]}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, c.classifyResponse(httpResp)
	}

	var resp wireResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		c.logger.Error().Err(err).Str("graph", c.graphID).Msg("malformed response from graph service")
		return nil, &QueryError{Kind: ErrKindUnknown, Message: genericMessages[ErrKindUnknown]}
	}
	if resp.Data == nil {
		resp.Data = []map[string]any{}
	}
	return &resp, nil
}

// classifyResponse turns a non-2xx response into a QueryError. Status code
// is the primary signal; message-pattern matching only refines responses
// whose status says nothing useful. The raw detail is logged, never
// returned — except syntax-shaped errors outside production, which pass
// through with paths and line numbers redacted.
func (c *Client) classifyResponse(resp *http.Response) *QueryError {
	raw := readErrorBody(resp.Body)

	kind := classifyStatus(resp.StatusCode)
	if kind == ErrKindServer || kind == ErrKindUnknown {
		if refined := classifyMessage(raw); refined != ErrKindUnknown {
			kind = refined
		}
	}

	c.logger.Error().
		Str("graph", c.graphID).
		Int("status", resp.StatusCode).
		Str("detail", raw).
		Str("kind", string(kind)).
		Msg("graph query failed")

	qe := &QueryError{Kind: kind, Message: genericMessages[kind]}
	if kind == ErrKindValidation {
		qe.Message = c.sanitizer.ErrorMessage(raw, genericMessages[ErrKindValidation])
	}
	if kind == ErrKindRateLimit {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			qe.RetryAfterSeconds = secs
		}
	}
	return qe
}

// readErrorBody extracts the downstream error message from a failed
// response, falling back to the raw body text.
func readErrorBody(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil || len(data) == 0 {
		return ""
	}
	var we wireError
	if err := json.Unmarshal(data, &we); err == nil {
		if we.Error != "" {
			return we.Error
		}
		if we.Message != "" {
			return we.Message
		}
	}
	return string(data)
}

// Close satisfies the pool's client interface. The HTTP client is shared
// across all pooled clients, so there is nothing to tear down per graph.
func (c *Client) Close(ctx context.Context) error {
	c.logger.Debug().Str("graph", c.graphID).Msg("client closed")
	return nil
}

var safeLabelRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Schema and info queries are issued by the gateway itself, not the agent,
// so they bypass the read-only gate (CALL db. procedures are blocked for
// agent queries) and go straight to the transport.
const (
	labelsQuery    = "CALL db.labels() YIELD label RETURN label"
	relTypesQuery  = "CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType"
	nodeCountQuery = "MATCH (n) RETURN count(n) AS count"
	relCountQuery  = "MATCH ()-[r]->() RETURN count(r) AS count"
)

// GetSchema enumerates labels and relationship types with per-label counts.
// It performs no caching; callers that need caching layer it above the
// gateway.
func (c *Client) GetSchema(ctx context.Context) ([]SchemaEntry, error) {
	labels, err := c.stringColumn(ctx, labelsQuery, "label")
	if err != nil {
		return nil, err
	}
	relTypes, err := c.stringColumn(ctx, relTypesQuery, "relationshipType")
	if err != nil {
		return nil, err
	}

	entries := make([]SchemaEntry, 0, len(labels)+len(relTypes))
	for _, label := range labels {
		entry := SchemaEntry{Label: label, Type: "node"}
		if safeLabelRe.MatchString(label) {
			entry.Count, err = c.countQuery(ctx, fmt.Sprintf("MATCH (n:%s) RETURN count(n) AS count", label))
			if err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	for _, relType := range relTypes {
		entry := SchemaEntry{Label: relType, Type: "relationship"}
		if safeLabelRe.MatchString(relType) {
			entry.Count, err = c.countQuery(ctx, fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r) AS count", relType))
			if err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetGraphInfo returns aggregate node/relationship counts plus the label
// and relationship-type inventories.
func (c *Client) GetGraphInfo(ctx context.Context) (*GraphInfoOutput, error) {
	nodes, err := c.countQuery(ctx, nodeCountQuery)
	if err != nil {
		return nil, err
	}
	rels, err := c.countQuery(ctx, relCountQuery)
	if err != nil {
		return nil, err
	}
	labels, err := c.stringColumn(ctx, labelsQuery, "label")
	if err != nil {
		return nil, err
	}
	relTypes, err := c.stringColumn(ctx, relTypesQuery, "relationshipType")
	if err != nil {
		return nil, err
	}
	return &GraphInfoOutput{
		GraphID:            c.graphID,
		TotalNodes:         nodes,
		TotalRelationships: rels,
		NodeLabels:         labels,
		RelationshipTypes:  relTypes,
	}, nil
}

// internalQuery issues a gateway-owned query under the default deadline.
func (c *Client) internalQuery(ctx context.Context, cypher string) (*wireResponse, error) {
	queryCtx, cancel := context.WithTimeout(ctx, c.timeouts.GetTimeout(cypher))
	defer cancel()
	return c.doRequest(queryCtx, cypher, nil)
}

func (c *Client) stringColumn(ctx context.Context, cypher, column string) ([]string, error) {
	resp, err := c.internalQuery(ctx, cypher)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(resp.Data))
	for _, row := range resp.Data {
		if s, ok := row[column].(string); ok {
			values = append(values, s)
		}
	}
	return values, nil
}

func (c *Client) countQuery(ctx context.Context, cypher string) (int64, error) {
	resp, err := c.internalQuery(ctx, cypher)
	if err != nil {
		return 0, err
	}
	if len(resp.Data) == 0 {
		return 0, nil
	}
	return asInt64(resp.Data[0]["count"]), nil
}

// asInt64 converts a JSON-decoded numeric value to int64.
func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}

// truncateForLog truncates a string for log output to avoid oversized log
// entries.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "...[truncated]"
}
