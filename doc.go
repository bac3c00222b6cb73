// Package graphmcp provides safe, bounded graph-query access for AI agents
// through the Model Context Protocol (MCP).
//
// It exposes four tools — query, validate_query, get_schema, and
// get_graph_info — in front of a remote graph-query execution service
// reachable over HTTP. Every query runs through a full safety pipeline:
// length and read-only gates, automatic LIMIT injection, a hard per-query
// deadline, result shaping under row-count and byte-size budgets, and
// environment-aware error sanitization.
//
// Queries are treated as opaque text. The gateway inspects and rewrites
// them but never interprets the query language; the downstream engine does
// that. Read-only enforcement is therefore textual: string literals are
// stripped, then the remainder is checked against a write-keyword
// blocklist.
//
// # Library Usage
//
//	config := graphmcp.DefaultConfig()
//	config.Endpoint.BaseURL = "https://graph.example.com/api/v1"
//	config.Endpoint.APIKey = os.Getenv("GRAPHMCP_API_KEY")
//
//	g, err := graphmcp.New(ctx, config, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer g.Close(ctx)
//
//	// Use directly
//	output := g.Query(ctx, graphmcp.QueryInput{
//		GraphID: "sec-filings",
//		Cypher:  "MATCH (c:Company) RETURN c.name LIMIT 10",
//	})
//
//	// Or register as MCP tools
//	graphmcp.RegisterMCPTools(mcpServer, g)
//
// # Connection Pooling
//
// Clients are pooled per graph identifier. Acquire never blocks waiting for
// capacity — a fresh client is constructed when a bucket is empty — and a
// background sweep owned by the engine closes clients that sit idle past
// the idle timeout or outlive the maximum lifetime. The sweep starts in New
// and stops in Close; there is no global pool instance.
//
// # Result Truncation
//
// When auto-limiting is enabled and a query carries no explicit LIMIT, the
// gateway injects one at the configured row budget. A result that comes
// back exactly at the budget gains a synthetic marker row under the
// reserved "_mcp_" key prefix (_mcp_note = "RESULTS_TRUNCATED") because the
// true total is unknown. Independently, results are trimmed to the byte
// budget at row granularity; when both budgets apply, the byte budget wins.
package graphmcp
