package graphmcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers query, validate_query, get_schema, and
// get_graph_info as MCP tools on the given MCP server.
func RegisterMCPTools(mcpServer *server.MCPServer, g *GraphMcp) {
	// Query tool
	queryTool := mcp.NewTool("query",
		mcp.WithDescription("Execute a read-only graph query against a graph. Returns rows as JSON; results may carry _mcp_-prefixed truncation markers."),
		mcp.WithString("graph_id",
			mcp.Required(),
			mcp.Description("The graph identifier to query"),
		),
		mcp.WithString("cypher",
			mcp.Required(),
			mcp.Description("The graph query to execute"),
		),
		mcp.WithString("parameters",
			mcp.Description("Named query parameters as a JSON object"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(queryTool, g.loggedToolHandler("query", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		graphID, err := req.RequireString("graph_id")
		if err != nil {
			return mcp.NewToolResultError("graph_id parameter is required"), nil
		}
		cypher, err := req.RequireString("cypher")
		if err != nil {
			return mcp.NewToolResultError("cypher parameter is required"), nil
		}
		params, err := parseParameters(req.GetString("parameters", ""))
		if err != nil {
			return mcp.NewToolResultError("parameters must be a JSON object"), nil
		}

		output := g.Query(ctx, QueryInput{GraphID: graphID, Cypher: cypher, Parameters: params})
		if output.Error != "" {
			return mcp.NewToolResultError(output.Error), nil
		}
		jsonBytes, err := json.Marshal(output)
		if err != nil {
			return mcp.NewToolResultError("failed to marshal query result"), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}))

	// ValidateQuery tool
	validateTool := mcp.NewTool("validate_query",
		mcp.WithDescription("Statically validate a graph query without executing it. Returns errors, warnings, suggestions, a complexity score, and a best-effort rewritten query for known dialect incompatibilities."),
		mcp.WithString("cypher",
			mcp.Required(),
			mcp.Description("The graph query to validate"),
		),
		mcp.WithString("parameters",
			mcp.Description("Named query parameters as a JSON object"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(validateTool, g.loggedToolHandler("validate_query", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cypher, err := req.RequireString("cypher")
		if err != nil {
			return mcp.NewToolResultError("cypher parameter is required"), nil
		}
		params, err := parseParameters(req.GetString("parameters", ""))
		if err != nil {
			return mcp.NewToolResultError("parameters must be a JSON object"), nil
		}

		output := g.ValidateQuery(ValidateInput{Cypher: cypher, Parameters: params})
		jsonBytes, err := json.Marshal(output)
		if err != nil {
			return mcp.NewToolResultError("failed to marshal validation result"), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}))

	// GetSchema tool
	schemaTool := mcp.NewTool("get_schema",
		mcp.WithDescription("List the graph's node labels and relationship types with per-label counts."),
		mcp.WithString("graph_id",
			mcp.Required(),
			mcp.Description("The graph identifier"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(schemaTool, g.loggedToolHandler("get_schema", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		graphID, err := req.RequireString("graph_id")
		if err != nil {
			return mcp.NewToolResultError("graph_id parameter is required"), nil
		}
		output, err := g.GetSchema(ctx, graphID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		jsonBytes, err := json.Marshal(output)
		if err != nil {
			return mcp.NewToolResultError("failed to marshal schema result"), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}))

	// GetGraphInfo tool
	infoTool := mcp.NewTool("get_graph_info",
		mcp.WithDescription("Return aggregate node and relationship counts plus label inventories for a graph."),
		mcp.WithString("graph_id",
			mcp.Required(),
			mcp.Description("The graph identifier"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(infoTool, g.loggedToolHandler("get_graph_info", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		graphID, err := req.RequireString("graph_id")
		if err != nil {
			return mcp.NewToolResultError("graph_id parameter is required"), nil
		}
		output, err := g.GetGraphInfo(ctx, graphID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		jsonBytes, err := json.Marshal(output)
		if err != nil {
			return mcp.NewToolResultError("failed to marshal graph info result"), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}))
}

// parseParameters decodes the optional JSON parameters argument.
func parseParameters(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, err
	}
	return params, nil
}

// loggedToolHandler wraps a tool handler to log request and response lengths.
func (g *GraphMcp) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reqLen := requestLength(req)
		result, err := handler(ctx, req)
		respLen := resultLength(result)
		g.logger.Info().
			Str("tool", tool).
			Int("request_bytes", reqLen).
			Int("response_bytes", respLen).
			Msg("tool call")
		return result, err
	}
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
