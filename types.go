package graphmcp

// QueryInput is the input for the query tool.
type QueryInput struct {
	GraphID    string         `json:"graph_id"`
	Cypher     string         `json:"cypher"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// TruncationInfo describes how a result set was shaped by the row-count and
// byte-size budgets.
type TruncationInfo struct {
	Kind          string `json:"kind"` // none, row_count, byte_size
	Note          string `json:"note,omitempty"`
	ReportedCount int    `json:"reported_count"`
}

// QueryOutput is the output of the query tool. All failures (gate
// rejections, transport errors, downstream errors) are placed in Error with
// the taxonomy kind in ErrorKind, so callers only need to check Error.
type QueryOutput struct {
	Rows              []map[string]any `json:"rows"`
	RowCount          int              `json:"row_count"`
	ExecutionTimeMs   float64          `json:"execution_time_ms"`
	Truncation        *TruncationInfo  `json:"truncation,omitempty"`
	Error             string           `json:"error,omitempty"`
	ErrorKind         string           `json:"error_kind,omitempty"`
	RetryAfterSeconds int              `json:"retry_after_seconds,omitempty"`
}

// ExecutionResult is what a Client.Execute call yields on success. It is
// created once per call and owned by the caller.
type ExecutionResult struct {
	Rows            []map[string]any
	ExecutionTimeMs float64
	Truncation      TruncationInfo
}

// ValidateInput is the input for the validate_query tool.
type ValidateInput struct {
	Cypher     string         `json:"cypher"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ValidateOutput is the output of the validate_query tool.
type ValidateOutput struct {
	IsValid         bool     `json:"is_valid"`
	Errors          []string `json:"errors"`
	Warnings        []string `json:"warnings"`
	Suggestions     []string `json:"suggestions"`
	ComplexityScore int      `json:"complexity_score"`
	PatternTags     []string `json:"detected_pattern_tags"`
	RewrittenQuery  string   `json:"rewritten_query,omitempty"`
}

// SchemaEntry describes one label or relationship type in the graph.
type SchemaEntry struct {
	Label string `json:"label"`
	Type  string `json:"type"` // "node" or "relationship"
	Count int64  `json:"count"`
}

// SchemaOutput is the output of the get_schema tool.
type SchemaOutput struct {
	GraphID string        `json:"graph_id"`
	Entries []SchemaEntry `json:"entries"`
}

// GraphInfoOutput is the output of the get_graph_info tool.
type GraphInfoOutput struct {
	GraphID            string   `json:"graph_id"`
	TotalNodes         int64    `json:"total_nodes"`
	TotalRelationships int64    `json:"total_relationships"`
	NodeLabels         []string `json:"node_labels"`
	RelationshipTypes  []string `json:"relationship_types"`
}
