// Package govern shapes in-memory result sets against row-count and
// byte-size budgets.
//
// Truncation markers are synthetic rows under the reserved "_mcp_" key
// prefix, which is assumed never to collide with legitimate result fields.
package govern

import (
	"encoding/json"
	"fmt"
)

// Reserved marker keys.
const (
	NoteKey = "_mcp_note"
	HintKey = "_mcp_hint"
	KeptKey = "_mcp_rows_kept"
	SizeKey = "_mcp_size_bytes"
)

// Marker notes.
const (
	RowCountNote = "RESULTS_TRUNCATED"
	ByteSizeNote = "RESULTS_SIZE_TRUNCATED"
)

// Kind identifies which budget, if any, shaped the result.
type Kind string

const (
	KindNone     Kind = "none"
	KindRowCount Kind = "row_count"
	KindByteSize Kind = "byte_size"
)

// Truncation describes how a result set was shaped. ReportedCount is the
// number of real rows in the returned slice (the marker row excluded).
// When Kind is KindRowCount the true total is unknown — the upstream
// response was already capped — so ReportedCount reads as "at least N".
type Truncation struct {
	Kind          Kind   `json:"kind"`
	Note          string `json:"note,omitempty"`
	ReportedCount int    `json:"reported_count"`
}

// Apply shapes rows against the two budgets and returns the rows to hand to
// the caller plus truncation metadata.
//
// The byte-size budget is the harder physical constraint: when both budgets
// would apply, the size-truncated result wins. Size truncation is
// row-granular — a row is either kept whole or dropped, never split.
//
// The row-count marker is advisory: it is appended (not cut) when exactly
// maxRows rows came back and the caller supplied no explicit row bound,
// since in that case the upstream response was capped by limit injection
// and more rows may have matched.
func Apply(rows []map[string]any, maxRows, maxBytes int, hadExplicitLimit bool) ([]map[string]any, Truncation) {
	if kept, size, truncated := fitSize(rows, maxBytes); truncated {
		out := make([]map[string]any, 0, len(kept)+1)
		out = append(out, kept...)
		out = append(out, map[string]any{
			NoteKey: ByteSizeNote,
			KeptKey: len(kept),
			SizeKey: size,
			HintKey: fmt.Sprintf("result exceeded the %d byte budget; %d of %d rows returned", maxBytes, len(kept), len(rows)),
		})
		return out, Truncation{Kind: KindByteSize, Note: ByteSizeNote, ReportedCount: len(kept)}
	}

	if maxRows > 0 && len(rows) == maxRows && !hadExplicitLimit {
		out := make([]map[string]any, 0, len(rows)+1)
		out = append(out, rows...)
		out = append(out, map[string]any{
			NoteKey: RowCountNote,
			HintKey: fmt.Sprintf("at least %d rows matched; add a LIMIT or narrow the pattern to see more specific results", maxRows),
		})
		return out, Truncation{Kind: KindRowCount, Note: RowCountNote, ReportedCount: maxRows}
	}

	return rows, Truncation{Kind: KindNone, ReportedCount: len(rows)}
}

// fitSize returns the longest row prefix whose cumulative serialized size
// stays within maxBytes, the measured size of that prefix, and whether any
// row was dropped. maxBytes <= 0 disables the budget.
func fitSize(rows []map[string]any, maxBytes int) ([]map[string]any, int, bool) {
	if maxBytes <= 0 {
		return rows, 0, false
	}
	total := 0
	for i, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			// Unmarshalable rows count as zero bytes; the transport layer
			// already produced them from JSON so this should not happen.
			continue
		}
		if total+len(b) > maxBytes {
			return rows[:i], total, true
		}
		total += len(b)
	}
	return rows, total, false
}
