// Package limit rewrites graph queries to bound their row cardinality.
//
// Injection is purely textual: the query is treated as opaque text, never
// parsed. Inject is idempotent — a query that already carries a LIMIT is
// returned unchanged.
package limit

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	limitRe   = regexp.MustCompile(`(?i)\bLIMIT\b`)
	unionRe   = regexp.MustCompile(`(?i)\bUNION\b`)
	returnRe  = regexp.MustCompile(`(?i)\bRETURN\b`)
	orderTail = regexp.MustCompile(`(?is)\bORDER\s+BY\s+.+?(?:\s+(?:ASC|DESC))?\s*$`)
)

// Aggregation markers. Aggregate queries already bound their own cardinality;
// injecting a LIMIT into them would change semantics, so callers must check
// HasAggregation before calling Inject.
var aggregationMarkers = []string{
	"COUNT(", "SUM(", "AVG(", "MIN(", "MAX(", "COLLECT(",
	"GROUP BY", "DISTINCT", "COUNT {", "COUNT{",
}

// HasLimit reports whether the query already contains a LIMIT token.
func HasLimit(query string) bool {
	return limitRe.MatchString(query)
}

// HasAggregation reports whether the query contains an aggregation marker.
func HasAggregation(query string) bool {
	upper := strings.ToUpper(query)
	for _, marker := range aggregationMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// Inject appends "LIMIT n" to the query. If the query already contains a
// LIMIT token it is returned unchanged. UNION queries are split into
// branches and every branch containing RETURN gets its own LIMIT so that
// the bound applies to each branch, not just the last one.
func Inject(query string, n int) string {
	if HasLimit(query) {
		return query
	}
	if unionRe.MatchString(query) {
		branches := unionRe.Split(query, -1)
		for i, branch := range branches {
			branch = strings.TrimSpace(branch)
			if returnRe.MatchString(branch) {
				branch = injectSingle(branch, n)
			}
			branches[i] = branch
		}
		return strings.Join(branches, " UNION ")
	}
	return injectSingle(query, n)
}

// injectSingle appends "LIMIT n" to one UNION-free query. A trailing
// semicolon is dropped first. When the query ends with an ORDER BY clause
// the LIMIT lands immediately after it.
func injectSingle(query string, n int) string {
	trimmed := strings.TrimRight(query, " \t\r\n")
	trimmed = strings.TrimSuffix(trimmed, ";")
	trimmed = strings.TrimRight(trimmed, " \t\r\n")
	if trimmed == "" {
		return trimmed
	}
	suffix := " LIMIT " + strconv.Itoa(n)
	if loc := orderTail.FindStringIndex(trimmed); loc != nil {
		return trimmed[:loc[1]] + suffix
	}
	return trimmed + suffix
}
