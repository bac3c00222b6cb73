// Package protection enforces the read-only and query-length gates that run
// before any query reaches the network.
//
// The query text is opaque to this package — there is no graph-query parser
// to lean on, so enforcement is textual. String literal contents are
// stripped first so that literal text like 'DELETE me' never triggers a
// false positive, then the remainder is tested against a word-bounded
// keyword blocklist plus a few inherently multi-token substrings.
package protection

import (
	"fmt"
	"regexp"
	"strings"
)

// Config is the checker's own config type.
type Config struct {
	// ReadOnly blocks every query containing a write or DDL keyword.
	ReadOnly bool
	// MaxQueryLength is the character ceiling enforced by CheckLength.
	// Zero disables the check.
	MaxQueryLength int
}

// Write and DDL keywords, matched with word boundaries after literal
// stripping and case normalization.
var writeKeywords = []string{
	"CREATE", "SET", "DELETE", "REMOVE", "MERGE", "DROP", "ALTER",
	"ADD", "DETACH", "INDEX", "CONSTRAINT", "START", "COMMIT", "ROLLBACK",
}

// Multi-token patterns that are safe to match as plain substrings.
var writeSubstrings = []string{
	"DETACH DELETE", "CALL DB.", "CALL APOC.",
}

var keywordPatterns = compileKeywordPatterns()

func compileKeywordPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(writeKeywords))
	for _, kw := range writeKeywords {
		patterns[kw] = regexp.MustCompile(`\b` + kw + `\b`)
	}
	return patterns
}

// Checker validates graph queries against the read-only and length gates.
type Checker struct {
	config Config
}

// NewChecker creates a new Checker with the given config.
func NewChecker(config Config) *Checker {
	return &Checker{config: config}
}

// IsReadOnly reports whether the query contains no write or DDL construct.
func (c *Checker) IsReadOnly(query string) bool {
	return c.findWriteConstruct(query) == ""
}

// Check returns a descriptive error when the checker is read-only and the
// query contains a write construct. Returns nil otherwise.
func (c *Checker) Check(query string) error {
	if !c.config.ReadOnly {
		return nil
	}
	if construct := c.findWriteConstruct(query); construct != "" {
		return fmt.Errorf("%s is not allowed: this gateway only accepts read queries", construct)
	}
	return nil
}

// CheckLength fails when the query exceeds the configured character
// ceiling. Runs before any other processing so oversized payloads never
// reach the rewriter or the network.
func (c *Checker) CheckLength(query string) error {
	if c.config.MaxQueryLength > 0 && len(query) > c.config.MaxQueryLength {
		return fmt.Errorf("query too long: %d characters exceeds maximum of %d", len(query), c.config.MaxQueryLength)
	}
	return nil
}

// findWriteConstruct returns the first matched write keyword or pattern, or
// empty string when the query looks read-only.
func (c *Checker) findWriteConstruct(query string) string {
	normalized := strings.ToUpper(stripStringLiterals(query))
	for _, kw := range writeKeywords {
		if keywordPatterns[kw].MatchString(normalized) {
			return kw
		}
	}
	for _, sub := range writeSubstrings {
		if strings.Contains(normalized, sub) {
			return sub
		}
	}
	return ""
}

// stripStringLiterals replaces the contents of single- and double-quoted
// literals with empty literals of the same quote style, preserving
// everything outside quotes. Backslash escapes inside literals are honored.
func stripStringLiterals(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	var quote byte
	escaped := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if quote != 0 {
			if escaped {
				escaped = false
				continue
			}
			switch ch {
			case '\\':
				escaped = true
			case quote:
				b.WriteByte(ch)
				quote = 0
			}
			continue
		}
		if ch == '\'' || ch == '"' {
			quote = ch
		}
		b.WriteByte(ch)
	}
	return b.String()
}
