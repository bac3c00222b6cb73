// Package validate performs static analysis of graph queries before they
// are sent anywhere.
//
// Validation never fails: Validate always returns a Result, and only the
// Errors slice affects validity. Warnings and suggestions steer the calling
// agent without blocking execution. The analysis is purely textual — the
// query language is inspected, never interpreted.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Result holds structured diagnostics for one validation call. A Result is
// created fresh per call and never mutated afterwards.
type Result struct {
	IsValid         bool     `json:"is_valid"`
	Errors          []string `json:"errors"`
	Warnings        []string `json:"warnings"`
	Suggestions     []string `json:"suggestions"`
	ComplexityScore int      `json:"complexity_score"`
	PatternTags     []string `json:"detected_pattern_tags"`
	RewrittenQuery  string   `json:"rewritten_query,omitempty"`
}

// Schema describes the graph's known labels, their property names, and
// relationship types. Supplying one enables the schema-aware checks.
type Schema struct {
	Labels            map[string][]string
	RelationshipTypes []string
}

// Validator analyzes query text. Safe for concurrent use.
type Validator struct {
	schema *Schema
}

// NewValidator creates a Validator. schema may be nil, which disables the
// schema-aware checks.
func NewValidator(schema *Schema) *Validator {
	return &Validator{schema: schema}
}

// Validate runs the full analysis pipeline over the query and its
// parameters. It never returns an error; everything it finds lands in the
// Result.
func (v *Validator) Validate(query string, params map[string]any) *Result {
	r := &Result{
		Errors:      []string{},
		Warnings:    []string{},
		Suggestions: []string{},
		PatternTags: []string{},
	}

	if strings.TrimSpace(query) == "" {
		r.Errors = append(r.Errors, "query is empty")
		r.IsValid = false
		return r
	}

	checkSyntax(query, r)

	detected := detectIncompatibilities(query, r)
	v.checkSchema(query, r)
	scoreComplexity(query, r)
	checkBestPractices(query, r)
	checkParameters(query, params, r)

	if len(detected) > 0 {
		rewritten := applyRewrites(query, detected)
		if rewritten != query {
			r.RewrittenQuery = rewritten
		}
	}

	r.IsValid = len(r.Errors) == 0
	return r
}

var quotedLiteralRe = regexp.MustCompile(`'(?:\\.|[^'\\])*'|"(?:\\.|[^"\\])*"`)

// withoutLiterals blanks quoted string contents so that text inside
// literals cannot confuse the structural checks.
func withoutLiterals(query string) string {
	return quotedLiteralRe.ReplaceAllStringFunc(query, func(m string) string {
		return string(m[0]) + string(m[len(m)-1])
	})
}

// checkSyntax finds unmatched quotes and unbalanced brackets. These are
// hard errors: the downstream engine would reject the query anyway, with a
// far less actionable message.
func checkSyntax(query string, r *Result) {
	singles, doubles := 0, 0
	escaped := false
	var quote byte
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		switch ch {
		case '\'':
			if quote == 0 {
				quote = ch
				singles++
			} else if quote == ch {
				quote = 0
				singles++
			}
		case '"':
			if quote == 0 {
				quote = ch
				doubles++
			} else if quote == ch {
				quote = 0
				doubles++
			}
		}
	}
	if singles%2 != 0 {
		r.Errors = append(r.Errors, "unmatched single quote in query")
	}
	if doubles%2 != 0 {
		r.Errors = append(r.Errors, "unmatched double quote in query")
	}

	stripped := withoutLiterals(query)
	if open, closed := strings.Count(stripped, "("), strings.Count(stripped, ")"); open != closed {
		r.Errors = append(r.Errors, fmt.Sprintf("unbalanced parentheses: %d opening vs %d closing", open, closed))
	}
	if open, closed := strings.Count(stripped, "["), strings.Count(stripped, "]"); open != closed {
		r.Errors = append(r.Errors, fmt.Sprintf("unbalanced brackets: %d opening vs %d closing", open, closed))
	}
}

var placeholderRe = regexp.MustCompile(`\$(\w+)`)

var dateValueRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// checkParameters cross-checks placeholders in the text against the
// supplied parameter map and applies shallow type sanity to identifier-like
// and date-like parameter names.
func checkParameters(query string, params map[string]any, r *Result) {
	referenced := map[string]bool{}
	for _, m := range placeholderRe.FindAllStringSubmatch(withoutLiterals(query), -1) {
		referenced[m[1]] = true
	}

	for name := range referenced {
		if _, ok := params[name]; !ok {
			r.Errors = append(r.Errors, fmt.Sprintf("parameter $%s is referenced but not supplied", name))
		}
	}
	for name, value := range params {
		if !referenced[name] {
			r.Warnings = append(r.Warnings, fmt.Sprintf("parameter $%s is supplied but never referenced", name))
			continue
		}
		checkParameterType(name, value, r)
	}
}

func checkParameterType(name string, value any, r *Result) {
	lower := strings.ToLower(name)
	if lower == "id" || strings.HasSuffix(lower, "_id") || strings.Contains(lower, "cik") {
		switch value.(type) {
		case string, int, int32, int64, float64:
		default:
			r.Warnings = append(r.Warnings, fmt.Sprintf("parameter $%s looks like an identifier but has type %T", name, value))
		}
		return
	}
	if strings.Contains(lower, "date") {
		s, ok := value.(string)
		if !ok {
			r.Warnings = append(r.Warnings, fmt.Sprintf("parameter $%s looks like a date but has type %T", name, value))
			return
		}
		if !dateValueRe.MatchString(s) {
			r.Warnings = append(r.Warnings, fmt.Sprintf("parameter $%s looks like a date but %q is not in YYYY-MM-DD form", name, s))
		}
	}
}
