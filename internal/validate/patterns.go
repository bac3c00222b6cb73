package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// incompatibility pairs a detection pattern with the fix the downstream
// dialect expects. rewrite is nil when the fix is structural and cannot be
// expressed as a textual substitution.
type incompatibility struct {
	tag        string
	pattern    *regexp.Regexp
	suggestion string
	rewrite    func(query string) string
}

// typeNames maps the `IS :: TYPE` spellings to the names typeOf() returns.
var typeNames = map[string]string{
	"STRING":       "string",
	"INTEGER":      "integer",
	"INT":          "integer",
	"FLOAT":        "double",
	"DOUBLE":       "double",
	"BOOLEAN":      "boolean",
	"BOOL":         "boolean",
	"DATE":         "date",
	"DATETIME":     "datetime",
	"DURATION":     "duration",
	"LIST":         "list",
	"ARRAY":        "list",
	"MAP":          "map",
	"NODE":         "node",
	"RELATIONSHIP": "relationship",
	"POINT":        "point",
}

// deprecatedFunctions maps foreign or deprecated function names to the
// dialect's equivalents.
var deprecatedFunctions = []struct {
	from    string
	to      string
	pattern *regexp.Regexp
}{
	{"size", "len", regexp.MustCompile(`(?i)\bsize\s*\(`)},
	{"labels", "label", regexp.MustCompile(`(?i)\blabels\s*\(`)},
	{"collect", "list", regexp.MustCompile(`(?i)\bcollect\s*\(`)},
	{"avg", "mean", regexp.MustCompile(`(?i)\bavg\s*\(`)},
}

var (
	unboundedPathRe  = regexp.MustCompile(`\[\s*\*\s*\]`)
	whereInPatternRe = regexp.MustCompile(`(?i)\(\s*\w+\s*(?::\s*\w+)?\s*(?:\{[^}]*\})?\s+WHERE\b`)
	labelInWhereRe   = regexp.MustCompile(`(?i)\bWHERE\s+(\w+)\s*:\s*(\w+)`)
	removePropertyRe = regexp.MustCompile(`(?i)\bREMOVE\s+(\w+)\.(\w+)`)
	isTypeCheckRe    = regexp.MustCompile(`(?i)\b([\w.]+)\s+IS\s*::\s*(\w+)`)
	toIntegerRe      = regexp.MustCompile(`(?i)\btoInteger\s*\(([^()]*)\)`)
	showCommandRe    = regexp.MustCompile(`(?i)^\s*SHOW\s+(\w+)`)
	foreachRe        = regexp.MustCompile(`(?i)\bFOREACH\s*\(`)
	plusEqualsRe     = regexp.MustCompile(`\b(\w+)\s*\+=`)
)

var incompatibilities = buildIncompatibilities()

func buildIncompatibilities() []incompatibility {
	list := []incompatibility{
		{
			tag:        "unbounded_variable_length_path",
			pattern:    unboundedPathRe,
			suggestion: "unbounded variable-length paths ([*]) can traverse the whole graph; use a bounded range like [*1..10]",
			rewrite: func(q string) string {
				return unboundedPathRe.ReplaceAllString(q, "[*1..10]")
			},
		},
		{
			tag:        "where_inside_match_pattern",
			pattern:    whereInPatternRe,
			suggestion: "WHERE inside a MATCH pattern is not supported; move the WHERE clause after the pattern",
		},
		{
			tag:        "label_equality_in_where",
			pattern:    labelInWhereRe,
			suggestion: "label tests in WHERE must use the label() function, e.g. WHERE label(n) = 'Company'",
			rewrite: func(q string) string {
				return labelInWhereRe.ReplaceAllString(q, "WHERE label($1) = '$2'")
			},
		},
		{
			tag:        "remove_property",
			pattern:    removePropertyRe,
			suggestion: "REMOVE is not supported for properties; use SET prop = NULL instead",
			rewrite: func(q string) string {
				return removePropertyRe.ReplaceAllString(q, "SET $1.$2 = NULL")
			},
		},
		{
			tag:        "is_type_check",
			pattern:    isTypeCheckRe,
			suggestion: "the IS :: TYPE predicate is not supported; use typeOf(expr) = 'type' instead",
			rewrite: func(q string) string {
				return isTypeCheckRe.ReplaceAllStringFunc(q, func(m string) string {
					sub := isTypeCheckRe.FindStringSubmatch(m)
					mapped, ok := typeNames[strings.ToUpper(sub[2])]
					if !ok {
						mapped = strings.ToLower(sub[2])
					}
					return fmt.Sprintf("typeOf(%s) = '%s'", sub[1], mapped)
				})
			},
		},
		{
			tag:        "toInteger_function",
			pattern:    toIntegerRe,
			suggestion: "toInteger() is not available; use cast(expr, 'integer')",
			rewrite: func(q string) string {
				return toIntegerRe.ReplaceAllString(q, "cast($1, 'integer')")
			},
		},
		{
			tag:        "show_meta_command",
			pattern:    showCommandRe,
			suggestion: "SHOW meta commands are not supported; use the CALL procedure equivalent, e.g. CALL show_tables()",
			rewrite: func(q string) string {
				return showCommandRe.ReplaceAllStringFunc(q, func(m string) string {
					sub := showCommandRe.FindStringSubmatch(m)
					return "CALL show_" + strings.ToLower(sub[1]) + "()"
				})
			},
		},
		{
			tag:        "foreach_loop",
			pattern:    foreachRe,
			suggestion: "FOREACH is not supported; rewrite the loop with UNWIND",
		},
		{
			tag:        "property_append",
			pattern:    plusEqualsRe,
			suggestion: "the += property append operator is not supported; use individual SET assignments per property",
		},
	}

	for _, fn := range deprecatedFunctions {
		fn := fn
		list = append(list, incompatibility{
			tag:        fn.from + "_function",
			pattern:    fn.pattern,
			suggestion: fmt.Sprintf("%s() is not available in this dialect; use %s() instead", fn.from, fn.to),
			rewrite: func(q string) string {
				return fn.pattern.ReplaceAllString(q, fn.to+"(")
			},
		})
	}
	return list
}

// detectIncompatibilities records tags and suggestions for every pattern
// present in the query and returns the matches in detection order.
func detectIncompatibilities(query string, r *Result) []incompatibility {
	stripped := withoutLiterals(query)
	var detected []incompatibility
	for _, inc := range incompatibilities {
		if inc.pattern.MatchString(stripped) {
			detected = append(detected, inc)
			r.PatternTags = append(r.PatternTags, inc.tag)
			r.Suggestions = append(r.Suggestions, inc.suggestion)
		}
	}
	return detected
}

// applyRewrites produces the best-effort rewritten query by applying each
// detected pattern's substitution in the order detected.
func applyRewrites(query string, detected []incompatibility) string {
	rewritten := query
	for _, inc := range detected {
		if inc.rewrite != nil {
			rewritten = inc.rewrite(rewritten)
		}
	}
	return rewritten
}
