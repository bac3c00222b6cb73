package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Score weights for the performance heuristics.
const (
	scoreNoLimit       = 20
	scorePerExcessHop  = 10
	scoreWideHopRange  = 15
	scorePerCartesian  = 20
	scoreGenericNode   = 30
	scorePerExtraOrder = 10
	scorePerStringOp   = 10

	maxSafeHops     = 5
	maxSafeHopRange = 10
)

var (
	returnKeywordRe = regexp.MustCompile(`(?i)\bRETURN\b`)
	limitKeywordRe  = regexp.MustCompile(`(?i)\bLIMIT\b`)
	matchKeywordRe  = regexp.MustCompile(`(?i)\bMATCH\b`)
	withKeywordRe   = regexp.MustCompile(`(?i)\bWITH\b`)
	hopRangeRe      = regexp.MustCompile(`\*\s*(\d+)?\s*\.\.\s*(\d+)`)
	genericNodeRe   = regexp.MustCompile(`(?i)\bMATCH\s*\(\s*\w*\s*\)`)
	orderByRe       = regexp.MustCompile(`(?i)\bORDER\s+BY\b`)
	stringOpRe      = regexp.MustCompile(`(?i)\bCONTAINS\b|\bSTARTS\s+WITH\b|\bENDS\s+WITH\b|=~`)
)

// scoreComplexity computes the heuristic complexity score and attaches a
// warning for each contributing factor.
func scoreComplexity(query string, r *Result) {
	stripped := withoutLiterals(query)
	score := 0

	if returnKeywordRe.MatchString(stripped) && !limitKeywordRe.MatchString(stripped) {
		score += scoreNoLimit
		r.Warnings = append(r.Warnings, "query returns rows without a LIMIT; the gateway will inject one unless the query aggregates")
	}

	for _, m := range hopRangeRe.FindAllStringSubmatch(stripped, -1) {
		maxHops, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		minHops := 1
		if m[1] != "" {
			minHops, _ = strconv.Atoi(m[1])
		}
		if maxHops > maxSafeHops {
			score += scorePerExcessHop * (maxHops - maxSafeHops)
			r.Warnings = append(r.Warnings, fmt.Sprintf("variable-length path up to %d hops is expensive; consider a tighter bound", maxHops))
		}
		if maxHops-minHops > maxSafeHopRange {
			score += scoreWideHopRange
			r.Warnings = append(r.Warnings, fmt.Sprintf("hop range %d..%d is wider than %d; narrow it to keep traversal bounded", minHops, maxHops, maxSafeHopRange))
		}
	}

	if matches := len(matchKeywordRe.FindAllString(stripped, -1)); matches > 2 && !withKeywordRe.MatchString(stripped) {
		score += scorePerCartesian * (matches - 1)
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d MATCH clauses with no intervening WITH risk a cartesian product", matches))
	}

	if genericNodeRe.MatchString(stripped) {
		score += scoreGenericNode
		r.Warnings = append(r.Warnings, "fully generic node pattern scans every node; add a label")
	}

	if orders := len(orderByRe.FindAllString(stripped, -1)); orders > 1 {
		score += scorePerExtraOrder * (orders - 1)
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d ORDER BY clauses; each extra sort adds cost", orders))
	}

	if ops := len(stringOpRe.FindAllString(stripped, -1)); ops > 0 {
		score += scorePerStringOp * ops
	}

	r.ComplexityScore = score
}

var (
	factLabelRe     = regexp.MustCompile(`:\s*Fact\b`)
	elementLabelRe  = regexp.MustCompile(`:\s*Element\b`)
	reportLabelRe   = regexp.MustCompile(`:\s*Report\b`)
	timeSeriesRe    = regexp.MustCompile(`(?i)\b(start_date|end_date|fiscal_year|fiscal_period|quarter)\b`)
	unitMentionRe   = regexp.MustCompile(`(?i)\bunit\b`)
	periodMentionRe = regexp.MustCompile(`(?i)\bperiod\b`)
	qnameMentionRe  = regexp.MustCompile(`(?i)\bqname\b`)
	dateFilterRe    = regexp.MustCompile(`(?i)\b(date|period_end|filed)\b`)
)

// checkBestPractices emits advisory hints for the filing-graph query shapes
// that commonly come back wrong without the right joins or filters.
func checkBestPractices(query string, r *Result) {
	if factLabelRe.MatchString(query) && !unitMentionRe.MatchString(query) {
		r.Suggestions = append(r.Suggestions, "fact values are unit-qualified; join the Unit node so numeric values are comparable")
	}
	if timeSeriesRe.MatchString(query) && !periodMentionRe.MatchString(query) {
		r.Suggestions = append(r.Suggestions, "time-series queries should join the Period node to anchor values to reporting periods")
	}
	if elementLabelRe.MatchString(query) && !qnameMentionRe.MatchString(query) {
		r.Suggestions = append(r.Suggestions, "element queries should filter by qualified name (qname) to avoid matching across taxonomies")
	}
	if reportLabelRe.MatchString(query) && !dateFilterRe.MatchString(query) {
		r.Suggestions = append(r.Suggestions, "report queries should include a date filter; without one every filing ever ingested is in scope")
	}
}

var (
	nodeLabelRe   = regexp.MustCompile(`\(\s*(\w*)\s*:\s*(\w+)`)
	relTypeRe     = regexp.MustCompile(`\[\s*\w*\s*:\s*(\w+)`)
	propertyRefRe = regexp.MustCompile(`\b(\w+)\.(\w+)`)
)

// checkSchema warns about labels, relationship types, and properties the
// supplied schema does not know. Only runs when a schema was provided.
func (v *Validator) checkSchema(query string, r *Result) {
	if v.schema == nil {
		return
	}
	stripped := withoutLiterals(query)

	relTypes := make(map[string]bool, len(v.schema.RelationshipTypes))
	for _, t := range v.schema.RelationshipTypes {
		relTypes[t] = true
	}

	// Bind pattern variables to labels as a side effect, for the property
	// check below.
	varLabels := map[string]string{}
	for _, m := range nodeLabelRe.FindAllStringSubmatch(stripped, -1) {
		variable, label := m[1], m[2]
		if _, known := v.schema.Labels[label]; !known {
			r.Warnings = append(r.Warnings, fmt.Sprintf("label %s is not in the graph schema", label))
			continue
		}
		if variable != "" {
			varLabels[variable] = label
		}
	}

	for _, m := range relTypeRe.FindAllStringSubmatch(stripped, -1) {
		if !relTypes[m[1]] {
			r.Warnings = append(r.Warnings, fmt.Sprintf("relationship type %s is not in the graph schema", m[1]))
		}
	}

	for _, m := range propertyRefRe.FindAllStringSubmatch(stripped, -1) {
		variable, prop := m[1], m[2]
		label, ok := varLabels[variable]
		if !ok {
			continue
		}
		if !containsString(v.schema.Labels[label], prop) {
			r.Warnings = append(r.Warnings, fmt.Sprintf("property %s is not known on label %s", prop, label))
		}
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
