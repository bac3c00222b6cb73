// Package sanitize controls how much downstream error detail reaches the
// calling agent.
//
// The full original error is always logged by the caller; this package only
// decides what the agent sees. In production every error collapses to its
// kind-specific generic message. In non-production environments errors that
// look like query-syntax problems are passed through — after redacting file
// paths and line numbers — because the verbatim parser message is what makes
// iterative query development workable.
package sanitize

import (
	"regexp"
	"strings"
)

// Sanitizer shapes downstream error messages for the caller.
type Sanitizer struct {
	production bool
}

// NewSanitizer creates a Sanitizer. Any environment value other than
// "production" is treated as non-production.
func NewSanitizer(environment string) *Sanitizer {
	return &Sanitizer{production: strings.EqualFold(environment, "production")}
}

// Production reports whether the sanitizer is in production mode.
func (s *Sanitizer) Production() bool {
	return s.production
}

var syntaxShapes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)syntax error`),
	regexp.MustCompile(`(?i)\bparse(r)? error\b`),
	regexp.MustCompile(`(?i)invalid input`),
	regexp.MustCompile(`(?i)unexpected (token|character|end of input)`),
	regexp.MustCompile(`(?i)unknown function`),
	regexp.MustCompile(`(?i)undefined variable`),
}

var (
	filePathRe   = regexp.MustCompile(`(?:[A-Za-z]:)?(?:/[\w.\-]+){2,}`)
	lineNumberRe = regexp.MustCompile(`(?i)\b(?:at )?line[: ]\s*\d+(?:[,:]\s*(?:column|position)[: ]\s*\d+)?`)
)

// IsSyntaxShaped reports whether the raw downstream message resembles a
// query-syntax problem rather than an infrastructure failure.
func IsSyntaxShaped(raw string) bool {
	for _, re := range syntaxShapes {
		if re.MatchString(raw) {
			return true
		}
	}
	return false
}

// Redact removes file paths and line/column references from a message.
func Redact(raw string) string {
	out := filePathRe.ReplaceAllString(raw, "[path]")
	out = lineNumberRe.ReplaceAllString(out, "[location]")
	return strings.TrimSpace(out)
}

// ErrorMessage returns the message the caller receives for a downstream
// failure. generic is the kind-specific sanitized message.
func (s *Sanitizer) ErrorMessage(raw, generic string) string {
	if !s.production && IsSyntaxShaped(raw) {
		return Redact(raw)
	}
	if IsSyntaxShaped(raw) {
		return "query validation failed"
	}
	return generic
}
