package graphmcp

import (
	"regexp"
)

// ErrorKind is the fixed failure taxonomy surfaced to callers.
type ErrorKind string

const (
	ErrKindValidation ErrorKind = "validation"
	ErrKindComplexity ErrorKind = "complexity"
	ErrKindTimeout    ErrorKind = "timeout"
	ErrKindConnection ErrorKind = "connection"
	ErrKindAuth       ErrorKind = "auth"
	ErrKindRateLimit  ErrorKind = "rate_limit"
	ErrKindNotFound   ErrorKind = "not_found"
	ErrKindServer     ErrorKind = "server"
	ErrKindUnknown    ErrorKind = "unknown"
)

// QueryError is the classified, sanitized error envelope callers receive.
// Validation and complexity errors derive solely from caller input and keep
// their verbatim message; transport failures carry the kind's sanitized
// message while the original detail goes to the log only.
type QueryError struct {
	Kind              ErrorKind
	Message           string
	RetryAfterSeconds int
}

func (e *QueryError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// genericMessages are the caller-facing messages per kind. They double as
// agent steering: each one tells the model what to do next, not just what
// went wrong.
var genericMessages = map[ErrorKind]string{
	ErrKindValidation: "query validation failed",
	ErrKindComplexity: "query exceeds the gateway's complexity limits; simplify it or add a LIMIT",
	ErrKindTimeout:    "query timed out; narrow the pattern, add a LIMIT, or filter earlier in the query",
	ErrKindConnection: "could not reach the graph service",
	ErrKindAuth:       "authentication with the graph service failed",
	ErrKindRateLimit:  "rate limited by the graph service; wait before retrying",
	ErrKindNotFound:   "graph not found",
	ErrKindServer:     "the graph service reported an internal error",
	ErrKindUnknown:    "unexpected error executing query",
}

// classifyStatus maps an HTTP status code to an error kind. 2xx statuses
// never reach this function.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return ErrKindAuth
	case status == 404:
		return ErrKindNotFound
	case status == 408:
		return ErrKindTimeout
	case status == 429:
		return ErrKindRateLimit
	case status >= 500:
		return ErrKindServer
	case status >= 400:
		return ErrKindValidation
	default:
		return ErrKindUnknown
	}
}

// Legacy opaque errors from the downstream system carry no useful status;
// pattern matching is the fallback, never the primary signal.
var messagePatterns = []struct {
	pattern *regexp.Regexp
	kind    ErrorKind
}{
	{regexp.MustCompile(`(?i)timed? ?out|deadline exceeded`), ErrKindTimeout},
	{regexp.MustCompile(`(?i)connection (refused|reset)|no such host|broken pipe|EOF`), ErrKindConnection},
	{regexp.MustCompile(`(?i)unauthorized|forbidden|invalid (api key|token|credentials)`), ErrKindAuth},
	{regexp.MustCompile(`(?i)rate limit|too many requests`), ErrKindRateLimit},
	{regexp.MustCompile(`(?i)(graph|database) not found|unknown graph`), ErrKindNotFound},
	{regexp.MustCompile(`(?i)syntax|parse error|invalid input`), ErrKindValidation},
}

// classifyMessage is the pattern-matching fallback for opaque error text.
func classifyMessage(msg string) ErrorKind {
	for _, p := range messagePatterns {
		if p.pattern.MatchString(msg) {
			return p.kind
		}
	}
	return ErrKindUnknown
}
