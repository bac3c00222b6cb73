// Package timeout resolves per-query execution deadlines.
//
// Every query gets the configured default deadline; operators can shorten
// or extend it for specific query shapes (long path traversals, heavy CALL
// procedures) through regex pattern rules. First matching rule wins.
package timeout

import (
	"fmt"
	"regexp"
	"time"
)

// Rule maps a query pattern to a specific timeout duration.
type Rule struct {
	Pattern string
	Timeout time.Duration
}

// Config is the timeout manager's own config type.
type Config struct {
	DefaultTimeout time.Duration
	Rules          []Rule
}

type compiledRule struct {
	pattern *regexp.Regexp
	timeout time.Duration
}

// Manager resolves query timeouts based on pattern matching.
type Manager struct {
	rules          []compiledRule
	defaultTimeout time.Duration
}

// NewManager creates a new Manager. Returns an error on invalid regex patterns.
func NewManager(config Config) (*Manager, error) {
	compiled := make([]compiledRule, len(config.Rules))
	for i, r := range config.Rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("timeout: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, timeout: r.Timeout}
	}
	return &Manager{rules: compiled, defaultTimeout: config.DefaultTimeout}, nil
}

// GetTimeout returns the timeout for the given query.
// First matching rule wins. Falls back to the default.
func (m *Manager) GetTimeout(query string) time.Duration {
	d, _ := m.GetTimeoutWithPattern(query)
	return d
}

// GetTimeoutWithPattern returns the timeout for the given query together
// with the pattern that selected it, or empty string for the default.
func (m *Manager) GetTimeoutWithPattern(query string) (time.Duration, string) {
	for _, rule := range m.rules {
		if rule.pattern.MatchString(query) {
			return rule.timeout, rule.pattern.String()
		}
	}
	return m.defaultTimeout, ""
}
