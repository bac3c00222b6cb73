package timeout

import (
	"testing"
	"time"
)

func TestGetTimeoutDefault(t *testing.T) {
	t.Parallel()
	m, err := NewManager(Config{DefaultTimeout: 30 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := m.GetTimeout("MATCH (n) RETURN n"); d != 30*time.Second {
		t.Errorf("expected 30s default, got %v", d)
	}
}

func TestGetTimeoutFirstMatchWins(t *testing.T) {
	t.Parallel()
	m, err := NewManager(Config{
		DefaultTimeout: 30 * time.Second,
		Rules: []Rule{
			{Pattern: `(?i)\[\*`, Timeout: 2 * time.Minute},
			{Pattern: `(?i)shortestPath`, Timeout: time.Minute},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Matches both rules; first rule wins.
	d, pattern := m.GetTimeoutWithPattern("MATCH p = shortestPath((a)-[*1..5]->(b)) RETURN p")
	if d != 2*time.Minute {
		t.Errorf("expected 2m from first matching rule, got %v", d)
	}
	if pattern != `(?i)\[\*` {
		t.Errorf("expected first rule's pattern, got %q", pattern)
	}
	d, pattern = m.GetTimeoutWithPattern("MATCH p = shortestPath((a)-[:KNOWS]->(b)) RETURN p")
	if d != time.Minute {
		t.Errorf("expected 1m from second rule, got %v", d)
	}
	if pattern != `(?i)shortestPath` {
		t.Errorf("expected second rule's pattern, got %q", pattern)
	}
}

func TestGetTimeoutWithPatternDefaultHasEmptyPattern(t *testing.T) {
	t.Parallel()
	m, err := NewManager(Config{DefaultTimeout: 30 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, pattern := m.GetTimeoutWithPattern("MATCH (n) RETURN n LIMIT 10")
	if d != 30*time.Second {
		t.Errorf("expected default timeout, got %v", d)
	}
	if pattern != "" {
		t.Errorf("expected empty pattern for default, got %q", pattern)
	}
}

func TestNewManagerInvalidPattern(t *testing.T) {
	t.Parallel()
	_, err := NewManager(Config{
		DefaultTimeout: 30 * time.Second,
		Rules:          []Rule{{Pattern: `[invalid`, Timeout: time.Minute}},
	})
	if err == nil {
		t.Fatal("expected error for invalid regex pattern")
	}
}
