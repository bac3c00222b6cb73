package protection

import (
	"strings"
	"testing"
)

func TestIsReadOnlyBlocksWrites(t *testing.T) {
	t.Parallel()
	c := NewChecker(Config{ReadOnly: true})
	writes := []string{
		"CREATE (n)",
		"MATCH (n) SET n.x=1",
		"MATCH (n) DELETE n",
		"MERGE (n:X)",
		"DROP INDEX i",
		"CALL db.createLabel('X')",
		"MATCH (n) DETACH DELETE n",
		"MATCH (n) REMOVE n.prop",
		"CALL apoc.periodic.iterate('x', 'y', {})",
		"COMMIT",
	}
	for _, q := range writes {
		if c.IsReadOnly(q) {
			t.Errorf("expected IsReadOnly false for %q", q)
		}
	}
}

func TestIsReadOnlyAllowsReads(t *testing.T) {
	t.Parallel()
	c := NewChecker(Config{ReadOnly: true})
	reads := []string{
		"MATCH (n) RETURN n",
		"MATCH (n) WHERE n.created_at > 0 RETURN n",
		"MATCH (n) WHERE n.start_date > '2024-01-01' RETURN n.name",
		"MATCH (c:Company)-[:FILED]->(r:Report) RETURN c, r",
		"MATCH (n) RETURN n.address, n.constraint_level",
	}
	for _, q := range reads {
		if !c.IsReadOnly(q) {
			t.Errorf("expected IsReadOnly true for %q", q)
		}
	}
}

func TestIsReadOnlyIgnoresKeywordsInsideLiterals(t *testing.T) {
	t.Parallel()
	c := NewChecker(Config{ReadOnly: true})
	queries := []string{
		`MATCH (n) WHERE n.name = 'DELETE me' RETURN n`,
		`MATCH (n) WHERE n.note = "please CREATE this later" RETURN n`,
		`MATCH (n) WHERE n.q = 'CALL db.labels()' RETURN n`,
	}
	for _, q := range queries {
		if !c.IsReadOnly(q) {
			t.Errorf("expected IsReadOnly true for %q (keyword only in literal)", q)
		}
	}
}

func TestCheckReturnsDescriptiveError(t *testing.T) {
	t.Parallel()
	c := NewChecker(Config{ReadOnly: true})
	err := c.Check("MATCH (n) DELETE n")
	if err == nil {
		t.Fatal("expected error for DELETE in read-only mode")
	}
	if !strings.Contains(err.Error(), "DELETE") {
		t.Errorf("expected error to name the blocked keyword, got: %s", err)
	}
}

func TestCheckAllowsWritesWhenNotReadOnly(t *testing.T) {
	t.Parallel()
	c := NewChecker(Config{ReadOnly: false})
	if err := c.Check("CREATE (n:X)"); err != nil {
		t.Errorf("expected nil error when not read-only, got: %v", err)
	}
}

func TestCheckLength(t *testing.T) {
	t.Parallel()
	c := NewChecker(Config{MaxQueryLength: 20})
	if err := c.CheckLength("MATCH (n) RETURN n"); err != nil {
		t.Errorf("expected nil for short query, got: %v", err)
	}
	err := c.CheckLength("MATCH (n) WHERE n.x > 0 RETURN n")
	if err == nil {
		t.Fatal("expected error for oversized query")
	}
	if !strings.Contains(err.Error(), "query too long") {
		t.Errorf("expected 'query too long' in error, got: %s", err)
	}
}

func TestCheckLengthDisabledWhenZero(t *testing.T) {
	t.Parallel()
	c := NewChecker(Config{})
	if err := c.CheckLength(strings.Repeat("x", 1_000_000)); err != nil {
		t.Errorf("expected nil with no ceiling configured, got: %v", err)
	}
}

func TestStripStringLiterals(t *testing.T) {
	t.Parallel()
	got := stripStringLiterals(`MATCH (n) WHERE n.a = 'DELETE' AND n.b = "SET \" x" RETURN n`)
	want := `MATCH (n) WHERE n.a = '' AND n.b = "" RETURN n`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
