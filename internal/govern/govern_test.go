package govern

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func makeRows(n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{"name": fmt.Sprintf("node-%04d", i)}
	}
	return rows
}

func TestApplyNoTruncation(t *testing.T) {
	t.Parallel()
	rows := makeRows(10)
	got, trunc := Apply(rows, 1000, 1<<20, false)
	if trunc.Kind != KindNone {
		t.Fatalf("expected no truncation, got %s", trunc.Kind)
	}
	if diff := cmp.Diff(rows, got); diff != "" {
		t.Errorf("rows changed (-want +got):\n%s", diff)
	}
	if trunc.ReportedCount != 10 {
		t.Errorf("expected reported count 10, got %d", trunc.ReportedCount)
	}
}

func TestApplyRowCountMarker(t *testing.T) {
	t.Parallel()
	got, trunc := Apply(makeRows(1000), 1000, 1<<30, false)
	if trunc.Kind != KindRowCount {
		t.Fatalf("expected row_count truncation, got %s", trunc.Kind)
	}
	if len(got) != 1001 {
		t.Fatalf("expected 1001 entries (rows + marker), got %d", len(got))
	}
	marker := got[1000]
	if marker[NoteKey] != RowCountNote {
		t.Errorf("expected marker note %q, got %v", RowCountNote, marker[NoteKey])
	}
	if trunc.ReportedCount != 1000 {
		t.Errorf("expected reported count 1000, got %d", trunc.ReportedCount)
	}
}

func TestApplyNoMarkerWithExplicitLimit(t *testing.T) {
	t.Parallel()
	got, trunc := Apply(makeRows(50), 50, 1<<30, true)
	if trunc.Kind != KindNone {
		t.Fatalf("expected no truncation with explicit limit, got %s", trunc.Kind)
	}
	if len(got) != 50 {
		t.Errorf("expected exactly 50 rows, got %d", len(got))
	}
}

func TestApplyNoMarkerBelowBudget(t *testing.T) {
	t.Parallel()
	got, trunc := Apply(makeRows(999), 1000, 1<<30, false)
	if trunc.Kind != KindNone {
		t.Fatalf("expected no truncation below budget, got %s", trunc.Kind)
	}
	if len(got) != 999 {
		t.Errorf("expected 999 rows, got %d", len(got))
	}
}

func TestApplyByteSizeTruncation(t *testing.T) {
	t.Parallel()
	rows := makeRows(100)
	rowSize := len(`{"name":"node-0000"}`)
	budget := rowSize*10 + rowSize/2 // room for 10 whole rows, not 11

	got, trunc := Apply(rows, 1000, budget, false)
	if trunc.Kind != KindByteSize {
		t.Fatalf("expected byte_size truncation, got %s", trunc.Kind)
	}
	if len(got) != 11 { // 10 kept rows + marker
		t.Fatalf("expected 10 rows + marker, got %d entries", len(got))
	}
	marker := got[10]
	if marker[NoteKey] != ByteSizeNote {
		t.Errorf("expected marker note %q, got %v", ByteSizeNote, marker[NoteKey])
	}
	if marker[KeptKey] != 10 {
		t.Errorf("expected kept count 10, got %v", marker[KeptKey])
	}
	if trunc.ReportedCount != 10 {
		t.Errorf("expected reported count 10, got %d", trunc.ReportedCount)
	}
	// rows are kept whole, never split
	if diff := cmp.Diff(rows[:10], got[:10]); diff != "" {
		t.Errorf("kept rows changed (-want +got):\n%s", diff)
	}
}

func TestApplySizeWinsOverRowCount(t *testing.T) {
	t.Parallel()
	rows := makeRows(100)
	rowSize := len(`{"name":"node-0000"}`)

	// Both budgets would apply: exactly maxRows rows and a byte budget that
	// cuts earlier. The size-truncated result must win.
	got, trunc := Apply(rows, 100, rowSize*5, false)
	if trunc.Kind != KindByteSize {
		t.Fatalf("expected byte_size to win, got %s", trunc.Kind)
	}
	marker := got[len(got)-1]
	if marker[NoteKey] != ByteSizeNote {
		t.Errorf("expected size marker, got %v", marker[NoteKey])
	}
}

func TestApplyZeroByteBudgetDisablesSizeCheck(t *testing.T) {
	t.Parallel()
	got, trunc := Apply(makeRows(10), 1000, 0, false)
	if trunc.Kind != KindNone {
		t.Fatalf("expected no truncation, got %s", trunc.Kind)
	}
	if len(got) != 10 {
		t.Errorf("expected 10 rows, got %d", len(got))
	}
}
