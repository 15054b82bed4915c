package memory

import (
	"context"
	"testing"
	"time"

	"tally/internal/sheets"
)

func TestAppendReturnsSequentialRefs(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i, want := range []string{"mem:1", "mem:2", "mem:3"} {
		ref, err := s.Append(ctx, sheets.Row{
			Date:        time.Date(2025, time.March, 1+i, 0, 0, 0, 0, time.UTC),
			Type:        "expense",
			Description: "row",
			AmountCents: 100,
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if ref != want {
			t.Fatalf("ref = %q, want %q", ref, want)
		}
	}

	rows := s.Rows()
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	// Rows must be a copy, not the backing slice.
	rows[0].Description = "mutated"
	if s.Rows()[0].Description != "row" {
		t.Fatal("Rows() exposed internal state")
	}
}
