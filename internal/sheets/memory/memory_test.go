package memory

import (
	"context"
	"testing"
)

func TestStore_WritePeriod(t *testing.T) {
	s := New()
	ctx := context.Background()

	rows := [][]string{{"id", "name"}, {"1", "Leite"}}
	if err := s.WritePeriod(ctx, "2025-02", rows); err != nil {
		t.Fatalf("WritePeriod failed: %v", err)
	}
	rows[1][1] = "changed"

	got, ok := s.Rows("2025-02")
	if !ok || len(got) != 2 || got[1][1] != "Leite" {
		t.Fatalf("Rows() = %v, %v; want a private copy", got, ok)
	}

	if err := s.WritePeriod(ctx, "2025-01", [][]string{{"id"}}); err != nil {
		t.Fatalf("WritePeriod failed: %v", err)
	}
	if err := s.WritePeriod(ctx, "2025-02", [][]string{{"id"}}); err != nil {
		t.Fatalf("WritePeriod failed: %v", err)
	}
	got, _ = s.Rows("2025-02")
	if len(got) != 1 {
		t.Fatalf("rewrite should replace rows, got %v", got)
	}

	periods := s.Periods()
	if len(periods) != 2 || periods[0] != "2025-01" {
		t.Fatalf("Periods() = %v", periods)
	}
	if s.Writes() != 3 {
		t.Fatalf("Writes() = %d, want 3", s.Writes())
	}
}

func TestStore_RejectsInvalidPeriod(t *testing.T) {
	if err := New().WritePeriod(context.Background(), "jan", nil); err == nil {
		t.Fatal("expected error for invalid period")
	}
}
