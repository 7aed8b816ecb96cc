//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "evo.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return s
}

func TestSQLiteStoreRunStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	want := sampleState("run-a")
	if err := s.SaveRunState(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := s.GetRunState(ctx, "run-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("state not found")
	}
	if got.RunID != want.RunID || got.Progress != want.Progress || got.Fitness.Len() != 1 {
		t.Fatalf("round trip lost data: %+v", got)
	}

	// Upsert replaces the previous row.
	want.Progress = 2
	want.Fitness.Append([][]float64{{0.5, 0.5}, {0.1, 0.9}})
	if err := s.SaveRunState(ctx, want); err != nil {
		t.Fatalf("save again: %v", err)
	}
	got, _, err = s.GetRunState(ctx, "run-a")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if got.Progress != 2 || got.Fitness.Len() != 2 {
		t.Fatalf("upsert did not replace: progress=%d tensor=%d", got.Progress, got.Fitness.Len())
	}

	if _, ok, err := s.GetRunState(ctx, "absent"); err != nil || ok {
		t.Fatalf("absent lookup: ok=%v err=%v", ok, err)
	}
}

func TestSQLiteStoreSummariesAndReset(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	for _, sm := range []struct{ id, at string }{
		{"run-b", "2026-08-29T10:00:00Z"},
		{"run-a", "2026-08-30T10:00:00Z"},
	} {
		if err := s.SaveRunSummary(ctx, sampleSummary(sm.id, sm.at)); err != nil {
			t.Fatalf("save summary: %v", err)
		}
	}

	list, err := s.ListRunSummaries(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].RunID != "run-a" || list[1].RunID != "run-b" {
		t.Fatalf("unexpected listing: %+v", list)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	list, err = s.ListRunSummaries(ctx)
	if err != nil {
		t.Fatalf("list after reset: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("summaries survived reset: %+v", list)
	}
}
