package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/valpere/autodoceval/internal"
	"github.com/valpere/autodoceval/internal/history"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun(id string) internal.EvalRun {
	return internal.EvalRun{
		ID:            id,
		DocPath:       "docs/guide.md",
		RunType:       "auto-improve",
		TargetScore:   0.7,
		MaxIterations: 3,
		Scale:         "fraction",
		Status:        "running",
		Timestamp:     time.Now(),
	}
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_SaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.DocPath != "docs/guide.md" || got.TargetScore != 0.7 || got.MaxIterations != 3 {
		t.Errorf("unexpected run: %+v", got)
	}
}

func TestStore_GetRun_Missing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetRun(context.Background(), "nope"); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestStore_UpdateRunOutcome(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := s.UpdateRunOutcome(ctx, "run-1", history.StatusTargetReached, 0.5, 0.75); err != nil {
		t.Fatalf("UpdateRunOutcome failed: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != string(history.StatusTargetReached) {
		t.Errorf("status = %q", got.Status)
	}
	if got.InitialScore != 0.5 || got.FinalScore != 0.75 {
		t.Errorf("scores = %v/%v", got.InitialScore, got.FinalScore)
	}
}

func TestStore_SaveAndListIterations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	d := 0.1
	records := []history.Record{
		{Index: 0, Score: 0.5, Feedback: "baseline"},
		{Index: 1, Score: 0.6, Feedback: "better", Delta: &d, OutputPath: "out/guide_iter1.md"},
	}
	for _, rec := range records {
		if err := s.SaveIteration(ctx, "run-1", rec); err != nil {
			t.Fatalf("SaveIteration failed: %v", err)
		}
	}

	got, err := s.ListIterations(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListIterations failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("iterations = %d, want 2", len(got))
	}
	if got[0].Delta != nil {
		t.Error("baseline delta should be nil")
	}
	if got[1].Delta == nil || *got[1].Delta != 0.1 {
		t.Error("iteration delta did not persist")
	}
	if got[1].OutputPath != "out/guide_iter1.md" {
		t.Errorf("output path = %q", got[1].OutputPath)
	}
}

func TestStore_ListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-1", "run-2"} {
		if err := s.SaveRun(ctx, testRun(id)); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("runs = %d, want 2", len(runs))
	}
}

func TestStore_ClearRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := s.SaveIteration(ctx, "run-1", history.Record{Index: 0, Score: 0.5}); err != nil {
		t.Fatalf("SaveIteration failed: %v", err)
	}

	if err := s.ClearRuns(ctx); err != nil {
		t.Fatalf("ClearRuns failed: %v", err)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("runs = %d after clear", len(runs))
	}
	iters, err := s.ListIterations(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListIterations failed: %v", err)
	}
	if len(iters) != 0 {
		t.Errorf("iterations = %d after clear", len(iters))
	}
}

func TestStore_MemoryRecallOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, entry := range []string{"first", "second", "third"} {
		if err := s.Record(ctx, "session-1", entry); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := s.Recall(ctx, "session-1", 2)
	if err != nil {
		t.Fatalf("Recall failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	// Most recent two, oldest first.
	if entries[0] != "second" || entries[1] != "third" {
		t.Errorf("entries = %v", entries)
	}
}

func TestStore_MemoryIsolatedBySession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, "session-1", "entry one"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := s.Record(ctx, "session-2", "entry two"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := s.Recall(ctx, "session-1", 10)
	if err != nil {
		t.Fatalf("Recall failed: %v", err)
	}
	if len(entries) != 1 || entries[0] != "entry one" {
		t.Errorf("entries = %v", entries)
	}
}

func TestStore_ClearMemory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, "session-1", "entry"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := s.ClearMemory(ctx, "session-1"); err != nil {
		t.Fatalf("ClearMemory failed: %v", err)
	}

	entries, err := s.Recall(ctx, "session-1", 10)
	if err != nil {
		t.Fatalf("Recall failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %v after clear", entries)
	}
}

func TestStore_MemoryNormalization(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// NFD "é" (e + combining acute) must match NFC "é" on recall.
	if err := s.Record(ctx, "café", "entry"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := s.Recall(ctx, "café", 10)
	if err != nil {
		t.Fatalf("Recall failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected normalized memory id match, got %v", entries)
	}
}
