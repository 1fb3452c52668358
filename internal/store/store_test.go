package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/greg-randall/ocr-translation/internal"
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

func TestNewCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s.Close()
}

func TestSaveRequestAndResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := internal.CleanJob{
		ID:        "req-1",
		InputPath: "docs/page1.md",
		Model:     "openai:gpt-4o",
		Timestamp: time.Now(),
	}
	if err := s.SaveRequest(ctx, job); err != nil {
		t.Fatalf("SaveRequest failed: %v", err)
	}
	if err := s.SaveResult(ctx, "req-1", "openai", "cleaned text", 1200, ""); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}
	if err := s.SaveResult(ctx, "req-1", "openai", "", 0, "timeout"); err != nil {
		t.Fatalf("SaveResult with error failed: %v", err)
	}
}

func TestCorrectionMemoryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveCorrection(ctx, "le texte abime", "openai:gpt-4o", "le texte abîmé"); err != nil {
		t.Fatalf("SaveCorrection failed: %v", err)
	}

	got, found, err := s.GetCachedCorrection(ctx, "le texte abime", "openai:gpt-4o")
	if err != nil {
		t.Fatalf("GetCachedCorrection failed: %v", err)
	}
	if !found {
		t.Fatal("expected cache hit")
	}
	if got != "le texte abîmé" {
		t.Errorf("cached text = %q", got)
	}

	// Different model is a different cache key.
	_, found, err = s.GetCachedCorrection(ctx, "le texte abime", "anthropic:claude-3-5-sonnet-20240620")
	if err != nil {
		t.Fatalf("GetCachedCorrection failed: %v", err)
	}
	if found {
		t.Error("different model must not share cache entries")
	}
}

func TestCorrectionMemoryMiss(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.GetCachedCorrection(context.Background(), "never seen", "openai:gpt-4o")
	if err != nil {
		t.Fatalf("GetCachedCorrection failed: %v", err)
	}
	if found {
		t.Error("expected cache miss")
	}
}

func TestCorrectionMemoryNormalization(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Saved with a precomposed accent, looked up with extra whitespace and a
	// decomposed accent.
	if err := s.SaveCorrection(ctx, "  café  ", "m", "out"); err != nil {
		t.Fatalf("SaveCorrection failed: %v", err)
	}
	got, found, err := s.GetCachedCorrection(ctx, "cafe\u0301", "m")
	if err != nil {
		t.Fatalf("GetCachedCorrection failed: %v", err)
	}
	if !found || got != "out" {
		t.Errorf("NFC-equivalent lookups should hit: found=%v got=%q", found, got)
	}
}

func TestUsageCountBump(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveCorrection(ctx, "text", "m", "out"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, _, err := s.GetCachedCorrection(ctx, "text", "m"); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := s.ListMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].UsageCount != 4 {
		t.Errorf("usage_count = %d, want 4", entries[0].UsageCount)
	}
}

func TestInvalidateCorrection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveCorrection(ctx, "text", "m", "out"); err != nil {
		t.Fatal(err)
	}
	entries, err := s.ListMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.InvalidateCorrection(ctx, entries[0].ID); err != nil {
		t.Fatalf("InvalidateCorrection failed: %v", err)
	}

	_, found, err := s.GetCachedCorrection(ctx, "text", "m")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("invalidated entry must not be served")
	}
}

func TestDeleteCorrection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveCorrection(ctx, "text", "m", "out"); err != nil {
		t.Fatal(err)
	}
	entries, err := s.ListMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteCorrection(ctx, entries[0].ID); err != nil {
		t.Fatalf("DeleteCorrection failed: %v", err)
	}

	entries, err = s.ListMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty memory, got %d entries", len(entries))
	}
}

func TestClearMemory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		if err := s.SaveCorrection(ctx, text, "m", "out"); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.ClearMemory(ctx)
	if err != nil {
		t.Fatalf("ClearMemory failed: %v", err)
	}
	if n != 3 {
		t.Errorf("cleared %d entries, want 3", n)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveCorrection(ctx, "a", "m", "out"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCorrection(ctx, "b", "m", "out"); err != nil {
		t.Fatal(err)
	}
	entries, err := s.ListMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.InvalidateCorrection(ctx, entries[0].ID); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 2 || stats.ActiveEntries != 1 || stats.InvalidEntries != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCheckpointLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateCheckpoint(ctx, "in", "out", "*.md", "openai:gpt-4o")
	if err != nil {
		t.Fatalf("CreateCheckpoint failed: %v", err)
	}

	cp, err := s.GetCheckpoint(ctx, id)
	if err != nil {
		t.Fatalf("GetCheckpoint failed: %v", err)
	}
	if cp.InputDir != "in" || cp.Pattern != "*.md" || cp.Status != "running" {
		t.Errorf("checkpoint = %+v", cp)
	}

	if err := s.SaveCheckpointFile(ctx, id, "in/a.md", "out/a.md", "cleaned a"); err != nil {
		t.Fatalf("SaveCheckpointFile failed: %v", err)
	}
	if err := s.SaveCheckpointFile(ctx, id, "in/b.md", "out/b.md", "cleaned b"); err != nil {
		t.Fatal(err)
	}
	// Re-recording the same input path replaces, not duplicates.
	if err := s.SaveCheckpointFile(ctx, id, "in/a.md", "out/a.md", "cleaned a again"); err != nil {
		t.Fatal(err)
	}

	files, err := s.GetCheckpointFiles(ctx, id)
	if err != nil {
		t.Fatalf("GetCheckpointFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files["in/a.md"].CleanedText != "cleaned a again" {
		t.Errorf("a.md = %+v", files["in/a.md"])
	}

	if err := s.CompleteCheckpoint(ctx, id); err != nil {
		t.Fatalf("CompleteCheckpoint failed: %v", err)
	}
	cp, err = s.GetCheckpoint(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if cp.Status != "completed" {
		t.Errorf("status = %q", cp.Status)
	}
}

func TestGetCheckpointNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetCheckpoint(context.Background(), "cp_missing"); err == nil {
		t.Error("expected error for unknown checkpoint")
	}
}

func TestListCheckpoints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateCheckpoint(ctx, "in1", "out1", "*.md", "m"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateCheckpoint(ctx, "in2", "out2", "*.md", "m"); err != nil {
		t.Fatal(err)
	}

	cps, err := s.ListCheckpoints(ctx)
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	if len(cps) != 2 {
		t.Errorf("expected 2 checkpoints, got %d", len(cps))
	}
}
