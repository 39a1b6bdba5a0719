package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:          id,
		StartedAt:   started,
		FinishedAt:  started.Add(90 * time.Second),
		WindowStart: "2025-03-01",
		WindowEnd:   "2025-03-10",
		Status:      "partial",
		Providers: []ProviderResult{
			{Provider: "eni", Status: "ok", InvoicesFound: 2, DocumentsStored: 1, DocumentsSkipped: 1, RemindersCreated: 1},
			{Provider: "fastweb", Status: "failed", ErrorCode: "AUTHENTICATION_ERROR", ErrorMessage: "login rejected"},
		},
	}
}

func TestRecordAndGetRun(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	started := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	if err := s.RecordRun(ctx, sampleRun("run-1", started)); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}

	if got.Status != "partial" || got.WindowStart != "2025-03-01" || got.WindowEnd != "2025-03-10" {
		t.Errorf("run = %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if len(got.Providers) != 2 {
		t.Fatalf("got %d provider results, want 2", len(got.Providers))
	}

	// Ordered by provider name
	if got.Providers[0].Provider != "eni" || got.Providers[1].Provider != "fastweb" {
		t.Errorf("provider order = %s, %s", got.Providers[0].Provider, got.Providers[1].Provider)
	}
	if got.Providers[1].ErrorCode != "AUTHENTICATION_ERROR" {
		t.Errorf("error code = %s", got.Providers[1].ErrorCode)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		if err := s.RecordRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Errorf("order = %s, %s; want new, mid", runs[0].ID, runs[1].ID)
	}
	// List omits provider detail
	if len(runs[0].Providers) != 0 {
		t.Errorf("List returned provider detail: %+v", runs[0].Providers)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDuplicateRunID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	started := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	if err := s.RecordRun(ctx, sampleRun("dup", started)); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordRun(ctx, sampleRun("dup", started)); err == nil {
		t.Error("RecordRun accepted a duplicate run id")
	}
}
