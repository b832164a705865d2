package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ntphong404/rasa-control/internal/history"
)

func TestAppendAndRecent(t *testing.T) {
	sink, err := New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	runs := []history.Record{
		{ModelName: "v1", Status: "failed", StartedAt: base, FinishedAt: base.Add(time.Minute), Error: "no model file generated after training"},
		{ModelName: "v2", ModelFile: "model-a.tar.gz", Status: "completed", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + 5*time.Minute), Uploaded: true, ModelURL: "model-a.tar.gz"},
	}
	for _, r := range runs {
		if err := sink.Append(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := sink.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	// newest finished first
	if got[0].ModelName != "v2" || got[1].ModelName != "v1" {
		t.Fatalf("unexpected order: %s, %s", got[0].ModelName, got[1].ModelName)
	}
	if !got[0].Uploaded || got[0].ModelFile != "model-a.tar.gz" {
		t.Fatalf("completed record fields lost: %+v", got[0])
	}
	if got[1].Error != "no model file generated after training" {
		t.Fatalf("error field lost: %+v", got[1])
	}
}

func TestRecentLimit(t *testing.T) {
	sink, err := New("sqlite://" + filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		r := history.Record{ModelName: "v", Status: "stopped", StartedAt: base, FinishedAt: base.Add(time.Duration(i) * time.Second)}
		if err := sink.Append(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := sink.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("limit not applied, got %d records", len(got))
	}
}

func TestEmptyDSN(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}
