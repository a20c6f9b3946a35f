package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rushteam/churnkit/core"
)

func TestSQLiteLog_AppendAndRecent(t *testing.T) {
	ctx := context.Background()
	log, err := NewSQLiteLog(filepath.Join(t.TempDir(), "predictions.db"))
	if err != nil {
		t.Fatalf("NewSQLiteLog() error = %v", err)
	}
	defer log.Close()

	now := time.Now().UTC().Truncate(time.Millisecond)
	records := []*core.PredictionRecord{
		{
			RequestID:   "req-1",
			CustomerID:  "7590-vhveg",
			Probability: 0.5999,
			Churn:       true,
			Tier:        "medium",
			ModelID:     "model-a",
			Source:      "http",
			CreatedAt:   now.Add(-2 * time.Minute),
		},
		{
			RequestID:   "req-2",
			CustomerID:  "5575-gnvde",
			Probability: 0.0172,
			Churn:       false,
			Tier:        "minimal",
			ModelID:     "model-a",
			Source:      "batch",
			CreatedAt:   now,
		},
	}
	if err := log.Append(ctx, records...); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := log.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent() returned %d records, want 2", len(got))
	}

	// 倒序：后写的在前
	head := got[0]
	if head.RequestID != "req-2" || head.CustomerID != "5575-gnvde" {
		t.Errorf("head = %+v, want req-2 / 5575-gnvde", head)
	}
	if head.Churn || head.Probability != 0.0172 {
		t.Errorf("head prediction = (%v, %v), want (0.0172, false)", head.Probability, head.Churn)
	}
	if !head.CreatedAt.Equal(now) {
		t.Errorf("head CreatedAt = %v, want %v", head.CreatedAt, now)
	}

	tail := got[1]
	if tail.RequestID != "req-1" || !tail.Churn || tail.Tier != "medium" {
		t.Errorf("tail = %+v, want req-1 churned medium", tail)
	}
	if tail.ID >= head.ID {
		t.Errorf("ids not monotonic: tail %d >= head %d", tail.ID, head.ID)
	}
}

func TestSQLiteLog_RecentLimit(t *testing.T) {
	ctx := context.Background()
	log, err := NewSQLiteLog(filepath.Join(t.TempDir(), "predictions.db"))
	if err != nil {
		t.Fatalf("NewSQLiteLog() error = %v", err)
	}
	defer log.Close()

	for i := 0; i < 5; i++ {
		err := log.Append(ctx, &core.PredictionRecord{
			RequestID:  "req",
			CustomerID: "7590-vhveg",
			Source:     "http",
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := log.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Recent(3) returned %d records, want 3", len(got))
	}

	// CreatedAt 为零值时 Append 自动补当前时间
	if got[0].CreatedAt.IsZero() {
		t.Errorf("CreatedAt not defaulted on append")
	}
}

func TestSQLiteLog_EmptyAppend(t *testing.T) {
	log, err := NewSQLiteLog(filepath.Join(t.TempDir(), "predictions.db"))
	if err != nil {
		t.Fatalf("NewSQLiteLog() error = %v", err)
	}
	defer log.Close()

	if err := log.Append(context.Background()); err != nil {
		t.Errorf("Append() with no records error = %v, want nil", err)
	}
	got, err := log.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Recent() on empty log = %d records, want 0", len(got))
	}
}
