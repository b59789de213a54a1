package history

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.sqlite")
	l, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndTransitionsRoundTrip(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	l.Record(ctx, "job-1", "SUCCESS", "", 100)
	l.Record(ctx, "job-1", "FAILURE", "boom", 200)
	l.Record(ctx, "job-2", "SUCCESS", "", 300)

	got, err := l.Transitions(ctx, "job-1")
	if err != nil {
		t.Fatalf("Transitions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 transitions for job-1, got %d", len(got))
	}
	if got[0].Status != "SUCCESS" || got[1].Status != "FAILURE" {
		t.Fatalf("unexpected ordering: %+v", got)
	}
	if got[1].FailureReason != "boom" {
		t.Fatalf("expected failure reason to round trip, got %q", got[1].FailureReason)
	}
}

func TestTransitionsReturnsEmptyForUnknownJob(t *testing.T) {
	l := openTestLog(t)
	got, err := l.Transitions(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("Transitions: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no rows, got %d", len(got))
	}
}

func TestNilLogRecordIsNoop(t *testing.T) {
	var l *Log
	l.Record(context.Background(), "job-1", "SUCCESS", "", 0)
	if err := l.Close(); err != nil {
		t.Fatalf("Close on nil Log: %v", err)
	}
}
