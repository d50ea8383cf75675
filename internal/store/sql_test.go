package store

import (
	"testing"

	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"
)

func openTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLStore(":memory:", "")
	if err != nil {
		t.Fatalf("NewSQLStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLStoreRoundTrip(t *testing.T) {
	s := openTestSQLStore(t)
	r := mustRequest(t, "https://a.test/p", types.WithPriority(7), types.WithHeaders(map[string]string{"X-A": "1"}),
		types.WithAttrs(map[string]any{"depth": float64(2)}), types.WithData([]byte("payload")))

	if _, err := s.Put(r); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get()
	if err != nil || !ok {
		t.Fatalf("Get: err=%v ok=%v", err, ok)
	}
	if got.ID != r.ID || got.URL != r.URL || got.Priority != 7 {
		t.Fatalf("round-trip mismatch: %#v", got)
	}
	if got.Headers["X-A"] != "1" {
		t.Fatalf("headers not preserved: %#v", got.Headers)
	}
	if string(got.Data) != "payload" {
		t.Fatalf("data not preserved: %q", got.Data)
	}
	if got.State != types.StateExecuting {
		t.Fatalf("expected EXECUTING after Get, got %s", got.State)
	}
}

func TestSQLStorePriorityOrder(t *testing.T) {
	s := openTestSQLStore(t)
	low := mustRequest(t, "https://a.test/low", types.WithPriority(1))
	high := mustRequest(t, "https://a.test/high", types.WithPriority(10))
	s.Put(low)
	s.Put(high)

	got, _, err := s.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != high.ID {
		t.Fatalf("expected highest priority first, got %s", got.URL)
	}
}

func TestSQLStoreCrashRecovery(t *testing.T) {
	s := openTestSQLStore(t)
	r := mustRequest(t, "https://a.test/crash")
	s.Put(r)
	if _, _, err := s.Get(); err != nil {
		t.Fatalf("Get: %v", err)
	}

	stats, _ := s.Statistics()
	if stats.Executing != 1 {
		t.Fatalf("expected 1 executing before recovery, got %d", stats.Executing)
	}

	// init() is idempotent and re-runs the crash-recovery reset, mirroring
	// what a fresh process would do against the same database.
	if err := s.init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	stats, _ = s.Statistics()
	if stats.Waiting != 1 || stats.Executing != 0 {
		t.Fatalf("expected recovered row to be WAITING, got %#v", stats)
	}
}

func TestSQLStoreReplyFailedAndStatistics(t *testing.T) {
	s := openTestSQLStore(t)
	r := mustRequest(t, "https://a.test/fail")
	s.Put(r)
	s.Get()
	if err := s.UpdateState(r.ID, types.StateFailed, "boom"); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}

	moved, err := s.ReplyFailed()
	if err != nil || moved != 1 {
		t.Fatalf("ReplyFailed: moved=%d err=%v", moved, err)
	}

	stats, err := s.Statistics()
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.All != 1 || stats.Waiting != 1 || stats.Failed != 0 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestSQLStoreExists(t *testing.T) {
	s := openTestSQLStore(t)
	r := mustRequest(t, "https://a.test/exists")
	if ok, _ := s.Exists(r.ID); ok {
		t.Fatalf("expected not to exist before Put")
	}
	s.Put(r)
	if ok, _ := s.Exists(r.ID); !ok {
		t.Fatalf("expected to exist after Put")
	}
}
