package store

import (
	"testing"

	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"
)

func mustRequest(t *testing.T, rawURL string, opts ...types.RequestOption) *types.Request {
	t.Helper()
	r, err := types.NewRequest(rawURL, opts...)
	if err != nil {
		t.Fatalf("NewRequest(%q): %v", rawURL, err)
	}
	return r
}

func TestMemoryStorePriorityOrder(t *testing.T) {
	s := NewMemoryStore()
	low := mustRequest(t, "https://a.test/low", types.WithPriority(1))
	high := mustRequest(t, "https://a.test/high", types.WithPriority(10))
	mid := mustRequest(t, "https://a.test/mid", types.WithPriority(5))

	for _, r := range []*types.Request{low, high, mid} {
		if _, err := s.Put(r); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	first, ok, err := s.Get()
	if err != nil || !ok {
		t.Fatalf("Get: %v, ok=%v", err, ok)
	}
	if first.ID != high.ID {
		t.Fatalf("expected highest priority first, got %s", first.URL)
	}

	second, _, _ := s.Get()
	if second.ID != mid.ID {
		t.Fatalf("expected mid priority second, got %s", second.URL)
	}
}

func TestMemoryStoreFIFOTieBreak(t *testing.T) {
	s := NewMemoryStore()
	first := mustRequest(t, "https://a.test/1")
	second := mustRequest(t, "https://a.test/2")
	s.Put(first)
	s.Put(second)

	got, _, _ := s.Get()
	if got.ID != first.ID {
		t.Fatalf("expected FIFO order, got %s", got.URL)
	}
}

func TestMemoryStoreGetSkipsStaleEntries(t *testing.T) {
	s := NewMemoryStore()
	r := mustRequest(t, "https://a.test/x")
	s.Put(r)

	// Re-push a duplicate heap entry by transitioning to WAITING twice
	// without a matching state change, simulating a stale retry marker.
	if err := s.UpdateState(r.ID, types.StateWaiting, "re-enqueued"); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}

	got1, ok1, _ := s.Get()
	if !ok1 || got1.ID != r.ID {
		t.Fatalf("expected to retrieve the request once, got ok=%v", ok1)
	}

	// The second, now-stale heap entry should be skipped since the request
	// is no longer WAITING.
	_, ok2, _ := s.Get()
	if ok2 {
		t.Fatalf("expected no further requests, got one")
	}
}

func TestMemoryStoreExistsPutUpdateStateStatistics(t *testing.T) {
	s := NewMemoryStore()
	r := mustRequest(t, "https://a.test/y")

	if ok, _ := s.Exists(r.ID); ok {
		t.Fatalf("expected not to exist before Put")
	}
	s.Put(r)
	if ok, _ := s.Exists(r.ID); !ok {
		t.Fatalf("expected to exist after Put")
	}

	got, _, _ := s.Get()
	if got.State != types.StateExecuting {
		t.Fatalf("expected EXECUTING after Get, got %s", got.State)
	}

	if err := s.UpdateState(r.ID, types.StateFailed, "network error"); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}

	stats, err := s.Statistics()
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.All != 1 || stats.Failed != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	moved, err := s.ReplyFailed()
	if err != nil || moved != 1 {
		t.Fatalf("ReplyFailed: moved=%d err=%v", moved, err)
	}

	stats, _ = s.Statistics()
	if stats.Waiting != 1 || stats.Failed != 0 {
		t.Fatalf("expected failed request requeued, got %#v", stats)
	}
}

func TestMemoryStoreUpdateStateUnknownID(t *testing.T) {
	s := NewMemoryStore()
	if err := s.UpdateState("missing", types.StateCompleted, ""); err == nil {
		t.Fatalf("expected error for unknown id")
	}
}
