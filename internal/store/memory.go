package store

import (
	"container/heap"
	"sync"

	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"
)

// memoryItem is one entry in the priority heap: a reference to an id, not a
// copy of the Request, so state mutations on the canonical byID entry are
// immediately visible.
type memoryItem struct {
	id       string
	priority int
	seq      int64
	index    int
}

type memoryHeap []*memoryItem

func (h memoryHeap) Len() int { return len(h) }
func (h memoryHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority // higher priority first
	}
	return h[i].seq < h[j].seq // FIFO tie-break by insertion order
}
func (h memoryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *memoryHeap) Push(x any) {
	item := x.(*memoryItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *memoryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// MemoryStore is the in-memory Store backend (§4.3): a max-priority queue
// over ids plus a map id -> *Request. Put always accepts and overwrites; Get
// pops the queue and skips any heap entry whose id was evicted or whose
// request is no longer WAITING (Design Note (ii)).
type MemoryStore struct {
	mu   sync.Mutex
	pq   memoryHeap
	byID map[string]*types.Request
	seq  int64
}

// NewMemoryStore builds an empty MemoryStore. There is nothing to recover on
// construction: an in-memory backend never survives a process restart.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pq:   make(memoryHeap, 0, 256),
		byID: make(map[string]*types.Request),
	}
}

func (s *MemoryStore) Put(r *types.Request) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.State = types.StateWaiting
	r.Msg = "waiting"
	s.byID[r.ID] = r
	s.seq++
	heap.Push(&s.pq, &memoryItem{id: r.ID, priority: r.Priority, seq: s.seq})
	return true, nil
}

func (s *MemoryStore) Get() (*types.Request, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.pq.Len() > 0 {
		item := heap.Pop(&s.pq).(*memoryItem)
		req, ok := s.byID[item.id]
		if !ok || req.State != types.StateWaiting {
			continue // evicted, or a stale duplicate heap entry: skip and retry
		}
		req.State = types.StateExecuting
		req.Msg = "executing"
		return req, true, nil
	}
	return nil, false, nil
}

func (s *MemoryStore) Exists(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[id]
	return ok, nil
}

func (s *MemoryStore) UpdateState(id string, state types.RequestState, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.byID[id]
	if !ok {
		return &types.StoreError{Backend: "memory", Op: "update_state", Err: errUnknownID(id)}
	}
	req.State = state
	req.Msg = msg
	if state == types.StateWaiting {
		s.seq++
		heap.Push(&s.pq, &memoryItem{id: id, priority: req.Priority, seq: s.seq})
	}
	return nil
}

func (s *MemoryStore) ReplyFailed() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	moved := 0
	for id, req := range s.byID {
		if req.State != types.StateFailed {
			continue
		}
		req.State = types.StateWaiting
		req.Msg = "retrying"
		s.seq++
		heap.Push(&s.pq, &memoryItem{id: id, priority: req.Priority, seq: s.seq})
		moved++
	}
	return moved, nil
}

func (s *MemoryStore) Statistics() (Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats Statistics
	for _, req := range s.byID {
		stats.All++
		switch req.State {
		case types.StateWaiting:
			stats.Waiting++
		case types.StateExecuting:
			stats.Executing++
		case types.StateCompleted:
			stats.Completed++
		case types.StateFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (s *MemoryStore) Close() error { return nil }

type idError string

func errUnknownID(id string) error { return idError("unknown request id: " + id) }
func (e idError) Error() string     { return string(e) }
