// Package store implements the pluggable frontier + lifecycle state machine
// (§4.3): an in-memory backend, an embedded-SQL backend, and a reference
// remote-KV backend, all satisfying the same Store interface.
package store

import "github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"

// Statistics summarizes a Store's lifecycle-state histogram (§4.3, §7).
type Statistics struct {
	All       int
	Waiting   int
	Executing int
	Completed int
	Failed    int
}

// Store is the frontier + lifecycle persistence abstraction every backend
// implements identically. Only the Engine's dispatcher goroutine calls these
// methods (§5) — backends need not be internally goroutine-safe beyond what
// their own driver already guarantees.
type Store interface {
	// Put inserts or updates a request, persisting state=WAITING on success.
	Put(r *types.Request) (bool, error)

	// Get atomically picks the highest-priority WAITING request, transitions
	// it to EXECUTING, and returns it. Returns (nil, false, nil) if none.
	Get() (*types.Request, bool, error)

	// Exists reports whether a request with the given id is known, in any
	// state.
	Exists(id string) (bool, error)

	// UpdateState transitions a known request to one of
	// {COMPLETED, FAILED, WAITING}. Idempotent with respect to the target
	// state.
	UpdateState(id string, state types.RequestState, msg string) error

	// ReplyFailed batch-transitions every FAILED request to WAITING,
	// returning the number moved.
	ReplyFailed() (int, error)

	// Statistics reports the current lifecycle-state histogram.
	Statistics() (Statistics, error)

	// Close releases any resources held by the backend.
	Close() error
}
