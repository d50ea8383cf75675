// Package engine implements the crawl orchestrator (§4.9): lifecycle state
// machine, single-goroutine dispatcher, semaphore-admitted worker pool,
// retry policy, and cooperative shutdown. Grounded on the teacher's
// internal/engine/engine.go and scheduler.go for the goroutine/atomic-state
// idiom, generalized to the Store/Downloader/Processor abstractions.
package engine

import (
	"context"
	"log/slog"
	"net/url"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/fetcher"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/matcher"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/processor"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/store"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"
)

// ProcessorBinding pairs a Processor with the Matcher that gates it. Every
// registration requires an explicit Matcher — there is no matcher-less path;
// pass matcher.All to run unconditionally.
type ProcessorBinding struct {
	Matcher   matcher.Matcher
	Processor processor.Processor
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithThreads sets the worker pool size. Default runtime.NumCPU().
func WithThreads(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.threads = n
		}
	}
}

// WithQueueFactor sets the admission semaphore multiplier (capacity =
// threads * queueFactor). Default 2.
func WithQueueFactor(f int) Option {
	return func(e *Engine) {
		if f > 0 {
			e.queueFactor = f
		}
	}
}

// WithSites registers host-scoped configuration (proxy, headers, limiter,
// timeout, encoding).
func WithSites(sites []*types.Site) Option {
	return func(e *Engine) { e.sites = types.NewSiteRegistry(sites) }
}

// WithRetries sets how many times the dispatcher retries a fully-drained
// frontier via store.ReplyFailed before shutting down. Default 1.
func WithRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.retries = n
		}
	}
}

// WithLogger overrides the default slog.Default() logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// Engine is the crawl orchestrator: lifecycle, dispatcher, worker pool,
// dedup (via Store.Exists), retry, shutdown.
type Engine struct {
	downloader fetcher.Downloader
	store      store.Store
	processors []ProcessorBinding
	sites      *types.SiteRegistry
	logger     *slog.Logger

	threads     int
	queueFactor int
	retries     int

	mu    sync.Mutex
	state State

	commands  chan func()
	admission chan struct{}
	inFlight  atomic.Int64
	wg        sync.WaitGroup
	done      chan struct{}
}

// New builds an Engine in state INIT. Defaults: threads=runtime.NumCPU(),
// queueFactor=2, retries=1 (§6).
func New(downloader fetcher.Downloader, st store.Store, processors []ProcessorBinding, opts ...Option) *Engine {
	e := &Engine{
		downloader:  downloader,
		store:       st,
		processors:  processors,
		sites:       types.NewSiteRegistry(nil),
		logger:      slog.Default(),
		threads:     runtime.NumCPU(),
		queueFactor: 2,
		retries:     1,
		state:       StateInit,
		commands:    make(chan func(), 1024),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) transition(from, to State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != from {
		return &types.LifecycleError{Op: to.String(), State: e.state.String(), Expected: from.String()}
	}
	e.state = to
	return nil
}

// Add enqueues req as a top-level request (no parent). It is safe to call
// concurrently with a running dispatcher. Returns LifecycleError if the
// engine has not yet reached STARTED or has already reached STOPPED — in
// either case there is no dispatcher left to drain the posted command.
func (e *Engine) Add(req *types.Request) error {
	return e.addWithParent(req, nil)
}

// addChild applies the parent-derived fields (§4.9 Enqueue) before posting
// the same put-or-drop command.
func (e *Engine) addChild(req *types.Request, parent *types.Request) error {
	return e.addWithParent(req, parent)
}

// addWithParent posts a put-or-drop command and returns immediately — it
// never waits for the dispatcher to run it. The command channel is a
// fire-and-forget mailbox (§9): any caller blocking on its own command's
// completion would deadlock a dispatcher that is itself blocked trying to
// submit work back to that same caller's goroutine. Store.Put failures are
// logged from inside the closure (§7) rather than surfaced here.
func (e *Engine) addWithParent(req *types.Request, parent *types.Request) error {
	if state := e.State(); state != StateStarted && state != StateStopping {
		return &types.LifecycleError{Op: "Add", State: state.String(), Expected: "STARTED"}
	}

	if parent != nil {
		if resolved, changed := resolveAgainstParent(req.URL, parent.URL); changed {
			req.URL = resolved
			if id, err := types.Fingerprint(req); err == nil {
				req.ID = id
			}
		}
		req.Parent = parent.ID
		req.Depth = parent.Depth + 1
		if req.Inherit {
			for k, v := range parent.Headers {
				if _, overridden := req.Headers[k]; !overridden {
					req.Headers[k] = v
				}
			}
			for k, v := range parent.Attrs {
				if _, overridden := req.Attrs[k]; !overridden {
					req.Attrs[k] = v
				}
			}
		}
		if _, ok := req.Headers["Referer"]; !ok {
			if origin := parent.Origin(); origin != "" {
				req.Headers["Referer"] = origin
			}
		}
	}

	req.State = types.StateWaiting
	req.Msg = "waiting"

	e.postCommand(func() {
		if e.State() >= StateStopping {
			return // late Add during/after STOPPING: drop silently
		}
		if !req.Repeatable {
			exists, err := e.store.Exists(req.ID)
			if err != nil {
				e.logger.Warn("exists check failed", "id", req.ID, "url", req.URL, "error", err)
				return
			}
			if exists {
				return
			}
		}
		if _, err := e.store.Put(req); err != nil {
			e.logger.Warn("failed to enqueue request", "id", req.ID, "url", req.URL, "error", err)
		}
	})
	return nil
}

func (e *Engine) postCommand(cmd func()) {
	e.commands <- cmd
}

// resolveAgainstParent resolves a child URL that is not absolute against the
// parent page's own URL (§4.9 Enqueue), returning the resolved form and
// whether it differs from childURL. A malformed childURL or parentURL is
// left untouched — Store.Put's own validation surfaces the error.
func resolveAgainstParent(childURL, parentURL string) (string, bool) {
	child, err := url.Parse(childURL)
	if err != nil || child.IsAbs() {
		return childURL, false
	}
	parent, err := url.Parse(parentURL)
	if err != nil {
		return childURL, false
	}
	resolved := parent.ResolveReference(child).String()
	return resolved, resolved != childURL
}

// Start is the synchronous form of StartAsync: it blocks until the
// dispatcher terminates.
func (e *Engine) Start(seeds ...string) error {
	ch, err := e.StartAsync(seeds...)
	if err != nil {
		return err
	}
	<-ch
	return nil
}

// StartAsync requires INIT. It enqueues each seed as a default GET request
// directly into the Store (no other goroutine can be mutating it yet),
// transitions to STARTED, launches the dispatcher, and returns a channel
// that closes when dispatch terminates. Seeds are persisted before the
// dispatcher starts so its first poll always sees them — routing them
// through the command channel instead would race the dispatcher's own
// empty-frontier shutdown check.
func (e *Engine) StartAsync(seeds ...string) (<-chan struct{}, error) {
	if err := e.transition(StateInit, StateStarting); err != nil {
		return nil, err
	}

	e.admission = make(chan struct{}, e.threads*e.queueFactor)
	e.done = make(chan struct{})

	for _, seed := range seeds {
		req, err := types.NewRequest(seed)
		if err != nil {
			e.logger.Warn("skipping invalid seed", "url", seed, "error", err)
			continue
		}
		if err := e.putSeed(req); err != nil {
			e.logger.Warn("failed to enqueue seed", "url", seed, "error", err)
		}
	}

	if err := e.transition(StateStarting, StateStarted); err != nil {
		return nil, err
	}

	e.wg.Add(1) // the dispatcher itself; Stop waits on it with the workers
	go e.dispatch()
	return e.done, nil
}

func (e *Engine) putSeed(req *types.Request) error {
	req.State = types.StateWaiting
	req.Msg = "waiting"
	if !req.Repeatable {
		exists, err := e.store.Exists(req.ID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
	}
	_, err := e.store.Put(req)
	return err
}

// Stop requires STARTED. It transitions to STOPPING, waits for the
// dispatcher and all in-flight worker goroutines, transitions to STOPPED,
// and logs final statistics.
func (e *Engine) Stop() error {
	if err := e.transition(StateStarted, StateStopping); err != nil {
		return err
	}
	e.wg.Wait()
	<-e.done

	e.mu.Lock()
	e.state = StateStopped
	e.mu.Unlock()

	stats, err := e.store.Statistics()
	if err != nil {
		e.logger.Warn("failed to read final statistics", "error", err)
	} else {
		e.logger.Info("engine stopped",
			"all", stats.All, "waiting", stats.Waiting, "executing", stats.Executing,
			"completed", stats.Completed, "failed", stats.Failed)
	}
	return nil
}

// dispatch is the single dispatcher goroutine: it owns all mutating Store
// access, draining commands posted by workers and Add callers, polling the
// frontier, and applying the retry policy on natural drain (§4.9). Once the
// engine reaches STOPPING, dispatch stops calling store.Get() entirely — it
// only drains the command channel and waits for in-flight workers, so a
// Stop() call can never race a fresh submission.
func (e *Engine) dispatch() {
	defer close(e.done)
	retries := e.retries

	for {
		drainedAny := e.drainCommands()

		if e.State() >= StateStopping {
			if e.inFlight.Load() == 0 {
				e.drainCommands() // catch a final update_state posted just before inFlight hit 0
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}

		select {
		case e.admission <- struct{}{}:
		default:
			// Budget full: don't block here, the dispatcher must keep draining
			// commands so in-flight workers can make progress and free a slot.
			time.Sleep(10 * time.Millisecond)
			continue
		}

		req, ok, err := e.store.Get()
		if err != nil {
			e.logger.Warn("store get failed", "error", err)
		}
		if ok {
			e.submit(req)
			continue
		}
		<-e.admission // nothing to run this round, give the slot back

		if e.inFlight.Load() == 0 && !drainedAny && len(e.commands) == 0 {
			if retries > 0 {
				moved, err := e.store.ReplyFailed()
				if err != nil {
					e.logger.Warn("reply failed query error", "error", err)
				} else if moved > 0 {
					retries--
					continue
				}
			}
			go e.Stop()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// drainCommands applies every queued put/update closure without blocking,
// reporting whether at least one command ran.
func (e *Engine) drainCommands() bool {
	drainedAny := false
	for {
		select {
		case cmd := <-e.commands:
			cmd()
			drainedAny = true
		default:
			return drainedAny
		}
	}
}

// submit launches one worker goroutine for req. The caller (dispatch) has
// already acquired the req's admission slot (the single backpressure point,
// capacity = threads * queueFactor) non-blockingly; submit only releases it
// on completion. Acquiring here instead would block the dispatcher itself
// on the same semaphore workers need it to keep draining to make progress.
func (e *Engine) submit(req *types.Request) {
	e.inFlight.Add(1)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			<-e.admission
			e.inFlight.Add(-1)
		}()
		e.process(req)
	}()
}

// process is the worker body (§4.9): resolve Site, rate-limit, download,
// run matching processors, enqueue children, and report terminal state —
// all Store writes are marshalled through the command channel.
func (e *Engine) process(req *types.Request) {
	site := e.sites.Resolve(req.Hostname())
	if site != nil && site.Limiter != nil {
		site.Limiter.Acquire(context.Background(), 0)
	}

	resp, err := e.downloader.Fetch(context.Background(), req, site)
	if err != nil {
		e.complete(req, types.StateFailed, err.Error())
		return
	}
	if resp.Status != 200 {
		e.complete(req, types.StateFailed, "non-200 status")
		return
	}

	for _, binding := range e.processors {
		if !binding.Matcher(resp) {
			continue
		}
		children, err := binding.Processor(resp)
		if err != nil {
			e.complete(req, types.StateFailed, err.Error())
			return
		}
		for _, child := range children {
			if err := e.addChild(child, req); err != nil {
				e.logger.Warn("failed to enqueue child request", "url", child.URL, "error", err)
			}
		}
	}

	e.complete(req, types.StateCompleted, "ok")
}

func (e *Engine) complete(req *types.Request, state types.RequestState, msg string) {
	e.postCommand(func() {
		if err := e.store.UpdateState(req.ID, state, msg); err != nil {
			e.logger.Warn("failed to update request state", "id", req.ID, "error", err)
		}
	})
}
