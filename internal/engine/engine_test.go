package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/matcher"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/processor"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/selector"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/store"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"
)

type pageResult struct{}

// selectorSchema builds a schema with no bound fields, used purely to
// exercise link discovery via every <a href> on the page.
func selectorSchema() *selector.Schema {
	schema := selector.NewSchema(func() any { return &pageResult{} })
	schema.AddLink(&selector.Link{Selector: selector.CSS("a", []selector.CSSOption{selector.Attr("href")})})
	return schema
}

// stubDownloader serves canned responses keyed by URL, optionally failing a
// configurable number of times per URL before succeeding (retry scenario).
type stubDownloader struct {
	mu        sync.Mutex
	pages     map[string]string
	links     map[string][]string
	failUntil map[string]int
	fetched   map[string]int
}

func newStubDownloader() *stubDownloader {
	return &stubDownloader{
		pages:     make(map[string]string),
		links:     make(map[string][]string),
		failUntil: make(map[string]int),
		fetched:   make(map[string]int),
	}
}

func (d *stubDownloader) Fetch(ctx context.Context, req *types.Request, site *types.Site) (*types.Response, error) {
	d.mu.Lock()
	d.fetched[req.URL]++
	attempt := d.fetched[req.URL]
	failUntil := d.failUntil[req.URL]
	body := d.pages[req.URL]
	d.mu.Unlock()

	if attempt <= failUntil {
		return types.NewResponse(req, 500, nil, nil, "utf-8"), nil
	}

	html := body
	for _, href := range d.links[req.URL] {
		html += fmt.Sprintf(`<a href="%s">link</a>`, href)
	}
	return types.NewResponse(req, 200, []byte(html), map[string]string{"Content-Type": "text/html"}, "utf-8"), nil
}

func (d *stubDownloader) Close() error { return nil }

func (d *stubDownloader) fetchCount(url string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fetched[url]
}

func newLinkExtractorBinding() ProcessorBinding {
	schema := selectorSchema()
	return ProcessorBinding{
		Matcher:   matcher.HTML,
		Processor: processor.Extractor(schema, nil),
	}
}

func waitForStop(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop within timeout")
	}
}

func TestEngineCrawlsSeedAndDiscoveredLinks(t *testing.T) {
	dl := newStubDownloader()
	dl.pages["https://example.com/"] = "<h1>home</h1>"
	dl.links["https://example.com/"] = []string{"https://example.com/next"}
	dl.pages["https://example.com/next"] = "<h1>next</h1>"

	st := store.NewMemoryStore()
	e := New(dl, st, []ProcessorBinding{newLinkExtractorBinding()}, WithThreads(2))

	done, err := e.StartAsync("https://example.com/")
	if err != nil {
		t.Fatalf("StartAsync: %v", err)
	}
	waitForStop(t, done)

	if dl.fetchCount("https://example.com/") != 1 {
		t.Fatalf("expected seed fetched once, got %d", dl.fetchCount("https://example.com/"))
	}
	if dl.fetchCount("https://example.com/next") != 1 {
		t.Fatalf("expected discovered link fetched once, got %d", dl.fetchCount("https://example.com/next"))
	}

	stats, err := st.Statistics()
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.Completed != 2 {
		t.Fatalf("expected 2 completed requests, got %+v", stats)
	}
}

func TestEngineDeduplicatesRepeatedURL(t *testing.T) {
	dl := newStubDownloader()
	dl.pages["https://example.com/"] = "<h1>home</h1>"
	// Both links point at the same URL; the non-repeatable second Add must be dropped.
	dl.links["https://example.com/"] = []string{"https://example.com/a", "https://example.com/a"}
	dl.pages["https://example.com/a"] = "<h1>a</h1>"

	st := store.NewMemoryStore()
	e := New(dl, st, []ProcessorBinding{newLinkExtractorBinding()})

	done, err := e.StartAsync("https://example.com/")
	if err != nil {
		t.Fatalf("StartAsync: %v", err)
	}
	waitForStop(t, done)

	if got := dl.fetchCount("https://example.com/a"); got != 1 {
		t.Fatalf("expected duplicate link fetched exactly once, got %d", got)
	}
}

func TestEngineRetriesFailedRequestsBeforeStopping(t *testing.T) {
	dl := newStubDownloader()
	dl.pages["https://example.com/"] = "<h1>home</h1>"
	dl.failUntil["https://example.com/"] = 1 // fails the first attempt, succeeds the second

	st := store.NewMemoryStore()
	e := New(dl, st, nil, WithRetries(2))

	done, err := e.StartAsync("https://example.com/")
	if err != nil {
		t.Fatalf("StartAsync: %v", err)
	}
	waitForStop(t, done)

	if got := dl.fetchCount("https://example.com/"); got != 2 {
		t.Fatalf("expected 2 fetch attempts (1 failure + 1 retry), got %d", got)
	}
	stats, err := st.Statistics()
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.Completed != 1 || stats.Failed != 0 {
		t.Fatalf("expected final state completed after retry, got %+v", stats)
	}
}

func TestEngineGivesUpAfterRetriesExhausted(t *testing.T) {
	dl := newStubDownloader()
	dl.pages["https://example.com/"] = "<h1>home</h1>"
	dl.failUntil["https://example.com/"] = 100 // always fails

	st := store.NewMemoryStore()
	e := New(dl, st, nil, WithRetries(1))

	done, err := e.StartAsync("https://example.com/")
	if err != nil {
		t.Fatalf("StartAsync: %v", err)
	}
	waitForStop(t, done)

	stats, err := st.Statistics()
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.Failed != 1 {
		t.Fatalf("expected the request to remain FAILED after retries exhausted, got %+v", stats)
	}
}

func TestEngineLifecycleRejectsDoubleStart(t *testing.T) {
	dl := newStubDownloader()
	dl.pages["https://example.com/"] = "<h1>home</h1>"

	st := store.NewMemoryStore()
	e := New(dl, st, nil)

	done, err := e.StartAsync("https://example.com/")
	if err != nil {
		t.Fatalf("StartAsync: %v", err)
	}

	if _, err := e.StartAsync("https://example.com/other"); err == nil {
		t.Fatal("expected second StartAsync to fail: engine already left INIT")
	}

	waitForStop(t, done)

	if e.State() != StateStopped {
		t.Fatalf("expected STOPPED, got %s", e.State())
	}
}

func TestAddRejectsWrongLifecycleStateInsteadOfBlocking(t *testing.T) {
	dl := newStubDownloader()
	dl.pages["https://example.com/"] = "<h1>home</h1>"

	st := store.NewMemoryStore()
	e := New(dl, st, nil)

	req, err := types.NewRequest("https://example.com/early")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if err := e.Add(req); err == nil {
		t.Fatal("expected Add before Start to return LifecycleError, not hang")
	} else if _, ok := err.(*types.LifecycleError); !ok {
		t.Fatalf("expected *types.LifecycleError, got %T: %v", err, err)
	}

	done, err := e.StartAsync("https://example.com/")
	if err != nil {
		t.Fatalf("StartAsync: %v", err)
	}
	waitForStop(t, done)

	req2, _ := types.NewRequest("https://example.com/late")
	if err := e.Add(req2); err == nil {
		t.Fatal("expected Add after STOPPED to return LifecycleError, not hang")
	} else if _, ok := err.(*types.LifecycleError); !ok {
		t.Fatalf("expected *types.LifecycleError, got %T: %v", err, err)
	}
}
