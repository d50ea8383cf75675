// Package integration exercises the full stack — real HTTPDownloader,
// in-memory Store, selector-driven Extractor, and a multi-collector fan-out —
// against a local httptest server, end to end through the Engine.
package integration

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/collector"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/engine"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/fetcher"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/matcher"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/processor"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/selector"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/store"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

type page struct {
	Title string
	URL   string
}

func pageSchema() *selector.Schema {
	schema := selector.NewSchema(func() any { return &page{} })
	schema.Field("title", selector.CSS("title", []selector.CSSOption{selector.Text()}), func(r any, v any) {
		if s, ok := v.(string); ok {
			r.(*page).Title = s
		}
	})
	schema.Field("url", selector.URLSelector(nil), func(r any, v any) {
		if s, ok := v.(string); ok {
			r.(*page).URL = s
		}
	})
	schema.AddLink(&selector.Link{Selector: selector.CSS("a", []selector.CSSOption{selector.Attr("href")})})
	return schema
}

// newTestSite serves a tiny three-page site: / links to /about and /contact,
// both of which are leaf pages with no further outbound links.
func newTestSite() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Home</title></head><body>
			<a href="/about">About</a>
			<a href="/contact">Contact</a>
		</body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>About</title></head><body>no links here</body></html>`)
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Contact</title></head><body>no links here</body></html>`)
	})
	return httptest.NewServer(mux)
}

func TestEndToEndCrawlCollectsAllPages(t *testing.T) {
	srv := newTestSite()
	defer srv.Close()

	downloader := fetcher.New()
	defer downloader.Close()

	st := store.NewMemoryStore()
	defer st.Close()

	var mu sync.Mutex
	var titles []string
	collect := func(result any) error {
		mu.Lock()
		defer mu.Unlock()
		titles = append(titles, result.(*page).Title)
		return nil
	}

	bindings := []engine.ProcessorBinding{
		{Matcher: matcher.HTML, Processor: processor.Extractor(pageSchema(), collect)},
	}

	eng := engine.New(downloader, st, bindings, engine.WithLogger(testLogger), engine.WithThreads(2))

	done, err := eng.StartAsync(srv.URL)
	if err != nil {
		t.Fatalf("start engine: %v", err)
	}
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("crawl did not finish within timeout")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(titles) != 3 {
		t.Fatalf("expected 3 pages collected (Home, About, Contact), got %d: %v", len(titles), titles)
	}

	stats, err := st.Statistics()
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.Completed != 3 {
		t.Errorf("expected 3 completed requests, got %d", stats.Completed)
	}
	if stats.Failed != 0 {
		t.Errorf("expected 0 failed requests, got %d", stats.Failed)
	}
}

func TestEndToEndMultiCollectorFansOutToEveryCollector(t *testing.T) {
	srv := newTestSite()
	defer srv.Close()

	downloader := fetcher.New()
	defer downloader.Close()

	st := store.NewMemoryStore()
	defer st.Close()

	var count1, count2 int
	var mu sync.Mutex
	c1 := func(result any) error { mu.Lock(); count1++; mu.Unlock(); return nil }
	c2 := func(result any) error { mu.Lock(); count2++; mu.Unlock(); return nil }
	fanout := collector.NewMultiCollector(testLogger, c1, c2)

	bindings := []engine.ProcessorBinding{
		{Matcher: matcher.HTML, Processor: processor.Extractor(pageSchema(), fanout.Collect)},
	}
	eng := engine.New(downloader, st, bindings, engine.WithLogger(testLogger))

	if err := eng.Start(srv.URL); err != nil {
		t.Fatalf("start engine: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if count1 != 3 || count2 != 3 {
		t.Errorf("expected both collectors to see 3 results, got %d and %d", count1, count2)
	}
}
