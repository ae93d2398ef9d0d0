package crawler

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/use-agent/syndicate/config"
	"github.com/use-agent/syndicate/engine"
	"github.com/use-agent/syndicate/models"
)

// fakeFetcher serves an in-memory page graph. URLs absent from the graph
// fail, like a dead link would.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string // url -> html
	calls map[string]int
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	return &fakeFetcher{pages: pages, calls: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	f.mu.Lock()
	f.calls[req.URL]++
	html, ok := f.pages[req.URL]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no route to %s", req.URL)
	}
	return &engine.FetchResult{
		HTML:       html,
		StatusCode: 200,
		FinalURL:   req.URL,
		EngineName: "fake",
	}, nil
}

func (f *fakeFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func page(body string, links ...string) string {
	html := "<html><head><title>t</title></head><body><p>" + body + " content long enough to extract something useful from this page.</p>"
	for _, l := range links {
		html += fmt.Sprintf(`<a href=%q>link</a>`, l)
	}
	return html + "</body></html>"
}

func testConfig(depth, maxURLs int) config.CrawlConfig {
	return config.CrawlConfig{
		MaxDepth:        depth,
		MaxURLs:         maxURLs,
		Workers:         3,
		FetchTimeout:    time.Second,
		FetchRetries:    0,
		ContextMaxChars: 2000,
	}
}

func TestCrawl_ScopeAndDepth(t *testing.T) {
	// Page graph from a single seed: a links to same-domain b and a
	// cross-domain c.
	fetcher := newFakeFetcher(map[string]string{
		"https://x.test/a": page("a", "https://x.test/b", "https://other.test/c"),
		"https://x.test/b": page("b"),
	})

	c := New(testConfig(2, 10), fetcher)
	cm, err := c.CrawlForContext(context.Background(), []string{"https://x.test/a"})
	if err != nil {
		t.Fatalf("crawl error: %v", err)
	}

	a := cm.Get("https://x.test/a")
	if a == nil || a.Status != models.CrawlFetched || a.Depth != 0 {
		t.Fatalf("seed entry wrong: %+v", a)
	}
	b := cm.Get("https://x.test/b")
	if b == nil || b.Status != models.CrawlFetched || b.Depth != 1 {
		t.Fatalf("same-domain child wrong: %+v", b)
	}
	cEntry := cm.Get("https://other.test/c")
	if cEntry == nil || cEntry.Status != models.CrawlOutOfScope {
		t.Fatalf("cross-domain child should be recorded out-of-scope: %+v", cEntry)
	}
	if fetcher.calls["https://other.test/c"] != 0 {
		t.Error("out-of-scope URL was fetched")
	}
}

func TestCrawl_BudgetIsGlobal(t *testing.T) {
	// Seed with 5 same-domain children; budget 3 means the seed plus
	// exactly two children get fetched.
	children := []string{
		"https://x.test/c1", "https://x.test/c2", "https://x.test/c3",
		"https://x.test/c4", "https://x.test/c5",
	}
	pages := map[string]string{"https://x.test/": page("seed", children...)}
	for _, ch := range children {
		pages[ch] = page(ch)
	}
	fetcher := newFakeFetcher(pages)

	c := New(testConfig(2, 3), fetcher)
	cm, err := c.CrawlForContext(context.Background(), []string{"https://x.test/"})
	if err != nil {
		t.Fatalf("crawl error: %v", err)
	}

	if got := cm.FetchedCount(); got != 3 {
		t.Errorf("fetched entries = %d, want 3", got)
	}
	if got := fetcher.fetchCount(); got != 3 {
		t.Errorf("network fetches = %d, want 3", got)
	}
	if cm.Get("https://x.test/c4") != nil || cm.Get("https://x.test/c5") != nil {
		t.Error("URLs beyond the budget must never be visited")
	}
}

func TestCrawl_NoDuplicateFetchesOnCycles(t *testing.T) {
	// a <-> b cycle plus both pages linking back to the seed.
	fetcher := newFakeFetcher(map[string]string{
		"https://x.test/a": page("a", "https://x.test/b"),
		"https://x.test/b": page("b", "https://x.test/a", "https://x.test/b"),
	})

	c := New(testConfig(5, 50), fetcher)
	cm, err := c.CrawlForContext(context.Background(), []string{"https://x.test/a"})
	if err != nil {
		t.Fatalf("crawl error: %v", err)
	}

	for url, n := range fetcher.calls {
		if n > 1 {
			t.Errorf("%s fetched %d times", url, n)
		}
	}
	if cm.Len() != 2 {
		t.Errorf("entries = %d, want 2", cm.Len())
	}
}

func TestCrawl_DepthCeiling(t *testing.T) {
	// Chain a -> b -> c -> d with maxDepth 2: d must never be visited.
	fetcher := newFakeFetcher(map[string]string{
		"https://x.test/a": page("a", "https://x.test/b"),
		"https://x.test/b": page("b", "https://x.test/c"),
		"https://x.test/c": page("c", "https://x.test/d"),
		"https://x.test/d": page("d"),
	})

	c := New(testConfig(2, 50), fetcher)
	cm, err := c.CrawlForContext(context.Background(), []string{"https://x.test/a"})
	if err != nil {
		t.Fatalf("crawl error: %v", err)
	}

	for _, e := range cm.Entries() {
		if e.Depth > 2 {
			t.Errorf("entry %s at depth %d exceeds ceiling", e.URL, e.Depth)
		}
	}
	if cm.Get("https://x.test/d") != nil {
		t.Error("URL beyond depth ceiling was visited")
	}
	if fetcher.calls["https://x.test/d"] != 0 {
		t.Error("URL beyond depth ceiling was fetched")
	}
}

func TestCrawl_FailedFetchDegrades(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		"https://x.test/a": page("a", "https://x.test/dead", "https://x.test/b"),
		"https://x.test/b": page("b"),
	})

	c := New(testConfig(1, 10), fetcher)
	cm, err := c.CrawlForContext(context.Background(), []string{"https://x.test/a"})
	if err != nil {
		t.Fatalf("crawl error: %v", err)
	}

	dead := cm.Get("https://x.test/dead")
	if dead == nil || dead.Status != models.CrawlFailed || dead.FailReason == "" {
		t.Fatalf("dead link entry wrong: %+v", dead)
	}
	// The sibling is unaffected by the failure.
	if b := cm.Get("https://x.test/b"); b == nil || b.Status != models.CrawlFetched {
		t.Errorf("sibling of failed URL not fetched: %+v", b)
	}
}

func TestCrawl_Idempotent(t *testing.T) {
	pages := map[string]string{
		"https://x.test/a": page("a", "https://x.test/b", "https://x.test/c"),
		"https://x.test/b": page("b", "https://x.test/c"),
		"https://x.test/c": page("c"),
	}

	run := func() *models.ContextMap {
		c := New(testConfig(2, 10), newFakeFetcher(pages))
		cm, err := c.CrawlForContext(context.Background(), []string{"https://x.test/a"})
		if err != nil {
			t.Fatalf("crawl error: %v", err)
		}
		return cm
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first.URLs(), second.URLs()) {
		t.Errorf("URL order differs between runs:\n%v\n%v", first.URLs(), second.URLs())
	}
	for _, url := range first.URLs() {
		a, b := first.Get(url), second.Get(url)
		if b == nil || a.Status != b.Status || a.Depth != b.Depth {
			t.Errorf("entry %s differs between runs: %+v vs %+v", url, a, b)
		}
	}
}

func TestCrawl_DuplicateSeeds(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		"https://x.test/a": page("a"),
	})

	c := New(testConfig(1, 10), fetcher)
	cm, err := c.CrawlForContext(context.Background(), []string{
		"https://x.test/a",
		"https://x.test/a#section", // normalizes onto the first seed
	})
	if err != nil {
		t.Fatalf("crawl error: %v", err)
	}

	if fetcher.calls["https://x.test/a"] != 1 {
		t.Errorf("seed fetched %d times, want 1", fetcher.calls["https://x.test/a"])
	}
	dup := cm.Get("https://x.test/a#section")
	if dup == nil || dup.Status != models.CrawlSkippedDup {
		t.Errorf("duplicate seed entry wrong: %+v", dup)
	}
}

func TestCrawl_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(testConfig(2, 10), newFakeFetcher(nil))
	_, err := c.CrawlForContext(ctx, []string{"https://x.test/a"})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestCrawl_EmptySeeds(t *testing.T) {
	c := New(testConfig(2, 10), newFakeFetcher(nil))
	cm, err := c.CrawlForContext(context.Background(), nil)
	if err != nil {
		t.Fatalf("crawl error: %v", err)
	}
	if cm.Len() != 0 {
		t.Errorf("entries = %d, want 0", cm.Len())
	}
}
