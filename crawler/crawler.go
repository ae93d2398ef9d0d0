// Package crawler implements the bounded, deduplicating, domain-aware
// context crawl: a breadth-first traversal of the pages linked from the
// collected content, producing the context map that enriches every
// destination's prepare phase.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/syndicate/config"
	"github.com/use-agent/syndicate/engine"
	"github.com/use-agent/syndicate/models"
	"github.com/use-agent/syndicate/retry"
)

// fetchRetryDelay is the backoff unit for per-fetch retries (when
// configured; the default is a single attempt per URL).
const fetchRetryDelay = time.Second

// Fetcher retrieves one page. Both a bare engine and the racing dispatcher
// satisfy it.
type Fetcher interface {
	Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error)
}

// Crawler performs one bounded BFS crawl per CrawlForContext call. The
// visited set and budget are exclusively owned by that call, so a Crawler
// is safe to reuse across runs.
type Crawler struct {
	cfg       config.CrawlConfig
	fetcher   Fetcher
	extractor *Extractor
	cache     *pageCache // nil when disabled
	progress  chan<- models.Progress
}

// New creates a Crawler. The cross-run page cache is enabled only when
// cfg.CacheTTL > 0.
func New(cfg config.CrawlConfig, fetcher Fetcher) *Crawler {
	c := &Crawler{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: NewExtractor(cfg.ContextMaxChars),
	}
	if cfg.CacheTTL > 0 {
		c.cache = newPageCache(cfg.CacheTTL, 1000)
	}
	return c
}

// SetProgress attaches an advisory progress channel. Sends never block.
func (c *Crawler) SetProgress(ch chan<- models.Progress) { c.progress = ch }

// item is one URL queued for fetching.
type item struct {
	url   string // normalized
	depth int
}

// levelResult carries one fetch outcome back to the recording loop, which
// runs single-threaded so entries land in discovery order.
type levelResult struct {
	entry *models.CrawlEntry
	links []string
}

// CrawlForContext walks the page graph reachable from seedURLs breadth
// first, within the configured depth and URL budget, and returns the
// context map.
//
// Guarantees: no URL is fetched twice (normalized-URL visited set), no
// entry's depth exceeds MaxDepth, total fetches never exceed MaxURLs, and
// for a given input graph and budget the output is identical across runs.
// Individual fetch failures degrade to failed entries and never abort the
// crawl; only caller cancellation stops it early, returning the partial
// map alongside ctx.Err().
func (c *Crawler) CrawlForContext(ctx context.Context, seedURLs []string) (*models.ContextMap, error) {
	cm := models.NewContextMap()
	if len(seedURLs) == 0 {
		return cm, nil
	}

	allowed := seedHosts(seedURLs)
	visited := make(map[string]struct{})
	budget := c.cfg.MaxURLs

	// Seed level. Raw seeds that normalize onto an already-queued URL are
	// recorded as duplicates rather than silently dropped.
	var queue []item
	for _, raw := range seedURLs {
		norm, err := normalizeURL(raw)
		if err != nil {
			slog.Warn("skipping unparsable seed URL", "url", raw, "error", err)
			continue
		}
		if _, dup := visited[norm]; dup {
			cm.Add(&models.CrawlEntry{URL: raw, Depth: 0, Status: models.CrawlSkippedDup})
			continue
		}
		visited[norm] = struct{}{}
		queue = append(queue, item{url: norm, depth: 0})
	}

	slog.Info("context crawl starting",
		"seeds", len(queue),
		"maxDepth", c.cfg.MaxDepth,
		"maxURLs", c.cfg.MaxURLs,
	)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return cm, err
		}

		// Take as much of this level as the global budget still allows.
		// URLs beyond the budget are never visited.
		fetchable := queue
		if len(fetchable) > budget {
			fetchable = fetchable[:budget]
		}
		budget -= len(fetchable)
		if len(fetchable) == 0 {
			break
		}

		results := c.fetchLevel(ctx, fetchable)

		// Record in discovery order and build the next level.
		var next []item
		for _, res := range results {
			if res == nil {
				continue // cancelled mid-level
			}
			cm.Add(res.entry)
			c.emit(models.Progress{
				Stage:   models.StageCrawling,
				Percent: (cm.Len() * 100) / c.cfg.MaxURLs,
				Message: fmt.Sprintf("%s: %s", res.entry.Status, res.entry.URL),
			})

			if res.entry.Depth >= c.cfg.MaxDepth {
				continue
			}
			for _, link := range res.links {
				norm, err := normalizeURL(link)
				if err != nil {
					continue
				}
				if !inScope(norm, allowed) {
					// Cross-domain links are recorded as discovered but
					// never fetched.
					cm.Add(&models.CrawlEntry{
						URL:    norm,
						Depth:  res.entry.Depth + 1,
						Status: models.CrawlOutOfScope,
					})
					continue
				}
				if _, dup := visited[norm]; dup {
					continue
				}
				visited[norm] = struct{}{}
				next = append(next, item{url: norm, depth: res.entry.Depth + 1})
			}
		}
		queue = next
	}

	slog.Info("context crawl finished",
		"entries", cm.Len(),
		"fetched", cm.FetchedCount(),
	)
	return cm, ctx.Err()
}

// fetchLevel fetches one BFS level with bounded concurrency. Results come
// back indexed by queue position so recording stays deterministic.
func (c *Crawler) fetchLevel(ctx context.Context, level []item) []*levelResult {
	results := make([]*levelResult, len(level))
	sem := make(chan struct{}, c.cfg.Workers)
	var wg sync.WaitGroup

	for i, it := range level {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(idx int, it item) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = c.fetchOne(ctx, it)
		}(i, it)
	}
	wg.Wait()
	return results
}

// fetchOne fetches and extracts a single URL, degrading any failure to a
// failed entry.
func (c *Crawler) fetchOne(ctx context.Context, it item) *levelResult {
	if c.cache != nil {
		if contextText, links, hit := c.cache.get(it.url); hit {
			slog.Debug("page cache hit", "url", it.url)
			return &levelResult{
				entry: &models.CrawlEntry{
					URL:     it.url,
					Depth:   it.depth,
					Context: contextText,
					Links:   links,
					Status:  models.CrawlFetched,
				},
				links: links,
			}
		}
	}

	policy := retry.Policy{
		MaxRetries: c.cfg.FetchRetries,
		BaseDelay:  fetchRetryDelay,
		Timeout:    c.cfg.FetchTimeout,
	}
	result, err := retry.Do(ctx, "crawl fetch", policy, func(ctx context.Context) (*engine.FetchResult, error) {
		return c.fetcher.Fetch(ctx, &engine.FetchRequest{
			URL:     it.url,
			Timeout: c.cfg.FetchTimeout,
		})
	})
	if err != nil {
		return &levelResult{
			entry: &models.CrawlEntry{
				URL:        it.url,
				Depth:      it.depth,
				Status:     models.CrawlFailed,
				FailReason: err.Error(),
			},
		}
	}

	contextText := c.extractor.Context(it.url, result.Title, result.HTML)
	links := c.extractor.Links(it.url, result.HTML)

	if c.cache != nil {
		c.cache.set(it.url, contextText, links)
	}

	return &levelResult{
		entry: &models.CrawlEntry{
			URL:     it.url,
			Depth:   it.depth,
			Context: contextText,
			Links:   links,
			Status:  models.CrawlFetched,
		},
		links: links,
	}
}

func (c *Crawler) emit(p models.Progress) {
	if c.progress == nil {
		return
	}
	select {
	case c.progress <- p:
	default:
	}
}

// normalizeURL canonicalizes a URL for the visited set: lowercase host,
// fragment dropped, empty path mapped to "/".
func normalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// seedHosts builds the allow-set of hostnames derived from the seeds.
func seedHosts(seeds []string) map[string]struct{} {
	hosts := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		if u, err := url.Parse(s); err == nil && u.Hostname() != "" {
			hosts[strings.ToLower(u.Hostname())] = struct{}{}
		}
	}
	return hosts
}

// inScope reports whether a URL's hostname matches one of the seed domains.
func inScope(rawURL string, allowed map[string]struct{}) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, ok := allowed[strings.ToLower(u.Hostname())]
	return ok
}
