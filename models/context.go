package models

// Crawl entry statuses.
const (
	CrawlFetched    = "fetched"
	CrawlSkippedDup = "skipped-duplicate"
	CrawlOutOfScope = "skipped-out-of-scope"
	CrawlFailed     = "failed"
)

// CrawlEntry is one crawled URL's result. Entries are immutable once
// recorded.
type CrawlEntry struct {
	// URL is the entry key as discovered (normalized form for fetched
	// entries).
	URL string `json:"url"`

	// Depth is the BFS depth at which the URL was discovered; seeds are 0.
	Depth int `json:"depth"`

	// Context is the extracted textual context (Markdown). Empty for
	// non-fetched and failed entries.
	Context string `json:"context,omitempty"`

	// Links are the child URLs discovered on the page, in document order.
	Links []string `json:"links,omitempty"`

	// Status is one of the Crawl* constants.
	Status string `json:"status"`

	// FailReason carries the fetch error for failed entries.
	FailReason string `json:"fail_reason,omitempty"`
}

// ContextMap is the URL-keyed collection of crawl results handed to every
// destination's prepare phase as read-only enrichment data. Iteration over
// URLs() follows discovery order, so output is reproducible for a given
// input graph and budget.
type ContextMap struct {
	entries map[string]*CrawlEntry
	order   []string
}

func NewContextMap() *ContextMap {
	return &ContextMap{entries: make(map[string]*CrawlEntry)}
}

// Add records an entry. A URL already present is ignored; entries are
// append-only.
func (m *ContextMap) Add(e *CrawlEntry) {
	if _, ok := m.entries[e.URL]; ok {
		return
	}
	m.entries[e.URL] = e
	m.order = append(m.order, e.URL)
}

// Get returns the entry for a URL, or nil.
func (m *ContextMap) Get(url string) *CrawlEntry {
	return m.entries[url]
}

// URLs returns all recorded URLs in discovery order.
func (m *ContextMap) URLs() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Len is the total number of recorded entries, including skipped and failed
// ones.
func (m *ContextMap) Len() int { return len(m.order) }

// FetchedCount is the number of entries that were actually fetched.
func (m *ContextMap) FetchedCount() int {
	n := 0
	for _, url := range m.order {
		if m.entries[url].Status == CrawlFetched {
			n++
		}
	}
	return n
}

// Entries returns the recorded entries in discovery order.
func (m *ContextMap) Entries() []*CrawlEntry {
	out := make([]*CrawlEntry, 0, len(m.order))
	for _, url := range m.order {
		out = append(out, m.entries[url])
	}
	return out
}
