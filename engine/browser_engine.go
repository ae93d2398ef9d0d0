package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// BrowserEngine renders pages in a headless Chromium via rod. It is the
// heavy tier: the dispatcher escalates to it when the HTTP engine cannot
// get usable HTML (JavaScript-rendered pages, aggressive bot walls).
type BrowserEngine struct {
	browser *rod.Browser
}

// BrowserOptions controls the launched browser.
type BrowserOptions struct {
	Headless  bool
	NoSandbox bool
	Bin       string // optional Chromium binary override
}

// NewBrowserEngine launches a browser and connects to it. Call Close on
// shutdown to avoid zombie Chromium processes.
func NewBrowserEngine(opts BrowserOptions) (*BrowserEngine, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser engine: launch: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("browser engine: connect: %w", err)
	}
	slog.Info("browser engine started", "controlURL", controlURL)

	return &BrowserEngine{browser: browser}, nil
}

func (e *BrowserEngine) Name() string { return "browser" }

func (e *BrowserEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	// stealth.Page patches the common headless fingerprints before any
	// page script runs.
	page, err := stealth.Page(e.browser)
	if err != nil {
		return nil, fmt.Errorf("browser engine: open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if len(req.Headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toNetworkHeaders(req.Headers),
		}.Call(page)
	}

	p := page.Context(ctx)
	if err := p.Navigate(req.URL); err != nil {
		return nil, fmt.Errorf("browser engine: navigate %s: %w", req.URL, err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("browser engine: wait load %s: %w", req.URL, err)
	}

	htmlContent, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("browser engine: read html %s: %w", req.URL, err)
	}

	title := ""
	finalURL := req.URL
	if info, infoErr := p.Info(); infoErr == nil {
		title = info.Title
		finalURL = info.URL
	}

	return &FetchResult{
		HTML:       htmlContent,
		Title:      title,
		StatusCode: 200,
		FinalURL:   finalURL,
		EngineName: e.Name(),
	}, nil
}

// Close kills the browser process.
func (e *BrowserEngine) Close() {
	if err := e.browser.Close(); err != nil {
		slog.Warn("browser engine close failed", "error", err)
	}
}

// toNetworkHeaders converts a plain string map to the gson-typed map
// required by NetworkSetExtraHTTPHeaders.
func toNetworkHeaders(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
