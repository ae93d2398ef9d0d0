// Package engine provides the page-fetch engines used by the context
// crawler: a fast utls-based HTTP engine and an optional rod browser engine
// for JavaScript-heavy pages, raced by a staged Dispatcher.
package engine

import (
	"context"
	"time"
)

// Engine is the interface all fetch engines implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "browser").
	Name() string

	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string
}
