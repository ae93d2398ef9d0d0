// Package orchestrator runs one syndication workflow end to end: collect
// the source message, crawl its links for context, post to each enabled
// destination in order, then report.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/syndicate/collector"
	"github.com/use-agent/syndicate/config"
	"github.com/use-agent/syndicate/destination"
	"github.com/use-agent/syndicate/models"
	"github.com/use-agent/syndicate/report"
	"github.com/use-agent/syndicate/retry"
)

// Crawler is the context-gathering collaborator. *crawler.Crawler satisfies
// it; tests substitute fakes.
type Crawler interface {
	CrawlForContext(ctx context.Context, seedURLs []string) (*models.ContextMap, error)
}

// Orchestrator owns one run at a time. It is not safe for concurrent Run
// calls on the same instance.
type Orchestrator struct {
	cfg          *config.Config
	collector    collector.Collector
	crawler      Crawler
	destinations []destination.Destination
	sinks        []report.Sink

	progress chan<- models.Progress
	stage    string
}

// New wires an orchestrator. crawler and sinks may be nil/empty;
// destinations run in the order given.
func New(cfg *config.Config, col collector.Collector, cr Crawler, dests []destination.Destination, sinks []report.Sink) *Orchestrator {
	return &Orchestrator{
		cfg:          cfg,
		collector:    col,
		crawler:      cr,
		destinations: dests,
		sinks:        sinks,
		stage:        models.StageIdle,
	}
}

// SetProgress registers an optional progress channel. Sends never block; a
// slow consumer just misses updates.
func (o *Orchestrator) SetProgress(ch chan<- models.Progress) { o.progress = ch }

// Stage returns the current workflow stage.
func (o *Orchestrator) Stage() string { return o.stage }

// Run executes the workflow. A collection failure is the only fatal
// outcome: it returns a report with zero results alongside the error. Every
// other failure mode, destination failures and cancellation included, is
// captured in the report's Results and returns a nil error.
func (o *Orchestrator) Run(ctx context.Context) (*models.RunReport, error) {
	started := time.Now()
	rep := &models.RunReport{Timestamp: started, SourceID: o.cfg.Collect.SourceChatID}

	// Collecting. Retried; failure here fails the run.
	o.setStage(models.StageCollecting, 5, "collecting source content")
	content, err := retry.Do(ctx, "collect", retry.Policy{
		MaxRetries: o.cfg.Retry.MaxRetries,
		BaseDelay:  o.cfg.Retry.BaseDelay,
		Timeout:    o.cfg.Collect.Timeout,
	}, o.collector.Collect)
	if err != nil {
		o.setStage(models.StageFailed, 100, "collection failed")
		wfErr := asWorkflowError(err, models.ErrCodeCollection, "collection failed")
		rep.Fatal = wfErr.ToDetail()
		rep.Results = []models.PostResult{}
		o.deliver(ctx, rep)
		return rep, wfErr
	}
	rep.URLsCollected = len(content.ExtractedURLs)

	// Crawling. Best effort: a crawl error degrades to posting without
	// context rather than failing the run.
	contexts := models.NewContextMap()
	if o.crawler != nil && len(content.ExtractedURLs) > 0 {
		o.setStage(models.StageCrawling, 20, "crawling linked pages")
		cm, err := o.crawler.CrawlForContext(ctx, content.ExtractedURLs)
		if err != nil {
			slog.Warn("context crawl failed, posting without enrichment", "error", err)
		}
		if cm != nil {
			contexts = cm
		}
	}
	rep.PagesCrawled = contexts.FetchedCount()

	// Posting. Destinations run sequentially in configuration order; each
	// yields exactly one result.
	rep.Results = o.post(ctx, content, contexts)
	rep.DestinationsAttempted = len(rep.Results)

	// Reporting.
	o.setStage(models.StageReporting, 95, "delivering run report")
	o.deliver(ctx, rep)

	o.setStage(models.StageDone, 100, "run complete")
	slog.Info("run finished",
		"destinations", rep.DestinationsAttempted,
		"succeeded", rep.SucceededCount(),
		"pages_crawled", rep.PagesCrawled,
		"duration", time.Since(started))
	return rep, nil
}

// post runs the sequential destination loop. Cancellation mid-loop marks
// the remaining destinations as cancelled instead of dropping them from the
// results.
func (o *Orchestrator) post(ctx context.Context, content *models.Content, contexts *models.ContextMap) []models.PostResult {
	results := make([]models.PostResult, 0, len(o.destinations))

	for i, dest := range o.destinations {
		if ctx.Err() != nil {
			return append(results, o.cancelledResults(o.destinations[i:])...)
		}

		if i > 0 && o.cfg.Posting.DelayBetween > 0 {
			select {
			case <-time.After(o.cfg.Posting.DelayBetween):
			case <-ctx.Done():
				return append(results, o.cancelledResults(o.destinations[i:])...)
			}
		}

		percent := 40 + (50*i)/len(o.destinations)
		o.setStage(models.StagePosting, percent, "posting to "+dest.Name())

		results = append(results, o.postOne(ctx, dest, content, contexts))
	}
	return results
}

// postOne runs one destination's two phases. A prepare failure short-circuits
// to a failed result without any externally visible action.
func (o *Orchestrator) postOne(ctx context.Context, dest destination.Destination, content *models.Content, contexts *models.ContextMap) models.PostResult {
	post, err := dest.PrepareContent(ctx, content, contexts)
	if err != nil {
		slog.Warn("prepare failed, skipping execute", "platform", dest.Name(), "error", err)
		return models.PostResult{
			Platform:  dest.Name(),
			Success:   false,
			Reason:    "content preparation failed",
			Error:     err.Error(),
			Timestamp: time.Now(),
		}
	}

	result := dest.ExecutePost(ctx, post)
	if result.Success {
		slog.Info("posted", "platform", dest.Name(), "post_id", result.PostID)
	} else {
		slog.Warn("post failed", "platform", dest.Name(), "reason", result.Reason, "error", result.Error)
	}
	return result
}

func (o *Orchestrator) cancelledResults(remaining []destination.Destination) []models.PostResult {
	out := make([]models.PostResult, 0, len(remaining))
	for _, dest := range remaining {
		out = append(out, models.PostResult{
			Platform:  dest.Name(),
			Success:   false,
			Reason:    "cancelled",
			Timestamp: time.Now(),
		})
	}
	slog.Info("run cancelled, skipping remaining destinations", "skipped", len(out))
	return out
}

// deliver pushes the report to every sink. Sink errors are logged, never
// fatal: the report is still returned to the caller.
func (o *Orchestrator) deliver(ctx context.Context, rep *models.RunReport) {
	for _, sink := range o.sinks {
		if err := sink.Deliver(ctx, rep); err != nil {
			slog.Error("report delivery failed", "sink", sink.Name(), "error", err)
		}
	}
}

func (o *Orchestrator) setStage(stage string, percent int, msg string) {
	o.stage = stage
	if o.progress == nil {
		return
	}
	select {
	case o.progress <- models.Progress{Stage: stage, Percent: percent, Message: msg}:
	default:
	}
}

func asWorkflowError(err error, code, msg string) *models.WorkflowError {
	var wfErr *models.WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr
	}
	return models.NewWorkflowError(code, msg, err)
}
