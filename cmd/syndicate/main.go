package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/syndicate/api"
	"github.com/use-agent/syndicate/api/handler"
	"github.com/use-agent/syndicate/automation"
	"github.com/use-agent/syndicate/collector"
	"github.com/use-agent/syndicate/config"
	"github.com/use-agent/syndicate/crawler"
	"github.com/use-agent/syndicate/destination"
	"github.com/use-agent/syndicate/engine"
	"github.com/use-agent/syndicate/llm"
	"github.com/use-agent/syndicate/orchestrator"
	"github.com/use-agent/syndicate/report"
	"github.com/use-agent/syndicate/retry"
)

func main() {
	serve := flag.Bool("serve", false, "run the HTTP API instead of a single workflow")
	flag.Parse()

	// ── 1. Load and validate configuration ──────────────────────────
	cfg := config.Load()
	initLogger(cfg.Log)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("syndicate starting",
		"source_chat", cfg.Collect.SourceChatID,
		"destinations", len(cfg.EnabledPlatforms()),
		"crawl_depth", cfg.Crawl.MaxDepth,
	)

	// ── 2. Build the fetch engines ──────────────────────────────────
	engines := []engine.Engine{engine.NewHTTPEngine()}
	if cfg.Browser.Enabled {
		browserEngine, err := engine.NewBrowserEngine(engine.BrowserOptions{
			Headless:  cfg.Browser.Headless,
			NoSandbox: cfg.Browser.NoSandbox,
			Bin:       cfg.Browser.BrowserBin,
		})
		if err != nil {
			slog.Error("failed to launch browser engine", "error", err)
			os.Exit(1)
		}
		defer browserEngine.Close()
		engines = append(engines, browserEngine)
	}
	memory := engine.NewDomainMemory(cfg.Engine.MemoryTTL)
	defer memory.Stop()
	dispatcher := engine.NewDispatcher(engines, cfg.Engine.EscalationDelays, memory)

	// ── 3. Build the collaborators ──────────────────────────────────
	automationClient := automation.NewClient(cfg.Automation, nil)
	adapter := llm.NewClient(cfg.LLM, &http.Client{Timeout: cfg.LLM.Timeout})
	col := collector.NewChatCollector(automationClient, cfg.Collect)
	cr := crawler.New(cfg.Crawl, dispatcher)

	dests := buildDestinations(cfg, automationClient, adapter)
	sinks := buildSinks(cfg.Report)

	factory := func() *orchestrator.Orchestrator {
		return orchestrator.New(cfg, col, cr, dests, sinks)
	}

	if *serve {
		runServer(cfg, factory)
		return
	}
	runOnce(factory())
}

// runOnce executes a single workflow and prints the outcome.
func runOnce(o *orchestrator.Orchestrator) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep, err := o.Run(ctx)
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("run complete: %d/%d destinations succeeded, %d pages crawled\n",
		rep.SucceededCount(), rep.DestinationsAttempted, rep.PagesCrawled)
	for _, r := range rep.Results {
		mark := "ok"
		if !r.Success {
			mark = "failed: " + r.Reason
		}
		fmt.Printf("  %-10s %s\n", r.Platform, mark)
	}
	if rep.SucceededCount() < rep.DestinationsAttempted {
		os.Exit(1)
	}
}

// runServer exposes the workflow over the HTTP API with graceful shutdown.
func runServer(cfg *config.Config, factory handler.RunnerFactory) {
	router := api.NewRouter(factory, cfg, time.Now())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("syndicate stopped")
}

// buildDestinations assembles the enabled destinations in configuration order.
func buildDestinations(cfg *config.Config, eng *automation.Client, adapter destination.Adapter) []destination.Destination {
	var dests []destination.Destination
	for _, p := range cfg.EnabledPlatforms() {
		opts := destination.Options{
			Engine:  eng,
			Adapter: adapter,
			Retry: retry.Policy{
				MaxRetries: cfg.Retry.MaxRetries,
				BaseDelay:  cfg.Retry.BaseDelay,
				Timeout:    p.Timeout,
			},
		}
		switch p.Name {
		case "twitter":
			dests = append(dests, destination.NewTwitter(opts))
		case "threads":
			dests = append(dests, destination.NewThreads(opts))
		case "instagram":
			dests = append(dests, destination.NewInstagram(opts))
		case "linkedin":
			dests = append(dests, destination.NewLinkedIn(opts))
		default:
			slog.Warn("unknown platform in configuration, skipped", "platform", p.Name)
		}
	}
	return dests
}

func buildSinks(cfg config.ReportConfig) []report.Sink {
	var sinks []report.Sink
	if cfg.SaveToFile {
		sinks = append(sinks, report.NewFileSink(cfg.OutputDir))
	}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, report.NewWebhookSink(cfg.WebhookURL, cfg.WebhookSecret))
	}
	return sinks
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
