// Package collector implements the collection step: reading the latest
// message out of the source chat via the automation engine.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/syndicate/automation"
	"github.com/use-agent/syndicate/config"
	"github.com/use-agent/syndicate/models"
	"github.com/use-agent/syndicate/textutil"
)

// Collector produces the content a run will syndicate.
type Collector interface {
	Collect(ctx context.Context) (*models.Content, error)
}

// ChatCollector reads the most recent message from a chat conversation on
// the device.
type ChatCollector struct {
	engine automation.Engine
	cfg    config.CollectConfig
}

// NewChatCollector wires a collector to the automation engine.
func NewChatCollector(engine automation.Engine, cfg config.CollectConfig) *ChatCollector {
	return &ChatCollector{engine: engine, cfg: cfg}
}

// collectedPayload is the JSON shape the goal asks the engine to produce.
type collectedPayload struct {
	Text       string   `json:"text"`
	URLs       []string `json:"urls"`
	MediaFiles []string `json:"media_files"`
	VideoFiles []string `json:"video_files"`
}

// Collect drives the device to the source chat and returns its latest
// message as Content. The engine's observation is expected to be JSON; a
// plain-text observation degrades to text plus regex-extracted URLs.
func (c *ChatCollector) Collect(ctx context.Context) (*models.Content, error) {
	result, err := c.engine.RunGoal(ctx, c.buildGoal())
	if err != nil {
		return nil, models.NewWorkflowError(models.ErrCodeCollection, "collection goal failed", err)
	}
	if !result.Success {
		reason := result.Reason
		if reason == "" {
			reason = "automation engine did not reach the source message"
		}
		return nil, models.NewWorkflowError(models.ErrCodeCollection, reason, nil)
	}
	if strings.TrimSpace(result.Observation) == "" {
		return nil, models.NewWorkflowError(models.ErrCodeCollection, "collection returned an empty observation", nil)
	}

	content := c.parseObservation(result.Observation)
	content.Metadata["source_chat"] = c.cfg.SourceChatID
	content.Metadata["automation_steps"] = result.Steps
	content.CollectedAt = time.Now()

	slog.Info("content collected",
		"chars", len(content.OriginalText),
		"urls", len(content.ExtractedURLs),
		"media", len(content.MediaFiles))
	return content, nil
}

func (c *ChatCollector) buildGoal() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Open the messaging app and go to the conversation %q. ", c.cfg.SourceChatID)
	b.WriteString("Read the most recent message in full, including any links it contains. ")
	b.WriteString("Do not reply or change anything. ")
	b.WriteString("Answer with a JSON object: ")
	b.WriteString(`{"text": "<the full message text>", "urls": ["<every link in the message>"], ` +
		`"media_files": ["<attached image names>"], "video_files": ["<attached video names>"]}`)
	return b.String()
}

// parseObservation accepts either the requested JSON shape or raw text.
func (c *ChatCollector) parseObservation(obs string) *models.Content {
	obs = stripCodeFence(strings.TrimSpace(obs))

	var payload collectedPayload
	if err := json.Unmarshal([]byte(obs), &payload); err == nil && payload.Text != "" {
		urls := payload.URLs
		if len(urls) == 0 {
			urls = textutil.ExtractURLs(payload.Text)
		}
		return &models.Content{
			OriginalText:  textutil.Clean(payload.Text),
			ExtractedURLs: urls,
			MediaFiles:    payload.MediaFiles,
			VideoFiles:    payload.VideoFiles,
			Metadata:      map[string]any{},
		}
	}

	slog.Warn("collection observation was not structured JSON, falling back to raw text")
	return &models.Content{
		OriginalText:  textutil.Clean(obs),
		ExtractedURLs: textutil.ExtractURLs(obs),
		Metadata:      map[string]any{},
	}
}

// stripCodeFence removes a surrounding ```json fence if the engine added one.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
