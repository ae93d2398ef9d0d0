package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/use-agent/syndicate/automation"
	"github.com/use-agent/syndicate/config"
	"github.com/use-agent/syndicate/models"
)

type fakeEngine struct {
	result *automation.GoalResult
	err    error
	goals  []string
}

func (f *fakeEngine) RunGoal(_ context.Context, goal string) (*automation.GoalResult, error) {
	f.goals = append(f.goals, goal)
	return f.result, f.err
}

func newCollector(engine automation.Engine) *ChatCollector {
	return NewChatCollector(engine, config.CollectConfig{SourceChatID: "Team Updates"})
}

func TestCollect_StructuredObservation(t *testing.T) {
	engine := &fakeEngine{result: &automation.GoalResult{
		Success: true,
		Observation: `{"text": "Big launch today! https://example.com/launch",
			"urls": ["https://example.com/launch"],
			"media_files": ["photo.jpg"]}`,
		Steps: 7,
	}}

	content, err := newCollector(engine).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if content.OriginalText != "Big launch today! https://example.com/launch" {
		t.Errorf("text = %q", content.OriginalText)
	}
	if len(content.ExtractedURLs) != 1 || content.ExtractedURLs[0] != "https://example.com/launch" {
		t.Errorf("urls = %v", content.ExtractedURLs)
	}
	if len(content.MediaFiles) != 1 || content.MediaFiles[0] != "photo.jpg" {
		t.Errorf("media = %v", content.MediaFiles)
	}
	if content.Metadata["source_chat"] != "Team Updates" {
		t.Errorf("source_chat = %v", content.Metadata["source_chat"])
	}
	if content.CollectedAt.IsZero() {
		t.Error("CollectedAt not set")
	}
}

func TestCollect_FencedJSONObservation(t *testing.T) {
	engine := &fakeEngine{result: &automation.GoalResult{
		Success:     true,
		Observation: "```json\n{\"text\": \"hello\", \"urls\": []}\n```",
	}}

	content, err := newCollector(engine).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if content.OriginalText != "hello" {
		t.Errorf("text = %q", content.OriginalText)
	}
}

func TestCollect_PlainTextFallback(t *testing.T) {
	engine := &fakeEngine{result: &automation.GoalResult{
		Success:     true,
		Observation: "Check this out: https://example.com/a and https://example.com/b.",
	}}

	content, err := newCollector(engine).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(content.ExtractedURLs) != 2 {
		t.Fatalf("urls = %v, want 2 extracted from text", content.ExtractedURLs)
	}
	if content.ExtractedURLs[1] != "https://example.com/b" {
		t.Errorf("urls[1] = %q, want trailing period stripped", content.ExtractedURLs[1])
	}
}

func TestCollect_EngineFailure(t *testing.T) {
	engine := &fakeEngine{result: &automation.GoalResult{Success: false, Reason: "chat not found"}}

	_, err := newCollector(engine).Collect(context.Background())
	if err == nil {
		t.Fatal("Collect() expected error")
	}
	var wfErr *models.WorkflowError
	if !errors.As(err, &wfErr) || wfErr.Code != models.ErrCodeCollection {
		t.Errorf("error = %v, want WorkflowError %s", err, models.ErrCodeCollection)
	}
}

func TestCollect_TransportError(t *testing.T) {
	engine := &fakeEngine{err: errors.New("connection refused")}

	_, err := newCollector(engine).Collect(context.Background())
	var wfErr *models.WorkflowError
	if !errors.As(err, &wfErr) || wfErr.Code != models.ErrCodeCollection {
		t.Errorf("error = %v, want WorkflowError %s", err, models.ErrCodeCollection)
	}
}

func TestCollect_EmptyObservation(t *testing.T) {
	engine := &fakeEngine{result: &automation.GoalResult{Success: true, Observation: "  "}}

	if _, err := newCollector(engine).Collect(context.Background()); err == nil {
		t.Fatal("Collect() expected error for empty observation")
	}
}
