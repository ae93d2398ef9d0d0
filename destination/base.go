package destination

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/syndicate/automation"
	"github.com/use-agent/syndicate/llm"
	"github.com/use-agent/syndicate/models"
	"github.com/use-agent/syndicate/retry"
	"github.com/use-agent/syndicate/textutil"
)

// contextDigestChars bounds how much crawled context goes into one
// adaptation prompt.
const contextDigestChars = 6000

// Options are the knobs shared by every platform destination.
type Options struct {
	Engine  automation.Engine
	Adapter Adapter

	// Retry governs ExecutePost attempts.
	Retry retry.Policy
}

// base carries the behavior common to all platforms: adaptation with a
// deterministic fallback, limit enforcement, and retried goal execution.
type base struct {
	name    string
	engine  automation.Engine
	adapter Adapter
	retry   retry.Policy
	rules   llm.Rules

	// defaultHashtags are used when adaptation is unavailable.
	defaultHashtags []string
}

func (b *base) Name() string { return b.name }

// PrepareContent adapts the content for this platform. An adapter failure
// degrades to a deterministic truncation so a broken LLM never blocks
// posting; an empty source text is the only fatal prepare error.
func (b *base) PrepareContent(ctx context.Context, content *models.Content, contexts *models.ContextMap) (*models.PreparedPost, error) {
	if strings.TrimSpace(content.OriginalText) == "" {
		return nil, models.NewWorkflowError(models.ErrCodePrepare, "no text to prepare for "+b.name, nil)
	}

	post := &models.PreparedPost{
		Platform:   b.name,
		MediaURLs:  content.MediaFiles,
		Metadata:   map[string]any{},
		PreparedAt: time.Now(),
	}

	if b.adapter != nil {
		result, err := b.adapter.Adapt(ctx, llm.AdaptRequest{
			Content: content.OriginalText,
			Context: contextDigest(contexts),
			Rules:   b.rules,
		})
		if err == nil {
			b.fill(post, result)
			post.Metadata["adapted"] = true
			return post, nil
		}
		slog.Warn("adaptation failed, using fallback copy", "platform", b.name, "error", err)
	}

	post.Text = textutil.Truncate(content.OriginalText, b.rules.MaxLength)
	post.Hashtags = clampStrings(b.defaultHashtags, b.rules.HashtagCount)
	post.Metadata["adapted"] = false
	return post, nil
}

// fill copies an adaptation result into the post, enforcing the platform
// limits regardless of what the model returned.
func (b *base) fill(post *models.PreparedPost, r *llm.AdaptResult) {
	post.Text = textutil.Truncate(r.Text, b.rules.MaxLength)
	post.Hashtags = clampStrings(r.Hashtags, b.rules.HashtagCount)
	if b.rules.WantsHeadline {
		post.Headline = r.Headline
	}
	if b.rules.WantsEmojis {
		post.Emojis = r.Emojis
	}
	if b.rules.WantsThread {
		thread := clampStrings(r.Thread, b.rules.ThreadMax)
		for i, seg := range thread {
			thread[i] = textutil.Truncate(seg, b.rules.MaxLength)
		}
		post.Thread = thread
	}
}

// executeGoal runs a posting goal through the automation engine with the
// configured retry policy and folds the outcome into a PostResult.
func (b *base) executeGoal(ctx context.Context, goal string) models.PostResult {
	result := models.PostResult{Platform: b.name, Timestamp: time.Now()}

	goalResult, err := retry.Do(ctx, b.name+" post", b.retry, func(ctx context.Context) (*automation.GoalResult, error) {
		r, err := b.engine.RunGoal(ctx, goal)
		if err != nil {
			return nil, err
		}
		if !r.Success {
			reason := r.Reason
			if reason == "" {
				reason = "automation engine could not complete the post"
			}
			return nil, models.NewWorkflowError(models.ErrCodeExecute, reason, nil)
		}
		return r, nil
	})
	if err != nil {
		result.Success = false
		result.Reason = "posting failed after retries"
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.PostID = strings.TrimSpace(goalResult.Observation)
	return result
}

// postGoalPreamble is the instruction block shared by all posting goals.
func postGoalPreamble(app string) string {
	return fmt.Sprintf("Open the %s app. If a draft or compose screen is already open, discard it first. ", app)
}

// composeBody renders the final text the device should type: headline,
// body, emojis, hashtags, in platform order.
func composeBody(post *models.PreparedPost) string {
	var parts []string
	if post.Headline != "" {
		parts = append(parts, post.Headline)
	}
	body := post.Text
	if post.Emojis != "" {
		body = body + " " + post.Emojis
	}
	parts = append(parts, body)
	if len(post.Hashtags) > 0 {
		parts = append(parts, strings.Join(post.Hashtags, " "))
	}
	return strings.Join(parts, "\n\n")
}

// contextDigest flattens the fetched crawl entries into one prompt block.
func contextDigest(contexts *models.ContextMap) string {
	if contexts == nil || contexts.Len() == 0 {
		return ""
	}
	var b strings.Builder
	for _, entry := range contexts.Entries() {
		if entry.Status != models.CrawlFetched || entry.Context == "" {
			continue
		}
		fmt.Fprintf(&b, "Source: %s\n%s\n\n", entry.URL, entry.Context)
	}
	return textutil.Truncate(b.String(), contextDigestChars)
}

func clampStrings(in []string, max int) []string {
	if max <= 0 || len(in) <= max {
		return in
	}
	return in[:max]
}
