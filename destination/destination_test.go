package destination

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/use-agent/syndicate/automation"
	"github.com/use-agent/syndicate/llm"
	"github.com/use-agent/syndicate/models"
	"github.com/use-agent/syndicate/retry"
)

type fakeAdapter struct {
	result *llm.AdaptResult
	err    error
	reqs   []llm.AdaptRequest
}

func (f *fakeAdapter) Adapt(_ context.Context, req llm.AdaptRequest) (*llm.AdaptResult, error) {
	f.reqs = append(f.reqs, req)
	return f.result, f.err
}

type fakePostEngine struct {
	results []*automation.GoalResult
	errs    []error
	calls   int
	goals   []string
}

func (f *fakePostEngine) RunGoal(_ context.Context, goal string) (*automation.GoalResult, error) {
	i := f.calls
	f.calls++
	f.goals = append(f.goals, goal)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var res *automation.GoalResult
	if i < len(f.results) {
		res = f.results[i]
	}
	return res, err
}

func testOptions(engine automation.Engine, adapter Adapter) Options {
	return Options{
		Engine:  engine,
		Adapter: adapter,
		Retry:   retry.Policy{MaxRetries: 1, BaseDelay: time.Millisecond, Timeout: time.Second},
	}
}

func testContent() *models.Content {
	return &models.Content{
		OriginalText: "We shipped the new release today.",
		MediaFiles:   []string{"shot.png"},
		Metadata:     map[string]any{},
	}
}

func TestPrepare_EnforcesPlatformLimits(t *testing.T) {
	adapter := &fakeAdapter{result: &llm.AdaptResult{
		Text:     strings.Repeat("x", 500),
		Hashtags: []string{"#a", "#b", "#c", "#d", "#e", "#f", "#g"},
		Thread:   []string{"one", "two", "three", "four", "five"},
	}}
	tw := NewTwitter(testOptions(&fakePostEngine{}, adapter))

	post, err := tw.PrepareContent(context.Background(), testContent(), models.NewContextMap())
	if err != nil {
		t.Fatalf("PrepareContent() error = %v", err)
	}
	if n := utf8.RuneCountInString(post.Text); n > twitterMaxLength {
		t.Errorf("text length = %d, want <= %d", n, twitterMaxLength)
	}
	if len(post.Hashtags) != twitterHashtags {
		t.Errorf("hashtags = %d, want clamped to %d", len(post.Hashtags), twitterHashtags)
	}
	if len(post.Thread) != twitterThreadMax {
		t.Errorf("thread = %d, want clamped to %d", len(post.Thread), twitterThreadMax)
	}
	if post.Platform != "twitter" {
		t.Errorf("platform = %q", post.Platform)
	}
}

func TestPrepare_ContextDigestReachesAdapter(t *testing.T) {
	adapter := &fakeAdapter{result: &llm.AdaptResult{Text: "ok"}}
	tw := NewTwitter(testOptions(&fakePostEngine{}, adapter))

	contexts := models.NewContextMap()
	contexts.Add(&models.CrawlEntry{URL: "https://x.test/a", Status: models.CrawlFetched, Context: "# Release notes"})
	contexts.Add(&models.CrawlEntry{URL: "https://x.test/b", Status: models.CrawlFailed, FailReason: "boom"})

	if _, err := tw.PrepareContent(context.Background(), testContent(), contexts); err != nil {
		t.Fatalf("PrepareContent() error = %v", err)
	}
	if len(adapter.reqs) != 1 {
		t.Fatalf("adapter calls = %d, want 1", len(adapter.reqs))
	}
	got := adapter.reqs[0].Context
	if !strings.Contains(got, "Release notes") {
		t.Errorf("digest missing fetched context: %q", got)
	}
	if strings.Contains(got, "boom") {
		t.Errorf("digest should skip failed entries: %q", got)
	}
}

func TestPrepare_FallbackWhenAdapterFails(t *testing.T) {
	adapter := &fakeAdapter{err: errors.New("llm down")}
	tw := NewTwitter(testOptions(&fakePostEngine{}, adapter))

	content := testContent()
	content.OriginalText = strings.Repeat("long text ", 100)

	post, err := tw.PrepareContent(context.Background(), content, nil)
	if err != nil {
		t.Fatalf("PrepareContent() error = %v, fallback expected", err)
	}
	if post.Metadata["adapted"] != false {
		t.Errorf("adapted = %v, want false", post.Metadata["adapted"])
	}
	if n := utf8.RuneCountInString(post.Text); n > twitterMaxLength {
		t.Errorf("fallback text length = %d, want <= %d", n, twitterMaxLength)
	}
}

func TestPrepare_EmptyTextFails(t *testing.T) {
	tw := NewTwitter(testOptions(&fakePostEngine{}, &fakeAdapter{result: &llm.AdaptResult{Text: "ok"}}))

	content := testContent()
	content.OriginalText = "   "

	_, err := tw.PrepareContent(context.Background(), content, nil)
	var wfErr *models.WorkflowError
	if !errors.As(err, &wfErr) || wfErr.Code != models.ErrCodePrepare {
		t.Errorf("error = %v, want WorkflowError %s", err, models.ErrCodePrepare)
	}
}

func TestPrepare_InstagramRequiresMedia(t *testing.T) {
	ig := NewInstagram(testOptions(&fakePostEngine{}, &fakeAdapter{result: &llm.AdaptResult{Text: "ok"}}))

	content := testContent()
	content.MediaFiles = nil

	if _, err := ig.PrepareContent(context.Background(), content, nil); err == nil {
		t.Fatal("PrepareContent() expected error without media")
	}

	content.MediaFiles = []string{"shot.png"}
	if _, err := ig.PrepareContent(context.Background(), content, nil); err != nil {
		t.Fatalf("PrepareContent() with media error = %v", err)
	}
}

func TestExecute_Success(t *testing.T) {
	engine := &fakePostEngine{results: []*automation.GoalResult{
		{Success: true, Observation: "https://x.com/u/status/1"},
	}}
	tw := NewTwitter(testOptions(engine, nil))

	post := &models.PreparedPost{Platform: "twitter", Text: "hello", Thread: []string{"part two"}}
	result := tw.ExecutePost(context.Background(), post)

	if !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
	if result.PostID != "https://x.com/u/status/1" {
		t.Errorf("PostID = %q", result.PostID)
	}
	if !strings.Contains(engine.goals[0], "hello") || !strings.Contains(engine.goals[0], "part two") {
		t.Errorf("goal missing post text: %q", engine.goals[0])
	}
	if result.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestExecute_RetriesThenSucceeds(t *testing.T) {
	engine := &fakePostEngine{
		errs:    []error{errors.New("transient"), nil},
		results: []*automation.GoalResult{nil, {Success: true, Observation: "DONE"}},
	}
	th := NewThreads(testOptions(engine, nil))

	result := th.ExecutePost(context.Background(), &models.PreparedPost{Platform: "threads", Text: "hi"})
	if !result.Success {
		t.Fatalf("result = %+v, want success after retry", result)
	}
	if engine.calls != 2 {
		t.Errorf("engine calls = %d, want 2", engine.calls)
	}
}

func TestExecute_FailureIsCapturedNotFatal(t *testing.T) {
	engine := &fakePostEngine{
		results: []*automation.GoalResult{
			{Success: false, Reason: "post button missing"},
			{Success: false, Reason: "post button missing"},
		},
	}
	li := NewLinkedIn(testOptions(engine, nil))

	result := li.ExecutePost(context.Background(), &models.PreparedPost{Platform: "linkedin", Text: "hi"})
	if result.Success {
		t.Fatal("result.Success = true, want failure")
	}
	if result.Error == "" || !strings.Contains(result.Error, "post button missing") {
		t.Errorf("Error = %q, want underlying reason", result.Error)
	}
	if engine.calls != 2 {
		t.Errorf("engine calls = %d, want initial + 1 retry", engine.calls)
	}
}

func TestComposeBody_Order(t *testing.T) {
	post := &models.PreparedPost{
		Headline: "Big news",
		Text:     "We shipped.",
		Emojis:   "🚀",
		Hashtags: []string{"#ship", "#release"},
	}
	got := composeBody(post)
	want := "Big news\n\nWe shipped. 🚀\n\n#ship #release"
	if got != want {
		t.Errorf("composeBody() = %q, want %q", got, want)
	}
}
