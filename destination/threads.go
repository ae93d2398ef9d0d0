package destination

import (
	"context"
	"fmt"
	"strings"

	"github.com/use-agent/syndicate/llm"
	"github.com/use-agent/syndicate/models"
)

const (
	threadsMaxLength = 500
	threadsHashtags  = 3
)

// Threads posts to Meta's Threads.
type Threads struct {
	base
}

func NewThreads(opts Options) *Threads {
	return &Threads{base{
		name:    "threads",
		engine:  opts.Engine,
		adapter: opts.Adapter,
		retry:   opts.Retry,
		rules: llm.Rules{
			Platform:     "Threads",
			MaxLength:    threadsMaxLength,
			HashtagCount: threadsHashtags,
			Tone:         "conversational and human, like texting a smart friend",
		},
		defaultHashtags: []string{"#update"},
	}}
}

func (t *Threads) ExecutePost(ctx context.Context, post *models.PreparedPost) models.PostResult {
	var b strings.Builder
	b.WriteString(postGoalPreamble("Threads"))
	fmt.Fprintf(&b, "Start a new thread with exactly this text:\n%s\n", composeBody(post))
	b.WriteString("Publish it and confirm it appears in the feed. ")
	b.WriteString("Answer with the post URL if visible, otherwise with DONE.")
	return t.executeGoal(ctx, b.String())
}
