package destination

import (
	"context"
	"fmt"
	"strings"

	"github.com/use-agent/syndicate/llm"
	"github.com/use-agent/syndicate/models"
)

const (
	linkedinMaxLength = 3000
	linkedinHashtags  = 15
)

// LinkedIn posts a professional update with a headline hook.
type LinkedIn struct {
	base
}

func NewLinkedIn(opts Options) *LinkedIn {
	return &LinkedIn{base{
		name:    "linkedin",
		engine:  opts.Engine,
		adapter: opts.Adapter,
		retry:   opts.Retry,
		rules: llm.Rules{
			Platform:      "LinkedIn",
			MaxLength:     linkedinMaxLength,
			HashtagCount:  linkedinHashtags,
			Tone:          "professional but personable, with a clear takeaway",
			WantsHeadline: true,
		},
		defaultHashtags: []string{"#update"},
	}}
}

func (l *LinkedIn) ExecutePost(ctx context.Context, post *models.PreparedPost) models.PostResult {
	var b strings.Builder
	b.WriteString(postGoalPreamble("LinkedIn"))
	fmt.Fprintf(&b, "Start a new post with exactly this text:\n%s\n", composeBody(post))
	b.WriteString("Publish it and confirm it appears in the feed. ")
	b.WriteString("Answer with the post URL if visible, otherwise with DONE.")
	return l.executeGoal(ctx, b.String())
}
