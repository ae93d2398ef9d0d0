package destination

import (
	"context"
	"fmt"
	"strings"

	"github.com/use-agent/syndicate/llm"
	"github.com/use-agent/syndicate/models"
)

const (
	twitterMaxLength = 280
	twitterHashtags  = 5
	twitterThreadMax = 3
)

// Twitter posts to X/Twitter, with thread support for content that does not
// fit a single tweet.
type Twitter struct {
	base
}

func NewTwitter(opts Options) *Twitter {
	return &Twitter{base{
		name:    "twitter",
		engine:  opts.Engine,
		adapter: opts.Adapter,
		retry:   opts.Retry,
		rules: llm.Rules{
			Platform:     "X (Twitter)",
			MaxLength:    twitterMaxLength,
			HashtagCount: twitterHashtags,
			Tone:         "punchy and concise, crafted to spark replies and reposts",
			WantsThread:  true,
			ThreadMax:    twitterThreadMax,
		},
		defaultHashtags: []string{"#update"},
	}}
}

func (t *Twitter) ExecutePost(ctx context.Context, post *models.PreparedPost) models.PostResult {
	var b strings.Builder
	b.WriteString(postGoalPreamble("X (Twitter)"))
	fmt.Fprintf(&b, "Compose a new post with exactly this text:\n%s\n", composeBody(post))
	for i, seg := range post.Thread {
		fmt.Fprintf(&b, "Then reply to it to continue the thread, part %d:\n%s\n", i+2, seg)
	}
	b.WriteString("Publish and confirm each post appears on the timeline. ")
	b.WriteString("Answer with the URL of the first post if visible, otherwise with DONE.")
	return t.executeGoal(ctx, b.String())
}
