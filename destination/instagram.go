package destination

import (
	"context"
	"fmt"
	"strings"

	"github.com/use-agent/syndicate/llm"
	"github.com/use-agent/syndicate/models"
)

const (
	instagramMaxLength = 2200
	instagramHashtags  = 20
)

// Instagram posts a feed photo with a caption. Instagram requires media, so
// text-only content is rejected at prepare time.
type Instagram struct {
	base
}

func NewInstagram(opts Options) *Instagram {
	return &Instagram{base{
		name:    "instagram",
		engine:  opts.Engine,
		adapter: opts.Adapter,
		retry:   opts.Retry,
		rules: llm.Rules{
			Platform:     "Instagram",
			MaxLength:    instagramMaxLength,
			HashtagCount: instagramHashtags,
			Tone:         "visual-first and upbeat, written as a caption",
			WantsEmojis:  true,
		},
		defaultHashtags: []string{"#update", "#news"},
	}}
}

func (i *Instagram) PrepareContent(ctx context.Context, content *models.Content, contexts *models.ContextMap) (*models.PreparedPost, error) {
	if len(content.MediaFiles) == 0 && len(content.VideoFiles) == 0 {
		return nil, models.NewWorkflowError(models.ErrCodePrepare, "instagram needs at least one photo or video", nil)
	}
	return i.base.PrepareContent(ctx, content, contexts)
}

func (i *Instagram) ExecutePost(ctx context.Context, post *models.PreparedPost) models.PostResult {
	var b strings.Builder
	b.WriteString(postGoalPreamble("Instagram"))
	b.WriteString("Create a new feed post. ")
	if len(post.MediaURLs) > 0 {
		fmt.Fprintf(&b, "Select the most recent photo named %q from the gallery. ", post.MediaURLs[0])
	} else {
		b.WriteString("Select the most recent photo from the gallery. ")
	}
	fmt.Fprintf(&b, "Use exactly this caption:\n%s\n", composeBody(post))
	b.WriteString("Share the post and confirm it appears on the profile. Answer with DONE when published.")
	return i.executeGoal(ctx, b.String())
}
