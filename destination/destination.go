// Package destination implements the per-platform posting contract. Every
// destination works in two phases: PrepareContent shapes the copy without
// side effects, ExecutePost performs the externally visible action.
package destination

import (
	"context"

	"github.com/use-agent/syndicate/llm"
	"github.com/use-agent/syndicate/models"
)

// Destination is one syndication target.
type Destination interface {
	// Name returns the stable platform identifier, e.g. "twitter".
	Name() string

	// PrepareContent builds the platform-shaped post. It must not perform
	// any externally visible action; a failure here means ExecutePost is
	// never called for this destination.
	PrepareContent(ctx context.Context, content *models.Content, contexts *models.ContextMap) (*models.PreparedPost, error)

	// ExecutePost publishes the prepared post. It always returns a
	// PostResult, capturing failures in Reason/Error rather than panicking
	// or aborting the run.
	ExecutePost(ctx context.Context, post *models.PreparedPost) models.PostResult
}

// Adapter is the content-adaptation collaborator. *llm.Client satisfies it;
// tests substitute fakes.
type Adapter interface {
	Adapt(ctx context.Context, req llm.AdaptRequest) (*llm.AdaptResult, error)
}
