// Package report delivers run reports to their sinks: a JSON results file
// and an optional signed webhook.
package report

import (
	"context"

	"github.com/use-agent/syndicate/models"
)

// Sink receives a completed run report. Delivery failures are the sink's
// caller's problem to log; they never fail the run.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, report *models.RunReport) error
}
