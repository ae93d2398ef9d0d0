package models

import "time"

// Run stages, in workflow order.
const (
	StageIdle       = "idle"
	StageCollecting = "collecting"
	StageCrawling   = "crawling"
	StagePosting    = "posting"
	StageReporting  = "reporting"
	StageDone       = "done"
	StageFailed     = "failed"
)

// RunReport is the full, ordered record of one workflow execution, used for
// audit. Results always contains one PostResult per enabled destination; a
// run aborted by a collection failure carries zero results and a non-nil
// Fatal record instead.
type RunReport struct {
	Timestamp time.Time `json:"timestamp"`

	// SourceID identifies the messaging source the content came from.
	SourceID string `json:"source_id"`

	URLsCollected         int `json:"urls_collected"`
	PagesCrawled          int `json:"pages_crawled"`
	DestinationsAttempted int `json:"destinations_attempted"`

	// Results are ordered by destination configuration order, not
	// completion order.
	Results []PostResult `json:"results"`

	// Fatal is set only when the run aborted before posting (collection
	// failure). Destination failures never set it.
	Fatal *ErrorDetail `json:"fatal,omitempty"`
}

// SucceededCount returns how many destinations reported success.
func (r *RunReport) SucceededCount() int {
	n := 0
	for i := range r.Results {
		if r.Results[i].Success {
			n++
		}
	}
	return n
}

// Progress is an advisory event emitted by the orchestrator and crawler for
// presentation layers. It never affects control flow.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}
