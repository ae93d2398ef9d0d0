// Package automation bridges to the external device-automation service that
// drives the phone UI. Collection and posting both go through it: the caller
// describes a goal in natural language and gets back a structured outcome.
package automation

import "context"

// Engine executes a natural-language goal on the device.
type Engine interface {
	// RunGoal drives the device until the goal succeeds, fails, or ctx is
	// done. A nil error with Success=false means the engine ran to
	// completion but could not achieve the goal.
	RunGoal(ctx context.Context, goal string) (*GoalResult, error)
}

// GoalResult is the outcome of one automation goal.
type GoalResult struct {
	Success bool `json:"success"`

	// Reason explains a failure in the engine's own words.
	Reason string `json:"reason,omitempty"`

	// Observation is the engine's final answer for goals that ask it to
	// read something off the screen.
	Observation string `json:"observation,omitempty"`

	// Steps is the number of UI actions taken.
	Steps int `json:"steps,omitempty"`
}
