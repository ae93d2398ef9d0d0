package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	// ErrCodeCollection marks a failed content collection — fatal to the
	// run, there is nothing to post.
	ErrCodeCollection = "COLLECTION_FAILED"

	// ErrCodeFetch marks a single crawl fetch failure. Non-fatal; recorded
	// as a failed CrawlEntry.
	ErrCodeFetch = "FETCH_FAILED"

	// ErrCodePrepare marks a per-destination preparation failure. Non-fatal
	// to other destinations.
	ErrCodePrepare = "PREPARE_FAILED"

	// ErrCodeExecute marks a per-destination execution failure, including
	// exhausted-retry timeouts. Non-fatal to other destinations.
	ErrCodeExecute = "EXECUTE_FAILED"

	// ErrCodeConfig marks invalid configuration, detected before any
	// external call is made.
	ErrCodeConfig = "INVALID_CONFIG"

	// ErrCodeCancelled marks a caller-aborted run.
	ErrCodeCancelled = "RUN_CANCELLED"

	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"

	// LLM-related error codes surfaced by the adaptation client.
	ErrCodeLLMFailure     = "LLM_FAILURE"
	ErrCodeLLMAuthFailure = "LLM_AUTH_FAILURE"
	ErrCodeLLMRateLimited = "LLM_RATE_LIMITED"
)

// ErrorDetail is the structured error in API responses and run reports.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WorkflowError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type WorkflowError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *WorkflowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// NewWorkflowError creates a new WorkflowError.
func NewWorkflowError(code, message string, err error) *WorkflowError {
	return &WorkflowError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to a report-facing ErrorDetail.
func (e *WorkflowError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
