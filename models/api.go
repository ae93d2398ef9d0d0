package models

// RunJob tracks one API-triggered run from launch to completion.
type RunJob struct {
	ID        string       `json:"id"`
	Status    string       `json:"status"` // workflow stage
	Progress  int          `json:"progress"`
	Report    *RunReport   `json:"report,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	CreatedAt int64        `json:"created_at"`
}

// RunResponse is returned by POST /api/v1/runs.
type RunResponse struct {
	Success bool         `json:"success"`
	ID      string       `json:"id,omitempty"`
	Status  string       `json:"status,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// RunStatusResponse is returned by GET /api/v1/runs/:id.
type RunStatusResponse struct {
	ID       string       `json:"id"`
	Status   string       `json:"status"`
	Progress int          `json:"progress"`
	Report   *RunReport   `json:"report,omitempty"`
	Error    *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status       string   `json:"status"`
	Uptime       string   `json:"uptime"`
	Destinations []string `json:"destinations"`
	Version      string   `json:"version"`
}
