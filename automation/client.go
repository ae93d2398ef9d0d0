package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/use-agent/syndicate/config"
	"github.com/use-agent/syndicate/models"
)

// Client is the HTTP implementation of Engine, talking to the automation
// service's goal endpoint.
type Client struct {
	httpClient *http.Client
	cfg        config.AutomationConfig
}

// NewClient creates an automation client. Pass nil to use a default
// http.Client; timeouts come from the request context.
func NewClient(cfg config.AutomationConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient, cfg: cfg}
}

type goalRequest struct {
	Goal string `json:"goal"`
}

type goalErrorResponse struct {
	Error string `json:"error"`
}

// RunGoal posts the goal and blocks until the service reports an outcome.
func (c *Client) RunGoal(ctx context.Context, goal string) (*GoalResult, error) {
	bodyBytes, err := json.Marshal(goalRequest{Goal: goal})
	if err != nil {
		return nil, fmt.Errorf("automation: marshal goal: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/goals"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("automation: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewWorkflowError(models.ErrCodeExecute, "automation request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewWorkflowError(models.ErrCodeExecute, "failed to read automation response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp goalErrorResponse
		msg := fmt.Sprintf("automation service returned %d", resp.StatusCode)
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		code := models.ErrCodeExecute
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			code = models.ErrCodeUnauthorized
		}
		return nil, models.NewWorkflowError(code, msg, nil)
	}

	var result GoalResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, models.NewWorkflowError(models.ErrCodeExecute, "failed to parse automation response", err)
	}
	return &result, nil
}
