package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// runResponse mirrors the Syndicate API run-launch response.
type runResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Status  string `json:"status"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// runStatusResponse mirrors the Syndicate API run-status response.
type runStatusResponse struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Progress int             `json:"progress"`
	Report   json.RawMessage `json:"report"`
	Error    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("SYNDICATE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("SYNDICATE_API_KEY")

	s := server.NewMCPServer(
		"syndicate",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	runTool := mcp.NewTool("syndicate_run",
		mcp.WithDescription("Start a syndication run: collect the latest message from the source chat, crawl its links for context, and post to every enabled social platform. Returns a run ID to poll with syndicate_run_status."),
	)
	s.AddTool(runTool, handleRun(apiURL, apiKey))

	statusTool := mcp.NewTool("syndicate_run_status",
		mcp.WithDescription("Check the status of a syndication run. Returns the current stage, progress percentage, and the final report once the run completes."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The run ID returned by syndicate_run"),
		),
	)
	s.AddTool(statusTool, handleRunStatus(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleRun(apiURL, apiKey string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		client := &http.Client{Timeout: 30 * time.Second}

		body, err := apiDo(ctx, client, http.MethodPost, apiURL+"/api/v1/runs", apiKey)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp runResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("parse response: %v", err)), nil
		}
		if !resp.Success {
			msg := "run could not be started"
			if resp.Error != nil {
				msg = resp.Error.Message
			}
			return mcp.NewToolResultError(msg), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("run started: id=%s status=%s", resp.ID, resp.Status)), nil
	}
}

func handleRunStatus(apiURL, apiKey string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		client := &http.Client{Timeout: 30 * time.Second}
		body, err := apiDo(ctx, client, http.MethodGet, apiURL+"/api/v1/runs/"+id, apiKey)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp runStatusResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("parse response: %v", err)), nil
		}

		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("render response: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

// apiDo sends a request to the Syndicate API and returns the response body.
func apiDo(ctx context.Context, client *http.Client, method, url, apiKey string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
