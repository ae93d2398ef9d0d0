// Package llm implements the content-adaptation collaborator: an
// OpenAI-compatible client that turns raw content plus crawled context into
// platform-styled post fields.
package llm

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

// Client talks to an OpenAI-compatible chat completion endpoint using
// net/http directly — no SDK needed.
type Client struct {
	httpClient *http.Client
	cfg        config.LLMConfig
}

// NewClient creates an adaptation client. Pass nil to use a default
// http.Client.
func NewClient(cfg config.LLMConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient, cfg: cfg}
}

// Rules describes how one platform wants its copy shaped.
type Rules struct {
	Platform     string
	MaxLength    int
	HashtagCount int

	// Tone is a short voice description embedded in the prompt, e.g.
	// "conversational and human, like texting a smart friend".
	Tone string

	WantsHeadline bool
	WantsEmojis   bool
	WantsThread   bool
	ThreadMax     int
}

// AdaptRequest carries everything the adaptation needs.
type AdaptRequest struct {
	// Content is the original collected text.
	Content string

	// Context is the crawled context digest (Markdown).
	Context string

	Rules Rules
}

// AdaptResult is the structured output of one adaptation call.
type AdaptResult struct {
	Text     string   `json:"text"`
	Headline string   `json:"headline,omitempty"`
	Hashtags []string `json:"hashtags,omitempty"`
	Emojis   string   `json:"emojis,omitempty"`
	Thread   []string `json:"thread,omitempty"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Adapt asks the model for platform-shaped post fields. It is a pure
// transformation from the caller's viewpoint: no externally visible action
// happens here.
func (c *Client) Adapt(ctx context.Context, req AdaptRequest) (*AdaptResult, error) {
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: buildSystemPrompt(req.Rules)},
			{Role: "user", Content: buildUserPrompt(req)},
		},
		Temperature:    0.7,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, models.NewWorkflowError(models.ErrCodeLLMFailure, "adaptation request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewWorkflowError(models.ErrCodeLLMFailure, "failed to read adaptation response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyLLMError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, models.NewWorkflowError(models.ErrCodeLLMFailure, "failed to parse adaptation response", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, models.NewWorkflowError(models.ErrCodeLLMFailure, "adaptation returned no choices", nil)
	}

	var result AdaptResult
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &result); err != nil {
		return nil, models.NewWorkflowError(models.ErrCodeLLMFailure, "adaptation returned invalid JSON", err)
	}
	return &result, nil
}

func buildSystemPrompt(r Rules) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert social media content strategist writing for %s.\n", r.Platform)
	b.WriteString("Transform the provided content into a post for that platform and return ONLY a JSON object with these fields:\n")
	fmt.Fprintf(&b, "- \"text\": the post body, at most %d characters, tone: %s\n", r.MaxLength, r.Tone)
	fmt.Fprintf(&b, "- \"hashtags\": up to %d relevant hashtags\n", r.HashtagCount)
	if r.WantsHeadline {
		b.WriteString("- \"headline\": a one-line hook placed before the body\n")
	}
	if r.WantsEmojis {
		b.WriteString("- \"emojis\": a short emoji string matching the mood\n")
	}
	if r.WantsThread {
		fmt.Fprintf(&b, "- \"thread\": up to %d short follow-up segments, or an empty list\n", r.ThreadMax)
	}
	b.WriteString("\nRules:\n")
	b.WriteString("- The output is posted directly without editing: no meta-commentary, no markdown fences.\n")
	b.WriteString("- Start with an attention-grabbing hook, include specifics from the source, end memorably.\n")
	b.WriteString("- If a field does not apply, use an empty value of the right type.\n")
	return b.String()
}

func buildUserPrompt(req AdaptRequest) string {
	var b strings.Builder
	b.WriteString("Source content:\n---\n")
	b.WriteString(req.Content)
	b.WriteString("\n---\n")
	if req.Context != "" {
		b.WriteString("\nBackground gathered from the linked pages:\n---\n")
		b.WriteString(req.Context)
		b.WriteString("\n---\n")
	}
	return b.String()
}

// classifyLLMError maps HTTP status codes to workflow error codes.
func classifyLLMError(statusCode int, body []byte) *models.WorkflowError {
	var errResp chatErrorResponse
	msg := "adaptation API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewWorkflowError(models.ErrCodeLLMAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewWorkflowError(models.ErrCodeLLMRateLimited, msg, nil)
	default:
		return models.NewWorkflowError(models.ErrCodeLLMFailure, fmt.Sprintf("adaptation API returned %d: %s", statusCode, msg), nil)
	}
}
