// Package llmclient implements a minimal OpenAI-compatible chat
// completion client: request/response wire types, a model fallback
// chain, and the response repair and token-estimation helpers the
// clusterer and agent runtime share. The wire contract is small
// enough that net/http and encoding/json cover it without an SDK.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"codedoc/internal/errors"
	"codedoc/internal/logging"
)

// Message is a single chat-completion turn.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a single function-call the model requested.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function ToolCallFunc `json:"function"`
}

// ToolCallFunc carries the tool name and its (possibly malformed) JSON arguments.
type ToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec describes a callable tool in the request's tools list.
type ToolSpec struct {
	Type     string       `json:"type"`
	Function ToolFuncSpec `json:"function"`
}

// ToolFuncSpec is the JSON-schema function declaration of a ToolSpec.
type ToolFuncSpec struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model       string     `json:"model"`
	Messages    []Message  `json:"messages"`
	Temperature float64    `json:"temperature"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
	Tools       []ToolSpec `json:"tools,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Client is a single OpenAI-compatible endpoint. Logger, when set,
// receives a debug entry for every tool-call argument repair.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// NewClient builds a Client with the given timeout applied per request.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Complete sends a single chat-completion request against model and
// returns the assistant's reply message, with any stringified-array
// tool-call arguments repaired in place.
func (c *Client) Complete(ctx context.Context, model string, messages []Message, tools []ToolSpec, maxTokens int) (Message, error) {
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.0,
		MaxTokens:   maxTokens,
		Tools:       tools,
	})
	if err != nil {
		return Message{}, errors.Wrap(errors.ModelFatal, "failed to encode chat request", err)
	}

	url := c.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Message{}, errors.Wrap(errors.ModelFatal, "failed to build chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Message{}, errors.Wrap(errors.ModelUnavailable, "transport error calling model", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Message{}, errors.Wrap(errors.ModelUnavailable, "failed to read model response", err)
	}

	if resp.StatusCode != http.StatusOK {
		code := errors.ModelFatal
		if isRetryableStatus(resp.StatusCode) {
			code = errors.ModelUnavailable
		}
		return Message{}, errors.New(code, fmt.Sprintf("model returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Message{}, errors.Wrap(errors.ModelFatal, "failed to decode model response", err)
	}
	if len(parsed.Choices) == 0 {
		return Message{}, errors.New(errors.ModelUnavailable, "model returned no choices")
	}

	msg := parsed.Choices[0].Message
	for i := range msg.ToolCalls {
		original := msg.ToolCalls[i].Function.Arguments
		repaired := FixStringifiedJSONArrays(original)
		if repaired != original {
			msg.ToolCalls[i].Function.Arguments = repaired
			if c.Logger != nil {
				c.Logger.Debug("repaired stringified JSON array in tool-call arguments", map[string]any{
					"tool": msg.ToolCalls[i].Function.Name,
				})
			}
		}
	}
	return msg, nil
}

// isRetryableStatus classifies HTTP 429 and 5xx as retryable; every
// other 4xx is fatal for the requested model.
func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
