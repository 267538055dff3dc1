// Package provider implements the chat-completion transport for
// OpenAI-compatible inference APIs (Groq, OpenAI, local gateways). The
// classifier needs a single JSON object back, so those requests are issued
// non-streaming with response_format json_object; fix generation asks for
// free-form text instead.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds one classifier call end to end.
const DefaultTimeout = 60 * time.Second

// ErrEmptyCompletion marks a 200 response whose completion content is empty.
// The transport succeeded; the model simply returned nothing usable.
var ErrEmptyCompletion = errors.New("completion response was empty")

// Client talks to one OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewClient creates a Client for the given endpoint and model. A zero
// timeout falls back to DefaultTimeout.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiRequest struct {
	Model          string          `json:"model"`
	Messages       []apiMessage    `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one system+user exchange constrained to a JSON object
// response and returns the assistant content.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, system, user, &responseFormat{Type: "json_object"})
}

// CompleteText sends one system+user exchange with no response format
// constraint. Used where the output is a file body, not JSON.
func (c *Client) CompleteText(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, system, user, nil)
}

// complete issues the request. A non-200 status, an unreadable body, or an
// empty completion are all errors; the caller decides how to classify them.
func (c *Client) complete(ctx context.Context, system, user string, format *responseFormat) (string, error) {
	body, err := json.Marshal(apiRequest{
		Model: c.model,
		Messages: []apiMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("building request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}

	return parsed.Choices[0].Message.Content, nil
}
