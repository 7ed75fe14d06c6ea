// Package rest implements the chat backend HTTP client:
// - GET /chats — conversation summaries
// - GET /chats/{id} — ordered message history
// - POST /chats/{id}/messages — send, returns the canonical message
// - PUT /chats/{id}/read — mark conversation read server-side
// - DELETE /chats/{id} — per-user soft delete
//
// Transport-level failures (no response, connection reset) are
// reported to the connectivity monitor; HTTP error statuses become
// *APIError and leave connectivity untouched.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Imrannnnn/Skillconnect-sub001/internal/chat"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/connectivity"
)

// maxResponseSize limits response body reads to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// APIError represents an error response from the chat backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat API error (status %d): %s", e.StatusCode, e.Body)
}

// IsNetworkError reports whether err is a transport-level failure
// rather than an application error carried in an HTTP response.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	return !errors.As(err, &apiErr)
}

// Client is the chat backend HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	monitor    *connectivity.Monitor
}

// NewClient creates a client for the given API root. monitor may be
// nil in tests.
func NewClient(baseURL string, timeout time.Duration, monitor *connectivity.Monitor) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		monitor:    monitor,
	}
}

// ListConversations fetches the caller's conversation summaries.
func (c *Client) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	var resp struct {
		Conversations []chat.Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/chats", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// History fetches the ordered message history for a conversation.
func (c *Client) History(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var resp struct {
		Messages []chat.Message `json:"messages"`
	}
	path := "/chats/" + url.PathEscape(conversationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendRequest is the body for POST /chats/{id}/messages. LocalRef
// carries the client-generated id so the confirmation (and any push
// echo) can be correlated back to the optimistic entry.
type SendRequest struct {
	LocalRef    string            `json:"local_ref"`
	Text        string            `json:"text"`
	Attachments []chat.Attachment `json:"attachments,omitempty"`
}

// Send posts a message and returns its canonical form.
func (c *Client) Send(ctx context.Context, conversationID string, req *SendRequest) (*chat.Message, error) {
	var resp struct {
		Message chat.Message `json:"message"`
	}
	path := "/chats/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// MarkRead marks a conversation read server-side.
func (c *Client) MarkRead(ctx context.Context, conversationID string) error {
	path := "/chats/" + url.PathEscape(conversationID) + "/read"
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

// Delete soft-deletes a conversation for the caller. The other
// participant's copy is untouched.
func (c *Client) Delete(ctx context.Context, conversationID string) error {
	path := "/chats/" + url.PathEscape(conversationID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do sends a JSON request and decodes the JSON response into respBody
// (when non-nil), classifying the outcome for the connectivity
// monitor.
func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A caller-cancelled request says nothing about the network.
		if c.monitor != nil && !errors.Is(err, context.Canceled) {
			c.monitor.ReportFailure()
		}
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Any HTTP response means the network path is up.
	if c.monitor != nil {
		c.monitor.ReportRecovery()
	}

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if int64(len(respBytes)) > maxResponseSize {
		return fmt.Errorf("response exceeds maximum size of %d bytes", maxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(respBytes),
		}
	}

	if respBody != nil {
		if err := json.Unmarshal(respBytes, respBody); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
