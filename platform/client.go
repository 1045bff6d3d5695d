// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/parley/lib/netutil"
	"github.com/bureau-foundation/parley/lib/secret"
	"github.com/bureau-foundation/parley/lib/version"
	"github.com/bureau-foundation/parley/protocol"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the platform root, e.g. "https://agents.example.com".
	BaseURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Token is the bearer credential. Nil sends unauthenticated requests.
	Token *secret.Buffer
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client talks to the platform's conversation endpoints. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      *secret.Buffer
	logger     *slog.Logger
}

// SearchResult is one full-text search hit.
type SearchResult struct {
	ConversationID string        `json:"conversation_id"`
	Title          string        `json:"title"`
	Role           protocol.Role `json:"role"`
	Snippet        string        `json:"snippet"`
}

type conversationsResponse struct {
	Conversations []protocol.Conversation `json:"conversations"`
}

type messagesResponse struct {
	Messages []protocol.Message `json:"messages"`
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

// NewClient creates a platform client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("platform: BaseURL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("platform: invalid BaseURL %q: %w", config.BaseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		token:      config.Token,
		logger:     logger,
	}, nil
}

// ListConversations returns the user's conversations as ordered by the
// server.
func (c *Client) ListConversations(ctx context.Context) ([]protocol.Conversation, error) {
	var response conversationsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/conversations", nil, &response); err != nil {
		return nil, err
	}
	return response.Conversations, nil
}

// ConversationMessages returns the full message history of a
// conversation.
func (c *Client) ConversationMessages(ctx context.Context, conversationID string) ([]protocol.Message, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("platform: conversation id is required")
	}
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/messages"
	var response messagesResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, err
	}
	return response.Messages, nil
}

// DeleteConversation deletes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("platform: conversation id is required")
	}
	return c.doRequest(ctx, http.MethodDelete, "/api/conversations/"+url.PathEscape(conversationID), nil, nil)
}

// Search runs a full-text search over all conversations. A blank query
// returns no results without a request.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	var response searchResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/search", url.Values{"q": {query}}, &response); err != nil {
		return nil, err
	}
	return response.Results, nil
}

// CloseIdleConnections closes idle HTTP connections in the underlying
// transport's pool.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// doRequest performs one request and decodes a 2xx JSON body into
// result when result is non-nil.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, result any) error {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
	if err != nil {
		return fmt.Errorf("platform: failed to create request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", version.UserAgent())
	if c.token != nil {
		request.Header.Set("Authorization", c.token.BearerHeader())
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("platform: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return fmt.Errorf("platform: failed to read response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: response.StatusCode}
		if jsonErr := json.Unmarshal(responseBody, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(responseBody))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(response.StatusCode)
			}
		}
		c.logger.Debug("platform request failed",
			"method", method, "path", path, "status", response.StatusCode, "code", apiErr.Code)
		return apiErr
	}

	if result == nil || len(responseBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(responseBody, result); err != nil {
		return fmt.Errorf("platform: decoding %s %s response: %w", method, path, err)
	}
	return nil
}
