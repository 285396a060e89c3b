// Package notify talks to the chat platform's HTTP gateway. It implements
// the application's Notifier and Messenger on top of a small JSON API:
// channel posts, and thread create/archive/delete/membership calls keyed by
// an opaque thread reference.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Options configures a Client beyond the required base URL.
type Options struct {
	// Token, when set, is sent as a bearer token on every call.
	Token string
	// AuditChannelRef receives routine audit posts.
	AuditChannelRef string
	// ImportantChannelRef receives posts that need manager attention.
	ImportantChannelRef string
	// Timeout bounds each outbound call on top of the caller's context.
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is an HTTP chat gateway client.
type Client struct {
	baseURL   string
	token     string
	audit     string
	important string
	timeout   time.Duration
	client    *http.Client
	logger    *slog.Logger
}

// NewClient builds a chat gateway client rooted at baseURL.
func NewClient(baseURL string, opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     opts.Token,
		audit:     opts.AuditChannelRef,
		important: opts.ImportantChannelRef,
		timeout:   timeout,
		client:    client,
		logger:    logger,
	}
}

type messageRequest struct {
	ChannelRef string `json:"channel_ref"`
	Text       string `json:"text"`
}

type threadRequest struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
}

type threadResponse struct {
	Ref string `json:"ref"`
}

type instructionsRequest struct {
	Instructions string `json:"instructions"`
}

// PostChannelMessage posts text into the channel or thread behind ref.
func (c *Client) PostChannelMessage(ctx context.Context, channelRef, text string) error {
	if channelRef == "" {
		return nil
	}
	return c.call(ctx, http.MethodPost, "/messages", messageRequest{ChannelRef: channelRef, Text: text}, nil)
}

// PostAuditLog posts text to the routine audit channel.
func (c *Client) PostAuditLog(ctx context.Context, text string) error {
	return c.PostChannelMessage(ctx, c.audit, text)
}

// PostImportantLog posts text to the high-visibility log channel.
func (c *Client) PostImportantLog(ctx context.Context, text string) error {
	return c.PostChannelMessage(ctx, c.important, text)
}

// CreateThread opens a private thread seeded with the instruction message
// and returns the gateway's reference for it.
func (c *Client) CreateThread(ctx context.Context, name, instructions string) (string, error) {
	var resp threadResponse
	if err := c.call(ctx, http.MethodPost, "/threads", threadRequest{Name: name, Instructions: instructions}, &resp); err != nil {
		return "", err
	}
	if resp.Ref == "" {
		return "", fmt.Errorf("notify: gateway returned an empty thread reference")
	}
	return resp.Ref, nil
}

// ArchiveThread archives and locks the thread.
func (c *Client) ArchiveThread(ctx context.Context, threadRef string) error {
	if threadRef == "" {
		return nil
	}
	return c.call(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadRef)+"/archive", nil, nil)
}

// DeleteThread removes the thread entirely.
func (c *Client) DeleteThread(ctx context.Context, threadRef string) error {
	if threadRef == "" {
		return nil
	}
	return c.call(ctx, http.MethodDelete, "/threads/"+url.PathEscape(threadRef), nil, nil)
}

// RevokeThreadAccess removes the user from the thread.
func (c *Client) RevokeThreadAccess(ctx context.Context, threadRef, externalID string) error {
	if threadRef == "" {
		return nil
	}
	return c.call(ctx, http.MethodDelete, "/threads/"+url.PathEscape(threadRef)+"/members/"+url.PathEscape(externalID), nil, nil)
}

// UpdateInstructions rewrites the thread's pinned instruction message.
func (c *Client) UpdateInstructions(ctx context.Context, threadRef, instructions string) error {
	if threadRef == "" {
		return nil
	}
	return c.call(ctx, http.MethodPatch, "/threads/"+url.PathEscape(threadRef), instructionsRequest{Instructions: instructions}, nil)
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("notify: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("notify: build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: %s %s: %w", method, path, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("notify: decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}
