// Package relayapi talks to another relaybot HTTP server, used when the bot
// delegates completions to a separately running `relaybot serve`.
package relayapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"relaybot/app/config"
	"relaybot/app/service/reply"

	"github.com/samber/do"
	"github.com/samber/oops"
)

var _ reply.Completion = (*Client)(nil)

type ChatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
	RoomID  string `json:"room_id,omitempty"`
}

type ChatResponse struct {
	Status      string `json:"status"`
	UserMessage string `json:"user_message"`
	BotResponse string `json:"bot_response"`
	Mode        string `json:"mode"`
	Timestamp   string `json:"timestamp"`
}

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return New(cfg.Completion.RemoteURL, cfg.Completion.ClientTimeout), nil
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Complete posts the message to the remote /chat endpoint. The remote server
// keeps its own history, so req.History is not sent.
func (c *Client) Complete(ctx context.Context, req reply.CompletionRequest) (string, error) {
	body, err := json.Marshal(ChatRequest{
		Message: req.Message,
		UserID:  req.UserID,
		RoomID:  req.RoomID,
	})
	if err != nil {
		return "", oops.Wrapf(err, "failed to marshal chat request")
	}

	var response ChatResponse
	if err = c.do(ctx, http.MethodPost, "/chat", bytes.NewReader(body), &response); err != nil {
		return "", err
	}

	return response.BotResponse, nil
}

// Health returns nil when the remote server answers /health with 2xx.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	errBuilder := oops.In("relayapi").With("method", method, "path", path)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errBuilder.Wrapf(err, "failed to create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errBuilder.With("status", resp.StatusCode).Wrap(&StatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(data)),
		})
	}

	if out == nil {
		return nil
	}

	if err = json.Unmarshal(data, out); err != nil {
		return errBuilder.Wrapf(err, "failed to decode response")
	}

	return nil
}
