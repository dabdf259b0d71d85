// Package webex is the chat backend adapter for the Webex REST API.
package webex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"relaybot/app/config"
	"relaybot/app/model"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

const (
	requestTimeout = 10 * time.Second
	maxRooms       = 1000
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status     int
	Message    string
	TrackingID string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("webex api error %d: %s", e.Status, e.Message)
}

func (e *APIError) RetryDelay() time.Duration {
	return e.RetryAfter
}

// Unwrap classifies auth and not-found failures as permanent.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return model.ErrPermanent
	default:
		return nil
	}
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	if err := cfg.ValidateWebex(); err != nil {
		return nil, err
	}

	return New(cfg.Webex.BaseURL, cfg.Webex.AccessToken, cfg.Webex.RequestsPerSecond), nil
}

func New(baseURL, token string, requestsPerSecond float64) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ListRooms(ctx context.Context) ([]model.Room, error) {
	var resp listResponse[room]
	if err := c.get(ctx, "/rooms", url.Values{"max": {strconv.Itoa(maxRooms)}}, &resp); err != nil {
		return nil, err
	}

	return pie.Map(resp.Items, func(r room) model.Room {
		return model.Room{
			ID:           r.ID,
			Title:        r.Title,
			Type:         r.Type,
			LastActivity: r.LastActivity,
		}
	}), nil
}

func (c *Client) ListMemberships(ctx context.Context, roomID string) ([]model.Membership, error) {
	var resp listResponse[membership]
	if err := c.get(ctx, "/memberships", url.Values{"roomId": {roomID}}, &resp); err != nil {
		return nil, err
	}

	return pie.Map(resp.Items, func(m membership) model.Membership {
		return model.Membership{
			ID:          m.ID,
			RoomID:      m.RoomID,
			PersonID:    m.PersonID,
			PersonEmail: m.PersonEmail,
			DisplayName: m.PersonDisplayName,
		}
	}), nil
}

func (c *Client) GetPerson(ctx context.Context, personID string) (*model.Person, error) {
	var resp person
	if err := c.get(ctx, "/people/"+url.PathEscape(personID), nil, &resp); err != nil {
		return nil, err
	}

	return toPerson(resp), nil
}

func (c *Client) Me(ctx context.Context) (*model.Person, error) {
	var resp person
	if err := c.get(ctx, "/people/me", nil, &resp); err != nil {
		return nil, err
	}

	return toPerson(resp), nil
}

// ListMessages returns up to limit latest messages of the room in chronological order.
func (c *Client) ListMessages(ctx context.Context, roomID string, limit int) ([]model.Message, error) {
	var resp listResponse[message]
	query := url.Values{
		"roomId": {roomID},
		"max":    {strconv.Itoa(limit)},
	}
	if err := c.get(ctx, "/messages", query, &resp); err != nil {
		return nil, err
	}

	result := pie.Map(resp.Items, func(m message) model.Message {
		return model.Message{
			ID:           m.ID,
			RoomID:       m.RoomID,
			SenderID:     m.PersonEmail,
			Text:         m.Text,
			MentionedIDs: m.MentionedPeople,
			Created:      m.Created,
		}
	})

	// The API lists newest first.
	slices.Reverse(result)

	return result, nil
}

func (c *Client) SendMessage(ctx context.Context, roomID, text string) error {
	body, err := json.Marshal(createMessageRequest{RoomID: roomID, Text: text})
	if err != nil {
		return oops.Wrapf(err, "failed to marshal message")
	}

	if err = c.do(ctx, http.MethodPost, "/messages", nil, bytes.NewReader(body), nil); err != nil {
		return err
	}

	slog.Debug("Sent message", "room_id", roomID, "length", len(text))

	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, out any) error {
	errBuilder := oops.In("webex").With("method", method, "path", path)

	if err := c.limiter.Wait(ctx); err != nil {
		return errBuilder.Wrapf(err, "rate limiter")
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return errBuilder.Wrapf(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errBuilder.Wrapf(err, "request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errBuilder.Wrapf(err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errBuilder.With("status", resp.StatusCode).Wrap(newAPIError(resp, data))
	}

	if out == nil {
		return nil
	}

	if err = json.Unmarshal(data, out); err != nil {
		return errBuilder.Wrapf(err, "failed to decode response")
	}

	return nil
}

func newAPIError(resp *http.Response, data []byte) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	var body errorResponse
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		apiErr.Message = body.Message
		apiErr.TrackingID = body.TrackingID
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}

	if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		apiErr.RetryAfter = time.Duration(seconds) * time.Second
	}

	return apiErr
}

func toPerson(p person) *model.Person {
	return &model.Person{
		ID:          p.ID,
		Emails:      p.Emails,
		DisplayName: p.DisplayName,
	}
}
