// Package client talks to the tripmeet API over HTTP and follows its
// realtime feed over a WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
)

const apiPrefix = "/api/v1"

var ErrUnauthorized = errors.New("not signed in")

// APIError is a failed request the client has no domain error for.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field"`
}

// APIClient calls the HTTP API with a bearer token.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// RealtimeURL is the WebSocket endpoint of the API.
func (c *APIClient) RealtimeURL() string {
	u := c.baseURL + apiPrefix + "/realtime"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func (c *APIClient) Token() string {
	return c.token
}

func channelPath(key domain.ChannelKey) string {
	if key.IsGlobal() {
		return "/community"
	}
	return "/meetups/" + url.PathEscape(key.MeetupID)
}

func (c *APIClient) ListMessages(ctx context.Context, key domain.ChannelKey) ([]domain.Message, error) {
	var out struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, channelPath(key)+"/messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *APIClient) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	if err := c.do(ctx, http.MethodGet, "/messages/"+url.PathEscape(id), nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *APIClient) ListActivities(ctx context.Context, meetupID string) ([]domain.Activity, error) {
	var out struct {
		Activities []domain.Activity `json:"activities"`
	}
	if err := c.do(ctx, http.MethodGet, "/meetups/"+url.PathEscape(meetupID)+"/activities", nil, &out); err != nil {
		return nil, err
	}
	return out.Activities, nil
}

// SendMessage posts content. The stored row arrives on the realtime feed.
func (c *APIClient) SendMessage(ctx context.Context, key domain.ChannelKey, content, clientToken string) error {
	body := map[string]string{"content": content, "client_token": clientToken}
	return c.do(ctx, http.MethodPost, channelPath(key)+"/messages", body, nil)
}

func (c *APIClient) ListNotifications(ctx context.Context, page, pageSize int) ([]domain.Notification, int, error) {
	var out struct {
		Notifications []domain.Notification `json:"notifications"`
		TotalCount    int                   `json:"total_count"`
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	if err := c.do(ctx, http.MethodGet, "/notifications?"+q.Encode(), nil, &out); err != nil {
		return nil, 0, err
	}
	return out.Notifications, out.TotalCount, nil
}

func (c *APIClient) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Unread int `json:"unread"`
	}
	if err := c.do(ctx, http.MethodGet, "/notifications/unread-count", nil, &out); err != nil {
		return 0, err
	}
	return out.Unread, nil
}

func (c *APIClient) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

func (c *APIClient) MyProfile(ctx context.Context) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.do(ctx, http.MethodGet, "/me/profile", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logger.ExternalServiceCall("tripmeet-api", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.ExternalServiceResult("tripmeet-api", method, err, "path", path)
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		err := decodeError(resp)
		logger.ExternalServiceResult("tripmeet-api", method, err, "path", path, "status", resp.StatusCode)
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// decodeError turns an error response back into the domain error the server
// mapped it from.
func decodeError(resp *http.Response) error {
	var body errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body)

	switch resp.StatusCode {
	case http.StatusBadRequest:
		if body.Code == "validation" {
			return &domain.ValidationError{Field: body.Field, Message: body.Error}
		}
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		if body.Code == "forbidden" {
			return domain.ErrForbidden
		}
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		switch body.Code {
		case "meetup_full":
			return domain.ErrMeetupFull
		case "already_member":
			return domain.ErrAlreadyMember
		case "conflict":
			return domain.ErrInvalidTransition
		}
	}
	return &APIError{Status: resp.StatusCode, Code: body.Code, Message: body.Error}
}
