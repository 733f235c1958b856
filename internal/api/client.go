// Package api is the REST side of the chat backend boundary:
// conversation listings, message history, room creation and community
// membership. All requests carry the bearer credential injected at
// construction.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"chat-client/internal/models"
)

// Client talks to the chat backend. Safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a Client for baseURL (e.g. "http://localhost:8000").
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// ListConversations returns the viewer's direct-message rooms with
// last-message previews. A 204 response is an empty, non-nil list.
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var resp struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	status, err := c.do(ctx, http.MethodGet, "/chat/conversations", nil, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || resp.Conversations == nil {
		return []models.Conversation{}, nil
	}
	return resp.Conversations, nil
}

// RoomMessages returns the ordered persisted history for a room. This
// is the history-load side of room selection; the session switcher
// calls it concurrently with the websocket handshake.
func (c *Client) RoomMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/chat/rooms/"+roomID+"/messages", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// CreateRoom creates (or returns the existing) direct room with
// another user.
func (c *Client) CreateRoom(ctx context.Context, otherUserID string) (models.Conversation, error) {
	req := map[string]string{"other_user_id": otherUserID}
	var resp struct {
		Room models.Conversation `json:"room"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/chat/create-room", req, &resp); err != nil {
		return models.Conversation{}, err
	}
	return resp.Room, nil
}

// MarkRead clears the unread counter for a room.
func (c *Client) MarkRead(ctx context.Context, roomID string) error {
	_, err := c.do(ctx, http.MethodPost, "/chat/rooms/"+roomID+"/read", nil, nil)
	return err
}

// ListCommunities returns the communities visible to the viewer.
func (c *Client) ListCommunities(ctx context.Context) ([]models.Community, error) {
	var resp struct {
		Communities []models.Community `json:"communities"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/communities", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Communities, nil
}

// CommunityMessages returns the persisted history for a community room.
func (c *Client) CommunityMessages(ctx context.Context, communityID string) ([]models.Message, error) {
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/communities/"+communityID+"/messages", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// CommunityMembers returns the member roster used to resolve group
// message senders.
func (c *Client) CommunityMembers(ctx context.Context, communityID string) ([]models.User, error) {
	var resp struct {
		Members []models.User `json:"members"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/communities/"+communityID+"/members", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

// JoinCommunity requests membership. Membership must be confirmed
// before a community room connection is opened.
func (c *Client) JoinCommunity(ctx context.Context, communityID string) error {
	_, err := c.do(ctx, http.MethodPost, "/communities/"+communityID+"/join", nil, nil)
	return err
}

// LeaveCommunity drops membership.
func (c *Client) LeaveCommunity(ctx context.Context, communityID string) error {
	_, err := c.do(ctx, http.MethodPost, "/communities/"+communityID+"/leave", nil, nil)
	return err
}

// SearchUsers finds users to start a conversation with.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	var resp struct {
		Users []models.User `json:"users"`
	}
	path := "/users/search?q=" + url.QueryEscape(query)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	ctx, span := otel.Tracer("chat-client/api").Start(ctx, method+" "+path)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.path", path))

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return resp.StatusCode, fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	case resp.StatusCode >= 400:
		return resp.StatusCode, &FetchError{
			Status:  resp.StatusCode,
			Path:    path,
			Message: errorMessage(resp.Body),
		}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%s %s: decode: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func errorMessage(r io.Reader) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&body); err != nil {
		return ""
	}
	return body.Error
}
