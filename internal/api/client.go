// Package api is the REST client for the chat server.
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
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"chat-client/internal/apperr"
	"chat-client/internal/models"
	"chat-client/internal/observability"
)

// MinSearchLength is the shortest user search query sent to the server.
const MinSearchLength = 3

// Client performs authenticated calls against the chat REST API.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// New builds a Client. A zero timeout keeps the transport default.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges credentials for the user profile and its token.
func (c *Client) Login(ctx context.Context, email, password string) (models.User, error) {
	var user models.User
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/api/user/login", "/api/user/login", body, &user)
	return user, err
}

// Register creates an account. The server answers with the new profile and
// its token, like Login.
func (c *Client) Register(ctx context.Context, name, email, password, photo string) (models.User, error) {
	var user models.User
	body := struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Photo    string `json:"photo,omitempty"`
	}{Name: name, Email: email, Password: password, Photo: photo}
	err := c.do(ctx, http.MethodPost, "/api/user", "/api/user", body, &user)
	return user, err
}

// ListChats returns the user's conversations ordered by latest activity.
func (c *Client) ListChats(ctx context.Context) ([]models.Conversation, error) {
	var chats []models.Conversation
	err := c.do(ctx, http.MethodGet, "/api/chat", "/api/chat", nil, &chats)
	return chats, err
}

// AccessChat returns the direct chat with userID, creating it if needed.
func (c *Client) AccessChat(ctx context.Context, userID string) (models.Conversation, error) {
	var chat models.Conversation
	err := c.do(ctx, http.MethodPost, "/api/chat", "/api/chat", map[string]string{"userId": userID}, &chat)
	return chat, err
}

// CreateGroup creates a group chat with the given members.
func (c *Client) CreateGroup(ctx context.Context, name string, userIDs []string) (models.Conversation, error) {
	var chat models.Conversation
	body := struct {
		Name  string   `json:"name"`
		Users []string `json:"users"`
	}{Name: name, Users: userIDs}
	err := c.do(ctx, http.MethodPost, "/api/chat/group/create", "/api/chat/group/create", body, &chat)
	return chat, err
}

// RenameGroup renames a group chat.
func (c *Client) RenameGroup(ctx context.Context, chatID, name string) (models.Conversation, error) {
	var chat models.Conversation
	body := map[string]string{"chatId": chatID, "chatName": name}
	err := c.do(ctx, http.MethodPut, "/api/chat/group/rename", "/api/chat/group/rename", body, &chat)
	return chat, err
}

// AddToGroup adds userID to a group chat.
func (c *Client) AddToGroup(ctx context.Context, chatID, userID string) (models.Conversation, error) {
	var chat models.Conversation
	body := map[string]string{"chatId": chatID, "userId": userID}
	err := c.do(ctx, http.MethodPut, "/api/chat/group/addUser", "/api/chat/group/addUser", body, &chat)
	return chat, err
}

// RemoveFromGroup removes userID from a group chat.
func (c *Client) RemoveFromGroup(ctx context.Context, chatID, userID string) (models.Conversation, error) {
	var chat models.Conversation
	body := map[string]string{"chatId": chatID, "userId": userID}
	err := c.do(ctx, http.MethodPut, "/api/chat/group/removeUser", "/api/chat/group/removeUser", body, &chat)
	return chat, err
}

// SearchUsers finds users by name or email. Queries shorter than
// MinSearchLength return an empty result without a request.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchLength {
		return []models.User{}, nil
	}
	var users []models.User
	path := "/api/user?search=" + url.QueryEscape(query)
	err := c.do(ctx, http.MethodGet, path, "/api/user", nil, &users)
	return users, err
}

// ListMessages returns a conversation's history, oldest first.
func (c *Client) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	var msgs []models.Message
	path := "/api/message/" + url.PathEscape(chatID)
	err := c.do(ctx, http.MethodGet, path, "/api/message/:chatId", nil, &msgs)
	return msgs, err
}

// SendMessage posts a message and returns the server's copy of it.
func (c *Client) SendMessage(ctx context.Context, chatID, content string) (models.Message, error) {
	var msg models.Message
	body := map[string]string{"content": content, "chatId": chatID}
	err := c.do(ctx, http.MethodPost, "/api/message", "/api/message", body, &msg)
	return msg, err
}

func (c *Client) do(ctx context.Context, method, path, route string, body, out any) error {
	op := method + " " + route
	ctx, span := observability.Tracer().Start(ctx, "api."+strings.ToLower(method))
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.route", route))

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.ObserveAPICall(method, route, 0, started)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return apperr.Network(op, 0, "", err)
	}
	defer resp.Body.Close()
	observability.ObserveAPICall(method, route, resp.StatusCode, started)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, resp.Status)
		return apperr.Network(op, resp.StatusCode, errorMessage(resp.Body), nil)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		return apperr.Network(op, resp.StatusCode, "", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// errorMessage extracts {"message": ...} from an error body, falling back to
// the raw text.
func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
