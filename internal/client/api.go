// Package client talks to the kanban API and keeps an optimistic local copy
// of one board.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/domain/ordering"
	"github.com/taskmaster/kanban/internal/infrastructure/logger"
	"github.com/taskmaster/kanban/internal/ports"
)

// Config configures the remote API client
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Attempts is the total number of tries for login and identity lookups.
	Attempts     int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// DefaultConfig returns the client defaults for baseURL, e.g.
// http://localhost:8080/api/v1
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Timeout:      15 * time.Second,
		Attempts:     4,
		RetryWait:    800 * time.Millisecond,
		RetryMaxWait: 6400 * time.Millisecond,
	}
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

type errorBody struct {
	Message string `json:"message"`
}

// Session is the result of register, login and refresh
type Session struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
}

// CardPosition is one card of a card reorder batch
type CardPosition struct {
	CardID   uuid.UUID
	ListID   uuid.UUID
	Position int64
}

// Client is a JSON client for /api/v1. Only login and identity lookups are
// retried; every other call is sent exactly once.
type Client struct {
	plain    *resty.Client
	retrying *resty.Client

	mu    sync.RWMutex
	token string
}

// New creates a client
func New(cfg Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}

	build := func() *resty.Client {
		rc := resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json").
			SetLogger(log.WithComponent("api-client"))
		rc.JSONMarshal = json.Marshal
		rc.JSONUnmarshal = json.Unmarshal
		return rc
	}

	retrying := build().
		SetRetryCount(cfg.Attempts - 1).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// transport failures and 5xx only
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		})

	return &Client{
		plain:    build(),
		retrying: retrying,
	}
}

// Token returns the bearer token, empty when signed out
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) request(ctx context.Context, retry bool) *resty.Request {
	rc := c.plain
	if retry {
		rc = c.retrying
	}

	req := rc.R().SetContext(ctx).SetError(&errorBody{})
	if token := c.Token(); token != "" {
		req.SetAuthToken(token)
	}
	return req
}

// check turns a resty result into an error. A 401 signs the client out.
func (c *Client) check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsError() {
		return nil
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		c.SetToken("")
	}

	msg := http.StatusText(resp.StatusCode())
	if body, ok := resp.Error().(*errorBody); ok && body.Message != "" {
		msg = body.Message
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}

// Auth

// Register creates an account and signs the client in
func (c *Client) Register(ctx context.Context, email, password, name string) (*Session, error) {
	var session Session
	resp, err := c.request(ctx, false).
		SetBody(ports.RegisterRequest{Email: email, Password: password, Name: name}).
		SetResult(&session).
		Post("/auth/register")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}

	c.SetToken(session.Token)
	return &session, nil
}

// Login signs in and keeps the returned token for later calls
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	resp, err := c.request(ctx, true).
		SetBody(ports.LoginRequest{Email: email, Password: password}).
		SetResult(&session).
		Post("/auth/login")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}

	c.SetToken(session.Token)
	return &session, nil
}

// Me returns the signed-in identity, or nil when there is no session
func (c *Client) Me(ctx context.Context) (*entities.Identity, error) {
	var body struct {
		User *entities.Identity `json:"user"`
	}
	resp, err := c.request(ctx, true).
		SetQueryParam("t", fmt.Sprintf("%d", time.Now().UnixMilli())).
		SetResult(&body).
		Get("/auth/me")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return body.User, nil
}

// Logout ends the session. The local token is dropped even when the call fails.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.request(ctx, false).Post("/auth/logout")
	c.SetToken("")
	return c.check(resp, err)
}

// Boards

// Boards returns the caller's boards, most recently updated first
func (c *Client) Boards(ctx context.Context) ([]entities.Board, error) {
	var body struct {
		Boards []entities.Board `json:"boards"`
	}
	resp, err := c.request(ctx, false).SetResult(&body).Get("/boards")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return body.Boards, nil
}

func (c *Client) CreateBoard(ctx context.Context, title string) (*entities.Board, error) {
	return c.boardCall(c.request(ctx, false).SetBody(ports.CreateBoardRequest{Title: title}), http.MethodPost, "/boards")
}

func (c *Client) Board(ctx context.Context, id uuid.UUID) (*entities.Board, error) {
	return c.boardCall(c.request(ctx, false).SetPathParam("id", id.String()), http.MethodGet, "/boards/{id}")
}

func (c *Client) RenameBoard(ctx context.Context, id uuid.UUID, title string) (*entities.Board, error) {
	req := c.request(ctx, false).
		SetPathParam("id", id.String()).
		SetBody(ports.RenameBoardRequest{Title: title})
	return c.boardCall(req, http.MethodPatch, "/boards/{id}")
}

func (c *Client) DeleteBoard(ctx context.Context, id uuid.UUID) error {
	resp, err := c.request(ctx, false).SetPathParam("id", id.String()).Delete("/boards/{id}")
	return c.check(resp, err)
}

func (c *Client) boardCall(req *resty.Request, method, path string) (*entities.Board, error) {
	var body struct {
		Board *entities.Board `json:"board"`
	}
	resp, err := req.SetResult(&body).Execute(method, path)
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return body.Board, nil
}

// Lists

// Lists returns the lists of a board ordered by position
func (c *Client) Lists(ctx context.Context, boardID uuid.UUID) ([]entities.List, error) {
	var body struct {
		Lists []entities.List `json:"lists"`
	}
	resp, err := c.request(ctx, false).
		SetPathParam("boardId", boardID.String()).
		SetResult(&body).
		Get("/lists/board/{boardId}")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return body.Lists, nil
}

func (c *Client) CreateList(ctx context.Context, boardID uuid.UUID, name string, position int64) (*entities.List, error) {
	pos := ordering.Position(position)
	req := c.request(ctx, false).SetBody(ports.CreateListRequest{
		BoardID:  boardID.String(),
		Name:     name,
		Position: &pos,
	})
	return c.listCall(req, http.MethodPost, "/lists")
}

func (c *Client) RenameList(ctx context.Context, id uuid.UUID, name string) (*entities.List, error) {
	req := c.request(ctx, false).
		SetPathParam("id", id.String()).
		SetBody(ports.RenameListRequest{Name: name})
	return c.listCall(req, http.MethodPatch, "/lists/{id}")
}

func (c *Client) DeleteList(ctx context.Context, id uuid.UUID) error {
	resp, err := c.request(ctx, false).SetPathParam("id", id.String()).Delete("/lists/{id}")
	return c.check(resp, err)
}

func (c *Client) listCall(req *resty.Request, method, path string) (*entities.List, error) {
	var body struct {
		List *entities.List `json:"list"`
	}
	resp, err := req.SetResult(&body).Execute(method, path)
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return body.List, nil
}

// Cards

// Cards returns every card of a board ordered by position
func (c *Client) Cards(ctx context.Context, boardID uuid.UUID) ([]entities.Card, error) {
	var body struct {
		Cards []entities.Card `json:"cards"`
	}
	resp, err := c.request(ctx, false).
		SetPathParam("boardId", boardID.String()).
		SetResult(&body).
		Get("/cards/board/{boardId}")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return body.Cards, nil
}

func (c *Client) CreateCard(ctx context.Context, boardID, listID uuid.UUID, title string, position int64) (*entities.Card, error) {
	pos := ordering.Position(position)
	req := c.request(ctx, false).SetBody(ports.CreateCardRequest{
		BoardID:  boardID.String(),
		ListID:   listID.String(),
		Title:    title,
		Position: &pos,
	})
	return c.cardCall(req, http.MethodPost, "/cards")
}

func (c *Client) RenameCard(ctx context.Context, id uuid.UUID, title string) (*entities.Card, error) {
	req := c.request(ctx, false).
		SetPathParam("id", id.String()).
		SetBody(ports.RenameCardRequest{Title: title})
	return c.cardCall(req, http.MethodPatch, "/cards/{id}")
}

func (c *Client) DeleteCard(ctx context.Context, id uuid.UUID) error {
	resp, err := c.request(ctx, false).SetPathParam("id", id.String()).Delete("/cards/{id}")
	return c.check(resp, err)
}

func (c *Client) cardCall(req *resty.Request, method, path string) (*entities.Card, error) {
	var body struct {
		Card *entities.Card `json:"card"`
	}
	resp, err := req.SetResult(&body).Execute(method, path)
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return body.Card, nil
}

// Reorder. These calls are never retried: a replayed batch could overwrite
// a newer order.

// ReorderLists sends the full list order of a board
func (c *Client) ReorderLists(ctx context.Context, boardID uuid.UUID, assignments []ordering.Assignment) error {
	items := make([]ports.ListOrderItem, len(assignments))
	for i, a := range assignments {
		pos := ordering.Position(a.Position)
		items[i] = ports.ListOrderItem{ListID: a.ID, Position: &pos}
	}

	resp, err := c.request(ctx, false).
		SetBody(ports.ReorderListsRequest{BoardID: boardID.String(), Items: items}).
		Patch("/lists/reorder")
	return c.check(resp, err)
}

// ReorderCards sends the placement of every card of the affected lists
func (c *Client) ReorderCards(ctx context.Context, boardID uuid.UUID, cards []CardPosition) error {
	items := make([]ports.CardOrderItem, len(cards))
	for i, card := range cards {
		pos := ordering.Position(card.Position)
		items[i] = ports.CardOrderItem{CardID: card.CardID.String(), ListID: card.ListID.String(), Position: &pos}
	}

	resp, err := c.request(ctx, false).
		SetBody(ports.ReorderCardsRequest{BoardID: boardID.String(), Items: items}).
		Patch("/cards/reorder")
	return c.check(resp, err)
}
