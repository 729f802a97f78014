package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/kanban/internal/adapters/cache"
	"github.com/taskmaster/kanban/internal/infrastructure/config"
	"github.com/taskmaster/kanban/internal/infrastructure/database"
	"github.com/taskmaster/kanban/internal/infrastructure/logger"
	"github.com/taskmaster/kanban/internal/testutil"
)

type apiClient struct {
	t       *testing.T
	handler http.Handler
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	cfg := &config.Config{
		App:    config.AppConfig{Name: "kanban", Version: "test", Environment: "test"},
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0, BodyLimit: "1M"},
		JWT: config.JWTConfig{
			Secret:           "test-secret",
			ExpiresIn:        time.Hour,
			RefreshExpiresIn: 24 * time.Hour,
			Issuer:           "kanban-test",
		},
		Security: config.SecurityConfig{CORSAllowedOrigins: "http://localhost:5173"},
		Metrics:  config.MetricsConfig{Enabled: true},
		Reorder:  config.ReorderConfig{MaxConcurrency: 4, MaxItems: 100},
	}

	db := &database.DB{DB: testutil.SetupTestDB(t)}
	srv, err := New(cfg, db, cache.NewNopBoardCache(), logger.NewNop())
	require.NoError(t, err)

	return &apiClient{t: t, handler: srv.Handler()}
}

func (a *apiClient) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	a.t.Helper()
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, testutil.MakeRequest(method, path, body, headers))
	return rec
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (a *apiClient) register(email string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    email,
		"password": "Password@123",
		"name":     "Demo User",
	}, nil)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	decode(a.t, rec, &resp)
	require.NotEmpty(a.t, resp.Token)
	return resp.Token
}

type idResponse struct {
	ID string `json:"id"`
}

func (a *apiClient) createBoard(token, title string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/v1/boards", map[string]string{"title": title}, bearer(token))
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Board idResponse `json:"board"`
	}
	decode(a.t, rec, &resp)
	return resp.Board.ID
}

func (a *apiClient) createList(token, boardID, name string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/v1/lists", map[string]string{"boardId": boardID, "name": name}, bearer(token))
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		List idResponse `json:"list"`
	}
	decode(a.t, rec, &resp)
	return resp.List.ID
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_MeWithoutSession(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/api/v1/auth/me", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":null}`, rec.Body.String())
}

func TestAuth_LoginSetsCookie(t *testing.T) {
	api := newTestAPI(t)
	api.register("demo1@mail.com")

	rec := api.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "demo1@mail.com",
		"password": "Password@123",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var session struct {
		Email string `json:"email"`
		Token string `json:"token"`
	}
	decode(t, rec, &session)
	assert.Equal(t, "demo1@mail.com", session.Email)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// the cookie wins over a broken bearer header
	rec = api.do(http.MethodGet, "/api/v1/auth/me", nil, map[string]string{
		"Cookie":        SessionCookie + "=" + session.Token,
		"Authorization": "Bearer garbage",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	decode(t, rec, &me)
	assert.Equal(t, "demo1@mail.com", me.User.Email)

	rec = api.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "demo1@mail.com",
		"password": "nope-nope",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid credentials"}`, rec.Body.String())
}

func TestBoards_RequireAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/api/v1/boards", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Unauthorized"}`, rec.Body.String())

	rec = api.do(http.MethodPatch, "/api/v1/lists/reorder", map[string]interface{}{"boardId": "x", "items": []interface{}{}}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBoards_OwnerScoped(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register("alice@example.com")
	bob := api.register("bob@example.com")

	boardID := api.createBoard(alice, "Alice Board")

	rec := api.do(http.MethodGet, "/api/v1/boards/"+boardID, nil, bearer(bob))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodDelete, "/api/v1/boards/"+boardID, nil, bearer(bob))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/boards", map[string]string{"title": " a "}, bearer(alice))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/boards/not-a-uuid", nil, bearer(alice))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReorderLists_EndToEnd(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("demo@example.com")
	boardID := api.createBoard(token, "Sprint Board")
	a := api.createList(token, boardID, "To Do")
	b := api.createList(token, boardID, "In Progress")
	c := api.createList(token, boardID, "Done")

	rec := api.do(http.MethodPatch, "/api/v1/lists/reorder", map[string]interface{}{
		"boardId": boardID,
		"items": []map[string]interface{}{
			{"listId": b, "position": 1000},
			{"listId": c, "position": "2000"},
			{"listId": a, "position": 3000},
		},
	}, bearer(token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/v1/lists/board/"+boardID, nil, bearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Lists []struct {
			ID       string `json:"id"`
			Position int64  `json:"position"`
		} `json:"lists"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Lists, 3)
	assert.Equal(t, []string{b, c, a}, []string{resp.Lists[0].ID, resp.Lists[1].ID, resp.Lists[2].ID})

	rec = api.do(http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `kanban_reorder_batches_total{kind="lists"} 1`)
}

func TestReorder_Validation(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("demo@example.com")
	boardID := api.createBoard(token, "Sprint Board")

	cases := []struct {
		name string
		path string
		body string
	}{
		{"items not an array", "/api/v1/lists/reorder", `{"boardId":"` + boardID + `","items":"nope"}`},
		{"missing items", "/api/v1/lists/reorder", `{"boardId":"` + boardID + `"}`},
		{"malformed board id", "/api/v1/lists/reorder", `{"boardId":"123","items":[]}`},
		{"malformed list id", "/api/v1/lists/reorder", `{"boardId":"` + boardID + `","items":[{"listId":"x","position":1000}]}`},
		{"malformed card list id", "/api/v1/cards/reorder", `{"boardId":"` + boardID + `","items":[{"cardId":"` + boardID + `","listId":"x"}]}`},
		{"broken json", "/api/v1/cards/reorder", `{"boardId":`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(http.MethodPatch, tc.path, tc.body, bearer(token))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.True(t, strings.Contains(rec.Body.String(), `"message"`))
		})
	}

	rec := api.do(http.MethodPatch, "/api/v1/cards/reorder", `{"boardId":"`+boardID+`","items":[]}`, bearer(token))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReorderCards_ForeignItemsAreSilent(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register("alice@example.com")
	bob := api.register("bob@example.com")

	boardID := api.createBoard(alice, "Alice Board")
	listID := api.createList(alice, boardID, "To Do")

	rec := api.do(http.MethodPost, "/api/v1/cards", map[string]interface{}{
		"boardId": boardID,
		"listId":  listID,
		"title":   "Secret",
	}, bearer(alice))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Card struct {
			ID       string `json:"id"`
			Position int64  `json:"position"`
		} `json:"card"`
	}
	decode(t, rec, &created)
	assert.Equal(t, int64(1000), created.Card.Position)

	rec = api.do(http.MethodPatch, "/api/v1/cards/reorder", map[string]interface{}{
		"boardId": boardID,
		"items":   []map[string]interface{}{{"cardId": created.Card.ID, "listId": listID, "position": 9000}},
	}, bearer(bob))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/v1/boards/"+boardID+"/full", nil, bearer(alice))
	require.Equal(t, http.StatusOK, rec.Code)
	var full struct {
		Board struct {
			ID string `json:"id"`
		} `json:"board"`
		Lists []idResponse `json:"lists"`
		Cards []struct {
			ID       string `json:"id"`
			ListID   string `json:"listId"`
			Position int64  `json:"position"`
		} `json:"cards"`
	}
	decode(t, rec, &full)
	assert.Equal(t, boardID, full.Board.ID)
	require.Len(t, full.Lists, 1)
	require.Len(t, full.Cards, 1)
	assert.Equal(t, int64(1000), full.Cards[0].Position)
	assert.Equal(t, listID, full.Cards[0].ListID)
}

func TestDeleteList_RemovesItsCards(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("demo@example.com")
	boardID := api.createBoard(token, "Sprint Board")
	listID := api.createList(token, boardID, "To Do")

	rec := api.do(http.MethodPost, "/api/v1/cards", map[string]interface{}{"boardId": boardID, "listId": listID, "title": "Card"}, bearer(token))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodDelete, "/api/v1/lists/"+listID, nil, bearer(token))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/cards/board/"+boardID, nil, bearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cards":[]}`, rec.Body.String())
}

func TestSwaggerDocIsCompressed(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/swagger/doc.json", nil, map[string]string{"Accept-Encoding": "gzip"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}
