package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/kanban/internal/adapters/cache"
	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/infrastructure/config"
	"github.com/taskmaster/kanban/internal/infrastructure/database"
	"github.com/taskmaster/kanban/internal/infrastructure/logger"
	"github.com/taskmaster/kanban/internal/infrastructure/server"
	"github.com/taskmaster/kanban/internal/testutil"
)

func testClientConfig(baseURL string) Config {
	cfg := DefaultConfig(baseURL)
	cfg.RetryWait = time.Millisecond
	cfg.RetryMaxWait = 5 * time.Millisecond
	return cfg
}

// startAPI runs the real HTTP stack on a temp sqlite database
func startAPI(t *testing.T) string {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{Name: "kanban", Version: "test", Environment: "test"},
		JWT: config.JWTConfig{
			Secret:           "client-test-secret",
			ExpiresIn:        time.Hour,
			RefreshExpiresIn: 24 * time.Hour,
			Issuer:           "kanban-test",
		},
		Reorder: config.ReorderConfig{MaxConcurrency: 4, MaxItems: 100},
	}

	db := &database.DB{DB: testutil.SetupTestDB(t)}
	srv, err := server.New(cfg, db, cache.NewNopBoardCache(), logger.NewNop())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL + "/api/v1"
}

// signedIn returns a client registered against a live server and a fresh board
func signedIn(t *testing.T) (*Client, *entities.Board) {
	t.Helper()
	ctx := context.Background()

	api := New(testClientConfig(startAPI(t)), nil)
	_, err := api.Register(ctx, "demo@example.com", "Password@123", "Demo")
	require.NoError(t, err)

	board, err := api.CreateBoard(ctx, "Sprint Board")
	require.NoError(t, err)
	return api, board
}

type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *noticeLog) notify(notice Notice) {
	n.mu.Lock()
	n.notices = append(n.notices, notice)
	n.mu.Unlock()
}

func (n *noticeLog) failures() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, notice := range n.notices {
		if notice.Failed {
			out = append(out, notice.Message)
		}
	}
	return out
}

func listIDs(lists []entities.List) []uuid.UUID {
	out := make([]uuid.UUID, len(lists))
	for i, l := range lists {
		out[i] = l.ID
	}
	return out
}

func listPositions(lists []entities.List) []int64 {
	out := make([]int64, len(lists))
	for i, l := range lists {
		out[i] = l.Position
	}
	return out
}

func cardIDs(cards []entities.Card) []uuid.UUID {
	out := make([]uuid.UUID, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func cardPositions(cards []entities.Card) []int64 {
	out := make([]int64, len(cards))
	for i, c := range cards {
		out[i] = c.Position
	}
	return out
}

func TestEngine_MoveListRoundTrip(t *testing.T) {
	ctx := context.Background()
	api, board := signedIn(t)

	eng := NewEngine(api, board.ID, nil, nil)
	require.NoError(t, eng.Load(ctx))

	a, err := eng.AddList(ctx, "To Do")
	require.NoError(t, err)
	b, err := eng.AddList(ctx, "In Progress")
	require.NoError(t, err)
	c, err := eng.AddList(ctx, "Done")
	require.NoError(t, err)
	assert.Equal(t, []int64{1000, 2000, 3000}, []int64{a.Position, b.Position, c.Position})

	pending := eng.MoveList(ctx, 0, 2)

	local := eng.Snapshot().SortedLists()
	assert.Equal(t, []uuid.UUID{b.ID, c.ID, a.ID}, listIDs(local))
	assert.Equal(t, []int64{1000, 2000, 3000}, listPositions(local))

	require.NoError(t, pending.Wait(ctx))

	remote, err := api.Lists(ctx, board.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID, c.ID, a.ID}, listIDs(remote))
	assert.Equal(t, []int64{1000, 2000, 3000}, listPositions(remote))
}

func TestEngine_MoveCardAcrossLists(t *testing.T) {
	ctx := context.Background()
	api, board := signedIn(t)

	eng := NewEngine(api, board.ID, nil, nil)
	require.NoError(t, eng.Load(ctx))

	l1, err := eng.AddList(ctx, "To Do")
	require.NoError(t, err)
	l2, err := eng.AddList(ctx, "Done")
	require.NoError(t, err)

	c1, err := eng.AddCard(ctx, l1.ID, "c1")
	require.NoError(t, err)
	c2, err := eng.AddCard(ctx, l1.ID, "c2")
	require.NoError(t, err)
	c3, err := eng.AddCard(ctx, l2.ID, "c3")
	require.NoError(t, err)
	assert.Equal(t, []int64{1000, 2000, 1000}, []int64{c1.Position, c2.Position, c3.Position})

	pending := eng.MoveCard(ctx, Drop{
		Source:      Location{ListID: l1.ID, Index: 0},
		Destination: &Location{ListID: l2.ID, Index: 0},
	})

	snap := eng.Snapshot()
	assert.Equal(t, []uuid.UUID{c2.ID}, cardIDs(snap.CardsFor(l1.ID)))
	assert.Equal(t, []int64{1000}, cardPositions(snap.CardsFor(l1.ID)))
	assert.Equal(t, []uuid.UUID{c1.ID, c3.ID}, cardIDs(snap.CardsFor(l2.ID)))
	assert.Equal(t, []int64{1000, 2000}, cardPositions(snap.CardsFor(l2.ID)))

	require.NoError(t, pending.Wait(ctx))

	// the server agrees after a fresh load
	fresh := NewEngine(api, board.ID, nil, nil)
	require.NoError(t, fresh.Load(ctx))
	remote := fresh.Snapshot()
	assert.Equal(t, []uuid.UUID{c2.ID}, cardIDs(remote.CardsFor(l1.ID)))
	assert.Equal(t, []uuid.UUID{c1.ID, c3.ID}, cardIDs(remote.CardsFor(l2.ID)))
	assert.Equal(t, []int64{1000, 2000}, cardPositions(remote.CardsFor(l2.ID)))
	for _, card := range remote.Cards {
		assert.Equal(t, board.ID, card.BoardID)
	}
}

func TestEngine_MoveCardWithinList(t *testing.T) {
	ctx := context.Background()
	api, board := signedIn(t)

	eng := NewEngine(api, board.ID, nil, nil)
	require.NoError(t, eng.Load(ctx))

	list, err := eng.AddList(ctx, "To Do")
	require.NoError(t, err)
	var ids []uuid.UUID
	for _, title := range []string{"c1", "c2", "c3"} {
		card, err := eng.AddCard(ctx, list.ID, title)
		require.NoError(t, err)
		ids = append(ids, card.ID)
	}

	pending := eng.MoveCard(ctx, Drop{
		Source:      Location{ListID: list.ID, Index: 0},
		Destination: &Location{ListID: list.ID, Index: 2},
	})

	snap := eng.Snapshot()
	require.Len(t, snap.Cards, 3)
	assert.Equal(t, []uuid.UUID{ids[1], ids[2], ids[0]}, cardIDs(snap.CardsFor(list.ID)))
	assert.Equal(t, []int64{1000, 2000, 3000}, cardPositions(snap.CardsFor(list.ID)))

	require.NoError(t, pending.Wait(ctx))

	remote, err := api.Cards(ctx, board.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ids[1], ids[2], ids[0]}, cardIDs(remote))
}

func TestEngine_CRUD(t *testing.T) {
	ctx := context.Background()
	api, board := signedIn(t)
	notices := &noticeLog{}

	eng := NewEngine(api, board.ID, notices.notify, nil)
	require.NoError(t, eng.Load(ctx))
	assert.Equal(t, "Sprint Board", eng.Snapshot().Board.Title)

	require.NoError(t, eng.RenameBoard(ctx, "  Release Board "))
	assert.Equal(t, "Release Board", eng.Snapshot().Board.Title)

	list, err := eng.AddList(ctx, "To Do")
	require.NoError(t, err)
	card, err := eng.AddCard(ctx, list.ID, "Write tests")
	require.NoError(t, err)

	require.NoError(t, eng.RenameList(ctx, list.ID, "Backlog"))
	require.NoError(t, eng.RenameCard(ctx, card.ID, "Write more tests"))

	got, ok := eng.Snapshot().List(list.ID)
	require.True(t, ok)
	assert.Equal(t, "Backlog", got.Name)
	assert.Equal(t, "Write more tests", eng.Snapshot().CardsFor(list.ID)[0].Title)

	// blank names never reach the server
	_, err = eng.AddList(ctx, "   ")
	assert.ErrorIs(t, err, ErrBlankName)
	_, err = eng.AddCard(ctx, list.ID, "")
	assert.ErrorIs(t, err, ErrBlankName)
	assert.Len(t, eng.Snapshot().Lists, 1)
	assert.Len(t, eng.Snapshot().CardsFor(list.ID), 1)
	assert.Empty(t, notices.failures())

	// a short name is rejected by the server and reported
	assert.Error(t, eng.RenameList(ctx, list.ID, "x"))
	assert.Equal(t, []string{"Rename failed"}, notices.failures())

	require.NoError(t, eng.DeleteList(ctx, list.ID))
	assert.Empty(t, eng.Snapshot().Lists)
	assert.Empty(t, eng.Snapshot().Cards)

	require.NoError(t, eng.DeleteBoard(ctx))
	assert.Nil(t, eng.Snapshot().Board)

	_, err = api.Board(ctx, board.ID)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestClient_LoginAndMe(t *testing.T) {
	ctx := context.Background()
	base := startAPI(t)

	api := New(testClientConfig(base), nil)
	me, err := api.Me(ctx)
	require.NoError(t, err)
	assert.Nil(t, me)

	_, err = api.Register(ctx, "Demo1@Mail.com", "Password@123", "")
	require.NoError(t, err)

	other := New(testClientConfig(base), nil)
	_, err = other.Login(ctx, "demo1@mail.com", "wrong-password")
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	session, err := other.Login(ctx, "demo1@mail.com", "Password@123")
	require.NoError(t, err)
	assert.Equal(t, "demo1", session.Name)
	assert.NotEmpty(t, other.Token())

	me, err = other.Me(ctx)
	require.NoError(t, err)
	require.NotNil(t, me)
	assert.Equal(t, "demo1@mail.com", me.Email)

	require.NoError(t, other.Logout(ctx))
	assert.Empty(t, other.Token())
}

// fakeBoard is a scripted server for failure paths
type fakeBoard struct {
	boardID uuid.UUID
	lists   []entities.List
	cards   []entities.Card

	reorderStatus int
	reorderCalls  atomic.Int32
	getCalls      atomic.Int32

	// once set, list and card reads fail with 500
	failReads atomic.Bool

	// reorder responses are held until release is called
	gate     chan struct{}
	gateOnce sync.Once
}

func (f *fakeBoard) release() {
	f.gateOnce.Do(func() { close(f.gate) })
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newFakeBoard(t *testing.T) (*fakeBoard, string) {
	t.Helper()

	f := &fakeBoard{boardID: uuid.New(), reorderStatus: http.StatusInternalServerError, gate: make(chan struct{})}
	l1 := entities.List{ID: uuid.New(), BoardID: f.boardID, Name: "To Do", Position: 1000}
	l2 := entities.List{ID: uuid.New(), BoardID: f.boardID, Name: "Done", Position: 2000}
	f.lists = []entities.List{l1, l2}
	f.cards = []entities.Card{
		{ID: uuid.New(), BoardID: f.boardID, ListID: l1.ID, Title: "c1", Position: 1000},
		{ID: uuid.New(), BoardID: f.boardID, ListID: l1.ID, Title: "c2", Position: 2000},
		{ID: uuid.New(), BoardID: f.boardID, ListID: l2.ID, Title: "c3", Position: 1000},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/boards/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.getCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]interface{}{"board": entities.Board{ID: f.boardID, Title: "Fake"}})
	})
	mux.HandleFunc("GET /api/v1/lists/board/{boardId}", func(w http.ResponseWriter, r *http.Request) {
		f.getCalls.Add(1)
		if f.failReads.Load() {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"lists": f.lists})
	})
	mux.HandleFunc("GET /api/v1/cards/board/{boardId}", func(w http.ResponseWriter, r *http.Request) {
		f.getCalls.Add(1)
		if f.failReads.Load() {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"cards": f.cards})
	})
	reorder := func(w http.ResponseWriter, r *http.Request) {
		f.reorderCalls.Add(1)
		<-f.gate
		writeJSON(w, f.reorderStatus, map[string]interface{}{"message": "Internal Server Error"})
	}
	mux.HandleFunc("PATCH /api/v1/lists/reorder", reorder)
	mux.HandleFunc("PATCH /api/v1/cards/reorder", reorder)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	t.Cleanup(f.release)
	return f, ts.URL + "/api/v1"
}

func TestEngine_ListReorderFailureRefetches(t *testing.T) {
	ctx := context.Background()
	fake, base := newFakeBoard(t)
	notices := &noticeLog{}

	eng := NewEngine(New(testClientConfig(base), nil), fake.boardID, notices.notify, nil)
	require.NoError(t, eng.Load(ctx))

	pending := eng.MoveList(ctx, 0, 1)
	assert.Equal(t, []uuid.UUID{fake.lists[1].ID, fake.lists[0].ID}, listIDs(eng.Snapshot().SortedLists()))

	fake.release()
	err := pending.Wait(ctx)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))

	// rolled back to the server order, no retry of the write
	assert.Equal(t, listIDs(fake.lists), listIDs(eng.Snapshot().SortedLists()))
	assert.Equal(t, int32(1), fake.reorderCalls.Load())
	assert.Equal(t, []string{"Reorder failed"}, notices.failures())
}

func TestEngine_CardReorderFailureRefetches(t *testing.T) {
	ctx := context.Background()
	fake, base := newFakeBoard(t)
	notices := &noticeLog{}

	eng := NewEngine(New(testClientConfig(base), nil), fake.boardID, notices.notify, nil)
	require.NoError(t, eng.Load(ctx))

	l1, l2 := fake.lists[0].ID, fake.lists[1].ID
	pending := eng.MoveCard(ctx, Drop{
		Source:      Location{ListID: l1, Index: 1},
		Destination: &Location{ListID: l2, Index: 1},
	})
	assert.Len(t, eng.Snapshot().CardsFor(l2), 2)

	fake.release()
	err := pending.Wait(ctx)
	require.Error(t, err)

	snap := eng.Snapshot()
	assert.Equal(t, []uuid.UUID{fake.cards[0].ID, fake.cards[1].ID}, cardIDs(snap.CardsFor(l1)))
	assert.Equal(t, []uuid.UUID{fake.cards[2].ID}, cardIDs(snap.CardsFor(l2)))
	assert.Equal(t, int32(1), fake.reorderCalls.Load())
	assert.Equal(t, []string{"Reorder failed"}, notices.failures())
}

func TestEngine_ListReorderFailureWithFailedRefetch(t *testing.T) {
	ctx := context.Background()
	fake, base := newFakeBoard(t)
	notices := &noticeLog{}

	eng := NewEngine(New(testClientConfig(base), nil), fake.boardID, notices.notify, nil)
	require.NoError(t, eng.Load(ctx))
	fake.failReads.Store(true)

	pending := eng.MoveList(ctx, 0, 1)
	moved := []uuid.UUID{fake.lists[1].ID, fake.lists[0].ID}

	fake.release()
	err := pending.Wait(ctx)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))

	// the refetch failed, so the optimistic order stays and the user is still told
	assert.Equal(t, moved, listIDs(eng.Snapshot().SortedLists()))
	assert.Equal(t, int32(1), fake.reorderCalls.Load())
	assert.Equal(t, []string{"Reorder failed"}, notices.failures())
}

func TestEngine_CardReorderFailureWithFailedRefetch(t *testing.T) {
	ctx := context.Background()
	fake, base := newFakeBoard(t)
	notices := &noticeLog{}

	eng := NewEngine(New(testClientConfig(base), nil), fake.boardID, notices.notify, nil)
	require.NoError(t, eng.Load(ctx))
	fake.failReads.Store(true)

	l1, l2 := fake.lists[0].ID, fake.lists[1].ID
	pending := eng.MoveCard(ctx, Drop{
		Source:      Location{ListID: l1, Index: 0},
		Destination: &Location{ListID: l2, Index: 0},
	})

	fake.release()
	err := pending.Wait(ctx)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))

	snap := eng.Snapshot()
	assert.Equal(t, []uuid.UUID{fake.cards[1].ID}, cardIDs(snap.CardsFor(l1)))
	assert.Equal(t, []uuid.UUID{fake.cards[0].ID, fake.cards[2].ID}, cardIDs(snap.CardsFor(l2)))
	assert.Equal(t, int32(1), fake.reorderCalls.Load())
	assert.Equal(t, []string{"Reorder failed"}, notices.failures())
}

func TestEngine_NoOpMoves(t *testing.T) {
	ctx := context.Background()
	fake, base := newFakeBoard(t)

	eng := NewEngine(New(testClientConfig(base), nil), fake.boardID, nil, nil)
	require.NoError(t, eng.Load(ctx))
	before := eng.Snapshot()

	l1 := fake.lists[0].ID
	moves := []*Pending{
		eng.MoveList(ctx, 1, 1),
		eng.MoveList(ctx, 0, 5),
		eng.MoveCard(ctx, Drop{Source: Location{ListID: l1, Index: 0}}),
		eng.MoveCard(ctx, Drop{Source: Location{ListID: l1, Index: 7}, Destination: &Location{ListID: l1, Index: 0}}),
		eng.MoveCard(ctx, Drop{Source: Location{ListID: l1, Index: 1}, Destination: &Location{ListID: l1, Index: 1}}),
		// a list that is not on the board
		eng.MoveCard(ctx, Drop{Source: Location{ListID: l1, Index: 0}, Destination: &Location{ListID: uuid.New(), Index: 0}}),
	}
	for _, p := range moves {
		assert.NoError(t, p.Wait(ctx))
	}

	assert.Same(t, before, eng.Snapshot())
	assert.Len(t, eng.Snapshot().CardsFor(l1), 2)
	assert.Equal(t, int32(0), fake.reorderCalls.Load())
}

func TestClient_MeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "warming up"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"user": map[string]string{"id": uuid.NewString(), "email": "demo@example.com"}})
	}))
	defer ts.Close()

	api := New(testClientConfig(ts.URL), nil)
	me, err := api.Me(context.Background())
	require.NoError(t, err)
	require.NotNil(t, me)
	assert.Equal(t, "demo@example.com", me.Email)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_MeGivesUp(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadGateway, map[string]string{"message": "upstream down"})
	}))
	defer ts.Close()

	_, err := New(testClientConfig(ts.URL), nil).Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadGateway))
	assert.Equal(t, int32(4), calls.Load())
}

func TestClient_UnauthorizedClearsToken(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer stale", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
	}))
	defer ts.Close()

	api := New(testClientConfig(ts.URL), nil)
	api.SetToken("stale")

	_, err := api.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Empty(t, api.Token())
	assert.Equal(t, int32(1), calls.Load())
}
