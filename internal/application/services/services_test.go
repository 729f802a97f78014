package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/kanban/internal/adapters/cache"
	"github.com/taskmaster/kanban/internal/adapters/repository"
	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/domain/ordering"
	"github.com/taskmaster/kanban/internal/infrastructure/config"
	"github.com/taskmaster/kanban/internal/infrastructure/logger"
	"github.com/taskmaster/kanban/internal/ports"
	"github.com/taskmaster/kanban/internal/testutil"
)

type fixture struct {
	db      *sqlx.DB
	boards  *BoardService
	lists   *ListService
	cards   *CardService
	reorder *ReorderService
	auth    *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	log := logger.NewNop()

	boardRepo := repository.NewBoardRepository(db)
	listRepo := repository.NewListRepository(db)
	cardRepo := repository.NewCardRepository(db)

	jwtCfg := config.JWTConfig{
		Secret:           "test-secret",
		ExpiresIn:        time.Hour,
		RefreshExpiresIn: 24 * time.Hour,
		Issuer:           "kanban-test",
	}

	return &fixture{
		db:      db,
		boards:  NewBoardService(boardRepo, listRepo, cardRepo, cache.NewNopBoardCache(), log),
		lists:   NewListService(boardRepo, listRepo, log),
		cards:   NewCardService(listRepo, cardRepo, log),
		reorder: NewReorderService(listRepo, cardRepo, config.ReorderConfig{MaxConcurrency: 4, MaxItems: 100}, NewReorderMetrics(nil), log),
		auth:    NewAuthService(repository.NewUserRepository(db), repository.NewAuthRepository(db), jwtCfg, log),
	}
}

func pos(v int64) *ordering.Position {
	p := ordering.Position(v)
	return &p
}

func TestBoardService_TitleRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	_, err := f.boards.CreateBoard(ctx, owner, ports.CreateBoardRequest{Title: "  x "})
	assert.ErrorIs(t, err, entities.ErrInvalidTitle)

	board, err := f.boards.CreateBoard(ctx, owner, ports.CreateBoardRequest{Title: "  Sprint Board  "})
	require.NoError(t, err)
	assert.Equal(t, "Sprint Board", board.Title)

	_, err = f.boards.RenameBoard(ctx, owner, board.ID, ports.RenameBoardRequest{Title: "a"})
	assert.ErrorIs(t, err, entities.ErrInvalidTitle)

	_, err = f.boards.RenameBoard(ctx, uuid.New(), board.ID, ports.RenameBoardRequest{Title: "Stolen"})
	assert.ErrorIs(t, err, entities.ErrBoardNotFound)
}

func TestListService_CreateAppends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	board := testutil.CreateTestBoard(t, f.db, owner, "Board")

	first, err := f.lists.CreateList(ctx, owner, ports.CreateListRequest{BoardID: board.ID.String(), Name: "To Do"})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), first.Position)

	explicit, err := f.lists.CreateList(ctx, owner, ports.CreateListRequest{BoardID: board.ID.String(), Name: "Later", Position: pos(7000)})
	require.NoError(t, err)
	assert.Equal(t, int64(7000), explicit.Position)

	next, err := f.lists.CreateList(ctx, owner, ports.CreateListRequest{BoardID: board.ID.String(), Name: "Done"})
	require.NoError(t, err)
	assert.Equal(t, int64(8000), next.Position)

	_, err = f.lists.CreateList(ctx, owner, ports.CreateListRequest{BoardID: board.ID.String(), Name: " x"})
	assert.ErrorIs(t, err, entities.ErrInvalidName)

	_, err = f.lists.CreateList(ctx, uuid.New(), ports.CreateListRequest{BoardID: board.ID.String(), Name: "Intruder"})
	assert.ErrorIs(t, err, entities.ErrBoardNotFound)
}

func TestCardService_CreateTakesBoardFromList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	board := testutil.CreateTestBoard(t, f.db, owner, "Board")
	other := testutil.CreateTestBoard(t, f.db, owner, "Other")
	list := testutil.CreateTestList(t, f.db, board, "To Do", 1000)
	testutil.CreateTestCard(t, f.db, list, "existing", 2500)

	card, err := f.cards.CreateCard(ctx, owner, ports.CreateCardRequest{
		BoardID: board.ID.String(),
		ListID:  list.ID.String(),
		Title:   "  Write tests ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Write tests", card.Title)
	assert.Equal(t, board.ID, card.BoardID)
	assert.Equal(t, int64(3500), card.Position)

	_, err = f.cards.CreateCard(ctx, owner, ports.CreateCardRequest{BoardID: other.ID.String(), ListID: list.ID.String(), Title: "Wrong board"})
	assert.ErrorIs(t, err, entities.ErrListNotFound)

	_, err = f.cards.CreateCard(ctx, owner, ports.CreateCardRequest{BoardID: board.ID.String(), ListID: list.ID.String(), Title: "   "})
	assert.ErrorIs(t, err, entities.ErrEmptyCardTitle)
}

func TestBoardService_LoadBoard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	board := testutil.CreateTestBoard(t, f.db, owner, "Board")
	doing := testutil.CreateTestList(t, f.db, board, "Doing", 2000)
	todo := testutil.CreateTestList(t, f.db, board, "To Do", 1000)
	testutil.CreateTestCard(t, f.db, todo, "b", 2000)
	testutil.CreateTestCard(t, f.db, doing, "a", 1000)

	agg, err := f.boards.LoadBoard(ctx, owner, board.ID)
	require.NoError(t, err)
	assert.Equal(t, board.ID, agg.Board.ID)
	require.Len(t, agg.Lists, 2)
	assert.Equal(t, todo.ID, agg.Lists[0].ID)
	require.Len(t, agg.Cards, 2)
	assert.Equal(t, "a", agg.Cards[0].Title)

	_, err = f.boards.LoadBoard(ctx, uuid.New(), board.ID)
	assert.ErrorIs(t, err, entities.ErrBoardNotFound)
}

func TestBoardService_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	board := testutil.CreateTestBoard(t, f.db, owner, "Board")
	list := testutil.CreateTestList(t, f.db, board, "To Do", 1000)
	testutil.CreateTestCard(t, f.db, list, "card", 1000)

	require.NoError(t, f.boards.DeleteBoard(ctx, owner, board.ID))

	lists, err := f.lists.ListsByBoard(ctx, owner, board.ID)
	require.NoError(t, err)
	assert.Empty(t, lists)
	cards, err := f.cards.CardsByBoard(ctx, owner, board.ID)
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestAuthService_RegisterLoginValidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.auth.Register(ctx, ports.RegisterRequest{Email: "Demo1@Mail.com", Password: "Password@123"})
	require.NoError(t, err)
	assert.Equal(t, "demo1", resp.User.Name)
	assert.Empty(t, resp.User.PasswordHash)

	_, err = f.auth.Register(ctx, ports.RegisterRequest{Email: "demo1@mail.com", Password: "Password@123"})
	assert.ErrorIs(t, err, entities.ErrUserExists)

	_, err = f.auth.Login(ctx, ports.LoginRequest{Email: "demo1@mail.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, entities.ErrInvalidPassword)

	login, err := f.auth.Login(ctx, ports.LoginRequest{Email: "demo1@mail.com", Password: "Password@123"})
	require.NoError(t, err)

	claims, err := f.auth.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID.String(), claims.UserID)
	assert.Equal(t, "demo1@mail.com", claims.Email)

	_, err = f.auth.ValidateToken(login.AccessToken + "x")
	assert.ErrorIs(t, err, entities.ErrUnauthorized)

	refreshed, err := f.auth.RefreshToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = f.auth.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, entities.ErrUnauthorized)

	require.NoError(t, f.auth.Logout(ctx, resp.User.ID))
	_, err = f.auth.RefreshToken(ctx, refreshed.RefreshToken)
	assert.ErrorIs(t, err, entities.ErrUnauthorized)
}
