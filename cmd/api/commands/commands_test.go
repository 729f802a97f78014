package commands

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/kanban/internal/adapters/cache"
	"github.com/taskmaster/kanban/internal/adapters/repository"
	"github.com/taskmaster/kanban/internal/infrastructure/config"
	"github.com/taskmaster/kanban/internal/infrastructure/database"
	"github.com/taskmaster/kanban/internal/infrastructure/logger"
	"github.com/taskmaster/kanban/internal/infrastructure/server"
	"github.com/taskmaster/kanban/internal/testutil"
)

var testJWT = config.JWTConfig{
	Secret:           "commands-test-secret",
	ExpiresIn:        time.Hour,
	RefreshExpiresIn: 24 * time.Hour,
	Issuer:           "kanban-test",
}

func seeded(t *testing.T) *sqlx.DB {
	t.Helper()

	db := testutil.SetupTestDB(t)
	fixture, err := parseSeed(defaultSeed)
	require.NoError(t, err)

	res, err := newSeeder(db, testJWT, logger.NewNop()).Run(context.Background(), fixture)
	require.NoError(t, err)
	assert.Equal(t, seedResult{Users: 2, Boards: 1, Lists: 3, Cards: 4}, res)
	return db
}

func TestSeed_DemoData(t *testing.T) {
	ctx := context.Background()
	db := seeded(t)

	user, err := repository.NewUserRepository(db).GetByEmail(ctx, "demo1@mail.com")
	require.NoError(t, err)

	boards, err := repository.NewBoardRepository(db).ListByOwner(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, "Sprint Board", boards[0].Title)

	lists, err := repository.NewListRepository(db).ListByBoard(ctx, user.ID, boards[0].ID)
	require.NoError(t, err)
	require.Len(t, lists, 3)
	assert.Equal(t, "To Do", lists[0].Name)
	assert.Equal(t, "Done", lists[2].Name)
	assert.Equal(t, []int64{1000, 2000, 3000}, []int64{lists[0].Position, lists[1].Position, lists[2].Position})

	// a second run finds the users and creates nothing
	fixture, err := parseSeed(defaultSeed)
	require.NoError(t, err)
	res, err := newSeeder(db, testJWT, logger.NewNop()).Run(ctx, fixture)
	require.NoError(t, err)
	assert.Equal(t, seedResult{Skipped: 2}, res)
}

func TestParseSeed_Invalid(t *testing.T) {
	_, err := parseSeed([]byte("users: [\n"))
	assert.Error(t, err)
}

func runBoardCommand(t *testing.T, args ...string) string {
	t.Helper()

	cmd := NewBoardCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func TestBoardCommand_ShowAndMove(t *testing.T) {
	ctx := context.Background()
	db := seeded(t)

	cfg := &config.Config{
		JWT:     testJWT,
		Reorder: config.ReorderConfig{MaxConcurrency: 2, MaxItems: 100},
	}
	srv, err := server.New(cfg, &database.DB{DB: db}, cache.NewNopBoardCache(), logger.NewNop())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	user, err := repository.NewUserRepository(db).GetByEmail(ctx, "demo1@mail.com")
	require.NoError(t, err)
	boards, err := repository.NewBoardRepository(db).ListByOwner(ctx, user.ID)
	require.NoError(t, err)
	boardID := boards[0].ID.String()

	auth := []string{"--api", ts.URL + "/api/v1", "--email", "demo1@mail.com", "--password", "Password@123"}

	out := runBoardCommand(t, append([]string{"list"}, auth...)...)
	assert.Contains(t, out, boardID+"  Sprint Board")

	out = runBoardCommand(t, append([]string{"show", boardID}, auth...)...)
	assert.True(t, strings.HasPrefix(out, "Sprint Board\n"), out)
	assert.Contains(t, out, "[0] To Do (1000)\n    0. Setup repo (1000)\n    1. Define schema (2000)\n")

	out = runBoardCommand(t, append([]string{"move-list", boardID, "0", "2"}, auth...)...)
	assert.Contains(t, out, "[0] In Progress (1000)")
	assert.Contains(t, out, "[2] To Do (3000)")

	// To Do is now the last list; move its first card to the top of Done
	out = runBoardCommand(t, append([]string{"move-card", boardID, "2", "0", "1", "0"}, auth...)...)
	assert.Contains(t, out, "[1] Done (2000)\n    0. Setup repo (1000)\n    1. Project skeleton (2000)\n")
	assert.Contains(t, out, "[2] To Do (3000)\n    0. Define schema (1000)\n")

	out = runBoardCommand(t, append([]string{"show", boardID}, auth...)...)
	assert.Contains(t, out, "[1] Done (2000)\n    0. Setup repo (1000)\n")
}

func TestBoardCommand_RequiresCredentials(t *testing.T) {
	cmd := NewBoardCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"list", "--email", "", "--password", ""})
	assert.Error(t, cmd.ExecuteContext(context.Background()))
}

func TestVersionCommand(t *testing.T) {
	cmd := NewVersionCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Kanban dev")
}
