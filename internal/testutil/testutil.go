// Package testutil provides shared helpers for integration tests.
package testutil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/infrastructure/config"
	"github.com/taskmaster/kanban/internal/infrastructure/database"
	"github.com/taskmaster/kanban/internal/infrastructure/migrations"
)

// SetupTestDB creates a fresh migrated sqlite database in a temp dir
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "kanban.db"),
	}

	db, err := database.New(cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Up(db.DB.DB, "sqlite"); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db.DB
}

// CreateTestBoard inserts a board and returns it
func CreateTestBoard(t *testing.T, db *sqlx.DB, ownerID uuid.UUID, title string) *entities.Board {
	t.Helper()

	now := time.Now().UTC()
	b := &entities.Board{ID: uuid.New(), OwnerID: ownerID, Title: title, CreatedAt: now, UpdatedAt: now}
	_, err := db.Exec(db.Rebind(`INSERT INTO boards (id, owner_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
		b.ID, b.OwnerID, b.Title, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test board: %v", err)
	}
	return b
}

// CreateTestList inserts a list into board b and returns it
func CreateTestList(t *testing.T, db *sqlx.DB, b *entities.Board, name string, position int64) *entities.List {
	t.Helper()

	now := time.Now().UTC()
	l := &entities.List{ID: uuid.New(), BoardID: b.ID, OwnerID: b.OwnerID, Name: name, Position: position, CreatedAt: now, UpdatedAt: now}
	_, err := db.Exec(db.Rebind(`INSERT INTO lists (id, board_id, owner_id, name, position, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		l.ID, l.BoardID, l.OwnerID, l.Name, l.Position, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test list: %v", err)
	}
	return l
}

// CreateTestCard inserts a card into list l and returns it
func CreateTestCard(t *testing.T, db *sqlx.DB, l *entities.List, title string, position int64) *entities.Card {
	t.Helper()

	now := time.Now().UTC()
	c := &entities.Card{ID: uuid.New(), BoardID: l.BoardID, ListID: l.ID, OwnerID: l.OwnerID, Title: title, Position: position, CreatedAt: now, UpdatedAt: now}
	_, err := db.Exec(db.Rebind(`INSERT INTO cards (id, board_id, list_id, owner_id, title, position, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.BoardID, c.ListID, c.OwnerID, c.Title, c.Position, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test card: %v", err)
	}
	return c
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		var raw []byte
		switch b := body.(type) {
		case string:
			raw = []byte(b)
		default:
			raw, _ = json.Marshal(body)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}
