package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/infrastructure/database"
	"github.com/taskmaster/kanban/internal/ports"
)

const boardColumns = `id, owner_id, title, created_at, updated_at`

// BoardRepositoryImpl implements the BoardRepository interface
type BoardRepositoryImpl struct {
	db *sqlx.DB
}

// NewBoardRepository creates a new board repository
func NewBoardRepository(db *sqlx.DB) ports.BoardRepository {
	return &BoardRepositoryImpl{db: db}
}

// now is the timestamp stored on writes; microsecond precision matches postgres.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (r *BoardRepositoryImpl) Create(ctx context.Context, board *entities.Board) error {
	query := r.db.Rebind(`
		INSERT INTO boards (id, owner_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`)

	if board.ID == uuid.Nil {
		board.ID = uuid.New()
	}
	board.CreatedAt = now()
	board.UpdatedAt = board.CreatedAt

	_, err := r.db.ExecContext(ctx, query, board.ID, board.OwnerID, board.Title, board.CreatedAt, board.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create board: %w", err)
	}

	return nil
}

func (r *BoardRepositoryImpl) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*entities.Board, error) {
	query := r.db.Rebind(`SELECT ` + boardColumns + ` FROM boards WHERE id = ? AND owner_id = ?`)

	var board entities.Board
	err := r.db.GetContext(ctx, &board, query, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrBoardNotFound
		}
		return nil, fmt.Errorf("get board by id: %w", err)
	}

	return &board, nil
}

func (r *BoardRepositoryImpl) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.Board, error) {
	query := r.db.Rebind(`
		SELECT ` + boardColumns + `
		FROM boards
		WHERE owner_id = ?
		ORDER BY updated_at DESC`)

	boards := []*entities.Board{}
	if err := r.db.SelectContext(ctx, &boards, query, ownerID); err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}

	return boards, nil
}

func (r *BoardRepositoryImpl) Rename(ctx context.Context, ownerID, id uuid.UUID, title string) (*entities.Board, error) {
	query := r.db.Rebind(`
		UPDATE boards SET title = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
		RETURNING ` + boardColumns)

	var board entities.Board
	err := r.db.QueryRowxContext(ctx, query, title, now(), id, ownerID).StructScan(&board)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrBoardNotFound
		}
		return nil, fmt.Errorf("rename board: %w", err)
	}

	return &board, nil
}

// Delete removes cards, lists and the board in one transaction. The board
// row is deleted last so a foreign board leaves everything untouched.
func (r *BoardRepositoryImpl) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return database.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var exists int
		err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT 1 FROM boards WHERE id = ? AND owner_id = ?`), id, ownerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return entities.ErrBoardNotFound
			}
			return fmt.Errorf("find board: %w", err)
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM cards WHERE board_id = ? AND owner_id = ?`), id, ownerID); err != nil {
			return fmt.Errorf("delete board cards: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM lists WHERE board_id = ? AND owner_id = ?`), id, ownerID); err != nil {
			return fmt.Errorf("delete board lists: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM boards WHERE id = ? AND owner_id = ?`), id, ownerID); err != nil {
			return fmt.Errorf("delete board: %w", err)
		}
		return nil
	})
}
