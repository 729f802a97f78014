package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/infrastructure/database"
	"github.com/taskmaster/kanban/internal/ports"
)

const listColumns = `id, board_id, owner_id, name, position, created_at, updated_at`

// ListRepositoryImpl implements the ListRepository interface
type ListRepositoryImpl struct {
	db *sqlx.DB
}

// NewListRepository creates a new list repository
func NewListRepository(db *sqlx.DB) ports.ListRepository {
	return &ListRepositoryImpl{db: db}
}

func (r *ListRepositoryImpl) Create(ctx context.Context, list *entities.List) error {
	query := r.db.Rebind(`
		INSERT INTO lists (id, board_id, owner_id, name, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	if list.ID == uuid.Nil {
		list.ID = uuid.New()
	}
	list.CreatedAt = now()
	list.UpdatedAt = list.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		list.ID, list.BoardID, list.OwnerID, list.Name, list.Position, list.CreatedAt, list.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create list: %w", err)
	}

	return nil
}

func (r *ListRepositoryImpl) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*entities.List, error) {
	query := r.db.Rebind(`SELECT ` + listColumns + ` FROM lists WHERE id = ? AND owner_id = ?`)

	var list entities.List
	err := r.db.GetContext(ctx, &list, query, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrListNotFound
		}
		return nil, fmt.Errorf("get list by id: %w", err)
	}

	return &list, nil
}

// ListByBoard returns the lists of a board ordered by position. Equal
// positions fall back to update order.
func (r *ListRepositoryImpl) ListByBoard(ctx context.Context, ownerID, boardID uuid.UUID) ([]*entities.List, error) {
	query := r.db.Rebind(`
		SELECT ` + listColumns + `
		FROM lists
		WHERE board_id = ? AND owner_id = ?
		ORDER BY position ASC, updated_at ASC`)

	lists := []*entities.List{}
	if err := r.db.SelectContext(ctx, &lists, query, boardID, ownerID); err != nil {
		return nil, fmt.Errorf("list lists by board: %w", err)
	}

	return lists, nil
}

func (r *ListRepositoryImpl) Positions(ctx context.Context, ownerID, boardID uuid.UUID) ([]int64, error) {
	query := r.db.Rebind(`SELECT position FROM lists WHERE board_id = ? AND owner_id = ?`)

	positions := []int64{}
	if err := r.db.SelectContext(ctx, &positions, query, boardID, ownerID); err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	return positions, nil
}

func (r *ListRepositoryImpl) Rename(ctx context.Context, ownerID, id uuid.UUID, name string) (*entities.List, error) {
	query := r.db.Rebind(`
		UPDATE lists SET name = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
		RETURNING ` + listColumns)

	var list entities.List
	err := r.db.QueryRowxContext(ctx, query, name, now(), id, ownerID).StructScan(&list)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrListNotFound
		}
		return nil, fmt.Errorf("rename list: %w", err)
	}

	return &list, nil
}

func (r *ListRepositoryImpl) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return database.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM cards WHERE list_id = ? AND owner_id = ?`), id, ownerID); err != nil {
			return fmt.Errorf("delete list cards: %w", err)
		}

		result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM lists WHERE id = ? AND owner_id = ?`), id, ownerID)
		if err != nil {
			return fmt.Errorf("delete list: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return entities.ErrListNotFound
		}
		return nil
	})
}

func (r *ListRepositoryImpl) SetPosition(ctx context.Context, ownerID, boardID uuid.UUID, p entities.ListPlacement) (bool, error) {
	query := r.db.Rebind(`
		UPDATE lists SET position = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND board_id = ?`)

	result, err := r.db.ExecContext(ctx, query, p.Position, now(), p.ListID, ownerID, boardID)
	if err != nil {
		return false, fmt.Errorf("set list position: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
