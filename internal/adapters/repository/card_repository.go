package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/ports"
)

const cardColumns = `id, board_id, list_id, owner_id, title, position, created_at, updated_at`

// CardRepositoryImpl implements the CardRepository interface
type CardRepositoryImpl struct {
	db *sqlx.DB
}

// NewCardRepository creates a new card repository
func NewCardRepository(db *sqlx.DB) ports.CardRepository {
	return &CardRepositoryImpl{db: db}
}

func (r *CardRepositoryImpl) Create(ctx context.Context, card *entities.Card) error {
	query := r.db.Rebind(`
		INSERT INTO cards (id, board_id, list_id, owner_id, title, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	card.CreatedAt = now()
	card.UpdatedAt = card.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		card.ID, card.BoardID, card.ListID, card.OwnerID, card.Title, card.Position, card.CreatedAt, card.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create card: %w", err)
	}

	return nil
}

func (r *CardRepositoryImpl) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*entities.Card, error) {
	query := r.db.Rebind(`SELECT ` + cardColumns + ` FROM cards WHERE id = ? AND owner_id = ?`)

	var card entities.Card
	err := r.db.GetContext(ctx, &card, query, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrCardNotFound
		}
		return nil, fmt.Errorf("get card by id: %w", err)
	}

	return &card, nil
}

// ListByBoard returns every card of the board as one flat slice ordered by
// position. Grouping by list is left to the caller.
func (r *CardRepositoryImpl) ListByBoard(ctx context.Context, ownerID, boardID uuid.UUID) ([]*entities.Card, error) {
	query := r.db.Rebind(`
		SELECT ` + cardColumns + `
		FROM cards
		WHERE board_id = ? AND owner_id = ?
		ORDER BY position ASC, updated_at ASC`)

	cards := []*entities.Card{}
	if err := r.db.SelectContext(ctx, &cards, query, boardID, ownerID); err != nil {
		return nil, fmt.Errorf("list cards by board: %w", err)
	}

	return cards, nil
}

func (r *CardRepositoryImpl) Positions(ctx context.Context, ownerID, listID uuid.UUID) ([]int64, error) {
	query := r.db.Rebind(`SELECT position FROM cards WHERE list_id = ? AND owner_id = ?`)

	positions := []int64{}
	if err := r.db.SelectContext(ctx, &positions, query, listID, ownerID); err != nil {
		return nil, fmt.Errorf("card positions: %w", err)
	}

	return positions, nil
}

func (r *CardRepositoryImpl) Rename(ctx context.Context, ownerID, id uuid.UUID, title string) (*entities.Card, error) {
	query := r.db.Rebind(`
		UPDATE cards SET title = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
		RETURNING ` + cardColumns)

	var card entities.Card
	err := r.db.QueryRowxContext(ctx, query, title, now(), id, ownerID).StructScan(&card)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrCardNotFound
		}
		return nil, fmt.Errorf("rename card: %w", err)
	}

	return &card, nil
}

func (r *CardRepositoryImpl) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	query := r.db.Rebind(`DELETE FROM cards WHERE id = ? AND owner_id = ?`)

	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entities.ErrCardNotFound
	}

	return nil
}

// Place moves a card within its board. The target list must belong to the
// same owner and board; otherwise nothing matches and false is returned.
func (r *CardRepositoryImpl) Place(ctx context.Context, ownerID uuid.UUID, p entities.CardPlacement) (bool, error) {
	query := r.db.Rebind(`
		UPDATE cards SET list_id = ?, board_id = ?, position = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND board_id = ?
		  AND EXISTS (
			SELECT 1 FROM lists
			WHERE lists.id = ? AND lists.owner_id = ? AND lists.board_id = ?
		  )`)

	result, err := r.db.ExecContext(ctx, query,
		p.ListID, p.BoardID, p.Position, now(),
		p.CardID, ownerID, p.BoardID,
		p.ListID, ownerID, p.BoardID)
	if err != nil {
		return false, fmt.Errorf("place card: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
