package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/domain/ordering"
	"github.com/taskmaster/kanban/internal/infrastructure/logger"
	"github.com/taskmaster/kanban/internal/ports"
)

// CardService handles card operations
type CardService struct {
	listRepo ports.ListRepository
	cardRepo ports.CardRepository
	logger   *logger.Logger
}

// NewCardService creates a new card service
func NewCardService(listRepo ports.ListRepository, cardRepo ports.CardRepository, logger *logger.Logger) *CardService {
	return &CardService{
		listRepo: listRepo,
		cardRepo: cardRepo,
		logger:   logger.WithComponent("cards"),
	}
}

// CreateCard appends a card to a list of the owner. The card's board is
// always the list's board; a list outside the requested board is treated
// as missing.
func (s *CardService) CreateCard(ctx context.Context, ownerID uuid.UUID, req ports.CreateCardRequest) (*entities.Card, error) {
	boardID, err := uuid.Parse(req.BoardID)
	if err != nil {
		return nil, entities.ErrInvalidID
	}
	listID, err := uuid.Parse(req.ListID)
	if err != nil {
		return nil, entities.ErrInvalidID
	}

	title, err := entities.NormalizeCardTitle(req.Title)
	if err != nil {
		return nil, err
	}

	list, err := s.listRepo.GetByID(ctx, ownerID, listID)
	if err != nil {
		return nil, err
	}
	if list.BoardID != boardID {
		return nil, entities.ErrListNotFound
	}

	var position int64
	if req.Position != nil {
		position = req.Position.Int64()
	} else {
		existing, err := s.cardRepo.Positions(ctx, ownerID, list.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read card positions: %w", err)
		}
		position = ordering.NextAppendPosition(existing)
	}

	card := &entities.Card{
		BoardID:  list.BoardID,
		ListID:   list.ID,
		OwnerID:  ownerID,
		Title:    title,
		Position: position,
	}
	if err := s.cardRepo.Create(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	return card, nil
}

// CardsByBoard returns every card of a board ordered by position
func (s *CardService) CardsByBoard(ctx context.Context, ownerID, boardID uuid.UUID) ([]*entities.Card, error) {
	return s.cardRepo.ListByBoard(ctx, ownerID, boardID)
}

// RenameCard changes the title of a card
func (s *CardService) RenameCard(ctx context.Context, ownerID, cardID uuid.UUID, req ports.RenameCardRequest) (*entities.Card, error) {
	title, err := entities.NormalizeCardTitle(req.Title)
	if err != nil {
		return nil, err
	}
	return s.cardRepo.Rename(ctx, ownerID, cardID, title)
}

// DeleteCard removes one card
func (s *CardService) DeleteCard(ctx context.Context, ownerID, cardID uuid.UUID) error {
	return s.cardRepo.Delete(ctx, ownerID, cardID)
}
