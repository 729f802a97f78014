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

// ListService handles list operations
type ListService struct {
	boardRepo ports.BoardRepository
	listRepo  ports.ListRepository
	logger    *logger.Logger
}

// NewListService creates a new list service
func NewListService(boardRepo ports.BoardRepository, listRepo ports.ListRepository, logger *logger.Logger) *ListService {
	return &ListService{
		boardRepo: boardRepo,
		listRepo:  listRepo,
		logger:    logger.WithComponent("lists"),
	}
}

// CreateList appends a list to a board of the owner. Without an explicit
// position the list goes after the last one.
func (s *ListService) CreateList(ctx context.Context, ownerID uuid.UUID, req ports.CreateListRequest) (*entities.List, error) {
	boardID, err := uuid.Parse(req.BoardID)
	if err != nil {
		return nil, entities.ErrInvalidID
	}

	name, err := entities.NormalizeListName(req.Name)
	if err != nil {
		return nil, err
	}

	board, err := s.boardRepo.GetByID(ctx, ownerID, boardID)
	if err != nil {
		return nil, err
	}

	var position int64
	if req.Position != nil {
		position = req.Position.Int64()
	} else {
		existing, err := s.listRepo.Positions(ctx, ownerID, board.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read list positions: %w", err)
		}
		position = ordering.NextAppendPosition(existing)
	}

	list := &entities.List{
		BoardID:  board.ID,
		OwnerID:  ownerID,
		Name:     name,
		Position: position,
	}
	if err := s.listRepo.Create(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	return list, nil
}

// ListsByBoard returns the lists of a board ordered by position
func (s *ListService) ListsByBoard(ctx context.Context, ownerID, boardID uuid.UUID) ([]*entities.List, error) {
	return s.listRepo.ListByBoard(ctx, ownerID, boardID)
}

// RenameList changes the name of a list
func (s *ListService) RenameList(ctx context.Context, ownerID, listID uuid.UUID, req ports.RenameListRequest) (*entities.List, error) {
	name, err := entities.NormalizeListName(req.Name)
	if err != nil {
		return nil, err
	}
	return s.listRepo.Rename(ctx, ownerID, listID, name)
}

// DeleteList removes a list and its cards
func (s *ListService) DeleteList(ctx context.Context, ownerID, listID uuid.UUID) error {
	if err := s.listRepo.Delete(ctx, ownerID, listID); err != nil {
		return err
	}

	s.logger.LogUserAction(ownerID.String(), "list.delete", map[string]interface{}{"list_id": listID})
	return nil
}
