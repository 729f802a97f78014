package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/infrastructure/logger"
	"github.com/taskmaster/kanban/internal/ports"
)

// BoardService handles boards and the board aggregate
type BoardService struct {
	boardRepo ports.BoardRepository
	listRepo  ports.ListRepository
	cardRepo  ports.CardRepository
	cache     ports.BoardCache
	logger    *logger.Logger
}

// NewBoardService creates a new board service
func NewBoardService(boardRepo ports.BoardRepository, listRepo ports.ListRepository, cardRepo ports.CardRepository, cache ports.BoardCache, logger *logger.Logger) *BoardService {
	return &BoardService{
		boardRepo: boardRepo,
		listRepo:  listRepo,
		cardRepo:  cardRepo,
		cache:     cache,
		logger:    logger.WithComponent("boards"),
	}
}

// CreateBoard creates a board owned by ownerID
func (s *BoardService) CreateBoard(ctx context.Context, ownerID uuid.UUID, req ports.CreateBoardRequest) (*entities.Board, error) {
	title, err := entities.NormalizeBoardTitle(req.Title)
	if err != nil {
		return nil, err
	}

	board := &entities.Board{OwnerID: ownerID, Title: title}
	if err := s.boardRepo.Create(ctx, board); err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}
	s.cache.Invalidate(ctx, ownerID)

	s.logger.LogUserAction(ownerID.String(), "board.create", map[string]interface{}{"board_id": board.ID})
	return board, nil
}

// GetBoard returns one board of the owner
func (s *BoardService) GetBoard(ctx context.Context, ownerID, boardID uuid.UUID) (*entities.Board, error) {
	return s.boardRepo.GetByID(ctx, ownerID, boardID)
}

// ListBoards returns the owner's boards, most recently updated first
func (s *BoardService) ListBoards(ctx context.Context, ownerID uuid.UUID) ([]*entities.Board, error) {
	if boards, ok := s.cache.GetBoards(ctx, ownerID); ok {
		return boards, nil
	}

	boards, err := s.boardRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	s.cache.SetBoards(ctx, ownerID, boards)

	return boards, nil
}

// RenameBoard changes the title of a board
func (s *BoardService) RenameBoard(ctx context.Context, ownerID, boardID uuid.UUID, req ports.RenameBoardRequest) (*entities.Board, error) {
	title, err := entities.NormalizeBoardTitle(req.Title)
	if err != nil {
		return nil, err
	}

	board, err := s.boardRepo.Rename(ctx, ownerID, boardID, title)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, ownerID)

	return board, nil
}

// DeleteBoard removes a board with all of its lists and cards
func (s *BoardService) DeleteBoard(ctx context.Context, ownerID, boardID uuid.UUID) error {
	if err := s.boardRepo.Delete(ctx, ownerID, boardID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, ownerID)

	s.logger.LogUserAction(ownerID.String(), "board.delete", map[string]interface{}{"board_id": boardID})
	return nil
}

// LoadBoard returns the board with its lists and cards as three flat
// collections. Lists and cards are fetched concurrently once the board is
// known to belong to the owner.
func (s *BoardService) LoadBoard(ctx context.Context, ownerID, boardID uuid.UUID) (*ports.BoardAggregate, error) {
	board, err := s.boardRepo.GetByID(ctx, ownerID, boardID)
	if err != nil {
		return nil, err
	}

	agg := &ports.BoardAggregate{Board: board}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lists, err := s.listRepo.ListByBoard(gctx, ownerID, boardID)
		if err != nil {
			return err
		}
		agg.Lists = lists
		return nil
	})
	g.Go(func() error {
		cards, err := s.cardRepo.ListByBoard(gctx, ownerID, boardID)
		if err != nil {
			return err
		}
		agg.Cards = cards
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load board: %w", err)
	}

	return agg, nil
}
