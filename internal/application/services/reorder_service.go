package services

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/infrastructure/config"
	"github.com/taskmaster/kanban/internal/infrastructure/logger"
	"github.com/taskmaster/kanban/internal/ports"
)

const (
	reorderKindLists = "lists"
	reorderKindCards = "cards"
)

// ReorderService applies bulk position updates for lists and cards.
//
// Every item becomes one independent owner-scoped update. Items that match
// no row (missing, foreign, or on another board) are skipped silently and a
// failing item does not undo the others.
type ReorderService struct {
	listRepo ports.ListRepository
	cardRepo ports.CardRepository
	config   config.ReorderConfig
	metrics  *ReorderMetrics
	logger   *logger.Logger
}

// NewReorderService creates a new reorder service
func NewReorderService(listRepo ports.ListRepository, cardRepo ports.CardRepository, cfg config.ReorderConfig, metrics *ReorderMetrics, logger *logger.Logger) *ReorderService {
	return &ReorderService{
		listRepo: listRepo,
		cardRepo: cardRepo,
		config:   cfg,
		metrics:  metrics,
		logger:   logger.WithComponent("reorder"),
	}
}

// ReorderLists sets the position of each list of the batch
func (s *ReorderService) ReorderLists(ctx context.Context, ownerID uuid.UUID, req ports.ReorderListsRequest) error {
	boardID, err := uuid.Parse(req.BoardID)
	if err != nil {
		return entities.ErrInvalidID
	}
	if err := s.checkSize(len(req.Items)); err != nil {
		return err
	}

	placements := make([]entities.ListPlacement, len(req.Items))
	for i, item := range req.Items {
		listID, err := uuid.Parse(item.ListID)
		if err != nil {
			return entities.ErrInvalidID
		}
		placements[i] = entities.ListPlacement{ListID: listID, Position: ports.PositionOrDefault(item.Position)}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	matched, failed := s.dispatch(ctx, len(placements), func(ctx context.Context, i int) (bool, error) {
		return s.listRepo.SetPosition(ctx, ownerID, boardID, placements[i])
	})

	s.logger.LogReorder(reorderKindLists, ownerID.String(), boardID.String(), len(placements), matched, failed)
	s.metrics.observe(reorderKindLists, len(placements), matched, failed)
	return nil
}

// ReorderCards writes list, board and position of each card of the batch
func (s *ReorderService) ReorderCards(ctx context.Context, ownerID uuid.UUID, req ports.ReorderCardsRequest) error {
	boardID, err := uuid.Parse(req.BoardID)
	if err != nil {
		return entities.ErrInvalidID
	}
	if err := s.checkSize(len(req.Items)); err != nil {
		return err
	}

	placements := make([]entities.CardPlacement, len(req.Items))
	for i, item := range req.Items {
		cardID, err := uuid.Parse(item.CardID)
		if err != nil {
			return entities.ErrInvalidID
		}
		listID, err := uuid.Parse(item.ListID)
		if err != nil {
			return entities.ErrInvalidID
		}
		placements[i] = entities.CardPlacement{
			CardID:   cardID,
			ListID:   listID,
			BoardID:  boardID,
			Position: ports.PositionOrDefault(item.Position),
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	matched, failed := s.dispatch(ctx, len(placements), func(ctx context.Context, i int) (bool, error) {
		return s.cardRepo.Place(ctx, ownerID, placements[i])
	})

	s.logger.LogReorder(reorderKindCards, ownerID.String(), boardID.String(), len(placements), matched, failed)
	s.metrics.observe(reorderKindCards, len(placements), matched, failed)
	return nil
}

func (s *ReorderService) checkSize(n int) error {
	if s.config.MaxItems > 0 && n > s.config.MaxItems {
		return entities.ErrTooManyItems
	}
	return nil
}

// dispatch runs apply for every index concurrently and waits for all of
// them. Once started, a batch runs to completion even if ctx is cancelled.
func (s *ReorderService) dispatch(ctx context.Context, n int, apply func(context.Context, int) (bool, error)) (matched, failed int) {
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group
	if s.config.MaxConcurrency > 0 {
		g.SetLimit(s.config.MaxConcurrency)
	}

	var matchedCount, failedCount atomic.Int64
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			ok, err := apply(ctx, i)
			switch {
			case err != nil:
				failedCount.Add(1)
				s.logger.Errorw("Reorder item failed", "index", i, "error", err)
			case ok:
				matchedCount.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(matchedCount.Load()), int(failedCount.Load())
}
