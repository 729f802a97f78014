package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/ports"
)

// NopBoardCache never stores anything. It is used when redis is disabled.
type NopBoardCache struct{}

// NewNopBoardCache returns a cache that always misses
func NewNopBoardCache() ports.BoardCache {
	return NopBoardCache{}
}

func (NopBoardCache) GetBoards(context.Context, uuid.UUID) ([]*entities.Board, bool) {
	return nil, false
}

func (NopBoardCache) SetBoards(context.Context, uuid.UUID, []*entities.Board) {}

func (NopBoardCache) Invalidate(context.Context, uuid.UUID) {}
