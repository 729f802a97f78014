package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/domain/ordering"
)

// AuthService interface for authentication operations
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	CurrentUser(ctx context.Context, userID uuid.UUID) (*entities.User, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// BoardService interface for board operations and the board aggregate
type BoardService interface {
	CreateBoard(ctx context.Context, ownerID uuid.UUID, req CreateBoardRequest) (*entities.Board, error)
	GetBoard(ctx context.Context, ownerID, boardID uuid.UUID) (*entities.Board, error)
	ListBoards(ctx context.Context, ownerID uuid.UUID) ([]*entities.Board, error)
	RenameBoard(ctx context.Context, ownerID, boardID uuid.UUID, req RenameBoardRequest) (*entities.Board, error)
	DeleteBoard(ctx context.Context, ownerID, boardID uuid.UUID) error
	LoadBoard(ctx context.Context, ownerID, boardID uuid.UUID) (*BoardAggregate, error)
}

// ListService interface for list operations
type ListService interface {
	CreateList(ctx context.Context, ownerID uuid.UUID, req CreateListRequest) (*entities.List, error)
	ListsByBoard(ctx context.Context, ownerID, boardID uuid.UUID) ([]*entities.List, error)
	RenameList(ctx context.Context, ownerID, listID uuid.UUID, req RenameListRequest) (*entities.List, error)
	DeleteList(ctx context.Context, ownerID, listID uuid.UUID) error
}

// CardService interface for card operations
type CardService interface {
	CreateCard(ctx context.Context, ownerID uuid.UUID, req CreateCardRequest) (*entities.Card, error)
	CardsByBoard(ctx context.Context, ownerID, boardID uuid.UUID) ([]*entities.Card, error)
	RenameCard(ctx context.Context, ownerID, cardID uuid.UUID, req RenameCardRequest) (*entities.Card, error)
	DeleteCard(ctx context.Context, ownerID, cardID uuid.UUID) error
}

// ReorderService applies bulk position updates scoped to one board
type ReorderService interface {
	ReorderLists(ctx context.Context, ownerID uuid.UUID, req ReorderListsRequest) error
	ReorderCards(ctx context.Context, ownerID uuid.UUID, req ReorderCardsRequest) error
}

// Auth related types
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken  string         `json:"token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in"`
	User         *entities.User `json:"user"`
}

// Claims is the verified content of an access token
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Board related types
type CreateBoardRequest struct {
	Title string `json:"title" validate:"max=200"`
}

type RenameBoardRequest struct {
	Title string `json:"title" validate:"max=200"`
}

// BoardAggregate is a board with its lists and cards as flat collections.
// Cards join to lists by ListID; nothing is nested.
type BoardAggregate struct {
	Board *entities.Board  `json:"board"`
	Lists []*entities.List `json:"lists"`
	Cards []*entities.Card `json:"cards"`
}

// List related types
type CreateListRequest struct {
	BoardID  string             `json:"boardId" validate:"required,uuid"`
	Name     string             `json:"name" validate:"max=200"`
	Position *ordering.Position `json:"position"`
}

type RenameListRequest struct {
	Name string `json:"name" validate:"max=200"`
}

// Card related types
type CreateCardRequest struct {
	BoardID  string             `json:"boardId" validate:"required,uuid"`
	ListID   string             `json:"listId" validate:"required,uuid"`
	Title    string             `json:"title" validate:"max=500"`
	Position *ordering.Position `json:"position"`
}

type RenameCardRequest struct {
	Title string `json:"title" validate:"max=500"`
}

// Reorder related types

// ReorderListsRequest is the body of PATCH /lists/reorder
type ReorderListsRequest struct {
	BoardID string          `json:"boardId" validate:"required,uuid"`
	Items   []ListOrderItem `json:"items" validate:"required,dive"`
}

type ListOrderItem struct {
	ListID   string             `json:"listId" validate:"required,uuid"`
	Position *ordering.Position `json:"position"`
}

// ReorderCardsRequest is the body of PATCH /cards/reorder
type ReorderCardsRequest struct {
	BoardID string          `json:"boardId" validate:"required,uuid"`
	Items   []CardOrderItem `json:"items" validate:"required,dive"`
}

type CardOrderItem struct {
	CardID   string             `json:"cardId" validate:"required,uuid"`
	ListID   string             `json:"listId" validate:"required,uuid"`
	Position *ordering.Position `json:"position"`
}

// PositionOrDefault returns the coerced position, or the default gap value
// when the item carried none.
func PositionOrDefault(p *ordering.Position) int64 {
	if p == nil {
		return ordering.DefaultPosition
	}
	return p.Int64()
}

// Common response types
type OKResponse struct {
	OK bool `json:"ok"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
