package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskmaster/kanban/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
}

// BoardRepository defines the interface for board data operations.
// Every method is scoped by owner: a board owned by someone else behaves
// exactly like a missing one.
type BoardRepository interface {
	Create(ctx context.Context, board *entities.Board) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*entities.Board, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.Board, error)
	Rename(ctx context.Context, ownerID, id uuid.UUID, title string) (*entities.Board, error)
	// Delete removes the board together with its lists and cards.
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

// ListRepository defines the interface for list data operations
type ListRepository interface {
	Create(ctx context.Context, list *entities.List) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*entities.List, error)
	ListByBoard(ctx context.Context, ownerID, boardID uuid.UUID) ([]*entities.List, error)
	Positions(ctx context.Context, ownerID, boardID uuid.UUID) ([]int64, error)
	Rename(ctx context.Context, ownerID, id uuid.UUID, name string) (*entities.List, error)
	// Delete removes the list together with its cards.
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	// SetPosition updates one list matched by (id, owner, board). It reports
	// whether a row matched.
	SetPosition(ctx context.Context, ownerID, boardID uuid.UUID, p entities.ListPlacement) (bool, error)
}

// CardRepository defines the interface for card data operations
type CardRepository interface {
	Create(ctx context.Context, card *entities.Card) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*entities.Card, error)
	ListByBoard(ctx context.Context, ownerID, boardID uuid.UUID) ([]*entities.Card, error)
	Positions(ctx context.Context, ownerID, listID uuid.UUID) ([]int64, error)
	Rename(ctx context.Context, ownerID, id uuid.UUID, title string) (*entities.Card, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	// Place writes list, board and position of one card matched by
	// (id, owner, board). It reports whether a row matched.
	Place(ctx context.Context, ownerID uuid.UUID, p entities.CardPlacement) (bool, error)
}

// AuthRepository defines the interface for refresh token storage
type AuthRepository interface {
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
	CleanupExpiredTokens(ctx context.Context) error
}

// BoardCache caches the board overview of one owner
type BoardCache interface {
	GetBoards(ctx context.Context, ownerID uuid.UUID) ([]*entities.Board, bool)
	SetBoards(ctx context.Context, ownerID uuid.UUID, boards []*entities.Board)
	Invalidate(ctx context.Context, ownerID uuid.UUID)
}

// RefreshToken represents a refresh token record
type RefreshToken struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	TokenHash string     `json:"token_hash" db:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	RevokedAt *time.Time `json:"revoked_at" db:"revoked_at"`
}

// IsExpired checks if the refresh token is expired
func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// IsRevoked checks if the refresh token is revoked
func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

// IsValid checks if the refresh token is valid
func (rt *RefreshToken) IsValid() bool {
	return !rt.IsExpired() && !rt.IsRevoked()
}
