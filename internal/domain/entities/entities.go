package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrBoardNotFound   = errors.New("board not found")
	ErrListNotFound    = errors.New("list not found")
	ErrCardNotFound    = errors.New("card not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrInvalidTitle    = errors.New("title must be at least 2 characters")
	ErrInvalidName     = errors.New("name must be at least 2 characters")
	ErrEmptyCardTitle  = errors.New("card title is required")
	ErrInvalidID       = errors.New("invalid identifier")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidPassword = errors.New("invalid credentials")
	ErrTooManyItems    = errors.New("too many items in reorder batch")
)

// MinTitleLength is the minimum trimmed length of board titles and list names.
const MinTitleLength = 2

// User represents an account that owns boards
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Identity is the authenticated caller as seen by the core.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email,omitempty"`
	Name  string    `json:"name,omitempty"`
}

// Board is the top-level container owned by exactly one user
type Board struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OwnerID   uuid.UUID `json:"ownerId" db:"owner_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// List is an ordered column within a board
type List struct {
	ID        uuid.UUID `json:"id" db:"id"`
	BoardID   uuid.UUID `json:"boardId" db:"board_id"`
	OwnerID   uuid.UUID `json:"ownerId" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	Position  int64     `json:"position" db:"position"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Card is a work item that belongs to exactly one list at a time.
// BoardID and OwnerID are denormalized copies of the parent list's values.
type Card struct {
	ID        uuid.UUID `json:"id" db:"id"`
	BoardID   uuid.UUID `json:"boardId" db:"board_id"`
	ListID    uuid.UUID `json:"listId" db:"list_id"`
	OwnerID   uuid.UUID `json:"ownerId" db:"owner_id"`
	Title     string    `json:"title" db:"title"`
	Position  int64     `json:"position" db:"position"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CardPlacement is the full target tuple of a card write. Moving a card
// always sets list, board and position together.
type CardPlacement struct {
	CardID   uuid.UUID
	ListID   uuid.UUID
	BoardID  uuid.UUID
	Position int64
}

// ListPlacement is the position target of a list within its board.
type ListPlacement struct {
	ListID   uuid.UUID
	Position int64
}

// Title rules

// NormalizeBoardTitle trims the title and checks its length.
func NormalizeBoardTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if len([]rune(title)) < MinTitleLength {
		return "", ErrInvalidTitle
	}
	return title, nil
}

// NormalizeListName trims the name and checks its length.
func NormalizeListName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < MinTitleLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// NormalizeCardTitle trims the title; it only has to be non-empty.
func NormalizeCardTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyCardTitle
	}
	return title, nil
}

// PlacementIn returns the write tuple that puts the card into list l at position.
func (c *Card) PlacementIn(l *List, position int64) CardPlacement {
	return CardPlacement{
		CardID:   c.ID,
		ListID:   l.ID,
		BoardID:  l.BoardID,
		Position: position,
	}
}

// Identity returns the public identity of the user.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Name: u.Name}
}
