package client

import (
	"sort"

	"github.com/google/uuid"

	"github.com/taskmaster/kanban/internal/domain/entities"
)

// Snapshot is the local copy of one board. It is never mutated in place;
// every change produces a new Snapshot.
type Snapshot struct {
	Board *entities.Board
	Lists []entities.List
	Cards []entities.Card
}

// SortedLists returns the lists ordered by position. Ties keep their
// current relative order.
func (s *Snapshot) SortedLists() []entities.List {
	out := make([]entities.List, len(s.Lists))
	copy(out, s.Lists)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// CardsFor returns the cards of one list ordered by position
func (s *Snapshot) CardsFor(listID uuid.UUID) []entities.Card {
	var out []entities.Card
	for _, c := range s.Cards {
		if c.ListID == listID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// List looks up a list by id
func (s *Snapshot) List(id uuid.UUID) (entities.List, bool) {
	for _, l := range s.Lists {
		if l.ID == id {
			return l, true
		}
	}
	return entities.List{}, false
}

func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{Board: s.Board}
	next.Lists = append([]entities.List(nil), s.Lists...)
	next.Cards = append([]entities.Card(nil), s.Cards...)
	return next
}

func (s *Snapshot) listPositions() []int64 {
	out := make([]int64, len(s.Lists))
	for i, l := range s.Lists {
		out[i] = l.Position
	}
	return out
}

func (s *Snapshot) cardPositions(listID uuid.UUID) []int64 {
	var out []int64
	for _, c := range s.Cards {
		if c.ListID == listID {
			out = append(out, c.Position)
		}
	}
	return out
}
