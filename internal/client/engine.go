package client

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/domain/ordering"
	"github.com/taskmaster/kanban/internal/infrastructure/logger"
)

// Notice is a user-visible outcome of an action
type Notice struct {
	Failed  bool
	Message string
}

// Notifier receives notices. It may be called from any goroutine.
type Notifier func(Notice)

// Location is a slot in a list: the list and the index among its cards
type Location struct {
	ListID uuid.UUID
	Index  int
}

// Drop describes a finished card drag. A nil Destination means the card was
// dropped outside any list.
type Drop struct {
	Source      Location
	Destination *Location
}

// Pending is the remote half of an optimistic change
type Pending struct {
	done chan struct{}
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func resolved(err error) *Pending {
	p := newPending()
	p.finish(err)
	return p
}

func (p *Pending) finish(err error) {
	p.err = err
	close(p.done)
}

// Done is closed once the server call and any recovery have finished
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the change settles and returns the server error, if any
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	// ErrNotLoaded is returned by actions before the first successful Load
	ErrNotLoaded = errors.New("board is not loaded")
	// ErrBlankName is returned when a list name or card title is empty after trimming
	ErrBlankName = errors.New("name must not be blank")
)

// Engine keeps an optimistic copy of one board. Moves are applied locally
// first and then sent to the server; a failed send is recovered by
// refetching from the server. Overlapping gestures are not serialized.
type Engine struct {
	api     *Client
	boardID uuid.UUID
	notify  Notifier
	logger  *logger.Logger

	state atomic.Pointer[Snapshot]
}

// NewEngine creates an engine for boardID. notify may be nil.
func NewEngine(api *Client, boardID uuid.UUID, notify Notifier, log *logger.Logger) *Engine {
	if notify == nil {
		notify = func(Notice) {}
	}
	if log == nil {
		log = logger.NewNop()
	}

	e := &Engine{
		api:     api,
		boardID: boardID,
		notify:  notify,
		logger:  log.WithComponent("reorder-engine").WithFields("board_id", boardID.String()),
	}
	e.state.Store(&Snapshot{})
	return e
}

// Snapshot returns the current local state
func (e *Engine) Snapshot() *Snapshot {
	return e.state.Load()
}

// update applies fn to the current snapshot until it wins the swap
func (e *Engine) update(fn func(cur *Snapshot) *Snapshot) *Snapshot {
	for {
		cur := e.state.Load()
		next := fn(cur)
		if e.state.CompareAndSwap(cur, next) {
			return next
		}
	}
}

func (e *Engine) fail(message string, err error) {
	e.logger.Warnw(message, "error", err)
	e.notify(Notice{Failed: true, Message: message})
}

func (e *Engine) ok(message string) {
	e.notify(Notice{Message: message})
}

// Load fetches the board, its lists and its cards concurrently and replaces
// the local state.
func (e *Engine) Load(ctx context.Context) error {
	var (
		board *entities.Board
		lists []entities.List
		cards []entities.Card
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		board, err = e.api.Board(gctx, e.boardID)
		return err
	})
	g.Go(func() (err error) {
		lists, err = e.api.Lists(gctx, e.boardID)
		return err
	})
	g.Go(func() (err error) {
		cards, err = e.api.Cards(gctx, e.boardID)
		return err
	})
	if err := g.Wait(); err != nil {
		e.fail("Failed to load board", err)
		return err
	}

	e.state.Store(&Snapshot{Board: board, Lists: lists, Cards: cards})
	return nil
}

// MoveList moves the list at index src of the position-ordered lists to
// index dst. Every list is relabeled and the whole order is sent in one
// request.
func (e *Engine) MoveList(ctx context.Context, src, dst int) *Pending {
	if src == dst {
		return resolved(nil)
	}

	var (
		assignments []ordering.Assignment
		moved       bool
	)
	e.update(func(cur *Snapshot) *Snapshot {
		ordered, ok := ordering.Move(cur.SortedLists(), src, dst)
		moved = ok
		if !ok {
			return cur
		}

		assignments = ordering.Relabel(ordered, func(l entities.List) string { return l.ID.String() })
		for i := range ordered {
			ordered[i].Position = assignments[i].Position
		}

		next := cur.clone()
		next.Lists = ordered
		return next
	})
	if !moved {
		return resolved(nil)
	}

	p := newPending()
	go func() {
		err := e.api.ReorderLists(ctx, e.boardID, assignments)
		if err != nil {
			e.recoverLists(ctx)
			e.fail("Reorder failed", err)
		}
		p.finish(err)
	}()
	return p
}

// MoveCard applies a card drop. The source and destination lists are
// relabeled independently and every card of both is sent in one request.
// A drop onto a list that is not on the board is ignored.
func (e *Engine) MoveCard(ctx context.Context, drop Drop) *Pending {
	if drop.Destination == nil {
		return resolved(nil)
	}
	from, to := drop.Source, *drop.Destination
	if from == to {
		return resolved(nil)
	}

	var (
		batch []CardPosition
		moved bool
	)
	e.update(func(cur *Snapshot) *Snapshot {
		if _, ok := cur.List(to.ListID); !ok {
			moved = false
			return cur
		}
		fromCards := cur.CardsFor(from.ListID)
		if from.Index < 0 || from.Index >= len(fromCards) {
			moved = false
			return cur
		}
		moved = true

		card := fromCards[from.Index]
		remaining := append(append([]entities.Card(nil), fromCards[:from.Index]...), fromCards[from.Index+1:]...)

		var relabeled []entities.Card
		card.ListID = to.ListID
		if from.ListID == to.ListID {
			relabeled = relabelCards(ordering.Insert(remaining, to.Index, card))
		} else {
			relabeled = append(relabelCards(remaining), relabelCards(ordering.Insert(cur.CardsFor(to.ListID), to.Index, card))...)
		}

		next := cur.clone()
		next.Cards = next.Cards[:0]
		for _, c := range cur.Cards {
			if c.ListID != from.ListID && c.ListID != to.ListID {
				next.Cards = append(next.Cards, c)
			}
		}
		next.Cards = append(next.Cards, relabeled...)

		batch = make([]CardPosition, len(relabeled))
		for i, c := range relabeled {
			batch[i] = CardPosition{CardID: c.ID, ListID: c.ListID, Position: c.Position}
		}
		return next
	})
	if !moved {
		return resolved(nil)
	}

	p := newPending()
	go func() {
		err := e.api.ReorderCards(ctx, e.boardID, batch)
		if err != nil {
			e.recoverBoard(ctx)
			e.fail("Reorder failed", err)
		}
		p.finish(err)
	}()
	return p
}

// relabelCards returns copies of cards with positions 1*Gap, 2*Gap, ...
func relabelCards(cards []entities.Card) []entities.Card {
	out := make([]entities.Card, len(cards))
	for i, c := range cards {
		c.Position = ordering.PositionAt(i)
		out[i] = c
	}
	return out
}

// recoverLists replaces the local lists with the server's. A failed refetch
// leaves the optimistic state in place.
func (e *Engine) recoverLists(ctx context.Context) {
	lists, err := e.api.Lists(ctx, e.boardID)
	if err != nil {
		e.logger.Warnw("Refetch after failed reorder failed", "error", err)
		return
	}
	e.update(func(cur *Snapshot) *Snapshot {
		next := cur.clone()
		next.Lists = lists
		return next
	})
}

// recoverBoard replaces the local lists and cards with the server's
func (e *Engine) recoverBoard(ctx context.Context) {
	var (
		lists []entities.List
		cards []entities.Card
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		lists, err = e.api.Lists(gctx, e.boardID)
		return err
	})
	g.Go(func() (err error) {
		cards, err = e.api.Cards(gctx, e.boardID)
		return err
	})
	if err := g.Wait(); err != nil {
		e.logger.Warnw("Refetch after failed reorder failed", "error", err)
		return
	}

	e.update(func(cur *Snapshot) *Snapshot {
		next := cur.clone()
		next.Lists = lists
		next.Cards = cards
		return next
	})
}

// Board actions

// RenameBoard renames the board. Blank or unchanged titles are ignored.
func (e *Engine) RenameBoard(ctx context.Context, title string) error {
	cur := e.Snapshot()
	if cur.Board == nil {
		return ErrNotLoaded
	}
	title = strings.TrimSpace(title)
	if title == "" || title == cur.Board.Title {
		return nil
	}

	board, err := e.api.RenameBoard(ctx, e.boardID, title)
	if err != nil {
		e.fail("Rename failed", err)
		return err
	}

	e.update(func(cur *Snapshot) *Snapshot {
		next := cur.clone()
		next.Board = board
		return next
	})
	e.ok("Board renamed")
	return nil
}

// DeleteBoard deletes the board and clears the local state
func (e *Engine) DeleteBoard(ctx context.Context) error {
	if err := e.api.DeleteBoard(ctx, e.boardID); err != nil {
		e.fail("Delete failed", err)
		return err
	}

	e.state.Store(&Snapshot{})
	e.ok("Board deleted")
	return nil
}

// List actions

// AddList appends a list after the current last one. A blank name sends
// nothing and returns ErrBlankName.
func (e *Engine) AddList(ctx context.Context, name string) (*entities.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrBlankName
	}

	position := ordering.NextAppendPosition(e.Snapshot().listPositions())
	list, err := e.api.CreateList(ctx, e.boardID, name, position)
	if err != nil {
		e.fail("Failed to add list", err)
		return nil, err
	}

	e.update(func(cur *Snapshot) *Snapshot {
		next := cur.clone()
		next.Lists = append(next.Lists, *list)
		return next
	})
	e.ok("List added")
	return list, nil
}

// RenameList renames a list. Blank names are ignored.
func (e *Engine) RenameList(ctx context.Context, listID uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	list, err := e.api.RenameList(ctx, listID, name)
	if err != nil {
		e.fail("Rename failed", err)
		return err
	}

	e.update(func(cur *Snapshot) *Snapshot {
		next := cur.clone()
		for i := range next.Lists {
			if next.Lists[i].ID == listID {
				next.Lists[i] = *list
			}
		}
		return next
	})
	e.ok("List renamed")
	return nil
}

// DeleteList deletes a list and drops its cards locally
func (e *Engine) DeleteList(ctx context.Context, listID uuid.UUID) error {
	if err := e.api.DeleteList(ctx, listID); err != nil {
		e.fail("Delete failed", err)
		return err
	}

	e.update(func(cur *Snapshot) *Snapshot {
		next := &Snapshot{Board: cur.Board}
		for _, l := range cur.Lists {
			if l.ID != listID {
				next.Lists = append(next.Lists, l)
			}
		}
		for _, c := range cur.Cards {
			if c.ListID != listID {
				next.Cards = append(next.Cards, c)
			}
		}
		return next
	})
	e.ok("List deleted")
	return nil
}

// Card actions

// AddCard appends a card to the end of a list. A blank title sends nothing
// and returns ErrBlankName.
func (e *Engine) AddCard(ctx context.Context, listID uuid.UUID, title string) (*entities.Card, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrBlankName
	}

	position := ordering.NextAppendPosition(e.Snapshot().cardPositions(listID))
	card, err := e.api.CreateCard(ctx, e.boardID, listID, title, position)
	if err != nil {
		e.fail("Failed to add card", err)
		return nil, err
	}

	e.update(func(cur *Snapshot) *Snapshot {
		next := cur.clone()
		next.Cards = append(next.Cards, *card)
		return next
	})
	e.ok("Card added")
	return card, nil
}

// RenameCard retitles a card. Blank titles are ignored.
func (e *Engine) RenameCard(ctx context.Context, cardID uuid.UUID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	card, err := e.api.RenameCard(ctx, cardID, title)
	if err != nil {
		e.fail("Rename failed", err)
		return err
	}

	e.update(func(cur *Snapshot) *Snapshot {
		next := cur.clone()
		for i := range next.Cards {
			if next.Cards[i].ID == cardID {
				next.Cards[i] = *card
			}
		}
		return next
	})
	e.ok("Card renamed")
	return nil
}

// DeleteCard deletes a card
func (e *Engine) DeleteCard(ctx context.Context, cardID uuid.UUID) error {
	if err := e.api.DeleteCard(ctx, cardID); err != nil {
		e.fail("Delete failed", err)
		return err
	}

	e.update(func(cur *Snapshot) *Snapshot {
		next := &Snapshot{Board: cur.Board, Lists: cur.Lists}
		for _, c := range cur.Cards {
			if c.ID != cardID {
				next.Cards = append(next.Cards, c)
			}
		}
		return next
	})
	e.ok("Card deleted")
	return nil
}
