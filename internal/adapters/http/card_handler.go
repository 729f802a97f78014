package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/infrastructure/logger"
	"github.com/taskmaster/kanban/internal/ports"
)

// CardHandler handles card requests including the bulk reorder
type CardHandler struct {
	cardService    ports.CardService
	reorderService ports.ReorderService
	logger         *logger.Logger
}

// NewCardHandler creates a new card handler
func NewCardHandler(cardService ports.CardService, reorderService ports.ReorderService, logger *logger.Logger) *CardHandler {
	return &CardHandler{
		cardService:    cardService,
		reorderService: reorderService,
		logger:         logger,
	}
}

type cardResponse struct {
	Card *entities.Card `json:"card"`
}

type cardsResponse struct {
	Cards []*entities.Card `json:"cards"`
}

// CardsByBoard godoc
// @Summary All cards of a board ordered by position
// @Tags cards
// @Produce json
// @Param boardId path string true "Board ID"
// @Success 200 {object} cardsResponse
// @Security BearerAuth
// @Router /cards/board/{boardId} [get]
func (h *CardHandler) CardsByBoard(c echo.Context) error {
	boardID, err := parseIDParam(c, "boardId")
	if err != nil {
		return err
	}

	cards, err := h.cardService.CardsByBoard(c.Request().Context(), getUserIDFromContext(c), boardID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, cardsResponse{Cards: cards})
}

// CreateCard godoc
// @Summary Create a card
// @Description Without a position the card is appended to its list
// @Tags cards
// @Accept json
// @Produce json
// @Param request body ports.CreateCardRequest true "Card data"
// @Success 201 {object} cardResponse
// @Failure 400 {object} MessageResponse
// @Failure 404 {object} MessageResponse
// @Security BearerAuth
// @Router /cards [post]
func (h *CardHandler) CreateCard(c echo.Context) error {
	var req ports.CreateCardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	card, err := h.cardService.CreateCard(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, cardResponse{Card: card})
}

// RenameCard godoc
// @Summary Rename a card
// @Tags cards
// @Accept json
// @Produce json
// @Param id path string true "Card ID"
// @Param request body ports.RenameCardRequest true "New title"
// @Success 200 {object} cardResponse
// @Failure 400 {object} MessageResponse
// @Failure 404 {object} MessageResponse
// @Security BearerAuth
// @Router /cards/{id} [patch]
func (h *CardHandler) RenameCard(c echo.Context) error {
	cardID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.RenameCardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	card, err := h.cardService.RenameCard(c.Request().Context(), getUserIDFromContext(c), cardID, req)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, cardResponse{Card: card})
}

// DeleteCard godoc
// @Summary Delete a card
// @Tags cards
// @Produce json
// @Param id path string true "Card ID"
// @Success 200 {object} ports.OKResponse
// @Failure 404 {object} MessageResponse
// @Security BearerAuth
// @Router /cards/{id} [delete]
func (h *CardHandler) DeleteCard(c echo.Context) error {
	cardID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.cardService.DeleteCard(c.Request().Context(), getUserIDFromContext(c), cardID); err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, ports.OKResponse{OK: true})
}

// ReorderCards godoc
// @Summary Move and reorder cards within a board
// @Description Each item sets list, board and position of one card. Items that match no card of the caller are ignored; the response is always ok
// @Tags cards
// @Accept json
// @Produce json
// @Param request body ports.ReorderCardsRequest true "New placements"
// @Success 200 {object} ports.OKResponse
// @Failure 400 {object} MessageResponse
// @Security BearerAuth
// @Router /cards/reorder [patch]
func (h *CardHandler) ReorderCards(c echo.Context) error {
	var req ports.ReorderCardsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.reorderService.ReorderCards(c.Request().Context(), getUserIDFromContext(c), req); err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, ports.OKResponse{OK: true})
}
