package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/infrastructure/logger"
	"github.com/taskmaster/kanban/internal/ports"
)

// BoardHandler handles board-related requests
type BoardHandler struct {
	boardService ports.BoardService
	logger       *logger.Logger
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(boardService ports.BoardService, logger *logger.Logger) *BoardHandler {
	return &BoardHandler{
		boardService: boardService,
		logger:       logger,
	}
}

type boardResponse struct {
	Board *entities.Board `json:"board"`
}

type boardsResponse struct {
	Boards []*entities.Board `json:"boards"`
}

// ListBoards godoc
// @Summary List the caller's boards
// @Description Boards ordered by most recent update
// @Tags boards
// @Produce json
// @Success 200 {object} boardsResponse
// @Security BearerAuth
// @Router /boards [get]
func (h *BoardHandler) ListBoards(c echo.Context) error {
	userID := getUserIDFromContext(c)

	boards, err := h.boardService.ListBoards(c.Request().Context(), userID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, boardsResponse{Boards: boards})
}

// CreateBoard godoc
// @Summary Create a board
// @Tags boards
// @Accept json
// @Produce json
// @Param request body ports.CreateBoardRequest true "Board data"
// @Success 201 {object} boardResponse
// @Failure 400 {object} MessageResponse
// @Security BearerAuth
// @Router /boards [post]
func (h *BoardHandler) CreateBoard(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.CreateBoardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	board, err := h.boardService.CreateBoard(c.Request().Context(), userID, req)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, boardResponse{Board: board})
}

// GetBoard godoc
// @Summary Get one board
// @Tags boards
// @Produce json
// @Param id path string true "Board ID"
// @Success 200 {object} boardResponse
// @Failure 404 {object} MessageResponse
// @Security BearerAuth
// @Router /boards/{id} [get]
func (h *BoardHandler) GetBoard(c echo.Context) error {
	boardID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	board, err := h.boardService.GetBoard(c.Request().Context(), getUserIDFromContext(c), boardID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, boardResponse{Board: board})
}

// GetFullBoard godoc
// @Summary Get a board with its lists and cards
// @Description Lists and cards are flat collections ordered by position; cards join lists by listId
// @Tags boards
// @Produce json
// @Param id path string true "Board ID"
// @Success 200 {object} ports.BoardAggregate
// @Failure 404 {object} MessageResponse
// @Security BearerAuth
// @Router /boards/{id}/full [get]
func (h *BoardHandler) GetFullBoard(c echo.Context) error {
	boardID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	agg, err := h.boardService.LoadBoard(c.Request().Context(), getUserIDFromContext(c), boardID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, agg)
}

// RenameBoard godoc
// @Summary Rename a board
// @Tags boards
// @Accept json
// @Produce json
// @Param id path string true "Board ID"
// @Param request body ports.RenameBoardRequest true "New title"
// @Success 200 {object} boardResponse
// @Failure 400 {object} MessageResponse
// @Failure 404 {object} MessageResponse
// @Security BearerAuth
// @Router /boards/{id} [patch]
func (h *BoardHandler) RenameBoard(c echo.Context) error {
	boardID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.RenameBoardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	board, err := h.boardService.RenameBoard(c.Request().Context(), getUserIDFromContext(c), boardID, req)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, boardResponse{Board: board})
}

// DeleteBoard godoc
// @Summary Delete a board with all its lists and cards
// @Tags boards
// @Produce json
// @Param id path string true "Board ID"
// @Success 200 {object} ports.OKResponse
// @Failure 404 {object} MessageResponse
// @Security BearerAuth
// @Router /boards/{id} [delete]
func (h *BoardHandler) DeleteBoard(c echo.Context) error {
	boardID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.boardService.DeleteBoard(c.Request().Context(), getUserIDFromContext(c), boardID); err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, ports.OKResponse{OK: true})
}
