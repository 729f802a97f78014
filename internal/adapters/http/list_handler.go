package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/infrastructure/logger"
	"github.com/taskmaster/kanban/internal/ports"
)

// ListHandler handles list requests including the bulk reorder
type ListHandler struct {
	listService    ports.ListService
	reorderService ports.ReorderService
	logger         *logger.Logger
}

// NewListHandler creates a new list handler
func NewListHandler(listService ports.ListService, reorderService ports.ReorderService, logger *logger.Logger) *ListHandler {
	return &ListHandler{
		listService:    listService,
		reorderService: reorderService,
		logger:         logger,
	}
}

type listResponse struct {
	List *entities.List `json:"list"`
}

type listsResponse struct {
	Lists []*entities.List `json:"lists"`
}

// ListsByBoard godoc
// @Summary Lists of a board ordered by position
// @Tags lists
// @Produce json
// @Param boardId path string true "Board ID"
// @Success 200 {object} listsResponse
// @Security BearerAuth
// @Router /lists/board/{boardId} [get]
func (h *ListHandler) ListsByBoard(c echo.Context) error {
	boardID, err := parseIDParam(c, "boardId")
	if err != nil {
		return err
	}

	lists, err := h.listService.ListsByBoard(c.Request().Context(), getUserIDFromContext(c), boardID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, listsResponse{Lists: lists})
}

// CreateList godoc
// @Summary Create a list
// @Description Without a position the list is appended after the last one
// @Tags lists
// @Accept json
// @Produce json
// @Param request body ports.CreateListRequest true "List data"
// @Success 201 {object} listResponse
// @Failure 400 {object} MessageResponse
// @Failure 404 {object} MessageResponse
// @Security BearerAuth
// @Router /lists [post]
func (h *ListHandler) CreateList(c echo.Context) error {
	var req ports.CreateListRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	list, err := h.listService.CreateList(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, listResponse{List: list})
}

// RenameList godoc
// @Summary Rename a list
// @Tags lists
// @Accept json
// @Produce json
// @Param id path string true "List ID"
// @Param request body ports.RenameListRequest true "New name"
// @Success 200 {object} listResponse
// @Failure 400 {object} MessageResponse
// @Failure 404 {object} MessageResponse
// @Security BearerAuth
// @Router /lists/{id} [patch]
func (h *ListHandler) RenameList(c echo.Context) error {
	listID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.RenameListRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	list, err := h.listService.RenameList(c.Request().Context(), getUserIDFromContext(c), listID, req)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, listResponse{List: list})
}

// DeleteList godoc
// @Summary Delete a list and its cards
// @Tags lists
// @Produce json
// @Param id path string true "List ID"
// @Success 200 {object} ports.OKResponse
// @Failure 404 {object} MessageResponse
// @Security BearerAuth
// @Router /lists/{id} [delete]
func (h *ListHandler) DeleteList(c echo.Context) error {
	listID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.listService.DeleteList(c.Request().Context(), getUserIDFromContext(c), listID); err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, ports.OKResponse{OK: true})
}

// ReorderLists godoc
// @Summary Set the positions of a board's lists
// @Description Items that match no list of the caller are ignored; the response is always ok
// @Tags lists
// @Accept json
// @Produce json
// @Param request body ports.ReorderListsRequest true "New positions"
// @Success 200 {object} ports.OKResponse
// @Failure 400 {object} MessageResponse
// @Security BearerAuth
// @Router /lists/reorder [patch]
func (h *ListHandler) ReorderLists(c echo.Context) error {
	var req ports.ReorderListsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.reorderService.ReorderLists(c.Request().Context(), getUserIDFromContext(c), req); err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, ports.OKResponse{OK: true})
}
