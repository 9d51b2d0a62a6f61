package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/soc-console/internal/mockapi"
	"github.com/kube-rca/soc-console/internal/model"
)

// TicketHandler - ticket lifecycle 전이 핸들러
type TicketHandler struct {
	store *mockapi.Store
}

func NewTicketHandler(store *mockapi.Store) *TicketHandler {
	return &TicketHandler{store: store}
}

// Assign godoc
// @Summary Assign a NEW ticket to the caller
// @Tags tickets
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ticket ID"
// @Success 200 {object} model.StatusResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /tickets/{id}/assign [post]
func (h *TicketHandler) Assign(c *gin.Context) {
	h.apply(c, model.TicketAssigned, h.store.Assign)
}

// Start godoc
// @Summary Start work on an ASSIGNED ticket
// @Tags tickets
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ticket ID"
// @Success 200 {object} model.StatusResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /tickets/{id}/start [post]
func (h *TicketHandler) Start(c *gin.Context) {
	h.apply(c, model.TicketInProgress, h.store.Start)
}

// Pause godoc
// @Summary Pause work on an IN_PROGRESS ticket
// @Description The ticket goes back to ASSIGNED.
// @Tags tickets
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ticket ID"
// @Success 200 {object} model.StatusResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /tickets/{id}/pause [post]
func (h *TicketHandler) Pause(c *gin.Context) {
	h.apply(c, model.TicketAssigned, h.store.Pause)
}

// Complete godoc
// @Summary Classify and close an IN_PROGRESS ticket
// @Tags tickets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ticket ID"
// @Param request body model.CompleteTicketRequest true "Classification and notes"
// @Success 200 {object} model.Analysis
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /tickets/{id}/complete [post]
func (h *TicketHandler) Complete(c *gin.Context) {
	var req model.CompleteTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	user := GetAuthUser(c)
	analysis, err := h.store.Complete(c.Param("id"), user.AnalystID, user.Username, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (h *TicketHandler) apply(c *gin.Context, next model.TicketStatus, transition func(ticketID, analystID string) error) {
	user := GetAuthUser(c)
	if err := transition(c.Param("id"), user.AnalystID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: string(next)})
}
