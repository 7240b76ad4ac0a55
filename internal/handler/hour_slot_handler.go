package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type hourSlotService interface {
	GroupIndex(ctx context.Context, schoolID, groupID string) (*dto.HourSlotIndexResponse, error)
	CreateSlots(ctx context.Context, schoolID string, req dto.CreateHourSlotsRequest) ([]models.HourSlot, error)
}

// HourSlotHandler exposes bell schedule endpoints.
type HourSlotHandler struct {
	service hourSlotService
}

// NewHourSlotHandler builds a new handler.
func NewHourSlotHandler(service hourSlotService) *HourSlotHandler {
	return &HourSlotHandler{service: service}
}

// Index godoc
// @Summary Bell schedule of an hour slots group
// @Tags Hour Slots
// @Produce json
// @Param id path string true "Hour slots group ID"
// @Success 200 {object} response.Envelope
// @Router /hour-slots-groups/{id}/index [get]
func (h *HourSlotHandler) Index(c *gin.Context) {
	schoolID, ok := schoolFromContext(c)
	if !ok {
		return
	}
	index, err := h.service.GroupIndex(c.Request.Context(), schoolID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, index, nil)
}

// Create godoc
// @Summary Create an hour slot, optionally on several days
// @Tags Hour Slots
// @Accept json
// @Produce json
// @Param payload body dto.CreateHourSlotsRequest true "Hour slot payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /hour-slots [post]
func (h *HourSlotHandler) Create(c *gin.Context) {
	schoolID, ok := schoolFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateHourSlotsRequest
	if !bindJSON(c, &req) {
		return
	}
	slots, err := h.service.CreateSlots(c.Request.Context(), schoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slots)
}
