package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type replicationService interface {
	Check(ctx context.Context, schoolID string, req dto.ReplicationRequest) (*models.ReplicationResult, error)
	Replicate(ctx context.Context, schoolID string, req dto.ReplicationRequest) (*models.ReplicationResult, error)
}

// ReplicationHandler exposes week replication endpoints.
type ReplicationHandler struct {
	service replicationService
}

// NewReplicationHandler builds a new handler.
func NewReplicationHandler(service replicationService) *ReplicationHandler {
	return &ReplicationHandler{service: service}
}

// Check godoc
// @Summary Dry-run a week replication
// @Description Reports the course, teacher and room conflicts replicating the assignments would cause. Nothing is written.
// @Tags Replication
// @Accept json
// @Produce json
// @Param payload body dto.ReplicationRequest true "Replication payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /replications/check [post]
func (h *ReplicationHandler) Check(c *gin.Context) {
	schoolID, ok := schoolFromContext(c)
	if !ok {
		return
	}
	var req dto.ReplicationRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Check(c.Request.Context(), schoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Replicate godoc
// @Summary Replicate a week of assignments
// @Description Copies the assignments onto every matching weekday of the range. Responds 409 with the conflicts when any exist.
// @Tags Replication
// @Accept json
// @Produce json
// @Param payload body dto.ReplicationRequest true "Replication payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /replications [post]
func (h *ReplicationHandler) Replicate(c *gin.Context) {
	schoolID, ok := schoolFromContext(c)
	if !ok {
		return
	}
	var req dto.ReplicationRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Replicate(c.Request.Context(), schoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Conflicts.Empty() {
		response.ErrorWithData(c, appErrors.ErrReplicationConflict, result.Conflicts)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil, map[string]interface{}{
		"created": len(result.Created),
		"deleted": result.Deleted,
	})
}
