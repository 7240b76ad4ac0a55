package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type substitutionService interface {
	Candidates(ctx context.Context, schoolID, assignmentID string) (*models.SubstitutionCandidates, error)
	Substitute(ctx context.Context, schoolID, assignmentID, newTeacherID string) (*models.SubstitutionResult, error)
}

// SubstitutionHandler exposes substitute teacher endpoints.
type SubstitutionHandler struct {
	service substitutionService
}

// NewSubstitutionHandler builds a new handler.
func NewSubstitutionHandler(service substitutionService) *SubstitutionHandler {
	return &SubstitutionHandler{service: service}
}

// Candidates godoc
// @Summary List substitute teachers for an assignment
// @Tags Substitutions
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id}/substitutes [get]
func (h *SubstitutionHandler) Candidates(c *gin.Context) {
	schoolID, ok := schoolFromContext(c)
	if !ok {
		return
	}
	candidates, err := h.service.Candidates(c.Request.Context(), schoolID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

// Apply godoc
// @Summary Substitute the teacher of an assignment
// @Description An eligible teacher marks the original absent. Any other teacher of the school gives a free substitution.
// @Tags Substitutions
// @Produce json
// @Param id path string true "Assignment ID"
// @Param teacherId path string true "Substitute teacher ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assignments/{id}/substitutes/{teacherId} [post]
func (h *SubstitutionHandler) Apply(c *gin.Context) {
	schoolID, ok := schoolFromContext(c)
	if !ok {
		return
	}
	result, err := h.service.Substitute(c.Request.Context(), schoolID, c.Param("id"), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
