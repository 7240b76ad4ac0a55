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

type assignmentService interface {
	Create(ctx context.Context, schoolID string, req dto.CreateAssignmentRequest) (*models.Assignment, error)
	Get(ctx context.Context, schoolID, id string) (*models.Assignment, error)
	Delete(ctx context.Context, schoolID, id string) error
	TeacherAssignments(ctx context.Context, schoolID, teacherID string, query dto.TeacherAssignmentsQuery) ([]models.AssignmentView, error)
}

// AssignmentHandler manages single lectures.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler builds a new handler.
func NewAssignmentHandler(service assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: service}
}

// Create godoc
// @Summary Create an assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	schoolID, ok := schoolFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := h.service.Create(c.Request.Context(), schoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Get godoc
// @Summary Get an assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	schoolID, ok := schoolFromContext(c)
	if !ok {
		return
	}
	assignment, err := h.service.Get(c.Request.Context(), schoolID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Delete godoc
// @Summary Delete an assignment
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	schoolID, ok := schoolFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), schoolID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// TeacherAssignments godoc
// @Summary List a teacher's lectures in a school year
// @Description Absent lectures are left out. Each lecture carries the hour slot of its course's group and every slot it overlaps.
// @Tags Assignments
// @Produce json
// @Param id path string true "Teacher ID"
// @Param schoolYearId query string true "School year ID"
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teachers/{id}/assignments [get]
func (h *AssignmentHandler) TeacherAssignments(c *gin.Context) {
	schoolID, ok := schoolFromContext(c)
	if !ok {
		return
	}
	var query dto.TeacherAssignmentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query"))
		return
	}
	views, err := h.service.TeacherAssignments(c.Request.Context(), schoolID, c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil, map[string]interface{}{"count": len(views)})
}
