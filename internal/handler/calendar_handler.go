package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type exclusionService interface {
	Explain(ctx context.Context, schoolID, schoolYearID, courseID string, date time.Time) (*models.Exclusion, error)
}

// CalendarHandler answers calendar exclusion lookups.
type CalendarHandler struct {
	service exclusionService
}

// NewCalendarHandler builds a new handler.
func NewCalendarHandler(service exclusionService) *CalendarHandler {
	return &CalendarHandler{service: service}
}

// Exclusion godoc
// @Summary Check whether a date is closed for scheduling
// @Tags Calendar
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param schoolYearId query string false "Restrict holidays to a school year"
// @Param courseId query string false "Also consider the course's stages"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calendar/exclusions [get]
func (h *CalendarHandler) Exclusion(c *gin.Context) {
	schoolID, ok := schoolFromContext(c)
	if !ok {
		return
	}
	var query dto.ExclusionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query"))
		return
	}
	date, err := time.Parse("2006-01-02", query.Date)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be a YYYY-MM-DD date"))
		return
	}
	exclusion, err := h.service.Explain(c.Request.Context(), schoolID, query.SchoolYearID, query.CourseID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exclusion, nil)
}
