package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type teacherHoursReporter interface {
	TeacherHours(ctx context.Context, schoolID, schoolYearID string) ([]models.TeacherHoursRow, error)
}

// ReportHandler serves timetable reports.
type ReportHandler struct {
	service teacherHoursReporter
}

// NewReportHandler builds a new handler.
func NewReportHandler(service teacherHoursReporter) *ReportHandler {
	return &ReportHandler{service: service}
}

// TeacherHours godoc
// @Summary Hours planned and missing per teacher quota
// @Tags Reports
// @Produce json
// @Param schoolYearId query string true "School year ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/teacher-hours [get]
func (h *ReportHandler) TeacherHours(c *gin.Context) {
	schoolID, ok := schoolFromContext(c)
	if !ok {
		return
	}
	rows, err := h.service.TeacherHours(c.Request.Context(), schoolID, c.Query("schoolYearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil, map[string]interface{}{"count": len(rows)})
}
