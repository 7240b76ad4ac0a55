package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

// schoolFromContext returns the school resolved by middleware.SchoolScope,
// writing a 403 when the route was mounted without it.
func schoolFromContext(c *gin.Context) (string, bool) {
	schoolID := middleware.SchoolID(c)
	if schoolID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no school selected"))
		return "", false
	}
	return schoolID, true
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return false
	}
	return true
}
