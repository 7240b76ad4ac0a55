package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

// FeatureHeader names the feature serving the response.
const FeatureHeader = "X-Feature"

// Feature gates a route group behind a configuration flag.
func Feature(name string, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			response.Error(c, appErrors.Clone(appErrors.ErrFeatureDisabled, name+" is disabled"))
			c.Abort()
			return
		}
		c.Writer.Header().Set(FeatureHeader, name)
		c.Next()
	}
}
