package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

// ContextSchoolKey stores the school every request of the route operates on.
const ContextSchoolKey = "currentSchool"

// SchoolHeader lets a super administrator act on behalf of a school.
const SchoolHeader = "X-School-ID"

// RequireRoles rejects callers whose role is not listed.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// SchoolScope resolves the school of the request. School administrators are
// pinned to the school in their token; super administrators name one through
// the X-School-ID header.
func SchoolScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		schoolID := claims.SchoolID
		if claims.Role == models.RoleSuperAdmin {
			if requested := c.GetHeader(SchoolHeader); requested != "" {
				schoolID = requested
			}
		}
		if schoolID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no school selected"))
			c.Abort()
			return
		}

		c.Set(ContextSchoolKey, schoolID)
		c.Next()
	}
}

// Claims returns the JWT claims stored by JWT.
func Claims(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok && claims != nil
}

// SchoolID returns the school resolved by SchoolScope.
func SchoolID(c *gin.Context) string {
	return c.GetString(ContextSchoolKey)
}
