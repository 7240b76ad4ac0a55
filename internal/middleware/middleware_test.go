package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type validatorStub map[string]*models.JWTClaims

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type observerStub struct {
	paths    []string
	statuses []int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.paths = append(o.paths, path)
	o.statuses = append(o.statuses, status)
}

func newScopedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := validatorStub{
		"admin": {UserID: "u1", Role: models.RoleAdminSchool, SchoolID: "s1"},
		"root":  {UserID: "u0", Role: models.RoleSuperAdmin},
		"prof":  {UserID: "u2", Role: models.RoleTeacher, SchoolID: "s1"},
	}
	r := gin.New()
	r.Use(JWT(tokens), RequireRoles(models.RoleAdminSchool, models.RoleSuperAdmin), SchoolScope())
	r.GET("/school", func(c *gin.Context) { c.String(http.StatusOK, SchoolID(c)) })
	return r
}

func serve(r http.Handler, token string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/school", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSchoolScopeFromClaims(t *testing.T) {
	r := newScopedRouter()

	rec := serve(r, "admin", map[string]string{SchoolHeader: "s9"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1", rec.Body.String())

	rec = serve(r, "root", map[string]string{SchoolHeader: "s9"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s9", rec.Body.String())

	rec = serve(r, "root", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestJWTAndRoles(t *testing.T) {
	r := newScopedRouter()

	assert.Equal(t, http.StatusUnauthorized, serve(r, "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "forged", nil).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, "prof", nil).Code)
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("bearer  abc ")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok = bearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = bearerToken("Bearer")
	assert.False(t, ok)
}

func TestMetricsAndFeature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &observerStub{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/on", Feature("reports", true), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/off", Feature("substitutions", false), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/on", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reports", rec.Header().Get(FeatureHeader))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/off", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, []string{"/on", "/off", "unmatched"}, observer.paths)
	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound, http.StatusNotFound}, observer.statuses)
}
