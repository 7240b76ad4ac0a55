package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type hourSlotServiceMock struct {
	created dto.CreateHourSlotsRequest
}

func (m *hourSlotServiceMock) GroupIndex(ctx context.Context, schoolID, groupID string) (*dto.HourSlotIndexResponse, error) {
	if groupID == "foreign" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "hour slots group belongs to another school")
	}
	return &dto.HourSlotIndexResponse{
		HourSlotsGroupID: groupID,
		Slots:            []dto.HourSlotIndexEntry{{ID: "h1", HourNumber: 1, StartsAt: "08:00:00", EndsAt: "09:00:00", LegalMinutes: 60}},
	}, nil
}

func (m *hourSlotServiceMock) CreateSlots(ctx context.Context, schoolID string, req dto.CreateHourSlotsRequest) ([]models.HourSlot, error) {
	m.created = req
	return []models.HourSlot{{ID: "h1"}, {ID: "h2"}}, nil
}

type pingerStub struct{ err error }

func (p pingerStub) PingContext(ctx context.Context) error { return p.err }

func TestHourSlotHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &hourSlotServiceMock{}
	h := NewHourSlotHandler(svc)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextSchoolKey, "s1"); c.Next() })
	r.GET("/hour-slots-groups/:id/index", h.Index)
	r.POST("/hour-slots", h.Create)

	rec := doRequest(r, http.MethodGet, "/hour-slots-groups/g1/index", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(r, http.MethodGet, "/hour-slots-groups/foreign/index", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(r, http.MethodPost, "/hour-slots", `{"hourSlotsGroupId":"g1","hourNumber":1,"dayOfWeek":0,"startsAt":"08:00","endsAt":"09:00","legalMinutes":60,"replicateOnDays":[1,2]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []int{1, 2}, svc.created.ReplicateOnDays)
}

func TestMetricsHandlerProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()

	healthy := gin.New()
	h := NewMetricsHandler(metrics, pingerStub{})
	healthy.GET("/health", h.Health)
	healthy.GET("/ready", h.Ready)
	healthy.GET("/metrics/summary", h.Summary)
	healthy.GET("/metrics", h.Prometheus)

	assert.Equal(t, http.StatusOK, doRequest(healthy, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(healthy, http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(healthy, http.MethodGet, "/metrics/summary", "").Code)

	rec := doRequest(healthy, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP")

	down := gin.New()
	down.GET("/ready", NewMetricsHandler(metrics, pingerStub{err: errors.New("connection refused")}).Ready)
	rec = doRequest(down, http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NOT_READY", decode(t, rec).Error.Code)
}
