package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type calendarReader interface {
	ListHolidays(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string, from, to time.Time) ([]models.Holiday, error)
	ListStages(ctx context.Context, exec sqlx.ExtContext, courseIDs []string, from, to time.Time) ([]models.Stage, error)
}

// CalendarExclusionService answers whether a date is closed for scheduling.
type CalendarExclusionService struct {
	repo   calendarReader
	logger *zap.Logger
}

// NewCalendarExclusionService constructs the service.
func NewCalendarExclusionService(repo calendarReader, logger *zap.Logger) *CalendarExclusionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarExclusionService{repo: repo, logger: logger}
}

// IsExcluded reports whether date falls in a holiday of the school (restricted
// to schoolYearID when given) or in a stage of courseID (when given).
func (s *CalendarExclusionService) IsExcluded(ctx context.Context, schoolID, schoolYearID, courseID string, date time.Time) (bool, error) {
	exclusion, err := s.Explain(ctx, schoolID, schoolYearID, courseID, date)
	if err != nil {
		return false, err
	}
	return exclusion.Excluded, nil
}

// Explain returns the holidays and stages covering date.
func (s *CalendarExclusionService) Explain(ctx context.Context, schoolID, schoolYearID, courseID string, date time.Time) (*models.Exclusion, error) {
	day := models.DateOnly(date)
	var courses []string
	if courseID != "" {
		courses = []string{courseID}
	}
	cal, err := s.Calendar(ctx, nil, schoolID, schoolYearID, courses, day, day)
	if err != nil {
		return nil, err
	}

	exclusion := &models.Exclusion{Date: day}
	for _, h := range cal.holidays {
		if h.Contains(day) {
			exclusion.Holidays = append(exclusion.Holidays, h)
		}
	}
	for _, st := range cal.stages[courseID] {
		if st.Contains(day) {
			exclusion.Stages = append(exclusion.Stages, st)
		}
	}
	exclusion.Excluded = len(exclusion.Holidays) > 0 || len(exclusion.Stages) > 0
	return exclusion, nil
}

// Calendar loads every holiday and stage touching [from, to] once, so that
// per-date checks during replication stay in memory.
func (s *CalendarExclusionService) Calendar(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string, courseIDs []string, from, to time.Time) (*ExclusionCalendar, error) {
	holidays, err := s.repo.ListHolidays(ctx, exec, schoolID, schoolYearID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load holidays")
	}
	stages, err := s.repo.ListStages(ctx, exec, courseIDs, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stages")
	}

	cal := &ExclusionCalendar{holidays: holidays, stages: make(map[string][]models.Stage)}
	for _, st := range stages {
		cal.stages[st.CourseID] = append(cal.stages[st.CourseID], st)
	}
	s.logger.Debug("exclusion calendar loaded",
		zap.String("school_id", schoolID),
		zap.Int("holidays", len(holidays)),
		zap.Int("stages", len(stages)),
	)
	return cal, nil
}

// ExclusionCalendar is a materialised view of the closures in a date range.
type ExclusionCalendar struct {
	holidays []models.Holiday
	stages   map[string][]models.Stage
}

// Excluded reports whether a lecture of courseID in schoolYearID may not be
// placed on d. Holidays of other school years are ignored.
func (c *ExclusionCalendar) Excluded(schoolYearID, courseID string, d time.Time) bool {
	if c == nil {
		return false
	}
	for _, h := range c.holidays {
		if h.SchoolYearID == schoolYearID && h.Contains(d) {
			return true
		}
	}
	for _, st := range c.stages[courseID] {
		if st.Contains(d) {
			return true
		}
	}
	return false
}
