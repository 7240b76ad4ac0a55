package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type quotaLister interface {
	ListQuotas(ctx context.Context, schoolID, schoolYearID string) ([]models.TeacherHoursQuota, error)
}

type assignmentLister interface {
	List(ctx context.Context, exec sqlx.ExtContext, filter models.AssignmentFilter) ([]models.Assignment, error)
}

type hourSlotIndexer interface {
	Index(ctx context.Context, groupID string) (*HourSlotIndex, error)
}

// ReportService computes the teacher hours report.
type ReportService struct {
	quotas      quotaLister
	assignments assignmentLister
	slots       hourSlotIndexer
	logger      *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(quotas quotaLister, assignments assignmentLister, slots hourSlotIndexer, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{quotas: quotas, assignments: assignments, slots: slots, logger: logger}
}

type quotaKey struct {
	teacher, course, subject string
}

// TeacherHours returns, per teacher quota of the school year, the hours
// planned so far and the hours still missing. Lectures aligned with a slot of
// the course's bell schedule count for the slot's legal duration.
func (s *ReportService) TeacherHours(ctx context.Context, schoolID, schoolYearID string) ([]models.TeacherHoursRow, error) {
	if schoolYearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schoolYearId is required")
	}

	quotas, err := s.quotas.ListQuotas(ctx, schoolID, schoolYearID)
	if err != nil {
		return nil, internalError(err, "failed to load teacher quotas")
	}
	rows, err := s.assignments.List(ctx, nil, models.AssignmentFilter{SchoolID: schoolID, SchoolYearID: schoolYearID})
	if err != nil {
		return nil, internalError(err, "failed to load assignments")
	}

	byQuota := make(map[quotaKey][]models.Assignment)
	for _, row := range rows {
		key := quotaKey{row.TeacherID, row.CourseID, row.SubjectID}
		byQuota[key] = append(byQuota[key], row)
	}

	indexes := make(map[string]*HourSlotIndex)
	report := make([]models.TeacherHoursRow, 0, len(quotas))
	for _, q := range quotas {
		index, ok := indexes[q.GroupID]
		if !ok {
			if index, err = s.slots.Index(ctx, q.GroupID); err != nil {
				return nil, err
			}
			indexes[q.GroupID] = index
		}

		var normal, substitution, bes, notBes time.Duration
		for _, a := range byQuota[quotaKey{q.TeacherID, q.CourseID, q.SubjectID}] {
			d := index.Duration(a)
			if a.Substitution {
				substitution += d
			}
			if a.Bes {
				bes += d
			} else {
				notBes += d
				if !a.Substitution {
					normal += d
				}
			}
		}

		report = append(report, models.TeacherHoursRow{
			TeacherID:        q.TeacherID,
			FirstName:        q.FirstName,
			LastName:         q.LastName,
			CourseID:         q.CourseID,
			Course:           fmt.Sprintf("%d %s", q.CourseYear, q.CourseSection),
			SubjectID:        q.SubjectID,
			Subject:          q.SubjectName,
			NormalDone:       wholeHours(normal),
			SubstitutionDone: wholeHours(substitution),
			BesDone:          wholeHours(bes),
			MissingHours:     q.Hours - wholeHours(notBes),
			MissingBes:       q.HoursBes - wholeHours(bes),
		})
	}

	s.logger.Debug("teacher hours report built",
		zap.String("school_id", schoolID),
		zap.String("school_year_id", schoolYearID),
		zap.Int("rows", len(report)),
	)
	return report, nil
}

func wholeHours(d time.Duration) int {
	return int(d / time.Hour)
}
