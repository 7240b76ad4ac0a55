package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type assignmentStore interface {
	LockSchool(ctx context.Context, exec sqlx.ExtContext, schoolID string) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Assignment, error)
	FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.Assignment, error)
	List(ctx context.Context, exec sqlx.ExtContext, filter models.AssignmentFilter) ([]models.Assignment, error)
	Create(ctx context.Context, exec sqlx.ExtContext, a *models.Assignment) error
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, rows []models.Assignment) error
	MarkAbsent(ctx context.Context, exec sqlx.ExtContext, id string) error
	DeleteInRange(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string, courseIDs []string, from, to time.Time, keep []string) (int64, error)
	Delete(ctx context.Context, id string) error
	CountSubstitutionsByTeacher(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string) (map[string]int, error)
}

type roomReader interface {
	ListRooms(ctx context.Context, exec sqlx.ExtContext, ids []string) (map[string]models.Room, error)
}

type exclusionCalendarLoader interface {
	Calendar(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string, courseIDs []string, from, to time.Time) (*ExclusionCalendar, error)
}

// ReplicationService copies a week of lectures onto a date range.
type ReplicationService struct {
	assignments  assignmentStore
	rooms        roomReader
	calendar     exclusionCalendarLoader
	tx           txProvider
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	maxRangeDays int
}

// NewReplicationService constructs the service. maxRangeDays <= 0 disables the range cap.
func NewReplicationService(assignments assignmentStore, rooms roomReader, calendar exclusionCalendarLoader, tx txProvider, metrics *MetricsService, maxRangeDays int, validate *validator.Validate, logger *zap.Logger) *ReplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplicationService{
		assignments:  assignments,
		rooms:        rooms,
		calendar:     calendar,
		tx:           tx,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		maxRangeDays: maxRangeDays,
	}
}

// Check classifies the replication without writing anything.
func (s *ReplicationService) Check(ctx context.Context, schoolID string, req dto.ReplicationRequest) (*models.ReplicationResult, error) {
	return s.run(ctx, schoolID, req, true)
}

// Replicate performs the replication. When the returned result carries
// conflicts nothing was created or deleted.
func (s *ReplicationService) Replicate(ctx context.Context, schoolID string, req dto.ReplicationRequest) (*models.ReplicationResult, error) {
	return s.run(ctx, schoolID, req, false)
}

func (s *ReplicationService) run(ctx context.Context, schoolID string, req dto.ReplicationRequest, dryRun bool) (*models.ReplicationResult, error) {
	params, err := s.parse(schoolID, req)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	result := &models.ReplicationResult{DryRun: dryRun, Created: []models.Assignment{}}
	opts := serializableTx
	if dryRun {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable, ReadOnly: true}
	}

	err = runInTx(ctx, s.tx, opts, func(tx *sqlx.Tx) error {
		if !dryRun {
			if err := s.assignments.LockSchool(ctx, tx, schoolID); err != nil {
				return internalError(err, "failed to lock school timetable")
			}
		}

		templates, err := s.loadTemplates(ctx, tx, params)
		if err != nil {
			return err
		}
		pool, err := s.assignments.List(ctx, tx, models.AssignmentFilter{
			SchoolID: schoolID,
			DateFrom: &params.From,
			DateTo:   &params.To,
		})
		if err != nil {
			return internalError(err, "failed to load assignments in range")
		}
		rooms, err := s.rooms.ListRooms(ctx, tx, roomIDs(templates))
		if err != nil {
			return internalError(err, "failed to load rooms")
		}

		result.Conflicts = ClassifyConflicts(templates, pool, rooms, !params.RemoveExtraAssignments)
		if dryRun || !result.Conflicts.Empty() || len(templates) == 0 {
			return errDiscard
		}

		if params.RemoveExtraAssignments {
			deleted, err := s.removeExtra(ctx, tx, params, templates)
			if err != nil {
				return err
			}
			result.Deleted = deleted
			pool = withoutRemoved(pool, templates)
		}

		cal, err := s.calendar.Calendar(ctx, tx, schoolID, "", courseIDs(templates), params.From, params.To)
		if err != nil {
			return err
		}
		replicas := buildReplicas(templates, pool, cal, params.From, params.To, params.WithoutSubstitutions)
		if err := s.assignments.BulkCreate(ctx, tx, replicas); err != nil {
			return internalError(err, "failed to create replicated assignments")
		}
		result.Created = replicas
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveReplication(*result, time.Since(started))
	s.logger.Info("week replication",
		zap.String("school_id", schoolID),
		zap.Bool("dry_run", dryRun),
		zap.Int("templates", len(params.TemplateIDs)),
		zap.Time("from", params.From),
		zap.Time("to", params.To),
		zap.Int("teacher_conflicts", len(result.Conflicts.TeacherConflicts)),
		zap.Int("course_conflicts", len(result.Conflicts.CourseConflicts)),
		zap.Int("room_conflicts", len(result.Conflicts.RoomConflicts)),
		zap.Int("created", len(result.Created)),
		zap.Int64("deleted", result.Deleted),
	)
	return result, nil
}

func (s *ReplicationService) parse(schoolID string, req dto.ReplicationRequest) (models.ReplicationRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.ReplicationRequest{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid replication payload")
	}
	from, err := parseISODate(req.From, "from")
	if err != nil {
		return models.ReplicationRequest{}, err
	}
	to, err := parseISODate(req.To, "to")
	if err != nil {
		return models.ReplicationRequest{}, err
	}
	if from.After(to) {
		return models.ReplicationRequest{}, appErrors.Clone(appErrors.ErrInvalidRange, "from must not be after to")
	}
	if days := int(to.Sub(from).Hours()/24) + 1; s.maxRangeDays > 0 && days > s.maxRangeDays {
		return models.ReplicationRequest{}, appErrors.Clone(appErrors.ErrInvalidRange,
			fmt.Sprintf("range spans %d days, at most %d allowed", days, s.maxRangeDays))
	}
	return models.ReplicationRequest{
		SchoolID:               schoolID,
		TemplateIDs:            uniqueStrings(req.AssignmentIDs),
		From:                   from,
		To:                     to,
		WithoutSubstitutions:   req.WithoutSubstitutions,
		RemoveExtraAssignments: req.RemoveExtraAssignments,
	}, nil
}

// loadTemplates fails on unknown ids and on templates of another school
// before any classification happens.
func (s *ReplicationService) loadTemplates(ctx context.Context, exec sqlx.ExtContext, params models.ReplicationRequest) ([]models.Assignment, error) {
	rows, err := s.assignments.FindByIDs(ctx, exec, params.TemplateIDs)
	if err != nil {
		return nil, internalError(err, "failed to load template assignments")
	}
	found := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		found[row.ID] = struct{}{}
		if row.SchoolID != params.SchoolID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another school")
		}
	}
	for _, id := range params.TemplateIDs {
		if _, ok := found[id]; !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("assignment %s not found", id))
		}
	}

	if !params.WithoutSubstitutions {
		return rows, nil
	}
	templates := make([]models.Assignment, 0, len(rows))
	for _, row := range rows {
		if !row.Substitution {
			templates = append(templates, row)
		}
	}
	return templates, nil
}

func (s *ReplicationService) removeExtra(ctx context.Context, exec sqlx.ExtContext, params models.ReplicationRequest, templates []models.Assignment) (int64, error) {
	keep := make([]string, 0, len(templates))
	byYear := make(map[string][]string)
	var years []string
	for _, t := range templates {
		keep = append(keep, t.ID)
		if _, ok := byYear[t.SchoolYearID]; !ok {
			years = append(years, t.SchoolYearID)
		}
		byYear[t.SchoolYearID] = appendUnique(byYear[t.SchoolYearID], t.CourseID)
	}

	var total int64
	for _, year := range years {
		n, err := s.assignments.DeleteInRange(ctx, exec, params.SchoolID, year, byYear[year], params.From, params.To, keep)
		if err != nil {
			return 0, internalError(err, "failed to remove extra assignments")
		}
		total += n
	}
	return total, nil
}

// withoutRemoved drops the rows removeExtra deleted from the in-memory pool.
func withoutRemoved(pool, templates []models.Assignment) []models.Assignment {
	type yearCourse struct{ year, course string }
	cleared := make(map[yearCourse]struct{}, len(templates))
	keep := make(map[string]struct{}, len(templates))
	for _, t := range templates {
		cleared[yearCourse{t.SchoolYearID, t.CourseID}] = struct{}{}
		keep[t.ID] = struct{}{}
	}
	return filterAssignments(pool, func(a models.Assignment) bool {
		if _, ok := keep[a.ID]; ok {
			return true
		}
		_, gone := cleared[yearCourse{a.SchoolYearID, a.CourseID}]
		return !gone
	})
}

// buildReplicas places each template on every date of [from, to] sharing its
// weekday, skipping its own date, excluded dates and dates already holding the
// same lecture. The classifier ignores same-lecture rows, so a replica next to
// one held in another room would double-book the teacher.
func buildReplicas(templates, existing []models.Assignment, cal *ExclusionCalendar, from, to time.Time, withoutSubstitutions bool) []models.Assignment {
	replicas := make([]models.Assignment, 0)
	for _, t := range templates {
		day := t.Weekday()
		for d := firstOnWeekday(from, day); !d.After(to); d = d.AddDate(0, 0, 7) {
			if models.SameDate(d, t.Date) || cal.Excluded(t.SchoolYearID, t.CourseID, d) {
				continue
			}
			if hasLectureOn(existing, t, d) {
				continue
			}
			replica := t.ReplicaOn(d)
			replica.SubstitutedAssignmentID = nil
			if withoutSubstitutions {
				replica.Absent = false
			}
			if containsIdentical(existing, replica) || containsIdentical(replicas, replica) {
				continue
			}
			replicas = append(replicas, replica)
		}
	}
	return replicas
}

func firstOnWeekday(from time.Time, day models.Weekday) time.Time {
	start := models.DateOnly(from)
	return start.AddDate(0, 0, models.WeekdayOf(start).DaysUntil(day))
}

func hasLectureOn(rows []models.Assignment, template models.Assignment, d time.Time) bool {
	for _, row := range rows {
		if models.SameDate(row.Date, d) && template.SameLecture(row) {
			return true
		}
	}
	return false
}

func containsIdentical(rows []models.Assignment, candidate models.Assignment) bool {
	for _, row := range rows {
		if row.Identical(candidate) {
			return true
		}
	}
	return false
}

func roomIDs(rows []models.Assignment) []string {
	var ids []string
	for _, row := range rows {
		if row.HasRoom() {
			ids = appendUnique(ids, *row.RoomID)
		}
	}
	return ids
}

func courseIDs(rows []models.Assignment) []string {
	var ids []string
	for _, row := range rows {
		ids = appendUnique(ids, row.CourseID)
	}
	return ids
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func uniqueStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = appendUnique(out, v)
	}
	return out
}
