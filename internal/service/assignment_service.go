package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type assignmentTeacherReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Teacher, error)
	FindQuota(ctx context.Context, exec sqlx.ExtContext, teacherID, courseID, subjectID, schoolYearID string) (*models.HoursPerTeacherInClass, error)
}

type catalogReader interface {
	FindCourse(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Course, error)
	FindRoom(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Room, error)
}

type schoolYearSlotLister interface {
	ListBySchoolYear(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string) ([]models.HourSlot, error)
}

// AssignmentService manages single lectures.
type AssignmentService struct {
	assignments assignmentStore
	teachers    assignmentTeacherReader
	catalog     catalogReader
	slots       schoolYearSlotLister
	tx          txProvider
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs the service.
func NewAssignmentService(assignments assignmentStore, teachers assignmentTeacherReader, catalog catalogReader, slots schoolYearSlotLister, tx txProvider, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		assignments: assignments,
		teachers:    teachers,
		catalog:     catalog,
		slots:       slots,
		tx:          tx,
		validator:   validate,
		logger:      logger,
	}
}

// Get returns an assignment of the school.
func (s *AssignmentService) Get(ctx context.Context, schoolID, id string) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "assignment")
	}
	if assignment.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another school")
	}
	return assignment, nil
}

// TeacherAssignments lists the lectures the teacher is present for in a
// school year, each resolved to the hour slot of its course's group and to
// every slot it overlaps.
func (s *AssignmentService) TeacherAssignments(ctx context.Context, schoolID, teacherID string, query dto.TeacherAssignmentsQuery) ([]models.AssignmentView, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher assignments query")
	}
	present := false
	filter := models.AssignmentFilter{
		SchoolID:     schoolID,
		SchoolYearID: query.SchoolYearID,
		TeacherID:    teacherID,
		Absent:       &present,
	}
	if query.From != "" {
		from, err := parseISODate(query.From, "from")
		if err != nil {
			return nil, err
		}
		filter.DateFrom = &from
	}
	if query.To != "" {
		to, err := parseISODate(query.To, "to")
		if err != nil {
			return nil, err
		}
		filter.DateTo = &to
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "from must not be after to")
	}

	teacher, err := s.teachers.FindByID(ctx, nil, teacherID)
	if err != nil {
		return nil, lookupError(err, "teacher")
	}
	if teacher.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher belongs to another school")
	}

	rows, err := s.assignments.List(ctx, nil, filter)
	if err != nil {
		return nil, internalError(err, "failed to load teacher assignments")
	}
	slots, err := s.slots.ListBySchoolYear(ctx, nil, schoolID, query.SchoolYearID)
	if err != nil {
		return nil, internalError(err, "failed to load hour slots")
	}

	groups := make(map[string]string)
	views := make([]models.AssignmentView, 0, len(rows))
	for _, row := range rows {
		groupID, ok := groups[row.CourseID]
		if !ok {
			course, err := s.catalog.FindCourse(ctx, nil, row.CourseID)
			if err != nil {
				return nil, lookupError(err, "course")
			}
			groupID = course.HourSlotsGroupID
			groups[row.CourseID] = groupID
		}
		views = append(views, models.NewAssignmentView(row, groupID, slots))
	}
	return views, nil
}

// Delete removes an assignment of the school.
func (s *AssignmentService) Delete(ctx context.Context, schoolID, id string) error {
	if _, err := s.Get(ctx, schoolID, id); err != nil {
		return err
	}
	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return internalError(err, "failed to delete assignment")
	}
	s.logger.Info("assignment deleted", zap.String("school_id", schoolID), zap.String("assignment_id", id))
	return nil
}

// Create validates and stores a lecture. Non-substitution lectures need a
// matching teacher quota of the right kind; the teacher may not already teach
// at the same date and hours, and the room may not exceed its capacity.
func (s *AssignmentService) Create(ctx context.Context, schoolID string, req dto.CreateAssignmentRequest) (*models.Assignment, error) {
	assignment, err := s.parseCreate(req)
	if err != nil {
		return nil, err
	}
	assignment.SchoolID = schoolID

	teacher, err := s.teachers.FindByID(ctx, nil, req.TeacherID)
	if err != nil {
		return nil, lookupError(err, "teacher")
	}
	course, err := s.catalog.FindCourse(ctx, nil, req.CourseID)
	if err != nil {
		return nil, lookupError(err, "course")
	}
	if teacher.SchoolID != schoolID || course.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher or course belongs to another school")
	}
	assignment.SchoolYearID = course.SchoolYearID

	var room *models.Room
	if assignment.HasRoom() {
		if room, err = s.catalog.FindRoom(ctx, nil, *assignment.RoomID); err != nil {
			return nil, lookupError(err, "room")
		}
		if room.SchoolID != schoolID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "room belongs to another school")
		}
	}

	err = runInTx(ctx, s.tx, serializableTx, func(tx *sqlx.Tx) error {
		if err := s.assignments.LockSchool(ctx, tx, schoolID); err != nil {
			return internalError(err, "failed to lock school timetable")
		}
		if !assignment.Substitution {
			if err := s.checkQuota(ctx, tx, assignment); err != nil {
				return err
			}
		}
		if err := s.checkSlotFree(ctx, tx, assignment, room); err != nil {
			return err
		}
		if err := s.assignments.Create(ctx, tx, assignment); err != nil {
			return internalError(err, "failed to create assignment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment created",
		zap.String("school_id", schoolID),
		zap.String("assignment_id", assignment.ID),
		zap.String("teacher_id", assignment.TeacherID),
	)
	return assignment, nil
}

func (s *AssignmentService) parseCreate(req dto.CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	date, err := parseISODate(req.Date, "date")
	if err != nil {
		return nil, err
	}
	start, err := models.NormalizeClock(req.HourStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "hourStart must be HH:MM or HH:MM:SS")
	}
	end, err := models.NormalizeClock(req.HourEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "hourEnd must be HH:MM or HH:MM:SS")
	}
	if start >= end {
		return nil, appErrors.Clone(appErrors.ErrValidation, "hourStart must be before hourEnd")
	}
	if req.Bes && req.CoTeaching {
		return nil, appErrors.Clone(appErrors.ErrValidation, "an assignment can be BES or co-teaching, not both")
	}

	roomID := req.RoomID
	if roomID != nil && *roomID == "" {
		roomID = nil
	}
	return &models.Assignment{
		TeacherID:               req.TeacherID,
		CourseID:                req.CourseID,
		SubjectID:               req.SubjectID,
		RoomID:                  roomID,
		Date:                    date,
		HourStart:               start,
		HourEnd:                 end,
		Bes:                     req.Bes,
		CoTeaching:              req.CoTeaching,
		Substitution:            req.Substitution,
		Absent:                  req.Absent,
		FreeSubstitution:        req.FreeSubstitution,
		SubstitutedAssignmentID: req.SubstitutedAssignmentID,
	}, nil
}

func (s *AssignmentService) checkQuota(ctx context.Context, exec sqlx.ExtContext, a *models.Assignment) error {
	quota, err := s.teachers.FindQuota(ctx, exec, a.TeacherID, a.CourseID, a.SubjectID, a.SchoolYearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "teacher has no hours for this course and subject")
		}
		return internalError(err, "failed to load teacher quota")
	}
	switch {
	case a.Bes && quota.HoursBes == 0:
		return appErrors.Clone(appErrors.ErrValidation, "teacher has no BES hours in this course")
	case a.CoTeaching && quota.HoursCoTeaching == 0:
		return appErrors.Clone(appErrors.ErrValidation, "teacher has no co-teaching hours in this course")
	case !a.Bes && !a.CoTeaching && quota.Hours == 0:
		return appErrors.Clone(appErrors.ErrValidation, "teacher has only BES or co-teaching hours in this course")
	}
	return nil
}

func (s *AssignmentService) checkSlotFree(ctx context.Context, exec sqlx.ExtContext, a *models.Assignment, room *models.Room) error {
	date := a.Date
	concurrent, err := s.assignments.List(ctx, exec, models.AssignmentFilter{
		SchoolID:     a.SchoolID,
		SchoolYearID: a.SchoolYearID,
		Date:         &date,
		HourStart:    a.HourStart,
		HourEnd:      a.HourEnd,
	})
	if err != nil {
		return internalError(err, "failed to load concurrent assignments")
	}
	if busy := filterAssignments(concurrent, taughtBy(a.TeacherID)); len(busy) > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "teacher already teaches at this time")
	}
	if room == nil {
		return nil
	}

	courses := make(map[string]struct{})
	for _, row := range filterAssignments(concurrent, heldIn(room.ID), occupiesRoom) {
		courses[row.CourseID] = struct{}{}
	}
	if _, shared := courses[a.CourseID]; !shared && len(courses) >= room.Capacity {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("room %s has reached its capacity", room.Name))
	}
	return nil
}
