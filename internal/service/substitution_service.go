package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type substituteTeacherReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Teacher, error)
	ListBySchool(ctx context.Context, exec sqlx.ExtContext, schoolID string) ([]models.Teacher, error)
	ListQualifiedIDs(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string) ([]string, error)
	ListBlockedIDs(ctx context.Context, exec sqlx.ExtContext, hourSlotIDs []string) ([]string, error)
}

type alignedSlotFinder interface {
	FindAligned(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string, day models.Weekday, start, end string) ([]models.HourSlot, error)
	ListByGroup(ctx context.Context, exec sqlx.ExtContext, groupID string) ([]models.HourSlot, error)
}

// SubstitutionService finds and applies replacement teachers for a lecture.
type SubstitutionService struct {
	assignments assignmentStore
	teachers    substituteTeacherReader
	slots       alignedSlotFinder
	tx          txProvider
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewSubstitutionService constructs the service.
func NewSubstitutionService(assignments assignmentStore, teachers substituteTeacherReader, slots alignedSlotFinder, tx txProvider, metrics *MetricsService, logger *zap.Logger) *SubstitutionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubstitutionService{
		assignments: assignments,
		teachers:    teachers,
		slots:       slots,
		tx:          tx,
		metrics:     metrics,
		logger:      logger,
	}
}

// Candidates splits the school's other teachers into those eligible to
// substitute assignmentID and those who may only free-substitute. Each
// candidate tells whether they already teach the hour before or after and
// how many substitutions they made in the school year.
func (s *SubstitutionService) Candidates(ctx context.Context, schoolID, assignmentID string) (*models.SubstitutionCandidates, error) {
	assignment, err := s.ownedAssignment(ctx, nil, schoolID, assignmentID)
	if err != nil {
		return nil, err
	}
	return s.candidates(ctx, nil, assignment)
}

// Substitute assigns newTeacherID to the lecture. An eligible teacher marks
// the original absent; any other teacher of the school yields a free
// substitution and leaves the original untouched. Each call inserts a new row.
func (s *SubstitutionService) Substitute(ctx context.Context, schoolID, assignmentID, newTeacherID string) (*models.SubstitutionResult, error) {
	var result *models.SubstitutionResult
	err := runInTx(ctx, s.tx, serializableTx, func(tx *sqlx.Tx) error {
		if err := s.assignments.LockSchool(ctx, tx, schoolID); err != nil {
			return internalError(err, "failed to lock school timetable")
		}
		original, err := s.ownedAssignment(ctx, tx, schoolID, assignmentID)
		if err != nil {
			return err
		}
		if _, err := s.teachers.FindByID(ctx, tx, newTeacherID); err != nil {
			return lookupError(err, "teacher")
		}

		candidates, err := s.candidates(ctx, tx, original)
		if err != nil {
			return err
		}
		free := false
		switch {
		case containsTeacher(candidates.Available, newTeacherID):
		case containsTeacher(candidates.Other, newTeacherID):
			free = true
		default:
			return appErrors.Clone(appErrors.ErrSubstitutionNotAllowed, "teacher not valid for substitution")
		}

		substitute := models.Assignment{
			TeacherID:               newTeacherID,
			CourseID:                original.CourseID,
			SubjectID:               original.SubjectID,
			SchoolID:                original.SchoolID,
			SchoolYearID:            original.SchoolYearID,
			RoomID:                  original.RoomID,
			Date:                    original.Date,
			HourStart:               original.HourStart,
			HourEnd:                 original.HourEnd,
			Bes:                     original.Bes,
			CoTeaching:              original.CoTeaching,
			Substitution:            true,
			FreeSubstitution:        free,
			SubstitutedAssignmentID: &original.ID,
		}
		if !free {
			if err := s.assignments.MarkAbsent(ctx, tx, original.ID); err != nil {
				return internalError(err, "failed to mark assignment absent")
			}
			original.Absent = true
		}
		if err := s.assignments.Create(ctx, tx, &substitute); err != nil {
			return internalError(err, "failed to create substitution")
		}

		result = &models.SubstitutionResult{Original: *original, Substitute: substitute, Free: free}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveSubstitution(result.Free)
	s.logger.Info("substitution applied",
		zap.String("school_id", schoolID),
		zap.String("assignment_id", assignmentID),
		zap.String("teacher_id", newTeacherID),
		zap.Bool("free_substitution", result.Free),
	)
	return result, nil
}

func (s *SubstitutionService) ownedAssignment(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(ctx, exec, id)
	if err != nil {
		return nil, lookupError(err, "assignment")
	}
	if assignment.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another school")
	}
	return assignment, nil
}

func (s *SubstitutionService) candidates(ctx context.Context, exec sqlx.ExtContext, a *models.Assignment) (*models.SubstitutionCandidates, error) {
	teachers, err := s.teachers.ListBySchool(ctx, exec, a.SchoolID)
	if err != nil {
		return nil, internalError(err, "failed to load teachers")
	}
	qualifiedIDs, err := s.teachers.ListQualifiedIDs(ctx, exec, a.SchoolID, a.SchoolYearID)
	if err != nil {
		return nil, internalError(err, "failed to load teacher quotas")
	}

	// Absence blocks can only be checked against a slot the lecture aligns with.
	slots, err := s.slots.FindAligned(ctx, exec, a.SchoolID, a.SchoolYearID, a.Weekday(), a.HourStart, a.HourEnd)
	if err != nil {
		return nil, internalError(err, "failed to load hour slots")
	}
	slotIDs := make([]string, 0, len(slots))
	for _, slot := range slots {
		slotIDs = append(slotIDs, slot.ID)
	}
	blockedIDs, err := s.teachers.ListBlockedIDs(ctx, exec, slotIDs)
	if err != nil {
		return nil, internalError(err, "failed to load absence blocks")
	}

	before, after, err := s.neighbourSlots(ctx, exec, slots)
	if err != nil {
		return nil, err
	}

	date := a.Date
	dayRows, err := s.assignments.List(ctx, exec, models.AssignmentFilter{SchoolID: a.SchoolID, Date: &date})
	if err != nil {
		return nil, internalError(err, "failed to load assignments of the day")
	}
	made, err := s.assignments.CountSubstitutionsByTeacher(ctx, exec, a.SchoolID, a.SchoolYearID)
	if err != nil {
		return nil, internalError(err, "failed to count substitutions")
	}

	qualified := toSet(qualifiedIDs)
	blocked := toSet(blockedIDs)
	busy := make(map[string]struct{})
	for _, row := range filterAssignments(dayRows, heldDuring(a.HourStart, a.HourEnd)) {
		busy[row.TeacherID] = struct{}{}
	}

	out := &models.SubstitutionCandidates{Available: []models.SubstituteCandidate{}, Other: []models.SubstituteCandidate{}}
	for _, t := range teachers {
		if t.ID == a.TeacherID {
			continue
		}
		candidate := models.SubstituteCandidate{
			Teacher:                t,
			HasHourBefore:          teachesDuring(dayRows, t.ID, before),
			HasHourAfter:           teachesDuring(dayRows, t.ID, after),
			SubstitutionsMadeSoFar: made[t.ID],
		}
		_, isQualified := qualified[t.ID]
		_, isBlocked := blocked[t.ID]
		_, isBusy := busy[t.ID]
		if isQualified && !isBlocked && !isBusy {
			out.Available = append(out.Available, candidate)
		} else {
			out.Other = append(out.Other, candidate)
		}
	}
	return out, nil
}

// neighbourSlots returns, within the group of each aligned slot, the slots
// numbered right before and right after it on the same day.
func (s *SubstitutionService) neighbourSlots(ctx context.Context, exec sqlx.ExtContext, aligned []models.HourSlot) (before, after []models.HourSlot, err error) {
	groups := make(map[string][]models.HourSlot)
	for _, slot := range aligned {
		schedule, ok := groups[slot.HourSlotsGroupID]
		if !ok {
			if schedule, err = s.slots.ListByGroup(ctx, exec, slot.HourSlotsGroupID); err != nil {
				return nil, nil, internalError(err, "failed to load hour slots")
			}
			groups[slot.HourSlotsGroupID] = schedule
		}
		for _, other := range schedule {
			if other.DayOfWeek != slot.DayOfWeek {
				continue
			}
			switch other.HourNumber {
			case slot.HourNumber - 1:
				before = append(before, other)
			case slot.HourNumber + 1:
				after = append(after, other)
			}
		}
	}
	return before, after, nil
}

// teachesDuring reports whether teacherID holds a present lecture in any of slots.
func teachesDuring(rows []models.Assignment, teacherID string, slots []models.HourSlot) bool {
	for _, slot := range slots {
		for _, row := range filterAssignments(rows, taughtBy(teacherID), heldDuring(slot.StartsAt, slot.EndsAt)) {
			if !row.Absent {
				return true
			}
		}
	}
	return false
}

func containsTeacher(teachers []models.SubstituteCandidate, id string) bool {
	for _, t := range teachers {
		if t.ID == id {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
