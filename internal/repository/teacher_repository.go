package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const teacherColumns = `id, school_id, first_name, last_name, email, created_at`

// TeacherRepository reads teachers together with their quotas and absence blocks.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

func (r *TeacherRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID loads a teacher.
func (r *TeacherRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := sqlx.GetContext(ctx, r.exec(exec), &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ListBySchool returns every teacher of a school sorted by name.
func (r *TeacherRepository) ListBySchool(ctx context.Context, exec sqlx.ExtContext, schoolID string) ([]models.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE school_id = $1 ORDER BY last_name, first_name, id`
	var teachers []models.Teacher
	if err := sqlx.SelectContext(ctx, r.exec(exec), &teachers, query, schoolID); err != nil {
		return nil, fmt.Errorf("list teachers by school: %w", err)
	}
	return teachers, nil
}

// ListQualifiedIDs returns teachers holding at least one quota in the school year.
func (r *TeacherRepository) ListQualifiedIDs(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string) ([]string, error) {
	const query = `SELECT DISTINCT teacher_id FROM hours_per_teacher_in_class WHERE school_id = $1 AND school_year_id = $2`
	var ids []string
	if err := sqlx.SelectContext(ctx, r.exec(exec), &ids, query, schoolID, schoolYearID); err != nil {
		return nil, fmt.Errorf("list qualified teachers: %w", err)
	}
	return ids, nil
}

// ListBlockedIDs returns teachers with an absence block on any of the slots.
func (r *TeacherRepository) ListBlockedIDs(ctx context.Context, exec sqlx.ExtContext, hourSlotIDs []string) ([]string, error) {
	if len(hourSlotIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT DISTINCT teacher_id FROM absence_blocks WHERE hour_slot_id = ANY($1)`
	var ids []string
	if err := sqlx.SelectContext(ctx, r.exec(exec), &ids, query, pq.Array(hourSlotIDs)); err != nil {
		return nil, fmt.Errorf("list blocked teachers: %w", err)
	}
	return ids, nil
}

// FindQuota returns the quota of a teacher for one course and subject.
func (r *TeacherRepository) FindQuota(ctx context.Context, exec sqlx.ExtContext, teacherID, courseID, subjectID, schoolYearID string) (*models.HoursPerTeacherInClass, error) {
	const query = `SELECT id, teacher_id, course_id, subject_id, school_id, school_year_id, hours, hours_bes, hours_co_teaching
FROM hours_per_teacher_in_class WHERE teacher_id = $1 AND course_id = $2 AND subject_id = $3 AND school_year_id = $4`
	var quota models.HoursPerTeacherInClass
	if err := sqlx.GetContext(ctx, r.exec(exec), &quota, query, teacherID, courseID, subjectID, schoolYearID); err != nil {
		return nil, err
	}
	return &quota, nil
}

// ListQuotas returns the school year's quotas joined with teacher, course and
// subject names, ordered the way the hours report prints them.
func (r *TeacherRepository) ListQuotas(ctx context.Context, schoolID, schoolYearID string) ([]models.TeacherHoursQuota, error) {
	const query = `SELECT h.id, h.teacher_id, h.course_id, h.subject_id, h.school_id, h.school_year_id, h.hours, h.hours_bes, h.hours_co_teaching,
t.first_name, t.last_name, c.year AS course_year, c.section AS course_section, s.name AS subject_name, c.hour_slots_group_id
FROM hours_per_teacher_in_class h
JOIN teachers t ON t.id = h.teacher_id
JOIN courses c ON c.id = h.course_id
JOIN subjects s ON s.id = h.subject_id
WHERE h.school_id = $1 AND h.school_year_id = $2
ORDER BY t.last_name, t.first_name, c.year, c.section`
	var quotas []models.TeacherHoursQuota
	if err := r.db.SelectContext(ctx, &quotas, query, schoolID, schoolYearID); err != nil {
		return nil, fmt.Errorf("list teacher quotas: %w", err)
	}
	return quotas, nil
}
