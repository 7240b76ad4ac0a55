package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const assignmentColumns = `id, teacher_id, course_id, subject_id, school_id, school_year_id, room_id, date, hour_start, hour_end,
bes, co_teaching, substitution, absent, free_substitution, substituted_assignment_id, created_at, updated_at`

const insertAssignmentQuery = `INSERT INTO assignments (` + assignmentColumns + `)
VALUES (:id, :teacher_id, :course_id, :subject_id, :school_id, :school_year_id, :room_id, :date, :hour_start, :hour_end,
:bes, :co_teaching, :substitution, :absent, :free_substitution, :substituted_assignment_id, :created_at, :updated_at)`

// AssignmentRepository persists lectures. Every method accepts an optional
// executor so services can run it inside their own transaction.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockSchool serialises classify-then-write operations of one school until
// the surrounding transaction ends.
func (r *AssignmentRepository) LockSchool(ctx context.Context, exec sqlx.ExtContext, schoolID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, schoolID); err != nil {
		return fmt.Errorf("lock school %s: %w", schoolID, err)
	}
	return nil
}

// FindByID loads one assignment.
func (r *AssignmentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	var a models.Assignment
	if err := sqlx.GetContext(ctx, r.exec(exec), &a, query, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByIDs loads the given assignments; unknown ids are silently absent.
func (r *AssignmentRepository) FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.Assignment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = ANY($1) ORDER BY date, hour_start, id`
	var rows []models.Assignment
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find assignments by ids: %w", err)
	}
	return rows, nil
}

// List returns assignments matching filter ordered by date, hour_start and id.
func (r *AssignmentRepository) List(ctx context.Context, exec sqlx.ExtContext, filter models.AssignmentFilter) ([]models.Assignment, error) {
	where := buildAssignmentWhere(filter)
	query := `SELECT ` + assignmentColumns + ` FROM assignments` + where.String() + ` ORDER BY date, hour_start, id`
	var rows []models.Assignment
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, where.args...); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return rows, nil
}

func buildAssignmentWhere(filter models.AssignmentFilter) *whereClause {
	where := &whereClause{}
	if filter.SchoolID != "" {
		where.add("school_id = %s", filter.SchoolID)
	}
	if filter.SchoolYearID != "" {
		where.add("school_year_id = %s", filter.SchoolYearID)
	}
	if len(filter.CourseIDs) > 0 {
		where.add("course_id = ANY(%s)", pq.Array(filter.CourseIDs))
	}
	if filter.TeacherID != "" {
		where.add("teacher_id = %s", filter.TeacherID)
	}
	if filter.RoomID != "" {
		where.add("room_id = %s", filter.RoomID)
	}
	if filter.Date != nil {
		where.add("date = %s", models.DateOnly(*filter.Date))
	}
	if filter.DateFrom != nil {
		where.add("date >= %s", models.DateOnly(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		where.add("date <= %s", models.DateOnly(*filter.DateTo))
	}
	if filter.Weekday != nil {
		where.add("EXTRACT(ISODOW FROM date) = %s", filter.Weekday.ISODOW())
	}
	if filter.HourStart != "" {
		where.add("hour_start = %s", filter.HourStart)
	}
	if filter.HourEnd != "" {
		where.add("hour_end = %s", filter.HourEnd)
	}
	if filter.Bes != nil {
		where.add("bes = %s", *filter.Bes)
	}
	if filter.CoTeaching != nil {
		where.add("co_teaching = %s", *filter.CoTeaching)
	}
	if filter.Substitution != nil {
		where.add("substitution = %s", *filter.Substitution)
	}
	if filter.Absent != nil {
		where.add("absent = %s", *filter.Absent)
	}
	if len(filter.ExcludeIDs) > 0 {
		where.add("NOT (id = ANY(%s))", pq.Array(filter.ExcludeIDs))
	}
	return where
}

// CountSubstitutionsByTeacher returns how many substitutions each teacher has
// taught in the school year. Teachers without any are absent from the map.
func (r *AssignmentRepository) CountSubstitutionsByTeacher(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string) (map[string]int, error) {
	const query = `SELECT teacher_id, COUNT(*) AS total FROM assignments
WHERE school_id = $1 AND school_year_id = $2 AND substitution GROUP BY teacher_id`
	var rows []struct {
		TeacherID string `db:"teacher_id"`
		Total     int    `db:"total"`
	}
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, schoolID, schoolYearID); err != nil {
		return nil, fmt.Errorf("count substitutions: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.TeacherID] = row.Total
	}
	return counts, nil
}

// Create inserts one assignment, filling id and timestamps when empty.
func (r *AssignmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, a *models.Assignment) error {
	prepareAssignment(a, time.Now().UTC())
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), insertAssignmentQuery, a); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// BulkCreate inserts all rows with a single multi-row statement.
func (r *AssignmentRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, rows []models.Assignment) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range rows {
		prepareAssignment(&rows[i], now)
	}
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), insertAssignmentQuery, rows); err != nil {
		return fmt.Errorf("bulk insert assignments: %w", err)
	}
	return nil
}

func prepareAssignment(a *models.Assignment, now time.Time) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Date = models.DateOnly(a.Date)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
}

// MarkAbsent flags the assignment's teacher as absent.
func (r *AssignmentRepository) MarkAbsent(ctx context.Context, exec sqlx.ExtContext, id string) error {
	result, err := r.exec(exec).ExecContext(ctx, `UPDATE assignments SET absent = TRUE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark assignment absent: %w", err)
	}
	return requireAffected(result, "mark assignment absent")
}

// DeleteInRange removes the courses' assignments of a school year within
// [from, to], keeping the rows listed in keep.
func (r *AssignmentRepository) DeleteInRange(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string, courseIDs []string, from, to time.Time, keep []string) (int64, error) {
	if len(courseIDs) == 0 {
		return 0, nil
	}
	if keep == nil {
		keep = []string{}
	}
	const query = `DELETE FROM assignments WHERE school_id = $1 AND school_year_id = $2 AND course_id = ANY($3)
AND date >= $4 AND date <= $5 AND NOT (id = ANY($6))`
	result, err := r.exec(exec).ExecContext(ctx, query, schoolID, schoolYearID, pq.Array(courseIDs),
		models.DateOnly(from), models.DateOnly(to), pq.Array(keep))
	if err != nil {
		return 0, fmt.Errorf("delete assignments in range: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete assignments rows affected: %w", err)
	}
	return affected, nil
}

// Delete removes one assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return requireAffected(result, "delete assignment")
}

func requireAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
