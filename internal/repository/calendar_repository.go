package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// CalendarRepository reads holidays and stages.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs a CalendarRepository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

func (r *CalendarRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListHolidays returns the school's holidays overlapping [from, to]. An empty
// schoolYearID matches every school year.
func (r *CalendarRepository) ListHolidays(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string, from, to time.Time) ([]models.Holiday, error) {
	where := &whereClause{}
	where.add("school_id = %s", schoolID)
	if schoolYearID != "" {
		where.add("school_year_id = %s", schoolYearID)
	}
	where.add("date_start <= %s", models.DateOnly(to))
	where.add("date_end >= %s", models.DateOnly(from))

	query := `SELECT id, name, school_id, school_year_id, date_start, date_end FROM holidays` + where.String() + ` ORDER BY date_start`
	var holidays []models.Holiday
	if err := sqlx.SelectContext(ctx, r.exec(exec), &holidays, query, where.args...); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return holidays, nil
}

// ListStages returns the courses' stages overlapping [from, to].
func (r *CalendarRepository) ListStages(ctx context.Context, exec sqlx.ExtContext, courseIDs []string, from, to time.Time) ([]models.Stage, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, name, school_id, course_id, date_start, date_end FROM stages
WHERE course_id = ANY($1) AND date_start <= $2 AND date_end >= $3 ORDER BY date_start`
	var stages []models.Stage
	if err := sqlx.SelectContext(ctx, r.exec(exec), &stages, query, pq.Array(courseIDs), models.DateOnly(to), models.DateOnly(from)); err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	return stages, nil
}
