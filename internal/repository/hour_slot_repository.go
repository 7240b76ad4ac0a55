package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const hourSlotColumns = `id, hour_slots_group_id, hour_number, day_of_week, starts_at, ends_at, legal_minutes, created_at`

// HourSlotRepository persists bell schedules.
type HourSlotRepository struct {
	db *sqlx.DB
}

// NewHourSlotRepository constructs a HourSlotRepository.
func NewHourSlotRepository(db *sqlx.DB) *HourSlotRepository {
	return &HourSlotRepository{db: db}
}

func (r *HourSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindGroup loads an hour slots group.
func (r *HourSlotRepository) FindGroup(ctx context.Context, id string) (*models.HourSlotsGroup, error) {
	const query = `SELECT id, name, school_id, school_year_id, created_at FROM hour_slots_groups WHERE id = $1`
	var group models.HourSlotsGroup
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// ListByGroup returns the group's slots ordered by day and hour number.
func (r *HourSlotRepository) ListByGroup(ctx context.Context, exec sqlx.ExtContext, groupID string) ([]models.HourSlot, error) {
	query := `SELECT ` + hourSlotColumns + ` FROM hour_slots WHERE hour_slots_group_id = $1 ORDER BY day_of_week, hour_number`
	var slots []models.HourSlot
	if err := sqlx.SelectContext(ctx, r.exec(exec), &slots, query, groupID); err != nil {
		return nil, fmt.Errorf("list hour slots by group: %w", err)
	}
	return slots, nil
}

// FindAligned returns the slots of any group of the school year that match
// the weekday and the exact hour range.
func (r *HourSlotRepository) FindAligned(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string, day models.Weekday, start, end string) ([]models.HourSlot, error) {
	const query = `SELECT s.id, s.hour_slots_group_id, s.hour_number, s.day_of_week, s.starts_at, s.ends_at, s.legal_minutes, s.created_at
FROM hour_slots s JOIN hour_slots_groups g ON g.id = s.hour_slots_group_id
WHERE g.school_id = $1 AND g.school_year_id = $2 AND s.day_of_week = $3 AND s.starts_at = $4 AND s.ends_at = $5`
	var slots []models.HourSlot
	if err := sqlx.SelectContext(ctx, r.exec(exec), &slots, query, schoolID, schoolYearID, int(day), start, end); err != nil {
		return nil, fmt.Errorf("find aligned hour slots: %w", err)
	}
	return slots, nil
}

// ListBySchoolYear returns the slots of every group of the school year.
func (r *HourSlotRepository) ListBySchoolYear(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string) ([]models.HourSlot, error) {
	const query = `SELECT s.id, s.hour_slots_group_id, s.hour_number, s.day_of_week, s.starts_at, s.ends_at, s.legal_minutes, s.created_at
FROM hour_slots s JOIN hour_slots_groups g ON g.id = s.hour_slots_group_id
WHERE g.school_id = $1 AND g.school_year_id = $2 ORDER BY s.day_of_week, s.starts_at, s.hour_slots_group_id`
	var slots []models.HourSlot
	if err := sqlx.SelectContext(ctx, r.exec(exec), &slots, query, schoolID, schoolYearID); err != nil {
		return nil, fmt.Errorf("list hour slots by school year: %w", err)
	}
	return slots, nil
}

// CreateMany inserts the slots, filling ids and timestamps.
func (r *HourSlotRepository) CreateMany(ctx context.Context, exec sqlx.ExtContext, slots []models.HourSlot) error {
	if len(slots) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range slots {
		if slots[i].ID == "" {
			slots[i].ID = uuid.NewString()
		}
		slots[i].CreatedAt = now
	}
	query := `INSERT INTO hour_slots (` + hourSlotColumns + `)
VALUES (:id, :hour_slots_group_id, :hour_number, :day_of_week, :starts_at, :ends_at, :legal_minutes, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, slots); err != nil {
		return fmt.Errorf("insert hour slots: %w", err)
	}
	return nil
}
