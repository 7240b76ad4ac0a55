package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// CatalogRepository reads the school-scoped reference data lectures point to:
// courses and rooms.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs a CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindCourse loads a course.
func (r *CatalogRepository) FindCourse(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Course, error) {
	const query = `SELECT id, year, section, school_id, school_year_id, hour_slots_group_id FROM courses WHERE id = $1`
	var course models.Course
	if err := sqlx.GetContext(ctx, r.exec(exec), &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindRoom loads a room.
func (r *CatalogRepository) FindRoom(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Room, error) {
	const query = `SELECT id, name, school_id, capacity FROM rooms WHERE id = $1`
	var room models.Room
	if err := sqlx.GetContext(ctx, r.exec(exec), &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// ListRooms loads the given rooms keyed by id.
func (r *CatalogRepository) ListRooms(ctx context.Context, exec sqlx.ExtContext, ids []string) (map[string]models.Room, error) {
	rooms := make(map[string]models.Room, len(ids))
	if len(ids) == 0 {
		return rooms, nil
	}
	const query = `SELECT id, name, school_id, capacity FROM rooms WHERE id = ANY($1)`
	var rows []models.Room
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	for _, room := range rows {
		rooms[room.ID] = room
	}
	return rooms, nil
}
