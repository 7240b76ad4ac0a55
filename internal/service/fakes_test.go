package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (p *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return p.db.BeginTxx(ctx, opts)
}

func mustDate(raw string) time.Time {
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		panic(err)
	}
	return d
}

func strPtr(v string) *string { return &v }

// fakeAssignmentStore keeps assignments in memory and ignores the executor.
type fakeAssignmentStore struct {
	rows        []models.Assignment
	nextID      int
	locked      []string
	bulkErr     error
	deleteCalls int
}

func newFakeAssignmentStore(rows ...models.Assignment) *fakeAssignmentStore {
	return &fakeAssignmentStore{rows: append([]models.Assignment(nil), rows...)}
}

func (f *fakeAssignmentStore) LockSchool(ctx context.Context, exec sqlx.ExtContext, schoolID string) error {
	f.locked = append(f.locked, schoolID)
	return nil
}

func (f *fakeAssignmentStore) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Assignment, error) {
	for _, row := range f.rows {
		if row.ID == id {
			found := row
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAssignmentStore) FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.Assignment, error) {
	want := toSet(ids)
	var out []models.Assignment
	for _, row := range f.rows {
		if _, ok := want[row.ID]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeAssignmentStore) List(ctx context.Context, exec sqlx.ExtContext, filter models.AssignmentFilter) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, row := range f.rows {
		if matchesFilter(row, filter) {
			out = append(out, row)
		}
	}
	models.SortAssignments(out)
	return out, nil
}

func matchesFilter(a models.Assignment, f models.AssignmentFilter) bool {
	switch {
	case f.SchoolID != "" && a.SchoolID != f.SchoolID,
		f.SchoolYearID != "" && a.SchoolYearID != f.SchoolYearID,
		f.TeacherID != "" && a.TeacherID != f.TeacherID,
		f.RoomID != "" && !a.InRoom(f.RoomID),
		f.Date != nil && !models.SameDate(a.Date, *f.Date),
		f.DateFrom != nil && models.DateOnly(a.Date).Before(models.DateOnly(*f.DateFrom)),
		f.DateTo != nil && models.DateOnly(a.Date).After(models.DateOnly(*f.DateTo)),
		f.Weekday != nil && a.Weekday() != *f.Weekday,
		f.HourStart != "" && a.HourStart != f.HourStart,
		f.HourEnd != "" && a.HourEnd != f.HourEnd,
		f.Bes != nil && a.Bes != *f.Bes,
		f.CoTeaching != nil && a.CoTeaching != *f.CoTeaching,
		f.Substitution != nil && a.Substitution != *f.Substitution,
		f.Absent != nil && a.Absent != *f.Absent:
		return false
	}
	if len(f.CourseIDs) > 0 {
		if _, ok := toSet(f.CourseIDs)[a.CourseID]; !ok {
			return false
		}
	}
	if _, excluded := toSet(f.ExcludeIDs)[a.ID]; excluded {
		return false
	}
	return true
}

func (f *fakeAssignmentStore) Create(ctx context.Context, exec sqlx.ExtContext, a *models.Assignment) error {
	if a.ID == "" {
		f.nextID++
		a.ID = fmt.Sprintf("new-%d", f.nextID)
	}
	a.Date = models.DateOnly(a.Date)
	f.rows = append(f.rows, *a)
	return nil
}

func (f *fakeAssignmentStore) BulkCreate(ctx context.Context, exec sqlx.ExtContext, rows []models.Assignment) error {
	if f.bulkErr != nil {
		return f.bulkErr
	}
	for i := range rows {
		if err := f.Create(ctx, exec, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeAssignmentStore) MarkAbsent(ctx context.Context, exec sqlx.ExtContext, id string) error {
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].Absent = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeAssignmentStore) DeleteInRange(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string, courseIDs []string, from, to time.Time, keep []string) (int64, error) {
	f.deleteCalls++
	courses := toSet(courseIDs)
	kept := toSet(keep)
	var deleted int64
	remaining := f.rows[:0]
	for _, row := range f.rows {
		_, inCourse := courses[row.CourseID]
		_, isKept := kept[row.ID]
		d := models.DateOnly(row.Date)
		if row.SchoolID == schoolID && row.SchoolYearID == schoolYearID && inCourse && !isKept &&
			!d.Before(models.DateOnly(from)) && !d.After(models.DateOnly(to)) {
			deleted++
			continue
		}
		remaining = append(remaining, row)
	}
	f.rows = remaining
	return deleted, nil
}

func (f *fakeAssignmentStore) Delete(ctx context.Context, id string) error {
	for i, row := range f.rows {
		if row.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeAssignmentStore) CountSubstitutionsByTeacher(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, row := range f.rows {
		if row.SchoolID == schoolID && row.SchoolYearID == schoolYearID && row.Substitution {
			counts[row.TeacherID]++
		}
	}
	return counts, nil
}

func (f *fakeAssignmentStore) countOn(d time.Time) int {
	n := 0
	for _, row := range f.rows {
		if models.SameDate(row.Date, d) {
			n++
		}
	}
	return n
}

type fakeRooms map[string]models.Room

func (f fakeRooms) ListRooms(ctx context.Context, exec sqlx.ExtContext, ids []string) (map[string]models.Room, error) {
	out := make(map[string]models.Room, len(ids))
	for _, id := range ids {
		if room, ok := f[id]; ok {
			out[id] = room
		}
	}
	return out, nil
}

type fakeCalendarRepo struct {
	holidays []models.Holiday
	stages   []models.Stage
}

func (f *fakeCalendarRepo) ListHolidays(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string, from, to time.Time) ([]models.Holiday, error) {
	var out []models.Holiday
	for _, h := range f.holidays {
		if h.SchoolID != schoolID || (schoolYearID != "" && h.SchoolYearID != schoolYearID) {
			continue
		}
		if h.DateEnd.Before(models.DateOnly(from)) || h.DateStart.After(models.DateOnly(to)) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (f *fakeCalendarRepo) ListStages(ctx context.Context, exec sqlx.ExtContext, courseIDs []string, from, to time.Time) ([]models.Stage, error) {
	courses := toSet(courseIDs)
	var out []models.Stage
	for _, st := range f.stages {
		if _, ok := courses[st.CourseID]; !ok {
			continue
		}
		if st.DateEnd.Before(models.DateOnly(from)) || st.DateStart.After(models.DateOnly(to)) {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

type fakeTeacherStore struct {
	teachers []models.Teacher
	quotas   []models.HoursPerTeacherInClass
	blocks   []models.AbsenceBlock
}

func (f *fakeTeacherStore) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Teacher, error) {
	for _, t := range f.teachers {
		if t.ID == id {
			found := t
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTeacherStore) ListBySchool(ctx context.Context, exec sqlx.ExtContext, schoolID string) ([]models.Teacher, error) {
	var out []models.Teacher
	for _, t := range f.teachers {
		if t.SchoolID == schoolID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTeacherStore) ListQualifiedIDs(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string) ([]string, error) {
	var out []string
	for _, q := range f.quotas {
		if q.SchoolID == schoolID && q.SchoolYearID == schoolYearID {
			out = appendUnique(out, q.TeacherID)
		}
	}
	return out, nil
}

func (f *fakeTeacherStore) ListBlockedIDs(ctx context.Context, exec sqlx.ExtContext, hourSlotIDs []string) ([]string, error) {
	slots := toSet(hourSlotIDs)
	var out []string
	for _, b := range f.blocks {
		if _, ok := slots[b.HourSlotID]; ok {
			out = appendUnique(out, b.TeacherID)
		}
	}
	return out, nil
}

func (f *fakeTeacherStore) FindQuota(ctx context.Context, exec sqlx.ExtContext, teacherID, courseID, subjectID, schoolYearID string) (*models.HoursPerTeacherInClass, error) {
	for _, q := range f.quotas {
		if q.TeacherID == teacherID && q.CourseID == courseID && q.SubjectID == subjectID && q.SchoolYearID == schoolYearID {
			found := q
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeSlotFinder []models.HourSlot

func (f fakeSlotFinder) FindAligned(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string, d models.Weekday, start, end string) ([]models.HourSlot, error) {
	var out []models.HourSlot
	for _, slot := range f {
		if slot.DayOfWeek == d && slot.StartsAt == start && slot.EndsAt == end {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (f fakeSlotFinder) ListByGroup(ctx context.Context, exec sqlx.ExtContext, groupID string) ([]models.HourSlot, error) {
	var out []models.HourSlot
	for _, slot := range f {
		if slot.HourSlotsGroupID == groupID {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (f fakeSlotFinder) ListBySchoolYear(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string) ([]models.HourSlot, error) {
	return append([]models.HourSlot(nil), f...), nil
}

type fakeCatalog struct {
	courses map[string]models.Course
	rooms   map[string]models.Room
}

func (f fakeCatalog) FindCourse(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Course, error) {
	if c, ok := f.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeCatalog) FindRoom(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Room, error) {
	if r, ok := f.rooms[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

// lecture builds a 09:00-10:00 assignment of school s1, year y1.
func lecture(id, teacherID, courseID, date string) models.Assignment {
	return models.Assignment{
		ID:           id,
		TeacherID:    teacherID,
		CourseID:     courseID,
		SubjectID:    "math",
		SchoolID:     "s1",
		SchoolYearID: "y1",
		Date:         mustDate(date),
		HourStart:    "09:00:00",
		HourEnd:      "10:00:00",
	}
}

func inRoom(a models.Assignment, roomID string) models.Assignment {
	a.RoomID = strPtr(roomID)
	return a
}
