package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"path"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type fakeHourSlotStore struct {
	groups    map[string]models.HourSlotsGroup
	slots     []models.HourSlot
	listCalls int
}

func (f *fakeHourSlotStore) FindGroup(ctx context.Context, id string) (*models.HourSlotsGroup, error) {
	if g, ok := f.groups[id]; ok {
		return &g, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeHourSlotStore) ListByGroup(ctx context.Context, exec sqlx.ExtContext, groupID string) ([]models.HourSlot, error) {
	f.listCalls++
	var out []models.HourSlot
	for _, slot := range f.slots {
		if slot.HourSlotsGroupID == groupID {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (f *fakeHourSlotStore) FindAligned(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string, d models.Weekday, start, end string) ([]models.HourSlot, error) {
	return fakeSlotFinder(f.slots).FindAligned(ctx, exec, schoolID, schoolYearID, d, start, end)
}

func (f *fakeHourSlotStore) CreateMany(ctx context.Context, exec sqlx.ExtContext, slots []models.HourSlot) error {
	f.slots = append(f.slots, slots...)
	return nil
}

// memoryCache stores JSON payloads like the Redis repository does.
type memoryCache map[string][]byte

func (m memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m[key] = raw
	return nil
}

func (m memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m, key)
		}
	}
	return nil
}

func monday(number int, start, end string, legal int) models.HourSlot {
	return models.HourSlot{
		ID:               start,
		HourSlotsGroupID: "g1",
		HourNumber:       number,
		DayOfWeek:        models.Monday,
		StartsAt:         start,
		EndsAt:           end,
		LegalMinutes:     legal,
	}
}

func newHourSlotFixture(t *testing.T) (*HourSlotIndexService, *fakeHourSlotStore, memoryCache, *MetricsService, sqlmock.Sqlmock) {
	t.Helper()
	tx, mock := newTxProviderMock(t)
	store := &fakeHourSlotStore{
		groups: map[string]models.HourSlotsGroup{
			"g1": {ID: "g1", SchoolID: "s1", SchoolYearID: "y1"},
			"g2": {ID: "g2", SchoolID: "s2", SchoolYearID: "y1"},
		},
		slots: []models.HourSlot{
			monday(2, "09:00:00", "10:00:00", 50),
			monday(1, "08:00:00", "09:00:00", 60),
		},
	}
	mem := memoryCache{}
	metrics := NewMetricsService()
	cache := NewCacheService(mem, metrics, time.Minute, nil, true)
	return NewHourSlotIndexService(store, tx, cache, time.Minute, nil, nil), store, mem, metrics, mock
}

func TestHourSlotIndexIsCached(t *testing.T) {
	svc, store, mem, metrics, _ := newHourSlotFixture(t)

	first, err := svc.Index(context.Background(), "g1")
	require.NoError(t, err)
	second, err := svc.Index(context.Background(), "g1")
	require.NoError(t, err)

	assert.Equal(t, 1, store.listCalls)
	assert.Contains(t, mem, "hour_slots:g1")
	assert.Equal(t, first.Slots(), second.Slots())
	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestHourSlotGroupIndexOrdersSlotsAndChecksSchool(t *testing.T) {
	svc, _, _, _, _ := newHourSlotFixture(t)

	resp, err := svc.GroupIndex(context.Background(), "s1", "g1")
	require.NoError(t, err)
	require.Len(t, resp.Slots, 2)
	assert.Equal(t, 1, resp.Slots[0].HourNumber)
	assert.Equal(t, 2, resp.Slots[1].HourNumber)

	_, err = svc.GroupIndex(context.Background(), "s1", "g2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.GroupIndex(context.Background(), "s1", "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestHourSlotCreateReplicatesOnDaysAndInvalidatesCache(t *testing.T) {
	svc, store, mem, _, mock := newHourSlotFixture(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	_, err := svc.Index(context.Background(), "g1")
	require.NoError(t, err)

	created, err := svc.CreateSlots(context.Background(), "s1", dto.CreateHourSlotsRequest{
		HourSlotsGroupID: "g1",
		HourNumber:       3,
		DayOfWeek:        0,
		StartsAt:         "10:00",
		EndsAt:           "11:00",
		LegalMinutes:     60,
		ReplicateOnDays:  []int{2, 2, 0},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, models.Monday, created[0].DayOfWeek)
	assert.Equal(t, models.Wednesday, created[1].DayOfWeek)
	assert.Equal(t, "10:00:00", created[0].StartsAt)
	assert.Len(t, store.slots, 4)
	assert.NotContains(t, mem, "hour_slots:g1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHourSlotCreateRejectsInvalidSlots(t *testing.T) {
	svc, store, _, _, mock := newHourSlotFixture(t)
	base := dto.CreateHourSlotsRequest{HourSlotsGroupID: "g1", HourNumber: 3, StartsAt: "10:00", EndsAt: "11:00", LegalMinutes: 60}

	reversed := base
	reversed.StartsAt, reversed.EndsAt = "11:00", "10:00"
	_, err := svc.CreateSlots(context.Background(), "s1", reversed)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	duplicate := base
	duplicate.HourNumber = 2
	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.CreateSlots(context.Background(), "s1", duplicate)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	overlapping := base
	overlapping.StartsAt = "09:30"
	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.CreateSlots(context.Background(), "s1", overlapping)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	badDay := base
	badDay.DayOfWeek = 7
	_, err = svc.CreateSlots(context.Background(), "s1", badDay)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.CreateSlots(context.Background(), "s2", base)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Len(t, store.slots, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHourSlotIndexDuration(t *testing.T) {
	index := NewHourSlotIndex("g1", []models.HourSlot{monday(2, "09:00:00", "10:00:00", 50)})

	aligned := lecture("a", "T", "C1", "2024-09-02")
	assert.Equal(t, 50*time.Minute, index.Duration(aligned))

	shorter := aligned
	shorter.HourEnd = "09:45:00"
	assert.Equal(t, 45*time.Minute, index.Duration(shorter))

	tuesday := lecture("b", "T", "C1", "2024-09-03")
	assert.Equal(t, time.Hour, index.Duration(tuesday))

	slot, ok := index.Lookup(models.Monday, "09:00:00")
	require.True(t, ok)
	assert.Equal(t, 2, slot.HourNumber)

	var empty *HourSlotIndex
	_, ok = empty.Lookup(models.Monday, "09:00:00")
	assert.False(t, ok)
}
