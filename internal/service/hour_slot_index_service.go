package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type hourSlotStore interface {
	FindGroup(ctx context.Context, id string) (*models.HourSlotsGroup, error)
	ListByGroup(ctx context.Context, exec sqlx.ExtContext, groupID string) ([]models.HourSlot, error)
	FindAligned(ctx context.Context, exec sqlx.ExtContext, schoolID, schoolYearID string, day models.Weekday, start, end string) ([]models.HourSlot, error)
	CreateMany(ctx context.Context, exec sqlx.ExtContext, slots []models.HourSlot) error
}

const hourSlotCachePrefix = "hour_slots:"

// HourSlotIndexService builds and caches per-group bell schedule indexes.
type HourSlotIndexService struct {
	repo      hourSlotStore
	tx        txProvider
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHourSlotIndexService constructs the service. cache may be nil.
func NewHourSlotIndexService(repo hourSlotStore, tx txProvider, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *HourSlotIndexService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HourSlotIndexService{repo: repo, tx: tx, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Index returns the index of a group, served from cache when possible.
func (s *HourSlotIndexService) Index(ctx context.Context, groupID string) (*HourSlotIndex, error) {
	key := hourSlotCachePrefix + groupID
	var slots []models.HourSlot
	if s.cache.Get(ctx, key, &slots) {
		return NewHourSlotIndex(groupID, slots), nil
	}

	slots, err := s.repo.ListByGroup(ctx, nil, groupID)
	if err != nil {
		return nil, internalError(err, "failed to load hour slots")
	}
	s.cache.Set(ctx, key, slots, s.cacheTTL)
	return NewHourSlotIndex(groupID, slots), nil
}

// GroupIndex returns the index of a group owned by schoolID.
func (s *HourSlotIndexService) GroupIndex(ctx context.Context, schoolID, groupID string) (*dto.HourSlotIndexResponse, error) {
	if _, err := s.ownedGroup(ctx, schoolID, groupID); err != nil {
		return nil, err
	}
	index, err := s.Index(ctx, groupID)
	if err != nil {
		return nil, err
	}

	resp := &dto.HourSlotIndexResponse{HourSlotsGroupID: groupID, Slots: []dto.HourSlotIndexEntry{}}
	for _, slot := range index.Slots() {
		resp.Slots = append(resp.Slots, dto.HourSlotIndexEntry{
			ID:           slot.ID,
			HourNumber:   slot.HourNumber,
			DayOfWeek:    int(slot.DayOfWeek),
			StartsAt:     slot.StartsAt,
			EndsAt:       slot.EndsAt,
			LegalMinutes: slot.LegalMinutes,
		})
	}
	return resp, nil
}

func (s *HourSlotIndexService) ownedGroup(ctx context.Context, schoolID, groupID string) (*models.HourSlotsGroup, error) {
	group, err := s.repo.FindGroup(ctx, groupID)
	if err != nil {
		return nil, lookupError(err, "hour slots group")
	}
	if group.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "hour slots group belongs to another school")
	}
	return group, nil
}

// CreateSlots inserts a slot on req.DayOfWeek and on every day of
// req.ReplicateOnDays. Hour numbers are unique per group and day, and slots of
// the same day may not overlap.
func (s *HourSlotIndexService) CreateSlots(ctx context.Context, schoolID string, req dto.CreateHourSlotsRequest) ([]models.HourSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hour slot payload")
	}
	startsAt, err := models.NormalizeClock(req.StartsAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "startsAt must be HH:MM or HH:MM:SS")
	}
	endsAt, err := models.NormalizeClock(req.EndsAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "endsAt must be HH:MM or HH:MM:SS")
	}
	if startsAt >= endsAt {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startsAt must be before endsAt")
	}
	if _, err := s.ownedGroup(ctx, schoolID, req.HourSlotsGroupID); err != nil {
		return nil, err
	}

	days := uniqueWeekdays(append([]int{req.DayOfWeek}, req.ReplicateOnDays...))
	slots := make([]models.HourSlot, 0, len(days))
	for _, day := range days {
		slots = append(slots, models.HourSlot{
			HourSlotsGroupID: req.HourSlotsGroupID,
			HourNumber:       req.HourNumber,
			DayOfWeek:        day,
			StartsAt:         startsAt,
			EndsAt:           endsAt,
			LegalMinutes:     req.LegalMinutes,
		})
	}

	err = runInTx(ctx, s.tx, serializableTx, func(tx *sqlx.Tx) error {
		existing, err := s.repo.ListByGroup(ctx, tx, req.HourSlotsGroupID)
		if err != nil {
			return internalError(err, "failed to load hour slots")
		}
		for _, slot := range slots {
			if err := checkSlotFits(slot, existing); err != nil {
				return err
			}
		}
		if err := s.repo.CreateMany(ctx, tx, slots); err != nil {
			return internalError(err, "failed to create hour slots")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, hourSlotCachePrefix+req.HourSlotsGroupID); err != nil {
		s.logger.Warn("hour slot index not invalidated", zap.String("group_id", req.HourSlotsGroupID), zap.Error(err))
	}
	s.logger.Info("hour slots created",
		zap.String("group_id", req.HourSlotsGroupID),
		zap.Int("hour_number", req.HourNumber),
		zap.Int("days", len(slots)),
	)
	return slots, nil
}

func checkSlotFits(slot models.HourSlot, existing []models.HourSlot) error {
	for _, other := range existing {
		if other.DayOfWeek != slot.DayOfWeek {
			continue
		}
		if other.HourNumber == slot.HourNumber {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("hour %d already defined on %s", slot.HourNumber, slot.DayOfWeek))
		}
		if other.Overlaps(slot) {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("slot overlaps hour %d (%s-%s) on %s", other.HourNumber, other.StartsAt, other.EndsAt, slot.DayOfWeek))
		}
	}
	return nil
}

func uniqueWeekdays(days []int) []models.Weekday {
	seen := make(map[int]struct{}, len(days))
	out := make([]models.Weekday, 0, len(days))
	for _, d := range days {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, models.Weekday(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type slotKey struct {
	day   models.Weekday
	start string
}

// HourSlotIndex maps (weekday, start time) to the slot of one group.
type HourSlotIndex struct {
	GroupID string
	slots   map[slotKey]models.HourSlot
}

// NewHourSlotIndex indexes the slots of a group.
func NewHourSlotIndex(groupID string, slots []models.HourSlot) *HourSlotIndex {
	idx := &HourSlotIndex{GroupID: groupID, slots: make(map[slotKey]models.HourSlot, len(slots))}
	for _, slot := range slots {
		idx.slots[slotKey{day: slot.DayOfWeek, start: slot.StartsAt}] = slot
	}
	return idx
}

// Lookup returns the slot starting at start on day.
func (i *HourSlotIndex) Lookup(day models.Weekday, start string) (models.HourSlot, bool) {
	if i == nil {
		return models.HourSlot{}, false
	}
	slot, ok := i.slots[slotKey{day: day, start: start}]
	return slot, ok
}

// Duration is the credited length of a lecture: the slot's legal duration
// when the lecture matches a slot exactly, its clock length otherwise.
func (i *HourSlotIndex) Duration(a models.Assignment) time.Duration {
	if slot, ok := i.Lookup(a.Weekday(), a.HourStart); ok && slot.EndsAt == a.HourEnd {
		return slot.LegalDuration()
	}
	span, err := models.ClockSpan(a.HourStart, a.HourEnd)
	if err != nil || span < 0 {
		return 0
	}
	return span
}

// Slots returns the indexed slots ordered by weekday and hour number.
func (i *HourSlotIndex) Slots() []models.HourSlot {
	if i == nil {
		return nil
	}
	out := make([]models.HourSlot, 0, len(i.slots))
	for _, slot := range i.slots {
		out = append(out, slot)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].DayOfWeek != out[b].DayOfWeek {
			return out[a].DayOfWeek < out[b].DayOfWeek
		}
		return out[a].HourNumber < out[b].HourNumber
	})
	return out
}
