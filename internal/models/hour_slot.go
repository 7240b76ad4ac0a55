package models

import (
	"fmt"
	"time"
)

// HourSlot is one entry of a bell schedule.
type HourSlot struct {
	ID               string    `db:"id" json:"id"`
	HourSlotsGroupID string    `db:"hour_slots_group_id" json:"hour_slots_group_id"`
	HourNumber       int       `db:"hour_number" json:"hour_number"`
	DayOfWeek        Weekday   `db:"day_of_week" json:"day_of_week"`
	StartsAt         string    `db:"starts_at" json:"starts_at"`
	EndsAt           string    `db:"ends_at" json:"ends_at"`
	LegalMinutes     int       `db:"legal_minutes" json:"legal_minutes"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// LegalDuration is the duration credited for a lecture held in this slot.
func (h HourSlot) LegalDuration() time.Duration {
	return time.Duration(h.LegalMinutes) * time.Minute
}

// Overlaps reports whether the two slots share any instant on the same day.
func (h HourSlot) Overlaps(other HourSlot) bool {
	return h.DayOfWeek == other.DayOfWeek && h.StartsAt < other.EndsAt && h.EndsAt > other.StartsAt
}

const clockLayout = "15:04:05"

// NormalizeClock accepts HH:MM or HH:MM:SS and returns HH:MM:SS, the form
// PostgreSQL TIME columns scan into.
func NormalizeClock(raw string) (string, error) {
	for _, layout := range []string{clockLayout, "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(clockLayout), nil
		}
	}
	return "", fmt.Errorf("invalid time of day %q", raw)
}

// ClockSpan returns end minus start for two HH:MM[:SS] values.
func ClockSpan(start, end string) (time.Duration, error) {
	s, err := NormalizeClock(start)
	if err != nil {
		return 0, err
	}
	e, err := NormalizeClock(end)
	if err != nil {
		return 0, err
	}
	st, _ := time.Parse(clockLayout, s)
	et, _ := time.Parse(clockLayout, e)
	return et.Sub(st), nil
}
