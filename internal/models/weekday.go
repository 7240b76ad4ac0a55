package models

import (
	"fmt"
	"time"
)

// Weekday indexes days Monday-first: Monday = 0 ... Sunday = 6. This is the
// convention stored in hour_slots.day_of_week and the only one the domain
// compares against. Every other representation converts through the helpers
// below.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// WeekdayOf returns the Monday-first weekday of t.
func WeekdayOf(t time.Time) Weekday {
	return FromTimeWeekday(t.Weekday())
}

// FromTimeWeekday converts Go's Sunday = 0 weekday.
func FromTimeWeekday(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

// FromSundayFirst converts a 1..7 index where 1 is Sunday.
func FromSundayFirst(d int) (Weekday, error) {
	if d < 1 || d > 7 {
		return 0, fmt.Errorf("sunday-first weekday out of range: %d", d)
	}
	return Weekday((d + 5) % 7), nil
}

// FromPostgresDOW converts EXTRACT(DOW ...) where 0 is Sunday.
func FromPostgresDOW(d int) (Weekday, error) {
	if d < 0 || d > 6 {
		return 0, fmt.Errorf("postgres dow out of range: %d", d)
	}
	return FromTimeWeekday(time.Weekday(d)), nil
}

// FromISODOW converts EXTRACT(ISODOW ...) where 1 is Monday and 7 Sunday.
func FromISODOW(d int) (Weekday, error) {
	if d < 1 || d > 7 {
		return 0, fmt.Errorf("iso weekday out of range: %d", d)
	}
	return Weekday(d - 1), nil
}

// TimeWeekday returns the Go weekday.
func (w Weekday) TimeWeekday() time.Weekday {
	return time.Weekday((int(w) + 1) % 7)
}

// SundayFirst returns the 1..7 Sunday-first index.
func (w Weekday) SundayFirst() int {
	return (int(w)+1)%7 + 1
}

// PostgresDOW returns the value EXTRACT(DOW ...) yields for this weekday.
func (w Weekday) PostgresDOW() int {
	return int(w.TimeWeekday())
}

// ISODOW returns the value EXTRACT(ISODOW ...) yields for this weekday.
func (w Weekday) ISODOW() int {
	return int(w) + 1
}

// DaysUntil returns how many days forward from w the next target falls,
// 0 when they are the same day.
func (w Weekday) DaysUntil(target Weekday) int {
	return (int(target) - int(w) + 7) % 7
}

// Valid reports whether w is within Monday..Sunday.
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return weekdayNames[w]
}
