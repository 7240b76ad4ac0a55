package models

import "time"

// Holiday closes the whole school for an inclusive date range.
type Holiday struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	SchoolYearID string    `db:"school_year_id" json:"school_year_id"`
	DateStart    time.Time `db:"date_start" json:"date_start"`
	DateEnd      time.Time `db:"date_end" json:"date_end"`
}

// Contains reports whether d lies within the holiday, bounds included.
func (h Holiday) Contains(d time.Time) bool {
	return withinDays(d, h.DateStart, h.DateEnd)
}

// Stage is a course-specific blackout period (internship).
type Stage struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	DateStart time.Time `db:"date_start" json:"date_start"`
	DateEnd   time.Time `db:"date_end" json:"date_end"`
}

// Contains reports whether d lies within the stage, bounds included.
func (s Stage) Contains(d time.Time) bool {
	return withinDays(d, s.DateStart, s.DateEnd)
}

func withinDays(d, start, end time.Time) bool {
	day := DateOnly(d)
	return !day.Before(DateOnly(start)) && !day.After(DateOnly(end))
}

// Exclusion explains why a date is closed for scheduling.
type Exclusion struct {
	Date     time.Time `json:"date"`
	Excluded bool      `json:"excluded"`
	Holidays []Holiday `json:"holidays,omitempty"`
	Stages   []Stage   `json:"stages,omitempty"`
}
