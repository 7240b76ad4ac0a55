package models

import "time"

// School is the tenant boundary; every other record belongs to exactly one.
type School struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SchoolYear identifies a year by its start year and first day.
type SchoolYear struct {
	ID        string    `db:"id" json:"id"`
	YearStart int       `db:"year_start" json:"year_start"`
	DateStart time.Time `db:"date_start" json:"date_start"`
}

// HourSlotsGroup binds a bell schedule to a school and school year.
type HourSlotsGroup struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	SchoolYearID string    `db:"school_year_id" json:"school_year_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Course is a class section following one hour slots group.
type Course struct {
	ID               string `db:"id" json:"id"`
	Year             int    `db:"year" json:"year"`
	Section          string `db:"section" json:"section"`
	SchoolID         string `db:"school_id" json:"school_id"`
	SchoolYearID     string `db:"school_year_id" json:"school_year_id"`
	HourSlotsGroupID string `db:"hour_slots_group_id" json:"hour_slots_group_id"`
}

type Subject struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	SchoolID string `db:"school_id" json:"school_id"`
}

// Room capacity counts distinct courses, not assignment rows.
type Room struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	SchoolID string `db:"school_id" json:"school_id"`
	Capacity int    `db:"capacity" json:"capacity"`
}
