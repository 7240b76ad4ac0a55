package models

import "time"

// Teacher belongs to exactly one school.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FullName joins first and last name.
func (t Teacher) FullName() string {
	switch {
	case t.FirstName == "":
		return t.LastName
	case t.LastName == "":
		return t.FirstName
	}
	return t.FirstName + " " + t.LastName
}

// HoursPerTeacherInClass is a teacher's yearly quota for a course and subject.
type HoursPerTeacherInClass struct {
	ID              string `db:"id" json:"id"`
	TeacherID       string `db:"teacher_id" json:"teacher_id"`
	CourseID        string `db:"course_id" json:"course_id"`
	SubjectID       string `db:"subject_id" json:"subject_id"`
	SchoolID        string `db:"school_id" json:"school_id"`
	SchoolYearID    string `db:"school_year_id" json:"school_year_id"`
	Hours           int    `db:"hours" json:"hours"`
	HoursBes        int    `db:"hours_bes" json:"hours_bes"`
	HoursCoTeaching int    `db:"hours_co_teaching" json:"hours_co_teaching"`
}

// AbsenceBlock marks a recurring hour slot in which the teacher is never available.
type AbsenceBlock struct {
	ID           string `db:"id" json:"id"`
	TeacherID    string `db:"teacher_id" json:"teacher_id"`
	HourSlotID   string `db:"hour_slot_id" json:"hour_slot_id"`
	SchoolYearID string `db:"school_year_id" json:"school_year_id"`
}
