package models

// TeacherHoursRow summarises one teacher quota against the lectures planned for it.
// Hour figures are whole hours, rounded down.
type TeacherHoursRow struct {
	TeacherID        string `json:"teacher_id"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	CourseID         string `json:"course_id"`
	Course           string `json:"course"`
	SubjectID        string `json:"subject_id"`
	Subject          string `json:"subject"`
	NormalDone       int    `json:"normal_done"`
	SubstitutionDone int    `json:"substitution_done"`
	BesDone          int    `json:"bes_done"`
	MissingHours     int    `json:"missing_hours"`
	MissingBes       int    `json:"missing_bes"`
}

// TeacherHoursQuota is the joined quota row the report is built from.
type TeacherHoursQuota struct {
	HoursPerTeacherInClass
	FirstName     string `db:"first_name"`
	LastName      string `db:"last_name"`
	CourseYear    int    `db:"course_year"`
	CourseSection string `db:"course_section"`
	SubjectName   string `db:"subject_name"`
	GroupID       string `db:"hour_slots_group_id"`
}
