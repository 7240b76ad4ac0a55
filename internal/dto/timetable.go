package dto

// ReplicationRequest copies template assignments onto every matching weekday of [from, to].
type ReplicationRequest struct {
	AssignmentIDs          []string `json:"assignmentIds" validate:"required,min=1,dive,required"`
	From                   string   `json:"from" validate:"required,datetime=2006-01-02"`
	To                     string   `json:"to" validate:"required,datetime=2006-01-02"`
	WithoutSubstitutions   bool     `json:"withoutSubstitutions"`
	RemoveExtraAssignments bool     `json:"removeExtraAssignments"`
}

// CreateAssignmentRequest adds a single lecture.
type CreateAssignmentRequest struct {
	TeacherID               string  `json:"teacherId" validate:"required"`
	CourseID                string  `json:"courseId" validate:"required"`
	SubjectID               string  `json:"subjectId" validate:"required"`
	RoomID                  *string `json:"roomId"`
	Date                    string  `json:"date" validate:"required,datetime=2006-01-02"`
	HourStart               string  `json:"hourStart" validate:"required"`
	HourEnd                 string  `json:"hourEnd" validate:"required"`
	Bes                     bool    `json:"bes"`
	CoTeaching              bool    `json:"coTeaching"`
	Substitution            bool    `json:"substitution"`
	Absent                  bool    `json:"absent"`
	FreeSubstitution        bool    `json:"freeSubstitution"`
	SubstitutedAssignmentID *string `json:"substitutedAssignmentId"`
}

// CreateHourSlotsRequest adds one bell-schedule slot, optionally repeated on other days.
type CreateHourSlotsRequest struct {
	HourSlotsGroupID string `json:"hourSlotsGroupId" validate:"required"`
	HourNumber       int    `json:"hourNumber" validate:"required,min=1"`
	DayOfWeek        int    `json:"dayOfWeek" validate:"min=0,max=6"`
	StartsAt         string `json:"startsAt" validate:"required"`
	EndsAt           string `json:"endsAt" validate:"required"`
	LegalMinutes     int    `json:"legalMinutes" validate:"required,min=1"`
	ReplicateOnDays  []int  `json:"replicateOnDays" validate:"omitempty,dive,min=0,max=6"`
}

// ExclusionQuery is bound from the query string of the exclusion lookup.
type ExclusionQuery struct {
	Date         string `form:"date" validate:"required,datetime=2006-01-02"`
	SchoolYearID string `form:"schoolYearId"`
	CourseID     string `form:"courseId"`
}

// TeacherAssignmentsQuery is bound from the query string of a teacher's timetable.
type TeacherAssignmentsQuery struct {
	SchoolYearID string `form:"schoolYearId" validate:"required"`
	From         string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To           string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}

// HourSlotIndexEntry is one slot of a group's index.
type HourSlotIndexEntry struct {
	ID           string `json:"id"`
	HourNumber   int    `json:"hourNumber"`
	DayOfWeek    int    `json:"dayOfWeek"`
	StartsAt     string `json:"startsAt"`
	EndsAt       string `json:"endsAt"`
	LegalMinutes int    `json:"legalMinutes"`
}

// HourSlotIndexResponse lists a group's slots in day and hour order.
type HourSlotIndexResponse struct {
	HourSlotsGroupID string               `json:"hourSlotsGroupId"`
	Slots            []HourSlotIndexEntry `json:"slots"`
}
