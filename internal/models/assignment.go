package models

import (
	"sort"
	"time"
)

// Assignment is one lecture: a teacher teaching a subject to a course on a
// date and hour range, optionally in a room.
type Assignment struct {
	ID                      string    `db:"id" json:"id"`
	TeacherID               string    `db:"teacher_id" json:"teacher_id"`
	CourseID                string    `db:"course_id" json:"course_id"`
	SubjectID               string    `db:"subject_id" json:"subject_id"`
	SchoolID                string    `db:"school_id" json:"school_id"`
	SchoolYearID            string    `db:"school_year_id" json:"school_year_id"`
	RoomID                  *string   `db:"room_id" json:"room_id,omitempty"`
	Date                    time.Time `db:"date" json:"date"`
	HourStart               string    `db:"hour_start" json:"hour_start"`
	HourEnd                 string    `db:"hour_end" json:"hour_end"`
	Bes                     bool      `db:"bes" json:"bes"`
	CoTeaching              bool      `db:"co_teaching" json:"co_teaching"`
	Substitution            bool      `db:"substitution" json:"substitution"`
	Absent                  bool      `db:"absent" json:"absent"`
	FreeSubstitution        bool      `db:"free_substitution" json:"free_substitution"`
	SubstitutedAssignmentID *string   `db:"substituted_assignment_id" json:"substituted_assignment_id,omitempty"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

// AssignmentFilter narrows assignment queries. Zero values are ignored.
type AssignmentFilter struct {
	SchoolID     string
	SchoolYearID string
	CourseIDs    []string
	TeacherID    string
	RoomID       string
	DateFrom     *time.Time
	DateTo       *time.Time
	Date         *time.Time
	Weekday      *Weekday
	HourStart    string
	HourEnd      string
	Bes          *bool
	CoTeaching   *bool
	Substitution *bool
	Absent       *bool
	ExcludeIDs   []string
}

// Weekday returns the Monday-first weekday of the assignment date.
func (a Assignment) Weekday() Weekday {
	return WeekdayOf(a.Date)
}

// HasRoom reports whether the assignment occupies a room.
func (a Assignment) HasRoom() bool {
	return a.RoomID != nil && *a.RoomID != ""
}

// InRoom reports whether the assignment is held in roomID.
func (a Assignment) InRoom(roomID string) bool {
	return a.HasRoom() && *a.RoomID == roomID
}

// SameLecture reports whether b is the recurring counterpart of a on a
// possibly different date of the same weekday.
func (a Assignment) SameLecture(b Assignment) bool {
	return a.SchoolID == b.SchoolID &&
		a.SchoolYearID == b.SchoolYearID &&
		a.CourseID == b.CourseID &&
		a.TeacherID == b.TeacherID &&
		a.SubjectID == b.SubjectID &&
		a.Weekday() == b.Weekday() &&
		a.HourStart == b.HourStart &&
		a.HourEnd == b.HourEnd &&
		a.Bes == b.Bes &&
		a.CoTeaching == b.CoTeaching &&
		a.Absent == b.Absent &&
		a.Substitution == b.Substitution
}

// Identical compares every stored field except identity and timestamps.
func (a Assignment) Identical(b Assignment) bool {
	return a.TeacherID == b.TeacherID &&
		a.CourseID == b.CourseID &&
		a.SubjectID == b.SubjectID &&
		a.SchoolID == b.SchoolID &&
		a.SchoolYearID == b.SchoolYearID &&
		equalOptional(a.RoomID, b.RoomID) &&
		SameDate(a.Date, b.Date) &&
		a.HourStart == b.HourStart &&
		a.HourEnd == b.HourEnd &&
		a.Bes == b.Bes &&
		a.CoTeaching == b.CoTeaching &&
		a.Substitution == b.Substitution &&
		a.Absent == b.Absent &&
		a.FreeSubstitution == b.FreeSubstitution &&
		equalOptional(a.SubstitutedAssignmentID, b.SubstitutedAssignmentID)
}

// ReplicaOn copies the lecture to date d with a blank identity.
func (a Assignment) ReplicaOn(d time.Time) Assignment {
	replica := a
	replica.ID = ""
	replica.Date = DateOnly(d)
	replica.CreatedAt = time.Time{}
	replica.UpdatedAt = time.Time{}
	if a.RoomID != nil {
		room := *a.RoomID
		replica.RoomID = &room
	}
	return replica
}

// HourSlotIn returns the slot of groupID the lecture aligns with on its
// weekday, nil when its hours fall outside the group's bell schedule.
func (a Assignment) HourSlotIn(slots []HourSlot, groupID string) *HourSlot {
	day := a.Weekday()
	for i := range slots {
		slot := slots[i]
		if slot.HourSlotsGroupID == groupID && slot.DayOfWeek == day && slot.StartsAt == a.HourStart && slot.EndsAt == a.HourEnd {
			return &slots[i]
		}
	}
	return nil
}

// ConflictingHourSlots returns the slots of any group that overlap the
// lecture on its weekday.
func (a Assignment) ConflictingHourSlots(slots []HourSlot) []HourSlot {
	span := HourSlot{DayOfWeek: a.Weekday(), StartsAt: a.HourStart, EndsAt: a.HourEnd}
	var out []HourSlot
	for _, slot := range slots {
		if span.Overlaps(slot) {
			out = append(out, slot)
		}
	}
	return out
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate compares calendar days ignoring clock and location.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SortAssignments orders by date, hour_start and id.
func SortAssignments(rows []Assignment) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !SameDate(rows[i].Date, rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		if rows[i].HourStart != rows[j].HourStart {
			return rows[i].HourStart < rows[j].HourStart
		}
		return rows[i].ID < rows[j].ID
	})
}

// ConflictReport lists pre-existing assignments a replication would collide with.
type ConflictReport struct {
	CourseConflicts  []Assignment `json:"course_conflicts"`
	TeacherConflicts []Assignment `json:"teacher_conflicts"`
	RoomConflicts    []Assignment `json:"room_conflicts"`
}

// Empty reports whether no conflict of any kind was found.
func (r ConflictReport) Empty() bool {
	return len(r.CourseConflicts) == 0 && len(r.TeacherConflicts) == 0 && len(r.RoomConflicts) == 0
}

// All returns the union of the three sets, de-duplicated by id.
func (r ConflictReport) All() []Assignment {
	seen := make(map[string]struct{})
	var out []Assignment
	for _, set := range [][]Assignment{r.TeacherConflicts, r.CourseConflicts, r.RoomConflicts} {
		for _, row := range set {
			if _, ok := seen[row.ID]; ok {
				continue
			}
			seen[row.ID] = struct{}{}
			out = append(out, row)
		}
	}
	SortAssignments(out)
	return out
}

// ReplicationRequest carries the parameters of a week replication.
type ReplicationRequest struct {
	SchoolID               string
	TemplateIDs            []string
	From                   time.Time
	To                     time.Time
	WithoutSubstitutions   bool
	RemoveExtraAssignments bool
}

// ReplicationResult is returned by both the dry run and the real replication.
// Created and Deleted stay empty whenever Conflicts is non-empty.
type ReplicationResult struct {
	Conflicts ConflictReport `json:"conflicts"`
	Created   []Assignment   `json:"created"`
	Deleted   int64          `json:"deleted"`
	DryRun    bool           `json:"dry_run"`
}

// AssignmentView is an assignment placed on the bell schedules of its school
// year: the slot of its course's group and every slot it overlaps.
type AssignmentView struct {
	Assignment
	HourSlotID         *string  `json:"hour_slot"`
	ConflictingSlotIDs []string `json:"conflicting_hour_slots"`
}

// NewAssignmentView resolves a against slots, the school year's hour slots.
func NewAssignmentView(a Assignment, groupID string, slots []HourSlot) AssignmentView {
	view := AssignmentView{Assignment: a, ConflictingSlotIDs: []string{}}
	if slot := a.HourSlotIn(slots, groupID); slot != nil {
		id := slot.ID
		view.HourSlotID = &id
	}
	for _, slot := range a.ConflictingHourSlots(slots) {
		view.ConflictingSlotIDs = append(view.ConflictingSlotIDs, slot.ID)
	}
	return view
}

// SubstituteCandidate is a teacher offered as substitute, with how the extra
// hour fits their day.
type SubstituteCandidate struct {
	Teacher
	HasHourBefore          bool `json:"has_hour_before"`
	HasHourAfter           bool `json:"has_hour_after"`
	SubstitutionsMadeSoFar int  `json:"substitutions_made_so_far"`
}

// SubstitutionCandidates splits the school's teachers for one assignment.
type SubstitutionCandidates struct {
	Available []SubstituteCandidate `json:"available_teachers"`
	Other     []SubstituteCandidate `json:"other_teachers"`
}

// SubstitutionResult describes an applied substitution.
type SubstitutionResult struct {
	Original   Assignment `json:"original"`
	Substitute Assignment `json:"substitute"`
	Free       bool       `json:"free_substitution"`
}
