package service

import (
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// assignmentPredicate is one reusable filter step over candidate rows.
type assignmentPredicate func(models.Assignment) bool

func filterAssignments(rows []models.Assignment, preds ...assignmentPredicate) []models.Assignment {
	out := make([]models.Assignment, 0, len(rows))
next:
	for _, row := range rows {
		for _, pred := range preds {
			if !pred(row) {
				continue next
			}
		}
		out = append(out, row)
	}
	return out
}

// sharesSlot keeps rows of the template's school, school year, weekday and start time.
func sharesSlot(t models.Assignment) assignmentPredicate {
	day := t.Weekday()
	return func(a models.Assignment) bool {
		return a.SchoolID == t.SchoolID &&
			a.SchoolYearID == t.SchoolYearID &&
			a.Weekday() == day &&
			a.HourStart == t.HourStart
	}
}

func taughtBy(teacherID string) assignmentPredicate {
	return func(a models.Assignment) bool { return a.TeacherID == teacherID }
}

func heldDuring(start, end string) assignmentPredicate {
	return func(a models.Assignment) bool { return a.HourStart == start && a.HourEnd == end }
}

func attendedBy(courseID string) assignmentPredicate {
	return func(a models.Assignment) bool { return a.CourseID == courseID }
}

func heldIn(roomID string) assignmentPredicate {
	return func(a models.Assignment) bool { return a.InRoom(roomID) }
}

// occupiesRoom excludes substitution rows, which never count towards room capacity.
func occupiesRoom(a models.Assignment) bool {
	return !a.Substitution
}

func notIn(ids map[string]struct{}) assignmentPredicate {
	return func(a models.Assignment) bool {
		_, ok := ids[a.ID]
		return !ok
	}
}

func notLectureOf(templates []models.Assignment) assignmentPredicate {
	return func(a models.Assignment) bool {
		for _, t := range templates {
			if t.SameLecture(a) {
				return false
			}
		}
		return true
	}
}

// conflictSet de-duplicates conflicting rows by id.
type conflictSet map[string]models.Assignment

func (s conflictSet) add(rows ...models.Assignment) {
	for _, row := range rows {
		s[row.ID] = row
	}
}

func (s conflictSet) sorted() []models.Assignment {
	out := make([]models.Assignment, 0, len(s))
	for _, row := range s {
		out = append(out, row)
	}
	models.SortAssignments(out)
	return out
}

// ClassifyConflicts reports which rows of pool would collide with copies of
// templates placed on the pool's dates. pool must hold every assignment dated
// inside the target range; rooms must hold the templates' rooms. Course
// conflicts are only collected when countCourseConflicts is set.
func ClassifyConflicts(templates, pool []models.Assignment, rooms map[string]models.Room, countCourseConflicts bool) models.ConflictReport {
	templateIDs := make(map[string]struct{}, len(templates))
	for _, t := range templates {
		templateIDs[t.ID] = struct{}{}
	}

	// Rows that are the templates themselves, or the same lecture already
	// scheduled on another week, are never conflicts.
	candidates := filterAssignments(pool, notIn(templateIDs), notLectureOf(templates))

	teachers := conflictSet{}
	courses := conflictSet{}
	roomsHit := conflictSet{}

	for _, t := range templates {
		restricted := filterAssignments(candidates, sharesSlot(t))
		if len(restricted) == 0 {
			continue
		}

		teachers.add(filterAssignments(restricted, taughtBy(t.TeacherID))...)

		if countCourseConflicts {
			courses.add(filterAssignments(restricted, attendedBy(t.CourseID))...)
		}

		if t.HasRoom() {
			room, ok := rooms[*t.RoomID]
			if !ok {
				continue
			}
			roomsHit.add(overCapacity(t, room, filterAssignments(restricted, heldIn(room.ID), occupiesRoom))...)
		}
	}

	return models.ConflictReport{
		CourseConflicts:  courses.sorted(),
		TeacherConflicts: teachers.sorted(),
		RoomConflicts:    roomsHit.sorted(),
	}
}

// overCapacity returns the occupants of every date on which adding the
// template's course would exceed the room capacity. Rows of the template's own
// course share its seat, so a date already hosting that course never conflicts.
func overCapacity(t models.Assignment, room models.Room, occupants []models.Assignment) []models.Assignment {
	type dayOccupancy struct {
		rows    []models.Assignment
		courses map[string]struct{}
	}
	byDate := make(map[string]*dayOccupancy)
	var order []string
	for _, row := range occupants {
		key := row.Date.Format("2006-01-02")
		day, ok := byDate[key]
		if !ok {
			day = &dayOccupancy{courses: make(map[string]struct{})}
			byDate[key] = day
			order = append(order, key)
		}
		day.rows = append(day.rows, row)
		day.courses[row.CourseID] = struct{}{}
	}

	var out []models.Assignment
	for _, key := range order {
		day := byDate[key]
		if _, shared := day.courses[t.CourseID]; shared {
			continue
		}
		if len(day.courses) >= room.Capacity {
			out = append(out, day.rows...)
		}
	}
	return out
}
