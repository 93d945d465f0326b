package service

import (
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-api/internal/models"
)

// monday is an ISO weekday 1 school day used across the fixtures.
const monday = "2024-09-02"

func strPtr(s string) *string { return &s }

// fixtureSnapshot builds a small first half-year:
//
//	Monday FIRST  p1: l1 5A math  Ana   r101 | l3 5B physics Budi lab
//	              p2: l2 5B art   Ana   r102 | l4 5A art     Citra r102
//	              p3: l5 5A math  Ana   r101
func fixtureSnapshot() models.Snapshot {
	return models.Snapshot{
		HalfYear: models.HalfYearFirst,
		Version:  1,
		Teachers: []models.Teacher{
			{ID: "t1", HalfYear: models.HalfYearFirst, Name: "Ana", Subjects: pq.StringArray{"math"}, Shifts: pq.StringArray{"FIRST"}, NotifyAddress: strPtr("ana@school.test")},
			{ID: "t2", HalfYear: models.HalfYearFirst, Name: "Budi", Subjects: pq.StringArray{"math", "physics"}, Shifts: pq.StringArray{"FIRST"}, NotifyAddress: strPtr("@budi")},
			{ID: "t3", HalfYear: models.HalfYearFirst, Name: "Citra", Subjects: pq.StringArray{"art"}, Shifts: pq.StringArray{"FIRST"}},
			{ID: "t4", HalfYear: models.HalfYearFirst, Name: "Dewi", Subjects: pq.StringArray{"math"}, Shifts: pq.StringArray{"SECOND"}, UnavailableDates: pq.StringArray{monday}},
		},
		Classes: []models.ClassGroup{
			{ID: "c1", HalfYear: models.HalfYearFirst, Name: "5A", Shift: models.ShiftFirst, StudentCount: 28},
			{ID: "c2", HalfYear: models.HalfYearFirst, Name: "5B", Shift: models.ShiftFirst, StudentCount: 30},
			{ID: "c3", HalfYear: models.HalfYearFirst, Name: "Assembly", Shift: models.ShiftFirst, StudentCount: 200, ExcludeFromConflicts: true},
		},
		Rooms: []models.Room{
			{ID: "r101", HalfYear: models.HalfYearFirst, Name: "101", Capacity: 30, RoomType: "general"},
			{ID: "r102", HalfYear: models.HalfYearFirst, Name: "Room 102", Capacity: 24, RoomType: "general"},
			{ID: "lab", HalfYear: models.HalfYearFirst, Name: "Lab 201", Capacity: 30, RoomType: "lab"},
		},
		Subjects: []models.Subject{
			{ID: "math", HalfYear: models.HalfYearFirst, Name: "Mathematics", RequiredRoomType: models.RoomTypeAny},
			{ID: "physics", HalfYear: models.HalfYearFirst, Name: "Physics", RequiredRoomType: "lab"},
			{ID: "art", HalfYear: models.HalfYearFirst, Name: "Art"},
		},
		Lessons: []models.LessonSlot{
			{ID: "l1", HalfYear: models.HalfYearFirst, ClassID: "c1", SubjectID: "math", TeacherID: "t1", RoomID: strPtr("r101"), Weekday: 1, Period: 1, Shift: models.ShiftFirst},
			{ID: "l2", HalfYear: models.HalfYearFirst, ClassID: "c2", SubjectID: "art", TeacherID: "t1", RoomID: strPtr("r102"), Weekday: 1, Period: 2, Shift: models.ShiftFirst},
			{ID: "l3", HalfYear: models.HalfYearFirst, ClassID: "c2", SubjectID: "physics", TeacherID: "t2", RoomID: strPtr("lab"), Weekday: 1, Period: 1, Shift: models.ShiftFirst},
			{ID: "l4", HalfYear: models.HalfYearFirst, ClassID: "c1", SubjectID: "art", TeacherID: "t3", RoomID: strPtr("r102"), Weekday: 1, Period: 2, Shift: models.ShiftFirst},
			{ID: "l5", HalfYear: models.HalfYearFirst, ClassID: "c1", SubjectID: "math", TeacherID: "t1", RoomID: strPtr("r101"), Weekday: 1, Period: 3, Shift: models.ShiftFirst},
		},
		DutyZones: []models.DutyZone{
			{ID: "z1", HalfYear: models.HalfYearFirst, Name: "Ground hall", Floor: "0", Rooms: pq.StringArray{"101", "102"}, DisplayOrder: 1},
			{ID: "z2", HalfYear: models.HalfYearFirst, Name: "Lab wing", Floor: "2", Rooms: pq.StringArray{"201"}, DisplayOrder: 2},
		},
	}
}

func fixtureStore() *TimetableStore {
	return NewTimetableStore(fixtureSnapshot())
}
