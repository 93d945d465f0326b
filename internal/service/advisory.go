package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/timetable-api/internal/models"
)

// LessonAdvisories lists the non-blocking problems of a draft lesson, including its conflict tags.
func LessonAdvisories(store *TimetableStore, lesson models.LessonSlot) []models.Advisory {
	var out []models.Advisory
	if teacher, err := store.Teacher(lesson.TeacherID); err == nil {
		out = append(out, shiftAdvisories(teacher, lesson.Shift)...)
	}
	out = append(out, roomAdvisories(store, lesson.Room(), lesson.ClassID, lesson.SubjectID)...)
	if tags := DetectConflicts(lesson, store.Lessons(), store.ClassExcluded); len(tags) > 0 {
		names := make([]string, len(tags))
		for i, t := range tags {
			names[i] = string(t)
		}
		out = append(out, models.Advisory{
			Code:    models.AdvisoryLessonConflict,
			Message: fmt.Sprintf("weekday %d period %d collides on %s", lesson.Weekday, lesson.Period, strings.Join(names, ", ")),
		})
	}
	return out
}

// SubstitutionAdvisories lists the non-blocking problems of a resolved substitution.
func SubstitutionAdvisories(store *TimetableStore, sub models.Substitution) []models.Advisory {
	lesson, err := store.Lesson(sub.LessonID)
	if err != nil {
		return nil
	}
	var out []models.Advisory
	if id, ok := sub.Teacher(); ok {
		if teacher, err := store.Teacher(id); err == nil {
			if teacher.IsAbsentOn(sub.Date) {
				out = append(out, models.Advisory{
					Code:    models.AdvisoryAbsentTeacher,
					Message: fmt.Sprintf("%s is marked absent on %s", teacher.Name, sub.Date),
				})
			}
			out = append(out, shiftAdvisories(teacher, lesson.Shift)...)
		}
	}
	room := lesson.Room()
	if sub.ReplacementRoomID != nil {
		room = *sub.ReplacementRoomID
	}
	classID, subjectID := lesson.ClassID, lesson.SubjectID
	if sub.OverrideClassID != nil {
		classID = *sub.OverrideClassID
	}
	if sub.OverrideSubjectID != nil {
		subjectID = *sub.OverrideSubjectID
	}
	return append(out, roomAdvisories(store, room, classID, subjectID)...)
}

func shiftAdvisories(teacher models.Teacher, shift models.Shift) []models.Advisory {
	if len(teacher.Shifts) == 0 {
		return []models.Advisory{{
			Code:    models.AdvisoryNoShift,
			Message: fmt.Sprintf("%s has no shift membership", teacher.Name),
		}}
	}
	if !teacher.HasShift(shift) {
		return []models.Advisory{{
			Code:    models.AdvisoryShiftMismatch,
			Message: fmt.Sprintf("%s does not work the %s shift", teacher.Name, strings.ToLower(string(shift))),
		}}
	}
	return nil
}

func roomAdvisories(store *TimetableStore, roomID, classID, subjectID string) []models.Advisory {
	if roomID == "" {
		return nil
	}
	room, err := store.Room(roomID)
	if err != nil {
		return nil
	}
	var out []models.Advisory
	if class, err := store.Class(classID); err == nil && room.Capacity > 0 && room.Capacity < class.StudentCount {
		out = append(out, models.Advisory{
			Code:    models.AdvisoryRoomCapacity,
			Message: fmt.Sprintf("room %s seats %d but class %s has %d students", room.Name, room.Capacity, class.Name, class.StudentCount),
		})
	}
	if subject, err := store.Subject(subjectID); err == nil && !subject.AcceptsRoom(room.RoomType) {
		out = append(out, models.Advisory{
			Code:    models.AdvisoryRoomType,
			Message: fmt.Sprintf("%s needs a %s room but %s is %s", subject.Name, subject.RequiredRoomType, room.Name, room.RoomType),
		})
	}
	return out
}
