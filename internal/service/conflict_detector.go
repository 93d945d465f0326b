package service

import (
	"sort"

	"github.com/noah-isme/timetable-api/internal/models"
)

// DetectConflicts reports which resources of candidate collide with another lesson in
// the same (weekday, period, shift). excluded reports classes that opted out of checks;
// a pair involving such a class never raises a tag. Tags come back in teacher, class,
// room order.
func DetectConflicts(candidate models.LessonSlot, lessons []models.LessonSlot, excluded func(classID string) bool) []models.ConflictTag {
	if excluded != nil && excluded(candidate.ClassID) {
		return nil
	}
	var teacher, class, room bool
	candidateRoom := candidate.Room()
	for _, other := range lessons {
		if other.ID == candidate.ID || other.Key() != candidate.Key() {
			continue
		}
		if excluded != nil && excluded(other.ClassID) {
			continue
		}
		if other.TeacherID == candidate.TeacherID {
			teacher = true
		}
		if other.ClassID == candidate.ClassID && tracksCollide(candidate.Track, other.Track) {
			class = true
		}
		if candidateRoom != "" && other.Room() == candidateRoom {
			room = true
		}
	}

	var tags []models.ConflictTag
	if teacher {
		tags = append(tags, models.ConflictTeacher)
	}
	if class {
		tags = append(tags, models.ConflictClass)
	}
	if room {
		tags = append(tags, models.ConflictRoom)
	}
	return tags
}

// tracksCollide treats an empty track as the whole class.
func tracksCollide(a, b string) bool {
	return a == "" || b == "" || a == b
}

// DetectAllConflicts runs DetectConflicts for every lesson and returns the ones with tags,
// ordered by weekday, shift, period and id.
func DetectAllConflicts(lessons []models.LessonSlot, excluded func(classID string) bool) []models.LessonConflict {
	bySlot := make(map[models.SlotKey][]models.LessonSlot)
	for _, l := range lessons {
		bySlot[l.Key()] = append(bySlot[l.Key()], l)
	}

	var out []models.LessonConflict
	for _, group := range bySlot {
		if len(group) < 2 {
			continue
		}
		for _, l := range group {
			if tags := DetectConflicts(l, group, excluded); len(tags) > 0 {
				out = append(out, models.LessonConflict{LessonID: l.ID, Slot: l.Key(), Tags: tags})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Slot, out[j].Slot
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		if a.Shift != b.Shift {
			return a.Shift == models.ShiftFirst
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		return out[i].LessonID < out[j].LessonID
	})
	return out
}
