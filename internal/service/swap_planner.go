package service

import (
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// SwapPlan asks to exchange the class and subject of two lessons of the same teacher on one day.
type SwapPlan struct {
	Date           string
	SourceLessonID string
	TargetLessonID string
	// KeepOwnRooms leaves every slot in its own room; otherwise rooms travel with the content.
	KeepOwnRooms bool
	// SourceRoom overrides the room of the source slot only.
	SourceRoom *string
	Reason     *string
}

func swapRejected(format string, args ...any) error {
	return appErrors.Cloned(appErrors.ErrSwapRejected, "swap rejected: "+format, args...)
}

// PlanSwap builds the two substitutions of a swap. Nothing is returned unless both
// lessons resolve and form a valid pair, so callers can write the result atomically.
func PlanSwap(store *TimetableStore, plan SwapPlan) ([2]models.Substitution, error) {
	var pair [2]models.Substitution

	if plan.SourceLessonID == plan.TargetLessonID {
		return pair, swapRejected("source and target are the same lesson %s", plan.SourceLessonID)
	}
	source, err := store.Lesson(plan.SourceLessonID)
	if err != nil {
		return pair, swapRejected("lesson %s does not exist in half-year %s", plan.SourceLessonID, store.HalfYear())
	}
	target, err := store.Lesson(plan.TargetLessonID)
	if err != nil {
		return pair, swapRejected("lesson %s does not exist in half-year %s", plan.TargetLessonID, store.HalfYear())
	}
	if source.TeacherID != target.TeacherID {
		return pair, swapRejected("lessons %s and %s are taught by different teachers", source.ID, target.ID)
	}
	if source.Weekday != target.Weekday {
		return pair, swapRejected("lessons %s and %s are on different weekdays", source.ID, target.ID)
	}
	weekday, err := models.WeekdayOf(plan.Date)
	if err != nil {
		return pair, swapRejected("invalid date %q", plan.Date)
	}
	if weekday != source.Weekday {
		return pair, swapRejected("lessons %s and %s are not held on %s", source.ID, target.ID, plan.Date)
	}
	if plan.SourceRoom != nil && *plan.SourceRoom != "" {
		if _, err := store.Room(*plan.SourceRoom); err != nil {
			return pair, swapRejected("room %s does not exist in half-year %s", *plan.SourceRoom, store.HalfYear())
		}
	}

	sourceRoom, targetRoom := source.Room(), target.Room()
	if !plan.KeepOwnRooms {
		sourceRoom, targetRoom = target.Room(), source.Room()
	}
	if plan.SourceRoom != nil && *plan.SourceRoom != "" {
		sourceRoom = *plan.SourceRoom
	}

	pair[0] = swapSide(plan, source, target, sourceRoom)
	pair[1] = swapSide(plan, target, source, targetRoom)
	return pair, nil
}

// swapSide overlays slot with the content of counterpart, taught by the common teacher in room.
func swapSide(plan SwapPlan, slot, counterpart models.LessonSlot, room string) models.Substitution {
	classID, subjectID := counterpart.ClassID, counterpart.SubjectID
	sub := models.Substitution{
		Date:               plan.Date,
		LessonID:           slot.ID,
		OriginalTeacherID:  slot.TeacherID,
		ReplacementOutcome: models.ReplaceWithTeacher(slot.TeacherID),
		Reason:             plan.Reason,
		OverrideClassID:    &classID,
		OverrideSubjectID:  &subjectID,
	}
	if room != "" && room != slot.Room() {
		sub.ReplacementRoomID = &room
	}
	return sub
}
