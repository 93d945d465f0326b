package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

func newTimetableService() (*TimetableService, *recordingSink) {
	snapshots, _, sink := newTestSnapshots()
	return NewTimetableService(snapshots, nil, nil), sink
}

func TestTimetableServiceCreateLessonReturnsAdvisories(t *testing.T) {
	svc, sink := newTimetableService()

	lesson, advisories, err := svc.CreateLesson(context.Background(), models.HalfYearFirst, dto.LessonRequest{
		ClassID: "c2", SubjectID: "physics", TeacherID: "t4", RoomID: strPtr(" r102 "), Weekday: 1, Period: 1, Shift: "FIRST",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, lesson.ID)
	assert.Equal(t, "r102", lesson.Room())
	assert.Equal(t, []models.AdvisoryCode{
		models.AdvisoryShiftMismatch,
		models.AdvisoryRoomCapacity,
		models.AdvisoryRoomType,
		models.AdvisoryLessonConflict,
	}, advisoryCodes(advisories))

	deltas := sink.applied()
	require.Len(t, deltas, 1)
	require.NotNil(t, deltas[0].Lessons)
	assert.Len(t, *deltas[0].Lessons, 6)
}

func TestTimetableServiceUpdateLessonIgnoresItself(t *testing.T) {
	svc, _ := newTimetableService()

	lesson, advisories, err := svc.UpdateLesson(context.Background(), models.HalfYearFirst, "l1", dto.LessonRequest{
		ClassID: "c1", SubjectID: "math", TeacherID: "t1", RoomID: strPtr("r101"), Weekday: 1, Period: 1, Shift: "FIRST", Track: "group 1",
	})
	require.NoError(t, err)
	assert.Equal(t, "l1", lesson.ID)
	assert.Equal(t, "group 1", lesson.Track)
	assert.Empty(t, advisories)

	_, _, err = svc.UpdateLesson(context.Background(), models.HalfYearFirst, "missing", dto.LessonRequest{
		ClassID: "c1", SubjectID: "math", TeacherID: "t1", Weekday: 1, Period: 1, Shift: "FIRST",
	})
	assert.ErrorIs(t, err, appErrors.ErrMissingReference)
}

func TestTimetableServiceLessonValidation(t *testing.T) {
	svc, sink := newTimetableService()
	ctx := context.Background()

	_, _, err := svc.CreateLesson(ctx, models.HalfYearFirst, dto.LessonRequest{ClassID: "c1", SubjectID: "math", TeacherID: "t1", Weekday: 1, Period: 1, Shift: "NIGHT"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, _, err = svc.CreateLesson(ctx, models.HalfYearFirst, dto.LessonRequest{ClassID: "c1", SubjectID: "math", TeacherID: "t1", Weekday: 1, Period: 0, Shift: "FIRST"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	assert.Empty(t, sink.applied())
}

func TestTimetableServiceCheckLessonDoesNotWrite(t *testing.T) {
	svc, sink := newTimetableService()

	resp, err := svc.CheckLesson(context.Background(), models.HalfYearFirst, dto.LessonCheckRequest{LessonRequest: dto.LessonRequest{
		ClassID: "c2", SubjectID: "math", TeacherID: "t1", RoomID: strPtr("r101"), Weekday: 1, Period: 1, Shift: "FIRST",
	}})
	require.NoError(t, err)

	assert.Equal(t, []models.ConflictTag{models.ConflictTeacher, models.ConflictClass, models.ConflictRoom}, resp.Tags)
	assert.Empty(t, sink.applied())
}

func TestTimetableServiceCheckLessonIgnoresEditedLesson(t *testing.T) {
	svc, _ := newTimetableService()
	ctx := context.Background()
	l5 := dto.LessonRequest{ClassID: "c1", SubjectID: "math", TeacherID: "t1", RoomID: strPtr("r101"), Weekday: 1, Period: 3, Shift: "FIRST"}

	resp, err := svc.CheckLesson(ctx, models.HalfYearFirst, dto.LessonCheckRequest{LessonRequest: l5, LessonID: strPtr("l5")})
	require.NoError(t, err)
	assert.Empty(t, resp.Tags)
	assert.Empty(t, resp.Advisories)

	// the same fields as a new lesson collide with the stored l5
	resp, err = svc.CheckLesson(ctx, models.HalfYearFirst, dto.LessonCheckRequest{LessonRequest: l5})
	require.NoError(t, err)
	assert.Equal(t, []models.ConflictTag{models.ConflictTeacher, models.ConflictClass, models.ConflictRoom}, resp.Tags)

	_, err = svc.CheckLesson(ctx, models.HalfYearFirst, dto.LessonCheckRequest{LessonRequest: l5, LessonID: strPtr("missing")})
	assert.ErrorIs(t, err, appErrors.ErrMissingReference)
}

func TestTimetableServiceUpdateLessonToOtherWeekday(t *testing.T) {
	snapshots, _, sink := newTestSnapshots()
	subs := NewSubstitutionService(snapshots, nil, nil, DefaultRankWeights(), nil, nil)
	svc := NewTimetableService(snapshots, nil, nil)
	ctx := context.Background()

	_, err := subs.Assign(ctx, models.HalfYearFirst, dto.AssignSubstitutionRequest{Date: monday, LessonID: "l5", Outcome: "cancelled"})
	require.NoError(t, err)

	_, _, err = svc.UpdateLesson(ctx, models.HalfYearFirst, "l5", dto.LessonRequest{
		ClassID: "c1", SubjectID: "math", TeacherID: "t1", RoomID: strPtr("r101"), Weekday: 2, Period: 3, Shift: "FIRST",
	})
	require.NoError(t, err)

	deltas := sink.applied()
	require.Len(t, deltas, 2)
	require.NotNil(t, deltas[1].Substitutions)
	assert.Empty(t, *deltas[1].Substitutions)

	daily, err := subs.Daily(ctx, models.HalfYearFirst, monday)
	require.NoError(t, err)
	assert.Empty(t, daily)
}

func TestTimetableServiceConflicts(t *testing.T) {
	svc, _ := newTimetableService()

	conflicts, err := svc.Conflicts(context.Background(), models.HalfYearFirst)
	require.NoError(t, err)

	// l2 and l4 share room 102 in period 2
	require.Len(t, conflicts, 2)
	assert.Equal(t, "l2", conflicts[0].LessonID)
	assert.Equal(t, "l4", conflicts[1].LessonID)
	assert.Equal(t, []models.ConflictTag{models.ConflictRoom}, conflicts[0].Tags)
}

func TestTimetableServiceTeachers(t *testing.T) {
	svc, _ := newTimetableService()
	ctx := context.Background()

	saved, err := svc.UpsertTeacher(ctx, models.HalfYearFirst, "", dto.TeacherRequest{Name: "Eka", Shifts: []string{"SECOND"}, NotifyAddress: strPtr("  ")})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Nil(t, saved.NotifyAddress)

	teachers, err := svc.ListTeachers(ctx, models.HalfYearFirst)
	require.NoError(t, err)
	require.Len(t, teachers, 5)
	assert.Equal(t, "Eka", teachers[4].Name)

	err = svc.DeleteTeacher(ctx, models.HalfYearFirst, "t1")
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	require.NoError(t, svc.DeleteTeacher(ctx, models.HalfYearFirst, saved.ID))

	_, err = svc.UpsertTeacher(ctx, models.HalfYearFirst, "t9", dto.TeacherRequest{Name: "Fajar", UnavailableDates: []string{"tomorrow"}})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestTimetableServiceDeleteLessonAndUndo(t *testing.T) {
	svc, sink := newTimetableService()
	ctx := context.Background()

	require.NoError(t, svc.DeleteLesson(ctx, models.HalfYearFirst, "l1"))
	deltas := sink.applied()
	require.Len(t, deltas, 1)
	assert.NotNil(t, deltas[0].Lessons)
	assert.NotNil(t, deltas[0].Substitutions)

	history, err := svc.History(ctx, models.HalfYearFirst)
	require.NoError(t, err)
	assert.Equal(t, 1, history.UndoDepth)
	assert.Equal(t, int64(2), history.Version)

	undone, err := svc.Undo(ctx, models.HalfYearFirst)
	require.NoError(t, err)
	assert.Equal(t, 0, undone.UndoDepth)
	assert.Equal(t, 1, undone.RedoDepth)

	lessons, err := svc.ListLessons(ctx, models.HalfYearFirst)
	require.NoError(t, err)
	require.Len(t, lessons, 5)
	assert.Equal(t, "l1", lessons[0].ID)

	redone, err := svc.Redo(ctx, models.HalfYearFirst)
	require.NoError(t, err)
	assert.Equal(t, 1, redone.UndoDepth)

	err = svc.DeleteLesson(ctx, models.HalfYearFirst, "l1")
	assert.ErrorIs(t, err, appErrors.ErrMissingReference)
}
