package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func advisoryCodes(advisories []models.Advisory) []models.AdvisoryCode {
	out := make([]models.AdvisoryCode, 0, len(advisories))
	for _, a := range advisories {
		out = append(out, a.Code)
	}
	return out
}

func TestSubstitutionAdvisoriesAbsentSubstitute(t *testing.T) {
	store := fixtureStore()
	sub := models.Substitution{Date: monday, LessonID: "l1", ReplacementOutcome: models.ReplaceWithTeacher("t4")}

	codes := advisoryCodes(SubstitutionAdvisories(store, sub))

	assert.Equal(t, []models.AdvisoryCode{models.AdvisoryAbsentTeacher, models.AdvisoryShiftMismatch}, codes)
}

func TestSubstitutionAdvisoriesUsesOverrides(t *testing.T) {
	store := fixtureStore()
	sub := models.Substitution{
		Date:               monday,
		LessonID:           "l1",
		ReplacementOutcome: models.ReplaceWithTeacher("t1"),
		ReplacementRoomID:  strPtr("r102"),
		OverrideClassID:    strPtr("c2"),
		OverrideSubjectID:  strPtr("physics"),
	}

	codes := advisoryCodes(SubstitutionAdvisories(store, sub))

	assert.Equal(t, []models.AdvisoryCode{models.AdvisoryRoomCapacity, models.AdvisoryRoomType}, codes)
}

func TestSubstitutionAdvisoriesClean(t *testing.T) {
	store := fixtureStore()

	assert.Empty(t, SubstitutionAdvisories(store, models.Substitution{Date: monday, LessonID: "l1", ReplacementOutcome: models.ReplaceWithTeacher("t2")}))
	assert.Empty(t, SubstitutionAdvisories(store, models.Substitution{Date: monday, LessonID: "l1", ReplacementOutcome: models.Cancelled()}))
	assert.Nil(t, SubstitutionAdvisories(store, models.Substitution{Date: monday, LessonID: "ghost"}))
}

func TestLessonAdvisoriesTeacherWithoutShift(t *testing.T) {
	store, _, err := fixtureStore().WithTeacher(models.Teacher{ID: "t5", Name: "Eka"})
	require.NoError(t, err)

	draft := models.LessonSlot{ClassID: "c1", SubjectID: "math", TeacherID: "t5", Weekday: 3, Period: 1, Shift: models.ShiftFirst}

	assert.Equal(t, []models.AdvisoryCode{models.AdvisoryNoShift}, advisoryCodes(LessonAdvisories(store, draft)))
}

func TestLessonAdvisoriesExcludedClassNeverConflicts(t *testing.T) {
	store := fixtureStore()
	draft := models.LessonSlot{ClassID: "c3", SubjectID: "art", TeacherID: "t1", Weekday: 1, Period: 1, Shift: models.ShiftFirst}

	assert.Empty(t, LessonAdvisories(store, draft))
}

func TestFormatSubstitutionSummary(t *testing.T) {
	store := fixtureStore()

	text, err := FormatSubstitutionSummary(store, models.Substitution{
		Date:               monday,
		LessonID:           "l1",
		OriginalTeacherID:  "t1",
		ReplacementOutcome: models.ReplaceWithTeacher("t2"),
		ReplacementRoomID:  strPtr("lab"),
		Reason:             strPtr(" sick leave "),
		Merger:             true,
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-09-02, period 1 (first shift)\n"+
		"Class 5A, Mathematics\n"+
		"Budi replaces Ana\n"+
		"Room: 101 -> Lab 201\n"+
		"Merged with another class\n"+
		"Reason: sick leave", text)
}

func TestFormatSubstitutionSummaryOutcomes(t *testing.T) {
	store := fixtureStore()

	cancelled, err := FormatSubstitutionSummary(store, models.Substitution{Date: monday, LessonID: "l2", OriginalTeacherID: "t1", ReplacementOutcome: models.Cancelled()})
	require.NoError(t, err)
	assert.Contains(t, cancelled, "Lesson cancelled")

	conducted, err := FormatSubstitutionSummary(store, models.Substitution{Date: monday, LessonID: "l2", OriginalTeacherID: "t1", ReplacementOutcome: models.Conducted()})
	require.NoError(t, err)
	assert.Contains(t, conducted, "Ana conducts the lesson as planned")

	pair, err := PlanSwap(store, SwapPlan{Date: monday, SourceLessonID: "l1", TargetLessonID: "l2"})
	require.NoError(t, err)
	swapped, err := FormatSubstitutionSummary(store, pair[0])
	require.NoError(t, err)
	assert.Contains(t, swapped, "Class 5B, Art")
	assert.Contains(t, swapped, "Ana swaps lessons (was 5A, Mathematics)")

	_, err = FormatSubstitutionSummary(store, models.Substitution{LessonID: "ghost"})
	assert.Error(t, err)
}

func TestSnapshotHistory(t *testing.T) {
	h := NewSnapshotHistory(2)
	v := func(n int64) models.Snapshot { return models.Snapshot{Version: n} }

	_, ok := h.Undo(v(0))
	assert.False(t, ok)

	h.Push(v(1))
	h.Push(v(2))
	h.Push(v(3))
	undo, redo := h.Depths()
	assert.Equal(t, 2, undo)
	assert.Equal(t, 0, redo)

	prev, ok := h.Undo(v(4))
	require.True(t, ok)
	assert.Equal(t, int64(3), prev.Version)

	next, ok := h.Redo(prev)
	require.True(t, ok)
	assert.Equal(t, int64(4), next.Version)

	h.Undo(next)
	h.Push(v(5))
	_, redo = h.Depths()
	assert.Zero(t, redo, "a new write clears redo")

	assert.Equal(t, 20, NewSnapshotHistory(0).depth)
}
