package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

func TestPlanSwapExchangesContentAndRooms(t *testing.T) {
	pair, err := PlanSwap(fixtureStore(), SwapPlan{Date: monday, SourceLessonID: "l1", TargetLessonID: "l2", Reason: strPtr("trip")})
	require.NoError(t, err)

	source, target := pair[0], pair[1]
	assert.Equal(t, "l1", source.LessonID)
	assert.Equal(t, "c2", *source.OverrideClassID)
	assert.Equal(t, "art", *source.OverrideSubjectID)
	require.NotNil(t, source.ReplacementRoomID)
	assert.Equal(t, "r102", *source.ReplacementRoomID)

	assert.Equal(t, "l2", target.LessonID)
	assert.Equal(t, "c1", *target.OverrideClassID)
	assert.Equal(t, "math", *target.OverrideSubjectID)
	require.NotNil(t, target.ReplacementRoomID)
	assert.Equal(t, "r101", *target.ReplacementRoomID)

	for _, side := range pair {
		id, ok := side.Teacher()
		assert.True(t, ok)
		assert.Equal(t, "t1", id)
		assert.Equal(t, "t1", side.OriginalTeacherID)
		assert.Equal(t, "trip", *side.Reason)
	}
}

func TestPlanSwapKeepOwnRooms(t *testing.T) {
	pair, err := PlanSwap(fixtureStore(), SwapPlan{Date: monday, SourceLessonID: "l1", TargetLessonID: "l2", KeepOwnRooms: true})
	require.NoError(t, err)

	assert.Nil(t, pair[0].ReplacementRoomID)
	assert.Nil(t, pair[1].ReplacementRoomID)
}

func TestPlanSwapSourceRoomOverride(t *testing.T) {
	pair, err := PlanSwap(fixtureStore(), SwapPlan{Date: monday, SourceLessonID: "l1", TargetLessonID: "l2", SourceRoom: strPtr("lab")})
	require.NoError(t, err)

	require.NotNil(t, pair[0].ReplacementRoomID)
	assert.Equal(t, "lab", *pair[0].ReplacementRoomID)
	require.NotNil(t, pair[1].ReplacementRoomID)
	assert.Equal(t, "r101", *pair[1].ReplacementRoomID)
}

func TestPlanSwapWritesAtomically(t *testing.T) {
	store := fixtureStore()
	pair, err := PlanSwap(store, SwapPlan{Date: monday, SourceLessonID: "l1", TargetLessonID: "l5"})
	require.NoError(t, err)

	next, written, err := store.WithSubstitutions(pair[:])
	require.NoError(t, err)
	assert.Len(t, written, 2)
	assert.Len(t, next.SubstitutionsOn(monday), 2)
	// same room on both sides
	assert.Nil(t, written[0].ReplacementRoomID)
}

func TestPlanSwapRejections(t *testing.T) {
	cases := []struct {
		name string
		plan SwapPlan
	}{
		{"same lesson", SwapPlan{Date: monday, SourceLessonID: "l1", TargetLessonID: "l1"}},
		{"different teachers", SwapPlan{Date: monday, SourceLessonID: "l1", TargetLessonID: "l3"}},
		{"missing lesson", SwapPlan{Date: monday, SourceLessonID: "l1", TargetLessonID: "gone"}},
		{"wrong date", SwapPlan{Date: "2024-09-04", SourceLessonID: "l1", TargetLessonID: "l2"}},
		{"unknown room", SwapPlan{Date: monday, SourceLessonID: "l1", TargetLessonID: "l2", SourceRoom: strPtr("attic")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pair, err := PlanSwap(fixtureStore(), tc.plan)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrSwapRejected)
			assert.Equal(t, [2]models.Substitution{}, pair)
		})
	}
}

func TestPlanSwapDifferentWeekdays(t *testing.T) {
	store, _, err := fixtureStore().WithLesson(models.LessonSlot{ID: "l6", ClassID: "c2", SubjectID: "math", TeacherID: "t1", Weekday: 2, Period: 1, Shift: models.ShiftFirst})
	require.NoError(t, err)

	_, err = PlanSwap(store, SwapPlan{Date: monday, SourceLessonID: "l1", TargetLessonID: "l6"})
	assert.ErrorIs(t, err, appErrors.ErrSwapRejected)
	assert.Contains(t, err.Error(), "different weekdays")
}
