package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

func rankIDs(candidates []models.RankedCandidate) []string {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.TeacherID)
	}
	return ids
}

func absentAna(t *testing.T) *TimetableStore {
	t.Helper()
	store, err := fixtureStore().MarkTeacherAbsent("t1", monday, "flu")
	require.NoError(t, err)
	return store
}

func TestRankCandidatesOrdering(t *testing.T) {
	store := absentAna(t)

	ranked, err := RankCandidates(store, RankRequest{LessonID: "l1", Date: monday}, DefaultRankWeights())
	require.NoError(t, err)

	// Ana and Dewi tie on -950 and fall back to name order.
	assert.Equal(t, []string{"t3", "t2", "t1", "t4"}, rankIDs(ranked))

	byID := map[string]models.RankedCandidate{}
	for _, c := range ranked {
		byID[c.TeacherID] = c
	}
	assert.Equal(t, 0, byID["t3"].Score)
	assert.True(t, byID["t3"].OneClick)

	assert.Equal(t, -50, byID["t2"].Score)
	assert.True(t, byID["t2"].IsBusy)
	assert.True(t, byID["t2"].IsSpecialist)
	assert.False(t, byID["t2"].OneClick)

	assert.Equal(t, -950, byID["t1"].Score)
	assert.True(t, byID["t1"].IsAbsent)
	assert.Equal(t, -950, byID["t4"].Score)
}

func TestRankCandidatesDeclinedKeepsOrder(t *testing.T) {
	store := absentAna(t)

	ranked, err := RankCandidates(store, RankRequest{LessonID: "l1", Date: monday, Declined: []string{"t3"}}, DefaultRankWeights())
	require.NoError(t, err)

	assert.Equal(t, []string{"t3", "t2", "t1", "t4"}, rankIDs(ranked))
	assert.True(t, ranked[0].Declined)
	assert.False(t, ranked[0].OneClick)
	assert.Equal(t, 0, ranked[0].Score)
}

func TestRankCandidatesNameFilter(t *testing.T) {
	ranked, err := RankCandidates(absentAna(t), RankRequest{LessonID: "l1", Date: monday, Filter: " BU "}, DefaultRankWeights())
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, rankIDs(ranked))
}

func TestRankCandidatesCustomWeights(t *testing.T) {
	ranked, err := RankCandidates(absentAna(t), RankRequest{LessonID: "l1", Date: monday}, RankWeights{AbsentPenalty: -10, BusyPenalty: -500, SpecialistBonus: 100})
	require.NoError(t, err)

	assert.Equal(t, []string{"t1", "t4", "t3", "t2"}, rankIDs(ranked))
}

func TestRankCandidatesIsDeterministic(t *testing.T) {
	store := absentAna(t)
	first, err := RankCandidates(store, RankRequest{LessonID: "l1", Date: monday}, DefaultRankWeights())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := RankCandidates(store, RankRequest{LessonID: "l1", Date: monday}, DefaultRankWeights())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRankCandidatesAssignedSubstituteIsBusyAtSameTime(t *testing.T) {
	store, _, err := absentAna(t).WithSubstitution(models.Substitution{Date: monday, LessonID: "l1", ReplacementOutcome: models.ReplaceWithTeacher("t3")})
	require.NoError(t, err)

	samePeriod, err := RankCandidates(store, RankRequest{LessonID: "l3", Date: monday}, DefaultRankWeights())
	require.NoError(t, err)
	for _, c := range samePeriod {
		switch c.TeacherID {
		case "t3":
			assert.True(t, c.IsBusy, "substitute covering l1 is busy at period 1")
			assert.Equal(t, 1, c.MonthlySubstitutionCount)
		case "t1":
			assert.False(t, c.IsBusy, "a handed-over lesson frees its teacher")
		}
	}

	later, err := RankCandidates(store, RankRequest{LessonID: "l5", Date: monday}, DefaultRankWeights())
	require.NoError(t, err)
	for _, c := range later {
		if c.TeacherID == "t3" {
			assert.False(t, c.IsBusy)
		}
	}
}

func TestRankCandidatesCancelledLessonFreesTeacher(t *testing.T) {
	store, _, err := fixtureStore().WithSubstitution(models.Substitution{Date: monday, LessonID: "l3", ReplacementOutcome: models.Cancelled()})
	require.NoError(t, err)

	ranked, err := RankCandidates(store, RankRequest{LessonID: "l1", Date: monday}, DefaultRankWeights())
	require.NoError(t, err)
	for _, c := range ranked {
		if c.TeacherID == "t2" {
			assert.False(t, c.IsBusy)
			assert.Equal(t, 50, c.Score)
		}
	}
}

func TestRankCandidatesMonthlyCountSkipsOwnLessons(t *testing.T) {
	store, _, err := fixtureStore().WithSubstitutions([]models.Substitution{
		{Date: monday, LessonID: "l2", ReplacementOutcome: models.ReplaceWithTeacher("t1"), ReplacementRoomID: strPtr("r101")},
		{Date: "2024-09-09", LessonID: "l4", ReplacementOutcome: models.ReplaceWithTeacher("t2")},
		{Date: "2024-10-07", LessonID: "l4", ReplacementOutcome: models.ReplaceWithTeacher("t2")},
	})
	require.NoError(t, err)

	ranked, err := RankCandidates(store, RankRequest{LessonID: "l1", Date: monday}, DefaultRankWeights())
	require.NoError(t, err)
	for _, c := range ranked {
		switch c.TeacherID {
		case "t1":
			assert.Zero(t, c.MonthlySubstitutionCount)
		case "t2":
			assert.Equal(t, 1, c.MonthlySubstitutionCount)
		}
	}
}

func TestRankCandidatesRejectsWrongDate(t *testing.T) {
	_, err := RankCandidates(fixtureStore(), RankRequest{LessonID: "l1", Date: "2024-09-03"}, DefaultRankWeights())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = RankCandidates(fixtureStore(), RankRequest{LessonID: "nope", Date: monday}, DefaultRankWeights())
	assert.ErrorIs(t, err, appErrors.ErrMissingReference)
}
