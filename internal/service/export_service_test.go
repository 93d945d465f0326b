package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
)

func storeWithCover(t *testing.T) *TimetableStore {
	t.Helper()
	store, _, err := fixtureStore().WithSubstitutions([]models.Substitution{
		{Date: monday, LessonID: "l5", OriginalTeacherID: "t1", ReplacementOutcome: models.ReplaceWithTeacher("t3"), ReplacementRoomID: strPtr("lab")},
		{Date: monday, LessonID: "l1", OriginalTeacherID: "t1", ReplacementOutcome: models.ReplaceWithTeacher("t2"), Merger: true},
		{Date: monday, LessonID: "l2", OriginalTeacherID: "t1", ReplacementOutcome: models.Cancelled(), Reason: strPtr("trip")},
	})
	require.NoError(t, err)
	return store
}

func TestSubstitutionSheetRows(t *testing.T) {
	sheet := SubstitutionSheet(storeWithCover(t), monday)

	assert.Equal(t, "Substitutions 2024-09-02", sheet.Title)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, []string{"first", "1", "5A", "Mathematics", "Ana", "Budi", "101", "yes", ""}, sheet.Rows[0])
	assert.Equal(t, []string{"first", "2", "5B", "Art", "Ana", "cancelled", "Room 102", "", "trip"}, sheet.Rows[1])
	assert.Equal(t, []string{"first", "3", "5A", "Mathematics", "Ana", "Citra", "Lab 201", "", ""}, sheet.Rows[2])

	empty := SubstitutionSheet(storeWithCover(t), "2024-09-03")
	assert.Empty(t, empty.Rows)
}

func TestDutySheetRows(t *testing.T) {
	store, err := fixtureStore().WithDutyRecords([]models.DutyRecord{
		{ID: "d2", ZoneID: "z2", Weekday: 1, Shift: models.ShiftFirst, TeacherID: "t2"},
		{ID: "d1", ZoneID: "z1", Weekday: 1, Shift: models.ShiftFirst, TeacherID: "t1"},
	})
	require.NoError(t, err)

	sheet := DutySheet(store)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, []string{"1", "first", "Ground hall", "0", "Ana"}, sheet.Rows[0])
	assert.Equal(t, []string{"1", "first", "Lab wing", "2", "Budi"}, sheet.Rows[1])
}

func TestExportServiceDailySubstitutions(t *testing.T) {
	snapshots, _, _ := newTestSnapshots()
	svc := NewExportService(snapshots, nil)
	ctx := context.Background()

	_, err := snapshots.Update(ctx, models.HalfYearFirst, func(store *TimetableStore) (*TimetableStore, Collection, error) {
		next, _, err := store.WithSubstitution(models.Substitution{
			Date: monday, LessonID: "l1", OriginalTeacherID: "t1", ReplacementOutcome: models.Conducted(),
		})
		return next, CollectionSubstitutions, err
	})
	require.NoError(t, err)

	file, err := svc.DailySubstitutions(ctx, models.HalfYearFirst, monday, "")
	require.NoError(t, err)
	assert.Equal(t, "substitutions-2024-09-02.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Contains(t, string(file.Body), "first,1,5A,Mathematics,Ana,conducted,101,,")

	pdf, err := svc.DailySubstitutions(ctx, models.HalfYearFirst, monday, ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, bytes.HasPrefix(pdf.Body, []byte("%PDF")))

	_, err = svc.DailySubstitutions(ctx, models.HalfYearFirst, "2024-13-01", ExportCSV)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.DailySubstitutions(ctx, models.HalfYearFirst, monday, "xlsx")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestExportServiceDutyRosterRenderFailure(t *testing.T) {
	snapshots, _, _ := newTestSnapshots()
	svc := NewExportService(snapshots, nil)
	ctx := context.Background()

	file, err := svc.DutyRoster(ctx, models.HalfYearFirst, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "duty-roster-h1.csv", file.Filename)
	assert.Equal(t, "Weekday,Shift,Zone,Floor,Teacher\n", string(file.Body))

	svc.csv = func(export.Sheet) ([]byte, error) { return nil, errors.New("disk full") }
	_, err = svc.DutyRoster(ctx, models.HalfYearFirst, ExportCSV)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
