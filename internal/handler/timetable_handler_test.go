package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type timetableServiceMock struct {
	created   dto.LessonRequest
	checked   *dto.LessonCheckRequest
	undoDepth int
	undoErr   error
	teacherID string
}

func (m *timetableServiceMock) ListLessons(ctx context.Context, hy models.HalfYear) ([]models.LessonSlot, error) {
	return []models.LessonSlot{{ID: "l1", HalfYear: hy}}, nil
}

func (m *timetableServiceMock) CreateLesson(ctx context.Context, hy models.HalfYear, req dto.LessonRequest) (models.LessonSlot, []models.Advisory, error) {
	m.created = req
	return models.LessonSlot{ID: "l2", HalfYear: hy, ClassID: req.ClassID}, []models.Advisory{{Code: models.AdvisoryShiftMismatch}}, nil
}

func (m *timetableServiceMock) UpdateLesson(ctx context.Context, hy models.HalfYear, id string, req dto.LessonRequest) (models.LessonSlot, []models.Advisory, error) {
	return models.LessonSlot{ID: id}, nil, nil
}

func (m *timetableServiceMock) DeleteLesson(ctx context.Context, hy models.HalfYear, id string) error {
	return appErrors.Cloned(appErrors.ErrMissingReference, "lesson %s does not exist", id)
}

func (m *timetableServiceMock) CheckLesson(ctx context.Context, hy models.HalfYear, req dto.LessonCheckRequest) (dto.LessonCheckResponse, error) {
	m.checked = &req
	return dto.LessonCheckResponse{Tags: []models.ConflictTag{models.ConflictTeacher}}, nil
}

func (m *timetableServiceMock) Conflicts(ctx context.Context, hy models.HalfYear) ([]models.LessonConflict, error) {
	return []models.LessonConflict{{LessonID: "l1"}}, nil
}

func (m *timetableServiceMock) ListTeachers(ctx context.Context, hy models.HalfYear) ([]models.Teacher, error) {
	return nil, nil
}

func (m *timetableServiceMock) UpsertTeacher(ctx context.Context, hy models.HalfYear, id string, req dto.TeacherRequest) (models.Teacher, error) {
	m.teacherID = id
	return models.Teacher{ID: id, Name: req.Name}, nil
}

func (m *timetableServiceMock) DeleteTeacher(ctx context.Context, hy models.HalfYear, id string) error {
	return nil
}

func (m *timetableServiceMock) History(ctx context.Context, hy models.HalfYear) (dto.HistoryResponse, error) {
	return dto.HistoryResponse{HalfYear: hy, UndoDepth: m.undoDepth}, nil
}

func (m *timetableServiceMock) Undo(ctx context.Context, hy models.HalfYear) (dto.HistoryResponse, error) {
	if m.undoErr != nil {
		return dto.HistoryResponse{}, m.undoErr
	}
	m.undoDepth--
	return dto.HistoryResponse{HalfYear: hy, UndoDepth: m.undoDepth, RedoDepth: 1}, nil
}

func (m *timetableServiceMock) Redo(ctx context.Context, hy models.HalfYear) (dto.HistoryResponse, error) {
	return dto.HistoryResponse{HalfYear: hy}, nil
}

func newTimetableRouter(svc *timetableServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(svc)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
		c.Next()
	})
	group := router.Group("/timetables/:halfYear")
	group.POST("/lessons", handler.CreateLesson)
	group.DELETE("/lessons/:id", handler.DeleteLesson)
	group.POST("/lessons/check", handler.CheckLesson)
	group.GET("/conflicts", handler.Conflicts)
	group.PUT("/teachers/:id", handler.UpsertTeacher)
	group.POST("/substitutions/undo", handler.Undo)
	return router
}

func TestTimetableCreateLessonReturnsAdvisories(t *testing.T) {
	svc := &timetableServiceMock{}
	router := newTimetableRouter(svc)

	body := []byte(`{"classId":"c1","subjectId":"math","teacherId":"t1","weekday":1,"period":2,"shift":"FIRST"}`)
	req := httptest.NewRequest(http.MethodPost, "/timetables/H1/lessons", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "c1", svc.created.ClassID)
	assert.Equal(t, 2, svc.created.Period)
	assert.Contains(t, w.Body.String(), `"warnings"`)
	assert.Contains(t, w.Body.String(), string(models.AdvisoryShiftMismatch))
}

func TestTimetableCheckLessonBindsEditedLesson(t *testing.T) {
	svc := &timetableServiceMock{}
	router := newTimetableRouter(svc)

	body := []byte(`{"lessonId":"l5","classId":"c1","subjectId":"math","teacherId":"t1","weekday":1,"period":3,"shift":"FIRST"}`)
	req := httptest.NewRequest(http.MethodPost, "/timetables/H1/lessons/check", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.checked)
	require.NotNil(t, svc.checked.LessonID)
	assert.Equal(t, "l5", *svc.checked.LessonID)
	assert.Equal(t, 3, svc.checked.Period)
}

func TestTimetableDeleteMissingLesson(t *testing.T) {
	router := newTimetableRouter(&timetableServiceMock{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/timetables/H1/lessons/nope", nil))

	assert.Equal(t, appErrors.ErrMissingReference.Status, w.Code)
}

func TestTimetableConflictsCountMeta(t *testing.T) {
	router := newTimetableRouter(&timetableServiceMock{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/timetables/H2/conflicts", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestTimetableUpsertTeacherRecordsEditor(t *testing.T) {
	svc := &timetableServiceMock{}
	router := newTimetableRouter(svc)

	req := httptest.NewRequest(http.MethodPut, "/timetables/H1/teachers/t7", bytes.NewReader([]byte(`{"name":"Dana","subjects":["math"],"shifts":["FIRST"]}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t7", svc.teacherID)
	assert.Contains(t, w.Body.String(), `"updatedBy":"admin-1"`)
}

func TestTimetableUndo(t *testing.T) {
	t.Run("steps back", func(t *testing.T) {
		svc := &timetableServiceMock{undoDepth: 2}
		router := newTimetableRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/timetables/H1/substitutions/undo", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, svc.undoDepth)
	})

	t.Run("empty history", func(t *testing.T) {
		svc := &timetableServiceMock{undoErr: appErrors.Clone(appErrors.ErrPreconditionFailed, "nothing to undo")}
		router := newTimetableRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/timetables/H1/substitutions/undo", nil))

		assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	})
}
