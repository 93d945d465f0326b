package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type dutyServiceMock struct {
	solved  *dto.DutySolveRequest
	cleared dto.DutyClearQuery
}

func (m *dutyServiceMock) Roster(ctx context.Context, hy models.HalfYear) ([]models.DutyRecord, error) {
	return nil, nil
}

func (m *dutyServiceMock) Solve(ctx context.Context, hy models.HalfYear, req dto.DutySolveRequest) (models.DutyRoster, error) {
	m.solved = &req
	return models.DutyRoster{Unassigned: []models.UnassignedZone{{ZoneID: "z3"}}}, nil
}

func (m *dutyServiceMock) Assign(ctx context.Context, hy models.HalfYear, req dto.DutyAssignRequest) (models.DutyRecord, []models.Advisory, error) {
	return models.DutyRecord{ZoneID: req.ZoneID}, []models.Advisory{{Code: models.AdvisoryDutyDoubleBooked}}, nil
}

func (m *dutyServiceMock) Clear(ctx context.Context, hy models.HalfYear, query dto.DutyClearQuery) (int, error) {
	m.cleared = query
	return 3, nil
}

func (m *dutyServiceMock) Conflicts(ctx context.Context, hy models.HalfYear) ([]models.DutyConflict, error) {
	return nil, nil
}

func newDutyRouter(svc *dutyServiceMock, exp *exporterMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewDutyHandler(svc, exp)
	router := gin.New()
	group := router.Group("/timetables/:halfYear/duty")
	group.POST("/solve", handler.Solve)
	group.PUT("", handler.Assign)
	group.DELETE("", handler.Clear)
	group.GET("/export", handler.Export)
	return router
}

func TestDutySolveAcceptsEmptyBody(t *testing.T) {
	svc := &dutyServiceMock{}
	router := newDutyRouter(svc, &exporterMock{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/timetables/H1/duty/solve", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.solved)
	assert.Empty(t, svc.solved.Weekdays)
	assert.Contains(t, w.Body.String(), `"unassigned":1`)
}

func TestDutySolveWithWeekdays(t *testing.T) {
	svc := &dutyServiceMock{}
	router := newDutyRouter(svc, &exporterMock{})

	req := httptest.NewRequest(http.MethodPost, "/timetables/H1/duty/solve", bytes.NewReader([]byte(`{"weekdays":[1,3]}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{1, 3}, svc.solved.Weekdays)
}

func TestDutyAssignWarnsOnDoubleBooking(t *testing.T) {
	router := newDutyRouter(&dutyServiceMock{}, &exporterMock{})

	req := httptest.NewRequest(http.MethodPut, "/timetables/H1/duty", bytes.NewReader([]byte(`{"zoneId":"z1","weekday":2,"shift":"FIRST","teacherId":"t1"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(models.AdvisoryDutyDoubleBooked))
}

func TestDutyClearBindsFilter(t *testing.T) {
	svc := &dutyServiceMock{}
	router := newDutyRouter(svc, &exporterMock{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/timetables/H1/duty?weekday=4&shift=SECOND", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, svc.cleared.Weekday)
	assert.Equal(t, "SECOND", svc.cleared.Shift)
	assert.Contains(t, w.Body.String(), `"removed":3`)
}

func TestDutyExportPDF(t *testing.T) {
	exp := &exporterMock{}
	router := newDutyRouter(&dutyServiceMock{}, exp)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/timetables/H1/duty/export?format=pdf", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportPDF, exp.format)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

type bellServiceMock struct {
	activateErr error
}

func (m *bellServiceMock) Status(ctx context.Context) (models.PeriodStatus, error) {
	period := 1
	return models.PeriodStatus{State: models.PeriodInLesson, Shift: models.ShiftFirst, Period: &period, Progress: 44}, nil
}

func (m *bellServiceMock) ListPresets(ctx context.Context) ([]models.BellPreset, error) {
	return nil, nil
}

func (m *bellServiceMock) CreatePreset(ctx context.Context, req dto.BellPresetRequest) (*models.BellPreset, error) {
	return &models.BellPreset{ID: "p1", Name: req.Name}, nil
}

func (m *bellServiceMock) Activate(ctx context.Context, id string) ([]models.BellSlot, error) {
	if m.activateErr != nil {
		return nil, m.activateErr
	}
	return []models.BellSlot{{Shift: models.ShiftFirst, Period: 1}}, nil
}

func newBellRouter(svc *bellServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewBellHandler(svc)
	router := gin.New()
	router.GET("/bells/status", handler.Status)
	router.POST("/bells/presets", handler.CreatePreset)
	router.POST("/bells/presets/:id/activate", handler.Activate)
	return router
}

func TestBellStatus(t *testing.T) {
	router := newBellRouter(&bellServiceMock{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bells/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"progress":44`)
}

func TestBellCreatePreset(t *testing.T) {
	router := newBellRouter(&bellServiceMock{})

	body := []byte(`{"name":"Short day","slots":[{"shift":"FIRST","period":1,"start":"08:00","end":"08:30"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/bells/presets", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestBellActivateUnknownPreset(t *testing.T) {
	router := newBellRouter(&bellServiceMock{activateErr: appErrors.Clone(appErrors.ErrNotFound, "bell preset missing does not exist")})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bells/presets/missing/activate", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadyReportsFailingDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": pingerFunc(func(context.Context) error { return nil }),
		"redis":    pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	router := gin.New()
	router.GET("/ready", handler.Ready)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"postgres":"ok"`)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestReadyWithoutChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMetricsHandler(nil, nil)
	router := gin.New()
	router.GET("/ready", handler.Ready)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.RecordSubstitutions(models.Substitution{LessonID: "l1", ReplacementOutcome: models.Cancelled()})
	handler := NewMetricsHandler(metrics, nil)
	router := gin.New()
	router.GET("/metrics/summary", handler.Summary)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/summary", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"substitutions_written":1`)
}
