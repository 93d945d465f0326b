package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/clock"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type bellRepoStub struct {
	mu        sync.Mutex
	schedule  []models.BellSlot
	presets   map[string][]models.BellSlot
	created   []*models.BellPreset
	loadErr   error
	loadCalls int
}

func (r *bellRepoStub) ListPresets(ctx context.Context) ([]models.BellPreset, error) {
	var out []models.BellPreset
	for _, p := range r.created {
		out = append(out, *p)
	}
	return out, nil
}

func (r *bellRepoStub) CreatePreset(ctx context.Context, preset *models.BellPreset) error {
	r.created = append(r.created, preset)
	return nil
}

func (r *bellRepoStub) ActivatePreset(ctx context.Context, id string) ([]models.BellSlot, error) {
	slots, ok := r.presets[id]
	if !ok {
		return nil, appErrors.Cloned(appErrors.ErrNotFound, "bell preset %s does not exist", id)
	}
	return slots, nil
}

func (r *bellRepoStub) Schedule(ctx context.Context) ([]models.BellSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadCalls++
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.schedule, nil
}

func TestBellServiceStatusUsesInjectedClock(t *testing.T) {
	repo := &bellRepoStub{schedule: defaultBells()}
	clk := clock.NewFixed(at(monday, "08:20"))
	svc := NewBellService(repo, clk, nil, BellConfig{MaxBreakMinutes: 30}, nil, nil)
	ctx := context.Background()

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PeriodInLesson, status.State)
	assert.Equal(t, 44, status.Progress)

	clk.Set(at(monday, "08:50"))
	status, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PeriodBreak, status.State)
	assert.Equal(t, 1, repo.loadCalls, "the schedule is cached after the first load")
}

func TestBellServiceRefreshFailureKeepsSchedule(t *testing.T) {
	repo := &bellRepoStub{schedule: defaultBells()}
	svc := NewBellService(repo, clock.NewFixed(at(monday, "08:20")), nil, BellConfig{MaxBreakMinutes: 30}, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Refresh(ctx))
	repo.loadErr = errors.New("connection reset")
	assert.ErrorIs(t, svc.Refresh(ctx), appErrors.ErrUnavailable)

	svc.tick(ctx)
	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PeriodInLesson, status.State)
}

func TestBellServiceActivateSwapsSchedule(t *testing.T) {
	short := []models.BellSlot{{Shift: models.ShiftFirst, Period: 1, Weekday: models.BellWeekdayDefault, Start: "08:00", End: "08:30"}}
	repo := &bellRepoStub{schedule: defaultBells(), presets: map[string][]models.BellSlot{"short": short}}
	svc := NewBellService(repo, clock.NewFixed(at(monday, "08:35")), nil, BellConfig{MaxBreakMinutes: 30}, nil, nil)
	ctx := context.Background()

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PeriodInLesson, status.State)

	_, err = svc.Activate(ctx, "short")
	require.NoError(t, err)
	status, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PeriodIdle, status.State)

	_, err = svc.Activate(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestBellServiceCreatePresetValidation(t *testing.T) {
	repo := &bellRepoStub{}
	svc := NewBellService(repo, clock.NewFixed(at(monday, "08:00")), nil, BellConfig{}, nil, nil)
	ctx := context.Background()

	slot := func(shift string, period int, start, end string) dto.BellSlotRequest {
		return dto.BellSlotRequest{Shift: shift, Period: period, Start: start, End: end}
	}

	cases := []struct {
		name  string
		slots []dto.BellSlotRequest
	}{
		{"period outside shift", []dto.BellSlotRequest{slot("FIRST", 0, "08:00", "08:45")}},
		{"ends before start", []dto.BellSlotRequest{slot("FIRST", 1, "08:45", "08:00")}},
		{"listed twice", []dto.BellSlotRequest{slot("FIRST", 1, "08:00", "08:45"), slot("FIRST", 1, "09:00", "09:45")}},
		{"malformed time", []dto.BellSlotRequest{slot("FIRST", 1, "8am", "08:45")}},
		{"no slots", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreatePreset(ctx, dto.BellPresetRequest{Name: "Bad", Slots: tc.slots})
			assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
		})
	}
	assert.Empty(t, repo.created)

	preset, err := svc.CreatePreset(ctx, dto.BellPresetRequest{Name: " Exam day ", Slots: []dto.BellSlotRequest{
		slot("SECOND", 0, "13:00", "13:40"),
		{Shift: "FIRST", Period: 1, Weekday: "5", Start: "08:00", End: "08:30", Cancelled: true},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Exam day", preset.Name)
	require.Len(t, preset.Slots, 2)
	assert.Equal(t, models.BellWeekdayDefault, preset.Slots[0].Weekday)
	assert.Equal(t, preset.ID, preset.Slots[1].PresetID)
}
