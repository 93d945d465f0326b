package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/clock"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type bellRepository interface {
	ListPresets(ctx context.Context) ([]models.BellPreset, error)
	CreatePreset(ctx context.Context, preset *models.BellPreset) error
	ActivatePreset(ctx context.Context, id string) ([]models.BellSlot, error)
	Schedule(ctx context.Context) ([]models.BellSlot, error)
}

// BellService owns the school-wide bell schedule and answers live period queries.
type BellService struct {
	repo            bellRepository
	clock           clock.Clock
	metrics         *MetricsService
	validator       *validator.Validate
	logger          *zap.Logger
	maxBreakMinutes int
	interval        time.Duration

	mu        sync.RWMutex
	schedule  []models.BellSlot
	loaded    bool
	lastState models.PeriodState

	stopOnce sync.Once
	stopChan chan struct{}
}

// BellConfig tunes the live clock.
type BellConfig struct {
	MaxBreakMinutes int
	RefreshInterval time.Duration
}

// NewBellService constructs a BellService.
func NewBellService(repo bellRepository, clk clock.Clock, metrics *MetricsService, cfg BellConfig, validate *validator.Validate, logger *zap.Logger) *BellService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.NewSystem(time.Local)
	}
	if cfg.MaxBreakMinutes <= 0 {
		cfg.MaxBreakMinutes = 60
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Minute
	}
	return &BellService{
		repo:            repo,
		clock:           clk,
		metrics:         metrics,
		validator:       validate,
		logger:          logger,
		maxBreakMinutes: cfg.MaxBreakMinutes,
		interval:        cfg.RefreshInterval,
		stopChan:        make(chan struct{}),
	}
}

// ListPresets returns every preset with its slots.
func (s *BellService) ListPresets(ctx context.Context) ([]models.BellPreset, error) {
	presets, err := s.repo.ListPresets(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bell presets")
	}
	return presets, nil
}

// CreatePreset stores a new inactive preset.
func (s *BellService) CreatePreset(ctx context.Context, req dto.BellPresetRequest) (*models.BellPreset, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bell preset payload")
	}
	preset := &models.BellPreset{ID: uuid.NewString(), Name: strings.TrimSpace(req.Name)}
	type slotKey struct {
		shift   models.Shift
		period  int
		weekday string
	}
	seen := make(map[slotKey]struct{}, len(req.Slots))
	for _, r := range req.Slots {
		slot := models.BellSlot{
			PresetID:  preset.ID,
			Shift:     models.Shift(strings.ToUpper(r.Shift)),
			Period:    r.Period,
			Weekday:   r.Weekday,
			Start:     r.Start,
			End:       r.End,
			Cancelled: r.Cancelled,
		}
		if slot.Weekday == "" {
			slot.Weekday = models.BellWeekdayDefault
		}
		if !slot.Shift.ValidPeriod(slot.Period) {
			return nil, appErrors.Cloned(appErrors.ErrValidation, "period %d is not part of the %s shift", slot.Period, strings.ToLower(string(slot.Shift)))
		}
		start, end, err := slot.Minutes()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		if end <= start {
			return nil, appErrors.Cloned(appErrors.ErrValidation, "period %d ends at %s before it starts at %s", slot.Period, slot.End, slot.Start)
		}
		key := slotKey{slot.Shift, slot.Period, slot.Weekday}
		if _, dup := seen[key]; dup {
			return nil, appErrors.Cloned(appErrors.ErrValidation, "period %d of the %s shift is listed twice for %s", slot.Period, strings.ToLower(string(slot.Shift)), slot.Weekday)
		}
		seen[key] = struct{}{}
		preset.Slots = append(preset.Slots, slot)
	}
	if err := s.repo.CreatePreset(ctx, preset); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create bell preset")
	}
	return preset, nil
}

// Activate copies a preset into the live schedule. Exactly one preset is active afterwards.
func (s *BellService) Activate(ctx context.Context, id string) ([]models.BellSlot, error) {
	slots, err := s.repo.ActivatePreset(ctx, id)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate bell preset")
	}
	s.setSchedule(slots)
	s.logger.Info("bell preset activated", zap.String("preset_id", id), zap.Int("slots", len(slots)))
	return slots, nil
}

// Schedule returns the live schedule, loading it on first use.
func (s *BellService) Schedule(ctx context.Context) ([]models.BellSlot, error) {
	s.mu.RLock()
	if s.loaded {
		out := s.schedule
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schedule, nil
}

// Refresh reloads the live schedule from storage.
func (s *BellService) Refresh(ctx context.Context) error {
	slots, err := s.repo.Schedule(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load bell schedule")
	}
	s.setSchedule(slots)
	return nil
}

func (s *BellService) setSchedule(slots []models.BellSlot) {
	sorted := append([]models.BellSlot(nil), slots...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Shift != sorted[j].Shift {
			return sorted[i].Shift < sorted[j].Shift
		}
		if sorted[i].Period != sorted[j].Period {
			return sorted[i].Period < sorted[j].Period
		}
		return sorted[i].Weekday < sorted[j].Weekday
	})
	s.mu.Lock()
	s.schedule = sorted
	s.loaded = true
	s.mu.Unlock()
}

// Status resolves the live period state at the injected clock's current time.
func (s *BellService) Status(ctx context.Context) (models.PeriodStatus, error) {
	bells, err := s.Schedule(ctx)
	if err != nil {
		return models.PeriodStatus{}, err
	}
	return ResolvePeriod(s.clock.Now(), bells, s.maxBreakMinutes), nil
}

// Start launches the background refresher.
func (s *BellService) Start(ctx context.Context) {
	s.logger.Info("starting bell refresher", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

// Stop halts the background refresher.
func (s *BellService) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *BellService) run(ctx context.Context) {
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopChan:
			s.logger.Info("bell refresher stopped")
			return
		case <-ctx.Done():
			s.logger.Info("bell refresher cancelled")
			return
		}
	}
}

// tick reloads the schedule and logs period state transitions.
func (s *BellService) tick(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("bell schedule refresh failed, keeping previous schedule", zap.Error(err))
	}
	status, err := s.Status(ctx)
	if err != nil {
		return
	}
	s.metrics.SetPeriodState(status.State)

	s.mu.Lock()
	changed := status.State != s.lastState
	s.lastState = status.State
	s.mu.Unlock()
	if !changed {
		return
	}
	fields := []zap.Field{zap.String("state", string(status.State))}
	if status.Period != nil {
		fields = append(fields, zap.Int("period", *status.Period), zap.String("shift", string(status.Shift)))
	}
	if status.NextPeriod != nil {
		fields = append(fields, zap.Int("next_period", *status.NextPeriod))
	}
	s.logger.Info("period state changed", fields...)
}
