package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// BellRepository stores bell presets and the live bell schedule.
type BellRepository struct {
	db *sqlx.DB
}

// NewBellRepository constructs a BellRepository.
func NewBellRepository(db *sqlx.DB) *BellRepository {
	return &BellRepository{db: db}
}

// ListPresets returns every preset with its slots, newest first.
func (r *BellRepository) ListPresets(ctx context.Context) ([]models.BellPreset, error) {
	var presets []models.BellPreset
	if err := r.db.SelectContext(ctx, &presets, `SELECT id, name, active, created_at FROM bell_presets ORDER BY created_at DESC, id`); err != nil {
		return nil, fmt.Errorf("list bell presets: %w", err)
	}
	if len(presets) == 0 {
		return presets, nil
	}

	var slots []models.BellSlot
	const slotQuery = `SELECT preset_id, shift, period, weekday, start_time, end_time, cancelled
FROM bell_preset_slots ORDER BY preset_id, shift, period, weekday`
	if err := r.db.SelectContext(ctx, &slots, slotQuery); err != nil {
		return nil, fmt.Errorf("list bell preset slots: %w", err)
	}
	byPreset := make(map[string][]models.BellSlot, len(presets))
	for _, s := range slots {
		byPreset[s.PresetID] = append(byPreset[s.PresetID], s)
	}
	for i := range presets {
		presets[i].Slots = byPreset[presets[i].ID]
	}
	return presets, nil
}

// CreatePreset inserts a preset and its slots.
func (r *BellRepository) CreatePreset(ctx context.Context, preset *models.BellPreset) error {
	if preset.CreatedAt.IsZero() {
		preset.CreatedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create bell preset: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.NamedExecContext(ctx, `INSERT INTO bell_presets (id, name, active, created_at) VALUES (:id, :name, :active, :created_at)`, preset); err != nil {
		return fmt.Errorf("insert bell preset: %w", err)
	}
	const insertSlot = `INSERT INTO bell_preset_slots (preset_id, shift, period, weekday, start_time, end_time, cancelled)
VALUES (:preset_id, :shift, :period, :weekday, :start_time, :end_time, :cancelled)`
	for i := range preset.Slots {
		preset.Slots[i].PresetID = preset.ID
		if _, err := tx.NamedExecContext(ctx, insertSlot, preset.Slots[i]); err != nil {
			return fmt.Errorf("insert bell preset slot: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create bell preset: %w", err)
	}
	return nil
}

// ActivatePreset marks id as the only active preset and copies its slots into the live schedule.
func (r *BellRepository) ActivatePreset(ctx context.Context, id string) ([]models.BellSlot, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin activate bell preset: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var name string
	if err := tx.GetContext(ctx, &name, `SELECT name FROM bell_presets WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Cloned(appErrors.ErrNotFound, "bell preset %s does not exist", id)
		}
		return nil, fmt.Errorf("load bell preset: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE bell_presets SET active = FALSE WHERE active AND id <> $1`, id); err != nil {
		return nil, fmt.Errorf("deactivate bell presets: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE bell_presets SET active = TRUE WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("activate bell preset: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bell_schedule`); err != nil {
		return nil, fmt.Errorf("clear bell schedule: %w", err)
	}
	const copySlots = `INSERT INTO bell_schedule (shift, period, weekday, start_time, end_time, cancelled)
SELECT shift, period, weekday, start_time, end_time, cancelled FROM bell_preset_slots WHERE preset_id = $1`
	if _, err := tx.ExecContext(ctx, copySlots, id); err != nil {
		return nil, fmt.Errorf("copy bell preset slots: %w", err)
	}

	var slots []models.BellSlot
	if err := tx.SelectContext(ctx, &slots, selectSchedule); err != nil {
		return nil, fmt.Errorf("reload bell schedule: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit activate bell preset: %w", err)
	}
	return slots, nil
}

const selectSchedule = `SELECT shift, period, weekday, start_time, end_time, cancelled
FROM bell_schedule ORDER BY shift, period, weekday`

// Schedule returns the live bell schedule.
func (r *BellRepository) Schedule(ctx context.Context) ([]models.BellSlot, error) {
	var slots []models.BellSlot
	if err := r.db.SelectContext(ctx, &slots, selectSchedule); err != nil {
		return nil, fmt.Errorf("load bell schedule: %w", err)
	}
	return slots, nil
}

// Ping checks database connectivity for readiness probes.
func (r *BellRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
