package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/timetable-api/internal/models"
)

type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// SnapshotRepository loads and persists whole half-year snapshots.
type SnapshotRepository struct {
	db      *sqlx.DB
	metrics queryObserver
}

// NewSnapshotRepository constructs a SnapshotRepository. metrics may be nil.
func NewSnapshotRepository(db *sqlx.DB, metrics queryObserver) *SnapshotRepository {
	return &SnapshotRepository{db: db, metrics: metrics}
}

const (
	selectTeachers = `SELECT id, half_year, name, subjects, shifts, unavailable_dates, absence_reasons, birth_date, notify_address, created_at, updated_at
FROM teachers WHERE half_year = $1 ORDER BY name, id`
	selectClasses = `SELECT id, half_year, name, shift, student_count, exclude_from_conflicts
FROM class_groups WHERE half_year = $1 ORDER BY name, id`
	selectRooms = `SELECT id, half_year, name, capacity, room_type
FROM rooms WHERE half_year = $1 ORDER BY name, id`
	selectSubjects = `SELECT id, half_year, name, difficulty, required_room_type
FROM subjects WHERE half_year = $1 ORDER BY name, id`
	selectLessons = `SELECT id, half_year, class_id, subject_id, teacher_id, room_id, weekday, period, shift, track
FROM lesson_slots WHERE half_year = $1 ORDER BY weekday, shift, period, class_id, id`
	selectSubstitutions = `SELECT id, half_year, date::text AS date, lesson_id, original_teacher_id, replacement_kind, replacement_teacher_id,
       replacement_room_id, reason, merger, declined_teacher_ids, override_class_id, override_subject_id
FROM substitutions WHERE half_year = $1 ORDER BY date, lesson_id`
	selectZones = `SELECT id, half_year, name, floor, rooms, display_order
FROM duty_zones WHERE half_year = $1 ORDER BY display_order, id`
	selectDutyRecords = `SELECT id, half_year, zone_id, weekday, shift, teacher_id
FROM duty_records WHERE half_year = $1 ORDER BY weekday, shift, zone_id`
	selectVersion = `SELECT version FROM snapshot_versions WHERE half_year = $1`
)

// Load reads every collection of hy concurrently.
func (r *SnapshotRepository) Load(ctx context.Context, hy models.HalfYear) (models.Snapshot, error) {
	snap := models.Snapshot{HalfYear: hy}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return r.selectInto(gctx, "teachers", &snap.Teachers, selectTeachers, hy) })
	g.Go(func() error { return r.selectInto(gctx, "classes", &snap.Classes, selectClasses, hy) })
	g.Go(func() error { return r.selectInto(gctx, "rooms", &snap.Rooms, selectRooms, hy) })
	g.Go(func() error { return r.selectInto(gctx, "subjects", &snap.Subjects, selectSubjects, hy) })
	g.Go(func() error { return r.selectInto(gctx, "lessons", &snap.Lessons, selectLessons, hy) })
	g.Go(func() error { return r.selectInto(gctx, "substitutions", &snap.Substitutions, selectSubstitutions, hy) })
	g.Go(func() error { return r.selectInto(gctx, "duty zones", &snap.DutyZones, selectZones, hy) })
	g.Go(func() error { return r.selectInto(gctx, "duty records", &snap.DutyRecords, selectDutyRecords, hy) })
	g.Go(func() error {
		err := r.db.GetContext(gctx, &snap.Version, selectVersion, hy)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("load snapshot version: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return models.Snapshot{}, err
	}
	return snap, nil
}

func (r *SnapshotRepository) selectInto(ctx context.Context, label string, dest interface{}, query string, hy models.HalfYear) error {
	start := time.Now()
	err := r.db.SelectContext(ctx, dest, query, hy)
	if r.metrics != nil {
		r.metrics.ObserveDBQuery("load "+label, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", label, err)
	}
	return nil
}

const (
	insertTeacher = `INSERT INTO teachers (id, half_year, name, subjects, shifts, unavailable_dates, absence_reasons, birth_date, notify_address, created_at, updated_at)
VALUES (:id, :half_year, :name, :subjects, :shifts, :unavailable_dates, :absence_reasons, :birth_date, :notify_address, :created_at, :updated_at)`
	insertLesson = `INSERT INTO lesson_slots (id, half_year, class_id, subject_id, teacher_id, room_id, weekday, period, shift, track)
VALUES (:id, :half_year, :class_id, :subject_id, :teacher_id, :room_id, :weekday, :period, :shift, :track)`
	insertSubstitution = `INSERT INTO substitutions (id, half_year, date, lesson_id, original_teacher_id, replacement_kind, replacement_teacher_id,
    replacement_room_id, reason, merger, declined_teacher_ids, override_class_id, override_subject_id)
VALUES (:id, :half_year, :date, :lesson_id, :original_teacher_id, :replacement_kind, :replacement_teacher_id,
    :replacement_room_id, :reason, :merger, :declined_teacher_ids, :override_class_id, :override_subject_id)`
	insertDutyRecord = `INSERT INTO duty_records (id, half_year, zone_id, weekday, shift, teacher_id)
VALUES (:id, :half_year, :zone_id, :weekday, :shift, :teacher_id)`
	upsertVersion = `INSERT INTO snapshot_versions (half_year, version, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (half_year) DO UPDATE SET version = EXCLUDED.version, updated_at = EXCLUDED.updated_at
WHERE snapshot_versions.version < EXCLUDED.version`
)

// Apply replaces the collections carried by delta inside one transaction. A delta whose
// version is not newer than the stored one leaves the collections untouched.
func (r *SnapshotRepository) Apply(ctx context.Context, delta models.SnapshotDelta) error {
	if delta.Empty() {
		return nil
	}
	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.ObserveDBQuery("apply snapshot", time.Since(start))
		}
	}()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply snapshot: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, upsertVersion, delta.HalfYear, delta.Version)
	if err != nil {
		return fmt.Errorf("bump snapshot version: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		// a newer version is already stored
		return tx.Commit()
	}

	if delta.Teachers != nil {
		now := time.Now().UTC()
		rows := make([]models.Teacher, len(*delta.Teachers))
		for i, t := range *delta.Teachers {
			if t.CreatedAt.IsZero() {
				t.CreatedAt = now
			}
			t.UpdatedAt = now
			if t.AbsenceReasons == nil {
				t.AbsenceReasons = models.ReasonMap{}
			}
			rows[i] = t
		}
		if err := replaceRows(ctx, tx, "teachers", delta.HalfYear, insertTeacher, rows); err != nil {
			return err
		}
	}
	if delta.Lessons != nil {
		if err := replaceRows(ctx, tx, "lesson_slots", delta.HalfYear, insertLesson, *delta.Lessons); err != nil {
			return err
		}
	}
	if delta.Substitutions != nil {
		if err := replaceRows(ctx, tx, "substitutions", delta.HalfYear, insertSubstitution, *delta.Substitutions); err != nil {
			return err
		}
	}
	if delta.DutyRecords != nil {
		if err := replaceRows(ctx, tx, "duty_records", delta.HalfYear, insertDutyRecord, *delta.DutyRecords); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply snapshot: %w", err)
	}
	return nil
}

func replaceRows[T any](ctx context.Context, tx *sqlx.Tx, table string, hy models.HalfYear, insert string, rows []T) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE half_year = $1", hy); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for i := range rows {
		if _, err := tx.NamedExecContext(ctx, insert, rows[i]); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}
