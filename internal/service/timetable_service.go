package service

import (
	"context"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// TimetableService edits the recurring timetable of a half-year.
type TimetableService struct {
	snapshots *SnapshotService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(snapshots *SnapshotService, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{snapshots: snapshots, validator: validate, logger: logger}
}

// ListLessons returns every lesson ordered by weekday, shift, period and class.
func (s *TimetableService) ListLessons(ctx context.Context, hy models.HalfYear) ([]models.LessonSlot, error) {
	store, err := s.snapshots.Store(ctx, hy)
	if err != nil {
		return nil, err
	}
	lessons := append([]models.LessonSlot(nil), store.Lessons()...)
	sort.Slice(lessons, func(i, j int) bool {
		a, b := lessons[i], lessons[j]
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		if a.Shift != b.Shift {
			return a.Shift < b.Shift
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		return a.ClassID < b.ClassID
	})
	return lessons, nil
}

// CreateLesson adds a lesson. Conflicts and room problems are returned as advisories.
func (s *TimetableService) CreateLesson(ctx context.Context, hy models.HalfYear, req dto.LessonRequest) (models.LessonSlot, []models.Advisory, error) {
	return s.saveLesson(ctx, hy, "", req)
}

// UpdateLesson replaces an existing lesson.
func (s *TimetableService) UpdateLesson(ctx context.Context, hy models.HalfYear, id string, req dto.LessonRequest) (models.LessonSlot, []models.Advisory, error) {
	return s.saveLesson(ctx, hy, id, req)
}

func (s *TimetableService) saveLesson(ctx context.Context, hy models.HalfYear, id string, req dto.LessonRequest) (models.LessonSlot, []models.Advisory, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.LessonSlot{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	draft := lessonFromRequest(req)
	draft.ID = id

	var (
		saved      models.LessonSlot
		advisories []models.Advisory
	)
	_, err := s.snapshots.Update(ctx, hy, func(store *TimetableStore) (*TimetableStore, Collection, error) {
		if id != "" {
			if _, err := store.Lesson(id); err != nil {
				return nil, 0, err
			}
		}
		// advisories are computed against the timetable without the lesson being replaced
		base := store
		if id != "" {
			without, err := store.WithoutLesson(id)
			if err != nil {
				return nil, 0, err
			}
			base = without
		}
		next, lesson, err := store.WithLesson(draft)
		if err != nil {
			return nil, 0, err
		}
		saved = lesson
		advisories = LessonAdvisories(base, lesson)
		changed := CollectionLessons
		if len(next.Substitutions()) != len(store.Substitutions()) {
			changed |= CollectionSubstitutions
		}
		return next, changed, nil
	})
	if err != nil {
		return models.LessonSlot{}, nil, err
	}
	if len(advisories) > 0 {
		s.logger.Info("lesson saved with advisories",
			zap.String("half_year", string(hy)), zap.String("lesson_id", saved.ID), zap.Int("advisories", len(advisories)))
	}
	return saved, advisories, nil
}

// DeleteLesson removes a lesson and its substitutions.
func (s *TimetableService) DeleteLesson(ctx context.Context, hy models.HalfYear, id string) error {
	_, err := s.snapshots.Update(ctx, hy, func(store *TimetableStore) (*TimetableStore, Collection, error) {
		next, err := store.WithoutLesson(id)
		if err != nil {
			return nil, 0, err
		}
		return next, CollectionLessons | CollectionSubstitutions, nil
	})
	return err
}

// CheckLesson reports the conflict tags and advisories of a draft lesson without saving it.
func (s *TimetableService) CheckLesson(ctx context.Context, hy models.HalfYear, req dto.LessonCheckRequest) (dto.LessonCheckResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LessonCheckResponse{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	store, err := s.snapshots.Store(ctx, hy)
	if err != nil {
		return dto.LessonCheckResponse{}, err
	}
	draft := lessonFromRequest(req.LessonRequest)
	if id := normalizeOptional(req.LessonID); id != nil {
		// an edited lesson is checked against the timetable without its stored copy
		if store, err = store.WithoutLesson(*id); err != nil {
			return dto.LessonCheckResponse{}, err
		}
		draft.ID = *id
	}
	return dto.LessonCheckResponse{
		Tags:       DetectConflicts(draft, store.Lessons(), store.ClassExcluded),
		Advisories: LessonAdvisories(store, draft),
	}, nil
}

// Conflicts returns the grid-wide conflict map.
func (s *TimetableService) Conflicts(ctx context.Context, hy models.HalfYear) ([]models.LessonConflict, error) {
	store, err := s.snapshots.Store(ctx, hy)
	if err != nil {
		return nil, err
	}
	return DetectAllConflicts(store.Lessons(), store.ClassExcluded), nil
}

// ListTeachers returns the teachers of hy sorted by name.
func (s *TimetableService) ListTeachers(ctx context.Context, hy models.HalfYear) ([]models.Teacher, error) {
	store, err := s.snapshots.Store(ctx, hy)
	if err != nil {
		return nil, err
	}
	teachers := append([]models.Teacher(nil), store.Teachers()...)
	sort.Slice(teachers, func(i, j int) bool {
		return strings.ToLower(teachers[i].Name) < strings.ToLower(teachers[j].Name)
	})
	return teachers, nil
}

// UpsertTeacher creates or replaces the teacher with id.
func (s *TimetableService) UpsertTeacher(ctx context.Context, hy models.HalfYear, id string, req dto.TeacherRequest) (models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Teacher{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	draft := models.Teacher{
		ID:               strings.TrimSpace(id),
		Name:             req.Name,
		Subjects:         req.Subjects,
		Shifts:           req.Shifts,
		UnavailableDates: req.UnavailableDates,
		AbsenceReasons:   models.ReasonMap(req.AbsenceReasons),
		BirthDate:        normalizeOptional(req.BirthDate),
		NotifyAddress:    normalizeOptional(req.NotifyAddress),
	}
	var saved models.Teacher
	_, err := s.snapshots.Update(ctx, hy, func(store *TimetableStore) (*TimetableStore, Collection, error) {
		next, teacher, err := store.WithTeacher(draft)
		if err != nil {
			return nil, 0, err
		}
		saved = teacher
		return next, CollectionTeachers, nil
	})
	return saved, err
}

// DeleteTeacher removes a teacher no lesson references.
func (s *TimetableService) DeleteTeacher(ctx context.Context, hy models.HalfYear, id string) error {
	_, err := s.snapshots.Update(ctx, hy, func(store *TimetableStore) (*TimetableStore, Collection, error) {
		next, err := store.WithoutTeacher(id)
		if err != nil {
			return nil, 0, err
		}
		return next, CollectionTeachers | CollectionDutyRecords, nil
	})
	return err
}

// Undo reverts the latest write of hy.
func (s *TimetableService) Undo(ctx context.Context, hy models.HalfYear) (dto.HistoryResponse, error) {
	store, err := s.snapshots.Undo(ctx, hy)
	if err != nil {
		return dto.HistoryResponse{}, err
	}
	s.logger.Info("timetable write undone", zap.String("half_year", string(hy)), zap.Int64("version", store.Snapshot().Version))
	return s.history(hy, store), nil
}

// Redo reapplies the latest undone write of hy.
func (s *TimetableService) Redo(ctx context.Context, hy models.HalfYear) (dto.HistoryResponse, error) {
	store, err := s.snapshots.Redo(ctx, hy)
	if err != nil {
		return dto.HistoryResponse{}, err
	}
	s.logger.Info("timetable write redone", zap.String("half_year", string(hy)), zap.Int64("version", store.Snapshot().Version))
	return s.history(hy, store), nil
}

// History reports the available undo and redo steps.
func (s *TimetableService) History(ctx context.Context, hy models.HalfYear) (dto.HistoryResponse, error) {
	store, err := s.snapshots.Store(ctx, hy)
	if err != nil {
		return dto.HistoryResponse{}, err
	}
	return s.history(hy, store), nil
}

func (s *TimetableService) history(hy models.HalfYear, store *TimetableStore) dto.HistoryResponse {
	undo, redo := s.snapshots.HistoryDepths(hy)
	return dto.HistoryResponse{HalfYear: hy, Version: store.Snapshot().Version, UndoDepth: undo, RedoDepth: redo}
}

func lessonFromRequest(req dto.LessonRequest) models.LessonSlot {
	return models.LessonSlot{
		ClassID:   strings.TrimSpace(req.ClassID),
		SubjectID: strings.TrimSpace(req.SubjectID),
		TeacherID: strings.TrimSpace(req.TeacherID),
		RoomID:    normalizeOptional(req.RoomID),
		Weekday:   req.Weekday,
		Period:    req.Period,
		Shift:     models.Shift(strings.ToUpper(req.Shift)),
		Track:     req.Track,
	}
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
